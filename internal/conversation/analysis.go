package conversation

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/bgash22/voicebridge-ai-website/internal/assistant"
)

// Sentiment is the keyword-based mood of a conversation.
type Sentiment string

// Sentiments.
const (
	SentimentPositive Sentiment = "positive"
	SentimentNeutral  Sentiment = "neutral"
	SentimentNegative Sentiment = "negative"
)

var (
	negativeWords = []string{"problem", "issue", "wrong", "broken", "bad", "delay", "late", "angry", "complaint", "refund", "cancel"}
	positiveWords = []string{"good", "great", "thanks", "thank", "excellent", "perfect", "appreciate", "helpful"}
)

// actionRule adds Action when any user or assistant text contains one of
// Keywords.
type actionRule struct {
	Keywords []string
	Action   string
}

var actionRules = map[assistant.Mode][]actionRule{
	assistant.ModePharmacy: {
		{[]string{"price", "cost"}, "Provide pricing information"},
		{[]string{"prescription", "refill"}, "Process prescription refill"},
	},
	assistant.ModeShipment: {
		{[]string{"track", "package"}, "Provide tracking information"},
		{[]string{"delay", "late"}, "Investigate delivery delay"},
	},
	assistant.ModeBanking: {
		{[]string{"balance", "account"}, "Provide account balance information"},
		{[]string{"transfer", "send money"}, "Process fund transfer"},
	},
	assistant.ModeClinic: {
		{[]string{"appointment", "schedule"}, "Schedule medical appointment"},
		{[]string{"doctor", "available"}, "Check doctor availability"},
	},
}

const noActions = "No specific actions identified"

// Analysis is a heuristic summary of a conversation.
type Analysis struct {
	Sentiment     Sentiment `json:"sentiment"`
	Summary       string    `json:"summary"`
	ActionItems   []string  `json:"action_items"`
	TotalTurns    int       `json:"total_turns"`
	TalkRatioUser float64   `json:"talk_ratio_user"`
}

// Analyze scores turns with keyword heuristics. A keyword counts once per
// turn whose lowercased text contains it.
func Analyze(turns []assistant.Turn, mode assistant.Mode, language string) Analysis {
	var pos, neg, userWords, totalWords int
	texts := make([]string, len(turns))

	for i, t := range turns {
		lower := strings.ToLower(t.Text)
		texts[i] = lower
		for _, w := range positiveWords {
			if strings.Contains(lower, w) {
				pos++
			}
		}
		for _, w := range negativeWords {
			if strings.Contains(lower, w) {
				neg++
			}
		}

		n := len(strings.Fields(t.Text))
		totalWords += n
		if t.Role == assistant.RoleUser {
			userWords += n
		}
	}

	a := Analysis{
		Sentiment:   SentimentNeutral,
		TotalTurns:  len(turns),
		ActionItems: actionItems(texts, mode),
	}
	switch {
	case pos > neg+1:
		a.Sentiment = SentimentPositive
	case neg > pos+1:
		a.Sentiment = SentimentNegative
	}
	if totalWords > 0 {
		a.TalkRatioUser = float64(userWords) / float64(totalWords)
	}

	if len(turns) == 0 {
		a.Summary = "No conversation data available."
	} else {
		a.Summary = fmt.Sprintf("Customer interacted with %s in %s language. Total %d messages exchanged.",
			summaryLabel(mode), language, len(turns))
	}
	return a
}

func actionItems(texts []string, mode assistant.Mode) []string {
	all := strings.Join(texts, "\n")
	var items []string
	for _, rule := range actionRules[mode] {
		for _, k := range rule.Keywords {
			if strings.Contains(all, k) {
				items = append(items, rule.Action)
				break
			}
		}
	}
	if len(items) == 0 {
		return []string{noActions}
	}
	return items
}

func summaryLabel(mode assistant.Mode) string {
	switch mode {
	case assistant.ModeShipment:
		return "DHL tracking system"
	case assistant.ModeBanking:
		return "banking assistant"
	case assistant.ModeClinic:
		return "medical clinic assistant"
	default:
		return "pharmacy assistant"
	}
}

// ExportTranscript writes a plain-text transcript of turns to w.
func ExportTranscript(w io.Writer, turns []assistant.Turn, mode assistant.Mode, language string, now time.Time) error {
	var b strings.Builder
	b.WriteString("VoiceBridge AI Conversation Transcript\n")
	fmt.Fprintf(&b, "Service: %s\n", mode.Label())
	fmt.Fprintf(&b, "Language: %s\n", language)
	fmt.Fprintf(&b, "Date: %s\n", now.Format("2006-01-02 15:04:05"))
	b.WriteString(strings.Repeat("=", 60))
	b.WriteString("\n\n")

	for _, t := range turns {
		speaker := "AI"
		if t.Role == assistant.RoleUser {
			speaker = "USER"
		}
		fmt.Fprintf(&b, "[%s] %s: %s\n\n", t.Timestamp.Format("15:04:05"), speaker, t.Text)
	}

	_, err := io.WriteString(w, b.String())
	return err
}
