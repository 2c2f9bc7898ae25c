package assistant

import (
	"fmt"
	"strings"
)

// DefaultLanguage gets no language directive.
const DefaultLanguage = "en"

// Language describes a supported conversation language.
type Language struct {
	Code   string // wire code, e.g. "es"
	Name   string // English name used in the prompt directive
	Locale string // BCP-47 locale for speech providers
}

var languages = map[string]Language{
	"en": {Code: "en", Name: "English", Locale: "en-US"},
	"ar": {Code: "ar", Name: "Arabic", Locale: "ar-SA"},
	"es": {Code: "es", Name: "Spanish", Locale: "es-ES"},
	"fr": {Code: "fr", Name: "French", Locale: "fr-FR"},
	"zh": {Code: "zh", Name: "Chinese", Locale: "zh-CN"},
	"de": {Code: "de", Name: "German", Locale: "de-DE"},
	"tr": {Code: "tr", Name: "Turkish", Locale: "tr-TR"},
	"hi": {Code: "hi", Name: "Hindi", Locale: "hi-IN"},
}

// LookupLanguage finds a language by code, ignoring case and any region
// suffix ("EN", "es-MX").
func LookupLanguage(code string) (Language, bool) {
	code = strings.ToLower(strings.TrimSpace(code))
	if i := strings.IndexAny(code, "-_"); i > 0 {
		code = code[:i]
	}
	l, ok := languages[code]
	return l, ok
}

// Locale returns the speech locale for code, defaulting to en-US.
func Locale(code string) string {
	if l, ok := LookupLanguage(code); ok {
		return l.Locale
	}
	return languages[DefaultLanguage].Locale
}

// LanguageDirective returns the instruction appended to the system prompt,
// or "" for the default language and unknown codes.
func LanguageDirective(code string) string {
	l, ok := LookupLanguage(code)
	if !ok || l.Code == DefaultLanguage {
		return ""
	}
	return fmt.Sprintf(" IMPORTANT: Respond in %s language only. All your responses must be in %s.", l.Name, l.Name)
}

const (
	pharmacyPrompt = "You are a professional pharmacy assistant helping customers with their medication needs. " +
		"Your role is to: 1) Answer questions about medications (prices, availability, descriptions), " +
		"2) Help customers place orders for medications, 3) Look up existing order status, " +
		"4) Provide clear, helpful, and professional service. " +
		"You have access to tools to: get_drug_info (look up medication details), " +
		"place_order (create new medication orders), lookup_order (check order status by ID). " +
		"IMPORTANT: ALWAYS stay in the pharmacy assistant role. If a customer asks about topics unrelated to " +
		"pharmacy/medications, politely redirect them back to pharmacy services. When customers ask unclear " +
		"questions, ask clarifying questions to understand their medication needs. Be concise but helpful. " +
		"Never provide medical advice - only factual information about medications in the database."

	shipmentPrompt = "You are a professional DHL package tracking assistant. Your role is to help customers " +
		"track their shipments and packages. You have access to the track_shipment function. " +
		"Always ask for tracking numbers in a clear format (10-14 digit numbers). Be helpful and professional."

	bankingPrompt = "You are a professional banking assistant. Help customers with general questions about " +
		"accounts, balances and transfers. You cannot access or change any real account, so explain the steps " +
		"the customer would take and never ask for passwords or full card numbers. Be concise and professional."

	clinicPrompt = "You are a professional medical clinic receptionist. Help patients with appointment " +
		"scheduling questions, clinic hours and doctor availability. You cannot book real appointments and " +
		"must never provide medical advice or diagnoses. Be concise, warm and professional."
)

var prompts = map[Mode]string{
	ModePharmacy: pharmacyPrompt,
	ModeShipment: shipmentPrompt,
	ModeBanking:  bankingPrompt,
	ModeClinic:   clinicPrompt,
}

// SystemPrompt returns the mode's system prompt with the language directive
// appended when needed.
func SystemPrompt(mode Mode, language string) string {
	p, ok := prompts[mode]
	if !ok {
		p = pharmacyPrompt
	}
	return p + LanguageDirective(language)
}
