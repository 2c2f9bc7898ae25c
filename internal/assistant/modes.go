package assistant

import (
	"fmt"
	"strings"

	"github.com/bgash22/voicebridge-ai-website/internal/tools"
)

// Mode selects the assistant persona and its tools.
type Mode string

// Service modes.
const (
	ModePharmacy Mode = "pharmacy"
	ModeShipment Mode = "shipment"
	ModeBanking  Mode = "banking"
	ModeClinic   Mode = "clinic"
)

// Modes lists every mode in display order.
var Modes = []Mode{ModePharmacy, ModeShipment, ModeBanking, ModeClinic}

var modeTools = map[Mode][]string{
	ModePharmacy: {tools.GetDrugInfo, tools.PlaceOrder, tools.LookupOrder},
	ModeShipment: {tools.TrackShipment},
}

var modeLabels = map[Mode]string{
	ModePharmacy: "Pharmacy Assistant",
	ModeShipment: "DHL Tracking",
	ModeBanking:  "Banking Assistant",
	ModeClinic:   "Medical Clinic Assistant",
}

// ParseMode resolves a wire value to a Mode. "dhl" is accepted for shipment.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModePharmacy, ModeShipment, ModeBanking, ModeClinic:
		return m, nil
	case "dhl":
		return ModeShipment, nil
	default:
		return "", fmt.Errorf("unknown service mode %q", s)
	}
}

// Label returns the display name of the mode.
func (m Mode) Label() string {
	if l, ok := modeLabels[m]; ok {
		return l
	}
	return string(m)
}

// ToolNames returns the tools available in the mode. Banking and clinic
// have none.
func (m Mode) ToolNames() []string {
	return append([]string(nil), modeTools[m]...)
}

// Tools returns the tool definitions available in the mode.
func (m Mode) Tools() []tools.Definition {
	names := modeTools[m]
	defs := make([]tools.Definition, 0, len(names))
	for _, name := range names {
		if def, ok := tools.Lookup(name); ok {
			defs = append(defs, def)
		}
	}
	return defs
}

// Allows reports whether the tool is offered in the mode.
func (m Mode) Allows(tool string) bool {
	for _, name := range modeTools[m] {
		if name == tool {
			return true
		}
	}
	return false
}
