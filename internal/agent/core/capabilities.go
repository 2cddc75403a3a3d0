package core

import (
	"fmt"
	"strings"

	"github.com/mohammad-safakhou/newsagent/internal/capability"
)

// CapabilitiesDoc renders the registered ToolCards as a numbered catalogue
// for the planner prompt: "1. name(param: type, ...) - description".
func CapabilitiesDoc(registry *capability.Registry) string {
	cards := registry.Cards()
	lines := make([]string, 0, len(cards))
	for i, card := range cards {
		params := "no parameters"
		if len(card.Params) > 0 {
			parts := make([]string, 0, len(card.Params))
			for _, p := range card.Params {
				parts = append(parts, fmt.Sprintf("%s: %s", p.Name, p.Type))
			}
			params = strings.Join(parts, ", ")
		}
		desc := card.Description
		if desc == "" {
			desc = "No description"
		}
		lines = append(lines, fmt.Sprintf("%d. %s(%s) - %s", i+1, card.Name, params, desc))
	}
	return strings.Join(lines, "\n")
}
