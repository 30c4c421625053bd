// Package dispatch connects inbound events to the route table, the delivery
// strategy, the onboarding flow, and the admin surface. A bounded worker pool
// drains updates from the platform layer into the router.
package dispatch

import (
	"strings"

	"tg_concierge_bot/internal/routes"
)

// ButtonKind classifies a callback payload.
type ButtonKind int

const (
	ButtonUnknown ButtonKind = iota
	ButtonRoute
	ButtonAdmin
)

const adminPayloadPrefix = "admin:"

// ButtonMatch is the classification of one callback payload.
type ButtonMatch struct {
	Kind  ButtonKind
	Route routes.Route // set when Kind == ButtonRoute
}

// Classifier resolves button payloads and group free text against the route
// table. It is pure: no I/O, no state beyond the table reference.
type Classifier struct {
	table *routes.Table
}

// NewClassifier constructs a Classifier over the given table.
func NewClassifier(table *routes.Table) *Classifier {
	return &Classifier{table: table}
}

// Button classifies a callback payload. Route payloads must match a route id
// exactly; admin payloads are recognized by prefix and left to the admin
// surface to interpret.
func (c *Classifier) Button(payload string) ButtonMatch {
	payload = strings.TrimSpace(payload)

	if strings.HasPrefix(payload, adminPayloadPrefix) {
		return ButtonMatch{Kind: ButtonAdmin}
	}

	if route, ok := c.table.Lookup(payload); ok {
		return ButtonMatch{Kind: ButtonRoute, Route: route}
	}

	return ButtonMatch{Kind: ButtonUnknown}
}

// GroupText scans free text for a route keyword. First route in table order
// wins.
func (c *Classifier) GroupText(text string) (routes.Route, bool) {
	return c.table.MatchKeyword(text)
}
