// Package routes holds the static route table: identifiers, display labels,
// and the content blocks sent when a route is requested.
package routes

import (
	"fmt"
	"strings"
)

// Route maps a short identifier to its display label and content generator.
type Route struct {
	ID     string
	Label  string
	Render func() string
}

// URLLookup resolves a logical destination name to a configured URL.
type URLLookup func(name string) string

// Table is the ordered, immutable route table built once at startup. Iteration
// order is significant: free-text keyword matching resolves ties by table order.
type Table struct {
	routes []Route
	byID   map[string]int
}

// DesignerBrands is the public brand list shown in the designers block.
var DesignerBrands = []string{
	"NEDF", "SOAM DESIGN", "TIGI'S DESIGN", "HILORE", "BENAQFKOT DESIGN",
}

// NewTable builds the route table using the provided URL lookup.
func NewTable(url URLLookup) *Table {
	if url == nil {
		url = func(string) string { return "" }
	}

	entries := []Route{
		{ID: "tickets", Label: "🎟 Tickets", Render: func() string {
			return fmt.Sprintf("🎟 *Tickets — American Invasion*\n"+
				"• View availability & buy → %s\n"+
				"• Accepted payments: *Telebirr, M-Pesa, Card, PayPal, Cash, Bank Transfer*\n"+
				"• Refund/transfer: subject to event policy.\n"+
				"_If you haven't started a private chat yet, tap the button and press Start._", url("tickets"))
		}},
		{ID: "shop", Label: "🛒 Shop", Render: func() string {
			return fmt.Sprintf("🛒 *Shop — Exclusive drops*\n"+
				"Browse looks & sizes. Reply with your picks and size.\n"+
				"• Shop now → %s\n"+
				"• Payments: Telebirr, M-Pesa, Card, PayPal, Cash, Bank Transfer\n"+
				"• Delivery options may vary by item.", url("shop"))
		}},
		{ID: "games", Label: "🎮 Emerge Games", Render: func() string {
			return "🎮 *Emerge Games* — Coming soon. Stay tuned!"
		}},
		{ID: "designers", Label: "👗 Designers", Render: func() string {
			var b strings.Builder
			b.WriteString("👗 *Designers — Browse brands*\n")
			for _, brand := range DesignerBrands {
				fmt.Fprintf(&b, "• %s\n", brand)
			}
			b.WriteString("\nReply with the designer you want to view, and I'll send their current looks.")
			return b.String()
		}},
		{ID: "music", Label: "🎵 Music", Render: func() string {
			return fmt.Sprintf("🎵 *Music* — Listen here: %s", url("music"))
		}},
		{ID: "ideas", Label: "💡 Ideas / Feedback", Render: func() string {
			return fmt.Sprintf("💡 Share feedback & ideas → %s", url("ideas"))
		}},
		{ID: "promotions", Label: "🎁 Promotions", Render: func() string {
			return fmt.Sprintf("🎁 Current promos → %s", url("promos"))
		}},
		{ID: "special", Label: "⭐ Special Order", Render: func() string {
			return "⭐ *Special Order*\n" +
				"Reply with a reference photo, size, budget, and timeline.\n" +
				"We'll confirm details within 24–48h."
		}},
		{ID: "submit", Label: "✉️ Submit Talent", Render: func() string {
			return fmt.Sprintf("✉️ *Submit Talent*\n"+
				"Tell us your role (model/artist/DJ/designer), and include:\n"+
				"• Models: 3 pro images\n"+
				"• Artists/DJs: link to reel/EPK\n"+
				"• Designers: lookbook or 3 product shots\n"+
				"Direct link → %s\n"+
				"_We review weekly and reach out if it's a fit._", url("submit"))
		}},
		{ID: "order", Label: "📦 Order Status", Render: func() string {
			return fmt.Sprintf("📦 *Order Status* — Track here: %s", url("order"))
		}},
		{ID: "faq", Label: "📖 FAQ", Render: func() string {
			return fmt.Sprintf("📖 *FAQ — Quick Answers*\n"+
				"1) Tickets: check availability & rules on the ticket page.\n"+
				"2) Delivery: varies by item/city; ask support if unsure.\n"+
				"3) Returns: apparel returns subject to policy.\n"+
				"4) Sizing: DM your measurements; we'll help.\n"+
				"5) Support: reply here or use the form.\n"+
				"Full FAQ → %s", url("faq"))
		}},
		{ID: "support", Label: "📞 Support", Render: func() string {
			return fmt.Sprintf("📞 *Support*\n"+
				"Reply with your issue (order # if you have it), or use the form:\n"+
				"%s\n"+
				"_We reply within 24h._", url("support"))
		}},
		{ID: "donate", Label: "💸 Tip / Donate", Render: func() string {
			return fmt.Sprintf("💸 *Tip / Donate* — %s", url("donate"))
		}},
		{ID: "terms", Label: "⚖️ Terms", Render: func() string {
			return fmt.Sprintf("⚖️ *Terms & Policies*\n"+
				"Read our terms, privacy, and refund policies.\n"+
				"→ %s\n"+
				"We respect your privacy; your info is used to fulfill orders and improve your experience.", url("terms"))
		}},
	}

	byID := make(map[string]int, len(entries))
	for i, entry := range entries {
		byID[entry.ID] = i
	}

	return &Table{routes: entries, byID: byID}
}

// Lookup returns the route for an exact identifier.
func (t *Table) Lookup(id string) (Route, bool) {
	idx, ok := t.byID[strings.ToLower(strings.TrimSpace(id))]
	if !ok {
		return Route{}, false
	}
	return t.routes[idx], true
}

// MatchKeyword scans the lowercased text for route identifiers as substrings.
// The first identifier in table order wins; ties go to table order, not
// specificity. Deliberately permissive.
func (t *Table) MatchKeyword(text string) (Route, bool) {
	lowered := strings.ToLower(text)
	for _, route := range t.routes {
		if strings.Contains(lowered, route.ID) {
			return route, true
		}
	}
	return Route{}, false
}

// All returns the routes in table order.
func (t *Table) All() []Route {
	out := make([]Route, len(t.routes))
	copy(out, t.routes)
	return out
}

// MenuRows groups the routes into rows of two for the main menu keyboard.
func (t *Table) MenuRows() [][]Route {
	var rows [][]Route
	for i := 0; i < len(t.routes); i += 2 {
		end := i + 2
		if end > len(t.routes) {
			end = len(t.routes)
		}
		row := make([]Route, end-i)
		copy(row, t.routes[i:end])
		rows = append(rows, row)
	}
	return rows
}
