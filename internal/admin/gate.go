// Package admin implements the moderator surface: a static allow-list gate and
// the private-chat panel commands built on top of it.
package admin

// Gate authorizes privileged operations against a static allow-list loaded at
// startup. An empty list authorizes nobody.
type Gate struct {
	allowed map[int64]struct{}
}

// NewGate constructs a Gate from the configured admin user ids.
func NewGate(ids []int64) *Gate {
	allowed := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		if id != 0 {
			allowed[id] = struct{}{}
		}
	}

	return &Gate{allowed: allowed}
}

// Authorize reports whether the user may perform admin operations.
func (g *Gate) Authorize(userID int64) bool {
	if g == nil || len(g.allowed) == 0 {
		return false
	}

	_, ok := g.allowed[userID]
	return ok
}

// Size returns the number of configured admins.
func (g *Gate) Size() int {
	if g == nil {
		return 0
	}
	return len(g.allowed)
}
