package onboarding

import (
	"sort"
	"sync"
	"time"
)

// Stage enumerates the steps of the designer onboarding flow, in order.
type Stage string

const (
	StageBrandName Stage = "brand_name"
	StageLogo      Stage = "logo"
	StageProducts  Stage = "products"
	StageShipping  Stage = "shipping"
	StagePayout    Stage = "payout"
	StageSubmitted Stage = "submitted"
)

// MaxProducts caps how many product photos a submission may hold.
const MaxProducts = 3

// Submission is the per-user onboarding record. Mutated only through the
// store's Update, which serializes access per user.
type Submission struct {
	UserID         int64
	FirstName      string
	Stage          Stage
	Brand          string
	LogoFileID     string
	ProductFileIDs []string
	Shipping       string
	Payout         string
	StartedAt      time.Time
	UpdatedAt      time.Time
}

// Store abstracts session persistence keyed by sender identity. Update runs
// its callback with exclusive access to that user's session so two concurrent
// messages from the same sender cannot interleave transitions.
type Store interface {
	// Begin creates a fresh session at brand_name, replacing any existing
	// session for the user. It reports whether an in-progress session was
	// discarded.
	Begin(userID int64, firstName string) (Submission, bool)
	// Update runs fn with exclusive access to the user's session and returns
	// the resulting snapshot. It reports false when no session exists.
	Update(userID int64, fn func(*Submission)) (Submission, bool)
	// Get returns a snapshot of the user's session.
	Get(userID int64) (Submission, bool)
	// Active reports whether the user has a non-terminal session.
	Active(userID int64) bool
	// Submitted lists completed submissions, ordered by user id.
	Submitted() []Submission
	// Delete removes the user's session.
	Delete(userID int64)
}

type sessionEntry struct {
	mu  sync.Mutex
	sub Submission
}

// MemoryStore keeps sessions in process memory for the process lifetime.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[int64]*sessionEntry
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[int64]*sessionEntry)}
}

func (s *MemoryStore) Begin(userID int64, firstName string) (Submission, bool) {
	now := time.Now().UTC()

	s.mu.Lock()
	defer s.mu.Unlock()

	prev, existed := s.entries[userID]
	discarded := existed && prev.sub.Stage != StageSubmitted

	entry := &sessionEntry{sub: Submission{
		UserID:    userID,
		FirstName: firstName,
		Stage:     StageBrandName,
		StartedAt: now,
		UpdatedAt: now,
	}}
	s.entries[userID] = entry

	return entry.sub, discarded
}

func (s *MemoryStore) Update(userID int64, fn func(*Submission)) (Submission, bool) {
	s.mu.RLock()
	entry, ok := s.entries[userID]
	s.mu.RUnlock()
	if !ok {
		return Submission{}, false
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	fn(&entry.sub)
	entry.sub.UpdatedAt = time.Now().UTC()

	return snapshot(entry.sub), true
}

func (s *MemoryStore) Get(userID int64) (Submission, bool) {
	s.mu.RLock()
	entry, ok := s.entries[userID]
	s.mu.RUnlock()
	if !ok {
		return Submission{}, false
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	return snapshot(entry.sub), true
}

func (s *MemoryStore) Active(userID int64) bool {
	sub, ok := s.Get(userID)
	return ok && sub.Stage != StageSubmitted
}

func (s *MemoryStore) Submitted() []Submission {
	s.mu.RLock()
	entries := make([]*sessionEntry, 0, len(s.entries))
	for _, entry := range s.entries {
		entries = append(entries, entry)
	}
	s.mu.RUnlock()

	var out []Submission
	for _, entry := range entries {
		entry.mu.Lock()
		if entry.sub.Stage == StageSubmitted {
			out = append(out, snapshot(entry.sub))
		}
		entry.mu.Unlock()
	}

	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out
}

func (s *MemoryStore) Delete(userID int64) {
	s.mu.Lock()
	delete(s.entries, userID)
	s.mu.Unlock()
}

func snapshot(sub Submission) Submission {
	out := sub
	out.ProductFileIDs = append([]string(nil), sub.ProductFileIDs...)
	return out
}
