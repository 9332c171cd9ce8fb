package credstore

import "context"

// Pair is an access/refresh credential pair. Both fields are opaque signed
// tokens. The zero value means no stored session.
type Pair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// Empty reports whether the pair holds no credentials.
func (p Pair) Empty() bool {
	return p.Access == "" && p.Refresh == ""
}

// Store reads and writes the credential pair as one record.
//
// Absence is not an error: Load returns a zero Pair when nothing is stored.
// Save overwrites both credentials together and Clear removes both together,
// so no reader ever observes a half-written pair.
type Store interface {
	// Load returns the stored pair, or a zero Pair when none exists.
	Load(ctx context.Context) (Pair, error)

	// Save persists the pair, replacing any previous record.
	Save(ctx context.Context, pair Pair) error

	// Clear removes the stored pair. Clearing an empty store is a no-op.
	Clear(ctx context.Context) error
}
