// Package unlock persists which email addresses have unlocked which gated
// content. Two backends exist: a JSON-file index (default) and a Postgres
// table for deployments that need durable, race-free writes.
package unlock

import "context"

// All is the sentinel content id meaning every item of a content type is
// unlocked (bundle / all-access purchase).
const All = "all"

// Store records and queries unlock facts per (email, content type).
type Store interface {
	// RecordUnlock marks contentID as unlocked for email. Recording the
	// same unlock twice is a no-op, as is recording a specific id when
	// the email already holds the All sentinel.
	RecordUnlock(ctx context.Context, email, contentType, contentID string) error

	// IsUnlocked reports whether email may access contentID. The All
	// sentinel unlocks every id of the content type.
	IsUnlocked(ctx context.Context, email, contentType, contentID string) (bool, error)

	// Unlocks returns the content ids unlocked for email. Empty slice,
	// not nil, when there are none.
	Unlocks(ctx context.Context, email, contentType string) ([]string, error)
}
