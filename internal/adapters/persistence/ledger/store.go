package ledger

import (
	"context"
	"errors"
	"fmt"
)

// ErrCellNotFound is returned by Get for a key that was never written.
var ErrCellNotFound = errors.New("ledger cell not found")

// UpdateFunc computes the next value of a cell from its current value.
// exists is false when the cell has never been written (current is "").
// Returning an error aborts the update without writing.
type UpdateFunc func(current string, exists bool) (string, error)

// Store is the shared balance/metadata store. Balance cells, failure
// counters and status flags are only ever mutated through AtomicUpdate -
// never through a plain Get-then-Set pair.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error

	// AtomicUpdate applies fn under compare-and-retry semantics and
	// returns the committed value. A write conflict re-reads and retries;
	// retry exhaustion surfaces domain.ErrConflict.
	AtomicUpdate(ctx context.Context, key string, fn UpdateFunc) (string, error)
}

// maxUpdateRetries caps the compare-and-retry loop so heavy contention
// degrades into a retryable error instead of a livelock.
const maxUpdateRetries = 8

// Cell key builders. Keys are path-like and account numbers are the single
// canonical key - there is no fallback scan.

func SequenceKey() string {
	return "sequence/transactions"
}

func AccountBalanceKey(accountNo string) string {
	return fmt.Sprintf("accounts/%s/balance", accountNo)
}

func AccountStatusKey(accountNo string) string {
	return fmt.Sprintf("accounts/%s/status", accountNo)
}

func IdentityStatusKey(identityID uint) string {
	return fmt.Sprintf("identities/%d/status", identityID)
}

func PinFailuresKey(identityID uint) string {
	return fmt.Sprintf("identities/%d/pinFailures", identityID)
}

func BioFailuresKey(identityID uint) string {
	return fmt.Sprintf("identities/%d/bioFailures", identityID)
}
