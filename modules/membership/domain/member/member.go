package member

import (
	"context"

	"github.com/go-faster/errors"

	"github.com/ntsowef/eff-membership-system-sub020/modules/membership/domain/upload"
)

// StatusGoodStanding is the membership status every newly inserted member
// starts with.
const StatusGoodStanding = "Good Standing"

var ErrNotFound = errors.New("member not found")

// Repository is the registry capability the bulk-upload pipeline needs:
// one batched read for classification, and row-level writes executed inside
// the persistence engine's transaction.
type Repository interface {
	// FindByIDNumbers returns the current registry state for every matched
	// identity in one round trip. Unmatched identities are absent from the
	// result.
	FindByIDNumbers(ctx context.Context, idNumbers []string) (map[string]upload.ExistingMatch, error)

	// Insert creates a new member from a verified record and returns the
	// assigned member id.
	Insert(ctx context.Context, rec upload.Record, verification upload.VerificationResult) (int64, error)

	// Update overwrites only the non-null incoming fields of an existing
	// member, always refreshing updated_at.
	Update(ctx context.Context, memberID int64, rec upload.Record, verification upload.VerificationResult) error
}
