package audit

import (
	"context"

	"github.com/jackc/pgx/v5"
)

// Repository defines audit log persistence operations. The chain's total
// order is creation order; LatestHash must observe the most recent entry.
type Repository interface {
	Create(ctx context.Context, entry *Entry) error

	// LatestHash returns the hash of the most recently appended entry, or
	// GenesisHash when the chain is empty
	LatestHash(ctx context.Context) (string, error)

	// ListInOrder returns all entries in creation order for chain verification
	ListInOrder(ctx context.Context) ([]*Entry, error)

	WithTx(tx pgx.Tx) Repository
}
