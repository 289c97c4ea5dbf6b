package auditchain

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/meridianbank/corebank/internal/domain/audit"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

// fakeAuditRepo keeps the chain in memory, in append order
type fakeAuditRepo struct {
	entries []*audit.Entry
}

func (f *fakeAuditRepo) Create(_ context.Context, entry *audit.Entry) error {
	f.entries = append(f.entries, entry)
	return nil
}

func (f *fakeAuditRepo) LatestHash(context.Context) (string, error) {
	if len(f.entries) == 0 {
		return audit.GenesisHash, nil
	}
	return f.entries[len(f.entries)-1].Hash, nil
}

func (f *fakeAuditRepo) ListInOrder(context.Context) ([]*audit.Entry, error) {
	return f.entries, nil
}

func (f *fakeAuditRepo) WithTx(pgx.Tx) audit.Repository { return f }

// beginMockTx yields a pgx.Tx whose advisory-lock exec is expected
func beginMockTx(t *testing.T, appends int) (pgxmock.PgxPoolIface, pgx.Tx) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	mock.ExpectBegin()
	for i := 0; i < appends; i++ {
		mock.ExpectExec("SELECT pg_advisory_xact_lock").
			WithArgs(chainLockKey).
			WillReturnResult(pgxmock.NewResult("SELECT", 1))
	}

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)
	return mock, tx
}

func TestComputeHash_Deterministic(t *testing.T) {
	payload, err := json.Marshal(map[string]any{"amount": "250.0000", "currency": "USD"})
	require.NoError(t, err)

	h1 := audit.ComputeHash("transaction.transfer", payload, audit.GenesisHash)
	h2 := audit.ComputeHash("transaction.transfer", payload, audit.GenesisHash)
	assert.Equal(t, h1, h2)
	assert.Len(t, h1, 64)

	// Any input change moves the hash
	assert.NotEqual(t, h1, audit.ComputeHash("transaction.reversal", payload, audit.GenesisHash))
	assert.NotEqual(t, h1, audit.ComputeHash("transaction.transfer", payload, "other-prev"))
}

func TestChain_AppendAndVerify(t *testing.T) {
	ctx := context.Background()
	repo := &fakeAuditRepo{}
	chain := NewChain(nil, repo, newTestLogger())

	_, tx := beginMockTx(t, 3)

	first, err := chain.AppendInTx(ctx, tx, "transaction.transfer", map[string]any{"seq": float64(1)})
	require.NoError(t, err)
	assert.Equal(t, audit.GenesisHash, first.PrevHash)

	second, err := chain.AppendInTx(ctx, tx, "risk.alert.raised", map[string]any{"seq": float64(2)})
	require.NoError(t, err)
	assert.Equal(t, first.Hash, second.PrevHash)

	third, err := chain.AppendInTx(ctx, tx, "compliance.simulation.completed", map[string]any{"seq": float64(3)})
	require.NoError(t, err)
	assert.Equal(t, second.Hash, third.PrevHash)

	result, err := chain.Verify(ctx)
	require.NoError(t, err)
	assert.True(t, result.Valid)
	assert.Equal(t, 3, result.Entries)
	assert.Nil(t, result.BrokenAt)
}

func TestChain_VerifyDetectsTampering(t *testing.T) {
	ctx := context.Background()
	repo := &fakeAuditRepo{}
	chain := NewChain(nil, repo, newTestLogger())

	_, tx := beginMockTx(t, 3)
	for i := 1; i <= 3; i++ {
		_, err := chain.AppendInTx(ctx, tx, "transaction.transfer", map[string]any{"seq": float64(i)})
		require.NoError(t, err)
	}

	t.Run("payload edit breaks the chain", func(t *testing.T) {
		repo.entries[1].Payload["seq"] = float64(99)

		result, err := chain.Verify(ctx)
		require.NoError(t, err)
		assert.False(t, result.Valid)
		require.NotNil(t, result.BrokenAt)
		assert.Equal(t, repo.entries[1].ID, *result.BrokenAt)

		repo.entries[1].Payload["seq"] = float64(2) // restore
	})

	t.Run("stored hash edit breaks the chain", func(t *testing.T) {
		original := repo.entries[2].Hash
		repo.entries[2].Hash = "0000000000000000000000000000000000000000000000000000000000000000"

		result, err := chain.Verify(ctx)
		require.NoError(t, err)
		assert.False(t, result.Valid)
		require.NotNil(t, result.BrokenAt)
		assert.Equal(t, repo.entries[2].ID, *result.BrokenAt)

		repo.entries[2].Hash = original
	})

	t.Run("reorder breaks the chain", func(t *testing.T) {
		repo.entries[0], repo.entries[1] = repo.entries[1], repo.entries[0]

		result, err := chain.Verify(ctx)
		require.NoError(t, err)
		assert.False(t, result.Valid)
	})
}

func TestChain_EmptyChainVerifies(t *testing.T) {
	chain := NewChain(nil, &fakeAuditRepo{}, newTestLogger())

	result, err := chain.Verify(context.Background())
	require.NoError(t, err)
	assert.True(t, result.Valid)
	assert.Equal(t, 0, result.Entries)
}
