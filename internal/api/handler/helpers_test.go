package handler

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/meridianbank/corebank/internal/api/middleware"
	"github.com/meridianbank/corebank/internal/domain/account"
	"github.com/meridianbank/corebank/internal/domain/audit"
	"github.com/meridianbank/corebank/internal/domain/risk"
	"github.com/meridianbank/corebank/internal/domain/shared"
	"github.com/meridianbank/corebank/internal/domain/transaction"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

// newMockRunner backs ExecuteTx with a pgxmock pool that tolerates several
// transactions and audit-lock execs
func newMockRunner(t *testing.T) *mockRunner {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	mock.MatchExpectationsInOrder(false)
	for i := 0; i < 8; i++ {
		mock.ExpectBegin()
		mock.ExpectCommit()
		mock.ExpectRollback()
	}
	for i := 0; i < 16; i++ {
		mock.ExpectExec("SELECT pg_advisory_xact_lock").
			WithArgs(pgxmock.AnyArg()).
			WillReturnResult(pgxmock.NewResult("SELECT", 1))
	}
	return &mockRunner{mock: mock}
}

type mockRunner struct {
	mock pgxmock.PgxPoolIface
}

func (r *mockRunner) ExecuteTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := r.mock.Begin(ctx)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}

type fakeAccountRepo struct {
	accounts  map[uuid.UUID]*account.Account
	createErr error
}

func newFakeAccountRepo() *fakeAccountRepo {
	return &fakeAccountRepo{accounts: map[uuid.UUID]*account.Account{}}
}

func (f *fakeAccountRepo) Create(_ context.Context, acct *account.Account) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.accounts[acct.ID] = acct
	return nil
}

func (f *fakeAccountRepo) GetByID(_ context.Context, id uuid.UUID) (*account.Account, error) {
	acct, ok := f.accounts[id]
	if !ok {
		return nil, account.ErrAccountNotFound{AccountID: id}
	}
	return acct, nil
}

func (f *fakeAccountRepo) LockForUpdate(ctx context.Context, id uuid.UUID) (*account.Account, error) {
	return f.GetByID(ctx, id)
}

func (f *fakeAccountRepo) AdjustBalance(_ context.Context, id uuid.UUID, delta decimal.Decimal) error {
	acct, ok := f.accounts[id]
	if !ok {
		return account.ErrAccountNotFound{AccountID: id}
	}
	acct.Balance = acct.Balance.Add(delta)
	return nil
}

func (f *fakeAccountRepo) WithTx(pgx.Tx) account.Repository { return f }

type fakeTxnRepo struct {
	byAccount map[uuid.UUID][]*transaction.Transaction
}

func newFakeTxnRepo() *fakeTxnRepo {
	return &fakeTxnRepo{byAccount: map[uuid.UUID][]*transaction.Transaction{}}
}

func (f *fakeTxnRepo) Create(_ context.Context, txn *transaction.Transaction) error {
	f.byAccount[txn.AccountID] = append([]*transaction.Transaction{txn}, f.byAccount[txn.AccountID]...)
	return nil
}

func (f *fakeTxnRepo) GetByID(_ context.Context, id uuid.UUID) (*transaction.Transaction, error) {
	return nil, transaction.ErrTransactionNotFound{TransactionID: id}
}

func (f *fakeTxnRepo) ListRecentByAccount(_ context.Context, accountID uuid.UUID, limit int) ([]*transaction.Transaction, error) {
	txns := f.byAccount[accountID]
	if limit < len(txns) {
		txns = txns[:limit]
	}
	return txns, nil
}

func (f *fakeTxnRepo) WithTx(pgx.Tx) transaction.Repository { return f }

type fakeSnapshotRepo struct {
	snapshots []*risk.MetricSnapshot
}

func (f *fakeSnapshotRepo) Create(_ context.Context, s *risk.MetricSnapshot) error {
	f.snapshots = append(f.snapshots, s)
	return nil
}

func (f *fakeSnapshotRepo) ListByAccount(context.Context, uuid.UUID, int) ([]*risk.MetricSnapshot, error) {
	return f.snapshots, nil
}

func (f *fakeSnapshotRepo) WithTx(pgx.Tx) risk.SnapshotRepository { return f }

type fakeAnomalyRepo struct {
	events []*risk.AnomalyEvent
}

func (f *fakeAnomalyRepo) Create(_ context.Context, e *risk.AnomalyEvent) error {
	f.events = append(f.events, e)
	return nil
}

func (f *fakeAnomalyRepo) WithTx(pgx.Tx) risk.AnomalyRepository { return f }

type fakeAlertRepo struct {
	alerts []*risk.Alert
}

func (f *fakeAlertRepo) Create(_ context.Context, alert *risk.Alert) error {
	f.alerts = append(f.alerts, alert)
	return nil
}

func (f *fakeAlertRepo) ListRecent(_ context.Context, limit int) ([]*risk.Alert, error) {
	if limit > len(f.alerts) {
		limit = len(f.alerts)
	}
	return f.alerts[:limit], nil
}

func (f *fakeAlertRepo) Acknowledge(_ context.Context, id uuid.UUID, by uuid.UUID, at time.Time) error {
	for _, a := range f.alerts {
		if a.ID == id {
			a.AcknowledgedBy = &by
			a.ResolvedAt = &at
			return nil
		}
	}
	return risk.ErrAlertNotFound{AlertID: id}
}

func (f *fakeAlertRepo) WithTx(pgx.Tx) risk.AlertRepository { return f }

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

type noopPublisher struct{}

func (noopPublisher) Publish(context.Context, string, interface{}) error { return nil }
func (noopPublisher) Close() error                                       { return nil }

// identityHeaders stamps the trusted identity headers on a request
func identityHeaders(req *http.Request, id uuid.UUID, role shared.Role) {
	req.Header.Set(middleware.UserIDHeader, id.String())
	req.Header.Set(middleware.UserRoleHeader, string(role))
}

// newTestRouter builds a gin engine with the identity middleware, matching
// the production route setup
func newTestRouter(register func(r *gin.RouterGroup)) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	v1 := router.Group("/api/v1")
	v1.Use(middleware.Identity())
	register(v1)
	return router
}

func doRequest(router *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}
