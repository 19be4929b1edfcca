package pg

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"tradedesk.org/internal/identity"
	"tradedesk.org/internal/trade"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewWithDB(db), mock
}

func TestUserStoreCreateAndFind(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now().UTC()

	mock.ExpectQuery("insert into users").
		WithArgs(sqlmock.AnyArg(), "alice", "alice@example.com", true, false, false, []byte(`["trader","confirms"]`)).
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))

	u := &identity.User{
		Username: "alice",
		Email:    "alice@example.com",
		Active:   true,
		RoleList: []string{"trader", "confirms"},
	}
	if err := store.Users().Create(context.Background(), u); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if u.ID == "" {
		t.Fatalf("expected generated id")
	}

	mock.ExpectQuery("select id, username, email, active, staff, superuser, roles, created_at, updated_at").
		WithArgs("alice").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "username", "email", "active", "staff", "superuser", "roles", "created_at", "updated_at",
		}).AddRow(u.ID, "alice", "alice@example.com", true, false, false, []byte(`["trader","confirms"]`), now, now))

	found, err := store.Users().FindByUsername(context.Background(), "alice")
	if err != nil {
		t.Fatalf("FindByUsername: %v", err)
	}
	if len(found.RoleList) != 2 || found.RoleList[0] != "trader" {
		t.Fatalf("roles not decoded: %v", found.RoleList)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUserStoreFindMissing(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("select id, username").
		WithArgs("ghost").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	if _, err := store.Users().FindByUsername(context.Background(), "ghost"); !errors.Is(err, identity.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func tradeRows(id string, status trade.Status, created time.Time) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "symbol", "side", "quantity", "price", "status",
		"created_by", "confirmed_by", "approved_by", "created_at", "confirmed_at", "approved_at", "notes",
	}).AddRow(id, "AAPL", "BUY", int64(100), int64(18950), string(status),
		"u-trader", nil, nil, created, nil, nil, "")
}

func TestTradeStoreConfirmWinsRace(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now().UTC()

	mock.ExpectExec("update trades set status").
		WithArgs("t-1", string(trade.StatusPending), string(trade.StatusConfirmed), "u-confirm").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("select id, symbol, side").
		WithArgs("t-1").
		WillReturnRows(tradeRows("t-1", trade.StatusConfirmed, now))

	got, err := store.Trades().Confirm(context.Background(), "t-1", "u-confirm")
	if err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	if got.Status != trade.StatusConfirmed {
		t.Fatalf("unexpected status: %s", got.Status)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestTradeStoreConfirmLosesRace(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now().UTC()

	// Zero rows updated: the trade still exists but is no longer PENDING.
	mock.ExpectExec("update trades set status").
		WithArgs("t-1", string(trade.StatusPending), string(trade.StatusConfirmed), "u-confirm").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("select id, symbol, side").
		WithArgs("t-1").
		WillReturnRows(tradeRows("t-1", trade.StatusApproved, now))

	if _, err := store.Trades().Confirm(context.Background(), "t-1", "u-confirm"); !errors.Is(err, trade.ErrStatusConflict) {
		t.Fatalf("expected ErrStatusConflict, got %v", err)
	}
}

func TestTradeStoreTransitionMissingTrade(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("update trades set status").
		WithArgs("t-404", string(trade.StatusConfirmed), string(trade.StatusApproved), "u-approve").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("select id, symbol, side").
		WithArgs("t-404").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	if _, err := store.Trades().Approve(context.Background(), "t-404", "u-approve"); !errors.Is(err, trade.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestTradeStoreCounts(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("select status, count").
		WillReturnRows(sqlmock.NewRows([]string{"status", "count"}).
			AddRow("PENDING", 3).
			AddRow("APPROVED", 1))

	counts, err := store.Trades().Counts(context.Background())
	if err != nil {
		t.Fatalf("Counts: %v", err)
	}
	if counts[trade.StatusPending] != 3 || counts[trade.StatusApproved] != 1 {
		t.Fatalf("unexpected counts: %v", counts)
	}
	// Absent statuses are reported as zero, not missing.
	if n, ok := counts[trade.StatusConfirmed]; !ok || n != 0 {
		t.Fatalf("expected explicit zero for CONFIRMED, got %v", counts)
	}
}

func TestTradeStoreDeleteMissing(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("delete from trades").
		WithArgs("t-404").
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := store.Trades().Delete(context.Background(), "t-404"); !errors.Is(err, trade.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
