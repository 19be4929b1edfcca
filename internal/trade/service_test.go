package trade

import (
	"context"
	"errors"
	"testing"
	"time"
)

func newTestService() *InMemory {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	tick := 0
	return NewInMemory(WithClock(func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}))
}

func mustCreate(t *testing.T, svc *InMemory, symbol string) Trade {
	t.Helper()
	created, err := svc.Create(context.Background(), &Trade{
		Symbol:    symbol,
		Side:      Buy,
		Quantity:  100,
		Price:     18950, // $189.50
		CreatedBy: "u-trader",
	})
	if err != nil {
		t.Fatalf("Create(%s): %v", symbol, err)
	}
	return created
}

func TestCreateDefaults(t *testing.T) {
	svc := newTestService()
	created, err := svc.Create(context.Background(), &Trade{
		Symbol:    " aapl ",
		Side:      Buy,
		Quantity:  10,
		Price:     100,
		CreatedBy: "u-trader",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.ID == "" {
		t.Fatalf("expected generated id")
	}
	if created.Symbol != "AAPL" {
		t.Fatalf("symbol not canonicalized: %s", created.Symbol)
	}
	if created.Status != StatusPending {
		t.Fatalf("new trade must be PENDING, got %s", created.Status)
	}
	if created.TotalValue() != 1000 {
		t.Fatalf("unexpected total value: %d", created.TotalValue())
	}
}

func TestCreateValidation(t *testing.T) {
	svc := newTestService()
	cases := []struct {
		name string
		in   Trade
		want error
	}{
		{"empty symbol", Trade{Side: Buy, Quantity: 1, Price: 1}, ErrInvalidSymbol},
		{"bad side", Trade{Symbol: "AAPL", Side: "HOLD", Quantity: 1, Price: 1}, ErrInvalidSide},
		{"zero quantity", Trade{Symbol: "AAPL", Side: Sell, Quantity: 0, Price: 1}, ErrInvalidQuantity},
		{"negative quantity", Trade{Symbol: "AAPL", Side: Sell, Quantity: -5, Price: 1}, ErrInvalidQuantity},
		{"zero price", Trade{Symbol: "AAPL", Side: Sell, Quantity: 1, Price: 0}, ErrInvalidPrice},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.Create(context.Background(), &tc.in); !errors.Is(err, tc.want) {
				t.Fatalf("Create = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestWorkflowHappyPath(t *testing.T) {
	svc := newTestService()
	created := mustCreate(t, svc, "MSFT")

	confirmed, err := svc.Confirm(context.Background(), created.ID, "u-confirm")
	if err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	if confirmed.Status != StatusConfirmed || confirmed.ConfirmedBy != "u-confirm" || confirmed.ConfirmedAt.IsZero() {
		t.Fatalf("confirm did not stamp trade: %+v", confirmed)
	}

	approved, err := svc.Approve(context.Background(), created.ID, "u-approve")
	if err != nil {
		t.Fatalf("Approve: %v", err)
	}
	if approved.Status != StatusApproved || approved.ApprovedBy != "u-approve" || approved.ApprovedAt.IsZero() {
		t.Fatalf("approve did not stamp trade: %+v", approved)
	}

	// APPROVED is terminal for every transition.
	if _, err := svc.Confirm(context.Background(), created.ID, "u-confirm"); !errors.Is(err, ErrStatusConflict) {
		t.Fatalf("confirm on approved = %v, want conflict", err)
	}
	if _, err := svc.Approve(context.Background(), created.ID, "u-approve"); !errors.Is(err, ErrStatusConflict) {
		t.Fatalf("approve on approved = %v, want conflict", err)
	}
	if _, err := svc.Reject(context.Background(), created.ID, "u-approve"); !errors.Is(err, ErrStatusConflict) {
		t.Fatalf("reject on approved = %v, want conflict", err)
	}
	if _, err := svc.Unconfirm(context.Background(), created.ID); !errors.Is(err, ErrStatusConflict) {
		t.Fatalf("unconfirm on approved = %v, want conflict", err)
	}
}

func TestUnconfirmClearsStamps(t *testing.T) {
	svc := newTestService()
	created := mustCreate(t, svc, "NVDA")

	if _, err := svc.Confirm(context.Background(), created.ID, "u-confirm"); err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	back, err := svc.Unconfirm(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("Unconfirm: %v", err)
	}
	if back.Status != StatusPending || back.ConfirmedBy != "" || !back.ConfirmedAt.IsZero() {
		t.Fatalf("unconfirm left stale stamps: %+v", back)
	}
}

func TestRejectIsTerminal(t *testing.T) {
	svc := newTestService()
	created := mustCreate(t, svc, "TSLA")

	if _, err := svc.Confirm(context.Background(), created.ID, "u-confirm"); err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	rejected, err := svc.Reject(context.Background(), created.ID, "u-approve")
	if err != nil {
		t.Fatalf("Reject: %v", err)
	}
	if rejected.Status != StatusRejected {
		t.Fatalf("unexpected status: %s", rejected.Status)
	}
	if _, err := svc.Unconfirm(context.Background(), created.ID); !errors.Is(err, ErrStatusConflict) {
		t.Fatalf("unconfirm on rejected = %v, want conflict", err)
	}
}

func TestConcurrentConfirmSingleWinner(t *testing.T) {
	svc := newTestService()
	created := mustCreate(t, svc, "AMZN")

	const attempts = 8
	errs := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		go func() {
			_, err := svc.Confirm(context.Background(), created.ID, "u-confirm")
			errs <- err
		}()
	}

	var wins, conflicts int
	for i := 0; i < attempts; i++ {
		switch err := <-errs; {
		case err == nil:
			wins++
		case errors.Is(err, ErrStatusConflict):
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if wins != 1 || conflicts != attempts-1 {
		t.Fatalf("expected exactly one winner, got wins=%d conflicts=%d", wins, conflicts)
	}
}

func TestListFilterAndCounts(t *testing.T) {
	svc := newTestService()
	a := mustCreate(t, svc, "AAPL")
	mustCreate(t, svc, "MSFT")
	c := mustCreate(t, svc, "GOOG")

	if _, err := svc.Confirm(context.Background(), a.ID, "u-confirm"); err != nil {
		t.Fatalf("Confirm: %v", err)
	}

	all, err := svc.List(context.Background(), "", 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 trades, got %d", len(all))
	}
	// Newest first.
	if all[0].ID != c.ID {
		t.Fatalf("expected newest trade first, got %s", all[0].Symbol)
	}

	pending, err := svc.List(context.Background(), StatusPending, 0)
	if err != nil {
		t.Fatalf("List pending: %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("expected 2 pending, got %d", len(pending))
	}

	counts, err := svc.Counts(context.Background())
	if err != nil {
		t.Fatalf("Counts: %v", err)
	}
	if counts[StatusPending] != 2 || counts[StatusConfirmed] != 1 || counts[StatusApproved] != 0 {
		t.Fatalf("unexpected counts: %v", counts)
	}
}

func TestDelete(t *testing.T) {
	svc := newTestService()
	created := mustCreate(t, svc, "IBM")

	if err := svc.Delete(context.Background(), created.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := svc.Get(context.Background(), created.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get after delete = %v, want not found", err)
	}
	if err := svc.Delete(context.Background(), created.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("double delete = %v, want not found", err)
	}
}

func TestParseStatus(t *testing.T) {
	if st, ok := ParseStatus(" pending "); !ok || st != StatusPending {
		t.Fatalf("ParseStatus(pending) = %v, %v", st, ok)
	}
	if _, ok := ParseStatus("LIMBO"); ok {
		t.Fatalf("unknown status should not parse")
	}
}
