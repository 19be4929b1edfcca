package pg

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"

	"tradedesk.org/internal/ids"
	"tradedesk.org/internal/trade"
)

// TradeStore implements trade.Service on Postgres. Workflow transitions are
// compare-and-set: the update predicates on the expected current status, and
// zero affected rows means another request won the race.
type TradeStore struct {
	db *sql.DB
}

var _ trade.Service = (*TradeStore)(nil)

// Trades returns the trade store view.
func (s *Store) Trades() *TradeStore { return &TradeStore{db: s.db} }

const tradeColumns = `id, symbol, side, quantity, price, status,
	created_by, confirmed_by, approved_by, created_at, confirmed_at, approved_at, notes`

func scanTrade(row interface{ Scan(...any) error }) (trade.Trade, error) {
	var (
		t                       trade.Trade
		confirmedBy, approvedBy sql.NullString
		confirmedAt, approvedAt sql.NullTime
	)
	err := row.Scan(&t.ID, &t.Symbol, &t.Side, &t.Quantity, &t.Price, &t.Status,
		&t.CreatedBy, &confirmedBy, &approvedBy,
		&t.CreatedAt, &confirmedAt, &approvedAt, &t.Notes)
	if err != nil {
		return trade.Trade{}, err
	}
	t.ConfirmedBy = confirmedBy.String
	t.ApprovedBy = approvedBy.String
	if confirmedAt.Valid {
		t.ConfirmedAt = confirmedAt.Time
	}
	if approvedAt.Valid {
		t.ApprovedAt = approvedAt.Time
	}
	return t, nil
}

func (s *TradeStore) Create(ctx context.Context, t *trade.Trade) (trade.Trade, error) {
	if t == nil {
		return trade.Trade{}, trade.ErrInvalidSymbol
	}
	t.Symbol = strings.ToUpper(strings.TrimSpace(t.Symbol))
	if err := t.Validate(); err != nil {
		return trade.Trade{}, err
	}
	id := ids.New()
	row := s.db.QueryRowContext(ctx, `
		insert into trades (id, symbol, side, quantity, price, status, created_by, notes)
		values ($1, $2, $3, $4, $5, $6, $7, $8)
		returning `+tradeColumns,
		id, t.Symbol, t.Side, t.Quantity, t.Price, trade.StatusPending, t.CreatedBy, t.Notes)
	return scanTrade(row)
}

func (s *TradeStore) Get(ctx context.Context, id string) (trade.Trade, error) {
	row := s.db.QueryRowContext(ctx, `select `+tradeColumns+` from trades where id = $1`, id)
	t, err := scanTrade(row)
	if errors.Is(err, sql.ErrNoRows) {
		return trade.Trade{}, trade.ErrNotFound
	}
	return t, err
}

func (s *TradeStore) List(ctx context.Context, filter trade.Status, limit int) ([]trade.Trade, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	query := `select ` + tradeColumns + ` from trades`
	args := []any{}
	if filter != "" {
		query += ` where status = $1`
		args = append(args, filter)
	}
	query += ` order by created_at desc, id desc limit ` + strconv.Itoa(limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []trade.Trade
	for rows.Next() {
		t, err := scanTrade(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *TradeStore) Counts(ctx context.Context) (map[trade.Status]int, error) {
	rows, err := s.db.QueryContext(ctx, `select status, count(*) from trades group by status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[trade.Status]int, len(trade.Statuses))
	for _, st := range trade.Statuses {
		counts[st] = 0
	}
	for rows.Next() {
		var st trade.Status
		var n int
		if err := rows.Scan(&st, &n); err != nil {
			return nil, err
		}
		counts[st] = n
	}
	return counts, rows.Err()
}

// transition runs a conditional status update and reloads the trade. A zero
// row count distinguishes "lost the race" from "does not exist".
func (s *TradeStore) transition(ctx context.Context, id string, expected trade.Status, set string, args ...any) (trade.Trade, error) {
	all := append([]any{id, expected}, args...)
	res, err := s.db.ExecContext(ctx, `
		update trades set `+set+`
		where id = $1 and status = $2
	`, all...)
	if err != nil {
		return trade.Trade{}, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return trade.Trade{}, err
	}
	if affected == 0 {
		if _, err := s.Get(ctx, id); errors.Is(err, trade.ErrNotFound) {
			return trade.Trade{}, trade.ErrNotFound
		}
		return trade.Trade{}, trade.ErrStatusConflict
	}
	return s.Get(ctx, id)
}

func (s *TradeStore) Confirm(ctx context.Context, id, userID string) (trade.Trade, error) {
	return s.transition(ctx, id, trade.StatusPending,
		`status = $3, confirmed_by = $4, confirmed_at = now()`,
		trade.StatusConfirmed, userID)
}

func (s *TradeStore) Unconfirm(ctx context.Context, id string) (trade.Trade, error) {
	return s.transition(ctx, id, trade.StatusConfirmed,
		`status = $3, confirmed_by = null, confirmed_at = null`,
		trade.StatusPending)
}

func (s *TradeStore) Approve(ctx context.Context, id, userID string) (trade.Trade, error) {
	return s.transition(ctx, id, trade.StatusConfirmed,
		`status = $3, approved_by = $4, approved_at = now()`,
		trade.StatusApproved, userID)
}

func (s *TradeStore) Reject(ctx context.Context, id, userID string) (trade.Trade, error) {
	return s.transition(ctx, id, trade.StatusConfirmed,
		`status = $3, approved_by = $4, approved_at = now()`,
		trade.StatusRejected, userID)
}

func (s *TradeStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `delete from trades where id = $1`, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return trade.ErrNotFound
	}
	return nil
}
