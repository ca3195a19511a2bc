package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"

	"github.com/Dhruvmer/assemblyParts/internal/core/domain"
	"github.com/Dhruvmer/assemblyParts/internal/port"
)

// MySQL error numbers this adapter maps onto the domain taxonomy.
const (
	mysqlErrDuplicateEntry  = 1062
	mysqlErrLockWaitTimeout = 1205
	mysqlErrDeadlock        = 1213
)

// MySQLAdapter persists parts in the parts / part_constituents tables
// (schema.sql). Stock transactions ride on database transactions; every
// quantity decrement is a conditional UPDATE guarded against going
// negative, so concurrent writers fail the transaction instead of
// corrupting stock.
type MySQLAdapter struct {
	db *sql.DB
}

func NewMySQLAdapter(db *sql.DB) *MySQLAdapter {
	return &MySQLAdapter{db: db}
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (a *MySQLAdapter) Get(ctx context.Context, id string) (*domain.Part, error) {
	return getPart(ctx, a.db, id)
}

func (a *MySQLAdapter) Exists(ctx context.Context, id string) (bool, error) {
	var one int
	err := a.db.QueryRowContext(ctx,
		`SELECT 1 FROM parts WHERE part_id = ?`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check part %s: %w", id, err)
	}
	return true, nil
}

func (a *MySQLAdapter) List(ctx context.Context) ([]domain.Part, error) {
	rows, err := a.db.QueryContext(ctx, `
		SELECT part_id, name, kind, quantity, created_at, updated_at
		FROM parts ORDER BY part_id`)
	if err != nil {
		return nil, fmt.Errorf("list parts: %w", err)
	}
	defer rows.Close()

	var parts []domain.Part
	for rows.Next() {
		var p domain.Part
		if err := rows.Scan(&p.ID, &p.Name, &p.Kind, &p.Quantity, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan part: %w", err)
		}
		parts = append(parts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list parts: %w", err)
	}

	for i := range parts {
		if parts[i].Kind != domain.PartKindAssembled {
			continue
		}
		cs, err := getConstituents(ctx, a.db, parts[i].ID)
		if err != nil {
			return nil, err
		}
		parts[i].Constituents = cs
	}
	return parts, nil
}

func (a *MySQLAdapter) Create(ctx context.Context, part domain.Part) error {
	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO parts (part_id, name, kind, quantity, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		part.ID, part.Name, part.Kind, part.Quantity, part.CreatedAt, part.UpdatedAt,
	)
	if err != nil {
		if isMySQLErr(err, mysqlErrDuplicateEntry) {
			return fmt.Errorf("%w: %s", domain.ErrPartExists, part.ID)
		}
		return fmt.Errorf("insert part %s: %w", part.ID, err)
	}

	for i, c := range part.Constituents {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO part_constituents (parent_id, position, child_id, quantity)
			VALUES (?, ?, ?, ?)`,
			part.ID, i, c.PartID, c.Quantity,
		)
		if err != nil {
			return fmt.Errorf("insert constituent %s of %s: %w", c.PartID, part.ID, err)
		}
	}

	return tx.Commit()
}

func (a *MySQLAdapter) SetQuantity(ctx context.Context, id string, quantity int64) error {
	result, err := a.db.ExecContext(ctx, `
		UPDATE parts SET quantity = ?, updated_at = NOW()
		WHERE part_id = ?`, quantity, id)
	if err != nil {
		return fmt.Errorf("set quantity of %s: %w", id, err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return &domain.PartNotFoundError{PartID: id}
	}
	return nil
}

func (a *MySQLAdapter) Delete(ctx context.Context, id string) error {
	result, err := a.db.ExecContext(ctx,
		`DELETE FROM parts WHERE part_id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete part %s: %w", id, err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return &domain.PartNotFoundError{PartID: id}
	}
	return nil
}

func (a *MySQLAdapter) CountByName(ctx context.Context, name string) (int64, error) {
	var n int64
	err := a.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM parts WHERE LOWER(name) = LOWER(?)`, name).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count parts named %q: %w", name, err)
	}
	return n, nil
}

func (a *MySQLAdapter) Transactionally(ctx context.Context, fn func(tx port.PartTx) error) error {
	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&mysqlTx{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		if isMySQLErr(err, mysqlErrDeadlock) || isMySQLErr(err, mysqlErrLockWaitTimeout) {
			return fmt.Errorf("%w: %v", domain.ErrStockConflict, err)
		}
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

type mysqlTx struct {
	tx *sql.Tx
}

func (t *mysqlTx) Get(ctx context.Context, id string) (*domain.Part, error) {
	return getPart(ctx, t.tx, id)
}

// ApplyDelta adjusts quantity with a compare-and-swap guard: the UPDATE
// matches only while the resulting quantity stays non-negative, so a row
// count of zero on an existing part means a concurrent writer consumed
// the stock this transaction validated against.
func (t *mysqlTx) ApplyDelta(ctx context.Context, id string, delta int64) error {
	result, err := t.tx.ExecContext(ctx, `
		UPDATE parts
		SET quantity = quantity + ?, updated_at = NOW()
		WHERE part_id = ? AND quantity + ? >= 0`,
		delta, id, delta,
	)
	if err != nil {
		if isMySQLErr(err, mysqlErrDeadlock) || isMySQLErr(err, mysqlErrLockWaitTimeout) {
			return fmt.Errorf("%w: %v", domain.ErrStockConflict, err)
		}
		return fmt.Errorf("apply delta to %s: %w", id, err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		var one int
		err := t.tx.QueryRowContext(ctx,
			`SELECT 1 FROM parts WHERE part_id = ?`, id).Scan(&one)
		if errors.Is(err, sql.ErrNoRows) {
			return &domain.PartNotFoundError{PartID: id}
		}
		if err != nil {
			return fmt.Errorf("apply delta to %s: %w", id, err)
		}
		return fmt.Errorf("%w: part %s", domain.ErrStockConflict, id)
	}
	return nil
}

func getPart(ctx context.Context, q querier, id string) (*domain.Part, error) {
	var p domain.Part
	err := q.QueryRowContext(ctx, `
		SELECT part_id, name, kind, quantity, created_at, updated_at
		FROM parts WHERE part_id = ?`, id,
	).Scan(&p.ID, &p.Name, &p.Kind, &p.Quantity, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query part %s: %w", id, err)
	}

	if p.Kind == domain.PartKindAssembled {
		cs, err := getConstituents(ctx, q, id)
		if err != nil {
			return nil, err
		}
		p.Constituents = cs
	}
	return &p, nil
}

func getConstituents(ctx context.Context, q querier, parentID string) ([]domain.Constituent, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT child_id, quantity
		FROM part_constituents
		WHERE parent_id = ? ORDER BY position`, parentID)
	if err != nil {
		return nil, fmt.Errorf("query constituents of %s: %w", parentID, err)
	}
	defer rows.Close()

	var cs []domain.Constituent
	for rows.Next() {
		var c domain.Constituent
		if err := rows.Scan(&c.PartID, &c.Quantity); err != nil {
			return nil, fmt.Errorf("scan constituent of %s: %w", parentID, err)
		}
		cs = append(cs, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query constituents of %s: %w", parentID, err)
	}
	return cs, nil
}

func isMySQLErr(err error, number uint16) bool {
	var myErr *mysql.MySQLError
	return errors.As(err, &myErr) && myErr.Number == number
}
