// Package sqlite provides a SQLite-backed ledger store.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"github.com/99minutos/ledger-system/internal/core/domain"
	"github.com/99minutos/ledger-system/internal/core/ports"
	"github.com/99minutos/ledger-system/internal/infrastructure/db/sqlite/migrations"
)

// Store persists the ledger in SQLite. Money is stored as integer cents.
type Store struct {
	queries
	sqlDB *sql.DB
}

// Open opens the database at path and applies embedded migrations.
// Transactions start with BEGIN IMMEDIATE so writers serialise on the
// database lock instead of failing on upgrade.
func Open(ctx context.Context, path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := "file:" + filepath.Clean(path) +
		"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_txlock=immediate"

	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := applyMigrations(ctx, sqlDB, migrations.FS); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{queries: queries{db: sqlDB}, sqlDB: sqlDB}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.sqlDB.PingContext(ctx)
}

// WithinTx commits when fn returns nil and rolls back otherwise. database/sql
// also rolls back when ctx ends before Commit.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx ports.LedgerTx) error) error {
	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(ctx, &ledgerTx{queries: queries{db: tx}}); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("commit transaction: %w", ctxErr)
		}
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// CreateProfile inserts a profile row.
func (s *Store) CreateProfile(ctx context.Context, p *domain.Profile) error {
	created, updated := stamps(p.CreatedAt, p.UpdatedAt)
	_, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO profiles (id, first_name, last_name, profession, type, balance_cents, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.FirstName, p.LastName, p.Profession, string(p.Role), toCents(p.Balance), created, updated,
	)
	if err != nil {
		return fmt.Errorf("insert profile: %w", err)
	}
	return nil
}

// CreateContract inserts a contract row.
func (s *Store) CreateContract(ctx context.Context, c *domain.Contract) error {
	created, updated := stamps(c.CreatedAt, c.UpdatedAt)
	_, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO contracts (id, terms, client_id, contractor_id, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.Terms, c.ClientID, c.ContractorID, string(c.Status), created, updated,
	)
	if err != nil {
		return fmt.Errorf("insert contract: %w", err)
	}
	return nil
}

// CreateJob inserts a job row.
func (s *Store) CreateJob(ctx context.Context, j *domain.Job) error {
	created, _ := stamps(j.CreatedAt, j.CreatedAt)
	var paidAt sql.NullInt64
	if j.PaidAt != nil {
		paidAt = sql.NullInt64{Int64: toMillis(*j.PaidAt), Valid: true}
	}
	_, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO jobs (id, contract_id, description, price_cents, paid, paid_at, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		j.ID, j.ContractID, j.Description, toCents(j.Price), j.Paid, paidAt, created,
	)
	if err != nil {
		return fmt.Errorf("insert job: %w", err)
	}
	return nil
}

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// queries implements ports.LedgerReader on top of an execer.
type queries struct {
	db execer
}

const profileColumns = `id, first_name, last_name, profession, type, balance_cents, created_at, updated_at`

func (q queries) GetProfile(ctx context.Context, id string) (*domain.Profile, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+profileColumns+` FROM profiles WHERE id = ?`, id)
	p, err := scanProfile(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrProfileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return p, nil
}

func (q queries) GetContract(ctx context.Context, id string) (*domain.Contract, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT id, terms, client_id, contractor_id, status, created_at, updated_at FROM contracts WHERE id = ?`, id)
	c, err := scanContract(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrContractNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get contract: %w", err)
	}
	return c, nil
}

// GetJob joins the job with its contract and both parties in one query.
func (q queries) GetJob(ctx context.Context, id string) (*domain.JobDetail, error) {
	row := q.db.QueryRowContext(ctx, `
SELECT j.id, j.contract_id, j.description, j.price_cents, j.paid, j.paid_at, j.created_at,
       c.id, c.terms, c.client_id, c.contractor_id, c.status, c.created_at, c.updated_at,
       cl.id, cl.first_name, cl.last_name, cl.profession, cl.type, cl.balance_cents, cl.created_at, cl.updated_at,
       co.id, co.first_name, co.last_name, co.profession, co.type, co.balance_cents, co.created_at, co.updated_at
  FROM jobs j
  JOIN contracts c ON c.id = j.contract_id
  JOIN profiles cl ON cl.id = c.client_id
  JOIN profiles co ON co.id = c.contractor_id
 WHERE j.id = ?`, id)

	var (
		d                  domain.JobDetail
		jr                 jobRow
		cr                 contractRow
		client, contractor profileRow
	)
	err := row.Scan(append(append(append(jr.dest(), cr.dest()...), client.dest()...), contractor.dest()...)...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	d.Job = jr.toDomain()
	d.Contract = cr.toDomain()
	d.Client = client.toDomain()
	d.Contractor = contractor.toDomain()
	return &d, nil
}

func (q queries) ListContracts(ctx context.Context, f ports.ContractFilter) ([]*domain.Contract, error) {
	where, args := contractWhere("c", f)
	rows, err := q.db.QueryContext(ctx,
		`SELECT c.id, c.terms, c.client_id, c.contractor_id, c.status, c.created_at, c.updated_at
		   FROM contracts c`+where+` ORDER BY c.id`, args...)
	if err != nil {
		return nil, fmt.Errorf("list contracts: %w", err)
	}
	defer rows.Close()

	out := []*domain.Contract{}
	for rows.Next() {
		c, err := scanContract(rows)
		if err != nil {
			return nil, fmt.Errorf("scan contract: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (q queries) ListUnpaidJobs(ctx context.Context, f ports.ContractFilter) ([]*domain.Job, error) {
	where, args := unpaidWhere(f)
	rows, err := q.db.QueryContext(ctx,
		`SELECT j.id, j.contract_id, j.description, j.price_cents, j.paid, j.paid_at, j.created_at
		   FROM jobs j JOIN contracts c ON c.id = j.contract_id`+where+` ORDER BY j.created_at, j.id`, args...)
	if err != nil {
		return nil, fmt.Errorf("list unpaid jobs: %w", err)
	}
	defer rows.Close()

	out := []*domain.Job{}
	for rows.Next() {
		var jr jobRow
		if err := rows.Scan(jr.dest()...); err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		j := jr.toDomain()
		out = append(out, &j)
	}
	return out, rows.Err()
}

// SumUnpaidJobPrices sums integer cents, so the total is exact.
func (q queries) SumUnpaidJobPrices(ctx context.Context, f ports.ContractFilter) (decimal.Decimal, error) {
	where, args := unpaidWhere(f)
	var cents int64
	err := q.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(j.price_cents), 0) FROM jobs j JOIN contracts c ON c.id = j.contract_id`+where,
		args...,
	).Scan(&cents)
	if err != nil {
		return decimal.Zero, fmt.Errorf("sum unpaid jobs: %w", err)
	}
	return fromCents(cents), nil
}

// ledgerTx adds the conditional writes on top of a *sql.Tx.
type ledgerTx struct {
	queries
}

func (t *ledgerTx) DebitBalance(ctx context.Context, profileID string, amount, floor decimal.Decimal) error {
	cents := toCents(amount)
	res, err := t.db.ExecContext(ctx,
		`UPDATE profiles SET balance_cents = balance_cents - ?, updated_at = ?
		  WHERE id = ? AND balance_cents - ? >= ?`,
		cents, toMillis(time.Now()), profileID, cents, floorCents(floor),
	)
	if err != nil {
		return fmt.Errorf("debit: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("debit: %w", err)
	} else if n == 0 {
		if _, err := t.GetProfile(ctx, profileID); err != nil {
			return err
		}
		return domain.ErrBalanceConflict
	}
	return nil
}

func (t *ledgerTx) CreditBalance(ctx context.Context, profileID string, amount decimal.Decimal) error {
	res, err := t.db.ExecContext(ctx,
		`UPDATE profiles SET balance_cents = balance_cents + ?, updated_at = ? WHERE id = ?`,
		toCents(amount), toMillis(time.Now()), profileID,
	)
	if err != nil {
		return fmt.Errorf("credit: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("credit: %w", err)
	} else if n == 0 {
		return domain.ErrProfileNotFound
	}
	return nil
}

func (t *ledgerTx) MarkJobPaid(ctx context.Context, jobID string, paidAt time.Time) error {
	res, err := t.db.ExecContext(ctx,
		`UPDATE jobs SET paid = 1, paid_at = ? WHERE id = ? AND paid = 0`,
		toMillis(paidAt), jobID,
	)
	if err != nil {
		return fmt.Errorf("mark job paid: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("mark job paid: %w", err)
	} else if n == 0 {
		var paid bool
		err := t.db.QueryRowContext(ctx, `SELECT paid FROM jobs WHERE id = ?`, jobID).Scan(&paid)
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrJobNotFound
		}
		if err != nil {
			return fmt.Errorf("mark job paid: %w", err)
		}
		return domain.ErrJobAlreadyPaid
	}
	return nil
}

func contractWhere(alias string, f ports.ContractFilter) (string, []any) {
	var (
		clauses []string
		args    []any
	)
	if f.ClientID != "" {
		clauses = append(clauses, alias+".client_id = ?")
		args = append(args, f.ClientID)
	}
	if f.ContractorID != "" {
		clauses = append(clauses, alias+".contractor_id = ?")
		args = append(args, f.ContractorID)
	}
	if len(f.Statuses) > 0 {
		marks := make([]string, len(f.Statuses))
		for i, st := range f.Statuses {
			marks[i] = "?"
			args = append(args, string(st))
		}
		clauses = append(clauses, alias+".status IN ("+strings.Join(marks, ", ")+")")
	}
	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func unpaidWhere(f ports.ContractFilter) (string, []any) {
	where, args := contractWhere("c", f)
	if where == "" {
		return " WHERE j.paid = 0", args
	}
	return where + " AND j.paid = 0", args
}
