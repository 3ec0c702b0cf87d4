package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"moneymanager/internal/core"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// DSN turns a database path into a modernc connection string with the pragmas
// every connection needs. Foreign keys give budget_items its cascade delete.
func DSN(dbPath string) string {
	if strings.Contains(dbPath, "?") {
		return dbPath
	}
	return dbPath + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
}

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", DSN(dbPath))
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// withTx runs fn in a transaction, committing only when fn succeeds.
func (r *SQLiteRepository) withTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	if errors.As(err, &se) {
		switch se.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return true
		case sqlite3.SQLITE_CONSTRAINT:
			return strings.Contains(se.Error(), "UNIQUE")
		}
	}
	return false
}

// FindPlan returns the plan owned by scope.
func (r *SQLiteRepository) FindPlan(ctx context.Context, scope string) (core.OverallPlan, error) {
	var p core.OverallPlan
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_scope, name, version FROM overall_plans WHERE user_scope = ?`, scope,
	).Scan(&p.ID, &p.UserScope, &p.Name, &p.Version)
	if errors.Is(err, sql.ErrNoRows) {
		return core.OverallPlan{}, fmt.Errorf("plan for %q: %w", scope, core.ErrNotFound)
	}
	if err != nil {
		return core.OverallPlan{}, fmt.Errorf("get plan: %w", err)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT name, default_budget_cents FROM plan_categories WHERE plan_id = ? ORDER BY position`, p.ID)
	if err != nil {
		return core.OverallPlan{}, fmt.Errorf("get plan categories: %w", err)
	}
	defer rows.Close()

	p.Categories = []core.PlanCategory{}
	for rows.Next() {
		var c core.PlanCategory
		if err := rows.Scan(&c.Name, &c.DefaultBudget.Cents); err != nil {
			return core.OverallPlan{}, fmt.Errorf("scan plan category: %w", err)
		}
		p.Categories = append(p.Categories, c)
	}
	if err := rows.Err(); err != nil {
		return core.OverallPlan{}, fmt.Errorf("iterate plan categories: %w", err)
	}
	return p, nil
}

// SavePlan inserts a plan with Version 0 or updates one whose Version matches
// the stored row. The returned plan carries the new version.
func (r *SQLiteRepository) SavePlan(ctx context.Context, p core.OverallPlan) (core.OverallPlan, error) {
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		if p.Version == 0 {
			_, err := tx.ExecContext(ctx,
				`INSERT INTO overall_plans (id, user_scope, name, version) VALUES (?, ?, ?, 1)`,
				p.ID, p.UserScope, p.Name)
			if isUniqueViolation(err) {
				return fmt.Errorf("plan for %q: %w", p.UserScope, core.ErrAlreadyExists)
			}
			if err != nil {
				return fmt.Errorf("insert plan: %w", err)
			}
		} else {
			res, err := tx.ExecContext(ctx,
				`UPDATE overall_plans SET name = ?, version = version + 1, updated_at = CURRENT_TIMESTAMP
				 WHERE id = ? AND version = ?`,
				p.Name, p.ID, p.Version)
			if err != nil {
				return fmt.Errorf("update plan: %w", err)
			}
			if err := checkVersioned(ctx, tx, res, "overall_plans", p.ID); err != nil {
				return fmt.Errorf("plan %s: %w", p.ID, err)
			}
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM plan_categories WHERE plan_id = ?`, p.ID); err != nil {
			return fmt.Errorf("clear plan categories: %w", err)
		}
		for i, c := range p.Categories {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO plan_categories (plan_id, position, name, default_budget_cents) VALUES (?, ?, ?, ?)`,
				p.ID, i, c.Name, c.DefaultBudget.Cents); err != nil {
				return fmt.Errorf("insert plan category %q: %w", c.Name, err)
			}
		}
		return nil
	})
	if err != nil {
		return core.OverallPlan{}, err
	}

	saved := p.Clone()
	saved.Version++
	slog.InfoContext(ctx, "Plan saved to SQLite",
		"id", saved.ID,
		"user_scope", saved.UserScope,
		"categories", len(saved.Categories),
		"version", saved.Version)
	return saved, nil
}

// checkVersioned turns a zero-row versioned update into ErrConflict or ErrNotFound.
func checkVersioned(ctx context.Context, tx *sql.Tx, res sql.Result, table, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n > 0 {
		return nil
	}
	var exists int
	err = tx.QueryRowContext(ctx, `SELECT 1 FROM `+table+` WHERE id = ?`, id).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return core.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("check %s: %w", table, err)
	}
	return core.ErrConflict
}

// FindMonthlyBudget looks a month up by its natural key.
func (r *SQLiteRepository) FindMonthlyBudget(ctx context.Context, year, month int, scope string) (core.MonthlyBudget, error) {
	var id string
	err := r.db.QueryRowContext(ctx,
		`SELECT id FROM monthly_budgets WHERE year = ? AND month = ? AND user_scope = ?`,
		year, month, scope).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.MonthlyBudget{}, fmt.Errorf("monthly budget %04d-%02d for %q: %w", year, month, scope, core.ErrNotFound)
	}
	if err != nil {
		return core.MonthlyBudget{}, fmt.Errorf("find monthly budget: %w", err)
	}
	return r.GetMonthlyBudget(ctx, id)
}

// GetMonthlyBudget loads the whole aggregate (header, categories and items) from
// one transaction so a concurrent save is never seen half applied.
func (r *SQLiteRepository) GetMonthlyBudget(ctx context.Context, id string) (core.MonthlyBudget, error) {
	var b core.MonthlyBudget
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx,
			`SELECT id, year, month, user_scope, version FROM monthly_budgets WHERE id = ?`, id,
		).Scan(&b.ID, &b.Year, &b.Month, &b.UserScope, &b.Version)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("monthly budget %s: %w", id, core.ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("get monthly budget: %w", err)
		}
		if b.Categories, err = monthlyCategories(ctx, tx, id); err != nil {
			return err
		}
		b.Items, err = budgetItems(ctx, tx, id)
		return err
	})
	if err != nil {
		return core.MonthlyBudget{}, err
	}
	return b, nil
}

func monthlyCategories(ctx context.Context, tx *sql.Tx, budgetID string) ([]core.MonthlyCategory, error) {
	rows, err := tx.QueryContext(ctx,
		`SELECT name, budget_cents FROM monthly_categories WHERE budget_id = ? ORDER BY position`, budgetID)
	if err != nil {
		return nil, fmt.Errorf("get monthly categories: %w", err)
	}
	defer rows.Close()

	cats := []core.MonthlyCategory{}
	for rows.Next() {
		var c core.MonthlyCategory
		if err := rows.Scan(&c.Name, &c.Budget.Cents); err != nil {
			return nil, fmt.Errorf("scan monthly category: %w", err)
		}
		cats = append(cats, c)
	}
	return cats, rows.Err()
}

func budgetItems(ctx context.Context, tx *sql.Tx, budgetID string) ([]core.BudgetItem, error) {
	rows, err := tx.QueryContext(ctx,
		`SELECT id, category_name, name, amount_cents, date, note
		 FROM budget_items WHERE budget_id = ? ORDER BY position`, budgetID)
	if err != nil {
		return nil, fmt.Errorf("get budget items: %w", err)
	}
	defer rows.Close()

	items := []core.BudgetItem{}
	for rows.Next() {
		var (
			it   core.BudgetItem
			date string
			note sql.NullString
		)
		if err := rows.Scan(&it.ID, &it.CategoryName, &it.Name, &it.Amount.Cents, &date, &note); err != nil {
			return nil, fmt.Errorf("scan budget item: %w", err)
		}
		if it.Date, err = core.ParseDate(date); err != nil {
			return nil, fmt.Errorf("budget item %s date %q: %w", it.ID, date, err)
		}
		if note.Valid {
			n := note.String
			it.Note = &n
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// CreateMonthlyBudget inserts a freshly materialized month. A month that already
// exists for the same key yields ErrAlreadyExists.
func (r *SQLiteRepository) CreateMonthlyBudget(ctx context.Context, b core.MonthlyBudget) (core.MonthlyBudget, error) {
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO monthly_budgets (id, year, month, user_scope, version) VALUES (?, ?, ?, ?, 1)`,
			b.ID, b.Year, b.Month, b.UserScope)
		if isUniqueViolation(err) {
			return fmt.Errorf("monthly budget %04d-%02d for %q: %w", b.Year, b.Month, b.UserScope, core.ErrAlreadyExists)
		}
		if err != nil {
			return fmt.Errorf("insert monthly budget: %w", err)
		}
		return writeMonthChildren(ctx, tx, b)
	})
	if err != nil {
		return core.MonthlyBudget{}, err
	}

	created := b.Clone()
	created.Version = 1
	slog.InfoContext(ctx, "Monthly budget created in SQLite",
		"id", created.ID,
		"year", created.Year,
		"month", created.Month,
		"user_scope", created.UserScope)
	return created, nil
}

// SaveMonthlyBudget rewrites categories and items of b when b.Version matches.
func (r *SQLiteRepository) SaveMonthlyBudget(ctx context.Context, b core.MonthlyBudget) (core.MonthlyBudget, error) {
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE monthly_budgets SET version = version + 1, updated_at = CURRENT_TIMESTAMP
			 WHERE id = ? AND version = ?`, b.ID, b.Version)
		if err != nil {
			return fmt.Errorf("update monthly budget: %w", err)
		}
		if err := checkVersioned(ctx, tx, res, "monthly_budgets", b.ID); err != nil {
			return fmt.Errorf("monthly budget %s: %w", b.ID, err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM monthly_categories WHERE budget_id = ?`, b.ID); err != nil {
			return fmt.Errorf("clear monthly categories: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM budget_items WHERE budget_id = ?`, b.ID); err != nil {
			return fmt.Errorf("clear budget items: %w", err)
		}
		return writeMonthChildren(ctx, tx, b)
	})
	if err != nil {
		return core.MonthlyBudget{}, err
	}

	saved := b.Clone()
	saved.Version++
	return saved, nil
}

func writeMonthChildren(ctx context.Context, tx *sql.Tx, b core.MonthlyBudget) error {
	for i, c := range b.Categories {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO monthly_categories (budget_id, position, name, budget_cents) VALUES (?, ?, ?, ?)`,
			b.ID, i, c.Name, c.Budget.Cents); err != nil {
			return fmt.Errorf("insert monthly category %q: %w", c.Name, err)
		}
	}
	for i, it := range b.Items {
		var note sql.NullString
		if it.Note != nil {
			note = sql.NullString{String: *it.Note, Valid: true}
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO budget_items (budget_id, id, position, category_name, name, amount_cents, date, note)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			b.ID, it.ID, i, it.CategoryName, it.Name, it.Amount.Cents, it.Date.String(), note); err != nil {
			return fmt.Errorf("insert budget item %s: %w", it.ID, err)
		}
	}
	return nil
}

// DeleteMonthlyBudget removes a month; its categories and items go with it.
func (r *SQLiteRepository) DeleteMonthlyBudget(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM monthly_budgets WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete monthly budget: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("monthly budget %s: %w", id, core.ErrNotFound)
	}
	return nil
}

const investmentColumns = `id, name, ticker, type, value_cents, initial_investment_cents, return_percentage`

func scanInvestment(row interface{ Scan(...any) error }) (core.Investment, error) {
	var in core.Investment
	var typ string
	err := row.Scan(&in.ID, &in.Name, &in.Ticker, &typ, &in.Value.Cents, &in.InitialInvestment.Cents, &in.ReturnPercentage)
	in.Type = core.InvestmentType(typ)
	return in, err
}

// ListInvestments returns all holdings ordered by name.
func (r *SQLiteRepository) ListInvestments(ctx context.Context) ([]core.Investment, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+investmentColumns+` FROM investments ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("list investments: %w", err)
	}
	defer rows.Close()

	out := []core.Investment{}
	for rows.Next() {
		in, err := scanInvestment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan investment: %w", err)
		}
		out = append(out, in)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) GetInvestment(ctx context.Context, id string) (core.Investment, error) {
	in, err := scanInvestment(r.db.QueryRowContext(ctx,
		`SELECT `+investmentColumns+` FROM investments WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return core.Investment{}, fmt.Errorf("investment %s: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Investment{}, fmt.Errorf("get investment: %w", err)
	}
	return in, nil
}

func (r *SQLiteRepository) CreateInvestment(ctx context.Context, in core.Investment) (core.Investment, error) {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO investments (`+investmentColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		in.ID, in.Name, in.Ticker, string(in.Type), in.Value.Cents, in.InitialInvestment.Cents, in.ReturnPercentage)
	if isUniqueViolation(err) {
		return core.Investment{}, fmt.Errorf("investment %s: %w", in.ID, core.ErrAlreadyExists)
	}
	if err != nil {
		return core.Investment{}, fmt.Errorf("insert investment: %w", err)
	}
	return in, nil
}

func (r *SQLiteRepository) UpdateInvestment(ctx context.Context, in core.Investment) (core.Investment, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE investments SET name = ?, ticker = ?, type = ?, value_cents = ?, initial_investment_cents = ?,
		 return_percentage = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		in.Name, in.Ticker, string(in.Type), in.Value.Cents, in.InitialInvestment.Cents, in.ReturnPercentage, in.ID)
	if err != nil {
		return core.Investment{}, fmt.Errorf("update investment: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.Investment{}, fmt.Errorf("investment %s: %w", in.ID, core.ErrNotFound)
	}
	return in, nil
}

func (r *SQLiteRepository) DeleteInvestment(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM investments WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete investment: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("investment %s: %w", id, core.ErrNotFound)
	}
	return nil
}

// RecordEvent stores ev once; redelivered events with a known id are ignored.
func (r *SQLiteRepository) RecordEvent(ctx context.Context, ev core.BudgetEvent) error {
	var amount sql.NullInt64
	if ev.Amount != nil {
		amount = sql.NullInt64{Int64: ev.Amount.Cents, Valid: true}
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO budget_events
		 (event_id, type, user_scope, plan_id, budget_id, year, month, item_id, amount_cents, version, occurred_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ev.ID, string(ev.Type), ev.UserScope,
		nullString(ev.PlanID), nullString(ev.BudgetID),
		nullInt(ev.Year), nullInt(ev.Month),
		nullString(ev.ItemID), amount, ev.Version,
		ev.OccurredAt.UTC().Format(eventTimeLayout))
	if err != nil {
		return fmt.Errorf("record event %s: %w", ev.ID, err)
	}
	return nil
}

// ListEvents returns the most recent events of a monthly budget, newest first.
func (r *SQLiteRepository) ListEvents(ctx context.Context, budgetID string, limit int) ([]core.BudgetEvent, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT event_id, type, user_scope, plan_id, budget_id, year, month, item_id, amount_cents, version, occurred_at
		 FROM budget_events WHERE budget_id = ? ORDER BY occurred_at DESC, seq DESC LIMIT ?`,
		budgetID, limit)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	out := []core.BudgetEvent{}
	for rows.Next() {
		var (
			ev                       core.BudgetEvent
			typ, occurred            string
			planID, budget, itemID   sql.NullString
			year, month, amountCents sql.NullInt64
		)
		if err := rows.Scan(&ev.ID, &typ, &ev.UserScope, &planID, &budget, &year, &month,
			&itemID, &amountCents, &ev.Version, &occurred); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		ev.Type = core.EventType(typ)
		ev.PlanID = planID.String
		ev.BudgetID = budget.String
		ev.ItemID = itemID.String
		ev.Year = int(year.Int64)
		ev.Month = int(month.Int64)
		if amountCents.Valid {
			ev.Amount = &core.Money{Cents: amountCents.Int64}
		}
		if ev.OccurredAt, err = time.Parse(eventTimeLayout, occurred); err != nil {
			return nil, fmt.Errorf("event %s occurred_at %q: %w", ev.ID, occurred, err)
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

// eventTimeLayout is fixed width so occurred_at sorts as text.
const eventTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullInt(v int) sql.NullInt64 {
	return sql.NullInt64{Int64: int64(v), Valid: v != 0}
}
