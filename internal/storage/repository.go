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

	"github.com/Keratosis/Budget-tracker-application/internal/core"
	"github.com/Keratosis/Budget-tracker-application/internal/log"

	_ "modernc.org/sqlite"
)

// Repository is the single local store for users, transactions, budgets
// and savings goals.
type Repository struct {
	db *sql.DB
}

func NewRepository(dbPath string) (*Repository, error) {
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	// Pragmas go through the DSN so every pooled connection gets them.
	db, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(10000)")
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

	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// mapConstraintErr translates sqlite constraint violations into the
// typed errors callers can test with errors.Is.
func mapConstraintErr(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	if strings.Contains(msg, "UNIQUE constraint failed: users.username") ||
		strings.Contains(msg, "UNIQUE constraint failed: users.email") {
		return fmt.Errorf("%w: %v", core.ErrDuplicateUser, err)
	}
	if strings.Contains(msg, "FOREIGN KEY constraint failed") {
		return fmt.Errorf("%w: %v", core.ErrNotFound, err)
	}
	return err
}

// --- users ---

func (r *Repository) CreateUser(ctx context.Context, username, email, passwordHash string) (core.User, error) {
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO users (username, email, password_hash) VALUES (?, ?, ?)",
		username, email, passwordHash)
	if err != nil {
		return core.User{}, fmt.Errorf("create user: %w", mapConstraintErr(err))
	}

	id, err := res.LastInsertId()
	if err != nil {
		return core.User{}, fmt.Errorf("create user id: %w", err)
	}

	slog.InfoContext(ctx, "User created", log.FieldUserID, id, log.FieldUsername, username)
	return r.UserByID(ctx, id)
}

func (r *Repository) UserByID(ctx context.Context, id int64) (core.User, error) {
	return r.scanUser(r.db.QueryRowContext(ctx,
		"SELECT id, username, email, password_hash, created_at FROM users WHERE id = ?", id))
}

func (r *Repository) UserByUsername(ctx context.Context, username string) (core.User, error) {
	return r.scanUser(r.db.QueryRowContext(ctx,
		"SELECT id, username, email, password_hash, created_at FROM users WHERE username = ?", username))
}

func (r *Repository) UserByEmail(ctx context.Context, email string) (core.User, error) {
	return r.scanUser(r.db.QueryRowContext(ctx,
		"SELECT id, username, email, password_hash, created_at FROM users WHERE email = ?", email))
}

func (r *Repository) scanUser(row *sql.Row) (core.User, error) {
	var u core.User
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return core.User{}, core.ErrUserNotFound
	}
	if err != nil {
		return core.User{}, fmt.Errorf("scan user: %w", err)
	}
	return u, nil
}

// --- transactions ---

func (r *Repository) CreateTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO transactions (user_id, type, category, amount_cents, date) VALUES (?, ?, ?, ?, ?)",
		tx.UserID, string(tx.Type), tx.Category, tx.Amount.Cents, tx.Date.String())
	if err != nil {
		return core.Transaction{}, fmt.Errorf("create transaction: %w", mapConstraintErr(err))
	}

	id, err := res.LastInsertId()
	if err != nil {
		return core.Transaction{}, fmt.Errorf("create transaction id: %w", err)
	}
	tx.ID = id

	slog.InfoContext(ctx, "Transaction saved",
		log.FieldTxID, tx.ID,
		log.FieldUserID, tx.UserID,
		log.FieldTxType, string(tx.Type),
		log.FieldCategory, tx.Category,
		log.FieldAmountCents, tx.Amount.Cents)

	return tx, nil
}

func (r *Repository) TransactionByID(ctx context.Context, id int64) (core.Transaction, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT id, user_id, type, category, amount_cents, date FROM transactions WHERE id = ?", id)
	return scanTransaction(row.Scan)
}

// TransactionsByUser returns the user's transactions in insertion order.
func (r *Repository) TransactionsByUser(ctx context.Context, userID int64) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, user_id, type, category, amount_cents, date FROM transactions WHERE user_id = ? ORDER BY id",
		userID)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	txs := []core.Transaction{}
	for rows.Next() {
		tx, err := scanTransaction(rows.Scan)
		if err != nil {
			return nil, err
		}
		txs = append(txs, tx)
	}
	return txs, rows.Err()
}

func scanTransaction(scan func(dest ...any) error) (core.Transaction, error) {
	var (
		tx      core.Transaction
		typ     string
		dateStr string
	)
	err := scan(&tx.ID, &tx.UserID, &typ, &tx.Category, &tx.Amount.Cents, &dateStr)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, core.ErrNotFound
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("scan transaction: %w", err)
	}

	tx.Type = core.TransactionType(typ)
	t, err := time.Parse(core.DateLayout, dateStr)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("parse stored date %q: %w", dateStr, err)
	}
	tx.Date = core.Date{Time: t}
	return tx, nil
}

// DeleteTransaction removes a transaction owned by userID. A foreign or
// missing id reports core.ErrNotFound and changes nothing.
func (r *Repository) DeleteTransaction(ctx context.Context, userID, id int64) error {
	res, err := r.db.ExecContext(ctx,
		"DELETE FROM transactions WHERE id = ? AND user_id = ?", id, userID)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete transaction rows: %w", err)
	}
	if n == 0 {
		return core.ErrNotFound
	}

	slog.InfoContext(ctx, "Transaction deleted", log.FieldTxID, id, log.FieldUserID, userID)
	return nil
}

// Balance computes income minus expenses for one user. No rows means zero.
func (r *Repository) Balance(ctx context.Context, userID int64) (core.Money, error) {
	var cents int64
	err := r.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(CASE WHEN type = 'income' THEN amount_cents ELSE -amount_cents END), 0)
		FROM transactions WHERE user_id = ?`, userID).Scan(&cents)
	if err != nil {
		return core.Money{}, fmt.Errorf("compute balance: %w", err)
	}
	return core.Money{Cents: cents}, nil
}

// Totals returns the income and expense sums separately.
func (r *Repository) Totals(ctx context.Context, userID int64) (income, expenses core.Money, err error) {
	err = r.db.QueryRowContext(ctx, `
		SELECT
			COALESCE(SUM(CASE WHEN type = 'income' THEN amount_cents ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN type = 'expense' THEN amount_cents ELSE 0 END), 0)
		FROM transactions WHERE user_id = ?`, userID).Scan(&income.Cents, &expenses.Cents)
	if err != nil {
		return core.Money{}, core.Money{}, fmt.Errorf("compute totals: %w", err)
	}
	return income, expenses, nil
}

// CategoryTotals sums expenses per category, largest first.
func (r *Repository) CategoryTotals(ctx context.Context, userID int64) ([]core.CategoryAmount, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT category, SUM(amount_cents) AS total
		FROM transactions WHERE user_id = ? AND type = 'expense'
		GROUP BY category ORDER BY total DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("category totals: %w", err)
	}
	defer rows.Close()

	var totals []core.CategoryAmount
	for rows.Next() {
		var ca core.CategoryAmount
		if err := rows.Scan(&ca.Category, &ca.Amount.Cents); err != nil {
			return nil, fmt.Errorf("scan category total: %w", err)
		}
		totals = append(totals, ca)
	}
	return totals, rows.Err()
}

// TransactionCount returns the total number of transaction rows.
func (r *Repository) TransactionCount(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM transactions").Scan(&n)
	return n, err
}

// --- budgets ---

// UpsertBudget inserts a budget or, when one exists for (user, category),
// replaces its amount.
func (r *Repository) UpsertBudget(ctx context.Context, b core.Budget) (core.Budget, error) {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO budgets (user_id, category, amount_cents) VALUES (?, ?, ?)
		ON CONFLICT (user_id, category) DO UPDATE SET amount_cents = excluded.amount_cents`,
		b.UserID, b.Category, b.Amount.Cents)
	if err != nil {
		return core.Budget{}, fmt.Errorf("upsert budget: %w", mapConstraintErr(err))
	}

	row := r.db.QueryRowContext(ctx,
		"SELECT id, user_id, category, amount_cents FROM budgets WHERE user_id = ? AND category = ?",
		b.UserID, b.Category)
	var out core.Budget
	if err := row.Scan(&out.ID, &out.UserID, &out.Category, &out.Amount.Cents); err != nil {
		return core.Budget{}, fmt.Errorf("read back budget: %w", err)
	}

	slog.InfoContext(ctx, "Budget set",
		log.FieldUserID, out.UserID, log.FieldCategory, out.Category, log.FieldAmountCents, out.Amount.Cents)
	return out, nil
}

func (r *Repository) BudgetsByUser(ctx context.Context, userID int64) ([]core.Budget, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, user_id, category, amount_cents FROM budgets WHERE user_id = ? ORDER BY category", userID)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	defer rows.Close()

	budgets := []core.Budget{}
	for rows.Next() {
		var b core.Budget
		if err := rows.Scan(&b.ID, &b.UserID, &b.Category, &b.Amount.Cents); err != nil {
			return nil, fmt.Errorf("scan budget: %w", err)
		}
		budgets = append(budgets, b)
	}
	return budgets, rows.Err()
}

// --- savings goals ---

func (r *Repository) UpsertSavingsGoal(ctx context.Context, userID int64, goal core.Money) (core.SavingsGoal, error) {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO savings_goals (user_id, goal_cents, current_cents) VALUES (?, ?, 0)
		ON CONFLICT (user_id) DO UPDATE SET goal_cents = excluded.goal_cents`,
		userID, goal.Cents)
	if err != nil {
		return core.SavingsGoal{}, fmt.Errorf("upsert savings goal: %w", mapConstraintErr(err))
	}
	return r.SavingsGoalByUser(ctx, userID)
}

func (r *Repository) SavingsGoalByUser(ctx context.Context, userID int64) (core.SavingsGoal, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT id, user_id, goal_cents, current_cents FROM savings_goals WHERE user_id = ?", userID)
	var g core.SavingsGoal
	err := row.Scan(&g.ID, &g.UserID, &g.Goal.Cents, &g.Current.Cents)
	if errors.Is(err, sql.ErrNoRows) {
		return core.SavingsGoal{}, core.ErrNotFound
	}
	if err != nil {
		return core.SavingsGoal{}, fmt.Errorf("scan savings goal: %w", err)
	}
	return g, nil
}

func (r *Repository) AddToSavings(ctx context.Context, userID int64, amount core.Money) (core.SavingsGoal, error) {
	res, err := r.db.ExecContext(ctx,
		"UPDATE savings_goals SET current_cents = current_cents + ? WHERE user_id = ?",
		amount.Cents, userID)
	if err != nil {
		return core.SavingsGoal{}, fmt.Errorf("add to savings: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return core.SavingsGoal{}, fmt.Errorf("add to savings rows: %w", err)
	}
	if n == 0 {
		return core.SavingsGoal{}, core.ErrNotFound
	}
	return r.SavingsGoalByUser(ctx, userID)
}

// --- archive support ---

// PendingArchive returns transactions not yet written to the archive.
func (r *Repository) PendingArchive(ctx context.Context, limit int) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, type, category, amount_cents, date
		FROM transactions WHERE archived = 0 ORDER BY id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("pending archive: %w", err)
	}
	defer rows.Close()

	var txs []core.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows.Scan)
		if err != nil {
			return nil, err
		}
		txs = append(txs, tx)
	}
	return txs, rows.Err()
}

// PendingTransaction returns a transaction only while it still awaits
// archiving; archived or missing ids report core.ErrNotFound.
func (r *Repository) PendingTransaction(ctx context.Context, id int64) (core.Transaction, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, type, category, amount_cents, date
		FROM transactions WHERE id = ? AND archived = 0`, id)
	return scanTransaction(row.Scan)
}

// MarkArchived flags a transaction as written to the archive.
func (r *Repository) MarkArchived(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE transactions SET archived = 1 WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("mark archived: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark archived rows: %w", err)
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}
