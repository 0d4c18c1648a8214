// Package ledger implements the business operations over a user's
// transactions, budgets and savings goals. All operations are pure
// request/response calls: no console I/O happens here.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Keratosis/Budget-tracker-application/internal/auth"
	"github.com/Keratosis/Budget-tracker-application/internal/core"
	"github.com/Keratosis/Budget-tracker-application/internal/log"
	"github.com/Keratosis/Budget-tracker-application/internal/storage"
)

// EventPublisher publishes archive events for stored transactions.
// A nil publisher disables the archive pipeline.
type EventPublisher interface {
	PublishTransactionEvent(ctx context.Context, id, userID int64) error
}

type Service struct {
	repo     *storage.Repository
	hasher   *auth.Hasher
	sessions *auth.Sessions
	events   EventPublisher
}

func NewService(repo *storage.Repository, hasher *auth.Hasher, sessions *auth.Sessions, events EventPublisher) *Service {
	return &Service{
		repo:     repo,
		hasher:   hasher,
		sessions: sessions,
		events:   events,
	}
}

// Register creates a new user and signs them in. Username and email must
// not already exist (exact, case-sensitive match).
func (s *Service) Register(ctx context.Context, username, email, password string) (*auth.Session, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)

	if err := core.ValidateUsername(username); err != nil {
		return nil, err
	}
	if err := core.ValidateEmail(email); err != nil {
		return nil, err
	}
	if password == "" {
		return nil, core.ErrEmptyPassword
	}

	if _, err := s.repo.UserByUsername(ctx, username); err == nil {
		return nil, core.ErrDuplicateUser
	} else if !errors.Is(err, core.ErrUserNotFound) {
		return nil, fmt.Errorf("check username: %w", err)
	}
	if _, err := s.repo.UserByEmail(ctx, email); err == nil {
		return nil, core.ErrDuplicateUser
	} else if !errors.Is(err, core.ErrUserNotFound) {
		return nil, fmt.Errorf("check email: %w", err)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, err
	}

	// The insert can still hit the unique constraints; the repository
	// maps those to ErrDuplicateUser as well.
	user, err := s.repo.CreateUser(ctx, username, email, hash)
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "User registered", log.FieldUserID, user.ID, log.FieldUsername, user.Username)
	return s.sessions.Issue(user)
}

// Login authenticates by username and password and issues a session.
func (s *Service) Login(ctx context.Context, username, password string) (*auth.Session, error) {
	user, err := s.repo.UserByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return nil, err
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		return nil, core.ErrInvalidCredentials
	}

	slog.InfoContext(ctx, "User logged in", log.FieldUserID, user.ID, log.FieldUsername, user.Username)
	return s.sessions.Issue(user)
}

// Logout revokes the session; the handle is anonymous afterwards.
func (s *Service) Logout(sess *auth.Session) {
	s.sessions.Revoke(sess)
}

func (s *Service) authenticated(sess *auth.Session) (int64, error) {
	if err := s.sessions.Validate(sess); err != nil {
		return 0, err
	}
	return sess.UserID, nil
}

// AddTransaction validates and persists a transaction for the session's
// user, then best-effort publishes an archive event.
func (s *Service) AddTransaction(ctx context.Context, sess *auth.Session, typ core.TransactionType, category string, amount core.Money, date core.Date) (core.Transaction, error) {
	userID, err := s.authenticated(sess)
	if err != nil {
		return core.Transaction{}, err
	}

	tx := core.Transaction{
		UserID:   userID,
		Type:     typ,
		Category: strings.TrimSpace(category),
		Amount:   amount,
		Date:     date,
	}
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, err
	}

	saved, err := s.repo.CreateTransaction(ctx, tx)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("add transaction: %w", err)
	}

	// The transaction is durable locally; a failed publish only delays
	// archiving until the worker's rescan.
	if s.events != nil {
		if err := s.events.PublishTransactionEvent(ctx, saved.ID, saved.UserID); err != nil {
			slog.ErrorContext(ctx, "Failed to publish transaction event",
				log.FieldTxID, saved.ID, log.FieldError, err)
		}
	}

	return saved, nil
}

// Transactions returns the session user's transactions in insertion
// order. An empty ledger is a valid, non-error result.
func (s *Service) Transactions(ctx context.Context, sess *auth.Session) ([]core.Transaction, error) {
	userID, err := s.authenticated(sess)
	if err != nil {
		return nil, err
	}
	return s.repo.TransactionsByUser(ctx, userID)
}

// DeleteTransaction removes one of the session user's transactions.
// Ids owned by other users behave exactly like missing ids.
func (s *Service) DeleteTransaction(ctx context.Context, sess *auth.Session, id int64) error {
	userID, err := s.authenticated(sess)
	if err != nil {
		return err
	}
	return s.repo.DeleteTransaction(ctx, userID, id)
}

// Balance is income minus expenses for the session's user.
func (s *Service) Balance(ctx context.Context, sess *auth.Session) (core.Money, error) {
	userID, err := s.authenticated(sess)
	if err != nil {
		return core.Money{}, err
	}
	return s.repo.Balance(ctx, userID)
}

// SetBudget sets the spending ceiling for a category, replacing any
// previous value for the same category.
func (s *Service) SetBudget(ctx context.Context, sess *auth.Session, category string, amount core.Money) (core.Budget, error) {
	userID, err := s.authenticated(sess)
	if err != nil {
		return core.Budget{}, err
	}

	b := core.Budget{
		UserID:   userID,
		Category: strings.TrimSpace(category),
		Amount:   amount,
	}
	if err := b.Validate(); err != nil {
		return core.Budget{}, err
	}

	return s.repo.UpsertBudget(ctx, b)
}

// Budgets returns all budget rows for the session's user.
func (s *Service) Budgets(ctx context.Context, sess *auth.Session) ([]core.Budget, error) {
	userID, err := s.authenticated(sess)
	if err != nil {
		return nil, err
	}
	return s.repo.BudgetsByUser(ctx, userID)
}

// Report builds the full report for the session's user. targetUserID 0
// means self; any other user's report is off limits.
func (s *Service) Report(ctx context.Context, sess *auth.Session, targetUserID int64) (core.Report, error) {
	userID, err := s.authenticated(sess)
	if err != nil {
		return core.Report{}, err
	}
	if targetUserID != 0 && targetUserID != userID {
		return core.Report{}, core.ErrUnauthorized
	}

	txs, err := s.repo.TransactionsByUser(ctx, userID)
	if err != nil {
		return core.Report{}, fmt.Errorf("report transactions: %w", err)
	}
	income, expenses, err := s.repo.Totals(ctx, userID)
	if err != nil {
		return core.Report{}, fmt.Errorf("report totals: %w", err)
	}
	byCategory, err := s.repo.CategoryTotals(ctx, userID)
	if err != nil {
		return core.Report{}, fmt.Errorf("report category totals: %w", err)
	}
	budgets, err := s.repo.BudgetsByUser(ctx, userID)
	if err != nil {
		return core.Report{}, fmt.Errorf("report budgets: %w", err)
	}

	return core.Report{
		UserID:       userID,
		Transactions: txs,
		Balance:      core.Money{Cents: income.Cents - expenses.Cents},
		Income:       income,
		Expenses:     expenses,
		ByCategory:   byCategory,
		Budgets:      budgets,
	}, nil
}

// SetSavingsGoal sets (or replaces) the user's savings goal.
func (s *Service) SetSavingsGoal(ctx context.Context, sess *auth.Session, goal core.Money) (core.SavingsGoal, error) {
	userID, err := s.authenticated(sess)
	if err != nil {
		return core.SavingsGoal{}, err
	}
	if err := goal.Validate(); err != nil {
		return core.SavingsGoal{}, err
	}
	return s.repo.UpsertSavingsGoal(ctx, userID, goal)
}

// SavingsGoal returns the user's savings goal, ErrNotFound without one.
func (s *Service) SavingsGoal(ctx context.Context, sess *auth.Session) (core.SavingsGoal, error) {
	userID, err := s.authenticated(sess)
	if err != nil {
		return core.SavingsGoal{}, err
	}
	return s.repo.SavingsGoalByUser(ctx, userID)
}

// AddToSavings adds amount to the current savings of the user's goal.
func (s *Service) AddToSavings(ctx context.Context, sess *auth.Session, amount core.Money) (core.SavingsGoal, error) {
	userID, err := s.authenticated(sess)
	if err != nil {
		return core.SavingsGoal{}, err
	}
	if err := amount.Validate(); err != nil {
		return core.SavingsGoal{}, err
	}
	return s.repo.AddToSavings(ctx, userID, amount)
}
