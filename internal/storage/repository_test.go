package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/Keratosis/Budget-tracker-application/internal/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

// RepositoryTestSuite runs every test against a fresh migrated database.
type RepositoryTestSuite struct {
	suite.Suite
	repo *Repository
	ctx  context.Context
}

func (s *RepositoryTestSuite) SetupTest() {
	path := filepath.Join(s.T().TempDir(), "budget.db")
	repo, err := NewRepository(path)
	require.NoError(s.T(), err, "failed to create test database")
	s.repo = repo
	s.ctx = context.Background()
}

func (s *RepositoryTestSuite) TearDownTest() {
	if s.repo != nil {
		s.repo.Close()
	}
}

func (s *RepositoryTestSuite) mustUser(username, email string) core.User {
	user, err := s.repo.CreateUser(s.ctx, username, email, "hash")
	require.NoError(s.T(), err)
	return user
}

func (s *RepositoryTestSuite) mustTransaction(userID int64, typ core.TransactionType, category string, cents int64) core.Transaction {
	tx, err := s.repo.CreateTransaction(s.ctx, core.Transaction{
		UserID:   userID,
		Type:     typ,
		Category: category,
		Amount:   core.Money{Cents: cents},
		Date:     core.NewDate(2026, 8, 29),
	})
	require.NoError(s.T(), err)
	return tx
}

func (s *RepositoryTestSuite) TestMigrationsAreIdempotent() {
	// A second open against the same file must not fail.
	path := filepath.Join(s.T().TempDir(), "twice.db")
	first, err := NewRepository(path)
	require.NoError(s.T(), err)
	require.NoError(s.T(), first.Close())

	second, err := NewRepository(path)
	require.NoError(s.T(), err)
	require.NoError(s.T(), second.Close())
}

func (s *RepositoryTestSuite) TestCreateAndFetchUser() {
	created := s.mustUser("frank", "frank@example.com")
	assert.NotZero(s.T(), created.ID)
	assert.False(s.T(), created.CreatedAt.IsZero())

	byName, err := s.repo.UserByUsername(s.ctx, "frank")
	require.NoError(s.T(), err)
	assert.Equal(s.T(), created.ID, byName.ID)
	assert.Equal(s.T(), "frank@example.com", byName.Email)

	byEmail, err := s.repo.UserByEmail(s.ctx, "frank@example.com")
	require.NoError(s.T(), err)
	assert.Equal(s.T(), created.ID, byEmail.ID)
}

func (s *RepositoryTestSuite) TestDuplicateUsername() {
	s.mustUser("frank", "frank@example.com")

	_, err := s.repo.CreateUser(s.ctx, "frank", "other@example.com", "hash")
	assert.True(s.T(), errors.Is(err, core.ErrDuplicateUser), "got %v", err)
}

func (s *RepositoryTestSuite) TestDuplicateEmail() {
	s.mustUser("frank", "frank@example.com")

	_, err := s.repo.CreateUser(s.ctx, "other", "frank@example.com", "hash")
	assert.True(s.T(), errors.Is(err, core.ErrDuplicateUser), "got %v", err)
}

func (s *RepositoryTestSuite) TestUserNotFound() {
	_, err := s.repo.UserByUsername(s.ctx, "ghost")
	assert.True(s.T(), errors.Is(err, core.ErrUserNotFound), "got %v", err)
}

func (s *RepositoryTestSuite) TestTransactionsKeepInsertionOrder() {
	user := s.mustUser("frank", "frank@example.com")
	s.mustTransaction(user.ID, core.Income, "salary", 100000)
	s.mustTransaction(user.ID, core.Expense, "groceries", 25050)
	s.mustTransaction(user.ID, core.Expense, "rent", 80000)

	txs, err := s.repo.TransactionsByUser(s.ctx, user.ID)
	require.NoError(s.T(), err)
	require.Len(s.T(), txs, 3)
	assert.Equal(s.T(), "salary", txs[0].Category)
	assert.Equal(s.T(), "groceries", txs[1].Category)
	assert.Equal(s.T(), "rent", txs[2].Category)
	assert.Equal(s.T(), "2026-08-29", txs[0].Date.String())
}

func (s *RepositoryTestSuite) TestTransactionsScopedToUser() {
	alice := s.mustUser("alice", "alice@example.com")
	bob := s.mustUser("bob", "bob@example.com")
	s.mustTransaction(alice.ID, core.Income, "salary", 1000)
	s.mustTransaction(bob.ID, core.Income, "salary", 2000)

	txs, err := s.repo.TransactionsByUser(s.ctx, alice.ID)
	require.NoError(s.T(), err)
	require.Len(s.T(), txs, 1)
	assert.Equal(s.T(), alice.ID, txs[0].UserID)
}

func (s *RepositoryTestSuite) TestTransactionRequiresExistingUser() {
	_, err := s.repo.CreateTransaction(s.ctx, core.Transaction{
		UserID:   999,
		Type:     core.Income,
		Category: "salary",
		Amount:   core.Money{Cents: 100},
		Date:     core.NewDate(2026, 1, 1),
	})
	assert.Error(s.T(), err, "insert without owning user must fail")
}

func (s *RepositoryTestSuite) TestDeleteTransaction() {
	user := s.mustUser("frank", "frank@example.com")
	tx := s.mustTransaction(user.ID, core.Expense, "groceries", 1000)

	require.NoError(s.T(), s.repo.DeleteTransaction(s.ctx, user.ID, tx.ID))

	txs, err := s.repo.TransactionsByUser(s.ctx, user.ID)
	require.NoError(s.T(), err)
	assert.Empty(s.T(), txs)
}

func (s *RepositoryTestSuite) TestDeleteMissingTransactionKeepsRows() {
	user := s.mustUser("frank", "frank@example.com")
	s.mustTransaction(user.ID, core.Expense, "groceries", 1000)

	before, err := s.repo.TransactionCount(s.ctx)
	require.NoError(s.T(), err)

	err = s.repo.DeleteTransaction(s.ctx, user.ID, 9999)
	assert.True(s.T(), errors.Is(err, core.ErrNotFound), "got %v", err)

	after, err := s.repo.TransactionCount(s.ctx)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), before, after, "row count must not change")
}

func (s *RepositoryTestSuite) TestDeleteIsScopedToOwner() {
	alice := s.mustUser("alice", "alice@example.com")
	bob := s.mustUser("bob", "bob@example.com")
	tx := s.mustTransaction(alice.ID, core.Expense, "groceries", 1000)

	err := s.repo.DeleteTransaction(s.ctx, bob.ID, tx.ID)
	assert.True(s.T(), errors.Is(err, core.ErrNotFound), "foreign id must behave as missing, got %v", err)

	txs, err := s.repo.TransactionsByUser(s.ctx, alice.ID)
	require.NoError(s.T(), err)
	assert.Len(s.T(), txs, 1, "alice's transaction must survive")
}

func (s *RepositoryTestSuite) TestBalance() {
	user := s.mustUser("frank", "frank@example.com")

	balance, err := s.repo.Balance(s.ctx, user.ID)
	require.NoError(s.T(), err)
	assert.Zero(s.T(), balance.Cents, "empty ledger balances to zero")

	s.mustTransaction(user.ID, core.Income, "salary", 100000)
	expense := s.mustTransaction(user.ID, core.Expense, "groceries", 25050)

	balance, err = s.repo.Balance(s.ctx, user.ID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), int64(74950), balance.Cents)

	require.NoError(s.T(), s.repo.DeleteTransaction(s.ctx, user.ID, expense.ID))
	balance, err = s.repo.Balance(s.ctx, user.ID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), int64(100000), balance.Cents)
}

func (s *RepositoryTestSuite) TestCategoryTotals() {
	user := s.mustUser("frank", "frank@example.com")
	s.mustTransaction(user.ID, core.Income, "salary", 100000)
	s.mustTransaction(user.ID, core.Expense, "groceries", 3000)
	s.mustTransaction(user.ID, core.Expense, "groceries", 2000)
	s.mustTransaction(user.ID, core.Expense, "rent", 80000)

	totals, err := s.repo.CategoryTotals(s.ctx, user.ID)
	require.NoError(s.T(), err)
	require.Len(s.T(), totals, 2, "income must not appear in spending totals")
	assert.Equal(s.T(), "rent", totals[0].Category)
	assert.Equal(s.T(), int64(80000), totals[0].Amount.Cents)
	assert.Equal(s.T(), "groceries", totals[1].Category)
	assert.Equal(s.T(), int64(5000), totals[1].Amount.Cents)
}

func (s *RepositoryTestSuite) TestBudgetUpsert() {
	user := s.mustUser("frank", "frank@example.com")

	first, err := s.repo.UpsertBudget(s.ctx, core.Budget{
		UserID: user.ID, Category: "groceries", Amount: core.Money{Cents: 30000},
	})
	require.NoError(s.T(), err)

	second, err := s.repo.UpsertBudget(s.ctx, core.Budget{
		UserID: user.ID, Category: "groceries", Amount: core.Money{Cents: 45000},
	})
	require.NoError(s.T(), err)
	assert.Equal(s.T(), first.ID, second.ID, "upsert must reuse the existing row")
	assert.Equal(s.T(), int64(45000), second.Amount.Cents)

	budgets, err := s.repo.BudgetsByUser(s.ctx, user.ID)
	require.NoError(s.T(), err)
	require.Len(s.T(), budgets, 1, "exactly one row per (user, category)")
	assert.Equal(s.T(), int64(45000), budgets[0].Amount.Cents)
}

func (s *RepositoryTestSuite) TestBudgetsPerUser() {
	alice := s.mustUser("alice", "alice@example.com")
	bob := s.mustUser("bob", "bob@example.com")

	_, err := s.repo.UpsertBudget(s.ctx, core.Budget{UserID: alice.ID, Category: "groceries", Amount: core.Money{Cents: 100}})
	require.NoError(s.T(), err)
	_, err = s.repo.UpsertBudget(s.ctx, core.Budget{UserID: bob.ID, Category: "groceries", Amount: core.Money{Cents: 200}})
	require.NoError(s.T(), err)

	budgets, err := s.repo.BudgetsByUser(s.ctx, alice.ID)
	require.NoError(s.T(), err)
	require.Len(s.T(), budgets, 1)
	assert.Equal(s.T(), int64(100), budgets[0].Amount.Cents)
}

func (s *RepositoryTestSuite) TestSavingsGoal() {
	user := s.mustUser("frank", "frank@example.com")

	_, err := s.repo.SavingsGoalByUser(s.ctx, user.ID)
	assert.True(s.T(), errors.Is(err, core.ErrNotFound), "got %v", err)

	_, err = s.repo.AddToSavings(s.ctx, user.ID, core.Money{Cents: 100})
	assert.True(s.T(), errors.Is(err, core.ErrNotFound), "adding without a goal must fail, got %v", err)

	goal, err := s.repo.UpsertSavingsGoal(s.ctx, user.ID, core.Money{Cents: 500000})
	require.NoError(s.T(), err)
	assert.Equal(s.T(), int64(500000), goal.Goal.Cents)
	assert.Zero(s.T(), goal.Current.Cents)

	goal, err = s.repo.AddToSavings(s.ctx, user.ID, core.Money{Cents: 12500})
	require.NoError(s.T(), err)
	assert.Equal(s.T(), int64(12500), goal.Current.Cents)

	// Replacing the goal keeps the accumulated savings.
	goal, err = s.repo.UpsertSavingsGoal(s.ctx, user.ID, core.Money{Cents: 600000})
	require.NoError(s.T(), err)
	assert.Equal(s.T(), int64(600000), goal.Goal.Cents)
	assert.Equal(s.T(), int64(12500), goal.Current.Cents)
}

func (s *RepositoryTestSuite) TestArchiveFlow() {
	user := s.mustUser("frank", "frank@example.com")
	a := s.mustTransaction(user.ID, core.Income, "salary", 1000)
	b := s.mustTransaction(user.ID, core.Expense, "groceries", 500)

	pending, err := s.repo.PendingArchive(s.ctx, 10)
	require.NoError(s.T(), err)
	assert.Len(s.T(), pending, 2)

	require.NoError(s.T(), s.repo.MarkArchived(s.ctx, a.ID))

	pending, err = s.repo.PendingArchive(s.ctx, 10)
	require.NoError(s.T(), err)
	require.Len(s.T(), pending, 1)
	assert.Equal(s.T(), b.ID, pending[0].ID)

	_, err = s.repo.PendingTransaction(s.ctx, a.ID)
	assert.True(s.T(), errors.Is(err, core.ErrNotFound), "archived row is no longer pending, got %v", err)

	got, err := s.repo.PendingTransaction(s.ctx, b.ID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), b.ID, got.ID)
}

func TestRepositoryTestSuite(t *testing.T) {
	suite.Run(t, new(RepositoryTestSuite))
}
