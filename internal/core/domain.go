package core

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
)

const (
	Income  TransactionType = "income"
	Expense TransactionType = "expense"
)

// DateLayout is the only accepted date format for user input.
const DateLayout = "2006-01-02"

type (
	TransactionType string

	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	User struct {
		ID           int64
		Username     string
		Email        string
		PasswordHash string
		CreatedAt    time.Time
	}

	Transaction struct {
		ID       int64
		UserID   int64
		Type     TransactionType
		Category string
		Amount   Money
		Date     Date
	}

	Budget struct {
		ID       int64
		UserID   int64
		Category string
		Amount   Money
	}

	SavingsGoal struct {
		ID      int64
		UserID  int64
		Goal    Money
		Current Money
	}

	CategoryAmount struct {
		Category string
		Amount   Money
	}

	// Report aggregates a user's ledger for display or export.
	Report struct {
		UserID       int64
		Transactions []Transaction
		Balance      Money
		Income       Money
		Expenses     Money
		ByCategory   []CategoryAmount
		Budgets      []Budget
	}
)

var (
	ErrDuplicateUser      = errors.New("username or email already exists")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrUnauthenticated    = errors.New("not authenticated")
	ErrUnauthorized       = errors.New("not authorized")
	ErrInvalidInput       = errors.New("invalid input")
	ErrNotFound           = errors.New("not found")

	ErrInvalidAmount = fmt.Errorf("%w: amount must be a positive decimal", ErrInvalidInput)
	ErrInvalidDate   = fmt.Errorf("%w: date must be YYYY-MM-DD", ErrInvalidInput)
	ErrInvalidType   = fmt.Errorf("%w: type must be income or expense", ErrInvalidInput)
	ErrEmptyCategory = fmt.Errorf("%w: empty category", ErrInvalidInput)
	ErrEmptyUsername = fmt.Errorf("%w: empty username", ErrInvalidInput)
	ErrInvalidEmail  = fmt.Errorf("%w: invalid email address", ErrInvalidInput)
	ErrEmptyPassword = fmt.Errorf("%w: empty password", ErrInvalidInput)
)

var emailPattern = regexp.MustCompile(`^[\w.+-]+@[\w.-]+\.\w+$`)

// ParseTransactionType parses user input into a TransactionType.
func ParseTransactionType(s string) (TransactionType, error) {
	switch TransactionType(strings.ToLower(strings.TrimSpace(s))) {
	case Income:
		return Income, nil
	case Expense:
		return Expense, nil
	default:
		return "", ErrInvalidType
	}
}

func (t TransactionType) Validate() error {
	switch t {
	case Income, Expense:
		return nil
	default:
		return ErrInvalidType
	}
}

// ParseDate parses a YYYY-MM-DD string into a Date.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return Date{Time: t}, nil
}

// NewDate creates a Date from year, month, day.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// String renders the date back in the YYYY-MM-DD input format.
func (d Date) String() string {
	return d.Format(DateLayout)
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (tx Transaction) Validate() error {
	if err := tx.Type.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(tx.Category) == "" {
		return ErrEmptyCategory
	}
	if err := tx.Amount.Validate(); err != nil {
		return err
	}
	return tx.Date.Validate()
}

func (b Budget) Validate() error {
	if strings.TrimSpace(b.Category) == "" {
		return ErrEmptyCategory
	}
	return b.Amount.Validate()
}

// ValidateUsername checks registration input. Matching is exact and
// case-sensitive everywhere, so no normalization happens here.
func ValidateUsername(username string) error {
	if strings.TrimSpace(username) == "" {
		return ErrEmptyUsername
	}
	return nil
}

// ValidateEmail checks the rough shape of an email address.
func ValidateEmail(email string) error {
	if !emailPattern.MatchString(email) {
		return ErrInvalidEmail
	}
	return nil
}

// Signed returns the amount in cents with the semantic sign applied:
// positive for income, negative for expense.
func (tx Transaction) Signed() int64 {
	if tx.Type == Expense {
		return -tx.Amount.Cents
	}
	return tx.Amount.Cents
}
