package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/Keratosis/Budget-tracker-application/internal/auth"
	"github.com/Keratosis/Budget-tracker-application/internal/config"
	"github.com/Keratosis/Budget-tracker-application/internal/core"
	"github.com/Keratosis/Budget-tracker-application/internal/export"
	"github.com/Keratosis/Budget-tracker-application/internal/ledger"
)

// App drives the interactive menu as an explicit state machine:
// Anonymous shows register/login, Authenticated shows the ledger menu.
// Logout drops back to Anonymous without recursion.
type App struct {
	svc  *ledger.Service
	cfg  *config.Config
	p    *prompter
	out  io.Writer
	sess *auth.Session
}

func NewApp(svc *ledger.Service, cfg *config.Config, in io.Reader, out io.Writer) *App {
	return &App{
		svc: svc,
		cfg: cfg,
		p:   newPrompter(in, out),
		out: out,
	}
}

// Run loops until the user exits or input ends. Cancellation is observed
// between menu screens: a prompt blocked in a read returns only once the
// user presses Enter, so Ctrl-C takes effect at the next menu.
func (a *App) Run(ctx context.Context) error {
	fmt.Fprintln(a.out, "Budget Tracker")
	fmt.Fprintln(a.out, "--------------")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		var (
			again bool
			err   error
		)
		if a.sess == nil {
			again, err = a.anonymousMenu(ctx)
		} else {
			again, err = a.userMenu(ctx)
		}
		if err != nil {
			return err
		}
		if !again {
			fmt.Fprintln(a.out, "Goodbye!")
			return nil
		}
	}
}

func (a *App) anonymousMenu(ctx context.Context) (bool, error) {
	fmt.Fprintln(a.out, "\n1. Register")
	fmt.Fprintln(a.out, "2. Login")
	fmt.Fprintln(a.out, "3. Exit")

	choice, err := a.p.line("Enter your choice (1-3)")
	if errors.Is(err, io.EOF) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	switch choice {
	case "1":
		a.report(a.register(ctx))
	case "2":
		a.report(a.login(ctx))
	case "3":
		return false, nil
	default:
		fmt.Fprintln(a.out, "Invalid choice. Please try again.")
	}
	return true, nil
}

func (a *App) userMenu(ctx context.Context) (bool, error) {
	fmt.Fprintf(a.out, "\nLogged in as %s\n", a.sess.Username)
	fmt.Fprintln(a.out, "1. Add a transaction")
	fmt.Fprintln(a.out, "2. View all transactions")
	fmt.Fprintln(a.out, "3. Delete a transaction")
	fmt.Fprintln(a.out, "4. Generate report")
	fmt.Fprintln(a.out, "5. Set budget")
	fmt.Fprintln(a.out, "6. View budgets")
	fmt.Fprintln(a.out, "7. Savings goal")
	fmt.Fprintln(a.out, "8. Logout")
	fmt.Fprintln(a.out, "9. Exit")

	choice, err := a.p.line("Enter your choice (1-9)")
	if errors.Is(err, io.EOF) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	switch choice {
	case "1":
		a.report(a.addTransaction(ctx))
	case "2":
		a.report(a.viewTransactions(ctx))
	case "3":
		a.report(a.deleteTransaction(ctx))
	case "4":
		a.report(a.generateReport(ctx))
	case "5":
		a.report(a.setBudget(ctx))
	case "6":
		a.report(a.viewBudgets(ctx))
	case "7":
		a.report(a.savingsGoal(ctx))
	case "8":
		a.svc.Logout(a.sess)
		a.sess = nil
		fmt.Fprintln(a.out, "Logged out successfully.")
	case "9":
		return false, nil
	default:
		fmt.Fprintln(a.out, "Invalid choice. Please try again.")
	}
	return true, nil
}

// report prints a friendly message for recoverable errors and lets the
// menu loop continue.
func (a *App) report(err error) {
	switch {
	case err == nil:
	case errors.Is(err, core.ErrDuplicateUser):
		fmt.Fprintln(a.out, "Username or email already exists. Please choose different values.")
	case errors.Is(err, core.ErrUserNotFound):
		fmt.Fprintln(a.out, "User not found. Please register first.")
	case errors.Is(err, core.ErrInvalidCredentials):
		fmt.Fprintln(a.out, "Invalid username or password.")
	case errors.Is(err, core.ErrUnauthenticated):
		fmt.Fprintln(a.out, "Please login first.")
	case errors.Is(err, core.ErrUnauthorized):
		fmt.Fprintln(a.out, "You are not authorized to do that.")
	case errors.Is(err, core.ErrNotFound):
		fmt.Fprintln(a.out, "Not found.")
	case errors.Is(err, core.ErrInvalidInput):
		fmt.Fprintf(a.out, "Invalid input: %v\n", err)
	default:
		fmt.Fprintf(a.out, "Something went wrong: %v\n", err)
	}
}

func (a *App) register(ctx context.Context) error {
	username, err := a.p.line("Username")
	if err != nil {
		return err
	}
	email, err := a.p.line("Email")
	if err != nil {
		return err
	}
	password, err := a.p.password("Password")
	if err != nil {
		return err
	}

	sess, err := a.svc.Register(ctx, username, email, password)
	if err != nil {
		return err
	}
	a.sess = sess
	fmt.Fprintln(a.out, "Registration successful.")
	return nil
}

func (a *App) login(ctx context.Context) error {
	username, err := a.p.line("Username")
	if err != nil {
		return err
	}
	password, err := a.p.password("Password")
	if err != nil {
		return err
	}

	sess, err := a.svc.Login(ctx, username, password)
	if err != nil {
		return err
	}
	a.sess = sess
	fmt.Fprintf(a.out, "Welcome back, %s!\n", sess.Username)
	return nil
}

func (a *App) addTransaction(ctx context.Context) error {
	typeStr, err := a.p.line("Type (income/expense)")
	if err != nil {
		return err
	}
	typ, err := core.ParseTransactionType(typeStr)
	if err != nil {
		return err
	}

	category, err := a.p.line("Category")
	if err != nil {
		return err
	}

	amountStr, err := a.p.line("Amount")
	if err != nil {
		return err
	}
	amount, err := core.ParseMoney(amountStr)
	if err != nil {
		return err
	}

	dateStr, err := a.p.line("Date (YYYY-MM-DD)")
	if err != nil {
		return err
	}
	date, err := core.ParseDate(dateStr)
	if err != nil {
		return err
	}

	tx, err := a.svc.AddTransaction(ctx, a.sess, typ, category, amount, date)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Transaction %d added successfully!\n", tx.ID)
	return nil
}

func (a *App) viewTransactions(ctx context.Context) error {
	txs, err := a.svc.Transactions(ctx, a.sess)
	if err != nil {
		return err
	}
	a.printTransactions(txs)
	return nil
}

func (a *App) printTransactions(txs []core.Transaction) {
	if len(txs) == 0 {
		fmt.Fprintln(a.out, "No transactions found.")
		return
	}
	for _, tx := range txs {
		fmt.Fprintf(a.out, "ID: %d\n", tx.ID)
		fmt.Fprintf(a.out, "Type: %s\n", tx.Type)
		fmt.Fprintf(a.out, "Category: %s\n", tx.Category)
		fmt.Fprintf(a.out, "Amount: %s\n", tx.Amount)
		fmt.Fprintf(a.out, "Date: %s\n", tx.Date)
		fmt.Fprintln(a.out, "------------------------")
	}
}

func (a *App) deleteTransaction(ctx context.Context) error {
	idStr, err := a.p.line("Enter the transaction ID")
	if err != nil {
		return err
	}
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		return fmt.Errorf("%w: transaction id must be a number", core.ErrInvalidInput)
	}

	if err := a.svc.DeleteTransaction(ctx, a.sess, id); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Transaction deleted successfully.")
	return nil
}

func (a *App) generateReport(ctx context.Context) error {
	rep, err := a.svc.Report(ctx, a.sess, 0)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "Report for %s\n", a.sess.Username)
	fmt.Fprintln(a.out, "Transactions:")
	a.printTransactions(rep.Transactions)
	fmt.Fprintf(a.out, "Income:   %s\n", rep.Income)
	fmt.Fprintf(a.out, "Expenses: %s\n", rep.Expenses)
	fmt.Fprintf(a.out, "Balance:  %s\n", rep.Balance)
	if len(rep.ByCategory) > 0 {
		fmt.Fprintln(a.out, "Spending by category:")
		for _, ca := range rep.ByCategory {
			fmt.Fprintf(a.out, "  %-20s %s\n", ca.Category, ca.Amount)
		}
	}

	format, err := a.p.line("Export as (csv/xlsx/none)")
	if err != nil {
		return err
	}
	switch format {
	case "csv":
		return a.exportCSV(rep)
	case "xlsx":
		return a.exportXLSX(rep)
	default:
		return nil
	}
}

func (a *App) exportCSV(rep core.Report) error {
	path := a.exportPath("csv")
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create export file: %w", err)
	}
	defer f.Close()

	if err := export.WriteCSV(f, rep); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Report written to %s\n", path)
	return nil
}

func (a *App) exportXLSX(rep core.Report) error {
	path := a.exportPath("xlsx")
	if err := export.WriteXLSX(path, rep); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Report written to %s\n", path)
	return nil
}

func (a *App) exportPath(ext string) string {
	_ = os.MkdirAll(a.cfg.ExportDir, 0755)
	name := fmt.Sprintf("report_%s_%s.%s", a.sess.Username, time.Now().Format("2006-01-02_150405"), ext)
	return filepath.Join(a.cfg.ExportDir, name)
}

func (a *App) setBudget(ctx context.Context) error {
	category, err := a.p.line("Category")
	if err != nil {
		return err
	}
	amountStr, err := a.p.line("Budget amount")
	if err != nil {
		return err
	}
	amount, err := core.ParseMoney(amountStr)
	if err != nil {
		return err
	}

	b, err := a.svc.SetBudget(ctx, a.sess, category, amount)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Budget for %s set to %s.\n", b.Category, b.Amount)
	return nil
}

func (a *App) viewBudgets(ctx context.Context) error {
	budgets, err := a.svc.Budgets(ctx, a.sess)
	if err != nil {
		return err
	}
	if len(budgets) == 0 {
		fmt.Fprintln(a.out, "No budgets set.")
		return nil
	}
	for _, b := range budgets {
		fmt.Fprintf(a.out, "  %-20s %s\n", b.Category, b.Amount)
	}
	return nil
}

func (a *App) savingsGoal(ctx context.Context) error {
	goal, err := a.svc.SavingsGoal(ctx, a.sess)
	switch {
	case errors.Is(err, core.ErrNotFound):
		fmt.Fprintln(a.out, "No savings goal set.")
	case err != nil:
		return err
	default:
		fmt.Fprintf(a.out, "Goal: %s, saved so far: %s\n", goal.Goal, goal.Current)
	}

	action, err := a.p.line("Set goal (s), add savings (a), or back (enter)")
	if err != nil {
		return err
	}
	switch action {
	case "s":
		amountStr, err := a.p.line("Goal amount")
		if err != nil {
			return err
		}
		amount, err := core.ParseMoney(amountStr)
		if err != nil {
			return err
		}
		updated, err := a.svc.SetSavingsGoal(ctx, a.sess, amount)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "Savings goal set to %s.\n", updated.Goal)
	case "a":
		amountStr, err := a.p.line("Amount to add")
		if err != nil {
			return err
		}
		amount, err := core.ParseMoney(amountStr)
		if err != nil {
			return err
		}
		updated, err := a.svc.AddToSavings(ctx, a.sess, amount)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "Saved %s of %s.\n", updated.Current, updated.Goal)
	}
	return nil
}
