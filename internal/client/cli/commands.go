package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/glucokeeper/internal/client/models"
	"github.com/dmitrijs2005/glucokeeper/internal/client/reconcile"
	"github.com/dmitrijs2005/glucokeeper/internal/client/report"
	"github.com/dmitrijs2005/glucokeeper/internal/client/services"
	"github.com/dmitrijs2005/glucokeeper/internal/common"
	"github.com/dmitrijs2005/glucokeeper/internal/filex"
)

const displayLayout = "2006-01-02 15:04"

// getSimpleText, getPassword and getMultiline are indirections used to
// facilitate testing.
var (
	getSimpleText = GetSimpleText
	getPassword   = GetPassword
	getMultiline  = GetMultiline
)

var errUsage = errors.New("usage")

func usage(format string) error {
	return fmt.Errorf("%w: %s", errUsage, format)
}

func (a *App) snapshot(ctx context.Context) (reconcile.Snapshot, error) {
	return a.ctrl.Snapshot(ctx)
}

// Users prints every user, marking the selected one.
func (a *App) Users(ctx context.Context, _ []string) error {
	snap, err := a.snapshot(ctx)
	if err != nil {
		return err
	}
	if len(snap.Users) == 0 {
		fmt.Fprintln(a.out, "No users yet, add one with: adduser <name>")
		return nil
	}
	for _, u := range snap.Users {
		mark := " "
		if u.ID == snap.SelectedUserID {
			mark = "*"
		}
		fmt.Fprintf(a.out, "%s %d\t%s\n", mark, u.ID, u.Name)
	}
	return nil
}

func (a *App) AddUser(ctx context.Context, args []string) error {
	name := strings.Join(args, " ")
	if name == "" {
		var err error
		if name, err = getSimpleText(a.reader, "Enter user name", a.out); err != nil {
			return err
		}
	}
	u, err := a.ctrl.AddUser(ctx, name)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Added user %s (%d)\n", u.Name, u.ID)
	return nil
}

// Select accepts a user id or a name.
func (a *App) Select(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return usage("select <id|name>")
	}
	arg := strings.Join(args, " ")

	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		snap, serr := a.snapshot(ctx)
		if serr != nil {
			return serr
		}
		u, ok := models.FindUserByName(snap.Users, arg)
		if !ok {
			return fmt.Errorf("user %q: %w", arg, common.ErrNotFound)
		}
		id = u.ID
	}
	if err := a.ctrl.SelectUser(ctx, id); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Selected", arg)
	return nil
}

// Add parses "add <value> [period] [name=units ...]".
func (a *App) Add(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return usage("add <value> [period] [med=units ...]")
	}
	value, err := strconv.ParseFloat(args[0], 64)
	if err != nil {
		return common.NewValidationError("measurement", "must be a number")
	}

	in := reconcile.EntryInput{Measurement: value}
	for _, arg := range args[1:] {
		name, units, isMed := strings.Cut(arg, "=")
		if !isMed {
			in.TimePeriod = models.TimePeriod(arg)
			continue
		}
		u, err := strconv.ParseFloat(units, 64)
		if err != nil {
			return common.NewValidationError("medications", fmt.Sprintf("units of %s must be a number", name))
		}
		in.Medications = append(in.Medications, models.Medication{Name: name, Units: u})
	}

	e, err := a.ctrl.SubmitEntry(ctx, in)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Recorded %s\n", a.formatEntry(e))
	return nil
}

func (a *App) selectedFilter(ctx context.Context, args []string) (reconcile.Snapshot, report.Filter, error) {
	snap, err := a.snapshot(ctx)
	if err != nil {
		return snap, report.Filter{}, err
	}
	if snap.SelectedUserID == 0 {
		return snap, report.Filter{}, common.ErrNoUserSelected
	}
	days := 0
	if len(args) > 0 {
		if days, err = strconv.Atoi(args[0]); err != nil || days < 0 {
			return snap, report.Filter{}, usage("<days> must be a non-negative number")
		}
	}
	return snap, report.LastDays(snap.SelectedUserID, days, time.Now()), nil
}

// List prints the selected user's entries, newest first.
func (a *App) List(ctx context.Context, args []string) error {
	snap, f, err := a.selectedFilter(ctx, args)
	if err != nil {
		return err
	}
	entries := report.Select(snap.Entries, f)
	if len(entries) == 0 {
		fmt.Fprintln(a.out, "No entries")
		return nil
	}
	for i := len(entries) - 1; i >= 0; i-- {
		fmt.Fprintln(a.out, a.formatEntry(entries[i]))
	}
	return nil
}

func (a *App) Delete(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return usage("delete <id>")
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return usage("delete <id>")
	}
	if err := a.ctrl.DeleteEntry(ctx, id); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Deleted", id)
	return nil
}

// Import reads a CSV file, or pasted text when no file is given.
func (a *App) Import(ctx context.Context, args []string) error {
	var (
		text string
		err  error
	)
	if len(args) > 0 {
		text, err = filex.ReadText(args[0])
	} else {
		text, err = getMultiline(a.reader, "Paste CSV", a.out)
	}
	if err != nil {
		return err
	}

	res, err := a.ctrl.ImportCSV(ctx, text)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Imported %d entries, skipped %d duplicates\n", res.ImportedCount, res.DuplicateCount)
	if res.InvalidCount > 0 {
		fmt.Fprintf(a.out, "Rejected %d invalid entries\n", res.InvalidCount)
	}
	for _, s := range res.Skipped {
		fmt.Fprintf(a.out, "  line %d: %s\n", s.Line, s.Reason)
	}
	return nil
}

// Export writes the selected user's entries to a file, or to the terminal.
func (a *App) Export(ctx context.Context, args []string) error {
	snap, f, err := a.selectedFilter(ctx, nil)
	if err != nil {
		return err
	}
	entries := report.Select(snap.Entries, f)

	if len(args) == 0 {
		return report.WriteCSV(a.out, entries, a.loc)
	}

	file, err := os.Create(args[0])
	if err != nil {
		return fmt.Errorf("create %s: %w", args[0], err)
	}
	if err := report.WriteCSV(file, entries, a.loc); err != nil {
		_ = file.Close()
		return err
	}
	if err := file.Close(); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Exported %d entries to %s\n", len(entries), args[0])
	return nil
}

func (a *App) Stats(ctx context.Context, args []string) error {
	snap, f, err := a.selectedFilter(ctx, args)
	if err != nil {
		return err
	}
	entries := report.Select(snap.Entries, f)

	s := report.Summarize(entries)
	fmt.Fprintf(a.out, "Count: %d  Average: %.1f  Min: %.1f  Max: %.1f\n", s.Count, s.Average, s.Min, s.Max)
	for _, p := range report.ByPeriod(entries) {
		fmt.Fprintf(a.out, "  %-17s %6.1f  (%d)\n", p.Period.Label(), p.Average, p.Count)
	}
	return nil
}

func (a *App) credentials() (string, []byte, error) {
	email, err := getSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return "", nil, err
	}
	password, err := getPassword(a.out)
	if err != nil {
		return "", nil, err
	}
	return email, password, nil
}

// SignUp creates an account, then migrates local data like SignIn.
func (a *App) SignUp(ctx context.Context, _ []string) error {
	return a.authenticate(ctx, a.ctrl.SignUp)
}

func (a *App) SignIn(ctx context.Context, _ []string) error {
	return a.authenticate(ctx, a.ctrl.SignIn)
}

func (a *App) authenticate(ctx context.Context, login func(context.Context, string, []byte) (*services.Account, error)) error {
	email, password, err := a.credentials()
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	acc, err := login(ctx, email, password)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Signed in as %s, loading data...\n", acc.Email)

	if err := a.ctrl.Wait(ctx); err != nil {
		return err
	}
	return a.Status(ctx, nil)
}

func (a *App) SignOut(ctx context.Context, _ []string) error {
	if err := a.ctrl.SignOut(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Signed out, working offline")
	return nil
}

func (a *App) Status(ctx context.Context, _ []string) error {
	snap, err := a.snapshot(ctx)
	if err != nil {
		return err
	}
	account := "-"
	if snap.Account != nil {
		account = snap.Account.Email
		if account == "" {
			account = snap.Account.ID
		}
	}
	fmt.Fprintf(a.out, "Session: %s  Account: %s  Sync: %s", snap.State, account, snap.Status.Sync)
	if snap.Status.Pending > 0 {
		fmt.Fprintf(a.out, " (%d pending)", snap.Status.Pending)
	}
	fmt.Fprintln(a.out)
	if snap.Status.Err != nil {
		fmt.Fprintln(a.out, "Last error:", snap.Status.Err)
	}
	fmt.Fprintf(a.out, "Users: %d  Entries: %d\n", len(snap.Users), len(snap.Entries))
	return nil
}

func (a *App) formatEntry(e models.Entry) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d\t%s\t%-17s %6.1f %s", e.ID, e.Timestamp.In(a.loc).Format(displayLayout), e.TimePeriod.Label(), e.Measurement, report.DefaultUnit)
	for _, m := range e.Medications {
		fmt.Fprintf(&b, "  %s %g", m.Name, m.Units)
	}
	return b.String()
}
