// Package cli is the line-oriented presentation layer. It turns commands into
// calls on a *core.Session and prints results; it holds no business rules.
package cli

import (
	"bufio"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"smartstock/internal/core"
	"smartstock/internal/report"
	"smartstock/internal/validation"
	"smartstock/pkg/domain"
)

const prompt = "smartstock> "

// Shell reads commands from in and writes results to out.
type Shell struct {
	session  *core.Session
	in       *bufio.Scanner
	out      io.Writer
	printer  *message.Printer
	currency string
}

// Option customises a Shell.
type Option func(*Shell)

// WithCurrency sets the symbol printed before amounts.
func WithCurrency(symbol string) Option {
	return func(s *Shell) { s.currency = symbol }
}

// New binds a shell to session.
func New(session *core.Session, in io.Reader, out io.Writer, opts ...Option) *Shell {
	s := &Shell{
		session:  session,
		in:       bufio.NewScanner(in),
		out:      out,
		printer:  message.NewPrinter(language.English),
		currency: "₱",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run executes commands until quit, end of input, or ctx is cancelled.
func (s *Shell) Run(ctx context.Context) error {
	fmt.Fprintf(s.out, "Logged in as %s (%s). Type 'help' for commands.\n", s.session.Username(), s.session.Role())
	done := make(chan struct{})
	defer close(done)
	lines := s.readLines(done)
	for {
		fmt.Fprint(s.out, prompt)
		var (
			line string
			ok   bool
		)
		select {
		case <-ctx.Done():
			fmt.Fprintln(s.out)
			return ctx.Err()
		case line, ok = <-lines:
		}
		if !ok {
			fmt.Fprintln(s.out)
			return s.in.Err()
		}
		quit, err := s.Exec(ctx, line)
		if err != nil {
			fmt.Fprintln(s.out, describe(err))
		}
		if quit {
			return nil
		}
	}
}

// readLines scans input on its own goroutine so a blocked read does not hold
// up cancellation. The channel is closed at end of input.
func (s *Shell) readLines(done <-chan struct{}) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		for s.in.Scan() {
			select {
			case lines <- s.in.Text():
			case <-done:
				return
			}
		}
	}()
	return lines
}

type command struct {
	usage string
	help  string
	op    domain.Operation // empty when no permission is needed
	run   func(s *Shell, ctx context.Context, args []string) error
}

var commands map[string]command

var order = []string{"list", "show", "add", "update", "delete", "sell", "buy", "history", "summary", "lowstock", "export", "whoami", "help", "quit"}

func init() {
	commands = map[string]command{
		"list":     {"list [filter]", "list items, newest first", domain.OpListItems, (*Shell).list},
		"show":     {"show <id>", "show one item with suggested prices", domain.OpGetItem, (*Shell).show},
		"add":      {"add <name> <quantity> <price>", "create an item", domain.OpCreateItem, (*Shell).add},
		"update":   {"update <id> <name> <quantity> <price>", "overwrite an item", domain.OpUpdateItem, (*Shell).update},
		"delete":   {"delete <id>", "delete an item (history is kept)", domain.OpDeleteItem, (*Shell).remove},
		"sell":     {"sell <id> <quantity> [unit price]", "record a sale (defaults to the item price)", domain.OpRecordSale, (*Shell).sell},
		"buy":      {"buy <id> <quantity> [unit cost]", "record a purchase (defaults to 70% of the price)", domain.OpRecordPurchase, (*Shell).buy},
		"history":  {"history [sale|purchase] [item filter]", "list transactions, newest first", domain.OpListTransactions, (*Shell).history},
		"summary":  {"summary", "today's and all-time sales and purchases", domain.OpSummarize, (*Shell).summary},
		"lowstock": {"lowstock", "items at or below the low stock threshold", domain.OpLowStock, (*Shell).lowStock},
		"export":   {"export [xlsx|csv]", "archive the inventory report", domain.OpExportReport, (*Shell).export},
		"whoami":   {"whoami", "show the current session", "", (*Shell).whoami},
		"help":     {"help", "list available commands", "", (*Shell).help},
		"quit":     {"quit", "end the session", "", nil},
	}
}

// Exec runs one command line. quit is true for quit/exit.
func (s *Shell) Exec(ctx context.Context, line string) (quit bool, err error) {
	args, err := tokenize(line)
	if err != nil {
		return false, err
	}
	if len(args) == 0 {
		return false, nil
	}
	name := strings.ToLower(args[0])
	if name == "exit" {
		name = "quit"
	}
	cmd, ok := commands[name]
	if !ok {
		return false, fmt.Errorf("unknown command %q (try 'help')", args[0])
	}
	if cmd.run == nil {
		return true, nil
	}
	return false, cmd.run(s, ctx, args[1:])
}

// tokenize splits on spaces, honouring double quotes so names may contain
// spaces: add "Milk Carton" 10 85.
func tokenize(line string) ([]string, error) {
	r := csv.NewReader(strings.NewReader(line))
	r.Comma = ' '
	r.LazyQuotes = true
	fields, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("cannot parse command: %w", err)
	}
	out := fields[:0]
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out, nil
}

func usageError(name string) error {
	return fmt.Errorf("usage: %s", commands[name].usage)
}

func (s *Shell) money(v float64) string {
	return s.currency + s.printer.Sprintf("%.2f", v)
}

func (s *Shell) table() *tabwriter.Writer {
	return tabwriter.NewWriter(s.out, 0, 4, 2, ' ', 0)
}

func (s *Shell) printItems(items []domain.Item) {
	if len(items) == 0 {
		fmt.Fprintln(s.out, "No items.")
		return
	}
	threshold := s.session.LowStockThreshold()
	w := s.table()
	fmt.Fprintln(w, "ID\tNAME\tQTY\tPRICE\t")
	for _, it := range items {
		flag := ""
		if it.Quantity <= threshold {
			flag = "LOW"
		}
		fmt.Fprintf(w, "%d\t%s\t%d\t%s\t%s\n", it.ID, it.Name, it.Quantity, s.money(it.Price), flag)
	}
	_ = w.Flush()
}

func (s *Shell) list(ctx context.Context, args []string) error {
	items, err := s.session.ListItems(ctx, strings.Join(args, " "))
	if err != nil {
		return err
	}
	s.printItems(items)
	return nil
}

func (s *Shell) show(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return usageError("show")
	}
	id, err := validation.ParseID(args[0])
	if err != nil {
		return err
	}
	item, err := s.session.GetItem(ctx, id)
	if err != nil {
		return err
	}
	s.printItems([]domain.Item{item})
	fmt.Fprintf(s.out, "Suggested sale price %s, purchase cost %s\n", s.money(item.Price), s.money(domain.SuggestedUnitCost(item.Price)))
	return nil
}

func (s *Shell) add(ctx context.Context, args []string) error {
	if len(args) != 3 {
		return usageError("add")
	}
	form, err := validation.ParseItemForm(args[0], args[1], args[2])
	if err != nil {
		return err
	}
	id, err := s.session.CreateItem(ctx, form.Name, form.Quantity, form.Price)
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "'%s' added with id %d.\n", form.Name, id)
	return s.list(ctx, nil)
}

func (s *Shell) update(ctx context.Context, args []string) error {
	if len(args) != 4 {
		return usageError("update")
	}
	id, err := validation.ParseID(args[0])
	if err != nil {
		return err
	}
	form, err := validation.ParseItemForm(args[1], args[2], args[3])
	if err != nil {
		return err
	}
	if err := s.session.UpdateItem(ctx, id, form.Name, form.Quantity, form.Price); err != nil {
		return err
	}
	fmt.Fprintf(s.out, "Item %d updated.\n", id)
	return s.list(ctx, nil)
}

func (s *Shell) remove(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return usageError("delete")
	}
	id, err := validation.ParseID(args[0])
	if err != nil {
		return err
	}
	if err := s.session.DeleteItem(ctx, id); err != nil {
		return err
	}
	fmt.Fprintf(s.out, "Item %d deleted.\n", id)
	return s.list(ctx, nil)
}

func (s *Shell) sell(ctx context.Context, args []string) error {
	return s.movement(ctx, "sell", args)
}

func (s *Shell) buy(ctx context.Context, args []string) error {
	return s.movement(ctx, "buy", args)
}

// movement records a sale or purchase; a missing unit amount falls back to the
// session's suggested price for the item.
func (s *Shell) movement(ctx context.Context, name string, args []string) error {
	if len(args) < 2 || len(args) > 3 {
		return usageError(name)
	}
	id, err := validation.ParseID(args[0])
	if err != nil {
		return err
	}
	unit := ""
	if len(args) == 3 {
		unit = args[2]
	} else {
		if !s.session.Can(commands[name].op) {
			// Let the façade produce the Forbidden error without a lookup.
			unit = "1"
		} else {
			salePrice, unitCost, err := s.session.SuggestedPrices(ctx, id)
			if err != nil {
				return err
			}
			if name == "sell" {
				unit = fmt.Sprintf("%.2f", salePrice)
			} else {
				unit = fmt.Sprintf("%.2f", unitCost)
			}
		}
	}
	form, err := validation.ParseTransactionForm(args[1], unit)
	if err != nil {
		return err
	}
	var txID int64
	verb := "Sale"
	if name == "sell" {
		txID, err = s.session.RecordSale(ctx, id, form.Quantity, form.Unit)
	} else {
		verb = "Purchase"
		txID, err = s.session.RecordPurchase(ctx, id, form.Quantity, form.Unit)
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "%s #%d of %d unit(s) recorded. Total: %s\n", verb, txID, form.Quantity, s.money(domain.LineAmount(form.Quantity, form.Unit)))
	return nil
}

func (s *Shell) history(ctx context.Context, args []string) error {
	var filter domain.TransactionFilter
	if len(args) > 0 {
		if k := domain.TransactionKind(strings.ToLower(args[0])); k.Valid() {
			filter.Kind = k
			args = args[1:]
		}
	}
	filter.ItemName = strings.Join(args, " ")
	txs, err := s.session.ListTransactions(ctx, filter)
	if err != nil {
		return err
	}
	if len(txs) == 0 {
		fmt.Fprintln(s.out, "No transactions.")
		return nil
	}
	w := s.table()
	fmt.Fprintln(w, "ID\tKIND\tITEM\tQTY\tAMOUNT\tWHEN")
	for _, t := range txs {
		fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%s\t%s\n", t.ID, t.Kind, t.ItemName, t.Quantity, s.money(t.Amount), t.OccurredAt.Local().Format("2006-01-02 15:04"))
	}
	return w.Flush()
}

func (s *Shell) summary(ctx context.Context, _ []string) error {
	w := s.table()
	fmt.Fprintln(w, "SUMMARY\tTOTAL\tCOUNT")
	for _, kind := range []domain.TransactionKind{domain.KindSale, domain.KindPurchase} {
		for _, period := range []domain.Period{domain.PeriodToday, domain.PeriodAllTime} {
			sum, err := s.session.Summarize(ctx, kind, period)
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "%s\t%s\t%d\n", report.SummaryTitle(sum), s.money(sum.Total), sum.Count)
		}
	}
	return w.Flush()
}

func (s *Shell) lowStock(ctx context.Context, _ []string) error {
	items, err := s.session.LowStock(ctx)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		fmt.Fprintf(s.out, "No items at or below %d units.\n", s.session.LowStockThreshold())
		return nil
	}
	s.printItems(items)
	return nil
}

func (s *Shell) export(ctx context.Context, args []string) error {
	if len(args) > 1 {
		return usageError("export")
	}
	var raw string
	if len(args) == 1 {
		raw = args[0]
	}
	format, err := report.ParseFormat(raw)
	if err != nil {
		return err
	}
	out, err := s.session.ExportReport(ctx, format)
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "Report saved as %s (%s).\n", out.Key, humanize.Bytes(uint64(out.Size)))
	if out.URL != "" {
		fmt.Fprintf(s.out, "Open: %s\n", out.URL)
	}
	return nil
}

func (s *Shell) whoami(context.Context, []string) error {
	fmt.Fprintf(s.out, "%s (%s), session %s\n", s.session.Username(), s.session.Role(), s.session.ID())
	return nil
}

func (s *Shell) help(context.Context, []string) error {
	w := s.table()
	for _, name := range order {
		cmd := commands[name]
		if cmd.op != "" && !s.session.Can(cmd.op) {
			continue
		}
		fmt.Fprintf(w, "  %s\t%s\n", cmd.usage, cmd.help)
	}
	return w.Flush()
}

// describe turns an error into the line shown to the user.
func describe(err error) string {
	var (
		se *domain.StorageError
		fe domain.ForbiddenError
		is domain.InsufficientStockError
	)
	switch {
	case errors.As(err, &fe):
		return fmt.Sprintf("Permission denied: %s users cannot %s.", fe.Role, strings.ReplaceAll(string(fe.Operation), "_", " "))
	case errors.As(err, &is):
		return fmt.Sprintf("Insufficient stock: requested %d, only %d available.", is.Requested, is.Available)
	case errors.As(err, &se):
		return fmt.Sprintf("Storage error during %s: %v", se.Op, se.Err)
	default:
		return "Error: " + err.Error()
	}
}
