package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	orderapp "github.com/marketplace/orderflow/internal/application/order"
	"github.com/marketplace/orderflow/internal/application/receipt"
	"github.com/marketplace/orderflow/internal/application/session"
	"github.com/marketplace/orderflow/internal/domain/chat"
	"github.com/marketplace/orderflow/internal/domain/order"
	"github.com/shopspring/decimal"
)

// usageError reports a malformed command line
type usageError struct {
	cmd string
	msg string
}

func (e *usageError) Error() string {
	if e.cmd == "" {
		return e.msg
	}
	return fmt.Sprintf("%s: %s", e.cmd, e.msg)
}

type command struct {
	name    string
	args    string
	summary string
	run     func(ctx context.Context, a *app, args []string) error
}

// commands is populated in init to break the initialization cycle through
// findCommand
var commands []command

func init() {
	commands = []command{
		{"login", "<email> <password>", "Sign in and remember the session", cmdLogin},
		{"register", "[-phone p] <name> <email> <password> <role>", "Create an account and sign in", cmdRegister},
		{"logout", "", "Forget the session", cmdLogout},
		{"whoami", "", "Show the signed-in user", cmdWhoami},
		{"orders", "[-status s] [-type goods|supply]", "List your orders and what you can do with them", cmdOrders},
		{"show", "<id>", "Show one order", cmdShow},
		{"create", "[-supplier id] [-price n] [-address a] [-payment m] [-notes n] <goods|supply> <product> <qty>", "Place an order", cmdCreate},
		{"act", "<id> <action> [amount|driver]", "Perform an action on an order", cmdAct},
		{"pay", "<id> <amount>", "Submit the payment amount of a delivered supply order", cmdPay},
		{"assign", "<id> <driver>", "Assign a delivery driver", cmdAssign},
		{"receipt", "<id> <file.pdf|file.html>", "Write the receipt of a fulfilled order", cmdReceipt},
		{"report", "[-status s] [-type t] <file.html>", "Write an overview of your orders", cmdReport},
		{"chat", "<peer> [message...]", "Show a conversation, optionally sending a message first", cmdChat},
		{"watch", "<peer>", "Follow a conversation until interrupted", cmdWatch},
	}
}

func findCommand(name string) (command, bool) {
	for _, c := range commands {
		if c.name == name {
			return c, true
		}
	}
	return command{}, false
}

// dispatch runs the command named by args[0]
func dispatch(ctx context.Context, a *app, args []string) error {
	if len(args) == 0 {
		return &usageError{msg: "no command given"}
	}
	cmd, ok := findCommand(args[0])
	if !ok {
		return &usageError{msg: fmt.Sprintf("unknown command %q", args[0])}
	}
	return cmd.run(ctx, a, args[1:])
}

// newFlags creates a flag set that reports errors instead of exiting
func newFlags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

func parseFlags(fs *flag.FlagSet, args []string, want int) ([]string, error) {
	if err := fs.Parse(args); err != nil {
		return nil, &usageError{cmd: fs.Name(), msg: err.Error()}
	}
	return exactly(fs.Name(), fs.Args(), want)
}

func exactly(cmd string, args []string, want int) ([]string, error) {
	if len(args) != want {
		c, _ := findCommand(cmd)
		return nil, &usageError{cmd: cmd, msg: "usage: orderflow " + strings.TrimSpace(cmd+" "+c.args)}
	}
	return args, nil
}

// ============================================
// Session
// ============================================

func cmdLogin(ctx context.Context, a *app, args []string) error {
	args, err := exactly("login", args, 2)
	if err != nil {
		return err
	}
	sess, err := a.sessions.Login(ctx, session.LoginInput{Email: args[0], Password: args[1]})
	if err != nil {
		return err
	}
	a.printf("Signed in as %s (%s)\n", displayName(sess.Name, sess.Email), sess.Role)
	return nil
}

func cmdRegister(ctx context.Context, a *app, args []string) error {
	fs := newFlags("register")
	phone := fs.String("phone", "", "phone number")
	args, err := parseFlags(fs, args, 4)
	if err != nil {
		return err
	}
	sess, err := a.sessions.Register(ctx, session.RegisterInput{
		Name:     args[0],
		Email:    args[1],
		Password: args[2],
		Role:     args[3],
		Phone:    *phone,
	})
	if err != nil {
		return err
	}
	a.printf("Registered and signed in as %s (%s)\n", displayName(sess.Name, sess.Email), sess.Role)
	return nil
}

func cmdLogout(ctx context.Context, a *app, args []string) error {
	if _, err := exactly("logout", args, 0); err != nil {
		return err
	}
	if err := a.sessions.Logout(ctx); err != nil {
		return err
	}
	a.printf("Signed out\n")
	return nil
}

func cmdWhoami(_ context.Context, a *app, args []string) error {
	if _, err := exactly("whoami", args, 0); err != nil {
		return err
	}
	sess := a.sessions.Snapshot()
	if sess == nil {
		a.printf("Not signed in\n")
		return nil
	}
	a.printf("%s <%s>\nrole: %s\nid:   %s\n", displayName(sess.Name, sess.Email), sess.Email, sess.Role, sess.UserID)
	if !sess.ExpiresAt.IsZero() {
		a.printf("expires: %s\n", sess.ExpiresAt.Local().Format("2006-01-02 15:04"))
	}
	return nil
}

func displayName(name, email string) string {
	if name != "" {
		return name
	}
	return email
}

// ============================================
// Orders
// ============================================

func listFlags(name string) (*flag.FlagSet, *orderapp.ListFilter) {
	fs := newFlags(name)
	filter := &orderapp.ListFilter{}
	fs.StringVar(&filter.Status, "status", "", "only orders in this status")
	fs.StringVar(&filter.Flavor, "type", "", "goods or supply")
	return fs, filter
}

func cmdOrders(ctx context.Context, a *app, args []string) error {
	fs, filter := listFlags("orders")
	if _, err := parseFlags(fs, args, 0); err != nil {
		return err
	}
	rows, err := a.orders.ListWithActions(ctx, *filter)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		a.printf("No orders\n")
		return nil
	}

	w := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTYPE\tPRODUCT\tQTY\tTOTAL\tSTATUS\tPAYMENT\tACTIONS")
	for _, r := range rows {
		o := r.Order
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%s\t%s\t%s\n",
			o.ID, o.Flavor, o.Product.DisplayName(), o.Quantity, o.TotalPrice.StringFixed(2),
			o.OrderStatus, o.PaymentStatus, actionNames(r.Actions))
	}
	return w.Flush()
}

func actionNames(actions []order.PermittedAction) string {
	if len(actions) == 0 {
		return "-"
	}
	names := make([]string, len(actions))
	for i, pa := range actions {
		names[i] = pa.Action.String()
	}
	return strings.Join(names, ",")
}

func cmdShow(ctx context.Context, a *app, args []string) error {
	args, err := exactly("show", args, 1)
	if err != nil {
		return err
	}
	o, err := a.orders.Refresh(ctx, args[0])
	if err != nil {
		return err
	}
	actions, err := a.orders.Actions(ctx, o.ID)
	if err != nil {
		return err
	}
	printOrder(a, o)
	if len(actions) == 0 {
		a.printf("Nothing to do\n")
		return nil
	}
	a.printf("Actions:\n")
	for _, pa := range actions {
		hint := ""
		if pa.NeedsInput {
			hint = " (needs a value)"
		}
		a.printf("  %-16s %s%s\n", pa.Action, pa.Label, hint)
	}
	return nil
}

func printOrder(a *app, o *order.Order) {
	w := tabwriter.NewWriter(a.out, 0, 0, 1, ' ', 0)
	fmt.Fprintf(w, "Order\t%s (%s)\n", o.ID, o.Flavor)
	fmt.Fprintf(w, "Product\t%s x %d\n", o.Product.DisplayName(), o.Quantity)
	fmt.Fprintf(w, "Total\t%s\n", o.TotalPrice.StringFixed(2))
	fmt.Fprintf(w, "Status\t%s\n", o.OrderStatus.Label())
	fmt.Fprintf(w, "Payment\t%s\n", o.PaymentStatus.Label())
	fmt.Fprintf(w, "Buyer\t%s\n", o.Buyer.DisplayName())
	if o.Supplier != nil {
		fmt.Fprintf(w, "Supplier\t%s\n", o.SupplierName())
	}
	if o.Driver != nil {
		fmt.Fprintf(w, "Driver\t%s\n", o.DriverName())
	}
	if o.DeliveryAddress != "" {
		fmt.Fprintf(w, "Deliver to\t%s\n", o.DeliveryAddress)
	}
	if !o.IsComplete() {
		fmt.Fprintf(w, "Incomplete\t%s\n", strings.Join(o.Problems, ", "))
	}
	_ = w.Flush()
}

func cmdCreate(ctx context.Context, a *app, args []string) error {
	fs := newFlags("create")
	supplier := fs.String("supplier", "", "supplier user ID")
	price := fs.String("price", "", "total price of a goods order")
	address := fs.String("address", "", "delivery address")
	payment := fs.String("payment", "", "payment method")
	notes := fs.String("notes", "", "notes for the supplier")
	args, err := parseFlags(fs, args, 3)
	if err != nil {
		return err
	}
	qty, err := strconv.Atoi(args[2])
	if err != nil {
		return &usageError{cmd: "create", msg: fmt.Sprintf("quantity %q is not a number", args[2])}
	}
	total := decimal.Zero
	if *price != "" {
		if total, err = decimal.NewFromString(*price); err != nil {
			return &usageError{cmd: "create", msg: fmt.Sprintf("price %q is not a number", *price)}
		}
	}

	o, err := a.orders.Create(ctx, orderapp.CreateOrderInput{
		Flavor:          args[0],
		ProductID:       args[1],
		SupplierID:      *supplier,
		Quantity:        qty,
		TotalPrice:      total,
		PaymentMethod:   *payment,
		DeliveryAddress: *address,
		Notes:           *notes,
	})
	if err != nil {
		return err
	}
	a.printf("Created order %s\n", o.ID)
	printOrder(a, o)
	return nil
}

func cmdAct(ctx context.Context, a *app, args []string) error {
	if len(args) != 2 && len(args) != 3 {
		_, err := exactly("act", args, 2)
		return err
	}
	action, ok := order.ParseAction(args[1])
	if !ok {
		return &usageError{cmd: "act", msg: fmt.Sprintf("unknown action %q", args[1])}
	}
	var params orderapp.ActionParams
	if len(args) == 3 {
		switch action {
		case order.ActionSubmitPayment:
			amount, err := decimal.NewFromString(args[2])
			if err != nil {
				return &usageError{cmd: "act", msg: fmt.Sprintf("amount %q is not a number", args[2])}
			}
			params.Amount = amount
		case order.ActionAssignDriver:
			params.DriverID = args[2]
		default:
			return &usageError{cmd: "act", msg: fmt.Sprintf("%s takes no value", action)}
		}
	}
	return perform(ctx, a, args[0], action, params)
}

func cmdPay(ctx context.Context, a *app, args []string) error {
	args, err := exactly("pay", args, 2)
	if err != nil {
		return err
	}
	amount, err := decimal.NewFromString(args[1])
	if err != nil {
		return &usageError{cmd: "pay", msg: fmt.Sprintf("amount %q is not a number", args[1])}
	}
	return perform(ctx, a, args[0], order.ActionSubmitPayment, orderapp.ActionParams{Amount: amount})
}

func cmdAssign(ctx context.Context, a *app, args []string) error {
	args, err := exactly("assign", args, 2)
	if err != nil {
		return err
	}
	return perform(ctx, a, args[0], order.ActionAssignDriver, orderapp.ActionParams{DriverID: args[1]})
}

// perform runs an action against the server's current copy of the order
func perform(ctx context.Context, a *app, id string, action order.Action, params orderapp.ActionParams) error {
	if _, err := a.orders.Refresh(ctx, id); err != nil {
		return err
	}
	o, err := a.orders.Perform(ctx, id, action, params)
	if err != nil {
		return err
	}
	a.printf("%s: %s -> status %s, payment %s\n", o.ID, action, o.OrderStatus, o.PaymentStatus)
	return nil
}

// ============================================
// Documents
// ============================================

func cmdReceipt(ctx context.Context, a *app, args []string) error {
	args, err := exactly("receipt", args, 2)
	if err != nil {
		return err
	}
	id, path := args[0], args[1]
	format, ok := receipt.FormatForPath(path)
	if !ok {
		return &usageError{cmd: "receipt", msg: "output must end in .pdf or .html"}
	}
	o, err := a.orders.Refresh(ctx, id)
	if err != nil {
		return err
	}
	doc, err := a.receipts.Generate(ctx, o, format)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, doc.Content, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	a.printf("Wrote receipt of %s to %s\n", o.ID, path)
	if doc.DownloadURL != "" {
		a.printf("Archived copy: %s\n", doc.DownloadURL)
	}
	return nil
}

func cmdReport(ctx context.Context, a *app, args []string) error {
	fs, filter := listFlags("report")
	args, err := parseFlags(fs, args, 1)
	if err != nil {
		return err
	}
	listed, err := a.orders.ListWithActions(ctx, *filter)
	if err != nil {
		return err
	}
	rows := make([]receipt.Row, 0, len(listed))
	for _, l := range listed {
		row := receipt.Row{Order: l.Order}
		for _, pa := range l.Actions {
			row.Actions = append(row.Actions, pa.Action)
		}
		rows = append(rows, row)
	}

	title := "Orders"
	if sess := a.sessions.Snapshot(); sess != nil {
		title = "Orders of " + displayName(sess.Name, sess.Email)
	}
	html, err := a.receipts.Report(ctx, title, rows)
	if err != nil {
		return err
	}
	if err := os.WriteFile(args[0], html, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", args[0], err)
	}
	a.printf("Wrote %d orders to %s\n", len(rows), args[0])
	return nil
}

// ============================================
// Chat
// ============================================

func cmdChat(ctx context.Context, a *app, args []string) error {
	if len(args) == 0 {
		_, err := exactly("chat", args, 1)
		return err
	}
	peer := args[0]
	if len(args) > 1 {
		if _, err := a.chat.Send(ctx, peer, strings.Join(args[1:], " ")); err != nil {
			return err
		}
	}
	msgs, err := a.chat.List(ctx, peer)
	if err != nil {
		return err
	}
	if len(msgs) == 0 {
		a.printf("No messages yet\n")
		return nil
	}
	self := a.selfID()
	for _, m := range msgs {
		printMessage(a, m, self)
	}
	return nil
}

func cmdWatch(ctx context.Context, a *app, args []string) error {
	args, err := exactly("watch", args, 1)
	if err != nil {
		return err
	}
	self := a.selfID()
	printed := make(map[string]struct{})
	err = a.chat.Watch(ctx, args[0], func(msgs []chat.Message) {
		for _, m := range msgs {
			if m.Pending {
				continue
			}
			if _, seen := printed[m.ID]; seen {
				continue
			}
			printed[m.ID] = struct{}{}
			printMessage(a, m, self)
		}
	})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (a *app) selfID() string {
	if sess := a.sessions.Snapshot(); sess != nil {
		return sess.UserID
	}
	return ""
}

func printMessage(a *app, m chat.Message, self string) {
	from := m.From
	if m.IsFrom(self) {
		from = "you"
	}
	a.printf("[%s] %s: %s\n", m.SentAt.Local().Format("Jan 2 15:04"), from, m.Text)
}
