// Package cli is the interactive command loop: it parses free-text commands
// into engine operations and renders their results. All behavioral rules live
// in the engine; this layer is a thin I/O wrapper.
package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"atm-ledger-go/internal/common"
	"atm-ledger-go/internal/engine"
	"atm-ledger-go/internal/store"

	"github.com/fatih/color"
)

type CLI struct {
	engine *engine.Engine
	in     *bufio.Reader
	out    io.Writer

	red     *color.Color
	green   *color.Color
	cyan    *color.Color
	yellow  *color.Color
	blue    *color.Color
	magenta *color.Color
}

func New(eng *engine.Engine, in *bufio.Reader, out io.Writer) *CLI {
	return &CLI{
		engine:  eng,
		in:      in,
		out:     out,
		red:     color.New(color.FgRed),
		green:   color.New(color.FgGreen),
		cyan:    color.New(color.FgCyan),
		yellow:  color.New(color.FgYellow),
		blue:    color.New(color.FgBlue),
		magenta: color.New(color.FgMagenta),
	}
}

// Run starts the REPL and blocks until EOF, context cancellation, or a read
// failure. EOF and cancellation are clean exits.
func (c *CLI) Run(ctx context.Context) error {
	common.PrintHeader(c.out, "ATM CLI Enterprise Edition", common.DefaultWidth)
	fmt.Fprintln(c.out, "Commands: login [name], deposit [amount], withdraw [amount], transfer [target] [amount], history, saldo, logout")

	for {
		if ctx.Err() != nil {
			c.farewell()
			return nil
		}

		fmt.Fprint(c.out, ">>> ")
		line, readErr := c.in.ReadString('\n')
		if ctx.Err() != nil {
			fmt.Fprintln(c.out)
			c.farewell()
			return nil
		}
		if strings.TrimSpace(line) != "" {
			c.dispatch(ctx, line)
		}
		if readErr != nil {
			fmt.Fprintln(c.out)
			c.farewell()
			if errors.Is(readErr, io.EOF) {
				return nil
			}
			return readErr
		}
	}
}

func (c *CLI) farewell() {
	c.cyan.Fprintln(c.out, "Leaving the ATM. Goodbye!")
}

func (c *CLI) dispatch(ctx context.Context, line string) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return
	}
	verb, args := fields[0], fields[1:]

	switch {
	case verb == "login" && len(args) == 1:
		c.login(ctx, args[0])
	case verb == "logout" && len(args) == 0:
		c.logout(ctx)
	case verb == "deposit" && len(args) == 1:
		c.deposit(ctx, args[0])
	case verb == "withdraw" && len(args) == 1:
		c.withdraw(ctx, args[0])
	case verb == "transfer" && len(args) == 2:
		c.transfer(ctx, args[0], args[1])
	case verb == "history" && len(args) == 0:
		c.history()
	case verb == "saldo" && len(args) == 0:
		c.saldo()
	default:
		c.red.Fprintln(c.out, "Unrecognized command or wrong format.")
	}
}

func (c *CLI) login(ctx context.Context, name string) {
	result, err := c.engine.Login(ctx, name)
	if result != nil {
		if result.Created {
			if result.AccountNumber != "" {
				c.green.Fprintf(c.out, "New account created! Account number: %s\n", result.AccountNumber)
			} else {
				c.green.Fprintln(c.out, "New account created!")
			}
		}
		for _, notification := range result.Notifications {
			c.yellow.Fprintf(c.out, "[INFO] You received %s from %s\n",
				common.FormatRupiah(notification.Amount), notification.From)
		}
		c.cyan.Fprintf(c.out, "Hello, %s!\n", result.Account)
		c.renderSummary(result.Summary)
	}
	if err != nil {
		c.reportError(err)
	}
}

func (c *CLI) logout(ctx context.Context) {
	result, err := c.engine.Logout(ctx)
	if result.Account != "" {
		c.cyan.Fprintf(c.out, "See you, %s!\n", result.Account)
	}
	if err != nil {
		c.reportError(err)
	}
}

func (c *CLI) deposit(ctx context.Context, amount string) {
	result, err := c.engine.Deposit(ctx, amount)
	if result != nil {
		c.green.Fprintf(c.out, "Deposit successful: %s\n", common.FormatRupiah(result.Amount))
		c.renderSummary(result.Summary)
	}
	if err != nil {
		c.reportError(err)
	}
}

func (c *CLI) withdraw(ctx context.Context, amount string) {
	result, err := c.engine.Withdraw(ctx, amount)
	if result != nil {
		c.green.Fprintf(c.out, "Withdrawal successful: %s\n", common.FormatRupiah(result.Amount))
		c.renderSummary(result.Summary)
	}
	if err != nil {
		c.reportError(err)
	}
}

func (c *CLI) transfer(ctx context.Context, target, amount string) {
	result, err := c.engine.Transfer(ctx, target, amount)
	if result != nil {
		if result.Aborted {
			c.yellow.Fprintln(c.out, "Transfer cancelled.")
			return
		}
		if result.TargetCreated {
			c.green.Fprintf(c.out, "Account %s created!\n", result.Target)
		}
		c.green.Fprintf(c.out, "Transferred %s to %s\n",
			common.FormatRupiah(result.Amount), result.Target)
		c.renderSummary(result.Summary)
	}
	if err != nil {
		c.reportError(err)
	}
}

func (c *CLI) history() {
	entries, err := c.engine.History()
	if err != nil {
		c.reportError(err)
		return
	}
	if len(entries) == 0 {
		c.yellow.Fprintln(c.out, "No transactions yet.")
		return
	}
	c.magenta.Fprintln(c.out, "Transaction history:")
	for _, entry := range entries {
		fmt.Fprintf(c.out, "- %s\n", entry)
	}
}

func (c *CLI) saldo() {
	summary, err := c.engine.Balance()
	if err != nil {
		c.reportError(err)
		return
	}
	c.renderSummary(*summary)
}

func (c *CLI) renderSummary(summary engine.BalanceSummary) {
	title := fmt.Sprintf("Account: %s", summary.Account)
	if summary.AccountNumber != "" {
		title = fmt.Sprintf("%s (no. %s)", title, summary.AccountNumber)
	}

	c.blue.Fprintln(c.out, "Account summary:")
	common.PrintBoxTitle(c.out, title)

	rows := append([]engine.BalanceRow{{Label: "Balance", Amount: summary.Balance}}, summary.Rows...)
	for i, row := range rows {
		fmt.Fprintf(c.out, "%s%-24s %14s\n",
			common.BoxPrefix(i == len(rows)-1), row.Label, common.FormatRupiah(row.Amount))
	}
}

func (c *CLI) reportError(err error) {
	switch {
	case errors.Is(err, store.ErrPersistence):
		c.yellow.Fprintf(c.out, "Warning: ledger not saved, in-memory state differs from disk (%v)\n", err)
	case errors.Is(err, engine.ErrNotLoggedIn):
		c.red.Fprintln(c.out, "Please login first.")
	case errors.Is(err, engine.ErrInvalidAmount):
		c.red.Fprintln(c.out, "Invalid amount. Use a positive whole number.")
	case errors.Is(err, engine.ErrInsufficientFunds):
		c.red.Fprintln(c.out, "Insufficient balance.")
	case errors.Is(err, engine.ErrInvalidTransfer):
		c.red.Fprintln(c.out, "Transfer failed.")
	case errors.Is(err, engine.ErrAuthentication):
		c.red.Fprintln(c.out, "Too many attempts. Login failed.")
	default:
		c.red.Fprintf(c.out, "Error: %v\n", err)
	}
}
