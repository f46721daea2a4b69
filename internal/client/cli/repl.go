package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/picdrop/internal/client/services"
	"github.com/dmitrijs2005/picdrop/internal/client/view"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

var errUsage = errors.New("usage")

// execIface defines the command surface the REPL needs. The real App type
// satisfies it; tests can provide a lightweight stub.
type execIface interface {
	state() view.State

	Register(ctx context.Context, args []string) error
	Login(ctx context.Context, args []string) error
	ChangePassword(ctx context.Context, args []string) error
	Logout(ctx context.Context, args []string) error

	Contacts(ctx context.Context, args []string) error
	Search(ctx context.Context, args []string) error
	Select(ctx context.Context, args []string) error
	Unselect(ctx context.Context, args []string) error
	DeleteContact(ctx context.Context, args []string) error

	Stage(ctx context.Context, args []string) error
	Unstage(ctx context.Context, args []string) error
	Send(ctx context.Context, args []string) error

	Sent(ctx context.Context, args []string) error
	Received(ctx context.Context, args []string) error
	Open(ctx context.Context, args []string) error
	Download(ctx context.Context, args []string) error
	Mark(ctx context.Context, args []string) error
	Unmark(ctx context.Context, args []string) error
	DownloadSelected(ctx context.Context, args []string) error
	Link(ctx context.Context, args []string) error
}

type handler func(ctx context.Context, args []string) error

type command struct {
	run   handler
	usage string
}

func commandsFor(a execIface, s view.State) map[string]command {
	switch s {
	case view.Unauthenticated:
		return map[string]command{
			"register": {a.Register, "register <username>"},
			"login":    {a.Login, "login <username>"},
		}
	case view.MustChangeCredential:
		return map[string]command{
			"passwd": {a.ChangePassword, "passwd"},
			"logout": {a.Logout, "logout"},
		}
	default:
		return map[string]command{
			"contacts":   {a.Contacts, "contacts [refresh]"},
			"search":     {a.Search, "search <text>"},
			"select":     {a.Select, "select <username>"},
			"unselect":   {a.Unselect, "unselect"},
			"delcontact": {a.DeleteContact, "delcontact <username>"},
			"stage":      {a.Stage, "stage <path>"},
			"unstage":    {a.Unstage, "unstage"},
			"send":       {a.Send, "send"},
			"sent":       {a.Sent, "sent [refresh]"},
			"received":   {a.Received, "received [refresh]"},
			"open":       {a.Open, "open <n>"},
			"download":   {a.Download, "download <n>"},
			"mark":       {a.Mark, "mark <n>..."},
			"unmark":     {a.Unmark, "unmark <n>..."},
			"dlselected": {a.DownloadSelected, "dlselected"},
			"link":       {a.Link, "link <n>"},
			"logout":     {a.Logout, "logout"},
		}
	}
}

func helpText(cmds map[string]command) string {
	var usages []string
	for _, name := range helpOrder {
		if c, ok := cmds[name]; ok {
			usages = append(usages, c.usage)
		}
	}
	usages = append(usages, "help", "exit")
	return "Available commands: " + strings.Join(usages, ", ")
}

var helpOrder = []string{
	"register", "login", "passwd",
	"contacts", "search", "select", "unselect", "delcontact",
	"stage", "unstage", "send",
	"sent", "received", "open", "download", "mark", "unmark", "dlselected", "link",
	"logout",
}

// runREPL reads commands from scanner until EOF or "exit"/"quit". The set
// of accepted commands follows the current view state. Handler errors are
// printed and the loop continues.
func runREPL(ctx context.Context, a execIface, statusFn func() string, scanner *bufio.Scanner) {
	for {
		printlnFn(fmt.Sprintf("picdrop %s> ", statusFn()))
		if !scanner.Scan() {
			return
		}
		parts := strings.Fields(scanner.Text())
		if len(parts) == 0 {
			continue
		}
		name, args := parts[0], parts[1:]

		cmds := commandsFor(a, a.state())

		switch name {
		case "help":
			printlnFn(helpText(cmds))
			continue
		case "exit", "quit":
			printlnFn("Bye!")
			return
		}

		c, ok := cmds[name]
		if !ok {
			printlnFn("Unknown command:", name)
			continue
		}

		if err := c.run(ctx, args); err != nil {
			if errors.Is(err, errUsage) {
				printlnFn("Usage:", c.usage)
				continue
			}
			if errors.Is(err, errNoListing) {
				printlnFn("Error:", err.Error())
				continue
			}
			printlnFn("Error:", services.UserMessage(err))
		}
	}
}
