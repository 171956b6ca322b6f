package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
)

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isLoggedIn() bool
	Login(ctx context.Context) error
	Logout(ctx context.Context) error
	Status(ctx context.Context) error
	Submit(ctx context.Context) error
	Reports(ctx context.Context) error
	Pending(ctx context.Context) error
	Sync(ctx context.Context) error
	Reload(ctx context.Context) error
	Home(ctx context.Context) error
}

// runREPL reads a line from reader, parses the first token as the command,
// and dispatches to methods on 'a'. Unknown commands are reported back to
// the user. The loop exits on EOF, when ctx is done, or when the user types
// "exit" or "quit".
//
// Any errors returned by command handlers are ignored here; handlers report
// their own errors.
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader, w io.Writer) {
	for {
		if ctx.Err() != nil {
			return
		}
		fmt.Fprintf(w, "hk %s> ", statusFn())

		line, err := reader.ReadString('\n')
		parts := strings.Fields(line)
		if len(parts) == 0 {
			if err != nil {
				fmt.Fprintln(w)
				return
			}
			continue
		}

		switch parts[0] {
		case "help":
			if a.isLoggedIn() {
				fmt.Fprintln(w, "Available commands: submit, reports, pending, sync, reload, home, status, logout, exit")
			} else {
				fmt.Fprintln(w, "Available commands: login, home, status, pending, exit")
			}

		case "login":
			_ = a.Login(ctx)

		case "logout":
			_ = a.Logout(ctx)

		case "status":
			_ = a.Status(ctx)

		case "submit", "new":
			_ = a.Submit(ctx)

		case "reports", "l", "list":
			_ = a.Reports(ctx)

		case "pending":
			_ = a.Pending(ctx)

		case "sync":
			_ = a.Sync(ctx)

		case "reload":
			_ = a.Reload(ctx)

		case "home":
			_ = a.Home(ctx)

		case "exit", "quit":
			fmt.Fprintln(w, "Bye!")
			return

		default:
			fmt.Fprintln(w, "Unknown command:", parts[0])
		}

		if err != nil {
			return
		}
	}
}
