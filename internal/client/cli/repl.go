package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isLoggedIn() bool
	Login(ctx context.Context) error
	CreateProject(ctx context.Context) error
	Use(ctx context.Context) error
	Lock(ctx context.Context) error
	Recover(ctx context.Context) error
	Rotate(ctx context.Context) error
	Set(ctx context.Context) error
	Get(ctx context.Context) error
	List(ctx context.Context) error
	Share(ctx context.Context) error
	Reveal(ctx context.Context) error
}

// runREPL reads a line, parses the first token as the command and dispatches
// to methods on 'a'. The loop exits on scanner EOF or when the user types
// "exit" or "quit". Command handlers report their own errors; the loop stays
// resilient and focused on I/O.
func runREPL(a execIface, statusFn func() string, scanner *bufio.Scanner) {
	ctx := context.Background()

	for {
		printlnFn(fmt.Sprintf("vault> %s > ", statusFn()))
		if !scanner.Scan() {
			return
		}
		line := scanner.Text()
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd := parts[0]

		switch cmd {
		case "help":
			if a.isLoggedIn() {
				printlnFn("Available commands: create, use, lock, recover, rotate, set, get, (l)ist, share, reveal, exit")
			} else {
				printlnFn("Available commands: login, reveal, exit")
			}

		case "login":
			_ = a.Login(ctx)

		case "create":
			_ = a.CreateProject(ctx)

		case "use":
			_ = a.Use(ctx)

		case "lock":
			_ = a.Lock(ctx)

		case "recover":
			_ = a.Recover(ctx)

		case "rotate":
			_ = a.Rotate(ctx)

		case "set":
			_ = a.Set(ctx)

		case "get":
			_ = a.Get(ctx)

		case "l", "list":
			_ = a.List(ctx)

		case "share":
			_ = a.Share(ctx)

		case "reveal":
			_ = a.Reveal(ctx)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}
	}
}
