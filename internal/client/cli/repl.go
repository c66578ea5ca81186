package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the command surface the REPL dispatches to. Every
// handler receives the words that followed the command name.
type execIface interface {
	Users(ctx context.Context, args []string) error
	AddUser(ctx context.Context, args []string) error
	Select(ctx context.Context, args []string) error
	Add(ctx context.Context, args []string) error
	List(ctx context.Context, args []string) error
	Delete(ctx context.Context, args []string) error
	Import(ctx context.Context, args []string) error
	Export(ctx context.Context, args []string) error
	Stats(ctx context.Context, args []string) error
	SignUp(ctx context.Context, args []string) error
	SignIn(ctx context.Context, args []string) error
	SignOut(ctx context.Context, args []string) error
	Status(ctx context.Context, args []string) error
}

const helpText = `Available commands:
  users                         list users (* marks the selected one)
  adduser <name>                add a user and select it
  select <id|name>              select a user
  add <value> [period] [med=units ...]
                                record a measurement for the selected user
  list [days]                   show the selected user's entries
  delete <id>                   delete an entry
  import [file]                 import a CSV file (or paste it)
  export [file]                 export the selected user's entries as CSV
  stats [days]                  average, min, max and per-period averages
  signup | signin | signout     manage the cloud session
  status                        session and sync status
  exit | quit                   leave the program`

// runREPL starts a read-eval-print loop for the glucokeeper CLI.
//
// It reads a line from scanner, parses the first token as the command and
// dispatches to a. Handler errors are printed and the loop continues. The
// loop exits on EOF or when the user types "exit" or "quit". Handlers that
// prompt for more input read from the same reader.
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader) {
	handlers := map[string]func(context.Context, []string) error{
		"users":   a.Users,
		"adduser": a.AddUser,
		"select":  a.Select,
		"add":     a.Add,
		"l":       a.List,
		"list":    a.List,
		"delete":  a.Delete,
		"import":  a.Import,
		"export":  a.Export,
		"stats":   a.Stats,
		"signup":  a.SignUp,
		"signin":  a.SignIn,
		"signout": a.SignOut,
		"status":  a.Status,
	}

	for {
		printlnFn(fmt.Sprintf("gk %s> ", statusFn()))
		line, err := reader.ReadString('\n')
		if err != nil && line == "" {
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		switch cmd {
		case "help":
			printlnFn(helpText)
			continue
		case "exit", "quit":
			printlnFn("Bye!")
			return
		}

		h, ok := handlers[cmd]
		if !ok {
			printlnFn("Unknown command:", cmd)
			continue
		}
		if err := h(ctx, args); err != nil {
			printlnFn("Error:", err)
		}
	}
}
