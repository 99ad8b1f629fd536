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
	isRegistered(ctx context.Context) bool
	Register(ctx context.Context, args []string) error
	Send(ctx context.Context, args []string) error
	SendFile(ctx context.Context, args []string) error
	Resend(ctx context.Context, args []string) error
	Lookup(ctx context.Context, args []string) error
	Contacts(ctx context.Context, args []string) error
	Fetch(ctx context.Context, args []string) error
	Attachments(ctx context.Context) error
	Purge(ctx context.Context) error
	Inbox(ctx context.Context) error
}

// runREPL reads one command per line from in and dispatches it to a until
// EOF or "exit".
//
//	Not registered:
//	  register <identifier> [relay]
//	  attachments | purge | help | exit
//
//	Registered:
//	  send <r1,r2> [body]              text message (body prompted if absent)
//	  sendfile <r1,r2> <path> [--temp] attachment message
//	  resend <message-id>              retry recipients not yet reached
//	  lookup <identifier>              is the identifier registered
//	  contacts [file.json]             import contacts and run discovery
//	  inbox                            fetch waiting messages
//	  fetch <attachment-id>            retry an attachment download
//	  attachments | purge | help | exit
//
// Command errors are printed and the loop continues.
func runREPL(ctx context.Context, a execIface, statusFn func() string, in *bufio.Reader) {
	for {
		printlnFn(fmt.Sprintf("courier %s> ", statusFn()))
		line, err := in.ReadString('\n')
		if err != nil && line == "" {
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		var cerr error
		switch cmd {
		case "help":
			if a.isRegistered(ctx) {
				printlnFn("Available commands: send, sendfile, resend, lookup, contacts, inbox, fetch, attachments, purge, exit")
			} else {
				printlnFn("Available commands: register, attachments, purge, exit")
			}

		case "register":
			cerr = a.Register(ctx, args)

		case "send":
			cerr = a.Send(ctx, args)

		case "sendfile":
			cerr = a.SendFile(ctx, args)

		case "resend":
			cerr = a.Resend(ctx, args)

		case "lookup":
			cerr = a.Lookup(ctx, args)

		case "contacts":
			cerr = a.Contacts(ctx, args)

		case "inbox":
			cerr = a.Inbox(ctx)

		case "fetch":
			cerr = a.Fetch(ctx, args)

		case "attachments":
			cerr = a.Attachments(ctx)

		case "purge":
			cerr = a.Purge(ctx)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}

		if cerr != nil {
			printlnFn("Error:", cerr)
		}
	}
}
