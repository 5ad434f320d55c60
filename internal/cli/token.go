package cli

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

// TokenCommand manages the bearer token sent to the books server.
type TokenCommand struct {
	libraryFlags
	Set   bool
	Clear bool

	in io.Reader
}

func NewTokenCommand() *TokenCommand {
	return &TokenCommand{libraryFlags: newLibraryFlags(), in: os.Stdin}
}

func (cmd *TokenCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("token", flag.ExitOnError)
	cmd.register(fs)
	fs.BoolVar(&cmd.Set, "set", false, "Read a token from stdin and store it encrypted")
	fs.BoolVar(&cmd.Clear, "clear", false, "Remove the stored token")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s token [-set | -clear]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Without options, describes the stored token without printing it.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  echo \"$TOKEN\" | %s token -set\n", os.Args[0])
	}

	if err := fs.Parse(args); err != nil {
		return err
	}
	if cmd.Set && cmd.Clear {
		return fmt.Errorf("-set and -clear are mutually exclusive")
	}
	return nil
}

// SetInput replaces stdin as the token source.
func (cmd *TokenCommand) SetInput(r io.Reader) {
	cmd.in = r
}

func (cmd *TokenCommand) Run() error {
	app, err := cmd.open()
	if err != nil {
		return err
	}
	defer app.Close()

	ctx := context.Background()

	switch {
	case cmd.Set:
		line, err := bufio.NewReader(cmd.in).ReadString('\n')
		if err != nil && err != io.EOF {
			return fmt.Errorf("failed to read token: %w", err)
		}
		if err := app.Tokens.SetToken(ctx, strings.TrimSpace(line)); err != nil {
			return err
		}
		fmt.Fprintln(cmd.out, "Token stored")
		return nil

	case cmd.Clear:
		if err := app.Tokens.ClearToken(ctx); err != nil {
			return err
		}
		fmt.Fprintln(cmd.out, "Token cleared")
		return nil
	}

	info, err := app.Tokens.Describe(ctx, time.Now())
	if err != nil {
		return err
	}
	switch {
	case !info.Present:
		fmt.Fprintln(cmd.out, "No token stored")
	case info.Opaque:
		fmt.Fprintln(cmd.out, "Token stored (opaque)")
	default:
		fmt.Fprintf(cmd.out, "Token stored for %q", info.Subject)
		if info.ExpiresAt != nil {
			fmt.Fprintf(cmd.out, ", expires %s", info.ExpiresAt.Format(time.RFC3339))
		}
		if info.Expired {
			fmt.Fprint(cmd.out, " (expired)")
		}
		fmt.Fprintln(cmd.out)
	}
	return nil
}
