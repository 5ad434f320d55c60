package cli

import (
	"context"
	"flag"
	"fmt"
	"os"
)

// ProgressCommand shows or records the reading position of a book.
type ProgressCommand struct {
	libraryFlags
	BookID   string
	Chapter  int
	Position int
	Read     string
}

func NewProgressCommand() *ProgressCommand {
	return &ProgressCommand{libraryFlags: newLibraryFlags()}
}

func (cmd *ProgressCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("progress", flag.ExitOnError)
	cmd.register(fs)
	fs.StringVar(&cmd.BookID, "id", "", "Identifier of the book (required)")
	fs.IntVar(&cmd.Chapter, "chapter", -1, "Chapter index to record")
	fs.IntVar(&cmd.Position, "position", 0, "Position within the chapter")
	fs.StringVar(&cmd.Read, "read", "", "Mark the book as read (true) or unread (false)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s progress -id <book> [-chapter N -position N] [-read true|false]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Without -chapter or -read the current position is printed.\n")
		fmt.Fprintf(os.Stderr, "Changes are queued for the next sync.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return err
	}
	if cmd.BookID == "" {
		return fmt.Errorf("required flag -id not provided")
	}
	if cmd.Read != "" && cmd.Read != "true" && cmd.Read != "false" {
		return fmt.Errorf("-read must be true or false")
	}
	return nil
}

func (cmd *ProgressCommand) Run() error {
	app, err := cmd.open()
	if err != nil {
		return err
	}
	defer app.Close()

	ctx := context.Background()

	if cmd.Chapter >= 0 {
		recorded, err := app.Tracker.RecordProgress(ctx, cmd.BookID, cmd.Chapter, cmd.Position)
		if err != nil {
			return fmt.Errorf("failed to record progress: %w", err)
		}
		fmt.Fprintf(cmd.out, "Recorded chapter %d, position %d\n", recorded.Chapter, recorded.Position)
	}

	if cmd.Read != "" {
		status, err := app.Tracker.SetReadStatus(ctx, cmd.BookID, cmd.Read == "true")
		if err != nil {
			return fmt.Errorf("failed to set read status: %w", err)
		}
		fmt.Fprintf(cmd.out, "Marked as read: %t\n", status.Read)
	}

	if cmd.Chapter < 0 && cmd.Read == "" {
		position, err := app.Tracker.CurrentProgress(ctx, cmd.BookID)
		if err != nil {
			return fmt.Errorf("failed to load progress: %w", err)
		}
		fmt.Fprintf(cmd.out, "Chapter %d, position %d\n", position.Chapter, position.Position)
	}
	return nil
}
