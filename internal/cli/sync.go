package cli

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sort"

	"github.com/mrlokans/foxtales/internal/entities"
)

// SyncCommand pushes queued updates to the server.
type SyncCommand struct {
	libraryFlags
	Kind string
}

func NewSyncCommand() *SyncCommand {
	return &SyncCommand{libraryFlags: newLibraryFlags()}
}

func (cmd *SyncCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("sync", flag.ExitOnError)
	cmd.register(fs)
	fs.StringVar(&cmd.Kind, "kind", "", "Only sync this kind (update-progress or update-read-status)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s sync [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Send pending progress and read status updates to the books server.\n")
		fmt.Fprintf(os.Stderr, "When the server is unreachable the updates stay queued.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return err
	}
	if cmd.Kind != "" && !entities.SyncKind(cmd.Kind).Valid() {
		return fmt.Errorf("unknown sync kind: %s", cmd.Kind)
	}
	return nil
}

func (cmd *SyncCommand) Run() error {
	app, err := cmd.open()
	if err != nil {
		return err
	}
	defer app.Close()

	ctx := context.Background()

	kinds := entities.SyncKinds
	if cmd.Kind != "" {
		kinds = []entities.SyncKind{entities.SyncKind(cmd.Kind)}
	}

	if cmd.Kind != "" {
		err = app.Engine.SyncKind(ctx, kinds[0])
	} else {
		err = app.Engine.SyncAll(ctx)
	}

	for _, kind := range kinds {
		status, statusErr := app.Engine.Status(ctx, kind)
		if statusErr != nil {
			return statusErr
		}
		fmt.Fprintf(cmd.out, "%-20s %-16s delivered=%d pending=%d\n",
			kind, outcomeLabel(status.LastOutcome), status.Delivered, status.Pending)
	}
	return err
}

func outcomeLabel(outcome entities.SyncOutcome) string {
	if outcome == entities.SyncOutcomeNone {
		return "-"
	}
	return string(outcome)
}

// PendingCommand prints the queued updates of one kind.
type PendingCommand struct {
	libraryFlags
	Kind string
}

func NewPendingCommand() *PendingCommand {
	return &PendingCommand{libraryFlags: newLibraryFlags()}
}

func (cmd *PendingCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("pending", flag.ExitOnError)
	cmd.register(fs)
	fs.StringVar(&cmd.Kind, "kind", string(entities.SyncKindProgress), "Queue to inspect")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s pending [-kind update-progress|update-read-status]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return err
	}
	if !entities.SyncKind(cmd.Kind).Valid() {
		return fmt.Errorf("unknown sync kind: %s", cmd.Kind)
	}
	return nil
}

func (cmd *PendingCommand) Run() error {
	app, err := cmd.open()
	if err != nil {
		return err
	}
	defer app.Close()

	pending, err := app.Queue.Peek(context.Background(), entities.SyncKind(cmd.Kind))
	if err != nil {
		return fmt.Errorf("failed to read queue: %w", err)
	}
	if len(pending) == 0 {
		fmt.Fprintf(cmd.out, "No pending %s updates\n", cmd.Kind)
		return nil
	}

	ids := make([]string, 0, len(pending))
	for id := range pending {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		fmt.Fprintf(cmd.out, "%s\t%s\n", id, pending[id])
	}
	return nil
}
