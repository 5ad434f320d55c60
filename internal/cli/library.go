package cli

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/mrlokans/foxtales/internal/database"
	"github.com/mrlokans/foxtales/internal/entities"
	"github.com/mrlokans/foxtales/internal/library"
)

// ListCommand prints the local library or the books available remotely.
type ListCommand struct {
	libraryFlags
	Remote bool
}

func NewListCommand() *ListCommand {
	return &ListCommand{libraryFlags: newLibraryFlags()}
}

func (cmd *ListCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	cmd.register(fs)
	fs.BoolVar(&cmd.Remote, "available", false, "List the books on the server instead of the local library")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s list [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "List downloaded books, most recently read first.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
	}

	return fs.Parse(args)
}

func (cmd *ListCommand) Run() error {
	app, err := cmd.open()
	if err != nil {
		return err
	}
	defer app.Close()

	ctx := context.Background()
	w := tabwriter.NewWriter(cmd.out, 0, 4, 2, ' ', 0)

	if cmd.Remote {
		available, err := app.Downloader.Available(ctx)
		if err != nil {
			return fmt.Errorf("failed to list remote books: %w", err)
		}
		fmt.Fprintln(w, "ID\tTITLE\tFORMAT")
		for _, book := range available {
			fmt.Fprintf(w, "%s\t%s\t%s\n", book.Identifier, book.Title, book.Format)
		}
		return w.Flush()
	}

	records, err := app.Books.ListBooks(ctx)
	if err != nil {
		return fmt.Errorf("failed to list books: %w", err)
	}
	if len(records) == 0 {
		fmt.Fprintln(cmd.out, "Library is empty")
		return nil
	}

	fmt.Fprintln(w, "ID\tTITLE\tCHAPTER\tPOSITION\tREAD\tLAST READ")
	for _, record := range records {
		lastRead := "-"
		if record.Progress.LastUpdated > 0 {
			lastRead = humanize.Time(time.Unix(record.Progress.LastUpdated, 0))
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%t\t%s\n",
			record.Identifier, record.Title, record.Progress.Chapter, record.Progress.Position,
			record.ReadStatus.Read, lastRead)
	}
	return w.Flush()
}

// DownloadCommand fetches one book from the server into the local library.
type DownloadCommand struct {
	libraryFlags
	BookID string
}

func NewDownloadCommand() *DownloadCommand {
	return &DownloadCommand{libraryFlags: newLibraryFlags()}
}

func (cmd *DownloadCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("download", flag.ExitOnError)
	cmd.register(fs)
	fs.StringVar(&cmd.BookID, "id", "", "Identifier of the book to download (required)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s download -id <book> [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Download a book with its cover and chapters. Local progress is kept.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return err
	}
	if cmd.BookID == "" {
		return fmt.Errorf("required flag -id not provided")
	}
	return nil
}

func (cmd *DownloadCommand) Run() error {
	app, err := cmd.open()
	if err != nil {
		return err
	}
	defer app.Close()

	record, err := app.Downloader.Download(context.Background(), cmd.BookID)
	if err != nil {
		return fmt.Errorf("failed to download %s: %w", cmd.BookID, err)
	}

	fmt.Fprintf(cmd.out, "Downloaded %q (%d chapters)\n", record.Title, len(record.Chapters))
	return nil
}

// importFile is the JSON document read by the import command.
type importFile struct {
	Metadata entities.BookMetadata     `json:"metadata"`
	Cover    string                    `json:"cover"`
	Chapters []entities.ChapterPayload `json:"chapters"`
}

// ImportCommand stores a book from a local JSON file without contacting the server.
type ImportCommand struct {
	libraryFlags
	File string
}

func NewImportCommand() *ImportCommand {
	return &ImportCommand{libraryFlags: newLibraryFlags()}
}

func (cmd *ImportCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	cmd.register(fs)
	fs.StringVar(&cmd.File, "file", "", "JSON file with metadata, cover and chapters (required)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s import -file <book.json> [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Import a book into the local library.\n")
		fmt.Fprintf(os.Stderr, "The file holds {\"metadata\": {...}, \"cover\": \"<base64>\", \"chapters\": [{\"id\": ..., \"data\": ...}]}.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return err
	}
	if cmd.File == "" {
		return fmt.Errorf("required flag -file not provided")
	}
	return nil
}

func (cmd *ImportCommand) Run() error {
	raw, err := os.ReadFile(cmd.File)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", cmd.File, err)
	}
	var book importFile
	if err := json.Unmarshal(raw, &book); err != nil {
		return fmt.Errorf("failed to parse %s: %w", cmd.File, err)
	}
	book.Metadata.Identifier = database.Key(book.Metadata.Identifier)
	if book.Metadata.Identifier == "" {
		return fmt.Errorf("%s: metadata.identifier is required", cmd.File)
	}

	app, err := cmd.open()
	if err != nil {
		return err
	}
	defer app.Close()

	record, err := app.Downloader.Import(context.Background(), book.Metadata, book.Cover, book.Chapters)
	var partial *library.PartialImportError
	if errors.As(err, &partial) {
		fmt.Fprintf(cmd.out, "Imported %q partially: %d of %d chapters saved\n", partial.BookID, partial.Saved, partial.Total)
	}
	if err != nil {
		return fmt.Errorf("failed to import %s: %w", cmd.File, err)
	}

	fmt.Fprintf(cmd.out, "Imported %q (%d chapters)\n", record.Title, len(record.Chapters))
	return nil
}
