package main

import (
	"fmt"
	"log"
	"os"

	"github.com/mrlokans/foxtales/internal/cli"
	"github.com/mrlokans/foxtales/internal/config"
	"github.com/mrlokans/foxtales/internal/entrypoint"
)

// Version information - set at build time via ldflags
var (
	Version = "dev"
	Commit  = "unknown"
)

// Command is a CLI subcommand.
type Command interface {
	ParseFlags(args []string) error
	Run() error
}

func main() {
	if err := config.LoadEnvFiles(config.DefaultEnvFile); err != nil {
		log.Fatalf("Failed to load %s: %v", config.DefaultEnvFile, err)
	}

	// If no arguments or "serve" command, run the HTTP server
	if len(os.Args) < 2 || os.Args[1] == "serve" {
		cfg := config.NewConfig()
		entrypoint.Run(cfg, Version)
		return
	}

	command := os.Args[1]
	args := os.Args[2:]

	var cmd Command
	switch command {
	case "list":
		cmd = cli.NewListCommand()
	case "download":
		cmd = cli.NewDownloadCommand()
	case "import":
		cmd = cli.NewImportCommand()
	case "progress":
		cmd = cli.NewProgressCommand()
	case "sync":
		cmd = cli.NewSyncCommand()
	case "pending":
		cmd = cli.NewPendingCommand()
	case "token":
		cmd = cli.NewTokenCommand()
	case "version":
		fmt.Printf("foxtales %s (%s)\n", Version, Commit)
		return
	case "-h", "--help", "help":
		printUsage()
		return
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}

	if err := cmd.ParseFlags(args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if err := cmd.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, "Usage: %s <command> [options]\n\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "Commands:\n")
	fmt.Fprintf(os.Stderr, "  serve      Start the HTTP server (default if no command given)\n")
	fmt.Fprintf(os.Stderr, "  list       List downloaded books, or -available for the server's books\n")
	fmt.Fprintf(os.Stderr, "  download   Download a book with its cover and chapters\n")
	fmt.Fprintf(os.Stderr, "  import     Import a book from a local JSON file\n")
	fmt.Fprintf(os.Stderr, "  progress   Show or record reading progress and read status\n")
	fmt.Fprintf(os.Stderr, "  sync       Send queued updates to the books server\n")
	fmt.Fprintf(os.Stderr, "  pending    Show queued updates\n")
	fmt.Fprintf(os.Stderr, "  token      Store, describe or clear the books server token\n")
	fmt.Fprintf(os.Stderr, "  version    Print the version\n")
	fmt.Fprintf(os.Stderr, "\nUse '%s <command> -h' for help on a specific command.\n", os.Args[0])
}
