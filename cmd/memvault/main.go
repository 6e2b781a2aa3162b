package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/peterh/liner"

	"github.com/lexlapax/memvault/pkg/log"
	"github.com/lexlapax/memvault/pkg/memory"
	"github.com/lexlapax/memvault/pkg/memvault"
	"github.com/lexlapax/memvault/pkg/migration"
	"github.com/lexlapax/memvault/pkg/store"
)

// Constants for the interactive command interface
const (
	cmdHelp     = "!help"
	cmdQuit     = "!quit"
	cmdRemember = "!remember"
	cmdFact     = "!fact"
	cmdSearch   = "!search"
	cmdStats    = "!stats"
	cmdCleanup  = "!cleanup"
	cmdPurge    = "!purge"
)

// Interactive help text
const helpText = `
memvault - Command Reference:
-----------------------------------------
!help                 - Show this help message
!remember <text>      - Store a conversational memory
!fact <text>          - Store a personal-information record
!search <query>       - Retrieve memories by semantic search
!stats                - Show store statistics
!cleanup              - Dry-run quality sweep over stored records
!purge                - Delete all quarantined records
!quit                 - Exit the application

Notes:
- Regular text input is treated as a search query
- Tab completion is available for commands
- Use up/down arrows for command history`

const usageText = `Usage: memvault [-config <path>] <command>

Commands:
  repl      Interactive session (default)
  stats     Show store statistics
  cleanup   Quality sweep; dry run unless -apply is given
  purge     Delete all quarantined records
  migrate   Copy the store onto a new configuration`

// historyFile is the file where command history is stored
const historyFile = ".memvault_history"

func main() {
	configPath := flag.String("config", "", "Path to configuration file")
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, usageText)
		fmt.Fprintln(os.Stderr, "\nFlags:")
		flag.PrintDefaults()
	}
	flag.Parse()

	// Local overrides like OPENAI_API_KEY live in .env during development
	_ = godotenv.Load()

	log.Setup(log.Config{
		Level:  log.InfoLevel,
		Format: log.TextFormat,
	})

	command := flag.Arg(0)
	if command == "" {
		command = "repl"
	}

	ctx := context.Background()
	client, err := openClient(ctx, *configPath)
	if err != nil {
		log.Error("Failed to initialize memvault client", "error", err)
		os.Exit(1)
	}
	defer client.Close()

	var runErr error
	switch command {
	case "repl":
		runREPL(ctx, client)
	case "stats":
		printStats(client.Stats())
	case "cleanup":
		runErr = runCleanup(ctx, client, flag.Args()[1:])
	case "purge":
		runErr = runPurge(ctx, client)
	case "migrate":
		runErr = runMigrate(ctx, client, flag.Args()[1:])
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n%s\n", command, usageText)
		os.Exit(2)
	}

	if runErr != nil {
		log.Error("Command failed", "command", command, "error", runErr)
		os.Exit(1)
	}
}

func openClient(ctx context.Context, configPath string) (*memvault.Client, error) {
	if configPath == "" {
		return memvault.New(ctx, nil)
	}
	return memvault.NewFromConfigFile(ctx, configPath)
}

// runCleanup sweeps the stored records through the quality gate. Without
// -apply it only reports; with -apply it first copies the snapshot aside.
func runCleanup(ctx context.Context, client *memvault.Client, args []string) error {
	fs := flag.NewFlagSet("cleanup", flag.ExitOnError)
	apply := fs.Bool("apply", false, "Apply changes instead of reporting them")
	if err := fs.Parse(args); err != nil {
		return err
	}

	report, err := client.Cleanup(ctx, *apply, nil)
	if err != nil {
		return err
	}

	mode := "dry run"
	if report.Applied {
		mode = "applied"
	}
	fmt.Printf("Cleanup (%s): %d evaluated, %d kept, %d quarantined, %d deleted, %d retagged\n",
		mode, report.Evaluated, report.Kept, report.Quarantined, report.Deleted, report.Retagged)
	if report.BackupPath != "" {
		fmt.Println("Snapshot backup:", report.BackupPath)
	}
	if !report.Applied && report.Quarantined+report.Deleted+report.Retagged > 0 {
		fmt.Println("Run again with -apply to make these changes.")
	}
	return nil
}

func runPurge(ctx context.Context, client *memvault.Client) error {
	purged, err := client.Purge(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Purged %d quarantined records\n", purged)
	return nil
}

// runMigrate copies every record into a store built from the target
// configuration, recomputing embeddings where the dimensions differ.
func runMigrate(ctx context.Context, client *memvault.Client, args []string) error {
	fs := flag.NewFlagSet("migrate", flag.ExitOnError)
	targetConfig := fs.String("target-config", "", "Path to the target configuration file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *targetConfig == "" {
		return fmt.Errorf("migrate requires -target-config")
	}

	target, err := memvault.NewFromConfigFile(ctx, *targetConfig)
	if err != nil {
		return fmt.Errorf("failed to initialize target: %w", err)
	}
	defer target.Close()

	summary, err := migration.NewCoordinator(0).Migrate(ctx, client.Store(), target.Store(), target.Embedder())
	if err != nil {
		return err
	}

	fmt.Printf("Migrated %d records (%d messages, %d personal info), %d re-embedded\n",
		summary.Total, summary.Messages, summary.PersonalInfo, summary.Reembedded)
	fmt.Printf("Target index holds %d vectors, snapshot version %d\n",
		summary.IndexCount, summary.Version)
	return nil
}

func printStats(st store.Stats) {
	fmt.Println("Records:     ", st.ActiveRecords)
	fmt.Println("  messages:  ", st.Messages)
	fmt.Println("  personal:  ", st.PersonalInfo)
	fmt.Println("  quarantined:", st.Quarantined)
	fmt.Println("Index:       ", st.IndexCount, "vectors, dimension", st.Dimension)
	fmt.Println("Version:     ", st.Version)
}

// runREPL starts the interactive session.
func runREPL(ctx context.Context, client *memvault.Client) {
	line := liner.NewLiner()
	defer line.Close()

	line.SetCtrlCAborts(true)
	line.SetMultiLineMode(false)

	// Set tab completion
	line.SetCompleter(func(prefix string) (c []string) {
		commands := []string{cmdHelp, cmdQuit, cmdRemember, cmdFact, cmdSearch, cmdStats, cmdCleanup, cmdPurge}
		for _, cmd := range commands {
			if strings.HasPrefix(cmd, prefix) {
				c = append(c, cmd)
			}
		}
		return
	})

	// Load history from file if it exists
	if f, err := os.Open(historyFile); err == nil {
		line.ReadHistory(f)
		f.Close()
	}

	// Save history when exiting
	defer func() {
		if f, err := os.Create(historyFile); err == nil {
			line.WriteHistory(f)
			f.Close()
		}
	}()

	fmt.Println("\n=== memvault ===")
	st := client.Stats()
	fmt.Printf("%d records, %d indexed vectors (dimension %d)\n",
		st.ActiveRecords, st.IndexCount, st.Dimension)
	fmt.Println("Type !help for available commands.")

	for {
		input, err := line.Prompt("memvault> ")
		if err != nil {
			if err == liner.ErrPromptAborted || err == io.EOF {
				fmt.Println("\nGoodbye!")
				break
			}
			fmt.Printf("Error reading input: %v\n", err)
			continue
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}

		line.AppendHistory(input)

		if input == cmdQuit {
			fmt.Println("Goodbye!")
			break
		}

		processCommand(ctx, input, client)
	}
}

// processCommand handles a single interactive command.
func processCommand(ctx context.Context, input string, client *memvault.Client) {
	command := input
	arg := ""
	if idx := strings.IndexByte(input, ' '); idx > 0 {
		command = input[:idx]
		arg = strings.TrimSpace(input[idx+1:])
	}

	switch command {
	case cmdHelp:
		fmt.Println(helpText)

	case cmdRemember:
		if arg == "" {
			fmt.Println("Usage: !remember <text>")
			return
		}
		id, err := client.Remember(ctx, arg, memory.Metadata{
			Channel: memory.ChannelChat,
			Sender:  memory.SenderUser,
		}, "")
		reportInsert(id, err)

	case cmdFact:
		if arg == "" {
			fmt.Println("Usage: !fact <text>")
			return
		}
		id, err := client.RememberFact(ctx, arg)
		reportInsert(id, err)

	case cmdStats:
		printStats(client.Stats())

	case cmdCleanup:
		if err := runCleanup(ctx, client, nil); err != nil {
			fmt.Printf("Cleanup failed: %v\n", err)
		}

	case cmdPurge:
		if err := runPurge(ctx, client); err != nil {
			fmt.Printf("Purge failed: %v\n", err)
		}

	case cmdSearch:
		if arg == "" {
			fmt.Println("Usage: !search <query>")
			return
		}
		runSearch(ctx, client, arg)

	default:
		// Bare text is a search query
		runSearch(ctx, client, input)
	}
}

func reportInsert(id string, err error) {
	if err != nil {
		var rejected *store.RejectedError
		if errors.As(err, &rejected) {
			fmt.Printf("Not stored: %s\n", rejected.Reason)
			return
		}
		fmt.Printf("Failed to store: %v\n", err)
		return
	}
	fmt.Println("Stored as", id)
}

func runSearch(ctx context.Context, client *memvault.Client, query string) {
	hits, err := client.Search(ctx, query, 5)
	if err != nil {
		fmt.Printf("Search failed: %v\n", err)
		return
	}
	if len(hits) == 0 {
		fmt.Println("No matching memories.")
		return
	}
	for i, hit := range hits {
		fmt.Printf("%d. [%.3f] %s\n", i+1, hit.Score, hit.Record.Text)
	}
}
