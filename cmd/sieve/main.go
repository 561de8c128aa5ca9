package main

import (
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/hpungsan/sieve/internal/config"
	"github.com/hpungsan/sieve/internal/db"
	"github.com/hpungsan/sieve/internal/logging"
	"github.com/hpungsan/sieve/internal/mcp"
)

// Version is set via -ldflags at build time.
var Version = "dev"

// cliCommands contains known CLI subcommands.
var cliCommands = map[string]bool{
	"scan": true, "groups": true, "show": true, "add": true, "remove": true,
	"rename": true, "enable": true, "disable": true, "bind": true,
	"apply": true, "restore": true, "next": true, "prev": true, "cycle": true,
	"workspace": true, "resume": true, "status": true,
	"presets": true, "match": true,
	"export": true, "import": true, "reset": true,
	"serve": true,
	"help":  true,
}

// isCLIMode determines if we should run CLI vs MCP server.
func isCLIMode() bool {
	if len(os.Args) < 2 {
		return false // No args → MCP server
	}
	arg := os.Args[1]
	if cliCommands[arg] {
		return true
	}
	if arg == "--help" || arg == "-h" || arg == "--version" || arg == "-v" {
		return true
	}
	return false
}

// isHelpOrVersion returns true if the user is requesting help or version info.
func isHelpOrVersion() bool {
	if len(os.Args) < 2 {
		return false
	}
	arg := os.Args[1]
	return arg == "--help" || arg == "-h" || arg == "--version" || arg == "-v" || arg == "help"
}

// isTerminal returns true if stdin is a terminal (not piped).
func isTerminal() bool {
	stat, _ := os.Stdin.Stat()
	return (stat.Mode() & os.ModeCharDevice) != 0
}

// printBanner displays a friendly banner when run interactively without args.
func printBanner() {
	fmt.Println(`
       _
   ___(_) _____   _____
  / __| |/ _ \ \ / / _ \
  \__ \ |  __/\ V /  __/
  |___/_|\___| \_/ \___|

  Category groups and selection

  Usage: sieve <command> [options]
         sieve --help

  MCP server mode requires piped input.`)
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
	os.Exit(1)
}

func main() {
	// No args + interactive terminal → show banner and exit
	if len(os.Args) < 2 && isTerminal() {
		printBanner()
		return
	}

	// Handle --help/--version before DB init (no DB needed)
	if isHelpOrVersion() {
		app := newCLIApp(nil, nil, nil)
		if err := app.Run(os.Args); err != nil {
			fatal("%v", err)
		}
		return
	}

	baseDir, err := config.BaseDir()
	if err != nil {
		fatal("could not determine home directory: %v", err)
	}

	cwd, _ := os.Getwd()
	cfg, err := config.LoadWithRepo(baseDir, cwd)
	if err != nil {
		fatal("failed to load config: %v", err)
	}

	log, err := logging.New(logging.FromAppConfig(cfg))
	if err != nil {
		fatal("failed to build logger: %v", err)
	}
	defer func() { _ = log.Sync() }()

	database, err := db.Init(baseDir)
	if err != nil {
		fatal("failed to initialize database: %v", err)
	}
	defer database.Close()
	db.ConfigurePool(database, cfg)

	if isCLIMode() {
		app := newCLIApp(database, cfg, log)
		if err := app.Run(os.Args); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			database.Close()
			os.Exit(1)
		}
		return
	}

	// Unknown argument + terminal → show error (don't start MCP server)
	if len(os.Args) >= 2 && isTerminal() {
		fmt.Fprintf(os.Stderr, "error: unknown command %q\n", os.Args[1])
		fmt.Fprintf(os.Stderr, "Run 'sieve --help' for usage.\n")
		database.Close()
		os.Exit(1)
	}

	log.Debug("starting mcp server", zap.String("version", Version))
	if err := mcp.Run(database, cfg, log, Version); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		database.Close()
		os.Exit(1)
	}
}
