package main

import (
	"embed"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/serbantica/Chat-Assistant/internal/api"
	"github.com/serbantica/Chat-Assistant/internal/cli"
	"github.com/serbantica/Chat-Assistant/internal/config"
	"github.com/serbantica/Chat-Assistant/internal/service"
	"github.com/serbantica/Chat-Assistant/internal/ui"
)

var version = "0.1.0"

//go:embed templates/*.md
var starterTemplates embed.FS

func printHelp() {
	fmt.Printf(`chat-assistant - Template-driven conversational assistant

USAGE:
    chat-assistant [OPTIONS] [COMMAND]

OPTIONS:
    --help          Show this help information
    --version       Print version information
    --init          Initialize the base directory with starter templates
    --serve         Start the read-only HTTP API
    --port          Port for the HTTP API (default: 8080)
    --config        Path to a config file (default: <base>/config.yaml)
    --verbose       Verbose error output

COMMANDS:
    (no command)       Start interactive TUI mode
    list, ls           List available templates
    show <id>          Show a template's stages
    search <query>     Fuzzy-search templates
    validate           Check templates for authoring problems
    sessions           List saved sessions and exports
    session <file>     Show a saved session's progress
    export <file>      Print or finalize a session export
    delete, rm <file>  Delete a saved session
    copy <id>          Copy a template overview to the clipboard
    reload             Rescan the templates directory
    help               Show CLI command help

EXAMPLES:
    chat-assistant                           # Start interactive mode
    chat-assistant --init                    # Set up ~/.chat-assistant
    chat-assistant list --format json        # List templates as JSON
    chat-assistant show business_decision    # Inspect a template
    chat-assistant export my_run_temp.json --name "Billing Rebuild"
    chat-assistant --serve --port 9000       # HTTP API on port 9000

STORAGE:
    Default directory: ~/.chat-assistant
    Override with: CHAT_ASSISTANT_DIR=<path>
`)
}

// initBaseDir creates the directory layout and seeds the starter templates.
// Existing template files are never overwritten.
func initBaseDir(cfg *config.Config) error {
	for _, dir := range []string{cfg.BaseDir, cfg.TemplatesDir, cfg.SessionsDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	entries, err := fs.ReadDir(starterTemplates, "templates")
	if err != nil {
		return fmt.Errorf("failed to read bundled templates: %w", err)
	}

	for _, entry := range entries {
		target := filepath.Join(cfg.TemplatesDir, entry.Name())
		if _, err := os.Stat(target); err == nil {
			continue
		}
		data, err := starterTemplates.ReadFile("templates/" + entry.Name())
		if err != nil {
			return fmt.Errorf("failed to read bundled template %s: %w", entry.Name(), err)
		}
		if err := os.WriteFile(target, data, 0644); err != nil {
			return fmt.Errorf("failed to write template %s: %w", target, err)
		}
		fmt.Printf("Installed %s\n", target)
	}

	return nil
}

func main() {
	var showVersion bool
	var showHelp bool
	var initDir bool
	var serve bool
	var port int
	var configPath string
	var verbose bool

	flag.BoolVar(&showVersion, "version", false, "Print version information")
	flag.BoolVar(&showHelp, "help", false, "Show help information")
	flag.BoolVar(&initDir, "init", false, "Initialize the base directory with starter templates")
	flag.BoolVar(&serve, "serve", false, "Start the read-only HTTP API")
	flag.IntVar(&port, "port", 8080, "Port for the HTTP API")
	flag.StringVar(&configPath, "config", "", "Path to a config file")
	flag.BoolVar(&verbose, "verbose", false, "Verbose error output")
	flag.Parse()

	if showHelp {
		printHelp()
		os.Exit(0)
	}

	if showVersion {
		fmt.Printf("chat-assistant version %s\n", version)
		os.Exit(0)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if initDir {
		if err := initBaseDir(cfg); err != nil {
			fmt.Fprintf(os.Stderr, "Error initializing: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Initialized chat-assistant directory at %s\n", cfg.BaseDir)
		return
	}

	svc, err := service.New(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		fmt.Fprintln(os.Stderr, "Run 'chat-assistant --init' to set up the base directory.")
		os.Exit(1)
	}

	if serve {
		srv := api.NewServer(svc, port)
		if err := srv.Start(); err != nil {
			fmt.Fprintf(os.Stderr, "Error starting API server: %v\n", err)
			os.Exit(1)
		}
		return
	}

	args := flag.Args()
	if len(args) > 0 {
		cliHandler := cli.NewCLI(svc, verbose)
		if err := cliHandler.ExecuteCommand(args); err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := ui.Run(svc); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
