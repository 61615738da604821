// Command mcp-proofpal provides an MCP server for purchase tracking.
//
// It exposes tools to record purchases, check return and warranty
// deadlines, run reminder scans and export PDF dossiers.
//
// Usage:
//
//	./mcp-proofpal          # Start MCP server (stdio)
//	./mcp-proofpal --help   # Show help
//
// Environment:
//
//	PROOFPAL_DB_PATH  Path to SQLite database (default: ~/.proofpal/proofpal.db)
//	PROOFPAL_CONFIG   Path to config file (default: ~/.proofpal/config.yaml)
package main

import (
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/server"

	"github.com/notexe/proofpal/internal/app"
	"github.com/notexe/proofpal/internal/config"
	"github.com/notexe/proofpal/internal/mcpserver"
)

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "--help", "-h":
			printHelp()
			return
		}
	}

	configPath := os.Getenv("PROOFPAL_CONFIG")
	if configPath == "" {
		configPath = config.GetDefaultConfigPath()
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if dbPath := os.Getenv("PROOFPAL_DB_PATH"); dbPath != "" {
		cfg.Database = dbPath
	}
	// stdout carries the protocol.
	cfg.Log.Format = "json"

	a, err := app.New(cfg, os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open storage: %v\n", err)
		os.Exit(1)
	}
	defer a.Close()

	s := mcpserver.NewServer(a.Service, cfg.Defaults)

	if err := server.ServeStdio(s.MCPServer()); err != nil {
		fmt.Fprintf(os.Stderr, "Server error: %v\n", err)
		a.Close()
		os.Exit(1)
	}
}

func printHelp() {
	fmt.Println(`MCP ProofPal Server - Purchase, return and warranty tracking via MCP protocol

USAGE:
    mcp-proofpal          Start MCP server (communicates via stdio)
    mcp-proofpal --help   Show this help

ENVIRONMENT:
    PROOFPAL_DB_PATH  Path to SQLite database file
                      Default: ~/.proofpal/proofpal.db
    PROOFPAL_CONFIG   Path to the YAML config file
                      Default: ~/.proofpal/config.yaml
    PROOFPAL_*        Any config key, e.g. PROOFPAL_DEFAULTS__RETURN_DAYS=30

TOOLS:
    add_purchase      Record a purchase (label, purchase_date, store, amount, periods)
    list_purchases    List purchases with deadline status (text, store, category, due-before filters)
    get_purchase      Get one purchase with attachments, reminders and history
    update_purchase   Update purchase fields; date or period changes reset reminders
    delete_purchase   Delete a purchase with its attachments
    purchase_status   Return and warranty status of one or all purchases
    scan_reminders    Fire the reminders that are due, each threshold once
    dashboard         Deadline counters, urgent purchases and recent activity
    export_dossier    Write a PDF dossier to the export directory

CONFIGURATION:
    Add to your MCP client configuration:
    {
      "mcpServers": {
        "proofpal": {
          "command": "/path/to/mcp-proofpal",
          "args": []
        }
      }
    }`)
}
