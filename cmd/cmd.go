// Package cmd provides the portfolio-api CLI commands.
//
// Commands:
//   - serve: HTTP API server
//   - migrate: apply pending database migrations
//   - seed: load the starter question bank
//   - reindex: re-embed every answered entry
//
// Signal handling and graceful shutdown are implemented via context
// cancellation.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/adou/portfolio-api/internal/log"
)

// Execute is the main entry point for the portfolio-api CLI.
func Execute() error {
	// Initialize logger once at entry point
	level := slog.LevelInfo
	if os.Getenv("DEBUG") != "" {
		level = slog.LevelDebug
	}
	slog.SetDefault(log.New(log.Config{Level: level, JSON: true}))

	if len(os.Args) < 2 {
		runHelp()
		return nil
	}

	switch os.Args[1] {
	case "serve":
		return runServe()
	case "migrate":
		return runMigrate()
	case "seed":
		return runSeed()
	case "reindex":
		return runReindex()
	case "version", "--version", "-v":
		runVersion()
		return nil
	case "help", "--help", "-h":
		runHelp()
		return nil
	default:
		return fmt.Errorf("unknown command: %s", os.Args[1])
	}
}

// runHelp displays the help message.
func runHelp() {
	fmt.Println("portfolio-api - Q&A knowledge base and chat backend for a portfolio site")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  portfolio-api serve [addr]  Start the HTTP API server (default: :8080)")
	fmt.Println("  portfolio-api migrate       Apply pending database migrations")
	fmt.Println("  portfolio-api seed          Load the starter question bank")
	fmt.Println("  portfolio-api reindex       Re-embed every answered entry")
	fmt.Println("  portfolio-api --version     Show version information")
	fmt.Println("  portfolio-api --help        Show this help")
	fmt.Println()
	fmt.Println("Environment Variables:")
	fmt.Println("  GEMINI_API_KEY     Required for serve/reindex: Gemini API key")
	fmt.Println("  DATABASE_URL       Optional: overrides the configured PostgreSQL DSN")
	fmt.Println("  RESEND_API_KEY     Optional: enables the contact form mailer")
	fmt.Println("  DEBUG              Optional: enable debug logging")
	fmt.Println()
	fmt.Println("Configuration file: ~/.portfolio-api/config.yaml")
}
