package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/lpernett/godotenv"

	"booksms/common/version"
	"booksms/internal/booksms/app"
	"booksms/internal/booksms/config"
)

func main() {
	configPath := flag.String("config", "booksms.yaml", "path to config file")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println("booksms " + version.Info())
		return
	}

	// .env is a development convenience; production sets real environment
	// variables, so a missing file is not an error.
	if err := godotenv.Load(); err == nil {
		slog.Debug("loaded .env file")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	setupLogging(cfg.LogLevel)
	slog.Info("starting booksms", "version", version.Version, "commit", version.GitCommit)

	a, err := app.New(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize booksms: %v\n", err)
		os.Exit(1)
	}
	defer a.Stop()

	if err := a.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running booksms: %v\n", err)
		os.Exit(1)
	}
}

func setupLogging(level string) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})))
}
