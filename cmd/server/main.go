package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/Netflix/go-env"

	"nexus-chat/server"
	"nexus-chat/services"
	"nexus-chat/storage"
)

// Exit codes for the server process.
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
	}
	os.Exit(code)
}

// run initializes all components and manages the server lifecycle. The
// pattern keeps defers running on every exit path and the entry point
// testable, with os.Exit confined to main.
func run() (int, error) {
	// 1. Configuration: environment first, flags override.
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	port := flag.Int("port", config.Port, "TCP port to listen on")
	dataFile := flag.String("data", config.DataFile, "path of the persisted store")
	flag.Parse()

	log := newLogger(config.LogLevel)

	// 2. Persistent store: an unreadable or corrupt file is fatal, a
	// missing one seeds the default rooms.
	store := storage.NewStore(*dataFile, log)
	snap, err := store.Load()
	if err != nil {
		return exitRuntime, fmt.Errorf("store load failed: %w", err)
	}

	// 3. Domain model and listener.
	svc := services.NewChatService(snap, store, log)
	srv := server.New(fmt.Sprintf("%s:%d", config.Host, *port), svc, log)

	// 4. Signals drive the graceful shutdown path.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 5. Serve until stopped; a bind failure surfaces here.
	if err := srv.ListenAndServe(ctx); err != nil {
		return exitRuntime, err
	}
	return exitOK, nil
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
