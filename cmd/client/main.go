package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/kelseyhightower/envconfig"

	"nexus-chat/client"
)

// Exit codes for the client application.
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

// Config defines the client-side environment variables.
type Config struct {
	Host string `envconfig:"NEXUS_SERVER_HOST" default:"localhost"`
	Port int    `envconfig:"NEXUS_SERVER_PORT" default:"9999"`
}

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Client error: %v\n", err)
	}
	os.Exit(code)
}

// run handles configuration, the connection lifecycle and signal-driven
// shutdown, mirroring the server entry point.
func run() (int, error) {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	host := flag.String("host", config.Host, "server host")
	port := flag.Int("port", config.Port, "server port")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	addr := fmt.Sprintf("%s:%d", *host, *port)
	c, err := client.Dial(addr, os.Stdin, os.Stdout)
	if err != nil {
		return exitRuntime, err
	}
	defer c.Close()

	if err := c.Run(ctx); err != nil {
		return exitRuntime, err
	}
	return exitOK, nil
}
