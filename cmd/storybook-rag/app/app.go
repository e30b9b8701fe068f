// Package app provides the storybook-rag server application.
package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/kart-io/storybook-rag/cmd/storybook-rag/app/options"
	storybook "github.com/kart-io/storybook-rag/internal/storybook"
	"github.com/kart-io/storybook-rag/pkg/infra/app"
)

// commandDesc is the description of the command.
const commandDesc = `Storybook QA Service

Answers questions about uploaded storybook PDFs (Urdu or English) using
retrieval-augmented generation.

This server provides:
  - Document ingestion: chunking, summary and keyword extraction, vector indexing
  - Hybrid retrieval over summary, keyword and semantic signals with reranking
  - Multi-turn conversations with rolling summaries and persistent checkpoints
  - Per-user chat sessions`

// NewApp creates and returns a new App object with default parameters.
func NewApp() *app.App {
	opts := options.NewServerOptions()
	return app.NewApp(
		app.WithName(storybook.Name),
		app.WithShortDescription("Storybook PDF question answering service"),
		app.WithDescription(commandDesc),
		app.WithOptions(opts),
		app.WithRunFunc(run(opts)),
	)
}

// run contains the main logic for initializing and running the server.
func run(opts *options.ServerOptions) app.RunFunc {
	return func() error {
		cfg, err := opts.Config()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}

		ctx := setupSignalContext()

		server, err := cfg.NewServer(ctx)
		if err != nil {
			return fmt.Errorf("failed to create server: %w", err)
		}

		return server.Run(ctx)
	}
}

// setupSignalContext returns a context that is cancelled on SIGINT or SIGTERM.
// A second signal exits immediately.
func setupSignalContext() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	c := make(chan os.Signal, 2)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-c
		cancel()
		<-c
		os.Exit(1)
	}()
	return ctx
}
