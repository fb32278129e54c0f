package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/gops/agent"
	"github.com/scott-cotton/cli"

	"github.com/ragged-format/go-ragged/system/bufd/server"
)

func serve(cfg *ServeConfig, cc *cli.Context, args []string) error {
	args, err := cfg.Serve.Parse(cc, args)
	if err != nil {
		return err
	}
	if len(args) != 1 {
		return fmt.Errorf("%w: serve takes one root directory", cli.ErrUsage)
	}

	// Start gops agent for debugging
	if err := agent.Listen(agent.Options{}); err != nil {
		fmt.Fprintf(cc.Out, "gops agent failed: %v\n", err)
	}

	// Set up signal handling for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Fprintf(cc.Out, "\nShutting down...\n")
		cancel()
	}()

	srv := server.New(&server.Spec{Root: args[0], Addr: cfg.Addr})
	if err := srv.StartTCP(ctx, cfg.Addr); err != nil {
		return fmt.Errorf("failed to start bufd: %w", err)
	}
	fmt.Fprintf(cc.Out, "bufd listening on %s\n", srv.TCPAddr())
	defer srv.Close()

	// Wait for shutdown signal
	<-ctx.Done()

	return nil
}
