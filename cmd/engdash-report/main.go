package main

import (
	"context"
	"fmt"
	"os"

	"engdash/internal/cli"
	"engdash/internal/cli/formatter"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func run() error {
	cli.LoadEnvFile()

	// Reports go to stdout; keep logs on stderr and quiet unless asked.
	level := os.Getenv("LOG_LEVEL")
	if level == "" {
		level = "warn"
	}
	logger := cli.SetupLogger(os.Stderr, level)

	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		return err
	}

	ctx, stop := cli.SignalContext(context.Background(), logger)
	defer stop()

	rt, err := cli.NewRuntime(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer rt.Close()

	app := &cli.App{
		Reports:  rt.Dashboard,
		Exporter: rt.Exporter,
		Styles:   formatter.ForWriter(os.Stdout),
	}
	if rt.Broker != nil {
		app.Publisher = rt.Broker
	}

	return cli.NewRootCmd(app).ExecuteContext(ctx)
}
