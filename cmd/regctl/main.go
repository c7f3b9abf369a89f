// Command regctl registers parties for events from the command line.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Shivanand-hulikatti/premierdelan/internal/config"
	"github.com/Shivanand-hulikatti/premierdelan/internal/logging"
	"github.com/Shivanand-hulikatti/premierdelan/internal/regctl"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := config.LoadDotEnv(); err != nil {
		exitf("%v", err)
	}
	var cfg config.CLI
	if err := config.ParseEnv(&cfg); err != nil {
		exitf("%v", err)
	}
	logger, err := logging.New(cfg.LogLevel, true)
	if err != nil {
		exitf("%v", err)
	}
	defer logger.Sync() //nolint:errcheck

	if err := regctl.Run(ctx, cfg, os.Args[1:], os.Stdout, logger); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		stop()
		exitf("regctl: %v", err)
	}
}

func exitf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
