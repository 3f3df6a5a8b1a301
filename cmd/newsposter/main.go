package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"NewsPoster/internal/app"
	"NewsPoster/internal/config"
	"NewsPoster/internal/logging"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(args []string) error {
	fs := flag.NewFlagSet("newsposter", flag.ExitOnError)
	dryRun := fs.Bool("dry-run", false, "force dry-run mode regardless of config")
	fs.Usage = usage(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	cmd := fs.Arg(0)
	if cmd == "" {
		fs.Usage()
		return nil
	}

	cfg := config.Load()
	if *dryRun {
		cfg.App.DryRun = true
	}
	logger := logging.New(cfg.Logging.Level)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer application.Close()

	switch cmd {
	case "run":
		if err := application.RunOnce(ctx); err != nil {
			logger.Error("cycle failed", "error", err)
			return err
		}
		return nil
	case "schedule":
		logger.Info("scheduler started",
			"post_times", cfg.App.PostTimes,
			"timezone", cfg.App.Location().String(),
			"dry_run", cfg.App.DryRun)
		return application.Schedule(ctx)
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func usage(fs *flag.FlagSet) func() {
	return func() {
		fmt.Fprintln(fs.Output(), "usage: newsposter [flags] <run|schedule>")
		fmt.Fprintln(fs.Output(), "  run       execute one publication cycle")
		fmt.Fprintln(fs.Output(), "  schedule  tick until interrupted")
		fs.PrintDefaults()
	}
}
