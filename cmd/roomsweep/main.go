// Command roomsweep runs one chat room expiry sweep and exits. Schedule it
// from cron when the service runs with sweep_interval=0.
//
//	roomsweep --env-file /etc/therapyrooms.env --date 2026-03-01
//
// Settings come from flags, then THERAPYROOMS_* environment variables
// (optionally loaded from --env-file), then defaults.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dalemusser/therapyrooms/internal/app/bootstrap"
	"github.com/dalemusser/therapyrooms/internal/app/chat/lifecycle"
	"github.com/dalemusser/therapyrooms/internal/app/system/dateparse"
	"github.com/dalemusser/therapyrooms/internal/app/system/timeouts"
	"go.uber.org/zap"
)

func main() {
	opts, err := parseArgs(os.Args[1:], os.Getenv)
	if err != nil {
		fmt.Fprintln(os.Stderr, "roomsweep:", err)
		os.Exit(2)
	}

	logger, err := newLogger(opts.verbose)
	if err != nil {
		fmt.Fprintln(os.Stderr, "roomsweep: logger:", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	res, err := run(ctx, opts, logger)
	if err != nil {
		logger.Error("expiry sweep failed", zap.Error(err))
		os.Exit(1)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(res)
	if res.Failed > 0 {
		os.Exit(3)
	}
}

func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func run(ctx context.Context, opts options, logger *zap.Logger) (lifecycle.SweepResult, error) {
	cfg := opts.app
	if err := bootstrap.ValidateConfig(nil, cfg, logger); err != nil {
		return lifecycle.SweepResult{}, err
	}
	timeouts.Configure(cfg.Timeouts())

	client, err := bootstrap.Connect(ctx, cfg, logger)
	if err != nil {
		return lifecycle.SweepResult{}, err
	}
	defer func() {
		dctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = client.Disconnect(dctx)
	}()

	rt, err := bootstrap.NewRuntime(ctx, cfg, client.Database(cfg.MongoDatabase), logger)
	if err != nil {
		return lifecycle.SweepResult{}, err
	}
	defer rt.Close()

	// An explicit --action wins over stored settings.
	if opts.actionSet {
		action, err := lifecycle.NormalizeAction(cfg.ChatExpiryAction)
		if err != nil {
			return lifecycle.SweepResult{}, err
		}
		lc := rt.Chat.Config()
		lc.ExpiryAction = action
		rt.Chat.Lifecycle.SetConfig(lc)
	}

	today := time.Now()
	if opts.date != "" {
		today, err = dateparse.Parse(opts.date, rt.Chat.Config().Location)
		if err != nil {
			return lifecycle.SweepResult{}, fmt.Errorf("--date %q: %w", opts.date, err)
		}
	}

	sctx, cancel := timeouts.WithTimeout(ctx, timeouts.Sweep(), logger, "expiry sweep")
	defer cancel()
	return rt.Chat.Lifecycle.RunExpirySweep(sctx, today)
}
