// Package launcher wires the configured collaborators together and runs
// one launch task to completion while the balance monitor refreshes in
// the background.
package launcher

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/solaunch/launch-bot/internal/chain"
	"github.com/solaunch/launch-bot/internal/config"
	"github.com/solaunch/launch-bot/internal/deploy"
	"github.com/solaunch/launch-bot/internal/feed"
	"github.com/solaunch/launch-bot/internal/launch"
	"github.com/solaunch/launch-bot/internal/metadata"
	"github.com/solaunch/launch-bot/internal/monitor"
	"github.com/solaunch/launch-bot/internal/registry"
	"github.com/solaunch/launch-bot/internal/relay"
	"github.com/solaunch/launch-bot/internal/token"
	"github.com/solaunch/launch-bot/internal/wallet"
)

type Runner struct {
	logger     *zap.Logger
	config     *config.Config
	chain      *chain.Client
	wallet     *wallet.Wallet
	deployment *deploy.Deployment
	monitor    *monitor.Service
	feed       *feed.Feed
	resolver   *token.Resolver
	shutdownCh chan os.Signal
}

func NewRunner(cfg *config.Config, logger *zap.Logger) (*Runner, error) {
	w, err := wallet.New(cfg.WalletKey)
	if err != nil {
		return nil, fmt.Errorf("load wallet: %w", err)
	}

	chainClient, err := chain.NewClient(cfg.RPCList, logger)
	if err != nil {
		return nil, fmt.Errorf("chain client: %w", err)
	}

	relayClient := relay.NewClient(cfg.RelayURL, nil, relay.Options{
		PollInterval: time.Duration(cfg.PollInterval) * time.Millisecond,
		MaxWait:      time.Duration(cfg.MaxWait) * time.Millisecond,
	}, logger)

	var reg deploy.Registry
	var regSource token.RegistryReader
	if cfg.BackendURL != "" {
		regClient := registry.NewClient(cfg.BackendURL, nil, logger)
		reg = regClient
		regSource = token.NewRegistrySource(regClient)
	}

	uploader := metadata.NewUploader(cfg.UploadURL, &http.Client{Timeout: 60 * time.Second}, logger)

	var poolFeed *feed.Feed
	if cfg.WebSocketURL != "" {
		poolFeed = feed.New(cfg.WebSocketURL, launch.ClmmProgramID, logger)
	}

	return &Runner{
		logger:     logger,
		config:     cfg,
		chain:      chainClient,
		wallet:     w,
		deployment: deploy.New(uploader, reg, relayClient, chainClient, w, nil, logger),
		monitor: monitor.New(chainClient, w.Address(),
			time.Duration(cfg.MonitorDelay)*time.Millisecond, logger),
		feed:       poolFeed,
		resolver:   token.NewResolver(chainClient, regSource, logger),
		shutdownCh: make(chan os.Signal, 1),
	}, nil
}

// Run executes the launch described by the task file. It returns when
// the deployment finishes or a shutdown signal arrives.
func (r *Runner) Run(ctx context.Context, taskPath string) error {
	signal.Notify(r.shutdownCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(r.shutdownCh)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		select {
		case sig := <-r.shutdownCh:
			r.logger.Info("signal received", zap.String("signal", sig.String()))
			cancel()
		case <-runCtx.Done():
		}
	}()

	task, err := LoadTask(taskPath)
	if err != nil {
		return err
	}
	req, err := task.ToRequest(filepath.Dir(taskPath))
	if err != nil {
		return err
	}
	r.logger.Info("launch task loaded",
		zap.String("name", task.Name),
		zap.String("symbol", task.Symbol),
		zap.Uint64("base_supply", task.BaseSupply))

	g, gctx := errgroup.WithContext(runCtx)

	g.Go(func() error {
		if err := r.monitor.Run(gctx); !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})

	if r.feed != nil {
		g.Go(func() error {
			r.watchPools(gctx)
			return nil
		})
	}

	g.Go(func() error {
		defer cancel()
		result, err := r.deployment.Run(gctx, req)
		if err != nil {
			return err
		}
		r.logger.Info("launch complete",
			zap.String("base_mint", result.BaseMint.String()),
			zap.String("pool", result.Pool.String()),
			zap.String("bundle_id", result.BundleID))
		if result.RegistrationErr != nil {
			r.logger.Warn("token is live but unregistered", zap.Error(result.RegistrationErr))
		}
		r.describeLaunch(ctx, result.BaseMint, req)
		return nil
	})

	return g.Wait()
}

// watchPools streams pool creations for the duration of the launch.
// The subscription opens before the bundle lands so our own pool
// creation is in the window. Feed trouble is reported but never aborts
// the launch.
func (r *Runner) watchPools(ctx context.Context) {
	sub, err := r.feed.Subscribe(ctx)
	if err != nil {
		r.logger.Warn("pool feed unavailable", zap.Error(err))
		return
	}
	defer sub.Close()

	r.consumeSightings(ctx, sub.Events())
	if err := sub.Err(); err != nil {
		r.logger.Warn("pool feed ended", zap.Error(err))
	}
}

// consumeSightings drains pool-creation events until the channel closes
// or ctx ends, returning how many were seen.
func (r *Runner) consumeSightings(ctx context.Context, events <-chan feed.Event) int {
	seen := 0
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return seen
			}
			seen++
			r.logger.Info("pool creation observed",
				zap.String("signature", ev.Signature.String()),
				zap.Uint64("slot", ev.Slot))
		case <-ctx.Done():
			return seen
		}
	}
}

// describeLaunch resolves the new mint's metadata across chain and
// registry, with the task's own values as fallback, and logs where each
// field came from. Runs on the parent context: the launch is done and
// the run context is about to be cancelled.
func (r *Runner) describeLaunch(ctx context.Context, mint solana.PublicKey, req deploy.Request) {
	decimals := req.Market.BaseDecimals
	fallback := token.Partial{
		Name:     req.Metadata.Name,
		Symbol:   req.Metadata.Symbol,
		Decimals: &decimals,
	}

	meta, err := r.resolver.Resolve(ctx, mint, fallback)
	if err != nil {
		r.logger.Warn("token metadata unresolved",
			zap.String("mint", mint.String()), zap.Error(err))
		return
	}
	r.logger.Info("token metadata resolved",
		zap.String("mint", meta.Mint.String()),
		zap.String("name", meta.Name),
		zap.String("symbol", meta.Symbol),
		zap.String("symbol_source", string(meta.SymbolSource)),
		zap.Uint8("decimals", meta.Decimals),
		zap.String("decimals_source", string(meta.DecimalsSource)))
}

// Status exposes the deployment step log for observation.
func (r *Runner) Status() []deploy.StatusEntry {
	return r.deployment.Status()
}

func (r *Runner) Shutdown() {
	r.logger.Info("launcher shutting down")
	if err := r.logger.Sync(); err != nil {
		if err.Error() != "sync /dev/stdout: invalid argument" &&
			err.Error() != "sync /dev/stderr: inappropriate ioctl for device" {
			fmt.Fprintf(os.Stderr, "failed to sync logger during shutdown: %v\n", err)
		}
	}
}
