// Command revealengine is the long-running daemon: it ingests mint
// webhooks, drives tokens through image generation, IPFS pinning and
// on-chain reveal, and serves the read-only status/health/metrics API
// (spec.md §4, §5). Process wiring follows the teacher's
// cmd/kcn/main.go urfave/cli app shape, generalised from node startup
// to this pipeline's worker supervisor.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli"

	"github.com/NikitaPirate/Glisk/internal/api"
	"github.com/NikitaPirate/Glisk/internal/cache"
	"github.com/NikitaPirate/Glisk/internal/chain"
	"github.com/NikitaPirate/Glisk/internal/config"
	"github.com/NikitaPirate/Glisk/internal/imagegen"
	"github.com/NikitaPirate/Glisk/internal/logger"
	"github.com/NikitaPirate/Glisk/internal/recovery"
	"github.com/NikitaPirate/Glisk/internal/reveal"
	"github.com/NikitaPirate/Glisk/internal/store"
	"github.com/NikitaPirate/Glisk/internal/supervisor"
	"github.com/NikitaPirate/Glisk/internal/upload"
	"github.com/NikitaPirate/Glisk/internal/webhook"
)

var configFileFlag = cli.StringFlag{
	Name:  "config",
	Usage: "path to an optional TOML config file overlaying the hard defaults",
}

func main() {
	app := cli.NewApp()
	app.Name = "revealengine"
	app.Usage = "Glisk generative-NFT orchestration daemon"
	app.Flags = []cli.Flag{configFileFlag}
	app.Action = run

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	cfg := config.Default()
	if path := c.String(configFileFlag.Name); path != "" {
		if err := config.LoadFile(&cfg, path); err != nil {
			return err
		}
	}
	if err := config.FromEnv(&cfg); err != nil {
		return err
	}

	logger.Init(cfg.Debug)
	log := logger.For(logger.Supervisor)

	st, err := store.Open(cfg.DatabaseURL, cfg.DBPoolSize)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	chainClient, err := chain.Dial(ctx, cfg.ChainRPCURL, cfg.ContractAddress, cfg.KeeperPrivKey)
	if err != nil {
		return fmt.Errorf("dial chain: %w", err)
	}

	authorCache, err := cache.NewAuthorCache(cfg.AuthorCacheSize)
	if err != nil {
		return fmt.Errorf("build author cache: %w", err)
	}

	webhookHandler := webhook.NewHandler(st, authorCache, []byte(cfg.WebhookSecret), cfg.ContractAddress, cfg.DefaultAuthorWallet)

	// Required startup order (spec.md §5): gap repair, then supervisor
	// spawn, then HTTP accept.
	log.Infow("startup.token_recovery_running")
	tokenRecovery := recovery.NewTokenRecovery(chainClient, st, cfg.DefaultAuthorWallet)
	result, err := tokenRecovery.Run(ctx, cfg.RecoveryBatchSize, false)
	if err != nil {
		return fmt.Errorf("startup token recovery: %w", err)
	}
	log.Infow("startup.token_recovery_complete", "recovered", result.RecoveredCount, "errors", len(result.Errors))

	log.Infow("startup.reveal_reconciliation_running")
	if err := reveal.NewReconciler(chainClient, st).Run(ctx); err != nil {
		return fmt.Errorf("startup reveal reconciliation: %w", err)
	}

	sup := supervisor.New(st)
	if err := sup.ResetOrphans(); err != nil {
		return fmt.Errorf("reset orphan tokens: %w", err)
	}

	imageClient := imagegen.NewClient(cfg.ImageAPIToken, cfg.ImageModelID)
	imageWorker := imagegen.NewWorker(st, imageClient, cfg.ImageBatchSize, cfg.PollInterval, cfg.FallbackPrompt, cfg.DefaultAuthorWallet)
	sup.Register("imagegen", imageWorker)

	pinClient := upload.NewPinClient(cfg.PinningJWT, cfg.PinningGatewayDomain)
	uploadWorker := upload.NewWorker(st, pinClient, cfg.UploadBatchSize, cfg.PollInterval, cfg.GalleryBaseURL)
	sup.Register("upload", uploadWorker)

	keeper := reveal.NewKeeper(chainClient, st, cfg.GasBuffer, cfg.GasPriceCapGwei, cfg.TxTimeout, cfg.ExplorerBaseURL)
	revealWorker := reveal.NewWorker(st, keeper, cfg.RevealBatchMax, cfg.RevealBatchWait, cfg.PollInterval)
	sup.Register("reveal", revealWorker)

	supDone := make(chan error, 1)
	go func() { supDone <- sup.Run(ctx) }()

	router := api.NewRouter(st, webhookHandler)
	httpServer := &http.Server{Addr: cfg.ListenAddr, Handler: router}
	go func() {
		log.Infow("startup.http_listening", "addr", cfg.ListenAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Errorw("http.listen_failed", "err", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Infow("shutdown.signal_received")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Errorw("shutdown.http_error", "err", err)
	}

	cancel()
	<-supDone
	log.Infow("shutdown.complete")
	return nil
}
