// Command recover_tokens is the operator-invoked wrapper around
// internal/recovery.TokenRecovery (spec.md §4.3a, §6): diff
// contract.nextTokenId() against the store and fill any gaps. Exit
// codes: 0 clean or no gaps, 1 failure (nothing recovered, or a config
// error), 2 partial (some ids recovered, some failed), 130 interrupted.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	uuid "github.com/satori/go.uuid"
	"github.com/urfave/cli"

	"github.com/NikitaPirate/Glisk/internal/chain"
	"github.com/NikitaPirate/Glisk/internal/config"
	"github.com/NikitaPirate/Glisk/internal/logger"
	"github.com/NikitaPirate/Glisk/internal/recovery"
	"github.com/NikitaPirate/Glisk/internal/store"
)

func main() {
	app := cli.NewApp()
	app.Name = "recover_tokens"
	app.Usage = "recover tokens missing from the store by diffing against nextTokenId()"
	app.Flags = []cli.Flag{
		cli.StringFlag{Name: "config", Usage: "path to an optional TOML config file"},
		cli.IntFlag{Name: "limit", Value: 0, Usage: "cap the number of gaps recovered in this run (0 = unbounded)"},
		cli.BoolFlag{Name: "dry-run", Usage: "report what would be recovered without committing"},
		cli.BoolFlag{Name: "v", Usage: "verbose (debug) logging"},
	}
	app.Action = run

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("error: %v", err))
		if coder, ok := err.(cli.ExitCoder); ok {
			os.Exit(coder.ExitCode())
		}
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	cfg := config.Default()
	if path := c.String("config"); path != "" {
		if err := config.LoadFile(&cfg, path); err != nil {
			return cli.NewExitError(err.Error(), 1)
		}
	}
	if err := config.FromEnv(&cfg); err != nil {
		return cli.NewExitError(err.Error(), 1)
	}
	cfg.Debug = cfg.Debug || c.Bool("v")
	logger.Init(cfg.Debug)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sig
		cancel()
	}()

	st, err := store.Open(cfg.DatabaseURL, cfg.DBPoolSize)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	chainClient, err := chain.Dial(ctx, cfg.ChainRPCURL, cfg.ContractAddress, cfg.KeeperPrivKey)
	if err != nil {
		return fmt.Errorf("dial chain: %w", err)
	}

	runID := uuid.NewV4()
	fmt.Println(color.CyanString("run %s", runID))

	r := recovery.NewTokenRecovery(chainClient, st, cfg.DefaultAuthorWallet)
	result, err := r.Run(ctx, c.Int("limit"), c.Bool("dry-run"))
	if err != nil {
		if ctx.Err() != nil {
			fmt.Fprintln(os.Stderr, color.YellowString("interrupted"))
			os.Exit(130)
		}
		return err
	}

	fmt.Println(color.GreenString("%d of %d missing token ids recovered", result.RecoveredCount, result.MissingCount))
	if result.SkippedDuplicate > 0 {
		fmt.Println(color.YellowString("%d skipped as concurrent webhook duplicates", result.SkippedDuplicate))
	}
	if len(result.Errors) > 0 {
		fmt.Println(color.YellowString("%d errors", len(result.Errors)))
		for _, e := range result.Errors {
			fmt.Println("  " + e)
		}
		if result.RecoveredCount > 0 {
			os.Exit(2)
		}
		os.Exit(1)
	}
	return nil
}
