package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"balancerScope/internal/chain"
	"balancerScope/internal/config"
	"balancerScope/internal/model"
	"balancerScope/internal/onchain"
)

func runFetch(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadFetch(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.RPCURL == "" {
		return fmt.Errorf("rpc url is required")
	}
	if !common.IsHexAddress(cfg.Pool) {
		return fmt.Errorf("invalid pool address %q", cfg.Pool)
	}
	if !common.IsHexAddress(cfg.Vault) {
		return fmt.Errorf("invalid vault address %q", cfg.Vault)
	}
	if cfg.Kind == "" {
		return fmt.Errorf("pool kind is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	chainClient, err := chain.NewClient(ctx, cfg.RPCURL)
	if err != nil {
		return fmt.Errorf("connect rpc: %w", err)
	}
	defer chainClient.Close()

	logger.Info("fetch start",
		zap.String("rpc", cfg.RPCURL),
		zap.String("pool", cfg.Pool),
		zap.String("kind", cfg.Kind),
		zap.Uint64("block", cfg.Block),
		zap.String("out", cfg.Out),
	)

	fetcher := onchain.NewFetcher(chainClient, onchain.Config{
		Vault:        common.HexToAddress(cfg.Vault),
		MaxRetries:   cfg.MaxRetries,
		RetryBackoff: cfg.RetryBackoff,
	}, logger)

	snap, err := fetcher.Fetch(ctx, common.HexToAddress(cfg.Pool), model.PoolKind(cfg.Kind), cfg.Block)
	if err != nil {
		logFailure(logger, "fetch", err)
		return err
	}
	if err := writeSnapshot(cfg.Out, snap); err != nil {
		return err
	}

	logger.Info("fetch done",
		zap.String("pool", snap.Address),
		zap.Uint64("block", snap.BlockNumber),
		zap.String("out", cfg.Out),
	)
	return nil
}
