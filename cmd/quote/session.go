package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"balancerScope/internal/config"
	"balancerScope/internal/errs"
	"balancerScope/internal/model"
	"balancerScope/internal/pool"
	"balancerScope/internal/storage"
	"balancerScope/internal/storage/postgres"
)

// session is the state shared by the quoting commands: the loaded pool, the
// journal sinks and the logger.
type session struct {
	cfg    config.QuoteConfig
	logger *zap.Logger
	snap   model.PoolSnapshot
	pool   pool.Pool
	sink   storage.QuoteSink
	out    io.Writer
}

// quoteCommand adapts a quoting function into a cobra RunE. Failures are
// logged with their error code before being returned.
func quoteCommand(name string, fn func(ctx context.Context, s *session) (any, error)) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		cfgFile, _ := cmd.Flags().GetString("config")
		cfg, err := config.LoadQuote(cfgFile, cmd.Flags())
		if err != nil {
			return err
		}

		logger, err := newLogger(cfg.LogLevel, cfg.LogFile)
		if err != nil {
			return err
		}
		defer logger.Sync()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		s := &session{cfg: cfg, logger: logger, out: cmd.OutOrStdout()}
		closeSinks, err := s.open(ctx)
		if err != nil {
			logFailure(logger, name, err)
			return err
		}
		defer closeSinks()

		logger.Info("quote start",
			zap.String("command", name),
			zap.String("snapshot", cfg.Snapshot),
			zap.String("pool", s.snap.Address),
			zap.String("kind", string(s.snap.Kind)),
		)

		result, err := fn(ctx, s)
		if err != nil {
			logFailure(logger, name, err)
			return err
		}
		if err := writeJSON(s.out, result); err != nil {
			return err
		}

		logger.Info("quote done", zap.String("command", name))
		return nil
	}
}

func logFailure(logger *zap.Logger, command string, err error) {
	fields := []zap.Field{zap.String("command", command), zap.Error(err)}
	if code, ok := errs.CodeOf(err); ok {
		category, _ := errs.CategoryOf(err)
		fields = append(fields, zap.String("code", code), zap.String("category", string(category)))
	}
	logger.Error("quote failed", fields...)
}

func (s *session) open(ctx context.Context) (func(), error) {
	snap, err := readSnapshot(s.cfg.Snapshot)
	if err != nil {
		return nil, err
	}
	p, err := pool.FromSnapshot(snap, pool.WithLogger(s.logger))
	if err != nil {
		return nil, err
	}
	s.snap, s.pool = snap, p

	var (
		sinks  storage.Multi
		closer = func() {}
	)
	if s.cfg.Journal != "" {
		sinks = append(sinks, storage.NewJsonlStorage(s.cfg.Journal))
	}
	if s.cfg.PGDSN != "" {
		store, err := postgres.NewStore(ctx, s.cfg.PGDSN)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		if err := store.EnsureSchema(ctx); err != nil {
			store.Close()
			return nil, err
		}
		sinks = append(sinks, store)
		closer = store.Close
	}
	if len(sinks) > 0 {
		s.sink = sinks
	}
	return closer, nil
}

// journal records quotes in every configured sink.
func (s *session) journal(ctx context.Context, quotes ...pool.Quote) ([]model.QuoteRecord, error) {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	records := make([]model.QuoteRecord, len(quotes))
	for i, q := range quotes {
		records[i] = model.QuoteRecord{
			ChainID:     s.snap.ChainID,
			PoolAddress: q.Pool,
			PoolKind:    s.pool.Kind(),
			BlockNumber: s.snap.BlockNumber,
			Operation:   string(q.Operation),
			TokenIn:     q.TokenIn,
			TokenOut:    q.TokenOut,
			Amount:      q.Given,
			Result:      q.Result,
			Amounts:     q.Amounts,
			CreatedAt:   now,
		}
	}
	if s.sink == nil {
		return records, nil
	}
	if err := s.sink.PutQuotes(ctx, records); err != nil {
		return nil, fmt.Errorf("journal quotes: %w", err)
	}
	s.logger.Debug("quotes journaled", zap.Int("count", len(records)))
	return records, nil
}

func readSnapshot(path string) (model.PoolSnapshot, error) {
	if path == "" {
		return model.PoolSnapshot{}, fmt.Errorf("snapshot path is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return model.PoolSnapshot{}, fmt.Errorf("read snapshot: %w", err)
	}
	var snap model.PoolSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return model.PoolSnapshot{}, fmt.Errorf("decode snapshot: %w", err)
	}
	return snap, nil
}

func writeSnapshot(path string, snap model.PoolSnapshot) error {
	dir := filepath.Dir(path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}
