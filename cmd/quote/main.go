package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"balancerScope/internal/config"
)

func main() {
	root := &cobra.Command{
		Use:          "quote",
		Short:        "Balancer pool quoting toolkit",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	swapCmd := &cobra.Command{
		Use:   "swap",
		Short: "Quote a swap between two pool tokens",
		RunE:  runSwap,
	}
	addQuoteFlags(swapCmd.Flags())
	swapCmd.Flags().String("token-in", "", "token paid in (address or symbol)")
	swapCmd.Flags().String("token-out", "", "token paid out (address or symbol)")
	swapCmd.Flags().String("amount", "", "given amount (token-in, or token-out with --given-out)")
	swapCmd.Flags().Bool("given-out", false, "treat --amount as the exact amount out")
	root.AddCommand(swapCmd)

	joinCmd := &cobra.Command{
		Use:   "join",
		Short: "Quote a join with exact tokens in, or for an exact BPT amount",
		RunE:  runJoin,
	}
	addQuoteFlags(joinCmd.Flags())
	joinCmd.Flags().StringSlice("amounts", nil, "exact amounts in, one per token (comma-separated)")
	joinCmd.Flags().String("token", "", "single token paid in for an exact BPT out")
	joinCmd.Flags().String("amount", "", "exact BPT out, with --token")
	root.AddCommand(joinCmd)

	exitCmd := &cobra.Command{
		Use:   "exit",
		Short: "Quote an exit for exact BPT in, or for exact tokens out",
		RunE:  runExit,
	}
	addQuoteFlags(exitCmd.Flags())
	exitCmd.Flags().StringSlice("amounts", nil, "exact amounts out, one per token (comma-separated)")
	exitCmd.Flags().String("token", "", "single token paid out; proportional when empty")
	exitCmd.Flags().String("amount", "", "exact BPT in")
	root.AddCommand(exitCmd)

	invariantCmd := &cobra.Command{
		Use:   "invariant",
		Short: "Print the pool invariant and BPT prices",
		RunE:  runInvariant,
	}
	addQuoteFlags(invariantCmd.Flags())
	root.AddCommand(invariantCmd)

	feesCmd := &cobra.Command{
		Use:   "fees",
		Short: "Compute the protocol swap fee due since the last invariant",
		RunE:  runFees,
	}
	addQuoteFlags(feesCmd.Flags())
	feesCmd.Flags().String("last-invariant", "", "invariant after the last join or exit")
	feesCmd.Flags().String("protocol-fee", "0.5", "protocol fee percentage (e.g. 0.5)")
	root.AddCommand(feesCmd)

	fetchCmd := &cobra.Command{
		Use:   "fetch",
		Short: "Fetch a pool snapshot over JSON-RPC",
		RunE:  runFetch,
	}
	fetchCmd.Flags().String("rpc", "", "Ethereum RPC URL")
	fetchCmd.Flags().String("vault", config.DefaultVault, "vault address")
	fetchCmd.Flags().String("pool", "", "pool address")
	fetchCmd.Flags().String("kind", "", "pool kind (weighted, stable, meta_stable, stable_phantom, linear)")
	fetchCmd.Flags().Uint64("block", 0, "block number, 0 means latest")
	fetchCmd.Flags().String("out", "./data/pool.json", "output snapshot JSON path")
	fetchCmd.Flags().Int("max-retries", 5, "maximum retry attempts")
	fetchCmd.Flags().Duration("retry-backoff", 500*time.Millisecond, "initial retry backoff")
	fetchCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")
	fetchCmd.Flags().String("log-file", "", "optional rotating log file")
	root.AddCommand(fetchCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func addQuoteFlags(flags *pflag.FlagSet) {
	flags.String("snapshot", "./data/pool.json", "pool snapshot JSON path")
	flags.String("journal", "", "append quotes to this JSONL file")
	flags.String("pg-dsn", "", "also journal quotes to Postgres")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
	flags.String("log-file", "", "optional rotating log file")
}
