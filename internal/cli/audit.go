package cli

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/custody/internal/ledger"
)

// DigestResult is the JSON output of the digest command.
type DigestResult struct {
	StateDigest  string `json:"state_digest"`
	Transactions int    `json:"transactions"`
}

// NewDigestCommand creates the digest command.
func NewDigestCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "digest",
		Short: "Print the world-state digest",
		Long: `Print a digest of the whole world state.

Two ledgers that applied the same transactions in the same order report the
same digest, so comparing digests checks that replicas agree.

Example:
  custody digest --db ./custody.db`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDigest(cmd, opts)
		},
	}
}

func runDigest(cmd *cobra.Command, opts *RootOptions) error {
	f := newFormatter(cmd, opts)

	l, err := openLedger(opts)
	if err != nil {
		return err
	}
	defer l.Close()

	ctx := commandContext(cmd)
	digest, err := l.StateDigest(ctx)
	if err != nil {
		return f.Fail(err)
	}
	txs, err := l.Transactions(ctx)
	if err != nil {
		return f.Fail(err)
	}

	if opts.Format == "json" {
		return f.Success("", DigestResult{StateDigest: digest, Transactions: len(txs)})
	}
	return f.Success("", digest)
}

// NewLogCommand creates the log command.
func NewLogCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "log",
		Short: "List committed transactions",
		Long: `List committed transactions in commit order with their creator, function,
timestamp, and write-set digest.

Examples:
  custody log --db ./custody.db
  custody log --db ./custody.db --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLog(cmd, opts)
		},
	}
}

func runLog(cmd *cobra.Command, opts *RootOptions) error {
	f := newFormatter(cmd, opts)

	l, err := openLedger(opts)
	if err != nil {
		return err
	}
	defer l.Close()

	txs, err := l.Transactions(commandContext(cmd))
	if err != nil {
		return f.Fail(err)
	}

	if opts.Format == "json" {
		if txs == nil {
			txs = []ledger.TxRecord{}
		}
		return f.Success("", txs)
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SEQ\tTX ID\tTIMESTAMP\tCREATOR\tFUNCTION\tWRITES")
	for _, tx := range txs {
		writes := tx.WriteDigest
		if len(writes) > 12 {
			writes = writes[:12]
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n",
			tx.Seq, tx.TxID, tx.Timestamp.Time().Format(time.RFC3339), tx.Creator, tx.Function, writes)
	}
	return w.Flush()
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
