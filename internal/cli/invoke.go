package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/custody/internal/contract"
)

var functionNames = []string{
	contract.FnInitLedger,
	contract.FnCreateProduct,
	contract.FnReadProduct,
	contract.FnProductExists,
	contract.FnListProduct,
	contract.FnTransferProduct,
	contract.FnGetAllProducts,
	contract.FnQueryProductsByOwner,
	contract.FnQueryProducts,
	contract.FnTrackProductHistory,
}

// NewInitCommand creates the init command.
func NewInitCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Seed the ledger with the default catalog",
		Long: `Submit InitLedger, creating the two default catalog products.

Running init twice fails with ALREADY_EXISTS and changes nothing.

Example:
  custody init --db ./custody.db --actor admin`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFunction(cmd, opts, contract.FnInitLedger, nil, true)
		},
	}
}

// NewInvokeCommand creates the invoke command.
func NewInvokeCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "invoke <function> [args...]",
		Short: "Submit a contract function as a transaction",
		Long: fmt.Sprintf(`Submit a contract function. The transaction commits on success and
rolls back on failure.

Functions: %s

Examples:
  custody invoke --actor M1 CreateProduct P1 High-Value-Goods Widget \
      '{"id":"MN1","name":"Acme","type":"Tools","origin":"Italy"}' M1 Manufacturer Tool 100
  custody invoke --actor M1 TransferProduct P1 D1`, strings.Join(functionNames, ", ")),
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFunction(cmd, opts, args[0], args[1:], true)
		},
	}
	cmd.Flags().SetInterspersed(false)
	return cmd
}

// NewQueryCommand creates the query command.
func NewQueryCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "query <function> [args...]",
		Short: "Evaluate a contract function without committing",
		Long: `Evaluate a contract function. The transaction is always rolled back,
so query never changes the ledger, even for writing functions.

Examples:
  custody query ReadProduct P1
  custody query QueryProductsByOwner D1
  custody query QueryProducts '{"selector":{"status":"READY_FOR_SHIPMENT"}}'
  custody query TrackProductHistory P1 --format json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFunction(cmd, opts, args[0], args[1:], false)
		},
	}
	cmd.Flags().SetInterspersed(false)
	return cmd
}

func runFunction(cmd *cobra.Command, opts *RootOptions, name string, args []string, commit bool) error {
	f := newFormatter(cmd, opts)
	if !contract.Known(name) {
		return f.Fail(NewExitError(ExitCommandError,
			fmt.Sprintf("unknown function %q: must be one of %v", name, functionNames)))
	}

	l, err := openLedger(opts)
	if err != nil {
		return err
	}
	defer l.Close()

	ctx := commandContext(cmd)
	gw := newGateway(opts, l)
	var resp contract.Response
	if commit {
		resp, err = gw.Submit(ctx, opts.Actor, name, args)
	} else {
		resp, err = gw.Evaluate(ctx, opts.Actor, name, args)
	}
	if err != nil {
		return f.Fail(err)
	}

	return f.Success(resp.TxID, payloadData(resp.Payload))
}
