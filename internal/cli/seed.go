package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/custody/internal/seed"
)

// NewSeedCommand creates the seed command.
func NewSeedCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "seed <catalog.cue>",
		Short: "Create every product of a CUE catalog in one transaction",
		Long: `Validate a CUE product catalog and create all of its products in a
single transaction. If any product fails, nothing is written.

A catalog looks like:

  products: [
    {
      id:           "P1"
      name:         "Widget"
      productClass: "High-Value-Goods"
      productType:  "Tool"
      price:        "100"
      manufacturer: {id: "MN1", name: "Acme", type: "Tools", origin: "Italy"}
    },
  ]

owner defaults to the manufacturer id; ownerType is always Manufacturer.

Example:
  custody seed ./catalog.cue --actor admin`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(cmd, opts, args[0])
		},
	}
}

func runSeed(cmd *cobra.Command, opts *RootOptions, path string) error {
	f := newFormatter(cmd, opts)

	src, err := os.ReadFile(path)
	if err != nil {
		return f.Fail(WrapExitError(ExitCommandError, "failed to read catalog", err))
	}
	cat, err := seed.Load(path, src)
	if err != nil {
		return f.Fail(WrapExitError(ExitCommandError, "invalid catalog", err))
	}
	opts.Logger.Debug("catalog loaded", "path", path, "products", len(cat.Products))

	l, err := openLedger(opts)
	if err != nil {
		return err
	}
	defer l.Close()

	ctx := commandContext(cmd)
	resp, err := newGateway(opts, l).Seed(ctx, opts.Actor, cat)
	if err != nil {
		return f.Fail(err)
	}

	if opts.Format == "json" {
		return f.Success(resp.TxID, payloadData(resp.Payload))
	}

	var ids []string
	if err := json.Unmarshal([]byte(resp.Payload), &ids); err != nil {
		return f.Fail(err)
	}
	return f.Success(resp.TxID, fmt.Sprintf("seeded %d products in %s", len(ids), resp.TxID))
}
