package main

import (
	"errors"
	"net/http"
	"strings"

	"github.com/spf13/cobra"

	"securewrap/core"
)

var opSummaries = map[core.Operation]string{
	core.OpInitialize:              "Claim the authority role (once)",
	core.OpCreateMintPair:          "Register a wrapped mint for --original",
	core.OpWrap:                    "Deposit --amount original tokens and receive wrapped tokens",
	core.OpUnwrapRequest:           "Queue --amount wrapped tokens for delayed unwrap",
	core.OpUnwrapRelease:           "Release a matured pending unwrap",
	core.OpUnwrapCancel:            "Cancel your pending unwrap",
	core.OpUnwrapCancelProgram:     "Authority: cancel the pending unwrap of a permanently frozen --owner",
	core.OpFreeze:                  "Authority: freeze --owner for --period seconds",
	core.OpThaw:                    "Thaw --owner (default: you) once the freeze period elapsed",
	core.OpImmediateThaw:           "Authority: thaw --owner now",
	core.OpPermanentFreeze:         "Authority: permanently freeze --owner",
	core.OpRedistributeFrozenFunds: "Authority: mint --amount to --receiver against --owner's frozen funds",
	core.OpPlaceOrder:              "Place a --side order of --amount-in for --amount-out",
	core.OpFillOrder:               "Fill the --side order of --maker",
	core.OpFillOrderProgram:        "Authority: fill the unwrap order of --maker, spread to --credit",
	core.OpCancelOrder:             "Cancel your --side order",
	core.OpCancelOrderProgram:      "Authority: cancel the --side order of permanently frozen --owner",
	core.OpHaltOrders:              "Authority: halt all orders",
	core.OpResumeOrders:            "Authority: resume orders",
	core.OpHaltWrapOrders:          "Authority: halt wrap-side order fills",
	core.OpResumeWrapOrders:        "Authority: resume wrap-side order fills",
	core.OpHaltUnwrap:              "Authority: halt unwrap requests and releases",
	core.OpResumeUnwrap:            "Authority: resume unwraps",
	core.OpSetUnwrapDelay:          "Authority: set the unwrap delay to --seconds",
	core.OpLedgerTransfer:          "Ledger: transfer --amount of --mint to --receiver",
	core.OpLedgerFreeze:            "Ledger: freeze the --owner account of --mint (freeze authority)",
	core.OpLedgerThaw:              "Ledger: thaw the --owner account of --mint (freeze authority)",
}

func newOpCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "op",
		Short: "Submit a state-changing operation",
	}
	for _, op := range core.Operations() {
		cmd.AddCommand(newOperationCmd(opts, op))
	}
	return cmd
}

func newOperationCmd(opts *rootOptions, op core.Operation) *cobra.Command {
	var req core.Request
	cmd := &cobra.Command{
		Use:   strings.ReplaceAll(string(op), "_", "-"),
		Short: opSummaries[op],
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c := opts.client()
			if c.token == "" {
				return errors.New("operations need a bearer token; run swtctl login or pass --token")
			}
			var receipt core.Receipt
			if err := c.do(cmd.Context(), http.MethodPost, "/v1/ops/"+string(op), req, &receipt); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), receipt)
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&req.Mint, "mint", "", "wrapped mint (original mint for ledger operations)")
	flags.StringVar(&req.Original, "original", "", "original mint")
	flags.StringVar(&req.Owner, "owner", "", "account owner")
	flags.StringVar(&req.Maker, "maker", "", "order maker")
	flags.StringVar(&req.Receiver, "receiver", "", "receiving owner")
	flags.StringVar(&req.Credit, "credit", "", "owner credited with the fill spread")
	flags.StringVar(&req.Side, "side", "", "order side: wrap or unwrap")
	flags.Uint64Var(&req.Amount, "amount", 0, "token amount")
	flags.Uint64Var(&req.AmountIn, "amount-in", 0, "order amount in")
	flags.Uint64Var(&req.AmountOut, "amount-out", 0, "order amount out")
	flags.Uint64Var(&req.PeriodSeconds, "period", 0, "freeze period in seconds")
	flags.Uint64Var(&req.Seconds, "seconds", 0, "unwrap delay in seconds")
	return cmd
}
