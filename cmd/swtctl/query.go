package main

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/spf13/cobra"
)

func newQueryCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "query",
		Short: "Read custody state",
	}
	get := func(ctx context.Context, cmd *cobra.Command, path string) error {
		var out interface{}
		if err := opts.client().do(ctx, http.MethodGet, path, nil, &out); err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), out)
	}
	simple := func(use, short string, args int, path func([]string) string) *cobra.Command {
		return &cobra.Command{
			Use:   use,
			Short: short,
			Args:  cobra.ExactArgs(args),
			RunE: func(cmd *cobra.Command, args []string) error {
				return get(cmd.Context(), cmd, path(args))
			},
		}
	}
	esc := url.PathEscape

	cmd.AddCommand(
		simple("global", "Show the global configuration", 0, func([]string) string { return "/v1/global" }),
		simple("pairs", "List mint pairs", 0, func([]string) string { return "/v1/pairs" }),
		simple("pair <mint>", "Show a mint pair with live supply", 1, func(a []string) string {
			return "/v1/pairs/" + esc(a[0])
		}),
		simple("invariants <mint>", "Check the supply invariants of a pair", 1, func(a []string) string {
			return "/v1/pairs/" + esc(a[0]) + "/invariants"
		}),
		simple("user <mint> <owner>", "Show the freeze state of an owner", 2, func(a []string) string {
			return "/v1/pairs/" + esc(a[0]) + "/users/" + esc(a[1])
		}),
		simple("unwrap <mint> <owner>", "Show the pending unwrap of an owner", 2, func(a []string) string {
			return "/v1/pairs/" + esc(a[0]) + "/unwraps/" + esc(a[1])
		}),
		simple("order <mint> <owner> <side>", "Show an open order", 3, func(a []string) string {
			return "/v1/pairs/" + esc(a[0]) + "/orders/" + esc(a[1]) + "/" + esc(a[2])
		}),
		simple("account <mint> <owner>", "Show a ledger account", 2, func(a []string) string {
			return "/v1/accounts/" + esc(a[0]) + "/" + esc(a[1])
		}),
		newJournalCmd(get),
	)
	return cmd
}

func newJournalCmd(get func(context.Context, *cobra.Command, string) error) *cobra.Command {
	var mint, caller, operation string
	var after uint64
	var limit int
	cmd := &cobra.Command{
		Use:   "journal",
		Short: "List journaled operations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			q := url.Values{}
			if mint != "" {
				q.Set("mint", mint)
			}
			if caller != "" {
				q.Set("caller", caller)
			}
			if operation != "" {
				q.Set("operation", operation)
			}
			if after > 0 {
				q.Set("after", strconv.FormatUint(after, 10))
			}
			if limit > 0 {
				q.Set("limit", strconv.Itoa(limit))
			}
			path := "/v1/journal"
			if encoded := q.Encode(); encoded != "" {
				path += "?" + encoded
			}
			return get(cmd.Context(), cmd, path)
		},
	}
	cmd.Flags().StringVar(&mint, "mint", "", "filter by mint")
	cmd.Flags().StringVar(&caller, "caller", "", "filter by caller")
	cmd.Flags().StringVar(&operation, "operation", "", "filter by operation")
	cmd.Flags().Uint64Var(&after, "after", 0, "only entries after this sequence")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum entries")
	return cmd
}
