package main

import (
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"securewrap/crypto"
	"securewrap/observability/logging"
	"securewrap/rpc"
)

func newLoginCmd(opts *rootOptions) *cobra.Command {
	var keystorePath, tokenFile string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign a login challenge and obtain a bearer token",
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := loadKey(keystorePath, opts.log())
			if err != nil {
				return err
			}
			req, err := signedLogin(key, time.Now().Unix())
			if err != nil {
				return err
			}
			var resp rpc.LoginResponse
			if err := newClient(opts.nodeURL(), "", opts.log()).do(cmd.Context(), http.MethodPost, "/v1/auth/login", req, &resp); err != nil {
				return err
			}
			opts.log().Debug("login succeeded",
				slog.String("caller", resp.Caller),
				logging.MaskField("token", resp.Token))
			if tokenFile != "" {
				if err := os.WriteFile(tokenFile, []byte(resp.Token+"\n"), 0o600); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "token for %s written to %s (expires %s)\n",
					resp.Caller, tokenFile, time.Unix(resp.ExpiresAt, 0).UTC().Format(time.RFC3339))
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), resp.Token)
			return nil
		},
	}
	cmd.Flags().StringVar(&keystorePath, "keystore", "./swt-key.json", "keystore file")
	cmd.Flags().StringVar(&tokenFile, "token-file", "", "write the token to this file instead of stdout")
	return cmd
}

func signedLogin(key *crypto.PrivateKey, timestamp int64) (rpc.LoginRequest, error) {
	sig, err := crypto.SignLogin(key, timestamp)
	if err != nil {
		return rpc.LoginRequest{}, err
	}
	return rpc.LoginRequest{
		Address:   key.PubKey().Address().String(),
		Timestamp: timestamp,
		Signature: hex.EncodeToString(sig),
	}, nil
}
