package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"securewrap/cmd/internal/passphrase"
	"securewrap/crypto"
	"securewrap/observability/logging"
)

func newKeygenCmd(opts *rootOptions) *cobra.Command {
	var keystorePath string
	var force bool
	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Generate a caller key into an encrypted keystore",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !force {
				if _, err := os.Stat(keystorePath); err == nil {
					return fmt.Errorf("keystore %s already exists; use --force to overwrite", keystorePath)
				}
			}
			pass, err := passphrase.NewSource(passphraseEnv).WithConfirmation().Get()
			if err != nil {
				return err
			}
			key, err := crypto.GeneratePrivateKey()
			if err != nil {
				return err
			}
			if err := crypto.SaveToKeystore(keystorePath, key, pass); err != nil {
				return err
			}
			opts.log().Debug("keystore written",
				slog.String("keystore", keystorePath),
				logging.MaskField("passphrase", pass))
			fmt.Fprintln(cmd.OutOrStdout(), key.PubKey().Address().String())
			return nil
		},
	}
	cmd.Flags().StringVar(&keystorePath, "keystore", "./swt-key.json", "keystore file to write")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing keystore")
	return cmd
}

func newAddressCmd(opts *rootOptions) *cobra.Command {
	var keystorePath string
	cmd := &cobra.Command{
		Use:   "address",
		Short: "Print the address held by a keystore",
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := loadKey(keystorePath, opts.log())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), key.PubKey().Address().String())
			return nil
		},
	}
	cmd.Flags().StringVar(&keystorePath, "keystore", "./swt-key.json", "keystore file")
	return cmd
}

func loadKey(path string, logger *slog.Logger) (*crypto.PrivateKey, error) {
	pass, err := passphrase.NewSource(passphraseEnv).Get()
	if err != nil {
		return nil, err
	}
	key, err := crypto.LoadFromKeystore(path, pass)
	if err != nil {
		logger.Warn("keystore unlock failed",
			slog.String("keystore", path),
			logging.MaskField("passphrase", pass),
			slog.Any("error", err))
		return nil, err
	}
	logger.Debug("keystore unlocked", slog.String("keystore", path))
	return key, nil
}
