package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"securewrap/observability/logging"
)

const (
	nodeEnv       = "SWT_NODE"
	tokenEnv      = "SWT_TOKEN"
	passphraseEnv = "SWT_KEYSTORE_PASS"
	defaultNode   = "http://localhost:8080"
)

type rootOptions struct {
	node    string
	token   string
	verbose bool
	logger  *slog.Logger
}

func (o *rootOptions) nodeURL() string {
	if o.node != "" {
		return o.node
	}
	if env := strings.TrimSpace(os.Getenv(nodeEnv)); env != "" {
		return env
	}
	return defaultNode
}

func (o *rootOptions) bearer() string {
	if o.token != "" {
		return o.token
	}
	return strings.TrimSpace(os.Getenv(tokenEnv))
}

func (o *rootOptions) client() *client { return newClient(o.nodeURL(), o.bearer(), o.log()) }

func (o *rootOptions) log() *slog.Logger {
	if o.logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return o.logger
}

// setupLogging sends diagnostics to stderr so stdout stays parseable.
func (o *rootOptions) setupLogging(cmd *cobra.Command) {
	level := slog.LevelWarn
	if o.verbose {
		level = slog.LevelDebug
	}
	o.logger, _ = logging.SetupWithOptions("swtctl", "", logging.Options{
		Output: cmd.ErrOrStderr(),
		Level:  level,
	})
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "swtctl",
		Short:         "CLI for the securewrap custody node",
		Long:          `swtctl manages caller keys, logs in to a swtd node, submits operations and reads custody state.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			opts.setupLogging(cmd)
		},
	}
	root.PersistentFlags().StringVar(&opts.node, "node", "", "node API URL (default $"+nodeEnv+" or "+defaultNode+")")
	root.PersistentFlags().StringVar(&opts.token, "token", "", "bearer token (default $"+tokenEnv+")")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log requests to stderr")

	root.AddCommand(
		newKeygenCmd(opts),
		newAddressCmd(opts),
		newLoginCmd(opts),
		newOpCmd(opts),
		newQueryCmd(opts),
		newEventsCmd(opts),
	)
	return root
}

func printJSON(w io.Writer, v interface{}) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(out))
	return err
}
