package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"nhooyr.io/websocket"

	"securewrap/core"
)

func newEventsCmd(opts *rootOptions) *cobra.Command {
	var cursor string
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Follow committed events",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := eventsURL(opts.nodeURL(), cursor)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			conn, _, err := websocket.Dial(ctx, target, nil)
			if err != nil {
				return fmt.Errorf("failed to open event stream: %w", err)
			}
			defer conn.Close(websocket.StatusNormalClosure, "")
			for {
				_, data, err := conn.Read(ctx)
				if err != nil {
					if websocket.CloseStatus(err) == websocket.StatusNormalClosure || errors.Is(err, ctx.Err()) {
						return nil
					}
					return err
				}
				var evt core.StreamEvent
				if err := json.Unmarshal(data, &evt); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%d\t%s\t%s\n", evt.Cursor, evt.OperationSequence, evt.Operation, formatAttributes(evt))
			}
		},
	}
	cmd.Flags().StringVar(&cursor, "cursor", "", "resume after this cursor")
	return cmd
}

func eventsURL(base, cursor string) (string, error) {
	u, err := url.Parse(strings.TrimRight(base, "/"))
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path += "/v1/events/ws"
	if cursor != "" {
		u.RawQuery = url.Values{"cursor": []string{cursor}}.Encode()
	}
	return u.String(), nil
}

func formatAttributes(evt core.StreamEvent) string {
	if evt.Event == nil {
		return ""
	}
	keys := make([]string, 0, len(evt.Event.Attributes))
	for key := range evt.Event.Attributes {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	parts := []string{evt.Event.Type}
	for _, key := range keys {
		parts = append(parts, key+"="+evt.Event.Attributes[key])
	}
	return strings.Join(parts, " ")
}
