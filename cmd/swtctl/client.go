package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"securewrap/observability/logging"
)

// apiError mirrors the node's error envelope.
type apiError struct {
	Status  int
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *apiError) Error() string {
	return fmt.Sprintf("%s (%d): %s", e.Code, e.Status, e.Message)
}

type client struct {
	baseURL string
	token   string
	http    *http.Client
	logger  *slog.Logger
}

func newClient(baseURL, token string, logger *slog.Logger) *client {
	return &client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		token:   strings.TrimSpace(token),
		http:    &http.Client{Timeout: 30 * time.Second},
		logger:  logger,
	}
}

// do sends payload as JSON and decodes a successful response into out.
func (c *client) do(ctx context.Context, method, path string, payload, out interface{}) error {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	c.logger.Debug("node request",
		slog.String("method", method),
		slog.String("url", req.URL.String()),
		logging.MaskField("token", c.token))
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach node: %w", err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	c.logger.Debug("node response", slog.String("url", req.URL.String()), slog.Int("status", resp.StatusCode))
	if resp.StatusCode != http.StatusOK {
		var envelope struct {
			Error apiError `json:"error"`
		}
		if err := json.Unmarshal(raw, &envelope); err != nil || envelope.Error.Code == "" {
			return fmt.Errorf("node returned %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
		}
		envelope.Error.Status = resp.StatusCode
		return &envelope.Error
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(raw, out)
}
