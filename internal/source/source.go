package source

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/harufinance/repayment-ledger/internal/config"
	"github.com/harufinance/repayment-ledger/internal/pipeline"
)

// ErrTransport marks failures reaching the upstream spreadsheet or script
// backend, as opposed to parse problems (which never error).
var ErrTransport = errors.New("transport failure")

// Actions understood by the Apps Script write backend.
const (
	ActionCreate = "CREATE"
	ActionUpdate = "UPDATE"
	ActionDelete = "DELETE"
)

// Client fetches ledger data over one of three transports and proxies writes
// to the Apps Script backend. One attempt per call; retries belong to the
// caller, not here.
type Client struct {
	cfg    config.SourceConfig
	http   *http.Client
	logger *slog.Logger
}

// NewClient builds a Client from source configuration.
func NewClient(cfg config.SourceConfig, logger *slog.Logger) *Client {
	timeout, err := time.ParseDuration(cfg.Timeout)
	if err != nil || timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: timeout},
		logger: logger,
	}
}

// Fetch resolves the configured transport into a pipeline source. When the
// transport fails and the sample fallback is enabled, the built-in dataset is
// served instead; otherwise the error surfaces to the caller.
func (c *Client) Fetch(ctx context.Context, explicitSheetID string) (pipeline.Source, error) {
	src, err := c.fetch(ctx, explicitSheetID)
	if err != nil {
		if c.cfg.FallbackSample {
			c.log().Warn("transport failed, serving sample dataset", "error", err)
			return SampleSource(), nil
		}
		return nil, err
	}
	return src, nil
}

func (c *Client) fetch(ctx context.Context, explicitSheetID string) (pipeline.Source, error) {
	switch c.cfg.Mode {
	case "script":
		maps, err := c.FetchScript(ctx)
		if err != nil {
			return nil, err
		}
		return pipeline.PreNormalizedSource{Maps: maps}, nil
	case "sheets":
		matrix, err := c.FetchSheetValues(ctx, c.cfg.ResolveSheetID(explicitSheetID))
		if err != nil {
			return nil, err
		}
		return pipeline.FieldMatrixSource{Fields: matrix}, nil
	default:
		blob, err := c.FetchCSV(ctx, c.cfg.ResolveSheetID(explicitSheetID))
		if err != nil {
			return nil, err
		}
		return pipeline.RawTextSource{Blob: blob}, nil
	}
}

// FetchCSV downloads the public CSV export of the sheet.
func (c *Client) FetchCSV(ctx context.Context, sheetID string) (string, error) {
	url := fmt.Sprintf(
		"https://docs.google.com/spreadsheets/d/%s/export?format=csv&gid=%s",
		sheetID, c.cfg.SheetGID,
	)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("%w: building csv request: %v", ErrTransport, err)
	}
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: fetching csv export: %v", ErrTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: csv export returned status %d", ErrTransport, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: reading csv body: %v", ErrTransport, err)
	}
	return string(body), nil
}

// scriptEnvelope is the Apps Script response wrapper.
type scriptEnvelope struct {
	Success bool             `json:"success"`
	Message string           `json:"message"`
	Data    []map[string]any `json:"data"`
}

// FetchScript pulls structured field-maps from the Apps Script endpoint.
func (c *Client) FetchScript(ctx context.Context) ([]map[string]any, error) {
	if c.cfg.AppsScriptURL == "" {
		return nil, fmt.Errorf("%w: apps script url not configured", ErrTransport)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.AppsScriptURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: building script request: %v", ErrTransport, err)
	}
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: fetching script data: %v", ErrTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: script returned status %d", ErrTransport, resp.StatusCode)
	}

	var envelope scriptEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("%w: decoding script response: %v", ErrTransport, err)
	}
	if !envelope.Success {
		msg := envelope.Message
		if msg == "" {
			msg = "script reported failure"
		}
		return nil, fmt.Errorf("%w: %s", ErrTransport, msg)
	}
	return envelope.Data, nil
}

// WriteResult is the script backend's answer to a write.
type WriteResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// SubmitWrite proxies a CREATE/UPDATE/DELETE to the Apps Script backend. The
// body goes as text/plain JSON, the only content type the script web app
// accepts without a CORS preflight. The ledger itself is not touched here;
// callers re-fetch the dashboard afterwards.
func (c *Client) SubmitWrite(ctx context.Context, action string, payload map[string]any) (*WriteResult, error) {
	if c.cfg.AppsScriptURL == "" {
		return nil, fmt.Errorf("%w: apps script url not configured", ErrTransport)
	}

	body := make(map[string]any, len(payload)+1)
	for k, v := range payload {
		body[k] = v
	}
	body["action"] = action

	raw, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encoding write payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.AppsScriptURL, bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: building write request: %v", ErrTransport, err)
	}
	req.Header.Set("Content-Type", "text/plain;charset=utf-8")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: submitting %s: %v", ErrTransport, action, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: write returned status %d", ErrTransport, resp.StatusCode)
	}

	var result WriteResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("%w: decoding write response: %v", ErrTransport, err)
	}
	return &result, nil
}

func (c *Client) log() *slog.Logger {
	if c.logger != nil {
		return c.logger
	}
	return slog.Default()
}
