package api

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/harufinance/repayment-ledger/internal/models"
	"github.com/harufinance/repayment-ledger/internal/pipeline"
	"github.com/harufinance/repayment-ledger/internal/source"
	"github.com/harufinance/repayment-ledger/internal/writer"
)

// Version is reported by the health endpoint and CLI.
const Version = "1.2.0"

// Fetcher is the slice of the transport client the handlers need; the tests
// substitute a stub.
type Fetcher interface {
	Fetch(ctx context.Context, explicitSheetID string) (pipeline.Source, error)
	SubmitWrite(ctx context.Context, action string, payload map[string]any) (*source.WriteResult, error)
}

// Handler holds the HTTP handlers for the API.
type Handler struct {
	Pipe   *pipeline.Pipeline
	Source Fetcher
	Logger *slog.Logger
}

// DashboardResponse is the JSON response from /api/dashboard and
// /api/convert.
type DashboardResponse struct {
	Success   bool            `json:"success"`
	Error     string          `json:"error,omitempty"`
	Records   []models.Record `json:"records"`
	Stats     *models.Stats   `json:"stats,omitempty"`
	Source    string          `json:"source,omitempty"`
	CSV       string          `json:"csv,omitempty"`
	Count     int             `json:"count"`
	FetchedAt time.Time       `json:"fetchedAt,omitzero"`
	RunID     string          `json:"runId,omitempty"`
}

// WriteRequest is the body of /api/records.
type WriteRequest struct {
	Action string         `json:"action"`
	Row    map[string]any `json:"row"`
}

// WriteResponse is the JSON response from /api/records.
type WriteResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// RegisterRoutes sets up the API routes on the fiber app.
func (h *Handler) RegisterRoutes(app *fiber.App) {
	app.Get("/api/health", h.HandleHealth)
	app.Get("/api/dashboard", h.HandleDashboard)
	app.Post("/api/convert", h.HandleConvert)
	app.Post("/api/records", h.HandleRecords)
}

func (h *Handler) HandleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "ok",
		"version": Version,
		"engine":  "fiber",
	})
}

// HandleDashboard runs a full synchronization: fetch from the configured
// source, rebuild every record and the aggregates, return the lot. Nothing
// is cached; a repeat call repeats the work.
func (h *Handler) HandleDashboard(c *fiber.Ctx) error {
	runID := uuid.NewString()
	sheetID := c.Query("sheet")

	src, err := h.Source.Fetch(c.UserContext(), sheetID)
	if err != nil {
		h.log().Error("dashboard fetch failed", "run_id", runID, "error", err)
		status := fiber.StatusInternalServerError
		if errors.Is(err, source.ErrTransport) {
			status = fiber.StatusBadGateway
		}
		return c.Status(status).JSON(DashboardResponse{
			Success: false,
			Error:   err.Error(),
			Records: []models.Record{},
			RunID:   runID,
		})
	}

	dash := h.Pipe.Run(src)
	h.log().Info("dashboard served",
		"run_id", runID, "source", dash.Source, "records", len(dash.Records))

	return c.JSON(DashboardResponse{
		Success:   true,
		Records:   dash.Records,
		Stats:     &dash.Stats,
		Source:    dash.Source,
		Count:     len(dash.Records),
		FetchedAt: dash.FetchedAt,
		RunID:     runID,
	})
}

// HandleConvert normalizes a CSV blob supplied by the client: either a
// multipart upload under "file" or the raw request body.
func (h *Handler) HandleConvert(c *fiber.Ctx) error {
	blob, err := readBlob(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(DashboardResponse{
			Success: false,
			Error:   err.Error(),
			Records: []models.Record{},
		})
	}

	dash := h.Pipe.Run(pipeline.RawTextSource{Blob: blob})

	var csvBuf bytes.Buffer
	cw := &writer.CSVWriter{IncludeSummary: c.Query("summary") != "false"}
	if err := cw.Write(&csvBuf, &dash); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(DashboardResponse{
			Success: false,
			Error:   "CSV generation failed: " + err.Error(),
			Records: []models.Record{},
		})
	}

	return c.JSON(DashboardResponse{
		Success:   true,
		Records:   dash.Records,
		Stats:     &dash.Stats,
		Source:    dash.Source,
		CSV:       csvBuf.String(),
		Count:     len(dash.Records),
		FetchedAt: dash.FetchedAt,
	})
}

// HandleRecords proxies a write to the Apps Script backend. The dashboard is
// not updated here; clients re-fetch it once the write lands.
func (h *Handler) HandleRecords(c *fiber.Ctx) error {
	var req WriteRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(WriteResponse{
			Success: false, Error: "invalid request body: " + err.Error(),
		})
	}

	action := strings.ToUpper(strings.TrimSpace(req.Action))
	switch action {
	case source.ActionCreate, source.ActionUpdate, source.ActionDelete:
	default:
		return c.Status(fiber.StatusBadRequest).JSON(WriteResponse{
			Success: false, Error: "unknown action: use CREATE, UPDATE or DELETE",
		})
	}

	result, err := h.Source.SubmitWrite(c.UserContext(), action, req.Row)
	if err != nil {
		h.log().Error("write proxy failed", "action", action, "error", err)
		return c.Status(fiber.StatusBadGateway).JSON(WriteResponse{
			Success: false, Error: err.Error(),
		})
	}
	if !result.Success {
		return c.Status(fiber.StatusBadGateway).JSON(WriteResponse{
			Success: false, Error: result.Message,
		})
	}

	return c.JSON(WriteResponse{Success: true, Message: result.Message})
}

func readBlob(c *fiber.Ctx) (string, error) {
	if file, err := c.FormFile("file"); err == nil && file != nil {
		f, err := file.Open()
		if err != nil {
			return "", errors.New("failed to open uploaded file")
		}
		defer f.Close()
		var buf bytes.Buffer
		if _, err := buf.ReadFrom(f); err != nil {
			return "", errors.New("failed to read uploaded file")
		}
		return buf.String(), nil
	}

	body := c.Body()
	if len(bytes.TrimSpace(body)) == 0 {
		return "", errors.New("no CSV data: upload a file under 'file' or send the blob as the body")
	}
	return string(body), nil
}

func (h *Handler) log() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}
