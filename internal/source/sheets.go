package source

import (
	"context"
	"fmt"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/harufinance/repayment-ledger/internal/pipeline"
)

// FetchSheetValues reads the configured value range through the Sheets API.
// The returned matrix feeds the same header discovery as the CSV path.
func (c *Client) FetchSheetValues(ctx context.Context, sheetID string) ([][]string, error) {
	if c.cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: sheets api key not configured", ErrTransport)
	}

	svc, err := sheets.NewService(ctx, option.WithAPIKey(c.cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("%w: creating sheets service: %v", ErrTransport, err)
	}

	resp, err := svc.Spreadsheets.Values.Get(sheetID, c.cfg.SheetRange).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("%w: reading range %s: %v", ErrTransport, c.cfg.SheetRange, err)
	}

	matrix := make([][]string, 0, len(resp.Values))
	for _, row := range resp.Values {
		fields := make([]string, len(row))
		for i, cell := range row {
			fields[i] = pipeline.Stringify(cell)
		}
		matrix = append(matrix, fields)
	}
	return matrix, nil
}
