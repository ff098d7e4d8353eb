package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/joho/godotenv"

	"github.com/harufinance/repayment-ledger/internal/api"
	"github.com/harufinance/repayment-ledger/internal/config"
	"github.com/harufinance/repayment-ledger/internal/pipeline"
	"github.com/harufinance/repayment-ledger/internal/source"
	"github.com/harufinance/repayment-ledger/internal/writer"
)

func main() {
	// CLI flags
	serveFlag := flag.Bool("serve", false, "Run the HTTP API server instead of converting files")
	portFlag := flag.Int("port", 0, "HTTP port (overrides RPLY_SERVER_PORT)")
	outputFlag := flag.String("output", "", "Output file path (defaults to input filename with new extension)")
	formatFlag := flag.String("format", "csv", "Output format: csv or json")
	summaryFlag := flag.Bool("summary", true, "Include aggregate summary rows in CSV output")
	sheetFlag := flag.String("sheet", "", "Spreadsheet ID (overrides RPLY_SOURCE_SHEET_ID)")
	versionFlag := flag.Bool("version", false, "Print version and exit")
	helpFlag := flag.Bool("help", false, "Show usage help")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, `Repayment Ledger
CSV/spreadsheet repayment records → normalized records + aggregates

Usage:
  repayment-ledger [flags] <input.csv> [input2.csv ...]
  repayment-ledger --serve

Flags:
`)
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
Examples:
  # Normalize a spreadsheet export to CSV
  repayment-ledger ledger-export.csv

  # Normalized records as JSON
  repayment-ledger --format=json --output=records.json ledger-export.csv

  # Run the API server against the configured source
  RPLY_SOURCE_SHEET_ID=... repayment-ledger --serve
`)
	}

	flag.Parse()

	if *versionFlag {
		fmt.Printf("repayment-ledger v%s\n", api.Version)
		os.Exit(0)
	}

	// .env is optional; missing file is fine
	godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fatalf("Configuration error: %v\n", err)
	}
	config.NewLogger(cfg.Logging)

	if *serveFlag {
		port := cfg.Server.Port
		if *portFlag != 0 {
			port = *portFlag
		}
		if *sheetFlag != "" {
			cfg.Source.SheetID = *sheetFlag
		}
		serve(cfg, port)
		return
	}

	if *helpFlag || flag.NArg() == 0 {
		flag.Usage()
		os.Exit(0)
	}

	for _, inputPath := range flag.Args() {
		if err := processFile(inputPath, *outputFlag, *formatFlag, *summaryFlag); err != nil {
			fmt.Fprintf(os.Stderr, "Error processing %s: %v\n", inputPath, err)
			os.Exit(1)
		}
	}
}

func processFile(inputPath, outputPath, format string, includeSummary bool) error {
	if _, err := os.Stat(inputPath); os.IsNotExist(err) {
		return fmt.Errorf("input file not found: %s", inputPath)
	}

	fmt.Printf("Processing: %s\n", inputPath)

	raw, err := os.ReadFile(inputPath)
	if err != nil {
		return fmt.Errorf("failed to read input: %w", err)
	}

	dash := pipeline.New().Run(pipeline.RawTextSource{Blob: string(raw)})
	fmt.Printf("  Found %d record(s)\n", len(dash.Records))

	if len(dash.Records) == 0 {
		fmt.Println("  Warning: No records found. The export may not contain a recognizable header row.")
	}

	outPath := outputPath
	if outPath == "" {
		base := strings.TrimSuffix(inputPath, filepath.Ext(inputPath))
		if format == "json" {
			outPath = base + ".json"
		} else {
			outPath = base + ".normalized.csv"
		}
	}

	switch format {
	case "json":
		f, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("failed to create output file %q: %w", outPath, err)
		}
		defer f.Close()
		enc := json.NewEncoder(f)
		enc.SetIndent("", "  ")
		if err := enc.Encode(dash); err != nil {
			return fmt.Errorf("JSON write failed: %w", err)
		}
	case "csv":
		w := &writer.CSVWriter{IncludeSummary: includeSummary}
		if err := w.WriteToFile(outPath, &dash); err != nil {
			return fmt.Errorf("CSV write failed: %w", err)
		}
	default:
		return fmt.Errorf("unknown format %q: use csv or json", format)
	}

	fmt.Printf("  Output: %s\n", outPath)
	fmt.Printf("  총 환수요청금액: %.0f\n", dash.Stats.TotalLoanAmount)
	fmt.Printf("  총 상환완료금액: %.0f\n", dash.Stats.TotalRepaidAmount)
	fmt.Printf("  총 잔여금액: %.0f\n", dash.Stats.TotalRemainingAmount)
	fmt.Println("  Done.")
	return nil
}

func serve(cfg *config.Config, port int) {
	client := source.NewClient(cfg.Source, nil)
	handler := &api.Handler{
		Pipe:   pipeline.New(),
		Source: client,
	}

	app := fiber.New(fiber.Config{
		AppName:      "repayment-ledger v" + api.Version,
		ReadTimeout:  parseDurationOr(cfg.Server.ReadTimeout, 15*time.Second),
		WriteTimeout: parseDurationOr(cfg.Server.WriteTimeout, 15*time.Second),
	})
	app.Use(cors.New())
	handler.RegisterRoutes(app)

	addr := fmt.Sprintf(":%d", port)
	fmt.Printf("repayment-ledger v%s listening on %s (source mode: %s)\n",
		api.Version, addr, cfg.Source.Mode)
	if err := app.Listen(addr); err != nil {
		fatalf("Server error: %v\n", err)
	}
}

func parseDurationOr(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

func fatalf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format, args...)
	os.Exit(1)
}
