package google

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"tradecal/internal/core"
	"tradecal/internal/log"
	"tradecal/internal/tradedata"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// Client reads a trading journal from a Google Sheets tab. Each row is one
// trade or one day: Date | PnL | Trades | Notes.
type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
	logger        *log.Logger
}

// Ensure interface conformance
var _ tradedata.MonthReader = (*Client)(nil)

// Config holds the spreadsheet coordinates and service account credentials.
// CredentialsJSON takes precedence over CredentialsFile.
type Config struct {
	SpreadsheetID   string
	SheetName       string
	CredentialsFile string
	CredentialsJSON string
}

// New creates a read-only journal client authenticated with a service account.
func New(ctx context.Context, cfg Config, logger *log.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	if logger == nil {
		logger = log.Discard()
	}
	logger = logger.WithComponent(log.ComponentSheets)

	svc, err := newSheetsService(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	sheet := strings.TrimSpace(cfg.SheetName)
	if sheet == "" {
		sheet = "Journal"
	}
	return &Client{
		svc:           svc,
		spreadsheetID: cfg.SpreadsheetID,
		sheetName:     sheet,
		logger:        logger,
	}, nil
}

// newSheetsService initializes a Sheets service using service account credentials.
func newSheetsService(ctx context.Context, cfg Config, logger *log.Logger) (*gsheet.Service, error) {
	var credentialsJSON []byte
	var err error

	switch {
	case strings.TrimSpace(cfg.CredentialsJSON) != "":
		logger.DebugContext(ctx, "Using inline JSON credentials")
		credentialsJSON = []byte(cfg.CredentialsJSON)
	case strings.TrimSpace(cfg.CredentialsFile) != "":
		logger.DebugContext(ctx, "Reading credentials from file", "path", cfg.CredentialsFile)
		credentialsJSON, err = os.ReadFile(cfg.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsReadonlyScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	logger.InfoContext(ctx, "Google Sheets service created")
	return service, nil
}

// ReadAll fetches the whole journal and groups it by "YYYY-MM".
func (c *Client) ReadAll(ctx context.Context) (map[string]core.MonthEntry, error) {
	if c.svc == nil {
		return nil, errors.New("sheets service not initialized")
	}
	rng := fmt.Sprintf("%s!A:D", c.sheetName)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	months, err := parseJournal(resp.Values)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", rng, err)
	}
	c.logger.DebugContext(ctx, "Journal read",
		log.FieldOperation, log.OpRead,
		"rows", len(resp.Values),
		"months", len(months))
	return months, nil
}

// ReadMonth implements tradedata.MonthReader
func (c *Client) ReadMonth(ctx context.Context, key string) (*core.MonthEntry, error) {
	if _, _, err := core.ParseMonthKey(key); err != nil {
		return nil, err
	}
	months, err := c.ReadAll(ctx)
	if err != nil {
		return nil, err
	}
	entry, ok := months[key]
	if !ok {
		return nil, nil
	}
	return &entry, nil
}

// MonthKeys implements tradedata.MonthReader
func (c *Client) MonthKeys(ctx context.Context) ([]string, error) {
	months, err := c.ReadAll(ctx)
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(months))
	for k := range months {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}
