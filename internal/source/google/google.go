// Package google reads transaction records and business units from a Google
// spreadsheet.
package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/oauth2"
	googleoauth "golang.org/x/oauth2/google"
	"golang.org/x/sync/errgroup"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"taichinh/internal/core"
	applog "taichinh/internal/log"
	"taichinh/internal/source"
)

// Ensure interface conformance
var (
	_ source.TransactionReader = (*Client)(nil)
	_ source.UnitReader        = (*Client)(nil)
)

var errNoService = errors.New("sheets service not initialized")

// Config selects the spreadsheet and the credentials used to read it.
type Config struct {
	SpreadsheetID string
	// SheetNames holds one or more record sheets, e.g. "Transactions" or "Thu,Chi".
	SheetNames     []string
	UnitsSheetName string

	ServiceAccountJSON string
	ServiceAccountFile string
	OAuthClientJSON    string
	OAuthClientFile    string
	OAuthTokenJSON     string
	OAuthTokenFile     string
}

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheets        []string
	unitsSheet    string
	logger        *applog.Logger
}

// SplitSheetNames parses a comma separated GOOGLE_SHEET_NAME value.
func SplitSheetNames(s string) []string {
	var out []string
	for _, name := range strings.Split(s, ",") {
		if name = strings.TrimSpace(name); name != "" {
			out = append(out, name)
		}
	}
	return out
}

// New creates a read-only Sheets client.
func New(ctx context.Context, cfg Config, logger *applog.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	if len(cfg.SheetNames) == 0 {
		cfg.SheetNames = []string{"Transactions"}
	}
	if logger == nil {
		logger = applog.Discard()
	}
	logger = logger.WithComponent(applog.ComponentSheets)

	svc, err := newSheetsService(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	return &Client{
		svc:           svc,
		spreadsheetID: cfg.SpreadsheetID,
		sheets:        cfg.SheetNames,
		unitsSheet:    cfg.UnitsSheetName,
		logger:        logger,
	}, nil
}

// newSheetsService prefers a service account and falls back to an OAuth
// client plus a stored token.
func newSheetsService(ctx context.Context, cfg Config, logger *applog.Logger) (*gsheet.Service, error) {
	saJSON, err := readCredential(cfg.ServiceAccountJSON, cfg.ServiceAccountFile)
	if err != nil {
		return nil, fmt.Errorf("read service account: %w", err)
	}
	if len(saJSON) > 0 {
		logger.InfoContext(ctx, "Creating Google Sheets service with service account", "credentials_size", len(saJSON))
		return gsheet.NewService(ctx,
			goption.WithCredentialsJSON(saJSON),
			goption.WithScopes(gsheet.SpreadsheetsReadonlyScope))
	}

	clientJSON, err := readCredential(cfg.OAuthClientJSON, cfg.OAuthClientFile)
	if err != nil {
		return nil, fmt.Errorf("read oauth client: %w", err)
	}
	if len(clientJSON) == 0 {
		return nil, errors.New("missing credentials (set GOOGLE_SERVICE_ACCOUNT_JSON/FILE or GOOGLE_OAUTH_CLIENT_JSON/FILE)")
	}
	tokenJSON, err := readCredential(cfg.OAuthTokenJSON, cfg.OAuthTokenFile)
	if err != nil {
		return nil, fmt.Errorf("read oauth token: %w", err)
	}
	if len(tokenJSON) == 0 {
		return nil, errors.New("missing oauth token (set GOOGLE_OAUTH_TOKEN_JSON or GOOGLE_OAUTH_TOKEN_FILE)")
	}

	oauthCfg, err := googleoauth.ConfigFromJSON(clientJSON, gsheet.SpreadsheetsReadonlyScope)
	if err != nil {
		return nil, fmt.Errorf("oauth config: %w", err)
	}
	var tok oauth2.Token
	if err := json.Unmarshal(tokenJSON, &tok); err != nil {
		return nil, fmt.Errorf("oauth token: %w", err)
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, newHTTPClientWithPooling())
	logger.InfoContext(ctx, "Creating Google Sheets service with OAuth token")
	return gsheet.NewService(ctx, goption.WithHTTPClient(oauthCfg.Client(ctx, &tok)))
}

func readCredential(inline, file string) ([]byte, error) {
	if s := strings.TrimSpace(inline); s != "" {
		return []byte(s), nil
	}
	if file = strings.TrimSpace(file); file == "" {
		return nil, nil
	}
	return os.ReadFile(file)
}

// newHTTPClientWithPooling creates an HTTP client for the Sheets API with
// connection pooling and bounded timeouts.
func newHTTPClientWithPooling() *http.Client {
	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}

	transport := &http.Transport{
		DialContext:           dialer.DialContext,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		MaxConnsPerHost:       50,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		ForceAttemptHTTP2:     true,
	}

	return &http.Client{
		Transport: transport,
		Timeout:   60 * time.Second,
	}
}

// ListTransactions reads every record sheet concurrently and concatenates
// them in sheet order.
func (c *Client) ListTransactions(ctx context.Context) ([]core.Transaction, error) {
	if c.svc == nil {
		return nil, errNoService
	}

	results := make([][]core.Transaction, len(c.sheets))
	g, gctx := errgroup.WithContext(ctx)
	for i, sheet := range c.sheets {
		g.Go(func() error {
			values, err := c.readRange(gctx, fmt.Sprintf("%s!A:G", sheet))
			if err != nil {
				return err
			}
			txs, rejected := parseTransactions(values, defaultKind(sheet))
			for _, r := range rejected {
				c.logger.WarnContext(gctx, "Sheet row rejected",
					"sheet", sheet, "row", r.Row, applog.FieldReason, r.Reason)
			}
			results[i] = txs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var out []core.Transaction
	for _, txs := range results {
		out = append(out, txs...)
	}
	return out, nil
}

// ListUnits reads column A of the units sheet. An unset units sheet yields
// no registered units.
func (c *Client) ListUnits(ctx context.Context) ([]string, error) {
	if c.svc == nil {
		return nil, errNoService
	}
	if c.unitsSheet == "" {
		return nil, nil
	}
	values, err := c.readRange(ctx, fmt.Sprintf("%s!A2:A", c.unitsSheet))
	if err != nil {
		return nil, err
	}
	return parseUnits(values), nil
}

// Snapshot fetches records and units in parallel.
func (c *Client) Snapshot(ctx context.Context) ([]core.Transaction, []string, error) {
	var (
		txs   []core.Transaction
		units []string
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		txs, err = c.ListTransactions(gctx)
		return err
	})
	g.Go(func() (err error) {
		units, err = c.ListUnits(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return txs, units, nil
}

func (c *Client) readRange(ctx context.Context, rng string) ([][]interface{}, error) {
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).
		ValueRenderOption("UNFORMATTED_VALUE").
		DateTimeRenderOption("FORMATTED_STRING").
		Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	return resp.Values, nil
}

// defaultKind lets sheets named after a kind ("Thu", "Chi", "Income") omit
// the kind column.
func defaultKind(sheet string) core.Kind {
	k, err := core.ParseKind(sheet)
	if err != nil {
		return ""
	}
	return k
}
