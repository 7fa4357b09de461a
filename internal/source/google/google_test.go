package google

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNew_MissingSpreadsheetID(t *testing.T) {
	_, err := New(context.Background(), Config{}, nil)
	if err == nil || err.Error() != "missing GOOGLE_SPREADSHEET_ID" {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestNew_MissingCredentials(t *testing.T) {
	_, err := New(context.Background(), Config{SpreadsheetID: "id"}, nil)
	if err == nil || !strings.Contains(err.Error(), "missing credentials") {
		t.Fatalf("expected missing credentials error, got %v", err)
	}
}

func TestNew_InvalidOAuthClient(t *testing.T) {
	_, err := New(context.Background(), Config{
		SpreadsheetID:   "id",
		OAuthClientJSON: "invalid-json",
		OAuthTokenJSON:  `{"access_token":"test"}`,
	}, nil)
	if err == nil || !strings.Contains(err.Error(), "oauth config") {
		t.Fatalf("expected oauth config error, got %v", err)
	}
}

func TestNew_MissingOAuthToken(t *testing.T) {
	_, err := New(context.Background(), Config{
		SpreadsheetID:   "id",
		OAuthClientJSON: `{"installed":{"client_id":"test","client_secret":"test","redirect_uris":["http://localhost"],"auth_uri":"https://accounts.google.com/o/oauth2/auth","token_uri":"https://oauth2.googleapis.com/token"}}`,
	}, nil)
	if err == nil || !strings.Contains(err.Error(), "missing oauth token") {
		t.Fatalf("expected missing token error, got %v", err)
	}
}

func TestNew_OAuthFromFiles(t *testing.T) {
	dir := t.TempDir()
	clientFile := filepath.Join(dir, "client.json")
	tokenFile := filepath.Join(dir, "token.json")
	if err := os.WriteFile(clientFile, []byte(`{"installed":{"client_id":"test","client_secret":"test","redirect_uris":["http://localhost"],"auth_uri":"https://accounts.google.com/o/oauth2/auth","token_uri":"https://oauth2.googleapis.com/token"}}`), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(tokenFile, []byte(`{"access_token":"test","token_type":"Bearer"}`), 0o600); err != nil {
		t.Fatal(err)
	}

	c, err := New(context.Background(), Config{
		SpreadsheetID:   "id",
		OAuthClientFile: clientFile,
		OAuthTokenFile:  tokenFile,
	}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(c.sheets) != 1 || c.sheets[0] != "Transactions" {
		t.Errorf("expected default sheet, got %v", c.sheets)
	}
}

func TestClient_NilService(t *testing.T) {
	c := &Client{spreadsheetID: "test", unitsSheet: "Units"}
	if _, err := c.ListTransactions(context.Background()); !errors.Is(err, errNoService) {
		t.Errorf("expected errNoService, got %v", err)
	}
	if _, err := c.ListUnits(context.Background()); !errors.Is(err, errNoService) {
		t.Errorf("expected errNoService, got %v", err)
	}
}
