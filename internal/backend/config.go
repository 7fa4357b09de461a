package backend

import (
	"errors"
	"fmt"

	"taichinh/internal/config"
	"taichinh/internal/source/google"
)

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, errors.New("app config is nil")
	}

	backendType := BackendType(appConfig.DataBackend)
	if !backendType.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s", appConfig.DataBackend)
	}

	return Config{
		Type: backendType,

		SQLiteDBPath: appConfig.SQLiteDBPath,
		AMQPURL:      appConfig.AMQPURL,
		AMQPExchange: appConfig.AMQPExchange,
		AMQPQueue:    appConfig.AMQPQueue,

		DatabaseURL: appConfig.DatabaseURL,

		GoogleSpreadsheetID:      appConfig.GoogleSpreadsheetID,
		GoogleSheetNames:         google.SplitSheetNames(appConfig.GoogleSheetName),
		GoogleUnitsSheetName:     appConfig.GoogleUnitsSheetName,
		GoogleServiceAccountFile: appConfig.GoogleServiceAccountFile,
		GoogleServiceAccountJSON: appConfig.GoogleServiceAccountJSON,
		GoogleOAuthClientFile:    appConfig.GoogleOAuthClientFile,
		GoogleOAuthTokenFile:     appConfig.GoogleOAuthTokenFile,
		GoogleOAuthClientJSON:    appConfig.GoogleOAuthClientJSON,
		GoogleOAuthTokenJSON:     appConfig.GoogleOAuthTokenJSON,

		DataDirectory: appConfig.DataDir,
	}, nil
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}

	switch c.Type {
	case SQLiteBackend:
		if c.SQLiteDBPath == "" {
			return errors.New("SQLite database path is required for sqlite backend")
		}
		// AMQP is optional

	case PostgresBackend:
		if c.DatabaseURL == "" {
			return errors.New("database URL is required for postgres backend")
		}

	case SheetsBackend:
		if c.GoogleSpreadsheetID == "" {
			return errors.New("Google Spreadsheet ID is required for sheets backend")
		}
		if len(c.GoogleSheetNames) == 0 {
			return errors.New("at least one Google sheet name is required for sheets backend")
		}
		if c.GoogleServiceAccountFile != "" || c.GoogleServiceAccountJSON != "" {
			return nil
		}
		if c.GoogleOAuthClientFile == "" && c.GoogleOAuthClientJSON == "" {
			return errors.New("a service account or an OAuth client must be provided for sheets backend")
		}
		if c.GoogleOAuthTokenFile == "" && c.GoogleOAuthTokenJSON == "" {
			return errors.New("an OAuth token must be provided together with the OAuth client for sheets backend")
		}

	case MemoryBackend:
		// DataDirectory is optional; the demo dataset is used without it
	}

	return nil
}

// GoogleConfig returns the Sheets client configuration.
func (c Config) GoogleConfig() google.Config {
	return google.Config{
		SpreadsheetID:      c.GoogleSpreadsheetID,
		SheetNames:         c.GoogleSheetNames,
		UnitsSheetName:     c.GoogleUnitsSheetName,
		ServiceAccountJSON: c.GoogleServiceAccountJSON,
		ServiceAccountFile: c.GoogleServiceAccountFile,
		OAuthClientJSON:    c.GoogleOAuthClientJSON,
		OAuthClientFile:    c.GoogleOAuthClientFile,
		OAuthTokenJSON:     c.GoogleOAuthTokenJSON,
		OAuthTokenFile:     c.GoogleOAuthTokenFile,
	}
}

// GetBackendTypes returns all valid backend types
func GetBackendTypes() []BackendType {
	return []BackendType{MemoryBackend, SQLiteBackend, SheetsBackend, PostgresBackend}
}
