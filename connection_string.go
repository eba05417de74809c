package sqlitoy

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/RichardKnop/sqlitoy/internal/pager"
)

// ConnectionConfig holds parsed connection string parameters
type ConnectionConfig struct {
	FilePath string // Database file path
	PageSize uint32 // Size of a page in bytes (default: 4096)
	MaxPages uint32 // Maximum number of pages in the file (default: 100)
	LogLevel string // Log level: debug, info, warn, error (default: warn)
	// Maximum number of parsed statements to cache (default: 1000, 0 = disabled)
	MaxCachedStatements int
}

// DefaultConnectionConfig returns default configuration
func DefaultConnectionConfig(filePath string) *ConnectionConfig {
	return &ConnectionConfig{
		FilePath: filePath,
		PageSize: pager.DefaultPageSize,
		MaxPages: pager.DefaultMaxPages,
		LogLevel: "warn",

		MaxCachedStatements: DefaultMaxCachedStatements,
	}
}

// ParseConnectionString parses a connection string with optional query parameters.
//
// Format: /path/to/database.db?param1=value1&param2=value2
//
// Supported parameters:
//   - page_size=<bytes>  : Page size, must fit at least two records per leaf (default: 4096)
//   - max_pages=<n>      : Page budget of the file (default: 100)
//   - log_level=debug|info|warn|error : Set logging level (default: warn)
//   - max_cached_statements=<n> : Size of the parsed statement cache (default: 1000)
//
// Examples:
//   - "./my.db"                            : Default settings
//   - "./my.db?max_pages=1000"             : Bigger page budget
//   - "./my.db?log_level=debug"            : Enable debug logging
func ParseConnectionString(connStr string) (*ConnectionConfig, error) {
	// Split on first '?' to separate path from query params
	parts := strings.SplitN(connStr, "?", 2)

	if parts[0] == "" {
		return nil, fmt.Errorf("invalid connection string: missing file path")
	}

	config := DefaultConnectionConfig(parts[0])

	if len(parts) == 1 {
		return config, nil
	}

	queryParams, err := url.ParseQuery(parts[1])
	if err != nil {
		return nil, fmt.Errorf("invalid connection string query parameters: %w", err)
	}

	if pageSizeStr := queryParams.Get("page_size"); pageSizeStr != "" {
		pageSize, err := parsePositive(pageSizeStr)
		if err != nil {
			return nil, fmt.Errorf("invalid page_size parameter: %w", err)
		}
		config.PageSize = pageSize
	}

	if maxPagesStr := queryParams.Get("max_pages"); maxPagesStr != "" {
		maxPages, err := parsePositive(maxPagesStr)
		if err != nil {
			return nil, fmt.Errorf("invalid max_pages parameter: %w", err)
		}
		config.MaxPages = maxPages
	}

	if logLevel := queryParams.Get("log_level"); logLevel != "" {
		logLevel = strings.ToLower(logLevel)
		switch logLevel {
		case "debug", "info", "warn", "error":
			config.LogLevel = logLevel
		default:
			return nil, fmt.Errorf("invalid log_level parameter: must be 'debug', 'info', 'warn', or 'error', got %q", logLevel)
		}
	}

	if maxStatementsStr := queryParams.Get("max_cached_statements"); maxStatementsStr != "" {
		maxStatements, err := strconv.Atoi(maxStatementsStr)
		if err != nil {
			return nil, fmt.Errorf("invalid max_cached_statements parameter: must be a positive integer, got %q", maxStatementsStr)
		}
		if maxStatements < 0 {
			return nil, fmt.Errorf("invalid max_cached_statements parameter: must be non-negative, got %d", maxStatements)
		}
		config.MaxCachedStatements = maxStatements
	}

	return config, nil
}

func parsePositive(s string) (uint32, error) {
	n, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("must be a positive integer, got %q", s)
	}
	if n == 0 {
		return 0, fmt.Errorf("must be greater than zero, got %q", s)
	}
	return uint32(n), nil
}

// GetZapLevel converts log level string to zap.Level
func (c *ConnectionConfig) GetZapLevel() zap.AtomicLevel {
	switch c.LogLevel {
	case "debug":
		return zap.NewAtomicLevelAt(zap.DebugLevel)
	case "info":
		return zap.NewAtomicLevelAt(zap.InfoLevel)
	case "warn":
		return zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		return zap.NewAtomicLevelAt(zap.ErrorLevel)
	default:
		return zap.NewAtomicLevelAt(zap.WarnLevel)
	}
}
