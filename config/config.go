package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/formbridge/formbridge-backend/internal/logger"
)

var (
	customLog = logger.NewLogger()
)

// Config holds application configuration values
type Config struct {
	ServerPort    string
	JWTSecret     string
	JWTExpiration time.Duration
	AppDbDir      string
	AppDbFile     string

	// ViewNamePrefix is the naming convention separating views from base tables
	// during schema inspection (e.g. "V_").
	ViewNamePrefix string

	// PKNameFragments drive the primary-key heuristic: the first catalog column
	// whose upper-cased name contains one of these fragments wins.
	PKNameFragments []string

	// LineageCacheTTL bounds how long a resolved view lineage may be served
	// without re-reading the stored view definition.
	LineageCacheTTL time.Duration
}

// LoadConfig loads configuration from environment variables.
// It uses a .env file for local development if present (ignores it for production).
func LoadConfig() (*Config, error) {
	customLog.Println("Loading configuration from environment variables...")

	// Attempt to load .env file if in development environment (skip in production)
	if os.Getenv("APP_ENV") != "production" {
		if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
			customLog.Warnf("Warning: Error loading .env file: %v", err)
		}
	}

	// Read values from environment variables, providing defaults where appropriate
	port := getEnv("SERVER_PORT", "8080")
	jwtSecret := getEnv("JWT_SECRET", "")
	jwtExpHoursStr := getEnv("JWT_EXPIRATION_HOURS", "24")
	dbDir := getEnv("DATABASE_DIRECTORY", "data")
	dbFile := getEnv("DATABASE_DIRECTORY_FILE", "formbridge.db")
	viewPrefix := getEnv("VIEW_NAME_PREFIX", "V_")
	pkFragmentsStr := getEnv("PK_NAME_FRAGMENTS", "ID")
	lineageTTLStr := getEnv("LINEAGE_CACHE_TTL_SECONDS", "60")

	// Critical: Ensure JWT Secret is set
	if jwtSecret == "" {
		return nil, errors.New("JWT_SECRET environment variable must be set")
	}
	if jwtSecret == "!!replace_this_with_a_real_secret_key!!" {
		customLog.Warnln("WARNING: JWT_SECRET is set to the default placeholder!")
	}

	// Parse JWT Expiration (hours)
	jwtExpHours, err := strconv.Atoi(jwtExpHoursStr)
	if err != nil || jwtExpHours <= 0 {
		customLog.Warnf("Invalid JWT_EXPIRATION_HOURS '%s'. Using default 24h. Error: %v", jwtExpHoursStr, err)
		jwtExpHours = 24
	}

	lineageTTLSecs, err := strconv.Atoi(lineageTTLStr)
	if err != nil || lineageTTLSecs <= 0 {
		customLog.Warnf("Invalid LINEAGE_CACHE_TTL_SECONDS '%s'. Using default 60s. Error: %v", lineageTTLStr, err)
		lineageTTLSecs = 60
	}

	// Parse PK fragments (comma separated, normalized to upper case)
	var pkFragments []string
	for _, frag := range strings.Split(pkFragmentsStr, ",") {
		frag = strings.ToUpper(strings.TrimSpace(frag))
		if frag != "" {
			pkFragments = append(pkFragments, frag)
		}
	}
	if len(pkFragments) == 0 {
		return nil, errors.New("PK_NAME_FRAGMENTS must contain at least one fragment")
	}

	cfg := &Config{
		ServerPort:      port,
		JWTSecret:       jwtSecret,
		JWTExpiration:   time.Hour * time.Duration(jwtExpHours),
		AppDbDir:        dbDir,
		AppDbFile:       dbFile,
		ViewNamePrefix:  strings.ToUpper(viewPrefix),
		PKNameFragments: pkFragments,
		LineageCacheTTL: time.Second * time.Duration(lineageTTLSecs),
	}

	customLog.Printf("Configuration loaded successfully. Port: %s, View prefix: %s, PK fragments: %v",
		cfg.ServerPort, cfg.ViewNamePrefix, cfg.PKNameFragments)
	return cfg, nil
}

// getEnv reads an environment variable or returns a default value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}
