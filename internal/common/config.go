package common

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/joseph-ayodele/pallet-scanner/internal/palletid"
)

// Config holds all application configuration
type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	OCR      OCRConfig
	Scan     ScanConfig
	LogLevel string
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	Driver           string // postgres or sqlite
	DSN              string
	SQLitePath       string
	Table            string
	MaxConns         int32
	MinConns         int32
	MaxConnLifetime  time.Duration
	MaxConnIdleTime  time.Duration
	DialTimeout      time.Duration
	StatementTimeout time.Duration
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	GRPCAddr string
	ScanRoot string // Scan RPC paths must resolve under this directory; empty disables Scan
}

// OCRConfig selects and tunes the rendering, recognition and text backends.
type OCRConfig struct {
	Renderer    string // poppler or mupdf
	Engine      string // tesseract or gosseract
	TextReader  string // pdf, pdftotext or none
	Pdfinfo     string
	Pdftoppm    string
	Pdftotext   string
	Tesseract   string
	Lang        string
	TessdataDir string
	Whitelist   string
	PSM         int
	OEM         int
	Scale       float64
	ImageScale  float64
	MaxPages    int
}

type ScanConfig struct {
	Strategy string
	Workers  int
}

// LoadConfig loads configuration from environment variables, reading a .env
// file first when one exists.
func LoadConfig() *Config {
	// .env is optional; the process environment always wins
	_ = godotenv.Load()
	return &Config{
		Database: DatabaseConfig{
			Driver:           strings.ToLower(getEnv("DB_DRIVER", "postgres")),
			DSN:              getEnv("DB_URL", ""),
			SQLitePath:       getEnv("SQLITE_PATH", "pallets.db"),
			Table:            getEnv("DB_TABLE", "pallet_records"),
			MaxConns:         getEnvAsInt32("DB_MAX_CONNS", 20),
			MinConns:         getEnvAsInt32("DB_MIN_CONNS", 2),
			MaxConnLifetime:  getEnvAsDuration("DB_MAX_CONN_LIFETIME", 30*time.Minute),
			MaxConnIdleTime:  getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 5*time.Minute),
			DialTimeout:      getEnvAsDuration("DB_DIAL_TIMEOUT", 3*time.Second),
			StatementTimeout: getEnvAsDuration("DB_STATEMENT_TIMEOUT", 0),
		},
		Server: ServerConfig{
			GRPCAddr: getEnv("GRPC_ADDR", ":8080"),
			ScanRoot: getEnv("SCAN_ROOT", ""),
		},
		OCR: OCRConfig{
			Renderer:    strings.ToLower(getEnv("OCR_RENDERER", "poppler")),
			Engine:      strings.ToLower(getEnv("OCR_ENGINE", "tesseract")),
			TextReader:  strings.ToLower(getEnv("OCR_TEXT", "pdf")),
			Pdfinfo:     getEnv("PDFINFO_BIN", "pdfinfo"),
			Pdftoppm:    getEnv("PDFTOPPM_BIN", "pdftoppm"),
			Pdftotext:   getEnv("PDFTOTEXT_BIN", "pdftotext"),
			Tesseract:   getEnv("TESSERACT_BIN", "tesseract"),
			Lang:        getEnv("OCR_LANG", "eng"),
			TessdataDir: getEnv("TESSDATA_PREFIX", ""),
			Whitelist:   getEnv("OCR_WHITELIST", ""),
			PSM:         getEnvAsInt("OCR_PSM", 0),
			OEM:         getEnvAsInt("OCR_OEM", 0),
			Scale:       getEnvAsFloat64("OCR_SCALE", 2.0),
			ImageScale:  getEnvAsFloat64("OCR_IMAGE_SCALE", 1.0),
			MaxPages:    getEnvAsInt("OCR_MAX_PAGES", 0),
		},
		Scan: ScanConfig{
			Strategy: getEnv("SCAN_STRATEGY", palletid.Strict.String()),
			Workers:  getEnvAsInt("SCAN_WORKERS", 1),
		},
		LogLevel: getEnv("LOG_LEVEL", "info"),
	}
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsInt32(key string, defaultValue int32) int32 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(intVal)
		}
	}
	return defaultValue
}

func getEnvAsFloat64(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// Validate checks the settings every binary depends on. Database settings are
// checked separately by ValidateDatabase since scanning works without one.
func (c *Config) Validate() error {
	if _, err := palletid.ParseStrategy(c.Scan.Strategy); err != nil {
		return NewAppError("CONFIG_ERROR", "SCAN_STRATEGY must be strict or tolerant", ErrInvalidInput)
	}
	if c.Scan.Workers < 1 {
		return NewAppError("CONFIG_ERROR", "SCAN_WORKERS must be at least 1", ErrInvalidInput)
	}
	switch c.OCR.Renderer {
	case "poppler", "mupdf":
	default:
		return NewAppError("CONFIG_ERROR", "OCR_RENDERER must be poppler or mupdf", ErrInvalidInput)
	}
	switch c.OCR.Engine {
	case "tesseract", "gosseract":
	default:
		return NewAppError("CONFIG_ERROR", "OCR_ENGINE must be tesseract or gosseract", ErrInvalidInput)
	}
	switch c.OCR.TextReader {
	case "pdf", "pdftotext", "none":
	default:
		return NewAppError("CONFIG_ERROR", "OCR_TEXT must be pdf, pdftotext or none", ErrInvalidInput)
	}
	if c.OCR.Scale <= 0 || c.OCR.ImageScale <= 0 {
		return NewAppError("CONFIG_ERROR", "OCR_SCALE and OCR_IMAGE_SCALE must be positive", ErrInvalidInput)
	}
	return nil
}

// ValidateDatabase checks the settings needed to open the record store.
func (c *Config) ValidateDatabase() error {
	switch c.Database.Driver {
	case "postgres":
		if c.Database.DSN == "" {
			return NewAppError("CONFIG_ERROR", "DB_URL is required", ErrInvalidInput)
		}
	case "sqlite":
		if c.Database.SQLitePath == "" {
			return NewAppError("CONFIG_ERROR", "SQLITE_PATH is required", ErrInvalidInput)
		}
	default:
		return NewAppError("CONFIG_ERROR", "DB_DRIVER must be postgres or sqlite", ErrInvalidInput)
	}
	if c.Database.Table == "" {
		return NewAppError("CONFIG_ERROR", "DB_TABLE is required", ErrInvalidInput)
	}
	return nil
}

// ValidateServer checks the settings needed by the gRPC daemon.
func (c *Config) ValidateServer() error {
	if c.Server.GRPCAddr == "" {
		return NewAppError("CONFIG_ERROR", "GRPC_ADDR is required", ErrInvalidInput)
	}
	return c.ValidateDatabase()
}
