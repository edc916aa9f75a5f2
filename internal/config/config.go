package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	NodeEnv   string
	Port      string
	JWTSecret string
	Serial    SerialConfig
	Artifact  ArtifactConfig
	Database  DatabaseConfig
	Blob      BlobConfig
	Odoo      OdooConfig
}

// SerialConfig controls serial number issuance
type SerialConfig struct {
	Prefix      string // leading token of every serial, e.g. "SV"
	MaxAttempts int    // allocator retry bound before giving up
}

// ArtifactConfig controls identity artifact (QR) generation
type ArtifactConfig struct {
	Domain string // scan-target domain encoded into every artifact
	Mark   string // instance mark appended to the payload
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	Database string
	Alter    bool
}

// BlobConfig selects and configures the artifact blob store
type BlobConfig struct {
	Driver    string // "s3" or "local"
	Bucket    string
	Region    string
	KeyPrefix string
	LocalDir  string
}

// OdooConfig holds the optional order-link backend (XML-RPC)
type OdooConfig struct {
	Enabled  bool
	URL      string
	Database string
	Username string
	Password string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	odooURL := os.Getenv("ODOO_URL")

	return &Config{
		NodeEnv:   getEnv("NODE_ENV", "development"),
		Port:      getEnv("PORT", "3310"),
		JWTSecret: jwtSecret,
		Serial: SerialConfig{
			Prefix:      getEnv("SERIAL_PREFIX", "SV"),
			MaxAttempts: 5,
		},
		Artifact: ArtifactConfig{
			Domain: getEnv("ARTIFACT_DOMAIN", "PRDL.ONE"),
			Mark:   getEnv("INSTANCE_MARK", "F1"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("PG_HOST", "localhost"),
			Port:     getEnv("PG_PORT", "5432"),
			Username: getEnv("PG_USERNAME", "postgres"),
			Password: os.Getenv("PG_PASSWORD"),
			Database: getEnv("PG_DATABASE", "prodline"),
			Alter:    getEnv("DB_ALTER", "false") == "true",
		},
		Blob: BlobConfig{
			Driver:    getEnv("BLOB_DRIVER", "local"),
			Bucket:    os.Getenv("BLOB_S3_BUCKET"),
			Region:    getEnv("BLOB_S3_REGION", "eu-central-1"),
			KeyPrefix: getEnv("BLOB_KEY_PREFIX", "artifacts"),
			LocalDir:  getEnv("BLOB_LOCAL_DIR", "./blob_data"),
		},
		Odoo: OdooConfig{
			Enabled:  odooURL != "",
			URL:      odooURL,
			Database: os.Getenv("ODOO_DATABASE"),
			Username: os.Getenv("ODOO_USERNAME"),
			Password: os.Getenv("ODOO_PASSWORD"),
		},
	}, nil
}

// getEnv gets environment variable with default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
