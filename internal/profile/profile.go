package profile

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Profile is the configuration to start the main server.
type Profile struct {
	// Mode can be "prod" or "dev" or "demo"
	Mode string
	// Addr is the binding address for server
	Addr string
	// Port is the binding port for server
	Port int
	// Data is the data directory
	Data string
	// Version is the current version of server
	Version string

	// Secret signs access and refresh tokens
	Secret string

	// Redis configuration
	RedisHost     string // MINDMAP_REDIS_HOST (default: localhost)
	RedisPort     int    // MINDMAP_REDIS_PORT (default: 6379)
	RedisDB       int    // MINDMAP_REDIS_DB (default: 0)
	RedisPassword string // MINDMAP_REDIS_PASSWORD

	// RateLimitPerMinute caps requests per client per minute
	RateLimitPerMinute int // MINDMAP_RATE_LIMIT_PER_MINUTE (default: 60)
}

func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

// getEnvOrDefault returns the environment variable value or the default value.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnvOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if v, err := strconv.Atoi(value); err == nil {
			return v
		}
	}
	return defaultValue
}

// FromEnv loads configuration from MINDMAP_* environment variables.
func (p *Profile) FromEnv() {
	p.Secret = getEnvOrDefault("MINDMAP_SECRET", p.Secret)
	p.RedisHost = getEnvOrDefault("MINDMAP_REDIS_HOST", "localhost")
	p.RedisPort = getIntEnvOrDefault("MINDMAP_REDIS_PORT", 6379)
	p.RedisDB = getIntEnvOrDefault("MINDMAP_REDIS_DB", 0)
	p.RedisPassword = os.Getenv("MINDMAP_REDIS_PASSWORD")
	p.RateLimitPerMinute = getIntEnvOrDefault("MINDMAP_RATE_LIMIT_PER_MINUTE", 60)
}

func checkDataDir(dataDir string) (string, error) {
	// Convert to absolute path if relative path is supplied.
	if !filepath.IsAbs(dataDir) {
		relativeDir := filepath.Join(filepath.Dir(os.Args[0]), dataDir)
		absDir, err := filepath.Abs(relativeDir)
		if err != nil {
			return "", err
		}
		dataDir = absDir
	}

	// Trim trailing \ or / in case user supplies
	dataDir = strings.TrimRight(dataDir, "\\/")
	if _, err := os.Stat(dataDir); err != nil {
		return "", errors.Wrapf(err, "unable to access data folder %s", dataDir)
	}
	return dataDir, nil
}

func (p *Profile) Validate() error {
	if p.Mode != "demo" && p.Mode != "dev" && p.Mode != "prod" {
		p.Mode = "demo"
	}

	if p.Mode != "demo" {
		if p.Data == "" {
			p.Data = "."
		}
		dataDir, err := checkDataDir(p.Data)
		if err != nil {
			return err
		}
		p.Data = dataDir
	}

	if p.Secret == "" {
		if p.Mode == "prod" {
			return errors.New("a token secret is required in prod mode, set MINDMAP_SECRET")
		}
		p.Secret = "mindmap-dev-secret"
	}

	return nil
}
