package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Storage backends for the budget item state.
const (
	StorageDatabase = "database"
	StorageRedis    = "redis"
	StorageMemory   = "memory"
)

// Database drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// DefaultCategories is the category enumeration offered by the add form and
// the category filter.
var DefaultCategories = []string{"Food", "Transportation", "Entertainment", "Utilities", "Other"}

// DefaultDateLayout renders timestamps like "Oct 19, 2026 3:04 PM".
const DefaultDateLayout = "Jan 2, 2006 3:04 PM"

// Config holds application configuration
type Config struct {
	Env string

	// Server
	Port string

	// Database
	DBDriver   string
	SQLitePath string
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// Budget item state
	StorageBackend   string
	StorageKeyPrefix string

	// Redis
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// JSON API
	APIKey string

	// Presentation
	Categories []string
	DateLayout string
}

var appConfig *Config

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if not already loaded
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found")
	}

	config := &Config{
		Env:  getEnv("ENV", "development"),
		Port: getEnv("PORT", "8080"),

		DBDriver:   strings.ToLower(getEnv("DB_DRIVER", DriverSQLite)),
		SQLitePath: getEnv("SQLITE_PATH", "./data/budgetbook.db"),
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "budgetbook"),
		DBPassword: getEnv("DB_PASSWORD", "budgetbook"),
		DBName:     getEnv("DB_NAME", "budgetbook"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		StorageBackend:   strings.ToLower(getEnv("STORAGE_BACKEND", StorageDatabase)),
		StorageKeyPrefix: getEnv("STORAGE_KEY_PREFIX", ""),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),

		APIKey: getEnv("API_KEY", ""),

		Categories: parseList(getEnv("BUDGET_CATEGORIES", "")),
		DateLayout: getEnv("DATE_LAYOUT", DefaultDateLayout),
	}
	if len(config.Categories) == 0 {
		config.Categories = append([]string(nil), DefaultCategories...)
	}

	redisDB := getEnv("REDIS_DB", "0")
	n, err := strconv.Atoi(redisDB)
	if err != nil {
		log.Printf("Warning: invalid REDIS_DB value '%s', falling back to 0\n", redisDB)
		n = 0
	}
	config.RedisDB = n

	if err := config.Validate(); err != nil {
		return nil, err
	}

	appConfig = config
	return config, nil
}

// Get returns the application configuration
func Get() *Config {
	if appConfig == nil {
		var err error
		appConfig, err = Load()
		if err != nil {
			log.Fatalf("Failed to load configuration: %v", err)
		}
	}
	return appConfig
}

// Validate rejects configurations the server cannot start with.
func (c *Config) Validate() error {
	var problems []string

	if port, err := strconv.Atoi(c.Port); err != nil || port < 1 || port > 65535 {
		problems = append(problems, fmt.Sprintf("invalid PORT %q", c.Port))
	}

	switch c.DBDriver {
	case DriverSQLite:
		if c.SQLitePath == "" {
			problems = append(problems, "SQLITE_PATH is required for the sqlite driver")
		}
	case DriverPostgres:
		if c.DBHost == "" || c.DBName == "" {
			problems = append(problems, "DB_HOST and DB_NAME are required for the postgres driver")
		}
	default:
		problems = append(problems, fmt.Sprintf("unknown DB_DRIVER %q (use sqlite or postgres)", c.DBDriver))
	}

	switch c.StorageBackend {
	case StorageDatabase, StorageMemory:
	case StorageRedis:
		if c.RedisAddr == "" {
			problems = append(problems, "REDIS_ADDR is required for the redis storage backend")
		}
	default:
		problems = append(problems, fmt.Sprintf("unknown STORAGE_BACKEND %q (use database, redis or memory)", c.StorageBackend))
	}

	if len(c.Categories) == 0 {
		problems = append(problems, "BUDGET_CATEGORIES must name at least one category")
	}
	if c.DateLayout == "" {
		problems = append(problems, "DATE_LAYOUT cannot be empty")
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration:\n- %s", strings.Join(problems, "\n- "))
	}
	return nil
}

// PostgresURL returns the connection URL used by gorm and golang-migrate.
func (c *Config) PostgresURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode)
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// parseList splits a comma separated list, dropping blanks and duplicates.
func parseList(raw string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if _, ok := seen[part]; ok {
			continue
		}
		seen[part] = struct{}{}
		out = append(out, part)
	}
	return out
}
