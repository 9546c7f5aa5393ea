package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultBaseURL  = "https://www.dane.gov.co"
	defaultIndexURL = defaultBaseURL + "/index.php/estadisticas-por-tema/agropecuario/" +
		"sistema-de-informacion-de-precios-sipsa/mayoristas-boletin-semanal-1"
	defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 " +
		"(KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	// Source site
	BaseURL     string
	IndexURL    string
	UserAgent   string
	FetchMode   string // "http" or "browser"
	ChromeBin   string
	HTTPTimeout time.Duration

	// Object store
	StoreBackend  string // "s3" or "local"
	BucketName    string
	AWSRegion     string
	AWSProfile    string
	S3PathStyle   bool
	S3Endpoint    string // S3-compatible endpoint such as MinIO; empty for AWS
	LocalStoreDir string
	ReportsPrefix string
	TrackerKey    string
	LogPrefix     string

	// Relational sink
	SinkDriver       string // "postgres" or "sqlite"
	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string
	SQLitePath       string
	TableName        string
	BatchSize        int

	// Pipeline
	MaxConcurrency int
	RateLimitMs    int
	MaxRetries     int
	SkipCollection bool

	// Validation
	VocabularyMode        string // "advisory", "strict" or "off"
	CityVocabularyFile    string
	ProductVocabularyFile string

	MetricsTextfile string
	Debug           bool
}

// Load reads the .env file and returns a populated Config struct.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("[config] No .env file found, falling back to system env vars")
	}

	return &Config{
		BaseURL:     strings.TrimRight(getEnv("SIPSA_BASE_URL", defaultBaseURL), "/"),
		IndexURL:    getEnv("SIPSA_INDEX_URL", defaultIndexURL),
		UserAgent:   getEnv("USER_AGENT", defaultUserAgent),
		FetchMode:   strings.ToLower(getEnv("FETCH_MODE", "http")),
		ChromeBin:   getEnv("CHROME_BIN", ""),
		HTTPTimeout: time.Duration(getEnvInt("HTTP_TIMEOUT_SECONDS", 60)) * time.Second,

		StoreBackend:  strings.ToLower(getEnv("STORE_BACKEND", "s3")),
		BucketName:    getEnv("BUCKET_NAME", ""),
		AWSRegion:     getEnv("AWS_REGION", ""),
		AWSProfile:    getEnv("AWS_PROFILE", ""),
		S3PathStyle:   getEnvBool("S3_USE_PATH_STYLE", false),
		S3Endpoint:    getEnv("S3_ENDPOINT", ""),
		LocalStoreDir: getEnv("LOCAL_STORE_DIR", "./data"),
		ReportsPrefix: getEnv("REPORTS_PREFIX", "reports"),
		TrackerKey:    getEnv("TRACKER_KEY", "files_tracker.csv"),
		LogPrefix:     getEnv("LOG_PREFIX", "logs/"),

		SinkDriver:       strings.ToLower(getEnv("SINK_DRIVER", "postgres")),
		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "sipsa"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "sipsa"),
		PostgresDB:       getEnv("POSTGRES_DB", "sipsa"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),
		SQLitePath:       getEnv("SQLITE_PATH", "./data/sipsa.db"),
		TableName:        getEnv("TABLE_NAME", "product_prices"),
		BatchSize:        getEnvInt("BATCH_SIZE", 500),

		MaxConcurrency: getEnvInt("MAX_CONCURRENCY", 4),
		RateLimitMs:    getEnvInt("RATE_LIMIT_MS", 1000),
		MaxRetries:     getEnvInt("MAX_RETRIES", 3),
		SkipCollection: getEnvBool("SKIP_COLLECTION", false),

		VocabularyMode:        strings.ToLower(getEnv("VOCABULARY_MODE", "advisory")),
		CityVocabularyFile:    getEnv("CITY_VOCABULARY_FILE", ""),
		ProductVocabularyFile: getEnv("PRODUCT_VOCABULARY_FILE", ""),

		MetricsTextfile: getEnv("METRICS_TEXTFILE", ""),
		Debug:           getEnvBool("DEBUG", false),
	}
}

// DSN returns the PostgreSQL connection string.
func (c *Config) DSN() string {
	return "host=" + c.PostgresHost +
		" port=" + c.PostgresPort +
		" user=" + c.PostgresUser +
		" password=" + c.PostgresPassword +
		" dbname=" + c.PostgresDB +
		" sslmode=" + c.PostgresSSLMode
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		n, err := strconv.Atoi(val)
		if err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		b, err := strconv.ParseBool(val)
		if err == nil {
			return b
		}
	}
	return fallback
}
