package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

const defaultJWTSecret = "change_this_secret"

type Config struct {
	Port           string
	MongoURI       string
	DBName         string
	JWTSecret      string
	AccessTTL      time.Duration
	RefreshTTL     time.Duration
	CookieSecure   bool
	AllowedOrigins []string

	GoogleBooksAPIKey string
	GoogleBooksURL    string

	S3Bucket      string
	S3Region      string
	S3AccessKeyID string
	S3SecretKey   string

	LogLevel      string
	LogDev        bool
	LogFile       string
	LogMaxSizeMB  int
	LogMaxBackups int

	LoginRatePerMin int
}

func Load() (*Config, error) {
	accessMin, err := getInt("JWT_EXPIRE_MINUTES", 60)
	if err != nil {
		return nil, err
	}
	refreshDays, err := getInt("REFRESH_TOKEN_EXPIRE_DAYS", 7)
	if err != nil {
		return nil, err
	}
	logSize, err := getInt("LOG_MAX_SIZE_MB", 10)
	if err != nil {
		return nil, err
	}
	logBackups, err := getInt("LOG_MAX_BACKUPS", 5)
	if err != nil {
		return nil, err
	}
	loginRate, err := getInt("LOGIN_RATE_PER_MIN", 10)
	if err != nil {
		return nil, err
	}

	return &Config{
		Port:              getEnv("PORT", "8000"),
		MongoURI:          mongoURI(),
		DBName:            getEnv("MONGODB_DB", "trackerdb"),
		JWTSecret:         getEnv("JWT_SECRET", defaultJWTSecret),
		AccessTTL:         time.Duration(accessMin) * time.Minute,
		RefreshTTL:        time.Duration(refreshDays) * 24 * time.Hour,
		CookieSecure:      getBool("COOKIE_SECURE"),
		AllowedOrigins:    ParseOrigins(getEnv("ALLOWED_ORIGINS", "http://localhost:3000")),
		GoogleBooksAPIKey: getEnv("GOOGLE_BOOKS_API_KEY", ""),
		GoogleBooksURL:    getEnv("GOOGLE_BOOKS_URL", "https://www.googleapis.com/books/v1/volumes"),
		S3Bucket:          getEnv("AWS_S3_BUCKET", ""),
		S3Region:          getEnv("AWS_REGION", "us-east-1"),
		S3AccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
		S3SecretKey:       getEnv("AWS_SECRET_ACCESS_KEY", ""),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		LogDev:            getBool("LOG_DEV"),
		LogFile:           getEnv("LOG_FILE", "logs/app.log"),
		LogMaxSizeMB:      logSize,
		LogMaxBackups:     logBackups,
		LoginRatePerMin:   loginRate,
	}, nil
}

// Validate rejects configurations the server must not start with.
func (c *Config) Validate() error {
	var problems []string
	if c.JWTSecret == "" || c.JWTSecret == defaultJWTSecret {
		problems = append(problems, "JWT_SECRET must be set to a strong secret")
	}
	if c.AccessTTL <= 0 {
		problems = append(problems, "JWT_EXPIRE_MINUTES must be positive")
	}
	if c.RefreshTTL <= 0 {
		problems = append(problems, "REFRESH_TOKEN_EXPIRE_DAYS must be positive")
	}
	if c.LoginRatePerMin <= 0 {
		problems = append(problems, "LOGIN_RATE_PER_MIN must be positive")
	}
	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

// Warnings lists optional features that are off because their env is unset.
func (c *Config) Warnings() []string {
	var out []string
	if c.GoogleBooksAPIKey == "" {
		out = append(out, "GOOGLE_BOOKS_API_KEY not set; catalog search will fail")
	}
	if c.S3Bucket == "" {
		out = append(out, "AWS_S3_BUCKET not set; covers will not be mirrored")
	}
	return out
}

// mongoURI prefers MONGODB_URI, then builds one from the MONGO_* parts.
func mongoURI() string {
	if v := getEnv("MONGODB_URI", ""); v != "" {
		return v
	}
	host := getEnv("MONGO_HOST", "mongo:27017")
	user, pass := os.Getenv("MONGO_USER"), os.Getenv("MONGO_PASS")
	if user != "" && pass != "" {
		return fmt.Sprintf("mongodb://%s:%s@%s/?authSource=%s",
			url.QueryEscape(user), url.QueryEscape(pass), host, getEnv("MONGO_AUTH_DB", "admin"))
	}
	return "mongodb://" + host
}

// ParseOrigins splits a comma-separated origin list, dropping blanks.
func ParseOrigins(v string) []string {
	var out []string
	for _, o := range strings.Split(v, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) (int, error) {
	v := getEnv(key, "")
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %q is not an integer", key, v)
	}
	return n, nil
}

func getBool(key string) bool {
	b, _ := strconv.ParseBool(getEnv(key, "false"))
	return b
}
