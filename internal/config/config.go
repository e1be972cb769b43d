package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

const defaultSecret = "your-secret-key-change-in-production"

// Config 应用配置
type Config struct {
	Env         string
	AppSecret   string
	DatabaseURL string
	JWTExpiry   time.Duration
	Port        string
	SiteName    string
	SiteUrl     string
	LogLevel    string

	// TMDB
	TMDBAPIKey    string
	TMDBBaseURL   string
	TMDBRateLimit float64 // 每秒请求数

	// DefaultListPrivate 首次添加电影时自动创建的 "Watchlist" 是否为私有
	DefaultListPrivate bool
	// HomeCacheTTL 首页聚合数据缓存时间
	HomeCacheTTL time.Duration
	// RealtimePGNotify 开启后通过 Postgres LISTEN/NOTIFY 在多实例间转发实时消息
	RealtimePGNotify bool
}

// Load 加载配置
func Load() *Config {
	expiryHours, err := strconv.Atoi(getEnv("JWT_EXPIRY_HOURS", "72"))
	if err != nil || expiryHours <= 0 {
		expiryHours = 72
	}
	homeCacheSeconds, _ := strconv.Atoi(getEnv("HOME_CACHE_SECONDS", "60"))
	rateLimit, err := strconv.ParseFloat(getEnv("TMDB_RATE_LIMIT", "20"), 64)
	if err != nil || rateLimit <= 0 {
		rateLimit = 20
	}

	dbUser := getEnv("DB_USER", "postgres")
	dbPass := getEnv("DB_PASSWORD", "postgres")
	dbHost := getEnv("DB_HOST", "localhost")
	dbPort := getEnv("DB_PORT", "5432")
	dbName := getEnv("DB_NAME", "cinelog")
	dbSSL := getEnv("DB_SSLMODE", "disable")

	dbURL := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		dbUser, dbPass, dbHost, dbPort, dbName, dbSSL)

	appSecret := getEnv("APP_SECRET", getEnv("JWT_SECRET", defaultSecret))

	if getEnv("APP_ENV", "development") == "production" && appSecret == defaultSecret {
		fmt.Println("[WARNING] production is running with the default secret, set APP_SECRET now.")
	}

	return &Config{
		Env:                getEnv("APP_ENV", "development"),
		AppSecret:          appSecret,
		DatabaseURL:        dbURL,
		JWTExpiry:          time.Duration(expiryHours) * time.Hour,
		Port:               getEnv("PORT", "5005"),
		SiteName:           getEnv("SITE_NAME", "Cinelog"),
		SiteUrl:            getEnv("SITE_URL", "http://localhost:5005"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		TMDBAPIKey:         getEnv("TMDB_API_KEY", ""),
		TMDBBaseURL:        getEnv("TMDB_BASE_URL", "https://api.themoviedb.org/3"),
		TMDBRateLimit:      rateLimit,
		DefaultListPrivate: getBool("DEFAULT_LIST_PRIVATE", true),
		HomeCacheTTL:       time.Duration(homeCacheSeconds) * time.Second,
		RealtimePGNotify:   getBool("REALTIME_PG_NOTIFY", false),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBool(key string, defaultValue bool) bool {
	v, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return v
}
