package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	APIPort     string
	FrontendURL string
	JWTKey      []byte
	JWTExp      time.Duration
	BcryptCost  int

	AuthRateLimitPerMinute int
	MaxRequestBytes        int64

	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSslMode  string
	DBConnStr  string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	FinalizeLockTTL time.Duration
	RoleCacheTTL    time.Duration

	JudgeURL          string
	JudgeRapidAPIKey  string
	JudgeRapidAPIHost string
	JudgeAuthUser     string
	JudgeAuthToken    string
	JudgeTimeout      time.Duration
	JudgeMaxRetries   int
	JudgeRetryBase    time.Duration
	JudgeBatchSize    int
	JudgeRPS          int

	LogLevel string
	LogFile  string
}

var AppConfig *Config

// Load reads envFile (if present) and the process environment into AppConfig.
// It reports whether an env file was read; the logger is not up yet, so the caller logs it.
func Load(envFile string) (fromFile bool) {
	files := []string{}
	if envFile != "" {
		files = append(files, envFile)
	}
	fromFile = godotenv.Load(files...) == nil

	AppConfig = &Config{
		APIPort:                getEnv("API_PORT", "8080"),
		FrontendURL:            getEnv("FRONTEND_URL", "http://localhost:5173"),
		JWTKey:                 []byte(getEnv("JWT_SECRET", "defaultsecret")),
		JWTExp:                 time.Duration(getEnvAsInt("JWT_EXPIRATION_HOURS", 1)) * time.Hour,
		BcryptCost:             getEnvAsInt("BCRYPT_COST", 10),
		AuthRateLimitPerMinute: getEnvAsInt("AUTH_RATE_LIMIT_PER_MINUTE", 20),
		MaxRequestBytes:        int64(getEnvAsInt("MAX_REQUEST_BYTES", 1<<20)),

		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "user"),
		DBPassword: getEnv("DB_PASSWORD", "password"),
		DBName:     getEnv("DB_NAME", "igress"),
		DBSslMode:  getEnv("DB_SSLMODE", "disable"),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvAsInt("REDIS_DB", 0),

		FinalizeLockTTL: time.Duration(getEnvAsInt("FINALIZE_LOCK_TTL_SECONDS", 120)) * time.Second,
		RoleCacheTTL:    time.Duration(getEnvAsInt("ROLE_CACHE_TTL_SECONDS", 60)) * time.Second,

		JudgeURL:          strings.TrimRight(getEnv("JUDGE0_URL", "https://judge0-ce.p.rapidapi.com"), "/"),
		JudgeRapidAPIKey:  getEnv("JUDGE0_RAPIDAPI_KEY", ""),
		JudgeRapidAPIHost: getEnv("JUDGE0_RAPIDAPI_HOST", "judge0-ce.p.rapidapi.com"),
		JudgeAuthUser:     getEnv("JUDGE0_AUTH_USER", ""),
		JudgeAuthToken:    getEnv("JUDGE0_AUTH_TOKEN", ""),
		JudgeTimeout:      time.Duration(getEnvAsInt("JUDGE0_TIMEOUT_SECONDS", 10)) * time.Second,
		JudgeMaxRetries:   getEnvAsInt("JUDGE0_MAX_RETRIES", 3),
		JudgeRetryBase:    time.Duration(getEnvAsInt("JUDGE0_RETRY_BASE_MS", 250)) * time.Millisecond,
		JudgeBatchSize:    getEnvAsInt("JUDGE0_BATCH_SIZE", 20),
		JudgeRPS:          getEnvAsInt("JUDGE0_RPS", 10),

		LogLevel: getEnv("LOG_LEVEL", "info"),
		LogFile:  getEnv("LOG_FILE", "logs/app.log"),
	}

	AppConfig.DBConnStr = "host=" + AppConfig.DBHost +
		" port=" + AppConfig.DBPort +
		" user=" + AppConfig.DBUser +
		" password=" + AppConfig.DBPassword +
		" dbname=" + AppConfig.DBName +
		" sslmode=" + AppConfig.DBSslMode
	return fromFile
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return fallback
}
