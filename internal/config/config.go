package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	App       *AppConfig       `yaml:"app"`
	Database  *DatabaseConfig  `yaml:"database"`
	Redis     *RedisConfig     `yaml:"redis"`
	SePay     *SePayConfig     `yaml:"sepay"`
	Maps      *MapsConfig      `yaml:"maps"`
	Security  *SecurityConfig  `yaml:"security"`
	Wallet    *WalletConfig    `yaml:"wallet"`
	WebSocket *WebSocketConfig `yaml:"websocket"`
}

type AppConfig struct {
	Name        string `yaml:"name"`
	Version     string `yaml:"version"`
	Environment string `yaml:"environment"`
	Port        int    `yaml:"port"`
	Host        string `yaml:"host"`
	Debug       bool   `yaml:"debug"`
	LogLevel    string `yaml:"log_level"`
	LogFormat   string `yaml:"log_format"`
	Currency    string `yaml:"currency"`
}

type DatabaseConfig struct {
	URI            string        `yaml:"uri"`
	Database       string        `yaml:"database"`
	MaxPoolSize    int           `yaml:"max_pool_size"`
	MinPoolSize    int           `yaml:"min_pool_size"`
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
	SocketTimeout  time.Duration `yaml:"socket_timeout"`
}

type RedisConfig struct {
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	Password     string        `yaml:"password"`
	DB           int           `yaml:"db"`
	PoolSize     int           `yaml:"pool_size"`
	MinIdleConns int           `yaml:"min_idle_conns"`
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

type SePayConfig struct {
	AccountNumber string        `yaml:"account_number"`
	BankCode      string        `yaml:"bank_code"`
	APIKey        string        `yaml:"api_key"`
	BaseURL       string        `yaml:"base_url"`
	PollInterval  time.Duration `yaml:"poll_interval"`
	PollTimeout   time.Duration `yaml:"poll_timeout"`
	ListLimit     int           `yaml:"list_limit"`
}

type MapsConfig struct {
	Provider          string `yaml:"provider"` // google, mapbox
	GoogleAPIKey      string `yaml:"google_api_key"`
	MapboxAccessToken string `yaml:"mapbox_access_token"`
}

type SecurityConfig struct {
	JWTSecret           string        `yaml:"jwt_secret"`
	JWTAccessTokenTTL   time.Duration `yaml:"jwt_access_token_ttl"`
	FirebaseCredentials string        `yaml:"firebase_credentials"`
	CORSAllowedOrigins  []string      `yaml:"cors_allowed_origins"`
}

type WalletConfig struct {
	// SeedBalance is granted when a wallet is created on first access,
	// in currency minor units.
	SeedBalance int64 `yaml:"seed_balance"`
}

type WebSocketConfig struct {
	ReadBufferSize  int           `yaml:"read_buffer_size"`
	WriteBufferSize int           `yaml:"write_buffer_size"`
	PongWait        time.Duration `yaml:"pong_wait"`
	WriteWait       time.Duration `yaml:"write_wait"`
	MaxMessageSize  int64         `yaml:"max_message_size"`
}

func Load() (*Config, error) {
	config := &Config{
		App:       loadAppConfig(),
		Database:  loadDatabaseConfig(),
		Redis:     loadRedisConfig(),
		SePay:     loadSePayConfig(),
		Maps:      loadMapsConfig(),
		Security:  loadSecurityConfig(),
		Wallet:    loadWalletConfig(),
		WebSocket: loadWebSocketConfig(),
	}
	return config, nil
}

func loadAppConfig() *AppConfig {
	return &AppConfig{
		Name:        getEnv("APP_NAME", "SwiftRide"),
		Version:     getEnv("APP_VERSION", "1.0.0"),
		Environment: getEnv("APP_ENV", "development"),
		Port:        getEnvAsInt("APP_PORT", 8080),
		Host:        getEnv("APP_HOST", "0.0.0.0"),
		Debug:       getEnvAsBool("APP_DEBUG", true),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		LogFormat:   getEnv("LOG_FORMAT", "text"),
		Currency:    getEnv("APP_CURRENCY", "VND"),
	}
}

func loadDatabaseConfig() *DatabaseConfig {
	return &DatabaseConfig{
		URI:            getEnv("MONGODB_URI", "mongodb://localhost:27017"),
		Database:       getEnv("MONGODB_DATABASE", "swiftride"),
		MaxPoolSize:    getEnvAsInt("MONGODB_MAX_POOL_SIZE", 100),
		MinPoolSize:    getEnvAsInt("MONGODB_MIN_POOL_SIZE", 10),
		ConnectTimeout: getEnvAsDuration("MONGODB_CONNECT_TIMEOUT", 10*time.Second),
		SocketTimeout:  getEnvAsDuration("MONGODB_SOCKET_TIMEOUT", 30*time.Second),
	}
}

func loadRedisConfig() *RedisConfig {
	return &RedisConfig{
		Host:         getEnv("REDIS_HOST", "localhost"),
		Port:         getEnvAsInt("REDIS_PORT", 6379),
		Password:     getEnv("REDIS_PASSWORD", ""),
		DB:           getEnvAsInt("REDIS_DB", 0),
		PoolSize:     getEnvAsInt("REDIS_POOL_SIZE", 10),
		MinIdleConns: getEnvAsInt("REDIS_MIN_IDLE_CONNS", 2),
		DialTimeout:  getEnvAsDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
		ReadTimeout:  getEnvAsDuration("REDIS_READ_TIMEOUT", 3*time.Second),
		WriteTimeout: getEnvAsDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
	}
}

func loadSePayConfig() *SePayConfig {
	return &SePayConfig{
		AccountNumber: getEnv("SEPAY_ACCOUNT_NUMBER", ""),
		BankCode:      getEnv("SEPAY_BANK_CODE", "MBBank"),
		APIKey:        getEnv("SEPAY_API_KEY", ""),
		BaseURL:       getEnv("SEPAY_BASE_URL", "https://my.sepay.vn/userapi"),
		PollInterval:  getEnvAsDuration("SEPAY_POLL_INTERVAL", 5*time.Second),
		PollTimeout:   getEnvAsDuration("SEPAY_POLL_TIMEOUT", 5*time.Minute),
		ListLimit:     getEnvAsInt("SEPAY_LIST_LIMIT", 20),
	}
}

func loadMapsConfig() *MapsConfig {
	return &MapsConfig{
		Provider:          getEnv("MAPS_PROVIDER", "mapbox"),
		GoogleAPIKey:      getEnv("GOOGLE_MAPS_API_KEY", ""),
		MapboxAccessToken: getEnv("MAPBOX_ACCESS_TOKEN", ""),
	}
}

func loadSecurityConfig() *SecurityConfig {
	return &SecurityConfig{
		JWTSecret:           getEnv("JWT_SECRET", "change-me"),
		JWTAccessTokenTTL:   getEnvAsDuration("JWT_ACCESS_TOKEN_TTL", 24*time.Hour),
		FirebaseCredentials: getEnv("FIREBASE_CREDENTIALS_FILE", ""),
		CORSAllowedOrigins:  []string{getEnv("CORS_ALLOWED_ORIGINS", "*")},
	}
}

func loadWalletConfig() *WalletConfig {
	return &WalletConfig{
		SeedBalance: int64(getEnvAsInt("WALLET_SEED_BALANCE", 500)),
	}
}

func loadWebSocketConfig() *WebSocketConfig {
	return &WebSocketConfig{
		ReadBufferSize:  getEnvAsInt("WS_READ_BUFFER_SIZE", 1024),
		WriteBufferSize: getEnvAsInt("WS_WRITE_BUFFER_SIZE", 1024),
		PongWait:        getEnvAsDuration("WS_PONG_WAIT", 60*time.Second),
		WriteWait:       getEnvAsDuration("WS_WRITE_WAIT", 10*time.Second),
		MaxMessageSize:  int64(getEnvAsInt("WS_MAX_MESSAGE_SIZE", 512)),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
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
