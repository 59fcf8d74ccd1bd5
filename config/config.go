package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// AppConfig holds environment driven configuration values.
// Sensitive data should never have defaults inside code and must be provided via env files or the environment.
type AppConfig struct {
	AppPort            string
	JWTSecret          string
	AppTimezone        string
	PublicHostname     string
	RateLimitPerMinute int
	AllowedOrigins     []string
	// Guest cookie lifetime in days
	GuestCookieDays int
	// Failed admin logins per IP per hour before a temporary ban
	LoginMaxFailures int
	LoginBanMinutes  int
	// Database
	DBDriver    string
	DatabaseURI string
	DBHost      string
	DBPort      string
	DBUser      string
	DBPassword  string
	DBName      string
	// Redis for caching and token revocation
	RedisEnabled  bool
	RedisHost     string
	RedisPort     int
	RedisDB       int
	RedisPassword string
	// Logging configuration
	LogLevel      string
	LogPath       string
	LogMaxSizeMB  int
	LogMaxBackups int
	LogMaxAgeDays int
	LogCompress   bool
	// Gin framework configuration
	GinMode string
	GinPath string
	// Naver Cloud Platform maps
	NaverMapClientID string
	NaverAPIKeyID    string
	NaverAPIKey      string
	NaverMapsBaseURL string
	// Nightly compliance sweep, standard 5-field cron expression
	ComplianceCron string
}

// fileConfig mirrors the grouped layout of config/config.json and config/config.yaml.
type fileConfig struct {
	App struct {
		AppPort            string   `json:"AppPort" yaml:"AppPort"`
		JWTSecret          string   `json:"JWTSecret" yaml:"JWTSecret"`
		Timezone           string   `json:"Timezone" yaml:"Timezone"`
		PublicHostname     string   `json:"PublicHostname" yaml:"PublicHostname"`
		RateLimitPerMinute int      `json:"RateLimitPerMinute" yaml:"RateLimitPerMinute"`
		AllowedOrigins     []string `json:"AllowedOrigins" yaml:"AllowedOrigins"`
		GuestCookieDays    int      `json:"GuestCookieDays" yaml:"GuestCookieDays"`
		LoginMaxFailures   int      `json:"LoginMaxFailures" yaml:"LoginMaxFailures"`
		LoginBanMinutes    int      `json:"LoginBanMinutes" yaml:"LoginBanMinutes"`
		ComplianceCron     string   `json:"ComplianceCron" yaml:"ComplianceCron"`
	} `json:"app" yaml:"app"`
	Database struct {
		Driver      string `json:"Driver" yaml:"Driver"`
		DatabaseURI string `json:"DatabaseURI" yaml:"DatabaseURI"`
		DBHost      string `json:"DBHost" yaml:"DBHost"`
		DBPort      string `json:"DBPort" yaml:"DBPort"`
		DBUser      string `json:"DBUser" yaml:"DBUser"`
		DBPassword  string `json:"DBPassword" yaml:"DBPassword"`
		DBName      string `json:"DBName" yaml:"DBName"`
	} `json:"database" yaml:"database"`
	Redis struct {
		Enabled       bool   `json:"Enabled" yaml:"Enabled"`
		RedisHost     string `json:"RedisHost" yaml:"RedisHost"`
		RedisPort     int    `json:"RedisPort" yaml:"RedisPort"`
		RedisDB       int    `json:"RedisDB" yaml:"RedisDB"`
		RedisPassword string `json:"RedisPassword" yaml:"RedisPassword"`
	} `json:"redis" yaml:"redis"`
	Log struct {
		Level      string `json:"Level" yaml:"Level"`
		Path       string `json:"Path" yaml:"Path"`
		GinMode    string `json:"GinMode" yaml:"GinMode"`
		GinPath    string `json:"GinPath" yaml:"GinPath"`
		MaxSizeMB  int    `json:"MaxSizeMB" yaml:"MaxSizeMB"`
		MaxBackups int    `json:"MaxBackups" yaml:"MaxBackups"`
		MaxAgeDays int    `json:"MaxAgeDays" yaml:"MaxAgeDays"`
		Compress   bool   `json:"Compress" yaml:"Compress"`
	} `json:"log" yaml:"log"`
	Naver struct {
		MapClientID string `json:"MapClientID" yaml:"MapClientID"`
		APIKeyID    string `json:"APIKeyID" yaml:"APIKeyID"`
		APIKey      string `json:"APIKey" yaml:"APIKey"`
		BaseURL     string `json:"BaseURL" yaml:"BaseURL"`
	} `json:"naver" yaml:"naver"`
}

var (
	cfg     AppConfig
	loaded  bool
	loadErr []error
	mu      sync.RWMutex

	fileOverride string
)

// UseFile makes the next Load read path instead of CONFIG_FILE or the default locations.
func UseFile(path string) {
	mu.Lock()
	fileOverride = path
	loaded = false
	mu.Unlock()
}

// Load loads the application configuration. It should be called once during boot.
func Load() AppConfig {
	mu.Lock()
	defer mu.Unlock()
	if loaded {
		return cfg
	}

	// Precedence: .env -> config file -> defaults -> environment variable overrides
	_ = godotenv.Load()

	var next AppConfig
	loadErr = nil
	if err := loadConfigFile(configFilePath(), &next); err != nil {
		loadErr = append(loadErr, err)
	}
	applyDefaults(&next)
	loadErr = append(loadErr, applyEnvOverrides(&next)...)

	cfg = next
	loaded = true
	return cfg
}

// Get returns the cached configuration, loading it if necessary.
func Get() AppConfig {
	mu.RLock()
	if loaded {
		defer mu.RUnlock()
		return cfg
	}
	mu.RUnlock()
	return Load()
}

// Set installs c as the active configuration. Defaults are applied to zero fields.
func Set(c AppConfig) {
	applyDefaults(&c)
	mu.Lock()
	cfg = c
	loaded = true
	loadErr = nil
	mu.Unlock()
}

// Validate reports configuration problems found while loading and missing required values.
func (c AppConfig) Validate() error {
	mu.RLock()
	errs := append([]error(nil), loadErr...)
	mu.RUnlock()

	if c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET must be set"))
	}
	switch c.DBDriver {
	case DriverMySQL, DriverPostgres, DriverSQLite:
	default:
		errs = append(errs, fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver))
	}
	if _, err := time.LoadLocation(c.AppTimezone); err != nil {
		errs = append(errs, fmt.Errorf("APP_TIMEZONE: %w", err))
	}
	if c.RateLimitPerMinute <= 0 {
		errs = append(errs, errors.New("RATE_LIMIT_PER_MINUTE must be positive"))
	}
	return errors.Join(errs...)
}

// Location is the zone calendar days are evaluated in.
func (c AppConfig) Location() *time.Location {
	if loc, err := time.LoadLocation(c.AppTimezone); err == nil {
		return loc
	}
	if c.AppTimezone == "Asia/Seoul" {
		return time.FixedZone("KST", 9*60*60)
	}
	return time.Local
}

func configFilePath() string {
	if fileOverride != "" {
		return fileOverride
	}
	if p := os.Getenv("CONFIG_FILE"); p != "" {
		return p
	}
	for _, p := range []string{
		filepath.Join("config", "config.json"),
		filepath.Join("config", "config.yaml"),
		filepath.Join("config", "config.yml"),
	} {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// loadConfigFile reads a JSON or YAML file into out. A missing file is not an error.
func loadConfigFile(path string, out *AppConfig) error {
	if path == "" {
		return nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}

	var fc fileConfig
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(raw, &fc)
	default:
		err = json.Unmarshal(raw, &fc)
	}
	if err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	out.AppPort = fc.App.AppPort
	out.JWTSecret = fc.App.JWTSecret
	out.AppTimezone = fc.App.Timezone
	out.PublicHostname = fc.App.PublicHostname
	out.RateLimitPerMinute = fc.App.RateLimitPerMinute
	out.AllowedOrigins = fc.App.AllowedOrigins
	out.GuestCookieDays = fc.App.GuestCookieDays
	out.LoginMaxFailures = fc.App.LoginMaxFailures
	out.LoginBanMinutes = fc.App.LoginBanMinutes
	out.ComplianceCron = fc.App.ComplianceCron

	out.DBDriver = fc.Database.Driver
	out.DatabaseURI = fc.Database.DatabaseURI
	out.DBHost = fc.Database.DBHost
	out.DBPort = fc.Database.DBPort
	out.DBUser = fc.Database.DBUser
	out.DBPassword = fc.Database.DBPassword
	out.DBName = fc.Database.DBName

	out.RedisEnabled = fc.Redis.Enabled
	out.RedisHost = fc.Redis.RedisHost
	out.RedisPort = fc.Redis.RedisPort
	out.RedisDB = fc.Redis.RedisDB
	out.RedisPassword = fc.Redis.RedisPassword

	out.LogLevel = fc.Log.Level
	out.LogPath = fc.Log.Path
	out.GinMode = fc.Log.GinMode
	out.GinPath = fc.Log.GinPath
	out.LogMaxSizeMB = fc.Log.MaxSizeMB
	out.LogMaxBackups = fc.Log.MaxBackups
	out.LogMaxAgeDays = fc.Log.MaxAgeDays
	out.LogCompress = fc.Log.Compress

	out.NaverMapClientID = fc.Naver.MapClientID
	out.NaverAPIKeyID = fc.Naver.APIKeyID
	out.NaverAPIKey = fc.Naver.APIKey
	out.NaverMapsBaseURL = fc.Naver.BaseURL
	return nil
}

// applyDefaults sets sane defaults for zero-value fields.
func applyDefaults(c *AppConfig) {
	if c.AppPort == "" {
		c.AppPort = "8080"
	}
	if c.AppTimezone == "" {
		c.AppTimezone = "Asia/Seoul"
	}
	if c.PublicHostname == "" {
		c.PublicHostname = "http://localhost:3000"
	}
	if c.GinMode == "" {
		c.GinMode = "release"
	}
	if c.GinPath == "" {
		c.GinPath = "logs/go_gin.log"
	}
	if c.RateLimitPerMinute == 0 {
		c.RateLimitPerMinute = 120
	}
	if len(c.AllowedOrigins) == 0 {
		c.AllowedOrigins = []string{"*"}
	}
	if c.GuestCookieDays == 0 {
		c.GuestCookieDays = 365
	}
	if c.LoginMaxFailures == 0 {
		c.LoginMaxFailures = 5
	}
	if c.LoginBanMinutes == 0 {
		c.LoginBanMinutes = 15
	}
	if c.ComplianceCron == "" {
		c.ComplianceCron = "5 0 * * *"
	}
	if c.DBDriver == "" {
		c.DBDriver = DriverMySQL
	}
	if c.DBHost == "" {
		c.DBHost = "127.0.0.1"
	}
	if c.DBUser == "" {
		c.DBUser = "root"
	}
	if c.DBName == "" {
		c.DBName = "safemap"
	}
	if c.RedisHost == "" {
		c.RedisHost = "127.0.0.1"
	}
	if c.RedisPort == 0 {
		c.RedisPort = 6379
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LogMaxSizeMB == 0 {
		c.LogMaxSizeMB = 100
	}
	if c.LogMaxBackups == 0 {
		c.LogMaxBackups = 3
	}
	if c.LogMaxAgeDays == 0 {
		c.LogMaxAgeDays = 7
	}
	if c.NaverMapsBaseURL == "" {
		c.NaverMapsBaseURL = "https://maps.apigw.ntruss.com"
	}
}

// applyEnvOverrides maps known environment variables onto config values when present.
// Values that fail to parse are reported and leave the previous value in place.
func applyEnvOverrides(c *AppConfig) []error {
	var errs []error
	str := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	num := func(key string, dst *int) {
		if v := os.Getenv(key); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("invalid integer value %s=%q", key, v))
				return
			}
			*dst = n
		}
	}
	flag := func(key string, dst *bool) {
		if v := os.Getenv(key); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("invalid boolean value %s=%q", key, v))
				return
			}
			*dst = b
		}
	}

	str("APP_PORT", &c.AppPort)
	str("JWT_SECRET", &c.JWTSecret)
	str("APP_TIMEZONE", &c.AppTimezone)
	str("PUBLIC_HOSTNAME", &c.PublicHostname)
	num("RATE_LIMIT_PER_MINUTE", &c.RateLimitPerMinute)
	if v := os.Getenv("CORS_ALLOWED_ORIGINS"); v != "" {
		c.AllowedOrigins = splitAndTrim(v)
	}
	num("GUEST_COOKIE_DAYS", &c.GuestCookieDays)
	num("LOGIN_MAX_FAILURES", &c.LoginMaxFailures)
	num("LOGIN_BAN_MINUTES", &c.LoginBanMinutes)
	str("COMPLIANCE_CRON", &c.ComplianceCron)

	str("GIN_MODE", &c.GinMode)
	str("GIN_PATH", &c.GinPath)

	str("DB_DRIVER", &c.DBDriver)
	str("DATABASE_URI", &c.DatabaseURI)
	str("DB_HOST", &c.DBHost)
	str("DB_PORT", &c.DBPort)
	str("DB_USER", &c.DBUser)
	str("DB_PASSWORD", &c.DBPassword)
	str("DB_NAME", &c.DBName)

	flag("REDIS_ENABLED", &c.RedisEnabled)
	str("REDIS_HOST", &c.RedisHost)
	num("REDIS_PORT", &c.RedisPort)
	num("REDIS_DB", &c.RedisDB)
	str("REDIS_PASSWORD", &c.RedisPassword)

	str("LOG_LEVEL", &c.LogLevel)
	str("LOG_PATH", &c.LogPath)
	num("LOG_MAX_SIZE_MB", &c.LogMaxSizeMB)
	num("LOG_MAX_BACKUPS", &c.LogMaxBackups)
	num("LOG_MAX_AGE_DAYS", &c.LogMaxAgeDays)
	flag("LOG_COMPRESS", &c.LogCompress)

	str("NCP_MAPS_CLIENT_ID", &c.NaverMapClientID)
	str("NCP_MAPS_API_KEY_ID", &c.NaverAPIKeyID)
	str("NCP_MAPS_API_KEY", &c.NaverAPIKey)
	str("NCP_MAPS_BASE_URL", &c.NaverMapsBaseURL)
	return errs
}

func splitAndTrim(raw string) []string {
	items := []string{}
	for _, item := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			items = append(items, trimmed)
		}
	}
	return items
}
