// Package config defines the configuration contract and handles loading and
// validating environment configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	// Canonical environment variable keys.
	KeyTelegramToken = "TELEGRAM_TOKEN"
	KeyAdminUserIDs  = "ADMIN_USER_IDS"
	KeyMongoURI      = "MONGO_URI"
	KeyMongoDB       = "MONGO_DB"
	KeyAppEnv        = "APP_ENV"
	KeyLogLevel      = "LOG_LEVEL"
	KeyHTTPPort      = "HTTP_PORT"
	KeyWorkers       = "WORKERS"

	// Allowed environment values.
	EnvDevelopment = "development"
	EnvProduction  = "production"

	// Defaults for optional settings.
	DefaultAppEnv   = EnvProduction
	DefaultLogLevel = "info"
	DefaultHTTPPort = 8080
	DefaultWorkers  = 4

	// Recommended database names by environment.
	DefaultMongoDBProd = "concierge_bot"
	DefaultMongoDBDev  = "concierge_bot_dev"
)

// VarSpec describes a single configuration key.
type VarSpec struct {
	Key         string // environment variable name
	Example     string // human-friendly sample value
	Required    bool   // whether the bot must refuse to start without this value
	Default     string // default when unset (empty when required)
	Description string // what the variable controls
	Notes       string // extra guidance or policies
}

// Contract enumerates the authoritative configuration keys for the bot.
// .env loading is only permitted when APP_ENV=development; production must rely
// on environment variables supplied by the runtime.
var Contract = []VarSpec{
	{
		Key:         KeyTelegramToken,
		Example:     "123:ABC",
		Required:    true,
		Description: "Telegram Bot Token issued by BotFather.",
	},
	{
		Key:         KeyAdminUserIDs,
		Example:     "123456789,987654321",
		Description: "Comma-separated Telegram user_ids allowed on admin surfaces.",
		Notes:       "An empty list authorizes nobody.",
	},
	{
		Key:         KeyMongoURI,
		Example:     "mongodb://localhost:27017",
		Required:    true,
		Description: "MongoDB connection string for the admin companion store.",
	},
	{
		Key:         KeyMongoDB,
		Example:     DefaultMongoDBProd + " / " + DefaultMongoDBDev,
		Required:    true,
		Description: "MongoDB database name.",
		Notes:       "Recommended: production=" + DefaultMongoDBProd + ", development=" + DefaultMongoDBDev + ".",
	},
	{
		Key:         KeyAppEnv,
		Example:     EnvDevelopment + " / " + EnvProduction,
		Default:     DefaultAppEnv,
		Description: "Runtime environment; controls log format and dotenv usage.",
		Notes:       "Load .env files only when APP_ENV=" + EnvDevelopment + ".",
	},
	{
		Key:         KeyLogLevel,
		Example:     DefaultLogLevel,
		Default:     DefaultLogLevel,
		Description: "Overrides default log level.",
	},
	{
		Key:         KeyHTTPPort,
		Example:     strconv.Itoa(DefaultHTTPPort),
		Default:     strconv.Itoa(DefaultHTTPPort),
		Description: "HTTP diagnostics port (healthz, metrics).",
	},
	{
		Key:         KeyWorkers,
		Example:     strconv.Itoa(DefaultWorkers),
		Default:     strconv.Itoa(DefaultWorkers),
		Description: "Number of concurrent update workers.",
	},
}

// Destination names a logical URL slot used to compose route content.
type Destination struct {
	Name    string // logical name referenced by the route table
	Key     string // environment variable override
	Default string // production default
}

// Destinations enumerates overridable destination URLs in a fixed order.
var Destinations = []Destination{
	{Name: "tickets", Key: "TICKETS_URL", Default: "https://emergeglobally.com/tickets"},
	{Name: "shop", Key: "SHOP_URL", Default: "https://emergeglobally.com/shop"},
	{Name: "music", Key: "MUSIC_URL", Default: "https://emergeglobally.com/music"},
	{Name: "ideas", Key: "IDEAS_URL", Default: "https://emergeglobally.com/ideas"},
	{Name: "promos", Key: "PROMOS_URL", Default: "https://emergeglobally.com/promos"},
	{Name: "special", Key: "SPECIAL_URL", Default: "https://emergeglobally.com/special-order"},
	{Name: "submit", Key: "SUBMIT_URL", Default: "https://emergeglobally.com/casting"},
	{Name: "order", Key: "ORDER_URL", Default: "https://emergeglobally.com/order"},
	{Name: "faq", Key: "FAQ_URL", Default: "https://emergeglobally.com/faq"},
	{Name: "support", Key: "SUPPORT_URL", Default: "https://emergeglobally.com/support"},
	{Name: "donate", Key: "DONATE_URL", Default: "https://emergeglobally.com/donate"},
	{Name: "terms", Key: "TERMS_URL", Default: "https://emergeglobally.com/terms"},
}

// Config mirrors resolved configuration values after loading.
type Config struct {
	TelegramToken string
	AdminUserIDs  []int64
	MongoURI      string
	MongoDB       string
	AppEnv        string
	LogLevel      string
	HTTPPort      int
	Workers       int
	URLs          map[string]string
}

// URL returns the configured destination URL for a logical name, or an empty
// string when the name is unknown.
func (c Config) URL(name string) string {
	return c.URLs[name]
}

// Load resolves configuration from the environment (with optional dotenv in development).
func Load() (Config, error) {
	appEnv, err := resolveAppEnv()
	if err != nil {
		return Config{}, err
	}

	if err := loadDotEnv(appEnv); err != nil {
		return Config{}, err
	}

	cfg := Config{
		AppEnv:        firstNonEmpty(normalizeEnv(os.Getenv(KeyAppEnv)), appEnv),
		TelegramToken: strings.TrimSpace(os.Getenv(KeyTelegramToken)),
		MongoURI:      strings.TrimSpace(os.Getenv(KeyMongoURI)),
		MongoDB:       strings.TrimSpace(os.Getenv(KeyMongoDB)),
		LogLevel:      firstNonEmpty(strings.TrimSpace(os.Getenv(KeyLogLevel)), DefaultLogLevel),
		HTTPPort:      DefaultHTTPPort,
		Workers:       DefaultWorkers,
	}

	if err := validateAppEnv(cfg.AppEnv); err != nil {
		return Config{}, err
	}

	missing := make([]string, 0)

	if cfg.TelegramToken == "" {
		missing = append(missing, KeyTelegramToken)
	}

	if cfg.MongoURI == "" {
		missing = append(missing, KeyMongoURI)
	}

	if cfg.MongoDB == "" {
		missing = append(missing, KeyMongoDB)
	}

	if len(missing) > 0 {
		return Config{}, fmt.Errorf("missing required environment variable(s): %s", strings.Join(missing, ", "))
	}

	adminIDs, err := parseAdminIDs(os.Getenv(KeyAdminUserIDs))
	if err != nil {
		return Config{}, err
	}
	cfg.AdminUserIDs = adminIDs

	httpPortRaw := strings.TrimSpace(os.Getenv(KeyHTTPPort))
	if httpPortRaw != "" {
		port, parseErr := strconv.Atoi(httpPortRaw)
		if parseErr != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", KeyHTTPPort, parseErr)
		}
		if port <= 0 {
			return Config{}, fmt.Errorf("%s must be greater than 0", KeyHTTPPort)
		}
		cfg.HTTPPort = port
	}

	workersRaw := strings.TrimSpace(os.Getenv(KeyWorkers))
	if workersRaw != "" {
		workers, parseErr := strconv.Atoi(workersRaw)
		if parseErr != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", KeyWorkers, parseErr)
		}
		if workers <= 0 {
			return Config{}, fmt.Errorf("%s must be greater than 0", KeyWorkers)
		}
		cfg.Workers = workers
	}

	cfg.URLs = make(map[string]string, len(Destinations))
	for _, dest := range Destinations {
		cfg.URLs[dest.Name] = firstNonEmpty(strings.TrimSpace(os.Getenv(dest.Key)), dest.Default)
	}

	return cfg, nil
}

// IsDevelopment reports if APP_ENV is development.
func (c Config) IsDevelopment() bool {
	return c.AppEnv == EnvDevelopment
}

// FormatRedacted renders resolved configuration for diagnostics with the bot
// token masked.
func FormatRedacted(cfg Config) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s=%s\n", KeyTelegramToken, redactToken(cfg.TelegramToken))
	fmt.Fprintf(&b, "%s=%d admin id(s)\n", KeyAdminUserIDs, len(cfg.AdminUserIDs))
	fmt.Fprintf(&b, "%s=%s\n", KeyMongoURI, cfg.MongoURI)
	fmt.Fprintf(&b, "%s=%s\n", KeyMongoDB, cfg.MongoDB)
	fmt.Fprintf(&b, "%s=%s\n", KeyAppEnv, cfg.AppEnv)
	fmt.Fprintf(&b, "%s=%s\n", KeyLogLevel, cfg.LogLevel)
	fmt.Fprintf(&b, "%s=%d\n", KeyHTTPPort, cfg.HTTPPort)
	fmt.Fprintf(&b, "%s=%d\n", KeyWorkers, cfg.Workers)
	for _, dest := range Destinations {
		fmt.Fprintf(&b, "%s=%s\n", dest.Key, cfg.URL(dest.Name))
	}
	return strings.TrimRight(b.String(), "\n")
}

func redactToken(token string) string {
	if len(token) <= 4 {
		return "****"
	}
	return token[:4] + "****"
}

func parseAdminIDs(raw string) ([]int64, error) {
	cleaned := strings.ReplaceAll(raw, " ", "")
	if cleaned == "" {
		return nil, nil
	}

	parts := strings.Split(cleaned, ",")
	ids := make([]int64, 0, len(parts))
	for _, part := range parts {
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid %s entry %q: %w", KeyAdminUserIDs, part, err)
		}
		ids = append(ids, id)
	}

	return ids, nil
}

func resolveAppEnv() (string, error) {
	if explicit := normalizeEnv(os.Getenv(KeyAppEnv)); explicit != "" {
		return explicit, nil
	}

	dotEnvValues, err := godotenv.Read()
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return DefaultAppEnv, nil
		}
		return "", fmt.Errorf("read .env: %w", err)
	}

	if envFromFile := normalizeEnv(dotEnvValues[KeyAppEnv]); envFromFile != "" {
		return envFromFile, nil
	}

	return DefaultAppEnv, nil
}

func loadDotEnv(appEnv string) error {
	if appEnv != EnvDevelopment {
		return nil
	}

	if err := godotenv.Load(); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load .env: %w", err)
	}

	return nil
}

func validateAppEnv(appEnv string) error {
	if appEnv == EnvDevelopment || appEnv == EnvProduction {
		return nil
	}

	return fmt.Errorf("invalid %s: must be %q or %q", KeyAppEnv, EnvDevelopment, EnvProduction)
}

func normalizeEnv(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}

func firstNonEmpty(values ...string) string {
	for _, val := range values {
		if strings.TrimSpace(val) != "" {
			return strings.TrimSpace(val)
		}
	}
	return ""
}
