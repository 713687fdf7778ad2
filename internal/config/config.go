package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"pricesync/internal/logging"
	"pricesync/internal/sqlident"
)

// Rate-fetch failure policies.
const (
	PolicyAbort = "abort"
	PolicySkip  = "skip"
)

// Export formats.
const (
	FormatXLSX = "xlsx"
	FormatCSV  = "csv"
)

// Config materialises application configuration.
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Logging  logging.Config `mapstructure:"logging"`
	Database DatabaseConfig `mapstructure:"database"`
	NBP      NBPConfig      `mapstructure:"nbp"`
	Sync     SyncConfig     `mapstructure:"sync"`
	Schema   SchemaConfig   `mapstructure:"schema"`
	Export   ExportConfig   `mapstructure:"export"`
	Run      RunConfig      `mapstructure:"run"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

// AppConfig general metadata.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

// DatabaseConfig encapsulates PostgreSQL connectivity.
type DatabaseConfig struct {
	Host           string        `mapstructure:"host"`
	Port           int           `mapstructure:"port"`
	User           string        `mapstructure:"user"`
	Password       string        `mapstructure:"password"`
	Name           string        `mapstructure:"name"`
	SSLMode        string        `mapstructure:"sslmode"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
	AllowedTables  []string      `mapstructure:"allowed_tables"`
}

// NBPConfig covers the National Bank of Poland rates API.
type NBPConfig struct {
	BaseURL   string        `mapstructure:"base_url"`
	Table     string        `mapstructure:"table"`
	Timeout   time.Duration `mapstructure:"timeout"`
	UserAgent string        `mapstructure:"user_agent"`
}

// SyncConfig lists the derived price columns to keep in step with the rates.
type SyncConfig struct {
	Table       string         `mapstructure:"table"`
	BaseColumn  string         `mapstructure:"base_column"`
	OnRateError string         `mapstructure:"on_rate_error"`
	Targets     []TargetConfig `mapstructure:"targets"`
}

// TargetConfig binds a currency to the column holding prices in that currency.
type TargetConfig struct {
	Currency string `mapstructure:"currency"`
	Column   string `mapstructure:"column"`
}

// SchemaConfig shapes columns created by `column add`.
type SchemaConfig struct {
	ReferenceColumn string   `mapstructure:"reference_column"`
	Precision       int      `mapstructure:"precision"`
	Scale           int      `mapstructure:"scale"`
	ExtraColumns    []string `mapstructure:"extra_columns"`
}

// ExportConfig sets spreadsheet export behaviour.
type ExportConfig struct {
	Table          string   `mapstructure:"table"`
	Dir            string   `mapstructure:"dir"`
	Format         string   `mapstructure:"format"`
	SheetName      string   `mapstructure:"sheet_name"`
	ExcludeColumns []string `mapstructure:"exclude_columns"`
}

// RunConfig governs the combined sync+export command.
type RunConfig struct {
	ExportOnSyncFailure bool `mapstructure:"export_on_sync_failure"`
}

// MetricsConfig points at an optional Prometheus Pushgateway.
type MetricsConfig struct {
	PushgatewayURL string `mapstructure:"pushgateway_url"`
	Job            string `mapstructure:"job"`
}

// Load builds configuration from .env, file, environment, and defaults.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	v.SetEnvPrefix("PRICESYNC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := readConfig(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, decodeHook()); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func readConfig(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "pricesync")
	v.SetDefault("app.environment", "development")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.file", "")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.name", "mydb")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.connect_timeout", "10s")
	v.SetDefault("database.allowed_tables", []string{})

	v.SetDefault("nbp.base_url", "https://api.nbp.pl/api/exchangerates/rates")
	v.SetDefault("nbp.table", "a")
	v.SetDefault("nbp.timeout", "10s")
	v.SetDefault("nbp.user_agent", "pricesync/1.0")

	v.SetDefault("sync.table", "product")
	v.SetDefault("sync.base_column", "UnitPrice")
	v.SetDefault("sync.on_rate_error", PolicyAbort)
	v.SetDefault("sync.targets", []map[string]any{
		{"currency": "USD", "column": "UnitPriceUSD"},
		{"currency": "EUR", "column": "UnitPriceEuro"},
	})

	v.SetDefault("schema.reference_column", "UnitPrice")
	v.SetDefault("schema.precision", 10)
	v.SetDefault("schema.scale", 2)
	v.SetDefault("schema.extra_columns", []string{})

	v.SetDefault("export.table", "product")
	v.SetDefault("export.dir", "data")
	v.SetDefault("export.format", FormatXLSX)
	v.SetDefault("export.sheet_name", "Sheet1")
	v.SetDefault("export.exclude_columns", []string{"Picture"})

	v.SetDefault("run.export_on_sync_failure", false)

	v.SetDefault("metrics.pushgateway_url", "")
	v.SetDefault("metrics.job", "pricesync")
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}

func (c *Config) normalize() {
	c.Sync.OnRateError = strings.ToLower(strings.TrimSpace(c.Sync.OnRateError))
	c.Export.Format = strings.ToLower(strings.TrimSpace(c.Export.Format))
	c.NBP.Table = strings.ToLower(strings.TrimSpace(c.NBP.Table))
	for i := range c.Sync.Targets {
		c.Sync.Targets[i].Currency = strings.ToUpper(strings.TrimSpace(c.Sync.Targets[i].Currency))
		c.Sync.Targets[i].Column = strings.TrimSpace(c.Sync.Targets[i].Column)
	}
}

// Validate performs basic sanity checks on the configuration values.
func (c *Config) Validate() error {
	if c.Database.Host == "" {
		return fmt.Errorf("database.host is required")
	}
	if c.Database.User == "" {
		return fmt.Errorf("database.user is required")
	}
	if c.Database.Name == "" {
		return fmt.Errorf("database.name is required")
	}
	if c.Database.Port <= 0 || c.Database.Port > 65535 {
		return fmt.Errorf("database.port must be between 1 and 65535")
	}
	if c.Database.ConnectTimeout <= 0 {
		return fmt.Errorf("database.connect_timeout must be greater than zero")
	}

	if c.NBP.BaseURL == "" {
		return fmt.Errorf("nbp.base_url is required")
	}
	if _, err := url.ParseRequestURI(c.NBP.BaseURL); err != nil {
		return fmt.Errorf("nbp.base_url is invalid: %w", err)
	}
	switch c.NBP.Table {
	case "a", "b":
	default:
		return fmt.Errorf("nbp.table must be one of a, b")
	}
	if c.NBP.Timeout <= 0 {
		return fmt.Errorf("nbp.timeout must be greater than zero")
	}

	switch c.Sync.OnRateError {
	case PolicyAbort, PolicySkip:
	default:
		return fmt.Errorf("sync.on_rate_error must be %q or %q", PolicyAbort, PolicySkip)
	}
	if len(c.Sync.Targets) == 0 {
		return fmt.Errorf("sync.targets must list at least one currency")
	}
	seen := make(map[string]struct{}, len(c.Sync.Targets))
	for i, target := range c.Sync.Targets {
		if len(target.Currency) != 3 {
			return fmt.Errorf("sync.targets[%d].currency must be a 3-letter code", i)
		}
		if !sqlident.Valid(target.Column) {
			return fmt.Errorf("sync.targets[%d].column %q is not a valid identifier", i, target.Column)
		}
		if _, dup := seen[target.Column]; dup {
			return fmt.Errorf("sync.targets[%d].column %q listed twice", i, target.Column)
		}
		seen[target.Column] = struct{}{}
	}

	if c.Schema.Precision < 1 || c.Schema.Precision > 1000 {
		return fmt.Errorf("schema.precision must be between 1 and 1000")
	}
	if c.Schema.Scale < 0 || c.Schema.Scale > c.Schema.Precision {
		return fmt.Errorf("schema.scale must be between 0 and schema.precision")
	}

	switch c.Export.Format {
	case FormatXLSX, FormatCSV:
	default:
		return fmt.Errorf("export.format must be %q or %q", FormatXLSX, FormatCSV)
	}
	if c.Export.Dir == "" {
		return fmt.Errorf("export.dir is required")
	}

	if c.Metrics.PushgatewayURL != "" && c.Metrics.Job == "" {
		return fmt.Errorf("metrics.job is required when metrics.pushgateway_url is set")
	}

	if _, err := c.AllowList(); err != nil {
		return err
	}
	return nil
}

// ConnString renders the database settings as a pgx connection URL.
func (d DatabaseConfig) ConnString() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   net.JoinHostPort(d.Host, strconv.Itoa(d.Port)),
		Path:   "/" + d.Name,
	}

	q := url.Values{}
	if d.SSLMode != "" {
		q.Set("sslmode", d.SSLMode)
	}
	if d.ConnectTimeout > 0 {
		secs := int(d.ConnectTimeout / time.Second)
		if secs < 1 {
			secs = 1
		}
		q.Set("connect_timeout", strconv.Itoa(secs))
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// AllowList assembles the identifier allow-list from every configured table and column.
func (c *Config) AllowList() (*sqlident.AllowList, error) {
	tables := append([]string{}, c.Database.AllowedTables...)
	tables = append(tables, c.Sync.Table, c.Export.Table)

	columns := []string{c.Sync.BaseColumn, c.Schema.ReferenceColumn}
	for _, target := range c.Sync.Targets {
		columns = append(columns, target.Column)
	}
	columns = append(columns, c.Schema.ExtraColumns...)

	al, err := sqlident.NewAllowList(tables, columns)
	if err != nil {
		return nil, fmt.Errorf("identifier allow-list: %w", err)
	}
	return al, nil
}

// ResolveTable returns the CLI override or the fallback table name.
func ResolveTable(override, fallback string) string {
	if override != "" {
		return override
	}
	return fallback
}
