package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// fileConfig is the layout of the optional TOML config file. Unset keys keep
// the defaults and environment variables still win over the file.
type fileConfig struct {
	Server struct {
		Port               string `toml:"port"`
		RateLimitPerMinute int    `toml:"rate_limit_per_minute"`
		MetricsEnabled     *bool  `toml:"metrics_enabled"`
	} `toml:"server"`

	Storage struct {
		Backend      string `toml:"backend"`
		SQLitePath   string `toml:"sqlite_path"`
		DocumentPath   string `toml:"document_path"`
		MemorySeedPath string `toml:"memory_seed_path"`
	} `toml:"storage"`

	Ledger struct {
		StartingBalance string `toml:"starting_balance"`
		SeedExample     *bool  `toml:"seed_example"`
		Timezone        string `toml:"timezone"`
	} `toml:"ledger"`

	AMQP struct {
		URL      string `toml:"url"`
		Exchange string `toml:"exchange"`
		Queue    string `toml:"queue"`
	} `toml:"amqp"`

	Sheets struct {
		SpreadsheetID   string `toml:"spreadsheet_id"`
		SheetName       string `toml:"sheet_name"`
		CredentialsFile string `toml:"credentials_file"`
	} `toml:"sheets"`

	Advice struct {
		APIKey   string `toml:"api_key"`
		Model    string `toml:"model"`
		Debounce string `toml:"debounce"`
		Timeout  string `toml:"timeout"`
	} `toml:"advice"`

	Log struct {
		Level string `toml:"level"`
	} `toml:"log"`
}

// LoadFile reads path over the defaults, then the environment over that.
// Unknown keys are an error so typos do not go unnoticed.
func LoadFile(path string) (*Config, error) {
	var fc fileConfig
	md, err := toml.DecodeFile(path, &fc)
	if err != nil {
		return nil, fmt.Errorf("read config file %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("config file %s: unknown keys %s", path, strings.Join(keys, ", "))
	}

	base := Defaults()
	if err := fc.apply(base); err != nil {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}
	return fromEnv(base), nil
}

func (fc *fileConfig) apply(c *Config) error {
	setString(&c.Port, fc.Server.Port)
	if fc.Server.RateLimitPerMinute != 0 {
		c.RateLimitPerMinute = fc.Server.RateLimitPerMinute
	}
	if fc.Server.MetricsEnabled != nil {
		c.MetricsEnabled = *fc.Server.MetricsEnabled
	}

	setString(&c.DataBackend, fc.Storage.Backend)
	setString(&c.SQLiteDBPath, fc.Storage.SQLitePath)
	setString(&c.DocumentPath, fc.Storage.DocumentPath)
	setString(&c.MemorySeedPath, fc.Storage.MemorySeedPath)

	setString(&c.DefaultStartingBalance, fc.Ledger.StartingBalance)
	if fc.Ledger.SeedExample != nil {
		c.SeedExample = *fc.Ledger.SeedExample
	}
	setString(&c.LedgerTimezone, fc.Ledger.Timezone)

	setString(&c.AMQPURL, fc.AMQP.URL)
	setString(&c.AMQPExchange, fc.AMQP.Exchange)
	setString(&c.AMQPQueue, fc.AMQP.Queue)

	setString(&c.GoogleSpreadsheetID, fc.Sheets.SpreadsheetID)
	setString(&c.GoogleSheetName, fc.Sheets.SheetName)
	setString(&c.GoogleCredentialsFile, fc.Sheets.CredentialsFile)

	setString(&c.AdviceAPIKey, fc.Advice.APIKey)
	setString(&c.AdviceModel, fc.Advice.Model)
	if err := setDuration(&c.AdviceDebounce, "advice.debounce", fc.Advice.Debounce); err != nil {
		return err
	}
	if err := setDuration(&c.AdviceTimeout, "advice.timeout", fc.Advice.Timeout); err != nil {
		return err
	}

	setString(&c.LogLevel, fc.Log.Level)
	return nil
}

func setString(dst *string, v string) {
	if v = strings.TrimSpace(v); v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, key, v string) error {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	*dst = d
	return nil
}
