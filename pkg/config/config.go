package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment"`
	Server      struct {
		Port            int           `yaml:"port"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`
	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path"`
	} `yaml:"metrics"`
	Validation struct {
		PriceMin         float64 `yaml:"price_min"`
		PriceMax         float64 `yaml:"price_max"`
		VolumeMin        int64   `yaml:"volume_min"`
		OHLCLogic        *bool   `yaml:"ohlc_logic"`
		TimeSequence     *bool   `yaml:"time_sequence"`
		DuplicateCheck   *bool   `yaml:"duplicate_check"`
		CheckHolidays    *bool   `yaml:"check_holidays"`
		QualityThreshold float64 `yaml:"quality_threshold"`
		TradingStart     string  `yaml:"trading_start"`
		TradingEnd       string  `yaml:"trading_end"`
		Country          string  `yaml:"country"`
	} `yaml:"validation"`
	Cache struct {
		MaxAge        time.Duration `yaml:"max_age"`
		Capacity      int           `yaml:"capacity"`
		SweepInterval time.Duration `yaml:"sweep_interval"`
	} `yaml:"cache"`
	Store struct {
		BatchSize    int    `yaml:"batch_size"`
		BarsTable    string `yaml:"bars_table"`
		QualityTable string `yaml:"quality_table"`
	} `yaml:"store"`
	ClickHouse struct {
		Host             string        `yaml:"host"`
		Port             int           `yaml:"port"`
		Database         string        `yaml:"database"`
		User             string        `yaml:"user"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		AsyncInsert      bool          `yaml:"async_insert"`
		WaitForAsync     bool          `yaml:"wait_for_async_insert"`
		DialTimeout      time.Duration `yaml:"dial_timeout"`
		ReadTimeout      time.Duration `yaml:"read_timeout"`
		WriteTimeout     time.Duration `yaml:"write_timeout"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time"`
	} `yaml:"clickhouse"`
	Kafka struct {
		Enabled      bool     `yaml:"enabled"`
		Brokers      []string `yaml:"brokers"`
		Topic        string   `yaml:"topic"`
		IngestTopic  string   `yaml:"ingest_topic"`
		GroupID      string   `yaml:"group_id"`
		RequiredAcks int      `yaml:"required_acks"`
		Compression  string   `yaml:"compression"`
	} `yaml:"kafka"`
	Redis struct {
		Enabled  bool   `yaml:"enabled"`
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
	Kite struct {
		APIKey         string        `yaml:"api_key"`
		AccessToken    string        `yaml:"access_token"`
		BaseURL        string        `yaml:"base_url"`
		TickerURL      string        `yaml:"ticker_url"`
		StreamEnabled  bool          `yaml:"stream_enabled"`
		Symbols        []string      `yaml:"symbols"`
		ReconnectDelay time.Duration `yaml:"reconnect_delay"`
		PingInterval   time.Duration `yaml:"ping_interval"`
	} `yaml:"kite"`
	Export struct {
		Dir string `yaml:"dir"`
	} `yaml:"export"`
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	c.applyDefaults()

	// Validate required fields
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	// Override with environment variables
	if v := os.Getenv("KITE_API_KEY"); v != "" {
		c.Kite.APIKey = v
	}
	if v := os.Getenv("KITE_ACCESS_TOKEN"); v != "" {
		c.Kite.AccessToken = v
	}
	if v := os.Getenv("SYMBOLS"); v != "" {
		c.Kite.Symbols = strings.Split(v, ",")
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("KAFKA_TOPIC"); v != "" {
		c.Kafka.Topic = v
	}
	if v := os.Getenv("CLICKHOUSE_HOST"); v != "" {
		c.ClickHouse.Host = v
	}

	return c, nil
}

func (c *Config) applyDefaults() {
	// Check toggles are on unless the config turns them off explicitly.
	enabled := true
	if c.Validation.OHLCLogic == nil {
		c.Validation.OHLCLogic = &enabled
	}
	if c.Validation.TimeSequence == nil {
		c.Validation.TimeSequence = &enabled
	}
	if c.Validation.DuplicateCheck == nil {
		c.Validation.DuplicateCheck = &enabled
	}
	if c.Validation.CheckHolidays == nil {
		c.Validation.CheckHolidays = &enabled
	}
	if c.Validation.PriceMin == 0 {
		c.Validation.PriceMin = 0.1
	}
	if c.Validation.PriceMax == 0 {
		c.Validation.PriceMax = 200000
	}
	if c.Validation.QualityThreshold == 0 {
		c.Validation.QualityThreshold = 0.95
	}
	if c.Validation.TradingStart == "" {
		c.Validation.TradingStart = "09:15:00"
	}
	if c.Validation.TradingEnd == "" {
		c.Validation.TradingEnd = "15:30:00"
	}
	if c.Validation.Country == "" {
		c.Validation.Country = "IN"
	}
	if c.Cache.MaxAge == 0 {
		c.Cache.MaxAge = 5 * time.Minute
	}
	if c.Cache.Capacity == 0 {
		c.Cache.Capacity = 500
	}
	if c.Cache.SweepInterval == 0 {
		c.Cache.SweepInterval = 5 * time.Minute
	}
	if c.Store.BatchSize == 0 {
		c.Store.BatchSize = 5000
	}
	if c.Store.BarsTable == "" {
		c.Store.BarsTable = "ohlcv_bars"
	}
	if c.Store.QualityTable == "" {
		c.Store.QualityTable = "data_quality_log"
	}
	if c.Export.Dir == "" {
		c.Export.Dir = "exports"
	}
	if c.Kafka.GroupID == "" {
		c.Kafka.GroupID = "niftypulse-ingest"
	}
	if c.Kite.ReconnectDelay == 0 {
		c.Kite.ReconnectDelay = 5 * time.Second
	}
	if c.Kite.PingInterval == 0 {
		c.Kite.PingInterval = 20 * time.Second
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if c.ClickHouse.Host == "" {
		return fmt.Errorf("clickhouse.host is required")
	}
	if c.Validation.QualityThreshold <= 0 || c.Validation.QualityThreshold > 1 {
		return fmt.Errorf("validation.quality_threshold must be in (0, 1], got %v", c.Validation.QualityThreshold)
	}
	if c.Validation.PriceMin >= c.Validation.PriceMax {
		return fmt.Errorf("validation.price_min must be below price_max")
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when kafka is enabled")
	}
	if c.Kite.StreamEnabled && c.Kite.APIKey == "" {
		return fmt.Errorf("kite.api_key is required when the stream is enabled")
	}
	return nil
}
