package config

import (
	"strings"
	"time"

	"github.com/shopmate/sentinel/params"
	"github.com/spf13/viper"
)

const (
	DefaultListenAddr  = ":3000"
	DefaultEnvironment = "production"
)

type MySQLConfig struct {
	Dsn             string `mapstructure:"dsn"`
	TablePrefix     string `mapstructure:"tablePrefix"`
	MaxIdleConns    int    `mapstructure:"maxIdleConns"`
	MaxOpenConns    int    `mapstructure:"maxOpenConns"`
	ConnMaxIdleTime int    `mapstructure:"connMaxIdleTime"`
	ConnMaxLifetime int    `mapstructure:"connMaxLifetime"`
}

type RedisConfig struct {
	URL         string `mapstructure:"url"`
	PoolSize    int    `mapstructure:"poolSize"`
	ClusterMode bool   `mapstructure:"clusterMode"`
}

type SMTPConfig struct {
	Host               string `mapstructure:"host"`
	Port               int    `mapstructure:"port"`
	Username           string `mapstructure:"username"`
	Password           string `mapstructure:"password"`
	From               string `mapstructure:"from"`
	InsecureSkipVerify bool   `mapstructure:"insecureSkipVerify"`
	CertFile           string `mapstructure:"certFile"`
	KeyFile            string `mapstructure:"keyFile"`
	CAFile             string `mapstructure:"caFile"`
}

type MailConfig struct {
	Backend    string     `mapstructure:"backend"`
	From       string     `mapstructure:"from"`
	Recipients []string   `mapstructure:"recipients"`
	SMTP       SMTPConfig `mapstructure:"smtp"`
}

type WebhookConfig struct {
	URL        string `mapstructure:"url"`
	SigningKey string `mapstructure:"signingKey"`
}

type AuditConfig struct {
	LogLevel      string        `mapstructure:"logLevel"`
	BatchSize     int           `mapstructure:"batchSize"`
	FlushInterval time.Duration `mapstructure:"flushInterval"`
	MaxBuffered   int           `mapstructure:"maxBuffered"`
	RetentionDays int           `mapstructure:"retentionDays"` // 0 keeps persisted events forever
	FilePath      string        `mapstructure:"filePath"`
	Console       bool          `mapstructure:"console"`
	Database      bool          `mapstructure:"database"`
}

type MonitorConfig struct {
	MaxHistoryEvents int           `mapstructure:"maxHistoryEvents"`
	HistoryMaxAge    time.Duration `mapstructure:"historyMaxAge"`
	DefaultBlockTTL  time.Duration `mapstructure:"defaultBlockTTL"`
}

type SecretsConfig struct {
	Environment         string `mapstructure:"environment"`
	EnableAuditLogging  bool   `mapstructure:"enableAuditLogging"`
	EnableRotation      bool   `mapstructure:"enableRotation"`
	DefaultRotationDays int    `mapstructure:"defaultRotationDays"`
	MaxSecretVersions   int    `mapstructure:"maxSecretVersions"`
	EnableAccessControl bool   `mapstructure:"enableAccessControl"`
	Backend             string `mapstructure:"backend"`
}

type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

type OpenSearchConfig struct {
	Addresses []string `mapstructure:"addresses"`
	Index     string   `mapstructure:"index"`
	APIKey    string   `mapstructure:"apiKey"`
}

type Config struct {
	Debug        bool             `mapstructure:"debug"`
	AppName      string           `mapstructure:"appName"`
	MasterKey    string           `mapstructure:"masterKey"`
	ListenAddr   string           `mapstructure:"listenAddr"`
	TemplateDir  string           `mapstructure:"templateDir"`
	AllowOrigins []string         `mapstructure:"allowOrigins"`
	Audit        AuditConfig      `mapstructure:"audit"`
	Monitor      MonitorConfig    `mapstructure:"monitor"`
	Secrets      SecretsConfig    `mapstructure:"secrets"`
	MySQL        MySQLConfig      `mapstructure:"mysql"`
	Redis        RedisConfig      `mapstructure:"redis"`
	Mail         MailConfig       `mapstructure:"mail"`
	Webhook      WebhookConfig    `mapstructure:"webhook"`
	Kafka        KafkaConfig      `mapstructure:"kafka"`
	OpenSearch   OpenSearchConfig `mapstructure:"opensearch"`
}

func (c *Config) Sanitize() error {
	if c.AppName == "" {
		c.AppName = "sentinel"
	}
	if c.ListenAddr == "" {
		c.ListenAddr = DefaultListenAddr
	}
	if c.Audit.LogLevel == "" {
		c.Audit.LogLevel = "LOW"
	}
	if c.Audit.BatchSize < 1 {
		c.Audit.BatchSize = params.AuditDefaultBatchSize
	}
	if c.Audit.FlushInterval <= 0 {
		c.Audit.FlushInterval = params.AuditDefaultFlushInterval
	}
	if c.Audit.RetentionDays < 0 {
		c.Audit.RetentionDays = 0
	}
	if c.Secrets.Environment == "" {
		c.Secrets.Environment = DefaultEnvironment
	}
	if c.Secrets.DefaultRotationDays < 1 {
		c.Secrets.DefaultRotationDays = params.SecretsDefaultRotationDays
	}
	return nil
}

func LoadConfig(filename string) (*Config, error) {
	viper.SetConfigFile(filename)
	viper.SetConfigType("yaml")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		return nil, err
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	if err := config.Sanitize(); err != nil {
		return nil, err
	}
	return &config, nil
}
