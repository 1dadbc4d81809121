package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/dustinel/risk-engine/internal/engine"
)

// Config captures the settings required to boot the risk engine.
type Config struct {
	Server          ServerConfig          `yaml:"server"`
	Logging         LoggingConfig         `yaml:"logging"`
	Database        DatabaseConfig        `yaml:"database"`
	Cache           CacheConfig           `yaml:"cache"`
	RemoteModel     RemoteModelConfig     `yaml:"remoteModel"`
	Scoring         ScoringConfig         `yaml:"scoring"`
	Alerts          AlertsConfig          `yaml:"alerts"`
	Notifications   NotificationsConfig   `yaml:"notifications"`
	Events          EventsConfig          `yaml:"events"`
	Recommendations RecommendationsConfig `yaml:"recommendations"`
}

// ServerConfig controls gRPC listener behaviour.
type ServerConfig struct {
	Address         string        `yaml:"address"`
	MetricsAddress  string        `yaml:"metricsAddress"`
	GracefulTimeout time.Duration `yaml:"gracefulTimeout"`
}

// LoggingConfig controls structured logging.
type LoggingConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// DatabaseConfig points at the PostgreSQL document store. An empty URL selects the
// in-memory store, optionally seeded from SeedPath.
type DatabaseConfig struct {
	URL      string `yaml:"url"`
	MaxConns int32  `yaml:"maxConns"`
	Migrate  bool   `yaml:"migrate"`
	SeedPath string `yaml:"seedPath"`
}

// CacheConfig controls the Valkey-backed throttle cache.
type CacheConfig struct {
	Enabled      bool          `yaml:"enabled"`
	Addr         string        `yaml:"addr"`
	Username     string        `yaml:"username"`
	Password     string        `yaml:"password"`
	DB           int           `yaml:"db"`
	DialTimeout  time.Duration `yaml:"dialTimeout"`
	ReadTimeout  time.Duration `yaml:"readTimeout"`
	WriteTimeout time.Duration `yaml:"writeTimeout"`
	MaxRetries   int           `yaml:"maxRetries"`
	TLS          bool          `yaml:"tls"`
}

// RemoteModelConfig configures the hosted scoring model.
type RemoteModelConfig struct {
	Endpoint string        `yaml:"endpoint"`
	APIKey   string        `yaml:"apiKey"`
	Timeout  time.Duration `yaml:"timeout"`
}

// ScoringConfig holds the local scorer parameters.
type ScoringConfig struct {
	MandatoryPPE []string               `yaml:"mandatoryPPE"`
	Ensemble     engine.EnsembleWeights `yaml:"ensemble"`
	Deductions   engine.Deductions      `yaml:"deductions"`
}

// AlertsConfig controls alert throttling.
type AlertsConfig struct {
	Cooldown time.Duration `yaml:"cooldown"`
}

// NotificationsConfig configures the dispatcher and its transports.
type NotificationsConfig struct {
	ChannelTimeout time.Duration `yaml:"channelTimeout"`
	AdminEmails    []string      `yaml:"adminEmails"`
	MQTT           MQTTConfig    `yaml:"mqtt"`
	Gateway        GatewayConfig `yaml:"gateway"`
}

// MQTTConfig configures push delivery.
type MQTTConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Broker        string `yaml:"broker"`
	ClientID      string `yaml:"clientId"`
	Username      string `yaml:"username"`
	Password      string `yaml:"password"`
	TopicTemplate string `yaml:"topicTemplate"`
	QoS           int    `yaml:"qos"`
}

// GatewayConfig configures SMS and email delivery.
type GatewayConfig struct {
	BaseURL   string `yaml:"baseURL"`
	APIKey    string `yaml:"apiKey"`
	SMSPath   string `yaml:"smsPath"`
	EmailPath string `yaml:"emailPath"`
	From      string `yaml:"from"`
}

// EventsConfig configures the alert event stream.
type EventsConfig struct {
	Kafka KafkaConfig `yaml:"kafka"`
}

// KafkaConfig configures the Kafka writer.
type KafkaConfig struct {
	Enabled      bool          `yaml:"enabled"`
	Brokers      []string      `yaml:"brokers"`
	Topic        string        `yaml:"topic"`
	Acks         int           `yaml:"acks"`
	WriteTimeout time.Duration `yaml:"writeTimeout"`
}

// RecommendationsConfig controls rule-pack loading for the recommender.
type RecommendationsConfig struct {
	Path string `yaml:"path"`
}

// Load initialises Config from defaults, a YAML file, a .env file and environment overrides.
func Load(path string) (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	if path == "" {
		path = os.Getenv("DUSTINEL_CONFIG")
	}

	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("config file %s not found: %w", path, err)
			}
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func defaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Address:         ":50051",
			MetricsAddress:  ":2112",
			GracefulTimeout: 10 * time.Second,
		},
		Logging:  LoggingConfig{Level: "info", JSON: false},
		Database: DatabaseConfig{MaxConns: 10, Migrate: true},
		Cache: CacheConfig{
			Enabled:      false,
			DialTimeout:  2 * time.Second,
			ReadTimeout:  500 * time.Millisecond,
			WriteTimeout: 500 * time.Millisecond,
			MaxRetries:   2,
		},
		RemoteModel: RemoteModelConfig{Timeout: engine.DefaultRemoteTimeout},
		Scoring: ScoringConfig{
			MandatoryPPE: append([]string(nil), engine.DefaultMandatoryPPE...),
			Ensemble:     engine.DefaultEnsembleWeights(),
			Deductions:   engine.DefaultDeductions(),
		},
		Alerts: AlertsConfig{Cooldown: 30 * time.Minute},
		Notifications: NotificationsConfig{
			ChannelTimeout: 5 * time.Second,
			MQTT: MQTTConfig{
				ClientID:      "dustinel-risk-engine",
				TopicTemplate: "dustinel/devices/{token}/alerts",
				QoS:           1,
			},
			Gateway: GatewayConfig{SMSPath: "/sms", EmailPath: "/email"},
		},
		Events: EventsConfig{Kafka: KafkaConfig{
			Topic:        "dustinel.alerts",
			Acks:         -1,
			WriteTimeout: 5 * time.Second,
		}},
		Recommendations: RecommendationsConfig{Path: "configs/rules/recommendations.yaml"},
	}
}

func (c *Config) validate() error {
	if c.Alerts.Cooldown <= 0 {
		return fmt.Errorf("alerts.cooldown must be positive")
	}
	if c.Notifications.MQTT.QoS < 0 || c.Notifications.MQTT.QoS > 2 {
		return fmt.Errorf("notifications.mqtt.qos must be 0, 1 or 2")
	}
	if c.Events.Kafka.Enabled && len(c.Events.Kafka.Brokers) == 0 {
		return fmt.Errorf("events.kafka.brokers required when the event stream is enabled")
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	envString("DUSTINEL_SERVER_ADDRESS", &cfg.Server.Address)
	envString("DUSTINEL_METRICS_ADDRESS", &cfg.Server.MetricsAddress)
	envString("DUSTINEL_LOG_LEVEL", &cfg.Logging.Level)
	if v := os.Getenv("DUSTINEL_LOG_FORMAT"); v == "json" {
		cfg.Logging.JSON = true
	}

	envString("DUSTINEL_DATABASE_URL", &cfg.Database.URL)
	envBool("DUSTINEL_DATABASE_MIGRATE", &cfg.Database.Migrate)
	envString("DUSTINEL_DATABASE_SEED_PATH", &cfg.Database.SeedPath)
	if v := os.Getenv("DUSTINEL_DATABASE_MAX_CONNS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Database.MaxConns = int32(n)
		}
	}

	envBool("DUSTINEL_CACHE_ENABLED", &cfg.Cache.Enabled)
	envString("DUSTINEL_CACHE_ADDR", &cfg.Cache.Addr)
	envString("DUSTINEL_CACHE_USERNAME", &cfg.Cache.Username)
	envString("DUSTINEL_CACHE_PASSWORD", &cfg.Cache.Password)
	envBool("DUSTINEL_CACHE_TLS", &cfg.Cache.TLS)
	if v := os.Getenv("DUSTINEL_CACHE_DB"); v != "" {
		if db, err := strconv.Atoi(v); err == nil {
			cfg.Cache.DB = db
		}
	}

	envString("DUSTINEL_REMOTE_MODEL_URL", &cfg.RemoteModel.Endpoint)
	envString("DUSTINEL_REMOTE_MODEL_API_KEY", &cfg.RemoteModel.APIKey)
	envDuration("DUSTINEL_REMOTE_MODEL_TIMEOUT", &cfg.RemoteModel.Timeout)

	envList("DUSTINEL_MANDATORY_PPE", &cfg.Scoring.MandatoryPPE)
	envDuration("DUSTINEL_ALERT_COOLDOWN", &cfg.Alerts.Cooldown)

	envDuration("DUSTINEL_CHANNEL_TIMEOUT", &cfg.Notifications.ChannelTimeout)
	envList("DUSTINEL_ADMIN_EMAILS", &cfg.Notifications.AdminEmails)
	envBool("DUSTINEL_MQTT_ENABLED", &cfg.Notifications.MQTT.Enabled)
	envString("DUSTINEL_MQTT_BROKER", &cfg.Notifications.MQTT.Broker)
	envString("DUSTINEL_MQTT_USERNAME", &cfg.Notifications.MQTT.Username)
	envString("DUSTINEL_MQTT_PASSWORD", &cfg.Notifications.MQTT.Password)
	envString("DUSTINEL_GATEWAY_URL", &cfg.Notifications.Gateway.BaseURL)
	envString("DUSTINEL_GATEWAY_API_KEY", &cfg.Notifications.Gateway.APIKey)
	envString("DUSTINEL_GATEWAY_FROM", &cfg.Notifications.Gateway.From)

	envBool("DUSTINEL_KAFKA_ENABLED", &cfg.Events.Kafka.Enabled)
	envList("DUSTINEL_KAFKA_BROKERS", &cfg.Events.Kafka.Brokers)
	envString("DUSTINEL_KAFKA_TOPIC", &cfg.Events.Kafka.Topic)

	envString("DUSTINEL_RECOMMENDATIONS_PATH", &cfg.Recommendations.Path)
}

func envString(key string, dst *string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func envBool(key string, dst *bool) {
	if v := os.Getenv(key); v != "" {
		*dst = strings.EqualFold(v, "true") || v == "1"
	}
}

func envDuration(key string, dst *time.Duration) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}

func envList(key string, dst *[]string) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	*dst = out
}
