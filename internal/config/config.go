package config

import (
	"log"
	"strings"

	"github.com/spf13/viper"
)

// Config 全局配置结构
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	MySQL    MySQLConfig    `mapstructure:"mysql"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Webhook  WebhookConfig  `mapstructure:"webhook"`
	Business BusinessConfig `mapstructure:"business"`
}

type ServerConfig struct {
	Port int `mapstructure:"port"`
}

type MySQLConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	User         string `mapstructure:"user"`
	Password     string `mapstructure:"password"`
	Database     string `mapstructure:"database"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type KafkaConfig struct {
	Brokers []string         `mapstructure:"brokers"`
	Topic   KafkaTopicConfig `mapstructure:"topic"`
}

type KafkaTopicConfig struct {
	PushNotification  string `mapstructure:"push_notification"`
	SubscriptionEvent string `mapstructure:"subscription_event"`
}

// AuthConfig 认证配置
// JWTSecret 与外部认证平台共享，用于校验其签发的 Bearer Token
type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
}

// WebhookConfig 支付处理器回调配置
type WebhookConfig struct {
	Secret string `mapstructure:"secret"`
}

type BusinessConfig struct {
	RefCodeMaxRetries    int `mapstructure:"refcode_max_retries"`
	ReminderScanSeconds  int `mapstructure:"reminder_scan_seconds"`
	ScheduledScanSeconds int `mapstructure:"scheduled_scan_seconds"`
	MaxRetryCount        int `mapstructure:"max_retry_count"`
}

var GlobalConfig *Config

// LoadConfig 加载配置文件
// 环境变量可覆盖同名配置项（如 AUTH_JWT_SECRET、WEBHOOK_SECRET）
func LoadConfig(configPath string) *Config {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")

	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		log.Fatalf("读取配置文件失败: %v", err)
	}

	config := &Config{}
	if err := viper.Unmarshal(config); err != nil {
		log.Fatalf("解析配置文件失败: %v", err)
	}

	if config.Business.RefCodeMaxRetries <= 0 {
		config.Business.RefCodeMaxRetries = 3
	}
	if config.Business.MaxRetryCount <= 0 {
		config.Business.MaxRetryCount = 3
	}

	GlobalConfig = config
	return config
}
