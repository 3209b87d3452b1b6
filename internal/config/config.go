package config

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// AppConfig 应用基础信息
type AppConfig struct {
	Name string `mapstructure:"name"`
	Env  string `mapstructure:"env"`
}

// HTTPConfig HTTP 服务配置
type HTTPConfig struct {
	Addr         string        `mapstructure:"addr"`
	ReadTimeout  time.Duration `mapstructure:"readTimeout"`
	WriteTimeout time.Duration `mapstructure:"writeTimeout"`
}

// Z21Config 指令站 UDP 链路配置
type Z21Config struct {
	DeviceAddr        string        `mapstructure:"deviceAddr"` // 指令站地址 host:port
	LocalAddr         string        `mapstructure:"localAddr"`  // 本地绑定地址，空则由系统分配
	ReadBufferSize    int           `mapstructure:"readBufferSize"`
	ReadTimeout       time.Duration `mapstructure:"readTimeout"`
	WriteTimeout      time.Duration `mapstructure:"writeTimeout"`
	VerifySender      bool          `mapstructure:"verifySender"` // 丢弃非指令站来源的数据报
	KeepaliveInterval time.Duration `mapstructure:"keepaliveInterval"`
	SubscribeOnStart  bool          `mapstructure:"subscribeOnStart"`
	SendRatePerSec    float64       `mapstructure:"sendRatePerSec"`
	SendBurst         int           `mapstructure:"sendBurst"`
	QueueSize         int           `mapstructure:"queueSize"`
}

// LumberjackConfig 日志滚动（lumberjack）配置
type LumberjackConfig struct {
	Filename   string `mapstructure:"filename"`
	MaxSizeMB  int    `mapstructure:"maxSize"`
	MaxBackups int    `mapstructure:"maxBackups"`
	MaxAgeDays int    `mapstructure:"maxAge"`
	Compress   bool   `mapstructure:"compress"`
}

// LoggingConfig 日志级别与输出配置
type LoggingConfig struct {
	Level  string           `mapstructure:"level"`
	Format string           `mapstructure:"format"`
	File   LumberjackConfig `mapstructure:"file"`
}

// MetricsConfig Prometheus 指标暴露配置
type MetricsConfig struct {
	Enable bool   `mapstructure:"enable"`
	Path   string `mapstructure:"path"`
}

// RedisConfig 事件发布与状态镜像
type RedisConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Addr         string        `mapstructure:"addr"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	PoolSize     int           `mapstructure:"poolSize"`
	MinIdleConns int           `mapstructure:"minIdleConns"`
	DialTimeout  time.Duration `mapstructure:"dialTimeout"`
	ReadTimeout  time.Duration `mapstructure:"readTimeout"`
	WriteTimeout time.Duration `mapstructure:"writeTimeout"`
	KeyPrefix    string        `mapstructure:"keyPrefix"`
	Channel      string        `mapstructure:"channel"`
	StateTTL     time.Duration `mapstructure:"stateTTL"`
}

// AuthConfig 控制 API 鉴权
type AuthConfig struct {
	Enabled bool     `mapstructure:"enabled"`
	APIKeys []string `mapstructure:"apiKeys"`
}

// APIConfig 控制 API
type APIConfig struct {
	Auth AuthConfig `mapstructure:"auth"`
}

// Config 顶层配置结构
type Config struct {
	App     AppConfig     `mapstructure:"app"`
	HTTP    HTTPConfig    `mapstructure:"http"`
	Z21     Z21Config     `mapstructure:"z21"`
	Logging LoggingConfig `mapstructure:"logging"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	Redis   RedisConfig   `mapstructure:"redis"`
	API     APIConfig     `mapstructure:"api"`
}

// Load 从 YAML/TOML/JSON 文件与环境变量加载配置。
// 若 path 为空，则尝试从环境变量 Z21_CONFIG 读取；否则回退到 configs/gateway.yaml。
func Load(path string) (*Config, error) {
	v := viper.New()

	// 环境变量覆盖：前缀 Z21_，并将点号替换为下划线
	v.SetEnvPrefix("Z21")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path == "" {
		path = v.GetString("CONFIG")
	}

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.SetConfigName("gateway")
		v.SetConfigType("yaml")
	}

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		// 首次运行允许缺少配置文件，依赖默认值与环境变量
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate 检查启动前必须正确的配置项
func (c *Config) Validate() error {
	if _, _, err := net.SplitHostPort(c.Z21.DeviceAddr); err != nil {
		return fmt.Errorf("z21.deviceAddr %q: %w", c.Z21.DeviceAddr, err)
	}
	if c.Z21.ReadBufferSize <= 0 {
		return fmt.Errorf("z21.readBufferSize must be positive, got %d", c.Z21.ReadBufferSize)
	}
	if c.Z21.QueueSize <= 0 {
		return fmt.Errorf("z21.queueSize must be positive, got %d", c.Z21.QueueSize)
	}
	if c.API.Auth.Enabled && len(c.API.Auth.APIKeys) == 0 {
		return errors.New("api.auth.enabled requires at least one api key")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "z21-gateway")
	v.SetDefault("app.env", "dev")

	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.readTimeout", "5s")
	v.SetDefault("http.writeTimeout", "10s")

	v.SetDefault("z21.deviceAddr", "192.168.0.111:21105")
	v.SetDefault("z21.localAddr", "")
	v.SetDefault("z21.readBufferSize", 1024)
	v.SetDefault("z21.readTimeout", "1s")
	v.SetDefault("z21.writeTimeout", "1s")
	v.SetDefault("z21.verifySender", true)
	// 指令站约 60 秒无通信即注销客户端
	v.SetDefault("z21.keepaliveInterval", "30s")
	v.SetDefault("z21.subscribeOnStart", true)
	v.SetDefault("z21.sendRatePerSec", 20)
	v.SetDefault("z21.sendBurst", 5)
	v.SetDefault("z21.queueSize", 256)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.file.filename", "logs/z21-gateway.log")
	v.SetDefault("logging.file.maxSize", 100)
	v.SetDefault("logging.file.maxBackups", 7)
	v.SetDefault("logging.file.maxAge", 30)
	v.SetDefault("logging.file.compress", true)

	v.SetDefault("metrics.enable", true)
	v.SetDefault("metrics.path", "/metrics")

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.poolSize", 10)
	v.SetDefault("redis.minIdleConns", 2)
	v.SetDefault("redis.dialTimeout", "5s")
	v.SetDefault("redis.readTimeout", "3s")
	v.SetDefault("redis.writeTimeout", "3s")
	v.SetDefault("redis.keyPrefix", "z21:")
	v.SetDefault("redis.channel", "z21:events")
	v.SetDefault("redis.stateTTL", "0s")

	v.SetDefault("api.auth.enabled", false)
}
