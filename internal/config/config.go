package config

import (
	"fmt"
	"os"
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
	IdleTimeout  time.Duration `mapstructure:"idleTimeout"`
}

// TCPConfig TCP 接入配置（ser2net 之类的串口转发桥）
type TCPConfig struct {
	Enable         bool          `mapstructure:"enable"`
	Addr           string        `mapstructure:"addr"`
	ReadTimeout    time.Duration `mapstructure:"readTimeout"`
	IdleTimeout    time.Duration `mapstructure:"idleTimeout"`
	MaxConnections int           `mapstructure:"maxConnections"`
	RatePerIP      float64       `mapstructure:"ratePerIP"` // 每IP每秒新建连接数上限，0 不限
	BurstPerIP     int           `mapstructure:"burstPerIP"`
}

// ReceiverConfig 单台接收机的接入定义
type ReceiverConfig struct {
	ID           string        `mapstructure:"id"`
	Name         string        `mapstructure:"name"`
	Transport    string        `mapstructure:"transport"` // serial 或 tcp
	Device       string        `mapstructure:"device"`    // 串口设备路径
	Baud         int           `mapstructure:"baud"`
	ReadTimeout  time.Duration `mapstructure:"readTimeout"`
	PollInterval time.Duration `mapstructure:"pollInterval"`
	Messages     []string      `mapstructure:"messages"` // posllh/svinfo/sat
}

// ProtocolConfig 协议层参数
type ProtocolConfig struct {
	MaxPayload  int           `mapstructure:"maxPayload"` // 解码器载荷上限，0 表示仅受16位长度约束
	PollTimeout time.Duration `mapstructure:"pollTimeout"`
	PollRate    float64       `mapstructure:"pollRate"` // 每接收机每秒轮询请求上限
	PollBurst   int           `mapstructure:"pollBurst"`
	NamesPath   string        `mapstructure:"namesPath"` // 消息名注册表 YAML，空则用内置表
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

// DatabaseConfig PostgreSQL 连接配置；DSN 为空时网关以无库模式运行
type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"maxOpenConns"`
	MaxIdleConns    int           `mapstructure:"maxIdleConns"`
	ConnMaxLifetime time.Duration `mapstructure:"connMaxLifetime"`
	MigrateDir      string        `mapstructure:"migrateDir"`
}

// RedisConfig Redis 连接与键空间配置；Addr 为空时相关功能降级
type RedisConfig struct {
	Addr        string        `mapstructure:"addr"`
	Password    string        `mapstructure:"password"`
	DB          int           `mapstructure:"db"`
	DialTimeout time.Duration `mapstructure:"dialTimeout"`
	LastFixTTL  time.Duration `mapstructure:"lastFixTTL"`
	QueueMax    int64         `mapstructure:"queueMax"` // 写入队列长度上限，超出丢弃最旧
}

// IngestConfig 轨迹写入批处理配置
type IngestConfig struct {
	BatchSize     int           `mapstructure:"batchSize"`
	FlushInterval time.Duration `mapstructure:"flushInterval"`
}

// PushConfig 事件外推（webhook）配置；URL 为空时关闭
type PushConfig struct {
	URL         string        `mapstructure:"url"`
	Secret      string        `mapstructure:"secret"`
	Timeout     time.Duration `mapstructure:"timeout"`
	Retries     int           `mapstructure:"retries"`
	QueueSize   int           `mapstructure:"queueSize"`
	DedupWindow time.Duration `mapstructure:"dedupWindow"`
}

// APIConfig HTTP API 鉴权配置
type APIConfig struct {
	Key string `mapstructure:"key"` // 受保护路由的 X-API-Key，空则拒绝所有写操作
}

// HealthConfig 健康检查阈值
type HealthConfig struct {
	PresenceTimeout time.Duration `mapstructure:"presenceTimeout"` // 超过该时长未收到任何帧视为离线
	CheckTimeout    time.Duration `mapstructure:"checkTimeout"`
}

// Config 顶层配置结构
type Config struct {
	App       AppConfig        `mapstructure:"app"`
	HTTP      HTTPConfig       `mapstructure:"http"`
	TCP       TCPConfig        `mapstructure:"tcp"`
	Receivers []ReceiverConfig `mapstructure:"receivers"`
	Protocol  ProtocolConfig   `mapstructure:"protocol"`
	Logging   LoggingConfig    `mapstructure:"logging"`
	Metrics   MetricsConfig    `mapstructure:"metrics"`
	Database  DatabaseConfig   `mapstructure:"database"`
	Redis     RedisConfig      `mapstructure:"redis"`
	Ingest    IngestConfig     `mapstructure:"ingest"`
	Push      PushConfig       `mapstructure:"push"`
	API       APIConfig        `mapstructure:"api"`
	Health    HealthConfig     `mapstructure:"health"`
}

// 合法的接入方式与消息名
const (
	TransportSerial = "serial"
	TransportTCP    = "tcp"
)

var validMessages = map[string]bool{"posllh": true, "svinfo": true, "sat": true}

// Load 从 YAML 文件与环境变量加载配置。
// 若 path 为空，则尝试从环境变量 GNSS_CONFIG 读取；否则回退到 configs/example.yaml。
func Load(path string) (*Config, error) {
	v := viper.New()

	if path == "" {
		path = os.Getenv("GNSS_CONFIG")
	}

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.SetConfigName("example")
		v.SetConfigType("yaml")
	}

	// 默认值
	setDefaults(v)

	// 环境变量覆盖：前缀 GNSS_，并将点号替换为下划线
	v.SetEnvPrefix("GNSS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// 搜索模式下允许缺少配置文件，依赖默认值与环境变量；
		// 显式指定的文件缺失仍然报错。
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
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

// Validate 校验加载结果中无法用默认值兜底的部分
func (c *Config) Validate() error {
	seen := make(map[string]bool, len(c.Receivers))
	for i, r := range c.Receivers {
		if r.ID == "" {
			return fmt.Errorf("receiver %d: empty id", i)
		}
		if seen[r.ID] {
			return fmt.Errorf("receiver %q: duplicate id", r.ID)
		}
		seen[r.ID] = true

		switch r.Transport {
		case TransportSerial:
			if r.Device == "" {
				return fmt.Errorf("receiver %q: serial transport requires device", r.ID)
			}
			if r.Baud <= 0 {
				return fmt.Errorf("receiver %q: invalid baud %d", r.ID, r.Baud)
			}
		case TransportTCP:
			// tcp 接收机由对端主动连入，这里无需地址
		default:
			return fmt.Errorf("receiver %q: unknown transport %q", r.ID, r.Transport)
		}

		if r.PollInterval < 0 {
			return fmt.Errorf("receiver %q: negative poll interval", r.ID)
		}
		for _, m := range r.Messages {
			if !validMessages[m] {
				return fmt.Errorf("receiver %q: unknown message %q", r.ID, m)
			}
		}
	}
	if c.Protocol.MaxPayload < 0 {
		return fmt.Errorf("protocol.maxPayload must be >= 0")
	}
	return nil
}

// Receiver 按ID查找接收机配置
func (c *Config) Receiver(id string) (ReceiverConfig, bool) {
	for _, r := range c.Receivers {
		if r.ID == id {
			return r, true
		}
	}
	return ReceiverConfig{}, false
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "gnss-gateway")
	v.SetDefault("app.env", "dev")

	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.readTimeout", "5s")
	v.SetDefault("http.writeTimeout", "10s")
	v.SetDefault("http.idleTimeout", "60s")

	v.SetDefault("tcp.enable", false)
	v.SetDefault("tcp.addr", ":7000")
	v.SetDefault("tcp.readTimeout", "30s")
	v.SetDefault("tcp.idleTimeout", "5m")
	v.SetDefault("tcp.maxConnections", 256)
	v.SetDefault("tcp.ratePerIP", 0)
	v.SetDefault("tcp.burstPerIP", 10)

	v.SetDefault("protocol.maxPayload", 2048)
	v.SetDefault("protocol.pollTimeout", "1500ms")
	v.SetDefault("protocol.pollRate", 10)
	v.SetDefault("protocol.pollBurst", 3)
	v.SetDefault("protocol.namesPath", "")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.file.filename", "")
	v.SetDefault("logging.file.maxSize", 100)
	v.SetDefault("logging.file.maxBackups", 7)
	v.SetDefault("logging.file.maxAge", 30)
	v.SetDefault("logging.file.compress", true)

	v.SetDefault("metrics.enable", true)
	v.SetDefault("metrics.path", "/metrics")

	v.SetDefault("database.dsn", "")
	v.SetDefault("database.maxOpenConns", 20)
	v.SetDefault("database.maxIdleConns", 10)
	v.SetDefault("database.connMaxLifetime", "1h")
	v.SetDefault("database.migrateDir", "migrations")

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.dialTimeout", "3s")
	v.SetDefault("redis.lastFixTTL", "5m")
	v.SetDefault("redis.queueMax", 100000)

	v.SetDefault("ingest.batchSize", 100)
	v.SetDefault("ingest.flushInterval", "2s")

	v.SetDefault("push.url", "")
	v.SetDefault("push.timeout", "5s")
	v.SetDefault("push.retries", 3)
	v.SetDefault("push.queueSize", 1024)
	v.SetDefault("push.dedupWindow", "10s")

	v.SetDefault("health.presenceTimeout", "30s")
	v.SetDefault("health.checkTimeout", "3s")
}
