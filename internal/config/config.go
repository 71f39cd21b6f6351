package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// ServerConfig 定义 HTTP 服务器的监听配置参数
type ServerConfig struct {
	Host string // 监听地址，默认 "0.0.0.0"
	Port int    // 监听端口，默认 8080
}

// MailboxConfig 定义邮箱目录的核心业务配置
type MailboxConfig struct {
	AllowedDomains []string      // 允许创建邮箱的域名列表
	DefaultTTL     time.Duration // 邮箱默认生存时间，过期后不可见并等待清理
	TokenLength    int           // 随机本地部分的长度
	MaxPerIP       int           // 单个 IP 每小时最多可创建的邮箱数量
}

// SMTPConfig 定义 SMTP 邮件接收服务器的配置
type SMTPConfig struct {
	BindAddr       string // SMTP 服务监听地址，格式 "host:port"，默认 ":25"
	Domain         string // SMTP 服务器域名，用于 HELO/EHLO 响应
	MaxMessageSize int64  // 单封邮件最大字节数
	MaxConnections int    // 最大并发连接数
	MaxConnPerSec  int    // 每秒最多接受的新连接数
}

// SweepConfig 定义过期邮箱清理任务的配置
type SweepConfig struct {
	Interval time.Duration // 清理周期，默认 1 分钟
}

// CORSConfig 定义跨域资源共享 (CORS) 配置
type CORSConfig struct {
	AllowedOrigins []string // 允许的来源列表，"*" 表示允许所有来源
}

// LogConfig 定义日志系统配置
type LogConfig struct {
	Level       string // 日志级别: debug, info, warn, error
	Development bool   // 开发模式: 启用彩色输出和详细堆栈信息
	File        string // 日志文件路径，留空仅输出到控制台
}

// DatabaseConfig 定义数据库连接配置（支持 MySQL 和 PostgreSQL）
type DatabaseConfig struct {
	Type            string        // 数据库类型: "mysql" 或 "postgres"，留空使用内存存储
	DSN             string        // 数据库连接字符串
	MaxOpenConns    int           // 最大打开连接数，默认 25
	MaxIdleConns    int           // 最大空闲连接数，默认 5
	ConnMaxLifetime time.Duration // 连接最大生命周期，默认 5 分钟
}

// RedisConfig 定义 Redis 限流服务配置
type RedisConfig struct {
	Enabled  bool   // 是否启用 Redis 限流
	Address  string // Redis 服务地址，格式 "host:port"，默认 "localhost:6379"
	Password string // Redis 认证密码，留空表示无密码
	DB       int    // Redis 数据库编号，默认 0
}

// Config 是系统核心配置的根结构体，包含所有子系统的配置
type Config struct {
	Server   ServerConfig
	Mailbox  MailboxConfig
	SMTP     SMTPConfig
	Sweep    SweepConfig
	CORS     CORSConfig
	Log      LogConfig
	Database DatabaseConfig
	Redis    RedisConfig
}

// Load 从环境变量和 .env 文件加载系统配置
//
// 配置加载优先级（从高到低）：
//  1. 系统环境变量（最高优先级）
//  2. .env 文件（如果存在）
//  3. 默认值
//
// 环境变量前缀: DRIFTMAIL_
// 例如: DRIFTMAIL_SERVER_HOST, DRIFTMAIL_MAILBOX_DEFAULT_TTL
func Load() (*Config, error) {
	// .env 文件是可选的，加载失败时静默跳过
	loadEnvFile()

	viper.SetEnvPrefix("driftmail")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("mailbox.allowed_domains", "drift.mail")
	viper.SetDefault("mailbox.default_ttl", "10m")
	viper.SetDefault("mailbox.token_length", 12)
	viper.SetDefault("mailbox.max_per_ip", 30)
	viper.SetDefault("smtp.bind_addr", ":25")
	viper.SetDefault("smtp.domain", "drift.mail")
	viper.SetDefault("smtp.max_message_size", 10*1024*1024)
	viper.SetDefault("smtp.max_connections", 100)
	viper.SetDefault("smtp.max_conn_per_sec", 20)
	viper.SetDefault("sweep.interval", "1m")
	viper.SetDefault("cors.allowed_origins", "*")
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.development", false)
	viper.SetDefault("log.file", "")
	viper.SetDefault("database.type", "") // 默认为空，使用内存存储
	viper.SetDefault("database.dsn", "")
	viper.SetDefault("database.max_open_conns", 25)
	viper.SetDefault("database.max_idle_conns", 5)
	viper.SetDefault("database.conn_max_lifetime", "5m")
	viper.SetDefault("redis.enabled", false)
	viper.SetDefault("redis.address", "localhost:6379")
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)

	defaultTTL, err := time.ParseDuration(viper.GetString("mailbox.default_ttl"))
	if err != nil {
		return nil, fmt.Errorf("invalid mailbox.default_ttl: %w", err)
	}
	if defaultTTL <= 0 {
		return nil, fmt.Errorf("mailbox.default_ttl must be positive")
	}

	sweepInterval, err := time.ParseDuration(viper.GetString("sweep.interval"))
	if err != nil {
		return nil, fmt.Errorf("invalid sweep.interval: %w", err)
	}
	if sweepInterval <= 0 {
		sweepInterval = time.Minute
	}

	domainList := parseDomains(viper.GetString("mailbox.allowed_domains"))
	if len(domainList) == 0 {
		return nil, fmt.Errorf("mailbox.allowed_domains must not be empty")
	}

	tokenLength := viper.GetInt("mailbox.token_length")
	if tokenLength <= 0 {
		tokenLength = 12
	}

	maxPerIP := viper.GetInt("mailbox.max_per_ip")
	if maxPerIP <= 0 {
		maxPerIP = 30
	}

	corsOrigins := parseList(viper.GetString("cors.allowed_origins"))
	if len(corsOrigins) == 0 {
		corsOrigins = []string{"*"}
	}

	connMaxLifetime, err := time.ParseDuration(viper.GetString("database.conn_max_lifetime"))
	if err != nil {
		connMaxLifetime = 5 * time.Minute
	}

	cfg := &Config{
		Server: ServerConfig{
			Host: viper.GetString("server.host"),
			Port: viper.GetInt("server.port"),
		},
		Mailbox: MailboxConfig{
			AllowedDomains: domainList,
			DefaultTTL:     defaultTTL,
			TokenLength:    tokenLength,
			MaxPerIP:       maxPerIP,
		},
		SMTP: SMTPConfig{
			BindAddr:       viper.GetString("smtp.bind_addr"),
			Domain:         viper.GetString("smtp.domain"),
			MaxMessageSize: viper.GetInt64("smtp.max_message_size"),
			MaxConnections: viper.GetInt("smtp.max_connections"),
			MaxConnPerSec:  viper.GetInt("smtp.max_conn_per_sec"),
		},
		Sweep: SweepConfig{
			Interval: sweepInterval,
		},
		CORS: CORSConfig{
			AllowedOrigins: corsOrigins,
		},
		Log: LogConfig{
			Level:       viper.GetString("log.level"),
			Development: viper.GetBool("log.development"),
			File:        viper.GetString("log.file"),
		},
		Database: DatabaseConfig{
			Type:            viper.GetString("database.type"),
			DSN:             viper.GetString("database.dsn"),
			MaxOpenConns:    viper.GetInt("database.max_open_conns"),
			MaxIdleConns:    viper.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: connMaxLifetime,
		},
		Redis: RedisConfig{
			Enabled:  viper.GetBool("redis.enabled"),
			Address:  viper.GetString("redis.address"),
			Password: viper.GetString("redis.password"),
			DB:       viper.GetInt("redis.db"),
		},
	}

	return cfg, nil
}

// parseDomains 将逗号分隔的域名字符串解析为小写域名数组
func parseDomains(value string) []string {
	out := parseList(value)
	for i := range out {
		out[i] = strings.ToLower(out[i])
	}
	return out
}

// parseList 将逗号分隔的字符串解析为字符串切片
func parseList(value string) []string {
	parts := strings.Split(value, ",")
	items := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			items = append(items, trimmed)
		}
	}
	return items
}

// loadEnvFile 尝试加载 .env 文件
//
// 先尝试当前目录，再尝试父目录（从 backend/ 子目录运行时）。
// 已存在的环境变量不会被覆盖。
func loadEnvFile() {
	if err := godotenv.Load(".env"); err == nil {
		return
	}

	parentEnv := filepath.Join("..", ".env")
	if _, err := os.Stat(parentEnv); err == nil {
		_ = godotenv.Load(parentEnv)
	}
}
