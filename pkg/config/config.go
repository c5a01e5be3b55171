package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Config 定义整个应用的配置结构
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Registry RegistryConfig `mapstructure:"registry"`
	Fanout   FanoutConfig   `mapstructure:"fanout"`
	Log      LogConfig      `mapstructure:"log"`
}

// ServerConfig 管理API服务器配置
type ServerConfig struct {
	ListenAddress string `mapstructure:"listen_address"`
	Port          int    `mapstructure:"port"`
}

// RegistryConfig 服务端点注册表配置
type RegistryConfig struct {
	// Backend 可选 "memory" 或 "etcd"
	Backend string         `mapstructure:"backend"`
	Etcd    EtcdConfig     `mapstructure:"etcd"`
	Seed    []SeedEndpoint `mapstructure:"seed"`
}

// EtcdConfig etcd后端配置
type EtcdConfig struct {
	Endpoints   []string `mapstructure:"endpoints"`
	DialTimeout string   `mapstructure:"dial_timeout"`
	Username    string   `mapstructure:"username"`
	Password    string   `mapstructure:"password"`
	Namespace   string   `mapstructure:"namespace"`
}

// SeedEndpoint 启动时预置的PowerDNS服务端点，is_active和verify_ssl未配置时默认为true
type SeedEndpoint struct {
	Name            string `mapstructure:"name"`
	APIURL          string `mapstructure:"api_url"`
	APIKey          string `mapstructure:"api_key"`
	Description     string `mapstructure:"description"`
	IsDefault       bool   `mapstructure:"is_default"`
	IsActive        *bool  `mapstructure:"is_active"`
	MultiServerMode bool   `mapstructure:"multi_server_mode"`
	Timeout         int    `mapstructure:"timeout"`
	VerifySSL       *bool  `mapstructure:"verify_ssl"`
}

// FanoutConfig 多服务器并发写入配置
type FanoutConfig struct {
	// OperationTimeout 整体操作超时（秒）
	OperationTimeout int `mapstructure:"operation_timeout"`
	// FailureThreshold 熔断器连续失败阈值
	FailureThreshold int `mapstructure:"failure_threshold"`
	// RecoveryTimeout 熔断器恢复窗口（秒）
	RecoveryTimeout int `mapstructure:"recovery_timeout"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

// LoadConfig 从文件和环境变量加载配置
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	// 设置默认值
	setDefaults(v)

	// 设置配置文件
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		// 默认查找路径
		v.SetConfigName("config")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("$HOME/.pdns-fanout")
		v.AddConfigPath("/etc/pdns-fanout")
	}
	v.SetConfigType("yaml")

	// 读取配置文件
	if err := v.ReadInConfig(); err != nil {
		// 配置文件不存在时不返回错误
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("读取配置文件错误: %w", err)
		}
	}

	// 从环境变量读取配置
	v.SetEnvPrefix("PDNS_FANOUT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// 绑定常用环境变量
	bindEnvVariables(v)

	// 解析配置到结构体
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("解析配置错误: %w", err)
	}

	return &config, nil
}

// setDefaults 设置默认配置值
func setDefaults(v *viper.Viper) {
	// 服务器默认配置
	v.SetDefault("server.listen_address", "0.0.0.0")
	v.SetDefault("server.port", 8080)

	// 注册表默认配置
	v.SetDefault("registry.backend", "memory")
	v.SetDefault("registry.etcd.endpoints", []string{"localhost:2379"})
	v.SetDefault("registry.etcd.dial_timeout", "5s")
	v.SetDefault("registry.etcd.namespace", "/pdns-fanout")

	// 多服务器写入默认配置
	v.SetDefault("fanout.operation_timeout", 30)
	v.SetDefault("fanout.failure_threshold", 5)
	v.SetDefault("fanout.recovery_timeout", 60)

	// 日志默认配置
	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", true)
}

// bindEnvVariables 绑定特定的环境变量
func bindEnvVariables(v *viper.Viper) {
	v.BindEnv("server.port", "PDNS_FANOUT_SERVER_PORT")
	v.BindEnv("registry.backend", "PDNS_FANOUT_REGISTRY_BACKEND")
	v.BindEnv("registry.etcd.endpoints", "PDNS_FANOUT_ETCD_ENDPOINTS")
	v.BindEnv("fanout.operation_timeout", "PDNS_FANOUT_OPERATION_TIMEOUT")
}

// GetDefaultConfigPath 返回默认配置文件路径
func GetDefaultConfigPath() string {
	// 按顺序检查不同位置的配置文件
	paths := []string{
		"./config.yaml",
		"./configs/config.yaml",
		os.Getenv("HOME") + "/.pdns-fanout/config.yaml",
		"/etc/pdns-fanout/config.yaml",
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}
