package config

import (
	"github.com/shopspring/decimal"

	"github.com/ninja0404/sol-trader/pkg/config"
	"github.com/ninja0404/sol-trader/pkg/config/source"
	"github.com/ninja0404/sol-trader/pkg/config/source/file"
	"github.com/ninja0404/sol-trader/pkg/database/mysql"
	"github.com/ninja0404/sol-trader/pkg/logger"
)

// AppConfig 应用配置结构
type AppConfig struct {
	Logger  LoggerConfig      `yaml:"logger" json:"logger"`
	Redis   RedisConfig       `yaml:"redis" json:"redis"`
	RPC     RPCConfig         `yaml:"rpc" json:"rpc"`
	Wallet  WalletConfig      `yaml:"wallet" json:"wallet"`
	Trading TradingConfig     `yaml:"trading" json:"trading"`
	Mysql   mysql.MysqlConfig `yaml:"mysql" json:"mysql"`
}

// LoggerConfig 日志配置
type LoggerConfig struct {
	Output     string `yaml:"output" json:"output"`
	Debug      bool   `yaml:"debug" json:"debug"`
	Level      string `yaml:"level" json:"level"`
	AddCaller  bool   `yaml:"add_caller" json:"add_caller"`
	CallerSkip int    `yaml:"caller_skip" json:"caller_skip"`
}

// RedisConfig 事件流和缓存共用的Redis连接
type RedisConfig struct {
	Addr     string `yaml:"addr" json:"addr"`
	Password string `yaml:"password" json:"password"`
	DB       int    `yaml:"db" json:"db"`
}

// RPCConfig Solana节点和外部路由服务地址
type RPCConfig struct {
	Endpoint        string `yaml:"endpoint" json:"endpoint"`
	JitoEndpoint    string `yaml:"jito_endpoint" json:"jito_endpoint"`
	JupiterEndpoint string `yaml:"jupiter_endpoint" json:"jupiter_endpoint"`
	GMGNEndpoint    string `yaml:"gmgn_endpoint" json:"gmgn_endpoint"`
}

// WalletConfig 交易钱包
type WalletConfig struct {
	// PrivateKey base58编码的私钥
	PrivateKey string `yaml:"private_key" json:"private_key"`
}

// TradingConfig 交易引擎参数
type TradingConfig struct {
	Shards             int             `yaml:"shards" json:"shards"`
	MaxConcurrentSwaps int             `yaml:"max_concurrent_swaps" json:"max_concurrent_swaps"`
	ConsumerGroup      string          `yaml:"consumer_group" json:"consumer_group"`
	DefaultPriorityFee decimal.Decimal `yaml:"default_priority_fee" json:"default_priority_fee"`
}

// Manager 配置管理器
type Manager struct {
	config *AppConfig
}

// NewManager 创建配置管理器
func NewManager() *Manager {
	return &Manager{}
}

// Load 加载配置文件
func (m *Manager) Load(configPath string) error {
	err := config.Load(file.NewSource(
		file.WithPath(configPath),
		source.WithFormat("yaml"),
	))
	if err != nil {
		return err
	}

	// 解析配置
	var appConfig AppConfig
	err = config.Scan(&appConfig)
	if err != nil {
		return err
	}

	m.config = &appConfig
	return nil
}

// GetAppConfig 获取应用配置
func (m *Manager) GetAppConfig() *AppConfig {
	return m.config
}

// GetLoggerConfig 获取日志配置
func (m *Manager) GetLoggerConfig() LoggerConfig {
	return m.config.Logger
}

// GetRedisConfig 获取Redis配置
func (m *Manager) GetRedisConfig() RedisConfig {
	return m.config.Redis
}

// GetRPCConfig 获取RPC配置
func (m *Manager) GetRPCConfig() RPCConfig {
	return m.config.RPC
}

// GetTradingConfig 获取交易引擎配置
func (m *Manager) GetTradingConfig() TradingConfig {
	return m.config.Trading
}

// GetDatabaseConfig 获取数据库配置
func (m *Manager) GetDatabaseConfig() mysql.MysqlConfig {
	return m.config.Mysql
}

// InitLogger 初始化日志系统
func (m *Manager) InitLogger() error {
	loggerConfig := logger.FromConfig("logger")
	loggerInstance := loggerConfig.Build()
	logger.SetDefault(loggerInstance)
	logger.SetDefaultL1(loggerInstance)
	return nil
}
