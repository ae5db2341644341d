package app

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/gagliardetto/solana-go"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/ninja0404/sol-trader/internal/chain"
	"github.com/ninja0404/sol-trader/internal/config"
	"github.com/ninja0404/sol-trader/internal/copytrade"
	"github.com/ninja0404/sol-trader/internal/repo"
	"github.com/ninja0404/sol-trader/internal/settlement"
	"github.com/ninja0404/sol-trader/internal/trading"
	"github.com/ninja0404/sol-trader/internal/trading/builder"
	"github.com/ninja0404/sol-trader/internal/trading/sender"
	"github.com/ninja0404/sol-trader/pkg/database/mysql"
	"github.com/ninja0404/sol-trader/pkg/logger"
	"github.com/ninja0404/sol-trader/pkg/mq/redisstream"
	"github.com/ninja0404/sol-trader/pkg/utils"
)

// Application Solana跟单交易执行应用
type Application struct {
	configManager *config.Manager
	db            *gorm.DB

	engine    *trading.Engine
	copytrade *copytrade.Processor
}

// New 创建应用实例
func New() *Application {
	return &Application{
		configManager: config.NewManager(),
	}
}

// Initialize 初始化应用
func (app *Application) Initialize(configPath string) error {
	// 1. 加载配置, 环境变量可覆盖配置文件路径
	if envPath := utils.GetConfigFilePath(); envPath != "" {
		configPath = envPath
	}
	if err := app.configManager.Load(configPath); err != nil {
		return err
	}

	// 2. 初始化日志系统
	if err := app.configManager.InitLogger(); err != nil {
		return err
	}
	logger.Info("🚀 交易执行服务初始化开始", logger.String("config_path", configPath))

	// 3. 初始化数据库
	if err := app.initDatabase(); err != nil {
		return err
	}

	// 4. 初始化Redis(事件流 + 链上数据缓存)
	redisCfg := app.configManager.GetRedisConfig()
	if err := redisstream.Setup(redisCfg.Addr, redisCfg.Password, redisCfg.DB); err != nil {
		return err
	}

	// 5. 组装交易管道
	if err := app.setupTrading(); err != nil {
		return err
	}

	logger.Info("✅ 交易执行服务初始化完成")
	return nil
}

// initDatabase 初始化数据库连接
func (app *Application) initDatabase() error {
	if err := mysql.SetupDatabaseFromDefaultConfig(); err != nil {
		return err
	}

	db, err := mysql.GetDb()
	if err != nil {
		return err
	}
	app.db = db

	logger.Info("📊 数据库连接已建立")
	return nil
}

// setupTrading 组装交易引擎和跟单处理器
func (app *Application) setupTrading() error {
	rpcCfg := app.configManager.GetRPCConfig()
	tradingCfg := app.configManager.GetTradingConfig()

	payer, err := solana.PrivateKeyFromBase58(app.configManager.GetAppConfig().Wallet.PrivateKey)
	if err != nil {
		return errors.Wrap(err, "解析钱包私钥失败")
	}

	rdb := redisstream.Client()
	client := chain.NewClient(rpcCfg.Endpoint)
	cache := chain.NewCache(rdb, client)
	pools := chain.NewPoolStore(rdb, client)

	// 各场所builder + 聚合器竞速兜底
	pumpBuilder := builder.NewPumpBuilder(client, cache)
	raydiumBuilder := builder.NewRaydiumBuilder(client, cache, pools)
	dexBuilder := builder.NewAggregateBuilder(
		builder.NewJupiterBuilder(client, rpcCfg.JupiterEndpoint),
		builder.NewGMGNBuilder(client, rpcCfg.GMGNEndpoint),
	)

	service := trading.NewService(&trading.ServiceOptions{
		Selector:      trading.NewSelector(client, pools),
		Payer:         payer,
		Pump:          pumpBuilder,
		Raydium:       raydiumBuilder,
		Dex:           dexBuilder,
		DefaultSender: sender.NewDefaultSender(client),
		JitoSender:    sender.NewJitoSender(client, rpcCfg.JitoEndpoint),
		GMGNSender:    sender.NewGMGNSender(client, rpcCfg.GMGNEndpoint),
	})

	producer := redisstream.NewDefaultProducer(redisstream.ProducerConfig{})
	settle := settlement.NewProcessor(client, repo.NewSwapRecordRepo(app.db))

	app.engine = trading.NewEngine(service, settle, producer, trading.EngineConfig{
		Shards:             tradingCfg.Shards,
		MaxConcurrentSwaps: tradingCfg.MaxConcurrentSwaps,
		ConsumerGroup:      tradingCfg.ConsumerGroup,
	})

	app.copytrade = copytrade.NewProcessor(
		repo.NewCopyTradeRepo(app.db),
		client,
		copytrade.NewSlippageEstimator(client, pools),
		producer,
	)

	logger.Info("🔧 交易管道组装完成",
		logger.String("rpc_endpoint", rpcCfg.Endpoint),
		logger.String("wallet", payer.PublicKey().String()))
	return nil
}

// Run 运行应用
func (app *Application) Run() error {
	if err := app.engine.Start(); err != nil {
		return err
	}
	if err := app.copytrade.Start(); err != nil {
		return err
	}

	logger.Info("🔥 交易执行服务已启动, 开始消费交易意图...")

	// 等待终止信号
	app.waitForShutdown()
	return nil
}

// waitForShutdown 等待关闭信号
func (app *Application) waitForShutdown() {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	sig := <-quit
	logger.Info("📤 收到终止信号, 开始优雅关闭应用...", logger.String("signal", sig.String()))

	app.Shutdown()
}

// Shutdown 优雅关闭: 先停上游跟单, 再让引擎排空在途swap
func (app *Application) Shutdown() {
	logger.Info("🛑 开始关闭交易执行服务...")

	app.copytrade.Stop()
	app.engine.Stop()

	if err := redisstream.Close(); err != nil {
		logger.Error("关闭Redis连接失败", logger.FieldErr(err))
	}
	if err := mysql.Stop(); err != nil {
		logger.Error("关闭数据库连接失败", logger.FieldErr(err))
	}

	logger.Info("✨ 交易执行服务已成功关闭")
}

// Start 启动应用的便捷方法
func (app *Application) Start(configPath string) error {
	if err := app.Initialize(configPath); err != nil {
		logger.Error("❌ 交易执行服务初始化失败", logger.FieldErr(err))
		return err
	}

	if err := app.Run(); err != nil {
		logger.Error("❌ 交易执行服务运行失败", logger.FieldErr(err))
		return err
	}

	return nil
}

// GetConfigManager 获取配置管理器
func (app *Application) GetConfigManager() *config.Manager {
	return app.configManager
}

// GetDatabase 获取数据库连接
func (app *Application) GetDatabase() *gorm.DB {
	return app.db
}
