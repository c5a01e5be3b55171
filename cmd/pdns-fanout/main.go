package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dnsmate/pdns-fanout/pkg/api"
	"github.com/dnsmate/pdns-fanout/pkg/config"
	"github.com/dnsmate/pdns-fanout/pkg/fanout"
	"github.com/dnsmate/pdns-fanout/pkg/registry"
	"github.com/dnsmate/pdns-fanout/pkg/registry/etcd"
	"github.com/dnsmate/pdns-fanout/pkg/registry/memory"
	"go.uber.org/zap"
)

var (
	configFile string
)

func init() {
	flag.StringVar(&configFile, "config", "", "配置文件路径")
}

func main() {
	flag.Parse()

	// 从配置文件加载配置
	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}

	// 初始化日志
	logger, err := config.NewLogger(cfg.Log.Development)
	if err != nil {
		log.Fatalf("初始化日志失败: %v", err)
	}

	logger.Info("配置加载成功",
		zap.String("registry_backend", cfg.Registry.Backend),
		zap.Int("operation_timeout", cfg.Fanout.OperationTimeout))

	// 初始化端点注册表
	var endpointRegistry registry.EndpointRegistry
	var etcdClient *etcd.Client

	switch cfg.Registry.Backend {
	case "etcd":
		etcdClient, err = etcd.NewClient(&cfg.Registry.Etcd)
		if err != nil {
			logger.Fatal("初始化etcd客户端失败", zap.Error(err))
		}
		defer func() {
			if err := etcdClient.Close(); err != nil {
				logger.Error("关闭etcd客户端失败", zap.Error(err))
			}
		}()
		endpointRegistry = etcd.NewEtcdRegistry(etcdClient)
		logger.Info("使用etcd端点注册表", zap.Strings("endpoints", cfg.Registry.Etcd.Endpoints))
	case "", "memory":
		endpointRegistry = memory.NewMemoryRegistry()
		logger.Info("使用内存端点注册表")
	default:
		logger.Fatal("未知的注册表后端", zap.String("backend", cfg.Registry.Backend))
	}

	// 预置配置文件中声明的端点
	seedEndpoints(endpointRegistry, cfg.Registry.Seed, logger)

	// 创建多端点编排器
	orchestrator := fanout.NewOrchestrator(endpointRegistry, logger, fanout.Config{
		OperationTimeout: time.Duration(cfg.Fanout.OperationTimeout) * time.Second,
		FailureThreshold: cfg.Fanout.FailureThreshold,
		RecoveryTimeout:  time.Duration(cfg.Fanout.RecoveryTimeout) * time.Second,
	})

	// 启动管理API服务
	server := api.NewServer(cfg, endpointRegistry, orchestrator, logger)
	if err := server.Start(); err != nil {
		logger.Fatal("启动管理API服务失败", zap.Error(err))
	}

	// 设置信号处理，以便优雅关闭
	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, syscall.SIGINT, syscall.SIGTERM)

	sig := <-signalChan
	logger.Info("接收到信号，准备关闭服务", zap.String("signal", sig.String()))

	// 使用超时上下文等待服务关闭
	const shutdownTimeout = 5 * time.Second
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("关闭管理API服务失败", zap.Error(err))
	}

	logger.Info("服务已关闭")
}

// seedEndpoints 将配置中预置的端点写入注册表，已存在的端点跳过
func seedEndpoints(endpointRegistry registry.EndpointRegistry, seeds []config.SeedEndpoint, logger config.Logger) {
	if len(seeds) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	created := 0
	for _, seed := range seeds {
		// 未配置的布尔字段默认为true
		isActive := true
		if seed.IsActive != nil {
			isActive = *seed.IsActive
		}
		verifySSL := true
		if seed.VerifySSL != nil {
			verifySSL = *seed.VerifySSL
		}

		endpoint := &registry.Endpoint{
			Name:            seed.Name,
			APIURL:          seed.APIURL,
			APIKey:          seed.APIKey,
			Description:     seed.Description,
			IsDefault:       seed.IsDefault,
			IsActive:        isActive,
			MultiServerMode: seed.MultiServerMode,
			Timeout:         seed.Timeout,
			VerifySSL:       verifySSL,
		}

		if err := endpointRegistry.CreateEndpoint(ctx, endpoint); err != nil {
			if re, ok := err.(*registry.RegistryError); ok && re.Code == registry.ErrAlreadyExists {
				logger.Debug("预置端点已存在，跳过", zap.String("name", seed.Name))
				continue
			}
			logger.Warn("预置端点失败",
				zap.String("name", seed.Name),
				zap.Error(err))
			continue
		}

		created++
		logger.Info("预置端点成功",
			zap.Int64("endpoint_id", endpoint.ID),
			zap.String("name", endpoint.Name))
	}

	if created > 0 {
		logger.Info("端点预置完成", zap.Int("created", created))
	}
}
