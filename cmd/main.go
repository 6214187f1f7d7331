package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"
	glog "github.com/cloudwego/hertz/pkg/common/hlog"
	hertztracing "github.com/hertz-contrib/obs-opentelemetry/tracing"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"ai-portfolio-go/internal/api/handler"
	"ai-portfolio-go/internal/api/router"
	"ai-portfolio-go/internal/auth"
	"ai-portfolio-go/internal/config"
	"ai-portfolio-go/internal/constants"
	appCoreLogger "ai-portfolio-go/internal/logger"
	"ai-portfolio-go/internal/outbox"
	"ai-portfolio-go/internal/processor"
	"ai-portfolio-go/internal/storage"
	"ai-portfolio-go/internal/tracing"
	"ai-portfolio-go/internal/types"
)

func main() {
	var configPath string
	pflag.StringVarP(&configPath, "config", "c", "", "Path to config file (searched in default locations when empty)")
	pflag.Parse()

	// .env 不存在时忽略
	_ = godotenv.Load()

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		glog.Fatalf("加载配置失败: %v", err)
	}

	logCloser, err := appCoreLogger.Init(appCoreLogger.Config{
		Level:        cfg.Logger.Level,
		Format:       cfg.Logger.Format,
		TimeFormat:   cfg.Logger.TimeFormat,
		ReportCaller: cfg.Logger.ReportCaller,
		File:         cfg.Logger.File,
	})
	if err != nil {
		glog.Fatalf("初始化日志失败: %v", err)
	}
	defer logCloser.Close()
	glog.Info("配置加载成功")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTracing, err := tracing.InitProvider(ctx, cfg.Tracing)
	if err != nil {
		glog.Fatalf("初始化链路追踪失败: %v", err)
	}

	storageManager, err := storage.NewStorage(ctx, cfg)
	if err != nil {
		glog.Fatalf("初始化存储失败: %v", err)
	}
	defer storageManager.Close()
	glog.Info("存储服务初始化成功")

	// 提交事件经发件箱投递
	var messageRelay *outbox.MessageRelay
	if storageManager.MySQL != nil && storageManager.RabbitMQ != nil {
		messageRelay = outbox.NewMessageRelay(storageManager.MySQL, storageManager.RabbitMQ)
		messageRelay.Start(ctx)
		glog.Info("消息中继服务已启动")
	}

	svc, err := processor.CreateService(ctx, cfg, storageManager)
	if err != nil {
		glog.Fatalf("初始化作品集服务失败: %v", err)
	}
	if err := svc.Load(ctx); err != nil {
		if errors.Is(err, types.ErrRecordNotLoaded) {
			glog.Info("尚无已提交的作品集，等待首次生成")
		} else {
			glog.Warnf("恢复作品集快照失败: %v", err)
		}
	} else {
		glog.Info("已从快照恢复作品集")
	}

	gateOpts := []auth.GateOption{
		auth.WithSessionTTL(config.GetDuration(cfg.Admin.SessionTTL, constants.DefaultSessionTTL)),
	}
	if storageManager.Redis != nil {
		gateOpts = append(gateOpts, auth.WithSessionStore(auth.NewRedisSessionStore(storageManager.Redis)))
	}
	gate := auth.NewGate(cfg.Admin.Username, cfg.Admin.Password, gateOpts...)

	editorHandler := handler.NewEditorHandler(svc)
	handlers := router.Handlers{
		Portfolio: handler.NewPortfolioHandler(svc),
		Editor:    editorHandler,
		Auth:      handler.NewAuthHandler(gate, editorHandler),
		Messages:  handler.NewMessageHandler(storageManager.MessageLog()),
	}

	tracer, tracingCfg := hertztracing.NewServerTracer()
	h := server.New(
		tracer,
		server.WithHostPorts(cfg.Server.Address),
		server.WithHandleMethodNotAllowed(true),
		server.WithMaxRequestBodySize(cfg.Server.MaxRequestBody),
	)
	h.Use(hertztracing.ServerMiddleware(tracingCfg))
	h.Use(func(c context.Context, ctx *app.RequestContext) {
		start := time.Now()
		ctx.Next(c)
		glog.CtxInfof(c, "%s %s -> %d (%s)", string(ctx.Method()), string(ctx.Path()), ctx.Response.StatusCode(), time.Since(start))
	})

	router.RegisterRoutes(h, handlers)
	glog.Info("HTTP路由注册成功")
	glog.Infof("HTTP 服务器启动中，监听地址: %s", cfg.Server.Address)

	go func() {
		if err := h.Run(); err != nil {
			glog.Fatalf("启动HTTP服务器失败: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	glog.Info("接收到终止信号，正在优雅退出...")

	if messageRelay != nil {
		messageRelay.Stop()
		glog.Info("消息中继服务已停止")
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	if err := h.Shutdown(shutdownCtx); err != nil {
		glog.Errorf("服务器关闭失败: %v", err)
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		glog.Warnf("关闭链路追踪失败: %v", err)
	}
	glog.Info("优雅退出完成")
}
