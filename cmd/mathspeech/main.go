package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/iabetor/mathspeech/internal/api"
	"github.com/iabetor/mathspeech/internal/audio"
	"github.com/iabetor/mathspeech/internal/config"
	"github.com/iabetor/mathspeech/internal/database"
	"github.com/iabetor/mathspeech/internal/logger"
	"github.com/iabetor/mathspeech/internal/pipeline"
	"github.com/iabetor/mathspeech/internal/playback"
)

func main() {
	configPath := flag.String("config", "configs/mathspeech.yaml", "配置文件路径")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(logger.Config{
		Level:      cfg.Log.Level,
		File:       cfg.Log.File,
		MaxSize:    cfg.Log.MaxSize,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAge:     cfg.Log.MaxAge,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(cfg); err != nil {
		logger.Errorf("[main] %v", err)
		logger.Sync()
		os.Exit(1)
	}
	logger.Info("[main] mathspeech 已停止")
}

// loadConfig 在默认路径的配置文件不存在时回退到内置默认值。
func loadConfig(path string) (*config.Config, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return config.Default(), nil
	}
	return config.Load(path)
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := os.MkdirAll(cfg.Storage.DataDir, 0755); err != nil {
		return fmt.Errorf("创建数据目录失败: %w", err)
	}

	db, err := database.Open(cfg.Storage.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := db.Migrate(); err != nil {
		return err
	}

	cache, err := audio.NewCache(filepath.Join(cfg.Storage.DataDir, "cache"), cfg.Storage.CacheMaxMB)
	if err != nil {
		return err
	}

	p, err := pipeline.New(cfg,
		pipeline.WithDatabase(db),
		pipeline.WithCache(cache),
		pipeline.WithDocumentDir(filepath.Join(cfg.Storage.DataDir, "documents")),
	)
	if err != nil {
		return fmt.Errorf("创建流水线失败: %w", err)
	}

	if cfg.TTS.ElevenLabs.VerifyOnStart {
		verifyCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
		err := p.Verify(verifyCtx)
		cancel()
		if err != nil {
			return fmt.Errorf("语音服务校验失败: %w", err)
		}
		logger.Info("[main] 语音服务校验通过")
	}

	sessionTTL := time.Duration(cfg.Playback.SessionTTL) * time.Second
	sessions := playback.NewRegistry(sessionTTL)
	sweepDone := make(chan struct{})
	go func() {
		defer close(sweepDone)
		sessions.Run(ctx, sweepInterval(sessionTTL))
	}()

	srv := api.NewServer(p, api.Options{
		DB:             db,
		Cache:          cache,
		Sessions:       sessions,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		MaxUploadBytes: int64(cfg.Server.MaxUploadMB) << 20,
	})
	httpServer := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("[main] mathspeech 启动 (addr=%s, engine=%s, log_level=%s)",
			cfg.Server.Addr, cfg.TTS.Engine, cfg.Log.Level)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			stop()
			<-sweepDone
			return fmt.Errorf("HTTP 服务异常退出: %w", err)
		}
	case <-ctx.Done():
		logger.Info("[main] 收到退出信号，正在关闭...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(),
		time.Duration(cfg.Server.ShutdownTimeout)*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warnf("[main] HTTP 服务关闭超时: %v", err)
	}
	<-sweepDone
	return nil
}

// sweepInterval 取 TTL 的四分之一，限制在 [10s, 1min]。
func sweepInterval(ttl time.Duration) time.Duration {
	interval := ttl / 4
	if interval < 10*time.Second {
		interval = 10 * time.Second
	}
	if interval > time.Minute {
		interval = time.Minute
	}
	return interval
}
