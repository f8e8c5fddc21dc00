/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/PFEPLTechHub/telegram-task/internal/api"
	"github.com/PFEPLTechHub/telegram-task/internal/config"
	"github.com/PFEPLTechHub/telegram-task/internal/container"
	"github.com/PFEPLTechHub/telegram-task/internal/logging"
	"github.com/PFEPLTechHub/telegram-task/internal/metrics"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the bot, scheduler and API server",
	Long: `Start all runtime components:
- the Telegram bot long-polling loop
- the reminder scheduler and overdue sweep
- the REST API server for internal dashboards

The command uses configuration from the config file or environment variables.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		// 1. 加载配置
		configPath, _ := cmd.Flags().GetString("config")
		cfg, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		logger, err := logging.NewFromConfig(&cfg.Log)
		if err != nil {
			return fmt.Errorf("failed to init logger: %w", err)
		}

		// 2. 初始化容器并装配组件
		ctr, err := container.NewContainer(cfg, logger)
		if err != nil {
			return fmt.Errorf("failed to initialize container: %w", err)
		}
		defer ctr.Close()

		if err := ctr.Wire(); err != nil {
			return fmt.Errorf("failed to wire components: %w", err)
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		// 3. 启动后台组件
		ctr.Sessions().StartSweeper(ctx, time.Minute)
		ctr.Scheduler().Start(ctx)

		collector := metrics.NewCollector(ctr.DB(), 15*time.Second)
		collector.Start()
		defer collector.Stop()

		// 可选的配置热更新
		if configPath != "" {
			watcher := config.NewWatcher(cfg, configPath, logger)
			if err := watcher.Start(); err != nil {
				logger.WithError(err).Warn("config watcher disabled")
			} else {
				defer watcher.Stop()
			}
		}

		// 4. 启动机器人
		botErr := make(chan error, 1)
		go func() {
			botErr <- ctr.Bot().Run(ctx)
		}()

		// 5. 启动 API 服务器
		router := api.SetupRoutes(cfg, ctr.DB(), ctr.TaskService(),
			ctr.UserService(), ctr.ProjectRepository(), logger)
		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		srv := &http.Server{
			Addr:    addr,
			Handler: router,
		}
		go func() {
			logger.WithField("addr", addr).Info("API server starting")
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.WithError(err).Fatal("failed to start API server")
			}
		}()

		// 等待中断信号或机器人退出
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		select {
		case <-quit:
		case err := <-botErr:
			if err != nil {
				logger.WithError(err).Error("bot stopped")
			}
		}

		logger.Info("shutting down")
		cancel()
		ctr.Scheduler().Stop()

		// 优雅关闭 API 服务器
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.WithError(err).Error("server forced to shutdown")
		}

		logger.Info("exited")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("config", "", "Config file path (default: search in current directory, ./config, or $HOME/.telegram-task)")
}
