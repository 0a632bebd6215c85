package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"sheetmerge/internal/api"
	"sheetmerge/internal/config"
	"sheetmerge/internal/rules"
	"sheetmerge/internal/server"
	"sheetmerge/internal/service/merge"
	"sheetmerge/internal/service/session"
	"sheetmerge/internal/store"
	"sheetmerge/internal/util"
)

func newServeCmd(a *app) *cobra.Command {
	var (
		port    int
		devMode bool
		open    bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "启动 HTTP 服务",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			// 命令行端口仅在配置文件和环境变量都未指定时生效
			if port > 0 && !a.info.PortSpecified {
				a.cfg.Server.Port = port
			}
			if devMode {
				a.cfg.Server.DevMode = true
			}
			return a.serve(open)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "服务端口 (config.toml 优先；仅当未显式配置 port 时生效)")
	cmd.Flags().BoolVar(&devMode, "dev", false, "开发模式")
	cmd.Flags().BoolVar(&open, "open", false, "启动后打开浏览器")
	return cmd
}

func (a *app) serve(openBrowser bool) error {
	cfg := a.cfg

	fmt.Println("==========================================")
	fmt.Println("  SheetMerge - 报表模板学习与汇总合并")
	fmt.Println("==========================================")

	opts, err := engineOptions(cfg)
	if err != nil {
		return err
	}
	engine := merge.NewEngine(opts, a.logger)

	if cfg.Rules.Watch && cfg.Rules.Path != "" {
		watcher, err := rules.NewWatcher(opts.Rules, cfg.Rules.Path, a.logger)
		if err != nil {
			return fmt.Errorf("监听模板规则失败: %w", err)
		}
		watchCtx, stopWatch := context.WithCancel(context.Background())
		go watcher.Run(watchCtx)
		defer func() {
			stopWatch()
			<-watcher.Done()
		}()
		fmt.Printf("模板规则: %s (自动重新加载)\n", cfg.Rules.Path)
	}

	var runs api.RunLister
	if cfg.Journal.Enabled {
		dataDir, err := config.EnsureDataDir(cfg)
		if err != nil {
			return fmt.Errorf("创建数据目录失败: %w", err)
		}
		fmt.Printf("数据目录: %s\n", dataDir)

		journal, err := store.New(cfg.JournalPath(dataDir))
		if err != nil {
			return fmt.Errorf("初始化合并日志失败: %w", err)
		}
		defer journal.Close()
		engine.SetJournal(journal)
		runs = journal
	}

	sessions := session.NewStore(time.Duration(cfg.Merge.SessionTTLMinutes) * time.Minute)
	handler := api.NewHandler(engine, sessions, runs, cfg.MaxUploadBytes(), a.logger)
	srv := server.NewServer(handler, cfg.Server.DevMode, a.logger)

	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: srv.Handler(),
	}
	url := fmt.Sprintf("http://localhost:%d", cfg.Server.Port)

	errCh := make(chan error, 1)
	go func() {
		fmt.Printf("服务启动中，监听端口 %d ...\n", cfg.Server.Port)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	if openBrowser {
		fmt.Printf("正在打开浏览器: %s\n", url)
		if err := util.OpenBrowser(url); err != nil {
			fmt.Printf("无法自动打开浏览器，请手动访问: %s\n", url)
		}
	} else {
		fmt.Printf("请访问 %s\n", url)
	}
	fmt.Println("\n按 Ctrl+C 停止服务...")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("服务启动失败: %w", err)
		}
		return nil
	case <-quit:
	}

	fmt.Println("\n正在关闭服务...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		a.logger.Warn("graceful shutdown failed", zap.Error(err))
	}
	return nil
}
