package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"sheetmerge/internal/config"
	"sheetmerge/internal/logging"
)

// app 命令之间共享的运行时对象
type app struct {
	configPath string
	logLevel   string

	cfg    *config.AppConfig
	info   config.LoadConfigInfo
	logger *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "sheetmerge",
		Short: "Excel 模板学习与汇总合并工具",
		Long: `sheetmerge 从模板表格学习表头结构，再把各支行/网点上报的表格
按模板列合并成一张汇总表，并列出格式、必填、缺列等问题。`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}

	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "配置文件路径 (默认: 可执行文件同目录下的 config.toml)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "日志级别 debug/info/warn/error (覆盖配置文件)")

	root.AddCommand(newServeCmd(a))
	root.AddCommand(newAnalyzeCmd(a))
	root.AddCommand(newMergeCmd(a))
	return root
}

func (a *app) init() error {
	cfg, info, err := config.LoadConfigWithInfo(a.configPath)
	if err != nil {
		return fmt.Errorf("加载配置失败: %w", err)
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}

	a.cfg, a.info, a.logger = cfg, info, logger
	return nil
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
