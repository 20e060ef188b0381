/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>

*/
package cmd

import (
	"fmt"
	"os"

	"github.com/mautops/maintcontrol/internal/api"
	"github.com/mautops/maintcontrol/internal/config"
	"github.com/mautops/maintcontrol/internal/container"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "maintcontrol",
	Short: "Machine maintenance control server",
	Long: `MaintControl keeps a registry of industrial machines and their
maintenance lifecycle: corrective and preventive episodes with step logs,
scheduled maintenance with due/overdue alerts, and an append-only history
ledger per machine. It serves a REST API and can export, import and back up
the whole dataset from the command line.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Config file path (default: search in current directory, ./config, or $HOME/.maintcontrol)")
}

// GetRootCmd 返回根命令(用于测试)
func GetRootCmd() *cobra.Command {
	return rootCmd
}

// LoadConfig 加载配置
func LoadConfig(configPath string) (*config.Config, error) {
	return config.Load(configPath)
}

// loadConfig 读取 --config 并加载配置
func loadConfig(cmd *cobra.Command) (*config.Config, string, error) {
	configPath, _ := cmd.Flags().GetString("config")
	cfg, err := LoadConfig(configPath)
	if err != nil {
		return nil, "", fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, configPath, nil
}

// newLogger 根据配置创建日志记录器,并设为 API 层默认日志记录器
func newLogger(cfg *config.Config) (*logrus.Logger, error) {
	logger, err := api.NewLoggerFromConfig(&cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	api.SetLogger(logger)
	return logger, nil
}

// openContainer 加载配置并初始化容器,供一次性命令使用
func openContainer(cmd *cobra.Command) (*container.Container, error) {
	cfg, _, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return nil, err
	}
	ctr, err := container.NewContainer(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize container: %w", err)
	}
	return ctr, nil
}
