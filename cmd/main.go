package main

import (
	"fmt"
	"os"

	"llamachat-backend/internal/config"
	"llamachat-backend/internal/gateway"
	"llamachat-backend/internal/service"
	"llamachat-backend/internal/session"
	"llamachat-backend/internal/storage"
	"llamachat-backend/pkg/logger"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var configPath string

func main() {
	rootCmd := &cobra.Command{
		Use:   "llamachat",
		Short: "Multi-chat client for Groq hosted Llama models",
		// 不带子命令时启动 HTTP 服务
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe()
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "./configs/config.yaml", "配置文件路径")

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newReplCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type app struct {
	cfg         *config.Config
	chats       storage.Storage
	chatService *service.ChatService
}

// bootstrap 加载配置、初始化日志并组装服务
func bootstrap(quietLog bool) (*app, error) {
	// .env 可选
	_ = godotenv.Load()

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if err := logger.Init(cfg.Log.Level, cfg.Log.Format, logger.FileOptions{
		Path:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxAgeDays: cfg.Log.MaxAgeDays,
		Quiet:      quietLog,
	}); err != nil {
		return nil, fmt.Errorf("failed to init logger: %w", err)
	}

	chats := storage.NewMemoryStorage()
	if err := chats.Init(); err != nil {
		return nil, fmt.Errorf("failed to init storage: %w", err)
	}

	if cfg.LLM.APIKey == "" {
		logger.Warnf("未配置 %s 的 API key，发送消息时会返回错误", cfg.LLM.Provider)
	}

	store := session.NewStore(chats)
	gw := gateway.NewEinoGateway(cfg.LLM)

	return &app{
		cfg:         cfg,
		chats:       chats,
		chatService: service.NewChatService(store, gw, cfg.LLM),
	}, nil
}

func (a *app) close() {
	if err := a.chats.Close(); err != nil {
		logger.Errorf("存储关闭失败: %v", err)
	}
}
