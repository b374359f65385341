package config

import (
	"fmt"
	"os"
	"strings"
)

// AppConfig 汇总运行服务所需的基础配置。
type AppConfig struct {
	ListenAddr         string
	Port               string
	DatabasePath       string
	SessionSecret      string
	GinMode            string
	ScoringPolicy      string
	SettleSweepEnabled bool
	SettleSweepTime    string
	BootstrapUserName  string
	BootstrapPassword  string
}

// Load 从环境变量读取应用配置，并为缺失项提供安全的默认值。
func Load() AppConfig {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8080"
	}

	listenAddr := strings.TrimSpace(os.Getenv("LISTEN_ADDR"))
	if listenAddr == "" {
		listenAddr = fmt.Sprintf(":%s", port)
	}

	databasePath := strings.TrimSpace(os.Getenv("DATABASE_PATH"))
	if databasePath == "" {
		databasePath = "habitloop.db"
	}

	sessionSecret := strings.TrimSpace(os.Getenv("SESSION_SECRET"))
	if sessionSecret == "" {
		sessionSecret = "habitloop-dev-secret"
	}

	ginMode := strings.TrimSpace(os.Getenv("GIN_MODE"))
	if ginMode == "" {
		ginMode = "release"
	}

	scoringPolicy := strings.TrimSpace(os.Getenv("SCORING_POLICY"))
	if scoringPolicy == "" {
		scoringPolicy = "reputation"
	}

	settleSweepTime := strings.TrimSpace(os.Getenv("SETTLE_SWEEP_TIME"))
	if settleSweepTime == "" {
		settleSweepTime = "03:30"
	}

	settleSweepEnabled := strings.EqualFold(strings.TrimSpace(os.Getenv("SETTLE_SWEEP_ENABLED")), "true")

	bootstrapUserName := strings.TrimSpace(os.Getenv("BOOTSTRAP_USER_NAME"))
	bootstrapPassword := strings.TrimSpace(os.Getenv("BOOTSTRAP_PASSWORD"))

	return AppConfig{
		ListenAddr:         listenAddr,
		Port:               port,
		DatabasePath:       databasePath,
		SessionSecret:      sessionSecret,
		GinMode:            ginMode,
		ScoringPolicy:      scoringPolicy,
		SettleSweepEnabled: settleSweepEnabled,
		SettleSweepTime:    settleSweepTime,
		BootstrapUserName:  bootstrapUserName,
		BootstrapPassword:  bootstrapPassword,
	}
}
