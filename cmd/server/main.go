package main

import (
	"log"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/habitloop/internal/config"
	"github.com/habitloop/internal/db"
	"github.com/habitloop/internal/handler"
	"github.com/habitloop/internal/router"
	"github.com/habitloop/internal/scoring"
	"github.com/habitloop/internal/service"
)

func main() {
	cfg := config.Load()
	gin.SetMode(cfg.GinMode)

	// 初始化数据库
	if err := db.Init(cfg.DatabasePath); err != nil {
		log.Fatalf("failed to initialize database: %v", err)
	}

	if err := db.EnsureUser(cfg.BootstrapUserName, cfg.BootstrapPassword); err != nil {
		log.Fatalf("failed to ensure bootstrap user: %v", err)
	}

	policy, err := scoring.NewPolicy(cfg.ScoringPolicy)
	if err != nil {
		log.Fatalf("invalid scoring policy: %v", err)
	}
	log.Printf("scoring policy: %s", policy.Name())

	api := handler.NewAPI(db.DB, policy)

	// 可选的服务端结算扫清；客户端触发的结算始终可用
	if cfg.SettleSweepEnabled {
		scheduler := service.NewSchedulerService(time.UTC)
		if _, err := scheduler.ScheduleDailySettlement(cfg.SettleSweepTime, db.DB, api.Scores()); err != nil {
			log.Fatalf("failed to schedule settlement sweep: %v", err)
		}
		scheduler.Start()
		defer scheduler.Stop()
	}

	// 设置并运行 Gin 服务器
	r := router.SetupRouter(api, cfg.SessionSecret)
	if err := r.Run(cfg.ListenAddr); err != nil {
		log.Fatalf("failed to run server: %v", err)
	}
}
