package handler

import (
	"github.com/habitloop/internal/scoring"
	"github.com/habitloop/internal/service"
	"gorm.io/gorm"
)

// API bundles shared dependencies for HTTP handlers.
type API struct {
	db       *gorm.DB
	tasks    *service.TaskService
	scores   *service.ScoreService
	ledger   *service.LedgerService
	profiles *service.ProfileService
	circles  *service.CircleService
}

// NewAPI constructs a handler set with shared services.
func NewAPI(db *gorm.DB, policy scoring.Policy) *API {
	return &API{
		db:       db,
		tasks:    service.NewTaskService(db),
		scores:   service.NewScoreService(db, policy),
		ledger:   service.NewLedgerService(db),
		profiles: service.NewProfileService(db),
		circles:  service.NewCircleService(db),
	}
}

// Scores exposes the score service for background sweeps.
func (a *API) Scores() *service.ScoreService {
	return a.scores
}

// DB exposes the underlying gorm instance.
func (a *API) DB() *gorm.DB {
	return a.db
}
