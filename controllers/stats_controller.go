package controllers

import (
	"github.com/gin-gonic/gin"

	"github.com/sitesafe/safemap/compliance"
	"github.com/sitesafe/safemap/reports"
	"github.com/sitesafe/safemap/repository"
	"github.com/sitesafe/safemap/utils"
)

// StatsController provides admin dashboard figures.
type StatsController struct {
	contracts *repository.ContractRepository
	sites     *repository.SiteRepository
	events    *repository.CheckEventStore
	engine    *compliance.Engine
	reporter  *reports.ComplianceReporter
}

// NewStatsController creates a new StatsController instance.
func NewStatsController(contracts *repository.ContractRepository, sites *repository.SiteRepository,
	events *repository.CheckEventStore, engine *compliance.Engine, reporter *reports.ComplianceReporter) *StatsController {
	return &StatsController{contracts: contracts, sites: sites, events: events, engine: engine, reporter: reporter}
}

// GetStats returns registry counts and check activity.
func (s *StatsController) GetStats(ctx *gin.Context) {
	c := ctx.Request.Context()
	// Zero on error instead of failing the whole endpoint
	contractCount, err := s.contracts.Count(c)
	if err != nil {
		utils.Sugar.Warnw("count contracts failed", "error", err)
	}
	siteCount, err := s.sites.Count(c)
	if err != nil {
		utils.Sugar.Warnw("count sites failed", "error", err)
	}
	liveChecks, err := s.events.CountLive(c, nil)
	if err != nil {
		utils.Sugar.Warnw("count check events failed", "error", err)
	}
	today := s.engine.Today()
	todayChecks, err := s.events.CountLive(c, &today)
	if err != nil {
		utils.Sugar.Warnw("count today's check events failed", "error", err)
	}

	utils.Success(ctx, gin.H{
		"contracts":   contractCount,
		"sites":       siteCount,
		"liveChecks":  liveChecks,
		"todayChecks": todayChecks,
		"today":       today,
	})
}

// GetCompliance returns the per-site compliance report, served from cache when warm.
func (s *StatsController) GetCompliance(ctx *gin.Context) {
	raw, err := s.reporter.Cached(ctx.Request.Context())
	if err != nil {
		storageFailure(ctx, 50050, "failed to build compliance report", err)
		return
	}
	utils.Success(ctx, raw)
}
