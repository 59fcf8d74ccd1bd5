package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/sitesafe/safemap/compliance"
	"github.com/sitesafe/safemap/config"
	"github.com/sitesafe/safemap/controllers"
	"github.com/sitesafe/safemap/middleware"
	"github.com/sitesafe/safemap/reports"
	"github.com/sitesafe/safemap/repository"
	"github.com/sitesafe/safemap/utils"
)

// NewEngine builds the compliance engine over db using the configured zone and logger.
// opts are applied last so tests can pin the clock.
func NewEngine(db *gorm.DB, opts ...compliance.Option) *compliance.Engine {
	base := []compliance.Option{
		compliance.WithLocation(config.Get().Location()),
		compliance.WithLogger(utils.Logger),
	}
	return compliance.NewEngine(repository.NewCheckEventStore(db), append(base, opts...)...)
}

// NewReporter builds the compliance reporter shared by the admin endpoint and the nightly sweep.
func NewReporter(db *gorm.DB, engine *compliance.Engine) *reports.ComplianceReporter {
	return reports.NewComplianceReporter(repository.NewSiteRepository(db), engine)
}

// SetupRouter wires routes, middlewares, and controllers.
func SetupRouter(db *gorm.DB, opts ...compliance.Option) *gin.Engine {
	engine := NewEngine(db, opts...)
	return SetupRouterWith(db, engine, NewReporter(db, engine))
}

// SetupRouterWith is SetupRouter with a caller-owned engine and reporter, so the scheduler
// and the HTTP handlers share them.
func SetupRouterWith(db *gorm.DB, engine *compliance.Engine, reporter *reports.ComplianceReporter) *gin.Engine {
	// Load config and set Gin mode from configuration
	cfg := config.Get()
	switch strings.ToLower(cfg.GinMode) {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(utils.RequestID())
	// Access log and panics go to their own rolling file
	gl, err := utils.NewRollingFileLogger(cfg.GinPath, cfg.LogLevel, cfg.LogMaxSizeMB, cfg.LogMaxBackups, cfg.LogMaxAgeDays, cfg.LogCompress)
	if err == nil {
		r.Use(utils.Ginzap(gl, time.RFC3339, true))
		r.Use(utils.RecoveryWithZap(gl, false))
	} else {
		utils.Sugar.Warnw("gin logger unavailable, using default recovery", "error", err)
		r.Use(gin.Recovery())
	}

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", utils.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", utils.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*" {
		// credentials need a concrete origin, so echo the caller's back
		corsCfg.AllowOriginFunc = func(string) bool { return true }
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}
	r.Use(cors.New(corsCfg))
	r.Use(middleware.Identify())

	r.GET("/health", func(ctx *gin.Context) {
		utils.Success(ctx, gin.H{"status": "ok"})
	})

	contracts := repository.NewContractRepository(db)
	sites := repository.NewSiteRepository(db)
	events := repository.NewCheckEventStore(db)
	settings := repository.NewSystemConfigRepository(db)
	naver := utils.NewNaverMapsClient(cfg.NaverMapsBaseURL, cfg.NaverAPIKeyID, cfg.NaverAPIKey, nil)

	authController := controllers.NewAuthController(settings)
	contractController := controllers.NewContractController(contracts)
	siteController := controllers.NewSiteController(contracts, sites)
	checklistController := controllers.NewChecklistController(engine, sites, events)
	mapController := controllers.NewMapController(contracts, sites, engine)
	geocodeController := controllers.NewGeocodeController(naver)
	statsController := controllers.NewStatsController(contracts, sites, events, engine, reporter)
	configController := controllers.NewConfigController(engine)

	limit := middleware.RateLimit(cfg.RateLimitPerMinute)
	admin := middleware.AdminRequired()
	viewer := middleware.ViewerRequired()

	api := r.Group("/api/v1")
	api.GET("/config/client", configController.GetClientConfig)
	api.GET("/session", authController.Session)

	// Guest entry through the QR code
	api.GET("/qr-session/register/:contractId", limit, contractController.RegisterGuest)
	api.GET("/guest/verify-contract", contractController.VerifyContract)

	adminGroup := api.Group("/admin")
	adminGroup.POST("/login", limit, authController.Login)
	adminGroup.POST("/logout", admin, authController.Logout)
	adminGroup.POST("/change-password", admin, limit, authController.ChangePassword)
	adminGroup.GET("/stats", admin, statsController.GetStats)
	adminGroup.GET("/compliance", admin, statsController.GetCompliance)

	contractGroup := api.Group("/contracts")
	contractGroup.GET("", admin, contractController.List)
	contractGroup.POST("", admin, limit, contractController.Create)
	contractGroup.GET("/:id", viewer, contractController.Get)
	contractGroup.PUT("/:id", admin, limit, contractController.Update)
	contractGroup.DELETE("/:id", admin, limit, contractController.Delete)
	contractGroup.GET("/:id/map", viewer, mapController.ContractMap)

	siteGroup := api.Group("/sites")
	siteGroup.Use(viewer)
	siteGroup.GET("", siteController.List)
	siteGroup.GET("/:id", siteController.Get)
	siteGroup.POST("", admin, limit, siteController.Create)
	siteGroup.PUT("/:id", admin, limit, siteController.Update)
	siteGroup.PUT("/:id/checklist", admin, limit, siteController.UpdateChecklist)
	siteGroup.DELETE("/:id", admin, limit, siteController.Delete)

	checklistGroup := api.Group("/checklist")
	checklistGroup.Use(viewer)
	checklistGroup.POST("", limit, checklistController.Toggle)
	checklistGroup.GET("", checklistController.Batch)
	checklistGroup.GET("/range", checklistController.Range)
	checklistGroup.GET("/history", admin, checklistController.History)

	api.GET("/safe-map", admin, mapController.SafeMap)

	naverGroup := api.Group("/naver")
	naverGroup.Use(admin, limit)
	naverGroup.GET("/geocode", geocodeController.Geocode)
	naverGroup.GET("/reverse-geocode", geocodeController.ReverseGeocode)

	r.NoRoute(func(ctx *gin.Context) {
		if strings.HasPrefix(ctx.Request.URL.Path, "/api/") {
			utils.Error(ctx, http.StatusNotFound, 40400, "api route not found")
			return
		}
		utils.Error(ctx, http.StatusNotFound, 40400, "not found")
	})

	return r
}
