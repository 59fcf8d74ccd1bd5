package controllers

import (
	"github.com/gin-gonic/gin"

	"github.com/sitesafe/safemap/compliance"
	"github.com/sitesafe/safemap/config"
	"github.com/sitesafe/safemap/utils"
)

// ConfigController serves the environment-driven settings the web client needs.
type ConfigController struct {
	engine *compliance.Engine
}

func NewConfigController(engine *compliance.Engine) *ConfigController {
	return &ConfigController{engine: engine}
}

// GetClientConfig returns the timezone, today's date and map settings.
func (c *ConfigController) GetClientConfig(ctx *gin.Context) {
	cfg := config.Get()
	utils.Success(ctx, gin.H{
		"timezone": c.engine.Location().String(),
		"today":    c.engine.Today(),
		"map": gin.H{
			"clientId": cfg.NaverMapClientID,
			"center":   mapPoint{Lat: DefaultCenterLat, Lng: DefaultCenterLng},
		},
	})
}
