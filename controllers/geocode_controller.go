package controllers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/sitesafe/safemap/utils"
)

// GeocodeController proxies NCP Maps geocoding so the API keys stay on the server.
type GeocodeController struct {
	client *utils.NaverMapsClient
}

func NewGeocodeController(client *utils.NaverMapsClient) *GeocodeController {
	return &GeocodeController{client: client}
}

func (g *GeocodeController) Geocode(ctx *gin.Context) {
	query := strings.TrimSpace(ctx.Query("query"))
	if query == "" {
		utils.Error(ctx, http.StatusBadRequest, 40070, "query is required")
		return
	}
	resp, err := g.client.Geocode(ctx.Request.Context(), query)
	g.relay(ctx, resp, err)
}

func (g *GeocodeController) ReverseGeocode(ctx *gin.Context) {
	lat, lng := strings.TrimSpace(ctx.Query("lat")), strings.TrimSpace(ctx.Query("lng"))
	if _, err := strconv.ParseFloat(lat, 64); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40071, "lat and lng must be numbers")
		return
	}
	if _, err := strconv.ParseFloat(lng, 64); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40071, "lat and lng must be numbers")
		return
	}
	resp, err := g.client.ReverseGeocode(ctx.Request.Context(), lat, lng)
	g.relay(ctx, resp, err)
}

func (g *GeocodeController) relay(ctx *gin.Context, resp utils.NaverResponse, err error) {
	switch {
	case errors.Is(err, utils.ErrNaverKeysMissing):
		utils.Error(ctx, http.StatusInternalServerError, 50070, err.Error())
	case err != nil:
		utils.Sugar.Warnw("naver maps request failed", "error", err)
		utils.Error(ctx, http.StatusBadGateway, 50270, "map service unavailable")
	default:
		ct := resp.ContentType
		if ct == "" {
			ct = "application/json; charset=utf-8"
		}
		ctx.Data(resp.Status, ct, resp.Body)
	}
}
