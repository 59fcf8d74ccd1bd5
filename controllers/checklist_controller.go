package controllers

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sitesafe/safemap/compliance"
	"github.com/sitesafe/safemap/models"
	"github.com/sitesafe/safemap/repository"
	"github.com/sitesafe/safemap/utils"
)

const (
	maxBatchSites     = 100
	checklistCacheTTL = 10 * time.Minute
)

// ChecklistController exposes toggle, range and batch queries over the compliance engine.
type ChecklistController struct {
	engine *compliance.Engine
	sites  *repository.SiteRepository
	events *repository.CheckEventStore
}

func NewChecklistController(engine *compliance.Engine, sites *repository.SiteRepository, events *repository.CheckEventStore) *ChecklistController {
	return &ChecklistController{engine: engine, sites: sites, events: events}
}

type toggleRequest struct {
	SiteID     uint   `json:"siteId" binding:"required"`
	ContractID uint   `json:"contractId" binding:"required"`
	Name       string `json:"name" binding:"required"`
	Date       string `json:"date" binding:"required"`
}

// Toggle flips one item of one site on one day and returns {checked}.
func (c *ChecklistController) Toggle(ctx *gin.Context) {
	var req toggleRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40020, "invalid request payload")
		return
	}
	day, err := compliance.ParseDay(req.Date)
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40021, "date must be YYYYMMDD")
		return
	}
	name, err := utils.NormalizeItemName(req.Name)
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40022, "invalid item name")
		return
	}

	site, ok := c.loadSite(ctx, req.SiteID)
	if !ok {
		return
	}
	if site.ContractID != req.ContractID {
		utils.Error(ctx, http.StatusBadRequest, 40023, "site does not belong to contract")
		return
	}
	if !requireContractAccess(ctx, site.ContractID) {
		return
	}

	res, err := c.engine.Toggle(ctx.Request.Context(), site.ID, site.ContractID, name, day)
	if err != nil {
		storageFailure(ctx, 50020, "failed to toggle checklist item", err)
		return
	}
	utils.InvalidateByPrefix(ctx.Request.Context(), utils.CacheChecklistPrefix)
	utils.InvalidateByPrefix(ctx.Request.Context(), utils.CacheCompliancePrefix)
	utils.Created(ctx, res)
}

// Range returns item -> checked days for one site within [start, end]. end defaults to today.
func (c *ChecklistController) Range(ctx *gin.Context) {
	siteID, ok := parseID(ctx.Query("siteId"))
	if !ok {
		utils.Error(ctx, http.StatusBadRequest, 40024, "invalid siteId")
		return
	}
	from, err := compliance.ParseDay(ctx.Query("start"))
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40021, "start must be YYYYMMDD")
		return
	}
	to := c.engine.Today()
	if raw := ctx.Query("end"); raw != "" {
		if to, err = compliance.ParseDay(raw); err != nil {
			utils.Error(ctx, http.StatusBadRequest, 40021, "end must be YYYYMMDD")
			return
		}
	}
	if to < from {
		utils.Error(ctx, http.StatusBadRequest, 40025, "end is before start")
		return
	}

	site, ok := c.loadSite(ctx, siteID)
	if !ok || !requireContractAccess(ctx, site.ContractID) {
		return
	}
	dates, err := c.engine.CheckedDatesInRange(ctx.Request.Context(), site.ID, from, to)
	if err != nil {
		storageFailure(ctx, 50021, "failed to load checklist", err)
		return
	}
	utils.Success(ctx, dates)
}

// Batch returns siteId -> item -> checked days for several sites with one store query.
func (c *ChecklistController) Batch(ctx *gin.Context) {
	ids, err := utils.ParseUintList(ctx.Query("siteIds"))
	if err != nil || len(ids) == 0 {
		utils.Error(ctx, http.StatusBadRequest, 40026, "siteIds must be a comma separated list of ids")
		return
	}
	if len(ids) > maxBatchSites {
		utils.Error(ctx, http.StatusBadRequest, 40027, "too many siteIds")
		return
	}

	sites, err := c.sites.GetMany(ctx.Request.Context(), ids)
	if err != nil {
		storageFailure(ctx, 50022, "failed to load sites", err)
		return
	}
	if len(sites) != len(ids) {
		utils.Error(ctx, http.StatusNotFound, 40420, "site not found")
		return
	}
	for _, s := range sites {
		if !requireContractAccess(ctx, s.ContractID) {
			return
		}
	}

	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatUint(uint64(id), 10)
	}
	key := utils.VersionedKey(ctx.Request.Context(), utils.CacheChecklistPrefix, strings.Join(parts, ","))

	raw, err := utils.CacheFetchJSON(ctx.Request.Context(), key, checklistCacheTTL, func(rctx context.Context) (interface{}, error) {
		lists, err := c.engine.ChecklistsForSites(rctx, ids)
		if err != nil {
			return nil, err
		}
		out := make(map[uint]map[string][]string, len(lists))
		for id, list := range lists {
			out[id] = list.Dates()
		}
		return out, nil
	})
	if err != nil {
		storageFailure(ctx, 50023, "failed to load checklists", err)
		return
	}
	utils.Success(ctx, raw)
}

// History lists every check event of a site, unchecked ones included, oldest first.
func (c *ChecklistController) History(ctx *gin.Context) {
	siteID, ok := parseID(ctx.Query("siteId"))
	if !ok {
		utils.Error(ctx, http.StatusBadRequest, 40024, "invalid siteId")
		return
	}
	if _, ok := c.loadSite(ctx, siteID); !ok {
		return
	}
	events, err := c.events.History(ctx.Request.Context(), siteID)
	if err != nil {
		storageFailure(ctx, 50025, "failed to load check history", err)
		return
	}
	utils.Success(ctx, events)
}

func (c *ChecklistController) loadSite(ctx *gin.Context, id uint) (models.Site, bool) {
	site, err := c.sites.Get(ctx.Request.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40420, "site not found")
		} else {
			storageFailure(ctx, 50024, "failed to load site", err)
		}
		return models.Site{}, false
	}
	return site, true
}
