package controllers

import (
	"errors"
	"net/http"
	"unicode/utf8"

	"github.com/gin-gonic/gin"

	"github.com/sitesafe/safemap/compliance"
	"github.com/sitesafe/safemap/middleware"
	"github.com/sitesafe/safemap/models"
	"github.com/sitesafe/safemap/repository"
	"github.com/sitesafe/safemap/utils"
)

// SiteController manages the sites of a contract and their checklists.
type SiteController struct {
	contracts *repository.ContractRepository
	sites     *repository.SiteRepository
}

func NewSiteController(contracts *repository.ContractRepository, sites *repository.SiteRepository) *SiteController {
	return &SiteController{contracts: contracts, sites: sites}
}

type siteRequest struct {
	ContractID uint     `json:"contractId"`
	Name       string   `json:"name" binding:"required"`
	Address    string   `json:"address"`
	Latitude   float64  `json:"latitude"`
	Longitude  float64  `json:"longitude"`
	StartDate  string   `json:"startDate"`
	EndDate    string   `json:"endDate"`
	Checklist  []string `json:"checklist"`
}

// apply validates req and copies it onto site. Missing dates fall back to the contract's.
func (r siteRequest) apply(site *models.Site, contract models.Contract) error {
	name := utils.CleanText(r.Name)
	if name == "" || utf8.RuneCountInString(name) > 200 {
		return errors.New("name must be 1-200 characters")
	}
	if r.Latitude < -90 || r.Latitude > 90 || r.Longitude < -180 || r.Longitude > 180 {
		return errors.New("coordinates out of range")
	}
	start, end := contract.StartDate, contract.EndDate
	if r.StartDate != "" || r.EndDate != "" {
		var err error
		if start, end, err = dateRange(r.StartDate, r.EndDate); err != nil {
			return err
		}
	}
	site.Name = name
	site.Address = utils.CleanText(r.Address)
	site.Latitude, site.Longitude = r.Latitude, r.Longitude
	site.StartDate, site.EndDate = start, end
	return nil
}

// List returns the sites of one contract. Admins may omit contractId to list every active site;
// guests default to their own contract.
func (c *SiteController) List(ctx *gin.Context) {
	raw := ctx.Query("contractId")
	if raw == "" {
		if guestID, ok := middleware.GuestContractID(ctx); ok {
			c.listContract(ctx, guestID)
			return
		}
		sites, err := c.sites.ListActive(ctx.Request.Context())
		if err != nil {
			storageFailure(ctx, 50030, "failed to list sites", err)
			return
		}
		utils.Success(ctx, sites)
		return
	}
	id, ok := parseID(raw)
	if !ok {
		utils.Error(ctx, http.StatusBadRequest, 40030, "invalid contractId")
		return
	}
	c.listContract(ctx, id)
}

func (c *SiteController) listContract(ctx *gin.Context, contractID uint) {
	if !requireContractAccess(ctx, contractID) {
		return
	}
	sites, err := c.sites.ListByContract(ctx.Request.Context(), contractID)
	if err != nil {
		storageFailure(ctx, 50030, "failed to list sites", err)
		return
	}
	utils.Success(ctx, sites)
}

func (c *SiteController) Get(ctx *gin.Context) {
	site, ok := c.load(ctx)
	if !ok || !requireContractAccess(ctx, site.ContractID) {
		return
	}
	utils.Success(ctx, site)
}

func (c *SiteController) Create(ctx *gin.Context) {
	var req siteRequest
	if err := ctx.ShouldBindJSON(&req); err != nil || req.ContractID == 0 {
		utils.Error(ctx, http.StatusBadRequest, 40031, "invalid request payload")
		return
	}
	contract, err := c.contracts.Get(ctx.Request.Context(), req.ContractID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40410, "contract not found")
			return
		}
		storageFailure(ctx, 50031, "failed to load contract", err)
		return
	}

	site := models.Site{ContractID: contract.ID}
	if err := req.apply(&site, contract); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40032, err.Error())
		return
	}
	if site.Checklist, err = utils.NormalizeChecklist(req.Checklist); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40033, err.Error())
		return
	}
	if err := c.sites.Create(ctx.Request.Context(), &site); err != nil {
		storageFailure(ctx, 50032, "failed to create site", err)
		return
	}
	utils.InvalidateByPrefix(ctx.Request.Context(), utils.CacheCompliancePrefix)
	utils.Created(ctx, site)
}

// Update edits name, address, coordinates and dates. The checklist has its own endpoint.
func (c *SiteController) Update(ctx *gin.Context) {
	site, ok := c.load(ctx)
	if !ok {
		return
	}
	var req siteRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40031, "invalid request payload")
		return
	}
	fallback := models.Contract{StartDate: site.StartDate, EndDate: site.EndDate}
	if err := req.apply(&site, fallback); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40032, err.Error())
		return
	}
	if err := c.sites.Update(ctx.Request.Context(), &site); err != nil {
		storageFailure(ctx, 50033, "failed to update site", err)
		return
	}
	utils.InvalidateByPrefix(ctx.Request.Context(), utils.CacheCompliancePrefix)
	utils.Success(ctx, site)
}

type checklistRequest struct {
	Checklist []string `json:"checklist"`
}

// UpdateChecklist replaces the item list after normalising it.
func (c *SiteController) UpdateChecklist(ctx *gin.Context) {
	site, ok := c.load(ctx)
	if !ok {
		return
	}
	var req checklistRequest
	if err := ctx.ShouldBindJSON(&req); err != nil || req.Checklist == nil {
		utils.Error(ctx, http.StatusBadRequest, 40034, "checklist must be an array of item names")
		return
	}
	items, err := utils.NormalizeChecklist(req.Checklist)
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40033, err.Error())
		return
	}
	if err := c.sites.UpdateChecklist(ctx.Request.Context(), site.ID, items); err != nil {
		storageFailure(ctx, 50034, "failed to update checklist", err)
		return
	}
	site.Checklist = items
	utils.InvalidateByPrefix(ctx.Request.Context(), utils.CacheCompliancePrefix)
	utils.Success(ctx, site)
}

// Delete soft-deletes the site; its check events stay as history.
func (c *SiteController) Delete(ctx *gin.Context) {
	id, ok := idParam(ctx, "id")
	if !ok {
		return
	}
	if err := c.sites.Delete(ctx.Request.Context(), id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40420, "site not found")
			return
		}
		storageFailure(ctx, 50035, "failed to delete site", err)
		return
	}
	utils.InvalidateByPrefix(ctx.Request.Context(), utils.CacheCompliancePrefix)
	utils.Success(ctx, gin.H{"deleted": true})
}

func (c *SiteController) load(ctx *gin.Context) (models.Site, bool) {
	id, ok := idParam(ctx, "id")
	if !ok {
		return models.Site{}, false
	}
	site, err := c.sites.Get(ctx.Request.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40420, "site not found")
		} else {
			storageFailure(ctx, 50036, "failed to load site", err)
		}
		return models.Site{}, false
	}
	return site, true
}

// complianceSites projects sites for the engine.
func complianceSites(sites []models.Site) []compliance.Site {
	out := make([]compliance.Site, len(sites))
	for i, s := range sites {
		out[i] = s.ComplianceSite()
	}
	return out
}
