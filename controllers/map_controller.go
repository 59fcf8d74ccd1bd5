package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sitesafe/safemap/compliance"
	"github.com/sitesafe/safemap/models"
	"github.com/sitesafe/safemap/repository"
	"github.com/sitesafe/safemap/utils"
)

// MapController renders the data behind the contract map and the admin safe-map.
type MapController struct {
	contracts *repository.ContractRepository
	sites     *repository.SiteRepository
	engine    *compliance.Engine
}

func NewMapController(contracts *repository.ContractRepository, sites *repository.SiteRepository, engine *compliance.Engine) *MapController {
	return &MapController{contracts: contracts, sites: sites, engine: engine}
}

type mapPoint struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type mapSpot struct {
	ID          uint    `json:"id"`
	ContractID  uint    `json:"contractId"`
	Name        string  `json:"name"`
	Address     string  `json:"address,omitempty"`
	Lat         float64 `json:"lat"`
	Lng         float64 `json:"lng"`
	IsSafe      bool    `json:"isSafe"`
	LabelNumber int     `json:"labelNumber"`
}

// centerOf averages the coordinates of located sites; ok is false when none has a location.
func centerOf(sites []models.Site) (mapPoint, bool) {
	var sum mapPoint
	n := 0
	for _, s := range sites {
		if !s.HasLocation() {
			continue
		}
		sum.Lat += s.Latitude
		sum.Lng += s.Longitude
		n++
	}
	if n == 0 {
		return mapPoint{Lat: DefaultCenterLat, Lng: DefaultCenterLng}, false
	}
	return mapPoint{Lat: sum.Lat / float64(n), Lng: sum.Lng / float64(n)}, true
}

func (m *MapController) statuses(ctx *gin.Context, sites []models.Site) (map[uint]bool, error) {
	list, err := m.engine.Evaluate(ctx.Request.Context(), complianceSites(sites))
	if err != nil {
		return nil, err
	}
	safe := make(map[uint]bool, len(list))
	for _, st := range list {
		safe[st.SiteID] = st.Compliant
	}
	return safe, nil
}

// ContractMap returns the contract, its map centre and one spot per site.
func (m *MapController) ContractMap(ctx *gin.Context) {
	id, ok := idParam(ctx, "id")
	if !ok || !requireContractAccess(ctx, id) {
		return
	}
	contract, err := m.contracts.Get(ctx.Request.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40410, "contract not found")
			return
		}
		storageFailure(ctx, 50040, "failed to load contract", err)
		return
	}
	sites, err := m.sites.ListByContract(ctx.Request.Context(), id)
	if err != nil {
		storageFailure(ctx, 50041, "failed to list sites", err)
		return
	}
	safe, err := m.statuses(ctx, sites)
	if err != nil {
		storageFailure(ctx, 50042, "failed to evaluate compliance", err)
		return
	}

	center, _ := centerOf(sites)
	spots := make([]mapSpot, len(sites))
	for i, s := range sites {
		spots[i] = mapSpot{
			ID:          s.ID,
			ContractID:  s.ContractID,
			Name:        s.Name,
			Address:     s.Address,
			Lat:         s.Latitude,
			Lng:         s.Longitude,
			IsSafe:      safe[s.ID],
			LabelNumber: i + 1,
		}
	}
	utils.Success(ctx, gin.H{
		"contract": contract,
		"center":   center,
		"spots":    spots,
	})
}

// SafeMap places one spot per contract at the centre of its sites. A contract is safe when
// every one of its sites is.
func (m *MapController) SafeMap(ctx *gin.Context) {
	contracts, err := m.contracts.List(ctx.Request.Context())
	if err != nil {
		storageFailure(ctx, 50043, "failed to list contracts", err)
		return
	}
	sites, err := m.sites.ListActive(ctx.Request.Context())
	if err != nil {
		storageFailure(ctx, 50041, "failed to list sites", err)
		return
	}
	safe, err := m.statuses(ctx, sites)
	if err != nil {
		storageFailure(ctx, 50042, "failed to evaluate compliance", err)
		return
	}

	byContract := make(map[uint][]models.Site)
	for _, s := range sites {
		byContract[s.ContractID] = append(byContract[s.ContractID], s)
	}
	spots := make([]mapSpot, 0, len(byContract))
	for _, c := range contracts {
		group := byContract[c.ID]
		if len(group) == 0 {
			continue
		}
		center, _ := centerOf(group)
		allSafe := true
		for _, s := range group {
			allSafe = allSafe && safe[s.ID]
		}
		spots = append(spots, mapSpot{
			ID:          c.ID,
			ContractID:  c.ID,
			Name:        c.Title,
			Lat:         center.Lat,
			Lng:         center.Lng,
			IsSafe:      allSafe,
			LabelNumber: len(group),
		})
	}
	center, _ := centerOf(sites)
	utils.Success(ctx, gin.H{"center": center, "spots": spots})
}
