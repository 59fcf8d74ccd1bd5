// Package reports builds the fleet-wide compliance report served to admins and warmed nightly.
package reports

import (
	"context"
	"encoding/json"
	"time"

	"github.com/sitesafe/safemap/compliance"
	"github.com/sitesafe/safemap/models"
	"github.com/sitesafe/safemap/utils"
)

const reportTTL = 24 * time.Hour

// SiteLister is the registry view the reporter needs.
type SiteLister interface {
	ListActive(ctx context.Context) ([]models.Site, error)
}

// SiteReport is one row of the report.
type SiteReport struct {
	compliance.SiteStatus
	ContractID uint   `json:"contractId"`
	Name       string `json:"name"`
}

// Report is the compliance verdict for every active site as of Date.
type Report struct {
	Date      compliance.Day `json:"date"`
	Total     int            `json:"total"`
	Compliant int            `json:"compliant"`
	Sites     []SiteReport   `json:"sites"`
}

// ComplianceReporter evaluates all active sites in one checklist query.
type ComplianceReporter struct {
	sites  SiteLister
	engine *compliance.Engine
}

func NewComplianceReporter(sites SiteLister, engine *compliance.Engine) *ComplianceReporter {
	return &ComplianceReporter{sites: sites, engine: engine}
}

// Build computes the report without touching the cache.
func (r *ComplianceReporter) Build(ctx context.Context) (Report, error) {
	sites, err := r.sites.ListActive(ctx)
	if err != nil {
		return Report{}, err
	}
	byID := make(map[uint]models.Site, len(sites))
	input := make([]compliance.Site, len(sites))
	for i, s := range sites {
		byID[s.ID] = s
		input[i] = s.ComplianceSite()
	}
	statuses, err := r.engine.Evaluate(ctx, input)
	if err != nil {
		return Report{}, err
	}

	rep := Report{Date: r.engine.Today(), Total: len(statuses), Sites: make([]SiteReport, 0, len(statuses))}
	for _, st := range statuses {
		if st.Compliant {
			rep.Compliant++
		}
		s := byID[st.SiteID]
		rep.Sites = append(rep.Sites, SiteReport{SiteStatus: st, ContractID: s.ContractID, Name: s.Name})
	}
	return rep, nil
}

// CacheKey is the cache key of today's report at the current cache generation.
func (r *ComplianceReporter) CacheKey(ctx context.Context) string {
	return utils.VersionedKey(ctx, utils.CacheCompliancePrefix, r.engine.Today().String())
}

// Cached returns today's report JSON, building it on a miss.
func (r *ComplianceReporter) Cached(ctx context.Context) (json.RawMessage, error) {
	return utils.CacheFetchJSON(ctx, r.CacheKey(ctx), reportTTL, func(ctx context.Context) (interface{}, error) {
		return r.Build(ctx)
	})
}

// Warm drops stale reports and rebuilds today's.
func (r *ComplianceReporter) Warm(ctx context.Context) (Report, error) {
	utils.InvalidateByPrefix(ctx, utils.CacheCompliancePrefix)
	key := r.CacheKey(ctx)
	rep, err := r.Build(ctx)
	if err != nil {
		return Report{}, err
	}
	b, err := json.Marshal(rep)
	if err != nil {
		return Report{}, err
	}
	utils.CacheSetBytes(ctx, key, b, reportTTL)
	return rep, nil
}
