package controllers

import (
	"errors"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gin-gonic/gin"

	"github.com/sitesafe/safemap/config"
	"github.com/sitesafe/safemap/middleware"
	"github.com/sitesafe/safemap/models"
	"github.com/sitesafe/safemap/repository"
	"github.com/sitesafe/safemap/utils"
)

// ContractController handles contract CRUD and the guest QR link.
type ContractController struct {
	contracts *repository.ContractRepository
}

func NewContractController(contracts *repository.ContractRepository) *ContractController {
	return &ContractController{contracts: contracts}
}

type contractRequest struct {
	Title     string `json:"title" binding:"required"`
	StartDate string `json:"startDate" binding:"required"`
	EndDate   string `json:"endDate" binding:"required"`
}

func (r contractRequest) toModel() (models.Contract, error) {
	title := utils.CleanText(r.Title)
	if title == "" || utf8.RuneCountInString(title) > 200 {
		return models.Contract{}, errors.New("title must be 1-200 characters")
	}
	from, to, err := dateRange(r.StartDate, r.EndDate)
	if err != nil {
		return models.Contract{}, err
	}
	return models.Contract{Title: title, StartDate: from, EndDate: to}, nil
}

// List returns every contract.
func (c *ContractController) List(ctx *gin.Context) {
	list, err := c.contracts.List(ctx.Request.Context())
	if err != nil {
		storageFailure(ctx, 50010, "failed to list contracts", err)
		return
	}
	utils.Success(ctx, list)
}

func (c *ContractController) Get(ctx *gin.Context) {
	id, ok := idParam(ctx, "id")
	if !ok || !requireContractAccess(ctx, id) {
		return
	}
	contract, ok := c.load(ctx, id)
	if !ok {
		return
	}
	utils.Success(ctx, contract)
}

func (c *ContractController) Create(ctx *gin.Context) {
	var req contractRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40011, "invalid request payload")
		return
	}
	contract, err := req.toModel()
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40012, err.Error())
		return
	}
	if err := c.contracts.Create(ctx.Request.Context(), &contract); err != nil {
		storageFailure(ctx, 50011, "failed to create contract", err)
		return
	}
	utils.Created(ctx, contract)
}

func (c *ContractController) Update(ctx *gin.Context) {
	id, ok := idParam(ctx, "id")
	if !ok {
		return
	}
	var req contractRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40011, "invalid request payload")
		return
	}
	changes, err := req.toModel()
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40012, err.Error())
		return
	}
	contract, ok := c.load(ctx, id)
	if !ok {
		return
	}
	contract.Title, contract.StartDate, contract.EndDate = changes.Title, changes.StartDate, changes.EndDate
	if err := c.contracts.Update(ctx.Request.Context(), &contract); err != nil {
		storageFailure(ctx, 50012, "failed to update contract", err)
		return
	}
	utils.Success(ctx, contract)
}

// Delete soft-deletes a contract; check history is kept.
func (c *ContractController) Delete(ctx *gin.Context) {
	id, ok := idParam(ctx, "id")
	if !ok {
		return
	}
	if err := c.contracts.Delete(ctx.Request.Context(), id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40410, "contract not found")
			return
		}
		storageFailure(ctx, 50013, "failed to delete contract", err)
		return
	}
	utils.InvalidateByPrefix(ctx.Request.Context(), utils.CacheCompliancePrefix)
	utils.Success(ctx, gin.H{"deleted": true})
}

// RegisterGuest binds the browser to a contract through the QR link and forwards to the guest UI.
func (c *ContractController) RegisterGuest(ctx *gin.Context) {
	id, ok := idParam(ctx, "contractId")
	if !ok {
		return
	}
	if _, ok := c.load(ctx, id); !ok {
		return
	}
	cfg := config.Get()
	ttl := time.Duration(cfg.GuestCookieDays) * 24 * time.Hour
	token, err := utils.GenerateGuestToken(id, ttl)
	if err != nil {
		utils.ServerError(ctx, 50014, "failed to issue guest session", err)
		return
	}
	ctx.SetSameSite(http.SameSiteLaxMode)
	ctx.SetCookie(middleware.GuestCookieName, token, int(ttl.Seconds()), "/", "", secureCookies(), true)
	ctx.Redirect(http.StatusFound, strings.TrimRight(cfg.PublicHostname, "/")+"/guest")
}

// VerifyContract tells the guest UI whether a contract id is usable.
func (c *ContractController) VerifyContract(ctx *gin.Context) {
	id, ok := parseID(ctx.Query("contractId"))
	if !ok {
		utils.Success(ctx, gin.H{"valid": false})
		return
	}
	_, err := c.contracts.Get(ctx.Request.Context(), id)
	switch {
	case err == nil:
		utils.Success(ctx, gin.H{"valid": true})
	case errors.Is(err, repository.ErrNotFound):
		utils.Success(ctx, gin.H{"valid": false})
	default:
		storageFailure(ctx, 50015, "failed to verify contract", err)
	}
}

func (c *ContractController) load(ctx *gin.Context, id uint) (models.Contract, bool) {
	contract, err := c.contracts.Get(ctx.Request.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40410, "contract not found")
		} else {
			storageFailure(ctx, 50016, "failed to load contract", err)
		}
		return models.Contract{}, false
	}
	return contract, true
}

func secureCookies() bool {
	return strings.HasPrefix(config.Get().PublicHostname, "https://")
}
