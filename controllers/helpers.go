package controllers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/sitesafe/safemap/compliance"
	"github.com/sitesafe/safemap/middleware"
	"github.com/sitesafe/safemap/utils"
)

// Default map centre used when no site carries coordinates.
const (
	DefaultCenterLat = 35.260773
	DefaultCenterLng = 126.886545
)

// parseID parses a positive integer id; ok is false for anything else.
func parseID(raw string) (uint, bool) {
	n, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 64)
	if err != nil || n == 0 {
		return 0, false
	}
	return uint(n), true
}

// idParam reads a path id or writes a 400 and returns false.
func idParam(ctx *gin.Context, name string) (uint, bool) {
	id, ok := parseID(ctx.Param(name))
	if !ok {
		utils.Error(ctx, http.StatusBadRequest, 40010, "invalid "+name)
	}
	return id, ok
}

// requireContractAccess writes a 403 unless the caller may access contractID.
func requireContractAccess(ctx *gin.Context, contractID uint) bool {
	if middleware.CanAccessContract(ctx, contractID) {
		return true
	}
	utils.Error(ctx, http.StatusForbidden, 40301, "no access to this contract")
	return false
}

// dateRange parses a pair of YYYYMMDD or YYYY-MM-DD strings and checks their order.
func dateRange(start, end string) (compliance.Day, compliance.Day, error) {
	from, err := compliance.ParseDayLoose(start)
	if err != nil {
		return 0, 0, errors.New("invalid startDate")
	}
	to, err := compliance.ParseDayLoose(end)
	if err != nil {
		return 0, 0, errors.New("invalid endDate")
	}
	if to < from {
		return 0, 0, errors.New("endDate is before startDate")
	}
	return from, to, nil
}

// storageFailure renders a 500 for an error coming out of the engine or a repository.
func storageFailure(ctx *gin.Context, code int, message string, err error) {
	var se *compliance.StorageError
	if errors.As(err, &se) {
		ctx.Header("Retry-After", "1")
	}
	utils.ServerError(ctx, code, message, err)
}
