package controllers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sitesafe/safemap/config"
	"github.com/sitesafe/safemap/middleware"
	"github.com/sitesafe/safemap/repository"
	"github.com/sitesafe/safemap/utils"
)

// AdminTokenTTL bounds an admin session.
const AdminTokenTTL = 2 * time.Hour

// AuthController handles the single admin password and session inspection.
type AuthController struct {
	settings *repository.SystemConfigRepository
}

func NewAuthController(settings *repository.SystemConfigRepository) *AuthController {
	return &AuthController{settings: settings}
}

// Login verifies the admin password and issues a JWT as cookie and body.
func (a *AuthController) Login(ctx *gin.Context) {
	type request struct {
		Password string `json:"password" binding:"required"`
	}

	var req request
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40003, "invalid request payload")
		return
	}

	ip := ctx.ClientIP()
	if utils.LoginIsBanned(ctx.Request.Context(), ip) {
		utils.Error(ctx, http.StatusTooManyRequests, 42902, "too many failed logins, try again later")
		return
	}

	ok, err := a.verify(ctx, req.Password)
	if err != nil {
		storageFailure(ctx, 50001, "failed to load admin credentials", err)
		return
	}
	if !ok {
		cfg := config.Get()
		if n := utils.LoginFailRecord(ctx.Request.Context(), ip); n >= cfg.LoginMaxFailures {
			utils.LoginBan(ctx.Request.Context(), ip, time.Duration(cfg.LoginBanMinutes)*time.Minute)
			utils.Sugar.Warnw("admin login banned", "ip", ip, "failures", n)
		}
		utils.Error(ctx, http.StatusUnauthorized, 40106, "invalid password")
		return
	}
	utils.LoginReset(ctx.Request.Context(), ip)

	token, err := utils.GenerateAdminToken(AdminTokenTTL)
	if err != nil {
		utils.ServerError(ctx, 50004, "failed to generate token", err)
		return
	}
	ctx.SetSameSite(http.SameSiteLaxMode)
	ctx.SetCookie(middleware.AdminCookieName, token, int(AdminTokenTTL.Seconds()), "/", "", secureCookies(), true)
	utils.Success(ctx, gin.H{
		"token":     token,
		"expiresIn": int(AdminTokenTTL.Seconds()),
	})
}

// Logout revokes the current token until its expiry and clears the cookie.
func (a *AuthController) Logout(ctx *gin.Context) {
	token := ctx.GetString(middleware.ContextTokenKey)
	expiresAt := time.Now().Add(AdminTokenTTL)
	if v, ok := ctx.Get(middleware.ContextClaimsKey); ok {
		if claims, ok := v.(*utils.Claims); ok {
			expiresAt = claims.ExpiresAtOr(expiresAt)
		}
	}
	if token != "" {
		utils.RevokeToken(ctx.Request.Context(), token, expiresAt)
	}
	ctx.SetCookie(middleware.AdminCookieName, "", -1, "/", "", secureCookies(), true)
	utils.Success(ctx, gin.H{"message": "logged out"})
}

// ChangePassword replaces the admin password after checking the current one.
func (a *AuthController) ChangePassword(ctx *gin.Context) {
	type request struct {
		CurrentPassword string `json:"currentPassword" binding:"required"`
		NewPassword     string `json:"newPassword" binding:"required"`
	}

	var req request
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40003, "invalid request payload")
		return
	}
	if err := utils.ValidatePassword(req.NewPassword); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40005, err.Error())
		return
	}

	ok, err := a.verify(ctx, req.CurrentPassword)
	if err != nil {
		storageFailure(ctx, 50001, "failed to load admin credentials", err)
		return
	}
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40106, "current password is incorrect")
		return
	}

	hash, err := utils.HashPassword(req.NewPassword)
	if err != nil {
		utils.ServerError(ctx, 50005, "failed to hash password", err)
		return
	}
	if err := a.settings.Set(ctx.Request.Context(), repository.KeyAdminPassword, hash); err != nil {
		storageFailure(ctx, 50006, "failed to store password", err)
		return
	}
	utils.Sugar.Infow("admin password changed", "request_id", ctx.GetString(utils.RequestIDKey))
	utils.Created(ctx, gin.H{"message": "password changed"})
}

// Session reports who the caller is. Anonymous callers get role "none".
func (a *AuthController) Session(ctx *gin.Context) {
	role := ctx.GetString(middleware.ContextRoleKey)
	if role == "" {
		role = "none"
	}
	out := gin.H{"role": role}
	if id, ok := middleware.GuestContractID(ctx); ok {
		out["contractId"] = id
	}
	utils.Success(ctx, out)
}

// verify compares password with the stored hash. No stored hash means nobody can log in.
func (a *AuthController) verify(ctx *gin.Context, password string) (bool, error) {
	hash, err := a.settings.Get(ctx.Request.Context(), repository.KeyAdminPassword)
	if errors.Is(err, repository.ErrNotFound) {
		utils.Sugar.Warn("admin login attempted but no admin password is set; run `safemap admin-password`")
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return utils.CheckPassword(hash, password), nil
}
