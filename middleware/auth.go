package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/sitesafe/safemap/utils"
)

const (
	// AdminCookieName carries the admin JWT.
	AdminCookieName = "accessToken"
	// GuestCookieName carries the signed guest token bound to one contract.
	GuestCookieName = "guest-contract-id"

	// ContextRoleKey stores the authenticated role in the gin context.
	ContextRoleKey = "auth_role"
	// ContextGuestContractKey stores the contract id a guest may access.
	ContextGuestContractKey = "guest_contract_id"
	// ContextTokenKey stores the raw admin token for logout.
	ContextTokenKey = "auth_token"
	// ContextClaimsKey stores the parsed admin claims.
	ContextClaimsKey = "auth_claims"

	contextAuthErrorKey = "auth_error"
)

// AdminToken returns the admin token from the Authorization header or, failing that, the cookie.
func AdminToken(ctx *gin.Context) string {
	if h := ctx.GetHeader("Authorization"); h != "" {
		parts := strings.SplitN(h, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
	}
	if c, err := ctx.Cookie(AdminCookieName); err == nil {
		return c
	}
	return ""
}

// Identify resolves the caller as admin or guest. It never aborts; the *Required middlewares do.
func Identify() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if tok := AdminToken(ctx); tok != "" {
			claims, err := utils.ParseToken(tok)
			switch {
			case err != nil || claims.Role != utils.RoleAdmin:
				ctx.Set(contextAuthErrorKey, 40105)
			case utils.IsTokenRevoked(ctx.Request.Context(), tok):
				ctx.Set(contextAuthErrorKey, 40104)
			default:
				ctx.Set(ContextRoleKey, utils.RoleAdmin)
				ctx.Set(ContextTokenKey, tok)
				ctx.Set(ContextClaimsKey, claims)
				ctx.Next()
				return
			}
		}
		if raw, err := ctx.Cookie(GuestCookieName); err == nil && raw != "" {
			if claims, err := utils.ParseToken(raw); err == nil && claims.Role == utils.RoleGuest && claims.ContractID != 0 {
				ctx.Set(ContextRoleKey, utils.RoleGuest)
				ctx.Set(ContextGuestContractKey, claims.ContractID)
			}
		}
		ctx.Next()
	}
}

// AdminRequired rejects callers without a valid, unrevoked admin token.
func AdminRequired() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if IsAdmin(ctx) {
			ctx.Next()
			return
		}
		switch ctx.GetInt(contextAuthErrorKey) {
		case 40104:
			utils.Error(ctx, http.StatusUnauthorized, 40104, "token revoked")
		case 40105:
			utils.Error(ctx, http.StatusUnauthorized, 40105, "invalid token")
		default:
			utils.Error(ctx, http.StatusUnauthorized, 40101, "admin authentication required")
		}
		ctx.Abort()
	}
}

// ViewerRequired admits admins and guests holding a contract cookie.
func ViewerRequired() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if _, ok := ctx.Get(ContextRoleKey); !ok {
			utils.Error(ctx, http.StatusUnauthorized, 40102, "authentication required")
			ctx.Abort()
			return
		}
		ctx.Next()
	}
}

func IsAdmin(ctx *gin.Context) bool {
	return ctx.GetString(ContextRoleKey) == utils.RoleAdmin
}

// GuestContractID returns the contract a guest is bound to.
func GuestContractID(ctx *gin.Context) (uint, bool) {
	if ctx.GetString(ContextRoleKey) != utils.RoleGuest {
		return 0, false
	}
	id, ok := ctx.Get(ContextGuestContractKey)
	if !ok {
		return 0, false
	}
	v, ok := id.(uint)
	return v, ok
}

// CanAccessContract reports whether the caller may read or update data of contractID.
func CanAccessContract(ctx *gin.Context, contractID uint) bool {
	if IsAdmin(ctx) {
		return true
	}
	id, ok := GuestContractID(ctx)
	return ok && id == contractID
}
