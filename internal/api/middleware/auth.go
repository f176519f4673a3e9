package middleware

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/lotterydesk/lottery-api/internal/api/handler/v1/response"
	"github.com/lotterydesk/lottery-api/internal/pkg/jwthelper"
)

const (
	TokenCookie = "token"

	CtxUserID  = "userID"
	CtxMobile  = "mobile"
	CtxIsAdmin = "isAdmin"
)

var (
	errMissingToken = errors.New("missing authentication token")
	errAdminOnly    = errors.New("admin access required")
)

type Authenticator struct {
	key []byte
}

func NewAuthenticator(key string) *Authenticator {
	return &Authenticator{key: []byte(key)}
}

// VerifyJWT accepts a Bearer token or the token cookie and stores the
// claims on the gin context.
func (a *Authenticator) VerifyJWT() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		token := bearerToken(ctx.GetHeader("Authorization"))
		if token == "" {
			token, _ = ctx.Cookie(TokenCookie)
		}
		if token == "" {
			response.RenderErr(ctx, response.ErrUnauthorized(errMissingToken))
			ctx.Abort()
			return
		}

		claims, err := jwthelper.ParseToken(a.key, token)
		if err != nil {
			response.RenderErr(ctx, response.ErrUnauthorized(err))
			ctx.Abort()
			return
		}

		ctx.Set(CtxUserID, claims.UserID)
		ctx.Set(CtxMobile, claims.Mobile)
		ctx.Set(CtxIsAdmin, claims.Admin)
		ctx.Next()
	}
}

// RequireAdmin must run after VerifyJWT.
func RequireAdmin() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if !ctx.GetBool(CtxIsAdmin) {
			response.RenderErr(ctx, response.ErrPermissionDenied(errAdminOnly))
			ctx.Abort()
			return
		}

		ctx.Next()
	}
}

func bearerToken(header string) string {
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}

	return strings.TrimSpace(token)
}
