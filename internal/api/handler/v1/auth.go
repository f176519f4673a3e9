package v1

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lotterydesk/lottery-api/internal/api/handler/v1/request"
	"github.com/lotterydesk/lottery-api/internal/api/handler/v1/response"
	"github.com/lotterydesk/lottery-api/internal/api/middleware"
	"github.com/lotterydesk/lottery-api/internal/config"
	"github.com/lotterydesk/lottery-api/internal/domain"
	"github.com/lotterydesk/lottery-api/internal/pkg/jwthelper"
)

type AuthService interface {
	SendOTP(ctx context.Context, mobile string) (time.Time, error)
	VerifyOTP(ctx context.Context, mobile, code string) (domain.User, error)
	Precheck(ctx context.Context, mobile string) (domain.Precheck, error)
}

type AuthHandler struct {
	conf *config.APIConfig
	svc  AuthService
}

func NewAuthHandler(conf *config.APIConfig, svc AuthService) *AuthHandler {
	return &AuthHandler{
		conf: conf,
		svc:  svc,
	}
}

// HandleSendOTP godoc
// @Summary      Text a one-time login code
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request   body      request.SendOTPRequest true "request body"
// @Success      200      {object}   response.SendOTPResponse
// @Failure      400      {object}   response.Err
// @Failure      429      {object}   response.Err
// @Failure      502      {object}   response.Err
// @Router       /auth/send-otp [post]
func (h *AuthHandler) HandleSendOTP(ctx *gin.Context) {
	var req request.SendOTPRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	if err := req.Validate(); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	expiresAt, err := h.svc.SendOTP(ctx.Request.Context(), req.Mobile)
	if err != nil {
		renderServiceErr(ctx, "v1.HandleSendOTP -> h.svc.SendOTP", err)
		return
	}

	ctx.JSON(http.StatusOK, response.SendOTPResponse{ExpiresAt: expiresAt})
}

// HandleVerifyOTP godoc
// @Summary      Exchange a one-time code for a token
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request   body      request.VerifyOTPRequest true "request body"
// @Success      200      {object}   response.LoginResponse
// @Failure      400      {object}   response.Err
// @Failure      401      {object}   response.Err
// @Failure      500      {object}   response.Err
// @Router       /auth/verify-otp [post]
func (h *AuthHandler) HandleVerifyOTP(ctx *gin.Context) {
	req := request.VerifyOTPRequest{}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	if err := req.Validate(); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	user, err := h.svc.VerifyOTP(ctx.Request.Context(), req.Mobile, req.Code)
	if err != nil {
		renderServiceErr(ctx, "v1.HandleVerifyOTP -> h.svc.VerifyOTP", err)
		return
	}

	admin := h.conf.AdminMobile != "" && user.Mobile == h.conf.AdminMobile
	token, err := jwthelper.GenerateToken([]byte(h.conf.JWTSigningKey), user.ID, user.Mobile, admin, ctx.Request.UserAgent(), h.conf.JWTTTL)
	if err != nil {
		err = fmt.Errorf("v1.HandleVerifyOTP -> jwthelper.GenerateToken() -> %w", err)
		response.RenderErr(ctx, response.ErrInternalServerError(err))
		return
	}

	ctx.SetSameSite(http.SameSiteLaxMode)
	ctx.SetCookie(middleware.TokenCookie, token, int(h.conf.JWTTTL.Seconds()), "/", "", h.conf.SecureCookies, true)

	ctx.JSON(http.StatusOK, response.LoginResponse{
		Token: token,
		User:  user,
	})
}

// HandlePrecheck godoc
// @Summary      Check whether a mobile is already registered
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request   body      request.PrecheckRequest true "request body"
// @Success      200      {object}   domain.Precheck
// @Failure      400      {object}   response.Err
// @Router       /auth/precheck [post]
func (h *AuthHandler) HandlePrecheck(ctx *gin.Context) {
	var req request.PrecheckRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	if err := req.Validate(); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	result, err := h.svc.Precheck(ctx.Request.Context(), req.Mobile)
	if err != nil {
		renderServiceErr(ctx, "v1.HandlePrecheck -> h.svc.Precheck", err)
		return
	}

	ctx.JSON(http.StatusOK, result)
}

// HandleLogout godoc
// @Summary      Clear the session cookie
// @Tags         auth
// @Success      204
// @Router       /auth/logout [post]
func (h *AuthHandler) HandleLogout(ctx *gin.Context) {
	ctx.SetSameSite(http.SameSiteLaxMode)
	ctx.SetCookie(middleware.TokenCookie, "", -1, "/", "", h.conf.SecureCookies, true)
	ctx.Status(http.StatusNoContent)
}
