package v1

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/lotterydesk/lottery-api/internal/api/handler/v1/request"
	"github.com/lotterydesk/lottery-api/internal/api/handler/v1/response"
	"github.com/lotterydesk/lottery-api/internal/domain"
)

type UserService interface {
	GetUser(ctx context.Context, id string) (domain.User, error)
	UpdateProfile(ctx context.Context, id string, update domain.ProfileUpdate) (domain.User, error)
	GetDashboard(ctx context.Context, id string) (domain.Dashboard, error)
}

type UserHandler struct {
	svc UserService
}

func NewUserHandler(svc UserService) *UserHandler {
	return &UserHandler{
		svc: svc,
	}
}

// HandleGetMe godoc
// @Summary      Get the signed-in user
// @Tags         users
// @Produce      json
// @Success      200      {object}   domain.User
// @Failure      401      {object}   response.Err
// @Failure      404      {object}   response.Err
// @Router       /users/me [get]
// @Security BearerAuth
func (h *UserHandler) HandleGetMe(ctx *gin.Context) {
	userID, respErr := currentUserID(ctx)
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	user, err := h.svc.GetUser(ctx.Request.Context(), userID)
	if err != nil {
		renderServiceErr(ctx, "v1.HandleGetMe -> h.svc.GetUser", err)
		return
	}

	ctx.JSON(http.StatusOK, user)
}

// HandleUpdateProfile godoc
// @Summary      Complete or update the profile
// @Tags         users
// @Accept       json
// @Produce      json
// @Param        request   body      request.UpdateProfileRequest true "request body"
// @Success      200      {object}   domain.User
// @Failure      400      {object}   response.Err
// @Failure      409      {object}   response.Err
// @Router       /users/me [patch]
// @Security BearerAuth
func (h *UserHandler) HandleUpdateProfile(ctx *gin.Context) {
	userID, respErr := currentUserID(ctx)
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	var req request.UpdateProfileRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	if err := req.Validate(); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	user, err := h.svc.UpdateProfile(ctx.Request.Context(), userID, req.ToDomain())
	if err != nil {
		renderServiceErr(ctx, "v1.HandleUpdateProfile -> h.svc.UpdateProfile", err)
		return
	}

	ctx.JSON(http.StatusOK, user)
}

// HandleDashboard godoc
// @Summary      Codes, payments and active round of the signed-in user
// @Tags         users
// @Produce      json
// @Success      200      {object}   domain.Dashboard
// @Failure      401      {object}   response.Err
// @Router       /users/me/dashboard [get]
// @Security BearerAuth
func (h *UserHandler) HandleDashboard(ctx *gin.Context) {
	userID, respErr := currentUserID(ctx)
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	dashboard, err := h.svc.GetDashboard(ctx.Request.Context(), userID)
	if err != nil {
		renderServiceErr(ctx, "v1.HandleDashboard -> h.svc.GetDashboard", err)
		return
	}

	ctx.JSON(http.StatusOK, dashboard)
}
