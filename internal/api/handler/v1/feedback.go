package v1

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/lotterydesk/lottery-api/internal/api/handler/v1/request"
	"github.com/lotterydesk/lottery-api/internal/api/handler/v1/response"
	"github.com/lotterydesk/lottery-api/internal/domain"
)

type FeedbackService interface {
	SubmitFeedback(ctx context.Context, input domain.FeedbackInput) (domain.Feedback, error)
	ListFeedback(ctx context.Context, status *domain.FeedbackStatus) ([]domain.Feedback, error)
	UpdateFeedbackStatus(ctx context.Context, id string, status domain.FeedbackStatus) (domain.Feedback, error)
}

type FeedbackHandler struct {
	svc FeedbackService
}

func NewFeedbackHandler(svc FeedbackService) *FeedbackHandler {
	return &FeedbackHandler{
		svc: svc,
	}
}

// HandleSubmitFeedback godoc
// @Summary      Leave a message for the organizers
// @Tags         feedback
// @Accept       json
// @Produce      json
// @Param        request   body      request.SubmitFeedbackRequest true "request body"
// @Success      201      {object}   domain.Feedback
// @Failure      400      {object}   response.Err
// @Router       /feedback [post]
func (h *FeedbackHandler) HandleSubmitFeedback(ctx *gin.Context) {
	var req request.SubmitFeedbackRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	if err := req.Validate(); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	feedback, err := h.svc.SubmitFeedback(ctx.Request.Context(), req.ToDomain())
	if err != nil {
		renderServiceErr(ctx, "v1.HandleSubmitFeedback -> h.svc.SubmitFeedback", err)
		return
	}

	ctx.JSON(http.StatusCreated, feedback)
}

// HandleListFeedback godoc
// @Summary      Latest feedback messages
// @Tags         admin
// @Produce      json
// @Param        status   query      string  false  "NEW, READ or DONE"
// @Success      200      {object}   response.FeedbackListResponse
// @Failure      400      {object}   response.Err
// @Router       /admin/feedback [get]
// @Security BearerAuth
func (h *FeedbackHandler) HandleListFeedback(ctx *gin.Context) {
	var status *domain.FeedbackStatus
	if raw := strings.ToUpper(strings.TrimSpace(ctx.Query("status"))); raw != "" {
		s := domain.FeedbackStatus(raw)
		status = &s
	}

	items, err := h.svc.ListFeedback(ctx.Request.Context(), status)
	if err != nil {
		renderServiceErr(ctx, "v1.HandleListFeedback -> h.svc.ListFeedback", err)
		return
	}

	ctx.JSON(http.StatusOK, response.FeedbackListResponse{Items: items})
}

// HandleUpdateFeedbackStatus godoc
// @Summary      Mark a feedback message as read or done
// @Tags         admin
// @Accept       json
// @Produce      json
// @Param        feedbackID  path      string  true  "feedback id"
// @Param        request     body      request.UpdateFeedbackStatusRequest true "request body"
// @Success      200      {object}   domain.Feedback
// @Failure      400      {object}   response.Err
// @Failure      404      {object}   response.Err
// @Router       /admin/feedback/{feedbackID} [patch]
// @Security BearerAuth
func (h *FeedbackHandler) HandleUpdateFeedbackStatus(ctx *gin.Context) {
	var req request.UpdateFeedbackStatusRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	if err := req.Validate(); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	feedback, err := h.svc.UpdateFeedbackStatus(ctx.Request.Context(), ctx.Param("feedbackID"), domain.FeedbackStatus(req.Status))
	if err != nil {
		renderServiceErr(ctx, "v1.HandleUpdateFeedbackStatus -> h.svc.UpdateFeedbackStatus", err)
		return
	}

	ctx.JSON(http.StatusOK, feedback)
}
