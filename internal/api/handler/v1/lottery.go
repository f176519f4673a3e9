package v1

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/lotterydesk/lottery-api/internal/api/handler/v1/request"
	"github.com/lotterydesk/lottery-api/internal/api/handler/v1/response"
	"github.com/lotterydesk/lottery-api/internal/domain"
)

type LotteryService interface {
	GetSettings(ctx context.Context) (domain.Settings, error)
	UpdateSettings(ctx context.Context, update domain.SettingsUpdate) (domain.Settings, domain.Round, error)

	GetOrCreateActiveRound(ctx context.Context) (domain.Round, error)
	GetRound(ctx context.Context, id string) (domain.RoundProgress, error)
	ListRounds(ctx context.Context, limit int) ([]domain.Round, error)
	CloseActiveRoundIfAny(ctx context.Context) (domain.Round, bool, error)
	CreateNewOpenRoundFromSettings(ctx context.Context) (domain.Round, error)

	GiftCodes(ctx context.Context, req domain.GiftRequest) ([]domain.LotteryCode, domain.Round, error)
	RegisterWinner(ctx context.Context, roundID, code string) (domain.WinnerRegistration, error)

	AdminOverview(ctx context.Context, roundID string) (domain.AdminOverview, error)
	FinanceReport(ctx context.Context) (domain.FinanceReport, error)
}

type LotteryHandler struct {
	svc LotteryService
}

func NewLotteryHandler(svc LotteryService) *LotteryHandler {
	return &LotteryHandler{
		svc: svc,
	}
}

// HandleGetActiveRound godoc
// @Summary      Active round with progress
// @Tags         lottery
// @Produce      json
// @Success      200      {object}   domain.RoundProgress
// @Failure      503      {object}   response.Err
// @Router       /lottery/active [get]
func (h *LotteryHandler) HandleGetActiveRound(ctx *gin.Context) {
	round, err := h.svc.GetOrCreateActiveRound(ctx.Request.Context())
	if err != nil {
		renderServiceErr(ctx, "v1.HandleGetActiveRound -> h.svc.GetOrCreateActiveRound", err)
		return
	}

	progress, err := h.svc.GetRound(ctx.Request.Context(), round.ID)
	if err != nil {
		renderServiceErr(ctx, "v1.HandleGetActiveRound -> h.svc.GetRound", err)
		return
	}

	ctx.JSON(http.StatusOK, progress)
}

// HandleGetSettings godoc
// @Summary      Lottery settings
// @Tags         admin
// @Produce      json
// @Success      200      {object}   domain.Settings
// @Router       /admin/settings [get]
// @Security BearerAuth
func (h *LotteryHandler) HandleGetSettings(ctx *gin.Context) {
	settings, err := h.svc.GetSettings(ctx.Request.Context())
	if err != nil {
		renderServiceErr(ctx, "v1.HandleGetSettings -> h.svc.GetSettings", err)
		return
	}

	ctx.JSON(http.StatusOK, settings)
}

// HandleUpdateSettings godoc
// @Summary      Update settings and roll over to a new round
// @Tags         admin
// @Accept       json
// @Produce      json
// @Param        request   body      request.UpdateSettingsRequest true "request body"
// @Success      200      {object}   response.SettingsUpdateResponse
// @Failure      400      {object}   response.Err
// @Failure      503      {object}   response.Err
// @Router       /admin/settings [put]
// @Security BearerAuth
func (h *LotteryHandler) HandleUpdateSettings(ctx *gin.Context) {
	var req request.UpdateSettingsRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	if err := req.Validate(); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	settings, round, err := h.svc.UpdateSettings(ctx.Request.Context(), req.ToDomain())
	if err != nil {
		renderServiceErr(ctx, "v1.HandleUpdateSettings -> h.svc.UpdateSettings", err)
		return
	}

	ctx.JSON(http.StatusOK, response.SettingsUpdateResponse{
		Settings: settings,
		Round:    round,
	})
}

// HandleOverview godoc
// @Summary      Admin overview of one round
// @Tags         admin
// @Produce      json
// @Param        roundId  query  string  false  "round id, defaults to the open or latest round"
// @Success      200      {object}   domain.AdminOverview
// @Failure      404      {object}   response.Err
// @Router       /admin/overview [get]
// @Security BearerAuth
func (h *LotteryHandler) HandleOverview(ctx *gin.Context) {
	overview, err := h.svc.AdminOverview(ctx.Request.Context(), ctx.Query("roundId"))
	if err != nil {
		renderServiceErr(ctx, "v1.HandleOverview -> h.svc.AdminOverview", err)
		return
	}

	ctx.JSON(http.StatusOK, overview)
}

// HandleListRounds godoc
// @Summary      Latest rounds
// @Tags         admin
// @Produce      json
// @Param        limit  query  int  false  "at most 50"
// @Success      200      {array}    domain.Round
// @Router       /admin/rounds [get]
// @Security BearerAuth
func (h *LotteryHandler) HandleListRounds(ctx *gin.Context) {
	limit, _ := strconv.Atoi(ctx.DefaultQuery("limit", "50"))

	rounds, err := h.svc.ListRounds(ctx.Request.Context(), limit)
	if err != nil {
		renderServiceErr(ctx, "v1.HandleListRounds -> h.svc.ListRounds", err)
		return
	}

	ctx.JSON(http.StatusOK, rounds)
}

// HandleGetRound godoc
// @Summary      One round with progress
// @Tags         admin
// @Produce      json
// @Param        roundID  path  string  true  "round id"
// @Success      200      {object}   domain.RoundProgress
// @Failure      404      {object}   response.Err
// @Router       /admin/rounds/{roundID} [get]
// @Security BearerAuth
func (h *LotteryHandler) HandleGetRound(ctx *gin.Context) {
	progress, err := h.svc.GetRound(ctx.Request.Context(), ctx.Param("roundID"))
	if err != nil {
		renderServiceErr(ctx, "v1.HandleGetRound -> h.svc.GetRound", err)
		return
	}

	ctx.JSON(http.StatusOK, progress)
}

// HandleCloseRound godoc
// @Summary      Close the open round, if any
// @Tags         admin
// @Produce      json
// @Success      200      {object}   response.CloseRoundResponse
// @Router       /admin/rounds/close [post]
// @Security BearerAuth
func (h *LotteryHandler) HandleCloseRound(ctx *gin.Context) {
	round, closed, err := h.svc.CloseActiveRoundIfAny(ctx.Request.Context())
	if err != nil {
		renderServiceErr(ctx, "v1.HandleCloseRound -> h.svc.CloseActiveRoundIfAny", err)
		return
	}

	resp := response.CloseRoundResponse{Closed: closed}
	if closed {
		resp.Round = &round
	}

	ctx.JSON(http.StatusOK, resp)
}

// HandleNewRound godoc
// @Summary      Close the open round and open a new one from settings
// @Tags         admin
// @Produce      json
// @Success      201      {object}   domain.Round
// @Failure      503      {object}   response.Err
// @Router       /admin/rounds [post]
// @Security BearerAuth
func (h *LotteryHandler) HandleNewRound(ctx *gin.Context) {
	round, err := h.svc.CreateNewOpenRoundFromSettings(ctx.Request.Context())
	if err != nil {
		renderServiceErr(ctx, "v1.HandleNewRound -> h.svc.CreateNewOpenRoundFromSettings", err)
		return
	}

	ctx.JSON(http.StatusCreated, round)
}

// HandleGiftCodes godoc
// @Summary      Gift free lottery codes to a user
// @Tags         admin
// @Accept       json
// @Produce      json
// @Param        request   body      request.GiftCodesRequest true "request body"
// @Success      201      {object}   response.GiftResponse
// @Failure      400      {object}   response.Err
// @Failure      404      {object}   response.Err
// @Failure      409      {object}   response.Err
// @Router       /admin/codes/gift [post]
// @Security BearerAuth
func (h *LotteryHandler) HandleGiftCodes(ctx *gin.Context) {
	var req request.GiftCodesRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	if err := req.Validate(); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	codes, round, err := h.svc.GiftCodes(ctx.Request.Context(), req.ToDomain())
	if err != nil {
		renderServiceErr(ctx, "v1.HandleGiftCodes -> h.svc.GiftCodes", err)
		return
	}

	ctx.JSON(http.StatusCreated, response.GiftResponse{
		Codes: codes,
		Round: round,
	})
}

// HandleRegisterWinner godoc
// @Summary      Register the winner drawn offline
// @Tags         admin
// @Accept       json
// @Produce      json
// @Param        request   body      request.RegisterWinnerRequest true "request body"
// @Success      201      {object}   domain.WinnerRegistration
// @Failure      400      {object}   response.Err
// @Failure      404      {object}   response.Err
// @Failure      409      {object}   response.Err
// @Router       /admin/winners [post]
// @Security BearerAuth
func (h *LotteryHandler) HandleRegisterWinner(ctx *gin.Context) {
	var req request.RegisterWinnerRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	if err := req.Validate(); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	registration, err := h.svc.RegisterWinner(ctx.Request.Context(), req.RoundID, req.Code)
	if err != nil {
		renderServiceErr(ctx, "v1.HandleRegisterWinner -> h.svc.RegisterWinner", err)
		return
	}

	ctx.JSON(http.StatusCreated, registration)
}

// HandleFinance godoc
// @Summary      Revenue, codes and winners per round
// @Tags         admin
// @Produce      json
// @Success      200      {object}   domain.FinanceReport
// @Router       /admin/finance [get]
// @Security BearerAuth
func (h *LotteryHandler) HandleFinance(ctx *gin.Context) {
	report, err := h.svc.FinanceReport(ctx.Request.Context())
	if err != nil {
		renderServiceErr(ctx, "v1.HandleFinance -> h.svc.FinanceReport", err)
		return
	}

	ctx.JSON(http.StatusOK, report)
}
