package v1

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/lotterydesk/lottery-api/internal/api/handler/v1/response"
	"github.com/lotterydesk/lottery-api/internal/domain"
	"github.com/lotterydesk/lottery-api/internal/service"
)

const paymentResultPath = "/payment/result"

type PaymentService interface {
	CreatePayment(ctx context.Context, userID string) (domain.Payment, domain.CheckoutSession, error)
	VerifyPayment(ctx context.Context, authority, status string) (domain.PaymentOutcome, error)
}

type PaymentHandler struct {
	svc         PaymentService
	frontendURL string
}

func NewPaymentHandler(svc PaymentService, frontendURL string) *PaymentHandler {
	return &PaymentHandler{
		svc:         svc,
		frontendURL: strings.TrimRight(frontendURL, "/"),
	}
}

// HandleCreatePayment godoc
// @Summary      Start checkout for one entry into the active round
// @Tags         payments
// @Produce      json
// @Success      201      {object}   response.CheckoutResponse
// @Failure      401      {object}   response.Err
// @Failure      409      {object}   response.Err
// @Failure      502      {object}   response.Err
// @Router       /payments [post]
// @Security BearerAuth
func (h *PaymentHandler) HandleCreatePayment(ctx *gin.Context) {
	userID, respErr := currentUserID(ctx)
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	payment, session, err := h.svc.CreatePayment(ctx.Request.Context(), userID)
	if err != nil {
		renderServiceErr(ctx, "v1.HandleCreatePayment -> h.svc.CreatePayment", err)
		return
	}

	ctx.JSON(http.StatusCreated, response.CheckoutResponse{
		Payment:    payment,
		PaymentURL: session.PaymentURL,
	})
}

// HandleVerifyPayment godoc
// @Summary      Gateway callback
// @Description  Verifies the payment, issues the lottery code and redirects the browser to the frontend result page.
// @Tags         payments
// @Param        Authority  query  string  true   "gateway authority"
// @Param        Status     query  string  true   "OK or NOK"
// @Success      302
// @Router       /payments/verify [get]
func (h *PaymentHandler) HandleVerifyPayment(ctx *gin.Context) {
	authority := ctx.Query("Authority")
	status := ctx.Query("Status")

	outcome, err := h.svc.VerifyPayment(ctx.Request.Context(), authority, status)

	query := url.Values{}
	switch {
	case err == nil:
		query.Set("success", "true")
		if outcome.Code != nil {
			query.Set("code", outcome.Code.Code)
		}
		if outcome.Payment.RefID != nil {
			query.Set("refId", *outcome.Payment.RefID)
		}
	default:
		if service.KindOf(err) == service.KindInternal {
			zap.L().Error("payment verification failed", zap.String("authority", authority), zap.Error(err))
		}
		query.Set("success", "false")
		query.Set("reason", service.KindOf(err).String())
		query.Set("message", err.Error())
	}
	if outcome.Payment.TransactionID != "" {
		query.Set("transactionId", outcome.Payment.TransactionID)
	}

	ctx.Redirect(http.StatusFound, h.frontendURL+paymentResultPath+"?"+query.Encode())
}
