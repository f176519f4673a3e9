package v1

import (
	"errors"
	"fmt"

	"github.com/gin-gonic/gin"

	"github.com/lotterydesk/lottery-api/internal/api/handler/v1/response"
	"github.com/lotterydesk/lottery-api/internal/api/middleware"
	"github.com/lotterydesk/lottery-api/internal/service"
)

var errNoUser = errors.New("no authenticated user")

// renderServiceErr maps a service error onto its HTTP response. op names the
// failing call for the server log.
func renderServiceErr(ctx *gin.Context, op string, err error) {
	switch service.KindOf(err) {
	case service.KindValidation:
		response.RenderErr(ctx, response.ErrBadRequest(err))
	case service.KindNotFound:
		response.RenderErr(ctx, response.ErrNotFoundErr(err))
	case service.KindConflict:
		response.RenderErr(ctx, response.ErrConflict(err))
	case service.KindTransient:
		response.RenderErr(ctx, response.ErrServiceUnavailable(err))
	case service.KindDownstream:
		response.RenderErr(ctx, response.ErrBadGateway(err))
	case service.KindUnauthorized:
		response.RenderErr(ctx, response.ErrUnauthorized(err))
	case service.KindRateLimited:
		var rl *service.RateLimitError
		if errors.As(err, &rl) {
			response.RenderErr(ctx, response.ErrTooManyRequests(err, rl.RetryAfter))
			return
		}
		response.RenderErr(ctx, response.ErrTooManyRequests(err, 0))
	default:
		response.RenderErr(ctx, response.ErrInternalServerError(fmt.Errorf("%s -> %w", op, err)))
	}
}

func currentUserID(ctx *gin.Context) (string, *response.Err) {
	userID := ctx.GetString(middleware.CtxUserID)
	if userID == "" {
		return "", response.ErrUnauthorized(errNoUser)
	}

	return userID, nil
}
