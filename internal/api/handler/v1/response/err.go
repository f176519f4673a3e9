package response

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Err is the JSON body of every error response.
type Err struct {
	Err            error  `json:"-"`
	HTTPStatusCode int    `json:"-"`
	RetryAfter     int    `json:"-"`
	StatusText     string `json:"status"`
	Kind           string `json:"kind,omitempty"`
	ErrorText      string `json:"error,omitempty"`
}

func (e *Err) Error() string {
	if e.Err == nil {
		return e.StatusText
	}

	return e.Err.Error()
}

func RenderErr(ctx *gin.Context, err *Err) {
	if err.HTTPStatusCode >= http.StatusInternalServerError {
		zap.L().Error("request failed",
			zap.String("path", ctx.Request.URL.Path),
			zap.Int("status", err.HTTPStatusCode),
			zap.Error(err.Err),
		)
		_ = ctx.Error(err)
	}
	if err.RetryAfter > 0 {
		ctx.Header("Retry-After", fmt.Sprint(err.RetryAfter))
	}

	ctx.JSON(err.HTTPStatusCode, err)
}

func newErr(status int, kind string, err error) *Err {
	text := ""
	if err != nil {
		text = err.Error()
	}

	return &Err{
		Err:            err,
		HTTPStatusCode: status,
		StatusText:     http.StatusText(status),
		Kind:           kind,
		ErrorText:      text,
	}
}

func ErrBadRequest(err error) *Err {
	return newErr(http.StatusBadRequest, "VALIDATION", err)
}

func ErrNotFound(resourceName, keyName string, key any) *Err {
	return newErr(http.StatusNotFound, "NOT_FOUND", fmt.Errorf("%v with %v = %v does not exist", resourceName, keyName, key))
}

func ErrNotFoundErr(err error) *Err {
	return newErr(http.StatusNotFound, "NOT_FOUND", err)
}

func ErrConflict(err error) *Err {
	return newErr(http.StatusConflict, "CONFLICT", err)
}

func ErrUnauthorized(err error) *Err {
	return newErr(http.StatusUnauthorized, "UNAUTHORIZED", err)
}

func ErrPermissionDenied(err error) *Err {
	return newErr(http.StatusForbidden, "FORBIDDEN", err)
}

func ErrTooManyRequests(err error, retryAfter time.Duration) *Err {
	e := newErr(http.StatusTooManyRequests, "RATE_LIMITED", err)
	e.RetryAfter = int(retryAfter.Round(time.Second).Seconds())

	return e
}

func ErrBadGateway(err error) *Err {
	return newErr(http.StatusBadGateway, "DOWNSTREAM", err)
}

func ErrServiceUnavailable(err error) *Err {
	return newErr(http.StatusServiceUnavailable, "TRANSIENT", err)
}

// ErrInternalServerError hides err from the client. It is still logged.
func ErrInternalServerError(err error) *Err {
	e := newErr(http.StatusInternalServerError, "INTERNAL", err)
	e.ErrorText = "internal server error"

	return e
}
