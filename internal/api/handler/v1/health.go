package v1

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lotterydesk/lottery-api/internal/api/handler/v1/response"
)

// HandleHealthcheck godoc
// @Summary      Healthcheck
// @Tags         health
// @Produce      json
// @Success      200      {object}   response.Healthcheck
// @Router       / [get]
func HandleHealthcheck(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, response.Healthcheck{
		Status: "ok",
		Time:   time.Now().UTC(),
	})
}
