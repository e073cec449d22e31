package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/bigr-systems/guardian/internal/api/models"
)

// parseInt64Param parses an integer path parameter, writing a 400
// response and returning ok=false on failure.
func parseInt64Param(c *gin.Context, name string) (int64, bool) {
	raw := c.Param(name)
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid " + name})
		return 0, false
	}
	return n, true
}
