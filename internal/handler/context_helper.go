package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/notevault-api/internal/middleware"
	"github.com/noah-isme/notevault-api/internal/models"
	appErrors "github.com/noah-isme/notevault-api/pkg/errors"
	"github.com/noah-isme/notevault-api/pkg/response"
)

func ownerFromContext(c *gin.Context) string {
	return c.GetString(middleware.ContextOwnerKey)
}

func bindJSON(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return false
	}
	return true
}

// writeResult renders an engine result. Failures use the typed cause when one
// is attached so the status code follows the error taxonomy.
func writeResult(c *gin.Context, status int, res models.Result) {
	if res.Success {
		response.JSON(c, status, res)
		return
	}
	if res.Err != nil {
		response.Error(c, res.Err)
		return
	}
	response.Error(c, appErrors.Clone(appErrors.ErrInternal, res.Message))
}

func parseAction(c *gin.Context) (models.Action, bool) {
	action := models.Action(c.Param("action"))
	if !action.Valid() {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "unknown action "+string(action)))
		return "", false
	}
	return action, true
}
