package middleware

import (
	"github.com/eaglebank/corebank/shared/apperrors"
	"github.com/gin-gonic/gin"
)

// RespondWithAppError maps a service error onto its status code and public
// message. The raw error is attached to the context for the request log.
func RespondWithAppError(c *gin.Context, err error) {
	_ = c.Error(err)
	RespondWithError(c, apperrors.HTTPStatus(err), apperrors.PublicMessage(err))
}
