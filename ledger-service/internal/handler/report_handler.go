package handler

import (
	"context"
	"net/http"

	"github.com/eaglebank/corebank/shared/cqrs"
	"github.com/eaglebank/corebank/shared/middleware"
	"github.com/eaglebank/corebank/shared/models"
	"github.com/eaglebank/corebank/shared/utils"
	"github.com/gin-gonic/gin"
)

type StatementGenerator interface {
	GenerateStatement(context.Context, cqrs.StatementQuery) (*models.Statement, error)
}

type ReportHandler struct {
	statements StatementGenerator
}

type StatementRequest struct {
	ClientKey string `form:"clientKey" validate:"required,max=64"`
	StartDate string `form:"startDate" validate:"required"`
	EndDate   string `form:"endDate" validate:"required"`
}

func NewReportHandler(statements StatementGenerator) *ReportHandler {
	return &ReportHandler{statements: statements}
}

func (h *ReportHandler) Register(rg *gin.RouterGroup) {
	rg.GET("", h.GetStatement)
}

// GetStatement accepts RFC3339 or YYYY-MM-DD bounds; a date-only end date
// covers that whole day.
func (h *ReportHandler) GetStatement(c *gin.Context) {
	var req StatementRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid query parameters")
		return
	}
	if validationErrors := middleware.ValidateRequest(req); validationErrors != nil {
		middleware.RespondWithValidationError(c, validationErrors)
		return
	}

	start, err := utils.ParseDate(req.StartDate, false)
	if err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid start date")
		return
	}
	end, err := utils.ParseDate(req.EndDate, true)
	if err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid end date")
		return
	}

	statement, err := h.statements.GenerateStatement(c.Request.Context(), cqrs.StatementQuery{
		ClientKey: req.ClientKey,
		StartDate: start,
		EndDate:   end,
	})
	if err != nil {
		middleware.RespondWithAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, statement)
}
