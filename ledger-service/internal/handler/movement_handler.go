package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/eaglebank/corebank/shared/cqrs"
	"github.com/eaglebank/corebank/shared/middleware"
	"github.com/eaglebank/corebank/shared/models"
	"github.com/eaglebank/corebank/shared/utils"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// MovementCommander defines the write-side operations used by MovementHandler.
type MovementCommander interface {
	CreateMovement(context.Context, cqrs.CreateMovementCommand) (*models.Movement, error)
	UpdateMovement(context.Context, cqrs.UpdateMovementCommand) (*models.Movement, error)
	DeleteMovement(context.Context, cqrs.DeleteMovementCommand) error
}

// MovementQuerier defines the read-side operations used by MovementHandler.
type MovementQuerier interface {
	GetMovement(context.Context, cqrs.GetMovementQuery) (*models.Movement, error)
	ListMovements(context.Context, cqrs.ListMovementsQuery) ([]models.Movement, error)
}

type MovementHandler struct {
	commands MovementCommander
	queries  MovementQuerier
}

// Amounts are signed: positive credits, negative debits. Both JSON numbers
// and strings are accepted.
type CreateMovementRequest struct {
	AccountID    int64            `json:"accountId" validate:"required,gt=0"`
	MovementDate string           `json:"movementDate"`
	MovementType string           `json:"movementType" validate:"max=20"`
	Amount       *decimal.Decimal `json:"amount" validate:"required"`
	State        string           `json:"state" validate:"max=20"`
}

type UpdateMovementRequest struct {
	AccountID    int64            `json:"accountId" validate:"gte=0"`
	MovementDate string           `json:"movementDate"`
	MovementType string           `json:"movementType" validate:"max=20"`
	Amount       *decimal.Decimal `json:"amount" validate:"required"`
	State        string           `json:"state" validate:"max=20"`
}

func NewMovementHandler(commands MovementCommander, queries MovementQuerier) *MovementHandler {
	return &MovementHandler{commands: commands, queries: queries}
}

func (h *MovementHandler) Register(rg *gin.RouterGroup) {
	rg.POST("", h.CreateMovement)
	rg.GET("", h.ListMovements)
	rg.GET("/:id", h.GetMovement)
	rg.PUT("/:id", h.UpdateMovement)
	rg.DELETE("/:id", h.DeleteMovement)
}

func (h *MovementHandler) CreateMovement(c *gin.Context) {
	var req CreateMovementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if validationErrors := middleware.ValidateRequest(req); validationErrors != nil {
		middleware.RespondWithValidationError(c, validationErrors)
		return
	}
	date, ok := optionalDate(c, req.MovementDate)
	if !ok {
		return
	}

	movement, err := h.commands.CreateMovement(c.Request.Context(), cqrs.CreateMovementCommand{
		AccountID:    req.AccountID,
		MovementDate: date,
		MovementType: req.MovementType,
		Amount:       *req.Amount,
		State:        req.State,
	})
	if err != nil {
		middleware.RespondWithAppError(c, err)
		return
	}
	c.JSON(http.StatusCreated, movement)
}

func (h *MovementHandler) ListMovements(c *gin.Context) {
	var q cqrs.ListMovementsQuery
	if raw := c.Query("accountId"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			middleware.RespondWithError(c, http.StatusBadRequest, "Invalid account id")
			return
		}
		q.AccountID = id
	}

	movements, err := h.queries.ListMovements(c.Request.Context(), q)
	if err != nil {
		middleware.RespondWithAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, movements)
}

func (h *MovementHandler) GetMovement(c *gin.Context) {
	id, ok := parseID(c, "movement")
	if !ok {
		return
	}
	movement, err := h.queries.GetMovement(c.Request.Context(), cqrs.GetMovementQuery{MovementID: id})
	if err != nil {
		middleware.RespondWithAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, movement)
}

func (h *MovementHandler) UpdateMovement(c *gin.Context) {
	id, ok := parseID(c, "movement")
	if !ok {
		return
	}
	var req UpdateMovementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if validationErrors := middleware.ValidateRequest(req); validationErrors != nil {
		middleware.RespondWithValidationError(c, validationErrors)
		return
	}
	date, ok := optionalDate(c, req.MovementDate)
	if !ok {
		return
	}

	movement, err := h.commands.UpdateMovement(c.Request.Context(), cqrs.UpdateMovementCommand{
		MovementID:   id,
		AccountID:    req.AccountID,
		MovementDate: date,
		MovementType: req.MovementType,
		Amount:       *req.Amount,
		State:        req.State,
	})
	if err != nil {
		middleware.RespondWithAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, movement)
}

func (h *MovementHandler) DeleteMovement(c *gin.Context) {
	id, ok := parseID(c, "movement")
	if !ok {
		return
	}
	if err := h.commands.DeleteMovement(c.Request.Context(), cqrs.DeleteMovementCommand{MovementID: id}); err != nil {
		middleware.RespondWithAppError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// optionalDate parses value when present; the zero time means "now".
func optionalDate(c *gin.Context, value string) (time.Time, bool) {
	if value == "" {
		return time.Time{}, true
	}
	t, err := utils.ParseDate(value, false)
	if err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid movement date")
		return time.Time{}, false
	}
	return t, true
}
