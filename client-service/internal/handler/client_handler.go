package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/eaglebank/corebank/shared/cqrs"
	"github.com/eaglebank/corebank/shared/middleware"
	"github.com/eaglebank/corebank/shared/models"
	"github.com/gin-gonic/gin"
)

// ClientCommander defines the write-side operations used by ClientHandler.
type ClientCommander interface {
	CreateClient(context.Context, cqrs.CreateClientCommand) (*models.Client, error)
	UpdateClient(context.Context, cqrs.UpdateClientCommand) (*models.Client, error)
	DeleteClient(context.Context, cqrs.DeleteClientCommand) error
}

// ClientQuerier defines the read-side operations used by ClientHandler.
type ClientQuerier interface {
	GetClient(context.Context, cqrs.GetClientQuery) (*models.Client, error)
	GetClientByKey(context.Context, cqrs.GetClientByKeyQuery) (*models.Client, error)
	ListClients(context.Context) ([]models.Client, error)
}

type ClientHandler struct {
	commands ClientCommander
	queries  ClientQuerier
}

type CreateClientRequest struct {
	ClientKey string `json:"clientKey" validate:"omitempty,max=64"`
	Name      string `json:"name" validate:"required,max=200"`
	Gender    string `json:"gender" validate:"max=20"`
	Age       int    `json:"age" validate:"gte=0,lte=150"`
	IDNumber  string `json:"idNumber" validate:"required,max=32"`
	Address   string `json:"address" validate:"max=300"`
	Phone     string `json:"phone" validate:"max=32"`
	State     string `json:"state" validate:"max=20"`
}

type UpdateClientRequest struct {
	Name     string `json:"name" validate:"required,max=200"`
	Gender   string `json:"gender" validate:"max=20"`
	Age      int    `json:"age" validate:"gte=0,lte=150"`
	IDNumber string `json:"idNumber" validate:"required,max=32"`
	Address  string `json:"address" validate:"max=300"`
	Phone    string `json:"phone" validate:"max=32"`
	State    string `json:"state" validate:"max=20"`
}

func NewClientHandler(commands ClientCommander, queries ClientQuerier) *ClientHandler {
	return &ClientHandler{commands: commands, queries: queries}
}

// Register mounts the public routes on v1 and the service-to-service lookup
// on internal.
func (h *ClientHandler) Register(v1, internal *gin.RouterGroup) {
	v1.POST("", h.CreateClient)
	v1.GET("", h.ListClients)
	v1.GET("/:id", h.GetClient)
	v1.PUT("/:clientKey", h.UpdateClient)
	v1.DELETE("/:id", h.DeleteClient)

	internal.GET("/:clientKey", h.LookupClient)
}

func (h *ClientHandler) CreateClient(c *gin.Context) {
	var req CreateClientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if validationErrors := middleware.ValidateRequest(req); validationErrors != nil {
		middleware.RespondWithValidationError(c, validationErrors)
		return
	}

	client, err := h.commands.CreateClient(c.Request.Context(), cqrs.CreateClientCommand{
		ClientKey: req.ClientKey,
		Name:      req.Name,
		Gender:    req.Gender,
		Age:       req.Age,
		IDNumber:  req.IDNumber,
		Address:   req.Address,
		Phone:     req.Phone,
		State:     req.State,
	})
	if err != nil {
		middleware.RespondWithAppError(c, err)
		return
	}

	c.JSON(http.StatusCreated, client)
}

func (h *ClientHandler) ListClients(c *gin.Context) {
	clients, err := h.queries.ListClients(c.Request.Context())
	if err != nil {
		middleware.RespondWithAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, clients)
}

func (h *ClientHandler) GetClient(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	client, err := h.queries.GetClient(c.Request.Context(), cqrs.GetClientQuery{ID: id})
	if err != nil {
		middleware.RespondWithAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, client)
}

// LookupClient is the by-key endpoint the ledger service resolves clients with.
func (h *ClientHandler) LookupClient(c *gin.Context) {
	client, err := h.queries.GetClientByKey(c.Request.Context(), cqrs.GetClientByKeyQuery{
		ClientKey: c.Param("clientKey"),
	})
	if err != nil {
		middleware.RespondWithAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.ClientToCached(client))
}

func (h *ClientHandler) UpdateClient(c *gin.Context) {
	var req UpdateClientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if validationErrors := middleware.ValidateRequest(req); validationErrors != nil {
		middleware.RespondWithValidationError(c, validationErrors)
		return
	}

	client, err := h.commands.UpdateClient(c.Request.Context(), cqrs.UpdateClientCommand{
		ClientKey: c.Param("clientKey"),
		Name:      req.Name,
		Gender:    req.Gender,
		Age:       req.Age,
		IDNumber:  req.IDNumber,
		Address:   req.Address,
		Phone:     req.Phone,
		State:     req.State,
	})
	if err != nil {
		middleware.RespondWithAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, client)
}

func (h *ClientHandler) DeleteClient(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	if err := h.commands.DeleteClient(c.Request.Context(), cqrs.DeleteClientCommand{ID: id}); err != nil {
		middleware.RespondWithAppError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid client id")
		return 0, false
	}
	return id, true
}
