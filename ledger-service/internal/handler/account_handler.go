package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/eaglebank/corebank/shared/cqrs"
	"github.com/eaglebank/corebank/shared/middleware"
	"github.com/eaglebank/corebank/shared/models"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// AccountCommander defines the write-side operations used by AccountHandler.
type AccountCommander interface {
	CreateAccount(context.Context, cqrs.CreateAccountCommand) (*models.Account, error)
	UpdateAccount(context.Context, cqrs.UpdateAccountCommand) (*models.Account, error)
	DeleteAccount(context.Context, cqrs.DeleteAccountCommand) error
}

// AccountQuerier defines the read-side operations used by AccountHandler.
type AccountQuerier interface {
	GetAccount(context.Context, cqrs.GetAccountQuery) (*models.AccountView, error)
	GetAccountByNumber(context.Context, cqrs.GetAccountByNumberQuery) (*models.AccountView, error)
	ListAccounts(context.Context, cqrs.ListAccountsQuery) ([]models.AccountView, error)
}

type AccountHandler struct {
	commands AccountCommander
	queries  AccountQuerier
}

type CreateAccountRequest struct {
	AccountNumber  string          `json:"accountNumber" validate:"omitempty,numeric,min=6,max=20"`
	AccountType    string          `json:"accountType" validate:"required,max=40"`
	ClientKey      string          `json:"clientKey" validate:"required,max=64"`
	InitialBalance decimal.Decimal `json:"initialBalance"`
	State          string          `json:"state" validate:"max=20"`
}

type UpdateAccountRequest struct {
	AccountNumber string `json:"accountNumber" validate:"omitempty,numeric,min=6,max=20"`
	AccountType   string `json:"accountType" validate:"max=40"`
	ClientKey     string `json:"clientKey" validate:"max=64"`
	State         string `json:"state" validate:"max=20"`
}

func NewAccountHandler(commands AccountCommander, queries AccountQuerier) *AccountHandler {
	return &AccountHandler{commands: commands, queries: queries}
}

func (h *AccountHandler) Register(rg *gin.RouterGroup) {
	rg.POST("", h.CreateAccount)
	rg.GET("", h.ListAccounts)
	rg.GET("/:id", h.GetAccount)
	rg.GET("/number/:accountNumber", h.GetAccountByNumber)
	rg.PUT("/:id", h.UpdateAccount)
	rg.DELETE("/:id", h.DeleteAccount)
}

func (h *AccountHandler) CreateAccount(c *gin.Context) {
	var req CreateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if validationErrors := middleware.ValidateRequest(req); validationErrors != nil {
		middleware.RespondWithValidationError(c, validationErrors)
		return
	}

	account, err := h.commands.CreateAccount(c.Request.Context(), cqrs.CreateAccountCommand{
		AccountNumber:  req.AccountNumber,
		AccountType:    req.AccountType,
		ClientKey:      req.ClientKey,
		InitialBalance: req.InitialBalance,
		State:          req.State,
	})
	if err != nil {
		middleware.RespondWithAppError(c, err)
		return
	}
	c.JSON(http.StatusCreated, account)
}

func (h *AccountHandler) ListAccounts(c *gin.Context) {
	accounts, err := h.queries.ListAccounts(c.Request.Context(), cqrs.ListAccountsQuery{
		ClientKey: c.Query("clientKey"),
	})
	if err != nil {
		middleware.RespondWithAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, accounts)
}

func (h *AccountHandler) GetAccount(c *gin.Context) {
	id, ok := parseID(c, "account")
	if !ok {
		return
	}
	view, err := h.queries.GetAccount(c.Request.Context(), cqrs.GetAccountQuery{AccountID: id})
	if err != nil {
		middleware.RespondWithAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *AccountHandler) GetAccountByNumber(c *gin.Context) {
	view, err := h.queries.GetAccountByNumber(c.Request.Context(), cqrs.GetAccountByNumberQuery{
		AccountNumber: c.Param("accountNumber"),
	})
	if err != nil {
		middleware.RespondWithAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *AccountHandler) UpdateAccount(c *gin.Context) {
	id, ok := parseID(c, "account")
	if !ok {
		return
	}
	var req UpdateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if validationErrors := middleware.ValidateRequest(req); validationErrors != nil {
		middleware.RespondWithValidationError(c, validationErrors)
		return
	}

	account, err := h.commands.UpdateAccount(c.Request.Context(), cqrs.UpdateAccountCommand{
		AccountID:     id,
		AccountNumber: req.AccountNumber,
		AccountType:   req.AccountType,
		ClientKey:     req.ClientKey,
		State:         req.State,
	})
	if err != nil {
		middleware.RespondWithAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, account)
}

func (h *AccountHandler) DeleteAccount(c *gin.Context) {
	id, ok := parseID(c, "account")
	if !ok {
		return
	}
	if err := h.commands.DeleteAccount(c.Request.Context(), cqrs.DeleteAccountCommand{AccountID: id}); err != nil {
		middleware.RespondWithAppError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func parseID(c *gin.Context, entity string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid "+entity+" id")
		return 0, false
	}
	return id, true
}
