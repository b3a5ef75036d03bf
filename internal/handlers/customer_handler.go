package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/Kjdragan/codescribe/internal/logger"
	"github.com/Kjdragan/codescribe/internal/models"
	"github.com/Kjdragan/codescribe/internal/notifier"
	"github.com/Kjdragan/codescribe/internal/store"
)

// CustomerService is what the handlers need from store.CustomerStore.
type CustomerService interface {
	Create(ctx context.Context, email, fullName, bio string) (*models.Customer, error)
	GetByEmail(ctx context.Context, email string) (*models.Customer, error)
	UpdateByEmail(ctx context.Context, email, fullName, bio string) (int64, error)
	DeleteByEmail(ctx context.Context, email string) (int64, error)
}

type CustomerHandler struct {
	customers CustomerService
	notifier  notifier.Notifier
	log       zerolog.Logger
}

func NewCustomerHandler(customers CustomerService, n notifier.Notifier) *CustomerHandler {
	if n == nil {
		n = notifier.Nop{}
	}
	return &CustomerHandler{
		customers: customers,
		notifier:  n,
		log:       logger.Component("handlers"),
	}
}

type CreateCustomerRequest struct {
	Email    string `json:"email" binding:"required"`
	FullName string `json:"full_name" binding:"required"`
	Bio      string `json:"bio" binding:"required"`
}

type UpdateCustomerRequest struct {
	FullName string `json:"full_name" binding:"required"`
	Bio      string `json:"bio" binding:"required"`
}

// POST /api/customers
func (h *CustomerHandler) Create(c *gin.Context) {
	var req CreateCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		CustomerOperationsTotal.WithLabelValues("create", "invalid").Inc()
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	customer, err := h.customers.Create(c.Request.Context(), req.Email, req.FullName, req.Bio)
	if errors.Is(err, store.ErrDuplicateEmail) {
		CustomerOperationsTotal.WithLabelValues("create", "conflict").Inc()
		c.JSON(http.StatusConflict, gin.H{"error": store.ErrDuplicateEmail.Error()})
		return
	}
	if err != nil {
		h.fail(c, "create", err)
		return
	}

	h.notifier.CustomerCreated(c.Request.Context(), customer)
	CustomerOperationsTotal.WithLabelValues("create", "ok").Inc()
	c.JSON(http.StatusCreated, customer)
}

// GET /api/customers/:email
func (h *CustomerHandler) Get(c *gin.Context) {
	customer, err := h.customers.GetByEmail(c.Request.Context(), c.Param("email"))
	if err != nil {
		h.fail(c, "get", err)
		return
	}
	if customer == nil {
		CustomerOperationsTotal.WithLabelValues("get", "not_found").Inc()
		c.JSON(http.StatusNotFound, gin.H{"error": "customer not found"})
		return
	}

	CustomerOperationsTotal.WithLabelValues("get", "ok").Inc()
	c.JSON(http.StatusOK, customer)
}

// PUT /api/customers/:email
func (h *CustomerHandler) Update(c *gin.Context) {
	var req UpdateCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		CustomerOperationsTotal.WithLabelValues("update", "invalid").Inc()
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	email := c.Param("email")
	n, err := h.customers.UpdateByEmail(c.Request.Context(), email, req.FullName, req.Bio)
	if err != nil {
		h.fail(c, "update", err)
		return
	}

	CustomerOperationsTotal.WithLabelValues("update", "ok").Inc()
	c.JSON(http.StatusOK, gin.H{"email": email, "rows_affected": n})
}

// DELETE /api/customers/:email
func (h *CustomerHandler) Delete(c *gin.Context) {
	email := c.Param("email")
	n, err := h.customers.DeleteByEmail(c.Request.Context(), email)
	if err != nil {
		h.fail(c, "delete", err)
		return
	}

	CustomerOperationsTotal.WithLabelValues("delete", "ok").Inc()
	c.JSON(http.StatusOK, gin.H{"email": email, "rows_affected": n})
}

func (h *CustomerHandler) fail(c *gin.Context, op string, err error) {
	CustomerOperationsTotal.WithLabelValues(op, "error").Inc()
	h.log.Error().Err(err).Str("operation", op).Msg("customer operation failed")
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
}
