package handlers

import (
	"math"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	apperrors "budgetbook/internal/errors"
	"budgetbook/internal/models"
	"budgetbook/internal/pagination"
	"budgetbook/internal/services"
)

// ItemAPIHandler exposes the budget item store over JSON.
type ItemAPIHandler struct {
	store        services.ItemStorer
	auditService services.AuditServicer
	categories   []string
}

// NewItemAPIHandler creates a new ItemAPIHandler.
func NewItemAPIHandler(store services.ItemStorer, auditService services.AuditServicer, categories []string) *ItemAPIHandler {
	return &ItemAPIHandler{
		store:        store,
		auditService: auditService,
		categories:   categories,
	}
}

// CreateItemRequest represents the request payload for adding a budget item
type CreateItemRequest struct {
	Name     string        `json:"name" binding:"required" example:"Coffee"`
	Category string        `json:"category" binding:"required,budget_category" example:"Food"`
	Amount   models.Amount `json:"amount" binding:"required,amount" swaggertype:"string" example:"4.50"`
	Notes    string        `json:"notes" example:"Flat white"`
}

func (r *CreateItemRequest) sanitize() {
	r.Name = sanitizeInput(r.Name)
	r.Category = sanitizeInput(r.Category)
	r.Amount = models.Amount(sanitizeInput(string(r.Amount)))
	r.Notes = sanitizeInput(r.Notes)
}

// ListItemsQuery holds the filter and page of a list request.
type ListItemsQuery struct {
	pagination.PageRequest
	Category string `form:"category"`
}

// ItemListResponse is a page of items, newest first, with the total over
// the whole filtered selection.
type ItemListResponse struct {
	pagination.PageResponse[models.BudgetItem]
	// Total is null when an amount in the selection is not a number.
	Total          *float64 `json:"total"`
	TotalFormatted string   `json:"total_formatted" example:"$30.00"`
	LastID         int      `json:"last_id"`
}

// ItemResponse wraps a single item.
type ItemResponse struct {
	Item models.BudgetItem `json:"item"`
}

// CategoriesResponse lists the category enumeration.
type CategoriesResponse struct {
	Categories []string `json:"categories"`
}

// ListItems handles listing budget items
// @Summary     List budget items
// @Description Newest first, optionally filtered by exact category
// @Tags        items
// @Produce     json
// @Param       category  query string false "Category filter"
// @Param       page      query int    false "Page number"
// @Param       page_size query int    false "Items per page"
// @Success     200 {object} ItemListResponse
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Router      /items [get]
func (h *ItemAPIHandler) ListItems(c *gin.Context) {
	var q ListItemsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	var items []models.BudgetItem
	if q.Category == "" {
		items = h.store.All()
	} else {
		items = h.store.FilterByCategory(q.Category)
	}
	total := h.store.Total(items)

	newestFirst := make([]models.BudgetItem, len(items))
	for i, item := range items {
		newestFirst[len(items)-1-i] = item
	}

	resp := ItemListResponse{
		PageResponse:   pagination.Slice(newestFirst, q.PageRequest),
		TotalFormatted: models.FormatCurrency(total),
		LastID:         h.store.LastID(),
	}
	if !math.IsNaN(total) && !math.IsInf(total, 0) {
		resp.Total = &total
	}

	c.JSON(http.StatusOK, resp)
}

// CreateItem handles adding a budget item
// @Summary     Add a budget item
// @Description The id and date are assigned by the server
// @Tags        items
// @Accept      json
// @Produce     json
// @Param       request body CreateItemRequest true "Item details"
// @Success     201 {object} ItemResponse "Item created"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     503 {object} ErrorResponse "Storage unavailable"
// @Router      /items [post]
func (h *ItemAPIHandler) CreateItem(c *gin.Context) {
	var req CreateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}
	req.sanitize()
	if err := binding.Validator.ValidateStruct(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	item, err := h.store.Add(c.Request.Context(), models.ItemCandidate{
		Name:     req.Name,
		Category: req.Category,
		Amount:   req.Amount,
		Notes:    req.Notes,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(models.AuditActionCreateItem, item.ID, c.ClientIP(), map[string]interface{}{
		"name":     item.Name,
		"category": item.Category,
		"amount":   string(item.Amount),
	})

	c.JSON(http.StatusCreated, ItemResponse{Item: item})
}

// DeleteItem handles removing a budget item
// @Summary     Delete a budget item
// @Description Unknown ids are accepted and change nothing
// @Tags        items
// @Produce     json
// @Param       id path int true "Item ID"
// @Success     200 {object} MessageResponse
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     503 {object} ErrorResponse "Storage unavailable"
// @Router      /items/{id} [delete]
func (h *ItemAPIHandler) DeleteItem(c *gin.Context) {
	id, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := removeAndAudit(c, h.store, h.auditService, id); err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "Budget item deleted"})
}

// ListCategories returns the configured categories
// @Summary     List categories
// @Tags        items
// @Produce     json
// @Success     200 {object} CategoriesResponse
// @Router      /categories [get]
func (h *ItemAPIHandler) ListCategories(c *gin.Context) {
	c.JSON(http.StatusOK, CategoriesResponse{Categories: h.categories})
}

// ListActivity returns the activity log
// @Summary     List activity
// @Description Adds and deletes, newest first
// @Tags        activity
// @Produce     json
// @Param       page      query int false "Page number"
// @Param       page_size query int false "Items per page"
// @Success     200 {object} pagination.PageResponse[models.AuditLog]
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /activity [get]
func (h *ItemAPIHandler) ListActivity(c *gin.Context) {
	var page pagination.PageRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	resp, err := h.auditService.List(page)
	if err != nil {
		// rendered by middleware.ErrorHandler
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
