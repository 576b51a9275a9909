package handlers

import (
	"fmt"
	"html/template"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	apperrors "budgetbook/internal/errors"
	"budgetbook/internal/models"
	"budgetbook/internal/services"
)

const (
	pageTemplate    = "index.html"
	partialTemplate = "items_partial.html"
)

// BudgetItemHandler renders the budget page and turns its form submissions,
// filter changes and delete clicks into store operations.
type BudgetItemHandler struct {
	store        services.ItemStorer
	auditService services.AuditServicer
	categories   []string
}

// NewBudgetItemHandler creates a new BudgetItemHandler.
func NewBudgetItemHandler(store services.ItemStorer, auditService services.AuditServicer, categories []string) *BudgetItemHandler {
	return &BudgetItemHandler{
		store:        store,
		auditService: auditService,
		categories:   categories,
	}
}

// TemplateFuncs returns the helpers the page templates rely on.
func TemplateFuncs() template.FuncMap {
	return template.FuncMap{
		"exportURL": exportURL,
	}
}

func exportURL(category string) string {
	if category == "" {
		return "/items/export"
	}
	return "/items/export?category=" + url.QueryEscape(category)
}

// itemForm carries the add form fields after trimming.
type itemForm struct {
	Name     string `form:"name" binding:"required"`
	Category string `form:"category" binding:"required,budget_category"`
	Amount   string `form:"amount" binding:"required,amount"`
	Notes    string `form:"notes"`
}

type itemRow struct {
	ID       int
	Date     string
	Name     string
	Category string
	Amount   string
	Notes    string
}

type pageView struct {
	Categories []string
	Selected   string
	Rows       []itemRow
	Total      string
	Alert      string
	Form       itemForm
	ShowForm   bool
}

// selection returns the items shown for category; empty means all of them.
func (h *BudgetItemHandler) selection(category string) []models.BudgetItem {
	if category == "" {
		return h.store.All()
	}
	return h.store.FilterByCategory(category)
}

// view builds the table rows newest first, with the total over exactly
// those rows.
func (h *BudgetItemHandler) view(category string) pageView {
	items := h.selection(category)

	rows := make([]itemRow, 0, len(items))
	for i := len(items) - 1; i >= 0; i-- {
		item := items[i]
		rows = append(rows, itemRow{
			ID:       item.ID,
			Date:     item.Date,
			Name:     item.Name,
			Category: item.Category,
			Amount:   item.Amount.Display(),
			Notes:    item.Notes,
		})
	}

	return pageView{
		Categories: h.categories,
		Selected:   category,
		Rows:       rows,
		Total:      models.FormatCurrency(h.store.Total(items)),
	}
}

// renderError shows the page with the error as its alert.
func (h *BudgetItemHandler) renderError(c *gin.Context, err error) {
	appErr := asAppError(c, err)
	v := h.view("")
	v.Alert = appErr.Message
	c.HTML(appErr.StatusCode, pageTemplate, v)
}

// Index renders the full page.
func (h *BudgetItemHandler) Index(c *gin.Context) {
	v := h.view(c.Query("category"))
	v.ShowForm = c.Query("form") == "open"
	c.HTML(http.StatusOK, pageTemplate, v)
}

// CreateItem validates the add form and stores the item.
func (h *BudgetItemHandler) CreateItem(c *gin.Context) {
	form := itemForm{
		Name:     sanitizeInput(c.PostForm("name")),
		Category: sanitizeInput(c.PostForm("category")),
		Amount:   sanitizeInput(c.PostForm("amount")),
		Notes:    sanitizeInput(c.PostForm("notes")),
	}

	if err := binding.Validator.ValidateStruct(&form); err != nil {
		v := h.view("")
		v.Alert = apperrors.ErrValidation.Message
		v.Form = form
		v.ShowForm = true
		c.HTML(apperrors.ErrValidation.StatusCode, pageTemplate, v)
		return
	}

	item, err := h.store.Add(c.Request.Context(), models.ItemCandidate{
		Name:     form.Name,
		Category: form.Category,
		Amount:   models.Amount(form.Amount),
		Notes:    form.Notes,
	})
	if err != nil {
		h.renderError(c, err)
		return
	}

	h.auditService.Log(models.AuditActionCreateItem, item.ID, c.ClientIP(), map[string]interface{}{
		"name":     item.Name,
		"category": item.Category,
		"amount":   string(item.Amount),
	})

	c.Redirect(http.StatusSeeOther, "/")
}

// ItemsTable renders only the table body and total for the filter.
func (h *BudgetItemHandler) ItemsTable(c *gin.Context) {
	c.HTML(http.StatusOK, partialTemplate, h.view(c.Query("category")))
}

// DeleteItem handles the form-based delete and sends the browser back to
// the unfiltered page.
func (h *BudgetItemHandler) DeleteItem(c *gin.Context) {
	if err := h.remove(c); err != nil {
		h.renderError(c, err)
		return
	}
	c.Redirect(http.StatusSeeOther, "/")
}

// RemoveItem handles the scripted delete and answers with the full-list
// partial, so the filter resets to "Show All".
func (h *BudgetItemHandler) RemoveItem(c *gin.Context) {
	if err := h.remove(c); err != nil {
		appErr := asAppError(c, err)
		c.String(appErr.StatusCode, appErr.Message)
		return
	}
	c.HTML(http.StatusOK, partialTemplate, h.view(""))
}

func (h *BudgetItemHandler) remove(c *gin.Context) error {
	id, err := parsePathID(c, "id")
	if err != nil {
		return err
	}
	return removeAndAudit(c, h.store, h.auditService, id)
}

// removeAndAudit deletes id and records the removal when it matched an item.
func removeAndAudit(c *gin.Context, store services.ItemStorer, auditService services.AuditServicer, id int) error {
	removed, err := store.Remove(c.Request.Context(), id)
	if err != nil {
		return err
	}

	if removed != nil {
		auditService.Log(models.AuditActionDeleteItem, id, c.ClientIP(), map[string]interface{}{
			"name":     removed.Name,
			"category": removed.Category,
			"amount":   string(removed.Amount),
		})
	}
	return nil
}

// ExportItems downloads the rendered selection as a spreadsheet.
func (h *BudgetItemHandler) ExportItems(c *gin.Context) {
	category := c.Query("category")
	items := h.selection(category)

	f, err := buildWorkbook(items, h.store.Total(items))
	if err != nil {
		h.renderError(c, apperrors.Wrap(apperrors.ErrInternalServer, err))
		return
	}
	defer f.Close()

	name := "budget"
	if category != "" {
		name += "_" + category
	}

	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name+".xlsx"))

	if err := f.Write(c.Writer); err != nil {
		asAppError(c, apperrors.Wrap(apperrors.ErrInternalServer, err))
	}
}
