package handlers

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"budgetbook/internal/config"
	"budgetbook/internal/logger"
	"budgetbook/internal/models"
	"budgetbook/internal/pagination"
	"budgetbook/internal/services"
	"budgetbook/internal/testutil"
	"budgetbook/internal/validator"
	"budgetbook/web"
)

// --- mock item store ---

// mockItemStore behaves like an in-memory store unless a function field
// overrides the operation.
type mockItemStore struct {
	items    []models.BudgetItem
	lastID   int
	addFn    func(ctx context.Context, candidate models.ItemCandidate) (models.BudgetItem, error)
	removeFn func(ctx context.Context, id int) (*models.BudgetItem, error)

	added   []models.ItemCandidate
	removed []int
}

func newMockStore(items ...models.BudgetItem) *mockItemStore {
	m := &mockItemStore{items: items}
	for _, item := range items {
		if item.ID > m.lastID {
			m.lastID = item.ID
		}
	}
	return m
}

func (m *mockItemStore) Load(_ context.Context) ([]models.BudgetItem, error) {
	return m.All(), nil
}

func (m *mockItemStore) Add(ctx context.Context, candidate models.ItemCandidate) (models.BudgetItem, error) {
	m.added = append(m.added, candidate)
	if m.addFn != nil {
		return m.addFn(ctx, candidate)
	}
	m.lastID++
	item := models.BudgetItem{
		ID:       m.lastID,
		Date:     testutil.ReferenceTime.Format(config.DefaultDateLayout),
		Name:     candidate.Name,
		Category: candidate.Category,
		Amount:   candidate.Amount,
		Notes:    candidate.Notes,
	}
	m.items = append(m.items, item)
	return item, nil
}

func (m *mockItemStore) Remove(ctx context.Context, id int) (*models.BudgetItem, error) {
	m.removed = append(m.removed, id)
	if m.removeFn != nil {
		return m.removeFn(ctx, id)
	}
	var removed *models.BudgetItem
	kept := m.items[:0]
	for _, item := range m.items {
		if item.ID != id {
			kept = append(kept, item)
			continue
		}
		if removed == nil {
			item := item
			removed = &item
		}
	}
	m.items = kept
	return removed, nil
}

func (m *mockItemStore) All() []models.BudgetItem {
	out := make([]models.BudgetItem, len(m.items))
	copy(out, m.items)
	return out
}

func (m *mockItemStore) FilterByCategory(category string) []models.BudgetItem {
	out := []models.BudgetItem{}
	for _, item := range m.items {
		if item.Category == category {
			out = append(out, item)
		}
	}
	return out
}

func (m *mockItemStore) Total(items []models.BudgetItem) float64 {
	var total float64
	for _, item := range items {
		total += item.Amount.Float64()
	}
	return total
}

func (m *mockItemStore) LastID() int { return m.lastID }

var _ services.ItemStorer = (*mockItemStore)(nil)

// --- mock audit service ---

type auditCall struct {
	action string
	itemID int
}

type mockAuditService struct {
	calls  []auditCall
	listFn func(page pagination.PageRequest) (*pagination.PageResponse[models.AuditLog], error)
}

func (m *mockAuditService) Log(action string, itemID int, _ string, _ map[string]interface{}) {
	m.calls = append(m.calls, auditCall{action: action, itemID: itemID})
}

func (m *mockAuditService) List(page pagination.PageRequest) (*pagination.PageResponse[models.AuditLog], error) {
	if m.listFn != nil {
		return m.listFn(page)
	}
	resp := pagination.NewPageResponse([]models.AuditLog{}, 1, 20, 0)
	return &resp, nil
}

var _ services.AuditServicer = (*mockAuditService)(nil)

// --- test helpers ---

func init() {
	gin.SetMode(gin.TestMode)
	logger.Init("test")
	validator.Register(config.DefaultCategories)
}

func newTestEngine(t *testing.T) *gin.Engine {
	t.Helper()
	tmpl, err := web.Templates(TemplateFuncs())
	if err != nil {
		t.Fatalf("failed to parse templates: %v", err)
	}
	r := gin.New()
	r.SetHTMLTemplate(tmpl)
	return r
}

func doRequest(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func doForm(r *gin.Engine, path string, values url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest("POST", path, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func parseJSON(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var result map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse JSON response: %v\nbody: %s", err, rec.Body.String())
	}
	return result
}

func assertErrorCode(t *testing.T, result map[string]interface{}, code string) {
	t.Helper()
	errObj, ok := result["error"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected error object in response, got: %v", result)
	}
	if errObj["code"] != code {
		t.Errorf("expected error code %q, got %q", code, errObj["code"])
	}
}

// assertOrder fails unless the fragments appear in body in the given order.
func assertOrder(t *testing.T, body string, fragments ...string) {
	t.Helper()
	rest := body
	for _, f := range fragments {
		i := strings.Index(rest, f)
		if i < 0 {
			t.Fatalf("expected %q in order in body", f)
		}
		rest = rest[i+len(f):]
	}
}
