package services

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"budgetbook/internal/config"
	apperrors "budgetbook/internal/errors"
	"budgetbook/internal/logger"
	"budgetbook/internal/models"
	"budgetbook/internal/storage"
)

// itemStore keeps budget items in memory and mirrors them to a key-value
// medium under storage.KeyBudgetItems and storage.KeyLastID.
type itemStore struct {
	mu     sync.Mutex
	kv     storage.KeyValueStore
	now    func() time.Time
	layout string
	log    *zap.SugaredLogger

	items  []models.BudgetItem
	lastID int
}

// ItemStoreOption customizes NewItemStore.
type ItemStoreOption func(*itemStore)

// WithClock sets the source of item creation times.
func WithClock(now func() time.Time) ItemStoreOption {
	return func(s *itemStore) { s.now = now }
}

// WithDateLayout sets the Go time layout used for the item date.
func WithDateLayout(layout string) ItemStoreOption {
	return func(s *itemStore) {
		if layout != "" {
			s.layout = layout
		}
	}
}

// NewItemStore creates an empty ItemStorer over kv. Call Load to pick up
// previously persisted state.
func NewItemStore(kv storage.KeyValueStore, opts ...ItemStoreOption) ItemStorer {
	s := &itemStore{
		kv:     kv,
		now:    time.Now,
		layout: config.DefaultDateLayout,
		log:    logger.Named("item_store"),
		items:  []models.BudgetItem{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load reads both keys and replaces the in-memory state.
func (s *itemStore) Load(ctx context.Context) ([]models.BudgetItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rawItems, found, err := s.kv.Get(ctx, storage.KeyBudgetItems)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStorage, err)
	}
	items := s.decodeItems(rawItems, found)

	rawLastID, found, err := s.kv.Get(ctx, storage.KeyLastID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStorage, err)
	}
	lastID := s.decodeLastID(rawLastID, found)

	// the counter must never fall behind an id that is already taken
	for _, item := range items {
		if item.ID > lastID {
			lastID = item.ID
		}
	}

	s.items = items
	s.lastID = lastID
	s.log.Infow("budget items loaded", "count", len(items), "last_id", lastID)

	return cloneItems(items), nil
}

// decodeItems parses the persisted list entry by entry. An entry that cannot
// be decoded, or that has no usable id, is skipped so the rest survive.
func (s *itemStore) decodeItems(raw string, found bool) []models.BudgetItem {
	if !found || strings.TrimSpace(raw) == "" {
		return []models.BudgetItem{}
	}
	var entries []json.RawMessage
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		s.log.Warnw("persisted budget items are malformed, starting empty", "error", err)
		return []models.BudgetItem{}
	}

	items := make([]models.BudgetItem, 0, len(entries))
	for i, entry := range entries {
		var item models.BudgetItem
		if err := json.Unmarshal(entry, &item); err != nil {
			s.log.Warnw("skipping malformed budget item", "index", i, "error", err)
			continue
		}
		if item.ID < 1 {
			s.log.Warnw("skipping budget item without a valid id", "index", i, "id", item.ID)
			continue
		}
		items = append(items, item)
	}
	return items
}

func (s *itemStore) decodeLastID(raw string, found bool) int {
	if !found {
		return 0
	}
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 0 {
		s.log.Warnw("persisted last id is malformed, recomputing", "value", raw)
		return 0
	}
	return n
}

// Add assigns the next id and the current date, then persists.
func (s *itemStore) Add(ctx context.Context, candidate models.ItemCandidate) (models.BudgetItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item := models.BudgetItem{
		ID:       s.lastID + 1,
		Date:     s.now().Format(s.layout),
		Name:     candidate.Name,
		Category: candidate.Category,
		Amount:   candidate.Amount,
		Notes:    candidate.Notes,
	}

	next := make([]models.BudgetItem, len(s.items), len(s.items)+1)
	copy(next, s.items)
	next = append(next, item)

	if err := s.persist(ctx, next, item.ID); err != nil {
		return models.BudgetItem{}, err
	}

	s.items = next
	s.lastID = item.ID
	s.log.Infow("budget item added", "id", item.ID, "category", item.Category, "amount", string(item.Amount))

	return item, nil
}

// Remove drops every item carrying id and returns the first one dropped.
// The counter is left untouched.
func (s *itemStore) Remove(ctx context.Context, id int) (*models.BudgetItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var removed *models.BudgetItem
	next := make([]models.BudgetItem, 0, len(s.items))
	for _, item := range s.items {
		if item.ID != id {
			next = append(next, item)
			continue
		}
		if removed == nil {
			item := item
			removed = &item
		}
	}

	if removed == nil {
		s.log.Debugw("remove of unknown budget item", "id", id)
		return nil, nil
	}

	if err := s.persist(ctx, next, s.lastID); err != nil {
		return nil, err
	}

	s.items = next
	s.log.Infow("budget item removed", "id", id)

	return removed, nil
}

// persist writes the item list before the counter. If the second write
// fails, Load still recovers a counter at least as large as any stored id.
func (s *itemStore) persist(ctx context.Context, items []models.BudgetItem, lastID int) error {
	data, err := json.Marshal(items)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if err := s.kv.Set(ctx, storage.KeyBudgetItems, string(data)); err != nil {
		s.log.Errorw("failed to persist budget items", "error", err)
		return apperrors.Wrap(apperrors.ErrStorage, err)
	}
	if err := s.kv.Set(ctx, storage.KeyLastID, strconv.Itoa(lastID)); err != nil {
		s.log.Errorw("failed to persist last id", "error", err, "last_id", lastID)
		return apperrors.Wrap(apperrors.ErrStorage, err)
	}
	return nil
}

// All returns a copy of the items in insertion order.
func (s *itemStore) All() []models.BudgetItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneItems(s.items)
}

// FilterByCategory returns the items whose category matches exactly.
func (s *itemStore) FilterByCategory(category string) []models.BudgetItem {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []models.BudgetItem{}
	for _, item := range s.items {
		if item.Category == category {
			out = append(out, item)
		}
	}
	return out
}

// Total sums the amounts of items. A non-numeric amount makes the result NaN.
func (s *itemStore) Total(items []models.BudgetItem) float64 {
	var total float64
	for _, item := range items {
		total += item.Amount.Float64()
	}
	return total
}

// LastID returns the highest id ever assigned.
func (s *itemStore) LastID() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastID
}

func cloneItems(items []models.BudgetItem) []models.BudgetItem {
	out := make([]models.BudgetItem, len(items))
	copy(out, items)
	return out
}
