package services

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"budgetbook/internal/models"
	"budgetbook/internal/storage"
	"budgetbook/internal/testutil"
)

// flakyKV wraps a medium and fails reads or writes on demand.
type flakyKV struct {
	storage.KeyValueStore
	getErr   error
	setErr   error
	failKeys map[string]bool
}

func (f *flakyKV) Get(ctx context.Context, key string) (string, bool, error) {
	if f.getErr != nil {
		return "", false, f.getErr
	}
	return f.KeyValueStore.Get(ctx, key)
}

func (f *flakyKV) Set(ctx context.Context, key, value string) error {
	if f.setErr != nil && (f.failKeys == nil || f.failKeys[key]) {
		return f.setErr
	}
	return f.KeyValueStore.Set(ctx, key, value)
}

func newTestStore(t *testing.T, kv storage.KeyValueStore) ItemStorer {
	t.Helper()
	store := NewItemStore(kv, WithClock(testutil.FixedClock(testutil.ReferenceTime)))
	if _, err := store.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	return store
}

func candidate(name, category, amount string) models.ItemCandidate {
	return models.ItemCandidate{Name: name, Category: category, Amount: models.Amount(amount)}
}

func TestItemStore_Add(t *testing.T) {
	ctx := context.Background()

	t.Run("first item gets id 1 and the formatted date", func(t *testing.T) {
		store := newTestStore(t, storage.NewMemory())

		item, err := store.Add(ctx, candidate("Coffee", "Food", "4.50"))
		testutil.AssertNoError(t, err)

		if item.ID != 1 {
			t.Errorf("expected id 1, got %d", item.ID)
		}
		if item.Date != "Oct 19, 2026 3:04 PM" {
			t.Errorf("unexpected date %q", item.Date)
		}
		if got := models.FormatCurrency(store.Total(store.All())); got != "$4.50" {
			t.Errorf("expected total $4.50, got %s", got)
		}
	})

	t.Run("ids strictly increase", func(t *testing.T) {
		store := newTestStore(t, storage.NewMemory())

		prev := 0
		for i := 0; i < 5; i++ {
			item, err := store.Add(ctx, candidate("x", "Other", "1"))
			testutil.AssertNoError(t, err)
			if item.ID <= prev {
				t.Fatalf("expected id greater than %d, got %d", prev, item.ID)
			}
			prev = item.ID
		}
		if store.LastID() != 5 {
			t.Errorf("expected last id 5, got %d", store.LastID())
		}
	})

	t.Run("custom date layout", func(t *testing.T) {
		store := NewItemStore(storage.NewMemory(),
			WithClock(testutil.FixedClock(testutil.ReferenceTime)),
			WithDateLayout(time.RFC3339),
		)
		item, err := store.Add(ctx, candidate("Bus", "Transportation", "2"))
		testutil.AssertNoError(t, err)
		if item.Date != "2026-10-19T15:04:00Z" {
			t.Errorf("unexpected date %q", item.Date)
		}
	})

	t.Run("persists both keys", func(t *testing.T) {
		kv := storage.NewMemory()
		store := newTestStore(t, kv)

		_, err := store.Add(ctx, candidate("Coffee", "Food", "4.50"))
		testutil.AssertNoError(t, err)

		raw, found, _ := kv.Get(ctx, storage.KeyLastID)
		if !found || raw != "1" {
			t.Errorf("expected lastID 1, got %q", raw)
		}
		raw, found, _ = kv.Get(ctx, storage.KeyBudgetItems)
		want := `[{"id":1,"date":"Oct 19, 2026 3:04 PM","name":"Coffee","category":"Food","amount":"4.50","notes":""}]`
		if !found || raw != want {
			t.Errorf("unexpected persisted items:\n got %s\nwant %s", raw, want)
		}
	})

	t.Run("persistence failure leaves memory unchanged", func(t *testing.T) {
		kv := &flakyKV{KeyValueStore: storage.NewMemory()}
		store := newTestStore(t, kv)
		_, err := store.Add(ctx, candidate("Coffee", "Food", "4.50"))
		testutil.AssertNoError(t, err)

		kv.setErr = errors.New("disk full")
		_, err = store.Add(ctx, candidate("Tea", "Food", "3"))
		testutil.AssertAppError(t, err, "STORAGE_UNAVAILABLE")

		if len(store.All()) != 1 {
			t.Errorf("expected 1 item, got %d", len(store.All()))
		}
		if store.LastID() != 1 {
			t.Errorf("expected last id 1, got %d", store.LastID())
		}
	})

	t.Run("concurrent adds never share an id", func(t *testing.T) {
		store := newTestStore(t, storage.NewMemory())

		var wg sync.WaitGroup
		for i := 0; i < 50; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, _ = store.Add(ctx, candidate("x", "Food", "1"))
			}()
		}
		wg.Wait()

		seen := make(map[int]bool)
		for _, item := range store.All() {
			if seen[item.ID] {
				t.Fatalf("duplicate id %d", item.ID)
			}
			seen[item.ID] = true
		}
		if len(seen) != 50 || store.LastID() != 50 {
			t.Errorf("expected 50 items and last id 50, got %d and %d", len(seen), store.LastID())
		}
	})
}

func TestItemStore_Remove(t *testing.T) {
	ctx := context.Background()

	t.Run("removes the item and keeps the counter", func(t *testing.T) {
		store := newTestStore(t, storage.NewMemory())
		item, err := store.Add(ctx, candidate("Movie", "Entertainment", "15"))
		testutil.AssertNoError(t, err)

		removed, err := store.Remove(ctx, item.ID)
		testutil.AssertNoError(t, err)
		if removed == nil || removed.Name != "Movie" {
			t.Fatalf("expected the removed item back, got %+v", removed)
		}

		if len(store.All()) != 0 {
			t.Errorf("expected empty store, got %d items", len(store.All()))
		}
		if got := models.FormatCurrency(store.Total(store.All())); got != "$0.00" {
			t.Errorf("expected $0.00, got %s", got)
		}
		if store.LastID() != 1 {
			t.Errorf("expected last id 1, got %d", store.LastID())
		}

		next, err := store.Add(ctx, candidate("Concert", "Entertainment", "40"))
		testutil.AssertNoError(t, err)
		if next.ID != 2 {
			t.Errorf("expected removed id not to be reused, got %d", next.ID)
		}
	})

	t.Run("unknown id is a no-op", func(t *testing.T) {
		store := newTestStore(t, storage.NewMemory())
		_, _ = store.Add(ctx, candidate("a", "Food", "1"))
		_, _ = store.Add(ctx, candidate("b", "Food", "2"))
		before := store.All()

		removed, err := store.Remove(ctx, 99)
		testutil.AssertNoError(t, err)
		if removed != nil {
			t.Errorf("expected nil for an unknown id, got %+v", removed)
		}

		after := store.All()
		if len(after) != len(before) {
			t.Fatalf("expected %d items, got %d", len(before), len(after))
		}
		for i := range before {
			if before[i] != after[i] {
				t.Errorf("item %d changed: %+v -> %+v", i, before[i], after[i])
			}
		}
	})

	t.Run("keeps relative order", func(t *testing.T) {
		store := newTestStore(t, storage.NewMemory())
		for _, name := range []string{"a", "b", "c"} {
			_, _ = store.Add(ctx, candidate(name, "Food", "1"))
		}
		_, err := store.Remove(ctx, 2)
		testutil.AssertNoError(t, err)

		testutil.AssertItemNames(t, store.All(), "a", "c")
	})

	t.Run("concurrent removes of one id report it once", func(t *testing.T) {
		store := newTestStore(t, storage.NewMemory())
		item, _ := store.Add(ctx, candidate("Movie", "Entertainment", "15"))

		var (
			wg   sync.WaitGroup
			mu   sync.Mutex
			hits int
		)
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				removed, err := store.Remove(ctx, item.ID)
				if err != nil {
					t.Errorf("remove failed: %v", err)
					return
				}
				if removed != nil {
					mu.Lock()
					hits++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()

		if hits != 1 {
			t.Errorf("expected exactly one remove to report the item, got %d", hits)
		}
	})

	t.Run("persistence failure leaves memory unchanged", func(t *testing.T) {
		kv := &flakyKV{KeyValueStore: storage.NewMemory()}
		store := newTestStore(t, kv)
		item, _ := store.Add(ctx, candidate("a", "Food", "1"))

		kv.setErr = errors.New("read-only")
		_, err := store.Remove(ctx, item.ID)
		testutil.AssertAppError(t, err, "STORAGE_UNAVAILABLE")

		if len(store.All()) != 1 {
			t.Errorf("expected item to survive failed remove")
		}
	})
}

func TestItemStore_FilterByCategory(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, storage.NewMemory())
	_, _ = store.Add(ctx, candidate("Groceries", "Food", "10"))
	_, _ = store.Add(ctx, candidate("Train", "Transportation", "20"))
	_, _ = store.Add(ctx, candidate("Lunch", "Food", "5"))

	t.Run("ordered subset", func(t *testing.T) {
		food := store.FilterByCategory("Food")
		testutil.AssertItemNames(t, food, "Groceries", "Lunch")
		if got := models.FormatCurrency(store.Total(food)); got != "$15.00" {
			t.Errorf("expected $15.00, got %s", got)
		}
	})

	t.Run("unknown category is empty", func(t *testing.T) {
		if got := store.FilterByCategory("Travel"); len(got) != 0 {
			t.Errorf("expected empty result, got %+v", got)
		}
	})

	t.Run("match is case sensitive", func(t *testing.T) {
		if got := store.FilterByCategory("food"); len(got) != 0 {
			t.Errorf("expected no match for lower case, got %+v", got)
		}
	})
}

func TestItemStore_Total(t *testing.T) {
	store := NewItemStore(storage.NewMemory())

	t.Run("empty is zero", func(t *testing.T) {
		if store.Total(nil) != 0 {
			t.Errorf("expected 0 for nil")
		}
		if store.Total([]models.BudgetItem{}) != 0 {
			t.Errorf("expected 0 for empty")
		}
	})

	t.Run("sums amounts", func(t *testing.T) {
		items := []models.BudgetItem{
			testutil.NewTestItem(1, "a", "Food", "10"),
			testutil.NewTestItem(2, "b", "Food", "20.25"),
		}
		if got := store.Total(items); got != 30.25 {
			t.Errorf("expected 30.25, got %v", got)
		}
	})

	t.Run("non numeric amount poisons the sum", func(t *testing.T) {
		items := []models.BudgetItem{
			testutil.NewTestItem(1, "a", "Food", "10"),
			testutil.NewTestItem(2, "b", "Food", "ten"),
		}
		if got := store.Total(items); !math.IsNaN(got) {
			t.Errorf("expected NaN, got %v", got)
		}
	})
}

func TestItemStore_Load(t *testing.T) {
	ctx := context.Background()

	t.Run("empty medium", func(t *testing.T) {
		store := NewItemStore(storage.NewMemory())
		items, err := store.Load(ctx)
		testutil.AssertNoError(t, err)
		if len(items) != 0 || store.LastID() != 0 {
			t.Errorf("expected empty state, got %d items, last id %d", len(items), store.LastID())
		}
	})

	t.Run("round trip through a fresh store", func(t *testing.T) {
		kv := storage.NewMemory()
		first := newTestStore(t, kv)
		_, _ = first.Add(ctx, candidate("Groceries", "Food", "10"))
		_, _ = first.Add(ctx, candidate("Train", "Transportation", "20"))
		_, _ = first.Remove(ctx, 1)

		second := NewItemStore(kv)
		items, err := second.Load(ctx)
		testutil.AssertNoError(t, err)

		if len(items) != 1 || items[0] != first.All()[0] {
			t.Errorf("expected reloaded items to match, got %+v", items)
		}
		if second.LastID() != 2 {
			t.Errorf("expected last id 2, got %d", second.LastID())
		}
	})

	t.Run("corrupt items load as empty", func(t *testing.T) {
		for _, raw := range []string{"not json", `{"id":1}`, "[1,2]", "null", ""} {
			kv := storage.NewMemory()
			_ = kv.Set(ctx, storage.KeyBudgetItems, raw)
			_ = kv.Set(ctx, storage.KeyLastID, "4")

			store := NewItemStore(kv)
			items, err := store.Load(ctx)
			testutil.AssertNoError(t, err)
			if len(items) != 0 {
				t.Errorf("%q: expected empty items, got %+v", raw, items)
			}
			if store.LastID() != 4 {
				t.Errorf("%q: expected last id 4, got %d", raw, store.LastID())
			}
		}
	})

	t.Run("last id below the max id is raised", func(t *testing.T) {
		kv := storage.NewMemory()
		testutil.SeedItems(t, kv, 1,
			testutil.NewTestItem(3, "a", "Food", "1"),
			testutil.NewTestItem(7, "b", "Food", "2"),
		)

		store := NewItemStore(kv)
		_, err := store.Load(ctx)
		testutil.AssertNoError(t, err)
		if store.LastID() != 7 {
			t.Errorf("expected last id 7, got %d", store.LastID())
		}

		item, err := store.Add(ctx, candidate("c", "Food", "3"))
		testutil.AssertNoError(t, err)
		if item.ID != 8 {
			t.Errorf("expected id 8, got %d", item.ID)
		}
	})

	t.Run("malformed last id is recomputed", func(t *testing.T) {
		kv := storage.NewMemory()
		testutil.SeedItems(t, kv, 0, testutil.NewTestItem(2, "a", "Food", "1"))
		_ = kv.Set(ctx, storage.KeyLastID, "NaN")

		store := NewItemStore(kv)
		_, err := store.Load(ctx)
		testutil.AssertNoError(t, err)
		if store.LastID() != 2 {
			t.Errorf("expected last id 2, got %d", store.LastID())
		}
	})

	t.Run("string ids are parsed", func(t *testing.T) {
		kv := storage.NewMemory()
		_ = kv.Set(ctx, storage.KeyBudgetItems, `[`+
			`{"id":1,"date":"x","name":"Rent","category":"Utilities","amount":"900","notes":""},`+
			`{"id":"2","date":"x","name":"Coffee","category":"Food","amount":"4.50","notes":""}]`)
		_ = kv.Set(ctx, storage.KeyLastID, "2")

		store := NewItemStore(kv)
		items, err := store.Load(ctx)
		testutil.AssertNoError(t, err)
		testutil.AssertItemNames(t, items, "Rent", "Coffee")
		if items[1].ID != 2 {
			t.Errorf("expected id 2, got %d", items[1].ID)
		}

		removed, err := store.Remove(ctx, 2)
		testutil.AssertNoError(t, err)
		if removed == nil {
			t.Error("expected the string-id item to be removable")
		}
	})

	t.Run("unusable entries are skipped, the rest survive", func(t *testing.T) {
		kv := storage.NewMemory()
		_ = kv.Set(ctx, storage.KeyBudgetItems, `[null,`+
			`{"id":1,"date":"x","name":"Rent","category":"Utilities","amount":"900","notes":""},`+
			`{"name":"No id","amount":"1"},`+
			`{"id":"three","name":"Bad id","amount":"1"},`+
			`{"id":0,"name":"Zero","amount":"1"},`+
			`7,`+
			`{"id":5,"date":"x","name":"Train","category":"Transportation","amount":"20","notes":""}]`)

		store := NewItemStore(kv)
		items, err := store.Load(ctx)
		testutil.AssertNoError(t, err)
		testutil.AssertItemNames(t, items, "Rent", "Train")
		if got := models.FormatCurrency(store.Total(items)); got != "$920.00" {
			t.Errorf("expected $920.00, got %s", got)
		}
		if store.LastID() != 5 {
			t.Errorf("expected last id 5, got %d", store.LastID())
		}
	})

	t.Run("numeric amounts from older state", func(t *testing.T) {
		kv := storage.NewMemory()
		_ = kv.Set(ctx, storage.KeyBudgetItems, `[{"id":1,"date":"x","name":"Rent","category":"Utilities","amount":900,"notes":""}]`)

		store := NewItemStore(kv)
		items, err := store.Load(ctx)
		testutil.AssertNoError(t, err)
		if len(items) != 1 || store.Total(items) != 900 {
			t.Errorf("expected one item totalling 900, got %+v", items)
		}
	})

	t.Run("medium failure is reported", func(t *testing.T) {
		kv := &flakyKV{KeyValueStore: storage.NewMemory(), getErr: errors.New("connection refused")}
		store := NewItemStore(kv)
		_, err := store.Load(ctx)
		testutil.AssertAppError(t, err, "STORAGE_UNAVAILABLE")
	})

	t.Run("items written before a failed counter write survive reload", func(t *testing.T) {
		kv := &flakyKV{KeyValueStore: storage.NewMemory()}
		store := newTestStore(t, kv)
		_, _ = store.Add(ctx, candidate("a", "Food", "1"))

		kv.setErr = errors.New("timeout")
		kv.failKeys = map[string]bool{storage.KeyLastID: true}
		_, err := store.Add(ctx, candidate("b", "Food", "2"))
		testutil.AssertAppError(t, err, "STORAGE_UNAVAILABLE")

		reloaded := NewItemStore(kv)
		items, err := reloaded.Load(ctx)
		testutil.AssertNoError(t, err)
		if reloaded.LastID() < items[len(items)-1].ID {
			t.Errorf("last id %d fell behind stored id %d", reloaded.LastID(), items[len(items)-1].ID)
		}
	})
}

func TestItemStore_DatabaseMedium(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	ctx := context.Background()

	kv := storage.NewDatabase(db)
	store := newTestStore(t, kv)
	_, err := store.Add(ctx, candidate("Groceries", "Food", "10"))
	testutil.AssertNoError(t, err)
	_, err = store.Add(ctx, candidate("Train", "Transportation", "20"))
	testutil.AssertNoError(t, err)

	reloaded := NewItemStore(storage.NewDatabase(db))
	items, err := reloaded.Load(ctx)
	testutil.AssertNoError(t, err)
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	if got := models.FormatCurrency(reloaded.Total(reloaded.FilterByCategory("Food"))); got != "$10.00" {
		t.Errorf("expected $10.00, got %s", got)
	}
	if got := models.FormatCurrency(reloaded.Total(reloaded.All())); got != "$30.00" {
		t.Errorf("expected $30.00, got %s", got)
	}
}
