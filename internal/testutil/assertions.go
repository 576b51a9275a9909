package testutil

import (
	"errors"
	"testing"

	apperrors "budgetbook/internal/errors"
	"budgetbook/internal/models"
)

// AssertAppError checks that err is an *AppError with the expected error code.
func AssertAppError(t *testing.T, err error, expectedCode string) {
	t.Helper()

	if err == nil {
		t.Fatalf("expected AppError with code %q, got nil", expectedCode)
	}

	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("expected *AppError, got %T: %v", err, err)
	}

	if appErr.Code != expectedCode {
		t.Errorf("expected error code %q, got %q (message: %s)", expectedCode, appErr.Code, appErr.Message)
	}
}

// AssertNoError fails the test if err is not nil.
func AssertNoError(t *testing.T, err error) {
	t.Helper()

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertItemNames checks the item sequence by name, in order.
func AssertItemNames(t *testing.T, items []models.BudgetItem, want ...string) {
	t.Helper()

	if len(items) != len(want) {
		t.Fatalf("expected %d items %v, got %d: %+v", len(want), want, len(items), items)
	}
	for i, item := range items {
		if item.Name != want[i] {
			t.Errorf("item %d: expected %q, got %q", i, want[i], item.Name)
		}
	}
}
