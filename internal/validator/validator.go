// Package validator provides custom validation functions for Gin's binding engine.
package validator

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// amountRegex accepts plain decimal text as typed into a number input:
// digits with an optional fraction and exponent, no sign, no hex.
var amountRegex = regexp.MustCompile(`^(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?$`)

var (
	mu         sync.RWMutex
	categories = map[string]bool{}
)

// Register registers all custom validators with the Gin binding engine and
// sets the category enumeration accepted by "budget_category".
func Register(allowed []string) {
	SetCategories(allowed)
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("budget_category", validateCategory)
		_ = v.RegisterValidation("amount", validateAmount)
	}
}

// SetCategories replaces the category enumeration.
func SetCategories(allowed []string) {
	set := make(map[string]bool, len(allowed))
	for _, c := range allowed {
		set[c] = true
	}
	mu.Lock()
	categories = set
	mu.Unlock()
}

// IsCategory reports whether c belongs to the configured enumeration.
func IsCategory(c string) bool {
	mu.RLock()
	defer mu.RUnlock()
	return categories[c]
}

// IsAmount reports whether s is a finite, non-negative decimal number.
func IsAmount(s string) bool {
	s = strings.TrimSpace(s)
	if !amountRegex.MatchString(s) {
		return false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return false
	}
	return !math.IsInf(v, 0) && !math.IsNaN(v) && v >= 0
}

func validateCategory(fl validator.FieldLevel) bool {
	return IsCategory(fl.Field().String())
}

func validateAmount(fl validator.FieldLevel) bool {
	return IsAmount(fl.Field().String())
}
