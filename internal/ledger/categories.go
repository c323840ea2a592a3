package ledger

import (
	"fmt"
	"strings"

	"github.com/Veraticus/purse/internal/common"
	"github.com/Veraticus/purse/internal/model"
	"github.com/shopspring/decimal"
)

const maxCategoryNameLength = 100

func validateCategoryName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("%w: name cannot be empty", common.ErrInvalidCategoryName)
	}
	if len(name) > maxCategoryNameLength {
		return "", fmt.Errorf("%w: name exceeds %d characters", common.ErrInvalidCategoryName, maxCategoryNameLength)
	}
	return name, nil
}

// CreateCategory registers a new category. It returns false without error when
// the name is already taken.
func CreateCategory(w *model.Wallet, name string, limit decimal.Decimal) (bool, error) {
	name, err := validateCategoryName(name)
	if err != nil {
		return false, err
	}
	limit, err = normalizeLimit(limit)
	if err != nil {
		return false, err
	}
	if w.Categories.Has(name) {
		return false, nil
	}

	w.Categories.Put(model.Category{Name: name, BudgetLimit: limit})
	return true, nil
}

// SetBudgetLimit replaces the limit of an existing category. A limit that current
// spending already exceeds is accepted with a limit_already_exceeded advisory.
func SetBudgetLimit(w *model.Wallet, name string, limit decimal.Decimal) ([]model.Advisory, error) {
	name = strings.TrimSpace(name)
	limit, err := normalizeLimit(limit)
	if err != nil {
		return nil, err
	}
	cat, ok := w.Categories.Get(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", common.ErrCategoryNotFound, name)
	}

	cat.BudgetLimit = limit
	w.Categories.Put(cat)

	spent := ExpenseByCategory(w, name)
	if limit.IsPositive() && spent.GreaterThan(limit) {
		return []model.Advisory{{
			Code:     model.AdvisoryLimitExceeded,
			Severity: model.SeverityWarning,
			Category: name,
			Message: fmt.Sprintf("current spending in %q (%s) already exceeds the new limit %s",
				name, model.FormatAmount(spent), model.FormatAmount(limit)),
		}}, nil
	}
	return nil, nil
}

// EditCategory renames oldName to newName and sets its limit. Every transaction
// under oldName moves to newName. It returns how many transactions were rewritten.
func EditCategory(w *model.Wallet, oldName, newName string, limit decimal.Decimal) (int, error) {
	oldName = strings.TrimSpace(oldName)
	newName, err := validateCategoryName(newName)
	if err != nil {
		return 0, err
	}
	limit, err = normalizeLimit(limit)
	if err != nil {
		return 0, err
	}
	cat, ok := w.Categories.Get(oldName)
	if !ok {
		return 0, fmt.Errorf("%w: %q", common.ErrCategoryNotFound, oldName)
	}
	if newName != oldName {
		if model.IsProtected(oldName) {
			return 0, fmt.Errorf("%w: %q cannot be renamed", common.ErrProtectedCategory, oldName)
		}
		if w.Categories.Has(newName) {
			return 0, fmt.Errorf("%w: %q", common.ErrDuplicateCategory, newName)
		}
	}

	renamed := 0
	if newName != oldName {
		renamed = w.ReassignCategory(oldName, newName)
		w.Categories.Rename(oldName, newName)
	}
	cat.Name = newName
	cat.BudgetLimit = limit
	w.Categories.Put(cat)

	return renamed, nil
}

// DeleteCategory removes name, moving its transactions to the fallback category.
// It returns how many transactions were reassigned.
func DeleteCategory(w *model.Wallet, name string) (int, error) {
	name = strings.TrimSpace(name)
	if !w.Categories.Has(name) {
		return 0, fmt.Errorf("%w: %q", common.ErrCategoryNotFound, name)
	}
	if name == model.FallbackCategory {
		return 0, fmt.Errorf("%w: %q receives reassigned transactions", common.ErrProtectedCategory, name)
	}
	if !w.Categories.Has(model.FallbackCategory) {
		w.Categories.Put(model.Category{Name: model.FallbackCategory})
	}

	moved := w.ReassignCategory(name, model.FallbackCategory)
	w.Categories.Delete(name)
	return moved, nil
}

// ReassignedAdvisory describes a deletion that moved transactions.
func ReassignedAdvisory(name string, moved int) []model.Advisory {
	if moved == 0 {
		return nil
	}
	return []model.Advisory{{
		Code:     model.AdvisoryReassigned,
		Severity: model.SeverityInfo,
		Category: name,
		Message: fmt.Sprintf("%d transaction(s) from %q moved to %q",
			moved, name, model.FallbackCategory),
	}}
}
