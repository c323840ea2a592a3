package model

import "github.com/shopspring/decimal"

// Category names every new wallet starts with.
const (
	// FallbackCategory receives the transactions of a deleted category.
	FallbackCategory = "Other"
	// TransfersCategory records both legs of a transfer between users.
	TransfersCategory = "Transfers"
)

// DefaultCategoryNames is the fixed category set of a fresh wallet, in registry order.
var DefaultCategoryNames = []string{
	"Food",
	"Transport",
	"Entertainment",
	"Health",
	"Education",
	"Clothing",
	"Housing",
	"Communication",
	TransfersCategory,
	"Salary",
	FallbackCategory,
}

// Category is a named budget bucket. A zero BudgetLimit means unlimited.
type Category struct {
	BudgetLimit decimal.Decimal
	Name        string
}

// HasLimit reports whether the category carries a spending limit.
func (c Category) HasLimit() bool {
	return c.BudgetLimit.IsPositive()
}

// IsProtected reports whether the category cannot be renamed.
func IsProtected(name string) bool {
	return name == FallbackCategory || name == TransfersCategory
}

// CategoryRegistry is an insertion-ordered set of categories keyed by name.
// The zero value is an empty registry ready for use.
type CategoryRegistry struct {
	index map[string]int
	items []Category
}

// NewCategoryRegistry builds a registry holding cats in the given order.
// Later duplicates overwrite earlier ones in place.
func NewCategoryRegistry(cats ...Category) CategoryRegistry {
	var r CategoryRegistry
	for _, c := range cats {
		r.Put(c)
	}
	return r
}

func (r *CategoryRegistry) ensureIndex() {
	if r.index != nil {
		return
	}
	r.index = make(map[string]int, len(r.items))
	for i, c := range r.items {
		r.index[c.Name] = i
	}
}

// Len returns the number of categories.
func (r *CategoryRegistry) Len() int {
	return len(r.items)
}

// Has reports whether name is registered.
func (r *CategoryRegistry) Has(name string) bool {
	r.ensureIndex()
	_, ok := r.index[name]
	return ok
}

// Get returns the category registered under name.
func (r *CategoryRegistry) Get(name string) (Category, bool) {
	r.ensureIndex()
	i, ok := r.index[name]
	if !ok {
		return Category{}, false
	}
	return r.items[i], true
}

// Put inserts c at the end, or overwrites the existing entry in place.
func (r *CategoryRegistry) Put(c Category) {
	r.ensureIndex()
	if i, ok := r.index[c.Name]; ok {
		r.items[i] = c
		return
	}
	r.index[c.Name] = len(r.items)
	r.items = append(r.items, c)
}

// Rename moves the entry oldName to newName keeping its position.
// It returns false when oldName is absent or newName is taken by another entry.
func (r *CategoryRegistry) Rename(oldName, newName string) bool {
	r.ensureIndex()
	i, ok := r.index[oldName]
	if !ok {
		return false
	}
	if oldName == newName {
		return true
	}
	if _, taken := r.index[newName]; taken {
		return false
	}
	r.items[i].Name = newName
	delete(r.index, oldName)
	r.index[newName] = i
	return true
}

// Delete removes name and reports whether it was present.
func (r *CategoryRegistry) Delete(name string) bool {
	r.ensureIndex()
	i, ok := r.index[name]
	if !ok {
		return false
	}
	r.items = append(r.items[:i], r.items[i+1:]...)
	r.index = nil
	return true
}

// All returns a copy of the categories in registry order.
func (r *CategoryRegistry) All() []Category {
	out := make([]Category, len(r.items))
	copy(out, r.items)
	return out
}

// Names returns the category names in registry order.
func (r *CategoryRegistry) Names() []string {
	names := make([]string, len(r.items))
	for i, c := range r.items {
		names[i] = c.Name
	}
	return names
}

// Clone returns an independent copy of the registry.
func (r *CategoryRegistry) Clone() CategoryRegistry {
	return NewCategoryRegistry(r.items...)
}
