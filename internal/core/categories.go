package core

import "strings"

const (
	DefaultCustomIcon  = "Layers"
	DefaultCustomColor = "#4318FF"

	// UnknownCategoryName is shown for transactions whose category was removed.
	UnknownCategoryName = "Unknown category"
)

var builtinCategories = []Category{
	{ID: "cat-1", Name: "Food", Icon: "Utensils", Color: "#ef4444"},
	{ID: "cat-2", Name: "Transport", Icon: "Car", Color: "#3b82f6"},
	{ID: "cat-3", Name: "Shopping", Icon: "ShoppingBag", Color: "#f59e0b"},
	{ID: "cat-4", Name: "Bills", Icon: "Receipt", Color: "#10b981"},
	{ID: "cat-5", Name: "Entertainment", Icon: "Gamepad2", Color: "#8b5cf6"},
	{ID: "cat-6", Name: "Other", Icon: "Layers", Color: "#6b7280"},
}

// BuiltinCategories returns a fresh copy of the six seeded categories.
func BuiltinCategories() []Category {
	return append([]Category(nil), builtinCategories...)
}

// IsBuiltin reports whether id belongs to one of the seeded categories.
func IsBuiltin(id string) bool {
	for _, c := range builtinCategories {
		if c.ID == id {
			return true
		}
	}
	return false
}

// NewCustomCategory validates the user supplied fields and fills the defaults.
func NewCustomCategory(id, name, icon, color string) (Category, error) {
	c := Category{
		ID:       id,
		Name:     strings.TrimSpace(name),
		Icon:     strings.TrimSpace(icon),
		Color:    strings.TrimSpace(color),
		IsCustom: true,
	}
	if c.Name == "" {
		return Category{}, ErrEmptyName
	}
	if c.Icon == "" {
		c.Icon = DefaultCustomIcon
	}
	if c.Color == "" {
		c.Color = DefaultCustomColor
	}
	if err := c.Validate(); err != nil {
		return Category{}, err
	}
	return c, nil
}
