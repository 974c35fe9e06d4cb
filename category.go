package signalsim

import (
	"fmt"
	"strings"
)

// Category represents the kind of vehicle an [Entity] describes.
type Category struct {
	category
}

// ParseCategory creates a new [Category] from the given value. Strings are
// matched case-insensitively.
func ParseCategory(c any) Category {
	switch v := c.(type) {
	case Category:
		return v
	case string:
		return Category{stringToCategory(v)}
	case fmt.Stringer:
		return Category{stringToCategory(v.String())}
	case int:
		return Category{intToCategory(v)}
	case int64:
		return Category{intToCategory(int(v))}
	case int32:
		return Category{intToCategory(int(v))}
	default:
		return Category{categoryUnknown}
	}
}

// IsValid reports whether c is a known, non-unknown category.
func (c Category) IsValid() bool {
	return c.category != categoryUnknown && c.category.isValid()
}

func (c Category) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c *Category) UnmarshalText(b []byte) error {
	*c = ParseCategory(string(b))
	return nil
}

// Categories is a more typical enum like structure from other languages,
// ported to Go. It may be used to reference a [Category] value by name.
var Categories = categoryContainer{
	Unknown:   Category{categoryUnknown},
	Car:       Category{categoryCar},
	Bus:       Category{categoryBus},
	Ambulance: Category{categoryAmbulance},
	FireTruck: Category{categoryFireTruck},
	Police:    Category{categoryPolice},
}

// All returns all possible categories.
func (c categoryContainer) All() []Category {
	return []Category{c.Unknown, c.Car, c.Bus, c.Ambulance, c.FireTruck, c.Police}
}

type category int

const (
	categoryUnknown category = iota
	categoryCar
	categoryBus
	categoryAmbulance
	categoryFireTruck
	categoryPolice
)

var (
	strCategoryMap = map[category]string{
		categoryUnknown:   "Unknown",
		categoryCar:       "Car",
		categoryBus:       "Bus",
		categoryAmbulance: "Ambulance",
		categoryFireTruck: "FireTruck",
		categoryPolice:    "Police",
	}

	typeCategoryMap = map[string]category{
		"unknown":    categoryUnknown,
		"car":        categoryCar,
		"bus":        categoryBus,
		"ambulance":  categoryAmbulance,
		"firetruck":  categoryFireTruck,
		"fire-truck": categoryFireTruck,
		"police":     categoryPolice,
	}
)

func (c category) String() string {
	if s, ok := strCategoryMap[c]; ok {
		return s
	}
	return strCategoryMap[categoryUnknown]
}

func (c category) isValid() bool {
	_, ok := strCategoryMap[c]
	return ok
}

func stringToCategory(s string) category {
	s = strings.ToLower(strings.TrimSpace(s))
	if v, ok := typeCategoryMap[s]; ok {
		return v
	}
	return categoryUnknown
}

func intToCategory(i int) category {
	if c := category(i); c.isValid() {
		return c
	}
	return categoryUnknown
}

type categoryContainer struct {
	Unknown   Category
	Car       Category
	Bus       Category
	Ambulance Category
	FireTruck Category
	Police    Category
}
