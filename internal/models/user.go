package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Category is the declared user category from the identity provider.
type Category string

const (
	CategoryStudent      Category = "STUDENT"
	CategoryProfessional Category = "PROFESSIONAL"
)

// ParseCategory normalizes a category string. Unknown values return "".
func ParseCategory(s string) Category {
	switch Category(strings.ToUpper(strings.TrimSpace(s))) {
	case CategoryStudent:
		return CategoryStudent
	case CategoryProfessional:
		return CategoryProfessional
	}
	return ""
}

// User represents a platform user synced from the identity provider.
type User struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Category  Category  `json:"category"`
	Interests []string  `json:"interests"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Actor is the authenticated caller of an operation.
type Actor struct {
	ID       uuid.UUID
	Email    string
	Category Category
}
