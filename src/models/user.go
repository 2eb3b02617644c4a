package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// MUser is a registered account holder.
type MUser struct {
	ID             string          `json:"id"`
	Email          string          `json:"email"`
	Name           string          `json:"name"`
	PasswordHash   string          `json:"-"`
	VirtualBalance decimal.Decimal `json:"virtual_balance"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}
