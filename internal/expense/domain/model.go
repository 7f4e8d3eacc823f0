package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

type Expense struct {
	ID            snowflake.ID    `json:"id" gorm:"primaryKey"`
	EventID       *snowflake.ID   `json:"event_id,omitempty" gorm:"index"`
	Description   string          `json:"description" gorm:"type:text;not null"`
	Amount        decimal.Decimal `json:"amount" gorm:"type:numeric(12,2);not null"`
	PaymentMethod string          `json:"payment_method" gorm:"type:text;not null"`
	IsSettled     bool            `json:"is_settled" gorm:"not null;default:false"`
	ExpenseDate   time.Time       `json:"expense_date" gorm:"not null;index"`
	SettledAt     *time.Time      `json:"settled_at,omitempty"`
	CreatedBy     *string         `json:"created_by,omitempty" gorm:"type:text"`
	CreatedAt     time.Time       `json:"created_at" gorm:"not null"`
	UpdatedAt     time.Time       `json:"updated_at" gorm:"not null"`
}

func (Expense) TableName() string { return "expenses" }
