package model

import "time"

const (
	PaymentStatusPending   = "pending"
	PaymentStatusCompleted = "completed"
)

type PaymentTransaction struct {
	ID            string     `json:"id" gorm:"primaryKey;type:text"`
	CheckoutID    string     `json:"checkout_id" gorm:"uniqueIndex;not null;size:255"`
	DeviceID      string     `json:"device_id" gorm:"index;not null;size:255"`
	ProductSKU    string     `json:"product_sku" gorm:"not null;size:50"`
	ProductID     string     `json:"product_id" gorm:"size:255"`
	AmountCents   int        `json:"amount_cents" gorm:"not null;default:0"`
	Currency      string     `json:"currency" gorm:"not null;size:10"`
	Status        string     `json:"status" gorm:"not null;size:20;index"`
	TokensGranted int        `json:"tokens_granted" gorm:"not null"`
	CreatedAt     time.Time  `json:"created_at" gorm:"not null"`
	UpdatedAt     time.Time  `json:"updated_at" gorm:"not null"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
}

func (t *PaymentTransaction) IsCompleted() bool {
	return t.Status == PaymentStatusCompleted
}
