package models

import (
	"time"

	"github.com/gocql/gocql"
)

type Order struct {
	ID              gocql.UUID  `json:"id"`
	UserID          string      `json:"user_id"`
	PaymentIntentID string      `json:"payment_intent_id"`
	Items           []OrderItem `json:"items"`
	TotalPrice      float64     `json:"total_price"`
	Discount        float64     `json:"discount"`
	PromoCode       string      `json:"promo_code,omitempty"`
	FinalPrice      float64     `json:"final_price"`
	Status          string      `json:"status"` // "paid", "preparing", "delivered"
	CreatedAt       time.Time   `json:"created_at"`
}

type OrderItem struct {
	ProductID string  `json:"product_id"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	Quantity  int     `json:"quantity"`
}
