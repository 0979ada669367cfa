package models

import (
	"fmt"
	"time"

	"github.com/gocql/gocql"
)

// Codes de refus renvoyés par la validation (champ "reason" côté API)
const (
	PromoReasonNotFound            = "not_found"
	PromoReasonInactive            = "inactive"
	PromoReasonNotYetStarted       = "not_yet_started"
	PromoReasonExpired             = "expired"
	PromoReasonBelowMinimum        = "below_minimum"
	PromoReasonLimitReached        = "limit_reached"
	PromoReasonPerUserLimitReached = "per_user_limit_reached"
)

const (
	PromoTypePercentage = "percentage"
	PromoTypeFixed      = "fixed"
)

type PromoCode struct {
	ID                 gocql.UUID `json:"id"`
	Code               string     `json:"code"`
	Name               string     `json:"name"`
	Description        string     `json:"description"`
	DiscountType       string     `json:"discount_type"` // "percentage" ou "fixed"
	DiscountValue      float64    `json:"discount_value"`
	MaxDiscount        *float64   `json:"max_discount,omitempty"` // Plafond de réduction (percentage uniquement)
	MinimumOrderAmount float64    `json:"minimum_order_amount"`
	MaxUsage           int        `json:"max_usage"` // -1 = illimité
	MaxUsagePerUser    int        `json:"max_usage_per_user"`
	CurrentUsage       int        `json:"current_usage"`
	StartsAt           time.Time  `json:"starts_at"`
	EndsAt             time.Time  `json:"ends_at"`
	IsActive           bool       `json:"is_active"`
	CreatedBy          string     `json:"created_by"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

type PromoUsage struct {
	PromoID gocql.UUID `json:"promo_id"`
	UserID  string     `json:"user_id"`
	OrderID string     `json:"order_id"`
	UsedAt  time.Time  `json:"used_at"`
}

type PromoValidation struct {
	IsValid      bool       `json:"is_valid"`
	Reason       string     `json:"reason,omitempty"`
	ErrorMessage string     `json:"error_message,omitempty"`
	Discount     float64    `json:"discount"`
	Type         string     `json:"type,omitempty"`
	Code         string     `json:"code,omitempty"`
	PromoID      gocql.UUID `json:"promo_id,omitempty"`
}

// IsExpired - dérivé, jamais stocké
func (p *PromoCode) IsExpired(now time.Time) bool {
	return now.After(p.EndsAt)
}

// UsageExhausted - max_usage <= 0 avec -1 = illimité, 0 = désactivé
func (p *PromoCode) UsageExhausted() bool {
	if p.MaxUsage < 0 {
		return false
	}
	return p.CurrentUsage >= p.MaxUsage
}

// CanRedeem décide si une rédemption peut encore incrémenter le compteur,
// au vu de la valeur relue en base juste avant la tentative. Avec max_usage=1
// et N rédemptions concurrentes, seule celle qui a lu current=0 passe, les
// autres relisent 1 et sont refusées.
func (p *PromoCode) CanRedeem(currentUsage int) bool {
	if p.MaxUsage < 0 {
		return true
	}
	return currentUsage < p.MaxUsage
}

// ComputeDiscount calcule la réduction, toujours dans [0, cartTotal]
func (p *PromoCode) ComputeDiscount(cartTotal float64) float64 {
	var discount float64
	switch p.DiscountType {
	case PromoTypePercentage:
		discount = cartTotal * (p.DiscountValue / 100)
		if p.MaxDiscount != nil && discount > *p.MaxDiscount {
			discount = *p.MaxDiscount
		}
	case PromoTypeFixed:
		discount = p.DiscountValue
	}
	if discount > cartTotal {
		discount = cartTotal
	}
	if discount < 0 {
		discount = 0
	}
	return discount
}

// Validate vérifie l'éligibilité dans l'ordre du contrat (premier échec gagne).
// userUsage = nombre de rédemptions déjà faites par cet utilisateur.
// Aucune mutation ici : la rédemption est un chemin séparé.
func (p *PromoCode) Validate(cartTotal float64, userUsage int, now time.Time) PromoValidation {
	if !p.IsActive {
		return PromoValidation{
			IsValid:      false,
			Reason:       PromoReasonInactive,
			ErrorMessage: "Ce code promo n'est plus actif",
		}
	}

	if now.Before(p.StartsAt) {
		return PromoValidation{
			IsValid:      false,
			Reason:       PromoReasonNotYetStarted,
			ErrorMessage: "Ce code promo n'est pas encore valide",
		}
	}

	if p.IsExpired(now) {
		return PromoValidation{
			IsValid:      false,
			Reason:       PromoReasonExpired,
			ErrorMessage: "Ce code promo a expiré",
		}
	}

	if cartTotal < p.MinimumOrderAmount {
		return PromoValidation{
			IsValid:      false,
			Reason:       PromoReasonBelowMinimum,
			ErrorMessage: fmt.Sprintf("Montant minimum requis: %.2f€", p.MinimumOrderAmount),
		}
	}

	if p.UsageExhausted() {
		return PromoValidation{
			IsValid:      false,
			Reason:       PromoReasonLimitReached,
			ErrorMessage: "Ce code promo a atteint sa limite d'utilisation",
		}
	}

	if p.MaxUsagePerUser > 0 && userUsage >= p.MaxUsagePerUser {
		return PromoValidation{
			IsValid:      false,
			Reason:       PromoReasonPerUserLimitReached,
			ErrorMessage: "Vous avez déjà utilisé ce code promo le nombre maximum de fois",
		}
	}

	return PromoValidation{
		IsValid:  true,
		Discount: p.ComputeDiscount(cartTotal),
		Type:     p.DiscountType,
		Code:     p.Code,
		PromoID:  p.ID,
	}
}
