package models

import (
	"testing"
	"time"

	"github.com/gocql/gocql"
	"github.com/stretchr/testify/assert"
)

func validPromo() PromoCode {
	return PromoCode{
		ID:                 gocql.TimeUUID(),
		Code:               "BIENVENUE",
		DiscountType:       PromoTypeFixed,
		DiscountValue:      10,
		MinimumOrderAmount: 0,
		MaxUsage:           -1,
		MaxUsagePerUser:    1,
		StartsAt:           time.Now().Add(-24 * time.Hour),
		EndsAt:             time.Now().Add(24 * time.Hour),
		IsActive:           true,
	}
}

func TestValidatePromoInactive(t *testing.T) {
	p := validPromo()
	p.IsActive = false

	v := p.Validate(100, 0, time.Now())
	assert.False(t, v.IsValid)
	assert.Equal(t, PromoReasonInactive, v.Reason)
}

func TestValidatePromoNotYetStarted(t *testing.T) {
	p := validPromo()
	p.StartsAt = time.Now().Add(time.Hour)

	v := p.Validate(100, 0, time.Now())
	assert.False(t, v.IsValid)
	assert.Equal(t, PromoReasonNotYetStarted, v.Reason)
}

func TestValidatePromoExpired(t *testing.T) {
	p := validPromo()
	p.EndsAt = time.Now().Add(-time.Hour)

	v := p.Validate(100, 0, time.Now())
	assert.False(t, v.IsValid)
	assert.Equal(t, PromoReasonExpired, v.Reason)
}

func TestValidatePromoBelowMinimum(t *testing.T) {
	// Sous le minimum, le refus est below_minimum quels que soient les autres champs
	p := validPromo()
	p.MinimumOrderAmount = 50
	p.MaxUsage = 0 // même épuisé, le minimum est vérifié d'abord

	for _, total := range []float64{0, 10, 49.99} {
		v := p.Validate(total, 0, time.Now())
		assert.False(t, v.IsValid)
		assert.Equal(t, PromoReasonBelowMinimum, v.Reason)
	}
}

func TestValidatePromoLimitReached(t *testing.T) {
	p := validPromo()
	p.MaxUsage = 5
	p.CurrentUsage = 5

	v := p.Validate(100, 0, time.Now())
	assert.False(t, v.IsValid)
	assert.Equal(t, PromoReasonLimitReached, v.Reason)
}

func TestValidatePromoMaxUsageZeroDisabled(t *testing.T) {
	p := validPromo()
	p.MaxUsage = 0
	p.CurrentUsage = 0

	v := p.Validate(100, 0, time.Now())
	assert.False(t, v.IsValid)
	assert.Equal(t, PromoReasonLimitReached, v.Reason)
}

func TestValidatePromoUnlimitedUsage(t *testing.T) {
	p := validPromo()
	p.MaxUsage = -1
	p.CurrentUsage = 100000

	v := p.Validate(100, 0, time.Now())
	assert.True(t, v.IsValid)
}

func TestValidatePromoPerUserLimitReached(t *testing.T) {
	p := validPromo()
	p.MaxUsagePerUser = 2

	v := p.Validate(100, 2, time.Now())
	assert.False(t, v.IsValid)
	assert.Equal(t, PromoReasonPerUserLimitReached, v.Reason)

	v = p.Validate(100, 1, time.Now())
	assert.True(t, v.IsValid)
}

func TestComputeDiscountFixedClampedToCart(t *testing.T) {
	p := validPromo()
	p.DiscountType = PromoTypeFixed
	p.DiscountValue = 20

	assert.Equal(t, 20.0, p.ComputeDiscount(100))
	// Jamais plus que le panier
	assert.Equal(t, 15.0, p.ComputeDiscount(15))
	assert.Equal(t, 0.0, p.ComputeDiscount(0))
}

func TestComputeDiscountPercentageMaxDiscount(t *testing.T) {
	maxDiscount := 5.0
	p := validPromo()
	p.DiscountType = PromoTypePercentage
	p.DiscountValue = 10
	p.MaxDiscount = &maxDiscount

	// 10% de 100€ = 10€, plafonné à 5€
	assert.Equal(t, 5.0, p.ComputeDiscount(100))
	// 10% de 30€ = 3€, sous le plafond
	assert.Equal(t, 3.0, p.ComputeDiscount(30))
}

// Scénario SAVE10 : percentage 10%, plafond 5€, minimum 20€, panier 100€ → 5€
func TestScenarioSave10(t *testing.T) {
	maxDiscount := 5.0
	p := validPromo()
	p.Code = "SAVE10"
	p.DiscountType = PromoTypePercentage
	p.DiscountValue = 10
	p.MaxDiscount = &maxDiscount
	p.MinimumOrderAmount = 20

	v := p.Validate(100, 0, time.Now())
	assert.True(t, v.IsValid)
	assert.Equal(t, 5.0, v.Discount)
	assert.Equal(t, 95.0, 100-v.Discount)
}

// Avec max_usage=1 et deux paiements simultanés, la décision de rédemption
// est relue avant chaque tentative CAS : seule la lecture current=0 passe,
// la relecture après incrément voit 1 et est refusée.
func TestCanRedeemAtBoundary(t *testing.T) {
	p := validPromo()
	p.MaxUsage = 1

	assert.True(t, p.CanRedeem(0))
	assert.False(t, p.CanRedeem(1))
	assert.False(t, p.CanRedeem(2))
}

func TestCanRedeemSentinels(t *testing.T) {
	p := validPromo()

	// Négatif = illimité
	p.MaxUsage = -1
	assert.True(t, p.CanRedeem(0))
	assert.True(t, p.CanRedeem(1_000_000))

	// Zéro = désactivé, aucune rédemption possible
	p.MaxUsage = 0
	assert.False(t, p.CanRedeem(0))
}

func TestValidatePromoNeverMutates(t *testing.T) {
	p := validPromo()
	p.MaxUsage = 3
	p.CurrentUsage = 1

	before := p.CurrentUsage
	for i := 0; i < 10; i++ {
		p.Validate(100, 0, time.Now())
	}
	assert.Equal(t, before, p.CurrentUsage)
}
