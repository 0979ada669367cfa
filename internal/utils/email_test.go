package utils

import (
	"testing"
	"time"

	"bioharvest_back_end/internal/models"

	"github.com/gocql/gocql"
	"github.com/stretchr/testify/assert"
)

func buildOrder(discount float64, promoCode string) models.Order {
	return models.Order{
		ID:         gocql.TimeUUID(),
		UserID:     "user-1",
		TotalPrice: 100,
		Discount:   discount,
		PromoCode:  promoCode,
		FinalPrice: 100 - discount,
		Status:     "paid",
		CreatedAt:  time.Now(),
		Items: []models.OrderItem{
			{ProductID: "p1", Name: "Panier de légumes", Price: 25, Quantity: 4},
		},
	}
}

func TestOrderConfirmationHTMLWithDiscount(t *testing.T) {
	html := GenerateOrderConfirmationHTML(buildOrder(5, "SAVE10"))

	assert.Contains(t, html, "Panier de légumes")
	assert.Contains(t, html, "SAVE10")
	assert.Contains(t, html, "-5.00€")
	assert.Contains(t, html, "95.00€")
}

func TestOrderConfirmationHTMLWithoutDiscount(t *testing.T) {
	html := GenerateOrderConfirmationHTML(buildOrder(0, ""))

	assert.NotContains(t, html, "Réduction")
	assert.Contains(t, html, "100.00€")
}

func TestCertificateEmailHTMLContainsVerificationID(t *testing.T) {
	cert := models.Certificate{
		CertificateID: gocql.TimeUUID(),
		StudentName:   "Alice Dupont",
		CourseTitle:   "Agriculture biologique",
	}

	html := GenerateCertificateEmailHTML(cert.StudentName, cert.CourseTitle, cert)

	assert.Contains(t, html, "Alice Dupont")
	assert.Contains(t, html, "Agriculture biologique")
	assert.Contains(t, html, cert.CertificateID.String())
}

func TestStatusEmailSubjects(t *testing.T) {
	assert.Contains(t, getStatusEmailSubject("paid"), "Paiement confirmé")
	assert.Contains(t, getStatusEmailSubject("preparing"), "préparation")
	assert.Contains(t, getStatusEmailSubject("delivered"), "livrée")
	assert.Contains(t, getStatusEmailSubject("cancelled"), "annulée")
	assert.Contains(t, getStatusEmailSubject("autre"), "Mise à jour")
}
