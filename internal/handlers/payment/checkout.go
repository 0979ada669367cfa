package payment

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"time"

	"bioharvest_back_end/internal/cache"
	"bioharvest_back_end/internal/database"
	"bioharvest_back_end/internal/handlers/learning"
	"bioharvest_back_end/internal/handlers/promo"
	"bioharvest_back_end/internal/handlers/user"
	"bioharvest_back_end/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/gocql/gocql"
	"github.com/stripe/stripe-go/v83"
	"github.com/stripe/stripe-go/v83/paymentintent"
)

// =============================================
// CHECKOUT BOUTIQUE
// =============================================

type checkoutInput struct {
	PromoCode string `json:"promo_code"`
}

// Checkout crée le PaymentIntent Stripe pour le panier courant.
// Le panier et la réduction sont figés dans les métadonnées du PaymentIntent :
// c'est ce qui a été facturé qui sera enregistré par le webhook, même si le
// panier Redis bouge entre-temps.
func Checkout(c *gin.Context) {
	var input checkoutInput
	if err := c.ShouldBindJSON(&input); err != nil && err.Error() != "EOF" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Données invalides"})
		return
	}

	userID := c.GetString("user_id")
	email := c.GetString("email")
	if userID == "" || email == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Utilisateur non authentifié ou e-mail manquant"})
		return
	}

	items, err := user.LoadCart(c.Request.Context(), userID)
	if err != nil || len(items) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Panier vide"})
		return
	}

	// Relecture Scylla avant de facturer : prix courants, stock suffisant,
	// produits toujours actifs. Le panier Redis n'est qu'un brouillon.
	if err := refreshCartFromCatalog(c, items); err != nil {
		return
	}

	total := user.CartTotal(items)
	discount := 0.0
	promoCode := ""
	promoID := ""

	// Revalidation serveur du code promo, jamais de confiance au front
	if input.PromoCode != "" {
		p, err := cache.GetPromoFromCache(input.PromoCode)
		if err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{
				"error":  "Code promo non trouvé",
				"reason": "not_found",
			})
			return
		}

		userUsage, err := promo.CountUserUsage(p.ID, userID)
		if err != nil {
			log.Println("❌ Erreur comptage utilisations promo:", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur lors de la validation du code promo"})
			return
		}

		validation := p.Validate(total, userUsage, time.Now())
		if !validation.IsValid {
			c.JSON(http.StatusUnprocessableEntity, gin.H{
				"error":  validation.ErrorMessage,
				"reason": validation.Reason,
			})
			return
		}

		discount = validation.Discount
		promoCode = p.Code
		promoID = p.ID.String()
	}

	finalPrice := total - discount
	if finalPrice < 0.50 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Montant trop faible pour un paiement par carte"})
		return
	}

	cartJSON, err := json.Marshal(items)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur sérialisation panier"})
		return
	}

	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(int64(finalPrice * 100)),
		Currency: stripe.String("eur"),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
		Metadata: map[string]string{
			"kind":       "shop",
			"user_id":    userID,
			"email":      email,
			"cart":       string(cartJSON),
			"total":      strconv.FormatFloat(total, 'f', 2, 64),
			"discount":   strconv.FormatFloat(discount, 'f', 2, 64),
			"promo_code": promoCode,
			"promo_id":   promoID,
		},
	}

	intent, err := paymentintent.New(params)
	if err != nil {
		log.Println("❌ Erreur Stripe:", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur lors de la création du paiement"})
		return
	}

	log.Printf("💳 PaymentIntent créé : %s (%.2f€, réduction %.2f€) pour %s",
		intent.ID, finalPrice, discount, email)

	c.JSON(http.StatusOK, gin.H{
		"clientSecret": intent.ClientSecret,
		"paymentId":    intent.ID,
		"total":        total,
		"discount":     discount,
		"final_price":  finalPrice,
	})
}

// refreshCartFromCatalog met à jour chaque ligne du panier depuis la base et
// répond directement (409) si un produit a disparu ou manque de stock.
func refreshCartFromCatalog(c *gin.Context, items []models.CartItem) error {
	session, err := database.GetShopSession()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur de connexion à la base de données"})
		return err
	}

	for i := range items {
		productID, err := gocql.ParseUUID(items[i].ProductID)
		if err != nil {
			c.JSON(http.StatusConflict, gin.H{"error": "Article invalide dans le panier: " + items[i].Name})
			return err
		}

		var price float64
		var stock int
		var isActive bool
		err = session.Query(`SELECT price, stock, is_active FROM products WHERE product_id = ?`,
			productID).Scan(&price, &stock, &isActive)
		if err != nil || !isActive {
			c.JSON(http.StatusConflict, gin.H{
				"error":  "Cet article n'est plus disponible: " + items[i].Name,
				"reason": "product_unavailable",
			})
			return gocql.ErrNotFound
		}
		if stock < items[i].Quantity {
			c.JSON(http.StatusConflict, gin.H{
				"error":     "Stock insuffisant pour: " + items[i].Name,
				"reason":    "insufficient_stock",
				"available": stock,
			})
			return gocql.ErrNotFound
		}
		items[i].Price = price
	}
	return nil
}

// =============================================
// CHECKOUT COURS PAYANT
// =============================================

type courseCheckoutInput struct {
	CourseID string `json:"course_id" binding:"required"`
}

// CourseCheckout crée le PaymentIntent pour un cours payant.
// L'inscription sera créée par le webhook une fois le paiement confirmé.
func CourseCheckout(c *gin.Context) {
	var input courseCheckoutInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Données invalides: " + err.Error()})
		return
	}

	courseID, err := gocql.ParseUUID(input.CourseID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Identifiant de cours invalide"})
		return
	}

	userID := c.GetString("user_id")
	email := c.GetString("email")
	if userID == "" || email == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Utilisateur non authentifié ou e-mail manquant"})
		return
	}

	course, err := cache.GetCourseFromCache(courseID)
	if err != nil || !course.IsPublished {
		c.JSON(http.StatusNotFound, gin.H{"error": "Cours non trouvé"})
		return
	}
	if course.IsFree() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Ce cours est gratuit, inscrivez-vous directement"})
		return
	}

	// Pas de double paiement pour un cours déjà acquis
	if _, err := learning.GetEnrollment(userID, courseID); err == nil {
		c.JSON(http.StatusConflict, gin.H{
			"error":  "Vous êtes déjà inscrit à ce cours",
			"reason": "already_enrolled",
		})
		return
	}

	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(int64(course.Price * 100)),
		Currency: stripe.String("eur"),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
		Metadata: map[string]string{
			"kind":         "course",
			"user_id":      userID,
			"email":        email,
			"course_id":    courseID.String(),
			"course_title": course.Title,
		},
	}

	intent, err := paymentintent.New(params)
	if err != nil {
		log.Println("❌ Erreur Stripe:", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur lors de la création du paiement"})
		return
	}

	log.Printf("💳 PaymentIntent cours créé : %s (%.2f€) pour %s", intent.ID, course.Price, email)

	c.JSON(http.StatusOK, gin.H{
		"clientSecret": intent.ClientSecret,
		"paymentId":    intent.ID,
		"price":        course.Price,
	})
}
