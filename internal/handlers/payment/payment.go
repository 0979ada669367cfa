package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	"bioharvest_back_end/internal/cache"
	"bioharvest_back_end/internal/database"
	"bioharvest_back_end/internal/handlers/learning"
	"bioharvest_back_end/internal/handlers/promo"
	"bioharvest_back_end/internal/handlers/user"
	"bioharvest_back_end/internal/models"
	"bioharvest_back_end/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/gocql/gocql"
	"github.com/stripe/stripe-go/v83"
	"github.com/stripe/stripe-go/v83/webhook"
)

// =============================================
// WEBHOOK STRIPE
// =============================================

// StripeWebhook reçoit les événements Stripe. Tout le flux post-paiement
// part d'ici : commande, stock, rédemption promo, inscription aux cours.
func StripeWebhook(c *gin.Context) {
	const MaxBodyBytes = int64(65536)
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, MaxBodyBytes)

	payload, err := c.GetRawData()
	if err != nil {
		log.Println("❌ Lecture payload échouée:", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Échec lecture body"})
		return
	}

	secret := os.Getenv("STRIPE_WEBHOOK_SECRET")
	var event stripe.Event

	if secret == "" {
		log.Println("⚠️ Pas de STRIPE_WEBHOOK_SECRET, mode test")
		if err := json.Unmarshal(payload, &event); err != nil {
			log.Println("❌ JSON invalide:", err)
			c.JSON(http.StatusBadRequest, gin.H{"error": "JSON invalide"})
			return
		}
	} else {
		event, err = webhook.ConstructEvent(payload, c.GetHeader("Stripe-Signature"), secret)
		if err != nil {
			log.Println("❌ Signature Stripe invalide:", err)
			c.JSON(http.StatusBadRequest, gin.H{"error": "Signature invalide"})
			return
		}
	}

	log.Printf("📥 Événement Stripe reçu : %s", event.Type)
	handleStripeEvent(event)

	c.Status(http.StatusOK)
}

func handleStripeEvent(event stripe.Event) {
	if event.Type != "payment_intent.succeeded" {
		log.Printf("ℹ️ Événement ignoré : %s", event.Type)
		return
	}

	var pi stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
		log.Println("❌ Erreur décodage PaymentIntent:", err)
		return
	}

	switch pi.Metadata["kind"] {
	case "course":
		finalizeCourseEnrollment(pi)
	default:
		finalizeShopOrder(pi)
	}
}

// finalizeShopOrder enregistre la commande après paiement.
// Idempotent : l'insertion conditionnelle dans orders_by_payment_intent
// garantit une seule commande par PaymentIntent, Stripe pouvant rejouer
// le même événement plusieurs fois.
func finalizeShopOrder(pi stripe.PaymentIntent) {
	userID := pi.Metadata["user_id"]
	userEmail := pi.Metadata["email"]
	cartData := pi.Metadata["cart"]

	if userID == "" || userEmail == "" || cartData == "" {
		log.Println("⚠️ Métadonnées incomplètes, commande ignorée:", pi.ID)
		return
	}

	session, err := database.GetShopSession()
	if err != nil {
		log.Println("❌ Erreur session shop:", err)
		return
	}

	orderID := gocql.TimeUUID()
	applied, err := session.Query(`INSERT INTO orders_by_payment_intent (payment_intent_id, order_id)
		VALUES (?, ?) IF NOT EXISTS`, pi.ID, orderID).MapScanCAS(map[string]interface{}{})
	if err != nil {
		log.Println("❌ Erreur vérification idempotence:", err)
		return
	}
	if !applied {
		log.Println("🔁 Commande déjà enregistrée pour ce paiement, on ignore:", pi.ID)
		return
	}

	var cartItems []models.CartItem
	if err := json.Unmarshal([]byte(cartData), &cartItems); err != nil {
		log.Println("❌ Erreur JSON panier:", err)
		return
	}

	total, _ := strconv.ParseFloat(pi.Metadata["total"], 64)
	discount, _ := strconv.ParseFloat(pi.Metadata["discount"], 64)
	promoCode := pi.Metadata["promo_code"]

	order := models.Order{
		ID:              orderID,
		UserID:          userID,
		PaymentIntentID: pi.ID,
		TotalPrice:      total,
		Discount:        discount,
		PromoCode:       promoCode,
		FinalPrice:      total - discount,
		Status:          "paid",
		CreatedAt:       time.Now(),
		Items:           []models.OrderItem{},
	}
	for _, item := range cartItems {
		order.Items = append(order.Items, models.OrderItem{
			ProductID: item.ProductID,
			Name:      item.Name,
			Price:     item.Price,
			Quantity:  item.Quantity,
		})
	}

	itemsJSON, _ := json.Marshal(order.Items)
	if err := session.Query(`INSERT INTO orders (order_id, user_id, payment_intent_id, items,
		total_price, discount, promo_code, final_price, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		order.ID, order.UserID, order.PaymentIntentID, string(itemsJSON),
		order.TotalPrice, order.Discount, order.PromoCode, order.FinalPrice,
		order.Status, order.CreatedAt).Exec(); err != nil {
		log.Println("❌ Erreur insertion commande:", err)
		return
	}

	if err := session.Query(`INSERT INTO orders_by_user (user_id, created_at, order_id,
		total_price, final_price, status) VALUES (?, ?, ?, ?, ?, ?)`,
		order.UserID, order.CreatedAt, order.ID, order.TotalPrice,
		order.FinalPrice, order.Status).Exec(); err != nil {
		log.Println("⚠️ Erreur insertion orders_by_user:", err)
	}

	log.Printf("✅ Commande enregistrée : %s (%.2f€) pour %s", order.ID, order.FinalPrice, userEmail)

	decrementStock(session, order.Items)

	// Rédemption du code promo, comptée une seule fois par commande
	if promoCode != "" {
		if p, err := cache.GetPromoFromCache(promoCode); err == nil {
			if err := promo.Redeem(p, userID, order.ID.String()); err != nil {
				// La commande a déjà été facturée avec la réduction : on garde
				// la commande et on trace le dépassement
				log.Printf("⚠️ Rédemption promo %s échouée pour la commande %s: %v",
					promoCode, order.ID, err)
			}
		} else {
			log.Println("⚠️ Code promo introuvable à la rédemption:", promoCode)
		}
	}

	if err := user.ClearCart(context.Background(), userID); err == nil {
		log.Printf("🧹 Panier vidé pour %s", userID)
	}

	go func() {
		html := utils.GenerateOrderConfirmationHTML(order)
		if err := utils.SendEmail(userEmail, "Confirmation de votre commande BioHarvest",
			html, nil, ""); err != nil {
			log.Println("❌ Erreur envoi e-mail confirmation:", err)
		} else {
			log.Println("📧 E-mail de confirmation envoyé à", userEmail)
		}
	}()
}

// decrementStock décompte le stock vendu, plancher à zéro
func decrementStock(session *gocql.Session, items []models.OrderItem) {
	for _, item := range items {
		productID, err := gocql.ParseUUID(item.ProductID)
		if err != nil {
			continue
		}

		var stock int
		if err := session.Query(`SELECT stock FROM products WHERE product_id = ?`,
			productID).Scan(&stock); err != nil {
			log.Println("⚠️ Produit introuvable pour décrément stock:", item.ProductID)
			continue
		}

		newStock := stock - item.Quantity
		if newStock < 0 {
			newStock = 0
		}
		if err := session.Query(`UPDATE products SET stock = ?, updated_at = ? WHERE product_id = ?`,
			newStock, time.Now(), productID).Exec(); err != nil {
			log.Println("⚠️ Erreur mise à jour stock:", err)
		}
	}
	cache.InvalidateProductListCache()
}

// finalizeCourseEnrollment crée l'inscription après paiement d'un cours.
// CreateEnrollment est conditionnelle : rejouer l'événement est sans effet.
func finalizeCourseEnrollment(pi stripe.PaymentIntent) {
	userID := pi.Metadata["user_id"]
	userEmail := pi.Metadata["email"]
	courseTitle := pi.Metadata["course_title"]

	courseID, err := gocql.ParseUUID(pi.Metadata["course_id"])
	if err != nil {
		log.Println("❌ course_id invalide dans les métadonnées:", pi.ID)
		return
	}

	created, _, err := learning.CreateEnrollment(userID, courseID, pi.ID)
	if err != nil {
		log.Println("❌ Erreur création inscription après paiement:", err)
		return
	}
	if !created {
		log.Println("🔁 Inscription déjà existante, on ignore:", pi.ID)
		return
	}

	log.Printf("✅ Inscription payée : étudiant %s → cours %s", userID, courseTitle)

	if userEmail != "" {
		go func() {
			html := fmt.Sprintf(`<p>Bonjour,</p>
<p>Votre paiement a bien été reçu. Vous êtes maintenant inscrit au cours
<strong>%s</strong> sur BioHarvest Academy. Bon apprentissage !</p>
<p>L'équipe BioHarvest Academy</p>`, courseTitle)
			if err := utils.SendEmail(userEmail, "Inscription confirmée - BioHarvest Academy",
				html, nil, ""); err != nil {
				log.Println("❌ Erreur envoi e-mail inscription:", err)
			}
		}()
	}
}
