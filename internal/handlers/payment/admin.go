package payment

import (
	"encoding/json"
	"log"
	"net/http"

	"bioharvest_back_end/internal/database"
	"bioharvest_back_end/internal/handlers/user"
	"bioharvest_back_end/internal/models"
	"bioharvest_back_end/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/gocql/gocql"
)

// Statuts de commande acceptés, dans l'ordre du cycle de vie
var validOrderStatuses = map[string]bool{
	"paid":      true,
	"preparing": true,
	"delivered": true,
	"cancelled": true,
}

// =============================================
// ADMINISTRATION DES COMMANDES
// =============================================

// GetAllOrders liste toutes les commandes (admin)
func GetAllOrders(c *gin.Context) {
	session, err := database.GetShopSession()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur de connexion à la base de données"})
		return
	}

	iter := session.Query(`SELECT order_id, user_id, payment_intent_id, items, total_price,
		discount, promo_code, final_price, status, created_at FROM orders`).Iter()

	orders := []models.Order{}
	var o models.Order
	var itemsJSON string
	for iter.Scan(&o.ID, &o.UserID, &o.PaymentIntentID, &itemsJSON, &o.TotalPrice,
		&o.Discount, &o.PromoCode, &o.FinalPrice, &o.Status, &o.CreatedAt) {
		if itemsJSON != "" {
			json.Unmarshal([]byte(itemsJSON), &o.Items)
		}
		orders = append(orders, o)
		o = models.Order{}
		itemsJSON = ""
	}
	if err := iter.Close(); err != nil {
		log.Println("❌ Erreur lecture commandes:", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur lors de la récupération des commandes"})
		return
	}

	c.JSON(http.StatusOK, orders)
}

type updateStatusInput struct {
	Status string `json:"status" binding:"required"`
}

// UpdateOrderStatus fait avancer une commande dans son cycle de vie (admin)
// et prévient le client par e-mail
func UpdateOrderStatus(c *gin.Context) {
	orderID, err := gocql.ParseUUID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Identifiant de commande invalide"})
		return
	}

	var input updateStatusInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Données invalides"})
		return
	}
	if !validOrderStatuses[input.Status] {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Statut invalide"})
		return
	}

	order, err := user.FetchOrder(orderID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Commande non trouvée"})
		return
	}

	session, err := database.GetShopSession()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur de connexion à la base de données"})
		return
	}

	if err := session.Query(`UPDATE orders SET status = ? WHERE order_id = ?`,
		input.Status, orderID).Exec(); err != nil {
		log.Println("❌ Erreur mise à jour statut:", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur lors de la mise à jour"})
		return
	}

	// La vue par utilisateur porte aussi le statut (clé complète requise)
	if err := session.Query(`UPDATE orders_by_user SET status = ?
		WHERE user_id = ? AND created_at = ? AND order_id = ?`,
		input.Status, order.UserID, order.CreatedAt, orderID).Exec(); err != nil {
		log.Println("⚠️ Erreur mise à jour orders_by_user:", err)
	}

	order.Status = input.Status
	log.Printf("✅ Statut commande %s → %s", orderID, input.Status)

	if email := lookupUserEmail(order.UserID); email != "" {
		go utils.SendOrderStatusEmail(*order, email, input.Status)
	}

	c.JSON(http.StatusOK, gin.H{"message": "Statut mis à jour", "status": input.Status})
}

func lookupUserEmail(userID string) string {
	id, err := gocql.ParseUUID(userID)
	if err != nil {
		return ""
	}

	session, err := database.GetUsersSession()
	if err != nil {
		return ""
	}

	var email string
	if err := session.Query(`SELECT email FROM users WHERE user_id = ?`, id).Scan(&email); err != nil {
		log.Println("⚠️ Email utilisateur introuvable:", userID)
		return ""
	}
	return email
}
