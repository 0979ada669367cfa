package user

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"bioharvest_back_end/internal/database"
	"bioharvest_back_end/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/gocql/gocql"
)

// =============================================
// COMMANDES (côté client)
// =============================================

// GetMyOrders liste les commandes de l'utilisateur connecté,
// de la plus récente à la plus ancienne (ordre de clustering)
func GetMyOrders(c *gin.Context) {
	userID := c.GetString("user_id")

	session, err := database.GetShopSession()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur de connexion à la base de données"})
		return
	}

	iter := session.Query(`SELECT order_id, created_at, total_price, final_price, status
		FROM orders_by_user WHERE user_id = ?`, userID).Iter()

	type orderSummary struct {
		OrderID    gocql.UUID `json:"order_id"`
		CreatedAt  time.Time  `json:"created_at"`
		TotalPrice float64    `json:"total_price"`
		FinalPrice float64    `json:"final_price"`
		Status     string     `json:"status"`
	}

	orders := []orderSummary{}
	var o orderSummary
	for iter.Scan(&o.OrderID, &o.CreatedAt, &o.TotalPrice, &o.FinalPrice, &o.Status) {
		orders = append(orders, o)
	}
	if err := iter.Close(); err != nil {
		log.Println("❌ Erreur lecture commandes:", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur lors de la récupération des commandes"})
		return
	}

	c.JSON(http.StatusOK, orders)
}

// GetOrderByID retourne le détail d'une commande de l'utilisateur connecté
func GetOrderByID(c *gin.Context) {
	orderID, err := gocql.ParseUUID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Identifiant de commande invalide"})
		return
	}

	order, err := FetchOrder(orderID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Commande non trouvée"})
		return
	}

	// Une commande n'est visible que par son propriétaire (ou un admin)
	if order.UserID != c.GetString("user_id") && c.GetString("role") != "admin" {
		c.JSON(http.StatusNotFound, gin.H{"error": "Commande non trouvée"})
		return
	}

	c.JSON(http.StatusOK, order)
}

// FetchOrder charge une commande complète (items désérialisés)
func FetchOrder(orderID gocql.UUID) (*models.Order, error) {
	session, err := database.GetShopSession()
	if err != nil {
		return nil, err
	}

	var order models.Order
	var itemsJSON string
	err = session.Query(`SELECT order_id, user_id, payment_intent_id, items, total_price,
		discount, promo_code, final_price, status, created_at
		FROM orders WHERE order_id = ?`, orderID).Scan(
		&order.ID, &order.UserID, &order.PaymentIntentID, &itemsJSON, &order.TotalPrice,
		&order.Discount, &order.PromoCode, &order.FinalPrice, &order.Status, &order.CreatedAt)
	if err != nil {
		return nil, err
	}

	if itemsJSON != "" {
		if err := json.Unmarshal([]byte(itemsJSON), &order.Items); err != nil {
			log.Println("⚠️ Items de commande illisibles:", order.ID)
		}
	}
	return &order, nil
}
