package user

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	"bioharvest_back_end/internal/database"
	"bioharvest_back_end/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/gocql/gocql"
)

// Le panier vit dans Redis, une clé par utilisateur. Chaque mutation publie
// sur le canal pub/sub du même utilisateur pour synchroniser ses onglets
// ouverts via WebSocket.

// CartKey retourne la clé Redis du panier d'un utilisateur
func CartKey(userID string) string {
	return "cart:" + userID
}

// CartChannel retourne le canal pub/sub de synchronisation du panier
func CartChannel(userID string) string {
	return "cart-sync:" + userID
}

// LoadCart lit le panier depuis Redis (panier vide si la clé n'existe pas)
func LoadCart(ctx context.Context, userID string) ([]models.CartItem, error) {
	data, err := database.Redis.Get(ctx, CartKey(userID)).Result()
	if err != nil {
		return []models.CartItem{}, nil
	}

	var items []models.CartItem
	if err := json.Unmarshal([]byte(data), &items); err != nil {
		return []models.CartItem{}, nil
	}
	return items, nil
}

func saveCart(ctx context.Context, userID string, items []models.CartItem) error {
	data, err := json.Marshal(items)
	if err != nil {
		return err
	}
	if err := database.Redis.Set(ctx, CartKey(userID), data, 0).Err(); err != nil {
		return err
	}
	database.Redis.Publish(ctx, CartChannel(userID), "updated")
	return nil
}

// ClearCart vide le panier et notifie les onglets ouverts
func ClearCart(ctx context.Context, userID string) error {
	if err := database.Redis.Del(ctx, CartKey(userID)).Err(); err != nil {
		return err
	}
	database.Redis.Publish(ctx, CartChannel(userID), "cleared")
	return nil
}

// CartTotal calcule le total du panier
func CartTotal(items []models.CartItem) float64 {
	total := 0.0
	for _, item := range items {
		total += item.Price * float64(item.Quantity)
	}
	return total
}

// =============================================
// ROUTES PANIER
// =============================================

// GetCart retourne le panier de l'utilisateur connecté
func GetCart(c *gin.Context) {
	userID := c.GetString("user_id")

	items, err := LoadCart(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur lors de la récupération du panier"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"items": items, "total": CartTotal(items)})
}

type addToCartInput struct {
	ProductID string `json:"product_id" binding:"required"`
	Quantity  int    `json:"quantity" binding:"required"`
}

// AddToCart ajoute un produit au panier (ou augmente sa quantité).
// Le prix est relu côté serveur, jamais pris du client.
func AddToCart(c *gin.Context) {
	userID := c.GetString("user_id")

	var input addToCartInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Données invalides: " + err.Error()})
		return
	}
	if input.Quantity <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "La quantité doit être positive"})
		return
	}

	product, err := fetchProduct(input.ProductID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Produit non trouvé"})
		return
	}
	if !product.IsActive {
		c.JSON(http.StatusNotFound, gin.H{"error": "Produit non trouvé"})
		return
	}

	ctx := c.Request.Context()
	items, _ := LoadCart(ctx, userID)

	found := false
	for i := range items {
		if items[i].ProductID == input.ProductID {
			items[i].Quantity += input.Quantity
			found = true
			break
		}
	}
	if !found {
		imageURL := ""
		if len(product.ImageURLs) > 0 {
			imageURL = product.ImageURLs[0]
		}
		items = append(items, models.CartItem{
			ProductID: input.ProductID,
			Name:      product.Name,
			Price:     product.Price,
			Quantity:  input.Quantity,
			ImageURL:  imageURL,
		})
	}

	if err := saveCart(ctx, userID, items); err != nil {
		log.Println("❌ Erreur sauvegarde panier:", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur lors de la mise à jour du panier"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"items": items, "total": CartTotal(items)})
}

type updateCartItemInput struct {
	Quantity int `json:"quantity"`
}

// UpdateCartItem change la quantité d'un article (0 = suppression)
func UpdateCartItem(c *gin.Context) {
	userID := c.GetString("user_id")
	productID := c.Param("productId")

	var input updateCartItemInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Données invalides"})
		return
	}
	if input.Quantity < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "La quantité ne peut pas être négative"})
		return
	}

	ctx := c.Request.Context()
	items, _ := LoadCart(ctx, userID)

	updated := make([]models.CartItem, 0, len(items))
	found := false
	for _, item := range items {
		if item.ProductID == productID {
			found = true
			if input.Quantity > 0 {
				item.Quantity = input.Quantity
				updated = append(updated, item)
			}
			continue
		}
		updated = append(updated, item)
	}
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "Article non trouvé dans le panier"})
		return
	}

	if err := saveCart(ctx, userID, updated); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur lors de la mise à jour du panier"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"items": updated, "total": CartTotal(updated)})
}

// fetchProduct relit le produit en base pour avoir prix et stock à jour
func fetchProduct(productID string) (*models.Product, error) {
	id, err := gocql.ParseUUID(productID)
	if err != nil {
		return nil, err
	}

	session, err := database.GetShopSession()
	if err != nil {
		return nil, err
	}

	var p models.Product
	err = session.Query(`SELECT product_id, name, description, price, stock, category,
		image_urls, tags, is_active, created_at, updated_at
		FROM products WHERE product_id = ?`, id).Scan(
		&p.ID, &p.Name, &p.Description, &p.Price, &p.Stock, &p.Category,
		&p.ImageURLs, &p.Tags, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// EmptyCart vide le panier de l'utilisateur connecté
func EmptyCart(c *gin.Context) {
	userID := c.GetString("user_id")

	if err := ClearCart(c.Request.Context(), userID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur lors du vidage du panier"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Panier vidé"})
}
