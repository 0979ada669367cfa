package product

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"bioharvest_back_end/internal/cache"
	"bioharvest_back_end/internal/database"
	"bioharvest_back_end/internal/models"
	"bioharvest_back_end/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/gocql/gocql"
)

// =============================================
// CATALOGUE PRODUITS
// =============================================

type createProductInput struct {
	Name        string   `json:"name" binding:"required"`
	Description string   `json:"description"`
	Price       float64  `json:"price" binding:"required"`
	Stock       int      `json:"stock"`
	Category    string   `json:"category" binding:"required"`
	ImageURLs   []string `json:"image_urls"`
	Tags        []string `json:"tags"`
}

// CreateProduct crée un produit (admin) et l'indexe dans Elasticsearch
func CreateProduct(c *gin.Context) {
	var input createProductInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Données invalides: " + err.Error()})
		return
	}

	if input.Price <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Le prix doit être positif"})
		return
	}
	if input.Stock < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Le stock ne peut pas être négatif"})
		return
	}

	session, err := database.GetShopSession()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur de connexion à la base de données"})
		return
	}

	now := time.Now()
	product := models.Product{
		ID:          gocql.TimeUUID(),
		Name:        input.Name,
		Description: input.Description,
		Price:       input.Price,
		Stock:       input.Stock,
		Category:    input.Category,
		ImageURLs:   input.ImageURLs,
		Tags:        input.Tags,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err = session.Query(`INSERT INTO products (product_id, name, description, price, stock,
		category, image_urls, tags, is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		product.ID, product.Name, product.Description, product.Price, product.Stock,
		product.Category, product.ImageURLs, product.Tags, product.IsActive,
		product.CreatedAt, product.UpdatedAt).Exec()
	if err != nil {
		log.Println("❌ Erreur création produit:", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur lors de la création du produit"})
		return
	}

	cache.InvalidateProductListCache()
	services.IndexProduct(product)

	log.Println("✅ Produit créé:", product.Name)
	c.JSON(http.StatusCreated, product)
}

// GetAllProducts liste les produits actifs, avec cache Redis de la liste complète
func GetAllProducts(c *gin.Context) {
	ctx := c.Request.Context()

	if data, err := database.Redis.Get(ctx, "products:all").Result(); err == nil {
		var products []models.Product
		if json.Unmarshal([]byte(data), &products) == nil {
			c.JSON(http.StatusOK, products)
			return
		}
	}

	session, err := database.GetShopSession()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur de connexion à la base de données"})
		return
	}

	iter := session.Query(`SELECT product_id, name, description, price, stock, category,
		image_urls, tags, is_active, created_at, updated_at FROM products`).Iter()

	products := []models.Product{}
	var p models.Product
	for iter.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.Stock, &p.Category,
		&p.ImageURLs, &p.Tags, &p.IsActive, &p.CreatedAt, &p.UpdatedAt) {
		if p.IsActive {
			products = append(products, p)
		}
		p = models.Product{}
	}
	if err := iter.Close(); err != nil {
		log.Println("❌ Erreur lecture produits:", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur lors de la récupération des produits"})
		return
	}

	if data, err := json.Marshal(products); err == nil {
		database.Redis.Set(ctx, "products:all", data, cache.ProductCacheTTL)
	}

	c.JSON(http.StatusOK, products)
}

// GetProduct retourne un produit par son identifiant
func GetProduct(c *gin.Context) {
	productID, err := gocql.ParseUUID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Identifiant de produit invalide"})
		return
	}

	session, err := database.GetShopSession()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur de connexion à la base de données"})
		return
	}

	var p models.Product
	err = session.Query(`SELECT product_id, name, description, price, stock, category,
		image_urls, tags, is_active, created_at, updated_at
		FROM products WHERE product_id = ?`, productID).Scan(
		&p.ID, &p.Name, &p.Description, &p.Price, &p.Stock, &p.Category,
		&p.ImageURLs, &p.Tags, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	if err != nil || !p.IsActive {
		c.JSON(http.StatusNotFound, gin.H{"error": "Produit non trouvé"})
		return
	}

	c.JSON(http.StatusOK, p)
}

// GetProductStock retourne le stock courant d'un produit, relu en base
// à chaque appel pour que le front affiche la disponibilité réelle
func GetProductStock(c *gin.Context) {
	productID, err := gocql.ParseUUID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Identifiant de produit invalide"})
		return
	}

	session, err := database.GetShopSession()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur de connexion à la base de données"})
		return
	}

	var stock int
	var isActive bool
	if err := session.Query(`SELECT stock, is_active FROM products WHERE product_id = ?`,
		productID).Scan(&stock, &isActive); err != nil || !isActive {
		c.JSON(http.StatusNotFound, gin.H{"error": "Produit non trouvé"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"product_id": productID,
		"stock":      stock,
		"in_stock":   stock > 0,
	})
}

// UpdateProduct modifie partiellement un produit (admin)
func UpdateProduct(c *gin.Context) {
	productID, err := gocql.ParseUUID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Identifiant de produit invalide"})
		return
	}

	var input map[string]interface{}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Données invalides"})
		return
	}

	session, err := database.GetShopSession()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur de connexion à la base de données"})
		return
	}

	var name string
	if err := session.Query(`SELECT name FROM products WHERE product_id = ?`, productID).Scan(&name); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Produit non trouvé"})
		return
	}

	setParts := []string{"updated_at = ?"}
	args := []interface{}{time.Now()}

	if v, ok := input["name"].(string); ok {
		setParts = append(setParts, "name = ?")
		args = append(args, v)
	}
	if v, ok := input["description"].(string); ok {
		setParts = append(setParts, "description = ?")
		args = append(args, v)
	}
	if v, ok := input["price"].(float64); ok {
		if v <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Le prix doit être positif"})
			return
		}
		setParts = append(setParts, "price = ?")
		args = append(args, v)
	}
	if v, ok := input["stock"].(float64); ok {
		if v < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Le stock ne peut pas être négatif"})
			return
		}
		setParts = append(setParts, "stock = ?")
		args = append(args, int(v))
	}
	if v, ok := input["category"].(string); ok {
		setParts = append(setParts, "category = ?")
		args = append(args, v)
	}
	if v, ok := input["is_active"].(bool); ok {
		setParts = append(setParts, "is_active = ?")
		args = append(args, v)
	}

	query := fmt.Sprintf("UPDATE products SET %s WHERE product_id = ?", strings.Join(setParts, ", "))
	args = append(args, productID)

	if err := session.Query(query, args...).Exec(); err != nil {
		log.Println("❌ Erreur mise à jour produit:", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur lors de la mise à jour"})
		return
	}

	cache.InvalidateProductListCache()
	reindexProduct(productID)
	c.JSON(http.StatusOK, gin.H{"message": "Produit mis à jour avec succès"})
}

// DeactivateProduct retire un produit du catalogue sans le supprimer :
// les commandes passées continuent de le référencer.
func DeactivateProduct(c *gin.Context) {
	productID, err := gocql.ParseUUID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Identifiant de produit invalide"})
		return
	}

	session, err := database.GetShopSession()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur de connexion à la base de données"})
		return
	}

	var name string
	if err := session.Query(`SELECT name FROM products WHERE product_id = ?`, productID).Scan(&name); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Produit non trouvé"})
		return
	}

	if err := session.Query(`UPDATE products SET is_active = false, updated_at = ? WHERE product_id = ?`,
		time.Now(), productID).Exec(); err != nil {
		log.Println("❌ Erreur désactivation produit:", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur lors de la désactivation"})
		return
	}

	cache.InvalidateProductListCache()
	log.Println("⚠️ Produit désactivé:", name)
	c.JSON(http.StatusOK, gin.H{"message": "Produit désactivé"})
}

// SearchProducts recherche des produits via Elasticsearch
func SearchProducts(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Paramètre 'q' requis"})
		return
	}

	results, err := services.SearchProducts(query)
	if err != nil {
		log.Println("❌ Erreur recherche produits:", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur lors de la recherche"})
		return
	}

	c.JSON(http.StatusOK, results)
}

// UploadImage stocke une image produit dans MinIO et l'attache au produit (admin)
func UploadImage(c *gin.Context) {
	productID, err := gocql.ParseUUID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Identifiant de produit invalide"})
		return
	}

	file, err := c.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Fichier 'image' requis"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 30*time.Second)
	defer cancel()

	url, err := services.UploadProductImage(ctx, file)
	if err != nil {
		log.Println("❌ Erreur upload image:", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur lors de l'upload de l'image"})
		return
	}

	session, err := database.GetShopSession()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur de connexion à la base de données"})
		return
	}

	if err := session.Query(`UPDATE products SET image_urls = image_urls + ?, updated_at = ?
		WHERE product_id = ?`, []string{url}, time.Now(), productID).Exec(); err != nil {
		log.Println("❌ Erreur ajout image au produit:", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur lors de la mise à jour du produit"})
		return
	}

	cache.InvalidateProductListCache()
	log.Println("📥 Image ajoutée au produit:", productID)
	c.JSON(http.StatusOK, gin.H{"url": url})
}

// reindexProduct relit le produit et le pousse dans Elasticsearch
func reindexProduct(productID gocql.UUID) {
	session, err := database.GetShopSession()
	if err != nil {
		return
	}

	var p models.Product
	err = session.Query(`SELECT product_id, name, description, price, stock, category,
		image_urls, tags, is_active, created_at, updated_at
		FROM products WHERE product_id = ?`, productID).Scan(
		&p.ID, &p.Name, &p.Description, &p.Price, &p.Stock, &p.Category,
		&p.ImageURLs, &p.Tags, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		log.Println("⚠️ Réindexation impossible, produit introuvable:", productID)
		return
	}
	services.IndexProduct(p)
}
