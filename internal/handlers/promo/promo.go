package promo

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"bioharvest_back_end/internal/cache"
	"bioharvest_back_end/internal/database"
	"bioharvest_back_end/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/gocql/gocql"
)

// ErrLimitReached : le plafond global a été atteint entre la validation et la rédemption
var ErrLimitReached = errors.New("limite d'utilisation du code promo atteinte")

// =============================================
// ADMINISTRATION DES CODES PROMO
// =============================================

type createPromoInput struct {
	Code               string   `json:"code" binding:"required"`
	Name               string   `json:"name" binding:"required"`
	Description        string   `json:"description"`
	DiscountType       string   `json:"discount_type" binding:"required"`
	DiscountValue      float64  `json:"discount_value" binding:"required"`
	MaxDiscount        *float64 `json:"max_discount"`
	MinimumOrderAmount float64  `json:"minimum_order_amount"`
	MaxUsage           int      `json:"max_usage"`
	MaxUsagePerUser    int      `json:"max_usage_per_user"`
	StartsAt           string   `json:"starts_at" binding:"required"`
	EndsAt             string   `json:"ends_at" binding:"required"`
}

// CreatePromo crée un code promo (admin). Le code est la clé : la création
// est conditionnelle (IF NOT EXISTS) pour interdire les doublons.
func CreatePromo(c *gin.Context) {
	var input createPromoInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Données invalides: " + err.Error()})
		return
	}

	if input.DiscountType != models.PromoTypePercentage && input.DiscountType != models.PromoTypeFixed {
		c.JSON(http.StatusBadRequest, gin.H{"error": "discount_type doit être 'percentage' ou 'fixed'"})
		return
	}
	if input.DiscountValue <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "discount_value doit être positif"})
		return
	}
	if input.DiscountType == models.PromoTypePercentage && input.DiscountValue > 100 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Un pourcentage ne peut pas dépasser 100"})
		return
	}

	startsAt, err := time.Parse(time.RFC3339, input.StartsAt)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "starts_at invalide (format RFC3339 attendu)"})
		return
	}
	endsAt, err := time.Parse(time.RFC3339, input.EndsAt)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ends_at invalide (format RFC3339 attendu)"})
		return
	}
	if !endsAt.After(startsAt) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ends_at doit être postérieur à starts_at"})
		return
	}

	// Défauts : non renseigné = illimité en global, 1 utilisation par client
	if input.MaxUsage == 0 {
		input.MaxUsage = -1
	}
	if input.MaxUsagePerUser == 0 {
		input.MaxUsagePerUser = 1
	}

	session, err := database.GetShopSession()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur de connexion à la base de données"})
		return
	}

	now := time.Now()
	promo := models.PromoCode{
		ID:                 gocql.TimeUUID(),
		Code:               strings.ToUpper(strings.TrimSpace(input.Code)),
		Name:               input.Name,
		Description:        input.Description,
		DiscountType:       input.DiscountType,
		DiscountValue:      input.DiscountValue,
		MaxDiscount:        input.MaxDiscount,
		MinimumOrderAmount: input.MinimumOrderAmount,
		MaxUsage:           input.MaxUsage,
		MaxUsagePerUser:    input.MaxUsagePerUser,
		CurrentUsage:       0,
		StartsAt:           startsAt,
		EndsAt:             endsAt,
		IsActive:           true,
		CreatedBy:          c.GetString("user_id"),
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	applied, err := session.Query(`INSERT INTO promo_codes
		(code, id, name, description, discount_type, discount_value, max_discount,
		minimum_order_amount, max_usage, max_usage_per_user, current_usage,
		starts_at, ends_at, is_active, created_by, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?) IF NOT EXISTS`,
		promo.Code, promo.ID, promo.Name, promo.Description, promo.DiscountType,
		promo.DiscountValue, promo.MaxDiscount, promo.MinimumOrderAmount,
		promo.MaxUsage, promo.MaxUsagePerUser, promo.CurrentUsage,
		promo.StartsAt, promo.EndsAt, promo.IsActive, promo.CreatedBy,
		promo.CreatedAt, promo.UpdatedAt).MapScanCAS(map[string]interface{}{})
	if err != nil {
		log.Println("❌ Erreur création code promo:", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur lors de la création du code promo"})
		return
	}
	if !applied {
		c.JSON(http.StatusConflict, gin.H{"error": "Un code promo avec ce code existe déjà"})
		return
	}

	log.Printf("✅ Code promo créé: %s (%s %.2f)", promo.Code, promo.DiscountType, promo.DiscountValue)
	c.JSON(http.StatusCreated, promo)
}

// GetAllPromos liste tous les codes promo (admin)
func GetAllPromos(c *gin.Context) {
	session, err := database.GetShopSession()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur de connexion à la base de données"})
		return
	}

	iter := session.Query(`SELECT id, code, name, description, discount_type, discount_value,
		max_discount, minimum_order_amount, max_usage, max_usage_per_user, current_usage,
		starts_at, ends_at, is_active, created_by, created_at, updated_at
		FROM promo_codes`).Iter()

	promos := []models.PromoCode{}
	var p models.PromoCode
	for iter.Scan(&p.ID, &p.Code, &p.Name, &p.Description, &p.DiscountType,
		&p.DiscountValue, &p.MaxDiscount, &p.MinimumOrderAmount, &p.MaxUsage,
		&p.MaxUsagePerUser, &p.CurrentUsage, &p.StartsAt, &p.EndsAt,
		&p.IsActive, &p.CreatedBy, &p.CreatedAt, &p.UpdatedAt) {
		promos = append(promos, p)
		p = models.PromoCode{}
	}
	if err := iter.Close(); err != nil {
		log.Println("❌ Erreur lecture codes promo:", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur lors de la récupération des codes promo"})
		return
	}

	c.JSON(http.StatusOK, promos)
}

// UpdatePromo modifie partiellement un code promo (admin).
// Le compteur current_usage n'est jamais modifiable par cette route.
func UpdatePromo(c *gin.Context) {
	code := strings.ToUpper(c.Param("code"))

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

	// Vérifier que le code existe avant de le modifier
	var existingID gocql.UUID
	if err := session.Query(`SELECT id FROM promo_codes WHERE code = ?`, code).Scan(&existingID); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Code promo non trouvé"})
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
	if v, ok := input["discount_value"].(float64); ok {
		setParts = append(setParts, "discount_value = ?")
		args = append(args, v)
	}
	if v, ok := input["max_discount"].(float64); ok {
		setParts = append(setParts, "max_discount = ?")
		args = append(args, v)
	}
	if v, ok := input["minimum_order_amount"].(float64); ok {
		setParts = append(setParts, "minimum_order_amount = ?")
		args = append(args, v)
	}
	if v, ok := input["max_usage"].(float64); ok {
		setParts = append(setParts, "max_usage = ?")
		args = append(args, int(v))
	}
	if v, ok := input["max_usage_per_user"].(float64); ok {
		setParts = append(setParts, "max_usage_per_user = ?")
		args = append(args, int(v))
	}
	if v, ok := input["starts_at"].(string); ok {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "starts_at invalide"})
			return
		}
		setParts = append(setParts, "starts_at = ?")
		args = append(args, t)
	}
	if v, ok := input["ends_at"].(string); ok {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "ends_at invalide"})
			return
		}
		setParts = append(setParts, "ends_at = ?")
		args = append(args, t)
	}
	if v, ok := input["is_active"].(bool); ok {
		setParts = append(setParts, "is_active = ?")
		args = append(args, v)
	}

	query := fmt.Sprintf("UPDATE promo_codes SET %s WHERE code = ?", strings.Join(setParts, ", "))
	args = append(args, code)

	if err := session.Query(query, args...).Exec(); err != nil {
		log.Println("❌ Erreur mise à jour code promo:", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur lors de la mise à jour"})
		return
	}

	cache.InvalidatePromoCache(code)
	log.Println("✅ Code promo mis à jour:", code)
	c.JSON(http.StatusOK, gin.H{"message": "Code promo mis à jour avec succès"})
}

// DeactivatePromo désactive un code promo sans le supprimer : l'historique
// d'utilisation (promo_usage) doit rester consultable.
func DeactivatePromo(c *gin.Context) {
	code := strings.ToUpper(c.Param("code"))

	session, err := database.GetShopSession()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur de connexion à la base de données"})
		return
	}

	var existingID gocql.UUID
	if err := session.Query(`SELECT id FROM promo_codes WHERE code = ?`, code).Scan(&existingID); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Code promo non trouvé"})
		return
	}

	if err := session.Query(`UPDATE promo_codes SET is_active = false, updated_at = ? WHERE code = ?`,
		time.Now(), code).Exec(); err != nil {
		log.Println("❌ Erreur désactivation code promo:", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur lors de la désactivation"})
		return
	}

	cache.InvalidatePromoCache(code)
	log.Println("⚠️ Code promo désactivé:", code)
	c.JSON(http.StatusOK, gin.H{"message": "Code promo désactivé"})
}

// =============================================
// VALIDATION (lecture seule, côté panier)
// =============================================

// ValidatePromo vérifie l'éligibilité d'un code pour le panier courant.
// Toujours 200 : la réponse porte is_valid + reason, jamais de mutation ici.
func ValidatePromo(c *gin.Context) {
	code := strings.ToUpper(strings.TrimSpace(c.Query("code")))
	if code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Paramètre 'code' requis"})
		return
	}

	rawTotal := c.Query("cart_total")
	if rawTotal == "" {
		rawTotal = c.Query("total")
	}
	cartTotal, err := strconv.ParseFloat(rawTotal, 64)
	if err != nil || cartTotal < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Paramètre 'cart_total' invalide"})
		return
	}

	userID := c.GetString("user_id")

	promo, err := cache.GetPromoFromCache(code)
	if err != nil {
		if err == gocql.ErrNotFound {
			c.JSON(http.StatusOK, models.PromoValidation{
				IsValid:      false,
				Reason:       models.PromoReasonNotFound,
				ErrorMessage: "Code promo non trouvé",
			})
			return
		}
		log.Println("❌ Erreur récupération code promo:", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur lors de la validation"})
		return
	}

	userUsage, err := CountUserUsage(promo.ID, userID)
	if err != nil {
		log.Println("❌ Erreur comptage utilisations:", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur lors de la validation"})
		return
	}

	c.JSON(http.StatusOK, promo.Validate(cartTotal, userUsage, time.Now()))
}

// CountUserUsage compte les rédemptions déjà faites par un utilisateur
func CountUserUsage(promoID gocql.UUID, userID string) (int, error) {
	session, err := database.GetShopSession()
	if err != nil {
		return 0, err
	}

	var count int
	err = session.Query(`SELECT COUNT(*) FROM promo_usage WHERE promo_id = ? AND user_id = ?`,
		promoID, userID).Scan(&count)
	if err != nil {
		return 0, err
	}
	return count, nil
}

// =============================================
// RÉDEMPTION (appelée par le webhook de paiement)
// =============================================

// Redeem consomme une utilisation du code promo pour une commande donnée.
// Idempotent par order_id : rejouer le webhook Stripe ne compte qu'une fois.
// Le compteur global est incrémenté par UPDATE conditionnel (CAS) pour que
// deux paiements simultanés ne dépassent jamais max_usage.
func Redeem(promo *models.PromoCode, userID, orderID string) error {
	session, err := database.GetShopSession()
	if err != nil {
		return err
	}

	// 1. Trace d'utilisation, conditionnelle : clé (promo_id, user_id, order_id)
	applied, err := session.Query(`INSERT INTO promo_usage (promo_id, user_id, order_id, used_at)
		VALUES (?, ?, ?, ?) IF NOT EXISTS`,
		promo.ID, userID, orderID, time.Now()).MapScanCAS(map[string]interface{}{})
	if err != nil {
		return err
	}
	if !applied {
		// Déjà comptée pour cette commande
		log.Printf("⚠️ Rédemption déjà enregistrée: %s / commande %s", promo.Code, orderID)
		return nil
	}

	// 2. Incrément du compteur global avec revérification du plafond
	for attempt := 0; attempt < 5; attempt++ {
		var current int
		if err := session.Query(`SELECT current_usage FROM promo_codes WHERE code = ?`,
			promo.Code).Scan(&current); err != nil {
			rollbackUsage(session, promo.ID, userID, orderID)
			return err
		}

		if !promo.CanRedeem(current) {
			// Le plafond a été atteint entre la validation et le paiement
			rollbackUsage(session, promo.ID, userID, orderID)
			return ErrLimitReached
		}

		applied, err := session.Query(`UPDATE promo_codes SET current_usage = ?, updated_at = ?
			WHERE code = ? IF current_usage = ?`,
			current+1, time.Now(), promo.Code, current).MapScanCAS(map[string]interface{}{})
		if err != nil {
			rollbackUsage(session, promo.ID, userID, orderID)
			return err
		}
		if applied {
			cache.InvalidatePromoCache(promo.Code)
			log.Printf("✅ Code promo consommé: %s (utilisation %d) par %s", promo.Code, current+1, userID)
			return nil
		}
		// Un autre paiement a incrémenté entre-temps, on relit et on réessaie
	}

	rollbackUsage(session, promo.ID, userID, orderID)
	return errors.New("trop de contention sur le compteur du code promo")
}

func rollbackUsage(session *gocql.Session, promoID gocql.UUID, userID, orderID string) {
	if err := session.Query(`DELETE FROM promo_usage WHERE promo_id = ? AND user_id = ? AND order_id = ?`,
		promoID, userID, orderID).Exec(); err != nil {
		log.Println("⚠️ Échec rollback promo_usage:", err)
	}
}
