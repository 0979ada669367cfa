package cache

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"bioharvest_back_end/internal/database"
	"bioharvest_back_end/internal/models"

	"github.com/gocql/gocql"
)

const (
	PromoCacheTTL   = 2 * time.Minute // Court : current_usage bouge à chaque rédemption
	CourseCacheTTL  = 10 * time.Minute
	ProductCacheTTL = 10 * time.Minute
)

// GetPromoFromCache récupère un code promo depuis Redis ou ScyllaDB.
// Attention : current_usage peut être légèrement en retard, la rédemption
// revérifie toujours le compteur côté base (UPDATE conditionnel).
func GetPromoFromCache(code string) (*models.PromoCode, error) {
	ctx := context.Background()
	code = strings.ToUpper(code)
	key := "promo:" + code

	// 1. Essayer le cache Redis
	data, err := database.Redis.Get(ctx, key).Result()
	if err == nil {
		var promo models.PromoCode
		if json.Unmarshal([]byte(data), &promo) == nil {
			return &promo, nil
		}
	}

	// 2. Récupérer de ScyllaDB (prepared statement, chemin chaud)
	query := database.GetPreparedGetPromoByCode()
	if query == nil {
		session, err := database.GetShopSession()
		if err != nil {
			return nil, err
		}
		query = session.Query(`SELECT id, code, name, description, discount_type, discount_value,
			max_discount, minimum_order_amount, max_usage, max_usage_per_user, current_usage,
			starts_at, ends_at, is_active, created_by, created_at, updated_at
			FROM promo_codes WHERE code = ?`)
	}

	var promo models.PromoCode
	err = query.Bind(code).Scan(
		&promo.ID, &promo.Code, &promo.Name, &promo.Description, &promo.DiscountType,
		&promo.DiscountValue, &promo.MaxDiscount, &promo.MinimumOrderAmount, &promo.MaxUsage,
		&promo.MaxUsagePerUser, &promo.CurrentUsage, &promo.StartsAt, &promo.EndsAt,
		&promo.IsActive, &promo.CreatedBy, &promo.CreatedAt, &promo.UpdatedAt)
	if err != nil {
		return nil, err
	}

	// 3. Mettre en cache
	jsonData, _ := json.Marshal(promo)
	database.Redis.Set(ctx, key, jsonData, PromoCacheTTL)

	return &promo, nil
}

// InvalidatePromoCache purge le cache d'un code promo (après modif admin ou rédemption)
func InvalidatePromoCache(code string) {
	database.Redis.Del(context.Background(), "promo:"+strings.ToUpper(code))
}

// GetCourseFromCache récupère un cours depuis Redis ou ScyllaDB
func GetCourseFromCache(courseID gocql.UUID) (*models.Course, error) {
	ctx := context.Background()
	key := "course:" + courseID.String()

	data, err := database.Redis.Get(ctx, key).Result()
	if err == nil {
		var course models.Course
		if json.Unmarshal([]byte(data), &course) == nil {
			return &course, nil
		}
	}

	session, err := database.GetLearningSession()
	if err != nil {
		return nil, err
	}

	var course models.Course
	err = session.Query(`SELECT course_id, title, description, price, total_sections,
		is_published, image_url, tags, created_by, created_at, updated_at
		FROM courses WHERE course_id = ?`, courseID).Scan(
		&course.ID, &course.Title, &course.Description, &course.Price, &course.TotalSections,
		&course.IsPublished, &course.ImageURL, &course.Tags, &course.CreatedBy,
		&course.CreatedAt, &course.UpdatedAt)
	if err != nil {
		return nil, err
	}

	jsonData, _ := json.Marshal(course)
	database.Redis.Set(ctx, key, jsonData, CourseCacheTTL)

	return &course, nil
}

// InvalidateCourseCache purge le cache d'un cours (après modif admin)
func InvalidateCourseCache(courseID gocql.UUID) {
	database.Redis.Del(context.Background(), "course:"+courseID.String())
}

// InvalidateProductListCache purge la liste produits (après création/modif)
func InvalidateProductListCache() {
	database.Redis.Del(context.Background(), "products:all")
}
