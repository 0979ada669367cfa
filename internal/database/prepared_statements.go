package database

import (
	"log"
	"sync"

	"github.com/gocql/gocql"
)

// CQL des chemins chauds. Les requêtes sont construites à CHAQUE appel :
// un *gocql.Query n'est pas partageable entre goroutines (Bind mute la
// valeur en place, deux requêtes simultanées se croiseraient). gocql
// prépare le statement côté serveur au premier passage et le met en cache
// par session, la construction du Query reste bon marché.
const (
	cqlGetUserByEmail = `SELECT user_id FROM users_by_email WHERE email = ?`

	cqlGetUserByID = `SELECT email, password, name, role, provider
		FROM users WHERE user_id = ?`

	cqlGetPromoByCode = `SELECT id, code, name, description, discount_type, discount_value,
		max_discount, minimum_order_amount, max_usage, max_usage_per_user, current_usage,
		starts_at, ends_at, is_active, created_by, created_at, updated_at
		FROM promo_codes WHERE code = ?`

	cqlGetEnrollment = `SELECT enrollment_id, enrollment_date, last_accessed,
		completed_sections, section_scores, certificate_issued, certificate_id, certificate_issued_at, payment_intent_id
		FROM enrollments WHERE student_id = ? AND course_id = ?`
)

var warmupOnce sync.Once

// InitPreparedStatements réchauffe le cache de prepared statements de gocql
// en exécutant une première préparation de chaque requête chaude au démarrage
func InitPreparedStatements() {
	warmupOnce.Do(func() {
		if q := GetPreparedGetUserByEmail(); q == nil {
			log.Println("⚠️ Prepared statements (users) non initialisés, fallback à la demande")
			return
		}
		if q := GetPreparedGetPromoByCode(); q == nil {
			log.Println("⚠️ Prepared statements (shop) non initialisés, fallback à la demande")
			return
		}
		if q := GetPreparedGetEnrollment(); q == nil {
			log.Println("⚠️ Prepared statements (learning) non initialisés, fallback à la demande")
			return
		}
		log.Println("✅ Prepared statements initialisés")
	})
}

// GetPreparedGetUserByEmail retourne une requête fraîche de lookup par email.
// Nil si la session n'est pas disponible : les appelants retombent alors sur
// leur propre requête.
func GetPreparedGetUserByEmail() *gocql.Query {
	session, err := GetUsersSession()
	if err != nil {
		return nil
	}
	return session.Query(cqlGetUserByEmail)
}

func GetPreparedGetUserByID() *gocql.Query {
	session, err := GetUsersSession()
	if err != nil {
		return nil
	}
	return session.Query(cqlGetUserByID)
}

func GetPreparedGetPromoByCode() *gocql.Query {
	session, err := GetShopSession()
	if err != nil {
		return nil
	}
	return session.Query(cqlGetPromoByCode)
}

func GetPreparedGetEnrollment() *gocql.Query {
	session, err := GetLearningSession()
	if err != nil {
		return nil
	}
	return session.Query(cqlGetEnrollment)
}
