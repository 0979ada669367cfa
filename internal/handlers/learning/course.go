package learning

import (
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
// CATALOGUE DE COURS
// =============================================

type createCourseInput struct {
	Title       string   `json:"title" binding:"required"`
	Description string   `json:"description"`
	Price       float64  `json:"price"`
	ImageURL    string   `json:"image_url"`
	Tags        []string `json:"tags"`
}

// CreateCourse crée un cours en brouillon (admin). Un cours naît non publié
// et sans sections, il n'apparaît pas dans le catalogue tant qu'il ne l'est pas.
func CreateCourse(c *gin.Context) {
	var input createCourseInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Données invalides: " + err.Error()})
		return
	}

	if input.Price < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Le prix ne peut pas être négatif"})
		return
	}

	session, err := database.GetLearningSession()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur de connexion à la base de données"})
		return
	}

	now := time.Now()
	course := models.Course{
		ID:            gocql.TimeUUID(),
		Title:         input.Title,
		Description:   input.Description,
		Price:         input.Price,
		TotalSections: 0,
		IsPublished:   false,
		ImageURL:      input.ImageURL,
		Tags:          input.Tags,
		CreatedBy:     c.GetString("user_id"),
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	err = session.Query(`INSERT INTO courses (course_id, title, description, price, total_sections,
		is_published, image_url, tags, created_by, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		course.ID, course.Title, course.Description, course.Price, course.TotalSections,
		course.IsPublished, course.ImageURL, course.Tags, course.CreatedBy,
		course.CreatedAt, course.UpdatedAt).Exec()
	if err != nil {
		log.Println("❌ Erreur création cours:", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur lors de la création du cours"})
		return
	}

	log.Println("✅ Cours créé:", course.Title)
	c.JSON(http.StatusCreated, course)
}

// GetAllCourses liste les cours publiés (catalogue public).
// Les admins voient aussi les brouillons.
func GetAllCourses(c *gin.Context) {
	session, err := database.GetLearningSession()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur de connexion à la base de données"})
		return
	}

	isAdmin := c.GetString("role") == "admin"

	iter := session.Query(`SELECT course_id, title, description, price, total_sections,
		is_published, image_url, tags, created_by, created_at, updated_at FROM courses`).Iter()

	courses := []models.Course{}
	var course models.Course
	for iter.Scan(&course.ID, &course.Title, &course.Description, &course.Price,
		&course.TotalSections, &course.IsPublished, &course.ImageURL, &course.Tags,
		&course.CreatedBy, &course.CreatedAt, &course.UpdatedAt) {
		if course.IsPublished || isAdmin {
			courses = append(courses, course)
		}
		course = models.Course{}
	}
	if err := iter.Close(); err != nil {
		log.Println("❌ Erreur lecture cours:", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur lors de la récupération des cours"})
		return
	}

	c.JSON(http.StatusOK, courses)
}

// GetCourse retourne un cours et ses sections
func GetCourse(c *gin.Context) {
	courseID, err := gocql.ParseUUID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Identifiant de cours invalide"})
		return
	}

	course, err := cache.GetCourseFromCache(courseID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Cours non trouvé"})
		return
	}

	if !course.IsPublished && c.GetString("role") != "admin" {
		c.JSON(http.StatusNotFound, gin.H{"error": "Cours non trouvé"})
		return
	}

	sections, err := GetSectionsForCourse(courseID)
	if err != nil {
		log.Println("❌ Erreur lecture sections:", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur lors de la récupération des sections"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"course": course, "sections": sections})
}

// UpdateCourse modifie partiellement un cours (admin)
func UpdateCourse(c *gin.Context) {
	courseID, err := gocql.ParseUUID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Identifiant de cours invalide"})
		return
	}

	var input map[string]interface{}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Données invalides"})
		return
	}

	session, err := database.GetLearningSession()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur de connexion à la base de données"})
		return
	}

	var title string
	if err := session.Query(`SELECT title FROM courses WHERE course_id = ?`, courseID).Scan(&title); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Cours non trouvé"})
		return
	}

	setParts := []string{"updated_at = ?"}
	args := []interface{}{time.Now()}

	if v, ok := input["title"].(string); ok {
		setParts = append(setParts, "title = ?")
		args = append(args, v)
	}
	if v, ok := input["description"].(string); ok {
		setParts = append(setParts, "description = ?")
		args = append(args, v)
	}
	if v, ok := input["price"].(float64); ok {
		if v < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Le prix ne peut pas être négatif"})
			return
		}
		setParts = append(setParts, "price = ?")
		args = append(args, v)
	}
	if v, ok := input["image_url"].(string); ok {
		setParts = append(setParts, "image_url = ?")
		args = append(args, v)
	}
	if v, ok := input["tags"].([]interface{}); ok {
		tags := make([]string, 0, len(v))
		for _, t := range v {
			if s, ok := t.(string); ok {
				tags = append(tags, s)
			}
		}
		setParts = append(setParts, "tags = ?")
		args = append(args, tags)
	}

	query := fmt.Sprintf("UPDATE courses SET %s WHERE course_id = ?", strings.Join(setParts, ", "))
	args = append(args, courseID)

	if err := session.Query(query, args...).Exec(); err != nil {
		log.Println("❌ Erreur mise à jour cours:", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur lors de la mise à jour"})
		return
	}

	cache.InvalidateCourseCache(courseID)
	reindexCourse(courseID)
	c.JSON(http.StatusOK, gin.H{"message": "Cours mis à jour avec succès"})
}

// PublishCourse publie un cours (admin). Refusé tant que le cours n'a pas de sections :
// la progression et le certificat n'auraient aucun sens.
func PublishCourse(c *gin.Context) {
	courseID, err := gocql.ParseUUID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Identifiant de cours invalide"})
		return
	}

	session, err := database.GetLearningSession()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur de connexion à la base de données"})
		return
	}

	var totalSections int
	if err := session.Query(`SELECT total_sections FROM courses WHERE course_id = ?`,
		courseID).Scan(&totalSections); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Cours non trouvé"})
		return
	}
	if totalSections <= 0 {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Impossible de publier un cours sans sections"})
		return
	}

	if err := session.Query(`UPDATE courses SET is_published = true, updated_at = ? WHERE course_id = ?`,
		time.Now(), courseID).Exec(); err != nil {
		log.Println("❌ Erreur publication cours:", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur lors de la publication"})
		return
	}

	cache.InvalidateCourseCache(courseID)
	reindexCourse(courseID)
	log.Println("🚀 Cours publié:", courseID)
	c.JSON(http.StatusOK, gin.H{"message": "Cours publié"})
}

// =============================================
// SECTIONS
// =============================================

type addSectionInput struct {
	Title    string `json:"title" binding:"required"`
	Position int    `json:"position" binding:"required"`
}

// AddSection ajoute une section à un cours (admin) et met à jour total_sections
func AddSection(c *gin.Context) {
	courseID, err := gocql.ParseUUID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Identifiant de cours invalide"})
		return
	}

	var input addSectionInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Données invalides: " + err.Error()})
		return
	}

	session, err := database.GetLearningSession()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur de connexion à la base de données"})
		return
	}

	var totalSections int
	if err := session.Query(`SELECT total_sections FROM courses WHERE course_id = ?`,
		courseID).Scan(&totalSections); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Cours non trouvé"})
		return
	}

	section := models.CourseSection{
		CourseID:  courseID,
		Position:  input.Position,
		SectionID: gocql.TimeUUID(),
		Title:     input.Title,
	}

	// La position est la clé de clustering : pas deux sections au même rang
	applied, err := session.Query(`INSERT INTO course_sections (course_id, position, section_id, title)
		VALUES (?, ?, ?, ?) IF NOT EXISTS`,
		section.CourseID, section.Position, section.SectionID, section.Title).
		MapScanCAS(map[string]interface{}{})
	if err != nil {
		log.Println("❌ Erreur ajout section:", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur lors de l'ajout de la section"})
		return
	}
	if !applied {
		c.JSON(http.StatusConflict, gin.H{"error": "Une section existe déjà à cette position"})
		return
	}

	if err := session.Query(`UPDATE courses SET total_sections = ?, updated_at = ? WHERE course_id = ?`,
		totalSections+1, time.Now(), courseID).Exec(); err != nil {
		log.Println("⚠️ Erreur mise à jour total_sections:", err)
	}

	cache.InvalidateCourseCache(courseID)
	log.Printf("✅ Section ajoutée au cours %s: %s (position %d)", courseID, section.Title, section.Position)
	c.JSON(http.StatusCreated, section)
}

// RemoveSection retire une section d'un cours (admin).
// Refusé dès qu'un étudiant a complété la section : la progression
// enregistrée ne doit jamais pointer vers une section disparue.
func RemoveSection(c *gin.Context) {
	courseID, err := gocql.ParseUUID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Identifiant de cours invalide"})
		return
	}
	sectionID, err := gocql.ParseUUID(c.Param("sectionId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Identifiant de section invalide"})
		return
	}

	sections, err := GetSectionsForCourse(courseID)
	if err != nil {
		log.Println("❌ Erreur lecture sections:", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur lors de la suppression de la section"})
		return
	}
	position := -1
	for _, s := range sections {
		if s.SectionID == sectionID {
			position = s.Position
			break
		}
	}
	if position < 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Section non trouvée"})
		return
	}

	session, err := database.GetLearningSession()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur de connexion à la base de données"})
		return
	}

	// Parcours admin peu fréquent, le filtrage côté serveur est acceptable ici
	iter := session.Query(`SELECT completed_sections FROM enrollments WHERE course_id = ? ALLOW FILTERING`,
		courseID).Iter()
	var completed map[gocql.UUID]time.Time
	referenced := false
	for iter.Scan(&completed) {
		if _, ok := completed[sectionID]; ok {
			referenced = true
		}
		completed = nil
	}
	if err := iter.Close(); err != nil {
		log.Println("❌ Erreur vérification progression:", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur lors de la suppression de la section"})
		return
	}
	if referenced {
		c.JSON(http.StatusConflict, gin.H{
			"error":  "Des étudiants ont déjà complété cette section, suppression impossible",
			"reason": "section_in_use",
		})
		return
	}

	if err := session.Query(`DELETE FROM course_sections WHERE course_id = ? AND position = ?`,
		courseID, position).Exec(); err != nil {
		log.Println("❌ Erreur suppression section:", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur lors de la suppression de la section"})
		return
	}

	if err := session.Query(`UPDATE courses SET total_sections = ?, updated_at = ? WHERE course_id = ?`,
		len(sections)-1, time.Now(), courseID).Exec(); err != nil {
		log.Println("⚠️ Erreur mise à jour total_sections:", err)
	}

	cache.InvalidateCourseCache(courseID)
	log.Printf("✅ Section %s retirée du cours %s", sectionID, courseID)
	c.JSON(http.StatusOK, gin.H{"message": "Section supprimée"})
}

// GetSectionsForCourse retourne les sections d'un cours, triées par position
func GetSectionsForCourse(courseID gocql.UUID) ([]models.CourseSection, error) {
	session, err := database.GetLearningSession()
	if err != nil {
		return nil, err
	}

	iter := session.Query(`SELECT course_id, position, section_id, title
		FROM course_sections WHERE course_id = ?`, courseID).Iter()

	sections := []models.CourseSection{}
	var s models.CourseSection
	for iter.Scan(&s.CourseID, &s.Position, &s.SectionID, &s.Title) {
		sections = append(sections, s)
	}
	return sections, iter.Close()
}

// =============================================
// RECHERCHE
// =============================================

// SearchCourses recherche des cours via Elasticsearch
func SearchCourses(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Paramètre 'q' requis"})
		return
	}

	results, err := services.SearchCourses(query)
	if err != nil {
		log.Println("❌ Erreur recherche cours:", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur lors de la recherche"})
		return
	}

	c.JSON(http.StatusOK, results)
}

// reindexCourse relit le cours et le pousse dans Elasticsearch
func reindexCourse(courseID gocql.UUID) {
	course, err := cache.GetCourseFromCache(courseID)
	if err != nil {
		log.Println("⚠️ Réindexation impossible, cours introuvable:", courseID)
		return
	}
	if course.IsPublished {
		services.IndexCourse(*course)
	}
}
