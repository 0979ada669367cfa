package learning

import (
	"log"
	"net/http"
	"time"

	"bioharvest_back_end/internal/cache"
	"bioharvest_back_end/internal/database"
	"bioharvest_back_end/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/gocql/gocql"
)

// =============================================
// INSCRIPTIONS
// =============================================

// Enroll inscrit l'étudiant connecté à un cours gratuit.
// Les cours payants passent par le checkout Stripe, l'inscription est alors
// créée par le webhook de paiement.
func Enroll(c *gin.Context) {
	courseID, err := gocql.ParseUUID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Identifiant de cours invalide"})
		return
	}

	studentID := c.GetString("user_id")

	course, err := cache.GetCourseFromCache(courseID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Cours non trouvé"})
		return
	}
	if !course.IsPublished {
		c.JSON(http.StatusNotFound, gin.H{"error": "Cours non trouvé"})
		return
	}
	if !course.IsFree() {
		c.JSON(http.StatusPaymentRequired, gin.H{
			"error": "Ce cours est payant, passez par le paiement",
			"price": course.Price,
		})
		return
	}

	created, enrollment, err := CreateEnrollment(studentID, courseID, "")
	if err != nil {
		log.Println("❌ Erreur inscription:", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur lors de l'inscription"})
		return
	}
	if !created {
		c.JSON(http.StatusConflict, gin.H{
			"error":  "Vous êtes déjà inscrit à ce cours",
			"reason": "already_enrolled",
		})
		return
	}

	log.Printf("✅ Inscription créée: étudiant %s → cours %s", studentID, course.Title)
	c.JSON(http.StatusCreated, enrollment)
}

// CreateEnrollment crée une inscription si elle n'existe pas déjà.
// Conditionnelle sur la clé (student_id, course_id) : rejouable sans doublon,
// le webhook Stripe peut donc la rappeler sans risque.
func CreateEnrollment(studentID string, courseID gocql.UUID, paymentIntentID string) (bool, *models.Enrollment, error) {
	session, err := database.GetLearningSession()
	if err != nil {
		return false, nil, err
	}

	now := time.Now()
	enrollment := models.Enrollment{
		EnrollmentID:      gocql.TimeUUID(),
		StudentID:         studentID,
		CourseID:          courseID,
		EnrollmentDate:    now,
		LastAccessed:      now,
		CompletedSections: map[gocql.UUID]time.Time{},
		PaymentIntentID:   paymentIntentID,
	}

	applied, err := session.Query(`INSERT INTO enrollments
		(student_id, course_id, enrollment_id, enrollment_date, last_accessed,
		completed_sections, section_scores, certificate_issued, payment_intent_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, false, ?) IF NOT EXISTS`,
		enrollment.StudentID, enrollment.CourseID, enrollment.EnrollmentID,
		enrollment.EnrollmentDate, enrollment.LastAccessed,
		enrollment.CompletedSections, map[gocql.UUID]float64{},
		enrollment.PaymentIntentID).MapScanCAS(map[string]interface{}{})
	if err != nil {
		return false, nil, err
	}
	return applied, &enrollment, nil
}

// GetEnrollment charge l'inscription d'un étudiant à un cours
// (prepared statement, relu à chaque mise à jour de progression)
func GetEnrollment(studentID string, courseID gocql.UUID) (*models.Enrollment, error) {
	query := database.GetPreparedGetEnrollment()
	if query == nil {
		session, err := database.GetLearningSession()
		if err != nil {
			return nil, err
		}
		query = session.Query(`SELECT enrollment_id, enrollment_date, last_accessed,
			completed_sections, section_scores, certificate_issued, certificate_id,
			certificate_issued_at, payment_intent_id
			FROM enrollments WHERE student_id = ? AND course_id = ?`)
	}

	e := models.Enrollment{StudentID: studentID, CourseID: courseID}
	var certIssuedAt time.Time

	err := query.Bind(studentID, courseID).
		Scan(&e.EnrollmentID, &e.EnrollmentDate, &e.LastAccessed,
			&e.CompletedSections, &e.SectionScores, &e.Certificate.Issued,
			&e.Certificate.CertificateID, &certIssuedAt, &e.PaymentIntentID)
	if err != nil {
		return nil, err
	}
	if !certIssuedAt.IsZero() {
		e.Certificate.IssuedAt = &certIssuedAt
	}
	if e.CompletedSections == nil {
		e.CompletedSections = map[gocql.UUID]time.Time{}
	}
	return &e, nil
}

// MyEnrollments retourne le tableau de bord de l'étudiant connecté :
// chaque inscription avec le titre du cours, la progression et le statut dérivés.
func MyEnrollments(c *gin.Context) {
	studentID := c.GetString("user_id")

	session, err := database.GetLearningSession()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur de connexion à la base de données"})
		return
	}

	iter := session.Query(`SELECT course_id, enrollment_id, enrollment_date, last_accessed,
		completed_sections, certificate_issued, certificate_id
		FROM enrollments WHERE student_id = ?`, studentID).Iter()

	type enrollmentView struct {
		CourseID          gocql.UUID `json:"course_id"`
		CourseTitle       string     `json:"course_title"`
		EnrollmentID      gocql.UUID `json:"enrollment_id"`
		EnrollmentDate    time.Time  `json:"enrollment_date"`
		LastAccessed      time.Time  `json:"last_accessed"`
		CompletedSections int        `json:"completed_sections"`
		TotalSections     int        `json:"total_sections"`
		Progress          float64    `json:"progress"`
		Status            string     `json:"status"`
		CertificateIssued bool       `json:"certificate_issued"`
		CertificateID     gocql.UUID `json:"certificate_id,omitempty"`
	}

	dashboard := []enrollmentView{}
	var (
		courseID      gocql.UUID
		enrollmentID  gocql.UUID
		enrolledAt    time.Time
		lastAccessed  time.Time
		completed     map[gocql.UUID]time.Time
		certIssued    bool
		certificateID gocql.UUID
	)
	for iter.Scan(&courseID, &enrollmentID, &enrolledAt, &lastAccessed,
		&completed, &certIssued, &certificateID) {
		view := enrollmentView{
			CourseID:          courseID,
			EnrollmentID:      enrollmentID,
			EnrollmentDate:    enrolledAt,
			LastAccessed:      lastAccessed,
			CompletedSections: len(completed),
			CertificateIssued: certIssued,
			CertificateID:     certificateID,
		}
		if course, err := cache.GetCourseFromCache(courseID); err == nil {
			view.CourseTitle = course.Title
			view.TotalSections = course.TotalSections
			view.Progress = models.ProgressPercent(len(completed), course.TotalSections)
			view.Status = models.DeriveEnrollmentStatus(len(completed), course.TotalSections)
		}
		dashboard = append(dashboard, view)
		completed = nil
	}
	if err := iter.Close(); err != nil {
		log.Println("❌ Erreur lecture inscriptions:", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur lors de la récupération des inscriptions"})
		return
	}

	// La consultation du tableau de bord rafraîchit last_accessed
	now := time.Now()
	for _, view := range dashboard {
		if err := session.Query(`UPDATE enrollments SET last_accessed = ? WHERE student_id = ? AND course_id = ?`,
			now, studentID, view.CourseID).Exec(); err != nil {
			log.Println("⚠️ Erreur mise à jour last_accessed:", err)
		}
	}

	c.JSON(http.StatusOK, dashboard)
}

// =============================================
// PROGRESSION
// =============================================

type completeSectionInput struct {
	SectionID string   `json:"section_id" binding:"required"`
	Score     *float64 `json:"score"`
}

// CompleteSection enregistre la complétion d'une section par l'étudiant connecté.
// Idempotent : recompléter une section déjà faite ne change ni la progression
// ni l'horodatage de première complétion.
func CompleteSection(c *gin.Context) {
	courseID, err := gocql.ParseUUID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Identifiant de cours invalide"})
		return
	}

	var input completeSectionInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Données invalides: " + err.Error()})
		return
	}

	sectionID, err := gocql.ParseUUID(input.SectionID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Identifiant de section invalide"})
		return
	}
	if input.Score != nil && (*input.Score < 0 || *input.Score > 100) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Le score doit être entre 0 et 100"})
		return
	}

	studentID := c.GetString("user_id")

	enrollment, err := GetEnrollment(studentID, courseID)
	if err != nil {
		if err == gocql.ErrNotFound {
			c.JSON(http.StatusForbidden, gin.H{"error": "Vous n'êtes pas inscrit à ce cours"})
			return
		}
		log.Println("❌ Erreur lecture inscription:", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur lors de la mise à jour"})
		return
	}

	course, err := cache.GetCourseFromCache(courseID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Cours non trouvé"})
		return
	}

	// La section doit appartenir au cours
	sections, err := GetSectionsForCourse(courseID)
	if err != nil {
		log.Println("❌ Erreur lecture sections:", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur lors de la mise à jour"})
		return
	}
	found := false
	for _, s := range sections {
		if s.SectionID == sectionID {
			found = true
			break
		}
	}
	if !found {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Cette section n'appartient pas à ce cours"})
		return
	}

	session, err := database.GetLearningSession()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur de connexion à la base de données"})
		return
	}

	now := time.Now()
	if _, alreadyDone := enrollment.CompletedSections[sectionID]; !alreadyDone {
		// L'écriture map[clé] = valeur est naturellement idempotente côté Scylla
		if err := session.Query(`UPDATE enrollments SET completed_sections[?] = ?, last_accessed = ?
			WHERE student_id = ? AND course_id = ?`,
			sectionID, now, now, studentID, courseID).Exec(); err != nil {
			log.Println("❌ Erreur enregistrement progression:", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur lors de la mise à jour"})
			return
		}
		enrollment.CompletedSections[sectionID] = now
	} else {
		if err := session.Query(`UPDATE enrollments SET last_accessed = ? WHERE student_id = ? AND course_id = ?`,
			now, studentID, courseID).Exec(); err != nil {
			log.Println("⚠️ Erreur mise à jour last_accessed:", err)
		}
	}

	if input.Score != nil {
		if err := session.Query(`UPDATE enrollments SET section_scores[?] = ?
			WHERE student_id = ? AND course_id = ?`,
			sectionID, *input.Score, studentID, courseID).Exec(); err != nil {
			log.Println("⚠️ Erreur enregistrement score:", err)
		}
	}

	completed := len(enrollment.CompletedSections)
	c.JSON(http.StatusOK, gin.H{
		"completed_sections":   completed,
		"total_sections":       course.TotalSections,
		"progress":             models.ProgressPercent(completed, course.TotalSections),
		"status":               models.DeriveEnrollmentStatus(completed, course.TotalSections),
		"certificate_eligible": models.CertificateEligible(completed, course.TotalSections),
	})
}
