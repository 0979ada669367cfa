package learning

import (
	"context"
	"log"
	"net/http"
	"time"

	"bioharvest_back_end/internal/cache"
	"bioharvest_back_end/internal/database"
	"bioharvest_back_end/internal/models"
	"bioharvest_back_end/internal/services"
	"bioharvest_back_end/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/gocql/gocql"
)

// =============================================
// CERTIFICATS
// =============================================

// GenerateCertificate émet le certificat du cours pour l'étudiant connecté.
// Émission unique garantie par UPDATE ... IF certificate_issued = false :
// deux requêtes simultanées ne produisent qu'un seul certificat.
func GenerateCertificate(c *gin.Context) {
	courseID, err := gocql.ParseUUID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Identifiant de cours invalide"})
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
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur lors de la génération du certificat"})
		return
	}

	certificateID := gocql.TimeUUID()
	issuedAt := time.Now()

	if existingID, fresh := enrollment.Certificate.Issue(certificateID, issuedAt); !fresh {
		c.JSON(http.StatusOK, gin.H{
			"message":        "Certificat déjà émis",
			"reason":         "already_issued",
			"certificate_id": existingID,
		})
		return
	}

	course, err := cache.GetCourseFromCache(courseID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Cours non trouvé"})
		return
	}

	if !models.CertificateEligible(len(enrollment.CompletedSections), course.TotalSections) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":  "Progression insuffisante pour obtenir le certificat",
			"reason": "not_eligible",
			"progress": models.ProgressPercent(len(enrollment.CompletedSections),
				course.TotalSections),
			"required": models.CertificateThreshold * 100,
		})
		return
	}

	session, err := database.GetLearningSession()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur de connexion à la base de données"})
		return
	}

	applied, err := session.Query(`UPDATE enrollments
		SET certificate_issued = true, certificate_id = ?, certificate_issued_at = ?
		WHERE student_id = ? AND course_id = ? IF certificate_issued = false`,
		certificateID, issuedAt, studentID, courseID).MapScanCAS(map[string]interface{}{})
	if err != nil {
		log.Println("❌ Erreur émission certificat:", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur lors de la génération du certificat"})
		return
	}
	if !applied {
		// Une requête concurrente a gagné : renvoyer le certificat existant
		existing, err := GetEnrollment(studentID, courseID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur lors de la génération du certificat"})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"message":        "Certificat déjà émis",
			"reason":         "already_issued",
			"certificate_id": existing.Certificate.CertificateID,
		})
		return
	}

	studentName, studentEmail := lookupStudent(studentID)

	cert := models.Certificate{
		CertificateID: certificateID,
		StudentID:     studentID,
		StudentName:   studentName,
		CourseID:      courseID,
		CourseTitle:   course.Title,
		IssuedAt:      issuedAt,
	}

	if err := session.Query(`INSERT INTO certificates_by_id
		(certificate_id, student_id, student_name, course_id, course_title, issued_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		cert.CertificateID, cert.StudentID, cert.StudentName,
		cert.CourseID, cert.CourseTitle, cert.IssuedAt).Exec(); err != nil {
		log.Println("❌ Erreur enregistrement certificat:", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur lors de la génération du certificat"})
		return
	}

	log.Printf("🎓 Certificat émis: %s (%s / %s)", certificateID, studentName, course.Title)

	// PDF + e-mail en arrière-plan : l'émission est déjà actée en base
	go renderAndDeliverCertificate(cert, studentEmail)

	c.JSON(http.StatusCreated, gin.H{
		"certificate_id": certificateID,
		"issued_at":      issuedAt,
		"course_title":   course.Title,
		"student_name":   studentName,
	})
}

// renderAndDeliverCertificate génère le PDF via Chrome headless, le stocke
// dans MinIO et l'envoie par e-mail. Best effort : le certificat reste
// vérifiable même si le rendu échoue.
func renderAndDeliverCertificate(cert models.Certificate, studentEmail string) {
	qr, err := utils.GenerateVerificationQR(cert.CertificateID.String())
	if err != nil {
		log.Println("⚠️ Erreur génération QR certificat:", err)
		return
	}

	pdf, err := utils.RenderCertificatePDF(utils.GetFrontendCertificateBaseURL(),
		cert.CertificateID.String(), cert.StudentName, cert.CourseTitle, qr)
	if err != nil {
		log.Println("⚠️ Erreur rendu PDF certificat:", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := services.UploadCertificatePDF(ctx, cert.CertificateID.String(), pdf); err != nil {
		log.Println("⚠️ Erreur upload PDF certificat:", err)
		return
	}
	log.Println("✅ PDF certificat stocké:", cert.CertificateID)

	if studentEmail != "" {
		html := utils.GenerateCertificateEmailHTML(cert.StudentName, cert.CourseTitle, cert)
		if err := utils.SendEmail(studentEmail, "🎓 Votre certificat BioHarvest Academy",
			html, pdf, "certificat.pdf"); err != nil {
			log.Println("⚠️ Erreur envoi e-mail certificat:", err)
		}
	}
}

// DownloadCertificate renvoie le PDF du certificat de l'étudiant connecté
func DownloadCertificate(c *gin.Context) {
	courseID, err := gocql.ParseUUID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Identifiant de cours invalide"})
		return
	}

	studentID := c.GetString("user_id")

	enrollment, err := GetEnrollment(studentID, courseID)
	if err != nil {
		c.JSON(http.StatusForbidden, gin.H{"error": "Vous n'êtes pas inscrit à ce cours"})
		return
	}
	if !enrollment.Certificate.Issued {
		c.JSON(http.StatusNotFound, gin.H{
			"error":  "Aucun certificat émis pour ce cours",
			"reason": "not_issued",
		})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 15*time.Second)
	defer cancel()

	// Variante URL signée : le front télécharge directement depuis MinIO
	if c.Query("presigned") == "true" {
		url, err := services.GenerateSignedCertificateURL(ctx,
			enrollment.Certificate.CertificateID.String(), 15*time.Minute)
		if err != nil {
			log.Println("⚠️ Erreur génération URL signée:", err)
			c.JSON(http.StatusNotFound, gin.H{"error": "PDF du certificat indisponible, réessayez plus tard"})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"url":        url,
			"expires_in": int((15 * time.Minute).Seconds()),
		})
		return
	}

	pdf, err := services.GetCertificatePDF(ctx, enrollment.Certificate.CertificateID.String())
	if err != nil {
		log.Println("⚠️ PDF certificat introuvable dans MinIO:", err)
		c.JSON(http.StatusNotFound, gin.H{"error": "PDF du certificat indisponible, réessayez plus tard"})
		return
	}

	c.Header("Content-Disposition", "attachment; filename=certificat.pdf")
	c.Data(http.StatusOK, "application/pdf", pdf)
}

// VerifyCertificate - endpoint public, cible du QR code imprimé sur le PDF.
// Aucune authentification : un recruteur doit pouvoir vérifier un certificat.
func VerifyCertificate(c *gin.Context) {
	certificateID, err := gocql.ParseUUID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"valid": false, "error": "Identifiant de certificat invalide"})
		return
	}

	session, err := database.GetLearningSession()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur de connexion à la base de données"})
		return
	}

	var cert models.Certificate
	err = session.Query(`SELECT certificate_id, student_id, student_name, course_id, course_title, issued_at
		FROM certificates_by_id WHERE certificate_id = ?`, certificateID).
		Scan(&cert.CertificateID, &cert.StudentID, &cert.StudentName,
			&cert.CourseID, &cert.CourseTitle, &cert.IssuedAt)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"valid": false, "error": "Certificat non trouvé"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"valid":          true,
		"certificate_id": cert.CertificateID,
		"student_name":   cert.StudentName,
		"course_title":   cert.CourseTitle,
		"issued_at":      cert.IssuedAt,
	})
}

// lookupStudent récupère nom et e-mail de l'étudiant dans le keyspace users
func lookupStudent(studentID string) (string, string) {
	userID, err := gocql.ParseUUID(studentID)
	if err != nil {
		return "Étudiant BioHarvest", ""
	}

	session, err := database.GetUsersSession()
	if err != nil {
		return "Étudiant BioHarvest", ""
	}

	var email, name string
	if err := session.Query(`SELECT email, name FROM users WHERE user_id = ?`, userID).
		Scan(&email, &name); err != nil {
		log.Println("⚠️ Étudiant introuvable:", studentID)
		return "Étudiant BioHarvest", ""
	}
	if name == "" {
		name = email
	}
	return name, email
}
