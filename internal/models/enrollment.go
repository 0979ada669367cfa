package models

import (
	"time"

	"github.com/gocql/gocql"
)

// Statuts dérivés d'une inscription, jamais stockés
const (
	EnrollmentStatusEnrolled   = "enrolled"
	EnrollmentStatusInProgress = "in-progress"
	EnrollmentStatusCompleted  = "completed"
)

// Seuil de progression pour l'émission du certificat (80%)
const CertificateThreshold = 0.80

type Enrollment struct {
	EnrollmentID      gocql.UUID                `json:"enrollment_id"`
	StudentID         string                    `json:"student_id"`
	CourseID          gocql.UUID                `json:"course_id"`
	EnrollmentDate    time.Time                 `json:"enrollment_date"`
	LastAccessed      time.Time                 `json:"last_accessed"`
	CompletedSections map[gocql.UUID]time.Time  `json:"completed_sections"`
	SectionScores     map[gocql.UUID]float64    `json:"section_scores,omitempty"`
	Certificate       EnrollmentCertificate     `json:"certificate"`
	PaymentIntentID   string                    `json:"payment_intent_id,omitempty"`
}

type EnrollmentCertificate struct {
	Issued        bool       `json:"issued"`
	CertificateID gocql.UUID `json:"certificate_id,omitempty"`
	IssuedAt      *time.Time `json:"issued_at,omitempty"`
}

// Issue marque le certificat comme émis. Transition à sens unique : une fois
// émis, l'identifiant ne change plus jamais et les appels suivants retournent
// l'identifiant d'origine avec false.
func (c *EnrollmentCertificate) Issue(certificateID gocql.UUID, at time.Time) (gocql.UUID, bool) {
	if c.Issued {
		return c.CertificateID, false
	}
	c.Issued = true
	c.CertificateID = certificateID
	c.IssuedAt = &at
	return certificateID, true
}

// Certificate - ligne publique de vérification (certificates_by_id)
type Certificate struct {
	CertificateID gocql.UUID `json:"certificate_id"`
	StudentID     string     `json:"student_id"`
	StudentName   string     `json:"student_name"`
	CourseID      gocql.UUID `json:"course_id"`
	CourseTitle   string     `json:"course_title"`
	IssuedAt      time.Time  `json:"issued_at"`
}

// DeriveEnrollmentStatus - fonction pure de (sections complétées, total)
func DeriveEnrollmentStatus(completedSections, totalSections int) string {
	switch {
	case completedSections <= 0:
		return EnrollmentStatusEnrolled
	case totalSections > 0 && completedSections >= totalSections:
		return EnrollmentStatusCompleted
	default:
		return EnrollmentStatusInProgress
	}
}

// ProgressPercent retourne la progression en pourcentage (0-100)
func ProgressPercent(completedSections, totalSections int) float64 {
	if totalSections <= 0 {
		return 0
	}
	pct := float64(completedSections) / float64(totalSections) * 100
	if pct > 100 {
		pct = 100
	}
	return pct
}

// CertificateEligible - éligible dès 80% des sections complétées
func CertificateEligible(completedSections, totalSections int) bool {
	if totalSections <= 0 {
		return false
	}
	return float64(completedSections)/float64(totalSections) >= CertificateThreshold
}

// Status dérive le statut courant de l'inscription
func (e *Enrollment) Status(totalSections int) string {
	return DeriveEnrollmentStatus(len(e.CompletedSections), totalSections)
}

// Progress dérive la progression courante
func (e *Enrollment) Progress(totalSections int) float64 {
	return ProgressPercent(len(e.CompletedSections), totalSections)
}
