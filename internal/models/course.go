package models

import (
	"time"

	"github.com/gocql/gocql"
)

type Course struct {
	ID            gocql.UUID `json:"id"`
	Title         string     `json:"title"`
	Description   string     `json:"description"`
	Price         float64    `json:"price"` // 0 = cours gratuit
	TotalSections int        `json:"total_sections"`
	IsPublished   bool       `json:"is_published"`
	ImageURL      string     `json:"image_url,omitempty"`
	Tags          []string   `json:"tags,omitempty"`
	CreatedBy     string     `json:"created_by"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// CourseSection - unité de contenu d'un cours, la complétion est suivie à ce grain
type CourseSection struct {
	CourseID  gocql.UUID `json:"course_id"`
	Position  int        `json:"position"`
	SectionID gocql.UUID `json:"section_id"`
	Title     string     `json:"title"`
}

func (c *Course) IsFree() bool {
	return c.Price <= 0
}
