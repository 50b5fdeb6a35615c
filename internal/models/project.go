package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AI models a project may be configured with.
const (
	AIModelGPT    = "GPT-5.2"
	AIModelSonnet = "Sonnet 4.5"
	AIModelGemini = "Gemini 3.1"
)

// AIModels is the closed set accepted for Project.AIModel.
var AIModels = []string{AIModelGPT, AIModelSonnet, AIModelGemini}

// ValidAIModel reports whether m belongs to AIModels.
func ValidAIModel(m string) bool {
	for _, allowed := range AIModels {
		if m == allowed {
			return true
		}
	}
	return false
}

// Project is a unit of review work owned by an admin.
//
// Status is derived from the scholar assignment, the presence of imported
// cases and the send/launch timestamps; it is recomputed on every mutation.
type Project struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name        string    `gorm:"not null" json:"name" validate:"required,max=200"`
	Description string    `gorm:"type:text" json:"description"`
	Status      string    `gorm:"type:varchar(16);index;not null;default:draft" json:"status"`

	AdminID   uuid.UUID  `gorm:"type:uuid;index;not null" json:"admin_id"`
	ScholarID *uuid.UUID `gorm:"type:uuid;index" json:"scholar_id"`

	AIModel         string  `gorm:"type:varchar(32);not null" json:"ai_model"`
	TotalTokensUsed int64   `gorm:"not null;default:0" json:"total_tokens_used"`
	TotalCost       float64 `gorm:"not null;default:0" json:"total_cost"`
	BudgetLimit     float64 `gorm:"not null;default:0" json:"budget_limit"`

	ParquetFilename *string `json:"parquet_filename"`
	ParquetFilepath *string `json:"-"`
	ParquetSHA256   *string `gorm:"type:varchar(64)" json:"parquet_sha256,omitempty"`
	TotalCases      int     `gorm:"not null;default:0" json:"total_cases"`

	// Version guards against lost updates; every write must match the loaded value.
	Version int `gorm:"not null;default:1" json:"version"`

	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
	SentToScholarAt *time.Time `json:"sent_to_scholar_at"`
	LaunchedAt      *time.Time `json:"launched_at"`

	CaseRecords []CaseRecord `gorm:"constraint:OnDelete:CASCADE;" json:"-"`
}

// BeforeCreate assigns a UUID when none is set.
func (p *Project) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// HasSource reports whether a tabular source is currently imported.
func (p *Project) HasSource() bool {
	return p.ParquetFilename != nil && p.TotalCases > 0
}

// HasScholar reports whether a scholar is assigned.
func (p *Project) HasScholar() bool {
	return p.ScholarID != nil && *p.ScholarID != uuid.Nil
}

// BudgetExceeded is advisory: overrun is displayed, never enforced.
func (p *Project) BudgetExceeded() bool {
	return p.BudgetLimit > 0 && p.TotalCost > p.BudgetLimit
}
