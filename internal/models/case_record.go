package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// CaseRecord is one imported row. Data holds the row as an ordered JSON
// object whose keys are whatever columns the source carried.
type CaseRecord struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	ProjectID uuid.UUID      `gorm:"type:uuid;index:idx_case_project_row,priority:1;not null" json:"project_id"`
	RowIndex  int            `gorm:"index:idx_case_project_row,priority:2;not null" json:"row_index"`
	Data      datatypes.JSON `gorm:"type:jsonb;not null" json:"data"`
	CreatedAt time.Time      `json:"created_at"`

	Assignments []Assignment `gorm:"foreignKey:CaseID;constraint:OnDelete:CASCADE;" json:"-"`
}

// BeforeCreate assigns a UUID when none is set.
func (c *CaseRecord) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
