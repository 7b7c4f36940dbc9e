package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

const (
	TypeOPD = "OPD"
	TypeIPD = "IPD"
)

// Patient is owned by the patient records system. Billing only reads it.
type Patient struct {
	ID         snowflake.ID      `gorm:"primaryKey" json:"id"`
	Name       string            `gorm:"not null" json:"name"`
	Age        int               `gorm:"not null;default:0" json:"age"`
	Gender     string            `gorm:"not null;default:''" json:"gender"`
	Contact    string            `gorm:"not null;default:''" json:"contact"`
	Email      string            `gorm:"not null;default:''" json:"email"`
	Address    string            `gorm:"not null;default:''" json:"address"`
	BloodGroup string            `gorm:"not null;default:''" json:"blood_group"`
	Type       string            `gorm:"not null;default:'OPD'" json:"type"`
	Ward       string            `gorm:"not null;default:''" json:"ward"`
	Diagnosis  string            `gorm:"not null;default:''" json:"diagnosis"`
	Status     string            `gorm:"not null;default:'Active'" json:"status"`
	Metadata   datatypes.JSONMap `json:"metadata,omitempty"`
	CreatedAt  time.Time         `gorm:"not null" json:"created_at"`
	UpdatedAt  time.Time         `gorm:"not null" json:"updated_at"`
}

func (Patient) TableName() string { return "patients" }
