package model

import (
	"time"

	"gorm.io/datatypes"
)

// Enumeration is a node of the generic taxonomy tree. Profiles are the
// children of a configured root node.
type Enumeration struct {
	ID        uint              `json:"id" gorm:"primarykey"`
	ParentID  *uint             `json:"parent_id,omitempty" gorm:"index"`
	Parent    *Enumeration      `json:"-" gorm:"foreignKey:ParentID;constraint:OnDelete:CASCADE"`
	Title     string            `json:"title" gorm:"type:varchar(255)"`
	Extra     datatypes.JSONMap `json:"extra,omitempty" gorm:"type:jsonb"`
	Status    bool              `json:"status" gorm:"default:true"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
	// Plain timestamp on purpose: rows with deleted_at set stay visible.
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
}

// TableName pins the table name shared with the reporting pipeline
func (Enumeration) TableName() string {
	return "enumerations"
}
