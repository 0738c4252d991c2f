package model

import (
	"time"

	"gorm.io/datatypes"
)

// VendorStatusActive is the activation status code of a live vendor
const VendorStatusActive = 2

// Vendor is an activation record linking an external vendor to a profile
type Vendor struct {
	ID        uint              `json:"id" gorm:"primarykey"`
	VendorID  uint              `json:"vendor_id" gorm:"index"`
	ProfileID *uint             `json:"profile_id,omitempty" gorm:"index"`
	Profile   *Enumeration      `json:"-" gorm:"foreignKey:ProfileID;constraint:OnDelete:CASCADE"`
	StartDate *time.Time        `json:"start_date,omitempty"`
	Status    int               `json:"status" gorm:"index"`
	Extra     datatypes.JSONMap `json:"extra,omitempty" gorm:"type:jsonb"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
	DeletedAt *time.Time        `json:"deleted_at,omitempty"`
}

// TableName pins the table name shared with the reporting pipeline
func (Vendor) TableName() string {
	return "vendors"
}

// ActiveVendor is an activation record joined with its profile node
type ActiveVendor struct {
	VendorID     uint              `gorm:"column:vendor_id"`
	ProfileID    *uint             `gorm:"column:profile_id"`
	ProfileTitle *string           `gorm:"column:profile_title"`
	Extra        datatypes.JSONMap `gorm:"column:extra"`
}
