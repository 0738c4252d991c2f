package model

import "time"

// Account stores the upstream OAuth token pair of a user
type Account struct {
	UserID       uint      `json:"user_id" gorm:"primaryKey;autoIncrement:false"`
	AccessToken  string    `json:"-" gorm:"type:text;not null"`
	RefreshToken string    `json:"-" gorm:"type:text"`
	ExpiresAt    time.Time `json:"expires_at"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// IsExpired checks if the stored access token is expired
func (a *Account) IsExpired() bool {
	return !a.ExpiresAt.IsZero() && time.Now().After(a.ExpiresAt)
}
