// internal/models/user.go
package models

import (
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

type User struct {
	BaseModel
	Username        string     `json:"username" gorm:"uniqueIndex;size:50;not null"`
	Email           string     `json:"email" gorm:"uniqueIndex;size:255;not null"`
	PasswordHash    string     `json:"-" gorm:"size:255;not null"`
	UserType        UserType   `json:"user_type" gorm:"type:varchar(20);not null"`
	Status          UserStatus `json:"status" gorm:"type:varchar(20);default:'active'"`
	ProfileData     JSONB      `json:"profile_data" gorm:"type:jsonb"`
	EmailVerifiedAt *time.Time `json:"email_verified_at"`
	LastLoginAt     *time.Time `json:"last_login_at"`

	// Relationships
	ArtistBookings []Booking `json:"artist_bookings,omitempty" gorm:"foreignKey:ArtistID"`
}

func (u *User) SetPassword(password string) error {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = string(hashedPassword)
	return nil
}

func (u *User) CheckPassword(password string) error {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password))
}

// ArtistManagerRepresentation links a manager to the artist they act for.
// A manager may only act on a booking while an active representation exists
// for the booking's artist.
type ArtistManagerRepresentation struct {
	BaseModel
	ArtistID  uuid.UUID  `json:"artist_id" gorm:"type:uuid;not null;index:idx_representations_pair"`
	ManagerID uuid.UUID  `json:"manager_id" gorm:"type:uuid;not null;index:idx_representations_pair"`
	IsActive  bool       `json:"is_active" gorm:"not null;default:true"`
	StartedAt time.Time  `json:"started_at" gorm:"not null"`
	EndedAt   *time.Time `json:"ended_at"`

	Artist  User `json:"artist,omitempty" gorm:"foreignKey:ArtistID"`
	Manager User `json:"manager,omitempty" gorm:"foreignKey:ManagerID"`
}
