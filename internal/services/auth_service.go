// internal/services/auth_service.go
package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/artime/artime-backend/internal/config"
	"github.com/artime/artime-backend/internal/models"
	"github.com/artime/artime-backend/internal/utils"
)

type AuthService struct {
	db            *gorm.DB
	cfg           *config.Config
	notifications *NotificationService
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type RegisterRequest struct {
	Username    string                 `json:"username" validate:"required,username"`
	Email       string                 `json:"email" validate:"required,email"`
	Password    string                 `json:"password" validate:"required,strong_password"`
	UserType    models.UserType        `json:"user_type" validate:"required"`
	ProfileData map[string]interface{} `json:"profile_data,omitempty"`
}

type AuthResponse struct {
	User         *models.User `json:"user"`
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	TokenType    string       `json:"token_type"`
	ExpiresIn    int          `json:"expires_in"` // in seconds
}

type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type ResetPasswordRequest struct {
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,strong_password"`
}

type GrantRepresentationRequest struct {
	ArtistID  uuid.UUID `json:"artist_id" validate:"required"`
	ManagerID uuid.UUID `json:"manager_id" validate:"required"`
}

func NewAuthService(db *gorm.DB, cfg *config.Config, notifications *NotificationService) *AuthService {
	return &AuthService{
		db:            db,
		cfg:           cfg,
		notifications: notifications,
	}
}

func (s *AuthService) Register(req *RegisterRequest) (*AuthResponse, error) {
	// Validate request
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	// Check if user already exists
	var existingUser models.User
	if err := s.db.Where("email = ? OR username = ?", req.Email, req.Username).First(&existingUser).Error; err == nil {
		return nil, ErrUserExists
	}

	// Admin accounts are seeded, never self-registered
	switch req.UserType {
	case models.UserTypeArtist, models.UserTypeManager, models.UserTypeVenue, models.UserTypePromoter:
	default:
		return nil, errors.New("invalid user type")
	}

	// Create new user
	user := &models.User{
		Username:    req.Username,
		Email:       req.Email,
		UserType:    req.UserType,
		Status:      models.UserStatusActive,
		ProfileData: models.JSONB(req.ProfileData),
	}

	// Set password
	if err := user.SetPassword(req.Password); err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	// Save user
	if err := s.db.Create(user).Error; err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return s.buildAuthResponse(user)
}

func (s *AuthService) Login(req *LoginRequest) (*AuthResponse, error) {
	// Validate request
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	// Find user by email
	var user models.User
	if err := s.db.Where("email = ?", req.Email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("invalid email or password")
		}
		return nil, fmt.Errorf("database error: %w", err)
	}

	// Check if user is suspended or banned
	if user.Status == models.UserStatusSuspended {
		return nil, errors.New("account is suspended")
	}
	if user.Status == models.UserStatusBanned {
		return nil, errors.New("account is banned")
	}

	// Verify password
	if err := user.CheckPassword(req.Password); err != nil {
		return nil, errors.New("invalid email or password")
	}

	// Update last login time
	now := time.Now()
	user.LastLoginAt = &now
	s.db.Save(&user)

	return s.buildAuthResponse(&user)
}

func (s *AuthService) RefreshToken(refreshToken string) (*AuthResponse, error) {
	// Validate refresh token
	userIDStr, err := utils.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, fmt.Errorf("invalid refresh token: %w", err)
	}

	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		return nil, fmt.Errorf("invalid user ID in token: %w", err)
	}

	// Find user
	var user models.User
	if err := s.db.First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Resource: "user"}
		}
		return nil, fmt.Errorf("database error: %w", err)
	}

	// Check user status
	if user.Status != models.UserStatusActive {
		return nil, errors.New("account is not active")
	}

	return s.buildAuthResponse(&user)
}

func (s *AuthService) ForgotPassword(req *ForgotPasswordRequest) error {
	if err := utils.ValidateStruct(req); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	var user models.User
	if err := s.db.Where("email = ?", req.Email).First(&user).Error; err != nil {
		// Do not reveal whether the email is registered.
		return nil
	}

	token, err := utils.GenerateVerificationCode()
	if err != nil {
		return fmt.Errorf("failed to generate reset token: %w", err)
	}

	if user.ProfileData == nil {
		user.ProfileData = models.JSONB{}
	}
	user.ProfileData["reset_token"] = utils.HashString(token)
	user.ProfileData["reset_token_expires"] = time.Now().Add(time.Hour).Format(time.RFC3339)
	if err := s.db.Save(&user).Error; err != nil {
		return fmt.Errorf("failed to store reset token: %w", err)
	}

	return s.notifications.SendPasswordResetEmail(&user, token)
}

func (s *AuthService) ResetPassword(req *ResetPasswordRequest) error {
	if err := utils.ValidateStruct(req); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	hashed := utils.HashString(req.Token)
	var user models.User
	if err := s.db.Where("profile_data->>'reset_token' = ?", hashed).First(&user).Error; err != nil {
		return errors.New("invalid or expired reset token")
	}

	expiresStr, _ := user.ProfileData["reset_token_expires"].(string)
	expires, err := time.Parse(time.RFC3339, expiresStr)
	if err != nil || time.Now().After(expires) {
		return errors.New("invalid or expired reset token")
	}

	if err := user.SetPassword(req.NewPassword); err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	delete(user.ProfileData, "reset_token")
	delete(user.ProfileData, "reset_token_expires")

	if err := s.db.Save(&user).Error; err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	return nil
}

// GrantRepresentation records an active artist-manager representation. Only
// the artist themselves or an admin may grant it; the manager may then act on
// the artist's bookings.
func (s *AuthService) GrantRepresentation(grantedBy Actor, req *GrantRepresentationRequest) (*models.ArtistManagerRepresentation, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	if grantedBy.Role != models.RoleAdmin && grantedBy.UserID != req.ArtistID {
		return nil, ErrForbiddenRole
	}

	var artist, manager models.User
	if err := s.db.First(&artist, "id = ? AND user_type = ?", req.ArtistID, models.UserTypeArtist).Error; err != nil {
		return nil, &NotFoundError{Resource: "artist"}
	}
	if err := s.db.First(&manager, "id = ? AND user_type = ?", req.ManagerID, models.UserTypeManager).Error; err != nil {
		return nil, &NotFoundError{Resource: "manager"}
	}

	var existing models.ArtistManagerRepresentation
	if err := s.db.Where("artist_id = ? AND manager_id = ? AND is_active = ?",
		req.ArtistID, req.ManagerID, true).First(&existing).Error; err == nil {
		return &existing, nil
	}

	rep := &models.ArtistManagerRepresentation{
		ArtistID:  req.ArtistID,
		ManagerID: req.ManagerID,
		IsActive:  true,
		StartedAt: time.Now(),
	}
	if err := s.db.Create(rep).Error; err != nil {
		return nil, fmt.Errorf("failed to create representation: %w", err)
	}
	return rep, nil
}

// RevokeRepresentation ends an active representation; the manager loses
// standing on the artist's bookings from that point on.
func (s *AuthService) RevokeRepresentation(revokedBy Actor, artistID, managerID uuid.UUID) error {
	if revokedBy.Role != models.RoleAdmin && revokedBy.UserID != artistID {
		return ErrForbiddenRole
	}

	now := time.Now()
	res := s.db.Model(&models.ArtistManagerRepresentation{}).
		Where("artist_id = ? AND manager_id = ? AND is_active = ?", artistID, managerID, true).
		Updates(map[string]interface{}{"is_active": false, "ended_at": now})
	if res.Error != nil {
		return fmt.Errorf("failed to revoke representation: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return &NotFoundError{Resource: "active representation"}
	}
	return nil
}

func (s *AuthService) GetUserByID(userID uuid.UUID) (*models.User, error) {
	var user models.User
	if err := s.db.First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Resource: "user"}
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	return &user, nil
}

func (s *AuthService) buildAuthResponse(user *models.User) (*AuthResponse, error) {
	accessToken, err := utils.GenerateJWT(
		user.ID,
		user.Username,
		string(user.UserType),
		s.cfg.JWT.AccessTokenTTL,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	refreshToken, err := utils.GenerateRefreshToken(user.ID, s.cfg.JWT.RefreshTokenTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	return &AuthResponse{
		User:         user,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    s.cfg.JWT.AccessTokenTTL * 3600,
	}, nil
}
