package services

import (
	"context"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/diewo77/jsign/internal/models"
)

// AdminService manages user accounts. Route-level access control is the
// gate's RequireAdmin middleware; this service holds the storage logic.
type AdminService struct {
	db *gorm.DB
}

func NewAdminService(db *gorm.DB) *AdminService {
	return &AdminService{db: db}
}

// ListUsers returns all accounts ordered by username.
func (s *AdminService) ListUsers(ctx context.Context) ([]models.User, error) {
	var users []models.User
	if err := s.db.WithContext(ctx).Order("username").Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

// CreateUser creates an account with a bcrypt-hashed password. The duplicate
// check runs before the insert so the caller gets a clean ErrDuplicateUser
// instead of a driver-specific constraint error.
func (s *AdminService) CreateUser(ctx context.Context, username, email, password, role string) error {
	if role == "" {
		role = models.RoleUser
	}
	var count int64
	if err := s.db.WithContext(ctx).
		Model(&models.User{}).
		Where("username = ? OR email = ?", username, email).
		Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return ErrDuplicateUser
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	user := models.User{Username: username, Email: email, PasswordHash: string(hash), Role: role}
	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateUser
		}
		return err
	}
	return nil
}

// UpdateUser overwrites username, email and role, and re-hashes the password
// only when a new one is supplied. Duplicate username/email surfaces as
// ErrDuplicateUser via the unique indexes.
func (s *AdminService) UpdateUser(ctx context.Context, userID uint, username, email, role, newPassword string) error {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, userID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return ErrNotFound
		}
		return err
	}
	user.Username = username
	user.Email = email
	user.Role = role
	if newPassword != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
		if err != nil {
			return err
		}
		user.PasswordHash = string(hash)
	}
	if err := s.db.WithContext(ctx).Save(&user).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateUser
		}
		return err
	}
	return nil
}

// DeleteUser removes an account. Documents the user uploaded are reassigned
// to the acting admin and the user's acknowledgments are removed, all in one
// transaction so a failure mid-way leaves no partial state. Admins cannot
// delete themselves.
func (s *AdminService) DeleteUser(ctx context.Context, actingAdminID, userID uint) error {
	if userID == actingAdminID {
		return ErrSelfDelete
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.First(&user, userID).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return ErrNotFound
			}
			return err
		}
		if err := tx.Model(&models.Document{}).
			Where("uploader_id = ?", user.ID).
			Update("uploader_id", actingAdminID).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", user.ID).Delete(&models.Acknowledgment{}).Error; err != nil {
			return err
		}
		return tx.Delete(&user).Error
	})
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if err == gorm.ErrDuplicatedKey {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique") || strings.Contains(msg, "duplicate")
}
