package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/Kjdragan/codescribe/internal/models"
)

// ErrDuplicateEmail is returned by Create when the email is already taken.
var ErrDuplicateEmail = errors.New("customer with this email already exists")

// CustomerStore issues one statement per call against the customers table.
// There is no cache; every call reads or writes the database directly.
type CustomerStore struct {
	db *gorm.DB
}

func NewCustomerStore(db *gorm.DB) *CustomerStore {
	return &CustomerStore{db: db}
}

func (s *CustomerStore) Create(ctx context.Context, email, fullName, bio string) (*models.Customer, error) {
	customer := models.Customer{
		Email:    email,
		FullName: fullName,
		Bio:      bio,
	}

	if err := s.db.WithContext(ctx).Create(&customer).Error; err != nil {
		if isDuplicateKey(err) {
			return nil, fmt.Errorf("create customer %s: %w", email, ErrDuplicateEmail)
		}
		return nil, fmt.Errorf("create customer %s: %w", email, err)
	}

	return &customer, nil
}

// GetByEmail returns nil without an error when no row matches.
func (s *CustomerStore) GetByEmail(ctx context.Context, email string) (*models.Customer, error) {
	var customers []models.Customer

	err := s.db.WithContext(ctx).
		Where("email = ?", email).
		Limit(1).
		Find(&customers).Error
	if err != nil {
		return nil, fmt.Errorf("get customer %s: %w", email, err)
	}

	if len(customers) == 0 {
		return nil, nil
	}
	return &customers[0], nil
}

// UpdateByEmail changes full name and bio only. An unknown email is a no-op
// and reports zero rows affected rather than an error.
func (s *CustomerStore) UpdateByEmail(ctx context.Context, email, fullName, bio string) (int64, error) {
	result := s.db.WithContext(ctx).
		Model(&models.Customer{}).
		Where("email = ?", email).
		Updates(map[string]interface{}{
			"full_name": fullName,
			"bio":       bio,
		})
	if result.Error != nil {
		return 0, fmt.Errorf("update customer %s: %w", email, result.Error)
	}
	return result.RowsAffected, nil
}

// DeleteByEmail follows the same no-op rule as UpdateByEmail.
func (s *CustomerStore) DeleteByEmail(ctx context.Context, email string) (int64, error) {
	result := s.db.WithContext(ctx).
		Where("email = ?", email).
		Delete(&models.Customer{})
	if result.Error != nil {
		return 0, fmt.Errorf("delete customer %s: %w", email, result.Error)
	}
	return result.RowsAffected, nil
}

func (s *CustomerStore) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Customer{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count customers: %w", err)
	}
	return count, nil
}

func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || strings.Contains(msg, "duplicate key")
}
