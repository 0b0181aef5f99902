// Package domain содержит unit тесты для доменных сущностей пользователей.
package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestUser_Validate тестирует валидацию данных пользователя.
func TestUser_Validate(t *testing.T) {
	tests := []struct {
		name        string
		user        User
		expectedErr error
	}{
		{
			name:        "валидные данные",
			user:        User{Name: "Иван", Email: "ivan@example.com"},
			expectedErr: nil,
		},
		{
			name:        "пустой email",
			user:        User{Name: "Иван", Email: ""},
			expectedErr: ErrInvalidEmail,
		},
		{
			name:        "email без домена",
			user:        User{Name: "Иван", Email: "ivan@"},
			expectedErr: ErrInvalidEmail,
		},
		{
			name:        "email без @",
			user:        User{Name: "Иван", Email: "ivan.example.com"},
			expectedErr: ErrInvalidEmail,
		},
		{
			name:        "пустое имя",
			user:        User{Name: "   ", Email: "ivan@example.com"},
			expectedErr: ErrEmptyName,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.user.Validate()
			if tt.expectedErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.expectedErr)
			}
		})
	}
}

// TestValidatePassword тестирует требования к паролю.
func TestValidatePassword(t *testing.T) {
	assert.NoError(t, ValidatePassword("password123"))
	assert.ErrorIs(t, ValidatePassword("short"), ErrWeakPassword)
	assert.ErrorIs(t, ValidatePassword(""), ErrWeakPassword)
}

// TestUser_IsAdmin тестирует проверку роли.
func TestUser_IsAdmin(t *testing.T) {
	assert.True(t, (&User{Role: RoleAdmin}).IsAdmin())
	assert.False(t, (&User{Role: RoleCustomer}).IsAdmin())
	assert.False(t, (&User{}).IsAdmin())
}
