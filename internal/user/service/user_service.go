// Package service содержит бизнес-логику пользователей.
package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"example.com/pku-shop/internal/user/domain"
	"example.com/pku-shop/internal/user/repository"
	"example.com/pku-shop/pkg/jwt"
	"example.com/pku-shop/pkg/logger"
)

// bcryptCost — стоимость хэширования bcrypt.
// Значение 12 обеспечивает хороший баланс безопасности и производительности.
const bcryptCost = 12

// JWTManager определяет интерфейс для работы с JWT токенами.
// Позволяет мокать jwt.Manager в тестах.
type JWTManager interface {
	GenerateTokenPair(userID, role string) (*jwt.TokenPair, error)
	ValidateToken(tokenString string) (*jwt.Claims, error)
	ValidateRefreshToken(tokenString string) (string, error)
}

// RegisterRequest — данные регистрации пользователя.
type RegisterRequest struct {
	Email          string
	Password       string
	Name           string
	Phone          string
	DefaultAddress string
}

// UserService определяет интерфейс бизнес-логики пользователей.
type UserService interface {
	// Register регистрирует нового пользователя с профилем
	// и возвращает токены.
	Register(ctx context.Context, req RegisterRequest) (*domain.User, *domain.TokenPair, error)

	// Login аутентифицирует пользователя и возвращает токены.
	Login(ctx context.Context, email, password string) (*domain.TokenPair, error)

	// Refresh обменивает refresh token на новую пару токенов.
	Refresh(ctx context.Context, refreshToken string) (*domain.TokenPair, error)

	// GetUser возвращает пользователя по ID.
	GetUser(ctx context.Context, userID string) (*domain.User, error)
}

// userService — реализация UserService.
type userService struct {
	repo       repository.UserRepository
	jwtManager JWTManager
}

// NewUserService создаёт новый сервис пользователей.
func NewUserService(repo repository.UserRepository, jwtManager JWTManager) UserService {
	return &userService{
		repo:       repo,
		jwtManager: jwtManager,
	}
}

// Register регистрирует нового пользователя.
// Пользователь и профиль создаются одной транзакцией — явный use-case
// вместо неявных хуков создания профиля.
func (s *userService) Register(ctx context.Context, req RegisterRequest) (*domain.User, *domain.TokenPair, error) {
	log := logger.FromContext(ctx)

	if err := domain.ValidatePassword(req.Password); err != nil {
		log.Warn().Str("email", req.Email).Msg("Попытка регистрации со слабым паролем")
		return nil, nil, err
	}

	user := &domain.User{
		ID:    uuid.New().String(),
		Email: req.Email,
		Name:  req.Name,
		Role:  domain.RoleCustomer,
		Profile: domain.Profile{
			ID:             uuid.New().String(),
			Phone:          req.Phone,
			DefaultAddress: req.DefaultAddress,
		},
	}
	user.Profile.UserID = user.ID

	if err := user.Validate(); err != nil {
		log.Warn().Str("email", req.Email).Err(err).Msg("Ошибка валидации данных пользователя")
		return nil, nil, err
	}

	exists, err := s.repo.ExistsByEmail(ctx, req.Email)
	if err != nil {
		log.Error().Err(err).Str("email", req.Email).Msg("Ошибка проверки существования email")
		return nil, nil, fmt.Errorf("ошибка проверки email: %w", err)
	}
	if exists {
		log.Warn().Str("email", req.Email).Msg("Попытка регистрации с занятым email")
		return nil, nil, domain.ErrEmailExists
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcryptCost)
	if err != nil {
		log.Error().Err(err).Msg("Ошибка хэширования пароля")
		return nil, nil, fmt.Errorf("ошибка хэширования пароля: %w", err)
	}
	user.Password = string(hash)

	if err := s.repo.Create(ctx, user); err != nil {
		if errors.Is(err, domain.ErrEmailExists) {
			return nil, nil, err
		}
		log.Error().Err(err).Str("email", req.Email).Msg("Ошибка создания пользователя")
		return nil, nil, fmt.Errorf("ошибка создания пользователя: %w", err)
	}

	tokens, err := s.issueTokens(user)
	if err != nil {
		log.Error().Err(err).Str("user_id", user.ID).Msg("Ошибка выдачи токенов")
		return nil, nil, fmt.Errorf("ошибка выдачи токенов: %w", err)
	}

	log.Info().
		Str("user_id", user.ID).
		Str("email", user.Email).
		Msg("Зарегистрирован новый пользователь")

	return user, tokens, nil
}

// Login аутентифицирует пользователя и возвращает токены.
func (s *userService) Login(ctx context.Context, email, password string) (*domain.TokenPair, error) {
	log := logger.FromContext(ctx)

	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			// Не раскрываем, существует ли email
			return nil, domain.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("ошибка поиска пользователя: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		log.Warn().Str("email", email).Msg("Неудачная попытка входа")
		return nil, domain.ErrInvalidCredentials
	}

	tokens, err := s.issueTokens(user)
	if err != nil {
		return nil, fmt.Errorf("ошибка выдачи токенов: %w", err)
	}

	log.Info().Str("user_id", user.ID).Msg("Пользователь вошёл в систему")
	return tokens, nil
}

// Refresh обменивает refresh token на новую пару токенов.
func (s *userService) Refresh(ctx context.Context, refreshToken string) (*domain.TokenPair, error) {
	userID, err := s.jwtManager.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, domain.ErrInvalidToken
	}

	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	tokens, err := s.issueTokens(user)
	if err != nil {
		return nil, fmt.Errorf("ошибка выдачи токенов: %w", err)
	}
	return tokens, nil
}

// GetUser возвращает пользователя по ID.
func (s *userService) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	return s.repo.GetByID(ctx, userID)
}

// issueTokens выдаёт пару токенов пользователю.
func (s *userService) issueTokens(user *domain.User) (*domain.TokenPair, error) {
	pair, err := s.jwtManager.GenerateTokenPair(user.ID, user.Role)
	if err != nil {
		return nil, err
	}
	return &domain.TokenPair{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		ExpiresAt:    pair.ExpiresAt,
	}, nil
}
