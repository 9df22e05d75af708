package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"loanDesk/apperrors"
	"loanDesk/models"
	"loanDesk/utils"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// RegisterDTO представляет запрос на регистрацию
type RegisterDTO struct {
	Name     string `json:"name" validate:"required,min=2,max=100"`
	Username string `json:"username" validate:"required,min=3,max=50"`
	Email    string `json:"email" validate:"required,email,max=100"`
	Password string `json:"password" validate:"required,min=8,password"`
	Phone    string `json:"phone" validate:"max=20"`
}

// LoginDTO представляет запрос на вход
type LoginDTO struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Token представляет выданный токен доступа
type Token struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// AuthResult возвращается после регистрации или входа
type AuthResult struct {
	Token Token       `json:"token"`
	User  models.User `json:"user"`
}

// UserService управляет пользователями и выдачей токенов
type UserService struct {
	db        *gorm.DB
	jwtSecret string
	tokenTTL  time.Duration
}

// NewUserService создает новый экземпляр UserService
func NewUserService(db *gorm.DB, jwtSecret string, tokenTTL time.Duration) *UserService {
	return &UserService{db: db, jwtSecret: jwtSecret, tokenTTL: tokenTTL}
}

// Register создает пользователя с ролью user и сразу выдает токен
func (s *UserService) Register(ctx context.Context, dto RegisterDTO) (*AuthResult, error) {
	if err := validateDTO(dto); err != nil {
		return nil, err
	}

	user, err := s.createUser(ctx, dto, models.RoleUser)
	if err != nil {
		return nil, err
	}

	return s.issue(user)
}

// Login проверяет email и пароль и выдает токен
func (s *UserService) Login(ctx context.Context, dto LoginDTO) (*AuthResult, error) {
	if err := validateDTO(dto); err != nil {
		return nil, err
	}

	// Ищем пользователя по email
	user, err := s.FindByEmail(ctx, dto.Email)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.Unauthorized("неверный email или пароль")
		}
		return nil, err
	}

	// Проверяем пароль
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(dto.Password)); err != nil {
		return nil, apperrors.Unauthorized("неверный email или пароль")
	}

	if !user.IsActive {
		return nil, apperrors.Forbidden("учетная запись %s заблокирована", user.Email)
	}

	return s.issue(user)
}

// EnsureAdmin создает администратора, если пользователя с таким email еще нет
func (s *UserService) EnsureAdmin(ctx context.Context, email, password string) error {
	if email == "" || password == "" {
		return nil
	}

	_, err := s.FindByEmail(ctx, email)
	if err == nil {
		return nil
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		return err
	}

	dto := RegisterDTO{
		Name:     "Administrator",
		Username: "admin",
		Email:    email,
		Password: password,
	}
	if _, err := s.createUser(ctx, dto, models.RoleAdmin); err != nil {
		return err
	}

	utils.LogInfo("Создан администратор %s", email)
	return nil
}

// FindByID ищет пользователя по ID
func (s *UserService) FindByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("пользователь %d не найден", id)
		}
		return nil, apperrors.Persistence("ошибка при поиске пользователя", err)
	}
	return &user, nil
}

// FindByEmail ищет пользователя по email (игнорируя регистр и пробелы)
func (s *UserService) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("LOWER(TRIM(email)) = LOWER(TRIM(?))", email).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("пользователь %s не найден", email)
		}
		return nil, apperrors.Persistence("ошибка при поиске пользователя", err)
	}
	return &user, nil
}

// createUser проверяет уникальность, хеширует пароль и сохраняет пользователя
func (s *UserService) createUser(ctx context.Context, dto RegisterDTO, role models.UserRole) (*models.User, error) {
	email := strings.ToLower(strings.TrimSpace(dto.Email))

	// Проверяем, существует ли пользователь с таким email или логином
	var count int64
	err := s.db.WithContext(ctx).Model(&models.User{}).
		Where("LOWER(email) = ? OR username = ?", email, dto.Username).
		Count(&count).Error
	if err != nil {
		return nil, apperrors.Persistence("ошибка при проверке пользователя", err)
	}
	if count > 0 {
		return nil, apperrors.InvalidState("пользователь с таким email или логином уже существует")
	}

	// Хешируем пароль
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(dto.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Name:     dto.Name,
		Username: dto.Username,
		Email:    email,
		Password: string(hashedPassword),
		Phone:    dto.Phone,
		Role:     role,
		IsActive: true,
	}
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		return nil, apperrors.Persistence("ошибка при создании пользователя", err)
	}

	return user, nil
}

// issue выдает токен пользователю
func (s *UserService) issue(user *models.User) (*AuthResult, error) {
	tokenString, expiresAt, err := utils.GenerateToken(s.jwtSecret, user.ID, user.Email, string(user.Role), s.tokenTTL)
	if err != nil {
		return nil, err
	}

	return &AuthResult{
		Token: Token{Token: tokenString, ExpiresAt: expiresAt},
		User:  *user,
	}, nil
}
