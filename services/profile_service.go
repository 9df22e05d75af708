package services

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"loanDesk/apperrors"
	"loanDesk/models"
	"loanDesk/utils"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var panPattern = regexp.MustCompile(`^[A-Z]{5}[0-9]{4}[A-Z]$`)

// ProfileDTO представляет анкету заемщика
type ProfileDTO struct {
	City          string          `json:"city" validate:"max=50"`
	State         string          `json:"state" validate:"max=50"`
	Occupation    string          `json:"occupation" validate:"max=100"`
	MonthlyIncome decimal.Decimal `json:"monthlyIncome"`
	PAN           string          `json:"pan"`
}

// ProfileView возвращается клиенту; PAN показывается только маской
type ProfileView struct {
	UserID        uint            `json:"userId"`
	City          string          `json:"city"`
	State         string          `json:"state"`
	Occupation    string          `json:"occupation"`
	MonthlyIncome decimal.Decimal `json:"monthlyIncome"`
	PANMasked     string          `json:"panMasked,omitempty"`
}

// ProfileService хранит анкеты заемщиков. PAN шифруется открытым ключом PGP,
// для поиска по номеру хранится HMAC.
type ProfileService struct {
	db         *gorm.DB
	publicKey  string
	privateKey string
	hmacKey    []byte
}

// NewProfileService создает новый экземпляр ProfileService
func NewProfileService(db *gorm.DB, publicKey, privateKey, hmacKey string) *ProfileService {
	return &ProfileService{
		db:         db,
		publicKey:  publicKey,
		privateKey: privateKey,
		hmacKey:    []byte(hmacKey),
	}
}

// Upsert создает или обновляет анкету пользователя
func (s *ProfileService) Upsert(ctx context.Context, userID uint, dto ProfileDTO) (*ProfileView, error) {
	if err := validateDTO(dto); err != nil {
		return nil, err
	}
	if dto.MonthlyIncome.IsNegative() {
		return nil, apperrors.InvalidInput("monthlyIncome", "доход не может быть отрицательным")
	}

	profile := models.UserProfile{
		UserID:        userID,
		City:          dto.City,
		State:         dto.State,
		Occupation:    dto.Occupation,
		MonthlyIncome: dto.MonthlyIncome,
	}
	columns := []string{"city", "state", "occupation", "monthly_income", "updated_at"}

	if dto.PAN != "" {
		pan := strings.ToUpper(strings.TrimSpace(dto.PAN))
		if !panPattern.MatchString(pan) {
			return nil, apperrors.InvalidInput("pan", "номер PAN должен иметь формат AAAAA9999A")
		}
		if s.publicKey == "" {
			return nil, apperrors.InvalidState("шифрование PAN не настроено")
		}

		// Тот же PAN повторно не шифруем
		var existing models.UserProfile
		err := s.db.WithContext(ctx).Select("pan_hmac").Where("user_id = ?", userID).Take(&existing).Error
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.Persistence("ошибка при получении анкеты", err)
		}

		if existing.PANHMAC == "" || !utils.ValidateHMAC(pan, existing.PANHMAC, s.hmacKey) {
			encrypted, err := utils.PGPEncrypt(pan, s.publicKey)
			if err != nil {
				return nil, err
			}
			profile.PANEncrypted = encrypted
			profile.PANHMAC = utils.GenerateHMAC(pan, s.hmacKey)
			columns = append(columns, "pan_encrypted", "pan_hmac")
		}
	}

	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns(columns),
	}).Create(&profile).Error
	if err != nil {
		return nil, apperrors.Persistence("ошибка при сохранении анкеты", err)
	}

	return s.Get(ctx, userID)
}

// Get возвращает анкету пользователя
func (s *ProfileService) Get(ctx context.Context, userID uint) (*ProfileView, error) {
	var profile models.UserProfile
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&profile).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("анкета пользователя %d не найдена", userID)
		}
		return nil, apperrors.Persistence("ошибка при получении анкеты", err)
	}

	view := &ProfileView{
		UserID:        profile.UserID,
		City:          profile.City,
		State:         profile.State,
		Occupation:    profile.Occupation,
		MonthlyIncome: profile.MonthlyIncome,
	}

	// Без закрытого ключа маска не показывается
	if profile.PANEncrypted != "" && s.privateKey != "" {
		pan, err := utils.PGPDecrypt(profile.PANEncrypted, s.privateKey)
		if err != nil {
			utils.LogError("Ошибка при расшифровке PAN пользователя %d: %v", userID, err)
		} else {
			view.PANMasked = utils.MaskTail(pan, 4)
		}
	}

	return view, nil
}

// FindUserByPAN ищет владельца PAN по HMAC без расшифровки анкет
func (s *ProfileService) FindUserByPAN(ctx context.Context, pan string) (uint, error) {
	pan = strings.ToUpper(strings.TrimSpace(pan))
	if !panPattern.MatchString(pan) {
		return 0, apperrors.InvalidInput("pan", "номер PAN должен иметь формат AAAAA9999A")
	}

	var profile models.UserProfile
	err := s.db.WithContext(ctx).Where("pan_hmac = ?", utils.GenerateHMAC(pan, s.hmacKey)).First(&profile).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, apperrors.NotFound("анкета с таким PAN не найдена")
		}
		return 0, apperrors.Persistence("ошибка при поиске анкеты", err)
	}
	return profile.UserID, nil
}
