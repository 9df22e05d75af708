package services

import (
	"context"
	"errors"
	"fmt"

	"loanDesk/apperrors"
	"loanDesk/models"
	"loanDesk/utils"

	"gorm.io/gorm"
)

// NotificationService хранит уведомления пользователей и дублирует важные из них на email
type NotificationService struct {
	db     *gorm.DB
	mailer Mailer
}

// NewNotificationService создает новый экземпляр NotificationService
func NewNotificationService(db *gorm.DB, mailer Mailer) *NotificationService {
	return &NotificationService{db: db, mailer: mailer}
}

// Create сохраняет уведомление
func (s *NotificationService) Create(ctx context.Context, userID uint, title, message string, kind models.NotificationType) (*models.Notification, error) {
	notification := &models.Notification{
		UserID:  userID,
		Title:   title,
		Message: message,
		Type:    kind,
	}
	if err := s.db.WithContext(ctx).Create(notification).Error; err != nil {
		return nil, apperrors.Persistence("ошибка при сохранении уведомления", err)
	}
	return notification, nil
}

// ListForUser возвращает уведомления пользователя, новые первыми
func (s *NotificationService) ListForUser(ctx context.Context, userID uint) ([]models.Notification, error) {
	var notifications []models.Notification
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Find(&notifications).Error
	if err != nil {
		return nil, apperrors.Persistence("ошибка при получении уведомлений", err)
	}
	return notifications, nil
}

// MarkRead отмечает уведомление прочитанным. Чужие уведомления считаются ненайденными.
func (s *NotificationService) MarkRead(ctx context.Context, userID, notificationID uint) error {
	result := s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("id = ? AND user_id = ?", notificationID, userID).
		Update("is_read", true)
	if result.Error != nil {
		return apperrors.Persistence("ошибка при обновлении уведомления", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.NotFound("уведомление %d не найдено", notificationID)
	}
	return nil
}

// notify сохраняет уведомление и отправляет письмо владельцу кредита
func (s *NotificationService) notify(ctx context.Context, loan *models.Loan, title, message string, kind models.NotificationType, subject, body string) error {
	if _, err := s.Create(ctx, loan.UserID, title, message, kind); err != nil {
		return err
	}

	var user models.User
	if err := s.db.WithContext(ctx).First(&user, loan.UserID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.NotFound("пользователь %d не найден", loan.UserID)
		}
		return apperrors.Persistence("ошибка при поиске пользователя", err)
	}

	// Ошибка почты не отменяет уведомление в системе
	if err := s.mailer.SendEmail(user.Email, subject, body); err != nil {
		utils.LogError("Ошибка при отправке письма %s: %v", user.Email, err)
	}
	return nil
}

// LoanApproved уведомляет об одобрении кредита
func (s *NotificationService) LoanApproved(ctx context.Context, loan *models.Loan) error {
	subject, body := loanApprovedBody(loan)
	message := fmt.Sprintf("Заявка %s одобрена. Ежемесячный платеж: %s", loan.ApplicationNumber, loan.InstallmentAmount.StringFixed(2))
	return s.notify(ctx, loan, "Кредит одобрен", message, models.NotificationSuccess, subject, body)
}

// LoanRejected уведомляет об отказе
func (s *NotificationService) LoanRejected(ctx context.Context, loan *models.Loan, reason string) error {
	message := fmt.Sprintf("Заявка %s отклонена", loan.ApplicationNumber)
	if reason != "" {
		message += ": " + reason
	}
	return s.notify(ctx, loan, "Заявка отклонена", message, models.NotificationWarning, "Решение по заявке "+loan.ApplicationNumber, "<p>"+message+"</p>")
}

// PaymentReceived уведомляет о поступлении платежа
func (s *NotificationService) PaymentReceived(ctx context.Context, loan *models.Loan, receipt *PaymentReceipt) error {
	subject, body := paymentReceivedBody(loan, receipt.Line.PeriodNumber, receipt.Payment.Amount, receipt.OutstandingAmount, receipt.Payment.Reference)
	message := fmt.Sprintf("Платеж №%d на сумму %s зачислен", receipt.Line.PeriodNumber, receipt.Payment.Amount.StringFixed(2))
	return s.notify(ctx, loan, "Платеж получен", message, models.NotificationInfo, subject, body)
}

// LoanClosed уведомляет о полном погашении
func (s *NotificationService) LoanClosed(ctx context.Context, loan *models.Loan) error {
	subject, body := loanClosedBody(loan)
	message := fmt.Sprintf("Кредит %s полностью погашен", loan.ApplicationNumber)
	return s.notify(ctx, loan, "Кредит погашен", message, models.NotificationSuccess, subject, body)
}
