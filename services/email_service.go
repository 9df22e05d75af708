package services

import (
	"fmt"
	"time"

	"loanDesk/config"
	"loanDesk/models"
	"loanDesk/utils"

	"github.com/shopspring/decimal"
	"gopkg.in/gomail.v2"
)

// Mailer отправляет письма
type Mailer interface {
	SendEmail(to, subject, body string) error
}

// EmailService предоставляет методы для отправки email
type EmailService struct {
	dialer  *gomail.Dialer
	from    string
	enabled bool
}

// NewEmailService создает новый экземпляр EmailService
func NewEmailService(cfg *config.Config) *EmailService {
	dialer := gomail.NewDialer(
		cfg.SMTP.Host,
		cfg.SMTP.Port,
		cfg.SMTP.Username,
		cfg.SMTP.Password,
	)

	return &EmailService{
		dialer:  dialer,
		from:    cfg.SMTP.From,
		enabled: cfg.SMTP.Enabled,
	}
}

// newMessage собирает письмо
func (s *EmailService) newMessage(to, subject, body string) *gomail.Message {
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", body)
	return m
}

// SendEmail отправляет email. При выключенном SMTP письмо только логируется.
func (s *EmailService) SendEmail(to, subject, body string) error {
	if !s.enabled {
		utils.LogDebug("SMTP выключен, письмо %q для %s не отправлено", subject, to)
		return nil
	}

	if err := s.dialer.DialAndSend(s.newMessage(to, subject, body)); err != nil {
		return fmt.Errorf("ошибка отправки email: %v", err)
	}

	return nil
}

// loanApprovedBody формирует письмо об одобрении кредита
func loanApprovedBody(loan *models.Loan) (string, string) {
	subject := "Ваш кредит одобрен"
	body := fmt.Sprintf(`
		<h2>Кредит одобрен</h2>
		<p>Номер заявки: %s</p>
		<p>Сумма кредита: %s</p>
		<p>Срок кредита: %d месяцев</p>
		<p>Ежемесячный платеж: %s</p>
		<p>Дата: %s</p>
	`, loan.ApplicationNumber, loan.Principal.StringFixed(2), loan.TenureMonths,
		loan.InstallmentAmount.StringFixed(2), time.Now().Format("02.01.2006 15:04:05"))
	return subject, body
}

// paymentReceivedBody формирует письмо о поступлении платежа
func paymentReceivedBody(loan *models.Loan, period int, amount, outstanding decimal.Decimal, reference string) (string, string) {
	subject := "Платеж по кредиту получен"
	body := fmt.Sprintf(`
		<h2>Платеж получен</h2>
		<p>Номер заявки: %s</p>
		<p>Платеж №%d на сумму %s</p>
		<p>Остаток основного долга: %s</p>
		<p>Номер квитанции: %s</p>
	`, loan.ApplicationNumber, period, amount.StringFixed(2), outstanding.StringFixed(2), reference)
	return subject, body
}

// loanClosedBody формирует письмо о погашении кредита
func loanClosedBody(loan *models.Loan) (string, string) {
	subject := "Поздравляем! Ваш кредит успешно погашен"
	body := fmt.Sprintf(`
		<h2>Поздравляем!</h2>
		<p>Ваш кредит %s был успешно погашен.</p>
		<p>Всего выплачено: %s</p>
		<p>Если у вас возникнут вопросы, пожалуйста, свяжитесь с нами.</p>
	`, loan.ApplicationNumber, loan.TotalPaidAmount.StringFixed(2))
	return subject, body
}
