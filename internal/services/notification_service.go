// internal/services/notification_service.go
package services

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"net/smtp"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/artime/artime-backend/internal/config"
	"github.com/artime/artime-backend/internal/events"
	"github.com/artime/artime-backend/internal/models"
	"github.com/artime/artime-backend/internal/utils"
)

type NotificationService struct {
	db     *gorm.DB
	config *config.Config
}

type EmailTemplate struct {
	Subject string
	Body    string
}

func NewNotificationService(db *gorm.DB, config *config.Config) *NotificationService {
	return &NotificationService{
		db:     db,
		config: config,
	}
}

// Deliver turns a counterpart event from the outbox into an in-app
// notification row plus an email. Called by the worker; delivery failures
// requeue the message.
func (s *NotificationService) Deliver(event *events.CounterpartNotified) error {
	title, message := describeEvent(event)

	notification := &models.Notification{
		UserID:    event.RecipientUserID,
		Type:      event.Type,
		Title:     title,
		Message:   message,
		BookingID: &event.BookingID,
		Status:    models.NotificationStatusUnread,
	}
	if err := s.db.Create(notification).Error; err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}

	var user models.User
	if err := s.db.First(&user, event.RecipientUserID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Recipient gone; nothing left to deliver.
			return nil
		}
		return fmt.Errorf("failed to load recipient: %w", err)
	}

	tmpl := s.getEmailTemplate(event.Type)
	body, err := s.renderTemplate(tmpl.Body, map[string]interface{}{
		"Username":   user.Username,
		"Message":    message,
		"BookingURL": fmt.Sprintf("%s/bookings/%s", s.config.Frontend.BaseURL, event.BookingID),
	})
	if err != nil {
		return fmt.Errorf("failed to render email template: %w", err)
	}

	return s.sendEmail(user.Email, title, body)
}

func (s *NotificationService) SendPasswordResetEmail(user *models.User, resetToken string) error {
	body, err := s.renderTemplate(`
<!DOCTYPE html>
<html>
<body>
	<h2>Hello {{.Username}},</h2>
	<p>We received a request to reset your password. The link below is valid for one hour:</p>
	<a href="{{.ResetURL}}">Reset password</a>
	<p>If you did not request this, you can ignore this email.</p>
</body>
</html>`, map[string]interface{}{
		"Username": user.Username,
		"ResetURL": fmt.Sprintf("%s/reset-password?token=%s", s.config.Frontend.BaseURL, resetToken),
	})
	if err != nil {
		return fmt.Errorf("failed to render email template: %w", err)
	}

	return s.sendEmail(user.Email, "Password Reset Request", body)
}

func (s *NotificationService) ListNotifications(userID uuid.UUID, params utils.PaginationParams) (*utils.PaginationResult, error) {
	query := s.db.Model(&models.Notification{}).Where("user_id = ?", userID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count notifications: %w", err)
	}

	var notifications []models.Notification
	query = utils.ApplySort(query, params, []string{"created_at"})
	if err := utils.ApplyPagination(query, params).Find(&notifications).Error; err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}

	result := utils.CreatePaginationResult(notifications, total, params)
	return &result, nil
}

func (s *NotificationService) MarkRead(userID, notificationID uuid.UUID) error {
	res := s.db.Model(&models.Notification{}).
		Where("id = ? AND user_id = ?", notificationID, userID).
		Updates(map[string]interface{}{
			"status":  models.NotificationStatusRead,
			"read_at": gorm.Expr("NOW()"),
		})
	if res.Error != nil {
		return fmt.Errorf("failed to mark notification read: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return &NotFoundError{Resource: "notification"}
	}
	return nil
}

func describeEvent(event *events.CounterpartNotified) (title, message string) {
	switch event.Type {
	case events.TypeBookingCreated:
		return "New booking request", "You have received a new booking request."
	case events.TypeMessageReceived:
		return "New negotiation message", "The other party sent a message on your booking."
	case events.TypeFinalOfferSent:
		return "Final offer received", "A final offer is on the table. Accept or reject it to close the negotiation."
	case events.TypeBookingAccepted:
		return "Booking accepted", "Your booking was accepted. The contract is being prepared."
	case events.TypeBookingRejected:
		return "Booking rejected", "The other party declined the booking."
	case events.TypeBookingCancelled:
		return "Booking cancelled", "The booking was cancelled by the other party."
	case events.TypeCaseResolved:
		return "Cancellation reviewed", "The cancellation of your booking has been reviewed by the platform."
	case events.TypeRefundExecuted:
		return "Refund issued", "A refund for your cancelled booking has been issued."
	case events.TypeContractSigned:
		return "Contract signed", "The contract was signed. Payment milestones are now open."
	case events.TypeMilestonePaid:
		return "Payment received", "A payment milestone on your booking was paid."
	case events.TypeBookingCompleted:
		return "Booking completed", "The booking was marked as completed."
	default:
		return "Booking update", "There is an update on your booking."
	}
}

// Helper methods
func (s *NotificationService) sendEmail(to, subject, body string) error {
	if s.config.Email.SMTPHost == "" {
		// Email not configured, just log
		fmt.Printf("Email would be sent to %s: %s\n", to, subject)
		return nil
	}

	// Setup authentication
	auth := smtp.PlainAuth("", s.config.Email.SMTPUsername, s.config.Email.SMTPPassword, s.config.Email.SMTPHost)

	// Compose message
	msg := []byte(fmt.Sprintf("To: %s\r\nSubject: %s\r\nContent-Type: text/html; charset=\"UTF-8\"\r\n\r\n%s", to, subject, body))

	// Send email
	addr := fmt.Sprintf("%s:%s", s.config.Email.SMTPHost, s.config.Email.SMTPPort)
	return smtp.SendMail(addr, auth, s.config.Email.FromEmail, []string{to}, msg)
}

func (s *NotificationService) renderTemplate(templateStr string, data interface{}) (string, error) {
	tmpl, err := template.New("email").Parse(templateStr)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}

	return buf.String(), nil
}

func (s *NotificationService) getEmailTemplate(eventType string) EmailTemplate {
	// In a real implementation, these would be loaded from files or database
	templates := map[string]EmailTemplate{
		events.TypeFinalOfferSent: {
			Subject: "Final offer received",
			Body: `
<!DOCTYPE html>
<html>
<body>
	<h2>Hello {{.Username}},</h2>
	<p>{{.Message}}</p>
	<a href="{{.BookingURL}}">View the offer</a>
	<p>Best regards,<br>The Artime Team</p>
</body>
</html>`,
		},
		events.TypeBookingAccepted: {
			Subject: "Booking accepted",
			Body: `
<!DOCTYPE html>
<html>
<body>
	<h2>Good news, {{.Username}}!</h2>
	<p>{{.Message}}</p>
	<a href="{{.BookingURL}}">View booking</a>
	<p>Best regards,<br>The Artime Team</p>
</body>
</html>`,
		},
		// Add more templates as needed...
	}

	if template, exists := templates[eventType]; exists {
		return template
	}

	// Default template
	return EmailTemplate{
		Subject: "Booking update",
		Body: `
<!DOCTYPE html>
<html>
<body>
	<p>Hello {{.Username}},</p>
	<p>{{.Message}}</p>
	<a href="{{.BookingURL}}">View booking</a>
</body>
</html>`,
	}
}
