package models

import "time"

// NotificationType представляет тип уведомления
type NotificationType string

const (
	NotificationInfo    NotificationType = "info"
	NotificationSuccess NotificationType = "success"
	NotificationWarning NotificationType = "warning"
)

type Notification struct {
	ID        uint             `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    uint             `gorm:"column:user_id;not null;index" json:"userId"`
	Title     string           `gorm:"column:title;not null;size:200" json:"title"`
	Message   string           `gorm:"column:message;type:text;not null" json:"message"`
	Type      NotificationType `gorm:"column:type;type:varchar(20);not null;default:'info'" json:"type"`
	IsRead    bool             `gorm:"column:is_read;not null;default:false" json:"isRead"`
	CreatedAt time.Time        `gorm:"column:created_at" json:"createdAt"`
}

func (Notification) TableName() string {
	return "notifications"
}
