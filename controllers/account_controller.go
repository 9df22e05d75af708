package controllers

import (
	"net/http"

	"loanDesk/services"
)

// AccountController обрабатывает уведомления и анкету пользователя
type AccountController struct {
	notifications *services.NotificationService
	profiles      *services.ProfileService
}

// NewAccountController создает новый экземпляр AccountController
func NewAccountController(notifications *services.NotificationService, profiles *services.ProfileService) *AccountController {
	return &AccountController{notifications: notifications, profiles: profiles}
}

// Notifications возвращает уведомления пользователя
func (c *AccountController) Notifications(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	notifications, err := c.notifications.ListForUser(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, notifications)
}

// MarkRead отмечает уведомление прочитанным
func (c *AccountController) MarkRead(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	notificationID, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	if err := c.notifications.MarkRead(r.Context(), userID, notificationID); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Profile возвращает анкету пользователя
func (c *AccountController) Profile(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	profile, err := c.profiles.Get(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, profile)
}

// UpdateProfile создает или обновляет анкету
func (c *AccountController) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	var dto services.ProfileDTO
	if err := decodeJSON(r, &dto); err != nil {
		writeError(w, err)
		return
	}

	profile, err := c.profiles.Upsert(r.Context(), userID, dto)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, profile)
}
