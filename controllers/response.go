package controllers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"loanDesk/apperrors"
	"loanDesk/middleware"
	"loanDesk/utils"

	"github.com/gorilla/mux"
)

// statusFor переводит вид ошибки в HTTP статус
func statusFor(err error) int {
	switch {
	case errors.Is(err, apperrors.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, apperrors.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, apperrors.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, apperrors.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperrors.ErrInvalidState):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// writeError отправляет ошибку клиенту. Внутренние ошибки не раскрываются.
func writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		utils.LogError("Внутренняя ошибка: %v", err)
		message = "Internal server error"
	}
	writeJSON(w, status, map[string]string{"error": message})
}

// writeJSON отправляет JSON ответ
func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		utils.LogError("Ошибка при записи ответа: %v", err)
	}
}

// decodeJSON читает тело запроса
func decodeJSON(r *http.Request, dst interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return apperrors.InvalidInput("", "Invalid request body")
	}
	return nil
}

// pathID читает числовой параметр маршрута
func pathID(r *http.Request, name string) (uint, error) {
	id, err := strconv.ParseUint(mux.Vars(r)[name], 10, 64)
	if err != nil || id == 0 {
		return 0, apperrors.InvalidInput(name, "некорректный идентификатор")
	}
	return uint(id), nil
}

// currentUser возвращает ID пользователя из контекста или пишет 401
func currentUser(w http.ResponseWriter, r *http.Request) (uint, bool) {
	userID, _, err := middleware.GetUserFromContext(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return 0, false
	}
	return userID, true
}
