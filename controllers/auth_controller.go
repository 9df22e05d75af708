package controllers

import (
	"net/http"

	"loanDesk/services"
)

// AuthController обрабатывает регистрацию и вход
type AuthController struct {
	users *services.UserService
}

// NewAuthController создает новый экземпляр AuthController
func NewAuthController(users *services.UserService) *AuthController {
	return &AuthController{users: users}
}

// Register обрабатывает регистрацию пользователя
func (c *AuthController) Register(w http.ResponseWriter, r *http.Request) {
	var dto services.RegisterDTO
	if err := decodeJSON(r, &dto); err != nil {
		writeError(w, err)
		return
	}

	result, err := c.users.Register(r.Context(), dto)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, result)
}

// Login обрабатывает вход пользователя
func (c *AuthController) Login(w http.ResponseWriter, r *http.Request) {
	var dto services.LoginDTO
	if err := decodeJSON(r, &dto); err != nil {
		writeError(w, err)
		return
	}

	result, err := c.users.Login(r.Context(), dto)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// Me возвращает текущего пользователя
func (c *AuthController) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	user, err := c.users.FindByID(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, user)
}
