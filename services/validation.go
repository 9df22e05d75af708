package services

import (
	"errors"
	"regexp"
	"strings"

	"loanDesk/apperrors"

	"github.com/go-playground/validator/v10"
)

// validate общий валидатор DTO
var validate = newValidator()

var (
	hasNumber  = regexp.MustCompile(`[0-9]`)
	hasUpper   = regexp.MustCompile(`[A-Z]`)
	hasLower   = regexp.MustCompile(`[a-z]`)
	hasSpecial = regexp.MustCompile(`[!@#$%^&*]`)
)

func newValidator() *validator.Validate {
	v := validator.New()

	// Пароль: цифра, заглавная и строчная буквы, спецсимвол
	_ = v.RegisterValidation("password", func(fl validator.FieldLevel) bool {
		password := fl.Field().String()
		return hasNumber.MatchString(password) &&
			hasUpper.MatchString(password) &&
			hasLower.MatchString(password) &&
			hasSpecial.MatchString(password)
	})

	return v
}

// validateDTO проверяет DTO и собирает сообщения по всем полям в одну ошибку InvalidInput
func validateDTO(dto interface{}) error {
	err := validate.Struct(dto)
	if err == nil {
		return nil
	}

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return apperrors.InvalidInput("", "некорректные данные: %v", err)
	}

	var errorMessages []string
	for _, e := range validationErrors {
		switch e.Tag() {
		case "required":
			errorMessages = append(errorMessages, "поле "+e.Field()+" обязательно")
		case "gt":
			errorMessages = append(errorMessages, "поле "+e.Field()+" должно быть больше "+e.Param())
		case "gte":
			errorMessages = append(errorMessages, "поле "+e.Field()+" должно быть не меньше "+e.Param())
		case "min":
			errorMessages = append(errorMessages, "поле "+e.Field()+" слишком короткое")
		case "max":
			errorMessages = append(errorMessages, "поле "+e.Field()+" слишком длинное")
		case "email":
			errorMessages = append(errorMessages, "поле "+e.Field()+" должно содержать email")
		case "password":
			errorMessages = append(errorMessages, "поле "+e.Field()+" должно содержать цифру, заглавную и строчную буквы и спецсимвол")
		case "oneof":
			errorMessages = append(errorMessages, "поле "+e.Field()+" должно быть одним из: "+e.Param())
		default:
			errorMessages = append(errorMessages, "поле "+e.Field()+" заполнено неверно")
		}
	}

	// Имена полей уже есть в сообщениях
	return apperrors.InvalidInput("", "%s", strings.Join(errorMessages, "; "))
}
