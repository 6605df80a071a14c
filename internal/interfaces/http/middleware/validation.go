package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/xerocraft/backend/internal/domain/shared"
	"github.com/xerocraft/backend/internal/interfaces/http/dto"
)

var durationType = reflect.TypeOf(time.Duration(0))

// SetupValidator configures gin's validator: errors are reported under the
// form or json name of a field, and the notfuture and positiveduration tags
// are registered. today decides what "the future" is.
func SetupValidator(today func() time.Time) error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return errors.New("gin validator is not go-playground/validator")
	}
	RegisterValidations(v, today)
	return nil
}

// RegisterValidations adds the admin's tags to v.
func RegisterValidations(v *validator.Validate, today func() time.Time) {
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			name = strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
		}
		return name
	})
	// Registration only fails for an empty tag or a nil func.
	_ = v.RegisterValidation("notfuture", notFuture(today))
	_ = v.RegisterValidation("positiveduration", positiveDuration)
}

// notFuture accepts time.Time fields and "2006-01-02" strings. Strings are
// read as dates in today's location. Zero values are left to "required".
func notFuture(today func() time.Time) validator.Func {
	return func(fl validator.FieldLevel) bool {
		now := today()
		switch v := fl.Field().Interface().(type) {
		case time.Time:
			return v.IsZero() || shared.ValidateNotFuture(v, now) == nil
		case string:
			if v == "" {
				return true
			}
			d, err := time.ParseInLocation(dto.DateLayout, v, now.Location())
			return err == nil && shared.ValidateNotFuture(d, now) == nil
		}
		return false
	}
}

// positiveDuration accepts time.Duration fields and strings time.ParseDuration
// understands.
func positiveDuration(fl validator.FieldLevel) bool {
	field := fl.Field()
	if field.Type() == durationType {
		return shared.ValidatePositiveDuration(time.Duration(field.Int())) == nil
	}
	if field.Kind() == reflect.String {
		if field.String() == "" {
			return true
		}
		d, err := time.ParseDuration(field.String())
		return err == nil && shared.ValidatePositiveDuration(d) == nil
	}
	return false
}

// FormatValidationErrors formats validation errors into a standard response
func FormatValidationErrors(err error, requestID string) dto.Response {
	var details []dto.ValidationDetail

	var fieldErrs validator.ValidationErrors
	var domainErr *shared.ValidationError
	switch {
	case errors.As(err, &fieldErrs):
		for _, e := range fieldErrs {
			details = append(details, dto.ValidationDetail{
				Field:   e.Field(),
				Message: getValidationMessage(e),
			})
		}
	case errors.As(err, &domainErr):
		details = append(details, dto.ValidationDetail{
			Field:   domainErr.Field,
			Message: domainErr.Message,
		})
	}

	return dto.NewValidationErrorResponse(
		"Request validation failed",
		requestID,
		details,
	)
}

// HandleValidationError returns a validation error response
func HandleValidationError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, FormatValidationErrors(err, GetRequestID(c)))
}

// getValidationMessage returns a human-readable validation message
func getValidationMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "This field is required."
	case "email":
		return "Enter a valid email address."
	case "max":
		if e.Kind() == reflect.String {
			return fmt.Sprintf("Ensure this value has at most %s characters.", e.Param())
		}
		return "Must be at most " + e.Param()
	case "min":
		return "Must be at least " + e.Param()
	case "oneof":
		return "Select a valid choice: " + e.Param()
	case "numeric":
		return "Enter a number."
	case "datetime":
		return "Enter a date as YYYY-MM-DD."
	case "notfuture":
		return "Date cannot be in the future."
	case "positiveduration":
		return "Duration must be greater than zero."
	default:
		return "Invalid value"
	}
}
