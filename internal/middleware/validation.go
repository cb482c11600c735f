package middleware

import (
	"reflect"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// msisdnPattern accepts Safaricom numbers in the 2547XXXXXXXX / 2541XXXXXXXX form Daraja expects.
var msisdnPattern = regexp.MustCompile(`^254[17]\d{8}$`)

// SetupValidator registers the msisdn tag and reports field names by their json tag.
func SetupValidator() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		registerValidations(v)
	}
}

func registerValidations(v *validator.Validate) {
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("msisdn", func(fl validator.FieldLevel) bool {
		return msisdnPattern.MatchString(fl.Field().String())
	})
}

// ValidationMessage turns binding errors into a short client-facing message.
func ValidationMessage(err error) string {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok || len(verrs) == 0 {
		return "invalid request body"
	}
	e := verrs[0]
	switch e.Tag() {
	case "required":
		return e.Field() + " is required"
	case "msisdn":
		return e.Field() + " must be a phone number in the format 2547XXXXXXXX"
	case "email":
		return e.Field() + " must be a valid email"
	case "min", "gt", "gte":
		return e.Field() + " is too small"
	default:
		return e.Field() + " is invalid"
	}
}
