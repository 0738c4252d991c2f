package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var mobilePattern = regexp.MustCompile(`^09\d{9}$`)

// Localized messages keyed by "<json field>.<tag>"
var messages = map[string]string{
	"phone_number_of_owner.ascii_digits": "شماره تلفن باید فقط شامل اعداد انگلیسی (0-9) باشد.",
	"phone_number_of_owner.ir_mobile":    "شماره تلفن معتبر نمی‌باشد! باید با 09 شروع شود و 11 رقم باشد.",
	"vendor_name_persian.min":            "در اسم فارسی یک غرفه، حروف نمیتوانند کمتر از ۶ کاراکتر باشند!",
	"vendor_name_persian.max":            "در اسم فارسی یک غرفه، تعداد حروف نمیتواند از ۹۰ کاراکتر تخطی کند.",
	"vendor_name_english.min":            "در اسم انگلیسی یک غرفه، حروف نمیتوانند کمتر از ۳ کاراکتر باشند!",
	"vendor_name_english.max":            "در اسم انگلیسی یک غرفه، تعداد حروف نمیتواند از ۱۲۰ کاراکتر تخطی کند.",
}

// Error is a request validation failure with a user facing message
type Error struct {
	Field   string
	Tag     string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// Validator adapts go-playground/validator to echo.Validator
type Validator struct {
	validate *validator.Validate
}

// New creates a Validator with the service's custom rules registered
func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Report json names so messages match the payload the client sent
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})

	_ = v.RegisterValidation("ascii_digits", func(fl validator.FieldLevel) bool {
		return IsASCIIDigits(fl.Field().String())
	})
	_ = v.RegisterValidation("ir_mobile", func(fl validator.FieldLevel) bool {
		return mobilePattern.MatchString(fl.Field().String())
	})

	return &Validator{validate: v}
}

// Validate checks i and returns the first failure as *Error
func (cv *Validator) Validate(i interface{}) error {
	err := cv.validate.Struct(i)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return err
	}

	fe := fieldErrs[0]
	return &Error{Field: fe.Field(), Tag: fe.Tag(), Message: message(fe)}
}

func message(fe validator.FieldError) string {
	if msg, ok := messages[fe.Field()+"."+fe.Tag()]; ok {
		return msg
	}
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "min":
		return fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", fe.Field(), fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
}

// IsASCIIDigits reports whether s is non-empty and only contains 0-9
func IsASCIIDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
