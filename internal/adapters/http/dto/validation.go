package dto

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/jsamuelsen/quote-revisions/internal/domain"
)

var (
	// ErrValidation wraps struct tag failures. ValidationErrors extracts them per field.
	ErrValidation = errors.New("validation failed")

	// ErrBinding wraps bodies that are not JSON or do not fit the request type.
	ErrBinding = errors.New("binding failed")
)

var (
	validate     *validator.Validate
	validateOnce sync.Once

	// amountPattern is the plain decimal notation amounts are stored in.
	amountPattern = regexp.MustCompile(`^-?[0-9]+(\.[0-9]+)?$`)
)

// Validator returns the shared validator. Field names in its errors are the
// JSON names, and it knows the decimal, terminal and notempty tags.
func Validator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
		validate.RegisterTagNameFunc(jsonName)

		_ = validate.RegisterValidation("decimal", func(fl validator.FieldLevel) bool {
			v := fl.Field().String()
			return v == "" || amountPattern.MatchString(v)
		})
		_ = validate.RegisterValidation("terminal", func(fl validator.FieldLevel) bool {
			return domain.LifecycleStatus(fl.Field().String()).IsTerminal()
		})
		_ = validate.RegisterValidation("notempty", func(fl validator.FieldLevel) bool {
			return strings.TrimSpace(fl.Field().String()) != ""
		})
	})

	return validate
}

func jsonName(fld reflect.StructField) string {
	name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
	if name == "-" {
		return ""
	}

	return name
}

// Validate checks v's struct tags.
func Validate(v any) error {
	if err := Validator().Struct(v); err != nil {
		return fmt.Errorf("%w: %w", ErrValidation, err)
	}

	return nil
}

// BindAndValidate decodes the JSON body into v and checks its struct tags.
func BindAndValidate(c *gin.Context, v any) error {
	if err := c.ShouldBindJSON(v); err != nil {
		return fmt.Errorf("%w: %w", ErrBinding, err)
	}

	return Validate(v)
}

// ValidationErrors maps each failing JSON field to a readable message.
func ValidationErrors(err error) map[string]string {
	out := make(map[string]string)

	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		for _, fe := range fieldErrs {
			out[fe.Field()] = validationMessage(fe)
		}
	}

	return out
}

var validationMessages = map[string]string{
	"required": "this field is required",
	"notempty": "must not be empty",
	"decimal":  "must be a decimal number such as 1250.00",
	"terminal": "must be one of ACCEPTED, REJECTED, EXPIRED, CANCELLED",
	"oneof":    "must be one of: {param}",
}

func validationMessage(fe validator.FieldError) string {
	switch tag := fe.Tag(); tag {
	case "max", "min":
		unit := ""
		if fe.Kind() == reflect.String {
			unit = " characters"
		}

		bound := "at most"
		if tag == "min" {
			bound = "at least"
		}

		return "must be " + bound + " " + fe.Param() + unit
	default:
		if msg, ok := validationMessages[tag]; ok {
			return strings.ReplaceAll(msg, "{param}", fe.Param())
		}

		return "failed validation: " + tag
	}
}
