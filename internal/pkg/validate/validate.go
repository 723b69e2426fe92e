package validate

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"clinicdesk/internal/core/domain"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

// ErrMalformedBody is returned when the body is not parseable JSON
var ErrMalformedBody = fmt.Errorf("%w: invalid request body", domain.ErrMalformedRequest)

var (
	once     sync.Once
	instance *validator.Validate
)

func get() *validator.Validate {
	once.Do(func() {
		v := validator.New()
		// report json field names instead of Go field names
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return fld.Name
			}
			return name
		})
		// let gt/gte/lte work on decimal amounts
		v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
			if d, ok := field.Interface().(decimal.Decimal); ok {
				f, _ := d.Float64()
				return f
			}
			return nil
		}, decimal.Decimal{})
		instance = v
	})
	return instance
}

// Struct validates s and returns an error wrapping domain.ErrValidation
func Struct(s interface{}) error {
	if err := get().Struct(s); err != nil {
		return fmt.Errorf("%w: %s", domain.ErrValidation, FormatValidationError(err))
	}
	return nil
}

// Var validates a single value against a tag
func Var(field interface{}, tag string) error {
	return get().Var(field, tag)
}

// FormatValidationError formats validation errors into a readable string
func FormatValidationError(err error) string {
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) {
		return err.Error()
	}
	messages := make([]string, 0, len(errs))
	for _, e := range errs {
		switch e.Tag() {
		case "required":
			messages = append(messages, e.Field()+" is required")
		case "email":
			messages = append(messages, e.Field()+" must be a valid email")
		case "oneof":
			messages = append(messages, fmt.Sprintf("%s must be one of [%s]", e.Field(), e.Param()))
		case "min", "max", "gt", "gte", "lt", "lte":
			messages = append(messages, fmt.Sprintf("%s must satisfy %s=%s", e.Field(), e.Tag(), e.Param()))
		default:
			messages = append(messages, fmt.Sprintf("%s failed %s", e.Field(), e.Tag()))
		}
	}
	return strings.Join(messages, ", ")
}

// Bind parses the JSON body into out without validating it. Services
// validate their own inputs.
func Bind(c *fiber.Ctx, out interface{}) error {
	if err := c.BodyParser(out); err != nil {
		return ErrMalformedBody
	}
	return nil
}

// BindAndValidate parses the JSON body into out and validates it
func BindAndValidate(c *fiber.Ctx, out interface{}) error {
	if err := c.BodyParser(out); err != nil {
		return ErrMalformedBody
	}
	return Struct(out)
}
