package validation

import (
	"errors"
	"reflect"
	"strings"
	"sync"

	"github.com/chalosawari/chalo-sawari/pkg/fare"
	"github.com/go-playground/validator/v10"
)

var (
	once     sync.Once
	validate *validator.Validate
)

// Validator returns the shared validator with the custom tags registered
func Validator() *validator.Validate {
	once.Do(func() {
		validate = validator.New()

		// Report JSON field names instead of Go field names.
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return fld.Name
			}
			return name
		})

		_ = validate.RegisterValidation("category", func(fl validator.FieldLevel) bool {
			return fare.Category(fl.Field().String()).Valid()
		})
		_ = validate.RegisterValidation("trip_type", func(fl validator.FieldLevel) bool {
			return fare.TripType(fl.Field().String()).Valid()
		})
	})
	return validate
}

// ValidateStruct validates s and converts failures into a *ValidationError
func ValidateStruct(s interface{}) error {
	err := Validator().Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		return NewValidationError(verrs)
	}
	return err
}
