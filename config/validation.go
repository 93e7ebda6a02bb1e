package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// validatorInstance reports field paths by koanf tag so errors name the key
// a user would actually set.
func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			name, _, _ := strings.Cut(f.Tag.Get("koanf"), ",")
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return validate
}

// Validate checks cfg and returns every violation joined, each a *ConfigError.
func Validate(cfg *Config) error {
	var errs []error

	if err := validatorInstance().Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return err
		}
		for _, fe := range verrs {
			errs = append(errs, toConfigError(fe))
		}
	}

	if err := cfg.Observability.Validate(); err != nil {
		errs = append(errs, &ConfigError{Category: "invalid", Field: "observability", Message: err.Error()})
	}

	return errors.Join(errs...)
}

func toConfigError(fe validator.FieldError) *ConfigError {
	field := fe.Namespace()
	if _, rest, ok := strings.Cut(field, "."); ok {
		field = rest
	}

	switch fe.Tag() {
	case "required", "required_if":
		return NewMissingFieldError(field)
	case "oneof":
		return NewInvalidFieldError(field, fmt.Sprintf("invalid value %q", fe.Value()), strings.Fields(fe.Param()))
	case "url":
		return NewInvalidFieldError(field, "must be a valid URL", nil)
	case "gte":
		return NewInvalidFieldError(field, "must be at least "+fe.Param(), nil)
	case "lte":
		return NewInvalidFieldError(field, "must be at most "+fe.Param(), nil)
	default:
		return NewInvalidFieldError(field, "failed "+fe.Tag()+" validation", nil)
	}
}
