package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ErrInvalid is wrapped by every error Validate returns.
var ErrInvalid = errors.New("invalid configuration")

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("koanf"), ",")
		if name == "-" {
			return ""
		}

		return name
	})

	v.RegisterStructValidation(retryRules, RetryConfig{})
	v.RegisterStructValidation(storeRules, StoreConfig{})

	return v
}

func retryRules(sl validator.StructLevel) {
	r, _ := sl.Current().Interface().(RetryConfig)
	if r.MaxInterval < r.InitialInterval {
		sl.ReportError(r.MaxInterval, "max_interval", "MaxInterval", "gtefield", "initial_interval")
	}
}

func storeRules(sl validator.StructLevel) {
	s, _ := sl.Current().Interface().(StoreConfig)
	if s.MaxOpenConns > 0 && s.MaxIdleConns > s.MaxOpenConns {
		sl.ReportError(s.MaxIdleConns, "max_idle_conns", "MaxIdleConns", "ltefield", "max_open_conns")
	}
}

// Validate reports every invalid field at once, one per line, named by
// its config key (e.g. "server.read_timeout").
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}

	lines := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		lines = append(lines, describe(fe))
	}

	return fmt.Errorf("%w:\n  %s", ErrInvalid, strings.Join(lines, "\n  "))
}

func describe(fe validator.FieldError) string {
	key := configKey(fe.Namespace())

	switch fe.Tag() {
	case "required":
		return key + " is required"
	case "required_if":
		return fmt.Sprintf("%s is required when %s", key, condition(fe.Param()))
	case "required_unless":
		return fmt.Sprintf("%s is required unless %s", key, condition(fe.Param()))
	case "required_with":
		return fmt.Sprintf("%s is required when %s is set", key, strings.ToLower(fe.Param()))
	case "min":
		return fmt.Sprintf("%s must be at least %s", key, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", key, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", key, fe.Param())
	case "url":
		return key + " must be a valid URL"
	case "hostname_port":
		return key + " must be host:port"
	case "gtefield":
		return fmt.Sprintf("%s must not be less than %s", key, fe.Param())
	case "ltefield":
		return fmt.Sprintf("%s must not exceed %s", key, fe.Param())
	default:
		return fmt.Sprintf("%s failed %q", key, fe.Tag())
	}
}

// configKey drops the root type name: "Config.server.port" becomes "server.port".
func configKey(namespace string) string {
	_, key, found := strings.Cut(namespace, ".")
	if !found {
		return namespace
	}

	return key
}

// condition renders a required_if param such as "Driver dynamodb" as "driver=dynamodb".
func condition(param string) string {
	field, value, _ := strings.Cut(param, " ")
	return strings.ToLower(field) + "=" + value
}
