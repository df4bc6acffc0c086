// Package validation checks request structs against their `validate` struct tags and
// reports failures as field-level issues keyed by JSON path.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/ekaya-inc/aihub/pkg/apperrors"
	"github.com/ekaya-inc/aihub/pkg/models"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})

	_ = v.RegisterValidation("isodate", func(fl validator.FieldLevel) bool {
		_, err := time.Parse(models.DateLayout, fl.Field().String())
		return err == nil
	})
	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})

	return v
}

// Struct validates s and returns nil or an *apperrors.ValidationError listing every failing field.
func Struct(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("validation setup error: %w", err)
	}

	issues := make([]apperrors.FieldIssue, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		issues = append(issues, apperrors.FieldIssue{
			Path:    fieldPath(fe.Namespace()),
			Message: message(fe),
		})
	}
	return &apperrors.ValidationError{Issues: issues}
}

// fieldPath drops the root struct name from a namespace: "createReq.steps[0].title" -> "steps[0].title".
func fieldPath(namespace string) string {
	if _, rest, ok := strings.Cut(namespace, "."); ok {
		return rest
	}
	return namespace
}

func message(fe validator.FieldError) string {
	kind := fe.Kind()
	if kind == reflect.Ptr {
		kind = fe.Type().Elem().Kind()
	}

	switch fe.Tag() {
	case "required", "notblank":
		return "is required"
	case "min", "gte":
		return boundMessage("at least", kind, fe.Param())
	case "max", "lte":
		return boundMessage("at most", kind, fe.Param())
	case "oneof":
		return "must be one of: " + fe.Param()
	case "uuid", "uuid4":
		return "must be a valid UUID"
	case "url", "http_url":
		return "must be a valid URL"
	case "isodate":
		return "must be a date in YYYY-MM-DD format"
	default:
		return "is invalid"
	}
}

func boundMessage(op string, kind reflect.Kind, param string) string {
	switch kind {
	case reflect.String:
		return fmt.Sprintf("must be %s %s characters", op, param)
	case reflect.Slice, reflect.Array, reflect.Map:
		return fmt.Sprintf("must contain %s %s items", op, param)
	default:
		return fmt.Sprintf("must be %s %s", op, param)
	}
}
