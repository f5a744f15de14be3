package service

import (
	"errors"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"

	"github.com/Tomlord1122/todo-service/internal/domain"
)

// dueAtLayouts are tried in order when parsing a client supplied due date.
var dueAtLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04",
	"2006-01-02",
}

func newValidator() *validator.Validate {
	v := validator.New()
	// Report fields by their JSON names so clients can match them up.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	_ = v.RegisterValidation("notblank", validators.NotBlank)
	return v
}

// validateStruct runs the struct tags and converts failures into a
// domain.ValidationError.
func validateStruct(v *validator.Validate, s interface{}) *domain.ValidationError {
	verr := &domain.ValidationError{}
	err := v.Struct(s)
	if err == nil {
		return verr
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return verr.Add("request", err.Error())
	}
	for _, fe := range fieldErrs {
		verr.Add(fe.Field(), reasonFor(fe))
	}
	return verr
}

func reasonFor(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "notblank":
		return "is required"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	default:
		return "failed " + fe.Tag() + " check"
	}
}

func parseDueAt(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	for _, layout := range dueAtLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
