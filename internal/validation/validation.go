// Package validation runs go-playground/validator over request DTOs and turns
// its errors into field-level apperror.ValidationError values.
package validation

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strings"
	"sync"

	"opsconsole/internal/apperror"

	"github.com/go-playground/validator/v10"
)

// ruleTag marks errors reported by struct-level rules; the message travels as the param.
const ruleTag = "rule"

var (
	once     sync.Once
	validate *validator.Validate
)

func engine() *validator.Validate {
	once.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		// Same tags gin reads, so one set of annotations drives both.
		validate.SetTagName("binding")
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name == "" {
				return f.Name
			}
			return name
		})
	})
	return validate
}

// RegisterStruct adds a cross-field rule for the given types.
func RegisterStruct(fn validator.StructLevelFunc, types ...interface{}) {
	engine().RegisterStructValidation(fn, types...)
}

// Report records a struct-level failure against the JSON field name.
func Report(sl validator.StructLevel, value interface{}, field, msg string) {
	sl.ReportError(value, field, field, ruleTag, msg)
}

// Struct validates s and returns nil or a *apperror.ValidationError.
func Struct(s interface{}) error {
	return translate(engine().Struct(s))
}

// FromBind converts an error returned by gin's ShouldBindJSON.
func FromBind(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, io.EOF) {
		return apperror.NewValidation("body", "request body is required")
	}
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		field := typeErr.Field
		if field == "" {
			field = "body"
		}
		return apperror.NewValidation(field, "must be of type "+typeErr.Type.String())
	}
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		return apperror.NewValidation("body", "malformed JSON")
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		return translate(verrs)
	}
	return apperror.NewValidation("body", err.Error())
}

func translate(err error) error {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		path := fe.Namespace()
		if i := strings.Index(path, "."); i >= 0 {
			path = path[i+1:]
		}
		if _, seen := fields[path]; !seen {
			fields[path] = message(fe)
		}
	}
	return &apperror.ValidationError{Fields: fields}
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case ruleTag:
		return fe.Param()
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "oneof":
		return "must be one of: " + strings.ReplaceAll(fe.Param(), " ", ", ")
	case "uuid", "uuid4":
		return "must be a valid id"
	case "min":
		if isCollection(fe.Kind()) {
			return fmt.Sprintf("must contain at least %s item(s)", fe.Param())
		}
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be at least %s characters", fe.Param())
		}
		return "must be at least " + fe.Param()
	case "max":
		if isCollection(fe.Kind()) {
			return fmt.Sprintf("must contain at most %s item(s)", fe.Param())
		}
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be %s characters or less", fe.Param())
		}
		return "must be at most " + fe.Param()
	case "gte":
		return "must be greater than or equal to " + fe.Param()
	case "gt":
		return "must be greater than " + fe.Param()
	case "lte":
		return "must be less than or equal to " + fe.Param()
	case "len":
		return fmt.Sprintf("must be exactly %s characters", fe.Param())
	case "numeric":
		return "must contain digits only"
	}
	return "failed " + fe.Tag() + " validation"
}

func isCollection(k reflect.Kind) bool {
	return k == reflect.Slice || k == reflect.Array || k == reflect.Map
}

// GinValidator adapts the engine to gin's binding.StructValidator.
type GinValidator struct{}

// Gin returns the validator to install as binding.Validator, so
// ShouldBindJSON reports the same JSON field names and rule messages.
func Gin() GinValidator { return GinValidator{} }

func (GinValidator) ValidateStruct(obj interface{}) error {
	if obj == nil {
		return nil
	}
	v := reflect.ValueOf(obj)
	for v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return nil
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return nil
	}
	return engine().Struct(obj)
}

func (GinValidator) Engine() interface{} { return engine() }
