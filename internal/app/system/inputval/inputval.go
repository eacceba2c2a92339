// Package inputval validates request payloads with struct tags.
//
//	type createGroupInput struct {
//		Title string `validate:"required,max=200" label:"Title"`
//	}
//	if res := inputval.Validate(in); res.HasErrors() { ... res.First() ... }
//
// Messages use the `label` tag as the field's display name.
package inputval

import (
	"fmt"
	"net/mail"
	"reflect"
	"strings"
	"sync"

	"github.com/dalemusser/therapyrooms/internal/app/system/dateparse"
	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// FieldError is one failed rule.
type FieldError struct {
	Field   string
	Message string
}

// Result collects the failed rules of one Validate call.
type Result struct {
	Errors []FieldError
}

// HasErrors reports whether any rule failed.
func (r *Result) HasErrors() bool { return len(r.Errors) > 0 }

// First returns the first message, or "".
func (r *Result) First() string {
	if len(r.Errors) == 0 {
		return ""
	}
	return r.Errors[0].Message
}

// All joins every message with "; ".
func (r *Result) All() string {
	msgs := make([]string, 0, len(r.Errors))
	for _, e := range r.Errors {
		msgs = append(msgs, e.Message)
	}
	return strings.Join(msgs, "; ")
}

var (
	once     sync.Once
	validate *validator.Validate
)

func instance() *validator.Validate {
	once.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			if l := f.Tag.Get("label"); l != "" {
				return l
			}
			return f.Name
		})
		_ = v.RegisterValidation("objectid", func(fl validator.FieldLevel) bool {
			return IsValidObjectID(fl.Field().String())
		})
		_ = v.RegisterValidation("chatdate", func(fl validator.FieldLevel) bool {
			_, err := dateparse.Parse(fl.Field().String(), nil)
			return err == nil
		})
		_ = v.RegisterValidation("expiryaction", func(fl validator.FieldLevel) bool {
			return IsValidExpiryAction(fl.Field().String())
		})
		_ = v.RegisterValidation("groupkind", func(fl validator.FieldLevel) bool {
			return IsValidGroupKind(fl.Field().String())
		})
		_ = v.RegisterValidation("groupstatus", func(fl validator.FieldLevel) bool {
			return IsValidGroupStatus(fl.Field().String())
		})
		validate = v
	})
	return validate
}

// Validate checks s against its `validate` tags. Pointer fields that are nil
// are skipped unless marked required.
func Validate(s any) *Result {
	res := &Result{}
	err := instance().Struct(s)
	if err == nil {
		return res
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		res.Errors = append(res.Errors, FieldError{Message: err.Error()})
		return res
	}
	for _, fe := range verrs {
		res.Errors = append(res.Errors, FieldError{Field: fe.StructField(), Message: message(fe)})
	}
	return res
}

func message(fe validator.FieldError) string {
	label := fe.Field()
	switch fe.Tag() {
	case "required":
		return label + " is required."
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at most %s characters.", label, fe.Param())
		}
		return fmt.Sprintf("%s must be at most %s.", label, fe.Param())
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at least %s characters.", label, fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s.", label, fe.Param())
	case "email":
		return "A valid email address is required."
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s.", label, strings.ReplaceAll(fe.Param(), " ", ", "))
	case "objectid":
		return label + " must be a valid id."
	case "chatdate":
		return label + " must be a date such as 2026-03-01."
	case "expiryaction":
		return label + ` must be "archive" or "delete".`
	case "groupkind":
		return label + ` must be "therapy" or "retreat".`
	case "groupstatus":
		return label + ` must be "active", "inactive" or "completed".`
	default:
		return label + " is invalid."
	}
}

// IsValidEmail accepts a bare addr-spec (no display name).
func IsValidEmail(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" || strings.ContainsAny(s, " \t<>") {
		return false
	}
	at := strings.LastIndex(s, "@")
	if at <= 0 || at == len(s)-1 {
		return false
	}
	local, domain := s[:at], s[at+1:]
	for _, part := range []string{local, domain} {
		if strings.HasPrefix(part, ".") || strings.HasSuffix(part, ".") || strings.Contains(part, "..") {
			return false
		}
	}
	addr, err := mail.ParseAddress(s)
	return err == nil && addr.Address == s
}

// IsValidObjectID reports whether s is a 24-character hex id.
func IsValidObjectID(s string) bool {
	_, err := primitive.ObjectIDFromHex(strings.TrimSpace(s))
	return err == nil
}

// IsValidExpiryAction accepts archive or delete, any case.
func IsValidExpiryAction(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "archive", "delete":
		return true
	}
	return false
}

// IsValidGroupKind accepts therapy or retreat.
func IsValidGroupKind(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "therapy", "retreat":
		return true
	}
	return false
}

// IsValidGroupStatus accepts active, inactive or completed.
func IsValidGroupStatus(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "active", "inactive", "completed":
		return true
	}
	return false
}
