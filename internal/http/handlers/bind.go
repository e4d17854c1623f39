package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

type FieldError struct {
	Field   string `json:"field"`
	Rule    string `json:"rule"`
	Param   string `json:"param,omitempty"`
	Message string `json:"message,omitempty"`
}

// BindJSON binds and validates the request body. On failure it writes a 400
// whose message is the field-level violations flattened into one
// human-readable string, with the structured list kept under details.
func BindJSON(ctx *gin.Context, out interface{}) bool {
	err := ctx.ShouldBindJSON(out)

	if err == nil {
		return true
	}

	fields := fieldErrorsFrom(err, out)

	if len(fields) > 0 {
		RespondBadRequest(ctx, FlattenFieldErrors(fields), gin.H{"fields": fields})
		return false
	}

	var syntaxError *json.SyntaxError
	var typeError *json.UnmarshalTypeError

	switch {
	case errors.As(err, &syntaxError):
		RespondBadRequest(ctx, "Invalid request body", gin.H{"json": "invalid_json_syntax"})
	case errors.As(err, &typeError):
		field := jsonFieldName(out, typeError.Field)
		RespondBadRequest(ctx, fmt.Sprintf("%s must be of type %s", field, typeError.Type.String()),
			gin.H{"json": "invalid_json_type", "field": field})
	default:
		RespondBadRequest(ctx, "Invalid request body", gin.H{"reason": err.Error()})
	}

	return false
}

func fieldErrorsFrom(err error, out interface{}) []FieldError {
	var validatorError validator.ValidationErrors

	if !errors.As(err, &validatorError) {
		return nil
	}

	fields := make([]FieldError, 0, len(validatorError))

	for _, fieldError := range validatorError {
		rule := fieldError.Tag()
		param := fieldError.Param()

		fields = append(fields, FieldError{
			Field:   jsonFieldName(out, fieldError.Field()),
			Rule:    rule,
			Param:   param,
			Message: validationMessage(rule, param),
		})
	}

	return fields
}

// FlattenFieldErrors joins per-field violations into a single readable string.
func FlattenFieldErrors(fields []FieldError) string {
	parts := make([]string, 0, len(fields))

	for _, f := range fields {
		parts = append(parts, f.Field+" "+f.Message)
	}

	return strings.Join(parts, "; ")
}

// jsonFieldName maps a struct field name to its json tag name on the bound
// request type; falls back to the struct name.
func jsonFieldName(out interface{}, structField string) string {
	t := reflect.TypeOf(out)

	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	if t == nil || t.Kind() != reflect.Struct {
		return structField
	}

	sf, ok := t.FieldByName(structField)
	if !ok {
		return structField
	}

	name, _, _ := strings.Cut(sf.Tag.Get("json"), ",")
	if name == "" || name == "-" {
		return structField
	}

	return name
}

func validationMessage(rule, param string) string {
	switch rule {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		return "must be at least " + param
	case "max":
		return "must be at most " + param
	case "len":
		return "must be exactly " + param
	case "oneof":
		return "must be one of " + strings.ReplaceAll(param, " ", ", ")
	default:
		if param != "" {
			return fmt.Sprintf("failed %s validation (%s)", rule, param)
		}
		return "failed " + rule + " validation"
	}
}
