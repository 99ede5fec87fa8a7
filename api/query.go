package api

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/adeilh/spacedash/envelope"
	"github.com/adeilh/spacedash/httpx"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		tag := strings.SplitN(f.Tag.Get("query"), ",", 2)[0]
		if tag == "" {
			return f.Name
		}
		return tag
	})
	return v
}

type apodQuery struct {
	Date string `query:"date" validate:"omitempty,datetime=2006-01-02"`
}

type marsQuery struct {
	Rover     string `query:"rover" validate:"omitempty,oneof=curiosity opportunity spirit perseverance"`
	Sol       string `query:"sol" validate:"omitempty,number"`
	EarthDate string `query:"earth_date" validate:"omitempty,datetime=2006-01-02"`
	Camera    string `query:"camera" validate:"omitempty,alphanum,max=16"`
}

type rangeQuery struct {
	StartDate string `query:"start_date" validate:"omitempty,datetime=2006-01-02"`
	EndDate   string `query:"end_date" validate:"omitempty,datetime=2006-01-02"`
}

type earthQuery struct {
	Lat  string `query:"lat" validate:"required,latitude"`
	Lon  string `query:"lon" validate:"required,longitude"`
	Date string `query:"date" validate:"omitempty,datetime=2006-01-02"`
	Dim  string `query:"dim" validate:"omitempty,numeric"`
}

// bindQuery fills dst from the query string and validates it. The returned
// error is an *envelope.Error with VALIDATION_ERROR.
func bindQuery(c httpx.Context, dst any) error {
	if err := httpx.BindQuery(c, dst); err != nil {
		return &envelope.Error{Code: envelope.CodeValidation, Message: "invalid query parameters", Details: map[string]any{"error": err.Error()}}
	}
	if err := validate.Struct(dst); err != nil {
		return formatValidationErrors(err)
	}
	return nil
}

func formatValidationErrors(err error) *envelope.Error {
	if errs, ok := err.(validator.ValidationErrors); ok {
		details := map[string]string{}
		for _, fieldErr := range errs {
			details[fieldErr.Field()] = validationMessage(fieldErr)
		}
		return &envelope.Error{Code: envelope.CodeValidation, Message: "validation failed", Details: details}
	}
	return &envelope.Error{Code: envelope.CodeValidation, Message: "validation failed", Details: map[string]any{"error": err.Error()}}
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "datetime":
		return fmt.Sprintf("must be a date formatted %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fe.Param())
	case "number":
		return "must be a non-negative integer"
	case "numeric":
		return "must be numeric"
	case "latitude":
		return "must be a latitude between -90 and 90"
	case "longitude":
		return "must be a longitude between -180 and 180"
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	}
	return "is invalid"
}
