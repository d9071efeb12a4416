package handlers

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"freeshare/internal/models"
)

var registerOnce sync.Once

// RegisterValidators adds the enum tags used by request structs
// (category, condition, status) to gin's validator.
func RegisterValidators() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		if err := registerTags(v, enumTags); err != nil {
			panic(err)
		}
	})
}

var enumTags = map[string]validator.Func{
	"category": func(fl validator.FieldLevel) bool {
		return models.Category(fl.Field().String()).Valid()
	},
	"condition": func(fl validator.FieldLevel) bool {
		return models.Condition(fl.Field().String()).Valid()
	},
	"status": func(fl validator.FieldLevel) bool {
		return models.ItemStatus(fl.Field().String()).Valid()
	},
	"sort": func(fl validator.FieldLevel) bool {
		return models.SortOrder(fl.Field().String()).Valid()
	},
}

func registerTags(v *validator.Validate, tags map[string]validator.Func) error {
	for tag, fn := range tags {
		if err := v.RegisterValidation(tag, fn); err != nil {
			return fmt.Errorf("register %q validator: %w", tag, err)
		}
	}
	return nil
}

var fieldLabels = map[string]string{
	"LocationLat":    "Location",
	"LocationLng":    "Location",
	"Lat":            "Location",
	"Lng":            "Location",
	"Content":        "Message content",
	"ItemID":         "itemId",
	"ParticipantID":  "participantId",
	"InitialMessage": "initialMessage",
	"ContentType":    "Content type",
}

func fieldLabel(fe validator.FieldError) string {
	if label, ok := fieldLabels[fe.Field()]; ok {
		return label
	}
	return fe.Field()
}

// validationMessage turns a binding error into a message for the client.
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "Invalid request body"
	}
	fe := verrs[0]
	label := fieldLabel(fe)

	switch fe.Tag() {
	case "required":
		return label + " is required"
	case "min":
		return fmt.Sprintf("%s must be at least %s%s", label, fe.Param(), unitFor(fe.Kind()))
	case "max":
		return fmt.Sprintf("%s must be at most %s%s", label, fe.Param(), unitFor(fe.Kind()))
	case "latitude", "longitude":
		return "Invalid location"
	default:
		return "Invalid " + strings.ToLower(label)
	}
}

func unitFor(kind reflect.Kind) string {
	switch kind {
	case reflect.String:
		return " characters"
	case reflect.Slice, reflect.Array, reflect.Map:
		return " items"
	}
	return ""
}

// queryMessage is validationMessage for query-string binding.
func queryMessage(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		return validationMessage(err)
	}
	return "Invalid query parameters"
}
