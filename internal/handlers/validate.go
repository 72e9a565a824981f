package handlers

import (
	"errors"
	"mime"
	"net/http"
	"reflect"
	"strings"
	"time"

	"taskManager/internal/models/task"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return field.Name
		}
		return name
	})

	_ = v.RegisterValidation("future", func(fl validator.FieldLevel) bool {
		due, ok := fl.Field().Interface().(time.Time)
		return ok && due.After(time.Now())
	})
	_ = v.RegisterValidation("task_status", func(fl validator.FieldLevel) bool {
		_, ok := task.ParseStatus(fl.Field().String())
		return ok
	})
	_ = v.RegisterValidation("task_priority", func(fl validator.FieldLevel) bool {
		_, ok := task.ParsePriority(fl.Field().String())
		return ok
	})

	return v
}

// validationDetails превращает ошибки валидатора в map json-поле -> правило
func validationDetails(err error) map[string]string {
	details := make(map[string]string)

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		details["request"] = err.Error()
		return details
	}
	for _, fe := range verrs {
		details[fe.Field()] = fe.Tag()
	}
	return details
}

func checkContentType(r *http.Request, target string) bool {
	contentType := r.Header.Get("Content-Type")
	if contentType == "" {
		return false
	}

	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}

	return mediaType == target
}
