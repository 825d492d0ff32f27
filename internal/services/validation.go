package services

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"arcadepress/internal/apperror"

	"github.com/go-playground/validator/v10"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

// getValidator 全局 validator，字段名取 form 标签
func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New()
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("form"), ",", 2)[0]
			if name == "-" || name == "" {
				return strings.ToLower(f.Name)
			}
			return name
		})
		_ = v.RegisterValidation("webscheme", validateWebScheme)
		validate = v
	})
	return validate
}

// validateWebScheme 只允许 http/https 链接，空值交给 required 处理
func validateWebScheme(fl validator.FieldLevel) bool {
	s := strings.ToLower(fl.Field().String())
	return s == "" || strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

// validateStruct 把 validator 的错误转换为按字段的提示
func validateStruct(s any) apperror.ValidationErrors {
	errs := apperror.ValidationErrors{}
	err := getValidator().Struct(s)
	if err == nil {
		return errs
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		errs.Add("__all__", "Invalid submission.")
		return errs
	}

	for _, e := range verrs {
		field := e.Field()
		switch e.Tag() {
		case "required":
			errs.Add(field, "This field is required.")
		case "max":
			errs.Add(field, fmt.Sprintf("Ensure this value has at most %s characters.", e.Param()))
		case "url":
			errs.Add(field, "Enter a valid URL.")
		case "webscheme":
			errs.Add(field, "Game URL must start with http:// or https://")
		case "oneof":
			errs.Add(field, fmt.Sprintf("Must be one of: %s.", e.Param()))
		default:
			errs.Add(field, "Invalid value.")
		}
	}
	return errs
}
