package config

import (
	"ProctorGuard/pkg/proctor"
	"strings"

	"github.com/go-playground/validator/v10"
)

func NewValidator() *validator.Validate {
	v := validator.New()

	_ = v.RegisterValidation("severity", func(fl validator.FieldLevel) bool {
		_, err := proctor.ParseSeverity(fl.Field().String())
		return err == nil
	})

	_ = v.RegisterValidation("violation_type", func(fl validator.FieldLevel) bool {
		return proctor.ViolationType(strings.ToLower(strings.TrimSpace(fl.Field().String()))).Valid()
	})

	return v
}
