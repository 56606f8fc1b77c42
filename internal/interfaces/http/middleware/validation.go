package middleware

import (
	"reflect"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/socialstax/backend/internal/domain/billing"
)

// SetupValidator configures the gin binding validator with custom tags
func SetupValidator() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}

	// Report field names from JSON tags so binding errors match the wire
	// format instead of Go struct fields
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			name = strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
		}
		return name
	})

	// resource validates metered resource names, including the legacy
	// voice assistant alias
	_ = v.RegisterValidation("resource", func(fl validator.FieldLevel) bool {
		_, err := billing.ParseResourceType(fl.Field().String())
		return err == nil
	})

	// plantier validates subscription plan tier names
	_ = v.RegisterValidation("plantier", func(fl validator.FieldLevel) bool {
		return billing.PlanTier(fl.Field().String()).IsValid()
	})
}
