package middleware

import (
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	appshared "github.com/marketplace/orderflow/internal/application/shared"
)

// SetupValidator makes gin's binding validator report fields by JSON name
func SetupValidator() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		appshared.RegisterJSONTagNames(v)
	}
}
