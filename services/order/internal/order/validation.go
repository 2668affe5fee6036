package order

import (
	"github.com/appetiteclub/tableflow/pkg/validation"
)

func ValidateOrderCreate(req OrderCreateRequest) []string {
	return validation.Struct(req)
}
