package tables

import (
	"github.com/google/uuid"

	"github.com/appetiteclub/tableflow/pkg/validation"
)

func ValidateTableCreate(req TableCreateRequest) []string {
	return validation.Struct(req)
}

func ValidateTableUpdate(id uuid.UUID, req TableUpdateRequest) []string {
	var errors []string

	if id == uuid.Nil {
		errors = append(errors, "invalid table id")
	}
	if req.Number == 0 && req.Capacity == 0 {
		errors = append(errors, "nothing to update")
	}

	return append(errors, validation.Struct(req)...)
}

func ValidateTableStatus(req TableStatusRequest) []string {
	return validation.Struct(req)
}
