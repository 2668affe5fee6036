package menu

import (
	"fmt"

	"github.com/appetiteclub/tableflow/pkg/validation"
)

func ValidateMenuItem(req MenuItemRequest) []string {
	return validation.Struct(req)
}

func ValidateCategory(req CategoryRequest) []string {
	return validation.Struct(req)
}

func ValidateReorder(req ReorderRequest) []string {
	errors := validation.Struct(req)
	if len(errors) > 0 {
		return errors
	}

	seen := make(map[string]bool, len(req.Positions))
	for i, p := range req.Positions {
		key := p.ID.String()
		if seen[key] {
			errors = append(errors, fmt.Sprintf("positions[%d].id is repeated", i))
		}
		seen[key] = true
	}
	return errors
}
