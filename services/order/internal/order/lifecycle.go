package order

import (
	"github.com/appetiteclub/tableflow/pkg/enums/orderstatus"
)

var advanceSteps = map[string]string{
	orderstatus.Statuses.Pending.Code():       orderstatus.Statuses.InPreparation.Code(),
	orderstatus.Statuses.InPreparation.Code(): orderstatus.Statuses.Served.Code(),
	orderstatus.Statuses.Served.Code():        orderstatus.Statuses.Completed.Code(),
}

// NextStatus returns the status that follows current on the advance path.
// It reports false for terminal or unknown statuses.
func NextStatus(current string) (string, bool) {
	next, ok := advanceSteps[current]
	return next, ok
}

// CanCancel reports whether an order in status may be cancelled.
func CanCancel(status string) bool {
	s := orderstatus.ByName(status)
	return s != nil && !s.Terminal()
}

// CanPay reports whether mark-paid may run on an order in status. Payment is
// refused only for cancelled orders since nothing leaves that state.
func CanPay(status string) bool {
	return status != orderstatus.Statuses.Cancelled.Code()
}

// CanDelete reports whether an order in status may be removed.
func CanDelete(status string) bool {
	return status == orderstatus.Statuses.Completed.Code()
}
