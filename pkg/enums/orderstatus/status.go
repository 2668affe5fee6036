package orderstatus

import (
	"strings"
)

type Status struct {
	Name string
}

func (s Status) Code() string {
	return s.Name
}

func (s Status) Label() string {
	parts := strings.Split(s.Name, "-")
	for i := range parts {
		if len(parts[i]) > 0 {
			parts[i] = strings.ToUpper(parts[i][:1]) + parts[i][1:]
		}
	}
	return strings.Join(parts, " ")
}

// Terminal reports whether no lifecycle transition leaves the status.
func (s Status) Terminal() bool {
	return s == Statuses.Completed || s == Statuses.Cancelled
}

// Billable reports whether orders in this status may be paid.
func (s Status) Billable() bool {
	return s == Statuses.Served || s == Statuses.Completed
}

type Enum struct {
	Pending       Status
	InPreparation Status
	Served        Status
	Completed     Status
	Cancelled     Status
}

var Statuses = Enum{
	Pending:       Status{Name: "pending"},
	InPreparation: Status{Name: "in-preparation"},
	Served:        Status{Name: "served"},
	Completed:     Status{Name: "completed"},
	Cancelled:     Status{Name: "cancelled"},
}

var All = []Status{
	Statuses.Pending,
	Statuses.InPreparation,
	Statuses.Served,
	Statuses.Completed,
	Statuses.Cancelled,
}

// ByName returns the status for a given name, or nil if not found
func ByName(name string) *Status {
	for _, s := range All {
		if s.Name == name {
			return &s
		}
	}
	return nil
}
