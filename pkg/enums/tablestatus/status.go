package tablestatus

type Status struct {
	Name string
}

func (s Status) Code() string {
	return s.Name
}

type Enum struct {
	Available Status
	Occupied  Status
	Reserved  Status
}

var Statuses = Enum{
	Available: Status{Name: "available"},
	Occupied:  Status{Name: "occupied"},
	Reserved:  Status{Name: "reserved"},
}

var All = []Status{
	Statuses.Available,
	Statuses.Occupied,
	Statuses.Reserved,
}

func ByName(name string) *Status {
	for _, s := range All {
		if s.Name == name {
			return &s
		}
	}
	return nil
}

// Valid reports whether name is a known table status.
func Valid(name string) bool {
	return ByName(name) != nil
}
