package entity

// SeedData is the initial collection and the rosters used when storage is empty
type SeedData struct {
	Appointments []Appointment `json:"appointments"`
	Patients     []string      `json:"patients"`
	Doctors      []string      `json:"doctors"`
}

// Roster is a fixed list of valid patient or doctor names
type Roster []string

// Contains reports whether name is on the roster
func (r Roster) Contains(name string) bool {
	for _, n := range r {
		if n == name {
			return true
		}
	}
	return false
}
