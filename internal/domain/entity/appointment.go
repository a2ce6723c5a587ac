package entity

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Appointment represents one scheduled meeting between a patient and a doctor
type Appointment struct {
	ID      uuid.UUID `json:"id"`
	Title   string    `json:"title"`
	Start   time.Time `json:"start"`
	End     time.Time `json:"end"`
	Patient string    `json:"patient"`
	Doctor  string    `json:"doctor"`
	Time    string    `json:"time"`
}

// AppointmentTitle builds the display title "<patient> with <doctor>"
func AppointmentTitle(patient, doctor string) string {
	return fmt.Sprintf("%s with %s", patient, doctor)
}

// Matches reports whether the appointment is structurally equal to m
func (a *Appointment) Matches(m AppointmentMatch) bool {
	return a.Start.Equal(m.Start) && a.Title == m.Title
}

// Complete reports whether the record carries everything a stored
// appointment needs: patient, doctor, time of day and a start timestamp.
func (a *Appointment) Complete() bool {
	return a.Patient != "" && a.Doctor != "" && a.Time != "" && !a.Start.IsZero()
}

// Duration is zero unless an end was supplied independently of the start
func (a *Appointment) Duration() time.Duration {
	return a.End.Sub(a.Start)
}

// AppointmentMatch identifies appointments by value: start timestamp and title.
// Several stored appointments can share the same match.
type AppointmentMatch struct {
	Start time.Time
	Title string
}

// FilterMode selects what the patient and doctor filters compare against
type FilterMode string

const (
	// FilterModeTitle matches patient/doctor as case-sensitive substrings of the title
	FilterModeTitle FilterMode = "title"
	// FilterModeFields matches patient/doctor against the structured fields exactly
	FilterModeFields FilterMode = "fields"
)

// ParseFilterMode falls back to FilterModeTitle for anything unrecognised
func ParseFilterMode(s string) FilterMode {
	if FilterMode(strings.ToLower(s)) == FilterModeFields {
		return FilterModeFields
	}
	return FilterModeTitle
}

// AppointmentFilter constrains a query. Empty fields mean no constraint.
type AppointmentFilter struct {
	Patient string
	Doctor  string
	Search  string
}

// Accept applies all three predicates (ANDed) to a
func (f AppointmentFilter) Accept(a *Appointment, mode FilterMode) bool {
	var matchesPatient, matchesDoctor bool
	if mode == FilterModeFields {
		matchesPatient = f.Patient == "" || a.Patient == f.Patient
		matchesDoctor = f.Doctor == "" || a.Doctor == f.Doctor
	} else {
		matchesPatient = f.Patient == "" || strings.Contains(a.Title, f.Patient)
		matchesDoctor = f.Doctor == "" || strings.Contains(a.Title, f.Doctor)
	}
	matchesSearch := f.Search == "" || strings.Contains(strings.ToLower(a.Title), strings.ToLower(f.Search))
	return matchesPatient && matchesDoctor && matchesSearch
}
