package dto

import (
	"time"

	"github.com/google/uuid"
)

// Request DTOs

// AppointmentRequest is the booking form: a patient, a doctor, a day and a
// time. EndDate/EndTime are optional and default to the start.
type AppointmentRequest struct {
	Patient string `json:"patient" validate:"required"`
	Doctor  string `json:"doctor" validate:"required"`
	Date    string `json:"date" validate:"required,datetime=2006-01-02"`
	Time    string `json:"time" validate:"required,clock"`
	EndDate string `json:"end_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	EndTime string `json:"end_time,omitempty" validate:"omitempty,clock"`
}

// AppointmentMatchRequest addresses appointments by value
type AppointmentMatchRequest struct {
	Start time.Time `json:"start"`
	Title string    `json:"title"`
}

type UpdateByMatchRequest struct {
	Target      AppointmentMatchRequest `json:"target"`
	Appointment AppointmentRequest      `json:"appointment"`
}

// Response DTOs

type AppointmentResponse struct {
	ID      uuid.UUID `json:"id"`
	Title   string    `json:"title"`
	Start   time.Time `json:"start"`
	End     time.Time `json:"end"`
	Patient string    `json:"patient"`
	Doctor  string    `json:"doctor"`
	Time    string    `json:"time"`
}

type AppointmentListResponse struct {
	Appointments []AppointmentResponse `json:"appointments"`
	Total        int                   `json:"total"`
}

type RosterResponse struct {
	Patients []string `json:"patients"`
	Doctors  []string `json:"doctors"`
}

type DeleteAppointmentsResponse struct {
	Deleted int `json:"deleted"`
}
