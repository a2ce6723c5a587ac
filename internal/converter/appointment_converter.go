package converter

import (
	"clinic-calendar/internal/delivery/dto"
	"clinic-calendar/internal/domain/entity"
)

// AppointmentToResponse converts an Appointment entity to AppointmentResponse DTO
func AppointmentToResponse(appointment *entity.Appointment) *dto.AppointmentResponse {
	if appointment == nil {
		return nil
	}

	return &dto.AppointmentResponse{
		ID:      appointment.ID,
		Title:   appointment.Title,
		Start:   appointment.Start,
		End:     appointment.End,
		Patient: appointment.Patient,
		Doctor:  appointment.Doctor,
		Time:    appointment.Time,
	}
}

// AppointmentsToResponses converts a slice of Appointment entities to slice of AppointmentResponse DTOs
func AppointmentsToResponses(appointments []entity.Appointment) []dto.AppointmentResponse {
	responses := make([]dto.AppointmentResponse, len(appointments))
	for i := range appointments {
		responses[i] = *AppointmentToResponse(&appointments[i])
	}
	return responses
}

// MatchRequestToEntity converts the structural matcher DTO to its domain form
func MatchRequestToEntity(req *dto.AppointmentMatchRequest) entity.AppointmentMatch {
	return entity.AppointmentMatch{
		Start: req.Start,
		Title: req.Title,
	}
}
