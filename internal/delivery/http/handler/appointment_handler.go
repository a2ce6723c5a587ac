package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"clinic-calendar/internal/delivery/dto"
	"clinic-calendar/internal/domain/entity"
	"clinic-calendar/internal/usecase"
	"clinic-calendar/pkg/response"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

type AppointmentHandler struct {
	appointmentStore usecase.AppointmentStore
}

func NewAppointmentHandler(appointmentStore usecase.AppointmentStore) *AppointmentHandler {
	return &AppointmentHandler{
		appointmentStore: appointmentStore,
	}
}

func (h *AppointmentHandler) GetAppointments(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := entity.AppointmentFilter{
		Patient: q.Get("patient"),
		Doctor:  q.Get("doctor"),
		Search:  q.Get("search"),
	}

	appointments, err := h.appointmentStore.Query(r.Context(), filter)
	if err != nil {
		writeStoreError(w, err, "Failed to get appointments", nil)
		return
	}

	response.Success(w, http.StatusOK, "Appointments retrieved successfully", appointments)
}

func (h *AppointmentHandler) GetAppointment(w http.ResponseWriter, r *http.Request) {
	id, ok := parseAppointmentID(w, r)
	if !ok {
		return
	}

	appointment, err := h.appointmentStore.Get(r.Context(), id)
	if err != nil {
		writeStoreError(w, err, "Failed to get appointment", nil)
		return
	}

	response.Success(w, http.StatusOK, "Appointment retrieved successfully", appointment)
}

func (h *AppointmentHandler) CreateAppointment(w http.ResponseWriter, r *http.Request) {
	var req dto.AppointmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}

	appointment, err := h.appointmentStore.Create(r.Context(), &req)
	if err != nil {
		writeStoreError(w, err, "Failed to create appointment", appointment)
		return
	}

	response.Success(w, http.StatusCreated, "Appointment created successfully", appointment)
}

func (h *AppointmentHandler) UpdateAppointment(w http.ResponseWriter, r *http.Request) {
	id, ok := parseAppointmentID(w, r)
	if !ok {
		return
	}

	var req dto.AppointmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}

	appointment, err := h.appointmentStore.UpdateByID(r.Context(), id, &req)
	if err != nil {
		writeStoreError(w, err, "Failed to update appointment", appointment)
		return
	}

	response.Success(w, http.StatusOK, "Appointment updated successfully", appointment)
}

func (h *AppointmentHandler) DeleteAppointment(w http.ResponseWriter, r *http.Request) {
	id, ok := parseAppointmentID(w, r)
	if !ok {
		return
	}

	if err := h.appointmentStore.DeleteByID(r.Context(), id); err != nil {
		writeStoreError(w, err, "Failed to delete appointment", nil)
		return
	}

	response.Success(w, http.StatusOK, "Appointment deleted successfully", nil)
}

// UpdateMatchingAppointment replaces the first appointment with the given start and title
func (h *AppointmentHandler) UpdateMatchingAppointment(w http.ResponseWriter, r *http.Request) {
	var req dto.UpdateByMatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}

	appointment, err := h.appointmentStore.Update(r.Context(), &req.Target, &req.Appointment)
	if err != nil {
		writeStoreError(w, err, "Failed to update appointment", appointment)
		return
	}

	response.Success(w, http.StatusOK, "Appointment updated successfully", appointment)
}

// DeleteMatchingAppointments removes every appointment with the given start and title
func (h *AppointmentHandler) DeleteMatchingAppointments(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	target := dto.AppointmentMatchRequest{Title: q.Get("title")}
	if raw := q.Get("start"); raw != "" {
		start, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			response.ValidationError(w, map[string]string{"start": "start must be an ISO-8601 timestamp"})
			return
		}
		target.Start = start
	}

	deleted, err := h.appointmentStore.Delete(r.Context(), &target)
	if err != nil {
		writeStoreError(w, err, "Failed to delete appointments", &dto.DeleteAppointmentsResponse{Deleted: deleted})
		return
	}

	response.Success(w, http.StatusOK, "Appointments deleted successfully", &dto.DeleteAppointmentsResponse{Deleted: deleted})
}

func (h *AppointmentHandler) GetRosters(w http.ResponseWriter, r *http.Request) {
	rosters, err := h.appointmentStore.Rosters(r.Context())
	if err != nil {
		writeStoreError(w, err, "Failed to get rosters", nil)
		return
	}

	response.Success(w, http.StatusOK, "Rosters retrieved successfully", rosters)
}

func parseAppointmentID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	vars := mux.Vars(r)
	id, err := uuid.Parse(vars["id"])
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid appointment ID", nil)
		return uuid.Nil, false
	}
	return id, true
}

// writeStoreError maps store errors to responses. data is echoed back when a
// mutation was applied in memory but could not be persisted.
func writeStoreError(w http.ResponseWriter, err error, fallback string, data interface{}) {
	var verr *usecase.ValidationError
	switch {
	case errors.As(err, &verr):
		response.ValidationError(w, verr.Fields)
	case errors.Is(err, usecase.ErrAppointmentNotFound):
		response.NotFound(w, "Appointment not found")
	case errors.Is(err, usecase.ErrStoreNotReady):
		response.ServiceUnavailable(w, "Appointment store is not loaded yet")
	case errors.Is(err, usecase.ErrStorageWrite):
		response.JSON(w, http.StatusInternalServerError, response.Response{
			Success: false,
			Message: "Change applied but could not be persisted",
			Data:    data,
		})
	default:
		response.InternalServerError(w, fallback)
	}
}
