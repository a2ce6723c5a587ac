package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"clinic-calendar/internal/usecase"
	"clinic-calendar/pkg/response"

	"github.com/sirupsen/logrus"
)

const (
	ExportFileJSON = "appointments.json"
	ExportFilePDF  = "appointments.pdf"
	ExportFileICS  = "appointments.ics"
	ExportFileXLSX = "appointments.xlsx"
)

type ExportHandler struct {
	appointmentStore usecase.AppointmentStore
	log              *logrus.Logger
}

func NewExportHandler(appointmentStore usecase.AppointmentStore, log *logrus.Logger) *ExportHandler {
	return &ExportHandler{
		appointmentStore: appointmentStore,
		log:              log,
	}
}

func (h *ExportHandler) ExportJSON(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, h.appointmentStore.ExportJSON, "application/json", ExportFileJSON)
}

func (h *ExportHandler) ExportPDF(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, h.appointmentStore.ExportPDF, "application/pdf", ExportFilePDF)
}

func (h *ExportHandler) ExportICS(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, h.appointmentStore.ExportICS, "text/calendar; charset=utf-8", ExportFileICS)
}

func (h *ExportHandler) ExportXLSX(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, h.appointmentStore.ExportXLSX,
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", ExportFileXLSX)
}

func (h *ExportHandler) serve(w http.ResponseWriter, r *http.Request, export func(context.Context) ([]byte, error), contentType, filename string) {
	data, err := export(r.Context())
	if err != nil {
		h.log.Warnf("Failed to export %s: %+v", filename, err)
		if errors.Is(err, usecase.ErrStoreNotReady) {
			response.ServiceUnavailable(w, "Appointment store is not loaded yet")
			return
		}
		response.InternalServerError(w, "Failed to export appointments")
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		h.log.Warnf("Error writing %s: %v", filename, err)
	}
}
