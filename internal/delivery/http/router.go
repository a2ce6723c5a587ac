package http

import (
	"net/http"

	"clinic-calendar/internal/delivery/http/handler"
	"clinic-calendar/internal/delivery/http/middleware"

	"github.com/gorilla/mux"
)

type Router struct {
	router              *mux.Router
	appointmentHandler  *handler.AppointmentHandler
	exportHandler       *handler.ExportHandler
	rateLimitMiddleware *middleware.RateLimitMiddleware
	corsMiddleware      *middleware.CORSMiddleware
}

func NewRouter(
	appointmentHandler *handler.AppointmentHandler,
	exportHandler *handler.ExportHandler,
	rateLimitMiddleware *middleware.RateLimitMiddleware,
	corsMiddleware *middleware.CORSMiddleware,
) *Router {
	return &Router{
		router:              mux.NewRouter(),
		appointmentHandler:  appointmentHandler,
		exportHandler:       exportHandler,
		rateLimitMiddleware: rateLimitMiddleware,
		corsMiddleware:      corsMiddleware,
	}
}

func (r *Router) Setup() *mux.Router {
	// API versioning
	api := r.router.PathPrefix("/api/v1").Subrouter()

	// Health check
	api.HandleFunc("/health", r.healthCheck).Methods(http.MethodGet)

	api.HandleFunc("/rosters", r.appointmentHandler.GetRosters).Methods(http.MethodGet)

	// Appointments
	appointments := api.PathPrefix("/appointments").Subrouter()
	appointments.Use(r.rateLimitMiddleware.Handle)

	// structural (start + title) addressing, registered before /{id}
	appointments.HandleFunc("/match", r.appointmentHandler.UpdateMatchingAppointment).Methods(http.MethodPut)
	appointments.HandleFunc("/match", r.appointmentHandler.DeleteMatchingAppointments).Methods(http.MethodDelete)

	appointments.HandleFunc("", r.appointmentHandler.GetAppointments).Methods(http.MethodGet)
	appointments.HandleFunc("", r.appointmentHandler.CreateAppointment).Methods(http.MethodPost)
	appointments.HandleFunc("/{id}", r.appointmentHandler.GetAppointment).Methods(http.MethodGet)
	appointments.HandleFunc("/{id}", r.appointmentHandler.UpdateAppointment).Methods(http.MethodPut)
	appointments.HandleFunc("/{id}", r.appointmentHandler.DeleteAppointment).Methods(http.MethodDelete)

	// Exports
	export := api.PathPrefix("/export").Subrouter()
	export.HandleFunc("/"+handler.ExportFileJSON, r.exportHandler.ExportJSON).Methods(http.MethodGet)
	export.HandleFunc("/"+handler.ExportFilePDF, r.exportHandler.ExportPDF).Methods(http.MethodGet)
	export.HandleFunc("/"+handler.ExportFileICS, r.exportHandler.ExportICS).Methods(http.MethodGet)
	export.HandleFunc("/"+handler.ExportFileXLSX, r.exportHandler.ExportXLSX).Methods(http.MethodGet)

	// Add CORS middleware
	r.router.Use(r.corsMiddleware.Handle)

	return r.router
}

func (r *Router) healthCheck(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status": "ok"}`))
}
