package entity

import (
	"encoding/json"
	"errors"
	"fmt"
)

// AppointmentDocumentVersion is the schema version written to the blob store
const AppointmentDocumentVersion = 1

var ErrUnsupportedDocumentVersion = errors.New("unsupported appointment document version")

// AppointmentDocument is the serialised form of the whole collection
type AppointmentDocument struct {
	Version      int           `json:"version"`
	Appointments []Appointment `json:"appointments"`
}

// NewAppointmentDocument wraps appointments in a current-version document
func NewAppointmentDocument(appointments []Appointment) AppointmentDocument {
	if appointments == nil {
		appointments = []Appointment{}
	}
	return AppointmentDocument{
		Version:      AppointmentDocumentVersion,
		Appointments: appointments,
	}
}

// DecodeAppointmentDocument accepts either a versioned document or the
// legacy bare JSON array of appointments.
func DecodeAppointmentDocument(data []byte) (*AppointmentDocument, error) {
	trimmed := firstNonSpace(data)
	switch trimmed {
	case '[':
		var appointments []Appointment
		if err := json.Unmarshal(data, &appointments); err != nil {
			return nil, err
		}
		doc := NewAppointmentDocument(appointments)
		return &doc, nil
	case '{':
		var doc AppointmentDocument
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, err
		}
		if doc.Version != AppointmentDocumentVersion {
			return nil, fmt.Errorf("%w: %d", ErrUnsupportedDocumentVersion, doc.Version)
		}
		if doc.Appointments == nil {
			doc.Appointments = []Appointment{}
		}
		return &doc, nil
	default:
		return nil, errors.New("appointment document is neither an object nor an array")
	}
}

func firstNonSpace(data []byte) byte {
	for _, b := range data {
		switch b {
		case ' ', '\t', '\r', '\n':
			continue
		}
		return b
	}
	return 0
}
