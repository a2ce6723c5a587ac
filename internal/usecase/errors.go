package usecase

import (
	"errors"
	"sort"
	"strings"
)

var (
	ErrStoreNotReady       = errors.New("appointment store has not been loaded")
	ErrAppointmentNotFound = errors.New("appointment not found")
	ErrStorageRead         = errors.New("failed to read stored appointments")
	ErrStorageWrite        = errors.New("failed to persist appointments")
)

// ValidationError lists every field that blocked a create or update
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	msgs := make([]string, 0, len(keys))
	for _, k := range keys {
		msgs = append(msgs, e.Fields[k])
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}
