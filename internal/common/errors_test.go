package common

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgresErrorsMapToClientStatus(t *testing.T) {
	tests := []struct {
		code    string
		status  int
		message string
	}{
		{"22P02", http.StatusBadRequest, "Malformed identifier"},
		{"23505", http.StatusConflict, "Resource already exists"},
		{"23503", http.StatusBadRequest, "Referenced resource does not exist"},
		{"42P01", http.StatusInternalServerError, "Internal Server Error"},
	}
	for _, tc := range tests {
		t.Run(tc.code, func(t *testing.T) {
			err := fmt.Errorf("pgSubmissionRepository.GetSubmissionByID: %w", &pgconn.PgError{Code: tc.code, Message: "raw detail"})
			assert.Equal(t, tc.status, HTTPStatusFromError(err))
			assert.Equal(t, tc.message, PublicMessage(err))
		})
	}
}

func TestDecodeJSONRejectsOversizedBody(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"source_code":"`+strings.Repeat("x", 64)+`"}`))
	req.Body = http.MaxBytesReader(rec, req.Body, 16)

	var dst map[string]string
	err := DecodeJSON(req, &dst)
	require.ErrorIs(t, err, ErrPayloadTooLarge)
	assert.Equal(t, http.StatusRequestEntityTooLarge, HTTPStatusFromError(err))
	assert.Equal(t, "Request body too large", PublicMessage(err))

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{not json`))
	require.ErrorIs(t, DecodeJSON(req, &dst), ErrValidation)
}
