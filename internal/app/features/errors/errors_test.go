package errors_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dalemusser/therapyrooms/internal/app/chat/chaterr"
	uierrors "github.com/dalemusser/therapyrooms/internal/app/features/errors"
	"github.com/dalemusser/therapyrooms/internal/app/system/auth"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestFromChat(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantErr  string
		wantLogs int
	}{
		{"not found", fmt.Errorf("group x: %w", chaterr.ErrNotFound), http.StatusNotFound, "not_found", 0},
		{"invalid date", chaterr.ErrInvalidDate, http.StatusBadRequest, "invalid_date", 0},
		{"room closed", chaterr.ErrRoomClosed, http.StatusConflict, "room_closed", 0},
		{"integrity", chaterr.ErrIntegrity, http.StatusConflict, "integrity", 1},
		{"storage", fmt.Errorf("op: %w: %w", chaterr.ErrStorage, fmt.Errorf("boom")), http.StatusServiceUnavailable, "storage", 1},
		{"unknown", fmt.Errorf("boom"), http.StatusInternalServerError, "internal", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			core, logs := observer.New(zapcore.InfoLevel)
			rec := httptest.NewRecorder()
			uierrors.FromChat(rec, httptest.NewRequest("GET", "/x", nil), zap.New(core), tt.err)

			if rec.Code != tt.wantCode {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantCode)
			}
			var body struct {
				Error string `json:"error"`
			}
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body.Error != tt.wantErr {
				t.Errorf("error = %q, want %q", body.Error, tt.wantErr)
			}
			if logs.Len() != tt.wantLogs {
				t.Errorf("logged %d entries, want %d", logs.Len(), tt.wantLogs)
			}
		})
	}
}

func TestForbidden_NamesRole(t *testing.T) {
	h := uierrors.NewHandler()
	req := auth.WithTestUser(httptest.NewRequest("GET", "/groups", nil), &auth.SessionUser{Role: auth.RoleClient})
	rec := httptest.NewRecorder()
	h.Forbidden(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
	var body struct {
		Message string `json:"message"`
	}
	_ = json.Unmarshal(rec.Body.Bytes(), &body)
	if body.Message != "Your role (client) does not have permission to do that." {
		t.Errorf("message = %q", body.Message)
	}
}

func TestNotFound(t *testing.T) {
	rec := httptest.NewRecorder()
	uierrors.NewHandler().NotFound(rec, httptest.NewRequest("GET", "/nope", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}
}
