package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/lockerhq/locker/internal/common"
	"github.com/lockerhq/locker/internal/logging"
)

type noopLogger struct{}

func (noopLogger) Debug(ctx context.Context, msg string, args ...any) {}
func (noopLogger) Info(ctx context.Context, msg string, args ...any)  {}
func (noopLogger) Warn(ctx context.Context, msg string, args ...any)  {}
func (noopLogger) Error(ctx context.Context, msg string, args ...any) {}
func (l noopLogger) With(args ...any) logging.Logger                  { return l }

func TestWriteError_StatusMapping(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := &Handler{logger: noopLogger{}}

	cases := []struct {
		name string
		err  error
		want int
	}{
		{"not found", common.ErrorNotFound, http.StatusNotFound},
		{"invalid status", fmt.Errorf("%w: confirm from invited", common.ErrorInvalidStatus), http.StatusBadRequest},
		{"invariant violation", common.ErrorInvariantViolation, http.StatusBadRequest},
		{"missing share target", common.ErrorMissingShareTarget, http.StatusBadRequest},
		{"immutable cipher type", common.ErrorImmutableCipherType, http.StatusBadRequest},
		{"team locked", common.ErrorTeamLocked, http.StatusConflict},
		{"permission denied", common.ErrorPermissionDenied, http.StatusForbidden},
		{"unknown error", errors.New("pq: connection reset"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

			h.writeError(c, tc.err)

			if w.Code != tc.want {
				t.Fatalf("status = %d, want %d", w.Code, tc.want)
			}
		})
	}
}

// Unknown errors must not leak their message to the client.
func TestWriteError_HidesInternalDetail(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := &Handler{logger: noopLogger{}}

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

	h.writeError(c, errors.New("db error: secret dsn"))

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", w.Code)
	}
	want := `{"error":"` + common.ErrorInternal.Error() + `"}`
	if w.Body.String() != want {
		t.Fatalf("body = %s, want %s", w.Body.String(), want)
	}
}
