package transfer_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/aslanbekov/device-registry/internal/http/handlers/device/transfer"
	"github.com/aslanbekov/device-registry/internal/http/middlewarectx"
	"github.com/aslanbekov/device-registry/internal/models"
	transferservice "github.com/aslanbekov/device-registry/internal/services/transfer"
)

type ServiceMock struct{ mock.Mock }

func (m *ServiceMock) Initiate(ctx context.Context, deviceID int, fromUID, recipientEmail, reason string) (*transferservice.InitiateResult, error) {
	args := m.Called(ctx, deviceID, fromUID, recipientEmail, reason)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*transferservice.InitiateResult), args.Error(1)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func TestHandler_ServeHTTP(t *testing.T) {
	validBody := `{"device_id": 42, "recipient_email": "bob@example.com", "reason": "gift"}`

	tests := []struct {
		name           string
		body           string
		userUID        string
		setupMocks     func(s *ServiceMock)
		wantStatusCode int
		wantError      string
	}{
		{
			name:    "success",
			body:    validBody,
			userUID: "uid-1",
			setupMocks: func(s *ServiceMock) {
				s.On("Initiate", mock.Anything, 42, "uid-1", "bob@example.com", "gift").
					Return(&transferservice.InitiateResult{
						Device: &models.Device{
							ID:     42,
							Status: models.DeviceStatusTransferPending,
						},
						RecipientUsername: "bob",
					}, nil).Once()
			},
			wantStatusCode: http.StatusOK,
		},
		{
			name:           "invalid json",
			body:           `{broken`,
			userUID:        "uid-1",
			setupMocks:     func(s *ServiceMock) {},
			wantStatusCode: http.StatusBadRequest,
			wantError:      "invalid request body",
		},
		{
			name:           "missing recipient email",
			body:           `{"device_id": 42}`,
			userUID:        "uid-1",
			setupMocks:     func(s *ServiceMock) {},
			wantStatusCode: http.StatusUnprocessableEntity,
			wantError:      "field RecipientEmail is a required field",
		},
		{
			name:           "unauthorized without user uid",
			body:           validBody,
			userUID:        "",
			setupMocks:     func(s *ServiceMock) {},
			wantStatusCode: http.StatusUnauthorized,
			wantError:      "unauthorized",
		},
		{
			name:    "device not found",
			body:    validBody,
			userUID: "uid-1",
			setupMocks: func(s *ServiceMock) {
				s.On("Initiate", mock.Anything, 42, "uid-1", "bob@example.com", "gift").
					Return(nil, models.ErrDeviceNotFound).Once()
			},
			wantStatusCode: http.StatusBadRequest,
			wantError:      "device not found",
		},
		{
			name:    "transfer already in progress",
			body:    validBody,
			userUID: "uid-1",
			setupMocks: func(s *ServiceMock) {
				s.On("Initiate", mock.Anything, 42, "uid-1", "bob@example.com", "gift").
					Return(nil, models.ErrTransferInProgress).Once()
			},
			wantStatusCode: http.StatusBadRequest,
			wantError:      "device transfer already in progress",
		},
		{
			name:    "recipient not found",
			body:    validBody,
			userUID: "uid-1",
			setupMocks: func(s *ServiceMock) {
				s.On("Initiate", mock.Anything, 42, "uid-1", "bob@example.com", "gift").
					Return(nil, models.ErrRecipientNotFound).Once()
			},
			wantStatusCode: http.StatusBadRequest,
			wantError:      "recipient not found",
		},
		{
			name:    "internal error",
			body:    validBody,
			userUID: "uid-1",
			setupMocks: func(s *ServiceMock) {
				s.On("Initiate", mock.Anything, 42, "uid-1", "bob@example.com", "gift").
					Return(nil, errors.New("db is down")).Once()
			},
			wantStatusCode: http.StatusInternalServerError,
			wantError:      "could not initiate transfer",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			serviceMock := new(ServiceMock)
			tt.setupMocks(serviceMock)

			handler := transfer.New(newNoopLogger(), serviceMock)

			req := httptest.NewRequest(http.MethodPut, "/api/v1/devices/transfer",
				bytes.NewBufferString(tt.body))
			if tt.userUID != "" {
				ctx := context.WithValue(req.Context(), middlewarectx.UserUID, tt.userUID)
				req = req.WithContext(ctx)
			}
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatusCode, rec.Code)

			var resp struct {
				Status string         `json:"status"`
				Error  string         `json:"error"`
				Data   map[string]any `json:"data"`
			}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

			if tt.wantError != "" {
				assert.Contains(t, resp.Error, tt.wantError)
			} else {
				assert.Equal(t, "OK", resp.Status)
				assert.Equal(t, float64(42), resp.Data["device_id"])
				assert.Equal(t, "bob", resp.Data["new_owner"])
				assert.Equal(t, string(models.DeviceStatusTransferPending), resp.Data["status"])
			}
			serviceMock.AssertExpectations(t)
		})
	}
}
