package device

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/aslanbekov/device-registry/internal/models"
)

type RepoMock struct{ mock.Mock }

func (m *RepoMock) CreateDevice(ctx context.Context, device models.Device, maxDevices int) (int, error) {
	args := m.Called(ctx, device, maxDevices)
	return args.Int(0), args.Error(1)
}

func (m *RepoMock) ListDevicesByOwner(ctx context.Context, ownerUID string) ([]*models.Device, error) {
	args := m.Called(ctx, ownerUID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Device), args.Error(1)
}

func (m *RepoMock) ListAllDevices(ctx context.Context, limit, offset int) ([]*models.Device, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Device), args.Error(1)
}

func (m *RepoMock) GetDevice(ctx context.Context, id int) (*models.Device, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Device), args.Error(1)
}

func (m *RepoMock) FindDeviceByIdentity(ctx context.Context, q string) (*models.Device, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Device), args.Error(1)
}

func (m *RepoMock) UpdateDeviceStatus(ctx context.Context, id int, ownerUID, status, location, description string) (*models.Device, error) {
	args := m.Called(ctx, id, ownerUID, status, location, description)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Device), args.Error(1)
}

func (m *RepoMock) UpdateDeviceStatusAdmin(ctx context.Context, id int, status, location, description string) (*models.Device, error) {
	args := m.Called(ctx, id, status, location, description)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Device), args.Error(1)
}

func (m *RepoMock) ListTransfersBySerial(ctx context.Context, serialNumber string) ([]*models.TransferRecord, error) {
	args := m.Called(ctx, serialNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.TransferRecord), args.Error(1)
}

type OracleMock struct{ mock.Mock }

func (m *OracleMock) MaxDevicesFor(ctx context.Context, userUID string) (int, error) {
	args := m.Called(ctx, userUID)
	return args.Int(0), args.Error(1)
}

type ResolverMock struct{ mock.Mock }

func (m *ResolverMock) ResolveDue(ctx context.Context, fromUID string) {
	m.Called(ctx, fromUID)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func TestService_Create(t *testing.T) {
	req := models.DummyDevice{
		Name:         "Pixel 8",
		Type:         "smartphone",
		SerialNumber: "SN-12345",
		IMEI1:        "356789104563218",
		PurchaseDate: "15-03-2024",
	}

	tests := []struct {
		name       string
		req        models.DummyDevice
		setupMocks func(r *RepoMock, o *OracleMock)
		wantID     int
		wantErr    error
	}{
		{
			name: "success",
			req:  req,
			setupMocks: func(r *RepoMock, o *OracleMock) {
				o.On("MaxDevicesFor", mock.Anything, "uid-1").Return(10, nil).Once()
				r.On("CreateDevice", mock.Anything, mock.MatchedBy(func(d models.Device) bool {
					wantDate := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
					return d.SerialNumber == "SN-12345" &&
						d.OwnerUID == "uid-1" &&
						d.PurchaseDate != nil &&
						d.PurchaseDate.Equal(wantDate)
				}), 10).Return(42, nil).Once()
			},
			wantID: 42,
		},
		{
			name: "no active subscription",
			req:  req,
			setupMocks: func(r *RepoMock, o *OracleMock) {
				o.On("MaxDevicesFor", mock.Anything, "uid-1").
					Return(0, models.ErrNoActiveSubscription).Once()
			},
			wantErr: models.ErrNoActiveSubscription,
		},
		{
			name: "quota exceeded in storage",
			req:  req,
			setupMocks: func(r *RepoMock, o *OracleMock) {
				o.On("MaxDevicesFor", mock.Anything, "uid-1").Return(3, nil).Once()
				r.On("CreateDevice", mock.Anything, mock.Anything, 3).
					Return(0, models.ErrQuotaExceeded).Once()
			},
			wantErr: models.ErrQuotaExceeded,
		},
		{
			name: "invalid purchase date",
			req: models.DummyDevice{
				Name:         "Pixel 8",
				Type:         "smartphone",
				SerialNumber: "SN-12345",
				PurchaseDate: "2024-03-15",
			},
			setupMocks: func(r *RepoMock, o *OracleMock) {
				o.On("MaxDevicesFor", mock.Anything, "uid-1").Return(10, nil).Once()
			},
			wantErr: nil, // проверяется только факт ошибки
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(RepoMock)
			oracle := new(OracleMock)
			resolver := new(ResolverMock)
			tt.setupMocks(repo, oracle)

			svc := New(repo, oracle, resolver, newNoopLogger())
			id, err := svc.Create(context.Background(), "uid-1", tt.req)

			switch {
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
			case tt.wantID != 0:
				assert.NoError(t, err)
				assert.Equal(t, tt.wantID, id)
			default:
				assert.Error(t, err)
			}
			repo.AssertExpectations(t)
			oracle.AssertExpectations(t)
		})
	}
}

func TestService_List_ResolvesDueTransfersFirst(t *testing.T) {
	repo := new(RepoMock)
	oracle := new(OracleMock)
	resolver := new(ResolverMock)

	resolver.On("ResolveDue", mock.Anything, "uid-1").Once()
	repo.On("ListDevicesByOwner", mock.Anything, "uid-1").
		Return([]*models.Device{{ID: 1, SerialNumber: "SN-1"}}, nil).Once()

	svc := New(repo, oracle, resolver, newNoopLogger())
	devices, err := svc.List(context.Background(), "uid-1")

	assert.NoError(t, err)
	assert.Len(t, devices, 1)
	resolver.AssertExpectations(t)
	repo.AssertExpectations(t)
}

func TestService_SearchByIdentity(t *testing.T) {
	repo := new(RepoMock)
	oracle := new(OracleMock)
	resolver := new(ResolverMock)

	device := &models.Device{ID: 3, SerialNumber: "SN-777"}
	history := []*models.TransferRecord{
		{ID: 2, SerialNumber: "SN-777", Status: models.TransferStatusApproved},
		{ID: 1, SerialNumber: "SN-777", Status: models.TransferStatusFailed},
	}
	repo.On("FindDeviceByIdentity", mock.Anything, "SN-777").Return(device, nil).Once()
	repo.On("ListTransfersBySerial", mock.Anything, "SN-777").Return(history, nil).Once()

	svc := New(repo, oracle, resolver, newNoopLogger())
	result, err := svc.SearchByIdentity(context.Background(), "SN-777")

	assert.NoError(t, err)
	assert.Equal(t, device, result.Device)
	assert.Len(t, result.Transfers, 2)

	t.Run("not found", func(t *testing.T) {
		repo := new(RepoMock)
		repo.On("FindDeviceByIdentity", mock.Anything, "missing").
			Return(nil, models.ErrDeviceNotFound).Once()

		svc := New(repo, oracle, resolver, newNoopLogger())
		_, err := svc.SearchByIdentity(context.Background(), "missing")
		assert.ErrorIs(t, err, models.ErrDeviceNotFound)
	})
}
