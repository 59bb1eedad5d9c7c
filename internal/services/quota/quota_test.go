package quota

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/aslanbekov/device-registry/internal/models"
)

type UserRepoMock struct{ mock.Mock }

func (m *UserRepoMock) GetUser(ctx context.Context, uid string) (*models.User, error) {
	args := m.Called(ctx, uid)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

type PlanRepoMock struct{ mock.Mock }

func (m *PlanRepoMock) GetPlan(ctx context.Context, id int) (*models.Plan, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Plan), args.Error(1)
}

type DeviceCounterMock struct{ mock.Mock }

func (m *DeviceCounterMock) CountDevicesByOwner(ctx context.Context, ownerUID string) (int, error) {
	args := m.Called(ctx, ownerUID)
	return args.Int(0), args.Error(1)
}

func activeUser(now time.Time, planID int) *models.User {
	till := now.Add(30 * 24 * time.Hour)
	return &models.User{
		UID:            "uid-1",
		SubActive:      true,
		SubActiveTill:  &till,
		SubscriptionID: &planID,
	}
}

func TestService_ReceiverEligible(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		setupMocks func(u *UserRepoMock, p *PlanRepoMock, d *DeviceCounterMock)
		want       Verdict
		wantMax    int
	}{
		{
			name: "active subscription with room",
			setupMocks: func(u *UserRepoMock, p *PlanRepoMock, d *DeviceCounterMock) {
				u.On("GetUser", mock.Anything, "uid-1").Return(activeUser(now, 2), nil).Once()
				p.On("GetPlan", mock.Anything, 2).Return(&models.Plan{ID: 2, MaxDevices: 10}, nil).Once()
				d.On("CountDevicesByOwner", mock.Anything, "uid-1").Return(3, nil).Once()
			},
			want:    VerdictOK,
			wantMax: 10,
		},
		{
			name: "subscription expiring exactly now is still valid",
			setupMocks: func(u *UserRepoMock, p *PlanRepoMock, d *DeviceCounterMock) {
				till := now
				planID := 2
				u.On("GetUser", mock.Anything, "uid-1").Return(&models.User{
					UID:            "uid-1",
					SubActive:      true,
					SubActiveTill:  &till,
					SubscriptionID: &planID,
				}, nil).Once()
				p.On("GetPlan", mock.Anything, 2).Return(&models.Plan{ID: 2, MaxDevices: 10}, nil).Once()
				d.On("CountDevicesByOwner", mock.Anything, "uid-1").Return(3, nil).Once()
			},
			want:    VerdictOK,
			wantMax: 10,
		},
		{
			name: "no subscription at all",
			setupMocks: func(u *UserRepoMock, p *PlanRepoMock, d *DeviceCounterMock) {
				u.On("GetUser", mock.Anything, "uid-1").
					Return(&models.User{UID: "uid-1"}, nil).Once()
			},
			want: VerdictNoSubscription,
		},
		{
			name: "expired subscription",
			setupMocks: func(u *UserRepoMock, p *PlanRepoMock, d *DeviceCounterMock) {
				till := now.Add(-time.Hour)
				planID := 2
				u.On("GetUser", mock.Anything, "uid-1").Return(&models.User{
					UID:            "uid-1",
					SubActive:      true,
					SubActiveTill:  &till,
					SubscriptionID: &planID,
				}, nil).Once()
			},
			want: VerdictExpired,
		},
		{
			name: "device limit reached",
			setupMocks: func(u *UserRepoMock, p *PlanRepoMock, d *DeviceCounterMock) {
				u.On("GetUser", mock.Anything, "uid-1").Return(activeUser(now, 2), nil).Once()
				p.On("GetPlan", mock.Anything, 2).Return(&models.Plan{ID: 2, MaxDevices: 3}, nil).Once()
				d.On("CountDevicesByOwner", mock.Anything, "uid-1").Return(3, nil).Once()
			},
			want:    VerdictLimitReached,
			wantMax: 3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			users := new(UserRepoMock)
			plans := new(PlanRepoMock)
			devices := new(DeviceCounterMock)
			tt.setupMocks(users, plans, devices)

			svc := New(users, plans, devices)
			svc.now = func() time.Time { return now }

			verdict, maxDevices, err := svc.ReceiverEligible(context.Background(), "uid-1")
			assert.NoError(t, err)
			assert.Equal(t, tt.want, verdict)
			assert.Equal(t, tt.wantMax, maxDevices)

			users.AssertExpectations(t)
			plans.AssertExpectations(t)
			devices.AssertExpectations(t)
		})
	}
}

func TestService_MaxDevicesFor(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	t.Run("returns plan quota", func(t *testing.T) {
		users := new(UserRepoMock)
		plans := new(PlanRepoMock)
		devices := new(DeviceCounterMock)
		users.On("GetUser", mock.Anything, "uid-1").Return(activeUser(now, 5), nil).Once()
		plans.On("GetPlan", mock.Anything, 5).Return(&models.Plan{ID: 5, MaxDevices: 50}, nil).Once()

		svc := New(users, plans, devices)
		svc.now = func() time.Time { return now }

		max, err := svc.MaxDevicesFor(context.Background(), "uid-1")
		assert.NoError(t, err)
		assert.Equal(t, 50, max)
	})

	t.Run("subscription expiring exactly now still counts", func(t *testing.T) {
		users := new(UserRepoMock)
		plans := new(PlanRepoMock)
		devices := new(DeviceCounterMock)
		till := now
		planID := 5
		users.On("GetUser", mock.Anything, "uid-1").Return(&models.User{
			UID:            "uid-1",
			SubActive:      true,
			SubActiveTill:  &till,
			SubscriptionID: &planID,
		}, nil).Once()
		plans.On("GetPlan", mock.Anything, 5).Return(&models.Plan{ID: 5, MaxDevices: 50}, nil).Once()

		svc := New(users, plans, devices)
		svc.now = func() time.Time { return now }

		max, err := svc.MaxDevicesFor(context.Background(), "uid-1")
		assert.NoError(t, err)
		assert.Equal(t, 50, max)
	})

	t.Run("no active subscription", func(t *testing.T) {
		users := new(UserRepoMock)
		plans := new(PlanRepoMock)
		devices := new(DeviceCounterMock)
		users.On("GetUser", mock.Anything, "uid-1").
			Return(&models.User{UID: "uid-1"}, nil).Once()

		svc := New(users, plans, devices)
		svc.now = func() time.Time { return now }

		_, err := svc.MaxDevicesFor(context.Background(), "uid-1")
		assert.ErrorIs(t, err, models.ErrNoActiveSubscription)
	})
}

func TestService_HasCapacity(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	users := new(UserRepoMock)
	plans := new(PlanRepoMock)
	devices := new(DeviceCounterMock)
	users.On("GetUser", mock.Anything, "uid-1").Return(activeUser(now, 2), nil).Once()
	plans.On("GetPlan", mock.Anything, 2).Return(&models.Plan{ID: 2, MaxDevices: 10}, nil).Once()
	devices.On("CountDevicesByOwner", mock.Anything, "uid-1").Return(9, nil).Once()

	svc := New(users, plans, devices)
	svc.now = func() time.Time { return now }

	ok, err := svc.HasCapacity(context.Background(), "uid-1")
	assert.NoError(t, err)
	assert.True(t, ok)
}
