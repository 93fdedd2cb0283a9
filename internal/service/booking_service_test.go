package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"paras/internal/booking"
	"paras/internal/domain"
	"paras/internal/models"
	"paras/internal/paras"
	"paras/internal/session"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockAPI struct {
	mock.Mock
}

func (m *mockAPI) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.LoginResponse), args.Error(1)
}
func (m *mockAPI) Me(ctx context.Context) (*models.Profile, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Profile), args.Error(1)
}
func (m *mockAPI) ListRooms(ctx context.Context) ([]models.Room, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Room), args.Error(1)
}
func (m *mockAPI) GetRoom(ctx context.Context, id string) (*models.Room, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Room), args.Error(1)
}
func (m *mockAPI) CreateRoom(ctx context.Context, req models.CreateRoomRequest) (*models.Room, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Room), args.Error(1)
}
func (m *mockAPI) UpdateRoom(ctx context.Context, id string, req models.UpdateRoomRequest) (*models.Room, error) {
	args := m.Called(ctx, id, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Room), args.Error(1)
}
func (m *mockAPI) DeleteRoom(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}
func (m *mockAPI) AvailableRooms(ctx context.Context, start, end models.CivilTime) ([]models.RoomAvailability, error) {
	args := m.Called(ctx, start, end)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.RoomAvailability), args.Error(1)
}
func (m *mockAPI) ListLoans(ctx context.Context) ([]models.Loan, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Loan), args.Error(1)
}
func (m *mockAPI) GetLoan(ctx context.Context, id string) (*models.Loan, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Loan), args.Error(1)
}
func (m *mockAPI) CreateLoan(ctx context.Context, req models.CreateLoanRequest) (*models.Loan, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Loan), args.Error(1)
}
func (m *mockAPI) CancelLoan(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}
func (m *mockAPI) ChangeLoanStatus(ctx context.Context, id string, req models.ChangeLoanStatusRequest) (*models.StatusChangeResult, error) {
	args := m.Called(ctx, id, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.StatusChangeResult), args.Error(1)
}
func (m *mockAPI) LoanHistory(ctx context.Context, id string) ([]models.LoanStatusEvent, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.LoanStatusEvent), args.Error(1)
}

var testClock = func() time.Time {
	return time.Date(2026, 3, 10, 9, 0, 0, 0, time.Local)
}

func newBookingService(api *mockAPI) *BookingService {
	logger := zerolog.Nop()
	bind := func(token string) domain.API { return api }
	return NewBookingService(bind, nil, nil, booking.DefaultRules(), &logger).WithClock(testClock)
}

func userSession() *session.Session {
	return &session.Session{
		ID:    "s1",
		Token: "tok",
		Profile: &models.Profile{
			UserID: "u1",
			NRP:    "5025211001",
			Roles:  []string{models.RoleUser},
		},
	}
}

func adminSession() *session.Session {
	return &session.Session{
		ID:    "s2",
		Token: "admintok",
		Profile: &models.Profile{
			UserID: "u2",
			NRP:    "1990010101",
			Roles:  []string{models.RoleAdmin},
		},
	}
}

func TestSearchAvailabilityRejectsBadWindowBeforeAnyRequest(t *testing.T) {
	api := new(mockAPI)
	svc := newBookingService(api)

	_, err := svc.SearchAvailability(context.Background(), userSession(), "2026-03-10T12:00", "2026-03-10T10:00")

	var ve *paras.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Violations, "StartTime must be earlier than EndTime.")
	api.AssertNotCalled(t, "AvailableRooms", mock.Anything, mock.Anything, mock.Anything)
}

func TestSearchAvailabilityFiltersInactiveRooms(t *testing.T) {
	api := new(mockAPI)
	svc := newBookingService(api)

	available := []models.RoomAvailability{{ID: "r1"}, {ID: "r2"}}
	api.On("AvailableRooms", mock.Anything, mock.Anything, mock.Anything).Return(available, nil)
	api.On("ListRooms", mock.Anything).Return([]models.Room{
		{ID: "r1", IsActive: true},
		{ID: "r2", IsActive: false},
	}, nil)

	rooms, err := svc.SearchAvailability(context.Background(), userSession(), "2026-03-10T10:00", "2026-03-10T12:00")
	require.NoError(t, err)
	require.Len(t, rooms, 1)
	assert.Equal(t, "r1", rooms[0].ID)
}

func TestSearchAvailabilityServesUnfilteredWhenRoomListingFails(t *testing.T) {
	api := new(mockAPI)
	svc := newBookingService(api)

	available := []models.RoomAvailability{{ID: "r1"}, {ID: "r2"}}
	api.On("AvailableRooms", mock.Anything, mock.Anything, mock.Anything).Return(available, nil)
	api.On("ListRooms", mock.Anything).Return(nil, errors.New("boom"))

	rooms, err := svc.SearchAvailability(context.Background(), userSession(), "2026-03-10T10:00", "2026-03-10T12:00")
	require.NoError(t, err)
	assert.Len(t, rooms, 2)
}

func TestCreateLoanTrimsNotes(t *testing.T) {
	api := new(mockAPI)
	svc := newBookingService(api)

	api.On("CreateLoan", mock.Anything, mock.MatchedBy(func(req models.CreateLoanRequest) bool {
		return req.RoomID == "r1" && req.Notes != nil && *req.Notes == "study group"
	})).Return(&models.Loan{ID: "l1", Status: models.StatusPending}, nil)

	loan, err := svc.CreateLoan(context.Background(), userSession(), "r1", "2026-03-10T10:00", "2026-03-10T12:00", "  study group  ")
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, loan.Status)
}

func TestCreateLoanOmitsEmptyNotes(t *testing.T) {
	api := new(mockAPI)
	svc := newBookingService(api)

	api.On("CreateLoan", mock.Anything, mock.MatchedBy(func(req models.CreateLoanRequest) bool {
		return req.Notes == nil
	})).Return(&models.Loan{ID: "l1"}, nil)

	_, err := svc.CreateLoan(context.Background(), userSession(), "r1", "2026-03-10T10:00", "2026-03-10T12:00", "   ")
	require.NoError(t, err)
}

func TestCreateLoanRejectsBadWindow(t *testing.T) {
	api := new(mockAPI)
	svc := newBookingService(api)

	_, err := svc.CreateLoan(context.Background(), userSession(), "r1", "2026-03-10T10:00", "2026-03-10T15:00", "")

	var ve *paras.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Violations, "Maximum duration is 240 minutes.")
	api.AssertNotCalled(t, "CreateLoan", mock.Anything, mock.Anything)
}

func TestLoansMapsStaleTokenToSessionInvalid(t *testing.T) {
	api := new(mockAPI)
	svc := newBookingService(api)

	api.On("ListLoans", mock.Anything).Return(nil, &paras.HTTPError{Status: 401})

	_, err := svc.Loans(context.Background(), userSession())
	assert.ErrorIs(t, err, ErrSessionInvalid)
}

func TestCancelOwnPendingLoan(t *testing.T) {
	api := new(mockAPI)
	svc := newBookingService(api)
	sess := userSession()

	pending := &models.Loan{ID: "l1", NRP: sess.NRP(), Status: models.StatusPending}
	cancelled := &models.Loan{ID: "l1", NRP: sess.NRP(), Status: models.StatusCancelled}
	api.On("GetLoan", mock.Anything, "l1").Return(pending, nil).Once()
	api.On("CancelLoan", mock.Anything, "l1").Return(nil)
	api.On("GetLoan", mock.Anything, "l1").Return(cancelled, nil).Once()

	loan, err := svc.Cancel(context.Background(), sess, "l1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, loan.Status)
}

func TestCancelApprovedLoanIsAllowed(t *testing.T) {
	api := new(mockAPI)
	svc := newBookingService(api)
	sess := userSession()

	approved := &models.Loan{ID: "l1", NRP: sess.NRP(), Status: models.StatusApproved}
	api.On("GetLoan", mock.Anything, "l1").Return(approved, nil)
	api.On("CancelLoan", mock.Anything, "l1").Return(nil)

	_, err := svc.Cancel(context.Background(), sess, "l1")
	require.NoError(t, err)
}

func TestCancelRejectedLoanIsNotAllowed(t *testing.T) {
	api := new(mockAPI)
	svc := newBookingService(api)

	rejected := &models.Loan{ID: "l1", Status: models.StatusRejected}
	api.On("GetLoan", mock.Anything, "l1").Return(rejected, nil)

	_, err := svc.Cancel(context.Background(), userSession(), "l1")
	assert.ErrorIs(t, err, ErrTransitionNotAllowed)
	api.AssertNotCalled(t, "CancelLoan", mock.Anything, mock.Anything)
}

func TestCancelSomeoneElsesLoanRequiresAdmin(t *testing.T) {
	api := new(mockAPI)
	svc := newBookingService(api)

	other := &models.Loan{ID: "l1", NRP: "9999999999", Status: models.StatusPending}
	api.On("GetLoan", mock.Anything, "l1").Return(other, nil)

	_, err := svc.Cancel(context.Background(), userSession(), "l1")
	assert.ErrorIs(t, err, ErrForbidden)

	// The admin may cancel any loan.
	api2 := new(mockAPI)
	svc2 := newBookingService(api2)
	api2.On("GetLoan", mock.Anything, "l1").Return(other, nil)
	api2.On("CancelLoan", mock.Anything, "l1").Return(nil)

	_, err = svc2.Cancel(context.Background(), adminSession(), "l1")
	require.NoError(t, err)
}

func TestChangeStatusRequiresAdmin(t *testing.T) {
	api := new(mockAPI)
	svc := newBookingService(api)

	_, err := svc.ChangeStatus(context.Background(), userSession(), "l1", models.ActionApprove, "")
	assert.ErrorIs(t, err, ErrForbidden)
	api.AssertNotCalled(t, "ChangeLoanStatus", mock.Anything, mock.Anything, mock.Anything)
}

func TestChangeStatusRejectsCancelAction(t *testing.T) {
	api := new(mockAPI)
	svc := newBookingService(api)

	_, err := svc.ChangeStatus(context.Background(), adminSession(), "l1", models.ActionCancel, "")
	assert.ErrorIs(t, err, ErrTransitionNotAllowed)
}

func TestChangeStatusApprovesPendingLoan(t *testing.T) {
	api := new(mockAPI)
	svc := newBookingService(api)

	pending := &models.Loan{ID: "l1", Status: models.StatusPending}
	approved := &models.Loan{ID: "l1", Status: models.StatusApproved}
	api.On("GetLoan", mock.Anything, "l1").Return(pending, nil).Once()
	api.On("ChangeLoanStatus", mock.Anything, "l1", mock.MatchedBy(func(req models.ChangeLoanStatusRequest) bool {
		return req.ToStatus == models.StatusApproved && req.Comment != nil && *req.Comment == "room free"
	})).Return(&models.StatusChangeResult{LoanID: "l1", FromStatus: models.StatusPending, ToStatus: models.StatusApproved}, nil)
	api.On("GetLoan", mock.Anything, "l1").Return(approved, nil).Once()

	result, err := svc.ChangeStatus(context.Background(), adminSession(), "l1", models.ActionApprove, "room free")
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, result.ToStatus)
}

func TestChangeStatusRefusesIllegalTransition(t *testing.T) {
	api := new(mockAPI)
	svc := newBookingService(api)

	approved := &models.Loan{ID: "l1", Status: models.StatusApproved}
	api.On("GetLoan", mock.Anything, "l1").Return(approved, nil)

	_, err := svc.ChangeStatus(context.Background(), adminSession(), "l1", models.ActionApprove, "")
	assert.ErrorIs(t, err, ErrTransitionNotAllowed)
	api.AssertNotCalled(t, "ChangeLoanStatus", mock.Anything, mock.Anything, mock.Anything)
}
