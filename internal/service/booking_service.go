package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"paras/internal/booking"
	"paras/internal/domain"
	"paras/internal/events"
	"paras/internal/metrics"
	"paras/internal/models"
	"paras/internal/paras"
	"paras/internal/session"

	"github.com/rs/zerolog"
)

var (
	// ErrSessionInvalid signals that the remote API no longer accepts the
	// session's token.
	ErrSessionInvalid = errors.New("session invalid, please log in again")

	// ErrForbidden signals a role/ownership check failed locally; no request
	// was sent upstream.
	ErrForbidden = errors.New("not allowed")

	// ErrTransitionNotAllowed signals the requested action is illegal from
	// the loan's current status.
	ErrTransitionNotAllowed = errors.New("transition not allowed")
)

// BookingService is the loan lifecycle orchestrator: it validates windows
// before any availability or create request leaves the process, consults the
// transition table before any status mutation, and never mutates local state
// optimistically — the loan is re-fetched after the backend confirms.
type BookingService struct {
	bind     domain.APIBinder
	eventBus domain.EventPublisher
	mirror   domain.MirrorEnqueuer
	rules    booking.Rules
	logger   *zerolog.Logger
	now      func() time.Time
}

func NewBookingService(bind domain.APIBinder, eventBus domain.EventPublisher, mirror domain.MirrorEnqueuer, rules booking.Rules, logger *zerolog.Logger) *BookingService {
	return &BookingService{
		bind:     bind,
		eventBus: eventBus,
		mirror:   mirror,
		rules:    rules,
		logger:   logger,
		now:      time.Now,
	}
}

// WithClock overrides the time source, for tests.
func (s *BookingService) WithClock(now func() time.Time) *BookingService {
	s.now = now
	return s
}

// ValidateWindow runs the client-side rules against the current time. Meant
// to be re-invoked on every boundary edit so feedback stays live.
func (s *BookingService) ValidateWindow(startRaw, endRaw string) []string {
	return s.rules.ValidateInput(startRaw, endRaw, s.now())
}

// SearchAvailability validates the window and, when clean, asks the backend
// for free rooms. Rooms known to be inactive are filtered out of the result.
func (s *BookingService) SearchAvailability(ctx context.Context, sess *session.Session, startRaw, endRaw string) ([]models.RoomAvailability, error) {
	if violations := s.ValidateWindow(startRaw, endRaw); len(violations) > 0 {
		metrics.IncValidationFailure()
		return nil, &paras.ValidationError{Violations: violations}
	}

	start, _ := booking.ParseLocal(startRaw)
	end, _ := booking.ParseLocal(endRaw)

	api := s.bind(sess.Token)
	available, err := api.AvailableRooms(ctx, models.NewCivilTime(start), models.NewCivilTime(end))
	if err != nil {
		metrics.IncUpstream("available_rooms", "error")
		return nil, err
	}
	metrics.IncUpstream("available_rooms", "ok")

	return s.filterInactive(ctx, api, available), nil
}

// filterInactive drops rooms whose full record says inactive. A failed room
// listing is not fatal; the availability result is served unfiltered.
func (s *BookingService) filterInactive(ctx context.Context, api domain.API, available []models.RoomAvailability) []models.RoomAvailability {
	rooms, err := api.ListRooms(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("room listing failed, serving availability unfiltered")
		return available
	}

	inactive := make(map[string]bool)
	for _, room := range rooms {
		if !room.IsActive {
			inactive[room.ID] = true
		}
	}

	filtered := make([]models.RoomAvailability, 0, len(available))
	for _, room := range available {
		if !inactive[room.ID] {
			filtered = append(filtered, room)
		}
	}
	return filtered
}

// CreateLoan validates the window and submits the loan. The backend assigns
// Pending; identity comes from the session's token on the backend side.
func (s *BookingService) CreateLoan(ctx context.Context, sess *session.Session, roomID, startRaw, endRaw, notes string) (*models.Loan, error) {
	if violations := s.ValidateWindow(startRaw, endRaw); len(violations) > 0 {
		metrics.IncValidationFailure()
		return nil, &paras.ValidationError{Violations: violations}
	}

	start, _ := booking.ParseLocal(startRaw)
	end, _ := booking.ParseLocal(endRaw)

	req := models.CreateLoanRequest{
		RoomID:    roomID,
		StartTime: models.NewCivilTime(start),
		EndTime:   models.NewCivilTime(end),
	}
	if trimmed := strings.TrimSpace(notes); trimmed != "" {
		req.Notes = &trimmed
	}

	loan, err := s.bind(sess.Token).CreateLoan(ctx, req)
	if err != nil {
		metrics.IncUpstream("create_loan", "error")
		return nil, err
	}
	metrics.IncUpstream("create_loan", "ok")

	s.publish(events.EventLoanCreated, loan, sess.NRP(), "")
	s.enqueueMirror(ctx, loan)
	return loan, nil
}

// Loans lists all loans visible to the session. A 401 here means the token
// went stale, which callers surface as a session problem rather than a
// generic request failure.
func (s *BookingService) Loans(ctx context.Context, sess *session.Session) ([]models.Loan, error) {
	loans, err := s.bind(sess.Token).ListLoans(ctx)
	if err != nil {
		if he, ok := paras.AsHTTPError(err); ok && he.Status == 401 {
			return nil, ErrSessionInvalid
		}
		return nil, err
	}
	return loans, nil
}

func (s *BookingService) Loan(ctx context.Context, sess *session.Session, id string) (*models.Loan, error) {
	return s.bind(sess.Token).GetLoan(ctx, id)
}

// History returns the append-only status audit log, exactly as delivered.
func (s *BookingService) History(ctx context.Context, sess *session.Session, id string) ([]models.LoanStatusEvent, error) {
	return s.bind(sess.Token).LoanHistory(ctx, id)
}

// Cancel requests cancellation. Allowed from Pending and Approved; the
// requester may cancel their own loan, Admin any loan.
func (s *BookingService) Cancel(ctx context.Context, sess *session.Session, id string) (*models.Loan, error) {
	api := s.bind(sess.Token)

	loan, err := api.GetLoan(ctx, id)
	if err != nil {
		return nil, err
	}
	if !models.CanTransition(loan.Status, models.ActionCancel, true) {
		return nil, fmt.Errorf("%w: cannot cancel a %s loan", ErrTransitionNotAllowed, loan.Status)
	}
	if !sess.IsAdmin() && !loan.BelongsTo(sess.NRP()) {
		return nil, fmt.Errorf("%w: loan belongs to another requester", ErrForbidden)
	}

	if err := api.CancelLoan(ctx, id); err != nil {
		metrics.IncUpstream("cancel_loan", "error")
		return nil, err
	}
	metrics.IncUpstream("cancel_loan", "ok")
	metrics.IncTransition(string(models.ActionCancel))

	updated := s.refetch(ctx, api, id, loan)
	s.publish(events.EventLoanCancelled, updated, sess.NRP(), "")
	s.enqueueMirror(ctx, updated)
	return updated, nil
}

// ChangeStatus performs an elevated transition (approve or reject). The
// transition table is consulted before any request leaves the process.
func (s *BookingService) ChangeStatus(ctx context.Context, sess *session.Session, id string, action models.LoanAction, comment string) (*models.StatusChangeResult, error) {
	if action != models.ActionApprove && action != models.ActionReject {
		return nil, fmt.Errorf("%w: unsupported action %q", ErrTransitionNotAllowed, action)
	}
	if !sess.IsAdmin() {
		return nil, fmt.Errorf("%w: %s requires the %s role", ErrForbidden, action, models.RoleAdmin)
	}

	api := s.bind(sess.Token)
	loan, err := api.GetLoan(ctx, id)
	if err != nil {
		return nil, err
	}
	if !models.CanTransition(loan.Status, action, sess.IsAdmin()) {
		return nil, fmt.Errorf("%w: cannot %s a %s loan", ErrTransitionNotAllowed, action, loan.Status)
	}

	req := models.ChangeLoanStatusRequest{ToStatus: action.Target()}
	if trimmed := strings.TrimSpace(comment); trimmed != "" {
		req.Comment = &trimmed
	}

	result, err := api.ChangeLoanStatus(ctx, id, req)
	if err != nil {
		metrics.IncUpstream("change_loan_status", "error")
		return nil, err
	}
	metrics.IncUpstream("change_loan_status", "ok")
	metrics.IncTransition(string(action))

	updated := s.refetch(ctx, api, id, loan)
	s.publish(events.ForAction(action), updated, sess.NRP(), comment)
	s.enqueueMirror(ctx, updated)
	return result, nil
}

// refetch pulls the authoritative loan after a confirmed mutation. On a
// fetch failure the pre-mutation snapshot is used for event payloads; the
// local view is never guessed at.
func (s *BookingService) refetch(ctx context.Context, api domain.API, id string, previous *models.Loan) *models.Loan {
	updated, err := api.GetLoan(ctx, id)
	if err != nil {
		s.logger.Warn().Err(err).Str("loan_id", id).Msg("refetch after mutation failed")
		return previous
	}
	return updated
}

func (s *BookingService) publish(eventType string, loan *models.Loan, changedBy, comment string) {
	if s.eventBus == nil || eventType == "" {
		return
	}
	payload := events.PayloadFromLoan(loan, changedBy, comment)
	if err := s.eventBus.PublishJSON(eventType, payload); err != nil {
		s.logger.Warn().Err(err).Str("event", eventType).Msg("publish event failed")
	}
}

func (s *BookingService) enqueueMirror(ctx context.Context, loan *models.Loan) {
	if s.mirror == nil {
		return
	}
	if err := s.mirror.EnqueueLoan(ctx, loan); err != nil {
		s.logger.Warn().Err(err).Str("loan_id", loan.ID).Msg("enqueue mirror task failed")
	}
}
