package domain

import (
	"context"

	"paras/internal/models"
)

// API is the remote PARAS REST surface this process consumes.
type API interface {
	Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error)
	Me(ctx context.Context) (*models.Profile, error)

	ListRooms(ctx context.Context) ([]models.Room, error)
	GetRoom(ctx context.Context, id string) (*models.Room, error)
	CreateRoom(ctx context.Context, req models.CreateRoomRequest) (*models.Room, error)
	UpdateRoom(ctx context.Context, id string, req models.UpdateRoomRequest) (*models.Room, error)
	DeleteRoom(ctx context.Context, id string) error
	AvailableRooms(ctx context.Context, start, end models.CivilTime) ([]models.RoomAvailability, error)

	ListLoans(ctx context.Context) ([]models.Loan, error)
	GetLoan(ctx context.Context, id string) (*models.Loan, error)
	CreateLoan(ctx context.Context, req models.CreateLoanRequest) (*models.Loan, error)
	CancelLoan(ctx context.Context, id string) error
	ChangeLoanStatus(ctx context.Context, id string, req models.ChangeLoanStatusRequest) (*models.StatusChangeResult, error)
	LoanHistory(ctx context.Context, id string) ([]models.LoanStatusEvent, error)
}

// APIBinder yields the API surface bound to a bearer token. The empty token
// binds the anonymous surface (login and status endpoints only).
type APIBinder func(token string) API

// SessionStore persists session records. Get returns (nil, nil) for a missing
// record.
type SessionStore interface {
	Get(ctx context.Context, id string) (*models.SessionRecord, error)
	Put(ctx context.Context, record *models.SessionRecord) error
	Delete(ctx context.Context, id string) error
}

// EventPublisher fans loan lifecycle events out to in-process subscribers.
type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}

// MirrorEnqueuer schedules a loan snapshot for the spreadsheet mirror.
type MirrorEnqueuer interface {
	EnqueueLoan(ctx context.Context, loan *models.Loan) error
}

// SheetsWriter applies loan snapshots to the mirror spreadsheet.
type SheetsWriter interface {
	UpsertLoan(ctx context.Context, loan *models.Loan) error
}
