package service

import (
	"context"
	"fmt"

	"paras/internal/domain"
	"paras/internal/metrics"
	"paras/internal/models"
	"paras/internal/session"

	"github.com/rs/zerolog"
)

// RoomService wraps the room resource. Mutations are gated on the Admin role
// before any request is attempted; the backend enforces the same rule.
type RoomService struct {
	bind   domain.APIBinder
	logger *zerolog.Logger
}

func NewRoomService(bind domain.APIBinder, logger *zerolog.Logger) *RoomService {
	return &RoomService{bind: bind, logger: logger}
}

func (s *RoomService) List(ctx context.Context, sess *session.Session) ([]models.Room, error) {
	rooms, err := s.bind(sess.Token).ListRooms(ctx)
	if err != nil {
		metrics.IncUpstream("list_rooms", "error")
		return nil, err
	}
	metrics.IncUpstream("list_rooms", "ok")
	return rooms, nil
}

func (s *RoomService) Get(ctx context.Context, sess *session.Session, id string) (*models.Room, error) {
	return s.bind(sess.Token).GetRoom(ctx, id)
}

func (s *RoomService) Create(ctx context.Context, sess *session.Session, req models.CreateRoomRequest) (*models.Room, error) {
	if err := s.requireAdmin(sess); err != nil {
		return nil, err
	}
	room, err := s.bind(sess.Token).CreateRoom(ctx, req)
	if err != nil {
		metrics.IncUpstream("create_room", "error")
		return nil, err
	}
	metrics.IncUpstream("create_room", "ok")
	s.logger.Info().Str("code", room.Code).Msg("room created")
	return room, nil
}

func (s *RoomService) Update(ctx context.Context, sess *session.Session, id string, req models.UpdateRoomRequest) (*models.Room, error) {
	if err := s.requireAdmin(sess); err != nil {
		return nil, err
	}
	room, err := s.bind(sess.Token).UpdateRoom(ctx, id, req)
	if err != nil {
		metrics.IncUpstream("update_room", "error")
		return nil, err
	}
	metrics.IncUpstream("update_room", "ok")
	return room, nil
}

func (s *RoomService) Delete(ctx context.Context, sess *session.Session, id string) error {
	if err := s.requireAdmin(sess); err != nil {
		return err
	}
	if err := s.bind(sess.Token).DeleteRoom(ctx, id); err != nil {
		metrics.IncUpstream("delete_room", "error")
		return err
	}
	metrics.IncUpstream("delete_room", "ok")
	return nil
}

func (s *RoomService) requireAdmin(sess *session.Session) error {
	if !sess.IsAdmin() {
		return fmt.Errorf("%w: room management requires the %s role", ErrForbidden, models.RoleAdmin)
	}
	return nil
}
