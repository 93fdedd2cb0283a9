package service

import (
	"context"
	"testing"

	"paras/internal/domain"
	"paras/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newRoomService(api *mockAPI) *RoomService {
	logger := zerolog.Nop()
	bind := func(token string) domain.API { return api }
	return NewRoomService(bind, &logger)
}

func TestRoomMutationsRequireAdmin(t *testing.T) {
	api := new(mockAPI)
	svc := newRoomService(api)
	sess := userSession()
	ctx := context.Background()

	_, err := svc.Create(ctx, sess, models.CreateRoomRequest{Code: "TC-101"})
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = svc.Update(ctx, sess, "r1", models.UpdateRoomRequest{})
	assert.ErrorIs(t, err, ErrForbidden)

	err = svc.Delete(ctx, sess, "r1")
	assert.ErrorIs(t, err, ErrForbidden)

	api.AssertNotCalled(t, "CreateRoom", mock.Anything, mock.Anything)
	api.AssertNotCalled(t, "UpdateRoom", mock.Anything, mock.Anything, mock.Anything)
	api.AssertNotCalled(t, "DeleteRoom", mock.Anything, mock.Anything)
}

func TestRoomCRUDAsAdmin(t *testing.T) {
	api := new(mockAPI)
	svc := newRoomService(api)
	sess := adminSession()
	ctx := context.Background()

	created := &models.Room{ID: "r1", Code: "TC-101", Name: "Lecture Hall"}
	api.On("CreateRoom", mock.Anything, mock.Anything).Return(created, nil)
	api.On("UpdateRoom", mock.Anything, "r1", mock.Anything).Return(created, nil)
	api.On("DeleteRoom", mock.Anything, "r1").Return(nil)

	room, err := svc.Create(ctx, sess, models.CreateRoomRequest{Code: "TC-101", Name: "Lecture Hall"})
	require.NoError(t, err)
	assert.Equal(t, "TC-101", room.Code)

	_, err = svc.Update(ctx, sess, "r1", models.UpdateRoomRequest{})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, sess, "r1"))
}

func TestRoomListIsOpenToEveryone(t *testing.T) {
	api := new(mockAPI)
	svc := newRoomService(api)

	api.On("ListRooms", mock.Anything).Return([]models.Room{{ID: "r1"}}, nil)

	rooms, err := svc.List(context.Background(), userSession())
	require.NoError(t, err)
	assert.Len(t, rooms, 1)
}
