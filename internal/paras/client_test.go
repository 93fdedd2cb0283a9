package paras

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"paras/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithTokenSendsBearerHeader(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewEncoder(w).Encode(models.Profile{NRP: "5025211001", Roles: []string{"User"}})
	}))
	defer server.Close()

	client := NewClient(server.URL, time.Second)

	_, err := client.WithToken("abc123").Me(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Bearer abc123", gotAuth)

	// The base client stays anonymous; WithToken is a copy.
	_, err = client.Me(context.Background())
	require.NoError(t, err)
	assert.Empty(t, gotAuth)
}

func TestLoginPostsPascalCaseBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/auth/login", r.URL.Path)

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "5025211001", body["Nrp"])
		assert.Equal(t, "pw", body["Password"])

		_ = json.NewEncoder(w).Encode(models.LoginResponse{AccessToken: "tok", NRP: body["Nrp"]})
	}))
	defer server.Close()

	client := NewClient(server.URL, time.Second)
	res, err := client.Login(context.Background(), models.LoginRequest{NRP: "5025211001", Password: "pw"})
	require.NoError(t, err)
	assert.Equal(t, "tok", res.AccessToken)
}

func TestAvailableRoomsSendsCivilBoundaries(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/rooms/available", r.URL.Path)
		// Zone-less, seconds precision, no offset suffix.
		assert.Equal(t, "2026-03-10T10:00:00", r.URL.Query().Get("start"))
		assert.Equal(t, "2026-03-10T12:00:00", r.URL.Query().Get("end"))
		_ = json.NewEncoder(w).Encode([]models.RoomAvailability{{ID: "r1"}})
	}))
	defer server.Close()

	client := NewClient(server.URL, time.Second)
	start := models.NewCivilTime(time.Date(2026, 3, 10, 10, 0, 0, 0, time.Local))
	end := models.NewCivilTime(time.Date(2026, 3, 10, 12, 0, 0, 0, time.Local))

	rooms, err := client.AvailableRooms(context.Background(), start, end)
	require.NoError(t, err)
	require.Len(t, rooms, 1)
	assert.Equal(t, "r1", rooms[0].ID)
}

func TestHTTPErrorMessageLadder(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{"problem detail", 409, `{"detail":"Room already booked."}`, "Room already booked."},
		{"problem title", 400, `{"title":"Bad Request"}`, "Bad Request"},
		{"bare json string", 422, `"StartTime must be earlier than EndTime."`, "StartTime must be earlier than EndTime."},
		{"raw body", 500, `boom`, "boom"},
		{"empty body", 503, ``, "request failed (HTTP 503)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			client := NewClient(server.URL, time.Second)
			_, err := client.ListLoans(context.Background())
			require.Error(t, err)

			he, ok := AsHTTPError(err)
			require.True(t, ok)
			assert.Equal(t, tt.status, he.Status)
			assert.Equal(t, tt.want, he.Message())
		})
	}
}

func TestHTTPErrorIsAuth(t *testing.T) {
	assert.True(t, (&HTTPError{Status: 401}).IsAuth())
	assert.True(t, (&HTTPError{Status: 403}).IsAuth())
	assert.False(t, (&HTTPError{Status: 404}).IsAuth())
}

func TestListRoomsReadThroughCache(t *testing.T) {
	hits := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		_ = json.NewEncoder(w).Encode([]models.Room{{ID: "r1", Code: "TC-101"}})
	}))
	defer server.Close()

	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	client := NewClient(server.URL, time.Second)
	client.UseRedisCache(redisClient, time.Minute)
	ctx := context.Background()

	rooms, err := client.ListRooms(ctx)
	require.NoError(t, err)
	require.Len(t, rooms, 1)
	assert.Equal(t, 1, hits)

	// Second listing is served from Redis.
	rooms, err = client.ListRooms(ctx)
	require.NoError(t, err)
	require.Len(t, rooms, 1)
	assert.Equal(t, 1, hits)
	assert.True(t, mr.Exists("paras:rooms"))
}

func TestRoomMutationInvalidatesCache(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			_ = json.NewEncoder(w).Encode([]models.Room{{ID: "r1"}})
		case http.MethodPost:
			_ = json.NewEncoder(w).Encode(models.Room{ID: "r2"})
		}
	}))
	defer server.Close()

	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	client := NewClient(server.URL, time.Second)
	client.UseRedisCache(redisClient, time.Minute)
	ctx := context.Background()

	_, err := client.ListRooms(ctx)
	require.NoError(t, err)
	require.True(t, mr.Exists("paras:rooms"))

	_, err = client.WithToken("admin").CreateRoom(ctx, models.CreateRoomRequest{Code: "TC-102", Name: "Lab"})
	require.NoError(t, err)
	assert.False(t, mr.Exists("paras:rooms"))
}

func TestCancelLoanUsesDelete(t *testing.T) {
	var gotMethod, gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	client := NewClient(server.URL, time.Second)
	require.NoError(t, client.CancelLoan(context.Background(), "l1"))
	assert.Equal(t, http.MethodDelete, gotMethod)
	assert.Equal(t, "/loans/l1", gotPath)
}

func TestChangeLoanStatusPatchesStatusEndpoint(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPatch, r.Method)
		require.Equal(t, "/loans/l1/status", r.URL.Path)

		var body models.ChangeLoanStatusRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, models.StatusApproved, body.ToStatus)

		_ = json.NewEncoder(w).Encode(models.StatusChangeResult{
			LoanID:     "l1",
			FromStatus: models.StatusPending,
			ToStatus:   body.ToStatus,
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, time.Second)
	result, err := client.ChangeLoanStatus(context.Background(), "l1", models.ChangeLoanStatusRequest{ToStatus: models.StatusApproved})
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, result.ToStatus)
}

func TestDBPing(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/db-ping", r.URL.Path)
		_, _ = w.Write([]byte(`{"canConnect":true}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, time.Second)
	ok, err := client.DBPing(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
}
