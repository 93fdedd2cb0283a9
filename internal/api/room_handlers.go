package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"paras/internal/models"
)

func (s *Server) handleListRooms(w http.ResponseWriter, r *http.Request) {
	sess, _ := sessionFromContext(r.Context())
	rooms, err := s.rooms.List(r.Context(), sess)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"rooms": rooms})
}

func (s *Server) handleGetRoom(w http.ResponseWriter, r *http.Request) {
	sess, _ := sessionFromContext(r.Context())
	room, err := s.rooms.Get(r.Context(), sess, r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, room)
}

func (s *Server) handleCreateRoom(w http.ResponseWriter, r *http.Request) {
	var req models.CreateRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Code) == "" || strings.TrimSpace(req.Name) == "" {
		writeError(w, http.StatusBadRequest, "code and name are required")
		return
	}

	sess, _ := sessionFromContext(r.Context())
	room, err := s.rooms.Create(r.Context(), sess, req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, room)
}

func (s *Server) handleUpdateRoom(w http.ResponseWriter, r *http.Request) {
	var req models.UpdateRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	sess, _ := sessionFromContext(r.Context())
	room, err := s.rooms.Update(r.Context(), sess, r.PathValue("id"), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, room)
}

func (s *Server) handleDeleteRoom(w http.ResponseWriter, r *http.Request) {
	sess, _ := sessionFromContext(r.Context())
	if err := s.rooms.Delete(r.Context(), sess, r.PathValue("id")); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// handleAvailability validates the requested window locally before asking the
// backend; a bad window never leaves the gateway.
func (s *Server) handleAvailability(w http.ResponseWriter, r *http.Request) {
	start := strings.TrimSpace(r.URL.Query().Get("start"))
	end := strings.TrimSpace(r.URL.Query().Get("end"))
	if start == "" || end == "" {
		writeError(w, http.StatusBadRequest, "start and end are required")
		return
	}

	sess, _ := sessionFromContext(r.Context())
	rooms, err := s.bookings.SearchAvailability(r.Context(), sess, start, end)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"rooms": rooms})
}
