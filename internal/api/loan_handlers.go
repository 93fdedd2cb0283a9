package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"paras/internal/export"
	"paras/internal/models"
)

func (s *Server) handleListLoans(w http.ResponseWriter, r *http.Request) {
	sess, _ := sessionFromContext(r.Context())
	loans, err := s.bookings.Loans(r.Context(), sess)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"loans": loans})
}

func (s *Server) handleGetLoan(w http.ResponseWriter, r *http.Request) {
	sess, _ := sessionFromContext(r.Context())
	loan, err := s.bookings.Loan(r.Context(), sess, r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	// Advertise the actions legal from here so clients render the right
	// buttons without duplicating the transition table.
	writeJSON(w, http.StatusOK, map[string]any{
		"loan":    loan,
		"actions": models.ActionsFor(loan.Status, sess.IsAdmin()),
	})
}

type createLoanBody struct {
	RoomID    string `json:"roomId"`
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
	Notes     string `json:"notes"`
}

func (s *Server) handleCreateLoan(w http.ResponseWriter, r *http.Request) {
	var body createLoanBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if body.RoomID == "" {
		writeError(w, http.StatusBadRequest, "roomId is required")
		return
	}

	sess, _ := sessionFromContext(r.Context())
	loan, err := s.bookings.CreateLoan(r.Context(), sess, body.RoomID, body.StartTime, body.EndTime, body.Notes)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, loan)
}

func (s *Server) handleCancelLoan(w http.ResponseWriter, r *http.Request) {
	sess, _ := sessionFromContext(r.Context())
	loan, err := s.bookings.Cancel(r.Context(), sess, r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, loan)
}

type changeStatusBody struct {
	Action  string `json:"action"`
	Comment string `json:"comment"`
}

func (s *Server) handleChangeLoanStatus(w http.ResponseWriter, r *http.Request) {
	var body changeStatusBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	action := models.LoanAction(body.Action)
	if action != models.ActionApprove && action != models.ActionReject {
		writeError(w, http.StatusBadRequest, "action must be approve or reject")
		return
	}

	sess, _ := sessionFromContext(r.Context())
	result, err := s.bookings.ChangeStatus(r.Context(), sess, r.PathValue("id"), action, body.Comment)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleLoanHistory(w http.ResponseWriter, r *http.Request) {
	sess, _ := sessionFromContext(r.Context())
	history, err := s.bookings.History(r.Context(), sess, r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"history": history})
}

// handleExportLoans streams the current loan list as an Excel workbook.
func (s *Server) handleExportLoans(w http.ResponseWriter, r *http.Request) {
	sess, _ := sessionFromContext(r.Context())
	loans, err := s.bookings.Loans(r.Context(), sess)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	data, err := export.LoansToBytes(loans)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "export failed")
		return
	}

	filename := fmt.Sprintf("loans_%s.xlsx", time.Now().Format("20060102_150405"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
