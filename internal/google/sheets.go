// Package google mirrors loan snapshots into a Google Sheets spreadsheet for
// campus staff who live in spreadsheets rather than the web UI.
package google

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"paras/internal/models"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

const (
	loansSheet   = "Loans"
	loansIDRange = loansSheet + "!A:A"
)

var errRowNotFound = errors.New("row not found")

type SheetsService struct {
	service       *sheets.Service
	spreadsheetID string

	rowCache map[string]int
	cacheMu  sync.RWMutex
}

func NewSheetsService(ctx context.Context, credentialsFile, spreadsheetID string) (*SheetsService, error) {
	credentialsJSON, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("read credentials file: %w", err)
	}

	jwtConfig, err := google.JWTConfigFromJSON(credentialsJSON, sheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("parse credentials: %w", err)
	}

	srv, err := sheets.NewService(ctx, option.WithHTTPClient(jwtConfig.Client(ctx)))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	return &SheetsService{
		service:       srv,
		spreadsheetID: spreadsheetID,
		rowCache:      make(map[string]int),
	}, nil
}

// TestConnection verifies the spreadsheet is reachable with the configured
// credentials.
func (s *SheetsService) TestConnection(ctx context.Context) error {
	_, err := s.service.Spreadsheets.Get(s.spreadsheetID).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("spreadsheet unreachable: %w", err)
	}
	return nil
}

// UpsertLoan updates the loan's row or appends a new one when the loan has
// not been mirrored yet.
func (s *SheetsService) UpsertLoan(ctx context.Context, loan *models.Loan) error {
	rowIdx, err := s.findLoanRow(ctx, loan.ID)
	if err != nil {
		if errors.Is(err, errRowNotFound) {
			return s.appendLoan(ctx, loan)
		}
		return err
	}

	rangeData := fmt.Sprintf("%s!A%d:J%d", loansSheet, rowIdx, rowIdx)
	values := &sheets.ValueRange{Values: [][]interface{}{loanRowValues(loan)}}
	_, err = s.service.Spreadsheets.Values.Update(s.spreadsheetID, rangeData, values).
		ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("update loan row: %w", err)
	}
	return nil
}

func (s *SheetsService) appendLoan(ctx context.Context, loan *models.Loan) error {
	values := &sheets.ValueRange{Values: [][]interface{}{loanRowValues(loan)}}
	resp, err := s.service.Spreadsheets.Values.Append(s.spreadsheetID, loansIDRange, values).
		ValueInputOption("RAW").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("append loan row: %w", err)
	}

	if resp.Updates != nil && resp.Updates.UpdatedRange != "" {
		if row, ok := rowFromRange(resp.Updates.UpdatedRange); ok {
			s.setCachedRow(loan.ID, row)
		}
	}
	return nil
}

// findLoanRow locates the 1-based row of a loan id in column A, consulting
// the cache first.
func (s *SheetsService) findLoanRow(ctx context.Context, loanID string) (int, error) {
	if row, ok := s.getCachedRow(loanID); ok {
		return row, nil
	}

	resp, err := s.service.Spreadsheets.Values.Get(s.spreadsheetID, loansIDRange).Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("scan loan column: %w", err)
	}

	for i, row := range resp.Values {
		if len(row) == 0 {
			continue
		}
		id, ok := row[0].(string)
		if !ok {
			continue
		}
		s.setCachedRow(id, i+1)
		if id == loanID {
			return i + 1, nil
		}
	}
	return 0, errRowNotFound
}

func (s *SheetsService) getCachedRow(id string) (int, bool) {
	s.cacheMu.RLock()
	defer s.cacheMu.RUnlock()
	row, ok := s.rowCache[id]
	return row, ok
}

func (s *SheetsService) setCachedRow(id string, row int) {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	s.rowCache[id] = row
}

func loanRowValues(loan *models.Loan) []interface{} {
	notes := ""
	if loan.Notes != nil {
		notes = *loan.Notes
	}
	return []interface{}{
		loan.ID,
		loan.RoomCode,
		loan.RoomName,
		loan.RequesterName,
		loan.NRP,
		loan.StartTime.String(),
		loan.EndTime.String(),
		loan.Status.String(),
		notes,
		loan.UpdatedAt.String(),
	}
}

// rowFromRange extracts the row number from a range like "Loans!A42:J42".
func rowFromRange(updatedRange string) (int, bool) {
	idx := strings.IndexByte(updatedRange, '!')
	if idx < 0 {
		return 0, false
	}
	cell := updatedRange[idx+1:]
	var row int
	for _, r := range cell {
		if r >= '0' && r <= '9' {
			row = row*10 + int(r-'0')
		} else if row > 0 {
			break
		}
	}
	return row, row > 0
}
