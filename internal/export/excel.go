// Package export writes loan listings to Excel workbooks.
package export

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"paras/internal/models"

	"github.com/xuri/excelize/v2"
)

const sheetName = "Loans"

var headers = []string{
	"Loan ID", "Room Code", "Room Name", "Requester", "NRP",
	"Start", "End", "Status", "Notes", "Created At",
}

// LoansToFile writes the loans into a timestamped workbook under dir and
// returns the file path.
func LoansToFile(loans []models.Loan, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create export directory: %w", err)
	}

	f, err := loansWorkbook(loans)
	if err != nil {
		return "", err
	}
	defer f.Close()

	path := filepath.Join(dir, fmt.Sprintf("loans_%s.xlsx", time.Now().Format("20060102_150405")))
	if err := f.SaveAs(path); err != nil {
		return "", fmt.Errorf("save workbook: %w", err)
	}
	return path, nil
}

// LoansToBytes renders the workbook in memory, for the gateway's export
// endpoint.
func LoansToBytes(loans []models.Loan) ([]byte, error) {
	f, err := loansWorkbook(loans)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("render workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func loansWorkbook(loans []models.Loan) (*excelize.File, error) {
	f := excelize.NewFile()

	index, err := f.NewSheet(sheetName)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	_ = f.DeleteSheet("Sheet1")

	for col, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		_ = f.SetCellValue(sheetName, cell, header)
	}

	for row, loan := range loans {
		values := []interface{}{
			loan.ID, loan.RoomCode, loan.RoomName, loan.RequesterName, loan.NRP,
			loan.StartTime.String(), loan.EndTime.String(), loan.Status.String(),
			stringOrDash(loan.Notes), loan.CreatedAt.String(),
		}
		for col, value := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			_ = f.SetCellValue(sheetName, cell, value)
		}
	}

	_ = f.SetColWidth(sheetName, "A", "A", 38)
	_ = f.SetColWidth(sheetName, "B", "E", 18)
	_ = f.SetColWidth(sheetName, "F", "G", 20)
	_ = f.SetColWidth(sheetName, "H", "J", 16)

	return f, nil
}

func stringOrDash(s *string) string {
	if s == nil || *s == "" {
		return "-"
	}
	return *s
}
