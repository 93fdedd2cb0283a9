package export

import (
	"bytes"
	"testing"
	"time"

	"paras/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func sampleLoans() []models.Loan {
	notes := "study group"
	return []models.Loan{
		{
			ID:            "l1",
			RoomCode:      "TC-101",
			RoomName:      "Lecture Hall",
			RequesterName: "Siti Rahma",
			NRP:           "5025211001",
			StartTime:     models.NewCivilTime(time.Date(2026, 3, 10, 10, 0, 0, 0, time.Local)),
			EndTime:       models.NewCivilTime(time.Date(2026, 3, 10, 12, 0, 0, 0, time.Local)),
			Status:        models.StatusApproved,
			Notes:         &notes,
		},
		{
			ID:       "l2",
			RoomCode: "TC-102",
			Status:   models.StatusPending,
		},
	}
}

func TestLoansToBytesProducesReadableWorkbook(t *testing.T) {
	data, err := LoansToBytes(sampleLoans())
	require.NoError(t, err)
	require.NotEmpty(t, data)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Loans")
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, "Loan ID", rows[0][0])
	assert.Equal(t, "l1", rows[1][0])
	assert.Equal(t, "TC-101", rows[1][1])
	assert.Equal(t, "approved", rows[1][7])
	assert.Equal(t, "study group", rows[1][8])

	// Missing notes render as a dash.
	assert.Equal(t, "-", rows[2][8])
}

func TestLoansToFileWritesTimestampedWorkbook(t *testing.T) {
	dir := t.TempDir()

	path, err := LoansToFile(sampleLoans(), dir)
	require.NoError(t, err)
	assert.Contains(t, path, dir)
	assert.Contains(t, path, "loans_")

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Loans")
	require.NoError(t, err)
	assert.Len(t, rows, 3)
}

func TestEmptyExportStillHasHeader(t *testing.T) {
	data, err := LoansToBytes(nil)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Loans")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Loan ID", rows[0][0])
}
