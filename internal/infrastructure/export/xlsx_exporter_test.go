package export

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/garyjia/travel-approval/internal/domain/entity"
)

func TestXLSXExporter_Export(t *testing.T) {
	decidedBy := int64(2)
	decidedAt := time.Date(2026, 2, 1, 9, 30, 0, 0, time.UTC)
	cost := decimal.RequireFromString("1500.5")

	requests := []*entity.TravelRequest{
		{
			ID:            1,
			RequesterID:   10,
			TravelerID:    10,
			Origin:        "Riyadh",
			Destination:   "Jeddah",
			DepartureDate: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
			ReturnDate:    time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
			Purpose:       entity.PurposeOther,
			CustomPurpose: "Site survey",
			Status:        entity.StatusSubmitted,
		},
		{
			ID:                     2,
			RequesterID:            11,
			TravelerID:             12,
			Origin:                 "Dubai",
			Destination:            "Riyadh",
			Destinations:           []string{"Riyadh", "Dammam"},
			DepartureDate:          time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC),
			ReturnDate:             time.Date(2026, 4, 3, 0, 0, 0, 0, time.UTC),
			Purpose:                entity.PurposeSales,
			Status:                 entity.StatusOperationsCompleted,
			PMDecidedBy:            &decidedBy,
			PMDecidedAt:            &decidedAt,
			AssignedOperationsTeam: "operations_uae",
			ActualTotalCost:        &cost,
		},
	}

	exporter := NewXLSXExporter(zap.NewNop())
	var buf bytes.Buffer
	require.NoError(t, exporter.Export(context.Background(), &buf, requests))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(sheetName)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, headers, rows[0])

	assert.Equal(t, "1", rows[1][0])
	assert.Equal(t, "other: Site survey", rows[1][8])
	assert.Equal(t, "2026-03-01", rows[1][6])

	assert.Equal(t, "Riyadh → Dammam", rows[2][5])
	assert.Equal(t, "2026-02-01 09:30:00", rows[2][12])
	assert.Equal(t, "operations_uae", rows[2][14])
	assert.Equal(t, "1500.50", rows[2][17])

	assert.Equal(t, "xlsx", exporter.FileExtension())
	assert.Contains(t, exporter.ContentType(), "spreadsheetml")
}

func TestXLSXExporter_EmptyAndCancelled(t *testing.T) {
	exporter := NewXLSXExporter(zap.NewNop())

	var buf bytes.Buffer
	require.NoError(t, exporter.Export(context.Background(), &buf, nil))
	assert.NotZero(t, buf.Len())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := exporter.Export(ctx, &bytes.Buffer{}, []*entity.TravelRequest{{ID: 1}})
	assert.ErrorIs(t, err, context.Canceled)
}
