package export

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/garyjia/travel-approval/internal/application/port"
	"github.com/garyjia/travel-approval/internal/domain/entity"
)

const sheetName = "Travel Requests"

var headers = []string{
	"ID", "Requester ID", "Traveler ID", "Origin", "Destination", "Route",
	"Departure", "Return", "Purpose", "Project ID", "Status",
	"PM Decided By", "PM Decided At", "Rejection Reason", "Operations Team",
	"Completed By", "Completed At", "Actual Total Cost", "Created At",
}

// XLSXExporter renders travel requests as an Excel workbook
type XLSXExporter struct {
	logger *zap.Logger
}

// NewXLSXExporter creates a new exporter
func NewXLSXExporter(logger *zap.Logger) *XLSXExporter {
	return &XLSXExporter{logger: logger}
}

// ContentType implements port.RequestExporter
func (e *XLSXExporter) ContentType() string {
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}

// FileExtension implements port.RequestExporter
func (e *XLSXExporter) FileExtension() string {
	return "xlsx"
}

// Export implements port.RequestExporter
func (e *XLSXExporter) Export(ctx context.Context, w io.Writer, requests []*entity.TravelRequest) error {
	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			e.logger.Warn("Failed to close workbook", zap.Error(err))
		}
	}()

	if err := f.SetSheetName(f.GetSheetName(0), sheetName); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	if err := f.SetSheetRow(sheetName, "A1", &headers); err != nil {
		return fmt.Errorf("failed to write header row: %w", err)
	}
	lastCol, _ := excelize.ColumnNumberToName(len(headers))
	if err := f.SetCellStyle(sheetName, "A1", lastCol+"1", headerStyle); err != nil {
		return fmt.Errorf("failed to style header row: %w", err)
	}

	for i, req := range requests {
		if err := ctx.Err(); err != nil {
			return err
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		row := requestRow(req)
		if err := f.SetSheetRow(sheetName, cell, &row); err != nil {
			return fmt.Errorf("failed to write row for request %d: %w", req.ID, err)
		}
	}

	if err := f.SetPanes(sheetName, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fmt.Errorf("failed to freeze header: %w", err)
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}

	e.logger.Debug("Exported travel requests", zap.Int("rows", len(requests)))
	return nil
}

func requestRow(req *entity.TravelRequest) []interface{} {
	return []interface{}{
		req.ID,
		req.RequesterID,
		req.TravelerID,
		req.Origin,
		req.Destination,
		strings.Join(req.Destinations, " → "),
		req.DepartureDate.Format(entity.DateLayout),
		req.ReturnDate.Format(entity.DateLayout),
		purposeLabel(req),
		optionalID(req.ProjectID),
		req.Status,
		optionalID(req.PMDecidedBy),
		optionalTime(req.PMDecidedAt),
		req.PMRejectionReason,
		req.AssignedOperationsTeam,
		optionalID(req.OperationsCompletedBy),
		optionalTime(req.OperationsCompletedAt),
		optionalCost(req),
		req.CreatedAt.Format("2006-01-02 15:04:05"),
	}
}

func purposeLabel(req *entity.TravelRequest) string {
	if req.Purpose == entity.PurposeOther && req.CustomPurpose != "" {
		return "other: " + req.CustomPurpose
	}
	return req.Purpose
}

func optionalID(id *int64) interface{} {
	if id == nil {
		return ""
	}
	return *id
}

func optionalTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("2006-01-02 15:04:05")
}

func optionalCost(req *entity.TravelRequest) string {
	if req.ActualTotalCost == nil {
		return ""
	}
	return req.ActualTotalCost.StringFixed(2)
}

// Verify interface compliance
var _ port.RequestExporter = (*XLSXExporter)(nil)
