package api

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/smarthome-app/smarthome-core/internal/control"
	"github.com/smarthome-app/smarthome-core/internal/device"
	"github.com/smarthome-app/smarthome-core/internal/store"
)

const (
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	historySheet    = "History"
)

var historyHeaders = []string{"ID", "Timestamp", "Value"}

// serveHistoryExport answers GET .../history/export with an xlsx workbook.
// It takes the same ?limit= as the JSON history.
func (s *Server) serveHistoryExport(w http.ResponseWriter, r *http.Request, svc *control.Service) {
	room, typ, records, ok := s.loadHistory(w, r, svc)
	if !ok {
		return
	}

	data, err := historyWorkbook(records)
	if err != nil {
		s.logger.Error("history export failed", "room", room, "type", typ, "error", err)
		writeInternalError(w, "failed to build export")
		return
	}

	filename := fmt.Sprintf("%s-%s-%s-history.xlsx", svc.Direction(), room, typ)
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", "attachment; filename="+filename)
	w.WriteHeader(http.StatusOK)
	w.Write(data) //nolint:errcheck,gosec // Best-effort write to response
}

// historyWorkbook renders records newest first, one row each, under a
// frozen bold header.
func historyWorkbook(records []store.Record) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close() //nolint:errcheck // in-memory file

	index, err := f.NewSheet(historySheet)
	if err != nil {
		return nil, fmt.Errorf("creating sheet: %w", err)
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("removing default sheet: %w", err)
	}
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6F3FF"}, Pattern: 1},
	})
	if err != nil {
		return nil, fmt.Errorf("creating header style: %w", err)
	}

	for col, header := range historyHeaders {
		if err := setCell(f, col+1, 1, header); err != nil {
			return nil, err
		}
	}
	if err := f.SetCellStyle(historySheet, "A1", "C1", headerStyle); err != nil {
		return nil, fmt.Errorf("styling header: %w", err)
	}
	if err := f.SetColWidth(historySheet, "A", "B", 38); err != nil {
		return nil, fmt.Errorf("setting column width: %w", err)
	}

	for i, rec := range records {
		row := i + 2
		cells := []any{rec.ID, rec.Timestamp.UTC().Format(time.RFC3339Nano), cellValue(rec.Value)}
		for col, v := range cells {
			if err := setCell(f, col+1, row, v); err != nil {
				return nil, err
			}
		}
	}

	if err := f.SetPanes(historySheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return nil, fmt.Errorf("freezing header: %w", err)
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("writing workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func setCell(f *excelize.File, col, row int, value any) error {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return fmt.Errorf("cell name: %w", err)
	}
	if err := f.SetCellValue(historySheet, cell, value); err != nil {
		return fmt.Errorf("setting %s: %w", cell, err)
	}
	return nil
}

// cellValue keeps numbers numeric so they can be charted.
func cellValue(v device.Value) any {
	if f, ok := v.Float(); ok {
		return f
	}
	if i, ok := v.Int(); ok {
		return i
	}
	return v.String()
}
