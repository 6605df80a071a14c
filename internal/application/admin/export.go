package admin

import (
	"context"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/xerocraft/backend/internal/domain/shared"
)

// maxSheetName is the longest sheet name Excel accepts.
const maxSheetName = 31

// Export renders the rows of app.model selected by filter as an xlsx workbook
// with one sheet.
func (s *Service) Export(ctx context.Context, app, model string, filter shared.Filter) ([]byte, error) {
	entry, err := s.site.Lookup(app, model)
	if err != nil {
		return nil, err
	}

	rows, _, err := s.rows.List(ctx, entry.Model, filter)
	if err != nil {
		return nil, err
	}

	data, err := buildXLSX(entry, rows)
	if err != nil {
		s.logger.Error("Failed to build workbook", zap.String("model", entry.Model.Key().String()), zap.Error(err))
		return nil, err
	}
	return data, nil
}

// SheetName returns the sheet title used for entry's export.
func SheetName(entry *ModelEntry) string {
	name := capFirst(entry.VerboseNamePlural)
	if len(name) > maxSheetName {
		name = name[:maxSheetName]
	}
	return name
}

func buildXLSX(entry *ModelEntry, rows []map[string]any) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#E2E8F0"}},
	})
	if err != nil {
		return nil, err
	}

	sheet := SheetName(entry)
	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return nil, err
	}

	sw, err := f.NewStreamWriter(sheet)
	if err != nil {
		return nil, err
	}

	columns := entry.Model.Columns()
	header := make([]any, len(columns))
	for i, col := range columns {
		header[i] = excelize.Cell{Value: col, StyleID: headerStyle}
	}
	if err := sw.SetRow("A1", header); err != nil {
		return nil, err
	}

	for i, row := range rows {
		values := make([]any, len(columns))
		for j, col := range columns {
			values[j] = cellValue(row[col])
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		if err := sw.SetRow(cell, values); err != nil {
			return nil, err
		}
	}
	if err := sw.Flush(); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func cellValue(v any) any {
	switch x := v.(type) {
	case nil:
		return ""
	case []byte:
		return string(x)
	case time.Time:
		if x.Hour() == 0 && x.Minute() == 0 && x.Second() == 0 && x.Nanosecond() == 0 {
			return x.Format("2006-01-02")
		}
		return x.Format(time.RFC3339)
	case string, bool, int, int32, int64, uint, uint32, uint64, float32, float64:
		return x
	}
	return fmt.Sprint(v)
}
