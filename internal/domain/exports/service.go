package exports

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"caregiver-support/internal/domain/records"

	"github.com/xuri/excelize/v2"
)

var ErrInvalidInput = errors.New("invalid input")

const timeLayout = "2006-01-02 15:04"

type RecordLister interface {
	List(ctx context.Context, filter records.ListFilter) ([]records.Record, error)
}

type Service struct {
	records RecordLister
}

func NewService(lister RecordLister) *Service {
	return &Service{records: lister}
}

type Range struct {
	From *time.Time
	To   *time.Time
}

// RecordsWorkbook genera un .xlsx con una hoja por kind; cada hoja tiene
// timestamp, notas y una columna por campo de detalle presente en los datos.
func (s *Service) RecordsWorkbook(ctx context.Context, careRecipientID string, rng Range) ([]byte, error) {
	careRecipientID = strings.TrimSpace(careRecipientID)
	if careRecipientID == "" {
		return nil, ErrInvalidInput
	}

	f := excelize.NewFile()
	defer f.Close()

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6F3FF"}, Pattern: 1},
	})
	if err != nil {
		return nil, fmt.Errorf("create header style: %w", err)
	}

	for i, spec := range records.Kinds() {
		sheet := string(spec.Kind)
		if i == 0 {
			if err := f.SetSheetName("Sheet1", sheet); err != nil {
				return nil, fmt.Errorf("rename sheet: %w", err)
			}
		} else if _, err := f.NewSheet(sheet); err != nil {
			return nil, fmt.Errorf("create sheet %s: %w", sheet, err)
		}

		items, err := s.records.List(ctx, records.ListFilter{
			CareRecipientID: careRecipientID,
			Kinds:           []records.Kind{spec.Kind},
			From:            rng.From,
			To:              rng.To,
		})
		if err != nil {
			return nil, err
		}
		if err := writeSheet(f, sheet, spec, items, headerStyle); err != nil {
			return nil, err
		}
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func writeSheet(f *excelize.File, sheet string, spec records.KindSpec, items []records.Record, headerStyle int) error {
	rows := make([]map[string]any, 0, len(items))
	seen := map[string]bool{}
	for _, rec := range items {
		det := map[string]any{}
		_ = rec.DecodeDetails(&det)
		for k := range det {
			seen[k] = true
		}
		rows = append(rows, det)
	}
	detailCols := make([]string, 0, len(seen))
	for k := range seen {
		detailCols = append(detailCols, k)
	}
	sort.Strings(detailCols)

	timeHeader := spec.TimeField
	if timeHeader == "" {
		timeHeader = "createdAt"
	}
	header := append([]any{timeHeader}, toAny(detailCols)...)
	header = append(header, "notes")

	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("write header %s: %w", sheet, err)
	}
	last, err := excelize.CoordinatesToCellName(len(header), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", last, headerStyle); err != nil {
		return fmt.Errorf("style header %s: %w", sheet, err)
	}

	for i, rec := range items {
		row := make([]any, 0, len(header))
		row = append(row, rec.OccurredAt.UTC().Format(timeLayout))
		for _, col := range detailCols {
			row = append(row, cellValue(rows[i][col]))
		}
		row = append(row, rec.Notes)

		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write row %d of %s: %w", i+2, sheet, err)
		}
	}

	return f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
}

func cellValue(v any) any {
	switch t := v.(type) {
	case nil:
		return ""
	case bool:
		if t {
			return "yes"
		}
		return "no"
	case string:
		// fechas de detalle (endTime, endDate) en el mismo formato que el timestamp
		if ts, err := time.Parse(time.RFC3339Nano, t); err == nil {
			return ts.UTC().Format(timeLayout)
		}
		return t
	default:
		return t
	}
}

func toAny(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}
