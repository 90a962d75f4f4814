package export

import (
	"context"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// XLSXWriter renders reports as an Excel workbook on an io.Writer.
type XLSXWriter struct {
	out io.Writer
}

func NewXLSXWriter(out io.Writer) *XLSXWriter {
	return &XLSXWriter{out: out}
}

func (w *XLSXWriter) Write(ctx context.Context, report Report) error {
	f, err := Workbook(report)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := f.WriteTo(w.out); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

// Workbook builds an in-memory workbook with one sheet per table.
func Workbook(report Report) (*excelize.File, error) {
	f := excelize.NewFile()
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("header style: %w", err)
	}

	for i, table := range report.Tables {
		if i == 0 {
			if err := f.SetSheetName("Sheet1", table.Name); err != nil {
				f.Close()
				return nil, fmt.Errorf("rename sheet: %w", err)
			}
		} else if _, err := f.NewSheet(table.Name); err != nil {
			f.Close()
			return nil, fmt.Errorf("create sheet %s: %w", table.Name, err)
		}

		for r, row := range table.Rows {
			cell, err := excelize.CoordinatesToCellName(1, r+1)
			if err != nil {
				f.Close()
				return nil, err
			}
			if err := f.SetSheetRow(table.Name, cell, &row); err != nil {
				f.Close()
				return nil, fmt.Errorf("write %s row %d: %w", table.Name, r+1, err)
			}
		}
		if len(table.Rows) > 0 {
			last, _ := excelize.CoordinatesToCellName(len(table.Rows[0]), 1)
			if err := f.SetCellStyle(table.Name, "A1", last, bold); err != nil {
				f.Close()
				return nil, fmt.Errorf("style %s header: %w", table.Name, err)
			}
		}
	}
	return f, nil
}
