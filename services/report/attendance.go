// Package report renders attendance reports as spreadsheets.
package report

import (
	"bytes"
	"fmt"
	"io"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"

	"github.com/shankerdev/campus/core"
	"github.com/shankerdev/campus/core/attendance"
)

const XLSXContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

var attendanceHeader = []string{"Student Name", "Email", "Semester", "Present Days", "Marked Days", "Percentage"}

// AttendanceFilename is like attendance_report_2026_10.xlsx.
func AttendanceFilename(month core.Date) string {
	return fmt.Sprintf("attendance_report_%d_%02d.xlsx", month.Year(), int(month.Month()))
}

// AttendanceWorkbook writes one row per student under a bold header, on a sheet named after month.
func AttendanceWorkbook(month core.Date, rows []attendance.ReportRow) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	sheet := month.Format("January 2006")
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, errors.Wrap(err, "naming sheet")
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, errors.Wrap(err, "creating header style")
	}
	for i, h := range attendanceHeader {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err = f.SetCellValue(sheet, cell, h); err != nil {
			return nil, errors.Wrap(err, "writing header")
		}
	}
	last, _ := excelize.ColumnNumberToName(len(attendanceHeader))
	if err = f.SetCellStyle(sheet, "A1", last+"1", bold); err != nil {
		return nil, errors.Wrap(err, "styling header")
	}

	for r, row := range rows {
		semester := interface{}("")
		if row.Semester.Valid {
			semester = row.Semester.Int
		}
		values := []interface{}{
			row.Name,
			row.Email,
			semester,
			row.PresentDays,
			row.MarkedDays,
			fmt.Sprintf("%.2f%%", row.Percentage()),
		}
		for c, v := range values {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+2)
			if err = f.SetCellValue(sheet, cell, v); err != nil {
				return nil, errors.Wrapf(err, "writing row %d", r+1)
			}
		}
	}
	if err = f.SetColWidth(sheet, "A", "B", 30); err != nil {
		return nil, errors.Wrap(err, "sizing columns")
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, errors.Wrap(err, "writing workbook")
	}
	return buf, nil
}

// ReadAttendanceWorkbook returns the cell values of the first sheet, header included.
func ReadAttendanceWorkbook(r io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, errors.Wrap(err, "opening workbook")
	}
	defer func() { _ = f.Close() }()

	rows, err := f.GetRows(f.GetSheetName(0))
	if err != nil {
		return nil, errors.Wrap(err, "reading rows")
	}
	return rows, nil
}
