package service

import (
	"bytes"
	"fmt"

	"attendance/dashboard/internal/dashboard"
	"attendance/dashboard/internal/reconcile"
	"attendance/dashboard/internal/timepolicy"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"
)

// DailySheet is the sheet name of the daily report.
const DailySheet = "Attendance"

var dailyHeaders = []string{"Employee", "Date", "Check-in", "Check-out", "Total hours", "Status", "Note"}

// StatusLabel renders a status for reports; a missing record is absent.
func StatusLabel(status timepolicy.Status, hasRecord bool) string {
	if !hasRecord {
		return "Absent"
	}
	switch status {
	case timepolicy.StatusLate:
		return "Late"
	case timepolicy.StatusAbsent:
		return "Absent"
	default:
		return "On time"
	}
}

// DailyReport writes one row per employee of the snapshot, in roster order,
// using the first record of each employee.
func DailyReport(s reconcile.Snapshot, policy timepolicy.Policy) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", DailySheet); err != nil {
		return nil, errors.Wrap(err, "renaming sheet")
	}

	for i, header := range dailyHeaders {
		cell := fmt.Sprintf("%c1", 'A'+i)
		if err := f.SetCellValue(DailySheet, cell, header); err != nil {
			return nil, errors.Wrap(err, "writing header")
		}
	}

	for i, row := range dashboard.Rows(s, dashboard.TabAll, "") {
		rec := row.Record
		checkIn, checkOut, total, note := "--", "--", "", ""
		if rec != nil {
			if rec.CheckInTime != nil {
				checkIn = policy.FormatClock(rec.CheckInTime)
			}
			if rec.CheckOutTime != nil {
				checkOut = policy.FormatClock(rec.CheckOutTime)
			}
			total = timepolicy.TotalHours(rec.CheckInTime, rec.CheckOutTime)
			if rec.Note != nil {
				note = *rec.Note
			}
		}

		var status timepolicy.Status
		if rec != nil {
			status = rec.Status
		}

		values := []interface{}{row.Employee.Name, s.Date, checkIn, checkOut, total, StatusLabel(status, rec != nil), note}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(DailySheet, cell, &values); err != nil {
			return nil, errors.Wrapf(err, "writing row %d", i+2)
		}
	}

	if err := f.SetColWidth(DailySheet, "A", "A", 28); err != nil {
		return nil, err
	}
	if err := f.SetColWidth(DailySheet, "G", "G", 40); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, errors.Wrap(err, "saving report")
	}
	return buf, nil
}
