package service

import (
	"bytes"
	"fmt"

	"attendance/dashboard/internal/dashboard"
	"attendance/dashboard/internal/store"
	"attendance/dashboard/internal/timepolicy"

	"github.com/jung-kurt/gofpdf/v2"
	"github.com/pkg/errors"
)

var historyColumns = []struct {
	title string
	width float64
}{
	{"Date", 28},
	{"Check-in", 26},
	{"Check-out", 26},
	{"Duration", 26},
	{"Status", 24},
	{"Note", 60},
}

// HistoryPDF renders an employee's history, newest first, with a summary
// header.
func HistoryPDF(e store.Employee, history []store.AttendanceRecord, policy timepolicy.Policy) (*bytes.Buffer, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle(tr("Attendance history - "+e.Name), false)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 10, tr("Attendance history: "+e.Name), "", 1, "L", false, 0, "")

	sum := dashboard.Summarize(history)
	pdf.SetFont("Helvetica", "", 11)
	pdf.CellFormat(0, 7, fmt.Sprintf("Total days: %d    On time: %d    Late: %d", sum.TotalDays, sum.OnTimeDays, sum.LateDays), "", 1, "L", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetFillColor(230, 230, 230)
	for _, col := range historyColumns {
		pdf.CellFormat(col.width, 8, col.title, "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 10)
	for _, r := range history {
		note := ""
		if r.Note != nil {
			note = *r.Note
		}
		cells := []string{
			r.Date,
			policy.FormatClock(r.CheckInTime),
			policy.FormatClock(r.CheckOutTime),
			timepolicy.Duration(r.CheckInTime, r.CheckOutTime),
			StatusLabel(r.Status, true),
			tr(note),
		}
		for i, col := range historyColumns {
			pdf.CellFormat(col.width, 7, cells[i], "1", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)
	}

	if len(history) == 0 {
		pdf.CellFormat(0, 8, "No attendance recorded.", "", 1, "L", false, 0, "")
	}

	return output(pdf)
}

// BadgesPDF lays out one QR badge per employee, twelve to a page.
func BadgesPDF(employees []store.Employee) (*bytes.Buffer, error) {
	const (
		cols    = 3
		rows    = 4
		side    = 50.0
		marginX = 15.0
		marginY = 15.0
		gapX    = 10.0
		gapY    = 15.0
	)

	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetFont("Helvetica", "", 10)

	for i, e := range employees {
		slot := i % (cols * rows)
		if slot == 0 {
			pdf.AddPage()
		}

		png, err := QRCode(e.ID, QRSize)
		if err != nil {
			return nil, errors.Wrapf(err, "employee %s", e.ID)
		}

		opts := gofpdf.ImageOptions{ImageType: "PNG"}
		name := "qr-" + e.ID
		pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(png))

		x := marginX + float64(slot%cols)*(side+gapX)
		y := marginY + float64(slot/cols)*(side+gapY)
		pdf.ImageOptions(name, x, y, side, side, false, opts, 0, "")

		pdf.SetXY(x, y+side+1)
		pdf.CellFormat(side, 5, tr(e.Name), "", 0, "C", false, 0, "")
	}

	if len(employees) == 0 {
		pdf.AddPage()
		pdf.CellFormat(0, 8, "No employees.", "", 1, "L", false, 0, "")
	}

	return output(pdf)
}

func output(pdf *gofpdf.Fpdf) (*bytes.Buffer, error) {
	if pdf.Err() {
		return nil, errors.Wrap(pdf.Error(), "rendering pdf")
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, errors.Wrap(err, "writing pdf")
	}
	return &buf, nil
}
