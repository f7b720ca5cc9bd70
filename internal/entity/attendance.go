package entity

import (
	"time"

	"attendance/dashboard/internal/store"
	"attendance/dashboard/internal/timepolicy"

	"github.com/uptrace/bun"
)

type Attendance struct {
	bun.BaseModel `bun:"table:attendance"`

	ID           string     `json:"id" bun:"id,pk,type:uuid,nullzero,default:gen_random_uuid()"`
	EmployeeID   string     `json:"employee_id" bun:"employee_id,type:uuid,notnull"`
	Date         time.Time  `json:"date" bun:"date,type:date,notnull"`
	CheckInTime  *time.Time `json:"check_in_time" bun:"check_in_time"`
	CheckOutTime *time.Time `json:"check_out_time" bun:"check_out_time"`
	Note         *string    `json:"note" bun:"note"`
	Status       string     `json:"status" bun:"status,notnull"`
	CreatedAt    time.Time  `json:"created_at" bun:"created_at,nullzero,notnull,default:current_timestamp"`
}

// ToStore converts the row, rejecting rows that miss required fields.
func (a Attendance) ToStore() (store.AttendanceRecord, error) {
	out := store.AttendanceRecord{
		ID:           a.ID,
		EmployeeID:   a.EmployeeID,
		CheckInTime:  a.CheckInTime,
		CheckOutTime: a.CheckOutTime,
		Note:         a.Note,
		Status:       timepolicy.Status(a.Status),
		CreatedAt:    a.CreatedAt,
	}
	if !a.Date.IsZero() {
		out.Date = timepolicy.DayOf(a.Date)
	}
	return out, out.Validate()
}
