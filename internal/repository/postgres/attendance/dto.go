package attendance

import (
	"time"

	"github.com/uptrace/bun"
)

type CreateRequest struct {
	EmployeeID  string
	WorkDay     time.Time
	CheckInTime time.Time
	Status      string
}

type CreateResponse struct {
	bun.BaseModel `bun:"table:attendance"`

	ID          string    `json:"id" bun:"id,pk,type:uuid,nullzero,default:gen_random_uuid()"`
	EmployeeID  string    `json:"employee_id" bun:"employee_id"`
	WorkDay     time.Time `json:"date" bun:"date,type:date"`
	CheckInTime time.Time `json:"check_in_time" bun:"check_in_time"`
	Status      string    `json:"status" bun:"status"`
	CreatedAt   time.Time `json:"created_at" bun:"created_at,nullzero,default:current_timestamp"`
}

// UpdateRequest sets the non-nil columns of one attendance row.
type UpdateRequest struct {
	ID           string
	CheckOutTime *time.Time
	Note         *string
}
