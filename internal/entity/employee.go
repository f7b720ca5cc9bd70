package entity

import (
	"time"

	"attendance/dashboard/internal/store"

	"github.com/uptrace/bun"
)

type Employee struct {
	bun.BaseModel `bun:"table:employees"`

	ID        string    `json:"id" bun:"id,pk,type:uuid,nullzero,default:gen_random_uuid()"`
	Name      string    `json:"name" bun:"name,notnull"`
	Email     *string   `json:"email" bun:"email"`
	Phone     *string   `json:"phone" bun:"phone"`
	CreatedAt time.Time `json:"created_at" bun:"created_at,nullzero,notnull,default:current_timestamp"`
}

// ToStore converts the row, rejecting rows that miss required fields.
func (e Employee) ToStore() (store.Employee, error) {
	out := store.Employee{
		ID:        e.ID,
		Name:      e.Name,
		Email:     e.Email,
		Phone:     e.Phone,
		CreatedAt: e.CreatedAt,
	}
	return out, out.Validate()
}
