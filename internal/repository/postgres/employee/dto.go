package employee

import (
	"time"

	"github.com/uptrace/bun"
)

type CreateRequest struct {
	Name  string  `json:"name" form:"name"`
	Email *string `json:"email" form:"email"`
	Phone *string `json:"phone" form:"phone"`
}

type CreateResponse struct {
	bun.BaseModel `bun:"table:employees"`

	ID        string    `json:"id" bun:"id,pk,type:uuid,nullzero,default:gen_random_uuid()"`
	Name      string    `json:"name" bun:"name"`
	Email     *string   `json:"email" bun:"email"`
	Phone     *string   `json:"phone" bun:"phone"`
	CreatedAt time.Time `json:"created_at" bun:"created_at,nullzero,default:current_timestamp"`
}
