package employee

import (
	"attendance/dashboard/internal/dashboard"
	"attendance/dashboard/internal/store"
)

type CreateRequest struct {
	Name  string  `json:"name" form:"name"`
	Email *string `json:"email" form:"email"`
	Phone *string `json:"phone" form:"phone"`
}

type HistoryResponse struct {
	Employee store.Employee           `json:"employee"`
	Summary  dashboard.HistorySummary `json:"summary"`
	Results  []store.AttendanceRecord `json:"results"`
}

type ImportResponse struct {
	Created        int    `json:"created"`
	IncompleteRows []int  `json:"incomplete_rows"`
	FailedRows     []int  `json:"failed_rows"`
	Message        string `json:"message"`
}
