package board

type SelectDateRequest struct {
	Date string `json:"date" form:"date"`
}

type CheckInRequest struct {
	EmployeeID string `json:"employee_id" form:"employee_id"`
}

type CheckOutRequest struct {
	AttendanceID string `json:"attendance_id" form:"attendance_id"`
}

type NoteRequest struct {
	Note *string `json:"note" form:"note"`
}
