package report

import (
	"fmt"
	"net/http"

	"attendance/dashboard/foundation/web"
	"attendance/dashboard/internal/reconcile"
	"attendance/dashboard/internal/service"
	"attendance/dashboard/internal/timepolicy"
)

type Board interface {
	Snapshot() reconcile.Snapshot
	Policy() timepolicy.Policy
}

type Controller struct {
	board Board
}

func NewController(board Board) *Controller {
	return &Controller{board}
}

// GetDaily exports the board's selected date as a workbook.
func (rc Controller) GetDaily(c *web.Context) error {
	snapshot := rc.board.Snapshot()

	buf, err := service.DailyReport(snapshot, rc.board.Policy())
	if err != nil {
		return c.RespondError(err)
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"attendance_%s.xlsx\"", snapshot.Date))
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf.Bytes())
	return nil
}
