package board

import (
	"io"
	"net/http"
	"reflect"
	"time"

	"attendance/dashboard/foundation/web"
	"attendance/dashboard/internal/controller/http/v1/apierr"
	"attendance/dashboard/internal/dashboard"
	"attendance/dashboard/internal/hub"
	"attendance/dashboard/internal/reconcile"

	"github.com/pkg/errors"
)

// Heartbeat is the interval of keep-alive events on the stream.
const Heartbeat = 25 * time.Second

type Controller struct {
	board  Board
	stream Stream
}

func NewController(board Board, stream Stream) *Controller {
	return &Controller{board, stream}
}

// board views

func (bc Controller) GetBoard(c *web.Context) error {
	return c.Respond(map[string]interface{}{
		"data":   hub.NewBoard(bc.board.Snapshot()),
		"status": true,
	}, http.StatusOK)
}

func (bc Controller) GetStats(c *web.Context) error {
	return c.Respond(map[string]interface{}{
		"data":   dashboard.Stats(bc.board.Snapshot()),
		"status": true,
	}, http.StatusOK)
}

func (bc Controller) GetRecent(c *web.Context) error {
	return c.Respond(map[string]interface{}{
		"data":   dashboard.RecentActivity(bc.board.Snapshot()),
		"status": true,
	}, http.StatusOK)
}

func (bc Controller) GetLate(c *web.Context) error {
	return c.Respond(map[string]interface{}{
		"data":   dashboard.LateEmployees(bc.board.Snapshot()),
		"status": true,
	}, http.StatusOK)
}

func (bc Controller) GetList(c *web.Context) error {
	snapshot, tab, search, err := bc.filter(c)
	if err != nil {
		return c.RespondError(err)
	}

	rows := dashboard.Rows(snapshot, tab, search)

	return c.Respond(map[string]interface{}{
		"data": map[string]interface{}{
			"date":    snapshot.Date,
			"tab":     tab,
			"results": rows,
			"count":   len(rows),
		},
		"status": true,
	}, http.StatusOK)
}

func (bc Controller) GetShare(c *web.Context) error {
	snapshot, tab, search, err := bc.filter(c)
	if err != nil {
		return c.RespondError(err)
	}

	text := dashboard.ShareText(snapshot, tab, dashboard.Rows(snapshot, tab, search), bc.board.Policy())
	c.String(http.StatusOK, text)
	return nil
}

func (bc Controller) filter(c *web.Context) (reconcile.Snapshot, dashboard.Tab, string, error) {
	var tabName, search string
	if v, ok := c.GetQueryFunc(reflect.String, "tab").(*string); ok {
		tabName = *v
	}
	if v, ok := c.GetQueryFunc(reflect.String, "search").(*string); ok {
		search = *v
	}
	if err := c.ValidQuery(); err != nil {
		return reconcile.Snapshot{}, "", "", err
	}

	tab, err := dashboard.ParseTab(tabName)
	if err != nil {
		return reconcile.Snapshot{}, "", "", apierr.Wrap(err)
	}

	return bc.board.Snapshot(), tab, search, nil
}

// triggers

func (bc Controller) SelectDate(c *web.Context) error {
	var request SelectDateRequest

	if err := c.BindFunc(&request, "Date"); err != nil {
		return c.RespondError(err)
	}

	if err := bc.board.SelectDate(c.Ctx, request.Date); err != nil {
		return c.RespondError(apierr.Wrap(err))
	}

	return bc.GetBoard(c)
}

func (bc Controller) Refresh(c *web.Context) error {
	if err := bc.board.Refresh(c.Ctx); err != nil {
		return c.RespondError(apierr.Wrap(err))
	}

	return bc.GetBoard(c)
}

func (bc Controller) CheckIn(c *web.Context) error {
	var request CheckInRequest

	if err := c.BindFunc(&request, "EmployeeID"); err != nil {
		return c.RespondError(err)
	}

	op, err := bc.board.CheckIn(request.EmployeeID)
	if err != nil {
		return c.RespondError(apierr.Wrap(err))
	}

	return bc.respondOp(c, op)
}

func (bc Controller) CheckOut(c *web.Context) error {
	var request CheckOutRequest

	if err := c.BindFunc(&request, "AttendanceID"); err != nil {
		return c.RespondError(err)
	}

	op, err := bc.board.CheckOut(request.AttendanceID)
	if err != nil {
		return c.RespondError(apierr.Wrap(err))
	}

	return bc.respondOp(c, op)
}

func (bc Controller) UpdateNote(c *web.Context) error {
	id := c.GetParam(reflect.String, "id").(string)

	if err := c.ValidParam(); err != nil {
		return c.RespondError(err)
	}

	var request NoteRequest
	if err := c.BindFunc(&request); err != nil {
		return c.RespondError(err)
	}
	if request.Note == nil {
		return c.RespondError(&web.Error{
			Err:    errors.New("note is required"),
			Status: http.StatusBadRequest,
			Fields: []web.FieldError{{Field: "note", Error: "required"}},
		})
	}

	op, err := bc.board.UpdateNote(id, *request.Note)
	if err != nil {
		return c.RespondError(apierr.Wrap(err))
	}

	return bc.respondOp(c, op)
}

// respondOp answers 202 with the pending id, or waits for the store when
// the caller asked for ?wait=true.
func (bc Controller) respondOp(c *web.Context, op *reconcile.Op) error {
	wait := false
	if v, ok := c.GetQueryFunc(reflect.Bool, "wait").(*bool); ok {
		wait = *v
	}
	if err := c.ValidQuery(); err != nil {
		return c.RespondError(err)
	}

	if !wait {
		return c.Respond(map[string]interface{}{
			"data":   map[string]string{"id": op.ID},
			"status": true,
		}, http.StatusAccepted)
	}

	record, err := op.Wait(c.Ctx)
	if err != nil {
		return c.RespondError(apierr.Wrap(err))
	}

	data := map[string]interface{}{"id": op.ID}
	if record.ID != "" {
		data["attendance"] = record
	}

	return c.Respond(map[string]interface{}{
		"data":   data,
		"status": true,
	}, http.StatusOK)
}

// Stream sends board and notice events until the client goes away.
func (bc Controller) Stream(c *web.Context) error {
	client := bc.stream.Subscribe()
	defer bc.stream.Unsubscribe(client)

	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")

	heartbeat := time.NewTicker(Heartbeat)
	defer heartbeat.Stop()

	c.Stream(func(w io.Writer) bool {
		select {
		case ev, ok := <-client.Events():
			if !ok {
				return false
			}
			c.SSEvent(ev.Name, ev.Data)
			return true
		case <-heartbeat.C:
			c.SSEvent("ping", time.Now().Unix())
			return true
		case <-c.Ctx.Done():
			return false
		}
	})

	return nil
}
