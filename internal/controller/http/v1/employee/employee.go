package employee

import (
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"attendance/dashboard/foundation/web"
	"attendance/dashboard/internal/controller/http/v1/apierr"
	"attendance/dashboard/internal/dashboard"
	"attendance/dashboard/internal/reconcile"
	"attendance/dashboard/internal/service"
	"attendance/dashboard/internal/store"

	"github.com/pkg/errors"
)

type Controller struct {
	employee Employee
}

func NewController(employee Employee) *Controller {
	return &Controller{employee}
}

func (ec Controller) GetList(c *web.Context) error {
	var search string
	if v, ok := c.GetQueryFunc(reflect.String, "search").(*string); ok {
		search = strings.ToLower(strings.TrimSpace(*v))
	}
	if err := c.ValidQuery(); err != nil {
		return c.RespondError(err)
	}

	list := []store.Employee{}
	for _, e := range ec.employee.Snapshot().Employees {
		if search == "" || strings.Contains(strings.ToLower(e.Name), search) {
			list = append(list, e)
		}
	}

	return c.Respond(map[string]interface{}{
		"data": map[string]interface{}{
			"results": list,
			"count":   len(list),
		},
		"status": true,
	}, http.StatusOK)
}

func (ec Controller) Create(c *web.Context) error {
	var request CreateRequest

	if err := c.BindFunc(&request, "Name"); err != nil {
		return c.RespondError(err)
	}

	response, err := ec.employee.AddEmployee(c.Ctx, request.Name, request.Email, request.Phone)
	if err != nil {
		return c.RespondError(apierr.Wrap(err))
	}

	return c.Respond(map[string]interface{}{
		"data":   response,
		"status": true,
	}, http.StatusCreated)
}

func (ec Controller) GetHistory(c *web.Context) error {
	emp, history, err := ec.history(c)
	if err != nil {
		return c.RespondError(err)
	}

	return c.Respond(map[string]interface{}{
		"data": HistoryResponse{
			Employee: emp,
			Summary:  dashboard.Summarize(history),
			Results:  history,
		},
		"status": true,
	}, http.StatusOK)
}

func (ec Controller) GetHistoryPDF(c *web.Context) error {
	emp, history, err := ec.history(c)
	if err != nil {
		return c.RespondError(err)
	}

	buf, err := service.HistoryPDF(emp, history, ec.employee.Policy())
	if err != nil {
		return c.RespondError(err)
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"history_%s.pdf\"", emp.ID))
	c.Data(http.StatusOK, "application/pdf", buf.Bytes())
	return nil
}

// history fetches the records of :id. The roster is only used for the
// name: history does not depend on the selected date having loaded.
func (ec Controller) history(c *web.Context) (store.Employee, []store.AttendanceRecord, error) {
	emp, err := ec.lookup(c)
	if err != nil {
		var webErr *web.Error
		if !errors.As(err, &webErr) || webErr.Status != http.StatusNotFound {
			return store.Employee{}, nil, err
		}
		emp = store.Employee{ID: c.Param("id"), Name: c.Param("id")}
	}

	history, err := ec.employee.History(c.Ctx, emp.ID)
	if err != nil {
		return store.Employee{}, nil, apierr.Wrap(err)
	}

	return emp, history, nil
}

func (ec Controller) GetQrCode(c *web.Context) error {
	emp, err := ec.lookup(c)
	if err != nil {
		return c.RespondError(err)
	}

	size := service.QRSize
	if v, ok := c.GetQueryFunc(reflect.Int, "size").(*int); ok {
		size = *v
	}
	if err := c.ValidQuery(); err != nil {
		return c.RespondError(err)
	}
	if size < 64 || size > 1024 {
		return c.RespondError(web.NewRequestError(errors.New("size must be between 64 and 1024"), http.StatusBadRequest))
	}

	png, err := service.QRCode(emp.ID, size)
	if err != nil {
		return c.RespondError(err)
	}

	c.Header("Content-Disposition", fmt.Sprintf("inline; filename=%s.png", emp.ID))
	c.Data(http.StatusOK, "image/png", png)
	return nil
}

func (ec Controller) GetBadge(c *web.Context) error {
	emp, err := ec.lookup(c)
	if err != nil {
		return c.RespondError(err)
	}

	png, err := service.Badge(emp.Name, emp.ID, service.QRSize)
	if err != nil {
		return c.RespondError(err)
	}

	c.Header("Content-Disposition", fmt.Sprintf("inline; filename=badge_%s.png", emp.ID))
	c.Data(http.StatusOK, "image/png", png)
	return nil
}

func (ec Controller) GetQrCodeList(c *web.Context) error {
	buf, err := service.BadgesPDF(ec.employee.Snapshot().Employees)
	if err != nil {
		return c.RespondError(err)
	}

	c.Header("Content-Disposition", "attachment; filename=\"qr_employees.pdf\"")
	c.Data(http.StatusOK, "application/pdf", buf.Bytes())
	return nil
}

func (ec Controller) ExportTemplate(c *web.Context) error {
	buf, err := service.EmployeeTemplate()
	if err != nil {
		return c.RespondError(err)
	}

	c.Header("Content-Disposition", "attachment; filename=\"employees_template.xlsx\"")
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf.Bytes())
	return nil
}

func (ec Controller) Import(c *web.Context) error {
	file, err := c.FormFile("file")
	if err != nil {
		return c.RespondError(web.NewRequestError(errors.Wrap(err, "reading file"), http.StatusBadRequest))
	}

	src, err := service.OpenUpload(file, service.SpreadsheetTypes)
	if err != nil {
		return c.RespondError(web.NewRequestError(err, http.StatusBadRequest))
	}
	defer src.Close()

	existing := make(map[string]struct{})
	for _, e := range ec.employee.Snapshot().Employees {
		if e.Email != nil {
			existing[strings.ToLower(*e.Email)] = struct{}{}
		}
	}

	rows, incomplete, err := service.ReadEmployees(src, existing)
	if err != nil {
		return c.RespondError(web.NewRequestError(err, http.StatusBadRequest))
	}

	response := ImportResponse{IncompleteRows: incomplete, FailedRows: []int{}}
	if response.IncompleteRows == nil {
		response.IncompleteRows = []int{}
	}

	for _, row := range rows {
		if _, err := ec.employee.AddEmployee(c.Ctx, row.Name, row.Email, row.Phone); err != nil {
			response.FailedRows = append(response.FailedRows, row.Row)
			continue
		}
		response.Created++
	}

	response.Message = fmt.Sprintf("%d employees created", response.Created)
	if len(response.IncompleteRows) > 0 {
		response.Message += "; skipped rows: " + service.FormatRows(response.IncompleteRows)
	}
	if len(response.FailedRows) > 0 {
		response.Message += "; failed rows: " + service.FormatRows(response.FailedRows)
	}

	return c.Respond(map[string]interface{}{
		"data":   response,
		"status": true,
	}, http.StatusOK)
}

// lookup resolves the :id path parameter against the board's roster. An
// unloaded roster cannot rule the id out, so it stands in for the name.
func (ec Controller) lookup(c *web.Context) (store.Employee, error) {
	id := c.GetParam(reflect.String, "id").(string)

	if err := c.ValidParam(); err != nil {
		return store.Employee{}, err
	}

	snapshot := ec.employee.Snapshot()
	for _, e := range snapshot.Employees {
		if e.ID == id {
			return e, nil
		}
	}
	if snapshot.State != reconcile.StateLoaded {
		return store.Employee{ID: id, Name: id}, nil
	}

	return store.Employee{}, web.NewRequestError(errors.Errorf("employee %s not found", id), http.StatusNotFound)
}
