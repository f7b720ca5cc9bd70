package router_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"attendance/dashboard/foundation/web"
	"attendance/dashboard/internal/auth"
	"attendance/dashboard/internal/hub"
	"attendance/dashboard/internal/reconcile"
	"attendance/dashboard/internal/router"
	"attendance/dashboard/internal/service"
	"attendance/dashboard/internal/store"
	"attendance/dashboard/internal/store/memory"
	"attendance/dashboard/internal/timepolicy"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"
)

const (
	adminPassword = "secret"
	today         = "2024-03-04"
)

type api struct {
	handler http.Handler
	store   *memory.Store
	engine  *reconcile.Engine
}

type response struct {
	Status bool            `json:"status"`
	Error  string          `json:"error"`
	Data   json.RawMessage `json:"data"`
}

// newAPI builds the router on a memory store. The initial load runs after
// every op in failing has been made to fail once.
func newAPI(t *testing.T, failing ...memory.Op) *api {
	t.Helper()
	gin.SetMode(gin.TestMode)

	now := time.Date(2024, 3, 4, 8, 30, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	st := memory.New(memory.WithClock(clock))
	st.SeedEmployee(store.Employee{ID: "emp-a", Name: "Alice"})
	st.SeedEmployee(store.Employee{ID: "emp-b", Name: "Bob"})

	hash, err := auth.HashPassword(adminPassword)
	if err != nil {
		t.Fatalf("hashing password: %v", err)
	}
	a, err := auth.New("test-key", "test", time.Hour,
		auth.User{Username: "admin", PasswordHash: hash, Role: auth.RoleAdmin},
		auth.User{Username: "tv", PasswordHash: hash, Role: auth.RoleDashboard},
	)
	if err != nil {
		t.Fatalf("auth.New: %v", err)
	}

	logger := log.New(io.Discard, "", 0)
	h := hub.New(logger, hub.DefaultBuffer)
	policy := timepolicy.Policy{LateAfter: timepolicy.DefaultLateAfter, Location: time.UTC, Clock: clock}
	engine := reconcile.New(st, policy, logger, h)
	t.Cleanup(func() {
		h.Close()
		engine.Close()
	})

	for _, op := range failing {
		st.FailNext(op, errors.New("store unavailable"))
	}
	if err := engine.SelectDate(context.Background(), today); err != nil && len(failing) == 0 {
		t.Fatalf("SelectDate: %v", err)
	}

	app := web.NewApp(logger)
	router.NewRouter(app, nil, engine, h, a, nil).Init()

	return &api{handler: app, store: st, engine: engine}
}

func (a *api) do(t *testing.T, method, path, token string, body interface{}) (int, response) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("encoding body: %v", err)
		}
		reader = bytes.NewReader(b)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	a.handler.ServeHTTP(w, req)

	var resp response
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("%s %s: decoding %q: %v", method, path, w.Body.String(), err)
	}
	return w.Code, resp
}

func (a *api) signIn(t *testing.T, username string) string {
	t.Helper()

	code, resp := a.do(t, http.MethodPost, "/api/v1/sign-in", "", map[string]string{
		"username": username,
		"password": adminPassword,
	})
	if code != http.StatusOK {
		t.Fatalf("sign-in %s: %d %s", username, code, resp.Error)
	}

	var data struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(resp.Data, &data); err != nil || data.AccessToken == "" {
		t.Fatalf("sign-in data %s: %v", resp.Data, err)
	}
	return data.AccessToken
}

type listData struct {
	Count   int `json:"count"`
	Results []struct {
		Employee   store.Employee          `json:"employee"`
		Attendance *store.AttendanceRecord `json:"attendance"`
	} `json:"results"`
}

func (a *api) list(t *testing.T, token, tab string) listData {
	t.Helper()

	code, resp := a.do(t, http.MethodGet, "/api/v1/board/list?tab="+tab, token, nil)
	if code != http.StatusOK {
		t.Fatalf("list %s: %d %s", tab, code, resp.Error)
	}

	var data listData
	if err := json.Unmarshal(resp.Data, &data); err != nil {
		t.Fatalf("list data: %v", err)
	}
	return data
}

func TestSignIn(t *testing.T) {
	a := newAPI(t)

	a.signIn(t, "admin")

	code, resp := a.do(t, http.MethodPost, "/api/v1/sign-in", "", map[string]string{
		"username": "admin",
		"password": "wrong",
	})
	if code != http.StatusUnauthorized || resp.Status {
		t.Fatalf("wrong password: %d %+v", code, resp)
	}

	code, _ = a.do(t, http.MethodPost, "/api/v1/sign-in", "", map[string]string{"username": "admin"})
	if code != http.StatusBadRequest {
		t.Fatalf("missing password: %d", code)
	}
}

func TestRoutesRequireRoles(t *testing.T) {
	a := newAPI(t)

	if code, _ := a.do(t, http.MethodGet, "/api/v1/board", "", nil); code != http.StatusUnauthorized {
		t.Fatalf("no token: %d", code)
	}
	if code, _ := a.do(t, http.MethodGet, "/api/v1/board", "garbage", nil); code != http.StatusUnauthorized {
		t.Fatalf("bad token: %d", code)
	}

	tv := a.signIn(t, "tv")
	if code, _ := a.do(t, http.MethodGet, "/api/v1/board/stats", tv, nil); code != http.StatusOK {
		t.Fatalf("dashboard read: %d", code)
	}
	code, _ := a.do(t, http.MethodPost, "/api/v1/board/checkin", tv, map[string]string{"employee_id": "emp-a"})
	if code != http.StatusForbidden {
		t.Fatalf("dashboard check-in: %d", code)
	}
}

func TestCheckInAndOut(t *testing.T) {
	a := newAPI(t)
	token := a.signIn(t, "admin")

	if got := a.list(t, token, "checkin"); got.Count != 2 {
		t.Fatalf("checkin tab before = %+v", got)
	}

	code, resp := a.do(t, http.MethodPost, "/api/v1/board/checkin?wait=true", token, map[string]string{"employee_id": "emp-a"})
	if code != http.StatusOK {
		t.Fatalf("check-in: %d %s", code, resp.Error)
	}

	var checkIn struct {
		Attendance store.AttendanceRecord `json:"attendance"`
	}
	if err := json.Unmarshal(resp.Data, &checkIn); err != nil {
		t.Fatalf("check-in data: %v", err)
	}
	if checkIn.Attendance.EmployeeID != "emp-a" || reconcile.IsTemp(checkIn.Attendance.ID) {
		t.Fatalf("check-in record = %+v", checkIn.Attendance)
	}
	if checkIn.Attendance.Status != timepolicy.StatusPresent {
		t.Fatalf("status = %q, want present", checkIn.Attendance.Status)
	}

	working := a.list(t, token, "checkout")
	if working.Count != 1 || working.Results[0].Employee.ID != "emp-a" {
		t.Fatalf("checkout tab = %+v", working)
	}

	code, resp = a.do(t, http.MethodPost, "/api/v1/board/checkout?wait=true", token, map[string]string{"attendance_id": checkIn.Attendance.ID})
	if code != http.StatusOK {
		t.Fatalf("check-out: %d %s", code, resp.Error)
	}
	if got := a.list(t, token, "checkout"); got.Count != 0 {
		t.Fatalf("checkout tab after = %+v", got)
	}

	code, resp = a.do(t, http.MethodPost, "/api/v1/board/checkout", token, map[string]string{"attendance_id": "missing"})
	if code != http.StatusNotFound {
		t.Fatalf("unknown check-out: %d %s", code, resp.Error)
	}
}

func TestPastDateIsReadOnly(t *testing.T) {
	a := newAPI(t)
	token := a.signIn(t, "admin")

	code, resp := a.do(t, http.MethodPost, "/api/v1/board/date", token, map[string]string{"date": "2024-03-03"})
	if code != http.StatusOK {
		t.Fatalf("select date: %d %s", code, resp.Error)
	}

	code, _ = a.do(t, http.MethodPost, "/api/v1/board/checkin", token, map[string]string{"employee_id": "emp-a"})
	if code != http.StatusConflict {
		t.Fatalf("check-in on past date: %d", code)
	}

	code, _ = a.do(t, http.MethodPost, "/api/v1/board/date", token, map[string]string{"date": "03/04/2024"})
	if code != http.StatusBadRequest {
		t.Fatalf("malformed date: %d", code)
	}
	code, _ = a.do(t, http.MethodPost, "/api/v1/board/date", token, map[string]string{"date": "2024-03-05"})
	if code != http.StatusConflict {
		t.Fatalf("future date: %d", code)
	}
}

func TestUnknownTab(t *testing.T) {
	a := newAPI(t)
	token := a.signIn(t, "admin")

	if code, _ := a.do(t, http.MethodGet, "/api/v1/board/list?tab=late", token, nil); code != http.StatusBadRequest {
		t.Fatalf("unknown tab: %d", code)
	}
}

func TestEmployees(t *testing.T) {
	a := newAPI(t)
	token := a.signIn(t, "admin")

	code, resp := a.do(t, http.MethodPost, "/api/v1/employee/create", token, map[string]string{"name": "  Carol ", "email": ""})
	if code != http.StatusCreated {
		t.Fatalf("create: %d %s", code, resp.Error)
	}

	var created store.Employee
	if err := json.Unmarshal(resp.Data, &created); err != nil {
		t.Fatalf("create data: %v", err)
	}
	if created.Name != "Carol" || created.Email != nil {
		t.Fatalf("created = %+v", created)
	}
	if got := a.list(t, token, "all"); got.Count != 3 {
		t.Fatalf("all tab = %d rows, want 3", got.Count)
	}

	if code, _ := a.do(t, http.MethodPost, "/api/v1/employee/create", token, map[string]string{"name": " "}); code != http.StatusBadRequest {
		t.Fatalf("blank name: %d", code)
	}

	code, resp = a.do(t, http.MethodGet, "/api/v1/employee/"+created.ID+"/history", token, nil)
	if code != http.StatusOK {
		t.Fatalf("history: %d %s", code, resp.Error)
	}
	code, resp = a.do(t, http.MethodGet, "/api/v1/employee/nobody/history", token, nil)
	if code != http.StatusOK {
		t.Fatalf("unknown employee history: %d %s", code, resp.Error)
	}
	if code, _ := a.do(t, http.MethodGet, "/api/v1/employee/nobody/badge", token, nil); code != http.StatusNotFound {
		t.Fatalf("unknown employee badge: %d", code)
	}
}

func TestDailyReport(t *testing.T) {
	a := newAPI(t)
	token := a.signIn(t, "admin")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/report/daily", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	a.handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("report: %d %s", w.Code, w.Body.String())
	}
	if got := w.Header().Get("Content-Disposition"); got != `attachment; filename="attendance_2024-03-04.xlsx"` {
		t.Fatalf("Content-Disposition = %q", got)
	}
	if w.Body.Len() == 0 {
		t.Fatal("empty workbook")
	}
}

func TestHistoryWithoutLoadedRoster(t *testing.T) {
	a := newAPI(t, memory.OpListEmployees)
	token := a.signIn(t, "admin")

	if got := a.engine.Snapshot(); got.State != reconcile.StateError || len(got.Employees) != 0 {
		t.Fatalf("snapshot = %+v, want failed load", got)
	}

	in := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	a.store.SeedAttendance(store.AttendanceRecord{ID: "att-1", EmployeeID: "emp-a", Date: "2024-03-01", CheckInTime: &in, Status: timepolicy.StatusPresent})

	code, resp := a.do(t, http.MethodGet, "/api/v1/employee/emp-a/history", token, nil)
	if code != http.StatusOK {
		t.Fatalf("history: %d %s", code, resp.Error)
	}

	var data struct {
		Results []store.AttendanceRecord `json:"results"`
	}
	if err := json.Unmarshal(resp.Data, &data); err != nil {
		t.Fatalf("history data: %v", err)
	}
	if len(data.Results) != 1 || data.Results[0].ID != "att-1" {
		t.Fatalf("history = %+v", data.Results)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/employee/emp-a/qrcode", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	a.handler.ServeHTTP(w, req)
	if w.Code != http.StatusOK || w.Header().Get("Content-Type") != "image/png" {
		t.Fatalf("qrcode: %d %s", w.Code, w.Header().Get("Content-Type"))
	}
}

func TestImportMessage(t *testing.T) {
	a := newAPI(t)
	token := a.signIn(t, "admin")

	buf, err := service.EmployeeTemplate()
	if err != nil {
		t.Fatalf("template: %v", err)
	}

	f, err := excelize.OpenReader(buf)
	if err != nil {
		t.Fatalf("opening template: %v", err)
	}
	rows := [][]interface{}{
		{"Carol", "carol@example.com", ""},
		{"", "nobody@example.com", ""},
		{"Dave", "not-an-email", ""},
	}
	for i, row := range rows {
		if err := f.SetSheetRow(service.EmployeeSheet, fmt.Sprintf("A%d", i+2), &row); err != nil {
			t.Fatalf("writing row: %v", err)
		}
	}
	book, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("writing workbook: %v", err)
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "employees.xlsx")
	if err != nil {
		t.Fatalf("form file: %v", err)
	}
	part.Write(book.Bytes())
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/employee/import", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	a.handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("import: %d %s", w.Code, w.Body.String())
	}

	var resp struct {
		Data struct {
			Created int    `json:"created"`
			Message string `json:"message"`
		} `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding: %v", err)
	}
	if resp.Data.Created != 1 || resp.Data.Message != "1 employees created; skipped rows: 3, 4" {
		t.Fatalf("import = %+v", resp.Data)
	}
}
