package router

import (
	"context"
	"net/http"
	"time"

	"attendance/dashboard/foundation/web"
	"attendance/dashboard/internal/auth"
	"attendance/dashboard/internal/hub"
	"attendance/dashboard/internal/middleware"
	"attendance/dashboard/internal/pkg/repository/postgresql"
	"attendance/dashboard/internal/reconcile"

	auth_controller "attendance/dashboard/internal/controller/http/v1/auth"
	board_controller "attendance/dashboard/internal/controller/http/v1/board"
	employee_controller "attendance/dashboard/internal/controller/http/v1/employee"
	report_controller "attendance/dashboard/internal/controller/http/v1/report"
)

type Router struct {
	*web.App
	postgresDB *postgresql.Database
	engine     *reconcile.Engine
	hub        *hub.Hub
	auth       *auth.Auth
	origins    []string
}

// NewRouter wires the controllers onto app. postgresDB is nil when the
// board runs on the in-memory store.
func NewRouter(
	app *web.App,
	postgresDB *postgresql.Database,
	engine *reconcile.Engine,
	hub *hub.Hub,
	auth *auth.Auth,
	origins []string,
) *Router {
	return &Router{
		app,
		postgresDB,
		engine,
		hub,
		auth,
		origins,
	}
}

func (r Router) Init() {

	r.HandleMethodNotAllowed = true
	r.Use(middleware.CORSMiddleware(r.origins))

	// controller
	authController := auth_controller.NewController(r.auth)
	boardController := board_controller.NewController(r.engine, r.hub)
	employeeController := employee_controller.NewController(r.engine)
	reportController := report_controller.NewController(r.engine)

	admin := middleware.Authenticate(r.auth, auth.RoleAdmin)
	viewer := middleware.Authenticate(r.auth, auth.RoleAdmin, auth.RoleDashboard)

	r.Get("/api/v1/health", r.health)

	// #auth
	r.Post("/api/v1/sign-in", authController.SignIn)

	// #board
	r.Get("/api/v1/board", boardController.GetBoard, viewer)
	r.Get("/api/v1/board/stats", boardController.GetStats, viewer)
	r.Get("/api/v1/board/recent", boardController.GetRecent, viewer)
	r.Get("/api/v1/board/late", boardController.GetLate, viewer)
	r.Get("/api/v1/board/list", boardController.GetList, viewer)
	r.Get("/api/v1/board/share", boardController.GetShare, viewer)
	r.Get("/api/v1/board/stream", boardController.Stream, viewer)

	r.Post("/api/v1/board/date", boardController.SelectDate, viewer)
	r.Post("/api/v1/board/refresh", boardController.Refresh, viewer)
	r.Post("/api/v1/board/checkin", boardController.CheckIn, admin)
	r.Post("/api/v1/board/checkout", boardController.CheckOut, admin)
	r.Patch("/api/v1/board/note/:id", boardController.UpdateNote, admin)

	// #employee
	r.Get("/api/v1/employee/list", employeeController.GetList, viewer)
	r.Get("/api/v1/employee/template", employeeController.ExportTemplate, admin)
	r.Get("/api/v1/employee/qrcodes.pdf", employeeController.GetQrCodeList, admin)
	r.Get("/api/v1/employee/:id/history", employeeController.GetHistory, viewer)
	r.Get("/api/v1/employee/:id/history.pdf", employeeController.GetHistoryPDF, viewer)
	r.Get("/api/v1/employee/:id/qrcode", employeeController.GetQrCode, admin)
	r.Get("/api/v1/employee/:id/badge", employeeController.GetBadge, admin)

	r.Post("/api/v1/employee/create", employeeController.Create, admin)
	r.Post("/api/v1/employee/import", employeeController.Import, admin)

	// #report
	r.Get("/api/v1/report/daily", reportController.GetDaily, viewer)
}

func (r Router) health(c *web.Context) error {
	status := "ok"
	code := http.StatusOK

	if r.postgresDB != nil {
		ctx, cancel := context.WithTimeout(c.Ctx, time.Second)
		defer cancel()

		if err := r.postgresDB.StatusCheck(ctx); err != nil {
			status = "db not ready"
			code = http.StatusServiceUnavailable
		}
	}

	snapshot := r.engine.Snapshot()
	return c.Respond(map[string]interface{}{
		"data": map[string]interface{}{
			"status":  status,
			"date":    snapshot.Date,
			"state":   snapshot.State,
			"clients": r.hub.Clients(),
		},
		"status": code == http.StatusOK,
	}, code)
}
