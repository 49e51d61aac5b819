package server

import (
	"net/http"

	"gorm.io/gorm"

	"github.com/thecawe/cellar/internal/auth"
	"github.com/thecawe/cellar/internal/handlers"
	"github.com/thecawe/cellar/internal/httpx"
	"github.com/thecawe/cellar/internal/middleware"
)

// Deps bundles everything the router wires together. AI, rate limiting
// and object storage are optional; the handlers degrade gracefully when
// they are nil.
type Deps struct {
	DB        *gorm.DB
	Auth      *handlers.AuthHandler
	Dashboard *handlers.DashboardHandler
	Cellar    *handlers.CellarHandler
	Messages  *handlers.MessageHandler
	Admin     *handlers.AdminHandler
	AI        *handlers.AIHandler
	Data      *handlers.DataHandler
}

// New assembles the full route table and middleware chain.
func New(d Deps) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		handlers.RenderIndex(w, r)
	})
	mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.Dir("static"))))

	d.Auth.Register(mux)

	approved := func(h http.HandlerFunc) http.Handler { return auth.RequireApproved(h) }
	admin := func(h http.HandlerFunc) http.Handler { return auth.RequireAdmin(h) }

	mux.Handle("/dashboard", approved(d.Dashboard.Home))
	mux.Handle("/dashboard/cellar", approved(d.Cellar.List))
	mux.Handle("/dashboard/cellar/add", approved(d.Cellar.Add))
	mux.Handle("/dashboard/cellar/item", approved(d.Cellar.Detail))
	mux.Handle("/dashboard/cellar/update", approved(d.Cellar.Update))
	mux.Handle("/dashboard/cellar/consume", approved(d.Cellar.Consume))
	mux.Handle("/dashboard/cellar/visibility", approved(d.Cellar.Visibility))
	mux.Handle("/dashboard/marketplace", approved(d.Cellar.Marketplace))

	mux.Handle("/dashboard/messages", approved(d.Messages.Conversations))
	mux.Handle("/dashboard/messages/thread", approved(d.Messages.Thread))
	mux.Handle("/dashboard/messages/send", approved(d.Messages.Send))

	mux.Handle("/dashboard/ai/advice", approved(d.AI.Advise))
	mux.Handle("/dashboard/ai/scan", approved(d.AI.ScanLabel))

	mux.Handle("/dashboard/data/export", approved(d.Data.Export))
	mux.Handle("/dashboard/data/import", approved(d.Data.Import))

	mux.Handle("/dashboard/admin/users", admin(d.Admin.Users))
	mux.Handle("/dashboard/admin/approve", admin(d.Admin.Approve))
	mux.Handle("/dashboard/admin/reject", admin(d.Admin.Reject))
	mux.Handle("/dashboard/admin/delete", admin(d.Admin.Delete))
	mux.Handle("/dashboard/admin/role", admin(d.Admin.ChangeRole))
	mux.Handle("/dashboard/admin/invite", admin(d.Admin.Invite))

	mux.HandleFunc("/health", d.health)
	mux.HandleFunc("/healthz", d.health)

	var h http.Handler = auth.Gate(mux)
	h = auth.Middleware(h)
	h = middleware.RequestID(h)
	h = middleware.RequestLog(h)
	h = middleware.Recover(h)
	return h
}

// health pings the database so load balancers see real readiness.
func (d Deps) health(w http.ResponseWriter, r *http.Request) {
	sqlDB, err := d.DB.DB()
	if err == nil {
		err = sqlDB.PingContext(r.Context())
	}
	if err != nil {
		httpx.JSONError(w, http.StatusServiceUnavailable, "db_unavailable", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"status": "ok"})
}
