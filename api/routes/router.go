package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/stagepass/stagepass-backend/api/controllers"
	webhookcontrollers "github.com/stagepass/stagepass-backend/api/controllers/webhooks"
	"github.com/stagepass/stagepass-backend/api/middleware"
	"github.com/stagepass/stagepass-backend/internal/checkin"
	checkoutsvc "github.com/stagepass/stagepass-backend/internal/checkout"
	"github.com/stagepass/stagepass-backend/internal/codes"
	"github.com/stagepass/stagepass-backend/internal/orders"
	"github.com/stagepass/stagepass-backend/internal/performers"
	"github.com/stagepass/stagepass-backend/internal/sessions"
	"github.com/stagepass/stagepass-backend/internal/tickets"
	stripewebhook "github.com/stagepass/stagepass-backend/internal/webhooks/stripe"
	"github.com/stagepass/stagepass-backend/pkg/config"
	"github.com/stagepass/stagepass-backend/pkg/db"
	"github.com/stagepass/stagepass-backend/pkg/logger"
	"github.com/stagepass/stagepass-backend/pkg/redis"
	"github.com/stagepass/stagepass-backend/pkg/stripe"
)

type RouterParams struct {
	Config       *config.Config
	Logger       *logger.Logger
	DB           db.Pinger
	Redis        *redis.Client
	PromRegistry *prometheus.Registry

	Sessions    sessions.Service
	Performers  performers.Service
	Codes       codes.Service
	Checkout    checkoutsvc.Service
	Orders      orders.Service
	Tickets     tickets.Service
	CheckIn     checkin.Service
	StripeCli   *stripe.Client
	StripeHooks *stripewebhook.Service
	HookGuard   *stripewebhook.IdempotencyGuard
}

func NewRouter(p RouterParams) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(p.Logger),
		middleware.RequestID(p.Logger),
		middleware.Logging(p.Logger),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(p.Config))
		r.Get("/ready", controllers.HealthReady(p.Config, p.Logger, p.DB, redisPinger(p.Redis)))
	})

	if p.PromRegistry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(p.PromRegistry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/sessions", func(r chi.Router) {
			r.Get("/", controllers.SessionList(p.Sessions, p.Logger))
			r.Get("/{sessionID}", controllers.SessionDetail(p.Sessions, p.Logger))
		})

		r.Route("/performers", func(r chi.Router) {
			r.Get("/", controllers.PerformerList(p.Performers, p.Logger))
			r.Get("/{performerID}", controllers.PerformerDetail(p.Performers, p.Logger))
		})

		r.Post("/codes/validate", controllers.CodesValidate(p.Codes, p.Logger))
		r.Post("/checkout", controllers.Checkout(p.Checkout, p.Logger))

		r.Route("/orders", func(r chi.Router) {
			r.Get("/{orderID}", controllers.OrderDetail(p.Orders, p.Logger))
			r.Get("/by-provider-session/{providerSessionID}", controllers.OrderByProviderSession(p.Orders, p.Logger))
		})

		r.Route("/tickets", func(r chi.Router) {
			r.Get("/{code}/verify", controllers.TicketVerify(p.CheckIn, p.Logger))
			r.Post("/{code}/check-in", controllers.TicketCheckIn(p.CheckIn, p.Logger))
			r.Get("/{code}/qr", controllers.TicketQR(p.Tickets, p.Logger))
		})

		r.Post("/webhooks/stripe", webhookcontrollers.StripeWebhook(p.StripeHooks, p.StripeCli, p.HookGuard, p.Logger))
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(p.Config.JWT, p.Logger))
		r.Use(middleware.RequireAdmin(p.Logger))

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", controllers.AdminOrderList(p.Orders, p.Logger))
			r.Post("/{orderID}/cancel", controllers.AdminOrderCancel(p.Orders, p.Logger))
			r.Post("/{orderID}/refund", controllers.AdminOrderRefund(p.Orders, p.Logger))
		})

		r.Route("/codes", func(r chi.Router) {
			r.Get("/", controllers.AdminCodeList(p.Codes, p.Logger))
			r.Post("/", controllers.AdminCodeIssue(p.Codes, p.Logger))
			r.Post("/batch", controllers.AdminCodeIssueBatch(p.Codes, p.Logger))
		})

		r.Post("/performers", controllers.AdminPerformerCreate(p.Performers, p.Logger))

		r.Route("/sessions/{sessionID}", func(r chi.Router) {
			r.Get("/summary", controllers.AdminSessionSummary(p.Sessions, p.Logger))
			r.Post("/sale-status", controllers.AdminSessionSaleStatus(p.Sessions, p.Logger))
		})
	})

	return r
}

// redisPinger keeps a nil *redis.Client from masquerading as a non-nil
// interface inside HealthReady.
func redisPinger(client *redis.Client) redis.Pinger {
	if client == nil {
		return nil
	}
	return client
}
