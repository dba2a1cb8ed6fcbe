package routes

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/doubtdesk/doubtdesk-backend/api/controllers"
	"github.com/doubtdesk/doubtdesk-backend/api/middleware"
	"github.com/doubtdesk/doubtdesk-backend/internal/broadcast"
	"github.com/doubtdesk/doubtdesk-backend/internal/catalog"
	"github.com/doubtdesk/doubtdesk-backend/internal/debits"
	"github.com/doubtdesk/doubtdesk-backend/internal/ledger"
	"github.com/doubtdesk/doubtdesk-backend/internal/purchases"
	"github.com/doubtdesk/doubtdesk-backend/internal/wallet"
	"github.com/doubtdesk/doubtdesk-backend/internal/withdrawals"
	"github.com/doubtdesk/doubtdesk-backend/pkg/config"
	"github.com/doubtdesk/doubtdesk-backend/pkg/db"
	"github.com/doubtdesk/doubtdesk-backend/pkg/enums"
	"github.com/doubtdesk/doubtdesk-backend/pkg/logger"
	"github.com/doubtdesk/doubtdesk-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	hub *broadcast.Hub,
	ledgerService *ledger.Service,
	catalogService *catalog.Service,
	purchaseService *purchases.Service,
	debitService *debits.Service,
	walletService *wallet.Service,
	earningsService *wallet.Earnings,
	withdrawalService *withdrawals.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisClient))
	})

	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	r.Route("/api/public", func(r chi.Router) {
		r.Get("/ping", controllers.PublicPing())
	})

	// The payment gateway cannot present a bearer token; the HMAC signature
	// inside the callback body is the credential. The route is rate limited
	// per source IP since it is the only unauthenticated POST.
	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Use(middleware.RateLimit(redisClient, cfg.RateLimit.WebhookPerMinute, time.Minute, logg))
		r.Post("/razorpay", controllers.RazorpayCallback(purchaseService, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(redisClient, logg))

		r.Get("/ping", controllers.PrivatePing())
		r.Get("/packs", controllers.PacksList(catalogService, logg))

		r.Get("/tenants/{tenantId}/balance", controllers.TenantBalance(ledgerService, logg))
		r.Get("/tenants/{tenantId}/balance/stream", controllers.BalanceStream(hub, ledgerService, cfg.Broadcast, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole(string(enums.ActorRoleTenant), logg))
			r.Post("/purchases", controllers.PurchaseInitiate(purchaseService, logg))
			r.Get("/purchases", controllers.PurchaseList(purchaseService, logg))
			r.Get("/debits", controllers.DebitHistory(debitService, logg))
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAnyRole(logg, string(enums.ActorRoleService), string(enums.ActorRoleAdmin)))
			r.Post("/doubts/charge", controllers.DoubtCharge(debitService, logg))
			r.Post("/earnings", controllers.EarningCredit(earningsService, logg))
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole(string(enums.ActorRoleEarner), logg))
			r.Get("/wallet", controllers.WalletGet(walletService, logg))
			r.Get("/wallet/entries", controllers.WalletEntries(walletService, logg))
			r.Get("/wallet/stream", controllers.WalletStream(hub, walletService, cfg.Broadcast, logg))
			r.Post("/withdrawals", controllers.WithdrawalCreate(withdrawalService, logg))
			r.Get("/withdrawals", controllers.WithdrawalList(withdrawalService, logg))
			r.Get("/withdrawals/{withdrawalId}", controllers.WithdrawalDetail(withdrawalService, logg))
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RequireRole(string(enums.ActorRoleAdmin), logg))
		r.Use(middleware.Idempotency(redisClient, logg))

		r.Get("/ping", controllers.AdminPing())

		r.Post("/packs", controllers.AdminPackCreate(catalogService, logg))
		r.Post("/packs/{packId}/deactivate", controllers.AdminPackDeactivate(catalogService, logg))

		r.Get("/withdrawals", controllers.AdminWithdrawalQueue(withdrawalService, logg))
		r.Get("/withdrawals/{withdrawalId}", controllers.WithdrawalDetail(withdrawalService, logg))
		r.Post("/withdrawals/{withdrawalId}/approve", controllers.AdminWithdrawalApprove(withdrawalService, logg))
		r.Post("/withdrawals/{withdrawalId}/reject", controllers.AdminWithdrawalReject(withdrawalService, logg))
		r.Post("/withdrawals/{withdrawalId}/disburse", controllers.AdminWithdrawalDisburse(withdrawalService, logg))
	})

	return r
}
