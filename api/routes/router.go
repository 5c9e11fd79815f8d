package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/krestenlaust/micro-stregsystemet/api/controllers"
	"github.com/krestenlaust/micro-stregsystemet/api/middleware"
	"github.com/krestenlaust/micro-stregsystemet/api/responses"
	"github.com/krestenlaust/micro-stregsystemet/internal/members"
	"github.com/krestenlaust/micro-stregsystemet/internal/products"
	"github.com/krestenlaust/micro-stregsystemet/internal/quickbuy"
	"github.com/krestenlaust/micro-stregsystemet/internal/sales"
	"github.com/krestenlaust/micro-stregsystemet/pkg/config"
	"github.com/krestenlaust/micro-stregsystemet/pkg/db"
	pkgerrors "github.com/krestenlaust/micro-stregsystemet/pkg/errors"
	"github.com/krestenlaust/micro-stregsystemet/pkg/logger"
	"github.com/krestenlaust/micro-stregsystemet/pkg/redis"
)

// NewRouter wires the JSON API. redisClient and gatherer may be nil; without
// redis, sales are not replayable by Idempotency-Key.
func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	gatherer prometheus.Gatherer,
	quickbuyService quickbuy.Service,
	memberRepo members.Repository,
	saleRepo sales.Repository,
	productRepo *products.Repository,
	aliasRepo *products.AliasRepository,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "route not found"))
	})

	readiness := map[string]controllers.Pinger{"db": dbP}
	var idempotencyStore redis.IdempotencyStore
	if redisClient != nil {
		readiness["redis"] = redisClient
		idempotencyStore = redisClient
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, readiness))
	})

	if gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(middleware.Idempotency(idempotencyStore, cfg.Sale.IdempotencyTTL, logg))
			r.Post("/sale", controllers.Sale(quickbuyService, logg))
			r.Post("/quickbuy", controllers.Quickbuy(quickbuyService, logg))
		})

		r.Route("/products", func(r chi.Router) {
			r.Get("/active_products", controllers.ActiveProducts(productRepo, logg))
			r.Get("/named_products", controllers.NamedProducts(aliasRepo, logg))
		})

		r.Route("/member", func(r chi.Router) {
			r.Get("/", controllers.MemberInfo(memberRepo, logg))
			r.Get("/active", controllers.MemberActive(memberRepo, logg))
			r.Get("/balance", controllers.MemberBalance(memberRepo, logg))
			r.Get("/get_id", controllers.MemberID(memberRepo, logg))
			r.Get("/sales", controllers.MemberSales(saleRepo, productRepo, logg))
		})
	})

	return r
}
