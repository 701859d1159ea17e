package web

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/aviationwx/aviationwx/internal/airports"
	"github.com/aviationwx/aviationwx/internal/config"
	"github.com/aviationwx/aviationwx/internal/guides"
	"github.com/aviationwx/aviationwx/internal/observability"
	"github.com/aviationwx/aviationwx/internal/ratelimit"
	"github.com/aviationwx/aviationwx/internal/status"
	"github.com/aviationwx/aviationwx/internal/storage/sqlite"
	"github.com/aviationwx/aviationwx/internal/weather"
	"github.com/aviationwx/aviationwx/internal/webcam"
	"github.com/aviationwx/aviationwx/internal/websocket"
	"github.com/aviationwx/aviationwx/pkg/logger"
)

// Router wires the whole HTTP surface: pages, JSON API, embeds,
// webcam frames, metrics and the websocket endpoint
type Router struct {
	config   *config.Config
	handler  *Handler
	limiter  *ratelimit.Limiter
	wsServer *websocket.Server
	logger   *logger.Logger
}

// NewRouter creates a new router with all services wired in
func NewRouter(
	cfg *config.Config,
	registry *airports.Registry,
	weatherSvc *weather.Service,
	webcamSvc *webcam.Service,
	guideLib *guides.Library,
	monitor *status.Monitor,
	observations *sqlite.ObservationStorage,
	limiter *ratelimit.Limiter,
	wsServer *websocket.Server,
	log *logger.Logger,
) *Router {
	engine := NewEngine(cfg.Server.TemplatesDir, log)
	handler := NewHandler(cfg, registry, weatherSvc, webcamSvc, guideLib,
		monitor, observations, engine, log)
	return &Router{
		config:   cfg,
		handler:  handler,
		limiter:  limiter,
		wsServer: wsServer,
		logger:   log.Named("router"),
	}
}

// Routes builds the chi handler tree
func (rt *Router) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// The websocket endpoint hijacks the connection, so it stays
	// outside the metrics and timeout wrappers. Connected clients are
	// tracked by their own gauge.
	r.Group(func(r chi.Router) {
		r.Get("/ws", rt.wsServer.HandleConnection)
	})

	r.Group(func(r chi.Router) {
		r.Use(MetricsMiddleware)
		r.Use(middleware.Timeout(60 * time.Second))

		// Pages
		r.Get("/", rt.handler.Home)
		r.Get("/airports", rt.handler.Directory)
		r.Get("/airports/{ident}", rt.handler.LegacyDashboardRedirect)
		r.Get("/guides", rt.handler.GuideIndex)
		r.Get("/guides/{slug}", rt.handler.GuidePage)
		r.Get("/sitemap.xml", rt.handler.Sitemap)
		r.Get("/robots.txt", rt.handler.Robots)
		r.Get("/status", rt.handler.StatusPage)
		r.Get("/status.json", rt.handler.StatusJSON)
		r.Method(http.MethodGet, "/metrics", observability.MetricsHandler())

		// Config generator. The POST is rate limited per client IP.
		r.Get("/config-generator", rt.handler.GeneratorForm)
		r.Group(func(r chi.Router) {
			r.Use(rt.limiter.Middleware(rt.handler.LimitedPage))
			r.Post("/config-generator", rt.handler.GeneratorSubmit)
		})

		// Embed endpoints are loaded cross-origin by third-party pages
		r.Get("/embed-configurator", rt.handler.EmbedConfigurator)
		r.Group(func(r chi.Router) {
			r.Use(rt.corsHandler())
			r.Use(rt.limiter.Middleware(ratelimit.JSONLimited))
			r.Get("/embed.js", rt.handler.EmbedLoader)
			r.Get("/embed/{ident}", rt.handler.EmbedWidget)
			r.Get("/embed/{ident}/badge.svg", rt.handler.EmbedBadge)
		})

		// JSON API
		r.Route("/api/v1", func(r chi.Router) {
			r.Use(rt.corsHandler())
			r.Use(rt.limiter.Middleware(ratelimit.JSONLimited))
			r.Get("/airports", rt.handler.APIAirports)
			r.Get("/airports/{ident}", rt.handler.APIAirport)
			r.Get("/airports/{ident}/wx", rt.handler.APIWeather)
			r.Get("/airports/{ident}/wx/history", rt.handler.APIWeatherHistory)
		})

		// Webcam frames
		r.Get("/wx/{ident}/cam/{camID}", rt.handler.WebcamFrame)

		// Site assets
		staticHandler := NewStaticFileHandler(rt.config.Server.StaticFilesDir, rt.logger)
		r.Get("/static/*", staticHandler.ServeHTTP)

		// Airport dashboards live at the root. Literal routes above
		// win over the pattern, so /airports and /guides stay theirs.
		r.Get("/{ident}", rt.handler.Dashboard)

		r.NotFound(rt.handler.NotFound)
	})

	return r
}

// corsHandler builds the CORS middleware for API and embed routes
func (rt *Router) corsHandler() func(http.Handler) http.Handler {
	origins := rt.config.Server.CORSAllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	})
}
