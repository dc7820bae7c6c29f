package http

import (
	"context"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"engdash/internal/core"
	"engdash/internal/export"
	"engdash/internal/log"
	"engdash/internal/middleware/ratelimit"
	"engdash/internal/middleware/security"
	"engdash/internal/middleware/trace"
	"engdash/internal/report"
	"engdash/internal/services"
	appweb "engdash/web"
)

// Dashboard is the read side the handlers need. services.DashboardService
// implements it.
type Dashboard interface {
	DefaultThreshold() core.Hours
	Overview(ctx context.Context, threshold core.Hours) (services.Overview, error)
	Projects(ctx context.Context, threshold core.Hours) ([]core.Bucket, error)
	Sources(ctx context.Context) ([]core.Bucket, error)
	Types(ctx context.Context) ([]core.Bucket, error)
	Options(ctx context.Context) (services.FilterOptions, error)
	ProductDrillDown(ctx context.Context, product string) (report.ProductDrillDown, error)
	PersonDrillDown(ctx context.Context, person string) (report.PersonDrillDown, error)
	ProjectDrillDown(ctx context.Context, project string) (report.ProjectDrillDown, error)
	Decode(code string) core.DecodedCode
	TablesVersion() string
	Refresh(ctx context.Context, reason string)
	Ready(ctx context.Context) error
}

// Exporter renders drill-downs as workbooks.
type Exporter interface {
	Export(ctx context.Context, dim export.Dimension, name string) ([]byte, error)
}

// Options tunes the server. Zero values pick defaults.
type Options struct {
	Logger           *log.Logger
	RefreshPerMinute int
	TrustedProxies   []string
	RequestTimeout   time.Duration
}

type Server struct {
	http.Server
	dash      Dashboard
	exporter  Exporter
	templates *template.Template
	logger    *log.Logger
	events    *log.StructuredLogger

	limiter  *ratelimit.Limiter
	detector *security.Detector
	tracer   *trace.Middleware

	started        time.Time
	requestTimeout time.Duration
	shutdownOnce   sync.Once
}

// NewServer configures routes and templates, returning a ready-to-run http.Server.
func NewServer(addr string, dash Dashboard, exporter Exporter, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.FromContext(context.Background())
	}
	logger = logger.WithComponent(log.ComponentHTTP)
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 15 * time.Second
	}

	s := &Server{
		dash:           dash,
		exporter:       exporter,
		logger:         logger,
		events:         log.NewStructuredLogger(logger),
		limiter:        ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RefreshPerMinute}),
		detector:       security.NewDetector(),
		started:        time.Now(),
		requestTimeout: opts.RequestTimeout,
	}
	for _, cidr := range opts.TrustedProxies {
		if err := s.detector.AddTrustedProxy(cidr); err != nil {
			logger.Warn("Ignoring trusted proxy", log.FieldError, err)
		}
	}
	s.tracer = trace.NewMiddleware(logger, s.detector.ExtractClientIP)

	t, err := template.New("").Funcs(templateFuncs).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		logger.Error("Failed parsing templates",
			log.FieldError, err, "error_type", log.ErrorTypeConfiguration)
	}
	s.templates = t

	mux := http.NewServeMux()
	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("GET /static/", security.StaticAssetMiddleware(3600)(static))
	} else {
		logger.Warn("Failed to mount embedded static FS", log.FieldError, err)
	}

	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("GET /api/overview", s.handleOverview)
	mux.HandleFunc("GET /api/projects", s.handleProjects)
	mux.HandleFunc("GET /api/sources", s.handleSources)
	mux.HandleFunc("GET /api/types", s.handleTypes)
	mux.HandleFunc("GET /api/options", s.handleOptions)
	mux.HandleFunc("GET /api/drilldown/{dimension}", s.handleDrillDown)
	mux.HandleFunc("GET /api/decode", s.handleDecode)
	mux.HandleFunc("GET /export/{file}", s.handleExport)

	refresh := s.limiter.Middleware(s.detector.ExtractClientIP, http.MethodPost)(http.HandlerFunc(s.handleRefresh))
	mux.Handle("POST /api/refresh", refresh)

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	var handler http.Handler = headers.Middleware(mux)
	handler = log.Middleware(logger, requestID)(handler)
	handler = s.tracer.Middleware(handler)
	handler = s.detector.Middleware(handler)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      opts.RequestTimeout + 5*time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// Shutdown gracefully shuts down the server and its background routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// Run serves until ctx is cancelled, then shuts down within grace.
func (s *Server) Run(ctx context.Context, grace time.Duration) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server listening", "addr", s.Addr)
		if err := s.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), grace)
	defer cancel()
	s.logger.Info("HTTP server shutting down", log.FieldOperation, log.OpShutdown)
	if err := s.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}

func requestID(r *http.Request) string {
	return trace.GetRequestID(r.Context())
}

func (s *Server) requestContext(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), s.requestTimeout)
}
