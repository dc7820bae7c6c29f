package http

import (
	"context"
	"errors"
	"mime"
	"net/http"
	"time"

	"engdash/internal/export"
	"engdash/internal/log"
	"engdash/internal/middleware/trace"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().NoCache().Body(map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
	}).Write(w)
}

// handleReady checks templates and the row source.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	status := "ready"
	code := http.StatusOK
	checks := make(map[string]any)

	if s.templates == nil {
		checks["templates"] = "failed: templates not loaded"
		status, code = "not_ready", http.StatusServiceUnavailable
	} else {
		checks["templates"] = "ok"
	}

	if err := s.dash.Ready(ctx); err != nil {
		log.FromContext(ctx).WarnContext(ctx, "Readiness check failed", log.FieldError, err)
		checks["row_source"] = "failed: " + err.Error()
		status, code = "not_ready", http.StatusServiceUnavailable
	} else {
		checks["row_source"] = "ok"
	}

	checks["tables_version"] = s.dash.TablesVersion()
	checks["rate_limiter"] = map[string]any{
		"active_clients": s.limiter.ActiveClients(),
		"hits":           s.limiter.GetMetrics().TotalHits,
	}
	checks["requests"] = s.tracer.GetMetrics().TotalRequests

	NewJSONResponse().Status(code).NoCache().Body(map[string]any{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	}).Write(w)
}

// sourceFailed logs a row-source failure and answers 502.
func (s *Server) sourceFailed(w http.ResponseWriter, r *http.Request, op string, err error) {
	s.events.LogError(r.Context(), "Row source read failed", err, log.ComponentHTTP, op,
		log.NewFields().WithRequestID(trace.GetRequestID(r.Context())).WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery, "", ""))
	BadGatewayError(trace.GetRequestID(r.Context())).Write(w)
}

func (s *Server) badRequest(w http.ResponseWriter, r *http.Request, err error) {
	BadRequestError(err.Error(), trace.GetRequestID(r.Context())).Write(w)
}

func (s *Server) handleOverview(w http.ResponseWriter, r *http.Request) {
	threshold, err := ParseThreshold(r.URL.Query(), s.dash.DefaultThreshold())
	if err != nil {
		s.badRequest(w, r, err)
		return
	}

	ctx, cancel := s.requestContext(r)
	defer cancel()
	o, err := s.dash.Overview(ctx, threshold)
	if err != nil {
		s.sourceFailed(w, r, log.OpAggregate, err)
		return
	}
	NewJSONResponse().Body(toOverview(o)).Write(w)
}

func (s *Server) handleProjects(w http.ResponseWriter, r *http.Request) {
	threshold, err := ParseThreshold(r.URL.Query(), s.dash.DefaultThreshold())
	if err != nil {
		s.badRequest(w, r, err)
		return
	}

	ctx, cancel := s.requestContext(r)
	defer cancel()
	buckets, err := s.dash.Projects(ctx, threshold)
	if err != nil {
		s.sourceFailed(w, r, log.OpAggregate, err)
		return
	}
	NewJSONResponse().Body(toBuckets(buckets)).Write(w)
}

func (s *Server) handleSources(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.requestContext(r)
	defer cancel()
	buckets, err := s.dash.Sources(ctx)
	if err != nil {
		s.sourceFailed(w, r, log.OpAggregate, err)
		return
	}
	NewJSONResponse().Body(toBuckets(buckets)).Write(w)
}

func (s *Server) handleTypes(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.requestContext(r)
	defer cancel()
	buckets, err := s.dash.Types(ctx)
	if err != nil {
		s.sourceFailed(w, r, log.OpAggregate, err)
		return
	}
	NewJSONResponse().Body(toBuckets(buckets)).Write(w)
}

func (s *Server) handleOptions(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.requestContext(r)
	defer cancel()
	opts, err := s.dash.Options(ctx)
	if err != nil {
		s.sourceFailed(w, r, log.OpList, err)
		return
	}
	NewJSONResponse().Body(opts).Write(w)
}

func (s *Server) handleDrillDown(w http.ResponseWriter, r *http.Request) {
	dim, err := export.ParseDimension(r.PathValue("dimension"))
	if err != nil {
		NotFoundError(err.Error(), trace.GetRequestID(r.Context())).Write(w)
		return
	}
	name, err := RequireName(r.URL.Query())
	if err != nil {
		s.badRequest(w, r, err)
		return
	}

	ctx, cancel := s.requestContext(r)
	defer cancel()

	var (
		body any
		rows int
	)
	switch dim {
	case export.DimensionProduct:
		d, err := s.dash.ProductDrillDown(ctx, name)
		if err != nil {
			s.sourceFailed(w, r, log.OpDrillDown, err)
			return
		}
		body, rows = toProductDrill(d), len(d.Rows)
	case export.DimensionPerson:
		d, err := s.dash.PersonDrillDown(ctx, name)
		if err != nil {
			s.sourceFailed(w, r, log.OpDrillDown, err)
			return
		}
		body, rows = toPersonDrill(d), len(d.Rows)
	case export.DimensionProject:
		d, err := s.dash.ProjectDrillDown(ctx, name)
		if err != nil {
			s.sourceFailed(w, r, log.OpDrillDown, err)
			return
		}
		body, rows = toProjectDrill(d), len(d.Rows)
	}

	s.events.LogDrillDown(ctx, string(dim), name, rows)
	NewJSONResponse().Body(body).Write(w)
}

func (s *Server) handleDecode(w http.ResponseWriter, r *http.Request) {
	code := sanitizeInput(r.URL.Query().Get("code"))
	d := s.dash.Decode(code)
	NewJSONResponse().Body(decodeDTO{
		Code:          code,
		Valid:         d.Valid,
		Source:        d.Source,
		Type:          d.Type,
		Product:       d.Product,
		TablesVersion: s.dash.TablesVersion(),
	}).Write(w)
}

// handleRefresh drops the snapshot and announces the refresh.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	reason := sanitizeInput(r.URL.Query().Get("reason"))
	if reason == "" {
		reason = "manual"
	}
	s.dash.Refresh(r.Context(), reason)
	log.FromContext(r.Context()).InfoContext(r.Context(), "Snapshot refresh requested",
		log.FieldOperation, log.OpRefresh, "reason", reason)
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	requestID := trace.GetRequestID(r.Context())
	dim, err := ParseExportFile(r.PathValue("file"))
	if err != nil {
		NotFoundError(err.Error(), requestID).Write(w)
		return
	}
	name, err := RequireName(r.URL.Query())
	if err != nil {
		s.badRequest(w, r, err)
		return
	}

	ctx, cancel := s.requestContext(r)
	defer cancel()
	data, err := s.exporter.Export(ctx, dim, name)
	if err != nil {
		if errors.Is(err, export.ErrUnknownDimension) {
			NotFoundError(err.Error(), requestID).Write(w)
			return
		}
		s.sourceFailed(w, r, log.OpExport, err)
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": export.Filename(dim, name)}))
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
