package http

import (
	"bytes"
	"net/http"

	"engdash/internal/log"
)

// handleIndex renders the dashboard page. Drill-downs are shown for every
// selection present in the query string.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if s.templates == nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Templates not loaded",
			log.FieldPath, r.URL.Path,
			"error_type", log.ErrorTypeConfiguration)
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}

	q := r.URL.Query()
	status := http.StatusOK
	var pageErr string
	threshold, err := ParseThreshold(q, s.dash.DefaultThreshold())
	if err != nil {
		status, pageErr = http.StatusBadRequest, err.Error()
	}

	ctx, cancel := s.requestContext(r)
	defer cancel()

	o, err := s.dash.Overview(ctx, threshold)
	if err != nil {
		s.events.LogError(ctx, "Row source read failed", err, log.ComponentHTTP, log.OpRender, log.NewFields())
		s.render(w, r, http.StatusBadGateway, "error.html", map[string]string{
			"Message": "Time entries are temporarily unavailable.",
		})
		return
	}

	data := newPageData(o)
	data.Error = pageErr
	data.SelectedProduct = sanitizeInput(q.Get("product"))
	data.SelectedPerson = sanitizeInput(q.Get("person"))
	data.SelectedProject = sanitizeInput(q.Get("project"))

	if name := data.SelectedProduct; name != "" {
		d, err := s.dash.ProductDrillDown(ctx, name)
		if err != nil {
			s.sourceFailed(w, r, log.OpDrillDown, err)
			return
		}
		data.Drills = append(data.Drills, productView(d))
	}
	if name := data.SelectedPerson; name != "" {
		d, err := s.dash.PersonDrillDown(ctx, name)
		if err != nil {
			s.sourceFailed(w, r, log.OpDrillDown, err)
			return
		}
		data.Drills = append(data.Drills, personView(d))
	}
	if name := data.SelectedProject; name != "" {
		d, err := s.dash.ProjectDrillDown(ctx, name)
		if err != nil {
			s.sourceFailed(w, r, log.OpDrillDown, err)
			return
		}
		data.Drills = append(data.Drills, projectView(d))
	}

	s.render(w, r, status, "index.html", data)
}

// render executes into a buffer first so a template failure still yields a
// clean 500.
func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, name string, data any) {
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Template execution failed",
			log.FieldError, err, "template", name, log.FieldOperation, log.OpRender)
		http.Error(w, "failed to render page", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}
