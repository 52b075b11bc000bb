package server

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/KaramelBytes/autodash/internal/dashboard"
	"github.com/KaramelBytes/autodash/internal/schema"
	"github.com/KaramelBytes/autodash/internal/table"
	"github.com/KaramelBytes/autodash/internal/views"
)

// defaultUploadName is used for raw uploads without ?name=.
const defaultUploadName = "upload.csv"

// SessionResponse describes a stored session.
type SessionResponse struct {
	ID         uuid.UUID           `json:"id"`
	Name       string              `json:"name"`
	Rows       int                 `json:"rows"`
	CreatedAt  time.Time           `json:"created_at"`
	Roles      schema.Assignment   `json:"roles"`
	Columns    []schema.ColumnRole `json:"columns"`
	TimeBounds *TimeBounds         `json:"time_bounds,omitempty"`
	Warnings   []string            `json:"warnings"`
}

// TimeBounds is the default date range of a session with a time column.
type TimeBounds struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// SegmentsResponse lists the values a segment filter can select.
type SegmentsResponse struct {
	Dimension string   `json:"dimension"`
	Values    []string `json:"values"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "sessions": s.store.Len()})
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	if s.config.MaxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.config.MaxUploadBytes)
	}

	body, name, err := uploadSource(r)
	if err != nil {
		s.writeUploadError(w, err)
		return
	}
	defer body.Close()

	tbl, err := table.Read(body, name, s.config.ReadOptions)
	if err != nil {
		s.writeUploadError(w, err)
		return
	}

	sess := dashboard.New(name, tbl)
	id, evicted := s.store.Add(sess)
	for _, old := range evicted {
		s.logger.Info("session evicted", "id", old)
	}
	s.logger.Info("session created", "id", id, "name", name, "rows", sess.Rows(), "columns", len(tbl.Columns))
	s.writeJSON(w, http.StatusCreated, sessionResponse(id, sess))
}

// uploadSource returns the multipart "file" part, or the raw body.
func uploadSource(r *http.Request) (io.ReadCloser, string, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		file, hdr, err := r.FormFile("file")
		if err != nil {
			return nil, "", fmt.Errorf("read multipart file: %w", err)
		}
		name := hdr.Filename
		if name == "" {
			name = defaultUploadName
		}
		return file, name, nil
	}
	name := r.URL.Query().Get("name")
	if name == "" {
		name = defaultUploadName
	}
	return r.Body, name, nil
}

func (s *Server) writeUploadError(w http.ResponseWriter, err error) {
	var mbe *http.MaxBytesError
	if errors.As(err, &mbe) {
		s.writeError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("upload exceeds %d bytes", mbe.Limit))
		return
	}
	s.logger.Debug("upload rejected", "error", err)
	s.writeError(w, http.StatusBadRequest, fmt.Sprintf("unable to read file: %v", err))
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	id, sess, ok := s.lookup(w, r)
	if !ok {
		return
	}
	s.writeJSON(w, http.StatusOK, sessionResponse(id, sess))
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil || !s.store.Delete(id) {
		s.writeError(w, http.StatusNotFound, "session not found")
		return
	}
	s.logger.Info("session deleted", "id", id)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	_, sess, ok := s.lookup(w, r)
	if !ok {
		return
	}
	f, p, err := parseDashboardQuery(r, s.config.DefaultGranularity)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	d, err := sess.Build(f, p)
	if err != nil {
		var pe *views.ParamError
		if errors.As(err, &pe) || errors.Is(err, dashboard.ErrUnknownSegment) || errors.Is(err, dashboard.ErrInvalidRange) {
			s.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.logger.Error("build dashboard", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to build dashboard")
		return
	}
	s.writeJSON(w, http.StatusOK, d)
}

func (s *Server) handleSegments(w http.ResponseWriter, r *http.Request) {
	_, sess, ok := s.lookup(w, r)
	if !ok {
		return
	}
	dim := chi.URLParam(r, "dimension")
	vals, err := sess.SegmentValues(dim)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, SegmentsResponse{Dimension: dim, Values: vals})
}

func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (uuid.UUID, *dashboard.Session, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, http.StatusNotFound, "session not found")
		return id, nil, false
	}
	sess, ok := s.store.Get(id)
	if !ok {
		s.writeError(w, http.StatusNotFound, "session not found")
		return id, nil, false
	}
	return id, sess, true
}

func sessionResponse(id uuid.UUID, sess *dashboard.Session) SessionResponse {
	resp := SessionResponse{
		ID:        id,
		Name:      sess.Name,
		Rows:      sess.Rows(),
		CreatedAt: sess.CreatedAt,
		Roles:     sess.Roles(),
		Columns:   sess.Classification().Columns,
		Warnings:  sess.Warnings(),
	}
	if resp.Warnings == nil {
		resp.Warnings = []string{}
	}
	if from, to, ok := sess.Bounds(); ok {
		resp.TimeBounds = &TimeBounds{From: from, To: to}
	}
	return resp
}

// parseDashboardQuery reads filter and view parameters from the query string.
// values may be repeated or comma separated.
func parseDashboardQuery(r *http.Request, def views.Granularity) (dashboard.Filter, views.Params, error) {
	q := r.URL.Query()
	var f dashboard.Filter
	var p views.Params

	raw := q.Get("granularity")
	if raw == "" {
		raw = string(def)
	}
	g, err := views.ParseGranularity(raw)
	if err != nil {
		return f, p, err
	}
	p = views.Params{
		Granularity:  g,
		GroupBy:      q.Get("group_by"),
		Distribution: q.Get("dist"),
		X:            q.Get("x"),
		Y:            q.Get("y"),
		ColorBy:      q.Get("color_by"),
	}

	if f.From, err = dashboard.ParseDate(q.Get("from")); err != nil {
		return f, p, fmt.Errorf("from: %w", err)
	}
	if f.To, err = dashboard.ParseDate(q.Get("to")); err != nil {
		return f, p, fmt.Errorf("to: %w", err)
	}
	f.Segment = q.Get("segment")
	for _, vs := range q["values"] {
		for _, v := range strings.Split(vs, ",") {
			if v = strings.TrimSpace(v); v != "" {
				f.Values = append(f.Values, v)
			}
		}
	}
	return f, p, nil
}
