package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/staffline/boond-sync/internal/model"
	"github.com/staffline/boond-sync/internal/resilience"
	"github.com/staffline/boond-sync/internal/store"
	"github.com/staffline/boond-sync/pkg/boond"
)

func (s *Server) environment(r *http.Request) (boond.Environment, error) {
	return boond.EnvironmentOr(r.URL.Query().Get("environment"), s.defaultEnv)
}

// client resolves the requested environment and its client. On failure the
// response is written and ok is false.
func (s *Server) client(w http.ResponseWriter, r *http.Request) (boond.Client, boond.Environment, bool) {
	env, err := s.environment(r)
	if err != nil {
		respondError(w, "", err)
		return nil, "", false
	}
	c, err := s.svc.Client(env)
	if err != nil {
		respondError(w, env, err)
		return nil, env, false
	}
	return c, env, true
}

func badRequest(format string, args ...any) error {
	return &boond.APIError{Kind: boond.ErrValidation, Message: fmt.Sprintf(format, args...)}
}

func queryInt(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, badRequest("%s must be an integer", name)
	}
	return n, nil
}

func (s *Server) listRecords(w http.ResponseWriter, r *http.Request) {
	c, env, ok := s.client(w, r)
	if !ok {
		return
	}
	rt, err := boond.ParseResourceType(chi.URLParam(r, "type"))
	if err != nil {
		respondError(w, env, err)
		return
	}
	page, err := queryInt(r, "page")
	if err != nil {
		respondError(w, env, err)
		return
	}
	maxResults, err := queryInt(r, "maxResults")
	if err != nil {
		respondError(w, env, err)
		return
	}
	q := r.URL.Query()
	res, err := c.List(r.Context(), rt, boond.ListFilter{
		Page:       page,
		MaxResults: maxResults,
		Keywords:   q.Get("keywords"),
		State:      q.Get("state"),
		Company:    q.Get("company"),
	})
	if err != nil {
		respondError(w, env, err)
		return
	}
	respondOK(w, env, res)
}

func (s *Server) getRecord(w http.ResponseWriter, r *http.Request) {
	c, env, ok := s.client(w, r)
	if !ok {
		return
	}
	rt, err := boond.ParseResourceType(chi.URLParam(r, "type"))
	if err != nil {
		respondError(w, env, err)
		return
	}
	id, err := boond.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, env, err)
		return
	}
	view, err := boond.ParseDetailView(r.URL.Query().Get("tab"))
	if err != nil {
		respondError(w, env, err)
		return
	}
	ent, err := c.Get(r.Context(), rt, id, view)
	if err != nil {
		respondError(w, env, err)
		return
	}
	respondOK(w, env, ent)
}

func (s *Server) getResumes(w http.ResponseWriter, r *http.Request) {
	c, env, ok := s.client(w, r)
	if !ok {
		return
	}
	rt, err := boond.ParseResourceType(chi.URLParam(r, "type"))
	if err != nil {
		respondError(w, env, err)
		return
	}
	id, err := boond.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, env, err)
		return
	}
	docs, err := c.GetResumes(r.Context(), rt, id)
	if err != nil {
		respondError(w, env, err)
		return
	}
	respondOK(w, env, docs)
}

func (s *Server) downloadDocument(w http.ResponseWriter, r *http.Request) {
	c, env, ok := s.client(w, r)
	if !ok {
		return
	}
	id, err := boond.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, env, err)
		return
	}
	doc, err := c.DownloadDocument(r.Context(), id)
	if err != nil {
		respondError(w, env, err)
		return
	}
	mimeType := doc.MIMEType
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", mimeType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", doc.Name))
	w.Header().Set("Content-Length", strconv.Itoa(len(doc.Data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(doc.Data)
}

func (s *Server) snapshot(w http.ResponseWriter, r *http.Request) {
	env, err := s.environment(r)
	if err != nil {
		respondError(w, "", err)
		return
	}
	snap, err := s.svc.FetchAllData(r.Context(), env)
	if snap == nil {
		respondError(w, env, err)
		return
	}
	// A partial snapshot is still returned; the envelope carries the error.
	body := envelope{Success: err == nil, Environment: env, Data: snap}
	if err != nil {
		body.Error = err.Error()
		body.PermissionError = boond.IsPermission(err)
	}
	writeJSON(w, http.StatusOK, body)
}

func (s *Server) quality(w http.ResponseWriter, r *http.Request) {
	env, err := s.environment(r)
	if err != nil {
		respondError(w, "", err)
		return
	}
	rep, err := s.svc.AnalyzeAllDataQuality(r.Context(), env)
	if err != nil {
		respondError(w, env, err)
		return
	}
	respondOK(w, env, rep)
}

func (s *Server) prodToSandbox(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if s.syncTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.syncTimeout)
		defer cancel()
	}
	res, err := s.svc.SyncProdToSandbox(ctx)
	if err != nil {
		respondError(w, boond.Sandbox, err)
		return
	}
	respondOK(w, boond.Sandbox, res)
}

func (s *Server) listRuns(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		respondError(w, "", err)
		return
	}
	offset, err := queryInt(r, "offset")
	if err != nil {
		respondError(w, "", err)
		return
	}
	filter := store.RunFilter{Limit: limit, Offset: offset}
	if status := strings.TrimSpace(r.URL.Query().Get("status")); status != "" {
		filter.Status = model.RunStatus(strings.ToLower(status))
	}
	runs, err := s.runs.ListRuns(r.Context(), filter)
	if err != nil {
		respondError(w, "", err)
		return
	}
	respondOK(w, "", runs)
}

func (s *Server) getRun(w http.ResponseWriter, r *http.Request) {
	run, err := s.runs.GetRun(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, "", err)
		return
	}
	respondOK(w, "", run)
}

type healthResponse struct {
	Status   string            `json:"status"`
	Circuits map[string]string `json:"circuits,omitempty"`
}

// health reports degraded while any environment circuit is not closed.
func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	resp := healthResponse{Status: "ok"}
	if s.breakers != nil {
		resp.Circuits = map[string]string{}
		for env, st := range s.breakers.States() {
			resp.Circuits[env] = st.String()
			if st != resilience.CircuitClosed {
				resp.Status = "degraded"
			}
		}
	}
	writeJSON(w, http.StatusOK, resp)
}
