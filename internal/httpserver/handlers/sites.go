package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/multisite/internal/domain"
	"github.com/MrSnakeDoc/multisite/internal/httpserver/deps"
	"github.com/MrSnakeDoc/multisite/internal/jobs"
	"github.com/MrSnakeDoc/multisite/internal/logger"
	"github.com/MrSnakeDoc/multisite/internal/sites"
)

const (
	maxBodyBytes   = 64 << 10
	defaultJobWait = 10 * time.Second
)

type siteMapResponse struct {
	Active   []*domain.Site `json:"active"`
	Inactive []*domain.Site `json:"inactive"`
}

type createSiteRequest struct {
	DisplayName string `json:"displayName"`
	Hostname    string `json:"hostname"`
}

type jobResponse struct {
	JobID string       `json:"jobId"`
	Job   string       `json:"job"`
	Site  *domain.Site `json:"site,omitempty"`
}

// ListSites returns every site split by active flag.
func ListSites(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		m, err := d.Sites.GetSiteMap(r.Context())
		if err != nil {
			writeError(w, d.Logger, err)
			return
		}
		writeJSON(w, d.Logger, http.StatusOK, siteMapResponse{
			Active:   nonNil(m.Active),
			Inactive: nonNil(m.Inactive),
		})
	}
}

// GetSite returns one site. "global" resolves to the global site.
func GetSite(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid := chi.URLParam(r, "uid")
		site, err := d.Sites.GetByUID(r.Context(), uid)
		if err != nil {
			writeError(w, d.Logger, err)
			return
		}
		if site == nil {
			writeError(w, d.Logger, domain.NotFound(uid))
			return
		}
		writeJSON(w, d.Logger, http.StatusOK, site)
	}
}

// CreateSite stores a new inactive site.
func CreateSite(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createSiteRequest
		dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			writeError(w, d.Logger, fmt.Errorf("%w: invalid body: %v", domain.ErrValidation, err))
			return
		}

		site, err := d.Sites.Create(r.Context(), sites.NewSite{DisplayName: req.DisplayName, Hostname: req.Hostname})
		if err != nil {
			writeError(w, d.Logger, err)
			return
		}

		d.Logger.Info("site created",
			logger.Site(site.UID),
			logger.String("display_name", site.DisplayName),
			logger.String("hostname", site.Hostname))
		w.Header().Set("Location", "/api/sites/"+site.UID)
		writeJSON(w, d.Logger, http.StatusCreated, site)
	}
}

// ActivateSite starts an activation job.
func ActivateSite(d deps.Deps) http.HandlerFunc {
	return transition(d, jobs.Activate)
}

// DeactivateSite starts a deactivation job.
func DeactivateSite(d deps.Deps) http.HandlerFunc {
	return transition(d, jobs.Deactivate)
}

type jobOutcome struct {
	site *domain.Site
	err  error
}

// transition answers 202 with the job id, or with ?wait=true blocks until the
// local run finishes (bounded by d.JobWait) and answers with its outcome.
func transition(d deps.Deps, t jobs.Transition) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid := chi.URLParam(r, "uid")
		if domain.ParseRef(uid).IsGlobal() {
			writeError(w, d.Logger, domain.Precondition("the global site is always active", uid))
			return
		}

		ok, err := d.Sites.Exists(r.Context(), uid)
		if err != nil {
			writeError(w, d.Logger, err)
			return
		}
		if !ok {
			writeError(w, d.Logger, domain.NotFound(uid))
			return
		}

		wait, _ := strconv.ParseBool(r.URL.Query().Get("wait"))
		done := make(chan jobOutcome, 1)
		callback := func(site *domain.Site, err error) { done <- jobOutcome{site: site, err: err} }

		var jobID string
		if t == jobs.Activate {
			jobID = d.Runner.Activate(r.Context(), uid, callback)
		} else {
			jobID = d.Runner.Deactivate(r.Context(), uid, callback)
		}
		resp := jobResponse{JobID: jobID, Job: fmt.Sprintf("%s_%s", t, uid)}

		if !wait {
			writeJSON(w, d.Logger, http.StatusAccepted, resp)
			return
		}

		limit := d.JobWait
		if limit <= 0 {
			limit = defaultJobWait
		}
		timer := time.NewTimer(limit)
		defer timer.Stop()

		select {
		case out := <-done:
			if out.err != nil {
				writeError(w, d.Logger, out.err)
				return
			}
			resp.Site = out.site
			writeJSON(w, d.Logger, http.StatusOK, resp)
		case <-timer.C:
			writeJSON(w, d.Logger, http.StatusAccepted, resp)
		case <-r.Context().Done():
		}
	}
}

// StartTraffic opens public dispatch for an already active site.
func StartTraffic(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		site, err := d.Runner.StartAcceptingSiteTraffic(r.Context(), chi.URLParam(r, "uid"))
		if err != nil {
			writeError(w, d.Logger, err)
			return
		}
		writeJSON(w, d.Logger, http.StatusOK, site)
	}
}

// StopTraffic restricts an inactive site to admin routes.
func StopTraffic(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		site, err := d.Runner.StopAcceptingSiteTraffic(r.Context(), chi.URLParam(r, "uid"))
		if err != nil {
			writeError(w, d.Logger, err)
			return
		}
		writeJSON(w, d.Logger, http.StatusOK, site)
	}
}

func nonNil(s []*domain.Site) []*domain.Site {
	if s == nil {
		return []*domain.Site{}
	}
	return s
}
