// Package webui serves a read-only browser over a store.Store's confirmed
// cherry-pick results, the ambient HTTP surface the CLI collaborator can
// optionally expose. It mirrors the teacher's pkg/http: a chi.Router with
// the same middleware stack, a JSON branch for non-browser clients, and
// html/template rendering for everyone else.
package webui

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"os"
	"regexp"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/thehowl/cherrysniff/pkg/detect"
	"github.com/thehowl/cherrysniff/pkg/storage"
	"github.com/thehowl/cherrysniff/pkg/store"
	"github.com/thehowl/cherrysniff/pkg/webui/templates"
)

// Server serves the results a Store holds for a single repository.
type Server struct {
	RepoPath string
	Store    *store.Store
	Output   io.Writer

	// Archive, if set, is consulted for a commit's archived canonical diff
	// text when rendering its commit page. Nil means no archive was
	// configured for this run.
	Archive storage.Storage
}

// Router builds the chi.Router, wired the same way the teacher wires
// RealIP/RequestLogger/Recoverer/Timeout around its diff viewer.
func (s *Server) Router() chi.Router {
	out := s.Output
	if out == nil {
		out = os.Stdout
	}
	rt := chi.NewRouter()
	rt.Use(
		middleware.RealIP,
		middleware.RequestLogger(&middleware.DefaultLogFormatter{
			Logger: log.New(out, "", log.LstdFlags),
		}),
		middleware.Recoverer,
		middleware.Timeout(time.Second*60),
	)
	rt.Get("/", s.index)
	rt.Get("/results.json", s.resultsJSON)
	rt.Get("/{id}", s.commit)
	return rt
}

var reBrowser = regexp.MustCompile("(?i)(?:chrome|firefox|safari|gecko)/")

func isBrowser(r *http.Request) bool {
	return reBrowser.MatchString(r.UserAgent())
}

func (s *Server) index(w http.ResponseWriter, r *http.Request) {
	results, err := s.Store.All()
	if err != nil {
		log.Printf("webui: loading results: %v", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	if !isBrowser(r) {
		s.writeJSON(w, results)
		return
	}
	err = templates.Templates.ExecuteTemplate(w, "index.tmpl", struct {
		RepoPath string
		Results  []detect.Result
	}{s.RepoPath, results})
	if err != nil {
		log.Printf("webui: rendering index: %v", err)
	}
}

func (s *Server) resultsJSON(w http.ResponseWriter, r *http.Request) {
	results, err := s.Store.All()
	if err != nil {
		log.Printf("webui: loading results: %v", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	s.writeJSON(w, results)
}

func (s *Server) writeJSON(w http.ResponseWriter, results []detect.Result) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	if err := json.NewEncoder(w).Encode(results); err != nil {
		log.Printf("webui: encoding results: %v", err)
	}
}

// commit shows every confirmed match a single commit ID takes part in,
// either as source or as target.
func (s *Server) commit(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	results, err := s.Store.All()
	if err != nil {
		log.Printf("webui: loading results: %v", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	var matches []detect.Result
	role := ""
	for _, res := range results {
		switch id {
		case res.Source:
			role = "source"
			matches = append(matches, res)
		case res.Target:
			role = "target"
			matches = append(matches, res)
		}
	}
	if len(matches) == 0 {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte("not found\n"))
		return
	}

	if !isBrowser(r) {
		s.writeJSON(w, matches)
		return
	}

	var diffText string
	if s.Archive != nil {
		b, err := s.Archive.Get(r.Context(), id)
		switch {
		case err == nil:
			diffText = string(b)
		case errors.Is(err, storage.ErrNotFound):
			// no archived payload for this commit; render without one
		default:
			log.Printf("webui: fetching archived diff for %s: %v", id, err)
		}
	}

	err = templates.Templates.ExecuteTemplate(w, "commit.tmpl", struct {
		ID      string
		Role    string
		Matches []detect.Result
		Diff    string
	}{id, role, matches, diffText})
	if err != nil {
		log.Printf("webui: rendering commit: %v", err)
	}
}
