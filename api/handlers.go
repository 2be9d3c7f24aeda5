package api

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/vitalvas/kasper/mux"

	"github.com/beamlab/dms/dmserr"
	"github.com/beamlab/dms/docs"
)

func (s *Server) ok(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, r, "ok")
}

func (s *Server) postSchema(w http.ResponseWriter, r *http.Request) {
	db := mux.Vars(r)["db"]
	force, err := boolQuery(r, "force", false)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		s.writeError(w, r, dmserr.Wrap(dmserr.KindBadRequest, err, "reading request body"))
		return
	}
	if err := s.svc.PostSchema(r.Context(), db, body, force); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, nil)
}

func (s *Server) getSchema(w http.ResponseWriter, r *http.Request) {
	db := mux.Vars(r)["db"]
	includeID, err := boolQuery(r, "include_id", false)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	doc, err := s.svc.GetSchema(r.Context(), db, includeID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, doc)
}

func (s *Server) listTypes(w http.ResponseWriter, r *http.Request) {
	types, err := s.svc.ListTypes(r.Context(), mux.Vars(r)["db"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, types)
}

func (s *Server) listIDs(w http.ResponseWriter, r *http.Request) {
	v := mux.Vars(r)
	ids, err := s.svc.ListIDs(r.Context(), v["db"], v["type"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, ids)
}

func (s *Server) post(w http.ResponseWriter, r *http.Request) {
	v := mux.Vars(r)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		s.writeError(w, r, dmserr.Wrap(dmserr.KindBadRequest, err, "reading request body"))
		return
	}
	id, err := s.svc.Post(r.Context(), v["db"], v["type"], body)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, id)
}

func (s *Server) get(w http.ResponseWriter, r *http.Request) {
	v := mux.Vars(r)
	opt := docs.GetOptions{Path: r.URL.Query().Get("path")}
	var err error
	if opt.MaxLevel, err = intQuery(r, "max_level", -1); err != nil {
		s.writeError(w, r, err)
		return
	}
	if opt.Tracking, err = boolQuery(r, "tracking", false); err != nil {
		s.writeError(w, r, err)
		return
	}
	if opt.Meta, err = boolQuery(r, "meta", true); err != nil {
		s.writeError(w, r, err)
		return
	}
	opt.Shallow = idSet(r.URL.Query().Get("shallow"))

	res, err := s.svc.Get(r.Context(), v["db"], v["type"], v["id"], opt)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, res)
}

func (s *Server) patch(w http.ResponseWriter, r *http.Request) {
	v := mux.Vars(r)
	var body struct {
		Path string          `json:"path"`
		Data json.RawMessage `json:"data"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.writeError(w, r, dmserr.Wrap(dmserr.KindBadRequest, err, "patch body must be {path, data}"))
		return
	}
	if err := s.svc.Patch(r.Context(), v["db"], v["type"], v["id"], body.Path, body.Data); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, nil)
}

func (s *Server) clone(w http.ResponseWriter, r *http.Request) {
	v := mux.Vars(r)
	shallow := idSet(r.URL.Query().Get("shallow"))
	id, err := s.svc.Clone(r.Context(), v["db"], v["type"], v["id"], shallow)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, id)
}

func (s *Server) safeLinks(w http.ResponseWriter, r *http.Request) {
	v := mux.Vars(r)
	var paths []string
	if q := strings.TrimSpace(r.URL.Query().Get("paths")); q != "" {
		paths = strings.Fields(q)
	}
	safe, err := s.svc.SafeLinks(r.Context(), v["db"], v["type"], v["id"], paths)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, safe)
}

func (s *Server) graph(w http.ResponseWriter, r *http.Request) {
	v := mux.Vars(r)
	g, err := s.svc.Graph(r.Context(), v["db"], v["type"], v["id"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, g)
}

// idSet splits a space-separated ID list into a set.
func idSet(q string) map[string]bool {
	set := map[string]bool{}
	for _, id := range strings.Fields(q) {
		set[id] = true
	}
	return set
}

func boolQuery(r *http.Request, name string, def bool) (bool, error) {
	q := r.URL.Query().Get(name)
	if q == "" {
		return def, nil
	}
	v, err := strconv.ParseBool(q)
	if err != nil {
		return false, dmserr.New(dmserr.KindBadRequest, "query parameter %q must be a boolean, got %q", name, q)
	}
	return v, nil
}

func intQuery(r *http.Request, name string, def int) (int, error) {
	q := r.URL.Query().Get(name)
	if q == "" {
		return def, nil
	}
	v, err := strconv.Atoi(q)
	if err != nil {
		return 0, dmserr.New(dmserr.KindBadRequest, "query parameter %q must be an integer, got %q", name, q)
	}
	return v, nil
}
