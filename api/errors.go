package api

import (
	"encoding/json"
	"net/http"
	rdebug "runtime/debug"
	"strings"

	"goa.design/clue/log"

	"github.com/beamlab/dms/dmserr"
)

// errorBody is the wire form of every failure. Type is the error kind,
// message the human-readable cause with double quotes folded to
// apostrophes so the envelope survives naive quoting on the client side.
type errorBody struct {
	Type      string   `json:"type"`
	Message   string   `json:"message"`
	URL       string   `json:"url"`
	Method    string   `json:"method"`
	Traceback []string `json:"traceback,omitempty"`
}

// writeError reports err as a 400 with the error envelope. All failures
// map to 400: the distinction clients act on is the type field, not the
// status code.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	body := errorBody{
		Type:    string(dmserr.KindOf(err)),
		Message: strings.ReplaceAll(err.Error(), `"`, "'"),
		URL:     r.URL.String(),
		Method:  r.Method,
	}
	if s.debug || queryDebug(r) {
		body.Traceback = strings.Split(strings.TrimRight(string(rdebug.Stack()), "\n"), "\n")
	}
	log.Errorf(r.Context(), err, "%s %s failed", r.Method, r.URL.Path)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadRequest)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Errorf(r.Context(), err, "writing error envelope")
	}
}

func queryDebug(r *http.Request) bool {
	v, err := boolQuery(r, "debug", false)
	return err == nil && v
}

func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Errorf(r.Context(), err, "writing response")
	}
}
