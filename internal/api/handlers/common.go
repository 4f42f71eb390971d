package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/julienschmidt/httprouter"

	apiContext "invostock/internal/api/context"
	"invostock/internal/pkg/errors"
	"invostock/internal/platform/tenant"
)

var errInvalidID = errors.Invalid("Neispravan identifikator")

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func pathID(r *http.Request, name string) (int64, error) {
	ps, _ := r.Context().Value(apiContext.Params).(httprouter.Params)
	id, err := strconv.ParseInt(ps.ByName(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, errInvalidID
	}
	return id, nil
}

func queryID(r *http.Request, name string) (*int64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return nil, errInvalidID
	}
	return &id, nil
}

// scopeOf returns the scope set by the tenant middleware, which runs
// before every handler that calls it.
func scopeOf(r *http.Request) tenant.Scope {
	scope, _ := tenant.FromContext(r.Context())
	return scope
}

type deleted struct {
	Deleted bool  `json:"deleted"`
	ID      int64 `json:"id"`
}
