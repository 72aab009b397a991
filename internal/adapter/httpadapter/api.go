package httpadapter

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/couchcryptid/firms-fire-etl/internal/domain"
	"github.com/couchcryptid/firms-fire-etl/internal/layer"
	"github.com/couchcryptid/firms-fire-etl/internal/pipeline"
)

const maxParamsBody = 64 << 10

// LayerView exposes the displayed layer.
type LayerView interface {
	Snapshot() layer.Snapshot
}

// StatusView exposes the latest status message.
type StatusView interface {
	Current() pipeline.Status
}

// ParamStore reads and updates the map parameters.
type ParamStore interface {
	Params() pipeline.Params
	Update(u pipeline.ParamUpdate) (pipeline.Params, error)
}

// Refresher starts a manual ingestion cycle.
type Refresher interface {
	Refresh() bool
}

// API holds the collaborators behind the /api routes. A nil field disables
// its routes.
type API struct {
	Layer     LayerView
	Status    StatusView
	Params    ParamStore
	Refresher Refresher
	Stream    http.Handler // mounted at /ws
}

type layerResponse struct {
	Cycle       uint64          `json:"cycle"`
	GeneratedAt time.Time       `json:"generated_at"`
	Visible     bool            `json:"visible"`
	Layer       json.RawMessage `json:"layer"`
}

// paramsRequest is a partial update. Days accepts a number or a string and is
// interpreted like the day-window input field.
type paramsRequest struct {
	Sources *[]string       `json:"sources"`
	Days    json.RawMessage `json:"days"`
	Enabled *bool           `json:"enabled"`
}

func (a API) register(mux *http.ServeMux, logger *slog.Logger) {
	if a.Layer != nil {
		mux.HandleFunc("GET /api/layer", a.handleLayer(logger))
	}
	if a.Status != nil {
		mux.HandleFunc("GET /api/status", a.handleStatus)
	}
	if a.Params != nil {
		mux.HandleFunc("GET /api/params", a.handleGetParams)
		mux.HandleFunc("PUT /api/params", a.handlePutParams(logger))
	}
	if a.Refresher != nil {
		mux.HandleFunc("POST /api/refresh", a.handleRefresh)
	}
	if a.Stream != nil {
		mux.Handle("GET /ws", a.Stream)
	}
}

func (a API) handleLayer(logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		snap := a.Layer.Snapshot()
		data, err := snap.Layer.MarshalGeoJSON()
		if err != nil {
			logger.Error("encode layer", "error", err)
			writeError(w, http.StatusInternalServerError, "encode layer")
			return
		}
		writeJSON(w, http.StatusOK, layerResponse{
			Cycle:       snap.Layer.Cycle,
			GeneratedAt: snap.Layer.GeneratedAt,
			Visible:     snap.Visible,
			Layer:       data,
		})
	}
}

func (a API) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, a.Status.Current())
}

func (a API) handleGetParams(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, a.Params.Params())
}

func (a API) handlePutParams(logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req paramsRequest
		dec := json.NewDecoder(io.LimitReader(r.Body, maxParamsBody))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid params body: "+err.Error())
			return
		}

		u := pipeline.ParamUpdate{Sources: req.Sources, Enabled: req.Enabled}
		days, ok, err := parseDaysField(req.Days)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if ok {
			u.Days = &days
		}

		p, err := a.Params.Update(u)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		logger.Info("params updated", "sources", p.Sources, "days", p.Days, "enabled", p.Enabled)
		writeJSON(w, http.StatusOK, p)
	}
}

func (a API) handleRefresh(w http.ResponseWriter, _ *http.Request) {
	if !a.Refresher.Refresh() {
		writeError(w, http.StatusServiceUnavailable, "refresher not running")
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "refresh started"})
}

// parseDaysField reports the effective day window for a raw JSON value, or
// ok=false when the field is absent or null.
func parseDaysField(raw json.RawMessage) (days int, ok bool, err error) {
	text := strings.TrimSpace(string(raw))
	if text == "" || text == "null" {
		return 0, false, nil
	}
	if strings.HasPrefix(text, `"`) {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0, false, errors.New("days must be a number or string")
		}
		return domain.ParseDays(s), true, nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return 0, false, errors.New("days must be a number or string")
	}
	return domain.ParseDays(n.String()), true, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
