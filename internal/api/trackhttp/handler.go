package trackhttp

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/BearBump/ShipTrack/internal/carriers"
	"github.com/BearBump/ShipTrack/internal/models"
	"github.com/BearBump/ShipTrack/internal/services/resolver"
	"github.com/go-chi/chi/v5"
	"github.com/pkg/errors"
)

type Service interface {
	Track(ctx context.Context, trackingNumber string, userID *string) (*models.TrackingInfo, error)
	History(ctx context.Context, userID string, limit, offset int) ([]*models.HistoryRecord, error)
	SupportedCarriers(ctx context.Context) []carriers.Code
}

type Handler struct {
	svc Service
}

func New(svc Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/api/track", h.track)
	r.Get("/api/track/history", h.history)
	r.Get("/api/track/{trackingNumber}", h.trackByNumber)
	r.Get("/api/carriers", h.carriers)
	return r
}

type response struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}

type trackRequest struct {
	TrackingNumber string `json:"trackingNumber"`
}

func (h *Handler) track(w http.ResponseWriter, r *http.Request) {
	var req trackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	h.resolve(w, r, req.TrackingNumber)
}

func (h *Handler) trackByNumber(w http.ResponseWriter, r *http.Request) {
	h.resolve(w, r, chi.URLParam(r, "trackingNumber"))
}

func (h *Handler) resolve(w http.ResponseWriter, r *http.Request, trackingNumber string) {
	if carriers.Normalize(trackingNumber) == "" {
		writeError(w, http.StatusBadRequest, "Tracking number is required")
		return
	}

	var userID *string
	if id := r.Header.Get("X-User-ID"); id != "" {
		userID = &id
	}

	info, err := h.svc.Track(r.Context(), trackingNumber, userID)
	if err != nil {
		switch {
		case errors.Is(err, resolver.ErrUnsupportedCarrier):
			writeError(w, http.StatusBadRequest, "Unable to detect carrier. Please check the tracking number format.")
		case errors.Is(err, resolver.ErrProviderNotFound):
			writeError(w, http.StatusBadRequest, "Carrier is not supported")
		default:
			slog.Error("track request failed", "trackingNumber", trackingNumber, "error", err.Error())
			writeError(w, http.StatusInternalServerError, "Failed to track package")
		}
		return
	}

	writeJSON(w, http.StatusOK, response{Success: true, Data: info})
}

func (h *Handler) history(w http.ResponseWriter, r *http.Request) {
	userID := r.Header.Get("X-User-ID")
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "User ID is required")
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	recs, err := h.svc.History(r.Context(), userID, limit, offset)
	if err != nil {
		slog.Error("history request failed", "userId", userID, "error", err.Error())
		writeError(w, http.StatusInternalServerError, "Failed to load tracking history")
		return
	}
	if recs == nil {
		recs = []*models.HistoryRecord{}
	}

	writeJSON(w, http.StatusOK, response{Success: true, Data: recs})
}

type carrierItem struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

func (h *Handler) carriers(w http.ResponseWriter, r *http.Request) {
	codes := h.svc.SupportedCarriers(r.Context())
	out := make([]carrierItem, 0, len(codes))
	for _, c := range codes {
		out = append(out, carrierItem{Code: string(c), Name: carrierName(c)})
	}
	writeJSON(w, http.StatusOK, response{Success: true, Data: out})
}

func carrierName(c carriers.Code) string {
	if cfg, ok := carriers.DefaultConfigs()[c]; ok {
		return cfg.Name
	}
	return string(c)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, response{Success: false, Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
