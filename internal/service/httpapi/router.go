// Package httpapi публикует журнал статусов по HTTP/JSON.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/oms-history/internal/domain"
	"github.com/vladislavdragonenkov/oms-history/internal/health"
	"github.com/vladislavdragonenkov/oms-history/internal/service/history"
)

// Заголовки сессии.
const (
	HeaderLanguageID = "X-Language-Id"
	HeaderAdminID    = "X-Admin-Id"
	HeaderCustomerID = "X-Customer-Id"
)

const maxBodyBytes = 1 << 20

// HistoryUpdater: операции сервиса истории.
type HistoryUpdater interface {
	Update(ctx context.Context, session domain.Session, req history.UpdateRequest) (int64, error)
	List(ctx context.Context, session domain.Session, orderID int64) ([]history.HistoryView, error)
}

// updateBody: тело POST-запроса. Значения status_id и notify не отклоняются:
// -1 или отсутствие status_id оставляет текущий статус, notify нормализует сервис.
// updated_by == null определяет автора по сессии, пустая строка сохраняется как есть.
type updateBody struct {
	StatusID  *int64  `json:"status_id"`
	Comment   *string `json:"comment" validate:"omitempty,max=65535"`
	Notify    *int    `json:"notify"`
	UpdatedBy *string `json:"updated_by" validate:"omitempty,max=255"`
}

type orderPath struct {
	OrderID int64 `validate:"gt=0"`
}

type updateResponse struct {
	HistoryID int64 `json:"history_id"`
}

type entryResponse struct {
	ID         int64     `json:"id"`
	OrderID    int64     `json:"order_id"`
	StatusID   int64     `json:"status_id"`
	StatusName string    `json:"status_name"`
	UpdatedBy  string    `json:"updated_by"`
	DateAdded  time.Time `json:"date_added"`
	Notify     int       `json:"notify"`
	Comment    *string   `json:"comment"`
}

type listResponse struct {
	Items []entryResponse `json:"items"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type handlers struct {
	svc      HistoryUpdater
	validate *validator.Validate
	logger   *log.Entry
}

// NewRouter собирает HTTP-маршруты: API истории, метрики и health-пробы.
func NewRouter(svc HistoryUpdater, healthHandler *health.Handler, logger *log.Entry) http.Handler {
	if logger == nil {
		logger = log.WithField("component", "http-api")
	}
	h := &handlers{svc: svc, validate: validator.New(), logger: logger}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Route("/v1/orders/{orderID}/status-history", func(r chi.Router) {
		r.Post("/", h.update)
		r.Get("/", h.list)
	})

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/livez", health.LivenessHandler)
	if healthHandler != nil {
		r.Handle("/healthz", healthHandler)
		r.Get("/readyz", healthHandler.ReadinessHandler)
	}
	return r
}

func (h *handlers) update(w http.ResponseWriter, r *http.Request) {
	orderID, ok := h.orderID(w, r)
	if !ok {
		return
	}
	session, ok := h.session(w, r)
	if !ok {
		return
	}

	var body updateBody
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}
	if err := h.validate.Struct(body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	req := history.UpdateRequest{OrderID: orderID, Notify: int(domain.NotifyHidden), UpdatedBy: body.UpdatedBy}
	if body.StatusID != nil && *body.StatusID != -1 {
		req.StatusID = body.StatusID
	}
	if body.Comment != nil {
		req.Comment = *body.Comment
	}
	if body.Notify != nil {
		req.Notify = *body.Notify
	}

	id, err := h.svc.Update(r.Context(), session, req)
	if err != nil {
		h.writeServiceError(w, err, orderID)
		return
	}
	writeJSON(w, http.StatusOK, updateResponse{HistoryID: id})
}

func (h *handlers) list(w http.ResponseWriter, r *http.Request) {
	orderID, ok := h.orderID(w, r)
	if !ok {
		return
	}
	session, ok := h.session(w, r)
	if !ok {
		return
	}

	views, err := h.svc.List(r.Context(), session, orderID)
	if err != nil {
		h.writeServiceError(w, err, orderID)
		return
	}

	resp := listResponse{Items: make([]entryResponse, 0, len(views))}
	for _, v := range views {
		resp.Items = append(resp.Items, entryResponse{
			ID:         v.ID,
			OrderID:    v.OrderID,
			StatusID:   v.StatusID,
			StatusName: v.StatusName,
			UpdatedBy:  v.UpdatedBy,
			DateAdded:  v.DateAdded.UTC(),
			Notify:     int(v.Notify),
			Comment:    v.Comment,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *handlers) orderID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "orderID"), 10, 64)
	if err != nil || h.validate.Struct(orderPath{OrderID: id}) != nil {
		writeError(w, http.StatusBadRequest, "orderID must be a positive integer")
		return 0, false
	}
	return id, true
}

func (h *handlers) session(w http.ResponseWriter, r *http.Request) (domain.Session, bool) {
	session, err := domain.ParseSession(
		r.Header.Get(HeaderLanguageID),
		r.Header.Get(HeaderAdminID),
		r.Header.Get(HeaderCustomerID),
	)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return domain.Session{}, false
	}
	return session, true
}

func (h *handlers) writeServiceError(w http.ResponseWriter, err error, orderID int64) {
	switch {
	case domain.IsNotFound(err):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, history.ErrHistoryNotUpdated):
		writeError(w, http.StatusInternalServerError, history.ErrHistoryNotUpdated.Error())
	default:
		h.logger.WithError(err).WithField("orders_id", orderID).Error("history request failed")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
