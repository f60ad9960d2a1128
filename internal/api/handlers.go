package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/LeventeLantos/school-broadcast/internal/credential"
	"github.com/LeventeLantos/school-broadcast/internal/job"
	"github.com/LeventeLantos/school-broadcast/internal/model"
	"github.com/LeventeLantos/school-broadcast/internal/scheduler"
	"github.com/LeventeLantos/school-broadcast/internal/store"
)

type Handler struct {
	sched *scheduler.Scheduler
	ctrl  *job.Controller
	creds *credential.Service
}

func NewHandler(s *scheduler.Scheduler, c *job.Controller, creds *credential.Service) *Handler {
	return &Handler{sched: s, ctrl: c, creds: creds}
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

type createBroadcastRequest struct {
	Title      string `json:"title"`
	Message    string `json:"message"`
	Recipients []struct {
		Name     string `json:"name"`
		Phone    string `json:"phone"`
		LinkedID *int64 `json:"linked_id,omitempty"`
	} `json:"recipients"`
}

func (h *Handler) CreateBroadcast(w http.ResponseWriter, r *http.Request) {
	var req createBroadcastRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	if req.Title == "" || req.Message == "" || len(req.Recipients) == 0 {
		http.Error(w, "title, message and recipients are required", http.StatusBadRequest)
		return
	}

	recipients := make([]model.Recipient, 0, len(req.Recipients))
	for _, rc := range req.Recipients {
		recipients = append(recipients, model.Recipient{
			Name:     rc.Name,
			Phone:    rc.Phone,
			LinkedID: rc.LinkedID,
		})
	}

	b, err := h.ctrl.Create(r.Context(), actor(r), req.Title, req.Message, recipients)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"id":               b.ID,
		"status":           b.Status,
		"total_recipients": b.TotalRecipients,
	})
}

func (h *Handler) AdvanceBroadcast(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	if err := h.ctrl.StartOrResume(r.Context(), actor(r), id); err != nil {
		writeError(w, err)
		return
	}

	p, err := h.ctrl.GetProgress(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *Handler) BroadcastProgress(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	p, err := h.ctrl.GetProgress(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *Handler) ListAttempts(w http.ResponseWriter, r *http.Request) {
	refType := model.RefType(r.URL.Query().Get("ref_type"))
	refID, err := strconv.ParseInt(r.URL.Query().Get("ref_id"), 10, 64)
	if refType == "" || err != nil {
		http.Error(w, "ref_type and numeric ref_id are required", http.StatusBadRequest)
		return
	}

	items, err := h.ctrl.Attempts(r.Context(), refType, refID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (h *Handler) ReissueAttempt(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	a, err := h.ctrl.Reissue(r.Context(), actor(r), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

type provisionRequest struct {
	UserID int64  `json:"user_id"`
	Name   string `json:"name"`
	Phone  string `json:"phone"`
}

func (h *Handler) ProvisionAccount(w http.ResponseWriter, r *http.Request) {
	var req provisionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	if req.UserID <= 0 || req.Name == "" || req.Phone == "" {
		http.Error(w, "user_id, name and phone are required", http.StatusBadRequest)
		return
	}

	rec, err := h.creds.Provision(r.Context(), req.UserID, req.Name, req.Phone)
	if err != nil {
		if errors.Is(err, credential.ErrUsernameExhausted) {
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}
		writeError(w, err)
		return
	}

	// The plaintext password is never echoed back over the API.
	writeJSON(w, http.StatusCreated, map[string]any{
		"user_id":         rec.UserID,
		"username":        rec.Username,
		"is_sent":         rec.IsSent,
		"delivery_method": rec.DeliveryMethod,
	})
}

func (h *Handler) SchedulerStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"running": h.sched.IsRunning()})
}

func (h *Handler) SchedulerStart(w http.ResponseWriter, r *http.Request) {
	h.sched.Start()
	writeJSON(w, http.StatusOK, map[string]any{"running": h.sched.IsRunning()})
}

func (h *Handler) SchedulerStop(w http.ResponseWriter, r *http.Request) {
	h.sched.Stop()
	writeJSON(w, http.StatusOK, map[string]any{"running": h.sched.IsRunning()})
}

// actor identifies the admin performing the request. Authentication proper
// sits in front of this service; we only carry the id through for audit rows.
func actor(r *http.Request) int64 {
	v, err := strconv.ParseInt(r.Header.Get("X-Actor-ID"), 10, 64)
	if err != nil {
		return 0
	}
	return v
}

func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id <= 0 {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		http.Error(w, "not found", http.StatusNotFound)
	case errors.Is(err, job.ErrForbidden):
		http.Error(w, "forbidden", http.StatusForbidden)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
