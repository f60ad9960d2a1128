package api

import "net/http"

func Router(h *Handler) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /v1/health", h.Health)

	mux.HandleFunc("POST /v1/broadcasts", h.CreateBroadcast)
	mux.HandleFunc("POST /v1/broadcasts/{id}/advance", h.AdvanceBroadcast)
	mux.HandleFunc("GET /v1/broadcasts/{id}/progress", h.BroadcastProgress)

	mux.HandleFunc("GET /v1/attempts", h.ListAttempts)
	mux.HandleFunc("POST /v1/attempts/{id}/reissue", h.ReissueAttempt)

	mux.HandleFunc("POST /v1/accounts/provision", h.ProvisionAccount)

	mux.HandleFunc("GET /v1/scheduler/status", h.SchedulerStatus)
	mux.HandleFunc("POST /v1/scheduler/start", h.SchedulerStart)
	mux.HandleFunc("POST /v1/scheduler/stop", h.SchedulerStop)

	mux.HandleFunc("GET /", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("school-broadcast"))
	})

	return mux
}
