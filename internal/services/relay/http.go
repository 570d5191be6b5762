package relay

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/NordCoder/Beacon/internal/domain/notification"
	"github.com/NordCoder/Beacon/internal/domain/subscription"
	"github.com/NordCoder/Beacon/internal/obs"
)

// Server is the relay's JSON HTTP surface.
type Server struct {
	r              *chi.Mux
	uc             *Usecase
	log            *zap.Logger
	vapidPublicKey string
	started        time.Time
}

func NewServer(log *zap.Logger, uc *Usecase, vapidPublicKey string) *Server {
	s := &Server{
		r:              chi.NewRouter(),
		uc:             uc,
		log:            log.With(zap.String("component", "relay.http")),
		vapidPublicKey: vapidPublicKey,
		started:        time.Now(),
	}
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler { return s.r }

func (s *Server) routes() {
	s.r.Get("/api/vapid-public-key", s.getVapidKey)
	s.r.Post("/api/subscribe", s.postSubscribe)
	s.r.Post("/api/unsubscribe", s.postUnsubscribe)
	s.r.Get("/api/subscriptions/stats", s.getStats)
	s.r.Post("/api/subscriptions/clear", s.postClear)
	s.r.Post("/api/heartbeat", s.postHeartbeat)
	s.r.Post("/api/test-notification/{status}", s.postTestNotification)
	s.r.Post("/api/notify", s.postNotify)
	s.r.Get("/health", s.getHealth)
	s.r.Handle("/metrics", obs.MetricsHandler())
	s.r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
}

func (s *Server) getVapidKey(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"publicKey": s.vapidPublicKey})
}

type subscribeReq struct {
	Endpoint string            `json:"endpoint"`
	Keys     subscription.Keys `json:"keys"`
}

func (s *Server) postSubscribe(w http.ResponseWriter, r *http.Request) {
	var req subscribeReq
	if !s.decode(w, r, &req) {
		return
	}
	total, err := s.uc.Subscribe(r.Context(), &subscription.Subscription{
		Endpoint: req.Endpoint,
		Keys:     req.Keys,
	})
	if err != nil {
		if errors.Is(err, subscription.ErrInvalid) {
			writeError(w, http.StatusBadRequest, "endpoint is required")
			return
		}
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "totalSubscriptions": total})
}

type unsubscribeReq struct {
	Endpoint string `json:"endpoint"`
}

func (s *Server) postUnsubscribe(w http.ResponseWriter, r *http.Request) {
	var req unsubscribeReq
	if !s.decode(w, r, &req) {
		return
	}
	total, err := s.uc.Unsubscribe(r.Context(), req.Endpoint)
	if err != nil {
		if errors.Is(err, subscription.ErrNotFound) {
			writeError(w, http.StatusNotFound, "subscription not found")
			return
		}
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "totalSubscriptions": total})
}

func (s *Server) getStats(w http.ResponseWriter, r *http.Request) {
	st := s.uc.Stats(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{
		"total": st.Total,
		// Every stored endpoint counts as active; the registry has no
		// liveness probe short of a delivery attempt.
		"active": st.Total,
		"oldest": st.Oldest,
		"newest": st.Newest,
	})
}

func (s *Server) postClear(w http.ResponseWriter, r *http.Request) {
	removed := s.uc.Clear(r.Context())
	s.log.Info("subscriptions cleared over http", zap.Int("removed", removed))
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "remaining": 0})
}

func (s *Server) postHeartbeat(w http.ResponseWriter, r *http.Request) {
	rep := s.uc.Heartbeat(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"sent":    rep.Sent,
		"failed":  rep.Failed,
		"total":   rep.Total,
	})
}

type testNotificationReq struct {
	Title    string `json:"title"`
	Message  string `json:"message"`
	Priority string `json:"priority"`
}

func (s *Server) postTestNotification(w http.ResponseWriter, r *http.Request) {
	var req testNotificationReq
	if r.ContentLength > 0 && !s.decode(w, r, &req) {
		return
	}
	status := chi.URLParam(r, "status")
	p, rep, err := s.uc.TestNotification(r.Context(), status, notification.Overrides{
		Title:    req.Title,
		Body:     req.Message,
		Priority: notification.Priority(req.Priority),
	})
	if err != nil {
		var unknown *notification.ErrUnknownStatus
		if errors.As(err, &unknown) {
			writeError(w, http.StatusBadRequest, unknown.Error())
			return
		}
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":      true,
		"sent":         rep.Sent,
		"failed":       rep.Failed,
		"notification": p,
	})
}

type payloadReq struct {
	Title    string         `json:"title"`
	Body     string         `json:"body"`
	Message  string         `json:"message"`
	Status   string         `json:"status"`
	Priority string         `json:"priority"`
	Data     map[string]any `json:"data"`
}

func (p payloadReq) toPayload(now time.Time) notification.Payload {
	body := p.Body
	if body == "" {
		body = p.Message
	}
	return notification.Payload{
		Title:     p.Title,
		Body:      body,
		Status:    notification.Status(p.Status),
		Priority:  notification.Priority(p.Priority),
		Timestamp: now,
		Data:      p.Data,
	}
}

type notifyReq struct {
	Notifications []payloadReq `json:"notifications"`
}

func (s *Server) postNotify(w http.ResponseWriter, r *http.Request) {
	var req notifyReq
	if !s.decode(w, r, &req) {
		return
	}
	if len(req.Notifications) == 0 {
		writeError(w, http.StatusBadRequest, "notifications array is required")
		return
	}
	now := time.Now().UTC()
	payloads := make([]notification.Payload, 0, len(req.Notifications))
	for _, pr := range req.Notifications {
		payloads = append(payloads, pr.toPayload(now))
	}
	rep := s.uc.NotifyBulk(r.Context(), payloads)
	writeJSON(w, http.StatusOK, map[string]any{
		"success":       true,
		"sent":          rep.Sent,
		"failed":        rep.Failed,
		"notifications": len(payloads),
	})
}

func (s *Server) getHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":        "ok",
		"timestamp":     time.Now().UTC().Format(time.RFC3339),
		"subscriptions": s.uc.Count(r.Context()),
		"uptime":        time.Since(s.started).Round(time.Second).String(),
	})
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

func (s *Server) fail(w http.ResponseWriter, err error) {
	s.log.Error("request failed", zap.Error(err))
	writeError(w, http.StatusInternalServerError, "internal error")
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]any{"success": false, "error": msg})
}
