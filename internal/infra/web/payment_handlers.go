package web

import (
	"errors"
	"io"
	"net/http"
	"time"

	"comics-commerce/internal/domain"
	"comics-commerce/internal/infra/logging"
	"comics-commerce/internal/infra/metrics"
	"comics-commerce/internal/infra/payment"
	"comics-commerce/internal/usecase"

	"github.com/go-chi/chi/v5"
)

// IdempotencyKeyHeader is required on top-up creation; retries with the same
// key return the same payment.
const IdempotencyKeyHeader = "Idempotency-Key"

func (s *Server) handleCreateTopUp(w http.ResponseWriter, r *http.Request) {
	key := r.Header.Get(IdempotencyKeyHeader)
	if key == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Error: "missing " + IdempotencyKeyHeader + " header",
			Code:  "invalid_argument",
		})
		return
	}
	var req topUpRequest
	if !decode(w, r, &req) {
		return
	}
	p, err := s.payments.CreateTopUp(r.Context(), userFrom(r.Context()), req.Amount, key, req.ReturnURL)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toPaymentResponse(p))
}

func (s *Server) handlePaymentStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !validID(id) {
		s.writeError(w, r, domain.ErrPaymentNotFound)
		return
	}
	p, err := s.payments.Status(r.Context(), userFrom(r.Context()), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toPaymentResponse(p))
}

func (s *Server) handleSyncPayment(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !validID(id) {
		s.writeError(w, r, domain.ErrPaymentNotFound)
		return
	}
	p, err := s.payments.Sync(r.Context(), userFrom(r.Context()), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toPaymentResponse(p))
}

// handlePaymentWebhook acknowledges every delivery it has dealt with, including
// ones it chose to ignore. Only internal failures get a 5xx so the gateway retries.
func (s *Server) handlePaymentWebhook(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	l := logging.With(r.Context(), s.log)
	event := "unknown"
	observe := func(result string) {
		metrics.WebhookRequests.WithLabelValues(event, result).Inc()
		metrics.WebhookDuration.WithLabelValues(result).Observe(time.Since(start).Seconds())
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		observe("bad_request")
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "unreadable body", Code: "invalid_argument"})
		return
	}
	if !payment.VerifySignature(s.webhookSecret, body, r.Header.Get(payment.SignatureHeader)) {
		observe("bad_signature")
		l.Warn().Str("remote", r.RemoteAddr).Msg("webhook signature mismatch")
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "invalid signature", Code: "unauthenticated"})
		return
	}

	n, err := payment.ParseNotification(body)
	if err != nil {
		observe("bad_request")
		l.Warn().Err(err).Msg("webhook rejected")
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid notification", Code: "invalid_argument"})
		return
	}
	event = string(n.Event)

	res, err := s.payments.HandleWebhook(r.Context(), n)
	if err != nil {
		observe("error")
		l.Error().Err(err).
			Str("event", event).
			Str("gateway_payment_id", n.Payment.ID).
			Msg("webhook processing failed")
		status := http.StatusInternalServerError
		if errors.Is(err, domain.ErrInvalidArgument) {
			status = http.StatusBadRequest
		}
		writeJSON(w, status, errorResponse{Error: http.StatusText(status), Code: "webhook_failed"})
		return
	}

	result := "noop"
	if res == usecase.WebhookApplied {
		result = "ok"
	}
	observe(result)
	l.Info().
		Str("event", event).
		Str("gateway_payment_id", n.Payment.ID).
		Str("outcome", string(res)).
		Msg("webhook handled")
	writeJSON(w, http.StatusOK, map[string]string{"status": string(res)})
}
