package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"comics-commerce/internal/domain"
	"comics-commerce/internal/infra/logging"
)

// errorResponse is the body of every non-2xx reply.
type errorResponse struct {
	Error   string            `json:"error"`
	Code    string            `json:"code"`
	Details map[string]string `json:"details,omitempty"`

	// Set for insufficient funds so the client can offer a top-up.
	Required  *int64 `json:"required,omitempty"`
	Current   *int64 `json:"current,omitempty"`
	Shortfall *int64 `json:"shortfall,omitempty"`

	ProductID string  `json:"product_id,omitempty"`
	VariantID *string `json:"variant_id,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// gatewayRetryAfter is what we advise clients when the gateway is down.
const gatewayRetryAfter = "30"

// writeError maps domain errors to HTTP statuses. Anything unrecognised is a
// 500 whose body says nothing about the cause.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var insufficient *domain.InsufficientFundsError
	if errors.As(err, &insufficient) {
		req, cur, short := insufficient.Required, insufficient.Current, insufficient.Shortfall()
		writeJSON(w, http.StatusPaymentRequired, errorResponse{
			Error:     "insufficient funds",
			Code:      "insufficient_funds",
			Required:  &req,
			Current:   &cur,
			Shortfall: &short,
		})
		return
	}
	var oos *domain.OutOfStockError
	if errors.As(err, &oos) {
		writeJSON(w, http.StatusConflict, errorResponse{
			Error:     "out of stock",
			Code:      "out_of_stock",
			ProductID: oos.ProductID,
			VariantID: oos.VariantID,
		})
		return
	}

	status, code, msg := classify(err)
	if status >= http.StatusInternalServerError {
		l := logging.With(r.Context(), s.log)
		l.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
	}
	if status == http.StatusServiceUnavailable {
		w.Header().Set("Retry-After", gatewayRetryAfter)
	}
	writeJSON(w, status, errorResponse{Error: msg, Code: code})
}

func classify(err error) (int, string, string) {
	switch {
	case errors.Is(err, domain.ErrUnauthenticated):
		return http.StatusUnauthorized, "unauthenticated", "authentication required"
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden, "forbidden", "forbidden"
	case errors.Is(err, domain.ErrEmptyCart):
		return http.StatusBadRequest, "empty_cart", "cart is empty"
	case errors.Is(err, domain.ErrInvalidArgument):
		return http.StatusBadRequest, "invalid_argument", "invalid request"
	case errors.Is(err, domain.ErrOutOfStock):
		return http.StatusConflict, "out_of_stock", "out of stock"
	case errors.Is(err, domain.ErrAlreadySubscribed):
		return http.StatusConflict, "already_subscribed", "an active subscription already exists"
	case errors.Is(err, domain.ErrLockNotAcquired):
		return http.StatusConflict, "in_progress", "a request with this idempotency key is in progress"
	case errors.Is(err, domain.ErrAlreadyExists):
		return http.StatusConflict, "conflict", "idempotency key already used for a different request"
	case errors.Is(err, domain.ErrAlreadyProcessed):
		return http.StatusConflict, "already_processed", "payment already processed"
	case errors.Is(err, domain.ErrPlanNotFound):
		return http.StatusNotFound, "plan_not_found", "plan not found"
	case errors.Is(err, domain.ErrProductNotFound):
		return http.StatusNotFound, "product_not_found", "product not found"
	case errors.Is(err, domain.ErrOrderNotFound):
		return http.StatusNotFound, "order_not_found", "order not found"
	case errors.Is(err, domain.ErrPaymentNotFound):
		return http.StatusNotFound, "payment_not_found", "payment not found"
	case errors.Is(err, domain.ErrUserNotFound), errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "not_found", "not found"
	case errors.Is(err, domain.ErrRateLimited):
		return http.StatusTooManyRequests, "rate_limited", "too many requests"
	case errors.Is(err, domain.ErrGatewayUnavailable):
		return http.StatusServiceUnavailable, "gateway_unavailable", "payment provider is temporarily unavailable"
	case errors.Is(err, domain.ErrGatewayRejected):
		return http.StatusBadGateway, "gateway_rejected", "payment provider rejected the request"
	default:
		return http.StatusInternalServerError, "internal", "internal error"
	}
}
