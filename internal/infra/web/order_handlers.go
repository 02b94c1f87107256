package web

import (
	"net/http"

	"comics-commerce/internal/domain"
	"comics-commerce/internal/usecase"

	"github.com/go-chi/chi/v5"
)

func (s *Server) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	var req checkoutRequest
	if !decode(w, r, &req) {
		return
	}
	cartID, ctx := s.cartFromCookie(r)
	o, err := s.orders.CreateOrder(ctx, userFrom(ctx), cartID, usecase.CheckoutInput{
		ShippingAddress: req.ShippingAddress,
		Comment:         req.Comment,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.clearCartCookie(w)
	writeJSON(w, http.StatusCreated, toOrderResponse(o))
}

func (s *Server) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !validID(id) {
		s.writeError(w, r, domain.ErrOrderNotFound)
		return
	}
	o, err := s.orders.Get(r.Context(), userFrom(r.Context()), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(o))
}
