package web

import (
	"context"
	"net/http"

	"comics-commerce/internal/domain"
	"comics-commerce/internal/infra/logging"
	"comics-commerce/internal/usecase"

	"github.com/go-chi/chi/v5"
)

// cartFromCookie returns the cart id the browser holds, or "". A value that is
// not a cart id is treated as no cookie; the next add replaces it.
func (s *Server) cartFromCookie(r *http.Request) (string, context.Context) {
	c, err := r.Cookie(s.shop.CartCookieName)
	if err != nil || !validID(c.Value) {
		return "", r.Context()
	}
	return c.Value, logging.WithCartID(r.Context(), c.Value)
}

func (s *Server) setCartCookie(w http.ResponseWriter, cartID string) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.shop.CartCookieName,
		Value:    cartID,
		Path:     "/",
		Domain:   s.shop.CookieDomain,
		MaxAge:   int(s.shop.CartCookieTTL.Seconds()),
		HttpOnly: true,
		Secure:   s.shop.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Server) clearCartCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.shop.CartCookieName,
		Value:    "",
		Path:     "/",
		Domain:   s.shop.CookieDomain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.shop.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Server) handleGetCart(w http.ResponseWriter, r *http.Request) {
	cartID, ctx := s.cartFromCookie(r)
	c, err := s.carts.Get(ctx, cartID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCartResponse(c))
}

func (s *Server) handleAddCartItem(w http.ResponseWriter, r *http.Request) {
	var req addItemRequest
	if !decode(w, r, &req) {
		return
	}
	cartID, ctx := s.cartFromCookie(r)
	c, err := s.carts.AddItem(ctx, cartID, userFrom(r.Context()), usecase.AddItemInput{
		ProductID: req.ProductID,
		VariantID: req.VariantID,
		Quantity:  req.Quantity,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	// First mutation, or the old cookie pointed at a cart that no longer exists.
	if c.ID != cartID {
		s.setCartCookie(w, c.ID)
	}
	writeJSON(w, http.StatusOK, toCartResponse(c))
}

func (s *Server) handleUpdateCartItem(w http.ResponseWriter, r *http.Request) {
	var req updateItemRequest
	if !decode(w, r, &req) {
		return
	}
	cartID, ctx := s.cartFromCookie(r)
	if cartID == "" {
		s.writeError(w, r, domain.ErrNotFound)
		return
	}
	c, err := s.carts.UpdateItem(ctx, cartID, chi.URLParam(r, "itemID"), *req.Quantity)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCartResponse(c))
}

func (s *Server) handleRemoveCartItem(w http.ResponseWriter, r *http.Request) {
	cartID, ctx := s.cartFromCookie(r)
	if cartID == "" {
		s.writeError(w, r, domain.ErrNotFound)
		return
	}
	c, err := s.carts.RemoveItem(ctx, cartID, chi.URLParam(r, "itemID"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCartResponse(c))
}

func (s *Server) handleClearCart(w http.ResponseWriter, r *http.Request) {
	cartID, ctx := s.cartFromCookie(r)
	if err := s.carts.Clear(ctx, cartID); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.clearCartCookie(w)
	w.WriteHeader(http.StatusNoContent)
}
