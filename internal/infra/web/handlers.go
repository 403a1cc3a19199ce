package web

import (
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"time"

	"credits-engine/internal/domain"
	"credits-engine/internal/domain/model"
	red "credits-engine/internal/infra/redis"
	"credits-engine/internal/usecase"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
)

type createOrderRequest struct {
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	Email       string `json:"email"`
	PhoneNumber string `json:"phoneNumber"`
	Country     string `json:"country"`
	PlanName    string `json:"planName"`
}

func (r createOrderRequest) command() usecase.CreateOrderCommand {
	return usecase.CreateOrderCommand{
		Customer: model.Customer{
			FirstName:   r.FirstName,
			LastName:    r.LastName,
			Email:       r.Email,
			PhoneNumber: r.PhoneNumber,
			Country:     r.Country,
		},
		PlanName: r.PlanName,
	}
}

type preRegisterRequest struct {
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	Email       string `json:"email"`
	PhoneNumber string `json:"phoneNumber"`
	Country     string `json:"country"`
}

type useTemplateRequest struct {
	UserID     string `json:"userId"`
	TemplateID string `json:"templateId"`
}

type activateRequest struct {
	PlanID string `json:"planId"`
}

type validateResponse struct {
	Message string       `json:"message"`
	Order   *model.Order `json:"order"`
	User    *model.User  `json:"user"`
}

type useTemplateResponse struct {
	Message          string `json:"message"`
	CreditsRemaining int64  `json:"creditsRemaining"`
}

type activateResponse struct {
	Message        string      `json:"message"`
	ActivationCode string      `json:"activationCode"`
	User           *model.User `json:"user"`
}

// decode reads a JSON body into dst; any syntax or type error is a validation failure.
func decode(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	if err := dec.Decode(dst); err != nil {
		return domain.NewValidationError("body", "malformed JSON")
	}
	return nil
}

// pathParam binds a simple-style path parameter the way generated chi servers do.
func pathParam(r *http.Request, name string) (string, error) {
	var v string
	err := runtime.BindStyledParameterWithOptions("simple", name, chi.URLParam(r, name), &v,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Required: true})
	if err != nil || v == "" {
		return "", domain.NewValidationError(name, "invalid path parameter")
	}
	return v, nil
}

func (s *Server) createOrder(w http.ResponseWriter, r *http.Request) {
	if !s.allowOrderEntry(w, r) {
		return
	}
	var req createOrderRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	o, err := s.orders.Create(r.Context(), req.command())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, o)
}

// allowOrderEntry applies the per-IP limit. Limiter failures let the request through.
func (s *Server) allowOrderEntry(w http.ResponseWriter, r *http.Request) bool {
	if s.limiter == nil || s.opts.OrdersPerMinute <= 0 {
		return true
	}
	ip := r.RemoteAddr
	if host, _, err := net.SplitHostPort(ip); err == nil {
		ip = host
	}
	ok, err := s.limiter.Allow(r.Context(), red.OrderEntryKey(ip), s.opts.OrdersPerMinute, time.Minute)
	if err != nil {
		s.log.Warn().Err(err).Msg("rate limiter unavailable, allowing request")
		return true
	}
	if !ok {
		writeJSON(w, http.StatusTooManyRequests, messageResponse{Message: "Too many requests"})
		return false
	}
	return true
}

func (s *Server) validateOrder(w http.ResponseWriter, r *http.Request) {
	id, err := pathParam(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	o, u, err := s.orders.Validate(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, validateResponse{Message: "Order validated", Order: o, User: u})
}

func (s *Server) listOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := s.orders.List(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(orders))
}

func (s *Server) listUserOrders(w http.ResponseWriter, r *http.Request) {
	userID, err := pathParam(r, "userId")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	orders, err := s.orders.ListByUser(r.Context(), userID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(orders))
}

func (s *Server) useTemplate(w http.ResponseWriter, r *http.Request) {
	var req useTemplateRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	u, err := s.credits.UseTemplate(r.Context(), req.UserID, req.TemplateID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, useTemplateResponse{Message: "Template used", CreditsRemaining: u.CreditsRemaining})
}

func (s *Server) preRegister(w http.ResponseWriter, r *http.Request) {
	var req preRegisterRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	u, err := s.users.PreRegister(r.Context(), model.Customer{
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		Email:       req.Email,
		PhoneNumber: req.PhoneNumber,
		Country:     req.Country,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, u)
}

func (s *Server) activateUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathParam(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req activateRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	u, err := s.users.Activate(r.Context(), id, req.PlanID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if u.ActivationCode == nil {
		s.writeError(w, r, errors.New("activated user has no activation code"))
		return
	}
	writeJSON(w, http.StatusOK, activateResponse{Message: "User activated", ActivationCode: *u.ActivationCode, User: u})
}

func (s *Server) listUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.users.List(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(users))
}

func (s *Server) getUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathParam(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	u, err := s.users.Get(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (s *Server) listPlans(w http.ResponseWriter, r *http.Request) {
	plans, err := s.plans.List(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(plans))
}

// nonNil makes empty lists encode as [] rather than null.
func nonNil[T any](xs []T) []T {
	if xs == nil {
		return []T{}
	}
	return xs
}
