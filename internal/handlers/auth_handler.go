package handlers

import (
	"net/http"

	"github.com/pocketbase/pocketbase/core"

	"ticket-marketplace/internal/services"
)

type AuthHandler struct {
	users *services.UserService
}

func NewAuthHandler(users *services.UserService) *AuthHandler {
	return &AuthHandler{users: users}
}

func (h *AuthHandler) Register(e *core.RequestEvent) error {
	var req services.RegisterRequest
	if err := bind(e, &req); err != nil {
		return fail(e, err)
	}
	res, err := h.users.Register(e.Request.Context(), req)
	if err != nil {
		return fail(e, err)
	}
	return ok(e, http.StatusCreated, "Registration successful", res)
}

func (h *AuthHandler) Login(e *core.RequestEvent) error {
	var req services.LoginRequest
	if err := bind(e, &req); err != nil {
		return fail(e, err)
	}
	res, err := h.users.Login(e.Request.Context(), req)
	if err != nil {
		return fail(e, err)
	}
	return ok(e, http.StatusOK, "Login successful", res)
}

func (h *AuthHandler) Me(e *core.RequestEvent) error {
	user, err := h.users.Profile(e.Request.Context(), userID(e))
	if err != nil {
		return fail(e, err)
	}
	return ok(e, http.StatusOK, "", user)
}
