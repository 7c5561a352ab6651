// Package adapthttp implements the HTTP adapter for the application.
package adapthttp

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"log/slog"
	"net/http"

	"ems/internal/app"
)

const stateCookie = "oauth_state"

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, "home.html", page{Title: "Employee Management System"})
}

func (s *Server) handleLoginForm(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, "login.html", page{Title: "Login"})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	username := r.PostFormValue("username")

	token, err := s.auth.Login(r.Context(), username, r.PostFormValue("password"))
	switch {
	case err == nil:
	case errors.Is(err, app.ErrInvalidCredentials):
		s.logger.InfoContext(r.Context(), "login denied", slog.String("user", username))
		s.render(w, r, http.StatusUnauthorized, "login.html", page{Title: "Login", Error: app.InvalidLoginMessage})
		return
	case errors.Is(err, app.ErrDirectoryUnavailable), errors.Is(err, app.ErrSessionUnavailable):
		s.logger.ErrorContext(r.Context(), "login unavailable", slog.Any("error", err))
		http.Error(w, unavailableMessage, http.StatusServiceUnavailable)
		return
	default:
		s.serverError(w, r, err)
		return
	}

	s.setSessionCookie(w, token)
	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.auth.Logout(r.Context(), sessionToken(r)); err != nil {
		s.logger.WarnContext(r.Context(), "logout failed", slog.Any("error", err))
	}
	s.clearSessionCookie(w)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleSSOLogin(w http.ResponseWriter, r *http.Request) {
	state := generateState()
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    state,
		Path:     "/sso/",
		HttpOnly: true,
		Secure:   s.cookieSecure,
		SameSite: http.SameSiteLaxMode, // Lax required for cross-site redirect returns
		MaxAge:   300,
	})
	http.Redirect(w, r, s.oidc.OAuth2Config.AuthCodeURL(state), http.StatusFound)
}

func (s *Server) handleSSOCallback(w http.ResponseWriter, r *http.Request) {
	state, err := r.Cookie(stateCookie)
	if err != nil || !app.ConstantTimeCompare(r.URL.Query().Get("state"), state.Value) {
		http.Error(w, "invalid state", http.StatusBadRequest)
		return
	}
	http.SetCookie(w, &http.Cookie{Name: stateCookie, Path: "/sso/", MaxAge: -1})

	token, err := s.oidc.OAuth2Config.Exchange(r.Context(), r.URL.Query().Get("code"))
	if err != nil {
		s.logger.WarnContext(r.Context(), "sso exchange failed", slog.Any("error", err))
		http.Error(w, "failed to exchange token", http.StatusBadGateway)
		return
	}

	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok {
		http.Error(w, "no id_token", http.StatusBadGateway)
		return
	}

	idToken, err := s.oidc.Verifier.Verify(r.Context(), rawIDToken)
	if err != nil {
		http.Error(w, "failed to verify token", http.StatusUnauthorized)
		return
	}

	var claims struct {
		Email         string `json:"email"`
		EmailVerified *bool  `json:"email_verified"`
		Sub           string `json:"sub"`
	}
	if err = idToken.Claims(&claims); err != nil {
		http.Error(w, "failed to parse claims", http.StatusBadGateway)
		return
	}

	username := claims.Email
	if username == "" || (claims.EmailVerified != nil && !*claims.EmailVerified) {
		username = claims.Sub
	}

	tok, err := s.auth.LoginWithUser(r.Context(), username)
	switch {
	case err == nil:
	case errors.Is(err, app.ErrInvalidCredentials):
		s.logger.InfoContext(r.Context(), "sso identity has no login", slog.String("user", username))
		s.render(w, r, http.StatusForbidden, "login.html", page{Title: "Login", Error: app.InvalidLoginMessage})
		return
	case errors.Is(err, app.ErrDirectoryUnavailable), errors.Is(err, app.ErrSessionUnavailable):
		http.Error(w, unavailableMessage, http.StatusServiceUnavailable)
		return
	default:
		s.serverError(w, r, err)
		return
	}

	s.setSessionCookie(w, tok)
	http.Redirect(w, r, "/dashboard", http.StatusFound)
}

func generateState() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return base64.URLEncoding.EncodeToString(b)
}
