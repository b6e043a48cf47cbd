// Package adapthttp implements the HTTP adapter for the application.
package adapthttp

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"storefront/internal/app"
	"storefront/internal/domain"
)

var errMembershipDisabled = errors.New("membership is not configured")

func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"membership_enabled": s.identity != nil,
		"sso_enabled":        s.sso != nil,
	})
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	cs := app.MustClientSession(r.Context())
	active := false
	if s.identity != nil {
		active = cs.SyncMember(r.Context(), cs.MemberToken())
	}
	writeJSON(w, http.StatusOK, map[string]any{"active": active})
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) handleSignIn(w http.ResponseWriter, r *http.Request) {
	if s.identity == nil {
		writeError(w, http.StatusNotFound, errMembershipDisabled)
		return
	}
	var req credentials
	if err := parseJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	session, err := s.identity.SignIn(r.Context(), req.Email, req.Password)
	s.finishSignIn(w, r, session, err)
}

func (s *Server) handleSignUp(w http.ResponseWriter, r *http.Request) {
	if s.identity == nil {
		writeError(w, http.StatusNotFound, errMembershipDisabled)
		return
	}
	var req credentials
	if err := parseJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	session, err := s.identity.SignUp(r.Context(), req.Email, req.Password)
	s.finishSignIn(w, r, session, err)
}

func (s *Server) handleSignOut(w http.ResponseWriter, r *http.Request) {
	cs := app.MustClientSession(r.Context())
	if s.identity != nil {
		if token := cs.MemberToken(); token != "" {
			if err := s.identity.SignOut(r.Context(), token); err != nil {
				s.log.Warn("sign out", zap.Error(err))
			}
		}
	}
	cs.SetMember("", false)
	s.clearMemberCookie(w)
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleSendOTP(w http.ResponseWriter, r *http.Request) {
	if s.identity == nil {
		writeError(w, http.StatusNotFound, errMembershipDisabled)
		return
	}
	var req struct {
		Phone string `json:"phone"`
	}
	if err := parseJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	if err := s.identity.SendOTP(r.Context(), req.Phone); err != nil {
		writeError(w, authStatus(err), publicAuthError(err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "sent"})
}

func (s *Server) handleVerifyOTP(w http.ResponseWriter, r *http.Request) {
	if s.identity == nil {
		writeError(w, http.StatusNotFound, errMembershipDisabled)
		return
	}
	var req struct {
		Phone string `json:"phone"`
		Code  string `json:"code"`
	}
	if err := parseJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	session, err := s.identity.VerifyOTP(r.Context(), req.Phone, req.Code)
	s.finishSignIn(w, r, session, err)
}

func (s *Server) finishSignIn(w http.ResponseWriter, r *http.Request, session *domain.MemberSession, err error) {
	if err != nil {
		writeError(w, authStatus(err), publicAuthError(err))
		return
	}

	cs := app.MustClientSession(r.Context())
	cs.SetMemberSession(session)
	s.setMemberCookie(w, session)
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "session": session})
}

func (s *Server) handleSSOLogin(w http.ResponseWriter, r *http.Request) {
	if s.sso == nil {
		http.Error(w, "sso disabled", http.StatusNotFound)
		return
	}
	state := generateState()
	http.SetCookie(w, &http.Cookie{
		Name:     "oauth_state",
		Value:    state,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.secureCookies,
		SameSite: http.SameSiteLaxMode, // Lax required for cross-site redirect returns
		MaxAge:   300,
	})
	http.Redirect(w, r, s.sso.AuthCodeURL(state), http.StatusFound)
}

func (s *Server) handleSSOCallback(w http.ResponseWriter, r *http.Request) {
	if s.sso == nil {
		http.Error(w, "sso disabled", http.StatusNotFound)
		return
	}

	state, err := r.Cookie("oauth_state")
	if err != nil || !app.ConstantTimeCompare(r.URL.Query().Get("state"), state.Value) {
		http.Error(w, "invalid state", http.StatusBadRequest)
		return
	}

	http.SetCookie(w, &http.Cookie{Name: "oauth_state", MaxAge: -1, Path: "/"})

	session, err := s.sso.Exchange(r.Context(), r.URL.Query().Get("code"))
	if err != nil {
		s.log.Warn("sso exchange", zap.Error(err))
		http.Error(w, "login failed", http.StatusInternalServerError)
		return
	}

	cs := app.MustClientSession(r.Context())
	cs.SetMemberSession(session)
	s.setMemberCookie(w, session)
	http.Redirect(w, r, "/", http.StatusFound)
}

func (s *Server) setMemberCookie(w http.ResponseWriter, session *domain.MemberSession) {
	maxAge := int(time.Until(session.ExpiresAt).Seconds())
	if maxAge <= 0 {
		maxAge = 86400
	}
	http.SetCookie(w, &http.Cookie{
		Name:     memberCookie,
		Value:    session.Token,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.secureCookies,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   maxAge,
	})
}

func (s *Server) clearMemberCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     memberCookie,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})
}

func authStatus(err error) int {
	switch {
	case errors.Is(err, app.ErrInvalidCredentials), errors.Is(err, app.ErrInvalidOTP),
		errors.Is(err, app.ErrSessionNotFound), errors.Is(err, app.ErrSessionExpired):
		return http.StatusUnauthorized
	case errors.Is(err, app.ErrMemberExists):
		return http.StatusConflict
	case errors.Is(err, app.ErrWeakPassword), errors.Is(err, app.ErrInvalidEmail), errors.Is(err, app.ErrInvalidPhone):
		return http.StatusBadRequest
	case errors.Is(err, app.ErrUnsupported):
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}

func publicAuthError(err error) error {
	if authStatus(err) == http.StatusInternalServerError {
		return errors.New("internal error")
	}
	return err
}

func generateState() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return base64.URLEncoding.EncodeToString(b)
}
