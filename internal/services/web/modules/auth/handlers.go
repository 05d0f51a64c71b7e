package auth

import (
	"context"
	"net/http"

	"github.com/doosr/doosr/internal/platform/i18n"
	authdomain "github.com/doosr/doosr/internal/services/auth/domain"
	"github.com/doosr/doosr/internal/services/web/platform/httpx"
	"github.com/doosr/doosr/internal/services/web/platform/modulehandler"
	"github.com/doosr/doosr/internal/services/web/platform/ratelimit"
	"github.com/doosr/doosr/internal/services/web/platform/sessioncookie"
	"github.com/doosr/doosr/internal/services/web/platform/webctx"
	"github.com/doosr/doosr/internal/services/web/platform/weberror"
	"github.com/doosr/doosr/internal/services/web/routepath"
	webtemplates "github.com/doosr/doosr/internal/services/web/templates"
)

type handlers struct {
	modulehandler.Base
	service    Service
	limiter    *ratelimit.Limiter
	onRegister func(ctx context.Context, user authdomain.User)
	onLogout   func(sessionID string)
}

func newHandlers(m Module) handlers {
	return handlers{Base: m.base, service: m.service, limiter: m.limiter, onRegister: m.onRegister, onLogout: m.onLogout}
}

func clientKey(r *http.Request) string {
	return "auth:" + ratelimit.ClientAddress(r)
}

func (h handlers) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	if h.Viewer(r).SignedIn() {
		httpx.WriteRedirect(w, r, routepath.DaysPrefix)
		return
	}
	loc := h.Printer(r)
	form := loginForm{Next: r.URL.Query().Get("next")}
	h.WritePage(w, r, webtemplates.T(loc, "web.auth.login_title"), loginView(form, loc))
}

func (h handlers) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := h.ParseForm(w, r); err != nil {
		h.WriteError(w, r, err)
		return
	}
	form := loginForm{Email: h.FormValue(r, "email"), Next: h.FormValue(r, "next")}
	user, err := h.service.Authenticate(r.Context(), form.Email, r.PostFormValue("password"))
	if err != nil {
		loc := h.Printer(r)
		form.Error = h.ErrorMessage(r, err)
		h.WritePageStatus(w, r, weberror.Status(err), webtemplates.T(loc, "web.auth.login_title"), loginView(form, loc))
		return
	}
	h.startSession(w, r, user, routepath.SafeNext(form.Next, routepath.DaysPrefix), "")
}

func (h handlers) handleRegisterPage(w http.ResponseWriter, r *http.Request) {
	if h.Viewer(r).SignedIn() {
		httpx.WriteRedirect(w, r, routepath.DaysPrefix)
		return
	}
	loc := h.Printer(r)
	form := registerForm{Locale: i18n.Locale(webctx.Lang(r)), TimeZone: "UTC"}
	h.WritePage(w, r, webtemplates.T(loc, "web.auth.register_title"), registerView(form, loc))
}

func (h handlers) handleRegister(w http.ResponseWriter, r *http.Request) {
	if err := h.ParseForm(w, r); err != nil {
		h.WriteError(w, r, err)
		return
	}
	form := registerForm{
		Email:       h.FormValue(r, "email"),
		DisplayName: h.FormValue(r, "display_name"),
		Locale:      h.FormValue(r, "locale"),
		TimeZone:    h.FormValue(r, "time_zone"),
	}
	if form.Locale == "" {
		form.Locale = i18n.Locale(webctx.Lang(r))
	}
	user, err := h.service.Register(r.Context(), authdomain.RegisterInput{
		Email:       form.Email,
		Password:    r.PostFormValue("password"),
		DisplayName: form.DisplayName,
		Locale:      form.Locale,
		TimeZone:    form.TimeZone,
	})
	if err != nil {
		loc := h.Printer(r)
		form.Error = h.ErrorMessage(r, err)
		h.WritePageStatus(w, r, weberror.Status(err), webtemplates.T(loc, "web.auth.register_title"), registerView(form, loc))
		return
	}
	if h.onRegister != nil {
		h.onRegister(r.Context(), user)
	}
	h.startSession(w, r, user, routepath.DaysPrefix, "web.auth.welcome")
}

func (h handlers) startSession(w http.ResponseWriter, r *http.Request, user authdomain.User, next, notice string) {
	session, err := h.service.StartSession(r.Context(), user.ID, r.UserAgent())
	if err != nil {
		h.WriteError(w, r, err)
		return
	}
	sessioncookie.Write(w, r, session.Token, session.ExpiresAt, h.Policy())
	h.Redirect(w, r, next, notice)
}

func (h handlers) handleLogout(w http.ResponseWriter, r *http.Request) {
	if token, ok := sessioncookie.Read(r); ok {
		if err := h.service.EndSession(r.Context(), token); err != nil {
			h.WriteError(w, r, err)
			return
		}
	}
	if viewer := h.Viewer(r); viewer.SessionID != "" && h.onLogout != nil {
		h.onLogout(viewer.SessionID)
	}
	sessioncookie.Clear(w, r, h.Policy())
	httpx.WriteRedirect(w, r, routepath.AuthLogin)
}

func (h handlers) handleAccountPage(w http.ResponseWriter, r *http.Request) {
	user, err := h.service.User(r.Context(), h.Viewer(r).UserID)
	if err != nil {
		h.WriteError(w, r, err)
		return
	}
	loc := h.Printer(r)
	form := accountForm{Email: user.Email, DisplayName: user.DisplayName, Locale: user.Locale, TimeZone: user.TimeZone}
	h.WritePage(w, r, webtemplates.T(loc, "web.auth.account_title"), accountView(form, loc))
}

func (h handlers) handleAccount(w http.ResponseWriter, r *http.Request) {
	if err := h.ParseForm(w, r); err != nil {
		h.WriteError(w, r, err)
		return
	}
	viewer := h.Viewer(r)
	prefs := authdomain.Preferences{
		DisplayName: h.FormValue(r, "display_name"),
		Locale:      h.FormValue(r, "locale"),
		TimeZone:    h.FormValue(r, "time_zone"),
	}
	if _, err := h.service.UpdatePreferences(r.Context(), viewer.UserID, prefs); err != nil {
		loc := h.Printer(r)
		form := accountForm{Email: viewer.Email, DisplayName: prefs.DisplayName, Locale: prefs.Locale, TimeZone: prefs.TimeZone, Error: h.ErrorMessage(r, err)}
		h.WritePageStatus(w, r, weberror.Status(err), webtemplates.T(loc, "web.auth.account_title"), accountView(form, loc))
		return
	}
	h.Redirect(w, r, routepath.AuthAccount, "web.auth.saved")
}
