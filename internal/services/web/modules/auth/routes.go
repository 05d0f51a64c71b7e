package auth

import (
	"net/http"

	"github.com/doosr/doosr/internal/services/web/routepath"
)

func registerRoutes(mux *http.ServeMux, h handlers) {
	login := http.Handler(http.HandlerFunc(h.handleLogin))
	register := http.Handler(http.HandlerFunc(h.handleRegister))
	if h.limiter != nil {
		throttle := h.limiter.Middleware(clientKey)
		login = throttle(login)
		register = throttle(register)
	}
	mux.HandleFunc(http.MethodGet+" "+routepath.AuthLogin, h.handleLoginPage)
	mux.Handle(http.MethodPost+" "+routepath.AuthLogin, login)
	mux.HandleFunc(http.MethodGet+" "+routepath.AuthRegister, h.handleRegisterPage)
	mux.Handle(http.MethodPost+" "+routepath.AuthRegister, register)
	mux.HandleFunc(http.MethodPost+" "+routepath.AuthLogout, h.handleLogout)
	mux.Handle(http.MethodGet+" "+routepath.AuthAccount, h.RequireUser(http.HandlerFunc(h.handleAccountPage)))
	mux.Handle(http.MethodPost+" "+routepath.AuthAccount, h.RequireUser(http.HandlerFunc(h.handleAccount)))
}
