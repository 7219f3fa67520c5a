package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/muster/internal/httpserver/deps"
)

type (
	Registrar  func(r chi.Router, d deps.Deps)
	Middleware = func(http.Handler) http.Handler
)

type group struct {
	reg Registrar
	mws []Middleware
}

var groups []group

// Register adds a route group; mws apply to every route the registrar adds.
func Register(reg Registrar, mws ...Middleware) {
	groups = append(groups, group{reg: reg, mws: mws})
}

// RegisterAll mounts every registered group on r. Called once per router.
func RegisterAll(r chi.Router, d deps.Deps) {
	for _, g := range groups {
		r.Group(func(sub chi.Router) {
			sub.Use(g.mws...)
			g.reg(sub, d)
		})
	}
}
