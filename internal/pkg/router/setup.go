package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/CampusConnectNG/CampusConnect/internal/pkg/middleware"
)

type Router interface {
	InstallRouter(app *fiber.App)
}

func InstallRouter(app *fiber.App) {
	// The user-context middleware runs first so every route group can rely
	// on Locals being populated.
	app.Use(middleware.UserContextMiddleware())

	setup(app, NewApiRouter())
}

func setup(app *fiber.App, router ...Router) {
	for _, r := range router {
		r.InstallRouter(app)
	}
}
