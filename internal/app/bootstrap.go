package app

import (
	"fmt"
	"strings"

	"cinelist/internal/delivery/http/middleware"
	"cinelist/internal/delivery/http/routes"
	v1 "cinelist/internal/delivery/http/routes/v1"

	"github.com/gofiber/fiber/v3"
)

type App struct {
	Fiber     *fiber.App
	Container *Container
}

func New(container *Container) *App {
	f := fiber.New(fiber.Config{})

	errMw := middleware.NewErrorMiddleware()
	f.Use(errMw.Middleware())
	accessMw := middleware.NewAccessLogMiddleware(container.Logger)
	f.Use(accessMw.Middleware())

	registry := routes.NewRegistry(v1.Deps{
		Lists:   container.Lists,
		Refresh: container.Refresh,
		Marks:   container.Marks,
		Hub:     container.Hub,
		Logger:  container.Logger,
	})
	registry.Register(f)

	return &App{Fiber: f, Container: container}
}

func Bootstrap(container *Container) (*App, func() error, error) {
	app := New(container)
	return app, container.Close, nil
}

func ListenAddr(port string) (string, error) {
	p := strings.TrimSpace(port)
	if p == "" {
		return "", fmt.Errorf("empty HTTP port")
	}
	if strings.HasPrefix(p, ":") {
		return p, nil
	}
	return ":" + p, nil
}
