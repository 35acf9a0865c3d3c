package v1

import (
	"log"

	"cinelist/internal/delivery/http/handler"
	"cinelist/internal/usecase"
	"cinelist/internal/ws"

	"github.com/gofiber/fiber/v3"
)

// Deps carries everything the v1 routes need, constructor-injected by the
// app container.
type Deps struct {
	Lists   *usecase.ListUsecase
	Refresh *usecase.RefreshUsecase
	Marks   *usecase.MarksUsecase
	Hub     *ws.Hub
	Logger  *log.Logger
}

func Register(r fiber.Router, deps Deps) {
	if r == nil {
		return
	}

	listHandler := handler.NewListHandler(deps.Lists, deps.Refresh, deps.Logger)
	listHandler.RegisterRoutes(r)

	marksHandler := handler.NewMarksHandler(deps.Marks)
	marksHandler.RegisterRoutes(r)

	if deps.Hub != nil {
		wsHandler := ws.NewHandler(deps.Hub, deps.Logger)
		r.Get("/ws/progress", wsHandler.HandleProgressWS)
	}
}
