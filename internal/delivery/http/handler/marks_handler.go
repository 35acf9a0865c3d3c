package handler

import (
	"cinelist/internal/delivery/http/dto"
	"cinelist/internal/delivery/http/middleware"
	"cinelist/internal/pkg/response"
	"cinelist/internal/usecase"

	"github.com/gofiber/fiber/v3"
)

type MarksHandler struct {
	uc *usecase.MarksUsecase
}

func NewMarksHandler(uc *usecase.MarksUsecase) *MarksHandler {
	return &MarksHandler{uc: uc}
}

func (h *MarksHandler) RegisterRoutes(r fiber.Router) {
	if r == nil {
		return
	}
	r.Get("/list/marks", h.HandleGetMarks)
	r.Put("/list/marks", h.HandleSaveMarks)
}

func (h *MarksHandler) HandleGetMarks(c fiber.Ctx) error {
	marks, err := h.uc.Get(c.Context(), c.Query("url"))
	if err != nil {
		return mapUsecaseError(err)
	}
	return response.Success(c, fiber.StatusOK, response.MessageOK, dto.MarksResponse{IDs: marks})
}

func (h *MarksHandler) HandleSaveMarks(c fiber.Ctx) error {
	var req dto.MarksRequest
	if err := c.Bind().Body(&req); err != nil {
		return middleware.NewAppError(fiber.StatusBadRequest, "invalid request body", nil, err)
	}

	if err := h.uc.Save(c.Context(), c.Query("url"), req.IDs); err != nil {
		return mapUsecaseError(err)
	}
	return response.Success(c, fiber.StatusOK, response.MessageOK, dto.MarksResponse{IDs: req.IDs})
}
