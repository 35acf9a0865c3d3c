package handler

import (
	"errors"
	"log"
	"time"

	"cinelist/internal/delivery/http/dto"
	"cinelist/internal/delivery/http/middleware"
	"cinelist/internal/pkg/response"
	"cinelist/internal/usecase"

	"github.com/gofiber/fiber/v3"
)

type ListHandler struct {
	lists   *usecase.ListUsecase
	refresh *usecase.RefreshUsecase
	log     *log.Logger
}

func NewListHandler(lists *usecase.ListUsecase, refresh *usecase.RefreshUsecase, logger *log.Logger) *ListHandler {
	if logger == nil {
		logger = log.Default()
	}
	return &ListHandler{lists: lists, refresh: refresh, log: logger}
}

func (h *ListHandler) RegisterRoutes(r fiber.Router) {
	if r == nil {
		return
	}
	r.Get("/list", h.HandleGetList)
	r.Post("/list/refresh", h.HandleRefresh)
	r.Get("/list/status", h.HandleStatus)
}

// HandleGetList answers from the store only; it never triggers a scrape.
func (h *ListHandler) HandleGetList(c fiber.Ctx) error {
	view, err := h.lists.Get(c.Context(), c.Query("url"))
	if err != nil {
		return mapUsecaseError(err)
	}

	out := dto.ListResponse{
		Key:       view.Key,
		SourceURL: view.Snapshot.SourceURL,
		Films:     view.Snapshot.Films,
		Marks:     view.Marks,
	}
	if !view.Snapshot.CapturedAt.IsZero() {
		out.CapturedAt = view.Snapshot.CapturedAt.UTC().Format(time.RFC3339)
	}
	return response.Success(c, fiber.StatusOK, response.MessageOK, out)
}

func (h *ListHandler) HandleRefresh(c fiber.Ctx) error {
	sourceURL, err := h.lists.ValidateSourceURL(c.Query("url"))
	if err != nil {
		return mapUsecaseError(err)
	}

	res := h.refresh.Start(sourceURL)
	status := "started"
	if res.AlreadyRunning {
		status = "already_running"
	}
	h.log.Printf("http_request method=%s path=%s key=%s refresh=%s", c.Method(), c.Path(), res.Key, status)

	return response.Success(c, fiber.StatusOK, response.MessageOK, dto.RefreshResponse{Key: res.Key, Status: status})
}

func (h *ListHandler) HandleStatus(c fiber.Ctx) error {
	sourceURL, err := h.lists.ValidateSourceURL(c.Query("url"))
	if err != nil {
		return mapUsecaseError(err)
	}

	st, err := h.refresh.Status(c.Context(), sourceURL)
	if err != nil {
		return middleware.NewAppError(fiber.StatusInternalServerError, "", nil, err)
	}

	out := dto.JobStatusResponse{
		Status:   string(st.Status),
		Progress: st.Progress,
		Error:    st.Error,
	}
	if st.Snapshot != nil {
		out.Films = st.Snapshot.Films
	}
	return response.Success(c, fiber.StatusOK, response.MessageOK, out)
}

func mapUsecaseError(err error) error {
	if errors.Is(err, usecase.ErrInvalidInput) {
		return middleware.NewAppError(fiber.StatusBadRequest, err.Error(), nil, err)
	}
	return middleware.NewAppError(fiber.StatusInternalServerError, "", nil, err)
}
