package tasks

import (
	"github.com/nimburion/taskboard/pkg/controller"
	"github.com/nimburion/taskboard/pkg/identifier"
	"github.com/nimburion/taskboard/pkg/repository"
	"github.com/nimburion/taskboard/pkg/server/router"
)

// Error messages for malformed path ids.
const (
	MsgInvalidBoardID = "Board ID is not valid."
	MsgInvalidTaskID  = "Task ID is not valid."
)

// Handler exposes the /boards/:boardID/tasks routes.
type Handler struct {
	service *Service
}

// NewHandler creates a tasks handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Register mounts the task routes on r behind mw.
func (h *Handler) Register(r router.Router, mw ...router.MiddlewareFunc) {
	r.GET("/boards/:boardID/tasks", h.list, mw...)
	r.POST("/boards/:boardID/tasks", h.create, mw...)
	r.GET("/boards/:boardID/tasks/:taskID", h.get, mw...)
	r.PUT("/boards/:boardID/tasks/:taskID", h.update, mw...)
	r.DELETE("/boards/:boardID/tasks/:taskID", h.delete, mw...)
}

func (h *Handler) list(c router.Context) error {
	boardID, err := pathID(c, "boardID", MsgInvalidBoardID)
	if err != nil {
		return controller.Error(c, err)
	}
	page, err := controller.ParsePage(c)
	if err != nil {
		return controller.Error(c, err)
	}
	tasks, err := h.service.List(c.Request().Context(), boardID, repository.Pagination{Limit: page.Limit, Offset: page.Offset})
	if err != nil {
		return controller.Error(c, err)
	}
	return controller.Success(c, tasks)
}

func (h *Handler) create(c router.Context) error {
	boardID, err := pathID(c, "boardID", MsgInvalidBoardID)
	if err != nil {
		return controller.Error(c, err)
	}
	var req CreateTaskRequest
	if err := controller.BindAndValidate(c, &req); err != nil {
		return controller.Error(c, err)
	}
	t, err := h.service.Create(c.Request().Context(), boardID, &req)
	if err != nil {
		return controller.Error(c, err)
	}
	return controller.Created(c, t)
}

func (h *Handler) get(c router.Context) error {
	boardID, taskID, err := ids(c)
	if err != nil {
		return controller.Error(c, err)
	}
	t, err := h.service.Get(c.Request().Context(), boardID, taskID)
	if err != nil {
		return controller.Error(c, err)
	}
	return controller.Success(c, t)
}

func (h *Handler) update(c router.Context) error {
	boardID, taskID, err := ids(c)
	if err != nil {
		return controller.Error(c, err)
	}
	var req UpdateTaskRequest
	if err := controller.BindAndValidate(c, &req); err != nil {
		return controller.Error(c, err)
	}
	t, err := h.service.Update(c.Request().Context(), boardID, taskID, &req)
	if err != nil {
		return controller.Error(c, err)
	}
	return controller.Success(c, t)
}

func (h *Handler) delete(c router.Context) error {
	boardID, taskID, err := ids(c)
	if err != nil {
		return controller.Error(c, err)
	}
	if err := h.service.Delete(c.Request().Context(), boardID, taskID); err != nil {
		return controller.Error(c, err)
	}
	return controller.NoContent(c)
}

func ids(c router.Context) (string, string, error) {
	boardID, err := pathID(c, "boardID", MsgInvalidBoardID)
	if err != nil {
		return "", "", err
	}
	taskID, err := pathID(c, "taskID", MsgInvalidTaskID)
	if err != nil {
		return "", "", err
	}
	return boardID, taskID, nil
}

func pathID(c router.Context, param, message string) (string, error) {
	id := c.Param(param)
	if !identifier.IsValid(id) {
		return "", controller.NewValidationError(message, map[string]interface{}{param: id})
	}
	return id, nil
}
