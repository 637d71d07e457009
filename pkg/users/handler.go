package users

import (
	"github.com/nimburion/taskboard/pkg/controller"
	"github.com/nimburion/taskboard/pkg/identifier"
	"github.com/nimburion/taskboard/pkg/repository"
	"github.com/nimburion/taskboard/pkg/server/router"
)

// Handler exposes the /users routes.
type Handler struct {
	service *Service
}

// NewHandler creates a users handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Register mounts the user routes on r behind mw.
func (h *Handler) Register(r router.Router, mw ...router.MiddlewareFunc) {
	r.GET("/users", h.list, mw...)
	r.POST("/users", h.create, mw...)
	r.GET("/users/:userID", h.get, mw...)
	r.PUT("/users/:userID", h.update, mw...)
	r.DELETE("/users/:userID", h.delete, mw...)
}

func (h *Handler) list(c router.Context) error {
	page, err := controller.ParsePage(c)
	if err != nil {
		return controller.Error(c, err)
	}
	users, err := h.service.List(c.Request().Context(), repository.Pagination{Limit: page.Limit, Offset: page.Offset})
	if err != nil {
		return controller.Error(c, err)
	}
	return controller.Success(c, users)
}

func (h *Handler) create(c router.Context) error {
	var req CreateUserRequest
	if err := controller.BindAndValidate(c, &req); err != nil {
		return controller.Error(c, err)
	}
	u, err := h.service.Create(c.Request().Context(), &req)
	if err != nil {
		return controller.Error(c, err)
	}
	return controller.Created(c, u)
}

func (h *Handler) get(c router.Context) error {
	id, err := userID(c)
	if err != nil {
		return controller.Error(c, err)
	}
	u, err := h.service.Get(c.Request().Context(), id)
	if err != nil {
		return controller.Error(c, err)
	}
	return controller.Success(c, u)
}

func (h *Handler) update(c router.Context) error {
	id, err := userID(c)
	if err != nil {
		return controller.Error(c, err)
	}
	var req UpdateUserRequest
	if err := controller.BindAndValidate(c, &req); err != nil {
		return controller.Error(c, err)
	}
	u, err := h.service.Update(c.Request().Context(), id, &req)
	if err != nil {
		return controller.Error(c, err)
	}
	return controller.Success(c, u)
}

func (h *Handler) delete(c router.Context) error {
	id, err := userID(c)
	if err != nil {
		return controller.Error(c, err)
	}
	if err := h.service.Delete(c.Request().Context(), id); err != nil {
		return controller.Error(c, err)
	}
	return controller.NoContent(c)
}

func userID(c router.Context) (string, error) {
	id := c.Param("userID")
	if !identifier.IsValid(id) {
		return "", controller.NewValidationError(MsgInvalidID, map[string]interface{}{"userID": id})
	}
	return id, nil
}
