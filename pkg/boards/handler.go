package boards

import (
	"github.com/nimburion/taskboard/pkg/controller"
	"github.com/nimburion/taskboard/pkg/identifier"
	"github.com/nimburion/taskboard/pkg/repository"
	"github.com/nimburion/taskboard/pkg/server/router"
)

// Error messages for malformed path ids.
const (
	MsgInvalidBoardID  = "Board ID is not valid."
	MsgInvalidColumnID = "Column ID is not valid."
)

// Handler exposes the /boards and /boards/:boardID/columns routes.
type Handler struct {
	service *Service
}

// NewHandler creates a boards handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Register mounts the board and column routes on r behind mw.
func (h *Handler) Register(r router.Router, mw ...router.MiddlewareFunc) {
	r.GET("/boards", h.list, mw...)
	r.POST("/boards", h.create, mw...)
	r.GET("/boards/:boardID", h.get, mw...)
	r.PUT("/boards/:boardID", h.update, mw...)
	r.DELETE("/boards/:boardID", h.delete, mw...)

	r.GET("/boards/:boardID/columns", h.listColumns, mw...)
	r.POST("/boards/:boardID/columns", h.createColumn, mw...)
	r.GET("/boards/:boardID/columns/:columnID", h.getColumn, mw...)
	r.PUT("/boards/:boardID/columns/:columnID", h.updateColumn, mw...)
	r.DELETE("/boards/:boardID/columns/:columnID", h.deleteColumn, mw...)
}

func (h *Handler) list(c router.Context) error {
	page, err := controller.ParsePage(c)
	if err != nil {
		return controller.Error(c, err)
	}
	boards, err := h.service.List(c.Request().Context(), repository.Pagination{Limit: page.Limit, Offset: page.Offset})
	if err != nil {
		return controller.Error(c, err)
	}
	return controller.Success(c, boards)
}

func (h *Handler) create(c router.Context) error {
	var req CreateBoardRequest
	if err := controller.BindAndValidate(c, &req); err != nil {
		return controller.Error(c, err)
	}
	b, err := h.service.Create(c.Request().Context(), &req)
	if err != nil {
		return controller.Error(c, err)
	}
	return controller.Created(c, b)
}

func (h *Handler) get(c router.Context) error {
	id, err := pathID(c, "boardID", MsgInvalidBoardID)
	if err != nil {
		return controller.Error(c, err)
	}
	b, err := h.service.Get(c.Request().Context(), id)
	if err != nil {
		return controller.Error(c, err)
	}
	return controller.Success(c, b)
}

func (h *Handler) update(c router.Context) error {
	id, err := pathID(c, "boardID", MsgInvalidBoardID)
	if err != nil {
		return controller.Error(c, err)
	}
	var req UpdateBoardRequest
	if err := controller.BindAndValidate(c, &req); err != nil {
		return controller.Error(c, err)
	}
	b, err := h.service.Update(c.Request().Context(), id, &req)
	if err != nil {
		return controller.Error(c, err)
	}
	return controller.Success(c, b)
}

func (h *Handler) delete(c router.Context) error {
	id, err := pathID(c, "boardID", MsgInvalidBoardID)
	if err != nil {
		return controller.Error(c, err)
	}
	if err := h.service.Delete(c.Request().Context(), id); err != nil {
		return controller.Error(c, err)
	}
	return controller.NoContent(c)
}

func (h *Handler) listColumns(c router.Context) error {
	boardID, err := pathID(c, "boardID", MsgInvalidBoardID)
	if err != nil {
		return controller.Error(c, err)
	}
	columns, err := h.service.ListColumns(c.Request().Context(), boardID)
	if err != nil {
		return controller.Error(c, err)
	}
	return controller.Success(c, columns)
}

func (h *Handler) createColumn(c router.Context) error {
	boardID, err := pathID(c, "boardID", MsgInvalidBoardID)
	if err != nil {
		return controller.Error(c, err)
	}
	var req CreateColumnRequest
	if err := controller.BindAndValidate(c, &req); err != nil {
		return controller.Error(c, err)
	}
	col, err := h.service.CreateColumn(c.Request().Context(), boardID, &req)
	if err != nil {
		return controller.Error(c, err)
	}
	return controller.Created(c, col)
}

func (h *Handler) getColumn(c router.Context) error {
	boardID, columnID, err := columnIDs(c)
	if err != nil {
		return controller.Error(c, err)
	}
	col, err := h.service.GetColumn(c.Request().Context(), boardID, columnID)
	if err != nil {
		return controller.Error(c, err)
	}
	return controller.Success(c, col)
}

func (h *Handler) updateColumn(c router.Context) error {
	boardID, columnID, err := columnIDs(c)
	if err != nil {
		return controller.Error(c, err)
	}
	var req UpdateColumnRequest
	if err := controller.BindAndValidate(c, &req); err != nil {
		return controller.Error(c, err)
	}
	col, err := h.service.UpdateColumn(c.Request().Context(), boardID, columnID, &req)
	if err != nil {
		return controller.Error(c, err)
	}
	return controller.Success(c, col)
}

func (h *Handler) deleteColumn(c router.Context) error {
	boardID, columnID, err := columnIDs(c)
	if err != nil {
		return controller.Error(c, err)
	}
	if err := h.service.DeleteColumn(c.Request().Context(), boardID, columnID); err != nil {
		return controller.Error(c, err)
	}
	return controller.NoContent(c)
}

func columnIDs(c router.Context) (string, string, error) {
	boardID, err := pathID(c, "boardID", MsgInvalidBoardID)
	if err != nil {
		return "", "", err
	}
	columnID, err := pathID(c, "columnID", MsgInvalidColumnID)
	if err != nil {
		return "", "", err
	}
	return boardID, columnID, nil
}

func pathID(c router.Context, param, message string) (string, error) {
	id := c.Param(param)
	if !identifier.IsValid(id) {
		return "", controller.NewValidationError(message, map[string]interface{}{param: id})
	}
	return id, nil
}
