package controller

import (
	"net/http"

	"github.com/nimburion/taskboard/pkg/server/router"
)

// Success sends data as the JSON body with HTTP 200 OK.
// Resources are returned bare, without an envelope, so existing board clients keep working.
func Success(c router.Context, data interface{}) error {
	return c.JSON(http.StatusOK, data)
}

// Created sends data as the JSON body with HTTP 201 Created.
func Created(c router.Context, data interface{}) error {
	return c.JSON(http.StatusCreated, data)
}

// NoContent sends an empty HTTP 204 response.
func NoContent(c router.Context) error {
	return c.NoContent(http.StatusNoContent)
}

// Error sends an error response with the appropriate HTTP status code.
// It uses MapError to convert application errors to HTTP responses.
func Error(c router.Context, err error) error {
	statusCode, errorResponse := MapError(c.Request().Context(), err)
	return c.JSON(statusCode, errorResponse)
}
