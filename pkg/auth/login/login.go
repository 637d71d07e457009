// Package login exchanges a login and password for a signed bearer token.
package login

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/nimburion/taskboard/pkg/auth"
	"github.com/nimburion/taskboard/pkg/controller"
	"github.com/nimburion/taskboard/pkg/document"
	"github.com/nimburion/taskboard/pkg/observability/logger"
	"github.com/nimburion/taskboard/pkg/observability/metrics"
	"github.com/nimburion/taskboard/pkg/schema"
	"github.com/nimburion/taskboard/pkg/server/router"
	"github.com/nimburion/taskboard/pkg/users"
)

// MsgRejected is returned for an unknown login and for a wrong password alike.
const MsgRejected = "Login or password is incorrect"

// UserFinder looks a user up by login.
type UserFinder interface {
	FindByLogin(ctx context.Context, login string) (*users.User, error)
}

// TokenSigner issues a token for an authenticated user.
type TokenSigner interface {
	Sign(userID, login string) (string, time.Time, error)
}

var requestSchema = schema.Schema{
	{Name: "login", Rule: schema.Rule{Type: schema.Of(schema.String), Required: true}},
	{Name: "password", Rule: schema.Rule{Type: schema.Of(schema.String), Required: true}},
}

// Request is the body of POST /login.
type Request struct {
	Login    string
	Password string

	raw map[string]any
}

// UnmarshalJSON keeps the raw field map so Validate can check the submitted types.
func (r *Request) UnmarshalJSON(data []byte) error {
	return json.Unmarshal(data, &r.raw)
}

// Validate checks the body and fills the typed fields.
func (r *Request) Validate() error {
	if err := schema.Validate("Login", requestSchema, r.raw); err != nil {
		return err
	}
	fields := document.Document(r.raw)
	r.Login = fields.String("login")
	r.Password = fields.String("password")
	return nil
}

// Response is the body returned by a successful login.
type Response struct {
	Token string `json:"token"`
}

// Service checks credentials and signs tokens.
type Service struct {
	users  UserFinder
	signer TokenSigner
	log    logger.Logger
}

// NewService creates a login service.
func NewService(users UserFinder, signer TokenSigner, log logger.Logger) *Service {
	return &Service{users: users, signer: signer, log: log}
}

// Login returns a token for valid credentials, or a 403 error.
func (s *Service) Login(ctx context.Context, login, password string) (string, error) {
	log := s.log.WithContext(ctx)

	u, err := s.users.FindByLogin(ctx, login)
	if errors.Is(err, users.ErrNotFound) {
		return "", s.reject(log, "unknown login")
	}
	if err != nil {
		return "", err
	}

	ok, err := auth.ComparePassword(u.Password, password)
	if err != nil {
		log.Warn("stored password hash is unusable", "user_id", u.ID, "error", err)
		return "", s.reject(log, "bad hash")
	}
	if !ok {
		return "", s.reject(log, "wrong password")
	}

	token, _, err := s.signer.Sign(u.ID, u.Login)
	if err != nil {
		return "", controller.NewInternalError("failed to sign token", err)
	}
	metrics.RecordLogin(metrics.LoginSucceeded)
	log.Info("login succeeded", "user_id", u.ID)
	return token, nil
}

func (s *Service) reject(log logger.Logger, reason string) error {
	metrics.RecordLogin(metrics.LoginRejected)
	log.Info("login rejected", "reason", reason)
	return controller.NewForbiddenError(MsgRejected)
}

// Handler exposes POST /login.
type Handler struct {
	service *Service
}

// NewHandler creates a login handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Register mounts POST /login on r behind mw, typically the rate limiter.
func (h *Handler) Register(r router.Router, mw ...router.MiddlewareFunc) {
	r.POST("/login", h.login, mw...)
}

func (h *Handler) login(c router.Context) error {
	var req Request
	if err := controller.BindAndValidate(c, &req); err != nil {
		return controller.Error(c, err)
	}
	token, err := h.service.Login(c.Request().Context(), req.Login, req.Password)
	if err != nil {
		return controller.Error(c, err)
	}
	return controller.Success(c, Response{Token: token})
}
