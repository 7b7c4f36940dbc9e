package authorization

import (
	"context"
	"errors"
	"strings"
)

// Actor is the caller of a bill operation. It is passed explicitly to every
// service call.
type Actor struct {
	ID   string `json:"id"`
	Role Role   `json:"role"`
}

func (a Actor) Authenticated() bool {
	return strings.TrimSpace(a.ID) != "" && a.Role.Authenticated()
}

func (a Actor) subject() string {
	return "user:" + strings.TrimSpace(a.ID)
}

type Service interface {
	Authorize(ctx context.Context, actor Actor, object string, action string) error
}

var (
	ErrInvalidActor  = errors.New("invalid_actor")
	ErrInvalidObject = errors.New("invalid_object")
	ErrInvalidAction = errors.New("invalid_action")
	ErrForbidden     = errors.New("forbidden")
)
