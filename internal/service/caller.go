package service

import (
	"context"

	"github.com/Freeeeeet/lecture_booking/internal/model"
)

// Caller идентичность инициатора запроса
type Caller struct {
	ID   int64
	Role model.Role
}

func (c Caller) IsAdmin() bool   { return c.Role == model.RoleAdmin }
func (c Caller) IsTeacher() bool { return c.Role == model.RoleTeacher }

type callerKey struct{}

// WithCaller кладёт инициатора в контекст запроса
func WithCaller(ctx context.Context, c Caller) context.Context {
	return context.WithValue(ctx, callerKey{}, c)
}

// CallerFrom достаёт инициатора из контекста
func CallerFrom(ctx context.Context) (Caller, bool) {
	c, ok := ctx.Value(callerKey{}).(Caller)
	return c, ok
}
