package control

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/signalsfoundry/orrery/core"
	"github.com/signalsfoundry/orrery/internal/session"
	"github.com/signalsfoundry/orrery/registry"
)

// ErrInvalidRequest marks a request with missing or mistyped fields.
var ErrInvalidRequest = errors.New("invalid request")

// ToStatusError maps scene and session errors onto gRPC status codes.
func ToStatusError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}

	switch {
	case errors.Is(err, registry.ErrBodyNotFound),
		errors.Is(err, core.ErrBodyNotInScene):
		return status.Error(codes.NotFound, err.Error())

	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, registry.ErrBodyInvalid),
		errors.Is(err, core.ErrInvalidViewport):
		return status.Error(codes.InvalidArgument, err.Error())

	case errors.Is(err, registry.ErrBodyExists),
		errors.Is(err, core.ErrBodyInScene):
		return status.Error(codes.AlreadyExists, err.Error())

	case errors.Is(err, session.ErrClosed):
		return status.Error(codes.Unavailable, err.Error())

	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())

	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())

	default:
		return status.Error(codes.Internal, err.Error())
	}
}
