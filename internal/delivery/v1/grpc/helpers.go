package grpc

import (
	"errors"

	"github.com/DRSN-tech/ecofinds/pkg/e"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type codeErr struct {
	err  error
	code codes.Code
}

// Конкретные причины сбоя поиска проверяются раньше ErrSearchFailed.
var codeErrors = []codeErr{
	{e.ErrDecode, codes.InvalidArgument},
	{e.ErrModel, codes.FailedPrecondition},
	{e.ErrIndexNotLoaded, codes.Unavailable},
	{e.ErrOutOfRange, codes.Internal},
	{e.ErrSearchFailed, codes.Internal},

	{e.ErrStatusBadRequest, codes.InvalidArgument},
	{e.ErrNoImages, codes.InvalidArgument},
	{e.ErrNoProducts, codes.InvalidArgument},
	{e.ErrInvalidTopK, codes.InvalidArgument},
	{e.ErrProductNotFound, codes.NotFound},
}

// GRPCErrorResponse переводит доменную ошибку в gRPC-статус.
func GRPCErrorResponse(err error) error {
	for _, ce := range codeErrors {
		if errors.Is(err, ce.err) {
			return status.Error(ce.code, ce.err.Error())
		}
	}

	return status.Error(codes.Internal, e.ErrInternalServerError.Error())
}
