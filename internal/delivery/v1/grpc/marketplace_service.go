package grpc

import (
	"context"
	"encoding/base64"
	"fmt"
	"math"

	"github.com/DRSN-tech/ecofinds/internal/usecase"
	"github.com/DRSN-tech/ecofinds/pkg/e"
	"github.com/DRSN-tech/ecofinds/pkg/logger"
	"github.com/shopspring/decimal"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	ServiceName           = "marketplace.v1.MarketplaceService"
	GetProductsInfoMethod = "/" + ServiceName + "/GetProductsInfo"
	FindSimilarMethod     = "/" + ServiceName + "/FindSimilar"
)

// MarketplaceServer: методы сервиса поверх google.protobuf.Struct.
//
//	GetProductsInfo: {ids: [int]} -> {products: [{id, title, category, price, image_url}], not_found: [int]}
//	FindSimilar:     {image: base64, top_k?: int} -> {product_ids: [int], products: [...]}
type MarketplaceServer interface {
	GetProductsInfo(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	FindSimilar(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

// MarketplaceServiceDesc регистрируется вручную: сообщения сервиса: well-known types.
var MarketplaceServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*MarketplaceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "GetProductsInfo",
			Handler:    getProductsInfoHandler,
		},
		{
			MethodName: "FindSimilar",
			Handler:    findSimilarHandler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "marketplace/v1/marketplace.proto",
}

func getProductsInfoHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(MarketplaceServer).GetProductsInfo(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: GetProductsInfoMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(MarketplaceServer).GetProductsInfo(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func findSimilarHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(MarketplaceServer).FindSimilar(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: FindSimilarMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(MarketplaceServer).FindSimilar(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

type MarketplaceService struct {
	prUC     usecase.ProductUC
	searchUC usecase.SearchUC
	logger   logger.Logger
}

func NewMarketplaceService(prUC usecase.ProductUC, searchUC usecase.SearchUC, logger logger.Logger) *MarketplaceService {
	return &MarketplaceService{prUC: prUC, searchUC: searchUC, logger: logger}
}

func (g *MarketplaceService) GetProductsInfo(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	const op = "grpc.GetProductsInfo"

	ids, err := int64List(req.GetFields()["ids"])
	if err != nil {
		return nil, GRPCErrorResponse(e.Wrap(op, err))
	}

	res, err := g.prUC.GetProductsInfo(ctx, usecase.NewGetProductsReq(ids))
	if err != nil {
		g.logger.Errorf(e.Wrap(op, err), "%s", op)
		return nil, GRPCErrorResponse(e.Wrap(op, err))
	}

	return toStruct(op, map[string]any{
		"products":  toProductList(res.Products),
		"not_found": toNumberList(res.NotFoundProducts),
	})
}

func (g *MarketplaceService) FindSimilar(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	const op = "grpc.FindSimilar"

	fields := req.GetFields()
	image, err := base64.StdEncoding.DecodeString(fields["image"].GetStringValue())
	if err != nil {
		return nil, GRPCErrorResponse(e.Wrap(op, e.ErrDecode))
	}

	topK := 0
	if v, ok := fields["top_k"]; ok {
		n, err := toInt64(v)
		if err != nil {
			return nil, GRPCErrorResponse(e.Wrap(op, e.ErrInvalidTopK))
		}
		topK = int(n)
	}

	res, err := g.searchUC.FindSimilar(ctx, &usecase.FindSimilarReq{Image: image, TopK: topK})
	if err != nil {
		g.logger.Warnf("%s: %v", op, err)
		return nil, GRPCErrorResponse(e.Wrap(op, err))
	}

	return toStruct(op, map[string]any{
		"product_ids": toNumberList(res.ProductIDs),
		"products":    toProductList(res.Products),
	})
}

func toStruct(op string, m map[string]any) (*structpb.Struct, error) {
	res, err := structpb.NewStruct(m)
	if err != nil {
		return nil, GRPCErrorResponse(e.Wrap(op, err))
	}
	return res, nil
}

func toProductList(prs []usecase.ProductInfo) []any {
	res := make([]any, 0, len(prs))
	for _, p := range prs {
		res = append(res, map[string]any{
			"id":        float64(p.ID),
			"title":     p.Title,
			"category":  p.CategoryName,
			"price":     decimal.New(p.Price, -2).StringFixed(2),
			"image_url": p.ImageURL,
		})
	}
	return res
}

func toNumberList(ids []int64) []any {
	res := make([]any, 0, len(ids))
	for _, id := range ids {
		res = append(res, float64(id))
	}
	return res
}

func int64List(v *structpb.Value) ([]int64, error) {
	list := v.GetListValue()
	if list == nil {
		return nil, e.ErrNoProducts
	}

	ids := make([]int64, 0, len(list.GetValues()))
	for _, item := range list.GetValues() {
		id, err := toInt64(item)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// toInt64 принимает только целые числа, точно представимые в float64.
func toInt64(v *structpb.Value) (int64, error) {
	num, ok := v.GetKind().(*structpb.Value_NumberValue)
	if !ok {
		return 0, fmt.Errorf("expected number: %w", e.ErrStatusBadRequest)
	}

	f := num.NumberValue
	if f != math.Trunc(f) || math.Abs(f) > 1<<53 {
		return 0, fmt.Errorf("%v is not an integer: %w", f, e.ErrStatusBadRequest)
	}
	return int64(f), nil
}
