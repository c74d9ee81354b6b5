package grpc

import (
	"context"
	"encoding/base64"
	"net"
	"testing"
	"time"

	"github.com/DRSN-tech/ecofinds/internal/cfg"
	"github.com/DRSN-tech/ecofinds/internal/usecase"
	"github.com/DRSN-tech/ecofinds/pkg/e"
	"github.com/DRSN-tech/ecofinds/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"
)

type stubProducts struct {
	usecase.ProductUC
	gotIDs []int64
}

func (s *stubProducts) GetProductsInfo(_ context.Context, req *usecase.GetProductsReq) (*usecase.GetProductsRes, error) {
	s.gotIDs = req.IDs
	if len(req.IDs) == 0 {
		return nil, e.Wrap("GetProductsInfo", e.ErrNoProducts)
	}
	return &usecase.GetProductsRes{
		Products:         []usecase.ProductInfo{{ID: req.IDs[0], Title: "Lamp", CategoryName: "Home", Price: 1250}},
		NotFoundProducts: req.IDs[1:],
	}, nil
}

type stubSearch struct {
	err   error
	req   *usecase.FindSimilarReq
	ready bool
}

func (s *stubSearch) FindSimilar(_ context.Context, req *usecase.FindSimilarReq) (*usecase.FindSimilarRes, error) {
	s.req = req
	if s.err != nil {
		return nil, s.err
	}
	return &usecase.FindSimilarRes{ProductIDs: []int64{9, 3}, Products: []usecase.ProductInfo{}}, nil
}

func (s *stubSearch) Ready() bool { return s.ready }

type testServer struct {
	conn     *grpc.ClientConn
	srv      *GRPCServer
	products *stubProducts
	search   *stubSearch
}

func startServer(t *testing.T) *testServer {
	t.Helper()

	lis := bufconn.Listen(1 << 20)
	ts := &testServer{products: &stubProducts{}, search: &stubSearch{}}
	ts.srv = NewGRPCServer(&cfg.GRPCConfig{}, logger.NewNopLogger())
	ts.srv.RegisterServices(ts.products, ts.search)

	go func() { _ = ts.srv.Serve(lis) }()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	ts.conn = conn

	t.Cleanup(func() {
		conn.Close()
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = ts.srv.Stop(ctx)
	})
	return ts
}

func mustStruct(t *testing.T, m map[string]any) *structpb.Struct {
	t.Helper()
	s, err := structpb.NewStruct(m)
	require.NoError(t, err)
	return s
}

func TestGetProductsInfo(t *testing.T) {
	ts := startServer(t)

	res := &structpb.Struct{}
	err := ts.conn.Invoke(context.Background(), GetProductsInfoMethod, mustStruct(t, map[string]any{"ids": []any{5, 6}}), res)
	require.NoError(t, err)

	assert.Equal(t, []int64{5, 6}, ts.products.gotIDs)

	products := res.GetFields()["products"].GetListValue().GetValues()
	require.Len(t, products, 1)
	p := products[0].GetStructValue().GetFields()
	assert.Equal(t, float64(5), p["id"].GetNumberValue())
	assert.Equal(t, "12.50", p["price"].GetStringValue())

	notFound := res.GetFields()["not_found"].GetListValue().GetValues()
	require.Len(t, notFound, 1)
	assert.Equal(t, float64(6), notFound[0].GetNumberValue())
}

func TestGetProductsInfo_InvalidArgument(t *testing.T) {
	ts := startServer(t)

	tests := []map[string]any{
		{},
		{"ids": []any{}},
		{"ids": []any{1.5}},
		{"ids": []any{"7"}},
	}
	for _, req := range tests {
		err := ts.conn.Invoke(context.Background(), GetProductsInfoMethod, mustStruct(t, req), &structpb.Struct{})
		assert.Equal(t, codes.InvalidArgument, status.Code(err), req)
	}
}

func TestFindSimilar(t *testing.T) {
	ts := startServer(t)

	req := mustStruct(t, map[string]any{
		"image": base64.StdEncoding.EncodeToString([]byte("png bytes")),
		"top_k": 2,
	})
	res := &structpb.Struct{}
	require.NoError(t, ts.conn.Invoke(context.Background(), FindSimilarMethod, req, res))

	require.NotNil(t, ts.search.req)
	assert.Equal(t, 2, ts.search.req.TopK)
	assert.Equal(t, []byte("png bytes"), ts.search.req.Image)

	ids := res.GetFields()["product_ids"].GetListValue().GetValues()
	require.Len(t, ids, 2)
	assert.Equal(t, float64(9), ids[0].GetNumberValue())
}

func TestFindSimilar_ErrorCodes(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code codes.Code
	}{
		{"not loaded", e.ErrIndexNotLoaded, codes.Unavailable},
		{"decode", e.ErrDecode, codes.InvalidArgument},
		{"model", e.SearchFailed("op", e.ErrModel), codes.FailedPrecondition},
		{"out of range", e.SearchFailed("op", e.ErrOutOfRange), codes.Internal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := startServer(t)
			ts.search.err = tt.err

			req := mustStruct(t, map[string]any{"image": base64.StdEncoding.EncodeToString([]byte("x"))})
			err := ts.conn.Invoke(context.Background(), FindSimilarMethod, req, &structpb.Struct{})
			assert.Equal(t, tt.code, status.Code(err))
		})
	}
}

func TestFindSimilar_BadBase64(t *testing.T) {
	ts := startServer(t)

	err := ts.conn.Invoke(context.Background(), FindSimilarMethod, mustStruct(t, map[string]any{"image": "%%%"}), &structpb.Struct{})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
	assert.Nil(t, ts.search.req)
}

func TestHealth_SimilarityBecomesServing(t *testing.T) {
	ts := startServer(t)
	client := healthpb.NewHealthClient(ts.conn)

	res, err := client.Check(context.Background(), &healthpb.HealthCheckRequest{Service: SimilarityHealthService})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, res.GetStatus())

	res, err = client.Check(context.Background(), &healthpb.HealthCheckRequest{Service: ServiceName})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, res.GetStatus())

	ts.search.ready = true
	ts.srv.WatchSimilarity(context.Background(), ts.search.Ready, time.Millisecond)

	res, err = client.Check(context.Background(), &healthpb.HealthCheckRequest{Service: SimilarityHealthService})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, res.GetStatus())
}

func TestWatchSimilarity_StopsOnCancel(t *testing.T) {
	srv := NewGRPCServer(&cfg.GRPCConfig{}, logger.NewNopLogger())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan struct{})
	go func() {
		srv.WatchSimilarity(ctx, func() bool { return false }, time.Hour)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("WatchSimilarity did not return after cancel")
	}
}

func TestGRPCErrorResponse_Default(t *testing.T) {
	err := GRPCErrorResponse(assert.AnError)
	assert.Equal(t, codes.Internal, status.Code(err))
	assert.Equal(t, codes.NotFound, status.Code(GRPCErrorResponse(e.ErrProductNotFound)))
}
