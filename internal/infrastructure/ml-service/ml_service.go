package ml_service

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"sync/atomic"
	"time"

	"github.com/DRSN-tech/ecofinds/internal/cfg"
	"github.com/DRSN-tech/ecofinds/pkg/e"
	"github.com/DRSN-tech/ecofinds/pkg/jitter"
	"github.com/DRSN-tech/ecofinds/pkg/logger"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// VectorizeImageMethod: полный gRPC-метод ML-сервиса.
// Запрос: google.protobuf.BytesValue с PNG, ответ: google.protobuf.Struct{vector, model_version}.
const VectorizeImageMethod = "/ml.v1.MachineLearningService/VectorizeImage"

const unknownModelVersion = "ml-service"

// MLService: энкодер изображений поверх внешнего ML-сервиса.
// Повторяет только транспортные сбои (Unavailable, ResourceExhausted); ответ модели
// с ошибкой детерминирован и не повторяется.
type MLService struct {
	conn         grpc.ClientConnInterface
	sem          chan struct{}
	retry        jitter.Policy
	timeout      time.Duration
	dimension    int
	modelVersion atomic.Pointer[string]
	logger       logger.Logger
}

func NewMLService(conn grpc.ClientConnInterface, cfg *cfg.MLServiceCfg, dimension int, logger logger.Logger) *MLService {
	const (
		baseJitter = 200 * time.Millisecond
		maxJitter  = 5 * time.Second
	)

	maxConcurrent := cfg.MaxConcurrent
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}

	m := &MLService{
		conn:      conn,
		sem:       make(chan struct{}, maxConcurrent),
		timeout:   cfg.Timeout,
		dimension: dimension,
		logger:    logger,
	}
	m.retry = jitter.Policy{
		Attempts:  cfg.MaxRetries,
		Base:      baseJitter,
		Max:       maxJitter,
		Jitter:    jitter.DefaultJitter,
		Retryable: isTransient,
		OnRetry: func(attempt int, wait time.Duration, err error) {
			m.logger.Warnf("vectorization failed, retrying in %v (attempt %d): %v", wait, attempt, err)
		},
	}

	return m
}

func (m *MLService) Dimension() int {
	return m.dimension
}

// ModelVersion: версия модели из последнего успешного ответа.
func (m *MLService) ModelVersion() string {
	if v := m.modelVersion.Load(); v != nil {
		return *v
	}
	return unknownModelVersion
}

// Encode отправляет изображение (в PNG) в ML-сервис и возвращает вектор.
func (m *MLService) Encode(ctx context.Context, img image.Image) ([]float32, error) {
	const op = "MLService.Encode"

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, e.Wrap(op, err)
	}
	req := wrapperspb.Bytes(buf.Bytes())

	select {
	case m.sem <- struct{}{}:
		defer func() { <-m.sem }()
	case <-ctx.Done():
		return nil, e.Wrap(op, ctx.Err())
	}

	var vector []float32
	err := jitter.Retry(ctx, m.retry, func(ctx context.Context) error {
		callCtx := ctx
		if m.timeout > 0 {
			var cancel context.CancelFunc
			callCtx, cancel = context.WithTimeout(ctx, m.timeout)
			defer cancel()
		}

		res := &structpb.Struct{}
		if err := m.conn.Invoke(callCtx, VectorizeImageMethod, req, res); err != nil {
			return err
		}

		vec, version, err := parseVectorizeResponse(res)
		if err != nil {
			return err
		}

		vector = vec
		if version != "" {
			m.modelVersion.Store(&version)
		}
		return nil
	})
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	return vector, nil
}

func parseVectorizeResponse(res *structpb.Struct) ([]float32, string, error) {
	fields := res.GetFields()

	list := fields["vector"].GetListValue()
	if list == nil {
		return nil, "", fmt.Errorf("response has no vector: %w", e.ErrVectorEmbeddingEmpty)
	}

	vector := make([]float32, len(list.GetValues()))
	for i, v := range list.GetValues() {
		num, ok := v.GetKind().(*structpb.Value_NumberValue)
		if !ok {
			return nil, "", fmt.Errorf("vector component %d is %T, want number", i, v.GetKind())
		}
		vector[i] = float32(num.NumberValue)
	}

	return vector, fields["model_version"].GetStringValue(), nil
}

func isTransient(err error) bool {
	switch status.Code(err) {
	case codes.Unavailable, codes.ResourceExhausted:
		return true
	default:
		return false
	}
}
