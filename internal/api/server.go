// Package api serves the normalization kernels over HTTP. Requests carry
// quantized values as plain integers; validation happens entirely at this
// layer so the kernels below never see a malformed call.
package api

import (
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/samcharles93/quantkit/internal/kernels"
	"github.com/samcharles93/quantkit/internal/logger"
	"github.com/samcharles93/quantkit/internal/metrics"
	"github.com/samcharles93/quantkit/internal/tensor"
	"github.com/samcharles93/quantkit/internal/version"
	"github.com/samcharles93/quantkit/pkg/qdesc"
)

// maxRequestElems bounds the tensor size a single request may allocate.
const maxRequestElems = 1 << 22

type Server struct {
	ops   kernels.Ops
	log   logger.Logger
	clock func() time.Time
}

func NewServer(ops kernels.Ops, log logger.Logger) *Server {
	if log == nil {
		log = logger.Default()
	}
	return &Server{
		ops:   kernels.EnsureOps(ops),
		log:   log,
		clock: time.Now,
	}
}

func (s *Server) Register(e *echo.Echo) {
	e.POST("/v1/ops/quantized_layer_norm", s.handleLayerNorm)
	e.GET("/v1/ops", s.handleListOps)
	e.GET("/healthz", s.handleHealth)
	e.GET("/metrics", s.handleMetrics)
}

func (s *Server) handleLayerNorm(c *echo.Context) error {
	req, err := decodeJSON[NormRequest](c.Request().Body)
	if err != nil {
		metrics.RecordRequestError("bad_json")
		return writeBadRequest(c, "invalid JSON body: "+err.Error())
	}

	dt, weight, bias, err := validateNorm(&req)
	if err != nil {
		metrics.RecordRequestError("validation")
		return writeBadRequest(c, err.Error())
	}

	n := req.Dims[len(req.Dims)-1]
	in := tensor.New(dt, req.Dims...)
	out := tensor.New(dt, req.Dims...)
	if err := tensor.SetInt64s(in, req.Input); err != nil {
		metrics.RecordRequestError("value_range")
		return writeBadRequest(c, err.Error())
	}

	start := s.clock()
	s.ops.QuantizedLayerNormPerTensor(in, req.InScale, req.InZeroPoint, []int{n}, weight, bias, req.Eps, req.OutScale, req.OutZeroPoint, out)
	elapsed := s.clock().Sub(start)

	rows := in.LeadingDims()
	metrics.RecordOp("quantized_layer_norm", dt.String(), rows, n, elapsed)
	s.log.Debug("layer norm served",
		"dtype", dt.String(),
		"rows", rows,
		"row_length", n,
		"duration", elapsed,
	)

	return c.JSON(http.StatusOK, NormResponse{
		ID:         "op_" + uuid.NewString(),
		Object:     "op.result",
		DType:      dt.String(),
		Dims:       req.Dims,
		Output:     tensor.Int64Values(out),
		Rows:       rows,
		RowLength:  n,
		DurationMS: float64(elapsed) / float64(time.Millisecond),
		Created:    s.clock().Unix(),
	})
}

func (s *Server) handleListOps(c *echo.Context) error {
	return c.JSON(http.StatusOK, []OpInfo{
		{
			Name:   "quantized_layer_norm",
			Path:   "/v1/ops/quantized_layer_norm",
			DTypes: []string{"u8", "i8", "u16", "i16"},
		},
	})
}

func (s *Server) handleHealth(c *echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{
		Status:  "ok",
		Version: version.String(),
		AVX2:    kernels.Features().HasAVX2,
	})
}

func (s *Server) handleMetrics(c *echo.Context) error {
	promhttp.Handler().ServeHTTP(c.Response(), c.Request())
	return nil
}

// validateNorm checks everything the kernels treat as a caller contract, so
// no request body can reach a kernel panic. Returns the parsed dtype and the
// weight and bias vectors with defaults applied.
func validateNorm(req *NormRequest) (qdesc.DType, []float32, []float32, error) {
	dt, err := qdesc.ParseDType(req.DType)
	if err != nil {
		return 0, nil, nil, newInvalidRequest(err.Error())
	}
	if !dt.IsQuantized() {
		return 0, nil, nil, newInvalidRequest("dtype " + dt.String() + " is not a quantized element type")
	}
	if len(req.Dims) == 0 {
		return 0, nil, nil, newInvalidRequest("dims must not be empty")
	}
	numElems := 1
	for _, d := range req.Dims {
		if d <= 0 {
			return 0, nil, nil, newInvalidRequest(fmt.Sprintf("dims entries must be positive, got %d", d))
		}
		if numElems > maxRequestElems/d {
			return 0, nil, nil, newInvalidRequest("tensor too large for a single request")
		}
		numElems *= d
	}
	if len(req.Input) != numElems {
		return 0, nil, nil, newInvalidRequest(fmt.Sprintf("input has %d values, dims need %d", len(req.Input), numElems))
	}
	if !(req.InScale > 0) || math.IsInf(req.InScale, 0) {
		return 0, nil, nil, newInvalidRequest("in_scale must be a positive finite value")
	}
	if !(req.Eps > 0) || math.IsInf(req.Eps, 0) {
		return 0, nil, nil, newInvalidRequest("eps must be a positive finite value")
	}
	if !(req.OutScale > 0) || math.IsInf(req.OutScale, 0) {
		return 0, nil, nil, newInvalidRequest("out_scale must be a positive finite value")
	}

	n := req.Dims[len(req.Dims)-1]
	weight := req.Weight
	if weight == nil {
		weight = make([]float32, n)
		for j := range weight {
			weight[j] = 1
		}
	} else if len(weight) != n {
		return 0, nil, nil, newInvalidRequest(fmt.Sprintf("weight has %d values, trailing dimension is %d", len(weight), n))
	}
	bias := req.Bias
	if bias == nil {
		bias = make([]float32, n)
	} else if len(bias) != n {
		return 0, nil, nil, newInvalidRequest(fmt.Sprintf("bias has %d values, trailing dimension is %d", len(bias), n))
	}
	return dt, weight, bias, nil
}
