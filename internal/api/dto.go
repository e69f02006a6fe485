package api

// NormRequest is the JSON body of POST /v1/ops/quantized_layer_norm.
// Quantized values travel as plain integers so every supported element type
// fits one wire shape. Weight defaults to all ones and Bias to all zeros.
type NormRequest struct {
	DType string  `json:"dtype"`
	Dims  []int   `json:"dims"`
	Input []int64 `json:"input"`

	InScale      float64   `json:"in_scale"`
	InZeroPoint  int64     `json:"in_zero_point"`
	Weight       []float32 `json:"weight,omitempty"`
	Bias         []float32 `json:"bias,omitempty"`
	Eps          float64   `json:"eps"`
	OutScale     float64   `json:"out_scale"`
	OutZeroPoint int64     `json:"out_zero_point"`
}

type NormResponse struct {
	ID         string  `json:"id"`
	Object     string  `json:"object"`
	DType      string  `json:"dtype"`
	Dims       []int   `json:"dims"`
	Output     []int64 `json:"output"`
	Rows       int     `json:"rows"`
	RowLength  int     `json:"row_length"`
	DurationMS float64 `json:"duration_ms"`
	Created    int64   `json:"created"`
}

type ResponseError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    string `json:"code,omitempty"`
	Param   string `json:"param,omitempty"`
}

type OpInfo struct {
	Name   string   `json:"name"`
	Path   string   `json:"path"`
	DTypes []string `json:"dtypes"`
}

type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	AVX2    bool   `json:"avx2"`
}
