package conformance

// DefaultSuite returns the built-in verification set used when no suite file
// is given. Short rows stay exact because they run the scalar float64 path;
// wide rows allow one quantization step of slack to cover the float32
// vectorized path.
func DefaultSuite() *Suite {
	return &Suite{
		Name: "builtin",
		Cases: []Case{
			{
				Name:         "flat-row-maps-to-output-zero-point",
				DType:        "u8",
				Dims:         []int{1, 4},
				Input:        []int64{10, 10, 10, 10},
				InScale:      0.1,
				Eps:          1e-5,
				OutScale:     0.05,
				OutZeroPoint: 128,
			},
			{
				Name:         "two-element-extremes",
				DType:        "u8",
				Dims:         []int{1, 2},
				Input:        []int64{0, 255},
				InScale:      0.1,
				InZeroPoint:  128,
				Eps:          1e-5,
				OutScale:     0.01,
				OutZeroPoint: 128,
			},
			{
				Name:         "u8-wide-rows",
				DType:        "u8",
				Dims:         []int{8, 512},
				Seed:         1,
				InScale:      0.02,
				InZeroPoint:  128,
				Eps:          1e-5,
				OutScale:     0.02,
				OutZeroPoint: 128,
				MaxStepDiff:  1,
			},
			{
				Name:         "i8-wide-rows",
				DType:        "i8",
				Dims:         []int{8, 512},
				Seed:         2,
				InScale:      0.05,
				InZeroPoint:  -3,
				Eps:          1e-5,
				OutScale:     0.05,
				OutZeroPoint: 5,
				MaxStepDiff:  1,
			},
			{
				Name:         "u16-wide-rows",
				DType:        "u16",
				Dims:         []int{4, 1024},
				Seed:         3,
				InScale:      0.001,
				InZeroPoint:  32768,
				Eps:          1e-5,
				OutScale:     0.001,
				OutZeroPoint: 32768,
				MaxStepDiff:  1,
			},
			{
				Name:        "i16-wide-rows",
				DType:       "i16",
				Dims:        []int{4, 1024},
				Seed:        4,
				InScale:     0.001,
				Eps:         1e-5,
				OutScale:    0.001,
				MaxStepDiff: 1,
			},
			{
				Name:        "narrow-output-saturates",
				DType:       "i8",
				Dims:        []int{2, 8},
				Seed:        5,
				InScale:     1.0,
				Eps:         1e-5,
				OutScale:    1e-6,
				MaxStepDiff: 0,
			},
			{
				Name:         "parallel-row-batch",
				DType:        "u8",
				Dims:         []int{128, 256},
				Seed:         6,
				InScale:      0.02,
				InZeroPoint:  100,
				Eps:          1e-3,
				OutScale:     0.02,
				OutZeroPoint: 100,
				MaxStepDiff:  1,
			},
		},
	}
}
