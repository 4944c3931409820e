package pipeline

import (
	"github.com/stretchr/testify/mock"
)

// --- Detector Mock ---

type mockDetector struct {
	mock.Mock
}

func (m *mockDetector) FitAndLabel(x [][]float64, contamination float64, seed int64) ([]bool, error) {
	args := m.Called(x, contamination, seed)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]bool), args.Error(1)
}
