package sink

import (
	"github.com/relabs-tech/seismic_analyze/internal/integrate"
	"github.com/relabs-tech/seismic_analyze/internal/pipeline"
)

// Multi emits every displacement to each sink in order and stops at the
// first failure.
type Multi []pipeline.Sink

func (m Multi) Emit(d integrate.Displacement) error {
	for _, s := range m {
		if err := s.Emit(d); err != nil {
			return err
		}
	}
	return nil
}
