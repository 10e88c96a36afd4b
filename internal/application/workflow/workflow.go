// Package workflow ejecuta secuencias de pasos no transaccionales (llamadas a servicios externos)
// con compensación en orden inverso cuando falla un paso obligatorio.
package workflow

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/jhoicas/agrocloud-api/pkg/metrics"
)

// Criticality indica si el fallo de un paso aborta la secuencia.
type Criticality int

const (
	// Required: un fallo compensa los pasos completados y se devuelve el error.
	Required Criticality = iota
	// BestEffort: un fallo se registra y la secuencia continúa.
	BestEffort
)

func (c Criticality) String() string {
	if c == BestEffort {
		return "best_effort"
	}
	return "required"
}

// Step paso de la secuencia. Compensate es opcional.
type Step struct {
	Name        string
	Criticality Criticality
	Run         func(ctx context.Context) error
	Compensate  func(ctx context.Context) error
}

// Runner ejecuta pasos y sus compensaciones.
type Runner struct {
	log     zerolog.Logger
	metrics *metrics.Metrics
}

// NewRunner construye el runner; m puede ser nil.
func NewRunner(log zerolog.Logger, m *metrics.Metrics) *Runner {
	return &Runner{log: log, metrics: m}
}

// Execute corre los pasos en orden. Ante el fallo de un paso Required compensa los completados
// en orden inverso y devuelve el error original; los errores de compensación solo se registran.
func (r *Runner) Execute(ctx context.Context, steps []Step) error {
	done := make([]Step, 0, len(steps))
	for _, s := range steps {
		if err := s.Run(ctx); err != nil {
			if s.Criticality == BestEffort {
				r.log.Warn().Err(err).Str("step", s.Name).Msg("paso opcional falló, se continúa")
				continue
			}
			r.log.Error().Err(err).Str("step", s.Name).Msg("paso obligatorio falló, compensando")
			r.compensate(ctx, done)
			return err
		}
		done = append(done, s)
	}
	return nil
}

func (r *Runner) compensate(ctx context.Context, done []Step) {
	// La compensación corre aunque la petición se haya cancelado.
	cctx := context.WithoutCancel(ctx)
	for i := len(done) - 1; i >= 0; i-- {
		s := done[i]
		if s.Compensate == nil {
			continue
		}
		result := "ok"
		if err := s.Compensate(cctx); err != nil {
			result = "error"
			r.log.Error().Err(err).Str("step", s.Name).Msg("compensación falló")
		} else {
			r.log.Info().Str("step", s.Name).Msg("paso compensado")
		}
		if r.metrics != nil {
			r.metrics.Compensations.WithLabelValues(s.Name, result).Inc()
		}
	}
}
