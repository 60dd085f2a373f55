//Package metrics exports the timings and outcomes of filter pipeline runs to Prometheus.
//A *Recorder is passed to the pipelines through filtering.Options.Recorder.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/cdjsvis/atoman"
)

const namespace = "atoman"

//Recorder collects per-stage and per-run durations, visible atom counts and
//outcomes. It is safe for concurrent use.
type Recorder struct {
	stageSeconds *prometheus.HistogramVec
	runSeconds   *prometheus.HistogramVec
	stages       *prometheus.CounterVec
	runs         *prometheus.CounterVec
	visible      *prometheus.GaugeVec
}

//New returns a Recorder registered with reg. If reg is nil, the default Prometheus
//registerer is used.
func New(reg prometheus.Registerer) (*Recorder, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	R := &Recorder{
		stageSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Time taken to apply a filter stage.",
			Buckets:   prometheus.ExponentialBuckets(1e-4, 4, 10),
		}, []string{"pipeline", "stage"}),
		runSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pipeline_duration_seconds",
			Help:      "Time taken to apply a whole pipeline.",
			Buckets:   prometheus.ExponentialBuckets(1e-3, 4, 10),
		}, []string{"pipeline"}),
		stages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stages_total",
			Help:      "Filter stages applied, by outcome.",
		}, []string{"pipeline", "stage", "status"}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pipeline_runs_total",
			Help:      "Pipeline runs, by outcome.",
		}, []string{"pipeline", "status"}),
		visible: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "visible_atoms",
			Help:      "Atoms left visible after the last successful run of a stage. The stage label is empty for the whole pipeline.",
		}, []string{"pipeline", "stage"}),
	}
	for _, c := range []prometheus.Collector{R.stageSeconds, R.runSeconds, R.stages, R.runs, R.visible} {
		if err := reg.Register(c); err != nil {
			return nil, atoman.NewError("can't register collector: "+err.Error(), "metrics.New", false)
		}
	}
	return R, nil
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

//ObserveStage records one stage application.
func (R *Recorder) ObserveStage(pipeline, stage string, d time.Duration, visible int, err error) {
	R.stageSeconds.WithLabelValues(pipeline, stage).Observe(d.Seconds())
	R.stages.WithLabelValues(pipeline, stage, status(err)).Inc()
	if err == nil {
		R.visible.WithLabelValues(pipeline, stage).Set(float64(visible))
	}
}

//ObserveRun records one pipeline run.
func (R *Recorder) ObserveRun(pipeline string, d time.Duration, visible int, err error) {
	R.runSeconds.WithLabelValues(pipeline).Observe(d.Seconds())
	R.runs.WithLabelValues(pipeline, status(err)).Inc()
	if err == nil {
		R.visible.WithLabelValues(pipeline, "").Set(float64(visible))
	}
}
