package metrics

import (
	"fmt"
	"slices"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var _ Sink = &Registry{}

// Registry is a Sink backed by Prometheus gauge vectors. One vector is
// registered per metric name, on first use, with the label names of that
// first use; later registrations must use the same label names.
type Registry struct {
	reg prometheus.Registerer

	mx   sync.Mutex
	vecs map[string]*gaugeVec
}

type gaugeVec struct {
	vec    *prometheus.GaugeVec
	labels []string
}

func NewRegistry(reg prometheus.Registerer) *Registry {
	return &Registry{
		reg:  reg,
		vecs: make(map[string]*gaugeVec),
	}
}

func (r *Registry) Gauge(name, help string, labels Labels) (Gauge, error) {
	names := labels.Names()
	r.mx.Lock()
	defer r.mx.Unlock()
	v, ok := r.vecs[name]
	if !ok {
		vec := prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: name,
			Help: help,
		}, names)
		if err := r.reg.Register(vec); err != nil {
			return nil, fmt.Errorf("could not register gauge %s: %w", name, err)
		}
		v = &gaugeVec{vec: vec, labels: names}
		r.vecs[name] = v
	}
	if !slices.Equal(v.labels, names) {
		return nil, fmt.Errorf("gauge %s registered with labels %v, got %v", name, v.labels, names)
	}
	g, err := v.vec.GetMetricWith(prometheus.Labels(labels))
	if err != nil {
		return nil, fmt.Errorf("could not get gauge %s%v: %w", name, labels, err)
	}
	return g, nil
}
