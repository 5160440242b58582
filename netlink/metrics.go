package netlink

import (
	"fmt"
	"reflect"

	"github.com/prometheus/client_golang/prometheus"
)

// Skip reasons used as the 'reason' label of rtnl_skipped_messages_total.
const (
	skipSender     = "sender"
	skipSequence   = "sequence"
	skipUnexpected = "unexpected"
)

type metrics struct {
	Requests   *prometheus.CounterVec
	Skipped    *prometheus.CounterVec
	Truncated  prometheus.Counter
	Decoded    *prometheus.CounterVec
	KernelErrs *prometheus.CounterVec
}

func newMetrics() *metrics {
	return &metrics{
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rtnl_requests_total",
			Help: "Requests sent to the kernel",
		}, []string{"type"}),

		Skipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rtnl_skipped_messages_total",
			Help: "Received messages not belonging to the ongoing exchange",
		}, []string{"reason"}),

		Truncated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rtnl_truncated_datagrams_total",
			Help: "Datagrams discarded for exceeding the maximum receive buffer",
		}),

		Decoded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rtnl_decoded_records_total",
			Help: "Decoded dump records by kind and outcome",
		}, []string{"kind", "outcome"}),

		KernelErrs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rtnl_kernel_errors_total",
			Help: "NLMSG_ERROR replies carrying a non-zero code",
		}, []string{"type"}),
	}
}

func (m *metrics) register(reg prometheus.Registerer) error {
	v := reflect.ValueOf(*m)
	for i := 0; i < v.NumField(); i++ {
		c, ok := v.Field(i).Interface().(prometheus.Collector)
		if !ok {
			return fmt.Errorf("field %s is not a collector", v.Type().Field(i).Name)
		}
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// The helpers below are nil-safe so that codecs can be driven without a
// session in tests.

func (m *metrics) observeRequest(t uint16) {
	if m == nil {
		return
	}
	m.Requests.WithLabelValues(msgTypeName(t)).Inc()
}

func (m *metrics) observeSkip(reason string) {
	if m == nil {
		return
	}
	m.Skipped.WithLabelValues(reason).Inc()
}

func (m *metrics) observeTruncation() {
	if m == nil {
		return
	}
	m.Truncated.Inc()
}

func (m *metrics) observeDecode(kind string, o Outcome) {
	if m == nil {
		return
	}
	m.Decoded.WithLabelValues(kind, o.String()).Inc()
}

func (m *metrics) observeKernelError(t uint16) {
	if m == nil {
		return
	}
	m.KernelErrs.WithLabelValues(msgTypeName(t)).Inc()
}
