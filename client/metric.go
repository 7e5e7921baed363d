package client

import "sync/atomic"

// ClientMetrics contains atomic metrics for a client.
// Metrics can be used as the value of a prometheus CounterFunc or GaugeFunc.
type ClientMetrics struct {
	// OpenCount indicates the number of successful opens, reconnects included.
	OpenCount atomic.Uint64
	// OpenErrCount indicates the number of failed opens.
	OpenErrCount atomic.Uint64
	// ReconnectCount indicates the number of reconnect attempts made by Send.
	ReconnectCount atomic.Uint64

	// SendCount indicates the number of messages sent.
	SendCount atomic.Uint64
	// RecvCount indicates the number of non-empty messages received.
	RecvCount atomic.Uint64
	// ErrCount indicates the number of failed sends and receives.
	ErrCount atomic.Uint64
}

func (m *ClientMetrics) incOpenCount() {
	m.OpenCount.Add(1)
}

func (m *ClientMetrics) incOpenErrCount() {
	m.OpenErrCount.Add(1)
}

func (m *ClientMetrics) incReconnectCount() {
	m.ReconnectCount.Add(1)
}

func (m *ClientMetrics) incSendCount() {
	m.SendCount.Add(1)
}

func (m *ClientMetrics) incRecvCount() {
	m.RecvCount.Add(1)
}

func (m *ClientMetrics) incErrCount() {
	m.ErrCount.Add(1)
}
