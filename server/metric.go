package server

import "sync/atomic"

// ServerMetrics contains atomic metrics for a server.
// Metrics can be used as the value of a prometheus CounterFunc or GaugeFunc.
type ServerMetrics struct {
	// AcceptCount indicates the number of accepted and registered connections.
	AcceptCount atomic.Uint64
	// AcceptErrCount indicates the number of failed accepts.
	AcceptErrCount atomic.Uint64
	// ResolveErrCount indicates the number of accepted connections dropped because the
	// initial state could not be resolved.
	ResolveErrCount atomic.Uint64
	// RemovedCount indicates the number of connections removed from the registry.
	RemovedCount atomic.Uint64
	// ActiveConnGauge indicates the number of registered connections.
	ActiveConnGauge atomic.Int64

	// MsgRecvCount indicates the number of messages received by connection handlers.
	MsgRecvCount atomic.Uint64
	// MsgSendCount indicates the number of messages sent by connection handlers.
	MsgSendCount atomic.Uint64
}

func (m *ServerMetrics) incAcceptCount() {
	m.AcceptCount.Add(1)
	m.ActiveConnGauge.Add(1)
}

func (m *ServerMetrics) incAcceptErrCount() {
	m.AcceptErrCount.Add(1)
}

func (m *ServerMetrics) incResolveErrCount() {
	m.ResolveErrCount.Add(1)
}

func (m *ServerMetrics) incRemovedCount() {
	m.RemovedCount.Add(1)
	m.ActiveConnGauge.Add(-1)
}

func (m *ServerMetrics) incMsgRecvCount() {
	m.MsgRecvCount.Add(1)
}

func (m *ServerMetrics) incMsgSendCount() {
	m.MsgSendCount.Add(1)
}
