package services

import "bsanalyzer/pkg/contracts/events"

// EventPublisher pushes messages to connected admin dashboards.
type EventPublisher interface {
	Broadcast(messageType string, data interface{})
}

type noopPublisher struct{}

func (noopPublisher) Broadcast(string, interface{}) {}

func publisherOrNoop(p EventPublisher) EventPublisher {
	if p == nil {
		return noopPublisher{}
	}
	return p
}

func publish(p EventPublisher, t events.MessageType, data interface{}) {
	p.Broadcast(string(t), data)
}
