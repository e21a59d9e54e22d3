package services

import (
	"context"
	"sync"

	"civica-backend/application/ports"
	"civica-backend/domain"
)

func cohortUpdate(name *string, status *domain.CohortStatus) ports.CohortUpdate {
	return ports.CohortUpdate{Name: name, Status: status}
}

// capturingPublisher records published events for assertions.
type capturingPublisher struct {
	mu     sync.Mutex
	events []domain.DomainEvent
	err    error
}

func (p *capturingPublisher) Publish(_ context.Context, event domain.DomainEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, event)
	return nil
}

func (p *capturingPublisher) published() []domain.DomainEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]domain.DomainEvent(nil), p.events...)
}

// capturingMetrics counts metric emissions by name.
type capturingMetrics struct {
	mu     sync.Mutex
	counts map[string]float64
}

func newCapturingMetrics() *capturingMetrics {
	return &capturingMetrics{counts: make(map[string]float64)}
}

func (m *capturingMetrics) Count(_ context.Context, name string, value float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counts[name] += value
}
