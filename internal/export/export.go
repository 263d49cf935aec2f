// Package export publishes finished reports to files and Kafka.
package export

import (
	"context"

	"deliverylens/internal/engine"
)

// Publisher stores or forwards one report under a run identifier.
type Publisher interface {
	Publish(ctx context.Context, runID string, rep engine.Report) error
}

// MultiPublisher publishes to several publishers in order and stops at
// the first failure.
type MultiPublisher struct {
	pubs []Publisher
}

func NewMultiPublisher(pubs ...Publisher) *MultiPublisher {
	return &MultiPublisher{pubs: pubs}
}

func (m *MultiPublisher) Publish(ctx context.Context, runID string, rep engine.Report) error {
	for _, p := range m.pubs {
		if err := p.Publish(ctx, runID, rep); err != nil {
			return err
		}
	}
	return nil
}
