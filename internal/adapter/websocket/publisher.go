package websocket

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/centrifugal/centrifuge"
	"github.com/pscheid92/livepoll/internal/adapter/metrics"
	"github.com/pscheid92/livepoll/internal/app"
)

// Publisher pushes live tallies to the subscribers of this node.
type Publisher struct {
	node      *centrifuge.Node
	wsMetrics *metrics.WebSocketMetrics
}

var _ app.TallySink = (*Publisher)(nil)

func NewPublisher(node *centrifuge.Node, wsMetrics *metrics.WebSocketMetrics) *Publisher {
	return &Publisher{node: node, wsMetrics: wsMetrics}
}

func (p *Publisher) PublishTally(_ context.Context, live app.LiveTally) error {
	data, err := json.Marshal(live.View())
	if err != nil {
		return fmt.Errorf("marshal tally: %w", err)
	}

	channel := TallyChannel(live.Question.ID)
	if _, err := p.node.Publish(channel, data); err != nil {
		if p.wsMetrics != nil {
			p.wsMetrics.PublishErrors.Inc()
		}
		return fmt.Errorf("publish to channel %s: %w", channel, err)
	}

	if p.wsMetrics != nil {
		p.wsMetrics.MessagesPublished.Inc()
	}
	return nil
}
