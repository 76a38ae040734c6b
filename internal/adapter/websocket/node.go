// Package websocket serves live tallies over centrifuge. Presenter views
// subscribe to tally:<questionID>, receive the current tally as subscribe
// data, and then one publication per debounced change.
package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/centrifugal/centrifuge"
	"github.com/google/uuid"
	"github.com/pscheid92/livepoll/internal/adapter/metrics"
	"github.com/pscheid92/livepoll/internal/app"
	"github.com/pscheid92/livepoll/internal/domain"
	"github.com/pscheid92/livepoll/internal/platform/version"
)

const tallyChannelPrefix = "tally:"

// TallyChannel returns the channel carrying the live tally of questionID.
func TallyChannel(questionID uuid.UUID) string {
	return tallyChannelPrefix + questionID.String()
}

func parseTallyChannel(channel string) (uuid.UUID, bool) {
	raw, ok := strings.CutPrefix(channel, tallyChannelPrefix)
	if !ok {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

type tallyFeed interface {
	Snapshot(ctx context.Context, questionID uuid.UUID) (app.LiveTally, error)
	Watch(questionID uuid.UUID)
	Unwatch(questionID uuid.UUID)
}

// NewNode creates a node that accepts anonymous connections. Subscriptions
// are refused until ServeTallies is called.
func NewNode(logLevel string) (*centrifuge.Node, error) {
	conf := centrifuge.Config{
		Name:       "livepoll",
		Version:    version.Get().Version,
		LogLevel:   parseCentrifugeLogLevel(logLevel),
		LogHandler: slogHandler,
	}
	node, err := centrifuge.New(conf)
	if err != nil {
		return nil, fmt.Errorf("create centrifuge node: %w", err)
	}

	node.OnConnecting(onConnecting)

	return node, nil
}

// ServeTallies lets clients subscribe to tally channels backed by feed. It
// must be called before node.Run.
func ServeTallies(node *centrifuge.Node, feed tallyFeed, wsMetrics *metrics.WebSocketMetrics) {
	node.OnConnect(onConnect(feed, wsMetrics))
}

// onConnecting accepts anonymous viewers; live tallies are public.
func onConnecting(_ context.Context, _ centrifuge.ConnectEvent) (centrifuge.ConnectReply, error) {
	return centrifuge.ConnectReply{Credentials: &centrifuge.Credentials{UserID: ""}}, nil
}

func onConnect(feed tallyFeed, wsMetrics *metrics.WebSocketMetrics) func(client *centrifuge.Client) {
	return func(client *centrifuge.Client) {
		slog.Debug("Client connected", "client_id", client.ID())

		if wsMetrics != nil {
			wsMetrics.ActiveConnections.Inc()
		}

		client.OnSubscribe(func(e centrifuge.SubscribeEvent, cb centrifuge.SubscribeCallback) {
			cb(subscribeTally(client.Context(), feed, e.Channel))
		})

		client.OnUnsubscribe(func(e centrifuge.UnsubscribeEvent) {
			if questionID, ok := parseTallyChannel(e.Channel); ok {
				feed.Unwatch(questionID)
			}
		})

		client.OnDisconnect(func(e centrifuge.DisconnectEvent) {
			slog.Debug("Client disconnected", "client_id", client.ID(), "reason", e.Reason)
			if wsMetrics != nil {
				wsMetrics.ActiveConnections.Dec()
			}
		})
	}
}

// subscribeTally starts watching the channel's question and returns its
// current tally as subscribe data. The watch is taken before the read so a
// change during the read still produces a publication.
func subscribeTally(ctx context.Context, feed tallyFeed, channel string) (centrifuge.SubscribeReply, error) {
	questionID, ok := parseTallyChannel(channel)
	if !ok {
		return centrifuge.SubscribeReply{}, centrifuge.ErrorUnknownChannel
	}

	feed.Watch(questionID)

	live, err := feed.Snapshot(ctx, questionID)
	if err != nil {
		feed.Unwatch(questionID)
		if errors.Is(err, domain.ErrQuestionNotFound) {
			return centrifuge.SubscribeReply{}, centrifuge.ErrorUnknownChannel
		}
		slog.WarnContext(ctx, "Failed to read tally for subscriber", "question_id", questionID, "error", err)
		return centrifuge.SubscribeReply{}, centrifuge.ErrorInternal
	}

	data, err := json.Marshal(live.View())
	if err != nil {
		feed.Unwatch(questionID)
		return centrifuge.SubscribeReply{}, centrifuge.ErrorInternal
	}

	return centrifuge.SubscribeReply{Options: centrifuge.SubscribeOptions{Data: data}}, nil
}

func slogHandler(entry centrifuge.LogEntry) {
	attrs := make([]any, 0, len(entry.Fields)*2)
	for k, v := range entry.Fields {
		attrs = append(attrs, k, v)
	}
	switch entry.Level {
	case centrifuge.LogLevelTrace, centrifuge.LogLevelDebug:
		slog.Debug(entry.Message, attrs...)
	case centrifuge.LogLevelInfo:
		slog.Info(entry.Message, attrs...)
	case centrifuge.LogLevelWarn:
		slog.Warn(entry.Message, attrs...)
	case centrifuge.LogLevelError:
		slog.Error(entry.Message, attrs...)
	case centrifuge.LogLevelNone:
		// EMPTY
	}
}

func parseCentrifugeLogLevel(level string) centrifuge.LogLevel {
	switch level {
	case "debug":
		return centrifuge.LogLevelDebug
	case "warn":
		return centrifuge.LogLevelWarn
	case "error":
		return centrifuge.LogLevelError
	default:
		return centrifuge.LogLevelInfo
	}
}
