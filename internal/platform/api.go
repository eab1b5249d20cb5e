package platform

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// ConnState is the gateway connection lifecycle state.
type ConnState int32

const (
	StateDisconnected ConnState = iota
	StateConnecting
	StateConnected
)

// String returns the lowercase state name.
func (s ConnState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return "disconnected"
	}
}

// GatewayStatus is a read-only snapshot of the shared connection state.
// The gateway client owns the lifecycle; consumers only observe.
type GatewayStatus struct {
	State         ConnState `json:"state"`
	Authenticated bool      `json:"authenticated"`
}

// Ready reports whether the gateway can serve authenticated requests.
func (s GatewayStatus) Ready() bool {
	return s.State == StateConnected && s.Authenticated
}

// Gateway is the shared real-time channel to the platform.
type Gateway interface {
	// Status returns the current connection state snapshot.
	Status() GatewayStatus

	// Request sends a correlated request on a topic and waits for the
	// matching response. A response with success=false is returned as an
	// error carrying the server message.
	Request(ctx context.Context, topic, action string, params map[string]interface{}) (json.RawMessage, error)

	// Subscribe registers for DATA messages on a topic. The subscription
	// survives reconnects.
	Subscribe(ctx context.Context, topic string) (<-chan json.RawMessage, error)

	Close() error
}

// Topics used by the dashboard service.
const (
	TopicMarketData       = "market-data"
	TopicWalletMonitoring = "admin/wallet-monitoring"
	TopicPlatformStats    = "platform-stats"
	TopicContests         = "contests"
	TopicReferrals        = "referrals"
)

// TimeRange is a named lookback window for history queries.
type TimeRange string

const (
	Range24h TimeRange = "24h"
	Range7d  TimeRange = "7d"
	Range30d TimeRange = "30d"
)

// Window translates the range into concrete start/end instants.
func (r TimeRange) Window(now time.Time) (start, end time.Time, err error) {
	end = now
	switch r {
	case Range24h:
		start = now.Add(-24 * time.Hour)
	case Range7d:
		start = now.AddDate(0, 0, -7)
	case Range30d:
		start = now.AddDate(0, 0, -30)
	default:
		return time.Time{}, time.Time{}, fmt.Errorf("unknown time range %q", string(r))
	}
	return start, end, nil
}
