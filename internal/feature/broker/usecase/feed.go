// Package usecase implements the terminal-facing broker adapter: it
// binds one trading account, translates feed payloads and backend
// vocabulary into the terminal's shapes, and executes order commands
// against the backend.
package usecase

// Feed event names as published by the account data feed.
const (
	FeedEventAccountUpdate   = "accountUpdate"
	FeedEventPositionUpdate  = "positionUpdate"
	FeedEventOrderUpdate     = "orderUpdate"
	FeedEventConnectionState = "connectionState"
)

// FeedEvent is one notification from the account data feed. Position
// carries the payload of the item that triggered the event, when the
// feed provides one; snapshots are always re-read through the
// accessors rather than patched from events.
type FeedEvent struct {
	BrokerID  string
	AccountID string
	Type      string
	State     string
	Position  map[string]any
}

// AccountFeed is the adapter's view of the shared account data feed.
// Accessors return raw broker payloads keyed by broker and account;
// On registers a handler and returns a listener id for RemoveListener.
type AccountFeed interface {
	AccountData(brokerID, accountID string) (map[string]any, bool)
	Positions(brokerID, accountID string) []map[string]any
	Orders(brokerID, accountID string) []map[string]any
	On(event string, handler func(FeedEvent)) int
	RemoveListener(event string, id int)
}
