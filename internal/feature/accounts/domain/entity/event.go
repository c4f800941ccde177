package entity

// EventType discriminates account cache events.
type EventType string

const (
	// EventUpdate carries one added or meaningfully changed account.
	EventUpdate EventType = "update"
	// EventRemove carries the id of an account no longer present.
	EventRemove EventType = "remove"
	// EventBulk carries a consistent snapshot of the whole cache.
	EventBulk EventType = "bulk"
)

// Event is one account cache notification. Account is set for update
// events, Accounts for bulk events.
type Event struct {
	Type      EventType
	AccountID string
	Account   *Account
	Accounts  []Account
}
