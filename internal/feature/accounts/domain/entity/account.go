// Package entity defines the domain models for the accounts feature.
package entity

import "encoding/json"

// Account is one connected brokerage account as reported by the
// backend brokers API. Identity key is AccountID; the cache holds
// exactly one record per id. Broker-specific fields that the core does
// not interpret (server states, environment flags, ...) are preserved
// verbatim in Extra.
type Account struct {
	AccountID      string  `json:"account_id"`
	BrokerID       string  `json:"broker_id"`
	Status         string  `json:"status"`
	Balance        float64 `json:"balance"`
	IsTokenExpired bool    `json:"is_token_expired"`
	Active         bool    `json:"active"`
	Nickname       string  `json:"nickname"`

	Extra map[string]any `json:"-"`
}

// knownFields are the JSON keys mapped onto typed fields above.
var knownFields = map[string]struct{}{
	"account_id":       {},
	"broker_id":        {},
	"status":           {},
	"balance":          {},
	"is_token_expired": {},
	"active":           {},
	"nickname":         {},
}

// UnmarshalJSON decodes the typed fields and captures everything else
// into Extra.
func (a *Account) UnmarshalJSON(data []byte) error {
	type plain Account
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	for k := range knownFields {
		delete(raw, k)
	}
	if len(raw) > 0 {
		p.Extra = make(map[string]any, len(raw))
		for k, v := range raw {
			var val any
			if err := json.Unmarshal(v, &val); err != nil {
				return err
			}
			p.Extra[k] = val
		}
	}

	*a = Account(p)
	return nil
}

// MarshalJSON emits the typed fields merged with Extra. Typed fields
// win on key collisions.
func (a Account) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(a.Extra)+7)
	for k, v := range a.Extra {
		out[k] = v
	}
	out["account_id"] = a.AccountID
	out["broker_id"] = a.BrokerID
	out["status"] = a.Status
	out["balance"] = a.Balance
	out["is_token_expired"] = a.IsTokenExpired
	out["active"] = a.Active
	out["nickname"] = a.Nickname
	return json.Marshal(out)
}

// SignificantlyDiffers reports whether b differs from a in any field
// whose change is meaningful to the UI. Changes confined to other
// fields do not warrant an update event.
func (a Account) SignificantlyDiffers(b Account) bool {
	return a.Status != b.Status ||
		a.Balance != b.Balance ||
		a.IsTokenExpired != b.IsTokenExpired ||
		a.Active != b.Active ||
		a.Nickname != b.Nickname
}
