// Package entity defines the domain models for the marketdata feature.
package entity

// Bar represents one OHLCV aggregate of trades over a fixed-length time
// interval. Time is the epoch-millisecond start of the interval, always
// aligned to a resolution boundary.
type Bar struct {
	Time   int64   `json:"time"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume float64 `json:"volume"`
}

// Trade is a single tick from the data hub: one price/size event for a
// symbol at an epoch-millisecond timestamp.
type Trade struct {
	Symbol    string  `json:"symbol"`
	Price     float64 `json:"price"`
	Size      float64 `json:"size"`
	Timestamp int64   `json:"timestamp"`
}

// Apply folds a trade into the bar, extending the high/low range,
// moving the close and accumulating volume. The bar's time is unchanged.
func (b Bar) Apply(t Trade) Bar {
	if t.Price > b.High {
		b.High = t.Price
	}
	if t.Price < b.Low {
		b.Low = t.Price
	}
	b.Close = t.Price
	b.Volume += t.Size
	return b
}

// NewBarFrom opens a fresh bar at the given boundary time seeded
// entirely from one trade.
func NewBarFrom(t Trade, barTime int64) Bar {
	return Bar{
		Time:   barTime,
		Open:   t.Price,
		High:   t.Price,
		Low:    t.Price,
		Close:  t.Price,
		Volume: t.Size,
	}
}
