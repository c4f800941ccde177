// Package symbols holds the static futures contract metadata and the
// display/contract ticker translation used at every boundary between
// user-facing symbols (e.g. "NQ") and broker-native contract tickers
// (e.g. "NQH6").
package symbols

// Config describes one tradable futures product. Tick size is
// MinMov / PriceScale.
type Config struct {
	Name        string
	Description string
	Exchange    string
	Session     string
	Timezone    string
	MinMov      int
	PriceScale  int
	PointValue  float64
}

// Session '1700-1600:12345' = 5 PM CT to 4 PM CT next day, Sun-Thu start
// days. CME futures open Sunday 5 PM CT, close Friday 4 PM CT, with a
// daily halt 4-5 PM CT.
const cmeSession = "1700-1600:12345"

// Table is keyed by display ticker.
var Table = map[string]Config{
	"NQ":  {Name: "NQ", Description: "E-mini Nasdaq-100", Exchange: "CME", Session: cmeSession, Timezone: "America/Chicago", MinMov: 25, PriceScale: 100, PointValue: 20},
	"MNQ": {Name: "MNQ", Description: "Micro E-mini Nasdaq-100", Exchange: "CME", Session: cmeSession, Timezone: "America/Chicago", MinMov: 25, PriceScale: 100, PointValue: 2},
	"ES":  {Name: "ES", Description: "E-mini S&P 500", Exchange: "CME", Session: cmeSession, Timezone: "America/Chicago", MinMov: 25, PriceScale: 100, PointValue: 50},
	"MES": {Name: "MES", Description: "Micro E-mini S&P 500", Exchange: "CME", Session: cmeSession, Timezone: "America/Chicago", MinMov: 25, PriceScale: 100, PointValue: 5},
	"YM":  {Name: "YM", Description: "E-mini Dow Jones", Exchange: "CBOT", Session: cmeSession, Timezone: "America/Chicago", MinMov: 1, PriceScale: 1, PointValue: 5},
	"RTY": {Name: "RTY", Description: "E-mini Russell 2000", Exchange: "CME", Session: cmeSession, Timezone: "America/Chicago", MinMov: 10, PriceScale: 100, PointValue: 50},
	"CL":  {Name: "CL", Description: "Crude Oil", Exchange: "NYMEX", Session: cmeSession, Timezone: "America/Chicago", MinMov: 1, PriceScale: 100, PointValue: 1000},
	"GC":  {Name: "GC", Description: "Gold", Exchange: "COMEX", Session: cmeSession, Timezone: "America/Chicago", MinMov: 10, PriceScale: 100, PointValue: 100},
	"SI":  {Name: "SI", Description: "Silver", Exchange: "COMEX", Session: cmeSession, Timezone: "America/Chicago", MinMov: 5, PriceScale: 1000, PointValue: 5000},
	"NG":  {Name: "NG", Description: "Natural Gas", Exchange: "NYMEX", Session: cmeSession, Timezone: "America/Chicago", MinMov: 1, PriceScale: 1000, PointValue: 10000},
	"MBT": {Name: "MBT", Description: "Micro Bitcoin", Exchange: "CME", Session: cmeSession, Timezone: "America/Chicago", MinMov: 500, PriceScale: 100, PointValue: 0.1},
}

// DefaultConfig is used when a symbol is not in the table.
var DefaultConfig = Table["ES"]

// Lookup returns the config for a display ticker, falling back to
// DefaultConfig for unknown symbols.
func Lookup(displayTicker string) Config {
	if c, ok := Table[displayTicker]; ok {
		return c
	}
	return DefaultConfig
}

// TickSize returns the minimum price increment for the config.
func (c Config) TickSize() float64 {
	return float64(c.MinMov) / float64(c.PriceScale)
}
