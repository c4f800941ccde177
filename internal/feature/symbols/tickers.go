package symbols

import (
	"os"
	"strings"
)

// Tickers maps display tickers to front-month contract tickers. The
// mapping is deployment data, not code: it rolls every quarter, so it
// is loaded from FUTURES_TICKERS ("NQ:NQH6,ES:ESH6,...").
type Tickers struct {
	displayToContract map[string]string
	contractToDisplay map[string]string
}

// LoadTickers parses the FUTURES_TICKERS environment variable.
// Malformed pairs are skipped.
func LoadTickers() *Tickers {
	return ParseTickers(os.Getenv("FUTURES_TICKERS"))
}

// ParseTickers builds a Tickers from a "display:contract" comma list.
func ParseTickers(raw string) *Tickers {
	t := &Tickers{
		displayToContract: make(map[string]string),
		contractToDisplay: make(map[string]string),
	}
	for _, pair := range strings.Split(raw, ",") {
		display, contract, ok := strings.Cut(strings.TrimSpace(pair), ":")
		if !ok || display == "" || contract == "" {
			continue
		}
		t.displayToContract[display] = contract
		t.contractToDisplay[contract] = display
	}
	return t
}

// Contract translates a display ticker into its contract ticker.
// Unmapped symbols pass through unchanged.
func (t *Tickers) Contract(display string) string {
	if c, ok := t.displayToContract[display]; ok {
		return c
	}
	return display
}

// Display translates a contract ticker into its display ticker.
// Unmapped symbols pass through unchanged.
func (t *Tickers) Display(contract string) string {
	if d, ok := t.contractToDisplay[contract]; ok {
		return d
	}
	return contract
}

// DisplayTickers returns every configured display ticker.
func (t *Tickers) DisplayTickers() []string {
	out := make([]string, 0, len(t.displayToContract))
	for d := range t.displayToContract {
		out = append(out, d)
	}
	return out
}
