package usecase

import (
	"math"

	"github.com/mitchellh/mapstructure"

	"trading_bridge/internal/feature/broker/domain/terminal"
	"trading_bridge/internal/feature/symbols"
)

// Feed payloads arrive as loosely typed maps whose field names vary by
// broker. The wire structs below list every name seen in practice;
// the transform functions pick the first populated alternative.

type feedPosition struct {
	PositionID    string   `mapstructure:"positionId"`
	ID            string   `mapstructure:"id"`
	ContractID    string   `mapstructure:"contractId"`
	Symbol        string   `mapstructure:"symbol"`
	NetPos        *float64 `mapstructure:"netPos"`
	Qty           float64  `mapstructure:"qty"`
	Side          any      `mapstructure:"side"`
	NetPrice      float64  `mapstructure:"netPrice"`
	AvgPrice      float64  `mapstructure:"avgPrice"`
	UnrealizedPnL *float64 `mapstructure:"unrealizedPnL"`
	PL            float64  `mapstructure:"pl"`
}

type feedOrder struct {
	OrderID      string  `mapstructure:"orderId"`
	ID           string  `mapstructure:"id"`
	Symbol       string  `mapstructure:"symbol"`
	OrderType    string  `mapstructure:"orderType"`
	Type         string  `mapstructure:"type"`
	Action       any     `mapstructure:"action"`
	Side         any     `mapstructure:"side"`
	OrderQty     float64 `mapstructure:"orderQty"`
	Qty          float64 `mapstructure:"qty"`
	Price        float64 `mapstructure:"price"`
	LimitPrice   float64 `mapstructure:"limitPrice"`
	StopPrice    float64 `mapstructure:"stopPrice"`
	OrderStatus  string  `mapstructure:"orderStatus"`
	Status       string  `mapstructure:"status"`
	FilledQty    float64 `mapstructure:"filledQty"`
	AvgFillPrice float64 `mapstructure:"avgFillPrice"`
	AvgPrice     float64 `mapstructure:"avgPrice"`
	TimeInForce  string  `mapstructure:"timeInForce"`
	Timestamp    float64 `mapstructure:"timestamp"`
}

type feedAccount struct {
	Name          string   `mapstructure:"name"`
	Nickname      string   `mapstructure:"nickname"`
	Balance       float64  `mapstructure:"balance"`
	CashBalance   float64  `mapstructure:"cashBalance"`
	OpenPnL       *float64 `mapstructure:"openPnL"`
	UnrealizedPnL float64  `mapstructure:"unrealizedPnL"`
	Equity        *float64 `mapstructure:"equity"`
}

// decodeWeak decodes a raw payload with weak typing, so numeric ids
// become strings and string numbers become floats without per-broker
// switch statements.
func decodeWeak(raw map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	return dec.Decode(raw)
}

func toTerminalPosition(raw map[string]any, tickers *symbols.Tickers) (terminal.Position, error) {
	var p feedPosition
	if err := decodeWeak(raw, &p); err != nil {
		return terminal.Position{}, err
	}

	pos := terminal.Position{
		ID:       firstString(p.PositionID, p.ID, p.ContractID),
		Symbol:   tickers.Display(p.Symbol),
		AvgPrice: firstFloat(p.NetPrice, p.AvgPrice),
	}
	if p.NetPos != nil {
		pos.Qty = math.Abs(*p.NetPos)
		if *p.NetPos < 0 {
			pos.Side = terminal.SideSell
		} else {
			pos.Side = terminal.SideBuy
		}
	} else {
		pos.Qty = p.Qty
		pos.Side = terminal.MapSide(p.Side)
	}
	if p.UnrealizedPnL != nil {
		pos.PL = *p.UnrealizedPnL
	} else {
		pos.PL = p.PL
	}
	return pos, nil
}

func toTerminalOrder(raw map[string]any, tickers *symbols.Tickers) (terminal.Order, error) {
	var o feedOrder
	if err := decodeWeak(raw, &o); err != nil {
		return terminal.Order{}, err
	}

	side := o.Action
	if side == nil {
		side = o.Side
	}
	order := terminal.Order{
		ID:         firstString(o.OrderID, o.ID),
		Symbol:     tickers.Display(o.Symbol),
		Type:       terminal.MapOrderType(firstString(o.OrderType, o.Type)),
		Side:       terminal.MapSide(side),
		Qty:        firstFloat(o.OrderQty, o.Qty),
		LimitPrice: firstFloat(o.Price, o.LimitPrice),
		StopPrice:  o.StopPrice,
		Status:     terminal.MapOrderStatus(firstString(o.OrderStatus, o.Status)),
		FilledQty:  o.FilledQty,
		AvgPrice:   firstFloat(o.AvgFillPrice, o.AvgPrice),
		Duration:   firstString(o.TimeInForce, "GTC"),
		UpdateTime: toUnixSeconds(o.Timestamp),
	}
	return order, nil
}

func toAccountSummary(raw map[string]any) (terminal.AccountSummary, string, error) {
	var a feedAccount
	if err := decodeWeak(raw, &a); err != nil {
		return terminal.AccountSummary{}, "", err
	}

	summary := terminal.AccountSummary{
		Balance: firstFloat(a.Balance, a.CashBalance),
	}
	if a.OpenPnL != nil {
		summary.PL = *a.OpenPnL
	} else {
		summary.PL = a.UnrealizedPnL
	}
	if a.Equity != nil {
		summary.Equity = *a.Equity
	} else {
		summary.Equity = summary.Balance + summary.PL
	}
	return summary, firstString(a.Nickname, a.Name), nil
}

// toUnixSeconds normalizes a feed timestamp to unix seconds. Values
// above 1e12 are epoch milliseconds.
func toUnixSeconds(ts float64) float64 {
	if ts > 1e12 {
		return ts / 1000
	}
	return ts
}

func firstString(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func firstFloat(vals ...float64) float64 {
	for _, v := range vals {
		if v != 0 {
			return v
		}
	}
	return 0
}
