package venueclient

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

const (
	// monetary figures are held as int64 minor units (cents)
	moneyScale int32 = 2
	// quantities are held as int64 in 1e-4 share units
	quantityScale int32 = 4
)

// Cursor marks the last ingested venue record for one account.
type Cursor struct {
	Seq        int64
	RecordID   string
	RecordTime time.Time
}

// TradeRecord is one executed trade normalized from the venue wire format.
// Seq is the venue's monotonically increasing sequence for the account and
// is the dedup key across re-fetches.
type TradeRecord struct {
	ID            string
	Seq           int64
	Symbol        string
	Side          string
	Quantity      int64
	Price         int64
	Notional      int64
	RealizedPnl   int64
	MarkPrice     int64
	OpenQuantity  int64
	AvgEntryPrice int64
	ExecutedAt    time.Time
}

// tradePayload is the venue's wire shape; all amounts arrive as decimal
// strings and are converted to fixed-point on decode.
type tradePayload struct {
	ID            string    `json:"id"`
	Seq           int64     `json:"seq"`
	Symbol        string    `json:"symbol"`
	Side          string    `json:"side"`
	Quantity      string    `json:"quantity"`
	Price         string    `json:"price"`
	RealizedPnl   string    `json:"realizedPnl"`
	MarkPrice     string    `json:"markPrice"`
	OpenQuantity  string    `json:"openQuantity"`
	AvgEntryPrice string    `json:"avgEntryPrice"`
	ExecutedAt    time.Time `json:"executedAt"`
}

type tradesResponse struct {
	Trades  []tradePayload `json:"trades"`
	HasMore bool           `json:"hasMore"`
}

func (p *tradePayload) toRecord() (TradeRecord, error) {
	quantity, err := parseFixed(p.Quantity, quantityScale)
	if err != nil {
		return TradeRecord{}, fmt.Errorf("invalid quantity %q: %w", p.Quantity, err)
	}
	price, err := parseFixed(p.Price, moneyScale)
	if err != nil {
		return TradeRecord{}, fmt.Errorf("invalid price %q: %w", p.Price, err)
	}
	realizedPnl, err := parseFixed(p.RealizedPnl, moneyScale)
	if err != nil {
		return TradeRecord{}, fmt.Errorf("invalid realizedPnl %q: %w", p.RealizedPnl, err)
	}
	markPrice, err := parseFixed(p.MarkPrice, moneyScale)
	if err != nil {
		return TradeRecord{}, fmt.Errorf("invalid markPrice %q: %w", p.MarkPrice, err)
	}
	openQuantity, err := parseFixed(p.OpenQuantity, quantityScale)
	if err != nil {
		return TradeRecord{}, fmt.Errorf("invalid openQuantity %q: %w", p.OpenQuantity, err)
	}
	avgEntryPrice, err := parseFixed(p.AvgEntryPrice, moneyScale)
	if err != nil {
		return TradeRecord{}, fmt.Errorf("invalid avgEntryPrice %q: %w", p.AvgEntryPrice, err)
	}

	notional, err := parseNotional(p.Price, p.Quantity)
	if err != nil {
		return TradeRecord{}, err
	}

	return TradeRecord{
		ID:            p.ID,
		Seq:           p.Seq,
		Symbol:        p.Symbol,
		Side:          p.Side,
		Quantity:      quantity,
		Price:         price,
		Notional:      notional,
		RealizedPnl:   realizedPnl,
		MarkPrice:     markPrice,
		OpenQuantity:  openQuantity,
		AvgEntryPrice: avgEntryPrice,
		ExecutedAt:    p.ExecutedAt,
	}, nil
}

// parseFixed converts a decimal string to an int64 scaled by 10^scale,
// rounding half away from zero.
func parseFixed(s string, scale int32) (int64, error) {
	if s == "" {
		return 0, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, err
	}
	return d.Shift(scale).Round(0).IntPart(), nil
}

func parseNotional(price, quantity string) (int64, error) {
	p, err := decimal.NewFromString(price)
	if err != nil {
		return 0, fmt.Errorf("invalid price %q: %w", price, err)
	}
	q, err := decimal.NewFromString(quantity)
	if err != nil {
		return 0, fmt.Errorf("invalid quantity %q: %w", quantity, err)
	}
	return p.Mul(q.Abs()).Shift(moneyScale).Round(0).IntPart(), nil
}

// UnrealizedPnl derives the open-position P&L carried by the record itself:
// (mark - average entry) x open quantity, in minor units.
func (r TradeRecord) UnrealizedPnl() int64 {
	mark := decimal.New(r.MarkPrice, -moneyScale)
	entry := decimal.New(r.AvgEntryPrice, -moneyScale)
	qty := decimal.New(r.OpenQuantity, -quantityScale)
	return mark.Sub(entry).Mul(qty).Shift(moneyScale).Round(0).IntPart()
}
