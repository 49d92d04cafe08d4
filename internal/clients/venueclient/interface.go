package venueclient

import "context"

type VenueInterface interface {
	// FetchSince returns every trade record for the account strictly after
	// the cursor, in sequence order, together with the cursor to persist
	// once the records have been durably applied. It never advances
	// cursors itself.
	FetchSince(ctx context.Context, accountRef string, cursor Cursor) ([]TradeRecord, Cursor, error)
}
