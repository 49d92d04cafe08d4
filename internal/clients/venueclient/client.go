package venueclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/rs/zerolog/log"

	"github.com/tradearena-io/tournament-engine/internal/config"
	"github.com/tradearena-io/tournament-engine/internal/observability/metrics"
	"github.com/tradearena-io/tournament-engine/internal/types"
)

type VenueClient struct {
	cfg        *config.VenueConfig
	httpClient *http.Client
	// quota bounds in-flight requests across all tournaments; the venue
	// credential is shared per deployment
	quota chan struct{}
}

func NewVenueClient(cfg *config.VenueConfig) *VenueClient {
	return &VenueClient{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		quota: make(chan struct{}, cfg.MaxConcurrentRequests),
	}
}

// maxPagesPerFetch bounds a single fetch against a venue that keeps
// answering hasMore; the remainder is picked up from the advanced cursor on
// the next cycle.
const maxPagesPerFetch = 50

func (c *VenueClient) FetchSince(
	ctx context.Context, accountRef string, cursor Cursor,
) ([]TradeRecord, Cursor, error) {
	var records []TradeRecord
	newCursor := cursor

	for pageCount := 1; ; pageCount++ {
		seqBefore := newCursor.Seq
		page, err := c.fetchPageWithRetry(ctx, accountRef, seqBefore)
		if err != nil {
			return nil, cursor, err
		}

		for _, payload := range page.Trades {
			record, err := payload.toRecord()
			if err != nil {
				// malformed venue data will not fix itself on retry
				return nil, cursor, types.NewPermanent(
					fmt.Errorf("account %s record %s: %w", accountRef, payload.ID, err),
				)
			}
			records = append(records, record)
			if record.Seq > newCursor.Seq {
				newCursor = Cursor{
					Seq:        record.Seq,
					RecordID:   record.ID,
					RecordTime: record.ExecutedAt,
				}
			}
		}

		if !page.HasMore {
			break
		}
		// a page that reports more data but does not advance the sequence
		// would paginate forever
		if newCursor.Seq <= seqBefore {
			return nil, cursor, types.NewTransient(
				fmt.Errorf("venue pagination stalled for account %s at seq %d", accountRef, seqBefore),
			)
		}
		if pageCount >= maxPagesPerFetch {
			log.Ctx(ctx).Warn().
				Str("account", accountRef).
				Int64("seq", newCursor.Seq).
				Msg("Venue backlog exceeds the page budget, deferring the remainder to the next cycle")
			break
		}
	}

	return records, newCursor, nil
}

func (c *VenueClient) fetchPageWithRetry(
	ctx context.Context, accountRef string, sinceSeq int64,
) (*tradesResponse, error) {
	call := func() (*tradesResponse, error) {
		return c.fetchPage(ctx, accountRef, sinceSeq)
	}

	result, err := retry.DoWithData(call,
		retry.Context(ctx),
		retry.Attempts(c.cfg.MaxRetryTimes),
		retry.Delay(c.cfg.RetryInterval),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			return types.KindOf(err) == types.Transient
		}),
		retry.OnRetry(func(n uint, err error) {
			log.Ctx(ctx).Debug().
				Uint("attempt", n+1).
				Uint("max_attempts", c.cfg.MaxRetryTimes).
				Str("account", accountRef).
				Err(err).
				Msg("failed to fetch trades from venue")
		}))
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (c *VenueClient) fetchPage(
	ctx context.Context, accountRef string, sinceSeq int64,
) (*tradesResponse, error) {
	select {
	case c.quota <- struct{}{}:
		defer func() { <-c.quota }()
	case <-ctx.Done():
		return nil, types.NewTransient(ctx.Err())
	}

	reqURL := fmt.Sprintf("%s/v1/accounts/%s/trades?%s",
		c.cfg.BaseURL,
		url.PathEscape(accountRef),
		url.Values{
			"since_seq": []string{strconv.FormatInt(sinceSeq, 10)},
			"limit":     []string{strconv.Itoa(c.cfg.PageSize)},
		}.Encode(),
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, types.NewPermanent(err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	metrics.RecordVenueClientLatency("FetchSince", time.Since(start), err)
	if err != nil {
		// timeouts and connection failures are retryable
		return nil, types.NewTransient(err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		var page tradesResponse
		if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
			return nil, types.NewTransient(fmt.Errorf("failed to decode trades response: %w", err))
		}
		return &page, nil

	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, types.NewRateLimited(
			parseRetryAfter(resp),
			fmt.Errorf("venue rate limit hit for account %s", accountRef),
		)

	case resp.StatusCode == http.StatusUnauthorized,
		resp.StatusCode == http.StatusForbidden,
		resp.StatusCode == http.StatusNotFound:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, types.NewPermanent(
			fmt.Errorf("venue rejected account %s: status %d: %s", accountRef, resp.StatusCode, body),
		)

	default:
		return nil, types.NewTransient(
			fmt.Errorf("unexpected venue response status %d for account %s", resp.StatusCode, accountRef),
		)
	}
}

const defaultRetryAfter = 30 * time.Second

func parseRetryAfter(resp *http.Response) time.Duration {
	header := resp.Header.Get("Retry-After")
	if header == "" {
		return defaultRetryAfter
	}
	seconds, err := strconv.Atoi(header)
	if err != nil || seconds <= 0 {
		return defaultRetryAfter
	}
	return time.Duration(seconds) * time.Second
}
