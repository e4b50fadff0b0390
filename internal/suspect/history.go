package suspect

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/gameradar/dealwatch/pkg/cheapshark"
)

// SharkHistory resolves price envelopes through the CheapShark game lookup.
type SharkHistory struct {
	client cheapshark.Client
}

// NewSharkHistory wraps a CheapShark client as a HistoryProvider.
func NewSharkHistory(client cheapshark.Client) *SharkHistory {
	return &SharkHistory{client: client}
}

// History implements HistoryProvider. An unknown title is a nil history,
// not an error.
func (s *SharkHistory) History(ctx context.Context, title string) (*PriceHistory, error) {
	summary, err := s.client.LookupGame(ctx, title)
	if err != nil {
		return nil, eris.Wrap(err, "suspect: price history lookup")
	}
	if summary == nil {
		return nil, nil
	}
	return &PriceHistory{
		Low:  summary.CheapestPriceEver,
		Peak: summary.HighestNormalPrice,
	}, nil
}
