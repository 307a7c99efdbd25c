package providers

import (
	"context"
	"net/url"
	"strconv"
	"time"

	"github.com/vigil-trading/vigil/internal/solana"
)

// HTTPLaunchSource polls the launch venue's REST listing of recent tokens.
// Used as the fallback when the websocket feed is down.
type HTTPLaunchSource struct {
	http *httpClient
}

// NewHTTPLaunchSource creates the REST launch adapter.
func NewHTTPLaunchSource(name, baseURL, apiKey string, rps float64, timeout time.Duration) *HTTPLaunchSource {
	return &HTTPLaunchSource{
		http: newHTTPClient(name, baseURL, apiKey, rps, timeout),
	}
}

type launchListResponse struct {
	Tokens []struct {
		Mint      string `json:"mint"`
		Symbol    string `json:"symbol"`
		Name      string `json:"name"`
		Creator   string `json:"creator"`
		CreatedAt int64  `json:"createdAt"` // unix seconds
	} `json:"tokens"`
}

// RecentLaunches returns tokens created at or after since.
func (s *HTTPLaunchSource) RecentLaunches(ctx context.Context, since time.Time) ([]TokenLaunch, error) {
	var resp launchListResponse
	q := url.Values{}
	q.Set("since", strconv.FormatInt(since.Unix(), 10))
	if err := s.http.getJSON(ctx, "/tokens/recent", q, &resp); err != nil {
		return nil, err
	}

	launches := make([]TokenLaunch, 0, len(resp.Tokens))
	for _, tkn := range resp.Tokens {
		launches = append(launches, TokenLaunch{
			Mint:       solana.Pubkey(tkn.Mint),
			Symbol:     tkn.Symbol,
			Name:       tkn.Name,
			Creator:    solana.Pubkey(tkn.Creator),
			LaunchedAt: time.Unix(tkn.CreatedAt, 0),
		})
	}
	return launches, nil
}
