package jupiter

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/pkg/errors"

	"github.com/stellalpha/stellalpha-server/pkg/metrics"
	"github.com/stellalpha/stellalpha-server/pkg/solana"
)

// Reference: https://station.jup.ag/docs/apis/swap-api

const (
	DefaultApiBaseUrl = "https://api.jup.ag/swap/v1/"

	quoteEndpointName = "quote"
	swapEndpointName  = "swap"

	metricsStructName = "jupiter.client"
)

type Client struct {
	baseUrl    string
	apiKey     string
	httpClient *http.Client
}

// NewClient returns a new Jupiter client for quoting and constructing
// on-chain swaps
func NewClient(baseUrl, apiKey string) *Client {
	return &Client{
		baseUrl:    baseUrl,
		apiKey:     apiKey,
		httpClient: http.DefaultClient,
	}
}

// Quote is an aggregator route for a swap. The raw response body is carried
// along untouched so it can be passed back verbatim when requesting the swap
// transaction.
type Quote struct {
	jsonBody             []byte
	inAmount             uint64
	outAmount            uint64
	otherAmountThreshold uint64
	priceImpactPct       string
	routeLabel           string
}

// GetInAmount returns the amount of input token the route consumes
func (q *Quote) GetInAmount() uint64 {
	return q.inAmount
}

// GetOutAmount returns the amount of output token the route is expected to
// produce
func (q *Quote) GetOutAmount() uint64 {
	return q.outAmount
}

// GetOtherAmountThreshold returns the worst-case swap amount after slippage
func (q *Quote) GetOtherAmountThreshold() uint64 {
	return q.otherAmountThreshold
}

// GetPriceImpactPct returns the route's price impact as reported by the
// aggregator
func (q *Quote) GetPriceImpactPct() string {
	return q.priceImpactPct
}

// GetRouteLabel returns the label of the first leg of the route
func (q *Quote) GetRouteLabel() string {
	return q.routeLabel
}

// GetQuote gets a route for swapping quarksToSwap of inputMint into
// outputMint.
//
// The dexes parameter restricts routing to the named venues, and
// forceDirectRoute disallows multi-hop routes.
func (c *Client) GetQuote(
	ctx context.Context,
	inputMint string,
	outputMint string,
	quarksToSwap uint64,
	slippageBps uint32,
	dexes []string,
	forceDirectRoute bool,
) (*Quote, error) {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "GetQuote")
	defer tracer.End()

	url := fmt.Sprintf(
		"%s%s?inputMint=%s&outputMint=%s&amount=%d&slippageBps=%d&onlyDirectRoutes=%v",
		c.baseUrl,
		quoteEndpointName,
		inputMint,
		outputMint,
		quarksToSwap,
		slippageBps,
		forceDirectRoute,
	)
	for _, dex := range dexes {
		url += "&dexes=" + dex
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		tracer.OnError(err)
		return nil, errors.Wrap(err, "error creating http request")
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		tracer.OnError(err)
		return nil, errors.Wrap(err, "error executing http request")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		tracer.OnError(err)
		return nil, errors.Wrap(err, "error reading response body")
	}

	if resp.StatusCode != http.StatusOK {
		err = errors.Errorf("received http status %d: %s", resp.StatusCode, string(respBody))
		tracer.OnError(err)
		return nil, err
	}

	var parsed jsonQuote
	err = json.Unmarshal(respBody, &parsed)
	if err != nil {
		tracer.OnError(err)
		return nil, errors.Wrap(err, "error unmarshalling json response")
	}

	inAmount, err := strconv.ParseUint(parsed.InAmount, 10, 64)
	if err != nil {
		return nil, errors.Wrap(err, "error parsing in amount")
	}

	outAmount, err := strconv.ParseUint(parsed.OutAmount, 10, 64)
	if err != nil {
		return nil, errors.Wrap(err, "error parsing out amount")
	}

	otherAmountThreshold, err := strconv.ParseUint(parsed.OtherAmountThreshold, 10, 64)
	if err != nil {
		return nil, errors.Wrap(err, "error parsing other amount threshold")
	}

	var routeLabel string
	if len(parsed.RoutePlan) > 0 {
		routeLabel = parsed.RoutePlan[0].SwapInfo.Label
	}

	return &Quote{
		jsonBody:             respBody,
		inAmount:             inAmount,
		outAmount:            outAmount,
		otherAmountThreshold: otherAmountThreshold,
		priceImpactPct:       parsed.PriceImpactPct,
		routeLabel:           routeLabel,
	}, nil
}

// SwapTransaction is an aggregator-constructed transaction implementing a
// quoted route. The container is not trusted and must be validated and
// rewritten before any part of it reaches the chain.
type SwapTransaction struct {
	Transaction          solana.Transaction
	LastValidBlockHeight uint64
}

// GetSwapTransaction gets a serialized transaction implementing the quoted
// route with userPublicKey as the swap authority.
//
// SOL is never wrapped or unwrapped on behalf of the authority, which is a
// program account rather than a wallet.
func (c *Client) GetSwapTransaction(
	ctx context.Context,
	quote *Quote,
	userPublicKey string,
) (*SwapTransaction, error) {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "GetSwapTransaction")
	defer tracer.End()

	reqBody, err := json.Marshal(jsonSwapRequest{
		QuoteResponse:           json.RawMessage(quote.jsonBody),
		UserPublicKey:           userPublicKey,
		WrapUnwrapSOL:           false,
		DynamicComputeUnitLimit: true,
	})
	if err != nil {
		return nil, errors.Wrap(err, "error marshalling request body")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseUrl+swapEndpointName, bytes.NewReader(reqBody))
	if err != nil {
		tracer.OnError(err)
		return nil, errors.Wrap(err, "error creating http request")
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		tracer.OnError(err)
		return nil, errors.Wrap(err, "error executing http request")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		tracer.OnError(err)
		return nil, errors.Wrap(err, "error reading response body")
	}

	if resp.StatusCode != http.StatusOK {
		err = errors.Errorf("received http status %d: %s", resp.StatusCode, string(respBody))
		tracer.OnError(err)
		return nil, err
	}

	var jsonBody jsonSwapResponse
	err = json.Unmarshal(respBody, &jsonBody)
	if err != nil {
		tracer.OnError(err)
		return nil, errors.Wrap(err, "error unmarshalling json response")
	}

	if len(jsonBody.SwapTransaction) == 0 {
		return nil, errors.New("swap transaction not provided")
	}

	txnBytes, err := base64.StdEncoding.DecodeString(jsonBody.SwapTransaction)
	if err != nil {
		return nil, errors.Wrap(err, "error decoding base64 swap transaction")
	}

	var txn solana.Transaction
	if err := txn.Unmarshal(txnBytes); err != nil {
		return nil, errors.Wrap(err, "error unmarshalling swap transaction")
	}

	return &SwapTransaction{
		Transaction:          txn,
		LastValidBlockHeight: jsonBody.LastValidBlockHeight,
	}, nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	if len(c.apiKey) > 0 {
		req.Header.Set("x-api-key", c.apiKey)
	}
}

type jsonQuote struct {
	InAmount             string `json:"inAmount"`
	OutAmount            string `json:"outAmount"`
	OtherAmountThreshold string `json:"otherAmountThreshold"`
	PriceImpactPct       string `json:"priceImpactPct"`
	RoutePlan            []struct {
		SwapInfo struct {
			Label string `json:"label"`
		} `json:"swapInfo"`
	} `json:"routePlan"`
}

type jsonSwapRequest struct {
	QuoteResponse           json.RawMessage `json:"quoteResponse"`
	UserPublicKey           string          `json:"userPublicKey"`
	WrapUnwrapSOL           bool            `json:"wrapUnwrapSOL"`
	DynamicComputeUnitLimit bool            `json:"dynamicComputeUnitLimit"`
}

type jsonSwapResponse struct {
	SwapTransaction      string `json:"swapTransaction"`
	LastValidBlockHeight uint64 `json:"lastValidBlockHeight"`
}
