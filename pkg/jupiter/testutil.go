package jupiter

// NewTestQuote constructs a Quote with fixed values for tests that stub out
// the aggregator API.
func NewTestQuote(inAmount, outAmount, otherAmountThreshold uint64, routeLabel string) *Quote {
	return &Quote{
		jsonBody:             []byte("{}"),
		inAmount:             inAmount,
		outAmount:            outAmount,
		otherAmountThreshold: otherAmountThreshold,
		routeLabel:           routeLabel,
	}
}
