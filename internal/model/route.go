package model

// RouteRequest asks for the best route to swap Amount of TokenIn into TokenOut.
type RouteRequest struct {
	TokenIn  string  `json:"token_in"`
	TokenOut string  `json:"token_out"`
	Amount   float64 `json:"amount"`
}

// Hop is one swap through one pool.
type Hop struct {
	Exchange  string  `json:"exchange"`
	Address   string  `json:"address"`
	Pair      string  `json:"pair"`
	TokenIn   string  `json:"token_in"`
	TokenOut  string  `json:"token_out"`
	AmountIn  float64 `json:"amount_in"`
	AmountOut float64 `json:"amount_out"`
	Fee       float64 `json:"fee"`
}

// Route is the scored result of a route search. It is derived from the pool
// snapshot at request time and never persisted.
type Route struct {
	Path           []string `json:"path"`
	Hops           []Hop    `json:"hops"`
	ExpectedOutput float64  `json:"expected_output"`
	EstimatedGas   uint64   `json:"estimated_gas"`
	Confidence     float64  `json:"confidence"`
	Slippage       float64  `json:"slippage"`
	Score          float64  `json:"score"`
	Candidates     int      `json:"candidates"`
	// Partial is set when the search stopped early and this is the best
	// candidate seen before the stop.
	Partial bool `json:"partial,omitempty"`
}

// HopCount returns the number of swaps in the route.
func (r Route) HopCount() int {
	return len(r.Hops)
}
