package arbitrage

// DefaultTransportCost is the flat transport estimate used when none is
// configured.
const DefaultTransportCost = 5000

// Logistics estimates what it costs to move goods from a market to the buyer.
// There is no distance model yet: every trip costs the configured amount.
type Logistics struct {
	transportCost int
}

// NewLogistics creates a Logistics with a flat transport cost. Non-positive
// costs fall back to DefaultTransportCost.
func NewLogistics(transportCost int) *Logistics {
	if transportCost <= 0 {
		transportCost = DefaultTransportCost
	}
	return &Logistics{transportCost: transportCost}
}

// TransportCost returns the estimated cost of moving goods from the market to
// origin.
func (l *Logistics) TransportCost(origin, market string) int {
	return l.transportCost
}
