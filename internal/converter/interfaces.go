/*

Collaborator contracts for the auto-converter. Production wiring uses the
oracle, an AMM-backed market adapter, and the splitter's maturity registry;
tests substitute doubles.

*/

package converter

// PriceSource supplies the current asset price used to gate conversions.
type PriceSource interface {
	// GetPrice returns the current price or an error when no fresh price
	// is available.
	GetPrice() (uint64, error)
}

// Market is a venue that exchanges YT for PT.
type Market interface {
	// QuotePTForYT returns the PT amount a swap of the given YT amount
	// would produce right now, without executing it.
	QuotePTForYT(ytAmount uint64) (uint64, error)
	// SwapYTForPT executes the exchange and returns the PT produced.
	// It fails without side effects when the output is below minOut.
	SwapYTForPT(ytAmount, minOut uint64) (uint64, error)
}

// MaturityRegistry answers whether a maturity timestamp has a live series.
type MaturityRegistry interface {
	HasMaturity(maturity uint64) bool
}
