package shared

// Direction represents the direction of a breakout.
type Direction int

const (
	Long Direction = iota
	Short
)

// String stringifies the provided direction.
func (d Direction) String() string {
	switch d {
	case Long:
		return "long"
	case Short:
		return "short"
	default:
		return "unknown"
	}
}

// RejectionReason represents a structured reason for a detection gate
// rejecting a candidate breakout. Rejections are never fatal, they short
// circuit the evaluation to no signal.
type RejectionReason int

const (
	InsufficientCandles RejectionReason = iota
	NoResistanceBreak
	NoSupportBreak
	InsufficientConsolidation
	LowVolumeRatio
	LowPriceChange
	NoSustainedMomentum
	LowConfidence
)

// String stringifies the provided rejection reason.
func (r RejectionReason) String() string {
	switch r {
	case InsufficientCandles:
		return "insufficient stored candles"
	case NoResistanceBreak:
		return "no break above resistance"
	case NoSupportBreak:
		return "no break below support"
	case InsufficientConsolidation:
		return "insufficient consolidation"
	case LowVolumeRatio:
		return "volume ratio below class minimum"
	case LowPriceChange:
		return "price change below class minimum"
	case NoSustainedMomentum:
		return "no sustained momentum"
	case LowConfidence:
		return "confidence below class minimum"
	default:
		return "unknown"
	}
}
