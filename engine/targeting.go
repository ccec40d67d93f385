package engine

// TargetPolicy decides whether a prey switches its fled hunter to a scanned candidate
// candidate is the distance to the hunter being scanned; current is the distance to the
// hunter held so far and is meaningful only when hasCurrent is true
type TargetPolicy interface {
	Prefer(candidate, current float64, hasCurrent bool) bool
}

// StickyProximity switches to any strictly closer hunter, and to any hunter inside Threshold
// Within the threshold the last hunter scanned wins, so close threats dominate pure distance
type StickyProximity struct {
	Threshold float64
}

func (p StickyProximity) Prefer(candidate, current float64, hasCurrent bool) bool {
	return !hasCurrent || candidate < current || candidate < p.Threshold
}

// NearestThreat keeps the held hunter unless another is strictly closer
type NearestThreat struct{}

func (NearestThreat) Prefer(candidate, current float64, hasCurrent bool) bool {
	return !hasCurrent || candidate < current
}
