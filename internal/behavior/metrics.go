package behavior

// Movement deltas are classified as "perfectly axis-aligned" when they run
// straight along one axis with almost no drift on the other. Organic mouse
// movement carries diagonal jitter; scripted movement tends not to.
const (
	axisDriftMax  = 2.0
	axisTravelMin = 5.0
)

// KeystrokeVariance returns the population variance (ms²) of the intervals
// between consecutive key samples. With fewer than 3 samples there are not
// enough intervals to judge and the variance is reported as 0 with
// calculated=false.
func KeystrokeVariance(keys []KeySample) (variance float64, calculated bool) {
	if len(keys) < 3 {
		return 0, false
	}

	intervals := make([]float64, 0, len(keys)-1)
	for i := 1; i < len(keys); i++ {
		intervals = append(intervals, float64(keys[i].T.Sub(keys[i-1].T).Milliseconds()))
	}

	var mean float64
	for _, iv := range intervals {
		mean += iv
	}
	mean /= float64(len(intervals))

	var sumSq float64
	for _, iv := range intervals {
		d := iv - mean
		sumSq += d * d
	}

	return sumSq / float64(len(intervals)), true
}

// AxisAlignedFraction returns the fraction of nonzero movement deltas that
// are perfectly vertical or perfectly horizontal. With fewer than 5 movement
// samples, or no nonzero deltas, the signal is too thin and calculated=false
// is returned.
func AxisAlignedFraction(movements []MovementSample) (fraction float64, calculated bool) {
	if len(movements) < 5 {
		return 0, false
	}

	var aligned, nonzero int
	for i := 1; i < len(movements); i++ {
		dx := movements[i].X - movements[i-1].X
		dy := movements[i].Y - movements[i-1].Y
		if dx == 0 && dy == 0 {
			continue
		}
		nonzero++
		if isAxisAligned(dx, dy) {
			aligned++
		}
	}

	if nonzero == 0 {
		return 0, false
	}
	return float64(aligned) / float64(nonzero), true
}

func isAxisAligned(dx, dy float64) bool {
	vertical := abs(dx) < axisDriftMax && dy > axisTravelMin
	horizontal := abs(dy) < axisDriftMax && dx > axisTravelMin
	return vertical || horizontal
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
