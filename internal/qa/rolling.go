package qa

import (
	"math"
	"sort"
)

// madScale rescales a median absolute deviation to the standard deviation of
// a normal distribution.
const madScale = 1.4826

// median sorts vals in place and returns the middle value.
func median(vals []float64) float64 {
	n := len(vals)
	if n == 0 {
		return math.NaN()
	}
	sort.Float64s(vals)
	if n%2 == 1 {
		return vals[n/2]
	}
	return (vals[n/2-1] + vals[n/2]) / 2
}

// rollingMedianMAD computes, for each position, the median of the centered
// window of x and the median absolute deviation around it. The window for
// position i spans [i-window/2, i+(window-1)/2], matching a centered rolling
// window of even or odd length. Missing values are skipped rather than
// poisoning the window, so a window touching a gap or the first difference
// still gets a threshold. Positions with fewer than minPeriods values yield NaN.
func rollingMedianMAD(x []float64, window, minPeriods int) (med, mad []float64) {
	n := len(x)
	med = make([]float64, n)
	mad = make([]float64, n)
	after := (window - 1) / 2
	before := window - 1 - after

	buf := make([]float64, 0, window)
	dev := make([]float64, 0, window)
	for i := 0; i < n; i++ {
		lo := max(i-before, 0)
		hi := min(i+after, n-1)

		buf = buf[:0]
		for k := lo; k <= hi; k++ {
			if !math.IsNaN(x[k]) {
				buf = append(buf, x[k])
			}
		}
		if len(buf) < minPeriods || len(buf) == 0 {
			med[i], mad[i] = math.NaN(), math.NaN()
			continue
		}

		m := median(buf)
		dev = dev[:0]
		for _, v := range buf {
			dev = append(dev, math.Abs(v-m))
		}
		med[i] = m
		mad[i] = median(dev)
	}
	return med, mad
}

// diff returns x[i]-x[i-1]; the first element and any difference touching a
// missing value are NaN.
func diff(x []float64) []float64 {
	d := make([]float64, len(x))
	if len(x) == 0 {
		return d
	}
	d[0] = math.NaN()
	for i := 1; i < len(x); i++ {
		d[i] = x[i] - x[i-1]
	}
	return d
}
