package qa

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/microclimate-qa/internal/model"
)

func withHole(n, from, length int) []float64 {
	col := make([]float64, n)
	for i := range col {
		col[i] = float64(i)
	}
	for i := from; i < from+length; i++ {
		col[i] = model.Missing
	}
	return col
}

func TestFillGaps_Boundedness(t *testing.T) {
	tests := []struct {
		name       string
		length     int
		wantFilled int
	}{
		{"single", 1, 1},
		{"at limit", 20, 20},
		{"over limit", 21, 0},
		{"far over limit", 40, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := regular(map[model.Channel][]float64{model.ChannelAir: withHole(100, 10, tt.length)})

			out, filled := FillGaps(s, 20)
			assert.Equal(t, tt.wantFilled, filled)
			missing := missingCount(out.Columns[model.ChannelAir])
			if tt.wantFilled > 0 {
				assert.Equal(t, 0, missing)
			} else {
				assert.Equal(t, tt.length, missing, "over-limit runs stay entirely missing")
			}
		})
	}
}

func TestFillGaps_LinearValues(t *testing.T) {
	s := regular(map[model.Channel][]float64{model.ChannelAir: {0, model.Missing, model.Missing, model.Missing, 8}})

	out, filled := FillGaps(s, 20)
	assert.Equal(t, 3, filled)
	assert.InDeltaSlice(t, []float64{0, 2, 4, 6, 8}, out.Columns[model.ChannelAir], 1e-9)
}

func TestFillGaps_EdgesUseNearestValue(t *testing.T) {
	s := regular(map[model.Channel][]float64{model.ChannelAir: {model.Missing, model.Missing, 5, 6, model.Missing}})

	out, filled := FillGaps(s, 20)
	assert.Equal(t, 3, filled)
	assert.InDeltaSlice(t, []float64{5, 5, 5, 6, 6}, out.Columns[model.ChannelAir], 1e-9)
}

func TestFillGaps_AllMissingChannelUntouched(t *testing.T) {
	s := regular(map[model.Channel][]float64{
		model.ChannelSoil: constant(5, model.Missing),
		model.ChannelAir:  {1, 2, model.Missing, 4, 5},
	})

	out, filled := FillGaps(s, 20)
	assert.Equal(t, 1, filled)
	assert.Equal(t, 5, missingCount(out.Columns[model.ChannelSoil]))
}
