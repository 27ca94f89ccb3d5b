package interval

import (
	"github.com/stretchr/testify/assert"
	"math"
	"testing"
	"time"
)

func TestTable_NextDelay(t *testing.T) {
	tests := []struct {
		distance float64
		want     time.Duration
	}{
		{distance: 0, want: time.Second},
		{distance: 0.4, want: time.Second},
		{distance: 0.5, want: 10 * time.Second},
		{distance: 0.6, want: 10 * time.Second},
		{distance: 0.9, want: 10 * time.Second},
		{distance: 1.1, want: 5 * time.Minute},
		{distance: 4.9, want: 5 * time.Minute},
		{distance: 5.1, want: 15 * time.Minute},
		{distance: 19.9, want: 15 * time.Minute},
		{distance: 20.1, want: 30 * time.Minute},
		{distance: 49.9, want: 30 * time.Minute},
		{distance: 50, want: time.Hour},
		{distance: 50.1, want: time.Hour},
		{distance: 20_000, want: time.Hour},
		{distance: math.Inf(1), want: time.Hour},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, DefaultTable.NextDelay(tt.distance), tt.distance)
	}
}

func TestTable_NextDelay_Monotonic(t *testing.T) {
	last := time.Duration(0)
	for d := 0.0; d < 100; d += 0.05 {
		delay := DefaultTable.NextDelay(d)
		assert.Positive(t, delay)
		assert.GreaterOrEqual(t, delay, last, d)
		last = delay
	}
}

func TestTable_NextDelay_NeverNonPositive(t *testing.T) {
	var table Table
	assert.Equal(t, minDelay, table.NextDelay(1))
	table = Table{Steps: []Step{{Below: 1, Delay: -time.Second}}, Otherwise: 0}
	assert.Equal(t, minDelay, table.NextDelay(0.5))
	assert.Equal(t, minDelay, table.NextDelay(2))
}

func TestTable_Validate(t *testing.T) {
	tests := []struct {
		name  string
		table Table
		err   error
	}{
		{name: "default", table: DefaultTable},
		{name: "no steps", table: Table{Otherwise: time.Minute}},
		{name: "no otherwise", table: Table{}, err: ErrNonPositive},
		{
			name:  "descending distance",
			table: Table{Steps: []Step{{Below: 2, Delay: time.Second}, {Below: 1, Delay: time.Minute}}, Otherwise: time.Hour},
			err:   ErrNotAscending,
		},
		{
			name:  "shorter delay further away",
			table: Table{Steps: []Step{{Below: 1, Delay: time.Minute}, {Below: 2, Delay: time.Second}}, Otherwise: time.Hour},
			err:   ErrNotMonotonic,
		},
		{
			name:  "otherwise too short",
			table: Table{Steps: []Step{{Below: 1, Delay: time.Minute}}, Otherwise: time.Second},
			err:   ErrNotMonotonic,
		},
		{
			name:  "zero delay",
			table: Table{Steps: []Step{{Below: 1, Delay: 0}}, Otherwise: time.Second},
			err:   ErrNonPositive,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.ErrorIs(t, tt.table.Validate(), tt.err)
		})
	}
}
