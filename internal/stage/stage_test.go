package stage

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"launchpad/internal/apperr"
)

func TestName(t *testing.T) {
	assert.Equal(t, "Organizational account created", Name(1))
	assert.Equal(t, "Pricing Model & Partnership Agreement", Name(4))
	assert.Equal(t, "Deployed", Name(8))
	assert.Empty(t, Name(0))
	assert.Empty(t, Name(9))
}

func TestNext_IncrementsByOne(t *testing.T) {
	for n := First; n < Last; n++ {
		next, err := Next(n)
		require.NoError(t, err)
		assert.Equal(t, n+1, next)
	}
}

func TestNext_RejectsTerminalAndUnknown(t *testing.T) {
	for _, n := range []int{Last, 0, -1, 9} {
		_, err := Next(n)
		require.Error(t, err, "stage %d", n)
		assert.True(t, errors.Is(err, apperr.ErrInvalidTransition))
	}
}

func TestAll_IsOrdered(t *testing.T) {
	all := All()
	require.Len(t, all, Last)
	for i, s := range all {
		assert.Equal(t, i+1, s.Number)
		assert.Equal(t, Name(i+1), s.Name)
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{in: "", want: 0},
		{in: "3", want: 3},
		{in: " 8 ", want: 8},
		{in: "uat", want: 7},
		{in: "SLA signing", want: 5},
		{in: "0", wantErr: true},
		{in: "12", wantErr: true},
		{in: "Kickoff", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := Parse(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, apperr.ErrValidation))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTimeline(t *testing.T) {
	tl := Timeline(3)
	require.Len(t, tl, Last)
	assert.Equal(t, Completed, tl[0].State)
	assert.Equal(t, Completed, tl[1].State)
	assert.Equal(t, Current, tl[2].State)
	for _, e := range tl[3:] {
		assert.Equal(t, Pending, e.State)
	}

	last := Timeline(Last)
	assert.Equal(t, Current, last[Last-1].State)
	assert.Equal(t, Completed, last[0].State)
}
