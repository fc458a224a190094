package tvdb

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func candidates(n int) []SeriesCandidate {
	out := make([]SeriesCandidate, n)
	for i := range out {
		out[i] = SeriesCandidate{
			ID:         SeriesID(100 + i),
			SeriesName: fmt.Sprintf("Show %d", i+1),
			Language:   "en",
		}
	}
	return out
}

func TestFirstSelector(t *testing.T) {
	got, err := FirstSelector{}.SelectSeries(candidates(3))
	require.NoError(t, err)
	assert.Equal(t, SeriesID(100), got.ID)

	_, err = FirstSelector{}.SelectSeries(nil)
	assert.ErrorIs(t, err, ErrShowNotFound)
}

func TestConsoleSelector(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		count      int
		wantID     SeriesID
		wantErr    error
		wantOutput []string
	}{
		{
			name:   "return selects default",
			input:  "\n",
			count:  3,
			wantID: 100,
		},
		{
			name:   "number selects result",
			input:  "2\n",
			count:  3,
			wantID: 101,
		},
		{
			name:       "invalid number is retried",
			input:      "9\n3\n",
			count:      3,
			wantID:     102,
			wantOutput: []string{"Invalid number (9) selected!"},
		},
		{
			name:       "zero is invalid",
			input:      "0\n1\n",
			count:      3,
			wantID:     100,
			wantOutput: []string{"Invalid number (0) selected!"},
		},
		{
			name:    "quit",
			input:   "q\n",
			count:   3,
			wantErr: ErrUserAbort,
		},
		{
			name:    "end of input",
			input:   "",
			count:   3,
			wantErr: ErrUserAbort,
		},
		{
			name:       "help then choice",
			input:      "?\n2\n",
			count:      3,
			wantID:     101,
			wantOutput: []string{"## Help", "# q - abort"},
		},
		{
			name:       "all shows hidden results",
			input:      "all\n8\n",
			count:      8,
			wantID:     107,
			wantOutput: []string{"8 -> Show 8 [en] # http://thetvdb.com/?tab=series&id=107"},
		},
		{
			name:       "single result is automatic",
			input:      "",
			count:      1,
			wantID:     100,
			wantOutput: []string{"Automatically selecting only result"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			sel := NewConsoleSelector(strings.NewReader(tt.input), &out, false, zerolog.Nop())

			got, err := sel.SelectSeries(candidates(tt.count))
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.wantID, got.ID)
			}

			for _, want := range tt.wantOutput {
				assert.Contains(t, out.String(), want)
			}
		})
	}
}

func TestConsoleSelectorDisplayLimit(t *testing.T) {
	var out bytes.Buffer
	sel := NewConsoleSelector(strings.NewReader("\n"), &out, false, zerolog.Nop())

	_, err := sel.SelectSeries(candidates(8))
	require.NoError(t, err)

	assert.Contains(t, out.String(), "TVDB Search Results:")
	assert.Contains(t, out.String(), "1 -> Show 1 [en] # http://thetvdb.com/?tab=series&id=100 (default)")
	assert.Contains(t, out.String(), "6 -> Show 6")
	assert.NotContains(t, out.String(), "7 -> Show 7")
}

func TestConsoleSelectorSelectFirst(t *testing.T) {
	var out bytes.Buffer
	sel := NewConsoleSelector(strings.NewReader(""), &out, true, zerolog.Nop())

	got, err := sel.SelectSeries(candidates(4))
	require.NoError(t, err)
	assert.Equal(t, SeriesID(100), got.ID)
	assert.Contains(t, out.String(), "Automatically returning first search result")
}

func TestConsoleSelectorNoCandidates(t *testing.T) {
	sel := NewConsoleSelector(strings.NewReader(""), &bytes.Buffer{}, false, zerolog.Nop())
	_, err := sel.SelectSeries(nil)
	assert.ErrorIs(t, err, ErrShowNotFound)
}
