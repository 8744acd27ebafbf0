package catalog

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAll_CanonicalOrder(t *testing.T) {
	assert.Equal(t, []string{"radcliq", "bleu", "bertscore", "semb", "radgraph", "ratescore", "green"}, Names())
	assert.Len(t, All(), 7)
}

func TestEngineFlag(t *testing.T) {
	tests := []struct {
		metric Metric
		want   string
	}{
		{RadCliQ, "do_radcliq"},
		{BLEU, "do_bleu"},
		{BERTScore, "do_bertscore"},
		{SembScore, "do_chexbert"},
		{RadGraph, "do_radgraph"},
		{RaTEScore, "do_ratescore"},
		{GREEN, "do_green"},
		{Metric("rouge"), ""},
	}
	for _, tt := range tests {
		t.Run(string(tt.metric), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.metric.EngineFlag())
		})
	}
}

func TestParseSelection(t *testing.T) {
	tests := []struct {
		name        string
		in          []string
		want        []string
		wantInvalid []string
	}{
		{name: "nil selects catalog", in: nil, want: Names()},
		{name: "empty selects catalog", in: []string{}, want: Names()},
		{name: "subset keeps request order", in: []string{"green", "bleu"}, want: []string{"green", "bleu"}},
		{name: "duplicates collapse", in: []string{"bleu", "semb", "bleu"}, want: []string{"bleu", "semb"}},
		{name: "single invalid", in: []string{"bleu", "rouge"}, wantInvalid: []string{"rouge"}},
		{name: "invalid names sorted and unique", in: []string{"zeta", "BLEU", "zeta"}, wantInvalid: []string{"BLEU", "zeta"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sel, err := ParseSelection(tt.in)
			if tt.wantInvalid != nil {
				require.Error(t, err)
				var invalidErr *InvalidMetricError
				require.True(t, errors.As(err, &invalidErr))
				assert.Equal(t, tt.wantInvalid, invalidErr.Invalid)
				assert.Equal(t, Names(), invalidErr.Available)
				for _, name := range tt.wantInvalid {
					assert.Contains(t, err.Error(), name)
				}
				for _, name := range Names() {
					assert.Contains(t, err.Error(), name)
				}
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, sel.Names())
		})
	}
}

func TestSelection_Contains(t *testing.T) {
	sel, err := ParseSelection([]string{"semb"})
	require.NoError(t, err)
	assert.True(t, sel.Contains(SembScore))
	assert.False(t, sel.Contains(BLEU))
	assert.Equal(t, 1, sel.Len())
}
