package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mediway/labreports/internal/entity"
)

func bounds(r entity.ReferenceInterval) (lower, upper *string) {
	return r.Lower, r.Upper
}

func TestNormalizeIntervalTiers(t *testing.T) {
	cases := []struct {
		in    string
		lower *string
		upper *string
	}{
		{"4.5 - 10.2", entity.StrPtr("4.5"), entity.StrPtr("10.2")},
		{"12.0-15.5", entity.StrPtr("12.0"), entity.StrPtr("15.5")},
		{"<5.0", entity.StrPtr("NA"), entity.StrPtr("5.0")},
		{">100", entity.StrPtr("100"), nil},
		{"7.2", entity.StrPtr("7.2"), nil},
		{"<1 - 3", entity.StrPtr("<1"), entity.StrPtr("3")},
		{">2-9.5", entity.StrPtr(">2"), entity.StrPtr("9.5")},
		{"  150 - 400 ", entity.StrPtr("150"), entity.StrPtr("400")},
		{"Negative", entity.StrPtr("Negative"), nil},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			lower, upper := bounds(NormalizeInterval(tc.in))
			assert.Equal(t, tc.lower, lower)
			assert.Equal(t, tc.upper, upper)
		})
	}
}

func TestNormalizeIntervalBlank(t *testing.T) {
	r := NormalizeInterval("   ")
	assert.False(t, r.Detected())
}

func TestNormalizeIntervalIsPure(t *testing.T) {
	for _, in := range []string{"4.5 - 10.2", "<5.0", ">100", "7.2", ""} {
		assert.Equal(t, NormalizeInterval(in), NormalizeInterval(in))
	}
}

func TestNormalizeIntervalDetectsWheneverTextPresent(t *testing.T) {
	for _, in := range []string{"1", "<1", ">1", "1-2", "x"} {
		assert.True(t, NormalizeInterval(in).Detected(), in)
	}
}
