package docstate

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ferrors "git.home.luguber.info/inful/mdconvert/internal/foundation/errors"
)

func TestParseDimension(t *testing.T) {
	tests := []struct {
		raw       string
		want      Dimension
		canonical string
	}{
		{"", Dimension{}, ""},
		{"   ", Dimension{}, ""},
		{"1680", Pixels(1680), "1680"},
		{" 2240 ", Pixels(2240), "2240"},
		{"80%", Percent(80), "80%"},
		{"80.0%", Percent(80), "80%"},
		{"12.5%", Percent(12.5), "12.5%"},
		{"100%", Percent(100), "100%"},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ParseDimension(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.canonical, got.String())
		})
	}
}

func TestParseDimensionRejects(t *testing.T) {
	for _, raw := range []string{"0", "-5", "abc", "1680px", "0%", "-1%", "100.1%", "150%", "nan%", "inf%", "%"} {
		t.Run(raw, func(t *testing.T) {
			_, err := ParseDimension(raw)
			require.Error(t, err)
			assert.True(t, ferrors.HasCategory(err, ferrors.CategoryValidation))
		})
	}
}

func TestDimensionEqualityFollowsCanonicalForm(t *testing.T) {
	a, err := ParseDimension("80%")
	require.NoError(t, err)
	b, err := ParseDimension("80.00%")
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.NotEqual(t, Pixels(80), Percent(80))
	assert.False(t, Dimension{}.IsSet())
}

func TestDimensionApply(t *testing.T) {
	size, resize := Pixels(1000).Apply(1500)
	assert.True(t, resize)
	assert.Equal(t, 1000, size)

	size, resize = Pixels(1000).Apply(800)
	assert.False(t, resize)
	assert.Equal(t, 800, size)

	size, resize = Percent(50).Apply(800)
	assert.True(t, resize)
	assert.Equal(t, 400, size)

	size, resize = Dimension{}.Apply(800)
	assert.False(t, resize)
	assert.Equal(t, 800, size)
}

func TestDimensionText(t *testing.T) {
	var d Dimension
	require.NoError(t, d.UnmarshalText([]byte("75%")))
	text, err := d.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "75%", string(text))

	assert.Error(t, d.UnmarshalText([]byte("huge")))
	assert.Equal(t, Percent(75), d)
}

func TestRenderConfigString(t *testing.T) {
	cfg := RenderConfig{StyleProfile: "kindle-basic", MaxDiagramWidth: Percent(80)}
	assert.Equal(t, "profile=kindle-basic width=80% height=unset margins=unset page_numbers=off", cfg.String())
	assert.True(t, cfg.Equal(cfg))
	assert.Empty(t, cfg.Diff(cfg))
}

func TestDimensionConstructorsRejectUnstorableValues(t *testing.T) {
	for name, d := range map[string]Dimension{
		"zero pixels":     Pixels(0),
		"negative pixels": Pixels(-5),
		"NaN percent":     Percent(math.NaN()),
		"zero percent":    Percent(0),
		"over 100":        Percent(150),
		"infinite":        Percent(math.Inf(1)),
	} {
		assert.False(t, d.IsSet(), name)
		assert.Equal(t, Dimension{}, d, name)
	}

	cfg := RenderConfig{StyleProfile: "a4-print", MaxDiagramWidth: Percent(math.NaN())}
	assert.True(t, cfg.Equal(cfg))
}
