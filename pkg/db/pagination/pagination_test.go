package pagination

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	cases := []struct {
		name string
		in   Params
		want Params
	}{
		{"defaults for zero values", Params{}, Params{Page: 1, Limit: DefaultLimit}},
		{"negative page", Params{Page: -3, Limit: 10}, Params{Page: 1, Limit: 10}},
		{"limit above cap", Params{Page: 2, Limit: 500}, Params{Page: 2, Limit: MaxLimit}},
		{"valid passes through", Params{Page: 4, Limit: 50}, Params{Page: 4, Limit: 50}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.in.Normalize())
		})
	}
}

func TestOffset(t *testing.T) {
	assert.Equal(t, 0, Params{Page: 1, Limit: 25}.Offset())
	assert.Equal(t, 75, Params{Page: 4, Limit: 25}.Offset())
}

func TestBuildPageInfo(t *testing.T) {
	t.Run("rounds up partial pages", func(t *testing.T) {
		info := BuildPageInfo(Params{Page: 1, Limit: 25}, 51)
		assert.Equal(t, 3, info.TotalPages)
		assert.Equal(t, int64(51), info.TotalItems)
	})

	t.Run("empty result still has one page", func(t *testing.T) {
		info := BuildPageInfo(Params{Page: 1, Limit: 25}, 0)
		assert.Equal(t, 1, info.TotalPages)
	})
}
