package eliving

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParsePagerInfo(t *testing.T) {
	cases := []struct {
		text     string
		expected PagerInfo
	}{
		{text: "", expected: PagerInfo{Page: 1, Pages: 1}},
		{text: " \n ", expected: PagerInfo{Page: 1, Pages: 1}},
		{text: "Page 1 of 1", expected: PagerInfo{Page: 1, Pages: 1}},
		{
			text: "Page 2 of 12, items 11 to 20 of 115.",
			expected: PagerInfo{
				Page: 2, Pages: 12,
				HasItems: true, FirstItem: 11, LastItem: 20, TotalItems: 115,
			},
		},
		{
			text: "12345678910...  Page 3 of 3, items 21 to 25 of 25.",
			expected: PagerInfo{
				Page: 3, Pages: 3,
				HasItems: true, FirstItem: 21, LastItem: 25, TotalItems: 25,
			},
		},
	}
	for _, test := range cases {
		info, err := ParsePagerInfo(test.text)
		require.NoError(t, err, test.text)
		require.Equal(t, test.expected, info, test.text)
	}

	for _, text := range []string{
		"Seite 1 von 3",
		"Page 4 of 3",
		"Page 0 of 3",
		"Page 1 of 0",
		"Page 1 of 3, items 20 to 10 of 30",
		"Page 1 of 3, items ten to 20 of 30",
	} {
		_, err := ParsePagerInfo(text)
		require.ErrorIs(t, err, ErrPagination, text)
	}
}

const windowedPager = `<tr class="rgPager"><td>
<div class="rgWrap rgNumPart">
	<a href="#">...</a>
	<a href="#"><span>5</span></a>
	<a href="#" class="rgCurrentPage"><span>6</span></a>
	<a href="#"><span>7</span></a>
	<a href="#"><span>8</span></a>
	<a href="#"><span>9</span></a>
	<a href="#">...</a>
</div>
<div class="rgWrap rgInfoPart">Page 6 of 12, items 51 to 60 of 115.</div>
</td></tr>`

func TestParsePagerView(t *testing.T) {
	view, err := ParsePagerView(windowedPager, DefaultSelectors)
	require.NoError(t, err)
	require.Equal(t, PagerView{
		Numbers:   []int{5, 6, 7, 8, 9},
		Positions: []int{1, 2, 3, 4, 5},
		Active:    6,
		Jump:      6,
	}, view)
	require.True(t, view.Windowed(12))

	view, err = ParsePagerView(`<div class="rgNumPart"><a>1</a><a class="rgCurrentPage">2</a></div>`, DefaultSelectors)
	require.NoError(t, err)
	require.Equal(t, 2, view.Active)
	require.Equal(t, -1, view.Jump)
	require.False(t, view.Windowed(2))
}

func TestNextClickWindowed(t *testing.T) {
	// page numbers [5,6,7,8,9] followed by a jump control, page 6 active
	view := PagerView{
		Numbers:   []int{5, 6, 7, 8, 9},
		Positions: []int{0, 1, 2, 3, 4},
		Active:    6,
		Jump:      5,
	}

	cases := []struct {
		target   int
		expected int
	}{
		{target: 7, expected: 2},
		{target: 8, expected: 3},
		// the last visible number goes through the jump control
		{target: 9, expected: 5},
		{target: 10, expected: 5},
	}
	for _, test := range cases {
		pos, err := NextClick(view, test.target, 12)
		require.NoError(t, err)
		require.Equal(t, test.expected, pos, "target %d", test.target)
	}

	_, err := NextClick(view, 3, 12)
	require.ErrorIs(t, err, ErrPagination)
	_, err = NextClick(view, 13, 12)
	require.ErrorIs(t, err, ErrPagination)

	// the final window has no jump control
	last := PagerView{
		Numbers:   []int{8, 9, 10, 11, 12},
		Positions: []int{1, 2, 3, 4, 5},
		Active:    11,
		Jump:      -1,
	}
	pos, err := NextClick(last, 12, 12)
	require.NoError(t, err)
	require.Equal(t, 5, pos)

	_, err = NextClick(PagerView{Jump: -1}, 2, 12)
	require.ErrorIs(t, err, ErrPagination)
}

func TestNextClickAllVisible(t *testing.T) {
	view := PagerView{
		Numbers:   []int{1, 2, 3},
		Positions: []int{0, 1, 2},
		Active:    1,
		Jump:      -1,
	}
	pos, err := NextClick(view, 2, 3)
	require.NoError(t, err)
	require.Equal(t, 1, pos)
	pos, err = NextClick(view, 3, 3)
	require.NoError(t, err)
	require.Equal(t, 2, pos)

	_, err = NextClick(PagerView{Numbers: []int{1, 3}, Positions: []int{0, 1}, Jump: -1}, 2, 2)
	require.ErrorIs(t, err, ErrPagination)
}
