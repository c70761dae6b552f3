package eliving

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"mealplan-backend/lib/htmlutil"

	"github.com/PuerkitoBio/goquery"
)

var (
	pagerPageRegex  = regexp.MustCompile(`Page\s+(\d+)\s+of\s+(\d+)`)
	pagerItemsRegex = regexp.MustCompile(`items\s+(\d+)\s+to\s+(\d+)\s+of\s+(\d+)`)
)

// PagerInfo is the parsed status text of the grid pager, ex.
// "Page 2 of 12, items 11 to 20 of 115."
type PagerInfo struct {
	Page  int
	Pages int

	// HasItems is false when the pager does not report an item range.
	HasItems   bool
	FirstItem  int
	LastItem   int
	TotalItems int
}

// ParsePagerInfo parses the pager status text. Empty text means the grid
// has a single page, any other text that does not read "Page X of N" is an
// ErrPagination.
func ParsePagerInfo(text string) (PagerInfo, error) {
	text = htmlutil.CleanText(text)
	if text == "" {
		return PagerInfo{Page: 1, Pages: 1}, nil
	}

	groups := pagerPageRegex.FindStringSubmatch(text)
	if groups == nil {
		return PagerInfo{}, fmt.Errorf("%w: unrecognized pager text %q", ErrPagination, text)
	}
	page, err := strconv.Atoi(groups[1])
	if err != nil {
		return PagerInfo{}, fmt.Errorf("%w: pager text %q: %w", ErrPagination, text, err)
	}
	pages, err := strconv.Atoi(groups[2])
	if err != nil {
		return PagerInfo{}, fmt.Errorf("%w: pager text %q: %w", ErrPagination, text, err)
	}
	if pages < 1 || page < 1 || page > pages {
		return PagerInfo{}, fmt.Errorf("%w: pager text %q is out of range", ErrPagination, text)
	}
	info := PagerInfo{Page: page, Pages: pages}

	if !strings.Contains(text, "items") {
		return info, nil
	}
	groups = pagerItemsRegex.FindStringSubmatch(text)
	if groups == nil {
		return PagerInfo{}, fmt.Errorf("%w: unrecognized item range in %q", ErrPagination, text)
	}
	var items [3]int
	for i := range items {
		items[i], err = strconv.Atoi(groups[i+1])
		if err != nil {
			return PagerInfo{}, fmt.Errorf("%w: pager text %q: %w", ErrPagination, text, err)
		}
	}
	if items[0] > items[1] || items[1] > items[2] {
		return PagerInfo{}, fmt.Errorf("%w: item range in %q is out of order", ErrPagination, text)
	}
	info.HasItems = true
	info.FirstItem = items[0]
	info.LastItem = items[1]
	info.TotalItems = items[2]
	return info, nil
}

// PagerView is the set of page links the pager currently renders.
type PagerView struct {
	// Numbers are the visible page numbers in the order they are rendered.
	Numbers []int
	// Positions[i] is the index of Numbers[i] among all pager links.
	Positions []int
	// Active is the highlighted page number, 0 when none is highlighted.
	Active int
	// Jump is the link index of the control that follows the last visible
	// number ("...", "last"), -1 when the pager renders none.
	Jump int
}

// ParsePagerView reads the pager links (matched by sels.PagerLinks) out of
// the pager's html.
func ParsePagerView(pagerHTML string, sels Selectors) (PagerView, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(pagerHTML))
	if err != nil {
		return PagerView{}, fmt.Errorf("%w: parse pager: %w", ErrPagination, err)
	}

	view := PagerView{Jump: -1}
	doc.Find(sels.PagerLinks).Each(func(i int, link *goquery.Selection) {
		text := htmlutil.SelectionText(link)
		n, err := strconv.Atoi(text)
		if err != nil {
			// a leading "..." moves to the previous window and is never
			// needed when moving forward
			if len(view.Numbers) > 0 && view.Jump < 0 {
				view.Jump = i
			}
			return
		}
		view.Numbers = append(view.Numbers, n)
		view.Positions = append(view.Positions, i)
		if link.Is(sels.PagerCurrent) || link.Find(sels.PagerCurrent).Length() > 0 {
			view.Active = n
		}
	})
	return view, nil
}

// Windowed reports whether the pager hides some of the total pages.
func (v PagerView) Windowed(total int) bool {
	return len(v.Numbers) < total
}

func (v PagerView) position(page int) int {
	for i, n := range v.Numbers {
		if n == page {
			return v.Positions[i]
		}
	}
	return -1
}

// NextClick returns the index of the pager link to click in order to move
// to target out of total pages.
//
// When every page is visible the target's own link is clicked. When the
// pager is windowed the jump control is clicked if the target is the last
// visible number or lies beyond the window, otherwise the target's link.
func NextClick(view PagerView, target, total int) (int, error) {
	if target < 1 || target > total {
		return -1, fmt.Errorf("%w: page %d is outside 1..%d", ErrPagination, target, total)
	}
	pos := view.position(target)

	if !view.Windowed(total) {
		if pos < 0 {
			return -1, fmt.Errorf("%w: page %d has no link in %v", ErrPagination, target, view.Numbers)
		}
		return pos, nil
	}

	if len(view.Numbers) == 0 {
		return -1, fmt.Errorf("%w: pager renders no page numbers", ErrPagination)
	}
	last := view.Numbers[len(view.Numbers)-1]
	switch {
	case target == last && view.Jump >= 0:
		return view.Jump, nil
	case pos >= 0:
		return pos, nil
	case target > last && view.Jump >= 0:
		return view.Jump, nil
	}
	return -1, fmt.Errorf("%w: page %d is not reachable from %v", ErrPagination, target, view.Numbers)
}
