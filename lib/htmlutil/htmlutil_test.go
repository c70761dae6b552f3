package htmlutil

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"
)

func TestCleanText(t *testing.T) {
	require.Equal(t, "Page 1 of 3", CleanText("\n\t Page 1   of 3 \n"))
	require.Equal(t, "", CleanText(" ​ "))
}

func TestTableRows(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(`
	<table>
		<thead><tr><th>Date</th><th>Amount</th></tr></thead>
		<tbody>
			<tr><td> 03/14/2024
				13:05 </td><td><span>(1.00)</span></td></tr>
			<tr><td>03/15/2024 08:00</td><td>2.00&nbsp;USD</td></tr>
		</tbody>
	</table>`))
	require.NoError(t, err)

	rows := TableRows(doc.Selection, "tbody tr", "td")
	require.Equal(t, [][]string{
		{"03/14/2024 13:05", "(1.00)"},
		{"03/15/2024 08:00", "2.00 USD"},
	}, rows)
}
