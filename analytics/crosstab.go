package analytics

import (
	"sort"

	"stsdash/normalization"
)

// MarginLabel names the total row and column of a cross-tabulation.
const MarginLabel = "All"

// CrossTab is a square contingency table. Labels is the shared axis for both
// dimensions, the union of the values seen on either side, with the margin
// label last. Cells[i][j] counts rows taking Labels[i] on the row dimension
// and Labels[j] on the column dimension; the last row and column hold the
// margins.
type CrossTab struct {
	RowName string   `json:"row_name"`
	ColName string   `json:"col_name"`
	Labels  []string `json:"labels"`
	Cells   [][]int  `json:"cells"`
}

// CrossTabBy tabulates rowCol against colCol after flattening on both, so a
// row combining two originator countries and one issuer country produces two
// cells. Rows missing either value are skipped. The axes are unified: a
// country appearing only as an issuer still gets a (zero-filled) row.
func CrossTabBy(rows []normalization.Row, rowCol, colCol normalization.Column) CrossTab {
	flat := normalization.FlattenBy(normalization.FlattenBy(rows, rowCol), colCol)

	pairs := make(map[[2]string]int)
	labelSet := make(map[string]struct{})
	for _, r := range flat {
		rv, cv := rowCol.Get(&r), colCol.Get(&r)
		if rv.IsMissing() || cv.IsMissing() {
			continue
		}
		pair := [2]string{rv.Key(), cv.Key()}
		pairs[pair]++
		labelSet[pair[0]] = struct{}{}
		labelSet[pair[1]] = struct{}{}
	}

	labels := make([]string, 0, len(labelSet)+1)
	for l := range labelSet {
		labels = append(labels, l)
	}
	sort.Strings(labels)
	labels = append(labels, MarginLabel)

	n := len(labels)
	index := make(map[string]int, n)
	for i, l := range labels {
		index[l] = i
	}

	cells := make([][]int, n)
	for i := range cells {
		cells[i] = make([]int, n)
	}
	for pair, count := range pairs {
		i, j := index[pair[0]], index[pair[1]]
		cells[i][j] += count
		cells[i][n-1] += count
		cells[n-1][j] += count
		cells[n-1][n-1] += count
	}

	return CrossTab{Labels: labels, Cells: cells}
}

// OriginatorVsIssuer tabulates originator country against issuer country,
// both as full names, over the public rows.
func OriginatorVsIssuer(rows []normalization.Row) CrossTab {
	ct := CrossTabBy(PublicOnly(rows), normalization.ColOriginatorCountryFull, normalization.ColIssuerCountryFull)
	ct.RowName = "Originator Country"
	ct.ColName = "Issuer Country"
	return ct
}
