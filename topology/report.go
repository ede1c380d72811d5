// Copyright (c) 2021 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package topology

import (
	"fmt"
	"io"

	"github.com/olekukonko/tablewriter"
)

// Report renders the comparison table of the simulated overlay against its
// random baseline.
func Report(w io.Writer, bitcoin, random Metrics) {
	table := tablewriter.NewWriter(w)
	table.SetAutoFormatHeaders(false)
	table.SetHeader([]string{"", "Bitcoin", "Random Graph"})
	table.Append([]string{
		"Clustering Coef",
		fmt.Sprintf("%.4f", bitcoin.Clustering),
		fmt.Sprintf("%.4f", random.Clustering),
	})
	table.Append([]string{
		"Mean Geodesic Dist",
		fmt.Sprintf("%.4f", bitcoin.MeanGeodesic),
		fmt.Sprintf("%.4f", random.MeanGeodesic),
	})
	table.Append([]string{
		"Diameter",
		fmt.Sprintf("%.0f", bitcoin.Diameter),
		fmt.Sprintf("%.0f", random.Diameter),
	})
	table.Render()
}
