// Package fitsout exports interactive histograms as FITS images
package fitsout

import (
	"fmt"
	"io"
	"math"

	"github.com/astrogo/fitsio"

	"github.com/nasa-jpl/picoquant/pq"
)

// WriteCurves streams a fits file to w with one image row per curve and
// one column per bin.  Short curves are zero padded to the longest.
func WriteCurves(w io.Writer, h pq.Header, curves []pq.Curve) error {
	if len(curves) == 0 {
		return fmt.Errorf("%w: no curves to export", pq.ErrUnknownData)
	}
	width := 0
	for _, c := range curves {
		if len(c.Counts) > width {
			width = len(c.Counts)
		}
	}
	if width == 0 {
		return fmt.Errorf("%w: curves have no bins", pq.ErrUnknownData)
	}
	metadata := []fitsio.Card{
		{Name: "BZERO", Value: 2147483648},
		{Name: "BSCALE", Value: 1.0},
		{Name: "PQIDENT", Value: h.Ident, Comment: "board"},
		{Name: "PQVER", Value: h.FormatVersion, Comment: "format version"},
		{Name: "RESPS", Value: curves[0].ResolutionPS(), Comment: "bin width of the first curve, ps"},
		{Name: "OFFSETNS", Value: curves[0].Offset, Comment: "left edge of the first curve, ns"},
		{Name: "NCURVES", Value: len(curves)},
	}
	fits, err := fitsio.Create(w)
	if err != nil {
		return err
	}
	defer fits.Close()
	dims := []int{width, len(curves)}
	im := fitsio.NewImage(32, dims)
	defer im.Close()
	err = im.Header().Append(metadata...)
	if err != nil {
		return err
	}

	ints := make([]int32, width*len(curves))
	for i := range ints {
		ints[i] = math.MinInt32
	}
	for i, c := range curves {
		row := ints[i*width : (i+1)*width]
		for j, v := range c.Counts {
			row[j] = int32(int64(v) - 2147483648)
		}
	}
	err = im.Write(ints)
	if err != nil {
		return err
	}
	return fits.Write(im)
}
