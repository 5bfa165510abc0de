package keypoints

import (
	"image"

	"github.com/fogleman/gg"
	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
)

// PlotKeypoints plots keypoints on an image. Points use the module's
// row/column convention, so X is drawn vertically.
func PlotKeypoints(img image.Image, kps []r2.Point, outName string) error {
	w, h := img.Bounds().Max.X, img.Bounds().Max.Y

	dc := gg.NewContext(w, h)
	dc.DrawImage(img, 0, 0)

	dc.SetRGBA(0, 0, 1, 0.5)
	for _, p := range kps {
		dc.DrawCircle(p.Y, p.X, 3.0)
		dc.Fill()
	}
	return dc.SavePNG(outName)
}

// PlotCorrespondences plots two keypoint sets on an image and draws a segment
// between pairs matched by index.
func PlotCorrespondences(img image.Image, kps1, kps2 []r2.Point, outName string) error {
	if len(kps1) != len(kps2) {
		return errors.Errorf("correspondence sets must have same length (%d != %d)", len(kps1), len(kps2))
	}
	w, h := img.Bounds().Max.X, img.Bounds().Max.Y

	dc := gg.NewContext(w, h)
	dc.DrawImage(img, 0, 0)

	dc.SetRGBA(0, 1, 0, 0.7)
	dc.SetLineWidth(1.25)
	for i := range kps1 {
		dc.DrawLine(kps1[i].Y, kps1[i].X, kps2[i].Y, kps2[i].X)
		dc.Stroke()
	}
	dc.SetRGBA(0, 0, 1, 0.5)
	for _, p := range kps1 {
		dc.DrawCircle(p.Y, p.X, 3.0)
		dc.Fill()
	}
	dc.SetRGBA(1, 0, 0, 0.5)
	for _, p := range kps2 {
		dc.DrawCircle(p.Y, p.X, 3.0)
		dc.Fill()
	}
	return dc.SavePNG(outName)
}
