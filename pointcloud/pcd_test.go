package pointcloud

import (
	"bytes"
	"image/color"
	"strings"
	"testing"

	"go.viam.com/test"
)

func TestPCDRoundTrip(t *testing.T) {
	pc := New()
	pc.Append(NewVector(-0.5, 1.25, 3), NewColoredData(color.NRGBA{R: 10, G: 20, B: 30, A: 255}))
	pc.Append(NewVector(0, 0, 0), NewColoredData(color.NRGBA{R: 255, G: 0, B: 128, A: 255}))

	for _, format := range []PCDType{PCDAscii, PCDBinary} {
		var buf bytes.Buffer
		test.That(t, ToPCD(pc, &buf, format), test.ShouldBeNil)

		got, err := ReadPCD(&buf)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, got.Size(), test.ShouldEqual, pc.Size())
		for i := 0; i < pc.Size(); i++ {
			wantP, wantD := pc.At(i)
			gotP, gotD := got.At(i)
			test.That(t, gotP.X, test.ShouldAlmostEqual, wantP.X, 1e-6)
			test.That(t, gotP.Y, test.ShouldAlmostEqual, wantP.Y, 1e-6)
			test.That(t, gotP.Z, test.ShouldAlmostEqual, wantP.Z, 1e-6)
			wr, wg, wb := wantD.RGB255()
			gr, gg, gb := gotD.RGB255()
			test.That(t, []uint8{gr, gg, gb}, test.ShouldResemble, []uint8{wr, wg, wb})
		}
	}
}

func TestPCDEmptyCloud(t *testing.T) {
	var buf bytes.Buffer
	test.That(t, ToPCD(New(), &buf, PCDAscii), test.ShouldBeNil)
	got, err := ReadPCD(&buf)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, got.Size(), test.ShouldEqual, 0)
}

func TestPCDBadInput(t *testing.T) {
	_, err := ReadPCD(strings.NewReader("not a pcd file"))
	test.That(t, err, test.ShouldNotBeNil)

	header := "VERSION .7\nFIELDS x y intensity\nDATA ascii\n"
	_, err = ReadPCD(strings.NewReader(header))
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "fields")
}
