package pointcloud

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"image/color"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
)

// PCDType is the format of a pcd file.
type PCDType int

const (
	// PCDAscii ascii format for pcd.
	PCDAscii PCDType = 0
	// PCDBinary binary format for pcd.
	PCDBinary PCDType = 1
)

// ToPCD writes out a point cloud in PCD format with fields x y z rgb.
func ToPCD(cloud PointCloud, out io.Writer, outputType PCDType) error {
	var dataType string
	switch outputType {
	case PCDAscii:
		dataType = "ascii"
	case PCDBinary:
		dataType = "binary"
	default:
		return errors.Errorf("unknown pcd type %d", outputType)
	}

	_, err := fmt.Fprintf(out, "VERSION .7\n"+
		"FIELDS x y z rgb\n"+
		"SIZE 4 4 4 4\n"+
		"TYPE F F F U\n"+
		"COUNT 1 1 1 1\n"+
		"WIDTH %d\n"+
		"HEIGHT 1\n"+
		"VIEWPOINT 0 0 0 1 0 0 0\n"+
		"POINTS %d\n"+
		"DATA %s\n", cloud.Size(), cloud.Size(), dataType)
	if err != nil {
		return err
	}

	writer := bufio.NewWriter(out)
	cloud.Iterate(func(i int, p r3.Vector, d Data) bool {
		var r, g, b uint8
		if d != nil && d.HasColor() {
			r, g, b = d.RGB255()
		}
		rgb := uint32(r)<<16 | uint32(g)<<8 | uint32(b)
		switch outputType {
		case PCDAscii:
			_, err = fmt.Fprintf(writer, "%f %f %f %d\n", p.X, p.Y, p.Z, rgb)
		case PCDBinary:
			buf := make([]byte, 16)
			binary.LittleEndian.PutUint32(buf[0:], math.Float32bits(float32(p.X)))
			binary.LittleEndian.PutUint32(buf[4:], math.Float32bits(float32(p.Y)))
			binary.LittleEndian.PutUint32(buf[8:], math.Float32bits(float32(p.Z)))
			binary.LittleEndian.PutUint32(buf[12:], rgb)
			_, err = writer.Write(buf)
		}
		return err == nil
	})
	if err != nil {
		return err
	}
	return writer.Flush()
}

// ReadPCD reads a PCD file with fields x y z rgb into a PointCloud.
func ReadPCD(in io.Reader) (PointCloud, error) {
	reader := bufio.NewReader(in)
	points := 0
	dataType := ""
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			return nil, errors.Wrap(err, "reading pcd header")
		}
		line = strings.TrimSpace(line)
		tokens := strings.Fields(line)
		if len(tokens) == 0 {
			continue
		}
		switch tokens[0] {
		case "FIELDS":
			if strings.Join(tokens[1:], " ") != "x y z rgb" {
				return nil, errors.Errorf("unsupported pcd fields %q", line)
			}
		case "POINTS":
			points, err = strconv.Atoi(tokens[1])
			if err != nil {
				return nil, errors.Wrapf(err, "bad POINTS line %q", line)
			}
		case "DATA":
			dataType = tokens[1]
		}
		if dataType != "" {
			break
		}
	}

	cloud := NewWithPrealloc(points)
	switch dataType {
	case "ascii":
		for i := 0; i < points; i++ {
			line, err := reader.ReadString('\n')
			if err != nil && (err != io.EOF || strings.TrimSpace(line) == "") {
				return nil, errors.Wrapf(err, "reading pcd point %d", i)
			}
			tokens := strings.Fields(strings.TrimSpace(line))
			if len(tokens) != 4 {
				return nil, errors.Errorf("malformed pcd point line %q", line)
			}
			var p r3.Vector
			if p.X, err = strconv.ParseFloat(tokens[0], 64); err != nil {
				return nil, err
			}
			if p.Y, err = strconv.ParseFloat(tokens[1], 64); err != nil {
				return nil, err
			}
			if p.Z, err = strconv.ParseFloat(tokens[2], 64); err != nil {
				return nil, err
			}
			rgb, err := strconv.ParseUint(tokens[3], 10, 32)
			if err != nil {
				return nil, err
			}
			cloud.Append(p, NewColoredData(unpackRGB(uint32(rgb))))
		}
	case "binary":
		buf := make([]byte, 16)
		for i := 0; i < points; i++ {
			if _, err := io.ReadFull(reader, buf); err != nil {
				return nil, errors.Wrapf(err, "reading pcd point %d", i)
			}
			p := r3.Vector{
				X: float64(math.Float32frombits(binary.LittleEndian.Uint32(buf[0:]))),
				Y: float64(math.Float32frombits(binary.LittleEndian.Uint32(buf[4:]))),
				Z: float64(math.Float32frombits(binary.LittleEndian.Uint32(buf[8:]))),
			}
			cloud.Append(p, NewColoredData(unpackRGB(binary.LittleEndian.Uint32(buf[12:]))))
		}
	default:
		return nil, errors.Errorf("unsupported pcd data type %q", dataType)
	}
	return cloud, nil
}

func unpackRGB(rgb uint32) color.NRGBA {
	return color.NRGBA{
		R: uint8(rgb >> 16),
		G: uint8(rgb >> 8),
		B: uint8(rgb),
		A: 255,
	}
}
