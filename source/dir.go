package source

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"github.com/strands-project-releases/semantic-segmentation/labeler"
	"github.com/strands-project-releases/semantic-segmentation/pointcloud"
)

// DirSource serves observations from a directory of PCD files: one
// "<waypoint>.pcd" per waypoint (or "<waypoint>_<instance>.pcd" per
// instance) and an optional "<waypoint>.origin.json" with {x, y, z}. It is
// useful for running the service against recorded data and in integration
// tests. Resolution is ignored; recorded clouds are already voxelized.
type DirSource struct {
	Dir     string
	FrameID string
}

// FetchCloud implements labeler.Source.
func (s *DirSource) FetchCloud(
	ctx context.Context,
	spec labeler.FetchSpec,
	resolution float64,
) (cloud pointcloud.PointCloud, frameID string, err error) {
	name := spec.WaypointID + ".pcd"
	if spec.Instance != nil {
		name = fmt.Sprintf("%s_%d.pcd", spec.WaypointID, *spec.Instance)
	}
	f, err := os.Open(filepath.Join(s.Dir, name))
	if err != nil {
		return nil, "", errors.Wrapf(err, "no recorded cloud for waypoint %q", spec.WaypointID)
	}
	defer func() {
		err = multierr.Combine(err, f.Close())
	}()
	cloud, err = pointcloud.ReadPCD(f)
	if err != nil {
		return nil, "", err
	}
	return cloud, s.FrameID, nil
}

// FetchOrigin implements labeler.Source. Missing origin files default to
// the frame origin rather than failing, since recorded integrated clouds
// often lack one.
func (s *DirSource) FetchOrigin(ctx context.Context, waypointID string) (r3.Vector, error) {
	data, err := os.ReadFile(filepath.Join(s.Dir, waypointID+".origin.json"))
	if os.IsNotExist(err) {
		return r3.Vector{}, nil
	}
	if err != nil {
		return r3.Vector{}, err
	}
	var origin struct {
		X float64 `json:"x"`
		Y float64 `json:"y"`
		Z float64 `json:"z"`
	}
	if err := json.Unmarshal(data, &origin); err != nil {
		return r3.Vector{}, errors.Wrapf(err, "bad origin file for waypoint %q", waypointID)
	}
	return r3.Vector{X: origin.X, Y: origin.Y, Z: origin.Z}, nil
}
