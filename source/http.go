// Package source implements the observation source collaborators the
// labeling pipeline fetches raw clouds and sensor origins from.
package source

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"

	"github.com/edaniels/golog"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"github.com/strands-project-releases/semantic-segmentation/labeler"
	"github.com/strands-project-releases/semantic-segmentation/pointcloud"
)

// HTTPSource fetches observations from a map publisher service over HTTP.
// Clouds travel as base64 PCD inside JSON bodies.
type HTTPSource struct {
	BaseURL string
	Client  *http.Client
	Logger  golog.Logger
}

// NewHTTPSource returns a source against the given base URL.
func NewHTTPSource(baseURL string, logger golog.Logger) *HTTPSource {
	return &HTTPSource{BaseURL: baseURL, Client: http.DefaultClient, Logger: logger}
}

type observationRequest struct {
	WaypointID string  `json:"waypoint_id"`
	Instance   *int    `json:"instance,omitempty"`
	Resolution float64 `json:"resolution"`
}

type observationResponse struct {
	CloudPCD string `json:"cloud_pcd"`
	FrameID  string `json:"frame_id"`
}

type originRequest struct {
	WaypointID string `json:"waypoint_id"`
}

type originResponse struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// FetchCloud implements labeler.Source.
func (s *HTTPSource) FetchCloud(
	ctx context.Context,
	spec labeler.FetchSpec,
	resolution float64,
) (pointcloud.PointCloud, string, error) {
	var resp observationResponse
	req := observationRequest{WaypointID: spec.WaypointID, Instance: spec.Instance, Resolution: resolution}
	if err := s.post(ctx, "/observation", req, &resp); err != nil {
		return nil, "", err
	}
	raw, err := base64.StdEncoding.DecodeString(resp.CloudPCD)
	if err != nil {
		return nil, "", errors.Wrap(err, "decoding observation cloud")
	}
	cloud, err := pointcloud.ReadPCD(bytes.NewReader(raw))
	if err != nil {
		return nil, "", errors.Wrap(err, "parsing observation cloud")
	}
	return cloud, resp.FrameID, nil
}

// FetchOrigin implements labeler.Source.
func (s *HTTPSource) FetchOrigin(ctx context.Context, waypointID string) (r3.Vector, error) {
	var resp originResponse
	if err := s.post(ctx, "/origin", originRequest{WaypointID: waypointID}, &resp); err != nil {
		return r3.Vector{}, err
	}
	return r3.Vector{X: resp.X, Y: resp.Y, Z: resp.Z}, nil
}

func (s *HTTPSource) post(ctx context.Context, path string, body, into interface{}) (err error) {
	encoded, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.BaseURL+path, bytes.NewReader(encoded))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.Client.Do(req)
	if err != nil {
		return errors.Wrapf(err, "calling %s", path)
	}
	defer func() {
		err = multierr.Combine(err, resp.Body.Close())
	}()
	if resp.StatusCode != http.StatusOK {
		return errors.Errorf("%s returned status %d", path, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(into)
}
