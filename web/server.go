// Package web exposes the labeling service over HTTP: one endpoint per
// request variant plus a download of the latest fused map.
package web

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"
	"goji.io"
	"goji.io/pat"

	"github.com/strands-project-releases/semantic-segmentation/labeler"
	"github.com/strands-project-releases/semantic-segmentation/pointcloud"
)

// Pipeline is the labeling flow a handler invokes.
type Pipeline interface {
	Label(ctx context.Context, spec labeler.FetchSpec) (*labeler.Result, error)
}

// Server routes labeling requests to the two pipeline instances. Both
// publish into the same broadcast, which also backs the fused map download.
type Server struct {
	whole     Pipeline
	instance  Pipeline
	broadcast *labeler.Broadcast
	logger    golog.Logger
}

// NewServer returns a Server over the given pipelines.
func NewServer(whole, instance Pipeline, broadcast *labeler.Broadcast, logger golog.Logger) *Server {
	return &Server{whole: whole, instance: instance, broadcast: broadcast, logger: logger}
}

// Handler builds the route mux.
func (s *Server) Handler() *goji.Mux {
	mux := goji.NewMux()
	mux.HandleFunc(pat.Post("/label"), s.handleLabel)
	mux.HandleFunc(pat.Post("/label_instance"), s.handleLabelInstance)
	mux.HandleFunc(pat.Get("/map.pcd"), s.handleMap)
	mux.HandleFunc(pat.Get("/healthz"), func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return mux
}

type labelRequest struct {
	WaypointID string `json:"waypoint_id"`
	Instance   *int   `json:"instance,omitempty"`
}

// labelResponse mirrors the labeling service response: per-point labels and
// probabilities, per-class frequency statistics, positions and the class
// name table. Probabilities are the flattened row-major N x C marginals.
type labelResponse struct {
	Labels             []int        `json:"labels"`
	LabelProbabilities []float64    `json:"label_probabilities"`
	LabelFrequencies   []float64    `json:"label_frequencies"`
	Points             [][3]float32 `json:"points"`
	ClassNames         []string     `json:"class_names"`
	FrameID            string       `json:"frame_id"`
}

type failureResponse struct {
	Failed bool `json:"failed"`
}

func (s *Server) handleLabel(w http.ResponseWriter, r *http.Request) {
	var req labelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.WaypointID == "" {
		http.Error(w, "body must be JSON with a waypoint_id", http.StatusBadRequest)
		return
	}
	s.runPipeline(w, r, s.whole, labeler.FetchSpec{WaypointID: req.WaypointID})
}

func (s *Server) handleLabelInstance(w http.ResponseWriter, r *http.Request) {
	var req labelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.WaypointID == "" || req.Instance == nil {
		http.Error(w, "body must be JSON with a waypoint_id and instance", http.StatusBadRequest)
		return
	}
	s.runPipeline(w, r, s.instance, labeler.FetchSpec{WaypointID: req.WaypointID, Instance: req.Instance})
}

func (s *Server) runPipeline(w http.ResponseWriter, r *http.Request, pipeline Pipeline, spec labeler.FetchSpec) {
	result, err := pipeline.Label(r.Context(), spec)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, labeler.ErrFetchFailed) {
			status = http.StatusBadGateway
		}
		s.logger.Errorw("labeling request failed", "waypoint", spec.WaypointID, "error", err)
		writeJSON(w, status, failureResponse{Failed: true}, s.logger)
		return
	}

	points := make([][3]float32, len(result.Points))
	for i, p := range result.Points {
		points[i] = [3]float32{float32(p.X), float32(p.Y), float32(p.Z)}
	}
	writeJSON(w, http.StatusOK, labelResponse{
		Labels:             result.Labels,
		LabelProbabilities: result.Probabilities,
		LabelFrequencies:   result.Frequencies,
		Points:             points,
		ClassNames:         result.ClassNames,
		FrameID:            result.FrameID,
	}, s.logger)
}

func (s *Server) handleMap(w http.ResponseWriter, r *http.Request) {
	fused, ok := s.broadcast.Latest()
	if !ok {
		http.Error(w, "no fused map published yet", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("X-Frame-Id", fused.FrameID)
	if err := pointcloud.ToPCD(fused.Cloud, w, pointcloud.PCDBinary); err != nil {
		s.logger.Errorw("writing fused map", "error", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}, logger golog.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Errorw("writing response", "error", err)
	}
}
