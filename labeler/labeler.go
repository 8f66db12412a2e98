// Package labeler runs the semantic labeling pipeline: fetch a waypoint's
// colored cloud, partition it into supervoxels, classify and smooth the
// labels, cache the labeled cloud per waypoint and republish the fused map
// of everything labeled so far.
package labeler

import (
	"context"
	"sort"
	"sync"

	"github.com/edaniels/golog"
	"github.com/golang/geo/r3"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/strands-project-releases/semantic-segmentation/classifier"
	"github.com/strands-project-releases/semantic-segmentation/crf"
	"github.com/strands-project-releases/semantic-segmentation/pointcloud"
	"github.com/strands-project-releases/semantic-segmentation/semantic"
)

// ErrFetchFailed marks source collaborator failures. Requests failing with
// it abort before any state mutation: no store write, no publish.
var ErrFetchFailed = errors.New("fetch from observation source failed")

// FetchSpec parameterizes the one pipeline flow for its two entry variants:
// a whole waypoint, or a single observation instance within it.
type FetchSpec struct {
	WaypointID string
	Instance   *int
}

// A Source provides raw observations. Both calls must succeed for a
// request to proceed.
type Source interface {
	// FetchCloud returns the colored cloud for the spec at the given
	// resolution, plus its coordinate frame id.
	FetchCloud(ctx context.Context, spec FetchSpec, resolution float64) (pointcloud.PointCloud, string, error)

	// FetchOrigin returns the sensor origin for the waypoint.
	FetchOrigin(ctx context.Context, waypointID string) (r3.Vector, error)
}

// Labeler is one pipeline instance. The two protocol variants differ only
// in the FetchSpec they pass in; everything from voxelization onward is the
// same flow. Separate variants get separate Labelers (and thus separate
// waypoint stores) but may share one Broadcast.
type Labeler struct {
	conf        Config
	classes     *semantic.ClassSet
	source      Source
	partitioner Partitioner
	classifier  classifier.Classifier
	solver      crf.Solver
	store       *WaypointStore
	broadcast   *Broadcast
	logger      golog.Logger

	// publishMu covers store write + fuse + publish so concurrent requests
	// cannot interleave a write with another's fused read.
	publishMu sync.Mutex
}

// New wires up a pipeline instance.
func New(
	conf Config,
	classes *semantic.ClassSet,
	source Source,
	partitioner Partitioner,
	clf classifier.Classifier,
	solver crf.Solver,
	broadcast *Broadcast,
	logger golog.Logger,
) (*Labeler, error) {
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	if clf.Classes() != classes.Count() {
		return nil, errors.Errorf("classifier predicts %d classes, class set has %d", clf.Classes(), classes.Count())
	}
	return &Labeler{
		conf:        conf,
		classes:     classes,
		source:      source,
		partitioner: partitioner,
		classifier:  clf,
		solver:      solver,
		store:       NewWaypointStore(),
		broadcast:   broadcast,
		logger:      logger,
	}, nil
}

// Store exposes the pipeline's waypoint store, mainly for inspection.
func (l *Labeler) Store() *WaypointStore {
	return l.store
}

// Label runs the full pipeline for one request. On success the labeled
// cloud replaces the waypoint's store entry and the fused map is
// republished; on fetch failure nothing is mutated.
func (l *Labeler) Label(ctx context.Context, spec FetchSpec) (*Result, error) {
	logger := l.logger.With("request_id", uuid.NewString(), "waypoint", spec.WaypointID)

	cloud, frameID, err := l.source.FetchCloud(ctx, spec, l.conf.FetchResolution)
	if err != nil {
		logger.Errorw("did not receive a point cloud", "error", err)
		return nil, errors.Wrapf(ErrFetchFailed, "cloud for waypoint %q: %v", spec.WaypointID, err)
	}
	origin, err := l.source.FetchOrigin(ctx, spec.WaypointID)
	if err != nil {
		logger.Errorw("did not receive a sensor origin for the cloud", "error", err)
		return nil, errors.Wrapf(ErrFetchFailed, "origin for waypoint %q: %v", spec.WaypointID, err)
	}
	logger.Infow("cloud received", "points", cloud.Size(), "frame", frameID, "origin", origin)

	normalized := pointcloud.NormalizeLab(cloud)

	voxels, voxelized, err := l.partitioner.Partition(ctx, normalized)
	if err != nil {
		return nil, errors.Wrap(err, "partitioning cloud")
	}
	logger.Infow("voxelized the cloud", "supervoxels", len(voxels))

	admitted, n := admitVoxels(voxels, voxelized, l.conf.MinimumPoints)
	logger.Infow("admission filtering done", "remaining_voxels", len(admitted), "remaining_points", n)

	var result *Result
	if n == 0 {
		// Degenerate but valid: empty arrays, all-zero frequencies. The
		// blacked-out cloud still replaces the waypoint entry below.
		result, err = decodeLabels(nil, nil, voxelized, l.classes, 0)
		if err != nil {
			return nil, err
		}
	} else {
		energy, err := buildEnergy(admitted, voxelized, l.classifier, n, &l.conf)
		if err != nil {
			return nil, err
		}
		marginals, err := l.solver.Infer(energy, l.conf.SolverIterations)
		if err != nil {
			return nil, errors.Wrap(err, "smoothing labels")
		}
		result, err = decodeLabels(marginals, admitted, voxelized, l.classes, n)
		if err != nil {
			return nil, err
		}
		logger.Info("done classifying all the supervoxels")
	}
	result.FrameID = frameID

	l.publishMu.Lock()
	defer l.publishMu.Unlock()
	l.store.Put(spec.WaypointID, Observation{Cloud: voxelized, FrameID: frameID})
	fused := fuse(l.store.Snapshot())
	l.broadcast.Publish(FusedMap{Cloud: fused, FrameID: frameID})
	logger.Infow("published fused map", "waypoints", l.store.Len(), "points", fused.Size())

	return result, nil
}

// fuse concatenates all cached observations, ordered by waypoint id so the
// output is deterministic for a given store state.
func fuse(snapshot map[string]Observation) pointcloud.PointCloud {
	ids := make([]string, 0, len(snapshot))
	for id := range snapshot {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	clouds := make([]pointcloud.PointCloud, 0, len(ids))
	for _, id := range ids {
		clouds = append(clouds, snapshot[id].Cloud)
	}
	return pointcloud.MergeClouds(clouds)
}
