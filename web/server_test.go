package web

import (
	"bytes"
	"context"
	"encoding/json"
	"image/color"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/edaniels/golog"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.viam.com/test"

	"github.com/strands-project-releases/semantic-segmentation/labeler"
	"github.com/strands-project-releases/semantic-segmentation/pointcloud"
)

type fakePipeline struct {
	lastSpec labeler.FetchSpec
	result   *labeler.Result
	err      error
}

func (f *fakePipeline) Label(ctx context.Context, spec labeler.FetchSpec) (*labeler.Result, error) {
	f.lastSpec = spec
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func testResult() *labeler.Result {
	return &labeler.Result{
		Labels:        []int{0, 1},
		Probabilities: []float64{0.9, 0.1, 0.2, 0.8},
		Frequencies:   []float64{0.55, 0.45},
		Points:        []r3.Vector{{X: 1, Y: 2, Z: 3}, {X: 4, Y: 5, Z: 6}},
		ClassNames:    []string{"floor", "wall"},
		FrameID:       "map",
	}
}

func newTestServer(t *testing.T) (*Server, *fakePipeline, *fakePipeline, *labeler.Broadcast) {
	t.Helper()
	whole := &fakePipeline{result: testResult()}
	instance := &fakePipeline{result: testResult()}
	broadcast := labeler.NewBroadcast()
	return NewServer(whole, instance, broadcast, golog.NewTestLogger(t)), whole, instance, broadcast
}

func TestHandleLabel(t *testing.T) {
	server, whole, _, _ := newTestServer(t)
	handler := server.Handler()

	rec := httptest.NewRecorder()
	body := bytes.NewBufferString(`{"waypoint_id": "wp1"}`)
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/label", body))

	test.That(t, rec.Code, test.ShouldEqual, http.StatusOK)
	test.That(t, rec.Header().Get("Content-Type"), test.ShouldEqual, "application/json")
	test.That(t, whole.lastSpec.WaypointID, test.ShouldEqual, "wp1")
	test.That(t, whole.lastSpec.Instance, test.ShouldBeNil)

	var resp struct {
		Labels             []int        `json:"labels"`
		LabelProbabilities []float64    `json:"label_probabilities"`
		LabelFrequencies   []float64    `json:"label_frequencies"`
		Points             [][3]float32 `json:"points"`
		ClassNames         []string     `json:"class_names"`
		FrameID            string       `json:"frame_id"`
	}
	test.That(t, json.NewDecoder(rec.Body).Decode(&resp), test.ShouldBeNil)
	test.That(t, resp.Labels, test.ShouldResemble, []int{0, 1})
	test.That(t, resp.LabelProbabilities, test.ShouldResemble, []float64{0.9, 0.1, 0.2, 0.8})
	test.That(t, resp.LabelFrequencies, test.ShouldResemble, []float64{0.55, 0.45})
	test.That(t, resp.Points, test.ShouldResemble, [][3]float32{{1, 2, 3}, {4, 5, 6}})
	test.That(t, resp.ClassNames, test.ShouldResemble, []string{"floor", "wall"})
	test.That(t, resp.FrameID, test.ShouldEqual, "map")
}

func TestHandleLabelInstance(t *testing.T) {
	server, whole, instance, _ := newTestServer(t)
	handler := server.Handler()

	rec := httptest.NewRecorder()
	body := bytes.NewBufferString(`{"waypoint_id": "wp1", "instance": 4}`)
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/label_instance", body))

	test.That(t, rec.Code, test.ShouldEqual, http.StatusOK)
	test.That(t, instance.lastSpec.WaypointID, test.ShouldEqual, "wp1")
	test.That(t, instance.lastSpec.Instance, test.ShouldNotBeNil)
	test.That(t, *instance.lastSpec.Instance, test.ShouldEqual, 4)
	test.That(t, whole.lastSpec.WaypointID, test.ShouldEqual, "")

	// instance is mandatory on this route
	rec = httptest.NewRecorder()
	body = bytes.NewBufferString(`{"waypoint_id": "wp1"}`)
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/label_instance", body))
	test.That(t, rec.Code, test.ShouldEqual, http.StatusBadRequest)
}

func TestHandleLabelBadRequest(t *testing.T) {
	server, _, _, _ := newTestServer(t)
	handler := server.Handler()

	for _, body := range []string{"", "not json", `{"instance": 2}`, `{"waypoint_id": ""}`} {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/label", strings.NewReader(body)))
		test.That(t, rec.Code, test.ShouldEqual, http.StatusBadRequest)
	}
}

func TestHandleLabelFailure(t *testing.T) {
	server, whole, _, _ := newTestServer(t)
	handler := server.Handler()

	// fetch failures map to 502, everything else to 500
	whole.err = errors.Wrap(labeler.ErrFetchFailed, "waypoint wp1")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(
		http.MethodPost, "/label", strings.NewReader(`{"waypoint_id": "wp1"}`)))
	test.That(t, rec.Code, test.ShouldEqual, http.StatusBadGateway)
	var failure struct {
		Failed bool `json:"failed"`
	}
	test.That(t, json.NewDecoder(rec.Body).Decode(&failure), test.ShouldBeNil)
	test.That(t, failure.Failed, test.ShouldBeTrue)

	whole.err = errors.New("solver exploded")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(
		http.MethodPost, "/label", strings.NewReader(`{"waypoint_id": "wp1"}`)))
	test.That(t, rec.Code, test.ShouldEqual, http.StatusInternalServerError)
}

func TestHandleMap(t *testing.T) {
	server, _, _, broadcast := newTestServer(t)
	handler := server.Handler()

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/map.pcd", nil))
	test.That(t, rec.Code, test.ShouldEqual, http.StatusNotFound)

	fused := pointcloud.New()
	fused.Append(
		pointcloud.NewVector(1, 2, 3),
		pointcloud.NewColoredData(color.NRGBA{R: 255, G: 128, A: 255}),
	)
	broadcast.Publish(labeler.FusedMap{Cloud: fused, FrameID: "map"})

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/map.pcd", nil))
	test.That(t, rec.Code, test.ShouldEqual, http.StatusOK)
	test.That(t, rec.Header().Get("X-Frame-Id"), test.ShouldEqual, "map")

	got, err := pointcloud.ReadPCD(rec.Body)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, got.Size(), test.ShouldEqual, 1)
	p, d := got.At(0)
	test.That(t, p.X, test.ShouldAlmostEqual, 1, 1e-6)
	r, g, b := d.RGB255()
	test.That(t, []uint8{r, g, b}, test.ShouldResemble, []uint8{255, 128, 0})
}

func TestHealthz(t *testing.T) {
	server, _, _, _ := newTestServer(t)
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	test.That(t, rec.Code, test.ShouldEqual, http.StatusOK)
}
