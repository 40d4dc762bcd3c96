package proctorService

import (
	proctorRepository "ProctorGuard/internal/api/proctor/repository"
	"ProctorGuard/internal/entity"
	"ProctorGuard/pkg/log"
	"ProctorGuard/pkg/proctor"
	"ProctorGuard/pkg/redis"
	"ProctorGuard/pkg/utils"
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"sort"
	"sync"
	"testing"
	"time"
)

var errStoreDown = errors.New("store down")

type fakeStore struct {
	mu        sync.Mutex
	rows      map[string]entity.Violation
	createErr error
	listErr   error
}

func newFakeStore() *fakeStore {
	return &fakeStore{rows: map[string]entity.Violation{}}
}

func (f *fakeStore) CreateViolation(ctx context.Context, v entity.Violation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	f.rows[v.ID] = v
	return nil
}

func (f *fakeStore) GetViolationByID(ctx context.Context, id string) (entity.Violation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.rows[id]
	if !ok {
		return entity.Violation{}, proctorRepository.ErrViolationNotFound
	}
	return v, nil
}

func (f *fakeStore) GetViolationsByExamID(ctx context.Context, examID string) ([]entity.Violation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []entity.Violation
	for _, v := range f.rows {
		if v.ExamID == examID {
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}

func (f *fakeStore) AttachEvidence(ctx context.Context, id string, url string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.rows[id]
	if !ok {
		return proctorRepository.ErrViolationNotFound
	}
	v.EvidenceURL = url
	f.rows[id] = v
	return nil
}

type fakeRepo struct {
	store *fakeStore
}

func (r *fakeRepo) NewClient(tx bool) (proctorRepository.Client, error) {
	return proctorRepository.Client{
		Violations: r.store,
		Commit:     func() error { return nil },
		Rollback:   func() error { return nil },
	}, nil
}

type fakeRedis struct {
	mu     sync.Mutex
	values map[string][]byte
	ttl    time.Duration
	setErr error
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{values: map[string][]byte{}}
}

func (r *fakeRedis) SetLiveStatus(ctx context.Context, examID string, payload []byte, exp time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.setErr != nil {
		return r.setErr
	}
	r.values[examID] = payload
	r.ttl = exp
	return nil
}

func (r *fakeRedis) GetLiveStatus(ctx context.Context, examID string) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.values[examID]
	if !ok {
		return nil, redis.ErrNotFound
	}
	return v, nil
}

func (r *fakeRedis) Close() error { return nil }

type fakeS3 struct {
	uploads    int
	err        error
	presignErr error
}

func (f *fakeS3) UploadEvidence(examID, eventID string, data []byte) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.uploads++
	return "https://evidence.test/" + examID + "/" + eventID, nil
}

func (f *fakeS3) PresignUrl(fileUrl string) (string, error) {
	if f.presignErr != nil {
		return "", f.presignErr
	}
	return fileUrl + "?X-Amz-Signature=test", nil
}

type fakeMetrics struct {
	mu           sync.Mutex
	outcomes     map[string]int
	reports      int
	sinkFailures int
	streams      int
}

func newFakeMetrics() *fakeMetrics {
	return &fakeMetrics{outcomes: map[string]int{}}
}

func (m *fakeMetrics) ObserveAnalysis(outcome string, took time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.outcomes[outcome]++
}

func (m *fakeMetrics) ObserveReport(report *proctor.Report) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reports++
}

func (m *fakeMetrics) ObserveSinkFailure() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sinkFailures++
}

func (m *fakeMetrics) SetActiveStreams(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.streams = n
}

func (m *fakeMetrics) Handler() http.Handler {
	return http.NotFoundHandler()
}

type fixture struct {
	svc     IProctorService
	engine  *proctor.Engine
	store   *fakeStore
	redis   *fakeRedis
	s3      *fakeS3
	metrics *fakeMetrics
}

func newFixture(t *testing.T, faces proctor.FaceModel, objects proctor.ObjectModel, opts Options) *fixture {
	t.Helper()

	engine, err := proctor.NewEngine(proctor.DefaultConfig(), faces, nil, objects,
		proctor.WithLogger(log.NewDiscardLogger()))
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}
	t.Cleanup(func() { _ = engine.Close() })

	f := &fixture{
		engine:  engine,
		store:   newFakeStore(),
		redis:   newFakeRedis(),
		s3:      &fakeS3{},
		metrics: newFakeMetrics(),
	}
	f.svc = NewProctorService(
		log.NewDiscardLogger(),
		engine,
		&fakeRepo{store: f.store},
		f.redis,
		f.s3,
		f.metrics,
		utils.New(),
		opts,
	)
	return f
}

func oneFace() proctor.StaticFaceModel {
	return proctor.StaticFaceModel{Faces: []proctor.DetectedFace{{Confidence: 0.9}}}
}

func twoFaces() proctor.StaticFaceModel {
	return proctor.StaticFaceModel{Faces: []proctor.DetectedFace{{Confidence: 0.9}, {Confidence: 0.8}}}
}

func pngImage(t *testing.T) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, 8, 6))
	for y := 0; y < 6; y++ {
		for x := 0; x < 8; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 30), G: uint8(y * 40), B: 90, A: 255})
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png encode failed: %v", err)
	}
	return buf.Bytes()
}
