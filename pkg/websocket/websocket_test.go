package websocketPkg

import (
	"ProctorGuard/pkg/log"
	"ProctorGuard/pkg/proctor"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

type fakeFaceService struct {
	faces    []proctor.DetectedFace
	marks    []*proctor.Landmarks
	delay    time.Duration
	failWith string
	conns    atomic.Int32
}

func (f *fakeFaceService) handler(t *testing.T) http.HandlerFunc {
	upgrader := websocket.Upgrader{}
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade failed: %v", err)
			return
		}
		defer conn.Close()
		f.conns.Add(1)

		for {
			var header frameHeader
			if err := conn.ReadJSON(&header); err != nil {
				return
			}
			mt, pix, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if mt != websocket.BinaryMessage || len(pix) != header.Width*header.Height*header.Channels {
				_ = conn.WriteJSON(serviceResponse{Error: "bad frame"})
				continue
			}
			if f.delay > 0 {
				time.Sleep(f.delay)
			}

			resp := serviceResponse{Error: f.failWith}
			switch header.Op {
			case opDetectFaces:
				resp.Faces = f.faces
			case opDetectLandmarks:
				resp.Landmarks = make([]*proctor.Landmarks, len(header.Faces))
				copy(resp.Landmarks, f.marks)
			}
			payload, _ := json.Marshal(resp)
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		}
	}
}

func startFaceService(t *testing.T, svc *fakeFaceService) (*FaceClient, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(svc.handler(t))
	t.Cleanup(srv.Close)

	client, err := NewFaceClient(Config{
		URL:         "ws" + strings.TrimPrefix(srv.URL, "http"),
		PoolSize:    2,
		ReadTimeout: 2 * time.Second,
	}, log.NewDiscardLogger())
	if err != nil {
		t.Fatalf("NewFaceClient failed: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client, srv
}

func testFrame(t *testing.T) proctor.Frame {
	t.Helper()
	frame, err := proctor.NewFrame(4, 4, proctor.ChannelOrderRGB, make([]byte, 48), time.Now())
	if err != nil {
		t.Fatalf("NewFrame failed: %v", err)
	}
	return frame
}

func TestFaceClient_DetectFacesAndLandmarks(t *testing.T) {
	svc := &fakeFaceService{
		faces: []proctor.DetectedFace{{Confidence: 0.93}, {Confidence: 0.41}},
		marks: []*proctor.Landmarks{{
			LeftEye:  proctor.Point{X: 0.4, Y: 0.4},
			RightEye: proctor.Point{X: 0.6, Y: 0.4},
			Nose:     proctor.Point{X: 0.5, Y: 0.55},
		}},
	}
	client, _ := startFaceService(t, svc)

	faces, err := client.DetectFaces(context.Background(), testFrame(t))
	if err != nil {
		t.Fatalf("DetectFaces failed: %v", err)
	}
	if len(faces) != 2 || faces[0].Confidence != 0.93 {
		t.Fatalf("unexpected faces %+v", faces)
	}

	marks, err := client.DetectLandmarks(context.Background(), testFrame(t), faces)
	if err != nil {
		t.Fatalf("DetectLandmarks failed: %v", err)
	}
	if len(marks) != 2 || marks[0] == nil || marks[1] != nil {
		t.Fatalf("unexpected landmarks %+v", marks)
	}
}

func TestFaceClient_ServiceError(t *testing.T) {
	client, _ := startFaceService(t, &fakeFaceService{failWith: "model not loaded"})

	_, err := client.DetectFaces(context.Background(), testFrame(t))
	if err == nil || !strings.Contains(err.Error(), "model not loaded") {
		t.Fatalf("expected service error, got %v", err)
	}
}

func TestFaceClient_ContextDeadline(t *testing.T) {
	client, _ := startFaceService(t, &fakeFaceService{delay: 500 * time.Millisecond})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := client.DetectFaces(ctx, testFrame(t))
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error, got %v", err)
	}

	faces, err := client.DetectFaces(context.Background(), testFrame(t))
	if err != nil {
		t.Fatalf("client should redial after a dropped exchange: %v", err)
	}
	if len(faces) != 0 {
		t.Fatalf("expected no faces, got %+v", faces)
	}
}

func TestFaceClient_WorksAsEngineModel(t *testing.T) {
	svc := &fakeFaceService{faces: []proctor.DetectedFace{{Confidence: 0.9}, {Confidence: 0.8}}}
	client, _ := startFaceService(t, svc)

	engine, err := proctor.NewEngine(proctor.DefaultConfig(), client, client, nil, proctor.WithLogger(log.NewDiscardLogger()))
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}

	report, err := engine.Analyze(context.Background(), testFrame(t))
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if !report.FaceAnalysis.MultipleFaces {
		t.Fatalf("expected multiple faces, got %+v", report.FaceAnalysis)
	}

	if err := engine.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if _, err := client.DetectFaces(context.Background(), testFrame(t)); !errors.Is(err, proctor.ErrPoolClosed) {
		t.Fatalf("expected closed client, got %v", err)
	}
}

func TestNewFaceClient_RequiresURL(t *testing.T) {
	if _, err := NewFaceClient(Config{}, log.NewDiscardLogger()); !errors.Is(err, proctor.ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
}
