package websocketPkg

import (
	"ProctorGuard/pkg/proctor"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"os"
	"strconv"
	"time"
)

const (
	opDetectFaces     = "detect_faces"
	opDetectLandmarks = "detect_landmarks"
)

// Config describes the remote face service. Every pooled slot keeps its own
// websocket because the service answers requests strictly in order.
type Config struct {
	URL          string
	PoolSize     int
	PingInterval time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

func ConfigFromEnv() Config {
	cfg := Config{
		URL:          os.Getenv("FACE_SERVICE_URL"),
		PoolSize:     4,
		PingInterval: 30 * time.Second,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 5 * time.Second,
	}
	if cfg.URL == "" {
		cfg.URL = "ws://localhost:8000/api/v1/face/ws"
	}
	if n, err := strconv.Atoi(os.Getenv("FACE_SERVICE_POOL_SIZE")); err == nil && n > 0 {
		cfg.PoolSize = n
	}
	return cfg
}

type frameHeader struct {
	Op       string                 `json:"op"`
	Width    int                    `json:"width"`
	Height   int                    `json:"height"`
	Channels int                    `json:"channels"`
	Order    string                 `json:"order"`
	Faces    []proctor.DetectedFace `json:"faces,omitempty"`
}

type serviceResponse struct {
	Faces     []proctor.DetectedFace `json:"faces"`
	Landmarks []*proctor.Landmarks   `json:"landmarks"`
	Error     string                 `json:"error,omitempty"`
}

// FaceClient implements proctor.FaceModel and proctor.LandmarkModel against a
// remote inference service.
type FaceClient struct {
	cfg  Config
	pool *proctor.Pool[*slot]
	log  *logrus.Logger
}

type slot struct {
	id       int
	conn     *websocket.Conn
	lastUsed time.Time
}

func NewFaceClient(cfg Config, log *logrus.Logger) (*FaceClient, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("%w: face service URL not configured", proctor.ErrInvalidConfig)
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = 10 * time.Second
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 5 * time.Second
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = 30 * time.Second
	}

	c := &FaceClient{cfg: cfg, log: log}

	pool, err := proctor.NewPool(cfg.PoolSize,
		func(i int) (*slot, error) { return &slot{id: i}, nil },
		func(s *slot) error { return s.close() },
	)
	if err != nil {
		return nil, err
	}
	c.pool = pool

	go c.warmUp()

	return c, nil
}

func (c *FaceClient) warmUp() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	s, err := c.pool.Acquire(ctx)
	if err != nil {
		return
	}
	defer c.pool.Release(s)

	if err := c.ensure(ctx, s); err != nil {
		c.log.WithFields(logrus.Fields{
			"url":   c.cfg.URL,
			"error": err.Error(),
		}).Warn("Initial connection to face service failed, will retry on demand")
		return
	}
	c.log.WithField("url", c.cfg.URL).Info("Connected to face service")
}

func (c *FaceClient) DetectFaces(ctx context.Context, frame proctor.Frame) ([]proctor.DetectedFace, error) {
	resp, err := c.roundTrip(ctx, frameHeader{Op: opDetectFaces}, frame)
	if err != nil {
		return nil, err
	}
	return resp.Faces, nil
}

func (c *FaceClient) DetectLandmarks(ctx context.Context, frame proctor.Frame, faces []proctor.DetectedFace) ([]*proctor.Landmarks, error) {
	resp, err := c.roundTrip(ctx, frameHeader{Op: opDetectLandmarks, Faces: faces}, frame)
	if err != nil {
		return nil, err
	}
	if len(resp.Landmarks) != len(faces) {
		return nil, fmt.Errorf("face service returned %d landmark sets for %d faces", len(resp.Landmarks), len(faces))
	}
	return resp.Landmarks, nil
}

func (c *FaceClient) Close() error {
	return c.pool.Close()
}

func (c *FaceClient) roundTrip(ctx context.Context, header frameHeader, frame proctor.Frame) (*serviceResponse, error) {
	s, err := c.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer c.pool.Release(s)

	if err := c.ensure(ctx, s); err != nil {
		return nil, fmt.Errorf("cannot connect to face service: %w", err)
	}

	header.Width = frame.Width
	header.Height = frame.Height
	header.Channels = frame.Order.Channels()
	header.Order = frame.Order.String()

	resp, err := c.exchange(ctx, s, header, frame.Pix)
	if err != nil {
		_ = s.close()
		return nil, err
	}
	s.lastUsed = time.Now()

	if resp.Error != "" {
		return nil, errors.New("face service: " + resp.Error)
	}
	return resp, nil
}

func (c *FaceClient) exchange(ctx context.Context, s *slot, header frameHeader, pix []byte) (*serviceResponse, error) {
	conn := s.conn

	// A cancelled context unblocks whichever read or write is in flight.
	stop := context.AfterFunc(ctx, func() {
		now := time.Now()
		_ = conn.SetReadDeadline(now)
		_ = conn.SetWriteDeadline(now)
	})
	defer stop()

	_ = conn.SetWriteDeadline(c.deadline(ctx, c.cfg.WriteTimeout))
	if err := conn.WriteJSON(header); err != nil {
		return nil, c.ctxErr(ctx, fmt.Errorf("error sending frame header: %w", err))
	}
	if err := conn.WriteMessage(websocket.BinaryMessage, pix); err != nil {
		return nil, c.ctxErr(ctx, fmt.Errorf("error sending frame: %w", err))
	}

	_ = conn.SetReadDeadline(c.deadline(ctx, c.cfg.ReadTimeout))
	_, message, err := conn.ReadMessage()
	if err != nil {
		return nil, c.ctxErr(ctx, fmt.Errorf("error reading face response: %w", err))
	}

	_ = conn.SetReadDeadline(time.Time{})
	_ = conn.SetWriteDeadline(time.Time{})

	var resp serviceResponse
	if err := json.Unmarshal(message, &resp); err != nil {
		return nil, fmt.Errorf("error unmarshaling face response: %w", err)
	}

	c.log.WithFields(logrus.Fields{
		"op":    header.Op,
		"slot":  s.id,
		"faces": len(resp.Faces),
	}).Debug("Received response from face service")

	return &resp, nil
}

// ensure dials the slot if it has no connection, and pings it first if it
// has been idle longer than the ping interval.
func (c *FaceClient) ensure(ctx context.Context, s *slot) error {
	if s.conn != nil && time.Since(s.lastUsed) > c.cfg.PingInterval {
		err := s.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(c.cfg.WriteTimeout))
		if err != nil {
			c.log.WithFields(logrus.Fields{
				"slot":  s.id,
				"error": err.Error(),
			}).Warn("Ping failed, marking face service connection as dead")
			_ = s.close()
		}
	}
	if s.conn != nil {
		return nil
	}

	dialer := *websocket.DefaultDialer
	dialer.HandshakeTimeout = 10 * time.Second

	conn, _, err := dialer.DialContext(ctx, c.cfg.URL, nil)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", c.cfg.URL, err)
	}

	writeTimeout := c.cfg.WriteTimeout
	conn.SetPingHandler(func(appData string) error {
		if err := conn.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(writeTimeout)); err != nil {
			c.log.WithField("error", err.Error()).Warn("Error sending pong to face service")
		}
		return nil
	})

	s.conn = conn
	s.lastUsed = time.Now()
	return nil
}

func (c *FaceClient) deadline(ctx context.Context, limit time.Duration) time.Time {
	d := time.Now().Add(limit)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(d) {
		return ctxDeadline
	}
	return d
}

func (c *FaceClient) ctxErr(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%w: %v", ctxErr, err)
	}
	return err
}

func (s *slot) close() error {
	if s.conn == nil {
		return nil
	}
	err := s.conn.Close()
	s.conn = nil
	return err
}
