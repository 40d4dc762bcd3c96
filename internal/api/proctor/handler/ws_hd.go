package proctorHandler

import (
	contextPkg "ProctorGuard/pkg/context"
	"context"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/sirupsen/logrus"
)

const (
	streamReadTimeout  = 60 * time.Second
	streamWriteTimeout = 10 * time.Second
	streamFrameTimeout = 10 * time.Second
)

// handleFrameStream analyses every binary frame sent on the socket and
// answers with one JSON report per frame, in order.
func (h *ProctorHandler) handleFrameStream(c *websocket.Conn) {
	examID, _ := c.Locals("exam_id").(string)
	requestID, _ := c.Locals("X-Request-ID").(string)

	entry := h.log.WithFields(logrus.Fields{
		"request_id": requestID,
		"exam_id":    examID,
	})

	if examID == "" {
		_ = c.WriteJSON(map[string]string{"error": "exam_id query parameter is required"})
		return
	}

	c.SetReadLimit(h.utils.MaxFileSize())

	h.proctorService.StreamOpened()
	defer h.proctorService.StreamClosed()

	entry.Info("Proctoring stream connected")
	defer entry.Info("Proctoring stream disconnected")

	c.SetPingHandler(func(data string) error {
		if err := c.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(5*time.Second)); err != nil {
			entry.Errorf("Error sending pong: %v", err)
		}
		return nil
	})

	base := contextPkg.WithExamID(contextPkg.WithRequestID(context.Background(), requestID), examID)

	for {
		if err := c.SetReadDeadline(time.Now().Add(streamReadTimeout)); err != nil {
			entry.Errorf("Error setting read deadline: %v", err)
			break
		}

		messageType, message, err := c.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				entry.Errorf("Proctoring stream error: %v", err)
			}
			break
		}

		if messageType != websocket.BinaryMessage {
			entry.Warnf("Received unexpected message type: %d", messageType)
			continue
		}

		ctx, cancel := context.WithTimeout(base, streamFrameTimeout)
		result, err := h.proctorService.AnalyzeFrame(ctx, examID, message)
		cancel()

		var payload interface{} = result
		if err != nil {
			payload = map[string]string{"error": err.Error()}
		}

		if err := c.SetWriteDeadline(time.Now().Add(streamWriteTimeout)); err != nil {
			entry.Errorf("Error setting write deadline: %v", err)
			break
		}

		if err := c.WriteJSON(payload); err != nil {
			entry.Errorf("Error writing JSON response: %v", err)
			break
		}
	}
}
