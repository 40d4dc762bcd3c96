package handlerUtil

import (
	"ProctorGuard/pkg/log"
	"ProctorGuard/pkg/proctor"
	"ProctorGuard/pkg/response"
	"ProctorGuard/pkg/utils"
	"errors"

	"github.com/gofiber/fiber/v2"
	fiberUtils "github.com/gofiber/fiber/v2/utils"
	"github.com/sirupsen/logrus"
)

type ErrorHandler struct {
	logger *logrus.Logger
}

func New(logger *logrus.Logger) *ErrorHandler {
	return &ErrorHandler{
		logger: logger,
	}
}

// Handle maps err to a status code and an error envelope. Every 5xx carries a
// trace_id that is also written to the log.
func (h *ErrorHandler) Handle(c *fiber.Ctx, requestID string, err error, path string, operation string) error {
	fields := log.Fields{
		"request_id": requestID,
		"error":      err.Error(),
		"path":       path,
		"operation":  operation,
	}

	var respErr *response.Error
	if errors.As(err, &respErr) {
		fields["code"] = respErr.Code
		if respErr.Code >= fiber.StatusInternalServerError {
			return h.serverError(c, respErr.Code, fields, "Operation failed with error response", response.Envelope{
				Error: err.Error(),
			})
		}
		h.logger.WithFields(fields).Warn("Operation failed with error response")
		return c.Status(respErr.Code).JSON(response.Envelope{Error: err.Error()})
	}

	// Upload errors
	if errors.Is(err, utils.ErrNoFile) || errors.Is(err, utils.ErrNotAnImage) || errors.Is(err, utils.ErrInvalidBase64) {
		h.logger.WithFields(fields).Warn("Invalid image upload")
		return c.Status(fiber.StatusBadRequest).JSON(response.Envelope{
			Error: err.Error(),
			Code:  "INVALID_IMAGE",
		})
	}

	if errors.Is(err, utils.ErrFileTooLarge) {
		h.logger.WithFields(fields).Warn("Image too large")
		return c.Status(fiber.StatusRequestEntityTooLarge).JSON(response.Envelope{
			Error: "Image exceeds the 5MB limit",
			Code:  "FILE_TOO_LARGE",
		})
	}

	// Engine errors that reached the handler unmapped
	if errors.Is(err, proctor.ErrDecode) {
		h.logger.WithFields(fields).Warn("Frame could not be decoded")
		return c.Status(fiber.StatusBadRequest).JSON(response.Envelope{
			Error: "Frame could not be decoded",
			Code:  "DECODE_ERROR",
		})
	}

	if errors.Is(err, proctor.ErrAnalysisTimeout) {
		h.logger.WithFields(fields).Warn("Frame analysis timed out")
		return h.HandleRequestTimeout(c)
	}

	if errors.Is(err, proctor.ErrDetection) {
		return h.serverError(c, fiber.StatusBadGateway, fields, "Face detection backend failed", response.Envelope{
			Error: "Face detection backend failed",
			Code:  "DETECTION_ERROR",
		})
	}

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		h.logger.WithFields(fields).Warn("Request rejected")
		return c.Status(fiberErr.Code).JSON(response.Envelope{Error: fiberErr.Message})
	}

	return h.serverError(c, fiber.StatusInternalServerError, fields, "Unhandled error", response.Envelope{
		Error: "Internal server error",
		Code:  "INTERNAL_ERROR",
	})
}

func (h *ErrorHandler) serverError(c *fiber.Ctx, status int, fields log.Fields, msg string, body response.Envelope) error {
	body.TraceID = log.ErrorWithTraceID(h.logger, fields, msg)
	return c.Status(status).JSON(body)
}

func (h *ErrorHandler) HandleValidationError(c *fiber.Ctx, requestID string, err error, path string) error {
	h.logger.WithFields(log.Fields{
		"request_id": requestID,
		"error":      err.Error(),
		"path":       path,
	}).Warn("Validation failed")

	return c.Status(fiber.StatusBadRequest).JSON(response.Envelope{
		Error: "Validation failed: " + err.Error(),
		Code:  "VALIDATION_ERROR",
	})
}

func (h *ErrorHandler) HandleRequestTimeout(c *fiber.Ctx) error {
	return c.Status(fiber.StatusRequestTimeout).JSON(fiberUtils.StatusMessage(fiber.StatusRequestTimeout))
}

func (h *ErrorHandler) HandleUnauthorized(c *fiber.Ctx, requestID string, message string) error {
	h.logger.WithFields(log.Fields{
		"request_id": requestID,
		"path":       c.Path(),
		"message":    message,
	}).Warn("Unauthorized access")

	return c.Status(fiber.StatusUnauthorized).JSON(response.Envelope{
		Error: message,
		Code:  "UNAUTHORIZED",
	})
}

func (h *ErrorHandler) HandleForbidden(c *fiber.Ctx, requestID string, message string) error {
	h.logger.WithFields(log.Fields{
		"request_id": requestID,
		"path":       c.Path(),
		"message":    message,
	}).Warn("Forbidden access")

	return c.Status(fiber.StatusForbidden).JSON(response.Envelope{
		Error: message,
		Code:  "FORBIDDEN",
	})
}

func (h *ErrorHandler) HandleSuccess(c *fiber.Ctx, statusCode int, data interface{}) error {
	if data == nil {
		return c.SendStatus(statusCode)
	}
	return c.Status(statusCode).JSON(data)
}
