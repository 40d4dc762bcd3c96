package proctorHandler

import (
	proctoring "ProctorGuard/internal/api/proctor"
	contextPkg "ProctorGuard/pkg/context"
	"ProctorGuard/pkg/handlerUtil"
	"ProctorGuard/pkg/log"
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
)

// AnalyzeFrame accepts either a multipart "image" file with an exam_id form
// field or a JSON body carrying image_base64.
func (h *ProctorHandler) AnalyzeFrame(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx), 10*time.Second)
	defer cancel()

	errHandler := handlerUtil.New(h.log)

	h.log.WithFields(log.Fields{
		"request_id": requestID,
		"path":       ctx.Path(),
	}).Debug("Processing analyze frame request")

	var examID string
	var image []byte

	file, err := ctx.FormFile("image")
	if err == nil {
		examID = strings.TrimSpace(ctx.FormValue("exam_id"))
		if examID == "" {
			return errHandler.HandleValidationError(ctx, requestID, errors.New("exam_id is required"), ctx.Path())
		}

		if err := h.utils.ValidateImageFile(file); err != nil {
			return errHandler.Handle(ctx, requestID, err, ctx.Path(), "validate_image_file")
		}

		image, err = h.utils.ReadFormFile(file)
		if err != nil {
			return errHandler.Handle(ctx, requestID, err, ctx.Path(), "read_image_file")
		}
	} else {
		var req proctoring.AnalyzeRequest
		if err := ctx.BodyParser(&req); err != nil {
			return errHandler.Handle(ctx, requestID, proctoring.ErrMissingImage, ctx.Path(), "parse_request_body")
		}

		if err := h.validator.Struct(req); err != nil {
			return errHandler.HandleValidationError(ctx, requestID, err, ctx.Path())
		}

		examID = req.ExamID
		image, err = h.utils.DecodeBase64Image(req.ImageBase64)
		if err != nil {
			return errHandler.Handle(ctx, requestID, err, ctx.Path(), "decode_base64_image")
		}
	}

	// Once the service returns, its events are stored; the deadline is
	// enforced inside the service before recording.
	result, err := h.proctorService.AnalyzeFrame(c, examID, image)
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "analyze_frame")
	}

	return errHandler.HandleSuccess(ctx, fiber.StatusOK, result)
}

func (h *ProctorHandler) LogViolation(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx), 10*time.Second)
	defer cancel()

	errHandler := handlerUtil.New(h.log)

	var req proctoring.CreateViolationRequest
	if err := ctx.BodyParser(&req); err != nil {
		return errHandler.HandleValidationError(ctx, requestID, err, ctx.Path())
	}

	if err := h.validator.Struct(req); err != nil {
		return errHandler.HandleValidationError(ctx, requestID, err, ctx.Path())
	}

	result, err := h.proctorService.LogViolation(c, req)
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "log_violation")
	}

	return errHandler.HandleSuccess(ctx, fiber.StatusCreated, result)
}

func (h *ProctorHandler) GetViolations(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx), 10*time.Second)
	defer cancel()

	errHandler := handlerUtil.New(h.log)

	examID := ctx.Params("exam_id")
	if examID == "" {
		return errHandler.HandleValidationError(ctx, requestID, errors.New("exam_id is required"), ctx.Path())
	}

	result, err := h.proctorService.GetViolations(c, examID)
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "get_violations")
	}

	select {
	case <-c.Done():
		return errHandler.HandleRequestTimeout(ctx)
	default:
		return errHandler.HandleSuccess(ctx, fiber.StatusOK, result)
	}
}

func (h *ProctorHandler) GetLiveStatus(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx), 5*time.Second)
	defer cancel()

	errHandler := handlerUtil.New(h.log)

	result, err := h.proctorService.GetLiveStatus(c, ctx.Params("exam_id"))
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "get_live_status")
	}

	select {
	case <-c.Done():
		return errHandler.HandleRequestTimeout(ctx)
	default:
		return errHandler.HandleSuccess(ctx, fiber.StatusOK, result)
	}
}

func (h *ProctorHandler) GetCatalogue(ctx *fiber.Ctx) error {
	errHandler := handlerUtil.New(h.log)
	return errHandler.HandleSuccess(ctx, fiber.StatusOK, h.proctorService.GetCatalogue(contextPkg.FromFiberCtx(ctx)))
}

func (h *ProctorHandler) UpdateCatalogue(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx), 5*time.Second)
	defer cancel()

	errHandler := handlerUtil.New(h.log)

	var req proctoring.UpdateCatalogueRequest
	if err := ctx.BodyParser(&req); err != nil {
		return errHandler.HandleValidationError(ctx, requestID, err, ctx.Path())
	}

	if err := h.validator.Struct(req); err != nil {
		return errHandler.HandleValidationError(ctx, requestID, err, ctx.Path())
	}

	result, err := h.proctorService.UpdateCatalogue(c, req)
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "update_catalogue")
	}

	return errHandler.HandleSuccess(ctx, fiber.StatusOK, result)
}
