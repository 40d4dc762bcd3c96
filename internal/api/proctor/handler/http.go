package proctorHandler

import (
	proctorService "ProctorGuard/internal/api/proctor/service"
	"ProctorGuard/internal/middleware"
	"ProctorGuard/pkg/utils"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/sirupsen/logrus"
)

type ProctorHandler struct {
	log            *logrus.Logger
	validator      *validator.Validate
	middleware     middleware.Middleware
	proctorService proctorService.IProctorService
	utils          utils.IUtils
}

func New(
	log *logrus.Logger,
	validator *validator.Validate,
	middleware middleware.Middleware,
	ps proctorService.IProctorService,
	utils utils.IUtils,
) *ProctorHandler {
	return &ProctorHandler{
		log:            log,
		validator:      validator,
		middleware:     middleware,
		proctorService: ps,
		utils:          utils,
	}
}

func (h *ProctorHandler) Start(srv fiber.Router) {
	wsMiddleware := func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			c.Locals("exam_id", c.Query("exam_id"))
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	}

	proctor := srv.Group("/proctor")

	// Exam clients
	proctor.Post("/analyze", h.middleware.NewRateLimiter, h.AnalyzeFrame)
	proctor.Post("/violations", h.middleware.NewRateLimiter, h.LogViolation)
	proctor.Use("/ws", wsMiddleware)
	proctor.Get("/ws", websocket.New(h.handleFrameStream))

	// Examiners
	examiner := []fiber.Handler{h.middleware.NewTokenMiddleware, h.middleware.NewExaminerMiddleware}
	proctor.Get("/violations/:exam_id", append(examiner, h.GetViolations)...)
	proctor.Get("/sessions/:exam_id/live", append(examiner, h.GetLiveStatus)...)
	proctor.Get("/catalogue", append(examiner, h.GetCatalogue)...)
	proctor.Put("/catalogue", append(examiner, h.UpdateCatalogue)...)
}
