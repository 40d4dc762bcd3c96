package middleware

import (
	"ProctorGuard/pkg/handlerUtil"
	jwtPkg "ProctorGuard/pkg/jwt"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
)

const (
	AccessTokenSecret = jwtPkg.AccessTokenSecret

	msgUnauthorized = "Unauthorized, access token invalid or expired"
	msgForbidden    = "Examiner access required"
)

func (m *middleware) NewTokenMiddleware(ctx *fiber.Ctx) error {
	requestID := m.GetRequestID(ctx)

	userToken, err := jwtPkg.VerifyTokenHeader(ctx, AccessTokenSecret)
	if err != nil {
		m.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"path":       ctx.Path(),
			"client_ip":  ctx.IP(),
			"error":      err.Error(),
		}).Warn("Token verification failed")
		return handlerUtil.New(m.log).HandleUnauthorized(ctx, requestID, msgUnauthorized)
	}

	claims, ok := userToken.Claims.(jwt.MapClaims)
	if !ok {
		m.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      "Invalid token claims",
		}).Warn("Token claims check")
		return handlerUtil.New(m.log).HandleUnauthorized(ctx, requestID, msgUnauthorized)
	}

	user, err := jwtPkg.UserFromClaims(claims)
	if err != nil {
		m.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Warn("Token claims check")
		return handlerUtil.New(m.log).HandleUnauthorized(ctx, requestID, msgUnauthorized)
	}

	ctx.Locals("user", user)

	m.log.WithFields(logrus.Fields{
		"request_id": requestID,
		"user_id":    user.ID,
		"role":       user.Role,
	}).Debug("Authentication successful")
	return ctx.Next()
}

// NewExaminerMiddleware must run after NewTokenMiddleware.
func (m *middleware) NewExaminerMiddleware(ctx *fiber.Ctx) error {
	requestID := m.GetRequestID(ctx)
	errHandler := handlerUtil.New(m.log)

	user, err := jwtPkg.GetUserLoginData(ctx)
	if err != nil {
		return errHandler.HandleUnauthorized(ctx, requestID, msgUnauthorized)
	}

	if !user.IsExaminer() {
		m.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"user_id":    user.ID,
			"role":       user.Role,
		}).Debug("Examiner role required")
		return errHandler.HandleForbidden(ctx, requestID, msgForbidden)
	}

	return ctx.Next()
}
