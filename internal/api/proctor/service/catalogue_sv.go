package proctorService

import (
	proctoring "ProctorGuard/internal/api/proctor"
	contextPkg "ProctorGuard/pkg/context"
	"ProctorGuard/pkg/proctor"
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
)

func (s *proctorService) GetCatalogue(ctx context.Context) *proctoring.CatalogueResponse {
	return toCatalogueResponse(s.engine.Catalogue())
}

// UpdateCatalogue replaces the whole catalogue. Frames already being analysed
// finish against the previous one.
func (s *proctorService) UpdateCatalogue(ctx context.Context, req proctoring.UpdateCatalogueRequest) (*proctoring.CatalogueResponse, error) {
	entries := make(map[string]proctor.CatalogueEntry, len(req.Objects))
	for label, entry := range req.Objects {
		severity, err := proctor.ParseSeverity(entry.Severity)
		if err != nil {
			return nil, proctoring.ErrInvalidSeverity
		}
		entries[label] = proctor.CatalogueEntry{Severity: severity, Floor: entry.Floor}
	}

	catalogue, err := proctor.NewCatalogue(entries)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", proctoring.ErrInvalidCatalogue, err)
	}

	if err := s.engine.Reconfigure(catalogue); err != nil {
		return nil, fmt.Errorf("%w: %v", proctoring.ErrInvalidCatalogue, err)
	}

	s.log.WithFields(logrus.Fields{
		"request_id": contextPkg.GetRequestID(ctx),
		"labels":     catalogue.Len(),
	}).Info("Object catalogue updated")

	return toCatalogueResponse(catalogue), nil
}

func toCatalogueResponse(c proctor.Catalogue) *proctoring.CatalogueResponse {
	return &proctoring.CatalogueResponse{
		Objects: c.Entries(),
		Count:   c.Len(),
	}
}
