package proctor

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"
)

type ObjectSignalDetector struct {
	model        ObjectModel
	catalogue    *CatalogueStore
	defaultFloor float64
	log          *logrus.Logger
}

func NewObjectSignalDetector(model ObjectModel, catalogue *CatalogueStore, defaultFloor float64, log *logrus.Logger) *ObjectSignalDetector {
	if model == nil {
		model = NoopObjectModel{}
	}
	return &ObjectSignalDetector{
		model:        model,
		catalogue:    catalogue,
		defaultFloor: defaultFloor,
		log:          log,
	}
}

// Detect never fails: when the model cannot run the frame simply has no
// object signal, and the face and gaze signals carry on without it.
func (d *ObjectSignalDetector) Detect(ctx context.Context, frame Frame) (ObjectObservation, bool) {
	raw, err := d.model.DetectObjects(ctx, frame)
	if err != nil {
		if d.log != nil {
			fields := logrus.Fields{"error": err.Error()}
			if errors.Is(err, ErrModelUnavailable) {
				d.log.WithFields(fields).Warn("Object model unavailable, continuing without object signal")
			} else {
				d.log.WithFields(fields).Error("Object model failed, continuing without object signal")
			}
		}
		return emptyObjectObservation(), false
	}

	return Match(d.catalogue.Load(), raw, d.defaultFloor), true
}

// Match keeps every detection whose label is catalogued and whose confidence
// exceeds its floor, in detection order. Repeated labels are kept.
func Match(catalogue Catalogue, detections []ObjectDetection, defaultFloor float64) ObjectObservation {
	obs := emptyObjectObservation()

	for _, det := range detections {
		entry, ok := catalogue.Lookup(det.Label)
		if !ok {
			continue
		}
		if det.Confidence <= entry.FloorOr(defaultFloor) {
			continue
		}

		label := NormalizeLabel(det.Label)
		obs.Matches = append(obs.Matches, ObjectMatch{
			Label:      label,
			Confidence: det.Confidence,
			Severity:   entry.Severity,
		})
		obs.DetectedItems = append(obs.DetectedItems, label)
		obs.Severity = MaxSeverity(obs.Severity, entry.Severity)
	}

	return obs
}

func emptyObjectObservation() ObjectObservation {
	return ObjectObservation{
		Matches:       []ObjectMatch{},
		DetectedItems: []string{},
		Severity:      SeverityNone,
	}
}
