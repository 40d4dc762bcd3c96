package proctorService

import "sync/atomic"

type streamCounter struct {
	n atomic.Int64
}

func (s *proctorService) StreamOpened() {
	s.metrics.SetActiveStreams(int(s.streams.n.Add(1)))
}

func (s *proctorService) StreamClosed() {
	s.metrics.SetActiveStreams(int(s.streams.n.Add(-1)))
}
