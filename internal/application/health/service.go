package health

import (
	"context"
	"time"

	corehealth "simpleit/simpledfe_core/internal/core/health"
)

// Metadata identifies the running binary in health responses.
type Metadata struct {
	Service     string
	Version     string
	Environment string
}

// Service answers availability probes.
type Service struct {
	meta      Metadata
	startedAt time.Time
	now       func() time.Time
}

func NewService(meta Metadata) *Service {
	now := time.Now().UTC
	return &Service{meta: meta, startedAt: now(), now: now}
}

// Status reports the service as up along with its uptime. Reaching this
// code at all means the HTTP stack is serving.
func (s *Service) Status(_ context.Context) corehealth.Status {
	uptime := s.now().Sub(s.startedAt)
	return corehealth.Status{
		Service:     s.meta.Service,
		Version:     s.meta.Version,
		Environment: s.meta.Environment,
		Status:      "UP",
		StartedAt:   s.startedAt,
		Uptime:      uptime.String(),
		UptimeSecs:  int64(uptime.Seconds()),
	}
}
