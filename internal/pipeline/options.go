package pipeline

import (
	"github.com/hyperjump/kotae/pkg/utils"
	"go.uber.org/zap"
)

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) {
		s.logger = utils.OrNop(logger)
	}
}
