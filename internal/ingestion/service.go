// Package ingestion accepts invoice lifecycle events over HTTP.
package ingestion

import (
	"github.com/aevon-lab/revenue-engine/internal/aggregation"
	"github.com/aevon-lab/revenue-engine/internal/feed/codec"
	"github.com/gin-gonic/gin"
)

type Service struct {
	applier          aggregation.Applier
	codecs           *codec.Registry
	maxBodySizeBytes int
}

func NewService(applier aggregation.Applier, codecs *codec.Registry, maxBodySizeMB int) *Service {
	if applier == nil {
		panic("ingestion: applier must not be nil")
	}
	if codecs == nil {
		panic("ingestion: codecs must not be nil")
	}
	if maxBodySizeMB <= 0 {
		maxBodySizeMB = 1 // default to 1MB
	}
	return &Service{
		applier:          applier,
		codecs:           codecs,
		maxBodySizeBytes: maxBodySizeMB * 1024 * 1024,
	}
}

// RegisterRoutes registers the ingestion routes.
func (s *Service) RegisterRoutes(r gin.IRouter) {
	r.POST("/v1/invoice-events", s.IngestHandler)
}
