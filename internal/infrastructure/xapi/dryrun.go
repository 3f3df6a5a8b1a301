package xapi

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"NewsPoster/internal/ports"
	"NewsPoster/pkg/logger"
)

// DryRunPublisher satisfies ports.Publisher without touching the network.
// It returns synthetic post identifiers and writes a transcript of what
// would have been posted, so a dry run still exercises the full recording
// path.
type DryRunPublisher struct {
	transcript logger.Printer
}

var _ ports.Publisher = (*DryRunPublisher)(nil)

// NewDryRun builds the no-op publisher.
func NewDryRun() *DryRunPublisher {
	return &DryRunPublisher{transcript: logger.New("dry-run")}
}

// Publish logs the would-be post and returns a synthetic identifier.
func (p *DryRunPublisher) Publish(_ context.Context, req ports.PublishRequest) (string, error) {
	id := "dry-" + uuid.NewString()
	media := ""
	if req.MediaHandle != "" {
		media = fmt.Sprintf(" [media %s]", req.MediaHandle)
	}
	reply := ""
	if req.ReplyTo != "" {
		reply = fmt.Sprintf(" (reply to %s)", req.ReplyTo)
	}
	p.transcript.Printf("would post%s%s: %s", reply, media, req.Text)
	return id, nil
}
