package responder

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/lvyanru/chatctl/internal/config"
	"github.com/lvyanru/chatctl/internal/domain"
	"github.com/lvyanru/chatctl/internal/domain/entity"
)

// echo answers every message with prefix + message, cut into fixed-size byte
// chunks. Chunk boundaries ignore rune boundaries, so multi-byte characters
// regularly arrive split across chunks.
type echo struct {
	prefix    string
	chunkSize int
	delay     time.Duration
	logger    *zap.Logger
}

// NewEcho creates the canned responder
func NewEcho(cfg config.ResponderConfig, logger *zap.Logger) domain.Responder {
	size := cfg.ChunkSize
	if size <= 0 {
		size = 8
	}
	return &echo{
		prefix:    cfg.Prefix,
		chunkSize: size,
		delay:     cfg.ChunkDelay,
		logger:    logger,
	}
}

// Reply streams the echoed text
func (e *echo) Reply(ctx context.Context, message string) (<-chan entity.StreamChunk, error) {
	text := e.prefix + message
	out := make(chan entity.StreamChunk, 16)

	go func() {
		defer close(out)

		for start := 0; start < len(text); start += e.chunkSize {
			end := min(start+e.chunkSize, len(text))
			if !e.send(ctx, out, entity.StreamChunk{Text: text[start:end]}) {
				return
			}
			if e.delay > 0 && end < len(text) {
				select {
				case <-time.After(e.delay):
				case <-ctx.Done():
					e.logger.Debug("reply abandoned", zap.Error(ctx.Err()))
					return
				}
			}
		}
		e.send(ctx, out, entity.StreamChunk{IsEnd: true})
	}()

	return out, nil
}

func (e *echo) send(ctx context.Context, out chan<- entity.StreamChunk, chunk entity.StreamChunk) bool {
	select {
	case out <- chunk:
		return true
	case <-ctx.Done():
		return false
	}
}
