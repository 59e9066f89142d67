// Package mock provides a scripted [stt.Provider] implementation for tests.
package mock

import (
	"context"
	"sync"

	"github.com/accentor-ai/accentor/pkg/provider/stt"
)

// Provider is a scripted STT provider double. Configure the exported fields
// before use; all methods are safe for concurrent use.
type Provider struct {
	mu sync.Mutex

	// Transcript is returned by every Transcribe call when Err is nil.
	Transcript stt.Transcript

	// Err, when non-nil, is returned by every Transcribe call.
	Err error

	// Delay, when non-nil, is waited on before responding, so tests can
	// exercise context timeouts. The channel is selected against ctx.Done().
	Delay <-chan struct{}

	// Calls records the audio length and config of every invocation.
	Calls []Call
}

// Call records one Transcribe invocation.
type Call struct {
	AudioLen int
	Config   stt.Config
}

// Compile-time interface check.
var _ stt.Provider = (*Provider)(nil)

// Transcribe implements [stt.Provider].
func (p *Provider) Transcribe(ctx context.Context, audio []byte, cfg stt.Config) (stt.Transcript, error) {
	p.mu.Lock()
	p.Calls = append(p.Calls, Call{AudioLen: len(audio), Config: cfg})
	delay := p.Delay
	tr, err := p.Transcript, p.Err
	p.mu.Unlock()

	if delay != nil {
		select {
		case <-delay:
		case <-ctx.Done():
			return stt.Transcript{}, ctx.Err()
		}
	}

	if err != nil {
		return stt.Transcript{}, err
	}
	return tr, nil
}
