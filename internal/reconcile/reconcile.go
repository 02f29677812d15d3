// Package reconcile finalizes a finished interview: tear down live capture
// resources first, then settle captured artifacts into durable storage.
package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/tmarbury/viva/internal/auth"
	"github.com/tmarbury/viva/internal/session"
)

// IdentitySource resolves the signed-in user gating durable upload.
type IdentitySource interface {
	Identity(ctx context.Context) (auth.Identity, bool)
}

// Store is the durable artifact backend.
type Store interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) error
	SignedURL(ctx context.Context, key string) (string, error)
}

// Canceller stops pending snapshot timers.
type Canceller interface {
	CancelAll()
}

// Releaser stops the live media stream.
type Releaser interface {
	Release()
}

// Notifier surfaces user-visible reconciliation notices.
type Notifier interface {
	Notify(ctx context.Context, summary string)
}

// Pipeline implements the finishing flow. Resource teardown is unconditional
// and runs before any storage work, so the camera light goes off even when
// the network is down.
type Pipeline struct {
	logger    *slog.Logger
	identity  IdentitySource
	store     Store
	canceller Canceller
	releaser  Releaser
	notifier  Notifier
	now       func() time.Time
}

// NewPipeline wires the finishing flow. identity, store, and notifier may be
// nil; a nil store behaves like a signed-out user.
func NewPipeline(
	logger *slog.Logger,
	identity IdentitySource,
	store Store,
	canceller Canceller,
	releaser Releaser,
	notifier Notifier,
) *Pipeline {
	return &Pipeline{
		logger:    logger,
		identity:  identity,
		store:     store,
		canceller: canceller,
		releaser:  releaser,
		notifier:  notifier,
		now:       time.Now,
	}
}

// Run executes one reconciliation pass and never fails the session: upload
// problems degrade to fewer (or zero) URLs in the result.
func (p *Pipeline) Run(ctx context.Context, candidate string, artifacts [][]byte) session.FinalResult {
	if p.canceller != nil {
		p.canceller.CancelAll()
	}
	if p.releaser != nil {
		p.releaser.Release()
	}

	if len(artifacts) == 0 {
		return session.FinalResult{}
	}

	var identity auth.Identity
	signedIn := false
	if p.identity != nil {
		identity, signedIn = p.identity.Identity(ctx)
	}
	if !signedIn || p.store == nil {
		p.logInfo("skipping artifact upload", "reason", "not signed in", "artifacts", len(artifacts))
		p.notify(ctx, "Interview photos were kept locally only: sign in to enable durable upload.")
		return session.FinalResult{}
	}

	stamp := p.now().UTC().Format("20060102-150405")
	slug := sanitizeCandidate(candidate)

	var urls []string
	for i, artifact := range artifacts {
		key := fmt.Sprintf("%s/%s-%s-%02d.jpg", identity.ID, slug, stamp, i+1)

		if err := p.store.Upload(ctx, key, artifact, "image/jpeg"); err != nil {
			p.logWarn("artifact upload failed", "key", key, "error", err.Error())
			continue
		}
		url, err := p.store.SignedURL(ctx, key)
		if err != nil {
			p.logWarn("artifact signing failed", "key", key, "error", err.Error())
			continue
		}
		urls = append(urls, url)
	}

	if len(urls) < len(artifacts) {
		p.notify(ctx, fmt.Sprintf("Uploaded %d of %d interview photos.", len(urls), len(artifacts)))
	}

	result := session.FinalResult{ArtifactURLs: urls}
	if len(urls) > 0 {
		result.DurableArtifactURL = urls[0]
	}
	return result
}

// sanitizeCandidate turns a display name into a storage-key-safe slug.
func sanitizeCandidate(candidate string) string {
	var b strings.Builder
	lastDash := true
	for _, r := range strings.ToLower(strings.TrimSpace(candidate)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	slug := strings.TrimRight(b.String(), "-")
	if slug == "" {
		return "candidate"
	}
	return slug
}

func (p *Pipeline) notify(ctx context.Context, summary string) {
	if p.notifier == nil {
		return
	}
	p.notifier.Notify(ctx, summary)
}

func (p *Pipeline) logInfo(message string, args ...any) {
	if p.logger == nil {
		return
	}
	p.logger.Info(message, args...)
}

func (p *Pipeline) logWarn(message string, args ...any) {
	if p.logger == nil {
		return
	}
	p.logger.Warn(message, args...)
}
