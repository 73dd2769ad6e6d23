// Package backup copies generated artifacts to local storage so results stay
// available after the provider's links expire.
package backup

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"stylegen/internal/artifact"
	"stylegen/internal/background"
	"stylegen/internal/infra"
)

// Writer is the subset of storage.FileStore the sink needs.
type Writer interface {
	WriteReader(ctx context.Context, key string, r io.Reader) (string, error)
}

type Options struct {
	Store      Writer
	Supervisor *background.Supervisor
	HTTPClient *http.Client
	Logger     *infra.Logger
	Now        func() time.Time
	// SeenTTL is how long a captured URL is remembered for deduplication.
	SeenTTL time.Duration
}

// Sink downloads artifacts named by payloads. Every capture runs on the
// supervisor; failures are logged and never reach the caller.
type Sink struct {
	store      Writer
	supervisor *background.Supervisor
	http       *http.Client
	logger     *infra.Logger
	now        func() time.Time
	seen       *gocache.Cache
}

func NewSink(opts Options) *Sink {
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 60 * time.Second}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.SeenTTL <= 0 {
		opts.SeenTTL = time.Hour
	}
	if opts.Supervisor == nil {
		opts.Supervisor = background.New(opts.Logger)
	}
	return &Sink{
		store:      opts.Store,
		supervisor: opts.Supervisor,
		http:       opts.HTTPClient,
		logger:     infra.Component(opts.Logger, "backup"),
		now:        opts.Now,
		seen:       gocache.New(opts.SeenTTL, 2*opts.SeenTTL),
	}
}

// Capture schedules a backup of every new artifact URL in payload and returns
// how many were scheduled.
func (s *Sink) Capture(ctx context.Context, payload any) int {
	if s == nil || s.store == nil {
		return 0
	}
	urls := artifact.URLs(payload)
	if len(urls) == 0 {
		return 0
	}
	group := artifact.TaskID(payload)
	if group == "" {
		group = "adhoc"
	}
	prefix := fmt.Sprintf("backups/%s/%s", s.now().UTC().Format("2006-01-02"), sanitizeSegment(group))

	scheduled := 0
	for _, u := range urls {
		// Add fails when the key is already present.
		if err := s.seen.Add(u, struct{}{}, gocache.DefaultExpiration); err != nil {
			continue
		}
		scheduled++
		key := fmt.Sprintf("%s-%s", prefix, digest(u))
		s.supervisor.Go(ctx, "backup", func(bg context.Context) error {
			stored, err := s.save(bg, key, u)
			if err != nil {
				s.seen.Delete(u)
				return err
			}
			s.logger.Info().Str("key", stored).Msg("artifact backed up")
			return nil
		})
	}
	return scheduled
}

func (s *Sink) save(ctx context.Context, key, u string) (string, error) {
	if strings.HasPrefix(u, "data:") {
		mediaType, data, err := decodeDataURL(u)
		if err != nil {
			return "", err
		}
		return s.store.WriteReader(ctx, key+extension(mediaType), bytes.NewReader(data))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", fmt.Errorf("backup: build request: %w", err)
	}
	resp, err := s.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("backup: download: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("backup: download status %d", resp.StatusCode)
	}
	return s.store.WriteReader(ctx, key+extension(resp.Header.Get("Content-Type")), resp.Body)
}

func decodeDataURL(u string) (string, []byte, error) {
	header, payload, ok := strings.Cut(strings.TrimPrefix(u, "data:"), ",")
	if !ok {
		return "", nil, fmt.Errorf("backup: malformed data url")
	}
	mediaType := strings.TrimSuffix(header, ";base64")
	if !strings.HasSuffix(header, ";base64") {
		return mediaType, []byte(payload), nil
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("backup: decode data url: %w", err)
	}
	return mediaType, data, nil
}

func extension(contentType string) string {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return ".bin"
	}
	switch mediaType {
	case "image/png":
		return ".png"
	case "image/jpeg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	case "image/gif":
		return ".gif"
	}
	if exts, _ := mime.ExtensionsByType(mediaType); len(exts) > 0 {
		return exts[0]
	}
	return ".bin"
}

func digest(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:6])
}

func sanitizeSegment(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	if b.Len() == 0 {
		return "adhoc"
	}
	return b.String()
}
