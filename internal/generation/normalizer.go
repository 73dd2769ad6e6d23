package generation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"stylegen/internal/artifact"
	"stylegen/internal/background"
	"stylegen/internal/domain"
	"stylegen/internal/http/respond"
	"stylegen/internal/infra"
	"stylegen/internal/upstream"
)

// BackupFunc receives each parsed upstream payload that may carry artifacts.
type BackupFunc func(ctx context.Context, payload any)

// Sender issues the upstream draw request.
type Sender interface {
	Send(ctx context.Context, payload upstream.Payload) (*http.Response, error)
}

const (
	maxJSONBody   = 16 << 20
	maxStreamCopy = 64 << 20
	chunkSize     = 32 << 10
)

// Result is the data of a non-stream success envelope.
type Result struct {
	ID       string `json:"id,omitempty"`
	ImageURL string `json:"imageUrl,omitempty"`
	Result   any    `json:"result"`
}

// Normalizer makes one upstream call and answers in the shape the client
// requested.
type Normalizer struct {
	sender     Sender
	supervisor *background.Supervisor
	timeout    time.Duration
	logger     *infra.Logger
}

func NewNormalizer(sender Sender, supervisor *background.Supervisor, timeout time.Duration, logger *infra.Logger) *Normalizer {
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	if supervisor == nil {
		supervisor = background.New(logger)
	}
	return &Normalizer{sender: sender, supervisor: supervisor, timeout: timeout, logger: infra.Component(logger, "stream-normalizer")}
}

// Serve runs req upstream and writes the reply to w. It returns an error only
// when nothing has been written yet; the caller turns it into an envelope.
// Failures after the first byte are logged and end the stream.
//
// The upstream call runs on a context detached from ctx so a stream tee can
// finish after the client disconnects.
func (n *Normalizer) Serve(ctx context.Context, w http.ResponseWriter, req domain.GenerationRequest, backup BackupFunc) error {
	upCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), n.timeout)
	resp, err := n.sender.Send(upCtx, upstream.PayloadFor(req))
	if err != nil {
		cancel()
		return err
	}

	if isJSON(resp.Header.Get("Content-Type")) {
		defer cancel()
		defer resp.Body.Close()
		return n.serveJSON(ctx, w, resp, req.WantsStream, backup)
	}

	if !req.WantsStream {
		defer cancel()
		defer resp.Body.Close()
		raw, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		msg := "upstream returned a stream for a non-stream request: " + strings.TrimSpace(string(raw))
		if err != nil {
			msg += fmt.Sprintf(" (body read failed: %v)", err)
		}
		return &domain.UpstreamError{Status: http.StatusBadGateway, Message: msg}
	}

	if backup == nil {
		defer cancel()
		defer resp.Body.Close()
		n.pipe(ctx, w, resp.Body)
		return nil
	}
	n.tee(ctx, w, resp.Body, cancel, backup)
	return nil
}

func (n *Normalizer) serveJSON(ctx context.Context, w http.ResponseWriter, resp *http.Response, wantsStream bool, backup BackupFunc) error {
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxJSONBody))
	if err != nil {
		return &domain.UpstreamError{Status: http.StatusBadGateway, Message: fmt.Sprintf("read upstream body: %v", err)}
	}
	var payload any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return &domain.UpstreamError{Status: http.StatusBadGateway, Message: "upstream returned malformed JSON"}
	}
	if err := envelopeError(payload); err != nil {
		return err
	}
	if backup != nil {
		backup(ctx, payload)
	}

	if !wantsStream {
		respond.OK(w, Result{
			ID:       artifact.TaskID(payload),
			ImageURL: artifact.First(payload),
			Result:   payload,
		})
		return nil
	}

	WriteStreamHeaders(w)
	if _, err := w.Write(rawFrame(raw)); err != nil {
		n.logger.Warn().Err(err).Msg("client write failed")
		return nil
	}
	if _, err := w.Write(DoneFrame); err != nil {
		n.logger.Warn().Err(err).Msg("client write failed")
	}
	flush(w)
	return nil
}

// pipe forwards upstream bytes to the client as they arrive.
func (n *Normalizer) pipe(ctx context.Context, w http.ResponseWriter, body io.Reader) {
	WriteStreamHeaders(w)
	flush(w)
	buf := make([]byte, chunkSize)
	for {
		nr, rerr := body.Read(buf)
		if nr > 0 {
			if _, werr := w.Write(buf[:nr]); werr != nil {
				n.logger.Debug().Err(werr).Msg("client went away")
				return
			}
			flush(w)
		}
		if rerr == io.EOF {
			return
		}
		if rerr != nil {
			n.logger.Warn().Err(rerr).Msg("upstream stream broke")
			return
		}
		if ctx.Err() != nil {
			return
		}
	}
}

// tee forwards the stream to the client while a supervised task keeps a full
// copy. The task owns the upstream body and finishes reading it even if the
// client leaves; it then hands every parsed frame to backup.
func (n *Normalizer) tee(ctx context.Context, w http.ResponseWriter, body io.ReadCloser, cancel context.CancelFunc, backup BackupFunc) {
	chunks := make(chan []byte, 16)
	gone := make(chan struct{})

	n.supervisor.Go(ctx, "stream-tee", func(bg context.Context) error {
		defer cancel()
		defer body.Close()

		var copyBuf bytes.Buffer
		buf := make([]byte, chunkSize)
		var readErr error
		forwarding := true
		for {
			nr, rerr := body.Read(buf)
			if nr > 0 {
				if copyBuf.Len() < maxStreamCopy {
					copyBuf.Write(buf[:nr])
				}
				if forwarding {
					chunk := append([]byte(nil), buf[:nr]...)
					select {
					case chunks <- chunk:
					case <-gone:
						forwarding = false
					}
				}
			}
			if rerr != nil {
				if rerr != io.EOF {
					readErr = rerr
				}
				break
			}
		}
		close(chunks)

		frames := ParseFrames(copyBuf.String())
		for _, frame := range frames {
			backup(bg, frame)
		}
		if readErr != nil {
			return fmt.Errorf("stream tee: %w", readErr)
		}
		return nil
	})

	WriteStreamHeaders(w)
	flush(w)
	defer close(gone)
	for {
		select {
		case chunk, ok := <-chunks:
			if !ok {
				return
			}
			if _, err := w.Write(chunk); err != nil {
				n.logger.Debug().Err(err).Msg("client went away during tee")
				return
			}
			flush(w)
		case <-ctx.Done():
			return
		}
	}
}

func isJSON(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mediaType == "application/json" || strings.HasSuffix(mediaType, "+json")
}

// envelopeError reports provider replies shaped {"code": non-zero, "msg": ...}
// that arrive with a 2xx status.
func envelopeError(payload any) error {
	m, ok := payload.(map[string]any)
	if !ok {
		return nil
	}
	code, ok := m["code"].(float64)
	if !ok || code == 0 || code == 200 {
		return nil
	}
	msg, _ := m["msg"].(string)
	if msg == "" {
		msg, _ = m["message"].(string)
	}
	if msg == "" {
		msg = fmt.Sprintf("upstream code %v", code)
	}
	return &domain.UpstreamError{Status: http.StatusBadGateway, Message: msg}
}
