package notify

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/url"
	"sync/atomic"
	"time"

	"github.com/zishang520/engine.io-client-go/transports"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io-client-go/socket"

	"github.com/specialistvlad/bundlegrid/internal/ctxlog"
	"github.com/specialistvlad/bundlegrid/internal/executor"
)

// SocketIO emits EventBundlesBuilt to a socket.io server, one short-lived
// connection per batch.
type SocketIO struct {
	URL                string
	Namespace          string
	Timeout            time.Duration
	InsecureSkipVerify bool
}

// NewSocketIO creates a notifier for rawURL, e.g. "http://localhost:3000/socket.io/".
func NewSocketIO(rawURL string) *SocketIO {
	return &SocketIO{URL: rawURL, Namespace: "/", Timeout: DefaultTimeout}
}

// Notify connects, emits the batch payload and disconnects.
func (s *SocketIO) Notify(ctx context.Context, b *executor.Batch) error {
	logger := ctxlog.FromContext(ctx).With("notifier", "socketio", "url", s.URL, "batch", b.ID)

	parsedURL, err := url.Parse(s.URL)
	if err != nil {
		return fmt.Errorf("failed to parse notify URL: %w", err)
	}
	if parsedURL.Scheme == "" || parsedURL.Host == "" {
		return fmt.Errorf("notify URL %q must include scheme and host", s.URL)
	}

	timeout := s.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	opCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	baseURL := fmt.Sprintf("%s://%s", parsedURL.Scheme, parsedURL.Host)
	opts := socket.DefaultOptions()
	if parsedURL.Path != "" {
		opts.SetPath(parsedURL.Path)
	}
	if s.InsecureSkipVerify {
		logger.Warn("Skipping TLS certificate verification")
		opts.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true})
	}
	opts.SetTransports(types.NewSet(transports.WebSocket))
	opts.SetReconnection(false)

	manager := socket.NewManager(baseURL, opts)
	io := manager.Socket(s.Namespace, opts)
	defer func() {
		logger.Debug("Disconnecting socket client")
		io.Disconnect()
	}()

	var isConnected atomic.Bool
	done := make(chan error, 1)
	payload := NewPayload(b)

	io.On(types.EventName("connect"), func(...any) {
		isConnected.Store(true)
		logger.Debug("Connected, emitting event.", "event", EventBundlesBuilt, "artifacts", len(payload.Artifacts))
		err := io.Emit(EventBundlesBuilt, payload.AsMap())
		select {
		case done <- err:
		default:
		}
	})
	io.On(types.EventName("connect_error"), func(errs ...any) {
		err := errors.New("connect error")
		if len(errs) > 0 {
			if e, ok := errs[0].(error); ok {
				err = e
			}
		}
		select {
		case done <- err:
		default:
		}
	})

	io.Connect()

	select {
	case <-opCtx.Done():
		if isConnected.Load() {
			return fmt.Errorf("timed out after connecting to %s", s.URL)
		}
		return fmt.Errorf("timed out connecting to %s", s.URL)
	case err := <-done:
		if err != nil {
			return fmt.Errorf("notify %s: %w", s.URL, err)
		}
		logger.Info("📣 Listeners notified", "event", EventBundlesBuilt)
		return nil
	}
}
