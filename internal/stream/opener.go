package stream

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/url"
	"strings"
	"sync"

	"github.com/akarlsen/craftwatch/internal/model"
	"github.com/akarlsen/craftwatch/internal/throttle"
	"github.com/akarlsen/craftwatch/internal/watch"
)

// Opener builds watch.OpenFunc values for a panel's stream endpoints.
type Opener struct {
	baseURL   string // ws:// or wss:// base; empty disables push entirely
	token     string
	registry  *throttle.Registry
	clientCfg ClientConfig
	logger    *slog.Logger
}

// NewOpener creates an opener rooted at baseURL. An empty baseURL makes
// every open attempt report unsupported, which drops the coordinators
// into pure polling.
func NewOpener(baseURL, token string, registry *throttle.Registry, logger *slog.Logger) *Opener {
	if logger == nil {
		logger = slog.Default()
	}
	return &Opener{
		baseURL:   strings.TrimRight(baseURL, "/"),
		token:     token,
		registry:  registry,
		clientCfg: DefaultClientConfig(),
		logger:    logger,
	}
}

// StatusStream returns the open capability for the status endpoint.
func (o *Opener) StatusStream() watch.OpenFunc[model.StatusSnapshot] {
	return NewOpenFunc[model.StatusSnapshot](o, watch.StatusStreamPath)
}

// PlayersStream returns the open capability for the roster endpoint.
func (o *Opener) PlayersStream() watch.OpenFunc[model.Roster] {
	return NewOpenFunc[model.Roster](o, watch.PlayersStreamPath)
}

// NewOpenFunc builds the open capability for one endpoint path. Payload
// frames are decoded as JSON into T.
func NewOpenFunc[T any](o *Opener, path string) watch.OpenFunc[T] {
	return func(h watch.StreamHandlers[T]) watch.OpenResult {
		if o == nil || o.baseURL == "" {
			return watch.OpenResult{Unsupported: true}
		}

		endpoint := o.baseURL + path
		if d := o.registry.Evaluate(endpoint); !d.Permitted {
			o.logger.Debug("stream attempt throttled",
				"endpoint", endpoint,
				"retry_in", d.Delay,
			)
			return watch.OpenResult{RetryIn: d.Delay}
		}

		s := &session[T]{
			opener:   o,
			endpoint: endpoint,
			done:     make(chan struct{}),
		}
		go s.run(h)
		return watch.OpenResult{Session: s}
	}
}

// WSBaseURL converts a panel's http(s) base URL to its ws(s) equivalent.
// Returns "" for unusable input, which disables push.
func WSBaseURL(httpBase string) string {
	u, err := url.Parse(httpBase)
	if err != nil {
		return ""
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return ""
	}
	return strings.TrimRight(u.String(), "/")
}

// session is one live (or connecting) stream. It implements watch.Session.
type session[T any] struct {
	opener   *Opener
	endpoint string

	done      chan struct{}
	closeOnce sync.Once

	mu     sync.Mutex
	client *Client
}

// Close shuts the session down. Idempotent.
func (s *session[T]) Close() error {
	s.closeOnce.Do(func() {
		close(s.done)
	})

	s.mu.Lock()
	client := s.client
	s.mu.Unlock()
	if client != nil {
		return client.Close()
	}
	return nil
}

// run dials, reports open, then pumps decoded payloads until the
// transport fails or Close is called. Open and close times land in the
// throttle registry either way.
func (s *session[T]) run(h watch.StreamHandlers[T]) {
	cfg := s.opener.clientCfg
	cfg.URL = s.endpoint
	cfg.Token = s.opener.token

	client := NewClient(cfg, s.opener.logger.With("endpoint", s.endpoint))

	s.mu.Lock()
	s.client = client
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.DialTimeout)
	err := client.Connect(ctx)
	cancel()
	if err != nil {
		// Arm the cooldown even for a failed dial so a crashing panel
		// is not hammered across restarts.
		s.opener.registry.RecordClose(s.endpoint)
		select {
		case <-s.done:
		default:
			if h.OnError != nil {
				h.OnError(err)
			}
		}
		return
	}

	select {
	case <-s.done:
		client.Close()
		s.opener.registry.RecordClose(s.endpoint)
		return
	default:
	}

	s.opener.registry.RecordOpen(s.endpoint)
	if h.OnOpen != nil {
		h.OnOpen()
	}

	defer func() {
		client.Close()
		s.opener.registry.RecordClose(s.endpoint)
	}()

	for {
		select {
		case <-s.done:
			return

		case err := <-client.Errors():
			if h.OnError != nil {
				h.OnError(err)
			}
			return

		case msg, ok := <-client.Messages():
			if !ok {
				return
			}
			var v T
			if err := json.Unmarshal(msg.Data, &v); err != nil {
				s.opener.logger.Warn("undecodable stream frame, skipping",
					"endpoint", s.endpoint,
					"err", err,
				)
				continue
			}
			if h.OnData != nil {
				h.OnData(v)
			}
		}
	}
}
