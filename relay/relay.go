// Package relay provides the chat relay between the Smart Guide client and the
// upstream chat completions gateway.
package relay

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"sync/atomic"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/smartguide/smartguide/pkg/llm"
)

const allowedHeaders = "authorization, x-client-info, apikey, content-type"

// Relay is a stateless chat relay. Each request prepends the system prompt to
// the caller's turns, forwards them to the upstream gateway with streaming
// enabled and pipes the event stream back unmodified.
type Relay struct {
	config     Config
	apiKey     atomic.Pointer[string]
	systemTurn json.RawMessage
	logger     *zap.Logger
	httpClient *http.Client
	server     *fiber.App
}

// chatPayload is the inbound request body. Turns stay raw so they reach the
// gateway exactly as the caller sent them.
type chatPayload struct {
	Messages []json.RawMessage `json:"messages"`
}

// New creates a new Relay.
func New(config Config, logger *zap.Logger) (*Relay, error) {
	config = config.withDefaults()
	if _, err := url.ParseRequestURI(config.UpstreamURL); err != nil {
		return nil, fmt.Errorf("invalid upstream URL %q: %w", config.UpstreamURL, err)
	}

	systemTurn, err := json.Marshal(llm.Message{Role: llm.RoleSystem, Content: SystemPrompt})
	if err != nil {
		return nil, fmt.Errorf("failed to encode system turn: %w", err)
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	r := &Relay{
		config:     config,
		systemTurn: systemTurn,
		logger:     logger,
		server:     app,
		httpClient: &http.Client{
			Transport: &http.Transport{
				Proxy:                 http.ProxyFromEnvironment,
				ResponseHeaderTimeout: config.HeaderTimeout,
			},
		},
	}
	r.SetAPIKey(config.APIKey)

	// Browsers only need the headers when they send Origin, but every
	// response carries them regardless.
	app.Use(func(c *fiber.Ctx) error {
		c.Set(fiber.HeaderAccessControlAllowOrigin, "*")
		c.Set(fiber.HeaderAccessControlAllowHeaders, allowedHeaders)
		return c.Next()
	})
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "POST,OPTIONS",
		AllowHeaders: allowedHeaders,
	}))

	app.Options("/chat", r.handlePreflight)
	app.Post("/chat", r.handleChat)

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(map[string]string{"status": "ok"})
	})

	return r, nil
}

// Run starts the relay server on the configured listening address.
func (r *Relay) Run() error {
	r.logger.Info("starting relay server",
		zap.String("listen", r.config.ListenAddr),
		zap.String("upstream", r.config.UpstreamURL),
		zap.String("model", r.config.Model),
	)

	return r.server.Listen(r.config.ListenAddr)
}

// RunWithListener serves the relay on an existing listener.
func (r *Relay) RunWithListener(ln net.Listener) error {
	r.logger.Info("starting relay server",
		zap.String("listen", ln.Addr().String()),
		zap.String("upstream", r.config.UpstreamURL),
	)

	return r.server.Listener(ln)
}

// Shutdown stops the server, waiting for active requests to finish.
func (r *Relay) Shutdown() error {
	return r.server.Shutdown()
}

// SetAPIKey replaces the upstream credential used by subsequent requests.
func (r *Relay) SetAPIKey(key string) {
	r.apiKey.Store(&key)
}

// APIKey returns the current upstream credential.
func (r *Relay) APIKey() string {
	if k := r.apiKey.Load(); k != nil {
		return *k
	}
	return ""
}

// handlePreflight answers CORS pre-flights that the cors middleware leaves to
// the router, i.e. those without an Origin header.
func (r *Relay) handlePreflight(c *fiber.Ctx) error {
	c.Set(fiber.HeaderAccessControlAllowOrigin, "*")
	c.Set(fiber.HeaderAccessControlAllowHeaders, allowedHeaders)
	return c.SendStatus(fiber.StatusNoContent)
}

// handleChat relays one conversation to the upstream gateway. A successful
// upstream response is streamed back byte for byte; failures are mapped to a
// JSON error body and never mixed with stream output.
func (r *Relay) handleChat(c *fiber.Ctx) error {
	startTime := time.Now()

	var payload chatPayload
	if err := json.Unmarshal(c.Body(), &payload); err != nil {
		return r.fail(c, &Error{Kind: KindNetworkOrParse, Err: err})
	}

	apiKey := r.APIKey()
	if apiKey == "" {
		r.logger.Error("upstream credential is not configured")
		return r.fail(c, &Error{Kind: KindConfiguration})
	}

	r.logger.Info("calling upstream gateway",
		zap.Int("message_count", len(payload.Messages)),
		zap.String("model", r.config.Model),
	)

	ctx, cancel := context.WithTimeout(context.Background(), r.config.UpstreamTimeout)
	resp, err := r.forward(ctx, apiKey, payload.Messages)
	if err != nil {
		cancel()
		return r.fail(c, err)
	}

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")

	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		defer cancel()
		defer resp.Body.Close()

		n, err := pipe(w, resp.Body)
		if err != nil {
			r.logger.Warn("stream relay ended early",
				zap.Int64("bytes", n),
				zap.Duration("duration", time.Since(startTime)),
				zap.Error(err),
			)
			return
		}

		r.logger.Debug("stream relay complete",
			zap.Int64("bytes", n),
			zap.Duration("duration", time.Since(startTime)),
		)
	}))

	return nil
}

// forward sends the conversation upstream. The returned response has a 2xx
// status and its body must be closed by the caller.
func (r *Relay) forward(ctx context.Context, apiKey string, turns []json.RawMessage) (*http.Response, error) {
	messages := make([]json.RawMessage, 0, len(turns)+1)
	messages = append(messages, r.systemTurn)
	messages = append(messages, turns...)

	reqBody, err := json.Marshal(llm.ChatRequest{
		Model:    r.config.Model,
		Messages: messages,
		Stream:   true,
	})
	if err != nil {
		return nil, &Error{Kind: KindNetworkOrParse, Err: fmt.Errorf("marshal request: %w", err)}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, r.config.UpstreamURL, bytes.NewReader(reqBody))
	if err != nil {
		return nil, &Error{Kind: KindNetworkOrParse, Err: fmt.Errorf("create request: %w", err)}
	}
	httpReq.Header.Set("Authorization", "Bearer "+apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := r.httpClient.Do(httpReq)
	if err != nil {
		return nil, &Error{Kind: KindNetworkOrParse, Err: err}
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		defer httpResp.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(httpResp.Body, 4096))
		r.logger.Error("upstream gateway error",
			zap.Int("status", httpResp.StatusCode),
			zap.String("body", string(body)),
		)
		return nil, classifyStatus(httpResp.StatusCode)
	}

	return httpResp, nil
}

func (r *Relay) fail(c *fiber.Ctx, err error) error {
	var relayErr *Error
	if !errors.As(err, &relayErr) {
		relayErr = &Error{Kind: KindNetworkOrParse, Err: err}
	}
	if relayErr.Kind == KindNetworkOrParse {
		r.logger.Error("chat request failed", zap.Error(relayErr))
	}

	return c.Status(relayErr.StatusCode()).JSON(llm.ErrorResponse{Error: relayErr.Message()})
}

// pipe copies src to w, flushing after every read so the caller sees each
// upstream chunk as soon as it arrives.
func pipe(w *bufio.Writer, src io.Reader) (int64, error) {
	buf := make([]byte, 32*1024)
	var total int64

	for {
		n, err := src.Read(buf)
		if n > 0 {
			if _, werr := w.Write(buf[:n]); werr != nil {
				return total, werr
			}
			if werr := w.Flush(); werr != nil {
				return total, werr
			}
			total += int64(n)
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return total, nil
			}
			return total, err
		}
	}
}
