// Package webhook is the shared HTTP listener of webhook bots. Every bot
// mounts one route keyed by its token and a per-start session; the platform
// proves itself with the secret token header set through setWebhook.
//
// Responses:
//
//   - 200: the body decoded and was handed to the bot, whatever the outcome
//   - 400: the body is not an update
//   - 401: the secret token header does not match
//   - 404: no bot is mounted under the key
//   - 503: the server or the bot is stopping
package webhook

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/YaCodeDev/GoYaTgBot/threadsafemap"
	"github.com/YaCodeDev/GoYaTgBot/yaerrors"
	"github.com/YaCodeDev/GoYaTgBot/yaginmiddleware"
	"github.com/YaCodeDev/GoYaTgBot/yalogger"
	"github.com/YaCodeDev/GoYaTgBot/yatgclient"
)

const (
	DefaultRequestTimeout  = 10 * time.Second
	DefaultShutdownTimeout = 15 * time.Second

	keyParam = "key"
)

// PushHandler receives one decoded update. A returned error with code 503
// is answered with 503; every other outcome is answered with 200.
type PushHandler func(ctx context.Context, raw yatgclient.RawUpdate) yaerrors.Error

type Options struct {
	Host string
	Port uint16

	// CertFile and KeyFile enable TLS. Setting only one of them is an error.
	CertFile string
	KeyFile  string

	// RequestTimeout bounds one push.
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration

	Log yalogger.Logger
}

type route struct {
	secret  string
	handler PushHandler
}

// Server routes pushes to the mounted bots.
type Server struct {
	options  Options
	engine   *gin.Engine
	routes   threadsafemap.ThreadSafeMap[string, route]
	stopping atomic.Bool
	log      yalogger.Logger

	mu       sync.Mutex
	listener net.Listener
}

// NewServer builds a server. Nothing listens until Listen is called.
//
// Example:
//
//	server := webhook.NewServer(webhook.Options{Port: 8443, CertFile: "cert.pem", KeyFile: "key.pem", Log: log})
//	if err := server.Listen(); err != nil {
//		return err
//	}
//
//	go server.Serve(ctx)
func NewServer(options Options) *Server {
	if options.RequestTimeout <= 0 {
		options.RequestTimeout = DefaultRequestTimeout
	}

	if options.ShutdownTimeout <= 0 {
		options.ShutdownTimeout = DefaultShutdownTimeout
	}

	if options.Log == nil {
		options.Log = yalogger.NewBaseLogger(nil).NewLogger()
	}

	server := &Server{
		options: options,
		engine:  gin.New(),
		log:     options.Log,
	}

	secret := yaginmiddleware.NewSecretToken(func(c *gin.Context) (string, bool) {
		route, ok := server.routes.Get(c.Param(keyParam))

		return route.secret, ok
	})

	server.engine.Use(gin.Recovery())
	server.engine.Use(yaginmiddleware.Chain(yaginmiddleware.NewRequestLogger(options.Log))...)
	server.engine.POST("/webhook/:"+keyParam+"/", secret.Handle, server.push)

	return server
}

// Key is the route key of a bot start.
func Key(token string, session string) string {
	return token + "_" + session
}

// PathFor is the URL path of key.
func PathFor(key string) string {
	return "/webhook/" + key + "/"
}

// Mount routes pushes on PathFor(key) to handler. An empty secret disables
// the secret check.
func (s *Server) Mount(key string, secret string, handler PushHandler) (string, yaerrors.Error) {
	var exists bool

	s.routes.Update(key, func(old route, found bool) route {
		exists = found
		if found {
			return old
		}

		return route{secret: secret, handler: handler}
	})

	if exists {
		return "", yaerrors.FromError(http.StatusConflict, ErrRouteExists, "failed to mount webhook")
	}

	return PathFor(key), nil
}

func (s *Server) Unmount(key string) {
	s.routes.Delete(key)
}

// Routes returns the number of mounted bots.
func (s *Server) Routes() int {
	return s.routes.Length()
}

// Handler exposes the router, for tests and for embedding in another server.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Addr returns the bound address, or nil before Listen.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener == nil {
		return nil
	}

	return s.listener.Addr()
}

// Listen loads the TLS key pair and binds the listening socket, so that
// both failures surface before any bot registers its webhook.
func (s *Server) Listen() yaerrors.Error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener != nil {
		return yaerrors.FromError(http.StatusConflict, ErrAlreadyStarted, "failed to listen")
	}

	tlsConfig, tlsErr := s.tlsConfig()
	if tlsErr != nil {
		return tlsErr
	}

	address := net.JoinHostPort(s.options.Host, strconv.Itoa(int(s.options.Port)))

	listener, err := net.Listen("tcp", address)
	if err != nil {
		return yaerrors.FromError(http.StatusInternalServerError, fmt.Errorf("%w: %w", ErrBind, err), address)
	}

	if tlsConfig != nil {
		listener = tls.NewListener(listener, tlsConfig)
	}

	s.listener = listener

	return nil
}

// tlsConfig is nil when TLS is off.
func (s *Server) tlsConfig() (*tls.Config, yaerrors.Error) {
	certFile, keyFile := s.options.CertFile, s.options.KeyFile

	if certFile == "" && keyFile == "" {
		return nil, nil
	}

	if certFile == "" || keyFile == "" {
		return nil, yaerrors.FromError(
			http.StatusInternalServerError,
			ErrTLSKeyPair,
			"both the certificate and the key file are required",
		)
	}

	pair, err := tls.LoadX509KeyPair(certFile, keyFile)
	if err != nil {
		return nil, yaerrors.FromError(
			http.StatusInternalServerError,
			fmt.Errorf("%w: %w", ErrTLSKeyPair, err),
			"failed to load "+certFile,
		)
	}

	return &tls.Config{Certificates: []tls.Certificate{pair}, MinVersion: tls.VersionTLS12}, nil
}

// Serve serves on the bound listener until ctx is done, then shuts down
// gracefully, letting running pushes finish.
func (s *Server) Serve(ctx context.Context) yaerrors.Error {
	s.mu.Lock()
	listener := s.listener
	s.mu.Unlock()

	if listener == nil {
		return yaerrors.FromError(http.StatusInternalServerError, ErrNotListening, "failed to serve")
	}

	server := &http.Server{
		Handler:           s.engine,
		ReadHeaderTimeout: s.options.RequestTimeout,
	}

	done := make(chan struct{})

	go func() {
		defer close(done)

		<-ctx.Done()

		s.stopping.Store(true)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.options.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			s.log.Warnf("webhook server shutdown: %v", err)
		}
	}()

	s.log.Infof("webhook server listening on %s", listener.Addr())

	if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return yaerrors.FromError(http.StatusInternalServerError, err, "webhook server failed")
	}

	<-done

	return nil
}

// ListenAndServe is Listen followed by Serve.
func (s *Server) ListenAndServe(ctx context.Context) yaerrors.Error {
	if err := s.Listen(); err != nil {
		return err
	}

	return s.Serve(ctx)
}

func (s *Server) push(c *gin.Context) {
	log := yaginmiddleware.LoggerFromContext(c, s.log)

	if s.stopping.Load() {
		c.AbortWithStatus(http.StatusServiceUnavailable)

		return
	}

	route, ok := s.routes.Get(c.Param(keyParam))
	if !ok {
		c.AbortWithStatus(http.StatusNotFound)

		return
	}

	body, err := c.GetRawData()
	if err != nil {
		c.AbortWithStatus(http.StatusBadRequest)

		return
	}

	raw, decodeErr := decode(body)
	if decodeErr != nil {
		log.Warnf("rejecting push: %v", decodeErr)
		c.AbortWithStatus(http.StatusBadRequest)

		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), s.options.RequestTimeout)
	defer cancel()

	if err := route.handler(ctx, raw); err != nil {
		if err.Code() == http.StatusServiceUnavailable {
			c.AbortWithStatus(http.StatusServiceUnavailable)

			return
		}

		log.Errorf("update %d: %v", raw.Offset, err)
	}

	c.Status(http.StatusOK)
}

func decode(body []byte) (yatgclient.RawUpdate, yaerrors.Error) {
	var head struct {
		UpdateID *int64 `json:"update_id"`
	}

	if err := json.Unmarshal(body, &head); err != nil {
		return yatgclient.RawUpdate{}, yaerrors.FromError(
			http.StatusBadRequest,
			fmt.Errorf("%w: %w", ErrMalformedBody, err),
			"failed to decode push",
		)
	}

	if head.UpdateID == nil {
		return yatgclient.RawUpdate{}, yaerrors.FromError(
			http.StatusBadRequest,
			ErrMalformedBody,
			"push without update_id",
		)
	}

	return yatgclient.RawUpdate{Offset: *head.UpdateID, Payload: json.RawMessage(body)}, nil
}
