package server

import (
	"context"
	"errors"
	"math/rand"
	"net"
	"time"

	"go.uber.org/zap"

	"github.com/peter-kozarec/fixsim/internal/dict"
	"github.com/peter-kozarec/fixsim/internal/engine"
	"github.com/peter-kozarec/fixsim/internal/fix"
	"github.com/peter-kozarec/fixsim/internal/persona"
	"github.com/peter-kozarec/fixsim/internal/session"
)

const readBufferSize = 4096

// Server accepts connections and runs one worker goroutine per session.
// The dictionary registry is the only state shared across workers.
type Server struct {
	logger   *zap.Logger
	registry *dict.Registry
	profile  persona.Profile

	// newSource hands each session its own randomness, rand.Rand is not
	// safe for concurrent use.
	newSource func() engine.Source
}

func New(logger *zap.Logger, registry *dict.Registry, profile persona.Profile) *Server {
	return &Server{
		logger:   logger,
		registry: registry,
		profile:  profile,
		newSource: func() engine.Source {
			return rand.New(rand.NewSource(time.Now().UnixNano()))
		},
	}
}

// Serve blocks until ctx is cancelled or the listener fails.
func (server *Server) Serve(ctx context.Context, lis net.Listener) error {
	go func() {
		<-ctx.Done()
		_ = lis.Close()
	}()

	server.logger.Info("simulator listening", zap.String("addr", lis.Addr().String()))

	for {
		conn, err := lis.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
		go server.handleConn(conn)
	}
}

func (server *Server) handleConn(conn net.Conn) {
	logger := server.logger.With(zap.String("remote", conn.RemoteAddr().String()))
	logger.Info("connection accepted")

	defer func() {
		_ = conn.Close()
		logger.Info("connection released")
	}()

	send := func(msg *fix.Message) error {
		data, err := fix.Encode(msg)
		if err != nil {
			return err
		}
		logger.Info("send", zap.String("msg", msg.String()))
		_, err = conn.Write(data)
		return err
	}

	handler := session.NewHandler(logger, server.registry, server.profile, server.newSource(), send)
	defer handler.Close()

	parser := fix.NewParser()
	buf := make([]byte, readBufferSize)

	for {
		n, err := conn.Read(buf)
		if err != nil {
			logger.Warn("client disconnected", zap.Error(err))
			return
		}
		parser.AppendBuffer(buf[:n])

		for {
			msg, err := parser.Next()
			if err != nil {
				logger.Error("decode failed, closing connection", zap.Error(err))
				return
			}
			if msg == nil {
				break
			}

			logger.Info("recv", zap.String("msg", msg.String()))
			if err := handler.Handle(msg); err != nil {
				if !errors.Is(err, session.ErrClosed) {
					logger.Error("session error", zap.Error(err))
				} else {
					logger.Warn("closing session", zap.Error(err))
				}
				return
			}
		}
	}
}
