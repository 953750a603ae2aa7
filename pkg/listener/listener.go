package listener

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/cuemby/meshrelay/pkg/log"
	"github.com/cuemby/meshrelay/pkg/metrics"
	"github.com/cuemby/meshrelay/pkg/types"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	// DefaultBufferSize is the largest datagram read in full
	DefaultBufferSize = 2048

	// readErrorBackoff is the pause after an unexpected read error
	readErrorBackoff = time.Second
)

// Config holds listener configuration
type Config struct {
	Addr       string // host:port to bind
	BufferSize int
}

// Listener owns the UDP socket and feeds every datagram through the
// pipeline on a single goroutine, in arrival order.
type Listener struct {
	addr       string
	bufferSize int
	pipeline   *Pipeline
	logger     zerolog.Logger

	mu   sync.Mutex
	conn net.PacketConn
}

// New creates a listener. Call Listen to bind, or Run to bind and serve.
func New(cfg Config, pipeline *Pipeline) *Listener {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = DefaultBufferSize
	}
	return &Listener{
		addr:       cfg.Addr,
		bufferSize: cfg.BufferSize,
		pipeline:   pipeline,
		logger:     log.WithComponent("listener"),
	}
}

// Listen binds the UDP socket. Bind failure is fatal to the relay.
func (l *Listener) Listen() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.conn != nil {
		return fmt.Errorf("listener already bound to %s", l.conn.LocalAddr())
	}

	conn, err := net.ListenPacket("udp", l.addr)
	if err != nil {
		metrics.RegisterComponent(metrics.ComponentListener, false, err.Error())
		return fmt.Errorf("failed to bind UDP listener on %s: %w", l.addr, err)
	}
	l.conn = conn

	metrics.RegisterComponent(metrics.ComponentListener, true, "")
	l.logger.Info().
		Str("address", conn.LocalAddr().String()).
		Int("buffer_size", l.bufferSize).
		Bool("forwarding", l.pipeline.ForwardingEnabled()).
		Msg("UDP listener started")
	return nil
}

// LocalAddr returns the bound address, or nil before Listen
func (l *Listener) LocalAddr() net.Addr {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.conn == nil {
		return nil
	}
	return l.conn.LocalAddr()
}

// Run receives datagrams until ctx is canceled or the listener is closed,
// then returns nil. The socket is always closed on return.
func (l *Listener) Run(ctx context.Context) error {
	if l.LocalAddr() == nil {
		if err := l.Listen(); err != nil {
			return err
		}
	}

	l.mu.Lock()
	conn := l.conn
	l.mu.Unlock()
	defer l.Close()

	// Closing the socket is the only way to unblock ReadFrom
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			l.Close()
		case <-done:
		}
	}()

	buf := make([]byte, l.bufferSize)
	for {
		n, addr, err := conn.ReadFrom(buf)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				l.logger.Info().Msg("UDP listener stopping")
				return nil
			}
			l.logger.Error().Err(err).Msg("UDP read failed")
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(readErrorBackoff):
			}
			continue
		}

		payload := make([]byte, n)
		copy(payload, buf[:n])

		l.pipeline.Process(ctx, &types.InboundPacket{
			ID:         uuid.New().String(),
			Payload:    payload,
			Addr:       addr,
			ReceivedAt: time.Now(),
		})
	}
}

// Close closes the socket. It is safe to call more than once.
func (l *Listener) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.conn == nil {
		return nil
	}

	addr := l.conn.LocalAddr().String()
	err := l.conn.Close()
	l.conn = nil

	metrics.UpdateComponent(metrics.ComponentListener, false, "stopped")
	l.logger.Info().Str("address", addr).Msg("UDP socket closed")
	return err
}
