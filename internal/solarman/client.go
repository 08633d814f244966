// Package solarman implements reading Modbus holding registers through a
// Solarman V5 data logger.
package solarman

import (
	"context"
	"encoding/binary"
	"io"
	"math/rand"
	"net"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/aldas/go-modbus-client/packet"
	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog/log"

	exporter "github.com/a-tho/sunexporter/internal"
)

const (
	DefaultPort    = 8899
	DefaultUnitID  = 1
	DefaultTimeout = 10 * time.Second

	// frames the logger sends on its own (heartbeats etc.) before answering
	maxSkippedFrames = 4
)

// Config describes how to reach the logger.
type Config struct {
	Host          string
	Port          int
	Serial        uint32
	UnitID        uint8
	Timeout       time.Duration
	AutoReconnect bool
}

// Client talks to a single logger over TCP. Requests are serialized.
type Client struct {
	addr          string
	serial        uint32
	unitID        uint8
	timeout       time.Duration
	autoReconnect bool

	m      sync.Mutex
	conn   net.Conn
	dialed bool
	seq    uint16
}

// New returns a client for cfg. The connection is established on the first
// read.
func New(cfg Config) *Client {
	if cfg.Port == 0 {
		cfg.Port = DefaultPort
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Client{
		addr:          net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		serial:        cfg.Serial,
		unitID:        cfg.UnitID,
		timeout:       cfg.Timeout,
		autoReconnect: cfg.AutoReconnect,
		seq:           uint16(rand.Intn(256)),
	}
}

// ReadHoldingRegisters reads count registers starting at address and returns
// them as unsigned values. Errors caused by a missing or dropped connection
// are marked with exporter.ErrNoSocket.
func (c *Client) ReadHoldingRegisters(ctx context.Context, address, count uint16) ([]int, error) {
	req, err := packet.NewReadHoldingRegistersRequestRTU(c.unitID, address, count)
	if err != nil {
		return nil, errors.Wrap(err, "build modbus request")
	}

	c.m.Lock()
	defer c.m.Unlock()

	conn, err := c.connect(ctx)
	if err != nil {
		return nil, err
	}

	deadline := time.Now().Add(c.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := conn.SetDeadline(deadline); err != nil {
		return nil, c.connError(ctx, err)
	}
	// wake up a blocked read when ctx is cancelled
	stop := context.AfterFunc(ctx, func() { conn.SetDeadline(time.Now()) })
	defer stop()

	c.seq++
	seq := c.seq
	if _, err := conn.Write(encodeRequest(c.serial, seq, req.Bytes())); err != nil {
		return nil, c.connError(ctx, err)
	}

	modbus, err := c.receive(ctx, conn, seq)
	if err != nil {
		return nil, err
	}

	resp, err := packet.ParseReadHoldingRegistersResponseRTU(modbus)
	if err != nil {
		return nil, errors.Wrapf(err, "parse modbus response for register %d", address)
	}
	if len(resp.Data) < 2*int(count) {
		return nil, errors.Newf("modbus response holds %d bytes, want %d", len(resp.Data), 2*int(count))
	}

	values := make([]int, count)
	for i := range values {
		values[i] = int(binary.BigEndian.Uint16(resp.Data[2*i:]))
	}
	return values, nil
}

func (c *Client) receive(ctx context.Context, conn net.Conn, seq uint16) ([]byte, error) {
	for i := 0; ; i++ {
		frame, err := readFrame(conn)
		if err != nil {
			if errors.Is(err, ErrFrame) {
				c.closeConn()
				return nil, err
			}
			return nil, c.connError(ctx, err)
		}

		code := binary.LittleEndian.Uint16(frame[3:5])
		if code != controlResponse && i < maxSkippedFrames {
			log.Debug().Str("control", strconv.FormatUint(uint64(code), 16)).Msg("Skipping unsolicited logger frame")
			continue
		}
		return decodeResponse(frame, seq)
	}
}

func (c *Client) connect(ctx context.Context) (net.Conn, error) {
	if c.conn != nil {
		return c.conn, nil
	}
	if c.dialed && !c.autoReconnect {
		return nil, errors.Mark(errors.New("connection to logger closed"), exporter.ErrNoSocket)
	}

	d := net.Dialer{Timeout: c.timeout}
	conn, err := d.DialContext(ctx, "tcp", c.addr)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, errors.Wrap(ctxErr, "connect to logger interrupted")
		}
		return nil, errors.Mark(errors.Wrapf(err, "connect to logger %s", c.addr), exporter.ErrNoSocket)
	}
	log.Info().Str("addr", c.addr).Msg("Connected to logger")

	c.conn = conn
	c.dialed = true
	return conn, nil
}

// connError drops the connection. A cancelled ctx is reported as such,
// dropped connections as exporter.ErrNoSocket; timeouts and other failures
// are returned as is.
func (c *Client) connError(ctx context.Context, err error) error {
	c.closeConn()

	if ctxErr := ctx.Err(); ctxErr != nil {
		return errors.Wrap(ctxErr, "read from logger interrupted")
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return errors.Wrap(err, "logger did not answer in time")
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, net.ErrClosed) || errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EPIPE) {
		return errors.Mark(errors.Wrap(err, "connection to logger lost"), exporter.ErrNoSocket)
	}
	return errors.Wrap(err, "logger i/o")
}

func (c *Client) closeConn() {
	if c.conn == nil {
		return
	}
	if err := c.conn.Close(); err != nil {
		log.Debug().Err(err).Msg("Closing logger connection")
	}
	c.conn = nil
}

// Close closes the connection to the logger.
func (c *Client) Close() error {
	c.m.Lock()
	defer c.m.Unlock()

	c.closeConn()
	return nil
}
