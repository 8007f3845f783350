// Package ntrip maintains a client session to an NTRIP caster and streams
// RTCM correction data from a single mountpoint.
//
// The session is deliberately simple: Disconnected or Connected, nothing in
// between. Every failure degrades to Disconnected and is retried by the
// caller on its own cadence.
package ntrip

import (
	"encoding/base64"
	"errors"
	"fmt"
	"log"
	"net"
	"strconv"
	"strings"
	"time"
)

const (
	// Generous deadline for resolve/dial/request/response.
	handshakeTimeout = 10 * time.Second
	// Short per-read deadline once streaming, so the poll loop never stalls.
	readPollTimeout = 100 * time.Millisecond
	// No data for this long while connected means the session is dead even
	// though the socket still looks healthy.
	staleAfter = 15 * time.Second

	userAgent = "NTRIP rtk-rover/1.0"
)

// Error kinds. None are fatal: the orchestrator retries all of them on the
// same fixed interval.
var (
	ErrNotConnected = errors.New("ntrip: not connected")
	ErrResolution   = errors.New("ntrip: host resolution failed")
	ErrConnect      = errors.New("ntrip: connect failed")
	ErrIO           = errors.New("ntrip: io failure")
)

type Config struct {
	Host       string
	Port       int
	Mountpoint string

	// Username and Password are optional; Basic auth is sent only when
	// both are non-empty.
	Username string
	Password string
}

// Client is a single NTRIP caster session.
//
// It is driven from one poll loop and performs no internal locking; do not
// share it across goroutines.
type Client struct {
	cfg Config

	conn      net.Conn
	connected bool

	bytesReceived uint64
	lastData      time.Time

	// Injection points for tests.
	now    func() time.Time
	lookup func(host string) ([]string, error)
	dial   func(addr string, timeout time.Duration) (net.Conn, error)
}

func NewClient(cfg Config) *Client {
	return &Client{
		cfg:    cfg,
		now:    time.Now,
		lookup: net.LookupHost,
		dial: func(addr string, timeout time.Duration) (net.Conn, error) {
			return net.DialTimeout("tcp", addr, timeout)
		},
	}
}

// Connect establishes the caster session. It is a no-op when already
// connected. On any failure the socket is closed and the client stays
// Disconnected.
func (c *Client) Connect() error {
	if c.connected {
		return nil
	}

	addrs, err := c.lookup(c.cfg.Host)
	if err != nil || len(addrs) == 0 {
		return fmt.Errorf("%w: %s: %v", ErrResolution, c.cfg.Host, err)
	}

	addr := net.JoinHostPort(addrs[0], strconv.Itoa(c.cfg.Port))
	conn, err := c.dial(addr, handshakeTimeout)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrConnect, addr, err)
	}

	if err := conn.SetDeadline(c.now().Add(handshakeTimeout)); err != nil {
		_ = conn.Close()
		return fmt.Errorf("%w: set deadline: %v", ErrConnect, err)
	}

	if _, err := conn.Write([]byte(c.request())); err != nil {
		_ = conn.Close()
		return fmt.Errorf("%w: send request: %v", ErrConnect, err)
	}

	// One read is enough to see the status; casters answer with either a
	// proper HTTP status line or the bare "ICY 200 OK" of NTRIP 1.0.
	resp := make([]byte, 512)
	n, err := conn.Read(resp)
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("%w: read response: %v", ErrConnect, err)
	}

	reply := string(resp[:n])
	if !strings.Contains(reply, "200") && !strings.Contains(reply, "ICY") {
		_ = conn.Close()
		line, _, _ := strings.Cut(reply, "\r\n")
		return fmt.Errorf("%w: caster rejected request: %q", ErrConnect, line)
	}

	// Clear the handshake deadline; Receive sets a short one per read.
	_ = conn.SetDeadline(time.Time{})

	c.conn = conn
	c.connected = true
	c.lastData = c.now()
	log.Printf("ntrip connected host=%s mountpoint=%s", c.cfg.Host, c.cfg.Mountpoint)
	return nil
}

func (c *Client) request() string {
	var b strings.Builder
	fmt.Fprintf(&b, "GET /%s HTTP/1.1\r\n", c.cfg.Mountpoint)
	fmt.Fprintf(&b, "Host: %s\r\n", c.cfg.Host)
	fmt.Fprintf(&b, "User-Agent: %s\r\n", userAgent)
	b.WriteString("Ntrip-Version: Ntrip/2.0\r\n")
	if c.cfg.Username != "" && c.cfg.Password != "" {
		fmt.Fprintf(&b, "Authorization: Basic %s\r\n", basicAuth(c.cfg.Username, c.cfg.Password))
	}
	b.WriteString("\r\n")
	return b.String()
}

func basicAuth(username, password string) string {
	return base64.StdEncoding.EncodeToString([]byte(username + ":" + password))
}

// Receive reads whatever correction bytes are available right now.
//
// It returns (0, nil) when no data arrived within the poll window. Any real
// I/O failure, including the remote closing the stream, forces the session
// to Disconnected and is reported as ErrIO. ErrNotConnected is returned
// without touching the network when there is no session.
func (c *Client) Receive(buf []byte) (int, error) {
	if !c.connected || c.conn == nil {
		return 0, ErrNotConnected
	}

	_ = c.conn.SetReadDeadline(c.now().Add(readPollTimeout))
	n, err := c.conn.Read(buf)
	if n > 0 {
		c.bytesReceived += uint64(n)
		c.lastData = c.now()
		return n, nil
	}
	if err != nil {
		var nerr net.Error
		if errors.As(err, &nerr) && nerr.Timeout() {
			return 0, nil
		}
		// EOF (remote close) or a hard failure; the session is gone.
		c.Disconnect()
		return 0, fmt.Errorf("%w: %v", ErrIO, err)
	}
	return 0, nil
}

// Disconnect closes the socket and transitions to Disconnected. Safe to
// call repeatedly.
func (c *Client) Disconnect() {
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
	if c.connected {
		log.Printf("ntrip disconnected host=%s", c.cfg.Host)
	}
	c.connected = false
}

func (c *Client) Connected() bool { return c.connected }

// BytesReceived is the cumulative correction byte count for this process.
func (c *Client) BytesReceived() uint64 { return c.bytesReceived }

// Stale reports whether the session is connected but has been silent longer
// than the staleness threshold. A disconnected session is never stale.
func (c *Client) Stale() bool {
	if !c.connected {
		return false
	}
	return c.now().Sub(c.lastData) > staleAfter
}

// CheckStale force-disconnects a stale session. Reconnecting is the
// caller's job, on its own retry interval.
func (c *Client) CheckStale() {
	if c.Stale() {
		log.Printf("ntrip data stale (>%s), forcing reconnect", staleAfter)
		c.Disconnect()
	}
}

// Snapshot is a point-in-time view of the session for status reporting.
type Snapshot struct {
	Connected     bool    `json:"connected"`
	Stale         bool    `json:"stale"`
	Host          string  `json:"host"`
	Mountpoint    string  `json:"mountpoint"`
	BytesReceived uint64  `json:"bytes_received"`
	DataAgeSec    float64 `json:"data_age_sec"`
}

func (c *Client) Snapshot() Snapshot {
	s := Snapshot{
		Connected:     c.connected,
		Stale:         c.Stale(),
		Host:          c.cfg.Host,
		Mountpoint:    c.cfg.Mountpoint,
		BytesReceived: c.bytesReceived,
	}
	if c.connected {
		s.DataAgeSec = c.now().Sub(c.lastData).Seconds()
	}
	return s
}
