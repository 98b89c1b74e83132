// internal/camserver/client.go
package camserver

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/tamzrod/pilatus-bridge/internal/logging"
)

var (
	ErrNotConnected = errors.New("camserver: not connected")
	ErrBusy         = errors.New("camserver: acquisition already running")
)

// Config is the connection and naming setup of one camserver.
type Config struct {
	Host    string
	Port    int
	Timeout time.Duration

	ImagePath   string
	FilePattern string

	// Per-channel limits checked before every start. Empty disables the check.
	TemperatureMax []float64
	HumidityMax    []float64
}

// Address returns host:port.
func (c Config) Address() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Direction tells an Observer which way a message travelled.
type Direction int

const (
	Sent Direction = iota
	Received
)

func (d Direction) String() string {
	if d == Sent {
		return "sent"
	}
	return "received"
}

// Observer sees every command and reply record. It is called with the
// client lock held and must not call back into the client.
type Observer func(dir Direction, text string)

// Client owns the control socket to one camserver.
// A reader goroutine decodes replies and drives State.
type Client struct {
	cfg  Config
	dial func(ctx context.Context, network, addr string) (net.Conn, error)

	mu       sync.Mutex
	conn     net.Conn
	readDone chan struct{}
	state    State
	changed  chan struct{}
	observer Observer

	errMsg string

	energy         float64
	threshold      int
	gain           Gain
	exposure       float64
	exposurePeriod float64
	nImages        int
	triggerDelay   float64
	expPerFrame    int
	gapfill        bool
	trigger        TriggerMode
	imgpath        string
	filePattern    string
	temperature    []float64
	humidity       []float64
	nbAcquired     int
}

// New builds a disconnected client. Call Connect before sending commands.
func New(cfg Config) *Client {
	if cfg.Host == "" {
		cfg.Host = "localhost"
	}
	if cfg.Port == 0 {
		cfg.Port = DefaultPort
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.ImagePath == "" {
		cfg.ImagePath = "/ramdisk/images/"
	}
	if cfg.FilePattern == "" {
		cfg.FilePattern = "image_%.5d.cbf"
	}

	d := &net.Dialer{Timeout: cfg.Timeout}
	c := &Client{
		cfg:     cfg,
		dial:    d.DialContext,
		changed: make(chan struct{}),
	}
	c.initVariablesLocked()
	return c
}

// SetObserver installs an observer for protocol traffic. Nil removes it.
func (c *Client) SetObserver(o Observer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.observer = o
}

// Config returns the configuration the client was built with.
func (c *Client) Config() Config { return c.cfg }

func (c *Client) initVariablesLocked() {
	c.state = StateDisconnected
	c.errMsg = ""
	c.energy = -1
	c.threshold = -1
	c.gain = DefaultGain
	c.exposure = -1
	c.exposurePeriod = -1
	c.nImages = 1
	c.triggerDelay = -1
	c.expPerFrame = 1
	c.imgpath = c.cfg.ImagePath
	c.filePattern = c.cfg.FilePattern
	c.temperature = nil
	c.humidity = nil
	c.nbAcquired = 0
}

// Connect opens the control socket, replacing any previous one, and asks the
// server for its current settings.
func (c *Client) Connect(ctx context.Context) error {
	c.Quit()

	addr := c.cfg.Address()
	conn, err := c.dial(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("camserver: dial %s: %w", addr, err)
	}
	if tc, ok := conn.(*net.TCPConn); ok {
		_ = tc.SetNoDelay(true)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.initVariablesLocked()
	c.conn = conn
	c.readDone = make(chan struct{})
	c.state = StateOK
	c.notifyLocked()
	go c.readLoop(conn, c.readDone)

	logging.Logf("camserver: connected to %s", addr)
	return c.resyncLocked()
}

// Quit closes the control socket and waits for the reader to exit.
func (c *Client) Quit() error {
	c.mu.Lock()
	conn, done := c.conn, c.readDone
	c.conn = nil
	c.readDone = nil
	if conn != nil {
		c.state = StateDisconnected
		c.notifyLocked()
	}
	c.mu.Unlock()

	if conn == nil {
		return nil
	}
	err := conn.Close()
	if done != nil {
		<-done
	}
	return err
}

// Status returns the current state token.
func (c *Client) Status() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// ErrorMessage returns the text of the last error reply.
func (c *Client) ErrorMessage() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.errMsg
}

// resyncLocked asks the server to report its current settings.
func (c *Client) resyncLocked() error {
	for _, cmd := range []string{
		"setthreshold",
		"exptime",
		"expperiod",
		"imgpath " + c.imgpath,
		"delay",
		"nexpframe",
		"setackint 0",
		"dbglvl 1",
	} {
		if err := c.sendLocked(cmd); err != nil {
			return err
		}
	}
	return nil
}

func (c *Client) reinitLocked() error {
	if err := c.resyncLocked(); err != nil {
		return err
	}
	return c.sendLocked("nimages")
}

// sendLocked writes one command terminated by Separator.
func (c *Client) sendLocked(cmd string) error {
	if c.conn == nil {
		return ErrNotConnected
	}
	logging.Logf("camserver: >> %s", cmd)
	if c.observer != nil {
		c.observer(Sent, cmd)
	}

	msg := append([]byte(cmd), Separator)
	_ = c.conn.SetWriteDeadline(time.Now().Add(c.cfg.Timeout))
	for len(msg) > 0 {
		n, err := c.conn.Write(msg)
		if err != nil {
			return fmt.Errorf("camserver: write %q: %w", cmd, err)
		}
		msg = msg[n:]
	}
	return nil
}

// notifyLocked wakes every waiter.
func (c *Client) notifyLocked() {
	close(c.changed)
	c.changed = make(chan struct{})
}

// waitLocked releases the lock until done(state) holds, the timeout expires
// or ctx ends. The lock is held again on return.
func (c *Client) waitLocked(ctx context.Context, what string, done func(State) bool) error {
	timer := time.NewTimer(c.cfg.Timeout)
	defer timer.Stop()

	for !done(c.state) {
		if c.conn == nil {
			return fmt.Errorf("camserver: %s: %w", what, ErrNotConnected)
		}
		ch := c.changed
		c.mu.Unlock()
		select {
		case <-ch:
			c.mu.Lock()
		case <-timer.C:
			c.mu.Lock()
			return fmt.Errorf("camserver: %s: server not idle after %s (state=%s)", what, c.cfg.Timeout, c.state)
		case <-ctx.Done():
			c.mu.Lock()
			return fmt.Errorf("camserver: %s: %w", what, ctx.Err())
		}
	}
	return nil
}

// waitIdleLocked waits until no command is in flight. An error state counts
// as idle: the next explicit command clears it.
func (c *Client) waitIdleLocked(ctx context.Context, what string) error {
	return c.waitLocked(ctx, what, func(s State) bool {
		return s == StateOK || s == StateError
	})
}

func (c *Client) readLoop(conn net.Conn, done chan struct{}) {
	defer close(done)

	sc := bufio.NewScanner(conn)
	sc.Buffer(make([]byte, 16384), 1<<20)
	sc.Split(scanRecords)

	for sc.Scan() {
		record := sc.Text()
		reply, ok := Decode(record)
		if !ok {
			continue
		}

		c.mu.Lock()
		if c.conn != conn {
			c.mu.Unlock()
			return
		}
		logging.Logf("camserver: << %s", reply.Raw)
		if c.observer != nil {
			c.observer(Received, reply.Raw)
		}
		c.applyLocked(reply)
		c.mu.Unlock()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != conn {
		return
	}
	if err := sc.Err(); err != nil {
		logging.Logf("camserver: read: %v", err)
	} else {
		logging.Logf("camserver: connection closed by server")
	}
	conn.Close()
	c.conn = nil
	c.readDone = nil
	c.state = StateDisconnected
	c.notifyLocked()
}

// scanRecords splits the stream on Separator.
func scanRecords(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexByte(data, Separator); i >= 0 {
		return i + 1, data[:i], nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}
