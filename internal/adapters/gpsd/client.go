package gpsd

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"time"

	"github.com/lcalzada-xor/wmap/internal/core/domain"
	"github.com/lcalzada-xor/wmap/internal/core/ports"
	"github.com/lcalzada-xor/wmap/internal/telemetry"
)

const (
	dataTimeout   = 10 * time.Second
	readChunkWait = 1 * time.Second

	tcpKeepAlivePeriod = 10 * time.Second // approximates KEEPINTVL*KEEPCNT tuning
)

// Config selects the gpsd endpoint and the delay between reconnect
// attempts after a lost or refused connection.
type Config struct {
	Host      string
	Port      int
	Reconnect time.Duration // 0 disables automatic reconnection
}

// Client is a reconnecting gpsd session. Unlike the TZSP receiver, it
// speaks TCP and carries a small connection-state machine (off / opening /
// awaiting-handshake / no-fix / ok) that the consolidation model surfaces
// alongside the fixes themselves.
type Client struct {
	cfg    Config
	events chan ports.GPSDEvent

	// auditLog records connection lifecycle events to the audit trail; it
	// defaults to a no-op and is wired by the app facade.
	auditLog func(ctx context.Context, action domain.AuditAction, target, details string)
	runCtx   context.Context
}

func NewClient(cfg Config) *Client {
	return &Client{
		cfg:      cfg,
		events:   make(chan ports.GPSDEvent, 32),
		auditLog: func(context.Context, domain.AuditAction, string, string) {},
		runCtx:   context.Background(),
	}
}

// SetAuditFunc installs the callback used to record lifecycle events to the
// audit trail. Passing nil restores the no-op default.
func (c *Client) SetAuditFunc(fn func(ctx context.Context, action domain.AuditAction, target, details string)) {
	if fn == nil {
		fn = func(context.Context, domain.AuditAction, string, string) {}
	}
	c.auditLog = fn
}

func (c *Client) Events() <-chan ports.GPSDEvent { return c.events }

// Start runs the connect/read/reconnect loop until ctx is cancelled, or
// until the first disconnect when reconnection is disabled. It always
// returns nil: connection failures are logged, audited and reported as
// events rather than returned.
func (c *Client) Start(ctx context.Context) error {
	defer close(c.events)

	c.runCtx = ctx

	for {
		if ctx.Err() != nil {
			return nil
		}
		c.emit(ports.GPSDEvent{State: domain.GPSDOpening})
		if err := c.runOnce(ctx); err != nil {
			log.Printf("gpsd: %v", err)
			c.audit(domain.ActionGPSDState, "disconnected: "+err.Error())
		} else {
			c.audit(domain.ActionGPSDState, "disconnected")
		}
		c.emit(ports.GPSDEvent{State: domain.GPSDOff})

		if c.cfg.Reconnect <= 0 || ctx.Err() != nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(c.cfg.Reconnect):
		}
	}
}

func (c *Client) Close() error { return nil }

func (c *Client) runOnce(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", c.cfg.Host, c.cfg.Port)
	dialer := net.Dialer{Timeout: 10 * time.Second}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("connect to %s: %w", addr, err)
	}
	defer conn.Close()

	c.audit(domain.ActionGPSDConnect, "connected to "+addr)

	if tcpConn, ok := conn.(*net.TCPConn); ok {
		_ = tcpConn.SetKeepAlive(true)
		_ = tcpConn.SetKeepAlivePeriod(tcpKeepAlivePeriod)
	}

	go func() {
		<-ctx.Done()
		_ = conn.SetReadDeadline(time.Now())
	}()

	c.emit(ports.GPSDEvent{State: domain.GPSDAwaiting})

	ready := false
	connectedAt := time.Now()
	decoder := json.NewDecoder(conn)

	for {
		if ctx.Err() != nil {
			return nil
		}
		if !ready && time.Since(connectedAt) > dataTimeout {
			return fmt.Errorf("no VERSION handshake within %s", dataTimeout)
		}

		_ = conn.SetReadDeadline(time.Now().Add(readChunkWait))
		var raw json.RawMessage
		if err := decoder.Decode(&raw); err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				continue
			}
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("read: %w", err)
		}

		switch classOf(raw) {
		case "VERSION":
			if !ready {
				ready = true
				if _, err := conn.Write([]byte(initString)); err != nil {
					return fmt.Errorf("write init string: %w", err)
				}
				c.emit(ports.GPSDEvent{State: domain.GPSDNoFix})
			}
		case "TPV":
			if !ready {
				return fmt.Errorf("protocol mismatch: TPV before VERSION handshake")
			}
			var m tpvMessage
			if err := json.Unmarshal(raw, &m); err != nil {
				continue
			}
			fix := toFix(m)
			state := domain.GPSDNoFix
			if fix.HasFix() {
				state = domain.GPSDOK
			}
			f := fix
			c.emit(ports.GPSDEvent{State: state, Fix: &f})
		}
	}
}

func (c *Client) emit(e ports.GPSDEvent) {
	telemetry.GPSDFixStateTransitions.WithLabelValues(e.State.String()).Inc()
	c.events <- e
}

// audit reports a gpsd connection lifecycle event. Unlike sshdriver, gpsd has
// only one endpoint, so the target is always "gpsd".
func (c *Client) audit(action domain.AuditAction, details string) {
	c.auditLog(c.runCtx, action, "gpsd", details)
}
