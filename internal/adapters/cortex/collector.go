// Package cortex streams attention metrics from the Emotiv Cortex service
// over its JSON-RPC WebSocket API.
package cortex

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/BCIDriver/Nurobuckle/internal/domain"
	"github.com/BCIDriver/Nurobuckle/internal/ports"
)

var (
	ErrAccessDenied  = errors.New("cortex access not granted")
	ErrNoHeadset     = errors.New("no connected headset")
	errNotConnected  = errors.New("cortex connection closed")
	errAlreadyActive = errors.New("cortex collector already started")
)

type Collector struct {
	cfg    Config
	log    zerolog.Logger
	obs    ports.Observability
	dialer *websocket.Dialer

	writeMu sync.Mutex
	mu      sync.Mutex
	conn    *websocket.Conn
	alive   bool
	nextID  int64
	pending map[int64]chan response
	started bool
	cancel  context.CancelFunc
	done    chan struct{}

	token   string
	session string
	headset string
	seq     uint64
}

var _ ports.Collector = (*Collector)(nil)

func NewCollector(cfg Config, obs ports.Observability, log zerolog.Logger) (*Collector, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Collector{
		cfg: cfg,
		log: log.With().Str("component", "cortex").Logger(),
		obs: obs,
		dialer: &websocket.Dialer{
			HandshakeTimeout: cfg.RequestTimeout,
			TLSClientConfig:  &tls.Config{InsecureSkipVerify: cfg.InsecureSkipVerify},
		},
		pending: make(map[int64]chan response),
	}, nil
}

// Start dials Cortex, runs the session handshake and begins streaming
// samples into out. out is closed when the stream ends.
func (c *Collector) Start(out chan<- *domain.Sample) error {
	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		return errAlreadyActive
	}
	c.mu.Unlock()

	ctx, cancel := context.WithCancel(context.Background())
	dialCtx, dialCancel := context.WithTimeout(ctx, c.cfg.RequestTimeout)
	conn, _, err := c.dialer.DialContext(dialCtx, c.cfg.URL, nil)
	dialCancel()
	if err != nil {
		cancel()
		return fmt.Errorf("dial cortex %s: %w", c.cfg.URL, err)
	}

	done := make(chan struct{})
	c.mu.Lock()
	c.conn = conn
	c.alive = true
	c.cancel = cancel
	c.done = done
	c.started = true
	c.mu.Unlock()

	go c.readLoop(ctx, conn, out, done)

	if err := c.handshake(ctx); err != nil {
		c.shutdown()
		return err
	}
	c.log.Info().Str("headset", c.Headset()).Str("session", c.session).Strs("streams", c.cfg.Streams).Msg("cortex_subscribed")
	return nil
}

func (c *Collector) handshake(ctx context.Context) error {
	creds := map[string]any{"clientId": c.cfg.ClientID, "clientSecret": c.cfg.ClientSecret}

	var access struct {
		AccessGranted bool   `json:"accessGranted"`
		Message       string `json:"message"`
	}
	if err := c.call(ctx, "requestAccess", creds, &access); err != nil {
		return fmt.Errorf("request access: %w", err)
	}
	if !access.AccessGranted {
		return fmt.Errorf("%w: %s", ErrAccessDenied, access.Message)
	}

	authParams := map[string]any{"clientId": c.cfg.ClientID, "clientSecret": c.cfg.ClientSecret, "debit": c.cfg.Debit}
	if c.cfg.License != "" {
		authParams["license"] = c.cfg.License
	}
	var auth struct {
		CortexToken string `json:"cortexToken"`
	}
	if err := c.call(ctx, "authorize", authParams, &auth); err != nil {
		return fmt.Errorf("authorize: %w", err)
	}
	c.token = auth.CortexToken

	var headsets []headset
	if err := c.call(ctx, "queryHeadsets", map[string]any{}, &headsets); err != nil {
		return fmt.Errorf("query headsets: %w", err)
	}
	hs, err := pickHeadset(headsets, c.cfg.HeadsetID)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.headset = hs
	c.mu.Unlock()

	var sess struct {
		ID string `json:"id"`
	}
	if err := c.call(ctx, "createSession", map[string]any{"cortexToken": c.token, "headset": hs, "status": "active"}, &sess); err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	c.session = sess.ID

	var sub subscribeResult
	if err := c.call(ctx, "subscribe", map[string]any{"cortexToken": c.token, "session": c.session, "streams": c.cfg.Streams}, &sub); err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	if len(sub.Failure) > 0 {
		f := sub.Failure[0]
		return fmt.Errorf("subscribe %s: %w", f.StreamName, &rpcError{Code: f.Code, Message: f.Message})
	}
	return nil
}

// Headset is the id of the headset the session was opened on.
func (c *Collector) Headset() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.headset
}

func pickHeadset(list []headset, wanted string) (string, error) {
	for _, h := range list {
		if wanted != "" && h.ID == wanted {
			return h.ID, nil
		}
		if wanted == "" && h.Status == "connected" {
			return h.ID, nil
		}
	}
	if wanted != "" {
		return "", fmt.Errorf("%w: %s not found", ErrNoHeadset, wanted)
	}
	return "", ErrNoHeadset
}

// Stop unsubscribes, closes the session and the socket.
func (c *Collector) Stop() error {
	c.mu.Lock()
	if !c.started {
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), c.cfg.RequestTimeout)
	defer cancel()

	var err error
	if c.session != "" {
		params := map[string]any{"cortexToken": c.token, "session": c.session, "streams": c.cfg.Streams}
		if e := c.call(ctx, "unsubscribe", params, nil); e != nil {
			err = errors.Join(err, fmt.Errorf("unsubscribe: %w", e))
		}
		params = map[string]any{"cortexToken": c.token, "session": c.session, "status": "close"}
		if e := c.call(ctx, "updateSession", params, nil); e != nil {
			err = errors.Join(err, fmt.Errorf("close session: %w", e))
		}
	}
	return errors.Join(err, c.shutdown())
}

func (c *Collector) shutdown() error {
	c.mu.Lock()
	conn, cancel, done := c.conn, c.cancel, c.done
	c.started = false
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	var err error
	if conn != nil {
		c.writeMu.Lock()
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
		c.writeMu.Unlock()
		err = conn.Close()
	}
	if done != nil {
		<-done
	}
	return err
}

func (c *Collector) call(ctx context.Context, method string, params, result any) error {
	c.mu.Lock()
	conn := c.conn
	if conn == nil || !c.alive {
		c.mu.Unlock()
		return errNotConnected
	}
	c.nextID++
	id := c.nextID
	ch := make(chan response, 1)
	c.pending[id] = ch
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
	}()

	c.writeMu.Lock()
	err := conn.WriteJSON(rpcRequest{JSONRPC: "2.0", ID: id, Method: method, Params: params})
	c.writeMu.Unlock()
	if err != nil {
		return fmt.Errorf("write %s: %w", method, err)
	}

	timer := time.NewTimer(c.cfg.RequestTimeout)
	defer timer.Stop()

	select {
	case resp := <-ch:
		if resp.err != nil {
			return resp.err
		}
		if result == nil || len(resp.result) == 0 {
			return nil
		}
		if err := json.Unmarshal(resp.result, result); err != nil {
			return fmt.Errorf("decode %s result: %w", method, err)
		}
		return nil
	case <-timer.C:
		return fmt.Errorf("%s: no response after %s", method, c.cfg.RequestTimeout)
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Collector) readLoop(ctx context.Context, conn *websocket.Conn, out chan<- *domain.Sample, done chan struct{}) {
	defer close(done)
	defer close(out)
	defer c.failPending()

	for {
		var msg inbound
		if err := conn.ReadJSON(&msg); err != nil {
			if ctx.Err() == nil && !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				c.obs.LogError("cortex_read_failed", err)
			}
			return
		}

		switch {
		case msg.ID != nil:
			c.deliver(*msg.ID, msg)
		case msg.Met != nil:
			s, err := c.sample(msg)
			if err != nil {
				c.obs.IncCounter("nuro_samples_malformed_total", 1)
				c.log.Debug().Err(err).Msg("cortex_met_skipped")
				continue
			}
			select {
			case out <- s:
			case <-ctx.Done():
				return
			}
		case msg.Warning != nil:
			c.log.Warn().Int("code", msg.Warning.Code).Interface("message", msg.Warning.Message).Msg("cortex_warning")
		}
	}
}

func (c *Collector) deliver(id int64, msg inbound) {
	c.mu.Lock()
	ch, ok := c.pending[id]
	c.mu.Unlock()
	if !ok {
		return
	}
	resp := response{result: msg.Result}
	if msg.Error != nil {
		resp.err = msg.Error
	}
	ch <- resp
}

func (c *Collector) failPending() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for id, ch := range c.pending {
		select {
		case ch <- response{err: errNotConnected}:
		default:
		}
		delete(c.pending, id)
	}
	c.alive = false
}

func (c *Collector) sample(msg inbound) (*domain.Sample, error) {
	ts := time.Now()
	if msg.Time > 0 {
		sec, frac := math.Modf(msg.Time)
		ts = time.Unix(int64(sec), int64(frac*1e9))
	}
	s, err := domain.SampleFromVector(ts, msg.Met)
	if err != nil {
		return nil, err
	}
	c.seq++
	s.Seq = c.seq
	c.mu.Lock()
	s.HeadsetID = c.headset
	c.mu.Unlock()
	return s, nil
}
