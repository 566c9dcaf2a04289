/*
	Copyright (c) 2023 the gnsshub authors
	Distributable under the terms of The "BSD New" License
	that can be found in the LICENSE file, herein included
	as part of this header.

	session.go: owns the transport and drives framer, decoders and command
	tracker. One goroutine reads and decodes, one writes rate limited, one
	sweeps command timeouts; consumers get decoded messages over buffered
	channels and must never block the reader.
*/
package session

import (
	"errors"
	"fmt"
	"io"
	"log"
	"sync"
	"sync/atomic"
	"time"

	cmap "github.com/orcaman/concurrent-map/v2"
	"go.uber.org/ratelimit"

	"gnsshub/common"
	"gnsshub/frame"
	"gnsshub/nmea"
	"gnsshub/tracker"
	"gnsshub/ubx"
)

// Message is a decoded inbound message, delivered to consumers in strict
// arrival order. DecodeErr is set when payload decoding failed; the message
// is still delivered so consumers can see what arrived.
type Message struct {
	When      time.Time
	Frame     *frame.Frame
	Sentence  *nmea.Sentence // NMEA frames, nil on decode error
	Ubx       *ubx.Message   // UBX frames, set even for unknown messages
	DecodeErr error
}

// TrafficLog receives every decoded message and command resolution, e.g.
// for datalogging. A nil TrafficLog disables logging.
type TrafficLog interface {
	LogMessage(at time.Time, protocol, name string, raw []byte) error
	LogCommand(at time.Time, handle string, class, id byte, status, outcome string) error
}

// Options tune a Coordinator. Zero values select the defaults.
type Options struct {
	AckTimeout      time.Duration
	SweepInterval   time.Duration
	ResolvedBacklog int
	Log             TrafficLog
}

type consumer struct {
	ch    chan Message
	drops uint64 // atomic
}

// Coordinator runs one session over one transport.
type Coordinator struct {
	transport  Transport
	framer     *frame.Framer
	tracker    *tracker.Tracker
	trafficLog TrafficLog

	consumers cmap.ConcurrentMap[string, *consumer]
	txCh      chan []byte

	sweepInterval time.Duration
	eh            *common.ExitHelper
	rxWatchdog    *common.WatchDog

	failOnce sync.Once
	fatalMu  sync.Mutex
	fatalErr error
}

const silenceWarning = 10 * time.Second

func New(t Transport, opts Options) *Coordinator {
	if opts.SweepInterval <= 0 {
		opts.SweepInterval = 1 * time.Second
	}
	return &Coordinator{
		transport:     t,
		framer:        frame.NewFramer(),
		tracker:       tracker.New(opts.AckTimeout, opts.ResolvedBacklog),
		trafficLog:    opts.Log,
		consumers:     cmap.New[*consumer](),
		txCh:          make(chan []byte, 16),
		sweepInterval: opts.SweepInterval,
		eh:            common.NewExitHelper(),
		rxWatchdog:    common.NewWatchDog(silenceWarning),
	}
}

// Subscribe registers a named consumer and returns its message channel.
// Delivery is non-blocking: when the channel is full, messages for this
// consumer are dropped and counted, so a slow consumer can never stall the
// reader.
func (c *Coordinator) Subscribe(name string, buffer int) <-chan Message {
	if buffer <= 0 {
		buffer = 100
	}
	cons := &consumer{ch: make(chan Message, buffer)}
	c.consumers.Set(name, cons)
	return cons.ch
}

// Unsubscribe removes a consumer. Its channel is closed when the session
// ends, not here, so an in-flight delivery can never hit a closed channel.
func (c *Coordinator) Unsubscribe(name string) {
	c.consumers.Remove(name)
}

// Drops reports how many messages were dropped for a consumer.
func (c *Coordinator) Drops(name string) uint64 {
	if cons, ok := c.consumers.Get(name); ok {
		return atomic.LoadUint64(&cons.drops)
	}
	return 0
}

// Tracker exposes the command tracker for status display.
func (c *Coordinator) Tracker() *tracker.Tracker {
	return c.tracker
}

// Submit serializes a UBX command, queues it for the writer and registers
// it with the tracker as PENDING. It returns the tracker handle.
func (c *Coordinator) Submit(class, id byte, payload []byte, mode tracker.Mode) string {
	raw := ubx.Encode(class, id, payload)
	handle := c.tracker.Submit(class, id, payload, mode, time.Now())
	if c.trafficLog != nil {
		c.trafficLog.LogCommand(time.Now(), handle, class, id, tracker.StatusPending.String(), "")
	}
	select {
	case c.txCh <- raw:
	case <-c.eh.C:
	}
	return handle
}

// Status reports the tracker state for a command handle.
func (c *Coordinator) Status(handle string) (tracker.Status, bool) {
	return c.tracker.Status(handle)
}

// SendNMEA queues a proprietary NMEA command (checksum and CRLF appended).
// NMEA commands carry no acknowledgment, so they are not tracked.
func (c *Coordinator) SendNMEA(body string) {
	select {
	case c.txCh <- common.MakeNMEACmd(body):
	case <-c.eh.C:
	}
}

// Run drives the session until the transport fails, playback reaches end
// of stream, or Stop is called. It blocks; writer and sweeper run on their
// own goroutines. On return all consumer channels are closed.
func (c *Coordinator) Run() error {
	go c.writer()
	go c.sweeper()
	go c.silenceWatch()

	// Unblock a pending transport read on Stop.
	go func() {
		<-c.eh.C
		c.transport.Close()
	}()

	err := c.reader()
	c.eh.Exit()
	c.closeConsumers()
	return err
}

// Stop tears the session down: stops the sweep, waits for the goroutines
// to drain and releases the transport.
func (c *Coordinator) Stop() {
	c.fail(nil)
	c.eh.Exit()
}

// fail records the first fatal error and releases the transport so the
// blocked reader wakes up.
func (c *Coordinator) fail(err error) {
	c.failOnce.Do(func() {
		c.fatalMu.Lock()
		c.fatalErr = err
		c.fatalMu.Unlock()
		c.transport.Close()
	})
}

func (c *Coordinator) firstError() error {
	c.fatalMu.Lock()
	defer c.fatalMu.Unlock()
	return c.fatalErr
}

func (c *Coordinator) reader() error {
	buf := make([]byte, 4096)
	defer c.rxWatchdog.Stop()

	for {
		n, err := c.transport.Read(buf)
		if n > 0 {
			c.rxWatchdog.Poke()
			for _, ev := range c.framer.Feed(buf[:n]) {
				c.handleEvent(ev)
			}
		}
		if err != nil {
			if c.eh.IsExit() {
				return c.firstError()
			}
			if errors.Is(err, io.EOF) {
				log.Printf("session: end of stream")
				return nil
			}
			if ferr := c.firstError(); ferr != nil {
				return ferr
			}
			return fmt.Errorf("session: transport read: %w", err)
		}
		if c.eh.IsExit() {
			return c.firstError()
		}
	}
}

func (c *Coordinator) handleEvent(ev frame.Event) {
	if ev.Discarded > 0 {
		metricDiscardedBytes.Add(float64(ev.Discarded))
	}
	if ev.Err != nil {
		metricFramingErrors.Inc()
		log.Printf("session: framing: %v (discarded %d bytes)", ev.Err, ev.Discarded)
		return
	}

	fr := ev.Frame
	metricFrames.WithLabelValues(fr.Protocol.String()).Inc()

	msg := Message{When: time.Now(), Frame: fr}
	switch fr.Protocol {
	case frame.ProtocolNMEA:
		sent, err := nmea.Decode(fr.Text)
		msg.Sentence = sent
		msg.DecodeErr = err
		if err != nil {
			metricDecodeErrors.WithLabelValues("malformed").Inc()
			log.Printf("session: decode: %v", err)
		}
	case frame.ProtocolUBX:
		um, err := ubx.Decode(fr.Class, fr.ID, fr.Payload)
		msg.Ubx = um
		msg.DecodeErr = err
		if err != nil {
			kind := "length"
			if errors.Is(err, ubx.ErrUnknownMessage) {
				kind = "unknown"
			}
			metricDecodeErrors.WithLabelValues(kind).Inc()
			log.Printf("session: decode: %v", err)
		}
		if fr.Class == ubx.ClassACK {
			c.handleAck(fr)
		}
	}

	if c.trafficLog != nil {
		name := ""
		if msg.Sentence != nil {
			name = msg.Sentence.Talker + msg.Sentence.Type
		} else if msg.Ubx != nil {
			name = msg.Ubx.Name
		}
		if err := c.trafficLog.LogMessage(msg.When, fr.Protocol.String(), name, fr.Raw); err != nil {
			log.Printf("session: traffic log: %v", err)
		}
	}

	c.deliver(msg)
}

// handleAck resolves ACK-ACK/ACK-NAK against the tracker. The two payload
// bytes carry the (class, id) of the original command being answered.
func (c *Coordinator) handleAck(fr *frame.Frame) {
	if fr.ID != ubx.IDAckAck && fr.ID != ubx.IDAckNak {
		return
	}
	if len(fr.Payload) != 2 {
		log.Printf("session: acknowledgment with %d byte payload ignored", len(fr.Payload))
		return
	}

	ack := fr.ID == ubx.IDAckAck
	handle, ok := c.tracker.Resolve(fr.Payload[0], fr.Payload[1], ack, time.Now())
	if !ok {
		return
	}

	outcome := tracker.OutcomeAck
	status := tracker.StatusConfirmed
	if !ack {
		outcome = tracker.OutcomeNak
		status = tracker.StatusWarning
	}
	metricCommands.WithLabelValues(string(outcome)).Inc()
	if c.trafficLog != nil {
		c.trafficLog.LogCommand(time.Now(), handle, fr.Payload[0], fr.Payload[1], status.String(), string(outcome))
	}
}

func (c *Coordinator) deliver(msg Message) {
	for item := range c.consumers.IterBuffered() {
		cons := item.Val
		select {
		case cons.ch <- msg:
		default:
			atomic.AddUint64(&cons.drops, 1)
			metricConsumerDrops.Inc()
			log.Printf("session: consumer %s channel full", item.Key)
		}
	}
}

func (c *Coordinator) closeConsumers() {
	for item := range c.consumers.IterBuffered() {
		close(item.Val.ch)
		c.consumers.Remove(item.Key)
	}
}

// writer drains the TX queue onto the transport. Writes are rate limited;
// we assume nobody sends a large amount of commands to a receiver.
func (c *Coordinator) writer() {
	c.eh.Add()
	defer c.eh.Done()

	rl := ratelimit.New(4)
	for {
		select {
		case <-c.eh.C:
			return
		case txMessage := <-c.txCh:
			rl.Take()
			if _, err := c.transport.Write(txMessage); err != nil {
				if !c.eh.IsExit() {
					c.fail(fmt.Errorf("session: transport write: %w", err))
				}
				return
			}
		}
	}
}

// sweeper times out stale PENDING commands on a fixed schedule, so the
// tracker converges even when the inbound stream goes silent.
func (c *Coordinator) sweeper() {
	c.eh.Add()
	defer c.eh.Done()

	ticker := time.NewTicker(c.sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-c.eh.C:
			return
		case <-ticker.C:
			for _, handle := range c.tracker.Sweep(time.Now()) {
				metricCommands.WithLabelValues(string(tracker.OutcomeTimeout)).Inc()
				log.Printf("session: command %s timed out waiting for acknowledgment", handle)
				if c.trafficLog != nil {
					c.trafficLog.LogCommand(time.Now(), handle, 0, 0, tracker.StatusWarning.String(), string(tracker.OutcomeTimeout))
				}
			}
		}
	}
}

// silenceWatch logs when the inbound stream stalls. Configuration mistakes
// (wrong baud rate, output disabled) look exactly like silence.
func (c *Coordinator) silenceWatch() {
	c.eh.Add()
	defer c.eh.Done()

	for {
		select {
		case <-c.eh.C:
			return
		case <-c.rxWatchdog.C:
			log.Printf("session: no inbound data for %v", silenceWarning)
			c.rxWatchdog.Poke()
		}
	}
}
