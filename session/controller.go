// Package session drives the monitor's MQTT lifecycle: connect, subscribe to
// the device's statistics topic, request sampling, hand inbound snapshots to
// the renderer, and tear the sampling stream down again on cancellation.
//
// The paho client delivers messages on its own goroutine. The handler only
// copies the payload into a buffered channel; decoding and rendering happen
// in the foreground Run loop so the transport's delivery loop never blocks
// on terminal I/O.
package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"sync/atomic"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"mutop/render"
	"mutop/stat"
)

// Options configures a monitoring session.
type Options struct {
	Broker         string // MQTT broker hostname
	Port           int    // MQTT broker port (typically 1883)
	DeviceHost     string // muwerk device hostname
	Domain         string // outgoing topic domain prefix; empty disables it
	SampleInterval time.Duration
	KeepAlive      time.Duration
	ConnectTimeout time.Duration
	QoS            byte
}

// StatTopic returns the statistics topic the device publishes on. The domain
// prefix applies only when configured.
func (o Options) StatTopic() string {
	if o.Domain != "" {
		return o.Domain + "/" + o.DeviceHost + "/$SYS/stat"
	}
	return o.DeviceHost + "/$SYS/stat"
}

// ControlTopic returns the topic that starts and stops sampling. The payload
// is the sample interval in decimal milliseconds, or empty to stop.
func (o Options) ControlTopic() string {
	return o.DeviceHost + "/$SYS/stat/get"
}

// mqttClient is the subset of mqtt.Client the controller needs. Kept narrow
// so the stop sequence is assertable against a fake in tests.
type mqttClient interface {
	Connect() mqtt.Token
	Subscribe(topic string, qos byte, callback mqtt.MessageHandler) mqtt.Token
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Unsubscribe(topics ...string) mqtt.Token
	Disconnect(quiesce uint)
}

var newClient = func(opts *mqtt.ClientOptions) mqttClient {
	return mqtt.NewClient(opts)
}

type inbound struct {
	topic   string
	qos     byte
	payload []byte
}

// Controller owns the session state machine. Construct with New, then call
// Connect, Start, Run, and finally Stop on interactive termination. Run
// returning an error is fatal; Stop is deliberately not called on that path
// because the device keeps publishing until its own idle timeout anyway.
type Controller struct {
	opts      Options
	term      *render.Terminal
	client    mqttClient
	messages  chan inbound
	connected atomic.Bool
	frames    atomic.Uint64
}

// New creates a controller rendering to term.
func New(opts Options, term *render.Terminal) *Controller {
	return &Controller{
		opts:     opts,
		term:     term,
		messages: make(chan inbound, 16),
	}
}

// Connect establishes the broker connection. Auto-reconnect stays disabled:
// this is an attended diagnostic tool, and a broker outage should surface
// immediately instead of being papered over.
func (c *Controller) Connect() error {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s:%d", c.opts.Broker, c.opts.Port))
	opts.SetClientID(fmt.Sprintf("mutop-%d", time.Now().Unix()))
	opts.SetKeepAlive(c.opts.KeepAlive)
	opts.SetConnectTimeout(c.opts.ConnectTimeout)
	opts.SetAutoReconnect(false)
	opts.SetOnConnectHandler(func(mqtt.Client) {
		c.connected.Store(true)
		log.Printf("Connected to MQTT server %s.", c.opts.Broker)
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		c.connected.Store(false)
		log.Printf("Connection to %s lost: %v", c.opts.Broker, err)
	})

	c.client = newClient(opts)
	token := c.client.Connect()
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("failed to connect to %s:%d: %w", c.opts.Broker, c.opts.Port, token.Error())
	}
	return nil
}

// Connected reports whether the transport considers itself connected.
func (c *Controller) Connected() bool { return c.connected.Load() }

// Start subscribes to the statistics topic and requests sampling. Both the
// subscribe and the start-request publish wait for broker acknowledgment, so
// the first sample cannot race an unacknowledged start request.
func (c *Controller) Start() error {
	topic := c.opts.StatTopic()
	log.Printf("Subscribing to %s", topic)
	token := c.client.Subscribe(topic, c.opts.QoS, c.handleMessage)
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", topic, token.Error())
	}

	ms := strconv.FormatInt(c.opts.SampleInterval.Milliseconds(), 10)
	token = c.client.Publish(c.opts.ControlTopic(), c.opts.QoS, false, ms)
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("failed to request sampling: %w", token.Error())
	}
	return nil
}

// handleMessage runs on the transport's delivery goroutine. It must not
// block, so a full channel drops the sample (at-most-once is acceptable for
// a periodic snapshot stream).
func (c *Controller) handleMessage(_ mqtt.Client, msg mqtt.Message) {
	payload := make([]byte, len(msg.Payload()))
	copy(payload, msg.Payload())
	select {
	case c.messages <- inbound{topic: msg.Topic(), qos: msg.Qos(), payload: payload}:
	default:
		log.Printf("Dropping statistics message: renderer is behind")
	}
}

// Run renders inbound snapshots until ctx is cancelled (returns nil) or a
// fatal error occurs (schema skew, unusable data, renderer defect).
func (c *Controller) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg := <-c.messages:
			if err := c.renderOne(msg); err != nil {
				return err
			}
		}
	}
}

func (c *Controller) renderOne(msg inbound) error {
	snap, err := stat.Decode(msg.payload)
	if err != nil {
		var inc *stat.IncompatibleError
		if errors.As(err, &inc) {
			c.term.Advance()
			log.Printf("Incompatible version of statistics information, received:")
			log.Printf("%s %d %s", msg.topic, msg.qos, inc.Payload)
			return err
		}
		// One malformed message is not worth dying over; skip the frame.
		log.Printf("Ignoring %v", err)
		return nil
	}
	m, err := stat.Derive(snap)
	if err != nil {
		c.term.Advance()
		return fmt.Errorf("statistics message unusable: %w", err)
	}
	frame, lines, err := render.Frame(snap, m)
	if err != nil {
		c.term.Advance()
		return err
	}
	c.term.ShowFrame(frame, lines)
	c.frames.Add(1)
	return nil
}

// Frames returns the number of frames rendered so far.
func (c *Controller) Frames() uint64 { return c.frames.Load() }

// Stop performs the interactive teardown: advance the cursor past the last
// frame so it stays visible, tell the device to stop sampling (empty payload,
// acknowledged), unsubscribe, and disconnect.
func (c *Controller) Stop() error {
	c.term.Advance()

	var firstErr error
	token := c.client.Publish(c.opts.ControlTopic(), c.opts.QoS, false, "")
	if token.Wait() && token.Error() != nil {
		firstErr = fmt.Errorf("failed to send stop request: %w", token.Error())
	}

	log.Printf("Unsubscribing...")
	token = c.client.Unsubscribe(c.opts.StatTopic())
	if token.Wait() && token.Error() != nil && firstErr == nil {
		firstErr = fmt.Errorf("failed to unsubscribe: %w", token.Error())
	}

	c.client.Disconnect(250)
	c.connected.Store(false)
	return firstErr
}

// EnableTransportLogging routes the paho client's internal logging to stderr.
// Debug chatter is useful when the broker or device misbehaves.
func EnableTransportLogging() {
	mqtt.ERROR = log.New(os.Stderr, "MQTT ERROR ", log.LstdFlags)
	mqtt.CRITICAL = log.New(os.Stderr, "MQTT CRIT  ", log.LstdFlags)
	mqtt.WARN = log.New(os.Stderr, "MQTT WARN  ", log.LstdFlags)
	mqtt.DEBUG = log.New(os.Stderr, "MQTT DEBUG ", log.LstdFlags)
}
