package mqtt

import "log/slog"

// bufferedMsg stores a serialized MQTT message for replay after reconnection.
type bufferedMsg struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool
}

// outbox holds messages published while the broker is unreachable, oldest
// first. A retained message replaces any earlier retained message on the same
// topic, since the broker would only keep the last one anyway. When full the
// oldest message is dropped.
// Not safe for concurrent use; the caller must synchronize.
type outbox struct {
	pending  []bufferedMsg
	capacity int
	dropped  int
	log      *slog.Logger
}

func newOutbox(capacity int, log *slog.Logger) *outbox {
	if capacity < 1 {
		capacity = 1
	}
	if log == nil {
		log = slog.Default()
	}
	return &outbox{
		pending:  make([]bufferedMsg, 0, capacity),
		capacity: capacity,
		log:      log,
	}
}

func (o *outbox) push(msg bufferedMsg) {
	if msg.retained {
		o.remove(func(m bufferedMsg) bool { return m.retained && m.topic == msg.topic })
	}
	if len(o.pending) == o.capacity {
		if o.dropped == 0 {
			o.log.Warn("mqtt: offline buffer full, dropping oldest", "capacity", o.capacity)
		}
		o.pending = append(o.pending[:0], o.pending[1:]...)
		o.dropped++
	}
	o.pending = append(o.pending, msg)
}

func (o *outbox) remove(match func(bufferedMsg) bool) {
	kept := o.pending[:0]
	for _, m := range o.pending {
		if !match(m) {
			kept = append(kept, m)
		}
	}
	o.pending = kept
}

// drain returns every held message in publish order and empties the outbox.
func (o *outbox) drain() []bufferedMsg {
	if len(o.pending) == 0 {
		return nil
	}
	if o.dropped > 0 {
		o.log.Info("mqtt: offline buffer drained", "replayed", len(o.pending), "dropped", o.dropped)
	}
	out := o.pending
	o.pending = make([]bufferedMsg, 0, o.capacity)
	o.dropped = 0
	return out
}

func (o *outbox) len() int {
	return len(o.pending)
}
