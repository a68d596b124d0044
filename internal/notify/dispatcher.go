package notify

import (
	"log"

	"billing-app/internal/reconcile"
)

// Sender delivers one message to one phone number.
type Sender interface {
	Send(to, message string) error
}

type message struct {
	to   string
	text string
}

// Dispatcher queues messages and delivers them on a background worker.
// Callers never block on delivery and never observe a send failure;
// failures are logged and the message is dropped. A Dispatcher with a nil
// sender discards everything, which is how the app runs when no WhatsApp
// provider is configured.
type Dispatcher struct {
	sender Sender
	queue  chan message
	done   chan struct{}
}

var _ reconcile.Notifier = (*Dispatcher)(nil)

func NewDispatcher(sender Sender) *Dispatcher {
	d := &Dispatcher{
		sender: sender,
		queue:  make(chan message, 64),
		done:   make(chan struct{}),
	}
	go d.run()
	return d
}

func (d *Dispatcher) Notify(to, text string) {
	if d.sender == nil || to == "" {
		return
	}
	select {
	case d.queue <- message{to: to, text: text}:
	default:
		log.Printf("⚠️ notify: queue full, dropping message to %s", to)
	}
}

// Close stops the worker after draining queued messages. Intended for
// tests and shutdown; Notify must not be called afterwards.
func (d *Dispatcher) Close() {
	close(d.queue)
	<-d.done
}

func (d *Dispatcher) run() {
	defer close(d.done)
	for m := range d.queue {
		if err := d.sender.Send(m.to, m.text); err != nil {
			log.Printf("⚠️ notify: send to %s failed: %v", m.to, err)
		}
	}
}
