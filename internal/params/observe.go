package params

import "log"

// Change describes one successful field mutation.
type Change struct {
	Field string
	Old   interface{}
	New   interface{}
}

// Observer is a callback invoked synchronously after every successful Set.
type Observer func(Change)

// Observable is the capability a consumer needs to react to configuration
// changes without holding the concrete ParameterSpace type.
type Observable interface {
	Subscribe(fn Observer) int
	Unsubscribe(id int)
}

type observer struct {
	id int
	fn Observer
}

// Subscribe registers an observer and returns its subscription id.
// Observers are invoked in subscription order.
func (p *ParameterSpace) Subscribe(fn Observer) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.nextObsID++
	p.observers = append(p.observers, observer{id: p.nextObsID, fn: fn})
	return p.nextObsID
}

// Unsubscribe removes the observer with the given id. Unknown ids are a
// no-op.
func (p *ParameterSpace) Unsubscribe(id int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, o := range p.observers {
		if o.id == id {
			p.observers = append(p.observers[:i], p.observers[i+1:]...)
			return
		}
	}
}

// notifyAll delivers a change to every observer. A panicking observer is
// recovered and logged; the remaining observers still run.
func notifyAll(obs []observer, ch Change) {
	for _, o := range obs {
		notifyOne(o, ch)
	}
}

func notifyOne(o observer, ch Change) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[ParameterSpace] observer %d panicked on %s change: %v", o.id, ch.Field, r)
		}
	}()
	o.fn(ch)
}
