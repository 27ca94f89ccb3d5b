// Package notifier sends human-readable progress messages to the user.
package notifier

// A Notifier delivers a message. Notify must not block the caller for long and never fails: delivery errors are logged.
type Notifier interface {
	Notify(string)
}

type Notifiers []Notifier

func (n Notifiers) Notify(msg string) {
	for _, l := range n {
		l.Notify(msg)
	}
}
