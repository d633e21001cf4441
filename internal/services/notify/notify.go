package notify

import (
	"log"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Kind classifies a notification-worthy event.
type Kind string

const (
	KindRankAchieved Kind = "rank_achieved"
	KindLargePayout  Kind = "large_payout"
)

// Event is the payload handed to the notification hook.
type Event struct {
	Kind      Kind
	AccountID uuid.UUID
	Amount    decimal.Decimal
	Detail    string
}

// Notifier delivers events to an external channel (mail, push, webhook).
// Delivery is best-effort: a failed notification never fails the financial
// operation that produced it.
type Notifier interface {
	Notify(event Event) error
}

// LogNotifier writes events to the process log. The default when no real
// delivery channel is configured.
type LogNotifier struct{}

func (LogNotifier) Notify(event Event) error {
	log.Printf("notify %s: account=%s amount=%s %s", event.Kind, event.AccountID, event.Amount, event.Detail)
	return nil
}

// Dispatch fires an event without blocking the caller. Panics and errors in
// the notifier are contained here.
func Dispatch(n Notifier, event Event) {
	if n == nil {
		return
	}
	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Printf("notifier panic for %s event: %v", event.Kind, r)
			}
		}()
		if err := n.Notify(event); err != nil {
			log.Printf("notifier error for %s event: %v", event.Kind, err)
		}
	}()
}
