package notify

import (
	"context"
	"errors"
	"strings"
)

var ErrNoRecipient = errors.New("notify: message has no recipient")

type Message struct {
	To      string
	Subject string
	Body    string
}

func (m Message) validate() error {
	if strings.TrimSpace(m.To) == "" {
		return ErrNoRecipient
	}
	return nil
}

type Notifier interface {
	Notify(ctx context.Context, msg Message) error
}
