package stream

import (
	"bytes"
	"encoding/json"

	"covertrack/pkg/errors"
)

// Inbound event kinds, tagged by the "ev" field.
const (
	KindStatus    = "status"
	KindAggregate = "AM"
	KindTrade     = "T"
	KindQuote     = "Q"
)

// Feed status values that drive the auth state machine.
const (
	StatusConnected   = "connected"
	StatusAuthSuccess = "auth_success"
	StatusAuthFailed  = "auth_failed"
)

// Event is one parsed inbound message.
type Event interface {
	Kind() string
}

// StatusEvent reports connection/auth state transitions from the feed.
type StatusEvent struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

func (StatusEvent) Kind() string { return KindStatus }

// AggregateBar is a per-minute aggregate for a stock or option contract
// symbol. Start/End are epoch milliseconds.
type AggregateBar struct {
	Symbol string   `json:"sym"`
	Open   *float64 `json:"o"`
	High   *float64 `json:"h"`
	Low    *float64 `json:"l"`
	Close  *float64 `json:"c"`
	Volume *float64 `json:"v"`
	VWAP   *float64 `json:"vw"`
	Start  int64    `json:"s"`
	End    int64    `json:"e"`
}

func (AggregateBar) Kind() string { return KindAggregate }

// TradeTick is a single trade print.
type TradeTick struct {
	Symbol    string   `json:"sym"`
	Price     *float64 `json:"p"`
	Size      *float64 `json:"s"`
	Timestamp int64    `json:"t"`
}

func (TradeTick) Kind() string { return KindTrade }

// QuoteTick is a bid/ask update.
type QuoteTick struct {
	Symbol    string   `json:"sym"`
	BidPrice  *float64 `json:"bp"`
	AskPrice  *float64 `json:"ap"`
	Timestamp int64    `json:"t"`
}

func (QuoteTick) Kind() string { return KindQuote }

type rawEvent struct {
	Ev string `json:"ev"`
}

// ParseMessage decodes one inbound frame, which may be a single JSON object
// or a batched array of objects. Unknown event kinds are skipped, not errors.
func ParseMessage(data []byte) ([]Event, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, nil
	}

	var raws []json.RawMessage
	if data[0] == '[' {
		if err := json.Unmarshal(data, &raws); err != nil {
			return nil, errors.Wrap(err, "decode event batch")
		}
	} else {
		raws = []json.RawMessage{json.RawMessage(data)}
	}

	events := make([]Event, 0, len(raws))
	for _, raw := range raws {
		var tag rawEvent
		if err := json.Unmarshal(raw, &tag); err != nil {
			return nil, errors.Wrap(err, "decode event tag")
		}

		var (
			ev  Event
			err error
		)
		switch tag.Ev {
		case KindStatus:
			var e StatusEvent
			err = json.Unmarshal(raw, &e)
			ev = e
		case KindAggregate:
			var e AggregateBar
			err = json.Unmarshal(raw, &e)
			ev = e
		case KindTrade:
			var e TradeTick
			err = json.Unmarshal(raw, &e)
			ev = e
		case KindQuote:
			var e QuoteTick
			err = json.Unmarshal(raw, &e)
			ev = e
		default:
			continue
		}
		if err != nil {
			return nil, errors.Wrapf(err, "decode %s event", tag.Ev)
		}
		events = append(events, ev)
	}
	return events, nil
}
