package main

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/taoyao-code/z21-gateway/internal/protocol/z21"
)

var errBadHex = errors.New("invalid hex datagram")

// eventLine is one decoded record in the output stream.
type eventLine struct {
	At     *time.Time `json:"at,omitempty"`
	From   string     `json:"from,omitempty"`
	Record string     `json:"record"`
	Name   string     `json:"name,omitempty"`
	Event  z21.Event  `json:"event,omitempty"`
	Error  string     `json:"error,omitempty"`
}

type printer struct {
	w      io.Writer
	format string
}

func newPrinter(w io.Writer, format string) *printer {
	return &printer{w: w, format: format}
}

// datagram prints every record of one datagram; extraction errors are printed after
// the records that were recovered before the fault.
func (p *printer) datagram(payload []byte, from string, at *time.Time) error {
	outcomes, extractErr := z21.DecodeDatagram(payload)
	for _, o := range outcomes {
		line := eventLine{At: at, From: from, Record: hex.EncodeToString(o.Record)}
		if o.Err != nil {
			line.Error = o.Err.Error()
		} else {
			line.Name = o.Event.EventName()
			line.Event = o.Event
		}
		if err := p.print(line); err != nil {
			return err
		}
	}
	if extractErr != nil {
		return p.print(eventLine{At: at, From: from, Record: hex.EncodeToString(payload), Error: extractErr.Error()})
	}
	return nil
}

func (p *printer) print(line eventLine) error {
	if p.format == "text" {
		var b strings.Builder
		if line.At != nil {
			b.WriteString(line.At.Format("15:04:05.000 "))
		}
		if line.Error != "" {
			fmt.Fprintf(&b, "ERROR %s [%s]", line.Error, line.Record)
		} else {
			fmt.Fprintf(&b, "%s %+v", line.Name, line.Event)
		}
		_, err := fmt.Fprintln(p.w, b.String())
		return err
	}
	data, err := json.Marshal(line)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(p.w, string(data))
	return err
}

// parseHex accepts "0800 1000 ...", "08:00:10:00" and an optional 0x prefix.
func parseHex(s string) ([]byte, error) {
	s = strings.TrimPrefix(strings.TrimPrefix(strings.TrimSpace(s), "0x"), "0X")
	s = strings.NewReplacer(" ", "", ":", "", "-", "", "\t", "").Replace(s)
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errBadHex, err)
	}
	return b, nil
}
