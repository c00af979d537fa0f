package trace

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/vmihailenco/msgpack/v5"
)

// Format is the output format for trace events.
type Format uint8

const (
	FormatAuto    Format = iota // infer from OutputPath's extension
	FormatText                  // human-readable text
	FormatNDJSON                // newline-delimited JSON
	FormatMsgpack               // back-to-back binary msgpack maps, no length prefix
)

// FormatEvent renders ev in the given format.
func FormatEvent(ev *Event, format Format) ([]byte, error) {
	switch format {
	case FormatNDJSON:
		return formatNDJSON(ev), nil
	case FormatMsgpack:
		return formatMsgpack(ev)
	case FormatText, FormatAuto:
		return formatText(ev), nil
	default:
		return nil, fmt.Errorf("trace: unknown format %d", format)
	}
}

type wireEvent struct {
	Time     string            `json:"time" msgpack:"time"`
	Seq      uint64            `json:"seq" msgpack:"seq"`
	Kind     string            `json:"kind" msgpack:"kind"`
	Scope    string            `json:"scope" msgpack:"scope"`
	SpanID   uint64            `json:"span_id" msgpack:"span_id"`
	ParentID uint64            `json:"parent_id,omitempty" msgpack:"parent_id,omitempty"`
	GID      uint64            `json:"gid,omitempty" msgpack:"gid,omitempty"`
	Name     string            `json:"name" msgpack:"name"`
	Detail   string            `json:"detail,omitempty" msgpack:"detail,omitempty"`
	Extra    map[string]string `json:"extra,omitempty" msgpack:"extra,omitempty"`
}

func toWire(ev *Event) wireEvent {
	return wireEvent{
		Time:     ev.Time.Format("2006-01-02T15:04:05.000000Z07:00"),
		Seq:      ev.Seq,
		Kind:     ev.Kind.String(),
		Scope:    ev.Scope.String(),
		SpanID:   ev.SpanID,
		ParentID: ev.ParentID,
		GID:      ev.GID,
		Name:     ev.Name,
		Detail:   ev.Detail,
		Extra:    ev.Extra,
	}
}

func formatNDJSON(ev *Event) []byte {
	data, _ := json.Marshal(toWire(ev))
	return append(data, '\n')
}

// formatMsgpack encodes one event as a standalone msgpack map. Dump callers
// write these back to back; msgpack's self-describing encoding means a
// reader can stream-decode them without an outer length prefix.
func formatMsgpack(ev *Event) ([]byte, error) {
	data, err := msgpack.Marshal(toWire(ev))
	if err != nil {
		return nil, fmt.Errorf("trace: marshal msgpack event: %w", err)
	}
	return data, nil
}

// formatText renders an event as "[seqms] -> name (detail) {extra}".
func formatText(ev *Event) []byte {
	var sb strings.Builder

	elapsed := float64(ev.Seq) * 0.001
	fmt.Fprintf(&sb, "[%7.3fms] ", elapsed)

	if ev.ParentID > 0 {
		sb.WriteString("  ")
	}

	switch ev.Kind {
	case KindSpanBegin:
		sb.WriteString("→ ")
	case KindSpanEnd:
		sb.WriteString("← ")
	case KindPoint:
		sb.WriteString("• ")
	case KindHeartbeat:
		sb.WriteString("♡ ")
	}

	sb.WriteString(ev.Name)

	if ev.Detail != "" {
		sb.WriteString(" (")
		sb.WriteString(ev.Detail)
		sb.WriteString(")")
	}

	if len(ev.Extra) > 0 {
		sb.WriteString(" {")
		first := true
		for k, v := range ev.Extra {
			if !first {
				sb.WriteString(", ")
			}
			sb.WriteString(k)
			sb.WriteString("=")
			sb.WriteString(v)
			first = false
		}
		sb.WriteString("}")
	}

	sb.WriteString("\n")
	return []byte(sb.String())
}
