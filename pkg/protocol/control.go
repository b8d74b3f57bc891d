package protocol

import "github.com/vango-dev/keyed/internal/errors"

// ControlType identifies the type of control message.
type ControlType uint8

const (
	ControlPing  ControlType = 0x01 // Client/server ping
	ControlPong  ControlType = 0x02 // Response to ping
	ControlClose ControlType = 0x20 // Session close
)

// String returns the string representation of the control type.
func (ct ControlType) String() string {
	switch ct {
	case ControlPing:
		return "Ping"
	case ControlPong:
		return "Pong"
	case ControlClose:
		return "Close"
	default:
		return "Unknown"
	}
}

// Control is the payload of a FrameControl frame.
type Control struct {
	Type      ControlType
	Timestamp uint64 // Unix milliseconds, for Ping and Pong
}

// EncodeControl encodes a Control to bytes.
func EncodeControl(c *Control) []byte {
	e := NewEncoderWithCap(9)
	e.WriteByte(byte(c.Type))
	if c.Type == ControlPing || c.Type == ControlPong {
		e.WriteUint64(c.Timestamp)
	}
	return e.Bytes()
}

// DecodeControl decodes a Control from bytes.
func DecodeControl(data []byte) (*Control, error) {
	d := NewDecoder(data)
	t, err := d.ReadByte()
	if err != nil {
		return nil, malformed("control type", err)
	}
	c := &Control{Type: ControlType(t)}
	switch c.Type {
	case ControlPing, ControlPong:
		if c.Timestamp, err = d.ReadUint64(); err != nil {
			return nil, malformed("control timestamp", err)
		}
	case ControlClose:
	default:
		return nil, errors.New("E262").WithDetailf("unknown control type 0x%02x", t)
	}
	return c, nil
}
