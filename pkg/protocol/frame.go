package protocol

import (
	"io"

	"github.com/vango-dev/keyed/internal/errors"
)

// Frame constants.
const (
	// FrameHeaderSize is the size of the frame header in bytes.
	FrameHeaderSize = 4

	// MaxPayloadSize is the maximum payload size (2^16 - 1 bytes).
	MaxPayloadSize = 65535

	// MaxMessageSize bounds the payload an Assembler accepts across frames.
	MaxMessageSize = DefaultMaxAllocation
)

// FrameType identifies the type of frame.
type FrameType uint8

const (
	FrameSnapshot FrameType = 0x01 // Client → Server key list
	FrameDiff     FrameType = 0x02 // Server → Client edit script
	FrameControl  FrameType = 0x03 // Control messages (ping, etc.)
	FrameError    FrameType = 0x05 // Error message
)

// String returns the string representation of the frame type.
func (ft FrameType) String() string {
	switch ft {
	case FrameSnapshot:
		return "Snapshot"
	case FrameDiff:
		return "Diff"
	case FrameControl:
		return "Control"
	case FrameError:
		return "Error"
	default:
		return "Unknown"
	}
}

// Valid reports whether ft is a known frame type.
func (ft FrameType) Valid() bool {
	switch ft {
	case FrameSnapshot, FrameDiff, FrameControl, FrameError:
		return true
	}
	return false
}

// FrameFlags are optional flags for frame processing.
type FrameFlags uint8

const (
	FlagMore FrameFlags = 0x01 // Payload continues in the next frame
)

// Has returns true if the flags contain the specified flag.
func (ff FrameFlags) Has(flag FrameFlags) bool {
	return ff&flag != 0
}

// Frame represents a protocol frame with header and payload.
//
// Wire format (4 bytes header + variable payload):
//
//	┌─────────────┬──────────────┬───────────────────────────────┐
//	│ Frame Type  │ Flags        │ Payload Length                │
//	│ (1 byte)    │ (1 byte)     │ (2 bytes, big-endian)         │
//	└─────────────┴──────────────┴───────────────────────────────┘
//	│                                                             │
//	│  Payload (variable length)                                  │
//	│                                                             │
//	└─────────────────────────────────────────────────────────────┘
type Frame struct {
	Type    FrameType
	Flags   FrameFlags
	Payload []byte
}

// NewFrame creates a new frame with the given type and payload.
func NewFrame(ft FrameType, payload []byte) *Frame {
	return &Frame{
		Type:    ft,
		Payload: payload,
	}
}

// Encode encodes the frame to bytes including the header.
func (f *Frame) Encode() []byte {
	e := NewEncoderWithCap(FrameHeaderSize + len(f.Payload))
	e.WriteByte(byte(f.Type))
	e.WriteByte(byte(f.Flags))
	e.WriteUint16(uint16(len(f.Payload)))
	e.WriteBytes(f.Payload)
	return e.Bytes()
}

// DecodeFrame decodes a frame from bytes.
// The input must contain exactly the header and the full payload.
func DecodeFrame(data []byte) (*Frame, error) {
	if len(data) < FrameHeaderSize {
		return nil, errors.New("E260").WithDetailf("%d bytes, header needs %d", len(data), FrameHeaderSize).Wrap(io.ErrUnexpectedEOF)
	}

	d := NewDecoder(data[:FrameHeaderSize])
	b0, _ := d.ReadByte()
	b1, _ := d.ReadByte()
	n, _ := d.ReadUint16()
	ft, flags, length := FrameType(b0), FrameFlags(b1), int(n)

	if len(data) != FrameHeaderSize+length {
		return nil, errors.New("E260").WithDetailf("header announces %d payload bytes, got %d", length, len(data)-FrameHeaderSize)
	}
	if !ft.Valid() {
		return nil, errors.New("E261").WithDetailf("type 0x%02x", byte(ft))
	}

	payload := make([]byte, length)
	copy(payload, data[FrameHeaderSize:])

	return &Frame{
		Type:    ft,
		Flags:   flags,
		Payload: payload,
	}, nil
}

// Split cuts payload into frames of at most MaxPayloadSize bytes. Every
// frame but the last carries FlagMore. An empty payload yields one frame.
func Split(ft FrameType, payload []byte) []*Frame {
	if len(payload) <= MaxPayloadSize {
		return []*Frame{NewFrame(ft, payload)}
	}
	frames := make([]*Frame, 0, len(payload)/MaxPayloadSize+1)
	for len(payload) > MaxPayloadSize {
		frames = append(frames, &Frame{Type: ft, Flags: FlagMore, Payload: payload[:MaxPayloadSize]})
		payload = payload[MaxPayloadSize:]
	}
	return append(frames, NewFrame(ft, payload))
}

// Assembler joins the frames of split payloads.
type Assembler struct {
	ft      FrameType
	pending []byte
	open    bool
}

// Add feeds one frame. It returns the complete payload and true once the
// last frame of a message arrives.
func (a *Assembler) Add(f *Frame) ([]byte, bool, error) {
	if a.open && f.Type != a.ft {
		a.Reset()
		return nil, false, errors.New("E260").WithDetailf("%s frame interleaved with a split %s message", f.Type, a.ft)
	}
	if !a.open && !f.Flags.Has(FlagMore) {
		return f.Payload, true, nil
	}
	if len(a.pending)+len(f.Payload) > MaxMessageSize {
		a.Reset()
		return nil, false, errors.New("E260").WithDetailf("split message exceeds %d bytes", MaxMessageSize).Wrap(ErrAllocationTooLarge)
	}

	a.ft = f.Type
	a.open = true
	a.pending = append(a.pending, f.Payload...)
	if f.Flags.Has(FlagMore) {
		return nil, false, nil
	}

	payload := a.pending
	a.pending = nil
	a.open = false
	return payload, true, nil
}

// Reset drops a partially assembled message.
func (a *Assembler) Reset() {
	a.pending = nil
	a.open = false
}
