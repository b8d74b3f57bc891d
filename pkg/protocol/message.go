package protocol

import (
	"github.com/vango-dev/keyed/internal/errors"
	"github.com/vango-dev/keyed/pkg/keyed"
)

// keyListVersion prefixes encoded key lists.
const keyListVersion = 0x01

// Snapshot is the full key list a client wants rendered.
type Snapshot struct {
	Seq  uint64
	Keys []string
}

// DiffMessage answers a Snapshot with the edit script from the previous
// key list. Seq echoes the snapshot's sequence number.
type DiffMessage struct {
	Seq  uint64
	Diff *keyed.Diff[string]
}

// diff header bits
const (
	diffClear byte = 0x01
)

// EncodeSnapshot encodes a Snapshot to bytes.
func EncodeSnapshot(s *Snapshot) []byte {
	e := NewEncoder()
	e.WriteUvarint(s.Seq)
	writeKeys(e, s.Keys)
	return e.Bytes()
}

// DecodeSnapshot decodes a Snapshot from bytes.
func DecodeSnapshot(data []byte) (*Snapshot, error) {
	d := NewDecoder(data)
	seq, err := d.ReadUvarint()
	if err != nil {
		return nil, malformed("snapshot sequence", err)
	}
	keys, err := readKeys(d)
	if err != nil {
		return nil, err
	}
	if err := d.Done(); err != nil {
		return nil, malformed("snapshot", err)
	}
	return &Snapshot{Seq: seq, Keys: keys}, nil
}

// EncodeKeys encodes a key list for storage.
func EncodeKeys(keys []string) []byte {
	e := NewEncoderWithCap(8 + 8*len(keys))
	e.WriteByte(keyListVersion)
	writeKeys(e, keys)
	return e.Bytes()
}

// DecodeKeys decodes a key list written by EncodeKeys.
func DecodeKeys(data []byte) ([]string, error) {
	d := NewDecoder(data)
	v, err := d.ReadByte()
	if err != nil {
		return nil, malformed("key list version", err)
	}
	if v != keyListVersion {
		return nil, errors.New("E262").WithDetailf("unsupported key list version %d", v)
	}
	keys, err := readKeys(d)
	if err != nil {
		return nil, err
	}
	if err := d.Done(); err != nil {
		return nil, malformed("key list", err)
	}
	return keys, nil
}

func writeKeys(e *Encoder, keys []string) {
	e.WriteUvarint(uint64(len(keys)))
	for _, k := range keys {
		e.WriteString(k)
	}
}

func readKeys(d *Decoder) ([]string, error) {
	n, err := d.ReadCollectionCount(1)
	if err != nil {
		return nil, malformed("key count", err)
	}
	keys := make([]string, n)
	for i := range keys {
		if keys[i], err = d.ReadString(); err != nil {
			return nil, malformed("key", err)
		}
	}
	return keys, nil
}

// EncodeDiff encodes a DiffMessage to bytes.
//
// Layout: seq, header byte, removed positions, moves
// (from, len, to, moveInDom, key), adds (at, mode, key).
func EncodeDiff(m *DiffMessage) []byte {
	e := NewEncoder()
	EncodeDiffTo(e, m)
	return e.Bytes()
}

// EncodeDiffTo encodes a DiffMessage using the provided encoder.
func EncodeDiffTo(e *Encoder, m *DiffMessage) {
	e.WriteUvarint(m.Seq)
	d := m.Diff
	if d == nil {
		d = &keyed.Diff[string]{}
	}

	var header byte
	if d.Clear {
		header |= diffClear
	}
	e.WriteByte(header)

	e.WriteUvarint(uint64(len(d.Removed)))
	for _, r := range d.Removed {
		e.WriteUvarint(uint64(r.At))
	}

	e.WriteUvarint(uint64(len(d.Moved)))
	for _, mv := range d.Moved {
		e.WriteUvarint(uint64(mv.From))
		e.WriteUvarint(uint64(mv.Len))
		e.WriteUvarint(uint64(mv.To))
		e.WriteBool(mv.MoveInDOM)
		e.WriteString(mv.Key)
	}

	e.WriteUvarint(uint64(len(d.Added)))
	for _, a := range d.Added {
		e.WriteUvarint(uint64(a.At))
		e.WriteByte(byte(a.Mode))
		e.WriteString(a.Key)
	}
}

// DecodeDiff decodes a DiffMessage from bytes.
func DecodeDiff(data []byte) (*DiffMessage, error) {
	d := NewDecoder(data)
	m, err := DecodeDiffFrom(d)
	if err != nil {
		return nil, err
	}
	if err := d.Done(); err != nil {
		return nil, malformed("diff", err)
	}
	return m, nil
}

// DecodeDiffFrom decodes a DiffMessage from a decoder.
func DecodeDiffFrom(d *Decoder) (*DiffMessage, error) {
	seq, err := d.ReadUvarint()
	if err != nil {
		return nil, malformed("diff sequence", err)
	}
	header, err := d.ReadByte()
	if err != nil {
		return nil, malformed("diff header", err)
	}
	if header&^diffClear != 0 {
		return nil, errors.New("E262").WithDetailf("unknown diff header bits 0x%02x", header)
	}
	out := &keyed.Diff[string]{Clear: header&diffClear != 0}

	n, err := d.ReadCollectionCount(1)
	if err != nil {
		return nil, malformed("removal count", err)
	}
	if n > 0 {
		out.Removed = make([]keyed.Remove, n)
		for i := range out.Removed {
			if out.Removed[i].At, err = d.ReadIndex(); err != nil {
				return nil, malformed("removal", err)
			}
		}
	}

	// from, len, to, flag, key length
	n, err = d.ReadCollectionCount(5)
	if err != nil {
		return nil, malformed("move count", err)
	}
	if n > 0 {
		out.Moved = make([]keyed.Move[string], n)
		for i := range out.Moved {
			mv := &out.Moved[i]
			if mv.From, err = d.ReadIndex(); err != nil {
				return nil, malformed("move source", err)
			}
			if mv.Len, err = d.ReadIndex(); err != nil {
				return nil, malformed("move length", err)
			}
			if mv.Len == 0 {
				return nil, errors.New("E262").WithDetailf("move %d has length 0", i)
			}
			if mv.To, err = d.ReadIndex(); err != nil {
				return nil, malformed("move target", err)
			}
			if mv.MoveInDOM, err = d.ReadBool(); err != nil {
				return nil, malformed("move flag", err)
			}
			if mv.Key, err = d.ReadString(); err != nil {
				return nil, malformed("move key", err)
			}
		}
	}

	// at, mode, key length
	n, err = d.ReadCollectionCount(3)
	if err != nil {
		return nil, malformed("add count", err)
	}
	if n > 0 {
		out.Added = make([]keyed.Add[string], n)
		for i := range out.Added {
			a := &out.Added[i]
			if a.At, err = d.ReadIndex(); err != nil {
				return nil, malformed("add position", err)
			}
			mode, err := d.ReadByte()
			if err != nil {
				return nil, malformed("add mode", err)
			}
			if a.Mode = keyed.AddMode(mode); a.Mode != keyed.AddNormal && a.Mode != keyed.AddAppend {
				return nil, errors.New("E262").WithDetailf("unknown add mode %d", mode)
			}
			if a.Key, err = d.ReadString(); err != nil {
				return nil, malformed("add key", err)
			}
		}
	}

	return &DiffMessage{Seq: seq, Diff: out}, nil
}

func malformed(what string, err error) error {
	return errors.New("E262").WithDetailf("reading %s", what).Wrap(err)
}
