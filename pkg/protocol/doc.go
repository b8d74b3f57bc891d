// Package protocol implements the binary wire format of the keyed stream.
//
// # Frames
//
// Every websocket message carries one frame: a 4-byte header (type, flags,
// big-endian payload length) followed by the payload. Payloads larger than
// MaxPayloadSize are split over several frames; every frame but the last
// carries FlagMore. See Split and Assembler.
//
// # Messages
//
//   - FrameSnapshot (client → server): sequence number and the full key list.
//   - FrameDiff (server → client): sequence number and the edit script that
//     turns the previous key list into the snapshot's.
//   - FrameError: an error code from the keyed error registry and a message.
//   - FrameControl: ping, pong and close.
//
// Integers are varints; strings are length-prefixed. Decoding errors carry
// codes E260 to E263.
package protocol
