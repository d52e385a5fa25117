package message

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
)

// maxFrameLen bounds a single encoded frame to guard against a malicious
// peer claiming an unbounded length prefix.
const maxFrameLen = 1 << 20 // 1 MiB

// Encode serializes msg into a single length-prefixed frame:
//
//	[4 bytes big-endian length][1 byte type tag][JSON payload]
//
// The length counts the type tag and the JSON payload together.
//
// Encode is injective: distinct messages never produce identical bytes,
// because the type tag is part of the frame and JSON encoding of a fixed
// Go struct with a fixed field set is canonical for a fixed encoding/json
// version.
func Encode(msg Message) ([]byte, error) {
	payload, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal message: %w", err)
	}

	frame := make([]byte, 4+1+len(payload))
	binary.BigEndian.PutUint32(frame[:4], uint32(len(payload)+1))
	frame[4] = byte(msg.Type())
	copy(frame[5:], payload)

	return frame, nil
}

// Decode reads exactly one frame from r and returns the decoded Message.
// A read, length, or JSON-unmarshal failure is returned wrapped; callers
// surface it to the sub-protocol as an inbound failure.
func Decode(r io.Reader) (Message, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return nil, fmt.Errorf("failed to read frame length: %w", err)
	}

	n := binary.BigEndian.Uint32(lenBuf[:])
	if n == 0 || n > maxFrameLen {
		return nil, fmt.Errorf("invalid frame length: %d", n)
	}

	body := make([]byte, n)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, fmt.Errorf("failed to read frame body: %w", err)
	}

	return decodeBody(Type(body[0]), body[1:])
}

func decodeBody(t Type, payload []byte) (Message, error) {
	var msg Message

	switch t {
	case TypeAmountsRequest:
		msg = &AmountsRequest{}
	case TypeAmounts:
		msg = &Amounts{}
	case TypeMessage0Bob:
		msg = &Message0Bob{}
	case TypeMessage0Alice:
		msg = &Message0Alice{}
	case TypeMessage1Bob:
		msg = &Message1Bob{}
	case TypeMessage1Alice:
		msg = &Message1Alice{}
	case TypeMessage2Bob:
		msg = &Message2Bob{}
	default:
		return nil, fmt.Errorf("unknown message type tag: %d", t)
	}

	if err := json.Unmarshal(payload, msg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal %s payload: %w", t, err)
	}

	return msg, nil
}
