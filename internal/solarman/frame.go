package solarman

import (
	"encoding/binary"
	"io"

	"github.com/cockroachdb/errors"
)

const (
	frameStart = 0xA5
	frameEnd   = 0x15

	controlRequest  = 0x4510
	controlResponse = 0x1510

	frameTypeInverter = 0x02

	headerLen          = 11 // start, length, control code, sequence, logger serial
	requestPayloadLen  = 15 // frame type, sensor type, three time fields
	responsePayloadLen = 14 // frame type, status, three time fields
	trailerLen         = 2  // checksum, end
)

// ErrFrame reports a malformed or unexpected V5 frame.
var ErrFrame = errors.New("invalid V5 frame")

// encodeRequest wraps a Modbus RTU frame into a V5 request frame.
func encodeRequest(serial uint32, seq uint16, modbus []byte) []byte {
	n := requestPayloadLen + len(modbus)
	frame := make([]byte, headerLen+n+trailerLen)

	frame[0] = frameStart
	binary.LittleEndian.PutUint16(frame[1:3], uint16(n))
	binary.LittleEndian.PutUint16(frame[3:5], controlRequest)
	binary.LittleEndian.PutUint16(frame[5:7], seq)
	binary.LittleEndian.PutUint32(frame[7:11], serial)
	frame[11] = frameTypeInverter
	// sensor type and time fields stay zero
	copy(frame[headerLen+requestPayloadLen:], modbus)

	frame[len(frame)-2] = checksum(frame)
	frame[len(frame)-1] = frameEnd
	return frame
}

// decodeResponse validates a V5 response frame and returns the Modbus RTU
// frame it carries.
func decodeResponse(frame []byte, seq uint16) ([]byte, error) {
	if len(frame) < headerLen+responsePayloadLen+trailerLen {
		return nil, errors.Wrapf(ErrFrame, "frame too short (%d bytes)", len(frame))
	}
	if frame[0] != frameStart || frame[len(frame)-1] != frameEnd {
		return nil, errors.Wrap(ErrFrame, "bad start or end byte")
	}
	if int(binary.LittleEndian.Uint16(frame[1:3])) != len(frame)-headerLen-trailerLen {
		return nil, errors.Wrap(ErrFrame, "length mismatch")
	}
	if frame[len(frame)-2] != checksum(frame) {
		return nil, errors.Wrap(ErrFrame, "bad checksum")
	}
	if code := binary.LittleEndian.Uint16(frame[3:5]); code != controlResponse {
		return nil, errors.Wrapf(ErrFrame, "unexpected control code %#04x", code)
	}
	if frame[5] != byte(seq) {
		return nil, errors.Wrapf(ErrFrame, "sequence %d does not match request %d", frame[5], byte(seq))
	}
	if frame[headerLen] != frameTypeInverter {
		return nil, errors.Wrapf(ErrFrame, "unexpected frame type %#02x", frame[headerLen])
	}

	modbus := frame[headerLen+responsePayloadLen : len(frame)-trailerLen]
	if len(modbus) < 5 {
		return nil, errors.Wrap(ErrFrame, "no valid Modbus RTU frame")
	}
	return modbus, nil
}

// readFrame reads a single V5 frame from r.
func readFrame(r io.Reader) ([]byte, error) {
	head := make([]byte, 3)
	if _, err := io.ReadFull(r, head); err != nil {
		return nil, err
	}
	if head[0] != frameStart {
		return nil, errors.Wrapf(ErrFrame, "unexpected start byte %#02x", head[0])
	}

	n := int(binary.LittleEndian.Uint16(head[1:3]))
	frame := make([]byte, headerLen+n+trailerLen)
	copy(frame, head)
	if _, err := io.ReadFull(r, frame[len(head):]); err != nil {
		return nil, err
	}
	return frame, nil
}

// checksum sums every byte between the start byte and the checksum itself.
func checksum(frame []byte) byte {
	var sum byte
	for _, b := range frame[1 : len(frame)-2] {
		sum += b
	}
	return sum
}
