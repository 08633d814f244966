package solarman

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSerial = 2712345678

// buildFrame assembles a V5 frame the way a logger sends it.
func buildFrame(control, seq uint16, serial uint32, payload []byte) []byte {
	frame := make([]byte, headerLen+len(payload)+trailerLen)
	frame[0] = frameStart
	binary.LittleEndian.PutUint16(frame[1:3], uint16(len(payload)))
	binary.LittleEndian.PutUint16(frame[3:5], control)
	binary.LittleEndian.PutUint16(frame[5:7], seq)
	binary.LittleEndian.PutUint32(frame[7:11], serial)
	copy(frame[headerLen:], payload)
	frame[len(frame)-2] = checksum(frame)
	frame[len(frame)-1] = frameEnd
	return frame
}

func responseFrame(seq uint16, modbus []byte) []byte {
	payload := make([]byte, responsePayloadLen, responsePayloadLen+len(modbus))
	payload[0] = frameTypeInverter
	payload[1] = 0x01 // status
	payload = append(payload, modbus...)
	return buildFrame(controlResponse, seq, testSerial, payload)
}

// rtuResponse builds a function 03 Modbus RTU response holding regs.
func rtuResponse(unit byte, regs ...uint16) []byte {
	frame := []byte{unit, 0x03, byte(2 * len(regs))}
	for _, r := range regs {
		frame = binary.BigEndian.AppendUint16(frame, r)
	}
	return binary.LittleEndian.AppendUint16(frame, crc16(frame))
}

func crc16(data []byte) uint16 {
	crc := uint16(0xFFFF)
	for _, b := range data {
		crc ^= uint16(b)
		for i := 0; i < 8; i++ {
			if crc&1 != 0 {
				crc = crc>>1 ^ 0xA001
			} else {
				crc >>= 1
			}
		}
	}
	return crc
}

func TestEncodeRequest(t *testing.T) {
	modbus := []byte{0x01, 0x03, 0x00, 0xB2, 0x00, 0x01, 0x24, 0x28}
	frame := encodeRequest(testSerial, 0x0107, modbus)

	require.Len(t, frame, headerLen+requestPayloadLen+len(modbus)+trailerLen)
	assert.Equal(t, byte(frameStart), frame[0])
	assert.Equal(t, uint16(requestPayloadLen+len(modbus)), binary.LittleEndian.Uint16(frame[1:3]))
	assert.Equal(t, []byte{0x10, 0x45}, frame[3:5])
	assert.Equal(t, []byte{0x07, 0x01}, frame[5:7])
	assert.Equal(t, uint32(testSerial), binary.LittleEndian.Uint32(frame[7:11]))
	assert.Equal(t, byte(frameTypeInverter), frame[11])
	assert.Equal(t, make([]byte, requestPayloadLen-1), frame[12:headerLen+requestPayloadLen])
	assert.Equal(t, modbus, frame[headerLen+requestPayloadLen:len(frame)-2])
	assert.Equal(t, checksum(frame), frame[len(frame)-2])
	assert.Equal(t, byte(frameEnd), frame[len(frame)-1])
}

func TestDecodeResponse(t *testing.T) {
	modbus := rtuResponse(1, 235)

	got, err := decodeResponse(responseFrame(7, modbus), 7)
	require.NoError(t, err)
	assert.Equal(t, modbus, got)
}

func TestDecodeResponseErrors(t *testing.T) {
	valid := func() []byte { return responseFrame(7, rtuResponse(1, 235)) }

	tests := []struct {
		name   string
		frame  func() []byte
		seq    uint16
		reason string
	}{
		{
			name:   "too short",
			frame:  func() []byte { return valid()[:10] },
			seq:    7,
			reason: "too short",
		},
		{
			name: "bad end byte",
			frame: func() []byte {
				f := valid()
				f[len(f)-1] = 0x00
				return f
			},
			seq:    7,
			reason: "start or end",
		},
		{
			name: "bad checksum",
			frame: func() []byte {
				f := valid()
				f[len(f)-2]++
				return f
			},
			seq:    7,
			reason: "checksum",
		},
		{
			name: "request control code",
			frame: func() []byte {
				f := valid()
				payload := f[headerLen : len(f)-trailerLen]
				return buildFrame(controlRequest, 7, testSerial, payload)
			},
			seq:    7,
			reason: "control code",
		},
		{
			name:   "other sequence",
			frame:  valid,
			seq:    8,
			reason: "sequence",
		},
		{
			name: "no modbus frame",
			frame: func() []byte {
				return responseFrame(7, []byte{0x01, 0x03})
			},
			seq:    7,
			reason: "Modbus",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := decodeResponse(tt.frame(), tt.seq)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrFrame))
			assert.Contains(t, err.Error(), tt.reason)
		})
	}
}

func TestReadFrame(t *testing.T) {
	first := responseFrame(1, rtuResponse(1, 10))
	second := responseFrame(2, rtuResponse(1, 20, 30))
	r := bytes.NewReader(append(append([]byte{}, first...), second...))

	got, err := readFrame(r)
	require.NoError(t, err)
	assert.Equal(t, first, got)

	got, err = readFrame(r)
	require.NoError(t, err)
	assert.Equal(t, second, got)

	_, err = readFrame(bytes.NewReader([]byte{0x00, 0x01, 0x02}))
	assert.True(t, errors.Is(err, ErrFrame))
}
