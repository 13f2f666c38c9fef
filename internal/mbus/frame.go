package mbus

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

const (
	// HeaderLen is the fixed MBAP header size on the wire.
	HeaderLen = 7
	// ProtocolID is the only protocol identifier Modbus TCP defines.
	ProtocolID uint16 = 0
)

var (
	ErrShortHeader   = errors.New("mbus: short MBAP header")
	ErrBadProtocolID = errors.New("mbus: unexpected MBAP protocol identifier")
	ErrEmptyPDU      = errors.New("mbus: MBAP length leaves no room for a PDU")
	ErrPDUTooLarge   = errors.New("mbus: PDU exceeds limit")
)

// Header is the fixed MBAP wire header. Length counts the unit identifier
// plus the PDU bytes that follow it.
type Header struct {
	TransactionID uint16
	ProtocolID    uint16
	Length        uint16
	UnitID        uint8
}

// Frame is one complete Modbus TCP message: MBAP header plus PDU (function
// code and data).
type Frame struct {
	Header Header
	PDU    []byte
}

// Limits constrains frame decode/encode memory use.
type Limits struct {
	MaxPDUBytes int
}

// DefaultLimits follows the Modbus TCP maximum ADU of 260 bytes.
func DefaultLimits() Limits {
	return Limits{MaxPDUBytes: 253}
}

// ReadFrame reads one MBAP-framed message from r.
func ReadFrame(r io.Reader, limits Limits) (Frame, error) {
	var fixed [HeaderLen]byte
	if _, err := io.ReadFull(r, fixed[:]); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return Frame{}, ErrShortHeader
		}
		return Frame{}, err
	}

	h := DecodeHeader(fixed[:])
	if h.ProtocolID != ProtocolID {
		return Frame{}, fmt.Errorf("%w: %d", ErrBadProtocolID, h.ProtocolID)
	}
	if h.Length < 2 {
		return Frame{}, ErrEmptyPDU
	}

	pduLen := int(h.Length) - 1
	if pduLen > limits.MaxPDUBytes {
		return Frame{}, fmt.Errorf("%w: %d bytes", ErrPDUTooLarge, pduLen)
	}

	pdu := make([]byte, pduLen)
	if _, err := io.ReadFull(r, pdu); err != nil {
		return Frame{}, err
	}

	return Frame{Header: h, PDU: pdu}, nil
}

// WriteFrame writes f to w, deriving the MBAP length field from the PDU.
func WriteFrame(w io.Writer, f Frame, limits Limits) error {
	if len(f.PDU) == 0 {
		return ErrEmptyPDU
	}
	if len(f.PDU) > limits.MaxPDUBytes {
		return fmt.Errorf("%w: %d bytes", ErrPDUTooLarge, len(f.PDU))
	}

	h := f.Header
	h.ProtocolID = ProtocolID
	h.Length = uint16(len(f.PDU) + 1)

	buf := make([]byte, HeaderLen+len(f.PDU))
	copy(buf, EncodeHeader(h))
	copy(buf[HeaderLen:], f.PDU)
	_, err := w.Write(buf)
	return err
}

// EncodeHeader serializes h big-endian.
func EncodeHeader(h Header) []byte {
	buf := make([]byte, HeaderLen)
	binary.BigEndian.PutUint16(buf[0:2], h.TransactionID)
	binary.BigEndian.PutUint16(buf[2:4], h.ProtocolID)
	binary.BigEndian.PutUint16(buf[4:6], h.Length)
	buf[6] = h.UnitID
	return buf
}

// DecodeHeader parses a fixed-size MBAP header.
func DecodeHeader(b []byte) Header {
	return Header{
		TransactionID: binary.BigEndian.Uint16(b[0:2]),
		ProtocolID:    binary.BigEndian.Uint16(b[2:4]),
		Length:        binary.BigEndian.Uint16(b[4:6]),
		UnitID:        b[6],
	}
}
