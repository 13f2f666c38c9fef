package mbus

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Function codes served by regbank.
const (
	FuncReadHolding   uint8 = 0x03
	FuncReadInput     uint8 = 0x04
	FuncWriteSingle   uint8 = 0x06
	FuncWriteMultiple uint8 = 0x10

	exceptionBit uint8 = 0x80
)

// Exception is a Modbus exception code.
type Exception uint8

const (
	ExIllegalFunction    Exception = 0x01
	ExIllegalDataAddress Exception = 0x02
	ExIllegalDataValue   Exception = 0x03
	ExServerFailure      Exception = 0x04
)

// Protocol-mandated quantity ceilings per request.
const (
	maxReadQuantity  = 125
	maxWriteQuantity = 123
)

var (
	ErrTruncatedPDU  = errors.New("mbus: PDU shorter than its function requires")
	ErrQuantityRange = errors.New("mbus: quantity outside protocol bounds")
	ErrByteCount     = errors.New("mbus: byte count inconsistent with quantity")
)

// ReadRequest is a parsed 0x03/0x04 request.
type ReadRequest struct {
	Start    uint16
	Quantity uint16
}

// WriteSingleRequest is a parsed 0x06 request.
type WriteSingleRequest struct {
	Addr  uint16
	Value uint16
}

// WriteMultipleRequest is a parsed 0x10 request: one write batch.
type WriteMultipleRequest struct {
	Start uint16
	Words []uint16
}

// ParseReadRequest parses the data bytes of a 0x03/0x04 PDU.
func ParseReadRequest(data []byte) (ReadRequest, error) {
	if len(data) != 4 {
		return ReadRequest{}, fmt.Errorf("%w: read request has %d data bytes", ErrTruncatedPDU, len(data))
	}
	req := ReadRequest{
		Start:    binary.BigEndian.Uint16(data[0:2]),
		Quantity: binary.BigEndian.Uint16(data[2:4]),
	}
	if req.Quantity < 1 || req.Quantity > maxReadQuantity {
		return ReadRequest{}, fmt.Errorf("%w: %d registers", ErrQuantityRange, req.Quantity)
	}
	return req, nil
}

// ParseWriteSingleRequest parses the data bytes of a 0x06 PDU.
func ParseWriteSingleRequest(data []byte) (WriteSingleRequest, error) {
	if len(data) != 4 {
		return WriteSingleRequest{}, fmt.Errorf("%w: write single has %d data bytes", ErrTruncatedPDU, len(data))
	}
	return WriteSingleRequest{
		Addr:  binary.BigEndian.Uint16(data[0:2]),
		Value: binary.BigEndian.Uint16(data[2:4]),
	}, nil
}

// ParseWriteMultipleRequest parses the data bytes of a 0x10 PDU.
func ParseWriteMultipleRequest(data []byte) (WriteMultipleRequest, error) {
	if len(data) < 5 {
		return WriteMultipleRequest{}, fmt.Errorf("%w: write multiple has %d data bytes", ErrTruncatedPDU, len(data))
	}
	start := binary.BigEndian.Uint16(data[0:2])
	quantity := binary.BigEndian.Uint16(data[2:4])
	byteCount := int(data[4])

	if quantity < 1 || quantity > maxWriteQuantity {
		return WriteMultipleRequest{}, fmt.Errorf("%w: %d registers", ErrQuantityRange, quantity)
	}
	if byteCount != int(quantity)*2 {
		return WriteMultipleRequest{}, fmt.Errorf("%w: byte count %d for %d registers", ErrByteCount, byteCount, quantity)
	}
	if len(data) != 5+byteCount {
		return WriteMultipleRequest{}, fmt.Errorf("%w: %d payload bytes, byte count %d", ErrTruncatedPDU, len(data)-5, byteCount)
	}

	words := make([]uint16, quantity)
	for i := range words {
		words[i] = binary.BigEndian.Uint16(data[5+2*i : 7+2*i])
	}
	return WriteMultipleRequest{Start: start, Words: words}, nil
}

// BuildReadRequest builds a 0x03/0x04 request PDU.
func BuildReadRequest(fn uint8, start, quantity uint16) []byte {
	pdu := make([]byte, 5)
	pdu[0] = fn
	binary.BigEndian.PutUint16(pdu[1:3], start)
	binary.BigEndian.PutUint16(pdu[3:5], quantity)
	return pdu
}

// BuildReadResponse builds a 0x03/0x04 response PDU.
func BuildReadResponse(fn uint8, words []uint16) []byte {
	pdu := make([]byte, 2+2*len(words))
	pdu[0] = fn
	pdu[1] = uint8(2 * len(words))
	for i, w := range words {
		binary.BigEndian.PutUint16(pdu[2+2*i:4+2*i], w)
	}
	return pdu
}

// ParseReadResponse parses a 0x03/0x04 response PDU back into words.
func ParseReadResponse(pdu []byte) ([]uint16, error) {
	if len(pdu) < 2 || len(pdu) != 2+int(pdu[1]) || pdu[1]%2 != 0 {
		return nil, fmt.Errorf("%w: read response", ErrTruncatedPDU)
	}
	words := make([]uint16, pdu[1]/2)
	for i := range words {
		words[i] = binary.BigEndian.Uint16(pdu[2+2*i : 4+2*i])
	}
	return words, nil
}

// BuildWriteSingleResponse echoes a successful 0x06 request.
func BuildWriteSingleResponse(addr, value uint16) []byte {
	pdu := make([]byte, 5)
	pdu[0] = FuncWriteSingle
	binary.BigEndian.PutUint16(pdu[1:3], addr)
	binary.BigEndian.PutUint16(pdu[3:5], value)
	return pdu
}

// BuildWriteMultipleRequest builds a 0x10 request PDU.
func BuildWriteMultipleRequest(start uint16, words []uint16) []byte {
	pdu := make([]byte, 6+2*len(words))
	pdu[0] = FuncWriteMultiple
	binary.BigEndian.PutUint16(pdu[1:3], start)
	binary.BigEndian.PutUint16(pdu[3:5], uint16(len(words)))
	pdu[5] = uint8(2 * len(words))
	for i, w := range words {
		binary.BigEndian.PutUint16(pdu[6+2*i:8+2*i], w)
	}
	return pdu
}

// BuildWriteMultipleResponse acknowledges a successful 0x10 request.
func BuildWriteMultipleResponse(start, quantity uint16) []byte {
	pdu := make([]byte, 5)
	pdu[0] = FuncWriteMultiple
	binary.BigEndian.PutUint16(pdu[1:3], start)
	binary.BigEndian.PutUint16(pdu[3:5], quantity)
	return pdu
}

// BuildException builds an exception response for fn.
func BuildException(fn uint8, ex Exception) []byte {
	return []byte{fn | exceptionBit, uint8(ex)}
}

// IsException reports whether pdu carries an exception response and, if so,
// which code.
func IsException(pdu []byte) (Exception, bool) {
	if len(pdu) == 2 && pdu[0]&exceptionBit != 0 {
		return Exception(pdu[1]), true
	}
	return 0, false
}
