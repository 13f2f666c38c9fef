// Command regbankctl pokes a running regbankd (or any Modbus TCP server)
// from the command line: read or write registers and typed multi-word values.
//
// Operations are colon-separated positional arguments, e.g.
//
//	regbankctl -target tcp://localhost:1502 wr:float32:100:3.14 rh:float32:100
package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/simonvetter/modbus"
)

type opKind int

const (
	opReadU16 opKind = iota
	opReadI16
	opReadU32
	opReadI32
	opReadF32
	opWriteU16
	opWriteU32
	opWriteF32
	opSleep
)

type operation struct {
	kind     opKind
	holding  bool
	addr     uint16
	quantity uint16
	u16      uint16
	u32      uint32
	f32      float32
	duration time.Duration
}

func main() {
	var (
		target     string
		timeout    string
		endianness string
		wordOrder  string
		unitID     uint
	)

	flag.StringVar(&target, "target", "tcp://localhost:1502", "server to connect to")
	flag.StringVar(&timeout, "timeout", "3s", "request timeout")
	flag.StringVar(&endianness, "endianness", "big", "register endianness <big|little>")
	flag.StringVar(&wordOrder, "word-order", "highfirst", "word order for multi-word values <highfirst|hf|lowfirst|lf>")
	flag.UintVar(&unitID, "unit-id", 1, "unit id to address")
	flag.Parse()

	if len(flag.Args()) == 0 {
		fmt.Println("nothing to do.")
		os.Exit(0)
	}

	cfg := &modbus.ClientConfiguration{URL: target}
	var err error
	cfg.Timeout, err = time.ParseDuration(timeout)
	if err != nil {
		fatalf("failed to parse timeout '%s': %v", timeout, err)
	}

	var cEndianness modbus.Endianness
	switch endianness {
	case "big":
		cEndianness = modbus.BIG_ENDIAN
	case "little":
		cEndianness = modbus.LITTLE_ENDIAN
	default:
		fatalf("unknown endianness '%s' (should be big or little)", endianness)
	}

	var cWordOrder modbus.WordOrder
	switch wordOrder {
	case "highfirst", "hf":
		cWordOrder = modbus.HIGH_WORD_FIRST
	case "lowfirst", "lf":
		cWordOrder = modbus.LOW_WORD_FIRST
	default:
		fatalf("unknown word order '%s' (should be one of highfirst, hf, lowfirst, lf)", wordOrder)
	}

	runList := make([]operation, 0, len(flag.Args()))
	for _, arg := range flag.Args() {
		op, err := parseOperation(arg)
		if err != nil {
			fatalf("%v", err)
		}
		runList = append(runList, op)
	}

	client, err := modbus.NewClient(cfg)
	if err != nil {
		fatalf("failed to create client: %v", err)
	}
	if err := client.SetEncoding(cEndianness, cWordOrder); err != nil {
		fatalf("failed to set encoding: %v", err)
	}
	if unitID > 0xff {
		fatalf("unit id %d out of range", unitID)
	}
	client.SetUnitId(uint8(unitID))

	if err := client.Open(); err != nil {
		fatalf("failed to connect to %s: %v", target, err)
	}
	defer client.Close()

	for _, op := range runList {
		runOperation(client, op)
	}
}

func parseOperation(arg string) (operation, error) {
	var o operation

	parts := strings.Split(arg, ":")
	switch parts[0] {
	case "rh", "ri":
		if len(parts) != 3 {
			return o, fmt.Errorf("need 2 arguments after %s (e.g. rh:float32:100+2), got %d", parts[0], len(parts)-1)
		}
		o.holding = parts[0] == "rh"
		switch parts[1] {
		case "uint16":
			o.kind = opReadU16
		case "int16":
			o.kind = opReadI16
		case "uint32":
			o.kind = opReadU32
		case "int32":
			o.kind = opReadI32
		case "float32":
			o.kind = opReadF32
		default:
			return o, fmt.Errorf("unknown register type '%s'", parts[1])
		}
		var err error
		o.addr, o.quantity, err = parseAddressAndQuantity(parts[2])
		if err != nil {
			return o, fmt.Errorf("failed to parse address '%s': %w", parts[2], err)
		}

	case "wr":
		if len(parts) != 4 {
			return o, fmt.Errorf("need 3 arguments after wr (e.g. wr:uint32:100:1234), got %d", len(parts)-1)
		}
		addr, err := strconv.ParseUint(parts[2], 0, 16)
		if err != nil {
			return o, fmt.Errorf("failed to parse address '%s': %w", parts[2], err)
		}
		o.addr = uint16(addr)
		switch parts[1] {
		case "uint16":
			o.kind = opWriteU16
			v, err := strconv.ParseUint(parts[3], 0, 16)
			if err != nil {
				return o, fmt.Errorf("failed to parse '%s' as uint16: %w", parts[3], err)
			}
			o.u16 = uint16(v)
		case "uint32":
			o.kind = opWriteU32
			v, err := strconv.ParseUint(parts[3], 0, 32)
			if err != nil {
				return o, fmt.Errorf("failed to parse '%s' as uint32: %w", parts[3], err)
			}
			o.u32 = uint32(v)
		case "float32":
			o.kind = opWriteF32
			v, err := strconv.ParseFloat(parts[3], 32)
			if err != nil {
				return o, fmt.Errorf("failed to parse '%s' as float32: %w", parts[3], err)
			}
			o.f32 = float32(v)
		default:
			return o, fmt.Errorf("unknown register type '%s'", parts[1])
		}

	case "sleep":
		if len(parts) != 2 {
			return o, fmt.Errorf("need 1 argument after sleep, got %d", len(parts)-1)
		}
		o.kind = opSleep
		var err error
		o.duration, err = time.ParseDuration(parts[1])
		if err != nil {
			return o, fmt.Errorf("failed to parse '%s' as duration: %w", parts[1], err)
		}

	default:
		return o, fmt.Errorf("unsupported command '%s'", parts[0])
	}

	return o, nil
}

// parseAddressAndQuantity splits "addr" or "addr+count" into a start address
// and a zero-based extra count.
func parseAddressAndQuantity(s string) (uint16, uint16, error) {
	addrStr, countStr, found := strings.Cut(s, "+")
	addr, err := strconv.ParseUint(addrStr, 0, 16)
	if err != nil {
		return 0, 0, err
	}
	if !found {
		return uint16(addr), 0, nil
	}
	count, err := strconv.ParseUint(countStr, 0, 16)
	if err != nil {
		return 0, 0, err
	}
	return uint16(addr), uint16(count), nil
}

func runOperation(client *modbus.ModbusClient, o operation) {
	regType := modbus.INPUT_REGISTER
	if o.holding {
		regType = modbus.HOLDING_REGISTER
	}

	switch o.kind {
	case opReadU16, opReadI16:
		res, err := client.ReadRegisters(o.addr, o.quantity+1, regType)
		if err != nil {
			fmt.Printf("failed to read registers: %v\n", err)
			return
		}
		for idx, v := range res {
			if o.kind == opReadU16 {
				fmt.Printf("0x%04x\t%-5v : 0x%04x\t%v\n", o.addr+uint16(idx), o.addr+uint16(idx), v, v)
			} else {
				fmt.Printf("0x%04x\t%-5v : 0x%04x\t%v\n", o.addr+uint16(idx), o.addr+uint16(idx), v, int16(v))
			}
		}

	case opReadU32, opReadI32:
		res, err := client.ReadUint32s(o.addr, o.quantity+1, regType)
		if err != nil {
			fmt.Printf("failed to read registers: %v\n", err)
			return
		}
		for idx, v := range res {
			addr := o.addr + uint16(idx)*2
			if o.kind == opReadU32 {
				fmt.Printf("0x%04x\t%-5v : 0x%08x\t%v\n", addr, addr, v, v)
			} else {
				fmt.Printf("0x%04x\t%-5v : 0x%08x\t%v\n", addr, addr, v, int32(v))
			}
		}

	case opReadF32:
		res, err := client.ReadFloat32s(o.addr, o.quantity+1, regType)
		if err != nil {
			fmt.Printf("failed to read registers: %v\n", err)
			return
		}
		for idx, v := range res {
			addr := o.addr + uint16(idx)*2
			fmt.Printf("0x%04x\t%-5v : %f\n", addr, addr, v)
		}

	case opWriteU16:
		if err := client.WriteRegister(o.addr, o.u16); err != nil {
			fmt.Printf("failed to write register: %v\n", err)
			return
		}
		fmt.Printf("wrote 0x%04x at 0x%04x\n", o.u16, o.addr)

	case opWriteU32:
		if err := client.WriteUint32(o.addr, o.u32); err != nil {
			fmt.Printf("failed to write registers: %v\n", err)
			return
		}
		fmt.Printf("wrote 0x%08x at 0x%04x\n", o.u32, o.addr)

	case opWriteF32:
		if err := client.WriteFloat32(o.addr, o.f32); err != nil {
			fmt.Printf("failed to write registers: %v\n", err)
			return
		}
		fmt.Printf("wrote %f at 0x%04x\n", o.f32, o.addr)

	case opSleep:
		time.Sleep(o.duration)
	}
}

func fatalf(format string, args ...any) {
	fmt.Printf(format+"\n", args...)
	os.Exit(1)
}
