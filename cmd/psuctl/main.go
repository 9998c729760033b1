// psuctl is a small Modbus-TCP master for remote control and monitoring of
// the power supply: it reads the status registers and writes the
// remote-enable coil and setpoint holding registers.
//
// Usage:
//
//	psuctl -addr 10.0.0.5:502 status
//	psuctl -addr 10.0.0.5:502 on
//	psuctl -addr 10.0.0.5:502 power 1.2
//	psuctl -addr 10.0.0.5:502 vlim 5.0
//	psuctl -addr 10.0.0.5:502 off
package main

import (
	"encoding/binary"
	"flag"
	"fmt"
	"log"
	"math"
	"os"
	"strconv"
	"time"

	"github.com/goburrow/modbus"

	"github.com/msulab/heaterpsu/pkg/registers"
)

func main() {
	addr := flag.String("addr", "localhost:502", "device address")
	unit := flag.Uint("unit", 1, "modbus unit id")
	timeout := flag.Duration("timeout", 5*time.Second, "request timeout")
	flag.Parse()

	if flag.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "usage: psuctl [flags] status|on|off|power W|vlim V")
		os.Exit(2)
	}

	handler := modbus.NewTCPClientHandler(*addr)
	handler.Timeout = *timeout
	handler.SlaveId = byte(*unit)
	if err := handler.Connect(); err != nil {
		log.Fatalf("psuctl: connect %s: %v", *addr, err)
	}
	defer handler.Close()
	client := modbus.NewClient(handler)

	if err := execute(client, flag.Args()); err != nil {
		log.Fatalf("psuctl: %v", err)
	}
}

func execute(client modbus.Client, args []string) error {
	switch cmd := args[0]; cmd {
	case "status":
		return printStatus(client)

	case "on":
		_, err := client.WriteSingleCoil(registers.CoilRemoteEnable, 0xFF00)
		return err

	case "off":
		_, err := client.WriteSingleCoil(registers.CoilRemoteEnable, 0x0000)
		return err

	case "power":
		return writeSetpoint(client, registers.HoldPowerSetpoint, args)

	case "vlim":
		return writeSetpoint(client, registers.HoldVLimSetpoint, args)

	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func writeSetpoint(client modbus.Client, addr uint16, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("%s needs a value", args[0])
	}
	v, err := strconv.ParseFloat(args[1], 32)
	if err != nil {
		return fmt.Errorf("bad value %q: %w", args[1], err)
	}
	buf := make([]byte, 4)
	binary.BigEndian.PutUint32(buf, math.Float32bits(float32(v)))
	_, err = client.WriteMultipleRegisters(addr, 2, buf)
	return err
}

func printStatus(client modbus.Client) error {
	discretes, err := client.ReadDiscreteInputs(registers.DiscreteOutputOn, 1)
	if err != nil {
		return fmt.Errorf("read discretes: %w", err)
	}
	coils, err := client.ReadCoils(registers.CoilRemoteEnable, 1)
	if err != nil {
		return fmt.Errorf("read coils: %w", err)
	}
	inputs, err := client.ReadInputRegisters(0, registers.InputDACVLim+2)
	if err != nil {
		return fmt.Errorf("read input registers: %w", err)
	}

	fmt.Printf("output on:     %v\n", discretes[0]&1 != 0)
	fmt.Printf("remote enable: %v\n", coils[0]&1 != 0)
	fmt.Printf("power:         %.3f W\n", floatAt(inputs, registers.InputPower))
	fmt.Printf("vlim:          %.3f V\n", floatAt(inputs, registers.InputVLim))
	fmt.Printf("dac vpwr:      %.3f V\n", floatAt(inputs, registers.InputVPwr))
	fmt.Printf("dac vlim:      %.3f V\n", floatAt(inputs, registers.InputDACVLim))
	return nil
}

// floatAt decodes a float32 stored high word first at a register slot.
func floatAt(data []byte, slot int) float32 {
	off := slot * 2
	return math.Float32frombits(binary.BigEndian.Uint32(data[off : off+4]))
}
