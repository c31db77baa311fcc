//go:build !rp2040 && !rp2350

// panel-host forwards console commands from the terminal to a board over a
// serial link and echoes whatever the firmware prints back.
//
//	panel-host -device /dev/ttyACM0 -baud 115200
package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/tarm/serial"
)

func main() {
	device := flag.String("device", "/dev/ttyACM0", "serial device of the board")
	baud := flag.Int("baud", 115200, "line speed")
	flag.Parse()

	port, err := serial.OpenPort(&serial.Config{Name: *device, Baud: *baud})
	if err != nil {
		fmt.Fprintln(os.Stderr, "open:", err)
		os.Exit(1)
	}
	defer port.Close()

	// Board -> terminal.
	go func() {
		_, _ = io.Copy(os.Stdout, port)
	}()

	// Terminal -> board, line at a time so partial edits never reach the
	// firmware parser.
	in := bufio.NewScanner(os.Stdin)
	for in.Scan() {
		if _, err := port.Write(append(in.Bytes(), '\n')); err != nil {
			fmt.Fprintln(os.Stderr, "write:", err)
			os.Exit(1)
		}
	}
	if err := in.Err(); err != nil {
		fmt.Fprintln(os.Stderr, "stdin:", err)
		os.Exit(1)
	}
}
