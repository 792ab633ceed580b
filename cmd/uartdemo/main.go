// uartdemo is an interactive client for the ESP32 UART reference device.
// It runs a fixed greeting sequence, then drops into a prompt where each
// line of input is sent as one command and the reply is printed.
//
// Usage:
//
//	uartdemo /dev/ttyUSB0
//	uartdemo COM3
//	uartdemo tcp://localhost:9999
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ergochat/readline"

	"uartref/driver"
	"uartref/protocol"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: uartdemo <serial-port>")
		fmt.Fprintln(os.Stderr, "Example: uartdemo /dev/ttyUSB0")
		return 1
	}
	portName := args[0]
	baud := 115200

	fmt.Printf("Connecting to %s at %d baud...\n", portName, baud)

	port, err := driver.Open(portName, baud)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	defer port.Close()

	fmt.Print("Connected!\n\n")

	// Let the device finish booting, then drop its boot banner.
	time.Sleep(protocol.SettleDelay)
	port.ResetInputBuffer()

	ex := protocol.NewExchanger(port, protocol.DefaultTimeout)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Greeting sequence: the known commands plus one that is not.
	for _, cmd := range []string{protocol.CmdPing, protocol.CmdVersion, protocol.CmdUptime, "INVALID"} {
		if ctx.Err() != nil {
			fmt.Println("\nExiting...")
			return 0
		}
		fmt.Printf("Sending: %s\n", cmd)
		resp, err := ex.Exchange(cmd)
		if err != nil {
			fmt.Printf("Received: (%v)\n\n", err)
			continue
		}
		fmt.Printf("Received: %s\n\n", resp)
	}

	line := strings.Repeat("-", 50)
	fmt.Println(line)
	fmt.Println("Interactive mode (Ctrl+C to exit)")
	fmt.Println(line)

	if err := repl(ctx, ex); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	fmt.Println("Disconnected")
	return 0
}

// repl reads operator commands until interrupt or EOF. Blank lines are
// skipped; anything else is sent verbatim as one exchange.
func repl(ctx context.Context, ex *protocol.Exchanger) error {
	rl, err := readline.NewFromConfig(&readline.Config{
		Prompt:                 "\nEnter command: ",
		DisableAutoSaveHistory: true,
	})
	if err != nil {
		// No usable terminal; fall back is not worth it for a demo tool.
		return fmt.Errorf("failed to initialize input: %v", err)
	}
	defer rl.Close()

	for {
		if ctx.Err() != nil {
			fmt.Println("\nExiting...")
			return nil
		}

		input, err := rl.Readline()
		if err == readline.ErrInterrupt || err == io.EOF {
			fmt.Println("\nExiting...")
			return nil
		}
		if err != nil {
			return err
		}

		cmd := strings.TrimSpace(input)
		if cmd == "" {
			continue
		}
		rl.SaveToHistory(cmd)

		resp, err := ex.Exchange(cmd)
		if err != nil {
			fmt.Printf("Response: (%v)\n", err)
			continue
		}
		fmt.Printf("Response: %s\n", resp)
	}
}
