// mockdev simulates the ESP32 UART reference device over TCP, for
// developing against the tools without hardware:
//
//	mockdev              # listen on :9999
//	mockdev --addr :7777
//
// Point uartdemo or uarttest at tcp://localhost:9999.
package main

import (
	"flag"
	"fmt"
	"net"
	"os"

	"uartref/driver"
)

func main() {
	addr := flag.String("addr", ":9999", "TCP listen address")
	flag.Parse()

	listener, err := net.Listen("tcp", *addr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to start mock device: %v\n", err)
		os.Exit(1)
	}
	defer listener.Close()

	fmt.Println("=== UART Reference Mock Device ===")
	fmt.Printf("Listening on TCP %s\n", *addr)
	fmt.Println("Waiting for connections...")

	for {
		conn, err := listener.Accept()
		if err != nil {
			fmt.Println("Accept error:", err)
			continue
		}
		fmt.Println("[mockdev] Client connected:", conn.RemoteAddr())
		go handleConnection(conn)
	}
}

// handleConnection speaks the device side of the line protocol: boot
// banner on connect, then one reply line per completed command line.
func handleConnection(conn net.Conn) {
	defer conn.Close()

	dev := driver.NewDevice(nil)
	if _, err := conn.Write([]byte(dev.Greeting())); err != nil {
		return
	}

	buf := make([]byte, 1024)
	for {
		n, err := conn.Read(buf)
		if err != nil {
			fmt.Println("[mockdev] Connection closed")
			return
		}

		for _, reply := range dev.Feed(buf[:n]) {
			if _, err := conn.Write([]byte(reply)); err != nil {
				return
			}
		}
	}
}
