// wsprobe connects to a lamp server's push channel and prints every frame
// it receives, decoded the way the dashboard decodes them.
package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"time"

	"github.com/gorilla/websocket"
	"github.com/room4-2/lelamp-dashboard/messages"
)

func main() {
	// Flags
	serverURL := flag.String("server", "ws://localhost:8000/ws", "Push channel URL")
	pingEvery := flag.Duration("ping", 30*time.Second, "Keepalive ping period, 0 disables")
	timeout := flag.Duration("timeout", 0, "Exit after this long, 0 waits for Ctrl+C")
	flag.Parse()

	log.Printf("🔌 Connecting to %s...", *serverURL)

	conn, _, err := websocket.DefaultDialer.Dial(*serverURL, nil)
	if err != nil {
		log.Fatalf("Failed to connect: %v", err)
	}
	defer conn.Close()

	log.Println("✅ Connected!")

	// Handle interrupt
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)

	done := make(chan struct{})

	// Read frames from server
	go func() {
		defer close(done)
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				log.Println("Read error:", err)
				return
			}
			printFrame(data)
		}
	}()

	var ping <-chan time.Time
	if *pingEvery > 0 {
		ticker := time.NewTicker(*pingEvery)
		defer ticker.Stop()
		ping = ticker.C
	}

	var deadline <-chan time.Time
	if *timeout > 0 {
		deadline = time.After(*timeout)
	}

	for {
		select {
		case <-ping:
			data, err := messages.Marshal(messages.NewPingMessage())
			if err != nil {
				log.Fatalf("Failed to encode ping: %v", err)
			}
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Printf("Send error: %v", err)
				return
			}
		case <-done:
			log.Println("Connection closed")
			return
		case <-interrupt:
			log.Println("\n👋 Interrupted, closing...")
			conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case <-deadline:
			log.Println("⏰ Timeout reached")
			return
		}
	}
}

func printFrame(data []byte) {
	ev, err := messages.DecodeFrame(data)
	switch {
	case errors.Is(err, messages.ErrUnknownFrame):
		log.Printf("❔ Unknown frame: %s", data)
		return
	case err != nil:
		log.Printf("❌ Malformed frame: %v", err)
		return
	}

	switch e := ev.(type) {
	case messages.InitEvent:
		color := "none"
		if e.Color != nil {
			color = fmt.Sprintf("[%d %d %d]", e.Color.R, e.Color.G, e.Color.B)
		}
		log.Printf("📝 init session=%s hardware=%v rgb=%s", e.SessionID, e.Hardware, color)
	case messages.RGBEvent:
		log.Printf("🎨 rgb [%d %d %d]", e.Color.R, e.Color.G, e.Color.B)
	case messages.NewConversationEvent:
		log.Printf("👤 %s", e.UserInput)
		log.Printf("🤖 %s", e.AIResponse)
	case messages.PongEvent:
		log.Println("🏓 pong")
	}
}
