package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/gorilla/websocket"

	"droidshell"
)

func main() {
	var (
		wsURL = flag.String("ws", "ws://127.0.0.1:3002/ws/events", "droidshell monitor websocket URL")
		kinds = flag.String("kinds", "", "Comma-separated event kinds to show (e.g. 'dpad,key'); empty shows all")
		raw   = flag.Bool("raw", false, "Print frames as received")
	)
	flag.Parse()

	u, err := url.Parse(*wsURL)
	if err != nil {
		log.Fatalf("invalid websocket URL: %v", err)
	}

	filter, err := parseKinds(*kinds)
	if err != nil {
		log.Fatalf("invalid -kinds: %v", err)
	}

	// Handle shutdown
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)

	d := websocket.Dialer{
		HandshakeTimeout: 5 * time.Second,
	}

	log.Printf("connecting to %s...", u.String())
	conn, _, err := d.Dial(u.String(), nil)
	if err != nil {
		log.Fatalf("failed to connect: %v", err)
	}
	defer conn.Close()

	log.Printf("connected! (press Ctrl+C to exit)")

	// Mutex to protect concurrent writes to websocket
	var writeMu sync.Mutex

	conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})
	// The monitor pings every 20s; answering them keeps our deadline fresh.
	conn.SetPingHandler(func(data string) error {
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		writeMu.Lock()
		defer writeMu.Unlock()
		return conn.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(5*time.Second))
	})

	pingTicker := time.NewTicker(30 * time.Second)
	defer pingTicker.Stop()

	go func() {
		for range pingTicker.C {
			writeMu.Lock()
			err := conn.WriteMessage(websocket.PingMessage, nil)
			writeMu.Unlock()
			if err != nil {
				log.Printf("ping failed: %v", err)
				return
			}
		}
	}()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			messageType, message, err := conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					log.Printf("websocket error: %v", err)
				}
				return
			}
			if messageType != websocket.TextMessage {
				fmt.Printf("[BINARY] %d bytes\n", len(message))
				continue
			}
			if *raw {
				fmt.Println(string(message))
				continue
			}
			if line, ok := formatFrame(message, filter); ok {
				fmt.Println(line)
			}
		}
	}()

	select {
	case <-sigc:
		log.Printf("shutting down...")
		writeMu.Lock()
		err := conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		writeMu.Unlock()
		if err != nil {
			log.Printf("error closing connection: %v", err)
		}
	case <-done:
		log.Printf("connection closed")
	}
}

// parseKinds turns "dpad,key" into a kind filter. An empty string means no
// filter.
func parseKinds(s string) (map[droidshell.Kind]bool, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	out := make(map[droidshell.Kind]bool)
	for _, name := range strings.Split(s, ",") {
		k, err := droidshell.ParseKind(strings.TrimSpace(name))
		if err != nil {
			return nil, err
		}
		out[k] = true
	}
	return out, nil
}

// formatFrame renders one monitor frame as a log line. It reports false for
// events hidden by the filter.
func formatFrame(message []byte, filter map[droidshell.Kind]bool) (string, bool) {
	var env droidshell.Envelope
	if err := json.Unmarshal(message, &env); err != nil {
		return "[TEXT] " + string(message), true
	}

	ts := ""
	if env.Ts != nil {
		ts = env.Ts.Local().Format("15:04:05.000") + " "
	}

	switch env.Type {
	case "monitor_init":
		var mi droidshell.MonitorInit
		if err := json.Unmarshal(env.Data, &mi); err != nil {
			break
		}
		return fmt.Sprintf("%s[INIT] client=%s state=%s", ts, mi.ClientID, mi.State), true

	case "lifecycle":
		var lc droidshell.LifecycleChange
		if err := json.Unmarshal(env.Data, &lc); err != nil {
			break
		}
		return fmt.Sprintf("%s[LIFECYCLE] %s -> %s", ts, lc.From, lc.To), true

	case "event":
		ev, err := droidshell.UnmarshalEvent(env.Data)
		if err != nil {
			break
		}
		if filter != nil && !filter[ev.Kind] {
			return "", false
		}
		return fmt.Sprintf("%s[EVENT] %s", ts, ev), true
	}

	return fmt.Sprintf("%s[%s] %s", ts, strings.ToUpper(env.Type), string(env.Data)), true
}
