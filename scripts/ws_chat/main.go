package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/vovakirdan/roomchat-server/internal/proto"
)

func main() {
	if err := run(); err != nil {
		log.Printf("ws_chat: %v", err)
		os.Exit(1)
	}
}

func run() error {
	server := flag.String("server", "http://localhost:8080", "server base URL")
	user := flag.String("user", "cli-user", "username")
	room := flag.String("room", "", "room code to join; a new room is created when empty")
	flag.Parse()

	baseCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(baseCtx)
	defer cancel()

	code := strings.ToUpper(strings.TrimSpace(*room))
	if code == "" {
		created, err := createRoom(ctx, *server, *user)
		if err != nil {
			return err
		}
		code = created
		fmt.Printf("Created room %s\n", code)
	}

	wsURL := strings.Replace(strings.TrimRight(*server, "/"), "http", "ws", 1) + "/ws/" + code
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	if err := send(ctx, conn, proto.InboundTypeJoin, proto.JoinData{Username: *user}); err != nil {
		return err
	}

	fmt.Printf("Connected to %s as %s in room %s\n", *server, *user, code)
	fmt.Println("Type messages and press Enter to send. /leave to leave. Ctrl+C to exit.")

	go func() {
		defer cancel()
		readLoop(ctx, conn)
	}()

	writeLoop(ctx, conn)

	stop()
	cancel()
	_ = conn.Close(websocket.StatusNormalClosure, "bye")
	return nil
}

func createRoom(ctx context.Context, server, host string) (string, error) {
	body, err := json.Marshal(map[string]string{"hostName": host})
	if err != nil {
		return "", fmt.Errorf("marshal create: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(server, "/")+"/api/chatroom/create", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("create room: %w", err)
	}
	defer resp.Body.Close()

	var out struct {
		RoomCode string `json:"roomCode"`
		Error    string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode create response: %w", err)
	}
	if resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("create room: %s (%d)", out.Error, resp.StatusCode)
	}
	return out.RoomCode, nil
}

func send(ctx context.Context, conn *websocket.Conn, typ string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", typ, err)
	}
	if err := wsjson.Write(ctx, conn, proto.Inbound{Type: typ, Data: payload}); err != nil {
		return fmt.Errorf("send %s: %w", typ, err)
	}
	return nil
}

// outbound mirrors proto.Outbound with undecoded data.
type outbound struct {
	Type  string          `json:"type"`
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
	Error *proto.Error    `json:"error"`
}

func readLoop(ctx context.Context, conn *websocket.Conn) {
	for {
		var out outbound
		if err := wsjson.Read(ctx, conn, &out); err != nil {
			// Treat expected shutdowns quietly.
			if errors.Is(err, context.Canceled) {
				return
			}
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				return
			}
			log.Printf("read error: %v", err)
			return
		}

		if out.Error != nil {
			fmt.Printf("error %s: %s\n", out.Error.Code, out.Error.Msg)
			continue
		}

		switch out.Event {
		case proto.EventMessage:
			var msg proto.ChatMessage
			if err := json.Unmarshal(out.Data, &msg); err != nil {
				log.Printf("unmarshal message: %v", err)
				continue
			}
			printMessage(msg)
		case proto.EventHistory:
			var history proto.History
			if err := json.Unmarshal(out.Data, &history); err != nil {
				log.Printf("unmarshal history: %v", err)
				continue
			}
			for _, msg := range history.Messages {
				printMessage(msg)
			}
		case proto.EventJoined:
			var joined proto.Joined
			if err := json.Unmarshal(out.Data, &joined); err != nil {
				log.Printf("unmarshal joined: %v", err)
				continue
			}
			fmt.Printf("[room %s] hosted by %s\n", joined.RoomCode, joined.HostName)
		default:
			fmt.Printf("event=%s data=%s\n", out.Event, out.Data)
		}
	}
}

func printMessage(msg proto.ChatMessage) {
	if msg.Type == "CHAT" {
		fmt.Printf("[%s] %s: %s\n", msg.RoomCode, msg.Username, msg.Content)
		return
	}
	fmt.Printf("[room %s] %s\n", msg.RoomCode, msg.Content)
}

func writeLoop(ctx context.Context, conn *websocket.Conn) {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			text := strings.TrimSpace(line)
			if text == "" {
				continue
			}
			if text == "/leave" {
				if err := send(ctx, conn, proto.InboundTypeLeave, struct{}{}); err != nil {
					log.Printf("%v", err)
				}
				return
			}
			if err := send(ctx, conn, proto.InboundTypeMsg, proto.MsgData{Content: text}); err != nil {
				log.Printf("%v", err)
				return
			}
		}
	}
}
