package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/vovakirdan/roomchat-server/internal/proto"
)

func main() {
	if err := run(); err != nil {
		log.Printf("ws_smoke: %v", err)
		os.Exit(1)
	}
}

func run() error {
	server := flag.String("server", "http://localhost:8080", "server base URL")
	user := flag.String("user", "tester", "username to join with")
	text := flag.String("text", "hello from smoke test", "message text to send")
	timeout := flag.Duration("timeout", 5*time.Second, "total timeout for the run")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	base := strings.TrimRight(*server, "/")

	body, err := json.Marshal(map[string]string{"hostName": *user})
	if err != nil {
		return fmt.Errorf("marshal create: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, base+"/api/chatroom/create", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("create room: %w", err)
	}
	var created struct {
		RoomCode string `json:"roomCode"`
	}
	decodeErr := json.NewDecoder(resp.Body).Decode(&created)
	resp.Body.Close()
	if decodeErr != nil {
		return fmt.Errorf("decode create response: %w", decodeErr)
	}
	fmt.Printf("Created room %s (status %d)\n", created.RoomCode, resp.StatusCode)

	conn, _, err := websocket.Dial(ctx, strings.Replace(base, "http", "ws", 1)+"/ws/"+created.RoomCode, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	mustSend := func(typ string, data any) error {
		payload, err := json.Marshal(data)
		if err != nil {
			return fmt.Errorf("marshal %s: %w", typ, err)
		}
		if err := wsjson.Write(ctx, conn, proto.Inbound{Type: typ, Data: payload}); err != nil {
			return fmt.Errorf("send: %w", err)
		}
		return nil
	}

	if err := mustSend(proto.InboundTypeJoin, proto.JoinData{Username: *user}); err != nil {
		return err
	}
	if err := mustSend(proto.InboundTypeMsg, proto.MsgData{Content: *text}); err != nil {
		return err
	}

	for {
		var outbound struct {
			Type  string          `json:"type"`
			Event string          `json:"event"`
			Data  json.RawMessage `json:"data"`
			Error *proto.Error    `json:"error"`
		}
		if err := wsjson.Read(ctx, conn, &outbound); err != nil {
			return fmt.Errorf("read: %w", err)
		}

		fmt.Printf("Received outbound: type=%s", outbound.Type)
		if outbound.Event != "" {
			fmt.Printf(" event=%s", outbound.Event)
		}
		fmt.Println()

		if outbound.Error != nil {
			return fmt.Errorf("server error %s: %s", outbound.Error.Code, outbound.Error.Msg)
		}

		if outbound.Event != proto.EventMessage {
			continue
		}
		var msg proto.ChatMessage
		if err := json.Unmarshal(outbound.Data, &msg); err != nil {
			fmt.Printf("Raw data: %s\n", string(outbound.Data))
			return fmt.Errorf("unmarshal message: %w", err)
		}
		fmt.Printf("Message: room=%s user=%s type=%s content=%q ts=%s\n", msg.RoomCode, msg.Username, msg.Type, msg.Content, msg.Timestamp)
		if msg.Type == "CHAT" {
			return mustSend(proto.InboundTypeLeave, struct{}{})
		}
	}
}
