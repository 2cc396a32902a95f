package cmd

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/streamreact/companion/internal/protocol"
)

var viewerOpts struct {
	addr  string
	token string
}

var viewerCmd = &cobra.Command{
	Use:   "viewer",
	Short: "Join the live channel from the terminal",
	Long: `Connects to the live channel, authenticates when --token is given and
sends every line typed as a chat message.

Commands:
  /donate <amount> [message]
  /join <room>
  /leave <room>
  /quit`,
	RunE: runViewer,
}

func init() {
	f := viewerCmd.Flags()
	f.StringVar(&viewerOpts.addr, "addr", "ws://localhost:3000/ws", "live channel address")
	f.StringVar(&viewerOpts.token, "token", "", "bearer token from the token command")
}

// viewerClient is a thin live channel client.
type viewerClient struct {
	conn *websocket.Conn
	out  io.Writer
}

func dialViewer(addr string, out io.Writer) (*viewerClient, error) {
	conn, _, err := websocket.DefaultDialer.Dial(addr, nil)
	if err != nil {
		return nil, fmt.Errorf("dial: %w", err)
	}
	return &viewerClient{conn: conn, out: out}, nil
}

func (c *viewerClient) send(event string, data interface{}) error {
	return c.conn.WriteJSON(protocol.Outbound{Event: event, Data: data})
}

// readLoop prints incoming frames until the connection closes.
func (c *viewerClient) readLoop(done chan<- struct{}) {
	defer close(done)
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				fmt.Fprintf(c.out, "\nconnection closed: %v\n", err)
			}
			return
		}
		fmt.Fprintln(c.out, formatFrame(data))
	}
}

func formatFrame(data []byte) string {
	var env protocol.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return "<< " + string(data)
	}
	var pretty interface{}
	if err := json.Unmarshal(env.Data, &pretty); err != nil {
		return fmt.Sprintf("<< [%s]", env.Event)
	}
	body, _ := json.MarshalIndent(pretty, "   ", "  ")
	return fmt.Sprintf("<< [%s] %s", env.Event, body)
}

// command turns one input line into an outbound event.
func command(line string) (event string, data interface{}, err error) {
	if !strings.HasPrefix(line, "/") {
		return protocol.EventChatMessage, map[string]string{"content": line}, nil
	}

	fields := strings.Fields(line)
	switch fields[0] {
	case "/donate":
		if len(fields) < 2 {
			return "", nil, errors.New("usage: /donate <amount> [message]")
		}
		amount, err := decimal.NewFromString(fields[1])
		if err != nil {
			return "", nil, fmt.Errorf("bad amount %q", fields[1])
		}
		payload := map[string]interface{}{"amount": amount}
		if len(fields) > 2 {
			payload["message"] = strings.Join(fields[2:], " ")
		}
		return protocol.EventDonation, payload, nil
	case "/join", "/leave":
		if len(fields) != 2 {
			return "", nil, fmt.Errorf("usage: %s <room>", fields[0])
		}
		event := protocol.EventJoinRoom
		if fields[0] == "/leave" {
			event = protocol.EventLeaveRoom
		}
		return event, map[string]string{"roomId": fields[1]}, nil
	default:
		return "", nil, fmt.Errorf("unknown command %s", fields[0])
	}
}

func runViewer(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Connecting to %s...\n", viewerOpts.addr)

	client, err := dialViewer(viewerOpts.addr, out)
	if err != nil {
		return err
	}
	defer client.conn.Close()

	done := make(chan struct{})
	go client.readLoop(done)

	if viewerOpts.token != "" {
		if err := client.send(protocol.EventAuthenticate, viewerOpts.token); err != nil {
			return fmt.Errorf("authenticate: %w", err)
		}
	} else {
		fmt.Fprintln(out, "No token given: you can watch but not chat or donate.")
	}
	fmt.Fprintln(out, "Type a message and press Enter. /quit to exit.")

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(cmd.InOrStdin())
		for scanner.Scan() {
			lines <- strings.TrimSpace(scanner.Text())
		}
	}()

	ctx := cmd.Context()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-done:
			return nil
		case line, ok := <-lines:
			if !ok || line == "/quit" {
				_ = client.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return nil
			}
			if line == "" {
				continue
			}
			event, data, err := command(line)
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				continue
			}
			if err := client.send(event, data); err != nil {
				return fmt.Errorf("send: %w", err)
			}
		}
	}
}
