package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/valyala/fasthttp"
	"nhooyr.io/websocket"

	"github.com/park285/cheese-ugi/internal/timecontrol"
	"github.com/park285/cheese-ugi/internal/ugiclient"
	"github.com/park285/cheese-ugi/pkg/ugidto"
)

// ugicheck plays a short scripted exchange against an engine binary
// (UGI_ENGINE_PATH) or a websocket endpoint (UGI_WS_URL), and optionally
// reads the status endpoint (UGI_STATUS_URL).
func main() {
	enginePath := strings.TrimSpace(os.Getenv("UGI_ENGINE_PATH"))
	wsURL := strings.TrimSpace(os.Getenv("UGI_WS_URL"))
	statusURL := strings.TrimSpace(os.Getenv("UGI_STATUS_URL"))
	dialect := strings.TrimSpace(os.Getenv("UGI_DIALECT"))
	if dialect == "" {
		dialect = "ugi"
	}
	if enginePath == "" && wsURL == "" {
		log.Fatal("UGI_ENGINE_PATH or UGI_WS_URL is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var (
		client *ugiclient.Client
		err    error
	)
	if enginePath != "" {
		client, err = ugiclient.Start(ctx, enginePath)
	} else {
		client, err = dialWS(ctx, wsURL)
	}
	if err != nil {
		log.Fatalf("connect: %v", err)
	}
	defer client.Close()

	info, err := client.Handshake(ctx, dialect)
	if err != nil {
		log.Fatalf("handshake: %v", err)
	}
	log.Printf("%sok: name=%q author=%q", dialect, info.Name, info.Author)

	if err := client.EnsureReady(ctx); err != nil {
		log.Fatalf("isready: %v", err)
	}

	moves := []string{"e2e4", "e7e5"}
	controls := []timecontrol.TimeControl{
		timecontrol.Depth{Plies: 2},
		timecontrol.MoveTime{MS: 200},
		timecontrol.Timed{Players: []timecontrol.PlayerTime{{TimeMS: 10000, IncMS: 100}, {TimeMS: 10000, IncMS: 100}}},
	}
	for _, tc := range controls {
		start := time.Now()
		resp, err := client.Search(ctx, ugiclient.SearchRequest{Moves: moves, TimeControl: tc})
		if err != nil {
			log.Fatalf("go %s: %v", tc, err)
		}
		log.Printf("go %s -> bestmove %s (%d info lines, %s)", tc, resp.BestMove, len(resp.Infos), time.Since(start).Round(time.Millisecond))
	}

	for _, q := range []string{"gameover", "p1turn", "result"} {
		v, err := client.Query(ctx, q)
		if err != nil {
			log.Fatalf("query %s: %v", q, err)
		}
		log.Printf("query %s -> %s", q, v)
	}

	if statusURL != "" {
		if err := checkStatus(statusURL); err != nil {
			log.Printf("status error: %v", err)
		}
	}
}

func dialWS(ctx context.Context, url string) (*ugiclient.Client, error) {
	dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	conn, _, err := websocket.Dial(dialCtx, url, &websocket.DialOptions{
		CompressionMode: websocket.CompressionNoContextTakeover,
	})
	if err != nil {
		return nil, err
	}
	stream := websocket.NetConn(context.Background(), conn, websocket.MessageText)
	return ugiclient.New(stream, stream), nil
}

func checkStatus(base string) error {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer func() {
		fasthttp.ReleaseRequest(req)
		fasthttp.ReleaseResponse(resp)
	}()
	req.Header.SetMethod(fasthttp.MethodGet)
	req.SetRequestURI(strings.TrimRight(base, "/") + "/sessions")

	client := &fasthttp.Client{ReadTimeout: 5 * time.Second, WriteTimeout: 5 * time.Second}
	if err := client.DoTimeout(req, resp, 5*time.Second); err != nil {
		return err
	}
	if resp.StatusCode() != fasthttp.StatusOK {
		return fmt.Errorf("status %d", resp.StatusCode())
	}
	var list ugidto.SessionList
	if err := json.Unmarshal(resp.Body(), &list); err != nil {
		return fmt.Errorf("decode sessions: %w", err)
	}
	log.Printf("status: %d live sessions", len(list.Sessions))
	for _, s := range list.Sessions {
		log.Printf("  %s %s dialect=%s since %s", s.ID, s.Remote, s.Dialect, s.StartedAt.Format(time.RFC3339))
	}
	return nil
}
