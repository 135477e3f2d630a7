// Package ugiclient drives a UGI/UCI/UAI engine from the controller side.
package ugiclient

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/park285/cheese-ugi/internal/engine"
	"github.com/park285/cheese-ugi/internal/timecontrol"
)

const (
	defaultReadyTimeout = 4 * time.Second
	maxLineBytes        = 1 << 20
)

// ErrClosed is returned when the engine output ends. The last unrecognised
// line, usually a diagnostic, is included in the wrapping error.
var ErrClosed = errors.New("engine output closed")

type Client struct {
	cmd  *exec.Cmd
	in   io.WriteCloser
	mu   sync.Mutex
	busy sync.Mutex

	lines    chan string
	readErr  error
	lastLine string
}

// Start launches an engine binary and talks to it over stdin/stdout.
func Start(ctx context.Context, binaryPath string, args ...string) (*Client, error) {
	cmd := exec.CommandContext(ctx, binaryPath, args...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("create stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		stdin.Close()
		return nil, fmt.Errorf("create stdout pipe: %w", err)
	}
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		stdin.Close()
		stdout.Close()
		return nil, fmt.Errorf("start engine: %w", err)
	}
	c := New(stdout, stdin)
	c.cmd = cmd
	return c, nil
}

// New wraps an already connected stream.
func New(r io.Reader, w io.WriteCloser) *Client {
	c := &Client{in: w, lines: make(chan string, 64)}
	go c.pump(r)
	return c
}

func (c *Client) pump(r io.Reader) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 4096), maxLineBytes)
	for sc.Scan() {
		c.lines <- strings.TrimSpace(sc.Text())
	}
	c.readErr = sc.Err()
	close(c.lines)
}

// Handshake sends the dialect token and collects the engine identity.
func (c *Client) Handshake(ctx context.Context, dialect string) (engine.EngineInfo, error) {
	c.busy.Lock()
	defer c.busy.Unlock()

	hctx, cancel := context.WithTimeout(ctx, defaultReadyTimeout)
	defer cancel()
	if err := c.send(dialect); err != nil {
		return engine.EngineInfo{}, fmt.Errorf("send %s: %w", dialect, err)
	}
	var info engine.EngineInfo
	for {
		line, err := c.readLine(hctx)
		if err != nil {
			return engine.EngineInfo{}, fmt.Errorf("wait %sok: %w", dialect, err)
		}
		switch {
		case strings.HasPrefix(line, "id name "):
			info.Name = strings.TrimPrefix(line, "id name ")
		case strings.HasPrefix(line, "id author "):
			info.Author = strings.TrimPrefix(line, "id author ")
		case line == dialect+"ok":
			return info, nil
		default:
			c.lastLine = line
		}
	}
}

func (c *Client) EnsureReady(ctx context.Context) error {
	c.busy.Lock()
	defer c.busy.Unlock()

	readyCtx, cancel := context.WithTimeout(ctx, defaultReadyTimeout)
	defer cancel()
	if err := c.send("isready"); err != nil {
		return fmt.Errorf("send isready: %w", err)
	}
	if err := c.awaitLine(readyCtx, "readyok"); err != nil {
		return fmt.Errorf("wait readyok: %w", err)
	}
	return nil
}

type SearchRequest struct {
	// FEN is empty for the start position.
	FEN         string
	Moves       []string
	TimeControl timecontrol.TimeControl
}

type SearchResponse struct {
	BestMove string
	Infos    []engine.Info
}

// Search sends position and go, then waits for bestmove. Infinite searches
// only end when ctx is done, which sends stop.
func (c *Client) Search(ctx context.Context, req SearchRequest) (SearchResponse, error) {
	c.busy.Lock()
	defer c.busy.Unlock()

	if err := c.send(BuildPositionCommand(req.FEN, req.Moves)); err != nil {
		return SearchResponse{}, fmt.Errorf("send position: %w", err)
	}
	goCmd := "go"
	if req.TimeControl != nil {
		goCmd = strings.Join(append([]string{"go"}, req.TimeControl.Args()...), " ")
	}
	if err := c.send(goCmd); err != nil {
		return SearchResponse{}, fmt.Errorf("send go: %w", err)
	}

	searchCtx := ctx
	if d, ok := searchTimeout(req.TimeControl); ok {
		var cancel context.CancelFunc
		searchCtx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}

	var resp SearchResponse
	stopped := false
	for {
		line, err := c.readLine(searchCtx)
		if err != nil && !stopped && searchCtx.Err() != nil {
			// Ask for the best move so far and keep reading.
			stopped = true
			if serr := c.send("stop"); serr != nil {
				return SearchResponse{}, fmt.Errorf("send stop: %w", serr)
			}
			var cancel context.CancelFunc
			searchCtx, cancel = context.WithTimeout(context.WithoutCancel(ctx), defaultReadyTimeout)
			defer cancel()
			continue
		}
		if err != nil {
			return SearchResponse{}, fmt.Errorf("read line (%s): %w", goCmd, err)
		}
		switch {
		case strings.HasPrefix(line, "info "):
			if info, ok := ParseInfo(line); ok {
				resp.Infos = append(resp.Infos, info)
			}
		case strings.HasPrefix(line, "bestmove"):
			parts := strings.Fields(line)
			if len(parts) >= 2 {
				resp.BestMove = parts[1]
			}
			return resp, nil
		case line != "":
			c.lastLine = line
		}
	}
}

// Query sends "query <name>" and returns the response payload.
func (c *Client) Query(ctx context.Context, name string) (string, error) {
	c.busy.Lock()
	defer c.busy.Unlock()

	qctx, cancel := context.WithTimeout(ctx, defaultReadyTimeout)
	defer cancel()
	if err := c.send("query " + name); err != nil {
		return "", fmt.Errorf("send query: %w", err)
	}
	for {
		line, err := c.readLine(qctx)
		if err != nil {
			return "", fmt.Errorf("wait response: %w", err)
		}
		if strings.HasPrefix(line, "response ") {
			return strings.TrimPrefix(line, "response "), nil
		}
		if line != "" {
			c.lastLine = line
		}
	}
}

// Send writes a raw command line, e.g. stop from another goroutine.
func (c *Client) Send(line string) error { return c.send(line) }

// Close sends quit, closes stdin and reaps the process when there is one.
func (c *Client) Close() error {
	_ = c.send("quit")

	c.mu.Lock()
	defer c.mu.Unlock()
	var errs []error
	if c.in != nil {
		if err := c.in.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if c.cmd != nil {
		done := make(chan error, 1)
		go func() { done <- c.cmd.Wait() }()
		select {
		case err := <-done:
			var exitErr *exec.ExitError
			if err != nil && !errors.As(err, &exitErr) {
				errs = append(errs, err)
			}
		case <-time.After(defaultReadyTimeout):
			_ = c.cmd.Process.Kill()
			<-done
		}
	}
	return errors.Join(errs...)
}

// BuildPositionCommand renders a position command for the start position
// (empty fen) or a FEN.
func BuildPositionCommand(fen string, moves []string) string {
	var sb strings.Builder
	if strings.TrimSpace(fen) == "" || fen == "startpos" {
		sb.WriteString("position startpos")
	} else {
		sb.WriteString("position fen ")
		sb.WriteString(strings.TrimSpace(fen))
	}
	if len(moves) > 0 {
		sb.WriteString(" moves ")
		sb.WriteString(strings.Join(moves, " "))
	}
	return sb.String()
}

// ParseInfo reads depth, eval cp (or score cp) and pv from an info line.
func ParseInfo(line string) (engine.Info, bool) {
	parts := strings.Fields(line)
	if len(parts) == 0 || parts[0] != "info" {
		return engine.Info{}, false
	}
	var info engine.Info
	for i := 1; i < len(parts); i++ {
		switch parts[i] {
		case "depth":
			if i+1 < len(parts) {
				if v, err := strconv.ParseUint(parts[i+1], 10, 32); err == nil {
					d := uint32(v)
					info.Depth = &d
				}
				i++
			}
		case "eval", "score":
			if i+2 < len(parts) && parts[i+1] == "cp" {
				if v, err := strconv.Atoi(parts[i+2]); err == nil {
					info.Score = &v
				}
				i += 2
			}
		case "pv":
			info.PV = strings.Join(parts[i+1:], " ")
			i = len(parts)
		}
	}
	return info, info.Depth != nil || info.Score != nil || info.PV != ""
}

// maxSearchTimeout caps the wait for clocks too large to mean anything.
const maxSearchTimeout = 24 * time.Hour

// msDuration converts milliseconds without overflowing, capped at
// maxSearchTimeout.
func msDuration(ms uint64) time.Duration {
	if ms >= uint64(maxSearchTimeout/time.Millisecond) {
		return maxSearchTimeout
	}
	return time.Duration(ms) * time.Millisecond
}

func searchTimeout(tc timecontrol.TimeControl) (time.Duration, bool) {
	switch v := tc.(type) {
	case timecontrol.MoveTime:
		return min((msDuration(v.MS)+2*time.Second)*3, maxSearchTimeout), true
	case timecontrol.Depth:
		base := time.Duration(min(v.Plies, 1000)) * 300 * time.Millisecond
		if base < 6*time.Second {
			base = 6 * time.Second
		}
		if base > 20*time.Second {
			base = 20 * time.Second
		}
		return base, true
	case timecontrol.Timed:
		var longest time.Duration
		for _, p := range v.Players {
			longest = max(longest, min(msDuration(p.TimeMS)+msDuration(p.IncMS), maxSearchTimeout))
		}
		return min(longest+2*time.Second, maxSearchTimeout), true
	case timecontrol.Nodes:
		return 20 * time.Second, true
	default:
		return 0, false
	}
}

func (c *Client) send(line string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := io.WriteString(c.in, line+"\n")
	return err
}

func (c *Client) awaitLine(ctx context.Context, want string) error {
	for {
		line, err := c.readLine(ctx)
		if err != nil {
			return err
		}
		if line == want {
			return nil
		}
		if line != "" {
			c.lastLine = line
		}
	}
}

func (c *Client) readLine(ctx context.Context) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case line, ok := <-c.lines:
		if ok {
			return line, nil
		}
		if c.readErr != nil {
			return "", fmt.Errorf("%w: %v", ErrClosed, c.readErr)
		}
		if c.lastLine != "" {
			return "", fmt.Errorf("%w after %q", ErrClosed, c.lastLine)
		}
		return "", ErrClosed
	}
}
