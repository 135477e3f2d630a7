package engine

import (
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/park285/cheese-ugi/internal/game"
)

// Responder writes protocol responses, one line per call. It is safe for use
// by the session loop and a searching agent at the same time.
type Responder struct {
	mu  sync.Mutex
	out io.Writer
}

func NewResponder(out io.Writer) *Responder {
	return &Responder{out: out}
}

func (r *Responder) send(line string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, err := io.WriteString(r.out, line+"\n")
	return err
}

// Handshake identifies the engine and acknowledges the dialect.
func (r *Responder) Handshake(dialect string, info EngineInfo) error {
	for _, line := range []string{
		"id name " + info.Name,
		"id author " + info.Author,
		dialect + "ok",
	} {
		if err := r.send(line); err != nil {
			return err
		}
	}
	return nil
}

// Info writes an info line with the present fields in the order depth,
// score, pv. A report without fields writes nothing.
func (r *Responder) Info(info Info) error {
	line := FormatInfo(info)
	if line == "" {
		return nil
	}
	return r.send(line)
}

func FormatInfo(info Info) string {
	parts := make([]string, 0, 7)
	if info.Depth != nil {
		parts = append(parts, "depth", strconv.FormatUint(uint64(*info.Depth), 10))
	}
	if info.Score != nil {
		parts = append(parts, "eval", "cp", strconv.Itoa(*info.Score))
	}
	if pv := strings.TrimSpace(info.PV); pv != "" {
		parts = append(parts, "pv", pv)
	}
	if len(parts) == 0 {
		return ""
	}
	return "info " + strings.Join(parts, " ")
}

func (r *Responder) BestMove(b game.Board, a game.Action) error {
	return r.send("bestmove " + b.EncodeAction(a))
}

func (r *Responder) ReadyOK() error { return r.send("readyok") }

func (r *Responder) Response(text string) error {
	return r.send("response " + text)
}

func (r *Responder) ResponseBool(v bool) error {
	return r.Response(strconv.FormatBool(v))
}

// Diagnostic writes a free-form line, used for fatal protocol errors.
func (r *Responder) Diagnostic(text string) error {
	return r.send(text)
}

// Infof is a convenience for agents reporting a depth and score.
func Infof(depth uint32, score int, pv ...string) Info {
	d, s := depth, score
	return Info{Depth: &d, Score: &s, PV: strings.Join(pv, " ")}
}

func (i Info) String() string { return FormatInfo(i) }
