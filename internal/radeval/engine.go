// Package radeval talks to the RadEval multi-metric scoring engine. The
// engine itself lives outside this process; rrgen reaches it either over
// HTTP or by running a bridge program that speaks the same JSON payloads.
package radeval

import (
	"context"
	"fmt"
	"strings"
	"time"
)

//go:generate go run go.uber.org/mock/mockgen -source engine.go -destination mock_engine.go -package radeval

// Engine scores hypothesis reports against reference reports.
type Engine interface {
	// Score computes the metrics switched on in req.Flags. The returned keys
	// are whatever the engine names them, e.g. "bleu" or "radgraph_partial".
	Score(ctx context.Context, req *Request) (Scores, error)
}

// Scores is the engine's raw result. Values are usually float64 but some
// metrics report nested structures.
type Scores map[string]any

// Flags selects which metric families the engine computes. Field tags match
// the engine's keyword arguments.
type Flags struct {
	DoRadCliQ   bool `json:"do_radcliq"`
	DoBLEU      bool `json:"do_bleu"`
	DoBERTScore bool `json:"do_bertscore"`
	DoCheXbert  bool `json:"do_chexbert"`
	DoRadGraph  bool `json:"do_radgraph"`
	DoRaTEScore bool `json:"do_ratescore"`
	DoGREEN     bool `json:"do_green"`
}

// Request is one scoring call. Refs and Hyps are position-aligned.
type Request struct {
	Refs    []string
	Hyps    []string
	Flags   Flags
	Options Options
}

// wireRequest is the JSON body shared by the HTTP and program engines.
type wireRequest struct {
	Refs   []string   `json:"refs"`
	Hyps   []string   `json:"hyps"`
	Config wireConfig `json:"config"`
}

type wireConfig struct {
	Flags
	Options
}

type wireResponse struct {
	Scores Scores `json:"scores"`
	Error  string `json:"error,omitempty"`
}

func newWireRequest(req *Request) wireRequest {
	return wireRequest{
		Refs:   req.Refs,
		Hyps:   req.Hyps,
		Config: wireConfig{Flags: req.Flags, Options: req.Options},
	}
}

// Kind selects an Engine implementation.
type Kind string

const (
	KindHTTP    Kind = "http"
	KindProgram Kind = "program"
)

// EngineConfig describes how to reach the scoring engine.
type EngineConfig struct {
	Kind Kind
	// URL is the base URL of the scoring service (KindHTTP).
	URL string
	// Command and Args start the bridge program (KindProgram).
	Command string
	Args    []string
	// Timeout bounds a single Score call. Zero means no limit.
	Timeout time.Duration
}

// ID identifies the engine instance cfg describes.
func (cfg EngineConfig) ID() string {
	switch cfg.Kind {
	case KindProgram:
		return string(KindProgram) + ":" + strings.Join(append([]string{cfg.Command}, cfg.Args...), " ")
	default:
		return string(KindHTTP) + ":" + cfg.URL
	}
}

// New builds the Engine described by cfg.
func New(cfg EngineConfig) (Engine, error) {
	switch cfg.Kind {
	case KindHTTP, "":
		if cfg.URL == "" {
			return nil, fmt.Errorf("radeval: http engine requires a url")
		}
		return NewHTTPEngine(cfg.URL, cfg.Timeout), nil
	case KindProgram:
		return NewProgramEngine(ProgramEngineArgs{
			Command: cfg.Command,
			Args:    cfg.Args,
			Timeout: cfg.Timeout,
		})
	default:
		return nil, fmt.Errorf("radeval: '%s' is not a valid engine kind", cfg.Kind)
	}
}
