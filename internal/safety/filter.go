// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ContentLoop Contributors

package safety

import (
	"context"
	"log/slog"
)

// Config selects a mode per stage. Empty modes take the defaults.
type Config struct {
	InputMode  Mode
	OutputMode Mode
}

const (
	DefaultInputMode  = ModeFlag
	DefaultOutputMode = ModeRedact
)

// Filter applies the configured modes around generation.
type Filter struct {
	scanner *Scanner
	input   Mode
	output  Mode
}

// NewFilter builds a Filter over the default rules.
func NewFilter(cfg Config) (*Filter, error) {
	if cfg.InputMode == "" {
		cfg.InputMode = DefaultInputMode
	}
	if cfg.OutputMode == "" {
		cfg.OutputMode = DefaultOutputMode
	}
	in, err := ParseMode(string(cfg.InputMode))
	if err != nil {
		return nil, err
	}
	out, err := ParseMode(string(cfg.OutputMode))
	if err != nil {
		return nil, err
	}

	s, err := NewScanner(DefaultRules())
	if err != nil {
		return nil, err
	}
	return &Filter{scanner: s, input: in, output: out}, nil
}

// ScreenInput checks a brief or feedback line before it reaches the model.
func (f *Filter) ScreenInput(ctx context.Context, text string) (string, error) {
	return f.screen(ctx, StageInput, f.input, text)
}

// ScreenOutput checks a generated draft before it is stored.
func (f *Filter) ScreenOutput(ctx context.Context, text string) (string, error) {
	return f.screen(ctx, StageOutput, f.output, text)
}

func (f *Filter) screen(ctx context.Context, stage Stage, mode Mode, text string) (string, error) {
	if mode == ModeOff {
		return text, nil
	}

	result, err := f.scanner.Scan(text, stage)
	if err != nil {
		return "", err
	}
	if result.Threat {
		slog.WarnContext(ctx, "safety filter matched",
			"stage", stage,
			"mode", mode,
			"rules", result.Rules(),
		)
	}
	return Apply(mode, stage, text, result)
}
