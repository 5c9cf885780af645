// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ContentLoop Contributors

package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	looperr "github.com/contentloop/contentloop/pkg/errors"
	"github.com/spf13/cobra"
)

var (
	colorBorder = lipgloss.Color("#3F4451")
	colorAccent = lipgloss.Color("#C678DD")
	colorMuted  = lipgloss.Color("#636B78")
	colorError  = lipgloss.Color("#E06C75")
	colorOK     = lipgloss.Color("#98C379")

	headerStyle = lipgloss.NewStyle().Foreground(colorAccent).Bold(true)
	draftStyle  = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorBorder).
			Padding(0, 1)
	statusStyle = lipgloss.NewStyle().Foreground(colorMuted)
	errorStyle  = lipgloss.NewStyle().Foreground(colorError).Bold(true)
	doneStyle   = lipgloss.NewStyle().Foreground(colorOK).Bold(true)
)

// refiner is the slice of the gateway API the TUI drives.
type refiner interface {
	start(ctx context.Context, brief, length, style string) (sessionResult, error)
	feedback(ctx context.Context, id, text string) (sessionResult, error)
	finish(ctx context.Context, id string) (sessionResult, error)
}

type gatewayRefiner struct{ gw *gatewayClient }

func (r gatewayRefiner) start(ctx context.Context, brief, length, style string) (sessionResult, error) {
	var res sessionResult
	err := r.gw.postJSON(ctx, "/api/v1/sessions", map[string]string{
		"brief": brief, "content_length": length, "style": style,
	}, &res)
	return res, err
}

func (r gatewayRefiner) feedback(ctx context.Context, id, text string) (sessionResult, error) {
	var res sessionResult
	err := r.gw.postJSON(ctx, sessionPath(id, "feedback"), map[string]string{"feedback_text": text}, &res)
	return res, err
}

func (r gatewayRefiner) finish(ctx context.Context, id string) (sessionResult, error) {
	var res sessionResult
	err := r.gw.postJSON(ctx, sessionPath(id, "finish"), nil, &res)
	return res, err
}

// resultMsg carries the outcome of one gateway call into Update.
type resultMsg struct {
	res sessionResult
	err error
}

type tuiModel struct {
	ctx    context.Context
	client refiner

	brief, length, style string

	spinner  spinner.Model
	input    textinput.Model
	viewport viewport.Model

	res     sessionResult
	busy    bool
	done    bool
	lastErr string
	width   int
}

func newTUIModel(ctx context.Context, client refiner, brief, length, style string) tuiModel {
	ti := textinput.New()
	ti.Placeholder = "What should change? (\"done\" or ctrl+d to accept)"
	ti.CharLimit = 2000
	ti.Focus()

	return tuiModel{
		ctx:    ctx,
		client: client,
		brief:  brief,
		length: length,
		style:  style,
		spinner: spinner.New(
			spinner.WithSpinner(spinner.Dot),
			spinner.WithStyle(lipgloss.NewStyle().Foreground(colorAccent)),
		),
		input:    ti,
		viewport: viewport.New(80, 16),
		busy:     true,
		width:    80,
	}
}

func (m tuiModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, textinput.Blink, m.call(func(ctx context.Context) (sessionResult, error) {
		return m.client.start(ctx, m.brief, m.length, m.style)
	}))
}

func (m tuiModel) call(fn func(context.Context) (sessionResult, error)) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		res, err := fn(ctx)
		return resultMsg{res: res, err: err}
	}
}

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.viewport.Width = max(msg.Width-4, 20)
		m.viewport.Height = max(msg.Height-8, 3)
		m.input.Width = max(msg.Width-4, 20)
		m.viewport.SetContent(m.res.Draft)
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case resultMsg:
		m.busy = false
		if msg.err != nil {
			m.lastErr = msg.err.Error()
			if m.res.SessionID == "" {
				// The session never started; nothing to refine.
				m.done = true
				return m, tea.Quit
			}
			return m, nil
		}
		m.lastErr = ""
		draft := m.res.Draft
		m.res = msg.res
		if m.res.Draft == "" {
			// Completing through feedback returns no draft.
			m.res.Draft = draft
		}
		m.viewport.SetContent(m.res.Draft)
		m.viewport.GotoTop()
		if m.res.State == "COMPLETED" {
			m.done = true
			return m, tea.Quit
		}
		return m, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyPgUp, tea.KeyPgDown, tea.KeyUp, tea.KeyDown:
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}
		if m.busy || m.res.SessionID == "" {
			return m, nil
		}
		switch msg.Type {
		case tea.KeyCtrlD:
			return m.submit(func(ctx context.Context) (sessionResult, error) {
				return m.client.finish(ctx, m.res.SessionID)
			})
		case tea.KeyEnter:
			text := strings.TrimSpace(m.input.Value())
			if text == "" {
				return m, nil
			}
			m.input.Reset()
			id := m.res.SessionID
			return m.submit(func(ctx context.Context) (sessionResult, error) {
				return m.client.feedback(ctx, id, text)
			})
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m tuiModel) submit(fn func(context.Context) (sessionResult, error)) (tea.Model, tea.Cmd) {
	m.busy = true
	return m, tea.Batch(m.spinner.Tick, m.call(fn))
}

func (m tuiModel) View() string {
	var b strings.Builder

	header := "ContentLoop"
	if m.res.SessionID != "" {
		header = fmt.Sprintf("ContentLoop  %s  revision %d", m.res.SessionID, m.res.RevisionCount)
	}
	b.WriteString(headerStyle.Render(header))
	b.WriteString("\n")

	if m.res.Draft != "" {
		b.WriteString(draftStyle.Width(max(m.width-2, 20)).Render(m.viewport.View()))
		b.WriteString("\n")
	}

	switch {
	case m.done && m.lastErr == "":
		b.WriteString(doneStyle.Render("Accepted."))
	case m.busy:
		b.WriteString(m.spinner.View() + statusStyle.Render(" generating..."))
	default:
		b.WriteString(m.input.View())
	}
	b.WriteString("\n")

	if m.lastErr != "" {
		b.WriteString(errorStyle.Render("Error: " + m.lastErr))
		b.WriteString("\n")
	}
	b.WriteString(statusStyle.Render("enter: send  ctrl+d: accept  pgup/pgdn: scroll  esc: quit"))
	return b.String()
}

func newDraftTUICmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tui <brief...>",
		Short: "Draft and refine content in a full-screen terminal UI",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runDraftTUI,
	}
	cmd.Flags().StringP("length", "l", "medium", "content length: short, medium or long")
	cmd.Flags().StringP("style", "s", "", "tone or style guidance")
	return cmd
}

func runDraftTUI(cmd *cobra.Command, args []string) error {
	length, _ := cmd.Flags().GetString("length")
	style, _ := cmd.Flags().GetString("style")
	client := gatewayRefiner{gw: clientFor(cmd, draftClient)}

	model := newTUIModel(cmd.Context(), client, strings.Join(args, " "), length, style)
	final, err := tea.NewProgram(model,
		tea.WithContext(cmd.Context()),
		tea.WithInput(cmd.InOrStdin()),
		tea.WithOutput(cmd.OutOrStdout()),
		tea.WithAltScreen(),
	).Run()
	if err != nil {
		return err
	}

	// Leave the last draft on the normal screen.
	m, ok := final.(tuiModel)
	if !ok {
		return nil
	}
	if m.res.SessionID == "" && m.lastErr != "" {
		return looperr.New(looperr.CodeCLIRequestFailure, m.lastErr)
	}
	if m.res.SessionID != "" {
		printResult(cmd.OutOrStdout(), m.res)
	}
	return nil
}
