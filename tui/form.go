package tui

import (
	"context"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"carprice/ml"
	"carprice/pricing"
)

const footer = "Aplikasi Prediksi Harga Mobil Sederhana © 2025. Dibuat dengan Go. Oleh mhmdfarouqq"

// Predictor is the part of pricing.Service the form needs.
type Predictor interface {
	Predict(ctx context.Context, f ml.Features) (*pricing.Result, error)
}

type predictionMsg struct {
	result *pricing.Result
	err    error
}

// Form is the interactive prediction screen: one input per bound, enter predicts.
type Form struct {
	ctx          context.Context
	service      Predictor
	modelMessage string
	dataset      string

	inputs []textinput.Model
	focus  int

	result  string
	errText string
	busy    bool
}

// NewForm builds the form with every input at its default. dataset is the
// pre-rendered dataset section shown above the inputs.
func NewForm(ctx context.Context, service Predictor, modelMessage, dataset string) Form {
	inputs := make([]textinput.Model, len(pricing.Bounds))
	for i, b := range pricing.Bounds {
		in := textinput.New()
		in.Prompt = "> "
		in.Placeholder = pricing.FormatInput(b.Default)
		in.CharLimit = 16
		in.Width = 16
		in.SetValue(pricing.FormatInput(b.Default))
		inputs[i] = in
	}
	inputs[0].Focus()
	return Form{
		ctx:          ctx,
		service:      service,
		modelMessage: modelMessage,
		dataset:      dataset,
		inputs:       inputs,
	}
}

func (m Form) Init() tea.Cmd {
	return textinput.Blink
}

func (m Form) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case predictionMsg:
		m.busy = false
		if msg.err != nil {
			m.result = ""
			m.errText = pricing.ErrorMessage(msg.err)
			return m, nil
		}
		m.errText = ""
		m.result = msg.result.Message()
		return m, nil
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			return m, tea.Quit
		case "tab":
			return m, m.setFocus(m.focus + 1)
		case "shift+tab":
			return m, m.setFocus(m.focus - 1)
		case "up":
			m.step(1)
			return m, nil
		case "down":
			m.step(-1)
			return m, nil
		case "enter":
			if m.busy {
				return m, nil
			}
			return m.submit()
		}
	}

	var cmd tea.Cmd
	m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
	return m, cmd
}

func (m *Form) setFocus(i int) tea.Cmd {
	n := len(m.inputs)
	m.inputs[m.focus].Blur()
	m.focus = ((i % n) + n) % n
	return m.inputs[m.focus].Focus()
}

// step moves the focused input by one bound step, clamped to the bound.
func (m *Form) step(dir float64) {
	b := pricing.Bounds[m.focus]
	v, err := strconv.ParseFloat(strings.TrimSpace(m.inputs[m.focus].Value()), 64)
	if err != nil {
		v = b.Default
	}
	m.inputs[m.focus].SetValue(pricing.FormatInput(b.Clamp(v + dir*b.Step)))
}

func (m Form) submit() (tea.Model, tea.Cmd) {
	f, err := pricing.ParseFeatures(m.value)
	if err == nil {
		err = pricing.Validate(f)
	}
	if err != nil {
		m.result = ""
		m.errText = pricing.ErrorMessage(err)
		return m, nil
	}
	m.busy = true
	ctx, service := m.ctx, m.service
	return m, func() tea.Msg {
		res, err := service.Predict(ctx, f)
		return predictionMsg{result: res, err: err}
	}
}

func (m Form) value(name string) (string, bool) {
	for i, b := range pricing.Bounds {
		if b.Name == name {
			return m.inputs[i].Value(), true
		}
	}
	return "", false
}

func (m Form) View() string {
	var b strings.Builder
	if m.modelMessage != "" {
		b.WriteString(successStyle.Render(m.modelMessage))
		b.WriteString("\n")
	}
	b.WriteString(titleStyle.Render("🚗 Aplikasi Prediksi Harga Mobil Sederhana"))
	b.WriteString("\n")
	b.WriteString("Aplikasi ini memprediksi harga mobil berdasarkan Highway MPG, Curbweight, dan Horsepower.\n\n")
	if m.dataset != "" {
		b.WriteString(m.dataset)
		b.WriteString("\n")
	}

	b.WriteString(headingStyle.Render("🔍 Prediksi Harga Mobil"))
	b.WriteString("\n")
	b.WriteString("Masukkan nilai fitur-fitur berikut untuk mendapatkan estimasi harga mobil:\n\n")
	for i, bound := range pricing.Bounds {
		label := bound.Label + ":"
		if i == m.focus {
			label = headingStyle.Render(label)
		}
		b.WriteString(label)
		b.WriteString("\n")
		b.WriteString(m.inputs[i].View())
		b.WriteString("  ")
		b.WriteString(mutedStyle.Render(bound.Help))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	switch {
	case m.busy:
		b.WriteString(mutedStyle.Render("Memprediksi..."))
		b.WriteString("\n")
	case m.errText != "":
		b.WriteString(errorStyle.Render(m.errText))
		b.WriteString("\n")
		b.WriteString(pricing.ErrorHint)
		b.WriteString("\n")
	case m.result != "":
		b.WriteString(successStyle.Bold(true).Render(m.result))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(mutedStyle.Render("tab: pindah kolom • ↑/↓: ubah nilai • enter: Prediksi Harga • esc: keluar"))
	b.WriteString("\n")
	b.WriteString(mutedStyle.Render(footer))
	b.WriteString("\n")
	return b.String()
}
