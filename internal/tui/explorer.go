package tui

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jengzang/taxi-explorer-go/internal/explorer"
	"github.com/jengzang/taxi-explorer-go/internal/params"
	"github.com/jengzang/taxi-explorer-go/internal/spatial"
)

var (
	cyan   = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))
	white  = lipgloss.NewStyle().Foreground(lipgloss.Color("255"))
	dim    = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))
	dimmer = lipgloss.NewStyle().Foreground(lipgloss.Color("238"))
	green  = lipgloss.NewStyle().Foreground(lipgloss.Color("82"))
	red    = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
)

const (
	panStep    = 0.2
	zoomIn     = 0.7
	zoomOut    = 1.0 / 0.7
	alphaStep  = 0.05
	minColumns = 40
	maxColumns = 160
	minRows    = 10
)

type frameMsg struct{ view *explorer.RenderedView }

type framesClosedMsg struct{}

// waitForFrame blocks on the view loop's frame channel and hands the next
// rendered view to the update loop.
func waitForFrame(frames <-chan *explorer.RenderedView) tea.Cmd {
	return func() tea.Msg {
		view, ok := <-frames
		if !ok {
			return framesClosedMsg{}
		}
		return frameMsg{view: view}
	}
}

type model struct {
	ex     *explorer.Explorer
	loop   *explorer.ViewLoop
	fields []params.FieldSpec

	cursor  int
	editing bool
	editBuf string

	viewport spatial.BBox
	view     *explorer.RenderedView
	img      image.Image
	status   string

	width  int
	height int
}

func newModel(ex *explorer.Explorer, loop *explorer.ViewLoop) model {
	return model{
		ex:       ex,
		loop:     loop,
		fields:   explorer.Schema(),
		viewport: ex.Extent(),
		width:    80,
		height:   24,
	}
}

func (m model) Init() tea.Cmd {
	return waitForFrame(m.loop.Frames())
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.postViewport()
		return m, nil
	case frameMsg:
		m.view = msg.view
		img, err := png.Decode(bytes.NewReader(msg.view.PNG))
		if err != nil {
			m.status = "frame decode failed: " + err.Error()
		} else {
			m.img = img
		}
		return m, waitForFrame(m.loop.Frames())
	case framesClosedMsg:
		return m, tea.Quit
	}
	return m, nil
}

func (m model) handleKey(msg tea.KeyMsg) (model, tea.Cmd) {
	if m.editing {
		return m.editKey(msg), nil
	}

	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.fields)-1 {
			m.cursor++
		}
	case "left", "h":
		m.adjust(-1)
	case "right", "l":
		m.adjust(1)
	case "enter":
		m = m.beginEdit()
	case "a":
		m.viewport = panBox(m.viewport, -panStep, 0)
		m.postViewport()
	case "d":
		m.viewport = panBox(m.viewport, panStep, 0)
		m.postViewport()
	case "w":
		m.viewport = panBox(m.viewport, 0, panStep)
		m.postViewport()
	case "s":
		m.viewport = panBox(m.viewport, 0, -panStep)
		m.postViewport()
	case "+", "=":
		m.viewport = zoomBox(m.viewport, zoomIn)
		m.postViewport()
	case "-", "_":
		m.viewport = zoomBox(m.viewport, zoomOut)
		m.postViewport()
	case "0":
		m.viewport = m.ex.Extent()
		m.postViewport()
	}
	return m, nil
}

func (m model) editKey(msg tea.KeyMsg) model {
	switch msg.String() {
	case "enter":
		m.commitEdit()
		m.editing = false
		m.editBuf = ""
	case "esc", "escape":
		m.editing = false
		m.editBuf = ""
	case "backspace":
		if len(m.editBuf) > 0 {
			m.editBuf = m.editBuf[:len(m.editBuf)-1]
		}
	default:
		if len(msg.String()) == 1 {
			c := msg.String()[0]
			if (c >= '0' && c <= '9') || c == '.' || c == '-' || c == ',' {
				m.editBuf += string(c)
			}
		}
	}
	return m
}

func (m model) beginEdit() model {
	spec := m.fields[m.cursor]
	switch spec.Kind {
	case params.KindMagnitude:
		if v, err := m.ex.Params().Magnitude(spec.Name); err == nil {
			m.editing = true
			m.editBuf = fmt.Sprintf("%.2f", v)
		}
	case params.KindRange:
		if span, err := m.ex.Params().Range(spec.Name); err == nil {
			m.editing = true
			m.editBuf = fmt.Sprintf("%d,%d", span.Lo, span.Hi)
		}
	case params.KindSelector:
		// Selectors have nothing to type; enter cycles instead.
		m.adjust(1)
	}
	return m
}

// adjust nudges the selected field one step in the given direction.
func (m *model) adjust(dir int) {
	spec := m.fields[m.cursor]
	space := m.ex.Params()

	var err error
	switch spec.Kind {
	case params.KindMagnitude:
		cur, gerr := space.Magnitude(spec.Name)
		if gerr != nil {
			return
		}
		err = space.Set(spec.Name, clamp01(cur+alphaStep*float64(dir)))
	case params.KindSelector:
		cur, gerr := space.Selection(spec.Name)
		if gerr != nil || len(spec.Allowed) == 0 {
			return
		}
		idx := 0
		for i, name := range spec.Allowed {
			if name == cur {
				idx = i
			}
		}
		next := (idx + dir + len(spec.Allowed)) % len(spec.Allowed)
		err = space.Set(spec.Name, spec.Allowed[next])
	case params.KindRange:
		cur, gerr := space.Range(spec.Name)
		if gerr != nil {
			return
		}
		shifted := params.Span{Lo: cur.Lo + dir, Hi: cur.Hi + dir}
		if shifted.Lo < spec.Bounds.Lo || shifted.Hi > spec.Bounds.Hi {
			return
		}
		err = space.Set(spec.Name, shifted)
	}

	if err != nil {
		m.status = err.Error()
	} else {
		m.status = ""
	}
}

func (m *model) commitEdit() {
	spec := m.fields[m.cursor]

	var value interface{}
	switch spec.Kind {
	case params.KindMagnitude:
		v, err := strconv.ParseFloat(strings.TrimSpace(m.editBuf), 64)
		if err != nil {
			m.status = "not a number: " + m.editBuf
			return
		}
		value = v
	case params.KindRange:
		span, err := parseSpan(m.editBuf)
		if err != nil {
			m.status = err.Error()
			return
		}
		value = span
	default:
		return
	}

	if err := m.ex.Params().Set(spec.Name, value); err != nil {
		m.status = err.Error()
	} else {
		m.status = ""
	}
}

// parseSpan reads "lo,hi" into a span.
func parseSpan(s string) (params.Span, error) {
	parts := strings.Split(strings.TrimSpace(s), ",")
	if len(parts) != 2 {
		return params.Span{}, fmt.Errorf("expected lo,hi but got %q", s)
	}
	lo, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return params.Span{}, fmt.Errorf("bad lower bound %q", parts[0])
	}
	hi, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return params.Span{}, fmt.Errorf("bad upper bound %q", parts[1])
	}
	return params.Span{Lo: lo, Hi: hi}, nil
}

func (m model) canvasSize() (cols, rows int) {
	cols = m.width - 4
	if cols < minColumns {
		cols = minColumns
	}
	if cols > maxColumns {
		cols = maxColumns
	}
	rows = m.height - len(m.fields) - 8
	if rows < minRows {
		rows = minRows
	}
	return cols, rows
}

// postViewport queues the current viewport; each terminal cell shows two
// vertically stacked pixels.
func (m model) postViewport() {
	cols, rows := m.canvasSize()
	m.loop.PostViewport(explorer.ViewRequest{
		Bounds: m.viewport,
		Width:  cols,
		Height: rows * 2,
	})
}

// panBox shifts the box by the given fractions of its own span.
func panBox(b spatial.BBox, fx, fy float64) spatial.BBox {
	dx := b.Width() * fx
	dy := b.Height() * fy
	return spatial.BBox{
		MinX: b.MinX + dx,
		MinY: b.MinY + dy,
		MaxX: b.MaxX + dx,
		MaxY: b.MaxY + dy,
	}
}

// zoomBox scales the box around its center.
func zoomBox(b spatial.BBox, factor float64) spatial.BBox {
	cx, cy := b.Center()
	hw := b.Width() / 2 * factor
	hh := b.Height() / 2 * factor
	return spatial.BBox{MinX: cx - hw, MinY: cy - hh, MaxX: cx + hw, MaxY: cy + hh}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func (m model) View() string {
	var b strings.Builder
	cols, rows := m.canvasSize()

	b.WriteString("\n  " + cyan.Render("taxi explorer") + "  " + green.Render("● live") + "\n")
	b.WriteString(dimmer.Render("  "+strings.Repeat("─", cols)) + "\n")

	for row := 0; row < rows; row++ {
		b.WriteString("  ")
		for col := 0; col < cols; col++ {
			b.WriteString(cell(m.img, col, row))
		}
		b.WriteString("\n")
	}
	b.WriteString(dimmer.Render("  "+strings.Repeat("─", cols)) + "\n")

	snapshot := m.ex.Params().Snapshot()
	for i, spec := range m.fields {
		val := formatValue(snapshot[spec.Name])
		if m.editing && i == m.cursor {
			val = m.editBuf + "▋"
		}
		if i == m.cursor {
			b.WriteString("  " + cyan.Render("▸ ") + white.Render(fmt.Sprintf("%-11s", spec.Name)) + white.Render(val) + "\n")
		} else {
			b.WriteString("    " + dim.Render(fmt.Sprintf("%-11s", spec.Name)) + dim.Render(val) + "\n")
		}
	}

	b.WriteString("  " + m.infoLine(cols) + "\n")
	if m.status != "" {
		b.WriteString("  " + red.Render(m.status) + "\n")
	}
	b.WriteString(dim.Render("  ↑↓ field  ←→ adjust  enter edit  wasd pan  +- zoom  0 reset  q quit") + "\n")

	return b.String()
}

func (m model) infoLine(cols int) string {
	if m.view == nil {
		return dim.Render("rendering...")
	}
	zoom := spatial.ZoomFor(m.view.Bounds, cols)
	return dim.Render(fmt.Sprintf("%d pts  peak %d  z%d  x %.0f..%.0f  y %.0f..%.0f",
		m.view.PointCount, m.view.PeakCount, zoom,
		m.view.Bounds.MinX, m.view.Bounds.MaxX,
		m.view.Bounds.MinY, m.view.Bounds.MaxY))
}

// cell paints one terminal cell from two vertically stacked image pixels
// using the upper half block. Unlit cells stay bare spaces so the terminal
// background shows through.
func cell(img image.Image, x, y int) string {
	top := pixelColor(img, x, 2*y)
	bottom := pixelColor(img, x, 2*y+1)

	switch {
	case top == "" && bottom == "":
		return " "
	case top == "":
		return lipgloss.NewStyle().Foreground(lipgloss.Color(bottom)).Render("▄")
	case bottom == "":
		return lipgloss.NewStyle().Foreground(lipgloss.Color(top)).Render("▀")
	default:
		return lipgloss.NewStyle().
			Foreground(lipgloss.Color(top)).
			Background(lipgloss.Color(bottom)).
			Render("▀")
	}
}

// pixelColor returns the pixel as a hex color, or "" for transparent or
// out-of-image pixels.
func pixelColor(img image.Image, x, y int) string {
	if img == nil {
		return ""
	}
	bounds := img.Bounds()
	if x < bounds.Min.X || x >= bounds.Max.X || y < bounds.Min.Y || y >= bounds.Max.Y {
		return ""
	}
	r, g, b, a := img.At(x, y).RGBA()
	if a == 0 {
		return ""
	}
	return fmt.Sprintf("#%02x%02x%02x", r>>8, g>>8, b>>8)
}

func formatValue(v interface{}) string {
	switch t := v.(type) {
	case float64:
		return fmt.Sprintf("%.2f", t)
	case params.Span:
		return fmt.Sprintf("%d..%d", t.Lo, t.Hi)
	case string:
		return t
	}
	return fmt.Sprintf("%v", v)
}

// Run opens the terminal explorer over the given point source and blocks
// until the user quits. It owns the render loop lifecycle.
func Run(source explorer.PointSource, opts explorer.Options) error {
	ex, err := explorer.New(source, opts)
	if err != nil {
		return err
	}
	loop := explorer.NewViewLoop(ex)
	loop.Start(context.Background())
	defer loop.Stop()

	p := tea.NewProgram(newModel(ex, loop), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("failed to run terminal ui: %w", err)
	}
	return nil
}
