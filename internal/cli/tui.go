package cli

import (
	"context"
	"fmt"
	"math"
	"slices"
	"sort"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/loreboard/loreboard/pkg/board"
	"github.com/loreboard/loreboard/pkg/drag"
	"github.com/loreboard/loreboard/pkg/entity"
	"github.com/loreboard/loreboard/pkg/geometry"
	"github.com/loreboard/loreboard/pkg/layout"
)

// Terminal cells are mapped to board pixels at zoom 1.
const (
	cellWidth  = 10.0
	cellHeight = 20.0
	headerRows = 2
	footerRows = 2
	panStep    = 4
	mousePtrID = 1
)

// Board styles
var (
	boardHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	boardHelpStyle   = lipgloss.NewStyle().Foreground(colorDim)
	boardStatusStyle = lipgloss.NewStyle().Foreground(colorGray)
	boardErrorStyle  = lipgloss.NewStyle().Foreground(colorRed)
)

// =============================================================================
// Messages
// =============================================================================

// syncedMsg reports the end of a board sync.
type syncedMsg struct{ err error }

// entitiesMsg carries a refreshed entity list from a watcher.
type entitiesMsg []entity.Entity

// changeMsg carries one board change.
type changeMsg board.Change

// =============================================================================
// BoardModel - Interactive board
// =============================================================================

// BoardModel is the bubbletea model of the interactive board. Mouse events
// are fed into a drag.Feed, so cards are dragged by the same controller the
// HTTP API uses.
type BoardModel struct {
	ctx      context.Context
	title    string
	board    *board.Board
	drag     *drag.Controller
	feed     *drag.Feed
	mount    *drag.Mount
	initial  []entity.Entity
	changes  chan board.Change
	detach   func()
	unsub    func()
	width    int
	height   int
	panX     int
	panY     int
	pressed  string
	last     geometry.Point
	selected string
	status   string
	err      error
	ready    bool
}

// NewBoardModel creates the model for b. The initial layout runs once the
// terminal size is known, so the board is laid out for the real viewport.
func NewBoardModel(ctx context.Context, title string, b *board.Board, entities []entity.Entity) *BoardModel {
	feed := drag.NewFeed()
	mount := drag.Mounted(geometry.Point{Y: headerRows * cellHeight})
	ctrl := drag.New(b, mount, nil)

	m := &BoardModel{
		ctx:     ctx,
		title:   title,
		board:   b,
		drag:    ctrl,
		feed:    feed,
		mount:   mount,
		initial: entities,
		changes: make(chan board.Change, 64),
		status:  "laying out...",
	}
	m.detach = ctrl.Attach(feed)
	m.unsub = b.Subscribe(func(c board.Change) {
		select {
		case m.changes <- c:
		default:
		}
	})
	return m
}

// Close detaches the model from its board.
func (m *BoardModel) Close() {
	m.drag.Up()
	m.detach()
	m.unsub()
}

func (m *BoardModel) Init() tea.Cmd {
	return m.waitForChange()
}

func (m *BoardModel) waitForChange() tea.Cmd {
	return func() tea.Msg {
		select {
		case c := <-m.changes:
			return changeMsg(c)
		case <-m.ctx.Done():
			return nil
		}
	}
}

func (m *BoardModel) sync(entities []entity.Entity) tea.Cmd {
	return func() tea.Msg {
		return syncedMsg{err: m.board.Sync(m.ctx, entities)}
	}
}

func (m *BoardModel) relayout() tea.Cmd {
	return func() tea.Msg {
		m.board.Relayout(m.ctx)
		return syncedMsg{}
	}
}

func (m *BoardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		first := m.width == 0
		m.width, m.height = msg.Width, msg.Height
		m.board.SetViewport(layout.Viewport{
			Width:  float64(m.width) * cellWidth,
			Height: float64(max(0, m.height-headerRows-footerRows)) * cellHeight,
		})
		if first {
			return m, m.sync(m.initial)
		}

	case syncedMsg:
		m.ready = true
		m.err = msg.err
		if msg.err == nil {
			m.status = fmt.Sprintf("%d cards", len(m.board.Positions()))
		}

	case entitiesMsg:
		m.status = "refreshing..."
		return m, m.sync(msg)

	case changeMsg:
		m.status = describeChange(board.Change(msg))
		return m, m.waitForChange()

	case tea.KeyMsg:
		return m, m.handleKey(msg)

	case tea.MouseMsg:
		m.handleMouse(msg)
	}
	return m, nil
}

func (m *BoardModel) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "q", "ctrl+c", "esc":
		return tea.Quit
	case "+", "=":
		m.board.ZoomIn()
	case "-", "_":
		m.board.ZoomOut()
	case "0":
		m.board.ResetZoom()
	case "r":
		m.status = "laying out..."
		return m.relayout()
	case "left", "h":
		m.pan(-panStep, 0)
	case "right", "l":
		m.pan(panStep, 0)
	case "up", "k":
		m.pan(0, -panStep)
	case "down", "j":
		m.pan(0, panStep)
	}
	return nil
}

// pan scrolls the view and moves the mount origin with it, so pointer
// positions keep mapping to the cards under them.
func (m *BoardModel) pan(dx, dy int) {
	m.panX = max(0, m.panX+dx)
	m.panY = max(0, m.panY+dy)
	m.mount.Set(geometry.Point{
		X: -float64(m.panX) * cellWidth,
		Y: float64(headerRows-m.panY) * cellHeight,
	})
}

func (m *BoardModel) handleMouse(msg tea.MouseMsg) {
	client := geometry.Point{X: float64(msg.X) * cellWidth, Y: float64(msg.Y) * cellHeight}
	movement := client.Sub(m.last)
	m.last = client

	switch msg.Action {
	case tea.MouseActionPress:
		if msg.Button != tea.MouseButtonLeft {
			return
		}
		m.pressed = m.cardAt(client)
		m.feed.Emit(drag.Event{Type: drag.PointerDown, PointerID: mousePtrID, EntityID: m.pressed, Client: client})
	case tea.MouseActionMotion:
		m.feed.Emit(drag.Event{Type: drag.PointerMove, PointerID: mousePtrID, Client: client, Movement: movement})
	case tea.MouseActionRelease:
		m.feed.Emit(drag.Event{Type: drag.PointerUp, PointerID: mousePtrID, Client: client})
		if m.drag.ConsumeClick() {
			m.selected = m.pressed
		}
		m.pressed = ""
	}
}

// cardAt returns the topmost card under the client point, or "".
func (m *BoardModel) cardAt(client geometry.Point) string {
	origin, ok := m.mount.Origin()
	if !ok {
		return ""
	}
	p := client.Sub(origin).Scale(1 / m.board.Zoom())
	card := m.board.Metrics().Card
	order := m.drawOrder()
	for i := len(order) - 1; i >= 0; i-- {
		if pos, ok := m.board.Position(order[i]); ok && geometry.RectAt(pos, card).Contains(p) {
			return order[i]
		}
	}
	return ""
}

// drawOrder returns entity IDs bottom to top: entity order, with the
// selected and then the dragged card on top.
func (m *BoardModel) drawOrder() []string {
	ids := entity.IDs(m.board.Entities())
	_, dragging := m.drag.State()
	for _, top := range []string{m.selected, dragging} {
		if i := slices.Index(ids, top); top != "" && i >= 0 {
			ids = append(slices.Delete(ids, i, i+1), top)
		}
	}
	return ids
}

func describeChange(c board.Change) string {
	switch c.Kind {
	case board.ChangeZoom:
		return fmt.Sprintf("zoom %.0f%%", c.Zoom*100)
	case board.ChangeLayout:
		return fmt.Sprintf("laid out %d cards", len(c.IDs))
	default:
		return fmt.Sprintf("%s %s", c.Kind, strings.Join(c.IDs, ", "))
	}
}

// =============================================================================
// View
// =============================================================================

func (m *BoardModel) View() string {
	if m.width == 0 {
		return ""
	}
	var b strings.Builder

	header := fmt.Sprintf("%s  %s", boardHeaderStyle.Render(appName), StyleDim.Render(m.title))
	b.WriteString(header)
	b.WriteString("\n")
	b.WriteString(boardHelpStyle.Render(fmt.Sprintf("zoom %.0f%%  ·  drag cards  +/- zoom  0 reset  r relayout  arrows pan  q quit", m.board.Zoom()*100)))
	b.WriteString("\n")

	rows := max(0, m.height-headerRows-footerRows)
	c := newCanvas(m.width, rows)
	if m.ready {
		m.paint(c)
	}
	b.WriteString(c.String())

	b.WriteString("\n")
	switch {
	case m.err != nil:
		b.WriteString(boardErrorStyle.Render(m.err.Error()))
	case m.selected != "":
		b.WriteString(m.details(m.selected))
	default:
		b.WriteString(boardStatusStyle.Render(m.status))
	}
	return b.String()
}

// details describes the selected entity on one line.
func (m *BoardModel) details(id string) string {
	i := slices.IndexFunc(m.board.Entities(), func(e entity.Entity) bool { return e.ID == id })
	if i < 0 {
		return ""
	}
	e := m.board.Entities()[i]
	parts := []string{StyleTitle.Render(e.DisplayName()), StyleDim.Render(string(e.Kind))}
	keys := make([]string, 0, len(e.Attributes))
	for k := range e.Attributes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		parts = append(parts, StyleDim.Render(k+":")+" "+StyleValue.Render(e.Attributes[k]))
	}
	return strings.Join(parts, "  ")
}

// toCell maps a board point to a canvas cell.
func (m *BoardModel) toCell(p geometry.Point) (col, row int) {
	z := m.board.Zoom()
	return int(math.Round(p.X*z/cellWidth)) - m.panX, int(math.Round(p.Y*z/cellHeight)) - m.panY
}

func (m *BoardModel) paint(c *canvas) {
	for _, conn := range m.board.Connectors() {
		x0, y0 := m.toCell(conn.Start)
		x1, y1 := m.toCell(conn.End)
		c.line(x0, y0, x1, y1, '·', conn.Color)
		ax, ay := m.toCell(conn.Anchor)
		label := conn.Label()
		c.text(ax-len(label)/2, ay, label, conn.Color)
	}

	card := m.board.Metrics().Card
	entities := m.board.Entities()
	byID := make(map[string]entity.Entity, len(entities))
	for _, e := range entities {
		byID[e.ID] = e
	}
	_, dragging := m.drag.State()
	for _, id := range m.drawOrder() {
		pos, ok := m.board.Position(id)
		if !ok {
			continue
		}
		e := byID[id]
		x0, y0 := m.toCell(pos)
		x1, y1 := m.toCell(pos.Add(geometry.Point{X: card.W, Y: card.H}))
		c.box(x0, y0, x1-1, y1-1, e.Kind.Color(), id == dragging || id == m.selected)
		c.text(x0+2, y0+1, e.DisplayName(), "")
		c.text(x0+2, y0+2, string(kindOrOther(e.Kind)), e.Kind.Color())
	}
}

func kindOrOther(k entity.Kind) entity.Kind {
	if k.Valid() {
		return k
	}
	return entity.KindOther
}

// =============================================================================
// Canvas
// =============================================================================

type cell struct {
	r     rune
	color string
	bold  bool
}

// canvas is a grid of colored runes rendered with lipgloss.
type canvas struct {
	w, h  int
	cells [][]cell
}

func newCanvas(w, h int) *canvas {
	cells := make([][]cell, h)
	for y := range cells {
		cells[y] = make([]cell, w)
		for x := range cells[y] {
			cells[y][x] = cell{r: ' '}
		}
	}
	return &canvas{w: w, h: h, cells: cells}
}

func (c *canvas) set(x, y int, r rune, color string, bold bool) {
	if x < 0 || y < 0 || x >= c.w || y >= c.h {
		return
	}
	c.cells[y][x] = cell{r: r, color: color, bold: bold}
}

func (c *canvas) text(x, y int, s, color string) {
	for i, r := range []rune(s) {
		c.set(x+i, y, r, color, false)
	}
}

// line draws from (x0,y0) to (x1,y1) with Bresenham's algorithm.
func (c *canvas) line(x0, y0, x1, y1 int, r rune, color string) {
	dx, dy := abs(x1-x0), -abs(y1-y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	e := dx + dy
	for {
		c.set(x0, y0, r, color, false)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * e
		if e2 >= dy {
			e += dy
			x0 += sx
		}
		if e2 <= dx {
			e += dx
			y0 += sy
		}
	}
}

// box draws a filled card outline.
func (c *canvas) box(x0, y0, x1, y1 int, color string, bold bool) {
	for y := y0; y <= y1; y++ {
		for x := x0; x <= x1; x++ {
			r := ' '
			switch {
			case y == y0 && x == x0:
				r = '╭'
			case y == y0 && x == x1:
				r = '╮'
			case y == y1 && x == x0:
				r = '╰'
			case y == y1 && x == x1:
				r = '╯'
			case y == y0 || y == y1:
				r = '─'
			case x == x0 || x == x1:
				r = '│'
			}
			c.set(x, y, r, color, bold)
		}
	}
}

// String renders the canvas, one lipgloss style per run of equal cells.
func (c *canvas) String() string {
	var b strings.Builder
	for y, row := range c.cells {
		if y > 0 {
			b.WriteString("\n")
		}
		start := 0
		for x := 1; x <= len(row); x++ {
			if x < len(row) && row[x].color == row[start].color && row[x].bold == row[start].bold {
				continue
			}
			run := make([]rune, 0, x-start)
			for _, cl := range row[start:x] {
				run = append(run, cl.r)
			}
			b.WriteString(cellStyle(row[start]).Render(string(run)))
			start = x
		}
	}
	return b.String()
}

func cellStyle(cl cell) lipgloss.Style {
	s := lipgloss.NewStyle().Bold(cl.bold)
	if cl.color != "" {
		s = s.Foreground(lipgloss.Color(cl.color))
	}
	return s
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
