package cli

import (
	"context"
	"fmt"
	"image"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/pixlkit/pixl/pkg/book"
	"github.com/pixlkit/pixl/pkg/client"
	"github.com/pixlkit/pixl/pkg/codec"
	perrors "github.com/pixlkit/pixl/pkg/errors"
	"github.com/pixlkit/pixl/pkg/events"
	"github.com/pixlkit/pixl/pkg/render"
)

// halfBlock draws two vertically stacked pixels in one terminal cell: the
// foreground colors the top half and the background the bottom half.
const halfBlock = "▀"

// viewCommand creates the "view" command.
func (c *CLI) viewCommand() *cobra.Command {
	var refresh time.Duration

	cmd := &cobra.Command{
		Use:   "view [filename]",
		Short: "Show a book in the terminal",
		Long: `Show a book's frames in the terminal, composited over a checkerboard.

Without a filename the first book in the base path is shown. The book is
reloaded periodically; with --remote it is also reloaded as soon as the
server reports a change.

Keys: ←/h previous frame, →/l next frame, r reload, q quit.`,
		Args:              cobra.MaximumNArgs(1),
		ValidArgsFunction: c.completeBooks,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			bs, err := c.openBooks(ctx)
			if err != nil {
				return err
			}
			defer bs.Close()

			var filename string
			if len(args) == 1 {
				filename = args[0]
			}
			m := newViewer(ctx, bs, filename, refresh)

			if rb, ok := bs.(remoteBooks); ok && filename != "" {
				m.stream = subscribeQuietly(ctx, rb.Client, filename)
			}

			_, err = tea.NewProgram(m, tea.WithContext(ctx)).Run()
			return err
		},
	}

	cmd.Flags().DurationVar(&refresh, "refresh", 2*time.Second, "reload interval; 0 disables polling")
	return cmd
}

// subscribeQuietly opens a change stream, or returns nil so the viewer
// falls back to polling.
func subscribeQuietly(ctx context.Context, cl *client.Client, filename string) *client.Stream {
	s, err := cl.Subscribe(ctx, filename, time.Time{})
	if err != nil {
		loggerFromContext(ctx).Debug("Live updates unavailable", "err", err)
		return nil
	}
	return s
}

// bookSource is what the viewer reads books from.
type bookSource interface {
	List(ctx context.Context) ([]codec.Info, error)
	Get(ctx context.Context, filename string) (*book.Book, error)
}

// =============================================================================
// Messages
// =============================================================================

type loadedMsg struct {
	book *book.Book
	err  error
}

type tickMsg time.Time

type changeMsg events.Event

type streamClosedMsg struct{}

// =============================================================================
// Model
// =============================================================================

// viewer is the bubbletea model of the terminal viewer.
type viewer struct {
	ctx      context.Context
	src      bookSource
	filename string
	refresh  time.Duration
	stream   *client.Stream

	book   *book.Book
	frame  int
	width  int
	height int

	// lastError is the message of the most recent failed load. A load that
	// fails the same way again is not reported a second time.
	lastError string
}

func newViewer(ctx context.Context, src bookSource, filename string, refresh time.Duration) *viewer {
	return &viewer{ctx: ctx, src: src, filename: filename, refresh: refresh, width: 80, height: 24}
}

func (m *viewer) Init() tea.Cmd {
	return tea.Batch(m.load(), m.tick(), m.waitChange())
}

func (m *viewer) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			return m, tea.Quit
		case "left", "h":
			m.prevFrame()
		case "right", "l":
			m.nextFrame()
		case "r":
			return m, m.load()
		}

	case loadedMsg:
		return m, m.loaded(msg)

	case tickMsg:
		return m, tea.Batch(m.load(), m.tick())

	case changeMsg:
		if !changesBook(msg.Type) {
			return m, m.waitChange()
		}
		return m, tea.Batch(m.load(), m.waitChange())

	case streamClosedMsg:
		m.stream = nil
	}
	return m, nil
}

// loaded applies a load result. Errors are printed once per distinct
// message so a server that stays down does not flood the terminal.
func (m *viewer) loaded(msg loadedMsg) tea.Cmd {
	if msg.err != nil {
		text := perrors.UserMessage(msg.err)
		if text == m.lastError {
			return nil
		}
		m.lastError = text
		return tea.Printf("%s %s", styleIconError.Render(iconError), text)
	}

	first := m.book == nil || m.book.Filename != msg.book.Filename
	m.book = msg.book
	m.filename = msg.book.Filename
	m.lastError = ""
	if first {
		m.frame = 0
	}
	m.frame = min(m.frame, max(m.book.FrameCount()-1, 0))
	return nil
}

// changesBook reports whether an event of type t means the stored book
// differs from the last load. The viewer's own GETs emit book_loaded, so
// reloading on it would never settle.
func changesBook(t events.Type) bool {
	switch t {
	case events.DrawingOperation, events.BookSaved, events.FrameChanged:
		return true
	}
	return false
}

func (m *viewer) prevFrame() {
	if m.frame > 0 {
		m.frame--
	}
}

func (m *viewer) nextFrame() {
	if m.book != nil && m.frame+1 < m.book.FrameCount() {
		m.frame++
	}
}

// load fetches the book, or the first listed one when no filename was given.
func (m *viewer) load() tea.Cmd {
	ctx, src, filename := m.ctx, m.src, m.filename
	return func() tea.Msg {
		if filename == "" {
			infos, err := src.List(ctx)
			if err != nil {
				return loadedMsg{err: err}
			}
			if len(infos) == 0 {
				return loadedMsg{err: perrors.New(perrors.ErrCodeNotFound, "no pixel books found")}
			}
			filename = infos[0].Filename
		}
		b, err := src.Get(ctx, filename)
		return loadedMsg{book: b, err: err}
	}
}

func (m *viewer) tick() tea.Cmd {
	if m.refresh <= 0 {
		return nil
	}
	return tea.Tick(m.refresh, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m *viewer) waitChange() tea.Cmd {
	if m.stream == nil {
		return nil
	}
	ch := m.stream.Events()
	return func() tea.Msg {
		e, ok := <-ch
		if !ok {
			return streamClosedMsg{}
		}
		return changeMsg(e)
	}
}

// =============================================================================
// View
// =============================================================================

func (m *viewer) View() string {
	rows := max(m.height-1, 1)
	if m.book == nil {
		if m.lastError != "" {
			return StyleDim.Render("Waiting for book... (q to quit)")
		}
		return StyleDim.Render("Loading...")
	}

	var sb strings.Builder
	sb.WriteString(m.canvas(m.width, rows))
	sb.WriteString(m.status())
	return sb.String()
}

// canvas renders the current frame centred in a cols x rows cell area,
// two pixel rows per cell.
func (m *viewer) canvas(cols, rows int) string {
	b := m.book
	scale, offX, offY := render.Fit(int(b.Width), int(b.Height), cols, rows*2)
	img, err := render.Composite(b, m.frame, scale)
	if err != nil {
		return styleIconError.Render(err.Error()) + "\n"
	}

	var sb strings.Builder
	for ty := 0; ty < rows; ty++ {
		for tx := 0; tx < cols; tx++ {
			x := tx - offX
			top, okTop := pixelAt(img, x, ty*2-offY)
			bot, okBot := pixelAt(img, x, ty*2+1-offY)
			switch {
			case !okTop && !okBot:
				sb.WriteByte(' ')
			case !okBot:
				sb.WriteString(lipgloss.NewStyle().Foreground(top).Render(halfBlock))
			case !okTop:
				sb.WriteString(lipgloss.NewStyle().Background(bot).Render(" "))
			default:
				sb.WriteString(lipgloss.NewStyle().Foreground(top).Background(bot).Render(halfBlock))
			}
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

func (m *viewer) status() string {
	parts := []string{
		StyleTitle.Render(m.book.Filename),
		fmt.Sprintf("frame %s/%d", StyleNumber.Render(fmt.Sprint(m.frame+1)), m.book.FrameCount()),
		fmt.Sprintf("%dx%d", m.book.Width, m.book.Height),
	}
	if m.stream != nil {
		parts = append(parts, StyleSuccess.Render("live"))
	}
	if m.lastError != "" {
		parts = append(parts, styleIconError.Render(m.lastError))
	}
	parts = append(parts, StyleDim.Render("←/→ frame  r reload  q quit"))
	return strings.Join(parts, "  ")
}

func pixelAt(img *image.RGBA, x, y int) (lipgloss.Color, bool) {
	if !(image.Point{x, y}).In(img.Bounds()) {
		return "", false
	}
	c := img.RGBAAt(x, y)
	return lipgloss.Color(fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)), true
}
