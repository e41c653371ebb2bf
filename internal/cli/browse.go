package cli

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/matzehuels/docwalk/pkg/doc"
	"github.com/matzehuels/docwalk/pkg/seq"
)

// List styles
var (
	listSelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	listNormalStyle   = lipgloss.NewStyle().Foreground(colorWhite)
	listDimStyle      = lipgloss.NewStyle().Foreground(colorDim)
	listErrorStyle    = lipgloss.NewStyle().Foreground(colorRed)
)

// browseCommand walks the reference graph interactively.
func (c *CLI) browseCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "browse <document>",
		Short: "Walk the reference graph interactively",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			b, err := c.openBackend(ctx)
			if err != nil {
				return err
			}
			defer c.closeBackend(b)

			ref, err := b.Lookup(ctx, doc.ID(args[0]))
			if err != nil {
				return err
			}
			m := NewBrowseModel(ctx, doc.NewDocument(b, ref))
			_, err = tea.NewProgram(m, tea.WithContext(ctx), tea.WithAltScreen()).Run()
			return err
		},
		ValidArgsFunction: c.completeDocuments,
	}
}

// =============================================================================
// BrowseModel - Interactive reference browser
// =============================================================================

// browseFrame is one level of the browser: a document and its references.
type browseFrame struct {
	Doc     doc.Document
	Flags   doc.Flags
	Refs    []*doc.Descriptor
	Cursor  int
	Offset  int
	Pending bool
}

// frameMsg delivers a loaded frame.
type frameMsg struct {
	frame browseFrame
	err   error
	push  bool
}

// BrowseModel is the bubbletea model for the reference browser. Enter opens
// the highlighted reference, backspace goes back up.
type BrowseModel struct {
	ctx    context.Context
	Stack  []browseFrame
	Err    error
	Height int
}

// NewBrowseModel creates a browser rooted at d.
func NewBrowseModel(ctx context.Context, d doc.Document) BrowseModel {
	return BrowseModel{
		ctx:    ctx,
		Stack:  []browseFrame{{Doc: d, Pending: true}},
		Height: 15,
	}
}

// loadFrame reads the flags and reference records of d.
func loadFrame(ctx context.Context, d doc.Document, push bool) tea.Cmd {
	return func() tea.Msg {
		flags, err := d.Flags(ctx)
		if err != nil {
			return frameMsg{err: err}
		}
		refs, err := seq.Collect(doc.ReferenceDescriptors(ctx, d))
		if err != nil {
			return frameMsg{err: err}
		}
		return frameMsg{frame: browseFrame{Doc: d, Flags: flags, Refs: refs}, push: push}
	}
}

func (m BrowseModel) Init() tea.Cmd {
	return loadFrame(m.ctx, m.Stack[0].Doc, false)
}

func (m BrowseModel) current() *browseFrame {
	return &m.Stack[len(m.Stack)-1]
}

func (m BrowseModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case frameMsg:
		m.Stack = append([]browseFrame(nil), m.Stack...)
		if msg.err != nil {
			m.Err = msg.err
			if !msg.push {
				m.current().Pending = false
			}
			return m, nil
		}
		m.Err = nil
		if msg.push {
			m.Stack = append(m.Stack, msg.frame)
		} else {
			m.Stack[len(m.Stack)-1] = msg.frame
		}
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.Height = max(msg.Height-8, 5)
	}
	return m, nil
}

func (m BrowseModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.Stack = append([]browseFrame(nil), m.Stack...)
	f := m.current()
	switch msg.String() {
	case "q", "ctrl+c", "esc":
		return m, tea.Quit
	case "up", "k":
		if f.Cursor > 0 {
			f.Cursor--
			if f.Cursor < f.Offset {
				f.Offset = f.Cursor
			}
		}
	case "down", "j":
		if f.Cursor < len(f.Refs)-1 {
			f.Cursor++
			if f.Cursor >= f.Offset+m.Height {
				f.Offset = f.Cursor - m.Height + 1
			}
		}
	case "enter", "right", "l":
		if f.Cursor >= len(f.Refs) {
			return m, nil
		}
		target, ok := f.Refs[f.Cursor].Resolved()
		if !ok {
			return m, nil
		}
		return m, loadFrame(m.ctx, target, true)
	case "backspace", "left", "h":
		if len(m.Stack) > 1 {
			m.Stack = m.Stack[:len(m.Stack)-1]
			m.Err = nil
		}
	}
	return m, nil
}

func (m BrowseModel) View() string {
	var b strings.Builder
	f := m.current()

	path := make([]string, len(m.Stack))
	for i, fr := range m.Stack {
		path[i] = string(fr.Doc.ID())
	}
	b.WriteString(StyleTitle.Render(strings.Join(path, " › ")))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render(fmt.Sprintf("%s%s", f.Doc.Kind(), flagSummary(f.Flags))))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("↑/↓ navigate  ⏎ open  ⌫ back  q quit"))
	b.WriteString("\n\n")

	switch {
	case f.Pending:
		b.WriteString(listDimStyle.Render("  loading..."))
		b.WriteString("\n")
	case len(f.Refs) == 0:
		b.WriteString(listDimStyle.Render("  no references"))
		b.WriteString("\n")
	}

	end := min(f.Offset+m.Height, len(f.Refs))
	for i := f.Offset; i < end; i++ {
		d := f.Refs[i]
		cursor := "  "
		if i == f.Cursor {
			cursor = "▸ "
		}
		line := cursor + describeRef(d)
		switch {
		case i == f.Cursor:
			b.WriteString(listSelectedStyle.Render(line))
		case d.Missing() || d.Suppressed():
			b.WriteString(listDimStyle.Render(line))
		default:
			b.WriteString(listNormalStyle.Render(line))
		}
		b.WriteString("\n")
	}

	if m.Err != nil {
		b.WriteString("\n")
		b.WriteString(listErrorStyle.Render(iconError + " " + m.Err.Error()))
		b.WriteString("\n")
	}
	if len(f.Refs) > 0 {
		b.WriteString("\n")
		b.WriteString(listDimStyle.Render(fmt.Sprintf("  [%d/%d]", f.Cursor+1, len(f.Refs))))
	}
	return b.String()
}

func describeRef(d *doc.Descriptor) string {
	name := d.FullName()
	if target, ok := d.Resolved(); ok {
		name = fmt.Sprintf("%-28s %s", name, StyleHighlight.Render(fmt.Sprintf("%s (%s)", target.ID(), target.Kind())))
	}
	switch {
	case d.Missing():
		name += "  " + StyleWarning.Render("missing")
	case d.Suppressed():
		name += "  suppressed"
	}
	return name
}

func flagSummary(f doc.Flags) string {
	var parts []string
	if f.Modifiable {
		parts = append(parts, "modifiable")
	}
	if f.ReservedForWrite {
		parts = append(parts, "reserved")
	}
	if len(parts) == 0 {
		return ""
	}
	return " · " + strings.Join(parts, " · ")
}
