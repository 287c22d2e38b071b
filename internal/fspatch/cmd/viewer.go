package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	pathpkg "path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/v2/list"
	"github.com/charmbracelet/bubbles/v2/spinner"
	"github.com/charmbracelet/bubbles/v2/viewport"
	tea "github.com/charmbracelet/bubbletea/v2"

	"fspatch/internal/fspatch/styles"
	"fspatch/internal/report"
	"fspatch/internal/resolve"
	"fspatch/internal/ui/colorize"
)

type viewMode int

const (
	viewReport viewMode = iota
	viewVariants
	viewDetails
)

// analysisMsg carries the result of the background resolution.
type analysisMsg struct {
	doc *report.Document
	err error
}

func analyzeCmd(ctx context.Context, path string, only []string) tea.Cmd {
	return func() tea.Msg {
		doc, err := analyze(ctx, path, only)
		return analysisMsg{doc: doc, err: err}
	}
}

type variantItem struct {
	v report.Variant
}

func (i variantItem) FilterValue() string { return i.v.Name + " " + i.v.Status }

// variantDelegate renders one variant per line: name, status, offset.
type variantDelegate struct{}

func (d variantDelegate) Height() int                               { return 1 }
func (d variantDelegate) Spacing() int                              { return 0 }
func (d variantDelegate) Update(msg tea.Msg, m *list.Model) tea.Cmd { return nil }

func (d variantDelegate) Render(w io.Writer, m list.Model, index int, listItem list.Item) {
	i, ok := listItem.(variantItem)
	if !ok {
		return
	}

	indicator := " "
	nameStyle := styles.Dim
	if index == m.Index() {
		indicator = ">"
		nameStyle = styles.Selected
	}

	offset := i.v.Offset
	if offset == "" {
		offset = fmt.Sprintf("%d candidates", len(i.v.Candidates))
	}

	fmt.Fprintf(w, " %s  %-20s  %-10s  %s",
		indicator,
		nameStyle.Render(i.v.Name),
		styles.Status(i.v.Status).Render(i.v.Status),
		offset)
}

type model struct {
	ctx      context.Context
	filepath string
	only     []string

	reportView  viewport.Model
	variantList list.Model
	detailView  viewport.Model
	spinner     spinner.Model
	mode        viewMode

	doc     *report.Document
	err     error
	loading bool

	width  int
	height int
}

func newModel(ctx context.Context, filepath string, only []string) model {
	if ctx == nil {
		ctx = context.Background()
	}

	rv := viewport.New()
	rv.SetWidth(80)
	rv.SetHeight(24)

	dv := viewport.New()
	dv.SetWidth(80)
	dv.SetHeight(24)

	variantList := list.New([]list.Item{}, variantDelegate{}, 80, 24)
	variantList.SetShowStatusBar(false)
	variantList.SetFilteringEnabled(true)
	variantList.Title = "Variants"
	variantList.Styles.Title = styles.ListTitle
	variantList.SetShowHelp(true)

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = styles.Spinner

	m := model{
		ctx:         ctx,
		filepath:    filepath,
		only:        only,
		reportView:  rv,
		variantList: variantList,
		detailView:  dv,
		spinner:     s,
		loading:     true,
	}
	m.updateContent()
	return m
}

func (m model) Init() tea.Cmd {
	return tea.Batch(
		analyzeCmd(m.ctx, m.filepath, m.only),
		m.spinner.Tick,
	)
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case analysisMsg:
		m.loading = false
		m.doc = msg.doc
		m.err = msg.err
		m.updateVariantList()
		m.updateContent()
		return m, nil

	case spinner.TickMsg:
		if !m.loading {
			return m, nil
		}
		m.spinner, cmd = m.spinner.Update(msg)
		m.updateContent()
		return m, cmd

	case tea.WindowSizeMsg:
		if msg.Width != m.width || msg.Height != m.height {
			m.width = msg.Width
			m.height = msg.Height
			m.reportView.SetWidth(msg.Width)
			m.reportView.SetHeight(msg.Height - 2)
			m.variantList.SetWidth(msg.Width)
			m.variantList.SetHeight(msg.Height - 2)
			m.detailView.SetWidth(msg.Width)
			m.detailView.SetHeight(msg.Height - 2)
			m.updateContent()
		}

	case tea.KeyMsg:
		filtering := m.mode == viewVariants && m.variantList.FilterState() == list.Filtering
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit
		case "q":
			if !filtering {
				return m, tea.Quit
			}
		}
		if !filtering {
			switch msg.String() {
			case "r":
				m.mode = viewReport
				return m, nil
			case "v":
				if m.hasVariants() {
					m.mode = viewVariants
				}
				return m, nil
			case "enter":
				if m.mode == viewVariants {
					if item, ok := m.variantList.SelectedItem().(variantItem); ok {
						m.showDetails(item.v)
						m.mode = viewDetails
					}
				}
				return m, nil
			case "esc":
				if m.mode == viewDetails {
					m.mode = viewVariants
					return m, nil
				}
			case "tab":
				if m.hasVariants() {
					m.mode = (m.mode + 1) % 3
				}
				return m, nil
			case "shift+tab":
				if m.hasVariants() {
					m.mode = (m.mode + 2) % 3
				}
				return m, nil
			}
		}
	}

	switch m.mode {
	case viewVariants:
		m.variantList, cmd = m.variantList.Update(msg)
	case viewDetails:
		m.detailView, cmd = m.detailView.Update(msg)
	default:
		m.reportView, cmd = m.reportView.Update(msg)
	}
	return m, cmd
}

func (m model) View() string {
	var content, menu string
	switch m.mode {
	case viewVariants:
		content = m.variantList.View()
		menu = " Enter: decode • R: report • Tab: cycle • Q: quit "
	case viewDetails:
		content = m.detailView.View()
		menu = " Esc: back • R: report • V: variants • Tab: cycle • Q: quit "
	default:
		content = m.reportView.View()
		if m.hasVariants() {
			menu = " V: variants • Tab: cycle • Q: quit "
		} else {
			menu = " Q: quit "
		}
	}

	return content + "\n" + styles.MenuBar.Width(m.width).Render(menu)
}

func (m model) hasVariants() bool {
	return m.doc != nil && len(m.doc.Variants) > 0
}

// reportMarkdown is the text of the report view before rendering.
func (m model) reportMarkdown() string {
	switch {
	case m.loading:
		return fmt.Sprintf("# fspatch\n\n```\n; %s\n```\n\n%s Resolving...", m.displayPath(), m.spinner.View())
	case m.doc == nil:
		return fmt.Sprintf("# fspatch\n\n```\n; %s\n```\n\n## Error\n\n`%v`", m.displayPath(), m.err)
	default:
		return m.doc.Markdown(false)
	}
}

func (m *model) updateContent() {
	width := m.width
	if width == 0 {
		width = 80
	}
	md := m.reportMarkdown()
	if colorize.Enabled() {
		md = styles.RenderMarkdown(md, width-2)
	}
	m.reportView.SetContent(strings.TrimSuffix(md, "\n"))
}

func (m *model) updateVariantList() {
	if m.doc == nil {
		return
	}
	items := make([]list.Item, 0, len(m.doc.Variants))
	resolved := 0
	for _, v := range m.doc.Variants {
		items = append(items, variantItem{v: v})
		if v.Status == resolve.StatusResolved {
			resolved++
		}
	}
	m.variantList.SetItems(items)
	m.variantList.Title = fmt.Sprintf("Variants (%d/%d resolved)", resolved, len(items))
}

func (m *model) showDetails(v report.Variant) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s  %s\n", v.Name, styles.Status(v.Status).Render(v.Status))
	if v.Description != "" {
		fmt.Fprintf(&sb, "%s\n", v.Description)
	}
	sb.WriteString("\n")

	switch {
	case v.Error != "":
		fmt.Fprintf(&sb, "%s\n\ncandidates: %s\n", v.Error, strings.Join(v.Candidates, ", "))
	case v.DetailsError != "":
		fmt.Fprintf(&sb, "offset %s\n\n%s\n", v.Offset, v.DetailsError)
	default:
		fmt.Fprintf(&sb, "offset %s\n\n", v.Offset)
		sb.WriteString(colorize.Listing(strings.Join(v.Details, "\n")))
	}

	m.detailView.SetContent(sb.String())
	m.detailView.GotoTop()
}

func (m model) displayPath() string {
	if cwd, err := os.Getwd(); err == nil {
		if rel, err := pathpkg.Rel(cwd, m.filepath); err == nil && !strings.HasPrefix(rel, "..") {
			return rel
		}
	}
	return m.filepath
}
