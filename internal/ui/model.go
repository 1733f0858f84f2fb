package ui

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/nconklindev/tableview/internal/loader"
	"github.com/nconklindev/tableview/internal/render"
	"github.com/nconklindev/tableview/internal/types"

	"github.com/charmbracelet/bubbles/filepicker"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"
)

type state int

const (
	stateFilePicker state = iota
	stateColumnSelection
	stateProcessing
	stateComplete
	stateError
)

var storeModes = []types.StoreMode{types.StoreLocal, types.StoreBase64, types.StoreNone}

type Model struct {
	state        state
	filepicker   filepicker.Model
	selectedFile string
	table        *types.Table
	kinds        map[string]types.CellKind
	selectedCols map[int]bool
	config       types.RenderConfig
	loadOpts     loader.Options
	logger       *slog.Logger
	cursor       int
	result       *types.RenderResult
	err          error
	width        int
	height       int
	progress     progress.Model
	progressChan chan float64
	resultChan   chan renderResultMsg
}

type renderResultMsg struct {
	result *types.RenderResult
	err    error
}

type fileLoadedMsg struct {
	table   *types.Table
	preview *types.Preview
	err     error
}

type renderCompleteMsg struct {
	result *types.RenderResult
	err    error
}

type progressMsg float64

type waitForProgressMsg struct{}

// InitialModel starts in the file picker. cfg seeds the render options the
// user can still toggle before rendering.
func InitialModel(cfg types.RenderConfig, opts loader.Options, logger *slog.Logger) Model {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.StoreImage == "" {
		cfg.StoreImage = types.StoreLocal
	}

	fp := filepicker.New()
	fp.AllowedTypes = loader.SupportedExtensions
	fp.CurrentDirectory, _ = os.Getwd()

	fp.Styles = filePickerStyles(fp.Styles)

	prog := progress.New(progress.WithGradient(string(colorAccent), colorAccentEnd))

	return Model{
		state:        stateFilePicker,
		filepicker:   fp,
		selectedCols: make(map[int]bool),
		config:       cfg,
		loadOpts:     opts,
		logger:       logger,
		progress:     prog,
	}
}

func (m Model) Init() tea.Cmd {
	return m.filepicker.Init()
}

// Result is the outcome of the last render, nil until one completes.
func (m Model) Result() *types.RenderResult {
	return m.result
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		// Leave room for the title, subtitle and help lines
		height := msg.Height - 14
		if height < 5 {
			height = 5
		}

		m.filepicker.SetHeight(height)

		return m, nil

	case tea.KeyMsg:
		switch m.state {
		case stateFilePicker:
			switch msg.String() {
			case "ctrl+c", "q":
				return m, tea.Quit
			}

		case stateColumnSelection:
			switch msg.String() {
			case "ctrl+c", "q":
				return m, tea.Quit
			case "up", "k":
				if m.cursor > 0 {
					m.cursor--
				}
			case "down", "j":
				if m.cursor < len(m.table.Columns)-1 {
					m.cursor++
				}
			case " ":
				m.selectedCols[m.cursor] = !m.selectedCols[m.cursor]
			case "a":
				for i := range m.table.Columns {
					m.selectedCols[i] = true
				}
			case "i":
				m.config.DisplayIndex = !m.config.DisplayIndex
			case "s":
				m.config.StoreImage = nextStoreMode(m.config.StoreImage)
			case "enter":
				if len(m.selectedColumns()) > 0 {
					m.state = stateProcessing
					return m.renderFile()
				}
			}

		case stateComplete, stateError:
			switch msg.String() {
			case "ctrl+c", "q", "enter", "esc":
				return m, tea.Quit
			}
		}

	case fileLoadedMsg:
		if msg.err != nil {
			m.err = msg.err
			m.state = stateError
			return m, nil
		}
		m.table = msg.table
		m.kinds = make(map[string]types.CellKind, len(msg.preview.Columns))
		for _, c := range msg.preview.Columns {
			m.kinds[c.Name] = c.Kind
		}

		for i := range m.table.Columns {
			m.selectedCols[i] = true
		}

		m.state = stateColumnSelection
		return m, nil

	case renderCompleteMsg:
		if msg.err != nil {
			m.err = msg.err
			m.state = stateError
			return m, nil
		}
		m.result = msg.result
		m.state = stateComplete
		return m, nil

	case progress.FrameMsg:
		progressModel, cmd := m.progress.Update(msg)
		m.progress = progressModel.(progress.Model)
		return m, cmd

	case progressMsg:
		if m.state == stateProcessing {
			cmd := m.progress.SetPercent(float64(msg))
			return m, tea.Batch(cmd, waitForProgress(m.progressChan, m.resultChan))
		}
		return m, nil

	case waitForProgressMsg:
		return m, waitForProgress(m.progressChan, m.resultChan)
	}

	if m.state == stateFilePicker {
		var cmd tea.Cmd
		m.filepicker, cmd = m.filepicker.Update(msg)

		if didSelect, path := m.filepicker.DidSelectFile(msg); didSelect {
			m.selectedFile = path
			return m, m.loadFile(path)
		}

		return m, cmd
	}

	return m, nil
}

func nextStoreMode(mode types.StoreMode) types.StoreMode {
	for i, s := range storeModes {
		if s == mode {
			return storeModes[(i+1)%len(storeModes)]
		}
	}
	return types.StoreLocal
}

// selectedColumns returns the chosen column names in table order.
func (m Model) selectedColumns() []string {
	var cols []string
	for i, name := range m.table.Columns {
		if m.selectedCols[i] {
			cols = append(cols, name)
		}
	}
	return cols
}

func (m Model) loadFile(path string) tea.Cmd {
	opts := m.loadOpts
	return func() tea.Msg {
		table, err := loader.Load(context.Background(), path, opts)
		if err != nil {
			return fileLoadedMsg{err: err}
		}
		return fileLoadedMsg{table: table, preview: loader.Summarize(path, table)}
	}
}

func (m Model) renderFile() (Model, tea.Cmd) {
	m.progressChan = make(chan float64, 100)
	m.resultChan = make(chan renderResultMsg, 1)

	cmd := tea.Batch(
		func() tea.Msg {
			// Capture everything the goroutine needs
			progressChan := m.progressChan
			resultChan := m.resultChan
			table := m.table
			columns := m.selectedColumns()
			cfg := m.config
			logger := m.logger

			go func() {
				result, err := renderTable(table, columns, cfg, logger, progressChan)

				resultChan <- renderResultMsg{result: result, err: err}

				close(progressChan)
				close(resultChan)
			}()

			return waitForProgressMsg{}
		},
		waitForProgress(m.progressChan, m.resultChan),
		m.progress.Init(),
	)

	return m, cmd
}

func renderTable(table *types.Table, columns []string, cfg types.RenderConfig, logger *slog.Logger, progressChan chan<- float64) (*types.RenderResult, error) {
	selected, err := table.Select(columns)
	if err != nil {
		return nil, err
	}
	r, err := render.New(cfg, logger)
	if err != nil {
		return nil, err
	}
	r.SetData(selected)
	r.SetProgress(progressChan)
	return r.Save()
}

func waitForProgress(progressChan chan float64, resultChan chan renderResultMsg) tea.Cmd {
	return func() tea.Msg {
		if progressChan == nil {
			return nil
		}

		p, ok := <-progressChan
		if !ok {
			res, ok := <-resultChan
			if ok {
				return renderCompleteMsg(res)
			}
			return nil
		}

		return progressMsg(p)
	}
}

func (m Model) View() string {
	switch m.state {
	case stateFilePicker:
		return m.viewFilePicker()
	case stateColumnSelection:
		return m.viewColumnSelection()
	case stateProcessing:
		return m.viewProcessing()
	case stateComplete:
		return m.viewComplete()
	case stateError:
		return m.viewError()
	}
	return ""
}

func (m Model) viewFilePicker() string {
	var s strings.Builder

	s.WriteString(TitleStyle.Render("▦ tableview - Table to HTML"))
	s.WriteString("\n")
	s.WriteString(SubtitleStyle.Render("Select a CSV, TSV, XLSX, JSON or SQLite file to render"))
	s.WriteString("\n\n")
	s.WriteString(m.filepicker.View())
	s.WriteString("\n\n")
	s.WriteString(HelpStyle.Render("Press q to quit"))

	return s.String()
}

func (m Model) viewColumnSelection() string {
	var s strings.Builder

	s.WriteString(TitleStyle.Render("▦ Select Columns to Render"))
	s.WriteString("\n")
	s.WriteString(SubtitleStyle.Render(fmt.Sprintf("File: %s • %d rows", filepath.Base(m.selectedFile), m.table.Len())))
	s.WriteString("\n\n")

	for i, header := range m.table.Columns {
		cursor := " "
		if m.cursor == i {
			cursor = ">"
		}

		checked := " "
		if m.selectedCols[i] {
			checked = "✓"
		}

		line := fmt.Sprintf("%s [%s] %s (%s)", cursor, checked, header, m.kinds[header])

		if m.cursor == i {
			line = SelectedStyle.Render(line)
		} else if m.selectedCols[i] {
			line = CheckedStyle.Render(line)
		} else {
			line = UnselectedStyle.Render(line)
		}

		s.WriteString(line)
		s.WriteString("\n")
	}

	s.WriteString("\n")

	indexStatus := "[ ]"
	if m.config.DisplayIndex {
		indexStatus = "[x]"
	}
	s.WriteString(fmt.Sprintf("Display index: %s\n", indexStatus))
	s.WriteString(fmt.Sprintf("Images: %s\n", m.config.StoreImage))
	s.WriteString("\n")
	s.WriteString(HelpStyle.Render("↑/↓: navigate • space: toggle • a: select all • i: index • s: image mode • enter: render • q: quit"))

	return BoxStyle.Render(s.String())
}

func (m Model) viewProcessing() string {
	var s strings.Builder

	s.WriteString(TitleStyle.Render("▦ Rendering..."))
	s.WriteString("\n\n")
	s.WriteString("Formatting cells and writing images...")
	s.WriteString("\n\n")
	s.WriteString(m.progress.View())

	return BoxStyle.Render(s.String())
}

func (m Model) viewComplete() string {
	var s strings.Builder

	s.WriteString(TitleStyle.Render("✓ Render Complete!"))
	s.WriteString("\n\n")

	width := max(m.width-20, 30)
	inputPath := truncatePath(m.selectedFile, width)
	outputPath := truncatePath(m.result.OutputFile, width)

	fmt.Fprintf(&s, "Input:  %s\n", inputPath)
	s.WriteString(SuccessStyle.Render("Output: " + outputPath))
	s.WriteString("\n\n")
	fmt.Fprintf(&s, "Rows rendered: %d of %d\n", m.result.RowsRendered, m.result.RowsTotal)
	fmt.Fprintf(&s, "Images written: %d\n", m.result.ImagesWritten)
	fmt.Fprintf(&s, "Page size: %s\n", humanize.Bytes(uint64(m.result.BytesWritten)))
	s.WriteString("\n")
	s.WriteString(HelpStyle.Render("Press any key to exit"))

	return BoxStyle.Render(s.String())
}

func (m Model) viewError() string {
	var s strings.Builder

	s.WriteString(ErrorStyle.Render("✗ Error"))
	s.WriteString("\n\n")
	s.WriteString(m.err.Error())
	s.WriteString("\n\n")
	s.WriteString(HelpStyle.Render("Press any key to exit"))

	return BoxStyle.Render(s.String())
}

// truncatePath keeps the tail of p so it fits in width columns.
func truncatePath(p string, width int) string {
	if len(p) <= width {
		return p
	}
	return "..." + p[len(p)-width+3:]
}
