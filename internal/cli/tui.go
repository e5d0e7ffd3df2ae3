package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/matzehuels/azdiagram/pkg/collector"
	"github.com/matzehuels/azdiagram/pkg/errors"
)

// List styles
var (
	listDimStyle = lipgloss.NewStyle().Foreground(colorDim)
	headerStyle  = lipgloss.NewStyle().Foreground(colorGray).Bold(true)
)

// =============================================================================
// GroupPickerModel - Interactive resource group selection
// =============================================================================

type groupsLoadedMsg struct {
	groups []string
	err    error
}

// GroupPickerModel is the bubbletea model for choosing a resource group.
// Groups are fetched in the background while a spinner runs.
type GroupPickerModel struct {
	Subscription string
	Groups       []string
	Cursor       int
	Offset       int
	Height       int
	Selected     string
	Err          error

	loading bool
	spinner spinner.Model
	load    tea.Cmd
}

// NewGroupPickerModel creates a picker that lists groups of subscription
// through lister.
func NewGroupPickerModel(ctx context.Context, lister collector.ResourceGroupLister, subscription string) GroupPickerModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = styleIconSpinner
	return GroupPickerModel{
		Subscription: subscription,
		Height:       15,
		loading:      true,
		spinner:      s,
		load: func() tea.Msg {
			groups, err := lister.ListResourceGroups(ctx, subscription)
			return groupsLoadedMsg{groups: groups, err: err}
		},
	}
}

func (m GroupPickerModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.load)
}

func (m GroupPickerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case groupsLoadedMsg:
		m.loading = false
		m.Groups, m.Err = msg.groups, msg.err
		if m.Err != nil {
			return m, tea.Quit
		}
		if len(m.Groups) == 0 {
			m.Err = errors.New(errors.ErrCodeNotFound, "no resource groups visible in subscription %s", m.Subscription)
			return m, tea.Quit
		}
		return m, nil
	case spinner.TickMsg:
		if !m.loading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "up", "k":
			if m.Cursor > 0 {
				m.Cursor--
				if m.Cursor < m.Offset {
					m.Offset = m.Cursor
				}
			}
		case "down", "j":
			if m.Cursor < len(m.Groups)-1 {
				m.Cursor++
				if m.Cursor >= m.Offset+m.Height {
					m.Offset = m.Cursor - m.Height + 1
				}
			}
		case "enter":
			if m.loading || len(m.Groups) == 0 {
				return m, nil
			}
			m.Selected = m.Groups[m.Cursor]
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.Height = max(msg.Height-6, 5)
	}
	return m, nil
}

func (m GroupPickerModel) View() string {
	var b strings.Builder

	if m.loading {
		b.WriteString(fmt.Sprintf("\n%s Listing resource groups...\n", m.spinner.View()))
		return b.String()
	}

	b.WriteString(StyleTitle.Render("Select Resource Group"))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("↑/↓ navigate  ⏎ select  q quit"))
	b.WriteString("\n\n")

	end := min(m.Offset+m.Height, len(m.Groups))
	rows := [][]string{}
	for i := m.Offset; i < end; i++ {
		cursor := "  "
		if i == m.Cursor {
			cursor = "▸ "
		}
		rows = append(rows, []string{cursor, m.Groups[i]})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("", "Resource group").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return headerStyle
			}
			if m.Offset+row == m.Cursor {
				return lipgloss.NewStyle().Foreground(colorGreen).Bold(true)
			}
			return lipgloss.NewStyle().Foreground(colorWhite)
		})

	b.WriteString(t.Render())
	b.WriteString("\n\n")
	b.WriteString(listDimStyle.Render(fmt.Sprintf("  [%d/%d]", m.Cursor+1, len(m.Groups))))

	return b.String()
}

// pickResourceGroup runs the picker on stderr and returns the chosen group.
func pickResourceGroup(ctx context.Context, lister collector.ResourceGroupLister, subscription string) (string, error) {
	p := tea.NewProgram(
		NewGroupPickerModel(ctx, lister, subscription),
		tea.WithContext(ctx),
		tea.WithOutput(os.Stderr),
	)
	final, err := p.Run()
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("resource group picker: %w", err)
	}
	m, _ := final.(GroupPickerModel)
	if m.Err != nil {
		return "", m.Err
	}
	if m.Selected == "" {
		return "", errors.New(errors.ErrCodeInvalidScope, "no resource group selected")
	}
	return m.Selected, nil
}
