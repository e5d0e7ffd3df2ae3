package cli

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/matzehuels/azdiagram/pkg/errors"
)

// Palette. Azure blue leads; the rest follow the terminal's 256 colours.
var (
	colorAzure  = lipgloss.Color("33")
	colorGreen  = lipgloss.Color("35")
	colorYellow = lipgloss.Color("214")
	colorRed    = lipgloss.Color("167")
	colorWhite  = lipgloss.Color("255")
	colorGray   = lipgloss.Color("245")
	colorDim    = lipgloss.Color("240")
)

var (
	StyleTitle  = lipgloss.NewStyle().Bold(true).Foreground(colorAzure)
	StyleDim    = lipgloss.NewStyle().Foreground(colorDim)
	StyleValue  = lipgloss.NewStyle().Foreground(colorWhite)
	StyleNumber = lipgloss.NewStyle().Foreground(colorAzure)

	styleIconSpinner = lipgloss.NewStyle().Foreground(colorAzure)
	styleCommand     = lipgloss.NewStyle().Foreground(colorAzure).Italic(true)
	styleKey         = lipgloss.NewStyle().Foreground(colorGray).Width(14)
)

// marker is the leading symbol of a status line.
type marker struct {
	icon  string
	style lipgloss.Style
}

var (
	markSuccess = marker{"✓", lipgloss.NewStyle().Foreground(colorGreen)}
	markError   = marker{"✗", lipgloss.NewStyle().Foreground(colorRed)}
	markWarning = marker{"!", lipgloss.NewStyle().Foreground(colorYellow)}
	markInfo    = marker{"›", lipgloss.NewStyle().Foreground(colorGray)}
	markAdded   = marker{"+", lipgloss.NewStyle().Foreground(colorGreen)}
	markRemoved = marker{"-", lipgloss.NewStyle().Foreground(colorRed)}
)

// statusOut receives status lines. Stdout is reserved for command output
// such as graph JSON.
var statusOut io.Writer = os.Stderr

func (m marker) println(msg string) {
	fmt.Fprintln(statusOut, m.style.Render(m.icon)+" "+msg)
}

func printSuccess(format string, args ...any) { markSuccess.println(fmt.Sprintf(format, args...)) }
func printError(format string, args ...any)   { markError.println(fmt.Sprintf(format, args...)) }
func printInfo(format string, args ...any)    { markInfo.println(fmt.Sprintf(format, args...)) }

func printWarning(format string, args ...any) {
	markWarning.println(markWarning.style.Render(fmt.Sprintf(format, args...)))
}

// printDetail prints an indented, dimmed line.
func printDetail(format string, args ...any) {
	fmt.Fprintln(statusOut, "  "+StyleDim.Render(fmt.Sprintf(format, args...)))
}

func printFile(path string) {
	fmt.Fprintln(statusOut, "  "+StyleDim.Render("→")+" "+StyleValue.Render(path))
}

func printKeyValue(key, value string) {
	fmt.Fprintln(statusOut, styleKey.Render(key)+" "+StyleValue.Render(value))
}

// printStats prints resource and relation counts and whether the result
// came from the cache.
func printStats(nodes, edges int, cached bool) {
	parts := []string{StyleDim.Render(fmt.Sprintf("%d resources", nodes))}
	if edges > 0 {
		parts = append(parts, StyleDim.Render(fmt.Sprintf("%d relations", edges)))
	}
	if cached {
		parts = append(parts, markSuccess.style.Render("cached"))
	} else {
		parts = append(parts, StyleDim.Render("fresh"))
	}
	fmt.Fprintln(statusOut, "  "+strings.Join(parts, StyleDim.Render(" · ")))
}

// printChanges lists cell ids added and removed since the previous
// generation, at most limit of each.
func printChanges(added, removed []string, limit int) {
	listChanges(markAdded, "added", added, limit)
	listChanges(markRemoved, "removed", removed, limit)
}

func listChanges(m marker, verb string, ids []string, limit int) {
	for i, id := range ids {
		if i == limit {
			printDetail("... %d more %s", len(ids)-limit, verb)
			return
		}
		fmt.Fprintln(statusOut, "  "+m.style.Render(m.icon+" "+id))
	}
}

// printNextStep suggests a follow-up command.
func printNextStep(description, cmd string) {
	fmt.Fprintln(statusOut, StyleDim.Render(description+":")+" "+styleCommand.Render(cmd))
}

// reportError prints a failed command: the message without its code, then
// the remedy for the code if there is one.
func reportError(w io.Writer, err error) {
	if stderrors.Is(err, context.Canceled) {
		fmt.Fprintln(w, markWarning.style.Render(markWarning.icon)+" interrupted")
		return
	}
	fmt.Fprintln(w, markError.style.Render(markError.icon)+" "+errors.UserMessage(err))
	if hint := errors.Hint(err); hint != "" {
		fmt.Fprintln(w, "  "+StyleDim.Render(hint))
	}
}
