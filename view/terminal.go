package view

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/skip2/go-qrcode"
)

var (
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")).Padding(0, 1)
	cellStyle    = lipgloss.NewStyle().Padding(0, 1)
	mutedStyle   = lipgloss.NewStyle().Faint(true)
	folderStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("13"))
	successStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
	errorStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
	borderStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// TerminalList renders the visible rows as a table. An error or empty view renders its
// message instead.
func TerminalList(v ListView) string {
	if v.Error != "" {
		return errorStyle.Render(v.Error)
	}
	if v.Empty() {
		return mutedStyle.Render(v.Placeholder)
	}
	visible := v.VisibleRows()
	if len(visible) == 0 {
		return mutedStyle.Render("No files match the search")
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(borderStyle).
		Headers("", "NAME", "SIZE", "UPLOADED", "FOLDER", "ID").
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			if col == 4 {
				return cellStyle.Inherit(folderStyle)
			}
			return cellStyle
		})
	for _, r := range visible {
		t.Row(r.Icon, r.Name, r.Size, r.UploadedAt, r.Folder, r.FileID)
	}
	return t.String()
}

// TerminalFolders renders the folder filter options, marking the selected one.
func TerminalFolders(f FolderOptions) string {
	if len(f.Options) == 0 {
		return mutedStyle.Render("Folders: (none)")
	}
	parts := make([]string, 0, len(f.Options)+1)
	mark := func(name, value string) string {
		if value == f.Selected {
			return successStyle.Render("[" + name + "]")
		}
		return name
	}
	parts = append(parts, mark("all", AllFolders))
	for _, o := range f.Options {
		parts = append(parts, mark(o, o))
	}
	return "Folders: " + strings.Join(parts, " ")
}

// TerminalMessage renders a banner message.
func TerminalMessage(m Message) string {
	if m.Kind == KindError {
		return errorStyle.Render("✗ " + m.Text)
	}
	return successStyle.Render("✓ " + m.Text)
}

// TerminalQRCode renders data as a QR code made of block characters.
func TerminalQRCode(data string) (string, error) {
	q, err := qrcode.New(data, qrcode.Medium)
	if err != nil {
		return "", fmt.Errorf("failed to encode QR code: %v", err)
	}
	return q.ToSmallString(false), nil
}
