package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/mockwire/mockwire/pkg/client"
)

var (
	statusOKStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(lipgloss.Color("#98C379")).
			Padding(0, 1)

	statusRedirectStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("#FFFFFF")).
				Background(lipgloss.Color("#E5C07B")).
				Padding(0, 1)

	statusErrorStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("#FFFFFF")).
				Background(lipgloss.Color("#E06C75")).
				Padding(0, 1)

	headerNameStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#61AFEF"))

	headerValueStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#ABB2BF"))
)

func statusStyle(status int) lipgloss.Style {
	switch {
	case status >= 200 && status < 300:
		return statusOKStyle
	case status >= 300 && status < 400:
		return statusRedirectStyle
	default:
		return statusErrorStyle
	}
}

// renderResponse prints a settled response: status line, optional
// headers, then the body.
func renderResponse(c client.Requester, includeHeaders bool) {
	line := fmt.Sprintf("%d %s", c.Status(), c.StatusText())
	fmt.Println(statusStyle(c.Status()).Render(line))

	if includeHeaders {
		for _, raw := range strings.Split(c.GetAllResponseHeaders(), "\r\n") {
			name, value, ok := strings.Cut(raw, ":")
			if !ok {
				continue
			}
			fmt.Printf("%s:%s\n",
				headerNameStyle.Render(name),
				headerValueStyle.Render(value))
		}
		fmt.Println()
	}

	if body := c.ResponseText(); body != "" {
		fmt.Println(body)
	}
}
