package webchat

import (
	"embed"
	"html/template"
)

//go:embed templates/index.html
var templateFS embed.FS

var pageTemplate = template.Must(template.ParseFS(templateFS, "templates/index.html"))

type pageData struct {
	Title    string
	Subtitle string
	Tagline  string
	Messages []HistoryMessage
}

func newPageData(history []HistoryMessage) pageData {
	return pageData{
		Title:    "Green Futurz",
		Subtitle: "Welcome to Green Futurz's AI Assistant",
		Tagline:  "Empowering Intelligence, everywhere",
		Messages: history,
	}
}
