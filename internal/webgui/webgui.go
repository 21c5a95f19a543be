// Package webgui serves the Brain's static control-panel assets (spec
// §4.1 "/webgui", §6.1) and a small websocket hub that pushes live
// registry/data-buffer events to connected browsers.
//
// The web UI's actual HTML/JS/CSS content is an external collaborator
// (spec §1): this package only does path sanitization, template
// placeholder substitution, and the favicon special case.
package webgui

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"karen/internal/transport"
)

// CommandInfo is one row rendered into __COMMAND_LIST__/__DATA_LIST__.
type CommandInfo struct {
	Type         string
	FriendlyName string
}

// TemplateVars supplies the placeholder values substituted into served
// HTML (spec §6.1).
type TemplateVars struct {
	AppName      string
	AppVersion   string
	Commands     []CommandInfo
	DataCommands []CommandInfo
}

// Server serves static assets rooted at webRoot.
type Server struct {
	webRoot string
	vars    func() TemplateVars
}

func New(webRoot string, vars func() TemplateVars) *Server {
	return &Server{webRoot: webRoot, vars: vars}
}

// Handle serves /webgui/... requests: "." and ".." path segments are
// stripped before resolving against webRoot (spec §4.1), and
// favicon.ico is special-cased to an SVG asset available at either root
// or /webgui/.
func (s *Server) Handle(ctx *transport.Context) {
	reqPath := sanitize(ctx.Path)

	if reqPath == "/webgui" || reqPath == "/webgui/" {
		reqPath = "/webgui/index.html"
	}

	rel := strings.TrimPrefix(reqPath, "/webgui/")
	if rel == "" {
		rel = "index.html"
	}
	if rel == "favicon.ico" {
		s.Favicon(ctx)
		return
	}

	full := filepath.Join(s.webRoot, rel)
	data, err := os.ReadFile(full)
	if err != nil {
		ctx.SendAsset(http.StatusNotFound, "text/html", []byte("<html><body>File not found</body></html>"))
		return
	}

	if strings.HasSuffix(full, ".html") {
		data = []byte(s.substitute(string(data)))
	}

	ctx.SendAsset(http.StatusOK, contentTypeFor(full), data)
}

// Favicon serves the fixed favicon asset regardless of which of the two
// documented paths (/favicon.ico, /webgui/favicon.ico) was requested.
func (s *Server) Favicon(ctx *transport.Context) {
	full := filepath.Join(s.webRoot, "favicon.svg")
	data, err := os.ReadFile(full)
	if err != nil {
		ctx.SendAsset(http.StatusNotFound, "text/html", []byte("<html><body>File not found</body></html>"))
		return
	}
	ctx.SendAsset(http.StatusOK, "image/svg+xml", data)
}

func (s *Server) substitute(body string) string {
	vars := s.vars()

	var cmds, data []string
	for _, c := range vars.Commands {
		label := c.FriendlyName
		if label == "" {
			label = c.Type
		}
		cmds = append(cmds, `<button rel="`+c.Type+`" class="command">`+label+`</button>`)
	}
	for _, c := range vars.DataCommands {
		label := c.FriendlyName
		if label == "" {
			label = c.Type
		}
		data = append(data, `<option value="`+c.Type+`">`+label+`</option>`)
	}

	body = strings.ReplaceAll(body, "__COMMAND_LIST__", strings.Join(cmds, "\n"))
	body = strings.ReplaceAll(body, "__DATA_LIST__", strings.Join(data, "\n"))
	body = strings.ReplaceAll(body, "__APP_NAME__", vars.AppName)
	body = strings.ReplaceAll(body, "__APP_VERSION__", "v"+vars.AppVersion)
	return body
}

// sanitize strips "." and ".." path segments outright (spec §4.1) instead
// of pattern-replacing "/../", which only removes one layer of traversal
// per pass and leaves nested sequences (e.g. "/../../") partially intact.
func sanitize(p string) string {
	segments := strings.Split(p, "/")
	kept := segments[:0]
	for _, seg := range segments {
		if seg == "." || seg == ".." {
			continue
		}
		kept = append(kept, seg)
	}
	return strings.Join(kept, "/")
}

func contentTypeFor(path string) string {
	switch filepath.Ext(path) {
	case ".html":
		return "text/html"
	case ".js":
		return "application/javascript"
	case ".css":
		return "text/css"
	case ".svg":
		return "image/svg+xml"
	case ".png":
		return "image/png"
	default:
		return "application/octet-stream"
	}
}
