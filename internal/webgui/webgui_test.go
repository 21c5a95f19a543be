package webgui

import (
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"karen/internal/transport"
)

func TestHandleSubstitutesTemplatePlaceholders(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte(
		"<title>__APP_NAME__ __APP_VERSION__</title>__COMMAND_LIST__"), 0644))

	s := New(dir, func() TemplateVars {
		return TemplateVars{
			AppName: "Karen", AppVersion: "1.2.3",
			Commands: []CommandInfo{{Type: "KILL", FriendlyName: "Kill"}},
		}
	})

	rr := httptest.NewRecorder()
	ctx := &transport.Context{Writer: rr, Path: "/webgui/index.html"}
	s.Handle(ctx)

	body := rr.Body.String()
	assert.Contains(t, body, "Karen")
	assert.Contains(t, body, "v1.2.3")
	assert.Contains(t, body, "KILL")
}

func TestHandleRejectsPathTraversal(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "secret.txt"), []byte("top secret"), 0644))

	s := New(dir, func() TemplateVars { return TemplateVars{} })

	rr := httptest.NewRecorder()
	ctx := &transport.Context{Writer: rr, Path: "/webgui/sub/../../secret.txt"}
	s.Handle(ctx)

	assert.NotContains(t, rr.Body.String(), "top secret")
}

func TestSanitizeStripsNestedTraversalSegments(t *testing.T) {
	assert.Equal(t, "/webgui/etc/passwd", sanitize("/webgui/../../../../etc/passwd"))
	assert.Equal(t, "/webgui/index.html", sanitize("/webgui/./././index.html"))
}

func TestHandleMissingFileReturns404(t *testing.T) {
	s := New(t.TempDir(), func() TemplateVars { return TemplateVars{} })

	rr := httptest.NewRecorder()
	s.Handle(&transport.Context{Writer: rr, Path: "/webgui/missing.html"})

	assert.Equal(t, 404, rr.Code)
}
