package server

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matkrin/ignorels/internal/buffer"
	"github.com/matkrin/ignorels/internal/completion"
	"github.com/matkrin/ignorels/internal/lsp"
	"github.com/matkrin/ignorels/internal/utils"
)

func mockState() *State {
	return NewState(Config{Completion: completion.DefaultOptions()})
}

// mockWorkspace creates files below a temp dir and returns the URI of a
// .gitignore inside it.
func mockWorkspace(t *testing.T, paths ...string) (string, string) {
	t.Helper()
	root := t.TempDir()
	for _, p := range paths {
		full := filepath.Join(root, filepath.FromSlash(p))
		if strings.HasSuffix(p, "/") {
			require.NoError(t, os.MkdirAll(full, 0o755))
			continue
		}
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, nil, 0o644))
	}
	return utils.PathToURI(filepath.Join(root, ".gitignore")), root
}

func message(t *testing.T, id int, params any) []byte {
	t.Helper()
	msg := map[string]any{"jsonrpc": "2.0", "params": params}
	if id > 0 {
		msg["id"] = id
	}
	contents, err := json.Marshal(msg)
	require.NoError(t, err)
	return contents
}

func didOpen(t *testing.T, uri, text string) []byte {
	return message(t, 0, map[string]any{
		"textDocument": map[string]any{"uri": uri, "languageId": "ignore", "version": 1, "text": text},
	})
}

func didChange(t *testing.T, uri string, version int, changes ...map[string]any) []byte {
	return message(t, 0, map[string]any{
		"textDocument":   map[string]any{"uri": uri, "version": version},
		"contentChanges": changes,
	})
}

func change(startLine, startChar, endLine, endChar int, text string) map[string]any {
	return map[string]any{
		"range": map[string]any{
			"start": map[string]any{"line": startLine, "character": startChar},
			"end":   map[string]any{"line": endLine, "character": endChar},
		},
		"text": text,
	}
}

func positionRequest(t *testing.T, id int, uri string, line, character int) []byte {
	return message(t, id, map[string]any{
		"textDocument": map[string]any{"uri": uri},
		"position":     map[string]any{"line": line, "character": character},
	})
}

// responses splits the framed output into its JSON bodies.
func responses(t *testing.T, output string) []map[string]any {
	t.Helper()
	var result []map[string]any
	data := []byte(output)
	for len(data) > 0 {
		advance, token, err := lsp.Split(data, true)
		require.NoError(t, err)
		require.NotZero(t, advance, "incomplete message in %q", output)
		_, content, err := lsp.DecodeMessage(token)
		require.NoError(t, err)
		var body map[string]any
		require.NoError(t, json.Unmarshal(content, &body))
		result = append(result, body)
		data = data[advance:]
	}
	return result
}

func responseByID(t *testing.T, output string, id int) map[string]any {
	t.Helper()
	for _, body := range responses(t, output) {
		if got, ok := body["id"].(float64); ok && int(got) == id {
			return body
		}
	}
	t.Fatalf("no response with id %d in %q", id, output)
	return nil
}

func completionLabels(t *testing.T, body map[string]any) []string {
	t.Helper()
	items, ok := body["result"].([]any)
	require.True(t, ok, "result is not a list: %v", body["result"])
	labels := []string{}
	for _, item := range items {
		labels = append(labels, item.(map[string]any)["label"].(string))
	}
	return labels
}

func TestHandleMessage(t *testing.T) {
	var testCases = []struct {
		method   string
		contents []byte
	}{
		{
			method:   "initialize",
			contents: []byte(`{"id": 1, "params": {"clientInfo": {"name": "TestClient", "version": "1.0"}, "workspaceFolders": [{"uri": "file:///workspace", "name": "workspace"}]}}`),
		},
		{
			method:   "shutdown",
			contents: []byte(`{"id": 1}`),
		},
	}

	for _, tt := range testCases {
		t.Run(tt.method, func(t *testing.T) {
			var buf bytes.Buffer
			writer := &buf

			server := NewServer("ignorels", "test", mockState(), writer)
			server.HandleMessage(tt.method, tt.contents)
			server.Stop()

			switch tt.method {
			case "initialize":
				expectedIn := []string{
					`"jsonrpc":"2.0"`,
					`"positionEncoding":"utf-16"`,
					`"textDocumentSync":{"openClose":true,"change":2}`,
					`"triggerCharacters":["/","."]`,
					`"serverInfo":{"name":"ignorels","version":"test"}`,
				}
				response := writer.String()
				for _, exp := range expectedIn {
					if !strings.Contains(response, exp) {
						t.Errorf("'%s' failed. expected '%s' in '%s'", tt.method, exp, response)
					}
				}

			case "shutdown":
				expectedIn := []string{"Content-Length: 38", `"jsonrpc"`, `"result":null`}
				response := writer.String()
				for _, exp := range expectedIn {
					if !strings.Contains(response, exp) {
						t.Errorf("'%s' failed. expected '%s' in '%s'", tt.method, exp, response)
					}
				}
			}
		})
	}
}

func TestInitialize_PositionEncoding(t *testing.T) {
	var buf bytes.Buffer
	state := mockState()
	server := NewServer("ignorels", "test", state, &buf)

	server.HandleMessage("initialize", []byte(`{"id": 1, "params": {"capabilities": {"general": {"positionEncodings": ["utf-8", "utf-16"]}}}}`))
	server.Stop()

	assert.Contains(t, buf.String(), `"positionEncoding":"utf-8"`)
	assert.Equal(t, buffer.UTF8, state.Encoding)
}

func TestCompletion_AfterIncrementalEdits(t *testing.T) {
	uri, _ := mockWorkspace(t, "node_modules/", "src/a.log", "src/b.lock", "src/index.js")
	var buf bytes.Buffer
	server := NewServer("ignorels", "test", mockState(), &buf)

	server.HandleMessage("textDocument/didOpen", didOpen(t, uri, "node_modules/\n"))
	server.HandleMessage("textDocument/didChange", didChange(t, uri, 2,
		change(1, 0, 1, 0, "src/"),
		change(1, 4, 1, 4, "*.lo"),
	))
	server.HandleMessage("textDocument/completion", positionRequest(t, 7, uri, 1, 8))
	server.Stop()

	body := responseByID(t, buf.String(), 7)
	assert.ElementsMatch(t, []string{"a.log", "b.lock", "index.js"}, completionLabels(t, body))
}

func TestCompletion_ItemKinds(t *testing.T) {
	uri, root := mockWorkspace(t, "build/", "main.go")
	var buf bytes.Buffer
	server := NewServer("ignorels", "test", mockState(), &buf)

	server.HandleMessage("textDocument/didOpen", didOpen(t, uri, "b"))
	server.HandleMessage("textDocument/completion", positionRequest(t, 2, uri, 0, 1))
	server.Stop()

	body := responseByID(t, buf.String(), 2)
	kinds := map[string]float64{}
	details := map[string]string{}
	for _, item := range body["result"].([]any) {
		entry := item.(map[string]any)
		kinds[entry["label"].(string)] = entry["kind"].(float64)
		details[entry["label"].(string)] = entry["detail"].(string)
	}
	assert.Equal(t, float64(lsp.CompletionFolder), kinds["build"])
	assert.Equal(t, float64(lsp.CompletionFile), kinds["main.go"])
	assert.Equal(t, filepath.Join(root, "build"), details["build"])
}

func TestCompletion_UnknownDocument(t *testing.T) {
	var buf bytes.Buffer
	server := NewServer("ignorels", "test", mockState(), &buf)

	server.HandleMessage("textDocument/completion", positionRequest(t, 3, "file:///never/opened/.gitignore", 0, 0))
	server.Stop()

	body := responseByID(t, buf.String(), 3)
	assert.Empty(t, completionLabels(t, body))
	assert.Contains(t, buf.String(), `"method":"window/logMessage"`)
	assert.Contains(t, buf.String(), "document is not opened on the server")
}

func TestCompletion_Errors(t *testing.T) {
	testCases := []struct {
		name    string
		text    string
		line    int
		message string
	}{
		{name: "line out of range", text: "src/", line: 4, message: "line out of range"},
		{name: "missing directory", text: "nope/", line: 0, message: "cannot list"},
	}

	for _, tt := range testCases {
		t.Run(tt.name, func(t *testing.T) {
			uri, _ := mockWorkspace(t, "src/")
			var buf bytes.Buffer
			server := NewServer("ignorels", "test", mockState(), &buf)

			server.HandleMessage("textDocument/didOpen", didOpen(t, uri, tt.text))
			server.HandleMessage("textDocument/completion", positionRequest(t, 4, uri, tt.line, 0))
			server.Stop()

			body := responseByID(t, buf.String(), 4)
			assert.Empty(t, completionLabels(t, body))
			assert.Contains(t, buf.String(), tt.message)
		})
	}
}

func TestDidChange_Errors(t *testing.T) {
	t.Run("unknown document", func(t *testing.T) {
		var buf bytes.Buffer
		server := NewServer("ignorels", "test", mockState(), &buf)

		server.HandleMessage("textDocument/didChange", didChange(t, "file:///x/.gitignore", 2, change(0, 0, 0, 0, "a")))
		server.Stop()

		assert.Contains(t, buf.String(), "document is not opened on the server")
	})

	t.Run("malformed edit keeps document", func(t *testing.T) {
		uri, _ := mockWorkspace(t)
		state := mockState()
		var buf bytes.Buffer
		server := NewServer("ignorels", "test", state, &buf)

		server.HandleMessage("textDocument/didOpen", didOpen(t, uri, "src/"))
		server.HandleMessage("textDocument/didChange", didChange(t, uri, 2, change(3, 0, 3, 0, "x")))
		server.Stop()

		assert.Contains(t, buf.String(), "malformed edit")
		doc, ok := state.Documents.Get(uri)
		require.True(t, ok)
		assert.Equal(t, "src/", doc.Text())
	})
}

func TestDidClose_RemovesDocument(t *testing.T) {
	uri, _ := mockWorkspace(t)
	state := mockState()
	var buf bytes.Buffer
	server := NewServer("ignorels", "test", state, &buf)

	server.HandleMessage("textDocument/didOpen", didOpen(t, uri, "src/"))
	server.HandleMessage("textDocument/didClose", message(t, 0, map[string]any{
		"textDocument": map[string]any{"uri": uri},
	}))
	server.Stop()

	_, ok := state.Documents.Get(uri)
	assert.False(t, ok)
	assert.Contains(t, buf.String(), `"diagnostics":[]`)
}

func TestDidChangeConfiguration(t *testing.T) {
	uri, _ := mockWorkspace(t, "src/main.go", "!src/kept.txt")
	state := mockState()
	var buf bytes.Buffer
	server := NewServer("ignorels", "test", state, &buf)

	server.HandleMessage("textDocument/didOpen", didOpen(t, uri, "!src/"))
	server.HandleMessage("workspace/didChangeConfiguration", message(t, 0, map[string]any{
		"settings": map[string]any{"ignorels": map[string]any{"stripAnchorMarkers": false}},
	}))
	server.HandleMessage("textDocument/completion", positionRequest(t, 5, uri, 0, 5))
	server.Stop()

	assert.False(t, state.Resolver().Options().StripAnchorMarkers)
	assert.False(t, state.Resolver().Options().NormalizeBeforeSplit)
	body := responseByID(t, buf.String(), 5)
	assert.Equal(t, []string{"kept.txt"}, completionLabels(t, body))
}

func TestHover(t *testing.T) {
	uri, _ := mockWorkspace(t, "logs/a.log", "logs/b.log", "logs/c.txt")
	var buf bytes.Buffer
	server := NewServer("ignorels", "test", mockState(), &buf)

	server.HandleMessage("textDocument/didOpen", didOpen(t, uri, "# logs\nlogs/*.log"))
	server.HandleMessage("textDocument/hover", positionRequest(t, 8, uri, 1, 3))
	server.HandleMessage("textDocument/hover", positionRequest(t, 9, uri, 0, 3))
	server.Stop()

	body := responseByID(t, buf.String(), 8)
	result := body["result"].(map[string]any)
	value := result["contents"].(map[string]any)["value"].(string)
	assert.Contains(t, value, "**2 matches** in `logs`")
	assert.Contains(t, value, "- `a.log`")
	assert.NotContains(t, value, "c.txt")

	comment := responseByID(t, buf.String(), 9)
	assert.Nil(t, comment["result"])
}

func TestDefinition(t *testing.T) {
	uri, root := mockWorkspace(t, "cfg/app.env", "cfg/dev.env", "cfg/sub.env/")
	var buf bytes.Buffer
	server := NewServer("ignorels", "test", mockState(), &buf)

	server.HandleMessage("textDocument/didOpen", didOpen(t, uri, "cfg/*.env"))
	server.HandleMessage("textDocument/definition", positionRequest(t, 6, uri, 0, 5))
	server.Stop()

	body := responseByID(t, buf.String(), 6)
	uris := []string{}
	for _, location := range body["result"].([]any) {
		uris = append(uris, location.(map[string]any)["uri"].(string))
	}
	assert.ElementsMatch(t, []string{
		utils.PathToURI(filepath.Join(root, "cfg", "app.env")),
		utils.PathToURI(filepath.Join(root, "cfg", "dev.env")),
	}, uris)
}

func TestUnknownRequest(t *testing.T) {
	var buf bytes.Buffer
	server := NewServer("ignorels", "test", mockState(), &buf)

	server.HandleMessage("textDocument/formatting", []byte(`{"id": 11, "params": {}}`))
	server.HandleMessage("$/cancelRequest", []byte(`{"params": {"id": 3}}`))
	server.Stop()

	body := responseByID(t, buf.String(), 11)
	errBody := body["error"].(map[string]any)
	assert.Equal(t, float64(lsp.MethodNotFound), errBody["code"])
	assert.Len(t, responses(t, buf.String()), 1)
}

func TestRequest_StringID(t *testing.T) {
	uri, _ := mockWorkspace(t, "src/main.go")
	var buf bytes.Buffer
	server := NewServer("ignorels", "test", mockState(), &buf)

	request, err := json.Marshal(map[string]any{
		"jsonrpc": "2.0",
		"id":      "req-7",
		"params": map[string]any{
			"textDocument": map[string]any{"uri": uri},
			"position":     map[string]any{"line": 0, "character": 4},
		},
	})
	require.NoError(t, err)

	server.HandleMessage("textDocument/didOpen", didOpen(t, uri, "src/"))
	server.HandleMessage("textDocument/completion", request)
	server.Stop()

	var found map[string]any
	for _, body := range responses(t, buf.String()) {
		if body["id"] == "req-7" {
			found = body
		}
	}
	require.NotNil(t, found, "no response with id req-7 in %q", buf.String())
	assert.Equal(t, []string{"main.go"}, completionLabels(t, found))
}

func TestRequest_InvalidParams(t *testing.T) {
	var buf bytes.Buffer
	server := NewServer("ignorels", "test", mockState(), &buf)

	server.HandleMessage("textDocument/hover", []byte(`{"id": 12, "params": {"position": "top"}}`))
	server.HandleMessage("textDocument/didOpen", []byte(`{"params": {"textDocument": 3}}`))
	server.Stop()

	body := responseByID(t, buf.String(), 12)
	errBody := body["error"].(map[string]any)
	assert.Equal(t, float64(lsp.InvalidParams), errBody["code"])
	assert.Len(t, responses(t, buf.String()), 1)
}

func TestScheduledDiagnostics_ClosedDocument(t *testing.T) {
	uri, _ := mockWorkspace(t)
	state := mockState()
	var buf bytes.Buffer
	server := NewServer("ignorels", "test", state, &buf)
	defer server.Stop()

	closed := state.OpenDocument(uri, 1, "/absent")
	state.Documents.Remove(uri)
	server.pushScheduledDiagnostic(closed)
	assert.Empty(t, buf.String())

	stale := state.OpenDocument(uri, 1, "/absent")
	reopened := state.OpenDocument(uri, 2, "/absent")
	server.pushScheduledDiagnostic(stale)
	assert.Empty(t, buf.String())

	server.pushScheduledDiagnostic(reopened)
	assert.Contains(t, buf.String(), "`/absent` matches nothing")
}

func TestScheduledDiagnostics_ForgetsFiredTimers(t *testing.T) {
	uri, _ := mockWorkspace(t)
	state := NewState(Config{
		Completion:             completion.DefaultOptions(),
		DiagnosticDebounceTime: 10 * time.Millisecond,
	})
	var buf bytes.Buffer
	server := NewServer("ignorels", "test", state, &buf)
	defer server.Stop()

	server.HandleMessage("textDocument/didOpen", didOpen(t, uri, "/absent"))
	server.HandleMessage("textDocument/didChange", didChange(t, uri, 2, change(0, 7, 0, 7, "2")))

	assert.Eventually(t, func() bool {
		server.mu.Lock()
		defer server.mu.Unlock()
		return strings.Contains(buf.String(), `"version":2`) && len(server.diagnosticTimers) == 0
	}, time.Second, 5*time.Millisecond)
}
