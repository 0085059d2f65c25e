package server

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	iLsp "github.com/jwtly10/litrun/internal/lsp"
	"github.com/sourcegraph/go-lsp"
	"github.com/sourcegraph/jsonrpc2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type notification struct {
	method string
	params lsp.PublishDiagnosticsParams
}

type fakeClient struct {
	sent []notification
}

func (c *fakeClient) Notify(ctx context.Context, method string, params interface{}, opts ...jsonrpc2.CallOption) error {
	p, ok := params.(lsp.PublishDiagnosticsParams)
	if !ok {
		return errors.New("unexpected params type")
	}
	c.sent = append(c.sent, notification{method: method, params: p})
	return nil
}

func newTestServer(opts Options) (*Server, *fakeClient) {
	client := &fakeClient{}
	s := NewServer(opts)
	s.conn = client
	s.exit = func(int) {}
	return s, client
}

func request(t *testing.T, method string, params any, notif bool) *jsonrpc2.Request {
	t.Helper()
	req := &jsonrpc2.Request{Method: method, Notif: notif}
	if params != nil {
		raw, err := json.Marshal(params)
		require.NoError(t, err)
		msg := json.RawMessage(raw)
		req.Params = &msg
	}
	return req
}

const testURI = lsp.DocumentURI("file:///tmp/guide.md")

func TestInitialize(t *testing.T) {
	s, _ := newTestServer(DefaultServerOptions)

	res, err := s.Handle(context.Background(), nil, request(t, "initialize", lsp.InitializeParams{}, false))
	require.NoError(t, err)

	init, ok := res.(lsp.InitializeResult)
	require.True(t, ok)
	require.NotNil(t, init.Capabilities.TextDocumentSync)
	require.NotNil(t, init.Capabilities.TextDocumentSync.Kind)
	assert.Equal(t, lsp.TextDocumentSyncKind(lsp.TDSKFull), *init.Capabilities.TextDocumentSync.Kind)
}

func TestDidOpenPublishesDiagnostics(t *testing.T) {
	s, client := newTestServer(DefaultServerOptions)

	text := "# Guide\n\n```@main.py #python\nprint(1)\n```\n"
	_, err := s.Handle(context.Background(), nil, request(t, "textDocument/didOpen", lsp.DidOpenTextDocumentParams{
		TextDocument: lsp.TextDocumentItem{URI: testURI, Text: text},
	}, true))
	require.NoError(t, err)

	require.Len(t, client.sent, 1)
	assert.Equal(t, "textDocument/publishDiagnostics", client.sent[0].method)
	assert.Equal(t, testURI, client.sent[0].params.URI)

	diags := client.sent[0].params.Diagnostics
	require.Len(t, diags, 1)
	assert.Equal(t, lsp.DiagnosticSeverity(lsp.Information), diags[0].Severity)
	assert.Equal(t, 2, diags[0].Range.Start.Line)
	assert.Equal(t, []lsp.DocumentURI{testURI}, s.docService.OpenDocuments())
}

func TestDidChangeUsesLatestContent(t *testing.T) {
	s, client := newTestServer(DefaultServerOptions)

	_, err := s.Handle(context.Background(), nil, request(t, "textDocument/didChange", lsp.DidChangeTextDocumentParams{
		TextDocument: lsp.VersionedTextDocumentIdentifier{
			TextDocumentIdentifier: lsp.TextDocumentIdentifier{URI: testURI},
		},
		ContentChanges: []lsp.TextDocumentContentChangeEvent{
			{Text: "```@../escape.txt\nx\n```\n"},
			{Text: "```@fine.txt\nx\n```\n"},
		},
	}, true))
	require.NoError(t, err)

	require.Len(t, client.sent, 1)
	assert.Empty(t, client.sent[0].params.Diagnostics)
}

func TestMkdirsOptionSilencesSubdirectoryWarning(t *testing.T) {
	text := "```@src/app.ts\nexport {}\n```\n"
	open := lsp.DidOpenTextDocumentParams{TextDocument: lsp.TextDocumentItem{URI: testURI, Text: text}}

	s, client := newTestServer(DefaultServerOptions)
	_, err := s.Handle(context.Background(), nil, request(t, "textDocument/didOpen", open, true))
	require.NoError(t, err)
	require.Len(t, client.sent[0].params.Diagnostics, 1)
	assert.Equal(t, lsp.DiagnosticSeverity(lsp.Warning), client.sent[0].params.Diagnostics[0].Severity)

	s, client = newTestServer(Options{DocService: iLsp.DocumentServiceOptions{Mkdirs: true}})
	_, err = s.Handle(context.Background(), nil, request(t, "textDocument/didOpen", open, true))
	require.NoError(t, err)
	assert.Empty(t, client.sent[0].params.Diagnostics)
}

func TestDidCloseClearsDiagnostics(t *testing.T) {
	s, client := newTestServer(DefaultServerOptions)

	_, err := s.Handle(context.Background(), nil, request(t, "textDocument/didOpen", lsp.DidOpenTextDocumentParams{
		TextDocument: lsp.TextDocumentItem{URI: testURI, Text: "```#ruby\nputs 1\n```\n"},
	}, true))
	require.NoError(t, err)
	require.Len(t, client.sent[0].params.Diagnostics, 1)

	_, err = s.Handle(context.Background(), nil, request(t, "textDocument/didClose", lsp.DidCloseTextDocumentParams{
		TextDocument: lsp.TextDocumentIdentifier{URI: testURI},
	}, true))
	require.NoError(t, err)

	require.Len(t, client.sent, 2)
	assert.NotNil(t, client.sent[1].params.Diagnostics)
	assert.Empty(t, client.sent[1].params.Diagnostics)
	assert.Empty(t, s.docService.OpenDocuments())
}

func TestUnknownMethods(t *testing.T) {
	s, _ := newTestServer(DefaultServerOptions)

	res, err := s.Handle(context.Background(), nil, request(t, "workspace/didChangeConfiguration", nil, true))
	require.NoError(t, err)
	assert.Nil(t, res)

	_, err = s.Handle(context.Background(), nil, request(t, "textDocument/hover", nil, false))
	var rpcErr *jsonrpc2.Error
	require.True(t, errors.As(err, &rpcErr))
	assert.Equal(t, int64(jsonrpc2.CodeMethodNotFound), rpcErr.Code)
}

func TestMissingParams(t *testing.T) {
	s, _ := newTestServer(DefaultServerOptions)

	_, err := s.Handle(context.Background(), nil, request(t, "textDocument/didOpen", nil, true))
	var rpcErr *jsonrpc2.Error
	require.True(t, errors.As(err, &rpcErr))
	assert.Equal(t, int64(jsonrpc2.CodeInvalidParams), rpcErr.Code)
}

func TestExitCallsExit(t *testing.T) {
	s, _ := newTestServer(DefaultServerOptions)
	code := -1
	s.exit = func(c int) { code = c }

	_, err := s.Handle(context.Background(), nil, request(t, "exit", nil, true))
	require.NoError(t, err)
	assert.Equal(t, 0, code)
}

func TestSendDiagnosticsWithoutClient(t *testing.T) {
	s := NewServer(DefaultServerOptions)
	err := s.SendDiagnostics(context.Background(), lsp.PublishDiagnosticsParams{URI: testURI})
	require.Error(t, err)
}
