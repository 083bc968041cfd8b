// Package lsp serves letcheck's diagnostics and resolution results over the
// Language Server Protocol.
package lsp

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"unicode"

	"github.com/creachadair/jrpc2"
	"github.com/creachadair/jrpc2/handler"
	"github.com/pkg/errors"

	"github.com/j340m3/compiler/pkg/check"
	"github.com/j340m3/compiler/pkg/diag"
	"github.com/j340m3/compiler/pkg/syntax"
)

// Handler holds the state of one language server session.
type Handler struct {
	checker *check.Checker
	logger  *slog.Logger

	mu    sync.Mutex
	files map[DocumentURI]*File
}

// File is the last checked state of an open document.
type File struct {
	Text    string
	Version int
	// Result is nil when the text does not parse.
	Result      *check.ProgramResult
	Diagnostics []Diagnostic
}

func NewHandler(config check.CheckConfig, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		checker: check.NewChecker(config, logger),
		logger:  logger,
		files:   make(map[DocumentURI]*File),
	}
}

// Methods returns the method table to serve.
func (h *Handler) Methods() handler.Map {
	return handler.Map{
		"initialize":              h.handleInitialize,
		"initialized":             h.handleInitialized,
		"shutdown":                h.handleShutdown,
		"textDocument/didOpen":    h.handleTextDocumentDidOpen,
		"textDocument/didChange":  h.handleTextDocumentDidChange,
		"textDocument/didClose":   h.handleTextDocumentDidClose,
		"textDocument/hover":      h.handleTextDocumentHover,
		"textDocument/definition": h.handleTextDocumentDefinition,
	}
}

func (h *Handler) file(uri DocumentURI) *File {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.files[uri]
}

func (h *Handler) closeFile(uri DocumentURI) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.files, uri)
}

// updateFile reparses and rechecks a document, then publishes its
// diagnostics.
func (h *Handler) updateFile(ctx context.Context, uri DocumentURI, text string, version int) error {
	path, err := fromURI(uri)
	if err != nil {
		return errors.Wrap(err, "file path from URI")
	}

	f := &File{Text: text, Version: version, Diagnostics: []Diagnostic{}}
	prog, err := syntax.ParseProgram(path, []byte(text))
	if err != nil {
		var synErr *syntax.Error
		if !errors.As(err, &synErr) {
			return err
		}
		h.logger.DebugContext(ctx, "parse failed", "path", path, "error", err)
		f.Diagnostics = append(f.Diagnostics, Diagnostic{
			Range:    locRange(synErr.Loc, 1),
			Severity: SeverityError,
			Code:     "syntax-error",
			Source:   "letcheck",
			Message:  synErr.Message,
		})
	} else {
		res, err := h.checker.CheckProgram(ctx, prog)
		if err != nil {
			return err
		}
		f.Result = res
		for _, d := range res.Diagnostics {
			f.Diagnostics = append(f.Diagnostics, toDiagnostic(uri, d))
		}
	}

	h.mu.Lock()
	h.files[uri] = f
	h.mu.Unlock()

	h.logger.InfoContext(ctx, "file updated", "path", path, "diagnostics", len(f.Diagnostics))
	return jrpc2.ServerFromContext(ctx).Notify(ctx, "textDocument/publishDiagnostics", &PublishDiagnosticsParams{
		URI:         uri,
		Version:     f.Version,
		Diagnostics: f.Diagnostics,
	})
}

func toDiagnostic(uri DocumentURI, d *diag.Diagnostic) Diagnostic {
	out := Diagnostic{
		Range:    locRange(d.Loc, 1),
		Severity: SeverityError,
		Code:     d.Kind.Code(),
		Source:   "letcheck",
		Message:  d.Message,
	}
	if len(d.Suggestions) > 0 {
		quoted := make([]string, len(d.Suggestions))
		for i, s := range d.Suggestions {
			quoted[i] = fmt.Sprintf("%q", s)
		}
		out.Message += fmt.Sprintf("; did you mean %s?", strings.Join(quoted, " or "))
	}
	if d.Related != nil {
		out.RelatedInformation = []DiagnosticRelatedInformation{{
			Location: Location{URI: uri, Range: locRange(d.Related, 1)},
			Message:  "previous definition",
		}}
	}
	return out
}

// locRange converts a one-based source location to a zero-based range at
// least minLen characters wide.
func locRange(loc *syntax.SourceLocation, minLen int) Range {
	if loc == nil {
		return Range{End: Position{Character: minLen}}
	}
	start := Position{Line: loc.Line - 1, Character: loc.Column - 1}
	return Range{
		Start: start,
		End:   Position{Line: start.Line, Character: start.Character + max(loc.Length, minLen)},
	}
}

func isWindowsDriveURI(uri string) bool {
	if len(uri) < 4 {
		return false
	}
	return uri[0] == '/' && unicode.IsLetter(rune(uri[1])) && uri[2] == ':'
}

func fromURI(uri DocumentURI) (string, error) {
	u, err := url.ParseRequestURI(string(uri))
	if err != nil {
		return "", err
	}
	if u.Scheme != "file" {
		return "", errors.Errorf("only file URIs are supported, got %v", u.Scheme)
	}
	if isWindowsDriveURI(u.Path) {
		u.Path = u.Path[1:]
	}
	return u.Path, nil
}
