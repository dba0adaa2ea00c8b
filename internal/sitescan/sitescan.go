// Package sitescan discovers tweak call sites across a project tree
// using the Go grammar, the way a code generator would before emitting
// Resolve calls. The runtime core never depends on it; it serves the
// CLI's list/watch views and stays byte-for-byte consistent with the
// lexical scanner on the literal it reports.
package sitescan

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"
	sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_go "github.com/tree-sitter/tree-sitter-go/bindings/go"

	"retune/internal/cerrors"
	"retune/internal/literal"
)

// Site is one discovered marker invocation.
type Site struct {
	File     string
	Line     int // 1-based, of the call expression
	Column   int
	Marker   string
	Literal  string // raw literal token, "" when the argument is not a literal
	Value    literal.Value
	Decoded  bool
	Override bool // call carries a second, suppressed argument
}

type Scanner struct {
	markers      []string
	language     *sitter.Language
	excludeDirs  []glob.Glob
	excludeFiles []glob.Glob
}

func New(markers, excludeDirs, excludeFiles []string) (*Scanner, error) {
	s := &Scanner{
		markers:  markers,
		language: sitter.NewLanguage(tree_sitter_go.Language()),
	}
	for _, pattern := range excludeDirs {
		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, cerrors.Wrap(err, cerrors.CodeParseError, "bad exclude dir pattern")
		}
		s.excludeDirs = append(s.excludeDirs, g)
	}
	for _, pattern := range excludeFiles {
		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, cerrors.Wrap(err, cerrors.CodeParseError, "bad exclude file pattern")
		}
		s.excludeFiles = append(s.excludeFiles, g)
	}
	return s, nil
}

// ScanProject walks root and returns every marker call site found in
// non-excluded .go files, in file walk order.
func (s *Scanner) ScanProject(root string) ([]Site, error) {
	if abs, err := filepath.Abs(root); err == nil {
		root = abs
	}
	var sites []Site
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // unreadable subtrees are skipped, not fatal
		}
		if info.IsDir() {
			for _, g := range s.excludeDirs {
				if g.Match(filepath.Base(path)) {
					return filepath.SkipDir
				}
			}
			return nil
		}
		if !strings.HasSuffix(path, ".go") {
			return nil
		}
		base := filepath.Base(path)
		for _, g := range s.excludeFiles {
			if g.Match(base) {
				return nil
			}
		}
		found, scanErr := s.ScanFile(path)
		if scanErr != nil {
			return nil
		}
		sites = append(sites, found...)
		return nil
	})
	if err != nil {
		return nil, cerrors.Wrap(err, cerrors.CodeIOError, "walk project")
	}
	return sites, nil
}

// ScanFile parses one file and extracts its marker call sites.
func (s *Scanner) ScanFile(path string) ([]Site, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, cerrors.Wrap(err, cerrors.CodeIOError, "read source file")
	}

	parser := sitter.NewParser()
	defer parser.Close()
	if err := parser.SetLanguage(s.language); err != nil {
		return nil, cerrors.Wrap(err, cerrors.CodeNotSupported, "load go grammar")
	}

	tree := parser.Parse(src, nil)
	if tree == nil {
		return nil, cerrors.New(cerrors.CodeParseError, "parse returned no tree")
	}
	defer tree.Close()

	var sites []Site
	s.walk(tree.RootNode(), src, path, &sites)
	return sites, nil
}

func (s *Scanner) walk(node *sitter.Node, src []byte, path string, out *[]Site) {
	if node == nil {
		return
	}
	if node.Kind() == "call_expression" {
		if site, ok := s.extractCall(node, src, path); ok {
			*out = append(*out, site)
		}
	}
	for i := uint(0); i < node.ChildCount(); i++ {
		s.walk(node.Child(i), src, path, out)
	}
}

func (s *Scanner) extractCall(node *sitter.Node, src []byte, path string) (Site, bool) {
	fn := node.ChildByFieldName("function")
	if fn == nil {
		return Site{}, false
	}
	callee := string(src[fn.StartByte():fn.EndByte()])
	if !s.matchesMarker(callee) {
		return Site{}, false
	}

	args := node.ChildByFieldName("arguments")
	if args == nil {
		return Site{}, false
	}

	site := Site{
		File:   path,
		Line:   int(node.StartPosition().Row) + 1,
		Column: int(node.StartPosition().Column) + 1,
		Marker: callee,
	}

	argCount := 0
	for i := uint(0); i < args.NamedChildCount(); i++ {
		arg := args.NamedChild(i)
		argCount++
		if argCount == 1 && isLiteralKind(arg.Kind()) {
			site.Literal = string(src[arg.StartByte():arg.EndByte()])
			site.Value, site.Decoded = literal.Decode(site.Literal)
		}
	}
	site.Override = argCount > 1
	return site, true
}

func (s *Scanner) matchesMarker(callee string) bool {
	for _, m := range s.markers {
		if callee == m {
			return true
		}
		if !strings.Contains(m, ".") && strings.HasSuffix(callee, "."+m) {
			return true
		}
	}
	return false
}

func isLiteralKind(kind string) bool {
	switch kind {
	case "int_literal", "float_literal", "interpreted_string_literal",
		"raw_string_literal", "true", "false", "rune_literal":
		return true
	case "unary_expression":
		// Signed numeric literals parse as unary expressions; the raw
		// text still decodes, so accept them here.
		return true
	}
	return false
}
