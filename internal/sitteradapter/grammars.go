package sitteradapter

import (
	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/bash"
	"github.com/smacker/go-tree-sitter/css"
	"github.com/smacker/go-tree-sitter/html"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/sql"
	"github.com/smacker/go-tree-sitter/yaml"
)

// Grammars returns the bundled grammars keyed by the language id used in
// embedded-region declarations.
func Grammars() map[string]*sitter.Language {
	return map[string]*sitter.Language{
		"bash":       bash.GetLanguage(),
		"css":        css.GetLanguage(),
		"html":       html.GetLanguage(),
		"javascript": javascript.GetLanguage(),
		"python":     python.GetLanguage(),
		"sql":        sql.GetLanguage(),
		"yaml":       yaml.GetLanguage(),
	}
}
