// Copyright 2025 Vulntor Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");

package fingerprint

import (
	"context"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/java"
	"github.com/smacker/go-tree-sitter/kotlin"
)

// syntaxParser parses the file head with the tree-sitter grammar of the
// language and reads the first package node. It tolerates comments, license
// banners and annotations that a line pattern would trip over.
type syntaxParser struct {
	parsers map[Language]*sitter.Parser
}

func newSyntaxParser() *syntaxParser {
	return &syntaxParser{parsers: make(map[Language]*sitter.Parser, 2)}
}

func (p *syntaxParser) parser(lang Language) *sitter.Parser {
	if ps, ok := p.parsers[lang]; ok {
		return ps
	}
	ps := sitter.NewParser()
	switch lang {
	case LanguageKotlin:
		ps.SetLanguage(kotlin.GetLanguage())
	default:
		ps.SetLanguage(java.GetLanguage())
	}
	p.parsers[lang] = ps
	return ps
}

func (p *syntaxParser) Package(ctx context.Context, lang Language, head []string) (string, bool) {
	src := []byte(strings.Join(head, "\n"))
	tree, err := p.parser(lang).ParseCtx(ctx, nil, src)
	if err != nil || tree == nil {
		return "", false
	}
	defer tree.Close()

	root := tree.RootNode()
	for i := 0; i < int(root.NamedChildCount()); i++ {
		node := root.NamedChild(i)
		switch node.Type() {
		case "package_declaration", "package_header":
			return packageFromStatement(node.Content(src))
		}
	}
	return "", false
}

func (p *syntaxParser) Close() {
	for _, ps := range p.parsers {
		ps.Close()
	}
	p.parsers = nil
}

// packageFromStatement pulls the dotted name out of a package statement,
// skipping any annotations before the keyword and whitespace around dots.
func packageFromStatement(stmt string) (string, bool) {
	stmt = strings.TrimSpace(stmt)
	idx := strings.Index(stmt, "package")
	if idx < 0 {
		return "", false
	}
	rest := stmt[idx+len("package"):]
	rest = strings.TrimSuffix(strings.TrimSpace(rest), ";")
	name := strings.Join(strings.Fields(rest), "")
	if !dottedNameRe.MatchString(name) {
		return "", false
	}
	return name, true
}
