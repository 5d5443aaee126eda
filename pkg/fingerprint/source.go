// Copyright 2025 Vulntor Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");

package fingerprint

import (
	"context"
	"fmt"
	"regexp"
	"strings"
)

// Language is a source language whose files declare packages at the head.
type Language string

const (
	LanguageJava   Language = "java"
	LanguageKotlin Language = "kotlin"
)

// languageForExt maps a file extension to its source language.
func languageForExt(ext string) (Language, bool) {
	switch strings.ToLower(ext) {
	case ".java":
		return LanguageJava, true
	case ".kt":
		return LanguageKotlin, true
	default:
		return "", false
	}
}

// SourceParser finds the package declared at the head of a source file.
// Implementations are not safe for concurrent use; the extractor creates one
// per repository.
type SourceParser interface {
	Package(ctx context.Context, lang Language, head []string) (string, bool)
	Close()
}

// Parser modes accepted by Options.SourceParser.
const (
	ParserLine   = "line"
	ParserSyntax = "syntax"
)

// NewSourceParser returns the parser registered under mode.
func NewSourceParser(mode string) (SourceParser, error) {
	switch strings.ToLower(mode) {
	case "", ParserLine:
		return lineParser{}, nil
	case ParserSyntax:
		return newSyntaxParser(), nil
	default:
		return nil, fmt.Errorf("unknown source parser %q (want %s or %s)", mode, ParserLine, ParserSyntax)
	}
}

var (
	javaPackageRe   = regexp.MustCompile(`^\s*package\s+([a-zA-Z_][\w.]*?)\s*;\s*$`)
	kotlinPackageRe = regexp.MustCompile(`^\s*package\s+([a-zA-Z_][\w.]*?)\s*$`)
	dottedNameRe    = regexp.MustCompile(`^[a-zA-Z_][\w.]*$`)
)

// lineParser matches the first line that is a complete package statement.
type lineParser struct{}

func (lineParser) Package(_ context.Context, lang Language, head []string) (string, bool) {
	re := javaPackageRe
	if lang == LanguageKotlin {
		re = kotlinPackageRe
	}
	for _, ln := range head {
		if m := re.FindStringSubmatch(ln); m != nil {
			return m[1], true
		}
	}
	return "", false
}

func (lineParser) Close() {}
