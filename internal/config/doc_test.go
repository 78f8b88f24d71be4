package config

import (
	"go/ast"
	"go/parser"
	"go/token"
	"testing"
)

func TestExportedTypesAreDocumented(t *testing.T) {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, "config.go", nil, parser.ParseComments)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	for _, decl := range file.Decls {
		gen, ok := decl.(*ast.GenDecl)
		if !ok || gen.Tok != token.TYPE {
			continue
		}
		for _, spec := range gen.Specs {
			ts := spec.(*ast.TypeSpec)
			if !ts.Name.IsExported() {
				continue
			}
			if gen.Doc == nil && ts.Doc == nil {
				t.Errorf("%s: exported type %s has no doc comment", fset.Position(ts.Pos()), ts.Name.Name)
			}
		}
	}
}
