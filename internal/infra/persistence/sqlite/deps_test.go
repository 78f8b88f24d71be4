package sqlite

import (
	"go/build"
	"strings"
	"testing"
)

// Backends sit below the façade: they may use the domain contracts and the
// shared SQL layer, nothing else from this module.
var allowedModuleImports = map[string]struct{}{
	"smartstock/pkg/domain":                         {},
	"smartstock/internal/infra/persistence/sqlstore": {},
}

func TestImportsAreDomainOrStdlib(t *testing.T) {
	pkg, err := build.Default.ImportDir(".", 0)
	if err != nil {
		t.Fatalf("import dir: %v", err)
	}
	for _, imp := range pkg.Imports {
		if !strings.HasPrefix(imp, "smartstock/") {
			continue
		}
		if _, ok := allowedModuleImports[imp]; ok {
			continue
		}
		t.Fatalf("unexpected dependency: %s", imp)
	}
}
