// Package pkgutil wraps the go build system loaders with the modes and
// helpers the analysis needs.
package pkgutil

import (
	"errors"
	"os"

	"golang.org/x/tools/go/packages"
	"golang.org/x/tools/go/ssa"
	"golang.org/x/tools/go/ssa/ssautil"
)

// Should be equivalent to packages.LoadAllSyntax (which is deprecated)
const LoadMode = packages.NeedSyntax | packages.NeedTypesInfo | packages.NeedTypes |
	packages.NeedTypesSizes | packages.NeedImports | packages.NeedName |
	packages.NeedFiles | packages.NeedCompiledGoFiles | packages.NeedDeps

// LoadPackagesFromSource loads a single synthetic main package from the given
// source text, through the overlay mechanism of the go build system.
func LoadPackagesFromSource(source string) ([]*packages.Package, error) {
	config := &packages.Config{
		Mode:  LoadMode,
		Tests: false,
		Dir:   "",
		Env:   append(os.Environ(), "GO111MODULE=off", "GOPATH=/fake"),
		Overlay: map[string][]byte{
			"/fake/testpackage/main.go": []byte(source),
		},
	}

	return LoadPackagesWithConfig(config, "/fake/testpackage/main.go")
}

// LoadPackagesWithConfig loads the packages matching the queries and fails
// when any of them carries errors.
func LoadPackagesWithConfig(config *packages.Config, queries ...string) ([]*packages.Package, error) {
	pkgs, err := packages.Load(config, queries...)
	switch {
	case err != nil:
		return nil, err
	case packages.PrintErrors(pkgs) > 0:
		return pkgs, errors.New("errors encountered while loading packages")
	default:
		return pkgs, nil
	}
}

// BuildSSA builds the SSA form of the loaded packages, instantiating
// generics so that no uninstantiated bodies remain.
func BuildSSA(pkgs []*packages.Package) (*ssa.Program, []*ssa.Package) {
	prog, spkgs := ssautil.AllPackages(pkgs, ssa.InstantiateGenerics)
	prog.Build()
	return prog, spkgs
}

// MainFunction finds the function with the given name among the main
// packages of the program. It returns nil when there is none.
func MainFunction(spkgs []*ssa.Package, name string) *ssa.Function {
	for _, pkg := range ssautil.MainPackages(allPackages(spkgs)) {
		if fun := pkg.Func(name); fun != nil {
			return fun
		}
	}
	return nil
}

func allPackages(spkgs []*ssa.Package) []*ssa.Package {
	res := make([]*ssa.Package, 0, len(spkgs))
	for _, pkg := range spkgs {
		if pkg != nil {
			res = append(res, pkg)
		}
	}
	return res
}
