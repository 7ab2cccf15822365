// Command pointsto runs the points-to analysis on a Go program and reports
// the computed may-point-to sets and the size of the resolved call graph.
package main

import (
	"flag"
	"fmt"
	"go/types"
	"os"
	"runtime/pprof"
	"sort"

	"github.com/sirupsen/logrus"
	"golang.org/x/tools/go/packages"
	"golang.org/x/tools/go/ssa"

	"github.com/kvasek/pointsto/config"
	"github.com/kvasek/pointsto/frontend"
	"github.com/kvasek/pointsto/internal/maps"
	"github.com/kvasek/pointsto/pkgutil"
)

var (
	configFile = flag.String("config", "", "path to a YAML analysis `config`")
	cpuprofile = flag.String("cpuprofile", "", "write cpu profile to `file`")
	dir        = flag.String("dir", "", "alternative directory to run the go build tool in")
	entry      = flag.String("entry", "main", "name of the entry function")
	selfCheck  = flag.Bool("selfcheck", false, "verify the fixpoint with an extra solver pass")
)

func main() {
	flag.Parse()

	cfg := &config.Config{
		Entry:     *entry,
		Dir:       *dir,
		SelfCheck: *selfCheck,
		LogLevel:  logrus.InfoLevel.String(),
	}
	if *configFile != "" {
		var err error
		if cfg, err = config.Load(*configFile); err != nil {
			logrus.Fatal(err)
		}
	}
	logrus.SetLevel(cfg.Level())

	patterns := flag.Args()
	if len(patterns) == 0 {
		patterns = cfg.Packages
	}
	if len(patterns) == 0 {
		logrus.Fatal("specify a package query on the command line or in the config")
	}

	if *cpuprofile != "" {
		f, err := os.Create(*cpuprofile)
		if err != nil {
			logrus.Fatal("could not create CPU profile: ", err)
		}
		defer func() {
			if err := f.Close(); err != nil {
				logrus.Fatal("failed to close ", f.Name())
			}
		}()
		if err := pprof.StartCPUProfile(f); err != nil {
			logrus.Fatal("could not start CPU profile: ", err)
		}
		defer pprof.StopCPUProfile()
	}

	pkgs, err := pkgutil.LoadPackagesWithConfig(&packages.Config{
		Mode:  pkgutil.LoadMode,
		Tests: true,
		Dir:   cfg.Dir,
	}, patterns...)
	if err != nil {
		logrus.Fatalf("loading packages failed: %v", err)
	}
	logrus.Infof("loaded %d packages", len(pkgs))

	prog, spkgs := pkgutil.BuildSSA(pkgs)

	entryFun := pkgutil.MainFunction(spkgs, cfg.Entry)
	if entryFun == nil {
		logrus.Fatalf("no entry function %q in the loaded main packages", cfg.Entry)
	}

	res := frontend.NewBuilder(prog, typesSizes(pkgs)).Build(entryFun)
	if cfg.SelfCheck {
		res.Solver.SelfCheck = true
		res.Solver.Run()
	}

	report(res, cfg)
}

func typesSizes(pkgs []*packages.Package) types.Sizes {
	for _, pkg := range pkgs {
		if pkg.TypesSizes != nil {
			return pkg.TypesSizes
		}
	}
	return nil
}

func report(res *frontend.Result, cfg *config.Config) {
	funs := res.Functions()
	logrus.Infof("%d functions in the pointer subgraph", len(funs))

	cg := res.CallGraph()
	edges := 0
	for _, n := range cg.Nodes {
		edges += len(n.Out)
	}
	logrus.Infof("call graph has %d nodes and %d edges", len(cg.Nodes), edges)

	queries := cfg.Queries
	if len(queries) == 0 {
		queries = []string{cfg.Entry}
	}

	queried := maps.FromKeys(queries)

	var names []string
	byName := make(map[string]*ssa.Function, len(funs))
	for _, fun := range funs {
		if _, ok := queried[fun.Name()]; ok {
			byName[fun.String()] = fun
			names = append(names, fun.String())
		}
	}
	sort.Strings(names)

	for _, name := range names {
		fmt.Printf("%s:\n", name)
		printFunc(res, byName[name])
	}
}

func printFunc(res *frontend.Result, fun *ssa.Function) {
	for _, block := range fun.Blocks {
		for _, insn := range block.Instrs {
			v, ok := insn.(ssa.Value)
			if !ok {
				continue
			}

			pts := res.PointsTo(v)
			if len(pts) == 0 {
				continue
			}

			strs := make([]string, len(pts))
			for i, p := range pts {
				strs[i] = p.String()
			}
			sort.Strings(strs)

			fmt.Printf("  %s = %s\t%v\n", v.Name(), v, strs)
		}
	}
}
