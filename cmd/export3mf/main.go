// export3mf converts Ragnarok Online models and maps, and glTF scenes, to 3MF
// packages.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/davecgh/go-spew/spew"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/Faultbox/midgard3mf/internal/assets"
	"github.com/Faultbox/midgard3mf/internal/config"
	"github.com/Faultbox/midgard3mf/internal/gltfscene"
	"github.com/Faultbox/midgard3mf/internal/logger"
	"github.com/Faultbox/midgard3mf/internal/mapscene"
	"github.com/Faultbox/midgard3mf/internal/rsmscene"
	"github.com/Faultbox/midgard3mf/pkg/formats"
	"github.com/Faultbox/midgard3mf/pkg/grf"
	"github.com/Faultbox/midgard3mf/pkg/scene"
	"github.com/Faultbox/midgard3mf/pkg/threemf"
)

var errUsage = errors.New("invalid usage")

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, errUsage) {
			os.Exit(2)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	if len(args) < 1 {
		printUsage(stderr)
		return errUsage
	}

	command := args[0]
	args = args[1:]

	switch command {
	case "rsm":
		return cmdRSM(args, stdout, stderr)
	case "grf":
		return cmdGRF(args, stdout, stderr)
	case "map":
		return cmdMap(args, stdout, stderr)
	case "gltf", "glb":
		return cmdGLTF(args, stdout, stderr)
	case "list", "ls":
		return cmdList(args, stdout, stderr)
	case "inspect":
		return cmdInspect(args, stdout, stderr)
	case "config":
		return cmdConfig(args, stdout, stderr)
	case "units":
		fmt.Fprintln(stdout, strings.Join(threemf.LengthUnits(), "\n"))
		return nil
	case "help", "-h", "--help":
		printUsage(stdout)
		return nil
	default:
		fmt.Fprintf(stderr, "Unknown command: %s\n", command)
		printUsage(stderr)
		return errUsage
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, `export3mf - convert models to 3MF packages

Usage:
  export3mf <command> [options]

Commands:
  rsm <model.rsm> [out.3mf]            Export an RSM model file
  grf <data.grf> <path.rsm> [out.3mf]  Export an RSM model stored in a GRF archive
  grf <data.grf> <pattern> [dir]       Export every matching model in a GRF archive
  map <data.grf> <mapname> [out.3mf]   Export a map's ground and placed models
  gltf <scene.gltf|.glb> [out.3mf]     Export a glTF scene
  list <data.grf> [pattern]            List models in a GRF archive (default *.rsm)
  inspect [-dump] <file.3mf>           Show the contents of a 3MF package
  config [path]                        Write the default config file
  units                                List supported length units

Export options:
  -config <path>      Config file (default ./config.yaml or the user config dir)
  -debug              Enable debug logging
  -precision <n>      Decimal digits for coordinates
  -scale <f>          Global scale multiplied into every item
  -no-modifiers       Export meshes without modifiers
  -unit <name>        Override the scene length unit
  -scale-length <f>   Override the unit conversion factor

Map options:
  -no-ground          Leave out the ground mesh
  -no-models          Leave out placed models

Examples:
  export3mf rsm -precision 6 prontera_fountain.rsm
  export3mf grf data.grf "data/model/prontera/fountain.rsm" fountain.3mf
  export3mf grf data.grf "prt_*.rsm" ./models
  export3mf map -no-models data.grf prontera
  export3mf list data.grf "*fountain*"
  export3mf inspect -dump fountain.3mf`)
}

// exportCommand is the state shared by the commands that write a package.
type exportCommand struct {
	fs     *flag.FlagSet
	flags  *config.Flags
	cfg    *config.Config
	log    *zap.Logger
	stdout io.Writer
}

func newExportCommand(name string, stdout, stderr io.Writer) *exportCommand {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	return &exportCommand{
		fs:     fs,
		flags:  config.BindFlags(fs),
		stdout: stdout,
	}
}

// parse parses args, loads the config and builds the logger.
func (c *exportCommand) parse(args []string, stderr io.Writer, minArgs int, usage string) error {
	if err := c.fs.Parse(args); err != nil {
		return errUsage
	}
	if c.fs.NArg() < minArgs {
		fmt.Fprintln(stderr, "Usage: export3mf "+usage)
		return errUsage
	}

	cfg, err := config.Load(c.flags)
	if err != nil {
		return err
	}
	c.cfg = cfg

	fileCfg := logger.FileConfig{}
	if cfg.Logging.LogFile != "" {
		fileCfg = logger.DefaultFileConfig(cfg.Logging.LogFile)
	}
	log, err := logger.New(cfg.Logging.Level, fileCfg, stderr)
	if err != nil {
		return errors.Wrap(err, "creating logger")
	}
	c.log = log
	return nil
}

// outputPath returns the explicit output argument at index i, or the input's
// base name with a .3mf extension in the configured output directory.
func (c *exportCommand) outputPath(i int, input string) string {
	if c.fs.NArg() > i {
		return c.fs.Arg(i)
	}
	name := modelName(input) + ".3mf"
	if c.cfg.Export.OutputDir != "" {
		return filepath.Join(c.cfg.Export.OutputDir, name)
	}
	return name
}

func (c *exportCommand) export(sc *scene.Scene, out string) error {
	defer c.log.Sync()

	units, err := c.cfg.ApplyUnits(sc.UnitSettings)
	if err != nil {
		return err
	}
	sc.UnitSettings = units

	if dir := filepath.Dir(out); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return errors.Wrap(err, "creating output directory")
		}
	}

	exporter := threemf.NewExporter(c.cfg.ExportOptions(), c.log)
	if err := exporter.Export(out, sc); err != nil {
		return err
	}
	fmt.Fprintf(c.stdout, "Exported: %s\n", out)
	return nil
}

func modelName(path string) string {
	base := filepath.Base(filepath.FromSlash(path))
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func cmdRSM(args []string, stdout, stderr io.Writer) error {
	c := newExportCommand("rsm", stdout, stderr)
	if err := c.parse(args, stderr, 1, "rsm [options] <model.rsm> [out.3mf]"); err != nil {
		return err
	}

	input := c.fs.Arg(0)
	rsm, err := formats.ParseRSMFile(input)
	if err != nil {
		return errors.Wrapf(err, "parsing %s", input)
	}
	sc := rsmscene.FromRSM(modelName(input), rsm, c.cfg.RSMOptions(c.log))
	return c.export(sc, c.outputPath(1, input))
}

func cmdGRF(args []string, stdout, stderr io.Writer) error {
	c := newExportCommand("grf", stdout, stderr)
	if err := c.parse(args, stderr, 2, "grf [options] <data.grf> <path.rsm|pattern> [out.3mf|dir]"); err != nil {
		return err
	}

	manager, err := c.openArchives(c.fs.Arg(0))
	if err != nil {
		return err
	}
	defer manager.Close()

	target := c.fs.Arg(1)
	if strings.ContainsAny(target, "*?[") {
		return c.exportPattern(manager, target)
	}

	rsm, err := manager.LoadRSM(target)
	if err != nil {
		return err
	}
	sc := rsmscene.FromRSM(modelName(target), rsm, c.cfg.RSMOptions(c.log))
	return c.export(sc, c.outputPath(2, target))
}

// openArchives stacks the configured archives under primary.
func (c *exportCommand) openArchives(primary string) (*assets.Manager, error) {
	manager := assets.NewManager()
	paths := append(append([]string(nil), c.cfg.Data.GRFPaths...), primary)
	for _, p := range paths {
		if err := manager.AddArchive(p); err != nil {
			manager.Close()
			return nil, err
		}
	}
	return manager, nil
}

// exportPattern exports every model whose base name matches pattern into
// the output directory. Models that fail to parse are skipped and counted.
func (c *exportCommand) exportPattern(manager *assets.Manager, pattern string) error {
	matches, err := manager.Glob(pattern)
	if err != nil {
		return err
	}
	if len(matches) == 0 {
		return errors.Errorf("no files match %q", pattern)
	}

	dir := c.cfg.Export.OutputDir
	if c.fs.NArg() > 2 {
		dir = c.fs.Arg(2)
	}
	if dir == "" {
		dir = "."
	}

	failed := 0
	for _, p := range matches {
		rsm, err := manager.LoadRSM(p)
		if err != nil {
			c.log.Warn("skipping model", zap.String("path", p), zap.Error(err))
			failed++
			continue
		}
		sc := rsmscene.FromRSM(modelName(p), rsm, c.cfg.RSMOptions(c.log))
		if err := c.export(sc, filepath.Join(dir, modelName(p)+".3mf")); err != nil {
			return err
		}
	}

	hits, misses := manager.Stats()
	c.log.Debug("model cache", zap.Int("hits", hits), zap.Int("misses", misses))
	if failed > 0 {
		return errors.Errorf("%d of %d models failed", failed, len(matches))
	}
	return nil
}

func cmdMap(args []string, stdout, stderr io.Writer) error {
	c := newExportCommand("map", stdout, stderr)
	noGround := c.fs.Bool("no-ground", false, "Leave out the ground mesh")
	noModels := c.fs.Bool("no-models", false, "Leave out placed models")
	if err := c.parse(args, stderr, 2, "map [options] <data.grf> <mapname> [out.3mf]"); err != nil {
		return err
	}

	manager, err := c.openArchives(c.fs.Arg(0))
	if err != nil {
		return err
	}
	defer manager.Close()

	opts := c.cfg.MapOptions(c.log)
	if *noGround {
		opts.SkipGround = true
	}
	if *noModels {
		opts.SkipModels = true
	}

	name := modelName(c.fs.Arg(1))
	sc, err := mapscene.Load(name, manager, opts)
	if err != nil {
		return err
	}
	return c.export(sc, c.outputPath(2, name))
}

func cmdGLTF(args []string, stdout, stderr io.Writer) error {
	c := newExportCommand("gltf", stdout, stderr)
	if err := c.parse(args, stderr, 1, "gltf [options] <scene.gltf|.glb> [out.3mf]"); err != nil {
		return err
	}

	input := c.fs.Arg(0)
	sc, err := gltfscene.Load(input, c.cfg.GLTFOptions(c.log))
	if err != nil {
		return err
	}
	return c.export(sc, c.outputPath(1, input))
}

func cmdList(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	fs.SetOutput(stderr)
	limit := fs.Int("n", 0, "Limit output to N files (0 = all)")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}

	if fs.NArg() < 1 {
		fmt.Fprintln(stderr, "Usage: export3mf list [-n N] <data.grf> [pattern]")
		return errUsage
	}

	archive, err := grf.Open(fs.Arg(0))
	if err != nil {
		return err
	}
	defer archive.Close()

	pattern := "*.rsm"
	if fs.NArg() > 1 {
		pattern = fs.Arg(1)
	}
	files, err := archive.Glob(pattern)
	if err != nil {
		return err
	}

	for i, f := range files {
		if *limit > 0 && i >= *limit {
			fmt.Fprintf(stderr, "\n(showing first %d of %d, use -n 0 for all)\n", *limit, len(files))
			return nil
		}
		fmt.Fprintln(stdout, f)
	}
	fmt.Fprintf(stderr, "\n(%d files matched)\n", len(files))
	return nil
}

func cmdInspect(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("inspect", flag.ContinueOnError)
	fs.SetOutput(stderr)
	dump := fs.Bool("dump", false, "Dump the decoded model")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}

	if fs.NArg() < 1 {
		fmt.Fprintln(stderr, "Usage: export3mf inspect [-dump] <file.3mf>")
		return errUsage
	}

	pkg, err := threemf.OpenPackage(fs.Arg(0))
	if err != nil {
		return err
	}

	fmt.Fprintf(stdout, "Package: %s\n", fs.Arg(0))
	fmt.Fprintln(stdout, "Parts:")
	parts := append([]string(nil), pkg.Parts...)
	sort.Strings(parts)
	for _, p := range parts {
		fmt.Fprintf(stdout, "  %s\n", p)
	}

	model := pkg.Model
	if model == nil {
		return errors.New("package has no model part")
	}

	vertices, triangles := 0, 0
	for _, obj := range model.Resources.Objects {
		if obj.Mesh != nil {
			vertices += len(obj.Mesh.Vertices.Vertex)
			triangles += len(obj.Mesh.Triangles.Triangle)
		}
	}
	materials := 0
	for _, group := range model.Resources.BaseMaterials {
		materials += len(group.Bases)
	}

	fmt.Fprintln(stdout)
	fmt.Fprintf(stdout, "Unit:      %s\n", model.Unit)
	fmt.Fprintf(stdout, "Objects:   %d\n", len(model.Resources.Objects))
	fmt.Fprintf(stdout, "Materials: %d\n", materials)
	fmt.Fprintf(stdout, "Vertices:  %d\n", vertices)
	fmt.Fprintf(stdout, "Triangles: %d\n", triangles)
	fmt.Fprintf(stdout, "Items:     %d\n", len(model.Build.Items))
	if len(model.Metadata) > 0 {
		fmt.Fprintln(stdout, "Metadata:")
		for _, m := range model.Metadata {
			fmt.Fprintf(stdout, "  %-12s %s\n", m.Name, m.Value)
		}
	}

	if *dump {
		fmt.Fprintln(stdout)
		cfg := spew.ConfigState{Indent: "  ", DisablePointerAddresses: true, SortKeys: true}
		cfg.Fdump(stdout, model)
	}
	return nil
}

func cmdConfig(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("config", flag.ContinueOnError)
	fs.SetOutput(stderr)
	if err := fs.Parse(args); err != nil {
		return errUsage
	}

	cfg := config.Default()
	if fs.NArg() > 0 {
		path := fs.Arg(0)
		if err := cfg.SaveTo(path); err != nil {
			return errors.Wrapf(err, "writing %s", path)
		}
		fmt.Fprintf(stdout, "Wrote: %s\n", path)
		return nil
	}

	path, err := cfg.Save()
	if err != nil {
		return errors.Wrapf(err, "writing %s", path)
	}
	fmt.Fprintf(stdout, "Wrote: %s\n", path)
	return nil
}
