package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/wippyai/sml/codec"
	"github.com/wippyai/sml/config"
)

const usage = `Usage: sml [--config file] [--verbose] <command> [flags]

Commands:
  encode    read a YAML or CBOR document and write SML
  decode    read SML and write a YAML or CBOR document
  dump      show every wire field of an SML payload
  header    show the minimal width header of a document's values
  inspect   interactive encoder (TUI)
`

type command struct {
	run  func(env *env, args []string) error
	name string
}

var commands = []command{
	{name: "encode", run: runEncode},
	{name: "decode", run: runDecode},
	{name: "dump", run: runDump},
	{name: "header", run: runHeader},
	{name: "inspect", run: runInspect},
}

// env carries what every command needs.
type env struct {
	cfg    *config.Config
	log    *zap.Logger
	stdin  io.Reader
	stdout io.Writer
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	global := pflag.NewFlagSet("sml", pflag.ContinueOnError)
	global.SetInterspersed(false)
	global.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	var (
		configPath = global.String("config", "", "Path to YAML config file (default $"+config.EnvVar+")")
		verbose    = global.BoolP("verbose", "v", false, "Log codec decisions to stderr")
	)
	if err := global.Parse(args); err != nil {
		return err
	}
	if global.NArg() == 0 {
		global.Usage()
		return fmt.Errorf("no command given")
	}

	log := zap.NewNop()
	if *verbose {
		l, err := zap.NewDevelopment()
		if err != nil {
			return fmt.Errorf("create logger: %w", err)
		}
		log = l
	}
	defer func() { _ = log.Sync() }()
	codec.SetLogger(log)

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	e := &env{cfg: cfg, log: log, stdin: os.Stdin, stdout: os.Stdout}

	name, rest := global.Arg(0), global.Args()[1:]
	for _, c := range commands {
		if c.name == name {
			log.Debug("running command", zap.String("command", name), zap.Strings("args", rest))
			return c.run(e, rest)
		}
	}
	global.Usage()
	return fmt.Errorf("unknown command %q", name)
}

// openInput returns stdin for "" or "-", else the named file.
func (e *env) openInput(path string) (io.ReadCloser, error) {
	if path == "" || path == "-" {
		return io.NopCloser(e.stdin), nil
	}
	return os.Open(path)
}

func (e *env) readInput(path string) ([]byte, error) {
	in, err := e.openInput(path)
	if err != nil {
		return nil, err
	}
	defer in.Close()
	return io.ReadAll(in)
}

// writeOutput writes data to stdout for "" or "-", else to the named file.
func (e *env) writeOutput(path string, data []byte) error {
	if path == "" || path == "-" {
		_, err := e.stdout.Write(data)
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
