// Command codtool decodes COD files from the command line.
package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/uplang/cod"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var logger = zap.NewNop()

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "codtool:", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "codtool",
		Usage: "decode COD object description files",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "enable debug logging",
				EnvVars: []string{"COD_VERBOSE"},
			},
		},
		Before: func(c *cli.Context) error {
			config := zap.NewProductionConfig()
			if c.Bool("verbose") {
				config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
			}
			l, err := config.Build()
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			logger = l
			return nil
		},
		After: func(c *cli.Context) error {
			_ = logger.Sync()
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:      "decode",
				Usage:     "print the decoded object tree",
				ArgsUsage: "FILE",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:    "no-cache",
						Usage:   "neither read nor write the cache file",
						EnvVars: []string{"COD_NO_CACHE"},
					},
					&cli.StringFlag{
						Name:    "cache-ext",
						Usage:   "extension of the cache file",
						Value:   cod.DefaultCacheExtension,
						EnvVars: []string{"COD_CACHE_EXT"},
					},
					&cli.StringFlag{
						Name:  "format",
						Usage: "output format: yaml or tree",
						Value: "yaml",
					},
				},
				Action: runDecode,
			},
			{
				Name:      "lines",
				Usage:     "print the decrypted, cleaned lines",
				ArgsUsage: "FILE",
				Action:    runLines,
			},
			{
				Name:      "diag",
				Usage:     "print lines the decoder did not recognize",
				ArgsUsage: "FILE",
				Action:    runDiag,
			},
			{
				Name:      "encrypt",
				Usage:     "convert a plaintext file into COD form",
				ArgsUsage: "IN OUT",
				Action:    runEncrypt,
			},
		},
	}
}

func fileArg(c *cli.Context, n int) error {
	if c.NArg() != n {
		return cli.Exit(fmt.Sprintf("%s: expected %d argument(s), got %d", c.Command.Name, n, c.NArg()), 2)
	}
	return nil
}

func runDecode(c *cli.Context) error {
	if err := fileArg(c, 1); err != nil {
		return err
	}
	p := cod.NewParser().
		WithLogger(logger).
		WithCache(!c.Bool("no-cache")).
		WithCacheExtension(c.String("cache-ext"))
	doc, err := p.Load(c.Args().First())
	if err != nil {
		return err
	}

	switch c.String("format") {
	case "yaml":
		data, err := cod.EncodeCache(doc)
		if err != nil {
			return err
		}
		_, err = c.App.Writer.Write(data)
		return err
	case "tree":
		for _, obj := range doc.Objects {
			printTree(c.App.Writer, obj, 0)
		}
		return nil
	default:
		return cli.Exit("unknown format: "+c.String("format"), 2)
	}
}

func printTree(w io.Writer, obj *cod.Object, depth int) {
	indent := strings.Repeat("  ", depth)
	fmt.Fprintf(w, "%s%s\n", indent, obj.Name)
	for _, v := range obj.Variables {
		fmt.Fprintf(w, "%s  %s = %s (%s)\n", indent, v.Name, v.String(), v.Kind())
	}
	for _, child := range obj.Objects {
		printTree(w, child, depth+1)
	}
}

func runLines(c *cli.Context) error {
	if err := fileArg(c, 1); err != nil {
		return err
	}
	data, err := os.ReadFile(c.Args().First())
	if err != nil {
		return fmt.Errorf("failed to read COD file: %w", err)
	}
	for _, line := range cod.Lex(data) {
		fmt.Fprintf(c.App.Writer, "%5d %s%s\n", line.Number, strings.Repeat(" ", line.Indent), line.Text)
	}
	return nil
}

func runDiag(c *cli.Context) error {
	if err := fileArg(c, 1); err != nil {
		return err
	}
	doc, err := cod.NewParser().WithLogger(logger).ParseFile(c.Args().First())
	if err != nil {
		return err
	}
	for _, d := range doc.Diagnostics {
		fmt.Fprintln(c.App.Writer, d.String())
	}
	logger.Info("diagnostics", zap.String("file", c.Args().First()), zap.Int("count", len(doc.Diagnostics)))
	return nil
}

func runEncrypt(c *cli.Context) error {
	if err := fileArg(c, 2); err != nil {
		return err
	}
	data, err := os.ReadFile(c.Args().Get(0))
	if err != nil {
		return fmt.Errorf("failed to read input: %w", err)
	}
	if err := os.WriteFile(c.Args().Get(1), cod.Decrypt(data), 0o644); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
