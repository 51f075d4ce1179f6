// Package flatten implements "flatten" and "check" commands: locating nested
// stylesheet sources in files, directories and archives and processing them.
package flatten

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime/debug"
	"strings"
	"time"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"nestcss/archive"
	"nestcss/common"
	"nestcss/config"
	"nestcss/css"
	"nestcss/sheet"
	"nestcss/state"
	utils "nestcss/utils/debug"
)

// sourceFunc is called for every located source. "src" is part of the source
// path (always including file name) relative to the original path.
type sourceFunc func(ctx context.Context, r io.Reader, src string) error

// walker locates sources and counts processing results.
type walker struct {
	exts      []string
	log       *zap.Logger
	handle    sourceFunc
	processed int
	failed    int
}

// Run is "flatten" command: every source is flattened and written to
// destination in requested format.
func Run(ctx context.Context, cmd *cli.Command) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}

	env := state.EnvFromContext(ctx)
	log := env.Log.Named("flatten")

	src, err := sourceArg(cmd)
	if err != nil {
		return err
	}

	dst := cmd.Args().Get(1)
	if len(dst) == 0 {
		if dst, err = os.Getwd(); err != nil {
			return fmt.Errorf("unable to get working directory: %w", err)
		}
	}
	if dst, err = filepath.Abs(dst); err != nil {
		return err
	}
	if cmd.Args().Len() > 2 {
		log.Warn("Malformed command line, too many destinations", zap.Strings("ignoring", cmd.Args().Slice()[2:]))
	}

	env.Format, err = common.ParseOutputFmt(cmd.String("to"))
	if err != nil {
		log.Warn("Unknown output format requested, switching to css", zap.Error(err))
		env.Format = common.OutputFmtCss
	}
	env.NoDirs, env.Overwrite, env.ToStdout = cmd.Bool("nodirs"), cmd.Bool("overwrite"), cmd.Bool("stdout")
	env.Selector = strings.TrimSpace(cmd.String("selector"))
	if err := prepareCharset(cmd.String("encoding"), env, log); err != nil {
		return err
	}

	if name := cmd.String("store"); len(name) > 0 {
		store, serr := sheet.OpenStore(name, log)
		if serr != nil {
			return fmt.Errorf("unable to open sheet store: %w", serr)
		}
		env.Store = store
		defer func() {
			env.Store = nil
			err = multierr.Append(err, store.Close())
		}()
	}

	log.Info("Processing starting", zap.String("source", src), zap.String("destination", dst), zap.Stringer("format", env.Format))
	defer func(start time.Time) {
		log.Info("Processing completed", zap.Duration("elapsed", time.Since(start)))
	}(time.Now())

	w := &walker{
		exts: env.Cfg.Flatten.Extensions,
		log:  log,
		handle: func(ctx context.Context, r io.Reader, src string) error {
			return flattenSource(ctx, r, src, dst, log)
		},
	}
	return w.run(ctx, src)
}

// Check is "check" command: every source is flattened and resulting rules are
// verified, found problems are reported.
func Check(ctx context.Context, cmd *cli.Command) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	env := state.EnvFromContext(ctx)
	log := env.Log.Named("check")

	src, err := sourceArg(cmd)
	if err != nil {
		return err
	}
	if cmd.Args().Len() > 1 {
		log.Warn("Malformed command line, too many sources", zap.Strings("ignoring", cmd.Args().Slice()[1:]))
	}
	env.Selector = strings.TrimSpace(cmd.String("selector"))
	if err := prepareCharset(cmd.String("encoding"), env, log); err != nil {
		return err
	}

	checker := css.NewChecker(log)
	problems := 0

	w := &walker{
		exts: env.Cfg.Flatten.Extensions,
		log:  log,
		handle: func(ctx context.Context, r io.Reader, src string) error {
			rules, _, err := prepareRules(ctx, r, src, log)
			if err != nil {
				return err
			}
			warnings := checker.Check(rules)
			for _, warn := range warnings {
				log.Warn("Problem found", zap.String("source", src), zap.Stringer("warning", warn))
			}
			problems += len(warnings)
			log.Info("Source checked", zap.String("source", src), zap.Int("rules", len(rules)), zap.Int("problems", len(warnings)))
			return nil
		},
	}
	if err := w.run(ctx, src); err != nil {
		return err
	}
	if problems > 0 {
		return fmt.Errorf("%d problem(s) found", problems)
	}
	return nil
}

func sourceArg(cmd *cli.Command) (string, error) {
	src := cmd.Args().Get(0)
	if len(src) == 0 {
		return "", errors.New("no input source has been specified")
	}
	return filepath.Abs(src)
}

// prepareCharset selects source character set: command line wins over
// configuration.
func prepareCharset(name string, env *state.LocalEnv, log *zap.Logger) error {
	if len(name) == 0 {
		name = env.Cfg.Flatten.Encoding
	}
	cs, err := validateCharset(name)
	if err != nil {
		return fmt.Errorf("unknown source character set %q: %w", name, err)
	}
	if len(cs) > 0 {
		log.Debug("Converting all sources", zap.String("charset", cs))
	}
	env.Charset = cs
	return nil
}

// run determines the input type (directory, archive, or single file) and
// processes it accordingly.
func (w *walker) run(ctx context.Context, src string) error {
	var head, tail string
	for head = src; len(head) != 0; head, tail = filepath.Split(head) {
		if err := ctx.Err(); err != nil {
			return err
		}

		head = strings.TrimSuffix(head, string(filepath.Separator))

		fi, err := os.Stat(head)
		if err != nil {
			// does not exists - probably path in archive
			continue
		}

		if fi.Mode().IsDir() {
			if len(tail) != 0 {
				// directory cannot have tail - it would be simple file
				return fmt.Errorf("input source was not found (%s) => (%s)", head, strings.TrimPrefix(src, head))
			}
			if err := w.processDir(ctx, head); err != nil {
				return fmt.Errorf("unable to process directory: %w", err)
			}
			break
		}

		if !fi.Mode().IsRegular() {
			return fmt.Errorf("unexpected path mode for (%s) => (%s)", head, strings.TrimPrefix(src, head))
		}

		arc, err := isArchiveFile(head)
		if err != nil {
			return fmt.Errorf("unable to check archive type: %w", err)
		}
		if arc {
			// we need to look inside to see if path makes sense
			tail = strings.TrimPrefix(strings.TrimPrefix(src, head), string(filepath.Separator))
			if err := w.processArchive(ctx, head, filepath.ToSlash(tail), ""); err != nil {
				return fmt.Errorf("unable to process archive: %w", err)
			}
			break
		}

		if len(tail) != 0 {
			return fmt.Errorf("input source was not found (%s) => (%s)", head, strings.TrimPrefix(src, head))
		}
		// explicitly named file is processed regardless of its extension
		if err := w.processFile(ctx, head, filepath.Base(head)); err != nil {
			return err
		}
		break
	}
	if len(head) == 0 {
		return fmt.Errorf("input source was not found (%s)", src)
	}
	if w.processed == 0 {
		w.log.Warn("Nothing to process", zap.String("source", src))
	} else if w.failed == w.processed {
		return errors.New("unable to process any of the sources")
	}
	return nil
}

// processDir walks directory tree finding sources and archives.
func (w *walker) processDir(ctx context.Context, dir string) error {
	return filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err := ctx.Err(); err != nil {
			return err
		}

		if err != nil {
			w.log.Warn("Skipping path", zap.String("path", path), zap.Error(err))
			return nil
		}
		if !info.Mode().IsRegular() {
			return nil
		}

		arc, err := isArchiveFile(path)
		if err != nil {
			w.log.Warn("Skipping file", zap.String("file", path), zap.Error(err))
			return nil
		}
		rel := strings.TrimPrefix(strings.TrimPrefix(path, dir), string(filepath.Separator))
		if arc {
			if err := w.processArchive(ctx, path, "", filepath.Dir(rel)); err != nil {
				w.log.Error("Unable to process archive", zap.String("file", path), zap.Error(err))
			}
			return nil
		}

		if !isSourceFile(path, w.exts) {
			w.log.Debug("Skipping file, not recognized as source or archive", zap.String("file", path))
			return nil
		}
		return w.processFile(ctx, path, rel)
	})
}

// processArchive walks all files inside archive, finds sources under "pathIn"
// and processes them. Results are placed under "pathOut".
func (w *walker) processArchive(ctx context.Context, path, pathIn, pathOut string) error {
	return archive.Walk(path, pathIn, w.exts, func(arc string, f *zip.File) error {
		if err := ctx.Err(); err != nil {
			return err
		}

		w.processed++

		r, err := f.Open()
		if err != nil {
			w.failed++
			w.log.Error("Unable to process file in archive",
				zap.String("archive", arc), zap.String("file", f.FileHeader.Name), zap.Error(err))
			return nil
		}
		defer r.Close()

		if err := w.handle(ctx, r, filepath.Join(pathOut, filepath.FromSlash(f.FileHeader.Name))); err != nil {
			w.failed++
			w.log.Error("Unable to process file in archive",
				zap.String("archive", arc), zap.String("file", f.FileHeader.Name), zap.Error(err))
		}
		return nil
	})
}

func (w *walker) processFile(ctx context.Context, path, src string) error {
	w.processed++

	file, err := os.Open(path)
	if err != nil {
		w.failed++
		w.log.Error("Unable to process file", zap.String("file", path), zap.Error(err))
		return nil
	}
	defer file.Close()

	if err := w.handle(ctx, file, src); err != nil {
		w.failed++
		w.log.Error("Unable to process file", zap.String("file", path), zap.Error(err))
	}
	return nil
}

// prepareRules reads single source and flattens it. When tracing is requested
// or debug report is being produced scanner decisions are recorded.
func prepareRules(ctx context.Context, r io.Reader, src string, log *zap.Logger) (css.Rules, Values, error) {
	env := state.EnvFromContext(ctx)

	values := newValues(src, env.Cfg.Flatten.Transliterate)

	text, err := readSource(r, env.Charset, log)
	if err != nil {
		return nil, values, fmt.Errorf("unable to read source (%s): %w", src, err)
	}

	values.Selector = topSelector(values, env, log)

	var opts []css.Option
	var tracer *utils.TreeTracer
	if env.Cfg.Flatten.Trace || env.Rpt != nil {
		tracer = utils.NewTreeTracer()
		opts = append(opts, css.WithTracer(tracer))
	}

	rules := css.NewFlattener(log, opts...).Flatten(text, values.Selector)

	if tracer != nil {
		trace := tracer.String()
		log.Debug("Flattening trace", zap.String("source", src), zap.String("tree", trace))
		if env.Rpt != nil {
			env.Rpt.StoreData(fmt.Sprintf("trace/%03d-%s.txt", env.Rpt.Len(), values.Base), []byte(trace))
		}
	}
	return rules, values, nil
}

// topSelector returns selector requested on command line or one produced by
// configured template, falling back to class named after the source.
func topSelector(values Values, env *state.LocalEnv, log *zap.Logger) string {
	if len(env.Selector) > 0 {
		return env.Selector
	}
	selector, err := expandTemplate(config.SelectorTemplateFieldName, env.Cfg.Flatten.SelectorTemplate, values)
	if err != nil {
		log.Warn("Unable to prepare selector, using default", zap.Error(err))
		selector = ""
	}
	if len(selector) == 0 {
		selector = "." + values.Base
	}
	return selector
}

// flattenSource processes single source and writes result. "dst" is the
// destination directory.
func flattenSource(ctx context.Context, r io.Reader, src, dst string, log *zap.Logger) (rerr error) {
	env := state.EnvFromContext(ctx)

	var outputName string

	log.Info("Flattening starting", zap.String("from", src))
	defer func(start time.Time) {
		if r := recover(); r != nil {
			log.Error("Flattening ended with panic",
				zap.Any("panic", r), zap.Duration("elapsed", time.Since(start)), zap.String("to", outputName), zap.ByteString("stack", debug.Stack()))
			rerr = fmt.Errorf("flattening panic: %v", r)
		} else if rerr == nil {
			log.Info("Flattening completed", zap.Duration("elapsed", time.Since(start)), zap.String("to", outputName))
		}
	}(time.Now())

	rules, values, err := prepareRules(ctx, r, src, log)
	if err != nil {
		return err
	}
	values.Format = env.Format.String()

	if env.Store != nil {
		if err := env.Store.Add(rules...); err != nil {
			return fmt.Errorf("unable to store rules: %w", err)
		}
	}

	data, err := render(rules, env.Format)
	if err != nil {
		return fmt.Errorf("unable to render output: %w", err)
	}

	if env.ToStdout {
		outputName = "STDOUT"
		if _, err := env.Out.Write(data); err != nil {
			return fmt.Errorf("unable to write output: %w", err)
		}
		return nil
	}

	outputName = buildOutputPath(src, dst, values, env)
	if err := prepareOutput(outputName, env, log); err != nil {
		return err
	}
	if err := os.WriteFile(outputName, data, 0644); err != nil {
		return fmt.Errorf("unable to write output: %w", err)
	}

	if env.Rpt != nil {
		env.Rpt.Store(fmt.Sprintf("result/%03d-%s", env.Rpt.Len(), filepath.Base(outputName)), outputName)
	}
	return nil
}

// prepareOutput makes sure output file could be written.
func prepareOutput(outputName string, env *state.LocalEnv, log *zap.Logger) error {
	if _, err := os.Stat(outputName); err == nil {
		if !env.Overwrite {
			return fmt.Errorf("output file already exists: %s", outputName)
		}
		log.Warn("Overwriting existing file", zap.String("file", outputName))
		return os.Remove(outputName)
	} else if !os.IsNotExist(err) {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(outputName), 0755); err != nil {
		return fmt.Errorf("unable to create output directory: %w", err)
	}
	return nil
}
