package flatten

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"golang.org/x/text/encoding/charmap"
	yaml "gopkg.in/yaml.v3"

	"nestcss/common"
	"nestcss/config"
	"nestcss/css"
	"nestcss/sheet"
	"nestcss/state"
)

const cardSource = `padding: 8px;
h2 {
	margin: 0;
	:hover { color: teal; }
}
color: #333;
`

// setupTestEnv creates a test environment with proper context and logger
func setupTestEnv(t *testing.T) (context.Context, *state.LocalEnv) {
	t.Helper()
	logger := zaptest.NewLogger(t, zaptest.WrapOptions(zap.AddCaller(), zap.AddCallerSkip(1)))
	cfg, err := config.LoadConfiguration("")
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	ctx := state.ContextWithEnv(context.Background())
	env := state.EnvFromContext(ctx)
	env.Log = logger
	env.Cfg = cfg
	return ctx, env
}

func newFlattenCommand() *cli.Command {
	return &cli.Command{
		Name:   "flatten",
		Action: Run,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "to", Value: common.OutputFmtCss.String()},
			&cli.StringFlag{Name: "selector"},
			&cli.BoolFlag{Name: "nodirs"},
			&cli.BoolFlag{Name: "overwrite"},
			&cli.StringFlag{Name: "encoding"},
			&cli.StringFlag{Name: "store"},
			&cli.BoolFlag{Name: "stdout"},
		},
	}
}

func newCheckCommand() *cli.Command {
	return &cli.Command{
		Name:   "check",
		Action: Check,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "selector"},
			&cli.StringFlag{Name: "encoding"},
		},
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("Failed to create directory: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read %s: %v", path, err)
	}
	return string(data)
}

func writeZip(t *testing.T, path string, files map[string]string) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("Failed to create zip file: %v", err)
	}
	defer f.Close()

	w := zip.NewWriter(f)
	for name, content := range files {
		fw, err := w.Create(name)
		if err != nil {
			t.Fatalf("Failed to create %s in zip: %v", name, err)
		}
		if _, err := fw.Write([]byte(content)); err != nil {
			t.Fatalf("Failed to write %s: %v", name, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Failed to close zip: %v", err)
	}
}

func TestRun_SingleFile(t *testing.T) {
	ctx, _ := setupTestEnv(t)
	srcDir, dstDir := t.TempDir(), t.TempDir()

	src := filepath.Join(srcDir, "Card Style.ncss")
	writeFile(t, src, cardSource)

	if err := newFlattenCommand().Run(ctx, []string{"flatten", src, dstDir}); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	got := readFile(t, filepath.Join(dstDir, "card-style.css"))
	want := ".card-style{padding: 8px;color: #333;}\n" +
		".card-style h2{margin: 0;}\n" +
		".card-style h2:hover{color: teal;}\n"
	if got != want {
		t.Errorf("output =\n%s\nwant\n%s", got, want)
	}
}

func TestRun_SelectorAndFormat(t *testing.T) {
	tests := []struct {
		format string
		file   string
		want   string
	}{
		{"css", "a.css", "#app{x: 1;}\n#app b{y: 2;}\n"},
		{"tree", "a.txt", "rule 0: #app\n  decl: \"x: 1;\"\nrule 1: #app b\n  decl: \"y: 2;\"\n"},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			ctx, _ := setupTestEnv(t)
			srcDir, dstDir := t.TempDir(), t.TempDir()
			src := filepath.Join(srcDir, "a.ncss")
			writeFile(t, src, "x: 1;b{y: 2;}")

			args := []string{"flatten", "--to", tt.format, "--selector", "#app", src, dstDir}
			if err := newFlattenCommand().Run(ctx, args); err != nil {
				t.Fatalf("Run() error = %v", err)
			}
			if got := readFile(t, filepath.Join(dstDir, tt.file)); got != tt.want {
				t.Errorf("output = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRun_Yaml(t *testing.T) {
	ctx, _ := setupTestEnv(t)
	srcDir, dstDir := t.TempDir(), t.TempDir()
	src := filepath.Join(srcDir, "a.ncss")
	writeFile(t, src, "x: 1;b{y: 2;}")

	if err := newFlattenCommand().Run(ctx, []string{"flatten", "--to", "yaml", src, dstDir}); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	var got css.Rules
	if err := yaml.Unmarshal([]byte(readFile(t, filepath.Join(dstDir, "a.yaml"))), &got); err != nil {
		t.Fatalf("output is not valid yaml: %v", err)
	}
	want := css.Rules{
		{Selector: ".a", Body: []string{"x: 1;"}},
		{Selector: ".a b", Body: []string{"y: 2;"}},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("output = %#v, want %#v", got, want)
	}
}

func TestRun_Stdout(t *testing.T) {
	ctx, env := setupTestEnv(t)
	var out bytes.Buffer
	env.Out = &out

	src := filepath.Join(t.TempDir(), "menu.css")
	writeFile(t, src, "a{color: red;}")

	if err := newFlattenCommand().Run(ctx, []string{"flatten", "--stdout", src}); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if got, want := out.String(), ".menu{}\n.menu a{color: red;}\n"; got != want {
		t.Errorf("stdout = %q, want %q", got, want)
	}
}

func TestRun_Directory(t *testing.T) {
	ctx, _ := setupTestEnv(t)
	srcDir, dstDir := t.TempDir(), t.TempDir()

	writeFile(t, filepath.Join(srcDir, "base.ncss"), "margin: 0;")
	writeFile(t, filepath.Join(srcDir, "widgets", "button.scss"), "&x{}")
	writeFile(t, filepath.Join(srcDir, "notes.txt"), "not a stylesheet")

	if err := newFlattenCommand().Run(ctx, []string{"flatten", srcDir, dstDir}); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if _, err := os.Stat(filepath.Join(dstDir, "base.css")); err != nil {
		t.Errorf("expected base.css: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dstDir, "widgets", "button.css")); err != nil {
		t.Errorf("expected widgets/button.css: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dstDir, "notes.css")); err == nil {
		t.Error("notes.txt should not be processed")
	}
}

func TestRun_NoDirs(t *testing.T) {
	ctx, _ := setupTestEnv(t)
	srcDir, dstDir := t.TempDir(), t.TempDir()
	writeFile(t, filepath.Join(srcDir, "deep", "er", "x.css"), "a: b;")

	if err := newFlattenCommand().Run(ctx, []string{"flatten", "--nodirs", srcDir, dstDir}); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(dstDir, "x.css")); err != nil {
		t.Errorf("expected flat output: %v", err)
	}
}

func TestRun_Archive(t *testing.T) {
	ctx, _ := setupTestEnv(t)
	srcDir, dstDir := t.TempDir(), t.TempDir()

	zipPath := filepath.Join(srcDir, "styles.zip")
	writeZip(t, zipPath, map[string]string{
		"theme/dark.ncss":  "color: white;",
		"theme/light.ncss": "color: black;",
		"other/skip.ncss":  "color: red;",
		"theme/readme.md":  "# nope",
	})

	src := zipPath + string(filepath.Separator) + "theme"
	if err := newFlattenCommand().Run(ctx, []string{"flatten", src, dstDir}); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if got := readFile(t, filepath.Join(dstDir, "theme", "dark.css")); got != ".dark{color: white;}\n" {
		t.Errorf("dark.css = %q", got)
	}
	if _, err := os.Stat(filepath.Join(dstDir, "theme", "light.css")); err != nil {
		t.Errorf("expected light.css: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dstDir, "other", "skip.css")); err == nil {
		t.Error("file outside of requested archive path should not be processed")
	}
}

func TestRun_Overwrite(t *testing.T) {
	ctx, _ := setupTestEnv(t)
	srcDir, dstDir := t.TempDir(), t.TempDir()
	src := filepath.Join(srcDir, "a.css")
	writeFile(t, src, "x: 1;")
	writeFile(t, filepath.Join(dstDir, "a.css"), "old")

	err := newFlattenCommand().Run(ctx, []string{"flatten", src, dstDir})
	if err == nil {
		t.Fatal("expected error when output exists")
	}
	if got := readFile(t, filepath.Join(dstDir, "a.css")); got != "old" {
		t.Errorf("existing output was changed: %q", got)
	}

	if err := newFlattenCommand().Run(ctx, []string{"flatten", "--overwrite", src, dstDir}); err != nil {
		t.Fatalf("Run() with --overwrite error = %v", err)
	}
	if got := readFile(t, filepath.Join(dstDir, "a.css")); got != ".a{x: 1;}\n" {
		t.Errorf("output = %q", got)
	}
}

func TestRun_Store(t *testing.T) {
	ctx, _ := setupTestEnv(t)
	srcDir, dstDir := t.TempDir(), t.TempDir()
	writeFile(t, filepath.Join(srcDir, "a.css"), "x: 1;")
	writeFile(t, filepath.Join(srcDir, "b.css"), "c{y: 2;}")

	dbPath := filepath.Join(t.TempDir(), "sheet.db")
	if err := newFlattenCommand().Run(ctx, []string{"flatten", "--store", dbPath, srcDir, dstDir}); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	store, err := sheet.OpenStore(dbPath, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("OpenStore() error = %v", err)
	}
	defer store.Close()

	got, err := store.Serialise()
	if err != nil {
		t.Fatalf("Serialise() error = %v", err)
	}
	if want := ".a{x: 1;}.b{}.b c{y: 2;}"; got != want {
		t.Errorf("stored sheet = %q, want %q", got, want)
	}
}

func TestRun_Encoding(t *testing.T) {
	ctx, env := setupTestEnv(t)
	var out bytes.Buffer
	env.Out = &out

	encoded, err := charmap.Windows1251.NewEncoder().String(`content: "Привет";`)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	src := filepath.Join(t.TempDir(), "ru.css")
	writeFile(t, src, encoded)

	args := []string{"flatten", "--stdout", "--encoding", "windows-1251", src}
	if err := newFlattenCommand().Run(ctx, args); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if got, want := out.String(), ".ru{content: \"Привет\";}\n"; got != want {
		t.Errorf("stdout = %q, want %q", got, want)
	}
}

func TestRun_Errors(t *testing.T) {
	tests := []struct {
		name string
		args func(dir string) []string
		want string
	}{
		{
			name: "no source",
			args: func(string) []string { return []string{"flatten"} },
			want: "no input source has been specified",
		},
		{
			name: "missing source",
			args: func(dir string) []string { return []string{"flatten", filepath.Join(dir, "nope", "x.css")} },
			want: "input source was not found",
		},
		{
			name: "unknown encoding",
			args: func(dir string) []string { return []string{"flatten", "--encoding", "klingon", dir} },
			want: "unknown source character set",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, _ := setupTestEnv(t)
			err := newFlattenCommand().Run(ctx, tt.args(t.TempDir()))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Run() error = %v, want containing %q", err, tt.want)
			}
		})
	}
}

func TestRun_CancelledContext(t *testing.T) {
	ctx, _ := setupTestEnv(t)
	cancelCtx, cancel := context.WithCancel(ctx)
	cancel()

	dir := t.TempDir()
	err := newFlattenCommand().Run(cancelCtx, []string{"flatten", dir, dir})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled error, got %v", err)
	}
}

func TestRun_Report(t *testing.T) {
	ctx, env := setupTestEnv(t)
	rpt, err := (&config.ReporterConfig{Destination: filepath.Join(t.TempDir(), "report.zip")}).Prepare()
	if err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}
	env.Rpt = rpt

	srcDir, dstDir := t.TempDir(), t.TempDir()
	writeFile(t, filepath.Join(srcDir, "a.css"), "b{c: d;}")

	if err := newFlattenCommand().Run(ctx, []string{"flatten", srcDir, dstDir}); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if rpt.Len() != 2 {
		t.Errorf("expected trace and result in report, got %d entries", rpt.Len())
	}
	if err := rpt.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
}

func TestCheck(t *testing.T) {
	t.Run("clean", func(t *testing.T) {
		ctx, _ := setupTestEnv(t)
		src := filepath.Join(t.TempDir(), "ok.css")
		writeFile(t, src, cardSource)

		if err := newCheckCommand().Run(ctx, []string{"check", src}); err != nil {
			t.Errorf("Check() error = %v", err)
		}
	})

	t.Run("problems", func(t *testing.T) {
		ctx, _ := setupTestEnv(t)
		src := filepath.Join(t.TempDir(), "bad.css")
		writeFile(t, src, "oops;a{}@media print{x: y;}")

		err := newCheckCommand().Run(ctx, []string{"check", src})
		if err == nil || !strings.Contains(err.Error(), "problem(s) found") {
			t.Errorf("Check() error = %v, want problems", err)
		}
	})
}
