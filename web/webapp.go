/*
Functions for creating and servicing a web interface.
*/
package web

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"io/ioutil"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/alecthomas/chroma/formatters/html"
	"github.com/alecthomas/chroma/lexers"
	"github.com/alecthomas/chroma/styles"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/daedaleanai/pylintmark/config"
	"github.com/daedaleanai/pylintmark/diagnostics"
	"github.com/daedaleanai/pylintmark/logging"
	"github.com/daedaleanai/pylintmark/pylint"
	"github.com/daedaleanai/pylintmark/refine"
	"github.com/daedaleanai/pylintmark/report"
)

var log = logging.Log

// Largest buffer accepted by /lint
const maxBufferSize = 4 << 20

// A Server lints buffers posted by editors and renders files with their diagnostics
type Server struct {
	linter *pylint.Linter
	// Root bounds the files /view may read
	Root  string
	Style string

	registry    *prometheus.Registry
	diagnostics *prometheus.CounterVec
	failures    prometheus.Counter
	duration    prometheus.Histogram
}

// NewServer wraps the linter. The linter's refiner is replaced by one reporting to the
// server's metrics.
func NewServer(cfg *config.Config, linter *pylint.Linter) (*Server, error) {
	table, err := cfg.Table()
	if err != nil {
		return nil, err
	}
	root, err := os.Getwd()
	if err != nil {
		return nil, err
	}

	s := &Server{
		linter:   linter,
		Root:     root,
		Style:    config.SourceStyle,
		registry: prometheus.NewRegistry(),
		diagnostics: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pylintmark",
			Name:      "diagnostics_total",
			Help:      "Diagnostics reported, by the tier that decided their location and by severity.",
		}, []string{"tier", "severity"}),
		failures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "pylintmark",
			Name:      "lint_failures_total",
			Help:      "Lint runs that failed.",
		}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "pylintmark",
			Name:      "lint_duration_seconds",
			Help:      "Duration of lint runs.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
		}),
	}
	s.registry.MustRegister(s.diagnostics, s.failures, s.duration)
	linter.Refiner = &refine.TableRefiner{Table: table, Observer: s.observe}
	return s, nil
}

func (s *Server) observe(d diagnostics.Diagnostic, tier refine.Tier) {
	s.diagnostics.WithLabelValues(tier.String(), d.Severity.String()).Inc()
}

// Serve starts the web server listening on the supplied address:port until the context is
// cancelled
func Serve(ctx context.Context, cfg *config.Config, linter *pylint.Linter, addr string) error {
	s, err := NewServer(cfg, linter)
	if err != nil {
		return err
	}
	if strings.HasPrefix(addr, ":") {
		addr = "localhost" + addr
	}

	srv := &http.Server{Addr: addr, Handler: s.Handler()}
	errs := make(chan error, 1)
	go func() {
		errs <- srv.ListenAndServe()
	}()
	fmt.Printf("Server started on http://%s\n", addr)

	select {
	case err := <-errs:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// Handler returns the HTTP handler of the server
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/", s.handler)
	return mux
}

var errorTemplate = template.Must(template.New("error").Parse(
	`<html>OOPS!
<pre>{{.Error}}</pre>`))

// handler responds to requests on the web server
func (s *Server) handler(w http.ResponseWriter, r *http.Request) {
	log.Info("%s %s", r.Method, r.URL)
	var err error
	switch {
	case r.URL.Path == "/lint" && r.Method == http.MethodPost:
		s.lint(w, r)
		return
	case r.URL.Path == "/lint":
		http.Error(w, "use POST", http.StatusMethodNotAllowed)
		return
	case r.Method != http.MethodGet:
		err = fmt.Errorf("Unknown HTTP method: %s", r.Method)
	case r.URL.Path == "/":
		err = indexTemplate.Execute(w, s.Root)
	case r.URL.Path == "/view":
		err = s.view(w, r)
	default:
		http.NotFound(w, r)
		return
	}
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		_ = errorTemplate.Execute(w, err)
	}
}

// lint runs pylint on the request body and answers with the diagnostics as a JSON list
func (s *Server) lint(w http.ResponseWriter, r *http.Request) {
	filename := r.URL.Query().Get("filename")
	if filename == "" {
		filename = "buffer.py"
	}
	src, err := ioutil.ReadAll(http.MaxBytesReader(w, r.Body, maxBufferSize))
	if err != nil {
		http.Error(w, err.Error(), http.StatusRequestEntityTooLarge)
		return
	}

	diags, err := s.run(func() ([]diagnostics.Diagnostic, error) {
		return s.linter.LintSource(r.Context(), filename, src)
	})
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(report.LintMessages(diags, s.linter.Base)); err != nil {
		log.Warning("Writing response: %s", err)
	}
}

func (s *Server) run(lint func() ([]diagnostics.Diagnostic, error)) ([]diagnostics.Diagnostic, error) {
	start := time.Now()
	diags, err := lint()
	s.duration.Observe(time.Since(start).Seconds())
	if err != nil {
		s.failures.Inc()
		log.Warning("Lint failed: %s", err)
	}
	return diags, err
}

// resolve maps a requested path to a file below the root
func (s *Server) resolve(path string) (string, error) {
	if path == "" {
		return "", errors.New("missing path")
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(s.Root, path)
	}
	path = filepath.Clean(path)
	rel, err := filepath.Rel(s.Root, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", errors.Errorf("`%s` is outside of `%s`", path, s.Root)
	}
	return path, nil
}

type viewData struct {
	Path        string
	CSS         template.CSS
	Code        template.HTML
	Diagnostics []report.LintMessage
}

// view renders a python file with the lines carrying diagnostics highlighted
func (s *Server) view(w http.ResponseWriter, r *http.Request) error {
	path, err := s.resolve(r.FormValue("path"))
	if err != nil {
		return err
	}
	contents, err := ioutil.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, "failed to read file")
	}
	diags, err := s.run(func() ([]diagnostics.Diagnostic, error) {
		return s.linter.LintFile(r.Context(), path)
	})
	if err != nil {
		return err
	}

	messages := report.LintMessages(diags, s.linter.Base)
	lines := make(map[int]bool)
	for _, m := range messages {
		lines[m.Line] = true
	}
	ranges := make([][2]int, 0, len(lines))
	for line := range lines {
		ranges = append(ranges, [2]int{line, line})
	}
	sort.Slice(ranges, func(i, j int) bool { return ranges[i][0] < ranges[j][0] })

	lexer := lexers.Get("python")
	iterator, err := lexer.Tokenise(nil, string(contents))
	if err != nil {
		return errors.Wrap(err, "tokenise")
	}
	formatter := html.New(html.WithLineNumbers(true), html.LinkableLineNumbers(true, "L"), html.WithClasses(true), html.HighlightLines(ranges))
	style := styles.Get(s.Style)
	var code, css bytes.Buffer
	if err := formatter.Format(&code, style, iterator); err != nil {
		return err
	}
	if err := formatter.WriteCSS(&css, style); err != nil {
		return err
	}

	rel, _ := filepath.Rel(s.Root, path)
	return viewTemplate.Execute(w, viewData{
		Path:        rel,
		CSS:         template.CSS(css.String()),
		Code:        template.HTML(code.String()),
		Diagnostics: messages,
	})
}

var indexTemplate = template.Must(template.New("index").Parse(
	`<!DOCTYPE html>
<html lang="en">
<head><title>pylintmark</title></head>
<body>
<h1>pylintmark</h1>
<p>Files are resolved below <code>{{.}}</code>.</p>
<form action="/view" method="get">
<input name="path" type="text" placeholder="path/to/module.py">
<input type="submit" value="View">
</form>
<p><a href="/metrics">Metrics</a></p>
</body>
</html>`))

var viewTemplate = template.Must(template.New("view").Parse(
	`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Path}}</title>
<style>
{{.CSS}}
.diagnostics td { padding: 2px 10px; font-family: monospace; }
.error { color: #c00; }
.warning { color: #b80; }
</style>
</head>
<body>
<h1>{{.Path}}</h1>
<table class="diagnostics">
{{ range .Diagnostics }}
<tr>
<td><a href="#L{{.Line}}">{{.Line}}{{ if .Char }}:{{.Char}}{{ end }}</a></td>
<td class="{{.Severity}}">{{.Severity}}</td>
<td>{{.Code}}</td>
<td>{{.Description}}{{ if .Near }} (near <code>{{.Near}}</code>){{ end }}</td>
</tr>
{{ else }}
<tr><td>No diagnostics</td></tr>
{{ end }}
</table>
{{.Code}}
</body>
</html>`))
