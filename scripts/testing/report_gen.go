// Command report_gen merges `go test -json` output with the annotations on
// test functions (TestPurpose, Scope, Security, Expected, Test Case ID) and
// writes JSON and Markdown reports for CI.
package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Annotation holds what a test documents about itself.
type Annotation struct {
	Purpose    string `json:"purpose,omitempty"`
	Scope      string `json:"scope,omitempty"`
	Security   string `json:"security,omitempty"`
	Expected   string `json:"expected,omitempty"`
	TestCaseID string `json:"test_case_id,omitempty"`
	Category   string `json:"category"`
}

// TestEvent is one line of `go test -json`.
type TestEvent struct {
	Time    time.Time `json:"Time"`
	Action  string    `json:"Action"`
	Package string    `json:"Package"`
	Test    string    `json:"Test"`
	Elapsed float64   `json:"Elapsed"`
	Output  string    `json:"Output"`
}

// Result is the outcome of one test.
type Result struct {
	Name        string     `json:"name"`
	Package     string     `json:"package"`
	Status      string     `json:"status"`
	Elapsed     float64    `json:"elapsed_seconds"`
	Failure     string     `json:"failure_reason,omitempty"`
	Annotations Annotation `json:"annotations"`
}

// Summary is the whole report.
type Summary struct {
	GeneratedAt time.Time `json:"generated_at"`
	Total       int       `json:"total"`
	Passed      int       `json:"passed"`
	Failed      int       `json:"failed"`
	Skipped     int       `json:"skipped"`
	Results     []Result  `json:"results"`
}

// categories maps Test Case ID prefixes to report sections, in report order.
var categories = []struct {
	prefix string
	name   string
}{
	{"ACC", "Permissions"},
	{"GRD", "Route Guard"},
	{"IDN", "Identity"},
	{"CCH", "Cache & Events"},
	{"DB", "Persistence"},
	{"HTTP", "HTTP API"},
	{"AUD", "Audit"},
	{"CFG", "Configuration"},
}

const otherCategory = "Other"

func main() {
	input := flag.String("input", "", "path to go test -json output")
	outJSON := flag.String("out-json", "", "path for the JSON report")
	outMD := flag.String("out-md", "", "path for the Markdown report")
	title := flag.String("title", "Test Report", "report title")
	module := flag.String("module", "github.com/elev8/access", "module path of the scanned tree")
	root := flag.String("root", ".", "repository root to scan for annotations")
	flag.Parse()

	if *input == "" || *outJSON == "" || *outMD == "" {
		fmt.Fprintln(os.Stderr, "usage: report_gen -input <json> -out-json <file> -out-md <file>")
		os.Exit(2)
	}

	annotations, err := scanAnnotations(*root, *module)
	if err != nil {
		fmt.Fprintf(os.Stderr, "scan failed: %v\n", err)
		os.Exit(1)
	}

	f, err := os.Open(*input)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open %s: %v\n", *input, err)
		os.Exit(1)
	}
	results, err := mergeResults(f, annotations)
	_ = f.Close()
	if err != nil {
		fmt.Fprintf(os.Stderr, "parse test output: %v\n", err)
		os.Exit(1)
	}

	summary := summarize(results, time.Now())
	if err := writeFile(*outJSON, func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(summary)
	}); err != nil {
		fmt.Fprintf(os.Stderr, "write json: %v\n", err)
		os.Exit(1)
	}
	if err := writeFile(*outMD, func(w io.Writer) error {
		return renderMarkdown(w, summary, *title)
	}); err != nil {
		fmt.Fprintf(os.Stderr, "write markdown: %v\n", err)
		os.Exit(1)
	}

	// CI gates on the exit code.
	if summary.Failed > 0 {
		fmt.Printf("%d tests failed\n", summary.Failed)
		os.Exit(1)
	}
}

// scanAnnotations reads every Test function's doc comment under root. Keys
// are "<import path>.<TestName>".
func scanAnnotations(root, module string) (map[string]Annotation, error) {
	out := make(map[string]Annotation)
	fset := token.NewFileSet()

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			name := d.Name()
			if path != root && (strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_") || name == "vendor") {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(path, "_test.go") {
			return nil
		}

		file, err := parser.ParseFile(fset, path, nil, parser.ParseComments)
		if err != nil {
			return nil
		}
		pkg := importPath(root, path, module)
		for _, decl := range file.Decls {
			fn, ok := decl.(*ast.FuncDecl)
			if !ok || fn.Recv != nil || !strings.HasPrefix(fn.Name.Name, "Test") {
				continue
			}
			out[pkg+"."+fn.Name.Name] = parseAnnotation(fn.Doc)
		}
		return nil
	})
	return out, err
}

func importPath(root, file, module string) string {
	rel, err := filepath.Rel(root, filepath.Dir(file))
	if err != nil || rel == "." {
		return module
	}
	return module + "/" + filepath.ToSlash(rel)
}

func parseAnnotation(doc *ast.CommentGroup) Annotation {
	var a Annotation
	if doc != nil {
		for _, c := range doc.List {
			text := strings.TrimSpace(strings.TrimPrefix(c.Text, "//"))
			key, value, ok := strings.Cut(text, ":")
			if !ok {
				continue
			}
			value = strings.TrimSpace(value)
			switch key {
			case "TestPurpose":
				a.Purpose = value
			case "Scope":
				a.Scope = value
			case "Security":
				a.Security = value
			case "Expected":
				a.Expected = value
			case "Test Case ID":
				a.TestCaseID = value
			}
		}
	}
	a.Category = categoryFor(a.TestCaseID)
	return a
}

func categoryFor(testCaseID string) string {
	prefix, _, _ := strings.Cut(testCaseID, "-")
	for _, c := range categories {
		if c.prefix == prefix {
			return c.name
		}
	}
	return otherCategory
}

// mergeResults folds a go test -json stream into per-test results.
// Annotated tests that never ran are reported as "not run". Subtests
// inherit their parent's annotations.
func mergeResults(r io.Reader, annotations map[string]Annotation) ([]Result, error) {
	byKey := make(map[string]*Result, len(annotations))
	for key, a := range annotations {
		i := strings.LastIndex(key, ".")
		byKey[key] = &Result{Package: key[:i], Name: key[i+1:], Status: "not run", Annotations: a}
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		var ev TestEvent
		if err := json.Unmarshal(scanner.Bytes(), &ev); err != nil || ev.Test == "" {
			continue
		}

		key := ev.Package + "." + ev.Test
		res, ok := byKey[key]
		if !ok {
			parent, _, _ := strings.Cut(ev.Test, "/")
			a, found := annotations[ev.Package+"."+parent]
			if !found {
				a = Annotation{Category: otherCategory}
			}
			res = &Result{Package: ev.Package, Name: ev.Test, Annotations: a}
			byKey[key] = res
		}

		switch ev.Action {
		case "pass", "fail":
			res.Status = ev.Action
			res.Elapsed = ev.Elapsed
		case "skip":
			res.Status = "skip"
		case "output":
			res.Failure += ev.Output
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	results := make([]Result, 0, len(byKey))
	for _, res := range byKey {
		if res.Status != "fail" {
			res.Failure = ""
		}
		results = append(results, *res)
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].Package != results[j].Package {
			return results[i].Package < results[j].Package
		}
		return results[i].Name < results[j].Name
	})
	return results, nil
}

func summarize(results []Result, now time.Time) Summary {
	s := Summary{GeneratedAt: now, Results: results}
	for _, r := range results {
		s.Total++
		switch r.Status {
		case "pass":
			s.Passed++
		case "fail":
			s.Failed++
		case "skip":
			s.Skipped++
		}
	}
	return s
}

var statusIcons = map[string]string{
	"pass":    "✅",
	"fail":    "❌",
	"skip":    "⏭️",
	"not run": "⚪",
}

func renderMarkdown(w io.Writer, s Summary, title string) error {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# Elev8 Access %s\n\n", title)
	fmt.Fprintf(&sb, "**Generated:** %s  \n", s.GeneratedAt.Format("2006-01-02 15:04:05 MST"))
	status := "✅ PASSED"
	if s.Failed > 0 {
		status = "❌ FAILED"
	}
	fmt.Fprintf(&sb, "**Status:** %s\n\n", status)

	rate := 0.0
	if s.Total > 0 {
		rate = float64(s.Passed) / float64(s.Total) * 100
	}
	sb.WriteString("## Summary\n\n")
	sb.WriteString("| Total | Passed | Failed | Skipped | Pass Rate |\n")
	sb.WriteString("|-------|--------|--------|---------|-----------|\n")
	fmt.Fprintf(&sb, "| %d | %d | %d | %d | %.1f%% |\n\n", s.Total, s.Passed, s.Failed, s.Skipped, rate)

	grouped := make(map[string][]Result)
	for _, r := range s.Results {
		grouped[r.Annotations.Category] = append(grouped[r.Annotations.Category], r)
	}

	sb.WriteString("## Results by Category\n\n")
	order := make([]string, 0, len(categories)+1)
	for _, c := range categories {
		order = append(order, c.name)
	}
	order = append(order, otherCategory)
	for _, name := range order {
		tests := grouped[name]
		if len(tests) == 0 {
			continue
		}
		fmt.Fprintf(&sb, "### %s\n\n", name)
		sb.WriteString("| ID | Test | Status | Purpose | Security |\n")
		sb.WriteString("|----|------|--------|---------|----------|\n")
		for _, t := range tests {
			security := t.Annotations.Security
			if security != "" {
				security = "**" + security + "**"
			}
			fmt.Fprintf(&sb, "| %s | %s | %s | %s | %s |\n",
				t.Annotations.TestCaseID, t.Name, statusIcons[t.Status], t.Annotations.Purpose, security)
		}
		sb.WriteString("\n")
	}

	if s.Failed > 0 {
		sb.WriteString("## Failure Details\n\n")
		for _, t := range s.Results {
			if t.Status != "fail" {
				continue
			}
			fmt.Fprintf(&sb, "### %s (%s)\n\n```\n%s\n```\n\n", t.Name, t.Package, t.Failure)
		}
	}

	_, err := io.WriteString(w, sb.String())
	return err
}

func writeFile(path string, write func(io.Writer) error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
