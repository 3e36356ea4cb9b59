package taskrun

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	pdfx "github.com/ledongthuc/pdf"
	"golang.org/x/net/html"
)

// maxHTTPBodyBytes caps http_request response bodies.
const maxHTTPBodyBytes = 2 << 20

// safeCommands are the only leading words run_command accepts.
var safeCommands = map[string]bool{
	"ls": true, "pwd": true, "echo": true, "date": true, "whoami": true,
}

// RegisterBuiltinTools registers the standard tool set on a Registry. The
// file and shell tools delegate to the provided execution environment.
func RegisterBuiltinTools(reg *Registry, env ExecutionEnvironment) error {
	register := []func(*Registry, ExecutionEnvironment) error{
		registerReadFile,
		registerWriteFile,
		registerListFiles,
		registerRunCommand,
		registerHTTPRequest,
		registerHTMLToText,
		registerReadPDF,
		registerParseCSV,
		registerParseJSON,
		registerCalculate,
	}
	for _, fn := range register {
		if err := fn(reg, env); err != nil {
			return err
		}
	}
	return nil
}

func registerReadFile(reg *Registry, env ExecutionEnvironment) error {
	return reg.Register(ToolInfo{
		Name:        "read_file",
		Description: "Read the content of a file.",
		Schema: InputSchema{
			Properties: map[string]ParamSpec{
				"path": {Type: "string", Description: "Path to the file, absolute or relative to the working directory."},
			},
			Required: []string{"path"},
		},
	}, CapabilityFunc(func(ctx context.Context, input map[string]any) (any, error) {
		path, _ := stringInput(input, "path")
		return env.ReadFile(path)
	}))
}

func registerWriteFile(reg *Registry, env ExecutionEnvironment) error {
	return reg.Register(ToolInfo{
		Name:        "write_file",
		Description: "Write content to a file, creating parent directories if needed.",
		Schema: InputSchema{
			Properties: map[string]ParamSpec{
				"path":    {Type: "string", Description: "Path to write to."},
				"content": {Type: "string", Description: "The full file content."},
			},
			Required: []string{"path", "content"},
		},
	}, CapabilityFunc(func(ctx context.Context, input map[string]any) (any, error) {
		path, _ := stringInput(input, "path")
		content, _ := stringInput(input, "content")
		if err := env.WriteFile(path, content); err != nil {
			return nil, err
		}
		return map[string]any{"path": path, "bytes_written": len(content)}, nil
	}))
}

func registerListFiles(reg *Registry, env ExecutionEnvironment) error {
	return reg.Register(ToolInfo{
		Name:        "list_files",
		Description: "List the entries of a directory.",
		Schema: InputSchema{
			Properties: map[string]ParamSpec{
				"directory": {Type: "string", Description: "Directory to list. Defaults to the working directory."},
			},
		},
	}, CapabilityFunc(func(ctx context.Context, input map[string]any) (any, error) {
		dir, ok := stringInput(input, "directory")
		if !ok || dir == "" {
			dir = "."
		}
		entries, err := env.ListDirectory(dir)
		if err != nil {
			return nil, err
		}
		return map[string]any{"directory": dir, "entries": entries, "count": len(entries)}, nil
	}))
}

func registerRunCommand(reg *Registry, env ExecutionEnvironment) error {
	return reg.Register(ToolInfo{
		Name:        "run_command",
		Description: "Run an allow-listed shell command (ls, pwd, echo, date, whoami).",
		Schema: InputSchema{
			Properties: map[string]ParamSpec{
				"command":    {Type: "string", Description: "The command line to run."},
				"timeout_ms": {Type: "integer", Description: "Timeout in milliseconds. Default 10000."},
			},
			Required: []string{"command"},
		},
	}, CapabilityFunc(func(ctx context.Context, input map[string]any) (any, error) {
		command, _ := stringInput(input, "command")
		fields := strings.Fields(command)
		if len(fields) == 0 {
			return nil, errors.New("empty command")
		}
		if !safeCommands[fields[0]] {
			return nil, fmt.Errorf("command %q is not allow-listed", fields[0])
		}
		timeoutMs, ok := intInput(input, "timeout_ms")
		if !ok {
			timeoutMs = 10000
		}
		result, err := env.ExecCommand(ctx, command, timeoutMs)
		if err != nil {
			return nil, err
		}
		if result.TimedOut {
			return nil, fmt.Errorf("command timed out after %dms", timeoutMs)
		}
		if result.ExitCode != 0 {
			return nil, fmt.Errorf("command exited with %d: %s", result.ExitCode, strings.TrimSpace(result.Stderr))
		}
		return result.Stdout, nil
	}))
}

func registerHTTPRequest(reg *Registry, env ExecutionEnvironment) error {
	return reg.Register(ToolInfo{
		Name:        "http_request",
		Description: "Make an HTTP request and return the status and body (capped at 2 MiB).",
		Schema: InputSchema{
			Properties: map[string]ParamSpec{
				"url":     {Type: "string", Description: "The URL to request."},
				"method":  {Type: "string", Description: "HTTP method. Default GET."},
				"headers": {Type: "object", Description: "Request headers, name to value."},
				"body":    {Type: "string", Description: "Request body for POST/PUT/PATCH."},
			},
			Required: []string{"url"},
		},
	}, CapabilityFunc(func(ctx context.Context, input map[string]any) (any, error) {
		url, _ := stringInput(input, "url")
		method, ok := stringInput(input, "method")
		if !ok || method == "" {
			method = http.MethodGet
		}
		method = strings.ToUpper(method)

		var bodyReader io.Reader
		if body, ok := stringInput(input, "body"); ok && body != "" {
			bodyReader = strings.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
		if err != nil {
			return nil, err
		}
		if headers, ok := input["headers"].(map[string]any); ok {
			for name, value := range headers {
				if s, ok := value.(string); ok {
					req.Header.Set(name, s)
				}
			}
		}

		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		// Read one byte past the cap so a body of exactly the cap is not
		// reported as truncated.
		lr := io.LimitedReader{R: resp.Body, N: maxHTTPBodyBytes + 1}
		data, err := io.ReadAll(&lr)
		if err != nil {
			return nil, err
		}
		truncated := len(data) > maxHTTPBodyBytes
		if truncated {
			data = data[:maxHTTPBodyBytes]
		}
		return map[string]any{
			"status":    resp.StatusCode,
			"body":      string(data),
			"truncated": truncated,
		}, nil
	}))
}

func registerHTMLToText(reg *Registry, env ExecutionEnvironment) error {
	return reg.Register(ToolInfo{
		Name:        "html_to_text",
		Description: "Extract readable text from an HTML document.",
		Schema: InputSchema{
			Properties: map[string]ParamSpec{
				"html": {Type: "string", Description: "The HTML to convert."},
			},
			Required: []string{"html"},
		},
	}, CapabilityFunc(func(ctx context.Context, input map[string]any) (any, error) {
		htmlStr, _ := stringInput(input, "html")
		node, err := html.Parse(strings.NewReader(htmlStr))
		if err != nil {
			return nil, err
		}
		var b strings.Builder
		extractText(node, &b, false)
		return compactWhitespace(b.String()), nil
	}))
}

func registerReadPDF(reg *Registry, env ExecutionEnvironment) error {
	return reg.Register(ToolInfo{
		Name:        "read_pdf",
		Description: "Extract plain text from a PDF file.",
		Schema: InputSchema{
			Properties: map[string]ParamSpec{
				"path":      {Type: "string", Description: "Path to the PDF file."},
				"max_pages": {Type: "integer", Description: "Maximum pages to extract. Default 20."},
			},
			Required: []string{"path"},
		},
	}, CapabilityFunc(func(ctx context.Context, input map[string]any) (any, error) {
		path, _ := stringInput(input, "path")
		maxPages, ok := intInput(input, "max_pages")
		if !ok || maxPages <= 0 {
			maxPages = 20
		}

		f, r, err := pdfx.Open(env.ResolvePath(path))
		if err != nil {
			return nil, fmt.Errorf("open pdf: %w", err)
		}
		defer f.Close()

		total := r.NumPage()
		pages := total
		if pages > maxPages {
			pages = maxPages
		}
		var out strings.Builder
		for page := 1; page <= pages; page++ {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			text, err := r.Page(page).GetPlainText(nil)
			if err != nil {
				continue // skip unextractable pages
			}
			if t := strings.TrimSpace(text); t != "" {
				out.WriteString(t)
				out.WriteString("\n\n")
			}
		}
		return map[string]any{
			"text":        strings.TrimSpace(out.String()),
			"pages_read":  pages,
			"pages_total": total,
		}, nil
	}))
}

func registerParseCSV(reg *Registry, env ExecutionEnvironment) error {
	return reg.Register(ToolInfo{
		Name:        "parse_csv",
		Description: "Parse CSV text into a list of row objects. Repeated header names are suffixed (name, name_2, ...).",
		Schema: InputSchema{
			Properties: map[string]ParamSpec{
				"csv":        {Type: "string", Description: "The CSV text."},
				"delimiter":  {Type: "string", Description: "Single-character field delimiter. Default ','."},
				"has_header": {Type: "boolean", Description: "Whether the first row is a header. Default true."},
			},
			Required: []string{"csv"},
		},
	}, CapabilityFunc(func(ctx context.Context, input map[string]any) (any, error) {
		raw, _ := stringInput(input, "csv")
		if strings.TrimSpace(raw) == "" {
			return []map[string]string{}, nil
		}
		rdr := csv.NewReader(strings.NewReader(raw))
		rdr.FieldsPerRecord = -1
		if d, ok := stringInput(input, "delimiter"); ok && d != "" {
			runes := []rune(d)
			if len(runes) != 1 {
				return nil, errors.New("delimiter must be a single character")
			}
			rdr.Comma = runes[0]
		}
		hasHeader := true
		if b, ok := boolInput(input, "has_header"); ok {
			hasHeader = b
		}

		var headers []string
		if hasHeader {
			first, err := rdr.Read()
			if err != nil {
				return nil, err
			}
			// Repeated header names get a numeric suffix so no column is
			// lost to a duplicate map key.
			headers = make([]string, len(first))
			used := make(map[string]bool, len(first))
			for i, raw := range first {
				name := strings.TrimSpace(raw)
				column := name
				for n := 2; used[column]; n++ {
					column = fmt.Sprintf("%s_%d", name, n)
				}
				used[column] = true
				headers[i] = column
			}
		}

		rows := make([]map[string]string, 0, 16)
		for {
			rec, err := rdr.Read()
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				return nil, err
			}
			if headers == nil {
				headers = make([]string, len(rec))
				for i := range rec {
					headers[i] = fmt.Sprintf("c%d", i+1)
				}
			}
			row := make(map[string]string, len(headers))
			for i, name := range headers {
				if i < len(rec) {
					row[name] = rec[i]
				} else {
					row[name] = ""
				}
			}
			rows = append(rows, row)
		}
		return rows, nil
	}))
}

func registerParseJSON(reg *Registry, env ExecutionEnvironment) error {
	return reg.Register(ToolInfo{
		Name:        "parse_json",
		Description: "Parse a JSON document into structured data.",
		Schema: InputSchema{
			Properties: map[string]ParamSpec{
				"text": {Type: "string", Description: "The JSON text to parse."},
			},
			Required: []string{"text"},
		},
	}, CapabilityFunc(func(ctx context.Context, input map[string]any) (any, error) {
		text, _ := stringInput(input, "text")
		var parsed any
		if err := json.Unmarshal([]byte(text), &parsed); err != nil {
			return nil, fmt.Errorf("invalid JSON: %w", err)
		}
		return parsed, nil
	}))
}

func registerCalculate(reg *Registry, env ExecutionEnvironment) error {
	return reg.Register(ToolInfo{
		Name:        "calculate",
		Description: "Evaluate an arithmetic expression (+, -, *, /, parentheses).",
		Schema: InputSchema{
			Properties: map[string]ParamSpec{
				"expression": {Type: "string", Description: "The expression, e.g. \"(2 + 3) * 4\"."},
			},
			Required: []string{"expression"},
		},
	}, CapabilityFunc(func(ctx context.Context, input map[string]any) (any, error) {
		expression, _ := stringInput(input, "expression")
		value, err := evalExpression(expression)
		if err != nil {
			return nil, err
		}
		return map[string]any{"expression": expression, "result": value}, nil
	}))
}

// Input accessor helpers. Numbers arrive as float64 after JSON decoding.

func stringInput(input map[string]any, key string) (string, bool) {
	s, ok := input[key].(string)
	return s, ok
}

func intInput(input map[string]any, key string) (int, bool) {
	switch n := input[key].(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}

func boolInput(input map[string]any, key string) (bool, bool) {
	b, ok := input[key].(bool)
	return b, ok
}

// extractText walks an HTML tree appending visible text, skipping script,
// style, and noscript subtrees.
func extractText(n *html.Node, b *strings.Builder, hidden bool) {
	if n.Type == html.ElementNode {
		switch strings.ToLower(n.Data) {
		case "script", "style", "noscript":
			hidden = true
		case "br", "p", "div", "li", "tr":
			b.WriteString("\n")
		}
	}
	if !hidden && n.Type == html.TextNode {
		b.WriteString(n.Data)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		extractText(c, b, hidden)
	}
}

// compactWhitespace collapses runs of whitespace and drops empty lines.
func compactWhitespace(s string) string {
	s = strings.ReplaceAll(s, "\t", " ")
	s = strings.ReplaceAll(s, "\r", " ")
	var out []string
	for _, line := range strings.Split(s, "\n") {
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}
