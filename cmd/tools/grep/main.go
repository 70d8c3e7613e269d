// Command grep is the SPEC_FULL.md §6 tool subprocess for pattern search,
// a direct port of _examples/original_source/tools/grep/{grep.c,main.c}:
// glob the search path for candidate files, apply a regular expression
// line-by-line, and emit {"output","count"} or {"error","error_code"}.
package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/ikigai/ikigai/internal/toolexec"
)

const schemaDoc = `{"name":"grep","description":"Search for pattern in files using regular expressions","parameters":{"type":"object","properties":{"pattern":{"type":"string","description":"Regular expression pattern"},"glob":{"type":"string","description":"Glob pattern to filter files (e.g., '*.go')"},"path":{"type":"string","description":"Directory to search in (default: current directory)"}},"required":["pattern"]}}`

type request struct {
	Pattern string `json:"pattern"`
	Glob    string `json:"glob"`
	Path    string `json:"path"`
}

func main() {
	if len(os.Args) == 2 && os.Args[1] == "--schema" {
		fmt.Println(schemaDoc)
		return
	}

	var req request
	if err := json.NewDecoder(os.Stdin).Decode(&req); err != nil {
		fmt.Println(errorJSON("invalid input: "+err.Error(), "INVALID_PATTERN"))
		return
	}
	if req.Pattern == "" {
		fmt.Println(errorJSON("missing or invalid pattern field", "INVALID_PATTERN"))
		return
	}

	path := req.Path
	if path == "" {
		path = "."
	}

	sandbox := toolexec.NewSandbox(toolexec.RootsFromEnv())
	root, err := sandbox.ResolvePath(path, true)
	if err != nil {
		fmt.Println(errorJSON(err.Error(), "INVALID_PATTERN"))
		return
	}

	regex, err := regexp.Compile(req.Pattern)
	if err != nil {
		fmt.Println(errorJSON("Invalid pattern: "+err.Error(), "INVALID_PATTERN"))
		return
	}

	globPattern := req.Glob
	if globPattern == "" {
		globPattern = "*"
	}
	candidates, _ := filepath.Glob(filepath.Join(root, globPattern))

	var matches []string
	for _, candidate := range candidates {
		info, err := os.Stat(candidate)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		file, err := os.Open(candidate)
		if err != nil {
			continue
		}
		scanner := bufio.NewScanner(file)
		lineNumber := 0
		for scanner.Scan() {
			lineNumber++
			line := scanner.Text()
			if regex.MatchString(line) {
				matches = append(matches, fmt.Sprintf("%s:%d: %s", candidate, lineNumber, line))
			}
		}
		file.Close()
	}

	out, _ := json.Marshal(struct {
		Output string `json:"output"`
		Count  int    `json:"count"`
	}{Output: strings.Join(matches, "\n"), Count: len(matches)})
	fmt.Println(string(out))
}

func errorJSON(message, code string) string {
	buf, _ := json.Marshal(struct {
		Error     string `json:"error"`
		ErrorCode string `json:"error_code"`
	}{message, code})
	return string(buf)
}
