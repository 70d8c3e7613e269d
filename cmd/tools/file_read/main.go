// Command file_read is one of the SPEC_FULL.md §6 "concrete shell-out tool
// binaries": it speaks the tool subprocess protocol directly (a --schema
// probe at registration, one JSON object on stdin, one JSON object on
// stdout) instead of implementing the teacher's in-process tools.Tool
// interface. Logic is ported from
// _examples/original_source/tools/file_read/file_read.c and main.c's
// argument handling (main.c for the file_read tool is not present in the
// retrieval pack; the grep tool's main.c establishes the shared stdin/
// --schema/stdout convention this file follows).
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ikigai/ikigai/internal/toolexec"
)

const schemaDoc = `{"name":"file_read","description":"Read the contents of a file from disk.","parameters":{"type":"object","properties":{"path":{"type":"string","description":"Path to the file to read."},"file_path":{"type":"string","description":"Legacy alias for path."},"offset":{"type":"integer","description":"1-indexed line number to start reading from."},"limit":{"type":"integer","description":"Maximum number of lines to read."}},"required":["path"]}}`

const maxReadBytes = 1024 * 1024

type request struct {
	Path     string `json:"path"`
	FilePath string `json:"file_path"`
	Offset   *int   `json:"offset"`
	Limit    *int   `json:"limit"`
}

func main() {
	if len(os.Args) == 2 && os.Args[1] == "--schema" {
		fmt.Println(schemaDoc)
		return
	}

	raw, err := io.ReadAll(os.Stdin)
	if err != nil {
		fmt.Println(errorJSON(fmt.Sprintf("read stdin: %v", err), "READ_FAILED"))
		return
	}

	var req request
	if err := json.Unmarshal(raw, &req); err != nil {
		fmt.Println(errorJSON(fmt.Sprintf("invalid input: %v", err), "OPEN_FAILED"))
		return
	}
	if req.Path == "" {
		req.Path = req.FilePath
	}
	if req.Path == "" {
		fmt.Println(errorJSON("path is required", "FILE_NOT_FOUND"))
		return
	}

	sandbox := toolexec.NewSandbox(toolexec.RootsFromEnv())
	path, err := sandbox.ResolvePath(req.Path, true)
	if err != nil {
		fmt.Println(errorJSON(err.Error(), sandboxErrorCode(err)))
		return
	}

	info, err := os.Stat(path)
	if err != nil {
		fmt.Println(errorJSON(fmt.Sprintf("cannot get file size: %s", path), "SIZE_FAILED"))
		return
	}
	if info.Size() > maxReadBytes {
		fmt.Println(errorJSON(fmt.Sprintf("file too large: %d bytes", info.Size()), "READ_FAILED"))
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Println(errorJSON(fmt.Sprintf("failed to read file: %s", path), "READ_FAILED"))
		return
	}
	for _, b := range data {
		if b == 0 {
			fmt.Println(errorJSON("binary file detected", "READ_FAILED"))
			return
		}
	}

	content := string(data)
	if req.Offset != nil || req.Limit != nil {
		content = windowLines(content, req.Offset, req.Limit)
	}

	out, _ := json.Marshal(struct {
		Output string `json:"output"`
	}{Output: content})
	fmt.Println(string(out))
}

func windowLines(content string, offset, limit *int) string {
	lines := strings.Split(content, "\n")
	start := 0
	if offset != nil && *offset > 0 {
		start = *offset - 1
	}
	if start < 0 {
		start = 0
	}
	if start > len(lines) {
		start = len(lines)
	}
	end := len(lines)
	if limit != nil {
		n := *limit
		if n < 0 {
			n = 0
		}
		if start+n < end {
			end = start + n
		}
	}
	return strings.Join(lines[start:end], "\n")
}

func sandboxErrorCode(err error) string {
	switch {
	case errors.Is(err, toolexec.ErrPathDenied), errors.Is(err, toolexec.ErrPathNotAllowed):
		return "PERMISSION_DENIED"
	case errors.Is(err, os.ErrNotExist):
		return "FILE_NOT_FOUND"
	default:
		return "OPEN_FAILED"
	}
}

func errorJSON(message, code string) string {
	buf, _ := json.Marshal(struct {
		Error     string `json:"error"`
		ErrorCode string `json:"error_code"`
	}{message, code})
	return string(buf)
}
