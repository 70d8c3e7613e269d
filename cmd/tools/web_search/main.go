// Command web_search is the SPEC_FULL.md §6 tool subprocess for web
// search, grounded on _examples/original_source/tools/web_search/main.c's
// schema and argument shape (query/count/offset/allowed_domains/
// blocked_domains) and on the teacher's internal/tools/web_search.go for
// the HTTP client construction the original's web_search.c body is not
// present in the retrieval pack to ground directly.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

const schemaDoc = `{"name":"web_search","description":"Search the web using the Brave Search API and use the results to inform responses.","parameters":{"type":"object","properties":{"query":{"type":"string","description":"The search query to use","minLength":2},"count":{"type":"integer","description":"Number of results to return (1-20)","minimum":1,"maximum":20,"default":10},"offset":{"type":"integer","description":"Result offset for pagination","minimum":0,"default":0},"allowed_domains":{"type":"array","items":{"type":"string"},"description":"Only include search results from these domains"},"blocked_domains":{"type":"array","items":{"type":"string"},"description":"Never include search results from these domains"}},"required":["query"]}}`

const defaultSearchTimeout = 10 * time.Second
const defaultSearchURL = "https://api.search.brave.com/res/v1/web/search"

type request struct {
	Query          string   `json:"query"`
	Count          int      `json:"count"`
	Offset         int      `json:"offset"`
	AllowedDomains []string `json:"allowed_domains"`
	BlockedDomains []string `json:"blocked_domains"`
}

type braveResponse struct {
	Web struct {
		Results []struct {
			Title       string `json:"title"`
			URL         string `json:"url"`
			Description string `json:"description"`
		} `json:"results"`
	} `json:"web"`
}

func main() {
	if len(os.Args) == 2 && os.Args[1] == "--schema" {
		fmt.Println(schemaDoc)
		return
	}

	var req request
	if err := json.NewDecoder(os.Stdin).Decode(&req); err != nil {
		fmt.Println(errorJSON("invalid input: "+err.Error(), "API_ERROR"))
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		fmt.Println(errorJSON("missing or invalid query", "API_ERROR"))
		return
	}
	if req.Count <= 0 {
		req.Count = 10
	}

	apiKey := os.Getenv("IKIGAI_BRAVE_API_KEY")
	if apiKey == "" {
		fmt.Println(errorJSON("web search API key not configured", "AUTH_INVALID"))
		return
	}

	searchURL := defaultSearchURL
	if override := os.Getenv("IKIGAI_WEBSEARCH_URL"); override != "" {
		searchURL = override
	}

	values := url.Values{}
	values.Set("q", req.Query)
	values.Set("count", strconv.Itoa(req.Count))
	if req.Offset > 0 {
		values.Set("offset", strconv.Itoa(req.Offset))
	}

	httpReq, err := http.NewRequest(http.MethodGet, searchURL+"?"+values.Encode(), nil)
	if err != nil {
		fmt.Println(errorJSON("build request: "+err.Error(), "API_ERROR"))
		return
	}
	httpReq.Header.Set("X-Subscription-Token", apiKey)
	httpReq.Header.Set("Accept", "application/json")

	client := &http.Client{Timeout: defaultSearchTimeout}
	resp, err := client.Do(httpReq)
	if err != nil {
		fmt.Println(errorJSON("request failed: "+err.Error(), "NETWORK_ERROR"))
		return
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		fmt.Println(errorJSON("read response: "+err.Error(), "NETWORK_ERROR"))
		return
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		fmt.Println(errorJSON("search API rejected credentials", "AUTH_INVALID"))
		return
	case resp.StatusCode == http.StatusTooManyRequests:
		fmt.Println(errorJSON("search API rate limit exceeded", "RATE_LIMIT"))
		return
	case resp.StatusCode >= http.StatusBadRequest:
		fmt.Println(errorJSON(fmt.Sprintf("search failed: %s", resp.Status), "API_ERROR"))
		return
	}

	var parsed braveResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		fmt.Println(errorJSON("decode response: "+err.Error(), "API_ERROR"))
		return
	}

	results := filterDomains(parsed, req.AllowedDomains, req.BlockedDomains)
	out, _ := json.Marshal(struct {
		Output  string        `json:"output"`
		Results []searchEntry `json:"results"`
	}{Output: formatResults(results), Results: results})
	fmt.Println(string(out))
}

type searchEntry struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet,omitempty"`
}

func filterDomains(parsed braveResponse, allowed, blocked []string) []searchEntry {
	entries := make([]searchEntry, 0, len(parsed.Web.Results))
	for _, r := range parsed.Web.Results {
		if len(allowed) > 0 && !domainMatches(r.URL, allowed) {
			continue
		}
		if domainMatches(r.URL, blocked) {
			continue
		}
		entries = append(entries, searchEntry{Title: r.Title, URL: r.URL, Snippet: r.Description})
	}
	return entries
}

func domainMatches(rawURL string, domains []string) bool {
	if len(domains) == 0 {
		return false
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	for _, domain := range domains {
		if parsed.Host == domain || strings.HasSuffix(parsed.Host, "."+domain) {
			return true
		}
	}
	return false
}

func formatResults(entries []searchEntry) string {
	var b strings.Builder
	for i, entry := range entries {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "[%s](%s)", entry.Title, entry.URL)
		if entry.Snippet != "" {
			fmt.Fprintf(&b, " - %s", entry.Snippet)
		}
	}
	return b.String()
}

func errorJSON(message, code string) string {
	buf, _ := json.Marshal(struct {
		Error     string `json:"error"`
		ErrorCode string `json:"error_code"`
	}{message, code})
	return string(buf)
}
