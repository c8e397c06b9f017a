package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// apiError mirrors the error body returned by the webparser API.
type apiError struct {
	Error string `json:"error"`
	Code  string `json:"code"`
	Stage string `json:"stage"`
}

// pageResponse mirrors the fields of the /api/parse result shown to the model.
type pageResponse struct {
	URL          string            `json:"url"`
	Title        string            `json:"title"`
	Meta         map[string]string `json:"meta"`
	Headings     []pageHeading     `json:"headings"`
	Paragraphs   []string          `json:"paragraphs"`
	Links        []pageLink        `json:"links"`
	RenderMethod string            `json:"renderMethod"`
	Content      string            `json:"content"`
}

type pageHeading struct {
	Tag  string `json:"tag"`
	Text string `json:"text"`
}

type pageLink struct {
	Href string `json:"href"`
	Text string `json:"text"`
}

func main() {
	apiURL := os.Getenv("WEBPARSER_API_URL")
	if apiURL == "" {
		apiURL = "http://127.0.0.1:3001"
	}
	apiKey := os.Getenv("WEBPARSER_API_KEY")

	s := server.NewMCPServer(
		"webparser",
		"0.1.0",
		server.WithToolCapabilities(false),
	)

	extractPageTool := mcp.NewTool("extract_page",
		mcp.WithDescription("Extract title, meta tags, headings, paragraphs, links and images from a web page. Static pages are fetched directly; JavaScript-heavy pages are rendered in a headless browser."),
		mcp.WithString("url",
			mcp.Required(),
			mcp.Description("Absolute http(s) URL of the page to extract"),
		),
		mcp.WithBoolean("include_content",
			mcp.Description("Also return the main article converted to Markdown"),
		),
	)
	s.AddTool(extractPageTool, handleExtractPage(apiURL, apiKey))

	extractTrackingTool := mcp.NewTool("extract_tracking",
		mcp.WithDescription("Look up a shipment on the carrier tracking portal and return the JSON the portal's own backend call delivered. Give either the tracking page URL or the bare tracking number."),
		mcp.WithString("url",
			mcp.Description("Tracking page URL, e.g. https://www.maersk.com/tracking/ABC123"),
		),
		mcp.WithString("tracking_id",
			mcp.Description("Alphanumeric tracking number"),
		),
	)
	s.AddTool(extractTrackingTool, handleExtractTracking(apiURL, apiKey))

	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
}

// apiPost sends a POST request to the webparser API and returns the status
// code and response body.
func apiPost(ctx context.Context, client *http.Client, apiURL, apiKey, path string, payload interface{}) (int, []byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return 0, nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL+path, bytes.NewReader(body))
	if err != nil {
		return 0, nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if apiKey != "" {
		req.Header.Set("X-API-Key", apiKey)
	}

	resp, err := client.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("read response: %w", err)
	}
	return resp.StatusCode, respBody, nil
}

// errorResult turns a non-2xx API body into a tool error.
func errorResult(status int, body []byte, fallback string) *mcp.CallToolResult {
	var e apiError
	if err := json.Unmarshal(body, &e); err != nil || e.Error == "" {
		return mcp.NewToolResultError(fmt.Sprintf("%s (HTTP %d)", fallback, status))
	}
	if e.Stage != "" {
		return mcp.NewToolResultError(fmt.Sprintf("[%s/%s] %s", e.Code, e.Stage, e.Error))
	}
	return mcp.NewToolResultError(fmt.Sprintf("[%s] %s", e.Code, e.Error))
}

func handleExtractPage(apiURL, apiKey string) server.ToolHandlerFunc {
	client := &http.Client{Timeout: 120 * time.Second}

	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		url, err := request.RequireString("url")
		if err != nil {
			return mcp.NewToolResultError("url is required"), nil
		}

		payload := map[string]interface{}{
			"url":             url,
			"include_content": request.GetBool("include_content", false),
		}

		status, respBody, err := apiPost(ctx, client, apiURL, apiKey, "/api/parse", payload)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("parse request failed: %v", err)), nil
		}
		if status != http.StatusOK {
			return errorResult(status, respBody, "parse failed"), nil
		}

		var page pageResponse
		if err := json.Unmarshal(respBody, &page); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to parse response: %v", err)), nil
		}

		return mcp.NewToolResultText(formatPage(&page)), nil
	}
}

func handleExtractTracking(apiURL, apiKey string) server.ToolHandlerFunc {
	client := &http.Client{Timeout: 180 * time.Second}

	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		url := strings.TrimSpace(request.GetString("url", ""))
		id := strings.TrimSpace(request.GetString("tracking_id", ""))
		if url == "" && id == "" {
			return mcp.NewToolResultError("url or tracking_id is required"), nil
		}

		payload := map[string]string{}
		if id != "" {
			payload["tracking_id"] = id
		} else {
			payload["url"] = url
		}

		status, respBody, err := apiPost(ctx, client, apiURL, apiKey, "/api/track", payload)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("track request failed: %v", err)), nil
		}
		if status != http.StatusOK {
			return errorResult(status, respBody, "tracking lookup failed"), nil
		}

		var miss struct {
			Intercepted *bool  `json:"intercepted"`
			Raw         string `json:"raw"`
		}
		_ = json.Unmarshal(respBody, &miss)
		if miss.Intercepted != nil && !*miss.Intercepted {
			return mcp.NewToolResultError(miss.Raw), nil
		}

		var pretty bytes.Buffer
		if err := json.Indent(&pretty, respBody, "", "  "); err != nil {
			pretty.Reset()
			pretty.Write(respBody)
		}
		return mcp.NewToolResultText("Tracking Data:\n" + pretty.String()), nil
	}
}

// formatPage renders an extraction result as plain text for the model.
func formatPage(p *pageResponse) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Title: %s\nSource: %s\nRender: %s\n", p.Title, p.URL, p.RenderMethod)
	if d := p.Meta["description"]; d != "" {
		fmt.Fprintf(&sb, "Description: %s\n", d)
	}

	if len(p.Headings) > 0 {
		sb.WriteString("\nHeadings:\n")
		for _, h := range p.Headings {
			fmt.Fprintf(&sb, "  %s %s\n", h.Tag, h.Text)
		}
	}

	if p.Content != "" {
		sb.WriteString("\n")
		sb.WriteString(p.Content)
		sb.WriteString("\n")
	} else if len(p.Paragraphs) > 0 {
		sb.WriteString("\n")
		for _, para := range p.Paragraphs {
			sb.WriteString(para)
			sb.WriteString("\n\n")
		}
	}

	if len(p.Links) > 0 {
		fmt.Fprintf(&sb, "\n---\nLinks: %d\n", len(p.Links))
		for _, l := range p.Links {
			fmt.Fprintf(&sb, "  %s (%s)\n", l.Text, l.Href)
		}
	}
	return sb.String()
}
