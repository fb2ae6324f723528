package main

import (
	"context"
	"errors"
	"net"

	"docstore/internal/api"
)

func formatCLIError(err error) []string {
	if err == nil {
		return nil
	}

	lines := []string{err.Error()}

	var apiErr *api.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case "unauthorized", "forbidden":
			lines = append(lines, "hint: verify DOCSTORE_API_TOKEN matches the server's api_token or api_token_hash.")
		case "resource_exhausted":
			lines = append(lines, "hint: retry shortly; the rendition queue or upload slots are busy.")
		case "format_not_found":
			lines = append(lines, "hint: list known formats with: docstore formats")
		case "conversion_failed":
			lines = append(lines, "hint: the converter could not read the source; check the file opens in an office suite.")
		case "repository_corruption":
			lines = append(lines, "hint: run docstore verify to audit the database against the blob store.")
		}
		if apiErr.Code == "" {
			lines = append(lines, "hint: verify DOCSTORE_API_URL points to a docstore server.")
		}
		if apiErr.Status >= 500 {
			lines = append(lines, "hint: server returned an internal error; check server logs for details.")
		}
		return uniqueLines(lines)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		lines = append(lines, "hint: request timed out; check server health or increase DOCSTORE_HTTP_TIMEOUT.")
		return uniqueLines(lines)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		lines = append(lines,
			"hint: ensure a docstore server is running at DOCSTORE_API_URL.",
			"hint: start local server manually with: docstore srv",
			"hint: you can increase DOCSTORE_HTTP_TIMEOUT for slower environments.",
		)
		return uniqueLines(lines)
	}

	return uniqueLines(lines)
}

func uniqueLines(lines []string) []string {
	seen := make(map[string]struct{}, len(lines))
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if line == "" {
			continue
		}
		if _, ok := seen[line]; ok {
			continue
		}
		seen[line] = struct{}{}
		out = append(out, line)
	}
	return out
}
