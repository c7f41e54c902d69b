// Package notes holds the pure helpers behind the notebook: hashtag
// extraction, tag merging, folder listing and search.
package notes

import (
	"regexp"
	"strings"

	"github.com/nhle/studytrack/internal/model"
)

// hashtagPattern matches #tag words. Markdown headings ("# Title") do not
// match because a tag must start right after the '#'.
var hashtagPattern = regexp.MustCompile(`(?:^|[^\p{L}\p{N}_&#/])#([\p{L}\p{N}_][\p{L}\p{N}_-]*)`)

// ExtractHashtags returns the hashtags in text without the leading '#'.
// Returns a deduplicated list preserving the order of first occurrence.
func ExtractHashtags(text string) []string {
	matches := hashtagPattern.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return nil
	}

	seen := make(map[string]bool)
	var result []string
	for _, m := range matches {
		tag := m[1]
		if seen[tag] {
			continue
		}
		seen[tag] = true
		result = append(result, tag)
	}
	return result
}

// MergeTags appends the tags from extra that are not already in tags.
// Tags are trimmed and empty ones dropped; order of first occurrence wins.
func MergeTags(tags []string, extra ...string) []string {
	seen := make(map[string]bool)
	result := []string{}
	for _, list := range [][]string{tags, extra} {
		for _, tag := range list {
			tag = strings.TrimSpace(tag)
			if tag == "" || seen[tag] {
				continue
			}
			seen[tag] = true
			result = append(result, tag)
		}
	}
	return result
}

// Folders lists the distinct folders of notes in order of first appearance.
func Folders(notes []model.Note) []string {
	seen := make(map[string]bool)
	result := []string{}
	for _, n := range notes {
		if seen[n.Folder] {
			continue
		}
		seen[n.Folder] = true
		result = append(result, n.Folder)
	}
	return result
}

// Search keeps the notes whose title or content contains query
// (case-insensitive) and whose folder equals folder. An empty query or a
// folder of "" or "all" matches everything.
func Search(notes []model.Note, query, folder string) []model.Note {
	query = strings.ToLower(strings.TrimSpace(query))
	result := []model.Note{}
	for _, n := range notes {
		if folder != "" && folder != "all" && n.Folder != folder {
			continue
		}
		if query != "" &&
			!strings.Contains(strings.ToLower(n.Title), query) &&
			!strings.Contains(strings.ToLower(n.Content), query) {
			continue
		}
		result = append(result, n)
	}
	return result
}
