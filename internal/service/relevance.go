package service

import (
	"fmt"
	"path"
	"regexp"
	"sort"
	"strings"
)

// Resource is one corpus entry the scorer decided is worth surfacing
type Resource struct {
	URL  string
	Name string
	Kind string // image, pdf or other
}

// Scoring weights. A course-code match dominates everything except a
// stack of filename hits, which is intentional: "phy 161" in a
// question almost always means the student wants that course's
// material
const (
	weightWholeWord  = 3
	weightFilename   = 2
	weightURL        = 1
	weightImageQuery = 5
	weightPDF        = 4
	weightCourse     = 10
)

var (
	imageExts        = map[string]bool{"jpg": true, "jpeg": true, "png": true, "gif": true, "webp": true, "svg": true}
	imageIntentWords = []string{"image", "picture", "photo", "diagram", "show", "see", "look"}

	queryCoursePattern = regexp.MustCompile(`phy\s*(\d{3})`)
	urlCoursePattern   = regexp.MustCompile(`phy(\d{3})`)
	wordSplitPattern   = regexp.MustCompile(`[^a-z0-9]+`)
)

type scoredResource struct {
	Resource
	score int
	order int
}

// RankResources scores every corpus URL against the query and returns
// the topN matches, best first. Pure function, no I/O. Ties keep
// corpus order
func RankResources(query string, corpus []string, topN int) []Resource {
	q := strings.ToLower(query)
	tokens := tokenize(q)
	courses := queryCourses(q)
	wantsImage := false

	for _, w := range imageIntentWords {
		if strings.Contains(q, w) {
			wantsImage = true
			break
		}
	}

	var hits []scoredResource

	for i, url := range corpus {
		lower := strings.ToLower(url)
		filename := path.Base(lower)
		ext := strings.TrimPrefix(path.Ext(filename), ".")
		words := wordSplitPattern.Split(filename, -1)

		score := 0

		for _, t := range tokens {
			switch {
			case containsWord(words, t):
				score += weightWholeWord
			case strings.Contains(filename, t):
				score += weightFilename
			case strings.Contains(lower, t):
				score += weightURL
			}
		}

		if wantsImage && imageExts[ext] {
			score += weightImageQuery
		}

		if ext == "pdf" {
			score += weightPDF
		}

		for _, course := range courses {
			if urlHasCourse(lower, course) {
				score += weightCourse
			}
		}

		if score > 0 {
			hits = append(hits, scoredResource{
				Resource: Resource{
					URL:  url,
					Name: displayName(path.Base(url)),
					Kind: kindForExt(ext),
				},
				score: score,
				order: i,
			})
		}
	}

	sort.SliceStable(hits, func(a, b int) bool {
		if hits[a].score != hits[b].score {
			return hits[a].score > hits[b].score
		}
		return hits[a].order < hits[b].order
	})

	if len(hits) > topN {
		hits = hits[:topN]
	}

	out := make([]Resource, len(hits))
	for i, h := range hits {
		out[i] = h.Resource
	}

	return out
}

// FormatResourceLine renders one ranked entry with its classification
// glyph, ready to drop into the prompt or a chat reply
func FormatResourceLine(r Resource) string {
	var glyph string

	switch r.Kind {
	case "image":
		glyph = "🖼️"
	case "pdf":
		glyph = "📄"
	default:
		glyph = "🔗"
	}

	return fmt.Sprintf("%s %s: %s", glyph, r.Name, r.URL)
}

func tokenize(q string) []string {
	var tokens []string

	for _, t := range strings.Fields(q) {
		if len(t) > 2 {
			tokens = append(tokens, t)
		}
	}

	return tokens
}

func queryCourses(q string) []string {
	var courses []string

	for _, m := range queryCoursePattern.FindAllStringSubmatch(q, -1) {
		if !containsWord(courses, m[1]) {
			courses = append(courses, m[1])
		}
	}

	return courses
}

func urlHasCourse(url, course string) bool {
	for _, m := range urlCoursePattern.FindAllStringSubmatch(url, -1) {
		if m[1] == course {
			return true
		}
	}

	return false
}

func containsWord(words []string, w string) bool {
	for _, x := range words {
		if x == w {
			return true
		}
	}

	return false
}

func kindForExt(ext string) string {
	switch {
	case imageExts[ext]:
		return "image"
	case ext == "pdf":
		return "pdf"
	default:
		return "other"
	}
}

func displayName(filename string) string {
	name := strings.TrimSuffix(filename, path.Ext(filename))
	name = strings.NewReplacer("_", " ", "-", " ").Replace(name)
	return strings.TrimSpace(name)
}
