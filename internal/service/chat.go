package service

import (
	"fmt"
	"regexp"
	"strings"
)

// ChatService glues the chat path together: rank the corpus against
// the question, build the augmented prompt, push it through the
// serialized queue and turn the answer into displayable HTML
type ChatService struct {
	Queue        *ChatQueue
	Corpus       []string
	Template     string
	MaxResources int
}

func NewChatService(queue *ChatQueue, corpus []string, template string, maxResources int) *ChatService {
	return &ChatService{
		Queue:        queue,
		Corpus:       corpus,
		Template:     template,
		MaxResources: maxResources,
	}
}

// Ask blocks until the queue drains this request. Order of callers is
// order of arrival, a burst just waits longer
func (s *ChatService) Ask(question string) (string, error) {
	prompt := s.BuildPrompt(question)

	res := <-s.Queue.Enqueue(prompt)
	if res.Err != nil {
		return "", res.Err
	}

	return RenderHTML(res.Text), nil
}

// BuildPrompt combines the template, the ranked resource lines and
// the student's question
func (s *ChatService) BuildPrompt(question string) string {
	var b strings.Builder

	b.WriteString(s.Template)
	b.WriteString("\n\n")

	ranked := RankResources(question, s.Corpus, s.MaxResources)
	if len(ranked) > 0 {
		b.WriteString("Relevant lab resources:\n")
		for _, r := range ranked {
			b.WriteString(FormatResourceLine(r))
			b.WriteByte('\n')
		}
		b.WriteString("\n")
	}

	b.WriteString("Student question: ")
	b.WriteString(question)

	return b.String()
}

var urlPattern = regexp.MustCompile(`https?://[^\s<>"')\]]+`)

// RenderHTML is the link-to-HTML transform applied to model output:
// bare URLs become anchors opening in a new tab, newlines become <br>
func RenderHTML(text string) string {
	out := urlPattern.ReplaceAllStringFunc(text, func(url string) string {
		return fmt.Sprintf(`<a href="%s" target="_blank" rel="noopener">%s</a>`, url, url)
	})

	return strings.ReplaceAll(out, "\n", "<br>")
}
