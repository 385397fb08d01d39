package notion

// QARecord is the unit persisted to Notion: a finished question/answer
// exchange plus its Reddit provenance. Created is stamped inside
// SaveQA, never caller-supplied.
type QARecord struct {
	Question    string
	Answer      string
	SearchQuery string
	Sources     []string
}

// Wire shapes for the pages API. All knowledge of Notion property
// names and payload structure stays in this file.

type createPageRequest struct {
	Parent     parent              `json:"parent"`
	Properties map[string]property `json:"properties"`
}

type parent struct {
	DatabaseID string `json:"database_id"`
}

type property struct {
	Title    []richText `json:"title,omitempty"`
	RichText []richText `json:"rich_text,omitempty"`
	Date     *dateValue `json:"date,omitempty"`
}

type richText struct {
	Text textContent `json:"text"`
}

type textContent struct {
	Content string `json:"content"`
}

type dateValue struct {
	Start string `json:"start"`
}

type createPageResponse struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// Notion rejects rich-text segments over 2000 characters; longer
// content is split across segments.
const maxRichTextLen = 2000

func titleProp(s string) property {
	return property{Title: []richText{{Text: textContent{Content: s}}}}
}

func richTextProp(s string) property {
	segments := splitRichText(s)
	rts := make([]richText, len(segments))
	for i, seg := range segments {
		rts[i] = richText{Text: textContent{Content: seg}}
	}
	return property{RichText: rts}
}

func dateProp(start string) property {
	return property{Date: &dateValue{Start: start}}
}

// splitRichText chunks s into segments Notion accepts. An empty string
// yields one empty segment so the property is present, never omitted.
func splitRichText(s string) []string {
	if s == "" {
		return []string{""}
	}
	var segments []string
	runes := []rune(s)
	for len(runes) > 0 {
		n := len(runes)
		if n > maxRichTextLen {
			n = maxRichTextLen
		}
		segments = append(segments, string(runes[:n]))
		runes = runes[n:]
	}
	return segments
}
