package oracle

import (
	"encoding/json"
	"strings"
)

// ComparisonPoint is one row of a side-by-side comparison
type ComparisonPoint struct {
	Feature  string `json:"feature"`
	ProductA string `json:"productA"`
	ProductB string `json:"productB"`
}

// ComparisonVerdict is the model's comparison of two products
type ComparisonVerdict struct {
	Summary          string            `json:"summary"`
	ComparisonPoints []ComparisonPoint `json:"comparisonPoints"`
	Verdict          string            `json:"verdict"`
}

// ConsultKind tags a ConsultReply
type ConsultKind string

const (
	ConsultQuestion       ConsultKind = "question"
	ConsultRecommendation ConsultKind = "recommendation"
)

// ConsultReply is either a follow-up question (Text) or a recommendation
// (Reasoning and ProductIDs)
type ConsultReply struct {
	Kind       ConsultKind `json:"type"`
	Text       string      `json:"text,omitempty"`
	Reasoning  string      `json:"reasoning,omitempty"`
	ProductIDs []string    `json:"productIds,omitempty"`
}

// ChatTurn is one message of a consultation
type ChatTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Advice is a free-text answer plus the products the model asked to add to the cart
type Advice struct {
	Text      string
	AddToCart []string
}

// Canned replies used when the model cannot answer
const (
	DefaultConsultText = "I'm sorry, I'm having a bit of trouble thinking. What else can you tell me about what you need?"
	DefaultSummary     = "Review insights are unavailable right now. Browse the reviews below to see what shoppers think."
	DefaultSpaceText   = "We couldn't analyze your space right now. Please try again in a moment."
	DefaultAdviceText  = "Our shopping assistant is taking a short break. Try searching the catalog in the meantime."
)

func defaultConsult() ConsultReply {
	return ConsultReply{Kind: ConsultQuestion, Text: DefaultConsultText}
}

func defaultVerdict(nameA, nameB string) ComparisonVerdict {
	return ComparisonVerdict{
		Summary:          "A detailed comparison of " + nameA + " and " + nameB + " is unavailable right now.",
		ComparisonPoints: []ComparisonPoint{},
		Verdict:          "Compare the specifications and reviews of both products to decide.",
	}
}

// stripFences removes a markdown code fence the model sometimes wraps JSON in
func stripFences(text string) string {
	t := strings.TrimSpace(text)
	if !strings.HasPrefix(t, "```") {
		return t
	}
	t = strings.TrimPrefix(t, "```")
	if i := strings.IndexByte(t, '\n'); i >= 0 {
		t = t[i+1:]
	}
	t = strings.TrimSuffix(strings.TrimSpace(t), "```")
	return strings.TrimSpace(t)
}

// DecodeIDs parses a JSON array of product IDs
func DecodeIDs(text string) ([]string, bool) {
	var ids []string
	if err := json.Unmarshal([]byte(stripFences(text)), &ids); err != nil {
		return nil, false
	}
	return ids, true
}

// DecodeVerdict parses a comparison verdict; a verdict without summary or verdict text is rejected
func DecodeVerdict(text string) (ComparisonVerdict, bool) {
	var v ComparisonVerdict
	if err := json.Unmarshal([]byte(stripFences(text)), &v); err != nil {
		return ComparisonVerdict{}, false
	}
	if v.Summary == "" || v.Verdict == "" {
		return ComparisonVerdict{}, false
	}
	if v.ComparisonPoints == nil {
		v.ComparisonPoints = []ComparisonPoint{}
	}
	return v, true
}

// DecodeConsultReply parses a consultation reply of either kind
func DecodeConsultReply(text string) (ConsultReply, bool) {
	var r ConsultReply
	if err := json.Unmarshal([]byte(stripFences(text)), &r); err != nil {
		return ConsultReply{}, false
	}
	switch r.Kind {
	case ConsultQuestion:
		if r.Text == "" {
			return ConsultReply{}, false
		}
		r.Reasoning, r.ProductIDs = "", nil
	case ConsultRecommendation:
		if len(r.ProductIDs) == 0 {
			return ConsultReply{}, false
		}
		r.Text = ""
	default:
		return ConsultReply{}, false
	}
	return r, true
}
