package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"storefront/internal/catalog"
	"storefront/internal/models"
)

var idListSchema = map[string]any{
	"type":  "ARRAY",
	"items": map[string]any{"type": "STRING"},
}

var verdictSchema = map[string]any{
	"type": "OBJECT",
	"properties": map[string]any{
		"summary": map[string]any{"type": "STRING"},
		"comparisonPoints": map[string]any{
			"type": "ARRAY",
			"items": map[string]any{
				"type": "OBJECT",
				"properties": map[string]any{
					"feature":  map[string]any{"type": "STRING"},
					"productA": map[string]any{"type": "STRING"},
					"productB": map[string]any{"type": "STRING"},
				},
				"required": []string{"feature", "productA", "productB"},
			},
		},
		"verdict": map[string]any{"type": "STRING"},
	},
	"required": []string{"summary", "comparisonPoints", "verdict"},
}

var addToCartTool = tool{FunctionDeclarations: []functionDeclaration{{
	Name:        "addToCart",
	Description: "Adds a product to the users shopping cart by its ID.",
	Parameters: map[string]any{
		"type": "OBJECT",
		"properties": map[string]any{
			"productId": map[string]any{
				"type":        "STRING",
				"description": "The unique ID of the product to add.",
			},
		},
		"required": []string{"productId"},
	},
}}}

func mustJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "[]"
	}
	return string(b)
}

// pick returns the products whose IDs appear in ids, in catalog order
func pick(products []models.Product, ids []string) []models.Product {
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	out := make([]models.Product, 0, len(ids))
	for _, p := range products {
		if want[p.ID] {
			out = append(out, p)
		}
	}
	return out
}

// SearchProducts asks the model for the products matching query. Without a
// usable answer it falls back to a plain substring search.
func (c *Client) SearchProducts(ctx context.Context, query string, products []models.Product) []models.Product {
	type entry struct {
		ID   string   `json:"id"`
		Name string   `json:"name"`
		Tags []string `json:"tags"`
		Desc string   `json:"desc"`
	}
	entries := make([]entry, len(products))
	for i, p := range products {
		entries[i] = entry{ID: p.ID, Name: p.Name, Tags: p.Tags, Desc: p.Description}
	}

	req := prompt(fmt.Sprintf("Search Query: %q\nProducts List: %s\n\nReturn ONLY a JSON array of product IDs that match the query.",
		query, mustJSON(entries))).expectJSON(idListSchema)

	ans, err := c.generate(ctx, "search", c.fastModel, req)
	if err == nil {
		if ids, ok := DecodeIDs(ans.Text); ok {
			return pick(products, ids)
		}
		err = fmt.Errorf("undecodable id list")
	}
	c.degraded("search", err)

	out := make([]models.Product, 0)
	for _, p := range products {
		if catalog.Matches(p, query, "") {
			out = append(out, p)
		}
	}
	return out
}

// SearchByImage identifies catalog products in a base64 JPEG. Defaults to no matches.
func (c *Client) SearchByImage(ctx context.Context, imageBase64 string, products []models.Product) []models.Product {
	type entry struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	entries := make([]entry, len(products))
	for i, p := range products {
		entries[i] = entry{ID: p.ID, Name: p.Name}
	}

	req := prompt(fmt.Sprintf("Identify items in this image. Catalog: %s\nReturn JSON array of matching product IDs.",
		mustJSON(entries)), imageBase64).expectJSON(idListSchema)

	ans, err := c.generate(ctx, "imageSearch", c.fastModel, req)
	if err == nil {
		if ids, ok := DecodeIDs(ans.Text); ok {
			return pick(products, ids)
		}
		err = fmt.Errorf("undecodable id list")
	}
	c.degraded("imageSearch", err)
	return []models.Product{}
}

// CompareProducts produces a side-by-side verdict for two products
func (c *Client) CompareProducts(ctx context.Context, a, b models.Product) ComparisonVerdict {
	req := prompt(fmt.Sprintf("Compare these two products:\nProduct A: %s\nProduct B: %s\n\n"+
		"Provide a side-by-side comparison in JSON format with summary, key points, and a final verdict on which is better for different user profiles.",
		mustJSON(a), mustJSON(b))).expectJSON(verdictSchema)

	ans, err := c.generate(ctx, "compare", c.proModel, req)
	if err == nil {
		if v, ok := DecodeVerdict(ans.Text); ok {
			return v
		}
		err = fmt.Errorf("undecodable verdict")
	}
	c.degraded("compare", err)
	return defaultVerdict(a.Name, b.Name)
}

// SuggestBundle proposes up to two products that pair with main
func (c *Client) SuggestBundle(ctx context.Context, main models.Product, products []models.Product) []models.Product {
	type entry struct {
		ID       string `json:"id"`
		Name     string `json:"name"`
		Category string `json:"category"`
	}
	entries := make([]entry, 0, len(products))
	for _, p := range products {
		entries = append(entries, entry{ID: p.ID, Name: p.Name, Category: p.Category})
	}

	req := prompt(fmt.Sprintf("Main Product: %s (%s)\nCatalog: %s\n\n"+
		"Suggest 2 products that would form a perfect \"bundle\" or \"outfit\" with the main product. Return a JSON array of product IDs.",
		main.Name, main.Category, mustJSON(entries))).expectJSON(idListSchema)

	ans, err := c.generate(ctx, "bundle", c.fastModel, req)
	if err == nil {
		if ids, ok := DecodeIDs(ans.Text); ok {
			out := make([]models.Product, 0, 2)
			for _, p := range pick(products, ids) {
				if p.ID != main.ID && len(out) < 2 {
					out = append(out, p)
				}
			}
			return out
		}
		err = fmt.Errorf("undecodable id list")
	}
	c.degraded("bundle", err)
	return []models.Product{}
}

// Consult continues a personal-shopper conversation: the reply either asks a
// follow-up question or recommends products
func (c *Client) Consult(ctx context.Context, history []ChatTurn, products []models.Product) ConsultReply {
	type entry struct {
		ID       string   `json:"id"`
		Name     string   `json:"name"`
		Category string   `json:"category"`
		Tags     []string `json:"tags"`
		Price    float64  `json:"price"`
	}
	entries := make([]entry, len(products))
	for i, p := range products {
		entries[i] = entry{ID: p.ID, Name: p.Name, Category: p.Category, Tags: p.Tags, Price: p.Price}
	}

	text := fmt.Sprintf(`You are an elite personal shopper at NovaMart.
Inventory: %s

Conversation History: %s

Goal: Ask questions to find the best product.
If you have enough information (usually after 2-3 questions), stop asking and provide recommendations.

Rules:
1. If you are still asking questions, return a JSON object: {"type": "question", "text": "your question here"}
2. If you are ready to recommend, return a JSON object: {"type": "recommendation", "reasoning": "summary of why these fit", "productIds": ["id1", "id2"]}`,
		mustJSON(entries), mustJSON(history))

	ans, err := c.generate(ctx, "consult", c.proModel, prompt(text).expectJSON(nil))
	if err == nil {
		if r, ok := DecodeConsultReply(ans.Text); ok {
			return r
		}
		err = fmt.Errorf("undecodable consult reply")
	}
	c.degraded("consult", err)
	return defaultConsult()
}

// SummarizeReviews condenses reviews into sentiment, pros and cons
func (c *Client) SummarizeReviews(ctx context.Context, productName string, reviews []models.Review) string {
	lines := make([]string, len(reviews))
	for i, r := range reviews {
		lines[i] = fmt.Sprintf("[Rating: %d/5] %s", r.Rating, r.Comment)
	}
	req := prompt(fmt.Sprintf("Product: %s\nReviews:\n%s\n\n"+
		"Summarize these reviews into: 1. Overall Sentiment, 2. Key Pros, 3. Key Cons. Use bullet points. Keep it concise.",
		productName, strings.Join(lines, "\n")))

	ans, err := c.generate(ctx, "summarize", c.fastModel, req)
	if err == nil && strings.TrimSpace(ans.Text) != "" {
		return ans.Text
	}
	if err == nil {
		err = ErrEmptyResponse
	}
	c.degraded("summarize", err)
	return DefaultSummary
}

// AnalyzeSpace describes how a product would fit the room in a base64 JPEG
func (c *Client) AnalyzeSpace(ctx context.Context, imageBase64, productName string) string {
	req := prompt(fmt.Sprintf("Analyze this room photo. How would the %q look in this space? Consider lighting, style, and placement. "+
		"Provide a professional, encouraging interior design perspective in 3-4 sentences.", productName), imageBase64)

	ans, err := c.generate(ctx, "analyzeSpace", c.proModel, req)
	if err == nil && strings.TrimSpace(ans.Text) != "" {
		return ans.Text
	}
	if err == nil {
		err = ErrEmptyResponse
	}
	c.degraded("analyzeSpace", err)
	return DefaultSpaceText
}

// ShoppingAdvice answers a free-form question. Products the model wants added to
// the cart come back as IDs in Advice.AddToCart; the caller decides whether to add them.
func (c *Client) ShoppingAdvice(ctx context.Context, query string, products []models.Product, cart []models.CartItem) Advice {
	type entry struct {
		ID    string  `json:"id"`
		Name  string  `json:"name"`
		Price float64 `json:"price"`
		Stock int     `json:"stock"`
	}
	entries := make([]entry, len(products))
	for i, p := range products {
		entries[i] = entry{ID: p.ID, Name: p.Name, Price: p.Price, Stock: p.Stock}
	}

	req := prompt(fmt.Sprintf("User Query: %s\n\nAvailable Products Context: %s\nUser Cart: %s\n\n"+
		"Act as a helpful shopping assistant for NovaMart. Suggest specific products from our inventory. "+
		"You can use the addToCart tool if a user explicitly asks to add a specific item.",
		query, mustJSON(entries), mustJSON(cart)))
	req.Tools = []tool{addToCartTool}

	ans, err := c.generate(ctx, "advice", c.proModel, req)
	if err != nil {
		c.degraded("advice", err)
		return Advice{Text: DefaultAdviceText}
	}

	advice := Advice{Text: ans.Text}
	for _, call := range ans.Calls {
		if call.Name != "addToCart" {
			continue
		}
		var args struct {
			ProductID string `json:"productId"`
		}
		if err := json.Unmarshal(call.Args, &args); err != nil || args.ProductID == "" {
			continue
		}
		advice.AddToCart = append(advice.AddToCart, args.ProductID)
	}
	return advice
}
