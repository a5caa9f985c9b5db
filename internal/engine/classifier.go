package engine

import (
	"strings"

	"github.com/rafaelcorporan/AI-Customer-support/internal/models"
)

// Category is one of the fixed support topics a message can be routed to.
type Category string

const (
	CategoryLogin     Category = "login"
	CategoryBilling   Category = "billing"
	CategoryTechnical Category = "technical"
	CategoryAccount   Category = "account"
	CategoryHelp      Category = "help"
	CategoryGratitude Category = "gratitude"
	// CategoryGeneral is the fallback when no keyword matches.
	CategoryGeneral Category = "general"
)

// rule pairs a keyword set with the category it routes to.
type rule struct {
	keywords []string
	category Category
}

// rules are evaluated in order and the first match wins, so a message
// mentioning both a billing and a technical keyword routes to billing. The
// ordering is part of the contract; tests pin it down.
var rules = []rule{
	{keywords: []string{"login", "password"}, category: CategoryLogin},
	{keywords: []string{"payment", "billing", "charge"}, category: CategoryBilling},
	{keywords: []string{"error", "bug", "broken", "not working"}, category: CategoryTechnical},
	{keywords: []string{"account", "settings", "profile"}, category: CategoryAccount},
	{keywords: []string{"help", "support"}, category: CategoryHelp},
	{keywords: []string{"thank"}, category: CategoryGratitude},
}

// Classify routes a conversation to a support category by inspecting the
// text of the most recent user message. Earlier turns do not participate in
// routing. An empty message list, or a last user message without text,
// routes to CategoryGeneral.
func Classify(messages []models.Message) Category {
	var text string
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == models.RoleUser {
			text = messages[i].Content
			break
		}
	}
	return ClassifyText(text)
}

// ClassifyText routes a single message text to a support category. Matching
// is a case-insensitive substring test, deterministic for any given input.
func ClassifyText(text string) Category {
	text = strings.ToLower(text)
	for _, r := range rules {
		for _, keyword := range r.keywords {
			if strings.Contains(text, keyword) {
				return r.category
			}
		}
	}
	return CategoryGeneral
}

// Categories lists every category in classifier priority order, the
// fallback last.
func Categories() []Category {
	cats := make([]Category, 0, len(rules)+1)
	for _, r := range rules {
		cats = append(cats, r.category)
	}
	return append(cats, CategoryGeneral)
}
