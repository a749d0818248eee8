package llm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/Jasminestrone/MiataMaestro/pkg/models"
)

// Sampling settings for each task.
var (
	EvaluateOptions = GenerateOptions{Temperature: 0.7, TopP: 0.9, MaxTokens: 200}
	MessageOptions  = GenerateOptions{Temperature: 0.8, TopP: 0.9, MaxTokens: 300}
)

// Evaluation is the model's assessment of a listing.
type Evaluation struct {
	Text         string `json:"evaluation"`
	LowballPrice *int   `json:"lowball_price,omitempty"`
}

// Evaluate asks the model for pros, concerns, a fair price and a lowball
// offer for the listing.
func (c *Client) Evaluate(ctx context.Context, listing models.Listing) (*Evaluation, error) {
	slog.Debug("Evaluating listing", "id", listing.ID, "title", listing.Title)

	text, err := c.Generate(ctx, EvaluationPrompt(listing), EvaluateOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to evaluate listing %s: %w", listing.ID, err)
	}

	eval := &Evaluation{Text: text}
	if price, ok := ParseLowball(text); ok {
		eval.LowballPrice = &price
	}
	return eval, nil
}

// LowballMessage drafts a casual offer message for the seller.
func (c *Client) LowballMessage(ctx context.Context, listing models.Listing) (string, error) {
	text, err := c.Generate(ctx, MessagePrompt(listing), MessageOptions)
	if err != nil {
		return "", fmt.Errorf("failed to generate lowball message for %s: %w", listing.ID, err)
	}
	return text, nil
}

// EvaluationPrompt builds the evaluation prompt for a listing.
func EvaluationPrompt(l models.Listing) string {
	return fmt.Sprintf(`You are an expert Mazda Miata evaluator. Analyze this NA Miata listing and provide ONLY the following format:

%s
Respond in exactly this format. Use HTML formatting, never markdown, and do not use asterisks. This is a marketplace listing so some details like the address will not be specific:

<strong>Pros:</strong>
• [List positive aspects]

<strong>Concerns:</strong>
• [List potential issues or red flags]

<strong>Accurate Price:</strong> $[your estimated fair market value]

<strong>Lowball:</strong> $[reasonable lowball offer amount]

Keep each section brief and factual.`, listingData(l))
}

// MessagePrompt builds the lowball message prompt for a listing.
func MessagePrompt(l models.Listing) string {
	suggested, offer := "Not available", "a lower price"
	if l.LowballPrice != nil {
		suggested = humanize.Comma(int64(*l.LowballPrice))
		offer = suggested
	}

	return fmt.Sprintf(`You are a casual car buyer on Facebook Marketplace. Write a super casual, natural message like you're texting a friend.

%s- Suggested Lowball Price: $%s

Write a casual message (like 2-3 sentences max) that:
- Sounds like a real person, not AI
- Mentions a few specific issues with the car
- Offers $%s
- Uses casual language, emojis, abbreviations
- No fancy formatting, just natural text

Make it sound like you're actually texting someone on Facebook. Keep it super casual and real. Don't open with "hey seller", just say hey.`, listingData(l), suggested, offer)
}

func listingData(l models.Listing) string {
	title := l.Title
	if title == "" {
		title = "Unknown"
	}
	desc := l.Description
	if desc == "" {
		desc = "No description provided"
	}
	transmission := string(l.Transmission)
	if transmission == "" {
		transmission = string(models.TransmissionUnknown)
	}

	var b strings.Builder
	b.WriteString("LISTING DATA:\n")
	fmt.Fprintf(&b, "- Title: %s\n", title)
	fmt.Fprintf(&b, "- Year: %s\n", optional(l.Year, false))
	fmt.Fprintf(&b, "- Price: %s\n", optional(l.Price, true))
	fmt.Fprintf(&b, "- Mileage: %s miles\n", optional(l.Mileage, true))
	fmt.Fprintf(&b, "- Transmission: %s\n", transmission)
	fmt.Fprintf(&b, "- Description: %s\n", desc)
	return b.String()
}

func optional(v *int, grouped bool) string {
	switch {
	case v == nil:
		return "Unknown"
	case grouped:
		return humanize.Comma(int64(*v))
	default:
		return fmt.Sprint(*v)
	}
}
