package strategy

import (
	"fmt"
	"strings"

	"NewsPoster/internal/config"
	"NewsPoster/internal/domain"
)

// Keyword signals feeding the importance heuristic. Matches are
// case-insensitive substring checks over title+body.
var highImpactKeywords = []string{
	"breakthrough", "revolutionary", "game-changing", "paradigm shift",
	"first time", "unprecedented", "major announcement", "launch",
	"partnership", "acquisition", "funding", "ipo", "regulation",
}

var majorEntities = []string{
	"openai", "google", "microsoft", "anthropic", "deepmind",
	"ethereum", "bitcoin", "a16z", "sequoia", "y combinator",
}

// entityMentions maps a matched entity to the handle worth tagging.
var entityMentions = map[string]string{
	"openai":       "@OpenAI",
	"google":       "@Google",
	"microsoft":    "@Microsoft",
	"anthropic":    "@AnthropicAI",
	"deepmind":     "@GoogleDeepMind",
	"ethereum":     "@ethereum",
	"bitcoin":      "@Bitcoin",
	"a16z":         "@a16z",
	"y combinator": "@ycombinator",
}

// popularHashtags are mixed into the configured defaults, up to maxHashtags
// total, so anchor posts stay readable.
var popularHashtags = []string{"#Tech", "#Crypto", "#MachineLearning"}

const maxHashtags = 4

// Visual-hook signals deciding whether an image should accompany the post.
var visualHookKeywords = []string{
	"launch", "launches", "unveil", "unveils", "release", "releases",
	"debut", "product", "demo", "showcase", "prototype",
}

// Selector deterministically maps a candidate to a content plan. Selection
// is a pure function of (item, config): same input, same shape.
type Selector struct {
	cfg   config.StrategyConfig
	style config.StyleConfig
}

// NewSelector builds a selector from strategy and style configuration.
func NewSelector(cfg config.StrategyConfig, style config.StyleConfig) *Selector {
	return &Selector{cfg: cfg, style: style}
}

// Select chooses the content shape for the item and produces the ordered
// generation requests for that shape.
func (s *Selector) Select(item domain.CandidateItem) domain.ContentPlan {
	score := s.Score(item)

	shape := domain.Shape(s.cfg.ContentStrategy)
	if s.cfg.ContentStrategy == "auto" {
		shape = s.autoShape(score)
	}

	if shape == domain.ShapeThread && !s.cfg.EnableThreads {
		shape = domain.ShapeLong
	}
	if shape == domain.ShapeImage && !s.cfg.EnableImages {
		shape = domain.ShapeShort
	}

	var plan domain.ContentPlan
	switch shape {
	case domain.ShapeThread:
		plan = s.threadPlan(item, score)
	case domain.ShapeLong:
		plan = s.longPlan(item)
	case domain.ShapeImage:
		plan = s.shortPlan(item)
		plan.Shape = domain.ShapeImage
		plan.ImagePrompt = s.imagePrompt(item)
	default:
		plan = s.shortPlan(item)
	}

	// Images attach independently of the text shape when the item carries a
	// visual hook.
	if s.cfg.EnableImages && plan.ImagePrompt == "" && hasVisualHook(item) {
		plan.ImagePrompt = s.imagePrompt(item)
	}

	// Hashtags and the optional mention go on the anchor only.
	if len(plan.Requests) > 0 {
		plan.Requests[0].Hashtags = s.hashtags()
		plan.Requests[0].Mention = mentionFor(item)
	}

	return plan
}

// hashtags mixes popular tags into the configured defaults, deduplicated
// case-insensitively and capped at maxHashtags.
func (s *Selector) hashtags() []string {
	seen := make(map[string]struct{}, maxHashtags)
	tags := make([]string, 0, maxHashtags)

	add := func(tag string) {
		key := strings.ToLower(tag)
		if _, ok := seen[key]; ok || len(tags) >= maxHashtags {
			return
		}
		seen[key] = struct{}{}
		tags = append(tags, tag)
	}

	for _, t := range s.style.DefaultHashtags {
		add(t)
	}
	for _, t := range popularHashtags {
		add(t)
	}
	return tags
}

// mentionFor returns the handle of the first matched entity, scanning in a
// fixed order so selection stays deterministic.
func mentionFor(item domain.CandidateItem) string {
	haystack := strings.ToLower(item.Title + " " + item.BodyText)
	for _, entity := range majorEntities {
		if !strings.Contains(haystack, entity) {
			continue
		}
		if handle, ok := entityMentions[entity]; ok {
			return handle
		}
	}
	return ""
}

// Score computes the importance score in [0, 1]. A raw hint from the feed
// wins over the heuristics.
func (s *Selector) Score(item domain.CandidateItem) float64 {
	if item.RawScore != nil {
		return clampScore(*item.RawScore)
	}

	var score float64
	if len(strings.Fields(item.Title)) > 8 {
		score += 0.3
	}
	if len(strings.Fields(item.BodyText)) > 200 {
		score += 0.4
	}

	haystack := strings.ToLower(item.Title + " " + item.BodyText)
	for _, kw := range highImpactKeywords {
		if strings.Contains(haystack, kw) {
			score += 0.2
		}
	}
	for _, entity := range majorEntities {
		if strings.Contains(haystack, entity) {
			score += 0.1
		}
	}

	return clampScore(score)
}

func (s *Selector) autoShape(score float64) domain.Shape {
	switch {
	case score > s.cfg.ThreadThreshold && s.cfg.EnableThreads:
		return domain.ShapeThread
	case score > s.cfg.LongThreshold:
		return domain.ShapeLong
	default:
		return domain.ShapeShort
	}
}

func (s *Selector) shortPlan(item domain.CandidateItem) domain.ContentPlan {
	return domain.ContentPlan{
		Shape: domain.ShapeShort,
		Requests: []domain.GenerationRequest{
			s.request(domain.ShapeShort, s.cfg.ShortLimit(), shortContext(item)),
		},
	}
}

func (s *Selector) longPlan(item domain.CandidateItem) domain.ContentPlan {
	context := fmt.Sprintf(
		"Write a long-form post about the article below. Open with the key insight, list the main developments, close with why it matters and the link %s.\nTitle: %s\nContent: %s",
		item.URL, item.Title, excerpt(item.BodyText, 4000))

	return domain.ContentPlan{
		Shape: domain.ShapeLong,
		Requests: []domain.GenerationRequest{
			s.request(domain.ShapeLong, s.cfg.LongLimit(), context),
		},
	}
}

// threadPlan splits the narrative into ordered segments. The first segment
// anchors the thread; every later one is generated as a reply to its
// predecessor, so ordering here is a correctness requirement.
func (s *Selector) threadPlan(item domain.CandidateItem, score float64) domain.ContentPlan {
	body := excerpt(item.BodyText, 2500)

	urgency := "Important development worth diving into."
	if score > 0.8 {
		urgency = "This is big news that could reshape the industry."
	}

	contexts := []string{
		fmt.Sprintf("Open a thread about %q. Hook the reader in one post. Frame: %s\nContent: %s", item.Title, urgency, body),
		fmt.Sprintf("Continue the thread about %q with the key facts and what was announced.\nContent: %s", item.Title, body),
		fmt.Sprintf("Continue the thread about %q with the implications for the industry.\nContent: %s", item.Title, body),
		fmt.Sprintf("Close the thread about %q: why this matters. End with the link %s.", item.Title, item.URL),
	}

	if len(contexts) > s.cfg.ThreadMaxPosts {
		// Keep the anchor and the closer; trim the middle.
		trimmed := contexts[:s.cfg.ThreadMaxPosts-1]
		contexts = append(trimmed, contexts[len(contexts)-1])
	}

	requests := make([]domain.GenerationRequest, 0, len(contexts))
	for _, c := range contexts {
		requests = append(requests, s.request(domain.ShapeThread, s.cfg.ShortLimit(), c))
	}

	return domain.ContentPlan{Shape: domain.ShapeThread, Requests: requests}
}

func (s *Selector) imagePrompt(item domain.CandidateItem) string {
	return fmt.Sprintf(
		"Visual representation of: %s. Key elements: AI/Web3 technology, %s style, modern aesthetic.",
		item.Title, s.style.Tone)
}

func (s *Selector) request(shape domain.Shape, maxLen int, context string) domain.GenerationRequest {
	return domain.GenerationRequest{
		Shape:       shape,
		TextContext: context,
		MaxLength:   maxLen,
		Tone:        s.style.Tone,
		UseEmojis:   s.style.UseEmojis,
	}
}

func shortContext(item domain.CandidateItem) string {
	return fmt.Sprintf(
		"Write one post about the article below. End with the link %s.\nTitle: %s\nContent: %s",
		item.URL, item.Title, excerpt(item.BodyText, 1500))
}

func hasVisualHook(item domain.CandidateItem) bool {
	haystack := strings.ToLower(item.Title + " " + item.BodyText)
	for _, kw := range visualHookKeywords {
		if strings.Contains(haystack, kw) {
			return true
		}
	}
	return false
}

func clampScore(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func excerpt(text string, limit int) string {
	text = strings.Join(strings.Fields(text), " ")
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit])
}
