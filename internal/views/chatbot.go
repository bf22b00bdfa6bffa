package views

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/shreya24m/IITBBSRHACKATHON-2026/internal/neows"
)

// Fixed chatbot responses.
const (
	PromptResponse       = "Please ask a question."
	InitializingResponse = "System initializing... please try again in a moment."
	RefusalResponse      = "ACCESS DENIED. Classified information."
	GreetingResponse     = "Greetings. I am AstroScan AI. Ask me about asteroid data."
	UnclearResponse      = "Query unclear. I can analyze: 'count', 'hazardous', 'closest', 'fastest', or specific asteroid names."
	EmptyScanResponse    = "No near-earth objects in the current scan."
)

// Intent names, also used as metric and audit labels.
const (
	IntentEmpty        = "empty"
	IntentInitializing = "initializing"
	IntentBlocked      = "blocked"
	IntentGreeting     = "greeting"
	IntentCount        = "count"
	IntentHazardous    = "hazardous"
	IntentClosest      = "closest"
	IntentFastest      = "fastest"
	IntentLookup       = "lookup"
	IntentUnclear      = "unclear"
)

// FeedSource supplies the payload the chatbot answers from.
// *feedcache.Cache[*neows.Snapshot] satisfies it.
type FeedSource interface {
	Get(ctx context.Context) (*neows.Snapshot, error)
	Peek() (*neows.Snapshot, time.Time, bool)
}

// Rule is one intent. Rules run in order and the first match answers.
// Rules with NeedsData false are evaluated before the payload is loaded.
type Rule struct {
	Name      string
	NeedsData bool
	Match     func(q string, objs []neows.CloseApproachObject) bool
	Respond   func(q string, objs []neows.CloseApproachObject) string
}

// Answer is the chatbot's reply and the rule that produced it.
type Answer struct {
	Intent   string
	Response string
}

// Chatbot dispatches queries over an ordered rule list.
type Chatbot struct {
	rules  []Rule
	logger *slog.Logger
}

// NewChatbot returns a chatbot with the default rule order.
func NewChatbot(logger *slog.Logger) *Chatbot {
	return &Chatbot{
		rules:  DefaultRules(),
		logger: logger.With("component", "chatbot"),
	}
}

// Rules returns the rule list in evaluation order.
func (c *Chatbot) Rules() []Rule {
	return c.rules
}

// DefaultRules is the priority order the dashboard expects.
func DefaultRules() []Rule {
	return []Rule{
		{
			Name:    IntentBlocked,
			Match:   containsAny("limit", "secret", "password"),
			Respond: fixed(RefusalResponse),
		},
		{
			Name:    IntentGreeting,
			Match:   containsAny("hello", "hi "),
			Respond: fixed(GreetingResponse),
		},
		{
			Name:      IntentCount,
			NeedsData: true,
			Match:     containsAny("how many", "count"),
			Respond:   respondCount,
		},
		{
			Name:      IntentHazardous,
			NeedsData: true,
			Match:     containsAny("hazardous", "danger"),
			Respond:   respondHazardous,
		},
		{
			Name:      IntentClosest,
			NeedsData: true,
			Match:     containsAny("closest", "nearest"),
			Respond:   respondClosest,
		},
		{
			Name:      IntentFastest,
			NeedsData: true,
			Match:     containsAny("fastest"),
			Respond:   respondFastest,
		},
		{
			Name:      IntentLookup,
			NeedsData: true,
			Match: func(q string, objs []neows.CloseApproachObject) bool {
				_, ok := lookup(q, objs)
				return ok
			},
			Respond: respondLookup,
		},
		{
			Name:      IntentUnclear,
			NeedsData: true,
			Match:     func(string, []neows.CloseApproachObject) bool { return true },
			Respond:   fixed(UnclearResponse),
		},
	}
}

// Answer evaluates query against the rules. The payload is loaded from src
// only once a data rule is reached. If the load fails, a previously held
// payload is used; with none held the reply is InitializingResponse.
func (c *Chatbot) Answer(ctx context.Context, query string, src FeedSource) Answer {
	q := strings.ToLower(query)
	if strings.TrimSpace(q) == "" {
		return Answer{Intent: IntentEmpty, Response: PromptResponse}
	}

	var (
		objs   []neows.CloseApproachObject
		loaded bool
	)
	for _, rule := range c.rules {
		if rule.NeedsData && !loaded {
			feed, ok := c.currentFeed(ctx, src)
			if !ok {
				return Answer{Intent: IntentInitializing, Response: InitializingResponse}
			}
			objs = feed.Objects()
			loaded = true
		}
		if rule.Match(q, objs) {
			return Answer{Intent: rule.Name, Response: rule.Respond(q, objs)}
		}
	}
	return Answer{Intent: IntentUnclear, Response: UnclearResponse}
}

func (c *Chatbot) currentFeed(ctx context.Context, src FeedSource) (*neows.Feed, bool) {
	snap, err := src.Get(ctx)
	if err == nil && snap != nil {
		return snap.Feed, true
	}
	if held, fetchedAt, ok := src.Peek(); ok && held != nil {
		c.logger.Warn("answering from stale feed", "error", err, "fetched_at", fetchedAt)
		return held.Feed, true
	}
	c.logger.Warn("no feed available for chat", "error", err)
	return nil, false
}

func containsAny(words ...string) func(string, []neows.CloseApproachObject) bool {
	return func(q string, _ []neows.CloseApproachObject) bool {
		for _, w := range words {
			if strings.Contains(q, w) {
				return true
			}
		}
		return false
	}
}

func fixed(s string) func(string, []neows.CloseApproachObject) string {
	return func(string, []neows.CloseApproachObject) string { return s }
}

func respondCount(_ string, objs []neows.CloseApproachObject) string {
	return fmt.Sprintf("Current scan detects %d near-earth objects in this sector.", len(objs))
}

func respondHazardous(_ string, objs []neows.CloseApproachObject) string {
	var names []string
	count := 0
	for _, o := range objs {
		if !o.IsPotentiallyHazardous {
			continue
		}
		count++
		if len(names) < 3 {
			names = append(names, o.Name)
		}
	}
	notable := strings.Join(names, ", ")
	if notable == "" {
		notable = "None"
	}
	return fmt.Sprintf("WARNING: %d hazardous objects detected. Notable: %s...", count, notable)
}

// respondClosest picks the minimum representative distance. Strict comparison
// keeps the first of equal distances, the same result a stable sort gives.
func respondClosest(_ string, objs []neows.CloseApproachObject) string {
	best, bestDist, found := -1, 0.0, false
	for i, o := range objs {
		d, ok := o.MissDistanceKM()
		if !ok {
			continue
		}
		if !found || d < bestDist {
			best, bestDist, found = i, d, true
		}
	}
	if !found {
		return EmptyScanResponse
	}
	return fmt.Sprintf("Closest object is %s at %d km.", objs[best].Name, truncate(bestDist))
}

func respondFastest(_ string, objs []neows.CloseApproachObject) string {
	best, bestSpeed, found := -1, 0.0, false
	for i, o := range objs {
		v, ok := o.VelocityKMH()
		if !ok {
			continue
		}
		if !found || v > bestSpeed {
			best, bestSpeed, found = i, v, true
		}
	}
	if !found {
		return EmptyScanResponse
	}
	return fmt.Sprintf("Fastest object is %s traveling at %d km/h.", objs[best].Name, truncate(bestSpeed))
}

func respondLookup(q string, objs []neows.CloseApproachObject) string {
	o, _ := lookup(q, objs)
	status := "safe"
	if o.IsPotentiallyHazardous {
		status = "HAZARDOUS"
	}
	dist := "unknown"
	if d, ok := o.MissDistanceKM(); ok {
		dist = fmt.Sprintf("%d km", truncate(d))
	}
	return fmt.Sprintf("Object %s: Status %s. Distance: %s.", o.Name, status, dist)
}

var parenStripper = strings.NewReplacer("(", "", ")", "")

// lookup finds the first object whose lower-cased name, minus parentheses,
// appears in q.
func lookup(q string, objs []neows.CloseApproachObject) (neows.CloseApproachObject, bool) {
	for _, o := range objs {
		key := parenStripper.Replace(strings.ToLower(o.Name))
		if key == "" {
			continue
		}
		if strings.Contains(q, key) {
			return o, true
		}
	}
	return neows.CloseApproachObject{}, false
}

func truncate(v float64) int64 {
	return int64(math.Trunc(v))
}
