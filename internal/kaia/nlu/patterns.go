// Package nlu provides the rule-based natural-language understanding layer:
// an inspectable pattern library, the intent classifier scoring free text
// against it, and the entity extractor.
//
// The library is an explicit table (pattern → intent → weight) rather than
// logic embedded in control flow, so individual patterns can be unit-tested
// and extended without touching the classifier algorithm. A deployment can
// replace the built-in table with a YAML document validated against an
// embedded schema (see LoadLibrary).
package nlu

import (
	"fmt"
	"math/rand"
	"regexp"
	"strings"
)

// Intent is the classified purpose of an utterance.
type Intent string

const (
	IntentGreeting     Intent = "greeting"
	IntentFarewell     Intent = "farewell"
	IntentTime         Intent = "time"
	IntentWeather      Intent = "weather"
	IntentCalculation  Intent = "calculation"
	IntentJoke         Intent = "joke"
	IntentHelp         Intent = "help"
	IntentNews         Intent = "news"
	IntentMusic        Intent = "music"
	IntentSearch       Intent = "search"
	IntentReminder     Intent = "reminder"
	IntentCalendar     Intent = "calendar"
	IntentNotes        Intent = "notes"
	IntentTasks        Intent = "tasks"
	IntentPersonal     Intent = "personal"
	IntentConversation Intent = "conversation"

	// IntentUnknown is the synthetic terminal classification returned when no
	// intent clears the confidence threshold. It is not an error: callers must
	// handle it explicitly (the composer answers with the unknown-intent
	// canned response).
	IntentUnknown Intent = "unknown"
)

// intentPriority is the fixed tie-break order: when two intents score within
// epsilon of each other and have equally specific pattern sets, the intent
// appearing earlier here wins. Social intents come before question-style
// intents, which come before task intents.
var intentPriority = []Intent{
	IntentGreeting,
	IntentFarewell,
	IntentPersonal,
	IntentConversation,
	IntentSearch,
	IntentHelp,
	IntentTime,
	IntentWeather,
	IntentCalculation,
	IntentReminder,
	IntentCalendar,
	IntentNotes,
	IntentTasks,
	IntentJoke,
	IntentNews,
	IntentMusic,
}

// Pattern is one row of the intent table: a regular expression that votes for
// an intent with a given weight. Longer, more specific expressions carry more
// weight than short generic ones.
type Pattern struct {
	// ID identifies the pattern for traceability (reported in Match).
	ID string
	// Intent is the intent this pattern votes for.
	Intent Intent
	// Expr is the regular expression source, matched case-insensitively
	// against the whole utterance.
	Expr string
	// Weight is the pattern's contribution to the intent score, in (0, 1].
	Weight float64

	re *regexp.Regexp
}

// Library is the static table of intent patterns and canned responses.
// It is immutable after construction and safe for concurrent use.
type Library struct {
	patterns  []Pattern
	responses map[Intent][]string

	// triggers counts the alternation branches per intent; fewer branches
	// means a more specific pattern set, which wins epsilon ties.
	triggers map[Intent]int
	weights  map[Intent]float64
}

// NewLibrary compiles a library from an explicit pattern table and canned
// response map. Every intent referenced by a pattern must have at least one
// canned response, and IntentUnknown must always have one so the composer's
// terminal fallback can never come up empty.
func NewLibrary(patterns []Pattern, responses map[Intent][]string) (*Library, error) {
	if len(patterns) == 0 {
		return nil, fmt.Errorf("nlu: pattern table must not be empty")
	}
	if len(responses[IntentUnknown]) == 0 {
		return nil, fmt.Errorf("nlu: library must define a canned response for intent %q", IntentUnknown)
	}

	lib := &Library{
		patterns:  make([]Pattern, len(patterns)),
		responses: make(map[Intent][]string, len(responses)),
		triggers:  make(map[Intent]int),
		weights:   make(map[Intent]float64),
	}
	for intent, rs := range responses {
		cp := make([]string, len(rs))
		copy(cp, rs)
		lib.responses[intent] = cp
	}

	for i, p := range patterns {
		if p.Weight <= 0 || p.Weight > 1 {
			return nil, fmt.Errorf("nlu: pattern %q: weight %v outside (0, 1]", p.ID, p.Weight)
		}
		if p.ID == "" {
			p.ID = fmt.Sprintf("%s/%d", p.Intent, i)
		}
		re, err := regexp.Compile("(?i)" + p.Expr)
		if err != nil {
			return nil, fmt.Errorf("nlu: pattern %q: %w", p.ID, err)
		}
		p.re = re
		if len(lib.responses[p.Intent]) == 0 {
			return nil, fmt.Errorf("nlu: intent %q has patterns but no canned response", p.Intent)
		}
		lib.patterns[i] = p
		lib.triggers[p.Intent] += 1 + strings.Count(p.Expr, "|")
		lib.weights[p.Intent] += p.Weight
	}
	return lib, nil
}

// Patterns returns a copy of the pattern table, for inspection and testing.
func (l *Library) Patterns() []Pattern {
	cp := make([]Pattern, len(l.patterns))
	copy(cp, l.patterns)
	return cp
}

// CannedResponse returns a pre-authored response for the intent, falling back
// to the unknown-intent response when the intent has none. The variant is
// chosen at random; every variant is a complete, non-empty answer.
func (l *Library) CannedResponse(intent Intent) string {
	rs := l.responses[intent]
	if len(rs) == 0 {
		rs = l.responses[IntentUnknown]
	}
	if len(rs) == 1 {
		return rs[0]
	}
	return rs[rand.Intn(len(rs))]
}

// specificity returns the trigger-phrase count for an intent. Lower is more
// specific.
func (l *Library) specificity(intent Intent) int {
	return l.triggers[intent]
}

// DefaultLibrary returns the built-in pattern table covering the assistant's
// stock intents. Panics only on a programming error in the static table.
func DefaultLibrary() *Library {
	lib, err := NewLibrary(defaultPatterns, defaultResponses)
	if err != nil {
		panic(err)
	}
	return lib
}

// defaultPatterns is the built-in intent table. Weights reflect specificity:
// full phrases score higher than single keywords.
var defaultPatterns = []Pattern{
	// greeting
	{ID: "greeting.word", Intent: IntentGreeting, Expr: `\b(hi|hello|hey|greetings|good (morning|afternoon|evening))\b`, Weight: 0.7},
	{ID: "greeting.howareyou", Intent: IntentGreeting, Expr: `\b(how are you|how's it going|what's up|how do you do)\b`, Weight: 0.9},
	{ID: "greeting.meet", Intent: IntentGreeting, Expr: `\b(nice|pleasure) to meet you\b`, Weight: 0.9},

	// farewell
	{ID: "farewell.word", Intent: IntentFarewell, Expr: `\b(bye|goodbye|farewell|good night|see you|take care)\b`, Weight: 0.7},
	{ID: "farewell.later", Intent: IntentFarewell, Expr: `\b(until next time|see you later|talk to you later|have a good day)\b`, Weight: 0.9},

	// time
	{ID: "time.word", Intent: IntentTime, Expr: `\b(time|clock|hour|date|today's date)\b`, Weight: 0.5},
	{ID: "time.question", Intent: IntentTime, Expr: `\b(what time is it|what's the time|what day is (it|today)|current (time|date))\b`, Weight: 0.95},
	{ID: "time.calendar", Intent: IntentTime, Expr: `\b(day of (the )?week|weekday|what month|what year)\b`, Weight: 0.7},

	// weather
	{ID: "weather.word", Intent: IntentWeather, Expr: `\b(weather|temperature|forecast|humidity|rain|sunny|cloudy|snow|wind)\b`, Weight: 0.6},
	{ID: "weather.question", Intent: IntentWeather, Expr: `\b(what's the weather|how's the weather|is it (going to rain|raining|sunny|cold|hot)|weather (in|for|today|tomorrow))\b`, Weight: 0.95},

	// calculation
	{ID: "calc.verb", Intent: IntentCalculation, Expr: `\b(calculate|compute|solve|math|arithmetic)\b`, Weight: 0.8},
	{ID: "calc.op", Intent: IntentCalculation, Expr: `\b(plus|minus|times|divided by|multiplied by|sum of|square root)\b|(percent|%)\s*of\b`, Weight: 0.8},
	{ID: "calc.howmuch", Intent: IntentCalculation, Expr: `\b(what is|how much is)\b.*\d`, Weight: 0.7},
	{ID: "calc.expr", Intent: IntentCalculation, Expr: `\d+(\.\d+)?\s*[-+*/%]\s*\d`, Weight: 0.9},

	// joke
	{ID: "joke.word", Intent: IntentJoke, Expr: `\b(joke|funny|humor|make me laugh|something funny)\b`, Weight: 0.8},
	{ID: "joke.tell", Intent: IntentJoke, Expr: `\btell me a joke\b`, Weight: 0.95},

	// help
	{ID: "help.word", Intent: IntentHelp, Expr: `\b(help|assist|support|capabilities|features)\b`, Weight: 0.6},
	{ID: "help.whatcanyoudo", Intent: IntentHelp, Expr: `\bwhat can you do\b`, Weight: 0.95},

	// news
	{ID: "news.word", Intent: IntentNews, Expr: `\b(news|headlines|current events|top stories|breaking news)\b`, Weight: 0.7},
	{ID: "news.happening", Intent: IntentNews, Expr: `\bwhat's happening\b`, Weight: 0.8},

	// music
	{ID: "music.word", Intent: IntentMusic, Expr: `\b(music|song|playlist|album|artist)\b`, Weight: 0.6},
	{ID: "music.play", Intent: IntentMusic, Expr: `\bplay (some )?(music|a song|[a-z]+ music)\b`, Weight: 0.9},

	// search
	{ID: "search.verb", Intent: IntentSearch, Expr: `\b(search for|look up|find out|google)\b`, Weight: 0.8},
	{ID: "search.define", Intent: IntentSearch, Expr: `\b(define|explain|describe|tell me about|what is a|who is)\b`, Weight: 0.6},

	// reminder
	{ID: "reminder.word", Intent: IntentReminder, Expr: `\b(remind|reminder|set (an )?alarm|appointment|schedule)\b`, Weight: 0.8},
	{ID: "reminder.remindme", Intent: IntentReminder, Expr: `\bremind me to\b`, Weight: 0.95},

	// calendar
	{ID: "calendar.word", Intent: IntentCalendar, Expr: `\b(calendar|meeting|event|agenda)\b`, Weight: 0.6},
	{ID: "calendar.manage", Intent: IntentCalendar, Expr: `\b(add (an )?event|book a meeting|what's on my (calendar|agenda)|am i free)\b`, Weight: 0.9},

	// notes
	{ID: "notes.word", Intent: IntentNotes, Expr: `\b(note|memo|write (that|this|it) down)\b`, Weight: 0.6},
	{ID: "notes.manage", Intent: IntentNotes, Expr: `\b(take a note|create a note|list (my )?notes|save a memo)\b`, Weight: 0.9},

	// tasks
	{ID: "tasks.word", Intent: IntentTasks, Expr: `\b(task|todo|to-do|checklist)\b`, Weight: 0.6},
	{ID: "tasks.manage", Intent: IntentTasks, Expr: `\b(add a task|mark (it |that )?done|my (task|to-do) list|due date|deadline)\b`, Weight: 0.9},

	// personal
	{ID: "personal.whoareyou", Intent: IntentPersonal, Expr: `\b(who are you|what are you|your name|are you (real|human))\b`, Weight: 0.9},
	{ID: "personal.about", Intent: IntentPersonal, Expr: `\b(your (creator|purpose|favorite|age)|do you (dream|feel))\b`, Weight: 0.8},

	// conversation
	{ID: "conversation.chat", Intent: IntentConversation, Expr: `\b(let's (talk|chat)|tell me something|your opinion|what do you think)\b`, Weight: 0.8},
	{ID: "conversation.react", Intent: IntentConversation, Expr: `\b(interesting|fascinating|amazing|awesome|cool)\b`, Weight: 0.4},
}

// defaultResponses holds the canned answers per intent. Several variants per
// intent keep repeated fallbacks from sounding robotic; the composer picks
// one at random.
var defaultResponses = map[Intent][]string{
	IntentGreeting: {
		"Hello! I can help with the weather, the time, quick calculations, and plenty more. What would you like to do?",
		"Hi there! Ask me about the weather, the news, or anything you're curious about.",
		"Hey! Good to hear from you. How can I help?",
	},
	IntentFarewell: {
		"Goodbye! It was nice talking with you.",
		"See you later, come back any time.",
		"Take care! I'll be here when you need me.",
	},
	IntentTime: {
		"I can tell you the current time and date. Just ask \"what time is it?\".",
	},
	IntentWeather: {
		"I can check the weather for you. Which city are you interested in?",
		"Happy to look up the weather. Just tell me the location.",
	},
	IntentCalculation: {
		"I can do arithmetic for you. Try something like \"what is 15% of 200\" or \"12 * 7 + 3\".",
		"Give me a math expression (addition, subtraction, multiplication, division, or percentages) and I'll solve it.",
	},
	IntentJoke: {
		"Why don't scientists trust atoms? Because they make up everything!",
		"What do you call a fake noodle? An impasta!",
		"Why did the scarecrow win an award? Because he was outstanding in his field!",
		"Why don't eggs tell jokes? They'd crack each other up!",
	},
	IntentHelp: {
		"I can check the weather, tell the time, solve calculations, tell jokes, look things up, and chat about whatever's on your mind. Just ask!",
	},
	IntentNews: {
		"I can't fetch live headlines right now, but I'm happy to talk about any topic you're following.",
		"News lookups aren't connected at the moment. Ask me about anything else in the meantime.",
	},
	IntentMusic: {
		"I can't control playback from here, but I'm glad to chat about music. Favorite artists, genres, anything.",
	},
	IntentSearch: {
		"I can explain concepts and answer questions directly. What would you like to know about?",
		"Ask away, I'll do my best to explain it.",
	},
	IntentReminder: {
		"I can't set reminders in this session, but tell me what you need and I'll help you think it through.",
	},
	IntentCalendar: {
		"I don't have a calendar connected, but tell me what you're planning and I'll help you work out the details.",
	},
	IntentNotes: {
		"I can't save notes in this session, but I'm happy to help you word one. What should it say?",
	},
	IntentTasks: {
		"I don't have a task list connected, but I can help you break the work down. What needs doing?",
	},
	IntentPersonal: {
		"I'm Kaia, a conversational assistant. I help with everyday questions like weather, time, and math.",
		"I'm an assistant built to answer questions and chat. No body, no coffee breaks, always on.",
	},
	IntentConversation: {
		"That's really interesting, tell me more.",
		"I'd love to hear more about that. What got you thinking about it?",
		"That's a great point. What's your take on it?",
	},
	IntentUnknown: {
		"I'm not sure I understood that. Could you rephrase, or ask me about the weather, the time, or a calculation?",
		"I didn't quite catch that. Try asking in another way. I can help with weather, news, math, and more.",
		"I'm still learning. Could you put that differently?",
	},
}
