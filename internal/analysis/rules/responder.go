package rules

import (
	"fmt"
	"strings"
	"time"
)

// Canned replies used when no language model is available.
const (
	GreetingReply  = "Hello! How are you feeling today?"
	MedicineReply  = "Please remember to take your medicine 💊."
	MealReply      = "Let’s have a light meal 🍲."
	ComfortReply   = "I’m here for you 💙. Let’s take a deep breath together."
	CheerReply     = "That’s wonderful! Keep smiling 😊."
	IdentityReply  = "You’re safe at home. I’m your assistant here to help you."
	ListeningReply = "I’m listening carefully. How do you feel?"
)

const (
	clockLayout = "3:04:05 PM"
	dateLayout  = "1/2/2006"
)

type rule struct {
	keywords []string
	reply    func(now time.Time) string
}

func fixed(text string) func(time.Time) string {
	return func(time.Time) string { return text }
}

// Order is priority: the first rule with a matching keyword answers.
var defaultRules = []rule{
	{keywords: []string{"hello", "hi"}, reply: fixed(GreetingReply)},
	{keywords: []string{"medicine"}, reply: fixed(MedicineReply)},
	{keywords: []string{"food", "hungry"}, reply: fixed(MealReply)},
	{keywords: []string{"sad", "tired"}, reply: fixed(ComfortReply)},
	{keywords: []string{"happy"}, reply: fixed(CheerReply)},
	{keywords: []string{"who am i"}, reply: fixed(IdentityReply)},
	{keywords: []string{"time", "date"}, reply: clockReply},
}

func clockReply(now time.Time) string {
	return fmt.Sprintf("It’s %s on %s.", now.Format(clockLayout), now.Format(dateLayout))
}

// Responder maps patient text to a canned reply by ordered keyword matching.
type Responder struct {
	rules []rule
	now   func() time.Time
}

// Option configures a Responder.
type Option func(*Responder)

// WithClock overrides the clock used by the time/date rule.
func WithClock(now func() time.Time) Option {
	return func(r *Responder) {
		if now != nil {
			r.now = now
		}
	}
}

// NewResponder returns a Responder with the built-in rule table.
func NewResponder(opts ...Option) *Responder {
	r := &Responder{
		rules: defaultRules,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Reply never returns an empty string.
func (r *Responder) Reply(text string) string {
	normalized := strings.ToLower(text)
	for _, candidate := range r.rules {
		for _, keyword := range candidate.keywords {
			if strings.Contains(normalized, keyword) {
				return candidate.reply(r.now())
			}
		}
	}
	return ListeningReply
}

var defaultResponder = NewResponder()

// Reply answers text with the default rule table and the wall clock.
func Reply(text string) string {
	return defaultResponder.Reply(text)
}
