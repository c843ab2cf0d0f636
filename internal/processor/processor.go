// Package processor sequences one inbound DM through the full turn: rate
// gate, context load, classification, branch, delivery, and the append-only
// conversation log. It owns failure recovery: nothing inside a turn is
// allowed to crash the process or leak an error back to the transport.
package processor

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/nycscout/scout/internal/compose"
	"github.com/nycscout/scout/internal/config"
	"github.com/nycscout/scout/internal/database"
	"github.com/nycscout/scout/internal/gemini"
	"github.com/nycscout/scout/internal/intent"
	"github.com/nycscout/scout/internal/patterns"
	"github.com/nycscout/scout/internal/ratelimit"
	"github.com/nycscout/scout/internal/recommend"
)

// priorContextLimit bounds how many previous turns feed the classifier.
const priorContextLimit = 3

// Deliverer is the slice of the dispatcher the processor needs.
type Deliverer interface {
	Deliver(ctx context.Context, userKey string, messages []string) error
}

// Deps provides the collaborators for the message processor.
type Deps struct {
	Logger     *slog.Logger
	Store      database.Store
	AI         gemini.Client
	Limiter    *ratelimit.Limiter
	Engine     *recommend.Engine
	Composer   *compose.Composer
	Tracker    *patterns.Tracker
	Dispatcher Deliverer
	Messages   config.MessagesConfig
}

// Processor orchestrates one turn per inbound message.
type Processor struct {
	log        *slog.Logger
	store      database.Store
	ai         gemini.Client
	limiter    *ratelimit.Limiter
	engine     *recommend.Engine
	composer   *compose.Composer
	tracker    *patterns.Tracker
	dispatcher Deliverer
	messages   config.MessagesConfig
}

// New creates a message processor.
func New(deps Deps) *Processor {
	return &Processor{
		log:        deps.Logger.With("component", "processor"),
		store:      deps.Store,
		ai:         deps.AI,
		limiter:    deps.Limiter,
		engine:     deps.Engine,
		composer:   deps.Composer,
		tracker:    deps.Tracker,
		dispatcher: deps.Dispatcher,
		messages:   deps.Messages,
	}
}

// recommendedItem is what gets logged per recommended item.
type recommendedItem struct {
	Name string `json:"name"`
	Kind string `json:"type"`
}

// ProcessMessage runs one complete turn. It returns nothing: every failure
// after the rate-limit gate degrades to a single apology message and a logged
// error, never an error back to the transport.
func (p *Processor) ProcessMessage(ctx context.Context, userKey, text string) {
	defer func() {
		if r := recover(); r != nil {
			p.log.ErrorContext(ctx, "Panic while processing message", "user_key", userKey, "panic", r)
			p.sendBestEffort(ctx, userKey, p.messages.GeneralError)
		}
	}()

	gate, err := p.limiter.CheckAndConsume(ctx, userKey)
	if err != nil {
		// A gate persistence failure aborts the turn outright; allowing the
		// message through would make the limiter decorative.
		p.log.ErrorContext(ctx, "Rate limit check failed, aborting turn", "user_key", userKey, "error", err)
		return
	}
	if !gate.Allowed {
		// Expected, user-visible, and deliberately not logged as an error.
		// Denied turns write no conversation entry.
		p.sendBestEffort(ctx, userKey, p.messages.Throttled)
		return
	}

	if err := p.runTurn(ctx, userKey, text); err != nil {
		p.log.ErrorContext(ctx, "Turn failed", "user_key", userKey, "error", err)
		p.sendBestEffort(ctx, userKey, p.messages.GeneralError)
		p.logFailedTurn(ctx, userKey, text)
	}
}

// runTurn executes steps 2-7 of the turn for an admitted message.
func (p *Processor) runTurn(ctx context.Context, userKey, text string) error {
	prior, err := p.store.GetRecentConversations(ctx, userKey, priorContextLimit)
	if err != nil {
		return err
	}

	profile, err := p.tracker.GetProfile(ctx, userKey)
	if err != nil {
		return err
	}

	rec, err := p.ai.ParseIntent(ctx, text, prior)
	if err != nil {
		return err
	}
	p.log.InfoContext(ctx, "Classified intent", "user_key", userKey,
		"kind", rec.Kind, "action", rec.Action, "confidence", rec.Confidence)

	// Runs after classification so a changed preference suppresses the
	// contradicting historical signal.
	greeting := p.greetingFor(ctx, profile, rec)

	var (
		botReply     string
		recommended  []recommendedItem
		questionSent bool
	)

	switch {
	case rec.Action == intent.ActionRecommend && rec.Kind != intent.KindUnclear:
		items, err := p.queryItems(ctx, rec)
		if err != nil {
			return err
		}

		if len(items) == 0 {
			// A valid terminal state: nothing matched, say so calmly.
			messages := p.composer.NoResults()
			if err := p.dispatcher.Deliver(ctx, userKey, messages); err != nil {
				return err
			}
			botReply = strings.Join(messages, " | ")
			break
		}

		messages, err := p.composer.Compose(ctx, items, rec)
		if err != nil {
			return err
		}
		if greeting != "" {
			messages = append([]string{greeting}, messages...)
		}

		if err := p.dispatcher.Deliver(ctx, userKey, messages); err != nil {
			return err
		}
		botReply = strings.Join(messages, " | ")

		for i, item := range items {
			if i >= compose.MaxItemsPerTurn {
				break
			}
			recommended = append(recommended, recommendedItem{Name: item.Name, Kind: string(item.Kind)})
		}

		if err := p.tracker.RecordSuccess(ctx, userKey, rec); err != nil {
			return err
		}

	case rec.Action == intent.ActionClarify || rec.Action == intent.ActionDirect:
		question := rec.ClarifyingQuestion
		if question == "" {
			question = p.messages.FallbackQuestion
		}
		if err := p.dispatcher.Deliver(ctx, userKey, []string{question}); err != nil {
			return err
		}
		botReply = question
		questionSent = true

	default:
		if err := p.dispatcher.Deliver(ctx, userKey, []string{p.messages.Welcome}); err != nil {
			return err
		}
		botReply = p.messages.Welcome
	}

	return p.store.SaveConversation(ctx, p.buildEntry(userKey, text, rec, questionSent, recommended, botReply))
}

func (p *Processor) queryItems(ctx context.Context, rec intent.Record) ([]recommend.Item, error) {
	if rec.Kind == intent.KindEvent {
		return p.engine.QueryEvents(ctx, rec)
	}
	return p.engine.QueryPlaces(ctx, rec)
}

// greetingFor returns a personalized greeting line, or "" when the user has
// too little history or the greeting call fails. Greeting failures never fail
// a turn.
func (p *Processor) greetingFor(ctx context.Context, profile *database.UserProfile, rec intent.Record) string {
	gc := p.tracker.GreetingContext(profile, rec)
	if gc == nil {
		return ""
	}

	greeting, err := p.ai.GenerateGreeting(ctx, gc.TopBorough, gc.TopCuisine, gc.CurrentCuisine)
	if err != nil {
		p.log.WarnContext(ctx, "Greeting generation failed, skipping greeting", "error", err)
		return ""
	}
	return strings.TrimSpace(greeting)
}

func (p *Processor) buildEntry(userKey, text string, rec intent.Record, questionSent bool, recommended []recommendedItem, botReply string) *database.Conversation {
	intentJSON, err := json.Marshal(rec)
	if err != nil {
		intentJSON = []byte("{}")
	}
	if recommended == nil {
		recommended = []recommendedItem{}
	}
	recommendedJSON, err := json.Marshal(recommended)
	if err != nil {
		recommendedJSON = []byte("[]")
	}

	return &database.Conversation{
		UserKey:                userKey,
		RawMessage:             text,
		IntentJSON:             string(intentJSON),
		Confidence:             rec.Confidence,
		ClarifyingQuestionSent: questionSent,
		RecommendedJSON:        string(recommendedJSON),
		BotReply:               botReply,
	}
}

// logFailedTurn persists the conversation entry for a failed turn,
// best-effort. The entry carries the fallback intent and the apology that
// went out; a failure here is logged and swallowed.
func (p *Processor) logFailedTurn(ctx context.Context, userKey, text string) {
	entry := p.buildEntry(userKey, text, intent.Fallback(), false, nil, p.messages.GeneralError)
	if err := p.store.SaveConversation(ctx, entry); err != nil {
		p.log.WarnContext(ctx, "Failed to log conversation for failed turn", "user_key", userKey, "error", err)
	}
}

// sendBestEffort sends a single message and swallows any failure. Used for
// the throttling and apology paths, where a secondary send failure must not
// cascade.
func (p *Processor) sendBestEffort(ctx context.Context, userKey, message string) {
	if err := p.dispatcher.Deliver(ctx, userKey, []string{message}); err != nil {
		p.log.WarnContext(ctx, "Best-effort send failed", "user_key", userKey, "error", err)
	}
}
