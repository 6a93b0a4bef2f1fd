// Package bot owns message intake and response dispatch: one processing task
// per inbound message, plus the long-poll loop that feeds them.
package bot

import (
	"context"
	"strconv"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"kalm/internal/catalog"
	"kalm/internal/observability"
)

const startCommand = "/start"

// Messenger is the outbound half of the Telegram client.
type Messenger interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
	SendVoice(ctx context.Context, chatID int64, audio []byte, caption string) error
	SendChatAction(ctx context.Context, chatID int64, action string) error
}

// Synthesizer renders text to speech.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
	SynthesizeVoice(ctx context.Context, text, voiceID string) ([]byte, error)
}

// VoiceLookup resolves a cloned voice for a user, when one exists.
type VoiceLookup interface {
	Get(userID string) (string, bool, error)
}

type Processor struct {
	tg      Messenger
	tts     Synthesizer
	catalog *catalog.Catalog
	voices  VoiceLookup // optional; nil disables cloned-voice lookup
	log     *observability.Logger
}

func NewProcessor(tg Messenger, tts Synthesizer, cat *catalog.Catalog, voices VoiceLookup) *Processor {
	return &Processor{
		tg:      tg,
		tts:     tts,
		catalog: cat,
		voices:  voices,
		log:     observability.Component("bot.processor"),
	}
}

// Process handles one inbound message end to end. Failures never escape: if
// synthesis or delivery breaks, the user gets the plain-text fallback instead
// of an error. Someone reaching out in a bad moment must never see the bot
// break.
func (p *Processor) Process(ctx context.Context, chatID int64, text, firstName string) {
	ctx, span := observability.StartSpan(ctx, "bot.process",
		attribute.Int64("chat_id", chatID),
	)
	defer span.End()

	if err := p.tg.SendChatAction(ctx, chatID, "record_voice"); err != nil {
		p.log.Debug(ctx, "chat action failed", observability.AttrErr(err))
	}

	if strings.HasPrefix(text, startCommand) {
		if err := p.tg.SendMessage(ctx, chatID, p.catalog.Welcome()); err != nil {
			p.log.Error(ctx, "welcome message failed", "chat_id", chatID, observability.AttrErr(err))
		}
		return
	}

	response := catalog.Personalize(p.catalog.Select(text), firstName)

	audio, err := p.synthesize(ctx, chatID, response)
	if err == nil {
		err = p.tg.SendVoice(ctx, chatID, audio, "")
	}
	if err != nil {
		p.log.Error(ctx, "voice response failed, sending text fallback",
			"chat_id", chatID, observability.AttrErr(err))
		if err := p.tg.SendMessage(ctx, chatID, p.catalog.Fallback()); err != nil {
			p.log.Error(ctx, "text fallback failed", "chat_id", chatID, observability.AttrErr(err))
		}
	}
}

// SendSupport synthesizes the catalog response for an addiction type and
// delivers it as a captioned voice note. Unlike Process, errors propagate so
// the HTTP caller can report them.
func (p *Processor) SendSupport(ctx context.Context, chatID int64, addictionType, caption string) error {
	ctx, span := observability.StartSpan(ctx, "bot.send_support",
		attribute.String("addiction_type", addictionType),
	)
	defer span.End()

	text := p.catalog.ByType(addictionType)
	audio, err := p.synthesize(ctx, chatID, text)
	if err != nil {
		return err
	}
	return p.tg.SendVoice(ctx, chatID, audio, caption)
}

// synthesize prefers the user's cloned voice when one is on file. Private
// chat IDs double as user IDs, which is the only chat type kalm serves.
func (p *Processor) synthesize(ctx context.Context, chatID int64, text string) ([]byte, error) {
	if p.voices != nil {
		voiceID, ok, err := p.voices.Get(strconv.FormatInt(chatID, 10))
		if err != nil {
			p.log.Warn(ctx, "voice store lookup failed", observability.AttrErr(err))
		} else if ok {
			return p.tts.SynthesizeVoice(ctx, text, voiceID)
		}
	}
	return p.tts.Synthesize(ctx, text)
}
