package bot

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"kalm/internal/catalog"
)

type fakeMessenger struct {
	mu        sync.Mutex
	texts     []sentText
	voices    []sentVoice
	actions   []string
	textErr   error
	voiceErr  error
	actionErr error
}

type sentText struct {
	chatID int64
	text   string
}

type sentVoice struct {
	chatID  int64
	audio   []byte
	caption string
}

func (m *fakeMessenger) SendMessage(ctx context.Context, chatID int64, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.textErr != nil {
		return m.textErr
	}
	m.texts = append(m.texts, sentText{chatID, text})
	return nil
}

func (m *fakeMessenger) SendVoice(ctx context.Context, chatID int64, audio []byte, caption string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.voiceErr != nil {
		return m.voiceErr
	}
	m.voices = append(m.voices, sentVoice{chatID, audio, caption})
	return nil
}

func (m *fakeMessenger) SendChatAction(ctx context.Context, chatID int64, action string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.actions = append(m.actions, action)
	return m.actionErr
}

type fakeSynth struct {
	mu       sync.Mutex
	texts    []string
	voiceIDs []string
	err      error
}

func (s *fakeSynth) Synthesize(ctx context.Context, text string) ([]byte, error) {
	return s.SynthesizeVoice(ctx, text, "")
}

func (s *fakeSynth) SynthesizeVoice(ctx context.Context, text, voiceID string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	s.texts = append(s.texts, text)
	s.voiceIDs = append(s.voiceIDs, voiceID)
	return []byte("audio:" + text[:min(8, len(text))]), nil
}

type fakeVoices struct {
	voiceID string
	err     error
}

func (v *fakeVoices) Get(userID string) (string, bool, error) {
	if v.err != nil {
		return "", false, v.err
	}
	return v.voiceID, v.voiceID != "", nil
}

func newTestProcessor(t *testing.T, tg *fakeMessenger, tts *fakeSynth, voices VoiceLookup) *Processor {
	t.Helper()
	return NewProcessor(tg, tts, catalog.MustLoad(), voices)
}

func TestProcess_KeywordToVoice(t *testing.T) {
	tg := &fakeMessenger{}
	tts := &fakeSynth{}
	p := newTestProcessor(t, tg, tts, nil)

	p.Process(context.Background(), 42, "I'm really craving alcohol tonight", "Sam")

	if len(tts.texts) != 1 {
		t.Fatalf("synthesize calls = %d, want 1", len(tts.texts))
	}
	// alcohol is declared before crav, so its response wins; personalized.
	if !strings.HasPrefix(tts.texts[0], "Hey Sam,") {
		t.Errorf("synthesized text should be the personalized alcohol response, got %q", tts.texts[0][:30])
	}
	if !strings.Contains(tts.texts[0], "sobriety") {
		t.Errorf("expected the alcohol response, got %q", tts.texts[0][:40])
	}

	if len(tg.voices) != 1 {
		t.Fatalf("voice sends = %d, want 1", len(tg.voices))
	}
	if tg.voices[0].chatID != 42 {
		t.Errorf("voice sent to chat %d, want 42", tg.voices[0].chatID)
	}
	if tg.voices[0].caption != "" {
		t.Errorf("caption = %q, want empty", tg.voices[0].caption)
	}
	if len(tg.texts) != 0 {
		t.Errorf("no text message should be sent on the happy path, got %d", len(tg.texts))
	}
	if len(tg.actions) != 1 || tg.actions[0] != "record_voice" {
		t.Errorf("actions = %v, want one record_voice", tg.actions)
	}
}

func TestProcess_StartCommand(t *testing.T) {
	tg := &fakeMessenger{}
	tts := &fakeSynth{}
	p := newTestProcessor(t, tg, tts, nil)

	p.Process(context.Background(), 42, "/start", "Sam")

	if len(tts.texts) != 0 {
		t.Error("/start must never trigger synthesis")
	}
	if len(tg.texts) != 1 {
		t.Fatalf("text sends = %d, want 1", len(tg.texts))
	}
	if !strings.Contains(tg.texts[0].text, "Welcome to Kalm") {
		t.Errorf("expected welcome text, got %q", tg.texts[0].text[:30])
	}
}

func TestProcess_StartCommandWithSuffix(t *testing.T) {
	tg := &fakeMessenger{}
	tts := &fakeSynth{}
	p := newTestProcessor(t, tg, tts, nil)

	// keyword content after /start must not matter
	p.Process(context.Background(), 42, "/start alcohol", "Sam")

	if len(tts.texts) != 0 {
		t.Error("text beginning with /start must never trigger synthesis")
	}
	if len(tg.texts) != 1 || !strings.Contains(tg.texts[0].text, "Welcome to Kalm") {
		t.Error("expected the welcome text")
	}
}

func TestProcess_SynthesisFailureFallsBackToText(t *testing.T) {
	tg := &fakeMessenger{}
	tts := &fakeSynth{err: errors.New("tts down")}
	p := newTestProcessor(t, tg, tts, nil)

	p.Process(context.Background(), 42, "struggling today", "Sam")

	if len(tg.voices) != 0 {
		t.Error("no voice note should be sent when synthesis fails")
	}
	if len(tg.texts) != 1 {
		t.Fatalf("text sends = %d, want 1 fallback", len(tg.texts))
	}
	if tg.texts[0].chatID != 42 {
		t.Errorf("fallback sent to chat %d, want 42", tg.texts[0].chatID)
	}
	if !strings.Contains(tg.texts[0].text, "Technical difficulties") {
		t.Errorf("fallback text = %q", tg.texts[0].text)
	}
}

func TestProcess_DeliveryFailureFallsBackToText(t *testing.T) {
	tg := &fakeMessenger{voiceErr: errors.New("telegram rejected the upload")}
	tts := &fakeSynth{}
	p := newTestProcessor(t, tg, tts, nil)

	p.Process(context.Background(), 42, "feeling stressed", "Sam")

	if len(tg.texts) != 1 || !strings.Contains(tg.texts[0].text, "Technical difficulties") {
		t.Error("expected the text fallback after a failed voice send")
	}
}

func TestProcess_FallbackFailureIsContained(t *testing.T) {
	tg := &fakeMessenger{voiceErr: errors.New("down"), textErr: errors.New("also down")}
	tts := &fakeSynth{}
	p := newTestProcessor(t, tg, tts, nil)

	// Everything fails; Process must still return without panicking.
	p.Process(context.Background(), 42, "help", "Sam")
}

func TestProcess_ChatActionFailureIgnored(t *testing.T) {
	tg := &fakeMessenger{actionErr: errors.New("flaky")}
	tts := &fakeSynth{}
	p := newTestProcessor(t, tg, tts, nil)

	p.Process(context.Background(), 42, "anxious tonight", "Sam")

	if len(tg.voices) != 1 {
		t.Error("a failed chat action must not stop the voice response")
	}
}

func TestProcess_ClonedVoicePreferred(t *testing.T) {
	tg := &fakeMessenger{}
	tts := &fakeSynth{}
	p := newTestProcessor(t, tg, tts, &fakeVoices{voiceID: "cloned-7"})

	p.Process(context.Background(), 42, "craving", "Sam")

	if len(tts.voiceIDs) != 1 || tts.voiceIDs[0] != "cloned-7" {
		t.Errorf("voice ids used = %v, want [cloned-7]", tts.voiceIDs)
	}
}

func TestProcess_VoiceLookupErrorFallsBackToDefaultVoice(t *testing.T) {
	tg := &fakeMessenger{}
	tts := &fakeSynth{}
	p := newTestProcessor(t, tg, tts, &fakeVoices{err: errors.New("disk gone")})

	p.Process(context.Background(), 42, "craving", "Sam")

	if len(tts.voiceIDs) != 1 || tts.voiceIDs[0] != "" {
		t.Errorf("expected default voice after lookup failure, got %v", tts.voiceIDs)
	}
	if len(tg.voices) != 1 {
		t.Error("the voice note should still be delivered")
	}
}

func TestSendSupport(t *testing.T) {
	tg := &fakeMessenger{}
	tts := &fakeSynth{}
	p := newTestProcessor(t, tg, tts, nil)

	if err := p.SendSupport(context.Background(), 42, "Alcohol", "Your Kalm support message"); err != nil {
		t.Fatalf("send support: %v", err)
	}
	if len(tg.voices) != 1 {
		t.Fatalf("voice sends = %d, want 1", len(tg.voices))
	}
	if tg.voices[0].caption != "Your Kalm support message" {
		t.Errorf("caption = %q", tg.voices[0].caption)
	}
	if len(tts.texts) != 1 || !strings.Contains(tts.texts[0], "sobriety") {
		t.Error("expected the alcohol response to be synthesized")
	}
}

func TestSendSupport_SynthesisErrorPropagates(t *testing.T) {
	tg := &fakeMessenger{}
	tts := &fakeSynth{err: errors.New("tts down")}
	p := newTestProcessor(t, tg, tts, nil)

	if err := p.SendSupport(context.Background(), 42, "alcohol", ""); err == nil {
		t.Fatal("expected the synthesis error to propagate")
	}
	if len(tg.texts) != 0 {
		t.Error("send-support must not fall back to text")
	}
}
