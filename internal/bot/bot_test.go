package bot

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"keeperbot/internal/models"
	"keeperbot/internal/ratelimit"
	"keeperbot/internal/store"
)

const testChatID int64 = 42

type fakeAPI struct {
	mu       sync.Mutex
	sent     []tgbotapi.Chattable
	requests []tgbotapi.Chattable
}

func (f *fakeAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, c)
	return tgbotapi.Message{}, nil
}

func (f *fakeAPI) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, c)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeAPI) GetFileDirectURL(fileID string) (string, error) {
	return "https://files.example/" + fileID, nil
}

func (f *fakeAPI) GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	ch := make(chan tgbotapi.Update)
	close(ch)
	return ch
}

// texts returns the plain text of every sent message, in order.
func (f *fakeAPI) texts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, c := range f.sent {
		if m, ok := c.(tgbotapi.MessageConfig); ok {
			out = append(out, m.Text)
		}
	}
	return out
}

// lastKeyboard returns the inline keyboard of the most recent message
// that carried one.
func (f *fakeAPI) lastKeyboard() (tgbotapi.InlineKeyboardMarkup, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.sent) - 1; i >= 0; i-- {
		m, ok := f.sent[i].(tgbotapi.MessageConfig)
		if !ok {
			continue
		}
		if kb, ok := m.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup); ok {
			return kb, true
		}
	}
	return tgbotapi.InlineKeyboardMarkup{}, false
}

func (f *fakeAPI) containsText(substr string) bool {
	for _, t := range f.texts() {
		if strings.Contains(t, substr) {
			return true
		}
	}
	return false
}

type fakeLLM struct {
	mu            sync.Mutex
	classifyCalls int
	classifyOut   models.Classification
	classifyErr   error
	transcript    string
	description   string
	answer        string
}

func (f *fakeLLM) Classify(ctx context.Context, text string) (models.Classification, error) {
	f.mu.Lock()
	f.classifyCalls++
	f.mu.Unlock()
	return f.classifyOut, f.classifyErr
}

func (f *fakeLLM) Transcribe(ctx context.Context, fileURL string) (string, error) {
	return f.transcript, nil
}

func (f *fakeLLM) DescribeImage(ctx context.Context, imageURL string) (string, error) {
	return f.description, nil
}

func (f *fakeLLM) Ask(ctx context.Context, question string) (string, error) {
	return f.answer, nil
}

func (f *fakeLLM) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.classifyCalls
}

func newTestBot(t *testing.T) (*Bot, *fakeAPI, *fakeLLM, *store.MemoryStorage) {
	t.Helper()
	api := &fakeAPI{}
	lc := &fakeLLM{}
	st := store.NewMemoryStorage()
	b := newBot(api, testChatID, st, lc, ratelimit.New(100, time.Minute), zap.NewNop())
	b.now = func() time.Time { return time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC) }
	return b, api, lc, st
}

func textUpdate(chatID int64, text string) tgbotapi.Update {
	return tgbotapi.Update{
		Message: &tgbotapi.Message{
			Chat: &tgbotapi.Chat{ID: chatID},
			Text: text,
		},
	}
}

func TestUnauthorizedChatGetsSingleNotice(t *testing.T) {
	b, api, lc, st := newTestBot(t)

	b.route(textUpdate(999, "remember to buy milk"))

	texts := api.texts()
	if len(texts) != 1 || texts[0] != "Unauthorized." {
		t.Errorf("texts = %v, want single unauthorized notice", texts)
	}
	if lc.calls() != 0 {
		t.Errorf("classify calls = %d, want 0", lc.calls())
	}
	if len(st.AllEntries()) != 0 {
		t.Error("entries created for unauthorized chat")
	}
}

func TestEmptyUpdateIsNoOp(t *testing.T) {
	b, api, _, _ := newTestBot(t)

	b.route(tgbotapi.Update{})

	if len(api.texts()) != 0 {
		t.Errorf("texts = %v, want none", api.texts())
	}
}

func TestRateLimitedChatGetsNotice(t *testing.T) {
	api := &fakeAPI{}
	lc := &fakeLLM{classifyOut: models.Classification{Category: models.CategoryIdea, Confidence: 0.9}}
	st := store.NewMemoryStorage()
	b := newBot(api, testChatID, st, lc, ratelimit.New(1, time.Minute), zap.NewNop())

	b.route(textUpdate(testChatID, "first thought about gardens"))
	b.route(textUpdate(testChatID, "second thought about gardens"))

	if !api.containsText("Too many requests") {
		t.Errorf("texts = %v, want rate-limit notice", api.texts())
	}
	if lc.calls() != 1 {
		t.Errorf("classify calls = %d, want 1", lc.calls())
	}
}

func TestVoiceCaptureEndToEnd(t *testing.T) {
	b, api, lc, st := newTestBot(t)
	lc.transcript = "call the dentist tomorrow"
	lc.classifyOut = models.Classification{Category: models.CategoryAdmin, Confidence: 0.8}

	b.route(tgbotapi.Update{
		Message: &tgbotapi.Message{
			Chat:  &tgbotapi.Chat{ID: testChatID},
			Voice: &tgbotapi.Voice{FileID: "voice-1", Duration: 4},
		},
	})

	entries := st.AllEntries()
	if len(entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(entries))
	}
	if entries[0].Category != models.CategoryAdmin {
		t.Errorf("category = %s, want Admin", entries[0].Category)
	}

	if !api.containsText("Confidence: [") {
		t.Errorf("texts = %v, want a confidence bar", api.texts())
	}

	kb, ok := api.lastKeyboard()
	if !ok {
		t.Fatal("no inline keyboard sent")
	}
	seen := map[string]bool{}
	for _, row := range kb.InlineKeyboard {
		for _, btn := range row {
			if btn.CallbackData == nil {
				t.Fatal("button without callback data")
			}
			if !strings.HasPrefix(*btn.CallbackData, "recat:"+entries[0].ID+":") {
				t.Errorf("callback data = %q, want recat token for entry %s", *btn.CallbackData, entries[0].ID)
			}
			seen[*btn.CallbackData] = true
		}
	}
	if len(seen) != 4 {
		t.Errorf("distinct recat tokens = %d, want 4", len(seen))
	}
}

func TestPhotoWithShortCaptionUsesVision(t *testing.T) {
	b, _, lc, st := newTestBot(t)
	lc.description = "a whiteboard covered in sprint planning notes"

	b.route(tgbotapi.Update{
		Message: &tgbotapi.Message{
			Chat:    &tgbotapi.Chat{ID: testChatID},
			Caption: "ok",
			Photo:   []tgbotapi.PhotoSize{{FileID: "small"}, {FileID: "large"}},
		},
	})

	entries := st.AllEntries()
	if len(entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(entries))
	}
	if entries[0].Category != models.CategoryIdea {
		t.Errorf("category = %s, want Idea for described photos", entries[0].Category)
	}
	if lc.calls() != 0 {
		t.Errorf("classify calls = %d, want 0 for vision captures", lc.calls())
	}
}

func TestPhotoWithCaptionCapturesCaption(t *testing.T) {
	b, _, lc, st := newTestBot(t)
	lc.classifyOut = models.Classification{Category: models.CategoryProject, Confidence: 0.7}

	b.route(tgbotapi.Update{
		Message: &tgbotapi.Message{
			Chat:    &tgbotapi.Chat{ID: testChatID},
			Caption: "kitchen renovation moodboard",
			Photo:   []tgbotapi.PhotoSize{{FileID: "large"}},
		},
	})

	if lc.calls() != 1 {
		t.Fatalf("classify calls = %d, want 1", lc.calls())
	}
	entries := st.AllEntries()
	if len(entries) != 1 || entries[0].Category != models.CategoryProject {
		t.Errorf("entries = %+v, want one Project entry", entries)
	}
}

func TestURLMessageSavedAsNote(t *testing.T) {
	b, api, lc, st := newTestBot(t)

	b.route(tgbotapi.Update{
		Message: &tgbotapi.Message{
			Chat: &tgbotapi.Chat{ID: testChatID},
			Text: "https://example.com/post worth reading",
			Entities: []tgbotapi.MessageEntity{
				{Type: "url", Offset: 0, Length: 24},
			},
		},
	})

	entries := st.AllEntries()
	if len(entries) != 1 {
		t.Fatalf("entries = %d, want exactly 1", len(entries))
	}
	if entries[0].Category != models.CategoryNote {
		t.Errorf("category = %s, want Note", entries[0].Category)
	}
	if entries[0].Content["url"] != "https://example.com/post" {
		t.Errorf("url = %q, want extracted link", entries[0].Content["url"])
	}
	if lc.calls() != 0 {
		t.Errorf("classify calls = %d, want 0 for URL ingestion", lc.calls())
	}
	if !api.containsText("Saved link") {
		t.Errorf("texts = %v, want link confirmation", api.texts())
	}
}

func TestPlainTextFallsThroughToCapture(t *testing.T) {
	b, _, lc, st := newTestBot(t)
	lc.classifyOut = models.Classification{Category: models.CategoryPeople, Confidence: 0.6,
		Fields: map[string]string{"name": "Maria"}}

	b.route(textUpdate(testChatID, "met Maria at the conference"))

	if lc.calls() != 1 {
		t.Fatalf("classify calls = %d, want 1", lc.calls())
	}
	entries := st.AllEntries()
	if len(entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(entries))
	}
	if entries[0].Content["lastContact"] != "2026-02-10" {
		t.Errorf("lastContact = %q, want today", entries[0].Content["lastContact"])
	}
}
