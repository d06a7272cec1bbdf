package bot

import (
	"context"
	"strings"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"keeperbot/internal/models"
)

func callbackUpdate(data string) tgbotapi.Update {
	return tgbotapi.Update{
		CallbackQuery: &tgbotapi.CallbackQuery{
			ID:      "cb-1",
			Data:    data,
			Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: testChatID}},
		},
	}
}

// ackCount counts answered callback queries.
func ackCount(api *fakeAPI) int {
	api.mu.Lock()
	defer api.mu.Unlock()
	n := 0
	for _, r := range api.requests {
		if _, ok := r.(tgbotapi.CallbackConfig); ok {
			n++
		}
	}
	return n
}

func TestDoneProjectGetsComplete(t *testing.T) {
	b, api, _, st := newTestBot(t)
	e, _ := st.CreateEntry(context.Background(), &models.Entry{
		Category: models.CategoryProject, Title: "garden shed"})

	b.route(callbackUpdate("done:" + e.ID))

	got, _ := st.GetEntry(context.Background(), e.ID)
	if got.Status != models.StatusComplete {
		t.Errorf("status = %s, want Complete for Project", got.Status)
	}
	if ackCount(api) != 1 {
		t.Errorf("callback acks = %d, want 1", ackCount(api))
	}
}

func TestDoneNonProjectGetsDone(t *testing.T) {
	b, _, _, st := newTestBot(t)
	for _, cat := range []models.Category{models.CategoryPeople, models.CategoryIdea, models.CategoryAdmin, models.CategoryNote} {
		e, _ := st.CreateEntry(context.Background(), &models.Entry{Category: cat, Title: "thing"})
		b.route(callbackUpdate("done:" + e.ID))
		got, _ := st.GetEntry(context.Background(), e.ID)
		if got.Status != models.StatusDone {
			t.Errorf("%s: status = %s, want Done", cat, got.Status)
		}
	}
}

func TestDoneMissingEntryIsTerminal(t *testing.T) {
	b, api, _, _ := newTestBot(t)

	b.route(callbackUpdate("done:no-such-entry"))

	if !api.containsText("not found") {
		t.Errorf("texts = %v, want not-found notice", api.texts())
	}
	if ackCount(api) != 1 {
		t.Errorf("callback acks = %d, want 1 (ack even when entry missing)", ackCount(api))
	}
}

func TestRecategorizeArchivesAndRecreates(t *testing.T) {
	b, _, _, st := newTestBot(t)
	ctx := context.Background()
	e, _ := st.CreateEntry(ctx, &models.Entry{
		Category: models.CategoryAdmin,
		Title:    "read about zettelkasten",
		Content:  map[string]string{"raw": "read about zettelkasten"},
	})

	b.route(callbackUpdate("recat:" + e.ID + ":Idea"))

	var archived, recreated int
	for _, entry := range st.AllEntries() {
		if entry.ID == e.ID {
			if !entry.Archived {
				t.Error("original entry not archived")
			}
			archived++
			continue
		}
		if entry.Category != models.CategoryIdea {
			t.Errorf("new category = %s, want Idea", entry.Category)
		}
		if entry.Title != e.Title {
			t.Errorf("new title = %q, want carried over %q", entry.Title, e.Title)
		}
		recreated++
	}
	if archived != 1 || recreated != 1 {
		t.Errorf("archived = %d, recreated = %d, want 1 and 1", archived, recreated)
	}
}

func TestSnoozePickOffersFourDurations(t *testing.T) {
	b, api, _, st := newTestBot(t)
	e, _ := st.CreateEntry(context.Background(), &models.Entry{
		Category: models.CategoryAdmin, Title: "renew passport"})

	b.route(callbackUpdate("snzp:" + e.ID))

	kb, ok := api.lastKeyboard()
	if !ok {
		t.Fatal("no keyboard sent")
	}
	var datas []string
	for _, row := range kb.InlineKeyboard {
		for _, btn := range row {
			datas = append(datas, *btn.CallbackData)
		}
	}
	want := []string{"snz:" + e.ID + ":1", "snz:" + e.ID + ":3", "snz:" + e.ID + ":7", "snz:" + e.ID + ":30"}
	if len(datas) != len(want) {
		t.Fatalf("buttons = %v, want %v", datas, want)
	}
	for i := range want {
		if datas[i] != want[i] {
			t.Errorf("button %d = %q, want %q", i, datas[i], want[i])
		}
	}
}

func TestSnoozeAppliesDueDate(t *testing.T) {
	b, api, _, st := newTestBot(t)
	e, _ := st.CreateEntry(context.Background(), &models.Entry{
		Category: models.CategoryAdmin, Title: "renew passport"})

	b.route(callbackUpdate("snz:" + e.ID + ":7"))

	got, _ := st.GetEntry(context.Background(), e.ID)
	if got.DueDate == nil || got.DueDate.Format("2006-01-02") != "2026-02-17" {
		t.Errorf("due = %v, want 2026-02-17", got.DueDate)
	}
	if !api.containsText("Tuesday") {
		t.Errorf("texts = %v, want weekday name in confirmation", api.texts())
	}
}

func TestEditPickOffersCategoryStatuses(t *testing.T) {
	b, api, _, st := newTestBot(t)
	e, _ := st.CreateEntry(context.Background(), &models.Entry{
		Category: models.CategoryProject, Title: "garden shed"})

	b.route(callbackUpdate("edtp:" + e.ID))

	kb, ok := api.lastKeyboard()
	if !ok {
		t.Fatal("no keyboard sent")
	}
	var datas []string
	for _, row := range kb.InlineKeyboard {
		for _, btn := range row {
			datas = append(datas, *btn.CallbackData)
		}
	}
	want := []string{"est:" + e.ID + ":Active", "est:" + e.ID + ":OnHold", "est:" + e.ID + ":Complete"}
	if len(datas) != len(want) {
		t.Fatalf("buttons = %v, want %v", datas, want)
	}
	for i := range want {
		if datas[i] != want[i] {
			t.Errorf("button %d = %q, want %q", i, datas[i], want[i])
		}
	}
}

func TestEditStatusApplies(t *testing.T) {
	b, _, _, st := newTestBot(t)
	e, _ := st.CreateEntry(context.Background(), &models.Entry{
		Category: models.CategoryProject, Title: "garden shed"})

	b.route(callbackUpdate("est:" + e.ID + ":OnHold"))

	got, _ := st.GetEntry(context.Background(), e.ID)
	if got.Status != models.StatusOnHold {
		t.Errorf("status = %s, want OnHold", got.Status)
	}
}

func TestEditStatusRejectsForeignValue(t *testing.T) {
	b, api, _, st := newTestBot(t)
	e, _ := st.CreateEntry(context.Background(), &models.Entry{
		Category: models.CategoryAdmin, Title: "renew passport"})

	// Complete is a Project status, not an Admin one.
	b.route(callbackUpdate("est:" + e.ID + ":Complete"))

	got, _ := st.GetEntry(context.Background(), e.ID)
	if got.Status == models.StatusComplete {
		t.Error("foreign status applied")
	}
	if !api.containsText("expired") {
		t.Errorf("texts = %v, want rejection notice", api.texts())
	}
}

func TestMalformedCallbackStillAcked(t *testing.T) {
	b, api, _, _ := newTestBot(t)

	b.route(callbackUpdate("garbage"))

	if ackCount(api) != 1 {
		t.Errorf("callback acks = %d, want 1", ackCount(api))
	}
}

func TestUnauthorizedCallbackOnlyAcked(t *testing.T) {
	b, api, _, st := newTestBot(t)
	e, _ := st.CreateEntry(context.Background(), &models.Entry{
		Category: models.CategoryAdmin, Title: "renew passport"})

	update := callbackUpdate("done:" + e.ID)
	update.CallbackQuery.Message.Chat.ID = 999
	b.route(update)

	got, _ := st.GetEntry(context.Background(), e.ID)
	if models.IsTerminal(got.Status) {
		t.Error("entry mutated by unauthorized callback")
	}
	if got := ackCount(api); got != 1 {
		t.Errorf("callback acks = %d, want 1 (unauthorized notice)", got)
	}
	if texts := api.texts(); len(texts) != 0 {
		t.Errorf("texts = %v, want no chat messages", texts)
	}
}

func TestConfidenceBarDeciles(t *testing.T) {
	cases := []struct {
		confidence float64
		filled     int
	}{
		{0, 0},
		{0.04, 0},
		{0.05, 1},
		{0.62, 6},
		{0.95, 10},
		{1, 10},
	}
	for _, c := range cases {
		bar := confidenceBar(c.confidence)
		if got := strings.Count(bar, "█"); got != c.filled {
			t.Errorf("confidenceBar(%v) filled = %d, want %d", c.confidence, got, c.filled)
		}
		if got := strings.Count(bar, "█") + strings.Count(bar, "░"); got != 10 {
			t.Errorf("confidenceBar(%v) width = %d, want 10", c.confidence, got)
		}
	}
}
