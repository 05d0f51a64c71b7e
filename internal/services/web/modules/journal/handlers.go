package journal

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	journaldomain "github.com/doosr/doosr/internal/services/journal/domain"
	"github.com/doosr/doosr/internal/services/web/platform/httpx"
	"github.com/doosr/doosr/internal/services/web/platform/modulehandler"
	"github.com/doosr/doosr/internal/services/web/routepath"
	webtemplates "github.com/doosr/doosr/internal/services/web/templates"
)

const dateLayout = "2006-01-02"

type handlers struct {
	modulehandler.Base
	service Service
	now     func() time.Time
}

type journalSummary struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Encrypted    bool      `json:"encrypted"`
	DescendantID string    `json:"descendant_id,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

type fragmentSummary struct {
	ID        string    `json:"id"`
	PromptID  string    `json:"prompt_id,omitempty"`
	Content   string    `json:"content,omitempty"`
	Encrypted bool      `json:"encrypted"`
	Locked    bool      `json:"locked"`
	CreatedAt time.Time `json:"created_at"`
}

type promptSummary struct {
	ID     string `json:"id"`
	Text   string `json:"text"`
	Active bool   `json:"active"`
}

type journalPayload struct {
	Journal   journalSummary    `json:"journal"`
	Fragments []fragmentSummary `json:"fragments"`
	Unlocked  bool              `json:"unlocked"`
}

type indexPayload struct {
	Journals          []journalSummary `json:"journals"`
	Prompts           []promptSummary  `json:"prompts"`
	EncryptionEnabled bool             `json:"encryption_enabled"`
	Unlocked          bool             `json:"unlocked"`
}

// mnemonicPayload carries a recovery phrase that is shown exactly once.
type mnemonicPayload struct {
	Mnemonic string `json:"mnemonic"`
}

func summarizeJournal(j journaldomain.Journal) journalSummary {
	return journalSummary{ID: j.ID, Title: j.Title, Encrypted: j.Encrypted, DescendantID: j.DescendantID, CreatedAt: j.CreatedAt}
}

func summarizePrompt(p journaldomain.Prompt) promptSummary {
	return promptSummary{ID: p.ID, Text: p.Text, Active: p.Active}
}

func (h handlers) handleIndex(w http.ResponseWriter, r *http.Request) {
	viewer := h.Viewer(r)
	ctx := r.Context()
	journals, err := h.service.ListJournals(ctx, viewer.UserID)
	if err != nil {
		h.WriteError(w, r, err)
		return
	}
	prompts, err := h.service.ListPrompts(ctx, viewer.UserID, false)
	if err != nil {
		h.WriteError(w, r, err)
		return
	}
	enabled, err := h.service.EncryptionEnabled(ctx, viewer.UserID)
	if err != nil {
		h.WriteError(w, r, err)
		return
	}
	view := indexView{
		Journals:          journals,
		Prompts:           prompts,
		EncryptionEnabled: enabled,
		Unlocked:          h.service.IsUnlocked(viewer.UserID, viewer.SessionID),
	}
	if httpx.WantsJSON(r) {
		payload := indexPayload{EncryptionEnabled: view.EncryptionEnabled, Unlocked: view.Unlocked}
		payload.Journals = make([]journalSummary, 0, len(journals))
		for _, j := range journals {
			payload.Journals = append(payload.Journals, summarizeJournal(j))
		}
		payload.Prompts = make([]promptSummary, 0, len(prompts))
		for _, p := range prompts {
			payload.Prompts = append(payload.Prompts, summarizePrompt(p))
		}
		h.WriteJSON(w, payload)
		return
	}
	loc := h.Printer(r)
	h.WritePage(w, r, webtemplates.T(loc, "web.journal.title"), indexPage(view, loc))
}

func (h handlers) handleCreate(w http.ResponseWriter, r *http.Request) {
	if !h.parse(w, r) {
		return
	}
	encrypted, _ := strconv.ParseBool(h.FormValue(r, "encrypted"))
	j, err := h.service.CreateJournal(r.Context(), h.Viewer(r).UserID, h.FormValue(r, "title"), encrypted, h.FormValue(r, "parent_id"))
	if err != nil {
		h.WriteError(w, r, err)
		return
	}
	if httpx.WantsJSON(r) {
		h.WriteJSON(w, summarizeJournal(j))
		return
	}
	h.Redirect(w, r, routepath.SafeNext(h.FormValue(r, "return_to"), routepath.Journal(j.ID)), "web.journal.created")
}

func (h handlers) handleJournal(w http.ResponseWriter, r *http.Request) {
	viewer := h.Viewer(r)
	ctx := r.Context()
	j, err := h.service.Journal(ctx, viewer.UserID, r.PathValue("id"))
	if err != nil {
		h.WriteError(w, r, err)
		return
	}
	fragments, err := h.service.Fragments(ctx, viewer.UserID, viewer.SessionID, j.ID)
	if err != nil {
		h.WriteError(w, r, err)
		return
	}
	unlocked := h.service.IsUnlocked(viewer.UserID, viewer.SessionID)
	if httpx.WantsJSON(r) {
		payload := journalPayload{Journal: summarizeJournal(j), Unlocked: unlocked, Fragments: make([]fragmentSummary, 0, len(fragments))}
		for _, f := range fragments {
			payload.Fragments = append(payload.Fragments, fragmentSummary{
				ID: f.ID, PromptID: f.PromptID, Content: f.Content, Encrypted: f.Encrypted, Locked: f.Locked, CreatedAt: f.CreatedAt,
			})
		}
		h.WriteJSON(w, payload)
		return
	}
	prompts, err := h.service.ListPrompts(ctx, viewer.UserID, true)
	if err != nil {
		h.WriteError(w, r, err)
		return
	}
	today := h.Today(r, h.now()).Format(dateLayout)
	todays, err := h.service.PromptForDate(ctx, viewer.UserID, today)
	if err != nil && !errors.Is(err, journaldomain.ErrNoPrompts) {
		h.WriteError(w, r, err)
		return
	}
	view := journalView{Journal: j, Fragments: fragments, Prompts: prompts, TodayPrompt: todays.ID, Unlocked: unlocked, Location: h.Location(r)}
	h.WritePage(w, r, j.Title, journalPage(view, h.Printer(r)))
}

func (h handlers) handleAddFragment(w http.ResponseWriter, r *http.Request) {
	if !h.parse(w, r) {
		return
	}
	viewer := h.Viewer(r)
	journalID := r.PathValue("id")
	fragment, err := h.service.AddFragment(r.Context(), viewer.UserID, viewer.SessionID, journalID, h.FormValue(r, "prompt_id"), r.PostFormValue("content"))
	if err != nil {
		h.WriteError(w, r, err)
		return
	}
	if httpx.WantsJSON(r) {
		h.WriteJSON(w, fragmentSummary{ID: fragment.ID, PromptID: fragment.PromptID, Content: fragment.Content, Encrypted: fragment.Encrypted, CreatedAt: fragment.CreatedAt})
		return
	}
	h.Redirect(w, r, routepath.Journal(journalID), "")
}

func (h handlers) handleCreatePrompt(w http.ResponseWriter, r *http.Request) {
	if !h.parse(w, r) {
		return
	}
	prompt, err := h.service.CreatePrompt(r.Context(), h.Viewer(r).UserID, h.FormValue(r, "text"))
	h.finishPrompt(w, r, prompt, err)
}

func (h handlers) handleTogglePrompt(w http.ResponseWriter, r *http.Request) {
	if !h.parse(w, r) {
		return
	}
	active, err := strconv.ParseBool(h.FormValue(r, "active"))
	if err != nil {
		h.WriteError(w, r, errInvalidParam)
		return
	}
	prompt, err := h.service.SetPromptActive(r.Context(), h.Viewer(r).UserID, r.PathValue("id"), active)
	h.finishPrompt(w, r, prompt, err)
}

func (h handlers) finishPrompt(w http.ResponseWriter, r *http.Request, prompt journaldomain.Prompt, err error) {
	if err != nil {
		h.WriteError(w, r, err)
		return
	}
	if httpx.WantsJSON(r) {
		h.WriteJSON(w, summarizePrompt(prompt))
		return
	}
	h.Redirect(w, r, routepath.JournalPrefix, "")
}

func (h handlers) handleSetup(w http.ResponseWriter, r *http.Request) {
	phrase, err := h.service.SetupEncryption(r.Context(), h.Viewer(r).UserID)
	h.showMnemonic(w, r, phrase, "web.journal.setup_title", err)
}

func (h handlers) handleRotate(w http.ResponseWriter, r *http.Request) {
	viewer := h.Viewer(r)
	phrase, err := h.service.RotateMnemonic(r.Context(), viewer.UserID, viewer.SessionID)
	h.showMnemonic(w, r, phrase, "web.journal.rotate_title", err)
}

// showMnemonic renders a freshly minted recovery phrase. The response is
// never cached.
func (h handlers) showMnemonic(w http.ResponseWriter, r *http.Request, phrase, titleKey string, err error) {
	if err != nil {
		h.WriteError(w, r, err)
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	if httpx.WantsJSON(r) {
		h.WriteJSON(w, mnemonicPayload{Mnemonic: phrase})
		return
	}
	loc := h.Printer(r)
	h.WritePage(w, r, webtemplates.T(loc, titleKey), mnemonicPage(phrase, titleKey, loc))
}

func (h handlers) handleUnlock(w http.ResponseWriter, r *http.Request) {
	if !h.parse(w, r) {
		return
	}
	viewer := h.Viewer(r)
	if err := h.service.Unlock(r.Context(), viewer.UserID, viewer.SessionID, r.PostFormValue("mnemonic")); err != nil {
		h.WriteError(w, r, err)
		return
	}
	h.finishLock(w, r, true, "web.journal.unlocked")
}

func (h handlers) handleLock(w http.ResponseWriter, r *http.Request) {
	h.service.Lock(h.Viewer(r).SessionID)
	h.finishLock(w, r, false, "web.journal.locked")
}

func (h handlers) finishLock(w http.ResponseWriter, r *http.Request, unlocked bool, noticeKey string) {
	if httpx.WantsJSON(r) {
		h.WriteJSON(w, map[string]bool{"unlocked": unlocked})
		return
	}
	h.Redirect(w, r, routepath.SafeNext(r.PostFormValue("return_to"), routepath.JournalPrefix), noticeKey)
}

func (h handlers) parse(w http.ResponseWriter, r *http.Request) bool {
	if err := h.ParseForm(w, r); err != nil {
		h.WriteError(w, r, err)
		return false
	}
	return true
}
