package journal

import (
	"strconv"
	"time"

	"github.com/a-h/templ"
	journaldomain "github.com/doosr/doosr/internal/services/journal/domain"
	"github.com/doosr/doosr/internal/services/web/routepath"
	ui "github.com/doosr/doosr/internal/services/web/templates"
)

type indexView struct {
	Journals          []journaldomain.Journal
	Prompts           []journaldomain.Prompt
	EncryptionEnabled bool
	Unlocked          bool
}

type journalView struct {
	Journal     journaldomain.Journal
	Fragments   []journaldomain.Fragment
	Prompts     []journaldomain.Prompt
	TodayPrompt string
	Unlocked    bool
	Location    *time.Location
}

func indexPage(view indexView, loc ui.Localizer) templ.Component {
	journals := make([]templ.Component, 0, len(view.Journals))
	for _, j := range view.Journals {
		journals = append(journals, ui.El("li", ui.A("data-journal", j.ID),
			ui.Link(routepath.Journal(j.ID), j.Title),
			ui.If(j.Encrypted, ui.El("span", ui.A("class", "badge"), ui.Text(ui.T(loc, "web.journal.encrypted")))),
		))
	}
	var listing templ.Component = ui.El("ul", ui.A("class", "journals"), journals...)
	if len(view.Journals) == 0 {
		listing = ui.El("p", ui.A("class", "empty"), ui.Text(ui.T(loc, "web.journal.empty")))
	}
	return ui.El("section", ui.A("class", "journal-index"),
		ui.El("h1", nil, ui.Text(ui.T(loc, "web.journal.title"))),
		listing,
		ui.El("h2", nil, ui.Text(ui.T(loc, "web.journal.new"))),
		ui.Form(routepath.JournalCreate,
			ui.Field(ui.T(loc, "web.tree.title"), "text", "title", "", ui.A("required", "required")...),
			ui.If(view.EncryptionEnabled, ui.El("p", ui.A("class", "field"),
				ui.El("label", nil,
					ui.El("input", ui.A("type", "checkbox", "name", "encrypted", "value", "true")),
					ui.Text(" "+ui.T(loc, "web.journal.encrypted")),
				),
			)),
			ui.Submit(ui.T(loc, "web.journal.create")),
		),
		encryptionPanel(view, loc),
		promptsPanel(view.Prompts, loc),
	)
}

func encryptionPanel(view indexView, loc ui.Localizer) templ.Component {
	var body templ.Component
	switch {
	case !view.EncryptionEnabled:
		body = ui.Group(
			ui.El("p", nil, ui.Text(ui.T(loc, "web.journal.setup_hint"))),
			ui.ActionButton(routepath.JournalSetup, ui.T(loc, "web.journal.setup")),
		)
	case view.Unlocked:
		body = ui.Group(
			ui.El("p", ui.A("data-lock", "unlocked"), ui.Text(ui.T(loc, "web.journal.status_unlocked"))),
			ui.ActionButton(routepath.JournalLock, ui.T(loc, "web.journal.lock")),
			ui.ActionButton(routepath.JournalRotate, ui.T(loc, "web.journal.rotate")),
		)
	default:
		body = ui.Group(
			ui.El("p", ui.A("data-lock", "locked"), ui.Text(ui.T(loc, "web.journal.status_locked"))),
			unlockForm(routepath.JournalPrefix, loc),
		)
	}
	return ui.El("section", ui.A("class", "encryption"),
		ui.El("h2", nil, ui.Text(ui.T(loc, "web.journal.encryption"))),
		body,
	)
}

func unlockForm(returnTo string, loc ui.Localizer) templ.Component {
	return ui.Form(routepath.JournalUnlock,
		ui.Hidden("return_to", returnTo),
		ui.TextArea(ui.T(loc, "web.journal.mnemonic"), "mnemonic", ""),
		ui.Submit(ui.T(loc, "web.journal.unlock")),
	)
}

func promptsPanel(prompts []journaldomain.Prompt, loc ui.Localizer) templ.Component {
	rows := make([]templ.Component, 0, len(prompts))
	for _, p := range prompts {
		label := "web.journal.deactivate"
		if !p.Active {
			label = "web.journal.activate"
		}
		rows = append(rows, ui.El("li", ui.A("data-prompt", p.ID, "data-active", strconv.FormatBool(p.Active)),
			ui.Text(p.Text+" "),
			ui.ActionButton(routepath.JournalPromptToggle(p.ID), ui.T(loc, label), "active", strconv.FormatBool(!p.Active)),
		))
	}
	return ui.El("section", ui.A("class", "prompts"),
		ui.El("h2", nil, ui.Text(ui.T(loc, "web.journal.prompts"))),
		ui.El("ul", nil, rows...),
		ui.Form(routepath.JournalPrompts,
			ui.Field(ui.T(loc, "web.journal.prompt_text"), "text", "text", "", ui.A("required", "required")...),
			ui.Submit(ui.T(loc, "web.tree.add")),
		),
	)
}

func journalPage(view journalView, loc ui.Localizer) templ.Component {
	prompts := make(map[string]string, len(view.Prompts))
	options := [][2]string{{"", ui.T(loc, "web.journal.no_prompt")}}
	for _, p := range view.Prompts {
		prompts[p.ID] = p.Text
		options = append(options, [2]string{p.ID, p.Text})
	}
	entries := make([]templ.Component, 0, len(view.Fragments))
	for _, f := range view.Fragments {
		var content templ.Component
		if f.Locked {
			content = ui.El("p", ui.A("class", "locked"), ui.Text(ui.T(loc, "web.tree.locked_fragment")))
		} else {
			content = ui.El("p", ui.A("class", "content"), ui.Text(f.Content))
		}
		entries = append(entries, ui.El("article", ui.A("class", "fragment", "data-fragment", f.ID),
			ui.El("time", ui.A("datetime", f.CreatedAt.UTC().Format(time.RFC3339)), ui.Text(f.CreatedAt.In(view.Location).Format("2006-01-02 15:04"))),
			ui.If(prompts[f.PromptID] != "", ui.El("h3", nil, ui.Text(prompts[f.PromptID]))),
			content,
		))
	}
	locked := view.Journal.Encrypted && !view.Unlocked
	var compose templ.Component
	if locked {
		compose = unlockForm(routepath.Journal(view.Journal.ID), loc)
	} else {
		compose = ui.Form(routepath.JournalFragments(view.Journal.ID),
			ui.Select(ui.T(loc, "web.journal.prompt"), "prompt_id", view.TodayPrompt, options...),
			ui.TextArea(ui.T(loc, "web.journal.entry"), "content", ""),
			ui.Submit(ui.T(loc, "web.journal.write")),
		)
	}
	return ui.El("section", ui.A("class", "journal", "data-journal", view.Journal.ID),
		ui.El("h1", nil, ui.Text(view.Journal.Title)),
		ui.If(view.Journal.Encrypted, ui.El("p", ui.A("class", "badge"), ui.Text(ui.T(loc, "web.journal.encrypted")))),
		ui.El("div", ui.A("class", "fragments"), entries...),
		compose,
		ui.Link(routepath.JournalPrefix, ui.T(loc, "web.journal.back")),
	)
}

func mnemonicPage(phrase, titleKey string, loc ui.Localizer) templ.Component {
	return ui.El("section", ui.A("class", "mnemonic"),
		ui.El("h1", nil, ui.Text(ui.T(loc, titleKey))),
		ui.El("p", nil, ui.Text(ui.T(loc, "web.journal.mnemonic_warning"))),
		ui.El("pre", ui.A("class", "phrase"), ui.Text(phrase)),
		ui.Link(routepath.JournalPrefix, ui.T(loc, "web.journal.back")),
	)
}
