package auth

import (
	"github.com/a-h/templ"
	"github.com/doosr/doosr/internal/platform/i18n"
	"github.com/doosr/doosr/internal/services/web/routepath"
	ui "github.com/doosr/doosr/internal/services/web/templates"
)

type loginForm struct {
	Email string
	Next  string
	Error string
}

type registerForm struct {
	Email       string
	DisplayName string
	Locale      string
	TimeZone    string
	Error       string
}

type accountForm struct {
	Email       string
	DisplayName string
	Locale      string
	TimeZone    string
	Error       string
}

func loginView(form loginForm, loc ui.Localizer) templ.Component {
	return ui.El("section", ui.A("class", "auth"),
		ui.El("h1", nil, ui.Text(ui.T(loc, "web.auth.login_title"))),
		ui.Alert(form.Error),
		ui.Form(routepath.AuthLogin,
			ui.Hidden("next", form.Next),
			ui.Field(ui.T(loc, "web.auth.email"), "email", "email", form.Email, ui.A("required", "required", "autocomplete", "email")...),
			ui.Field(ui.T(loc, "web.auth.password"), "password", "password", "", ui.A("required", "required", "autocomplete", "current-password")...),
			ui.Submit(ui.T(loc, "web.auth.submit_login")),
		),
		ui.El("p", nil, ui.Link(routepath.AuthRegister, ui.T(loc, "web.auth.no_account"))),
	)
}

func registerView(form registerForm, loc ui.Localizer) templ.Component {
	return ui.El("section", ui.A("class", "auth"),
		ui.El("h1", nil, ui.Text(ui.T(loc, "web.auth.register_title"))),
		ui.Alert(form.Error),
		ui.Form(routepath.AuthRegister,
			ui.Field(ui.T(loc, "web.auth.email"), "email", "email", form.Email, ui.A("required", "required", "autocomplete", "email")...),
			ui.Field(ui.T(loc, "web.auth.display_name"), "text", "display_name", form.DisplayName),
			ui.Field(ui.T(loc, "web.auth.password"), "password", "password", "", ui.A("required", "required", "autocomplete", "new-password")...),
			localeSelect(form.Locale, loc),
			ui.Field(ui.T(loc, "web.auth.time_zone"), "text", "time_zone", form.TimeZone),
			ui.Submit(ui.T(loc, "web.auth.submit_register")),
		),
		ui.El("p", nil, ui.Link(routepath.AuthLogin, ui.T(loc, "web.auth.have_account"))),
	)
}

func accountView(form accountForm, loc ui.Localizer) templ.Component {
	return ui.El("section", ui.A("class", "account"),
		ui.El("h1", nil, ui.Text(ui.T(loc, "web.auth.account_title"))),
		ui.El("p", nil, ui.Text(form.Email)),
		ui.Alert(form.Error),
		ui.Form(routepath.AuthAccount,
			ui.Field(ui.T(loc, "web.auth.display_name"), "text", "display_name", form.DisplayName),
			localeSelect(form.Locale, loc),
			ui.Field(ui.T(loc, "web.auth.time_zone"), "text", "time_zone", form.TimeZone),
			ui.Submit(ui.T(loc, "web.auth.save")),
		),
	)
}

func localeSelect(selected string, loc ui.Localizer) templ.Component {
	tags := i18n.SupportedTags()
	options := make([][2]string, 0, len(tags))
	for _, tag := range tags {
		name := tag.String()
		options = append(options, [2]string{name, ui.T(loc, "web.locale."+name)})
	}
	return ui.Select(ui.T(loc, "web.auth.locale"), "locale", selected, options...)
}
