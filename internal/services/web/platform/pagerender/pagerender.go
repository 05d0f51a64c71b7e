// Package pagerender renders module pages as full documents or htmx
// fragments.
package pagerender

import (
	"bytes"
	"context"
	"net/http"
	"strings"

	"github.com/a-h/templ"
	"github.com/doosr/doosr/internal/platform/i18n"
	"github.com/doosr/doosr/internal/services/web/platform/flash"
	"github.com/doosr/doosr/internal/services/web/platform/httpx"
	"github.com/doosr/doosr/internal/services/web/platform/requestmeta"
	"github.com/doosr/doosr/internal/services/web/platform/webctx"
	webtemplates "github.com/doosr/doosr/internal/services/web/templates"
)

// UnreadCounter reports how many inbox notifications a user has not read.
type UnreadCounter func(ctx context.Context, userID string) (int, error)

// Page describes one module page response.
type Page struct {
	Title    string
	Status   int
	Fragment templ.Component
}

// Renderer writes pages inside the shared layout.
type Renderer struct {
	Policy requestmeta.SchemePolicy
	Unread UnreadCounter
}

// Write renders page. Boosted htmx navigation receives only the main
// element; everything else receives the full document.
func (rd Renderer) Write(w http.ResponseWriter, r *http.Request, page Page) error {
	status := page.Status
	if status <= 0 {
		status = http.StatusOK
	}
	fragment := page.Fragment
	if fragment == nil {
		fragment = templ.NopComponent
	}
	ctx := templ.WithChildren(httpx.RequestContext(r), fragment)

	var buf bytes.Buffer
	if httpx.IsHTMXRequest(r) {
		if err := webtemplates.MainContent().Render(ctx, &buf); err != nil {
			return err
		}
	} else {
		if err := webtemplates.Layout(rd.document(w, r, page.Title)).Render(ctx, &buf); err != nil {
			return err
		}
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err := w.Write(buf.Bytes())
	return err
}

func (rd Renderer) document(w http.ResponseWriter, r *http.Request, title string) webtemplates.Page {
	loc := webctx.Printer(r)
	viewer := webctx.Viewer(r)
	page := webtemplates.Page{
		Title:       title,
		Lang:        i18n.Locale(webctx.Lang(r)),
		CurrentPath: r.URL.Path,
		SignedIn:    viewer.SignedIn(),
		UserName:    strings.TrimSpace(viewer.DisplayName),
		Loc:         loc,
	}
	if page.UserName == "" {
		page.UserName = viewer.Email
	}
	if viewer.SignedIn() && rd.Unread != nil {
		if count, err := rd.Unread(r.Context(), viewer.UserID); err == nil {
			page.UnreadCount = count
		}
	}
	if notice, ok := flash.ReadAndClear(w, r, rd.Policy); ok {
		page.Toast = &webtemplates.Toast{Kind: string(notice.Kind), Message: loc.Sprintf(notice.Key)}
	}
	return page
}
