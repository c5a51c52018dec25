package auth

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// htmlForm is one <form> with its submittable fields. The login flow only
// ever relays field values verbatim; nothing in them is interpreted.
type htmlForm struct {
	id     string
	action string
	method string
	fields url.Values
}

func (f *htmlForm) hasField(name string) bool {
	_, ok := f.fields[name]
	return ok
}

func parseHTML(body []byte) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	return doc, nil
}

func extractForms(doc *goquery.Document) []*htmlForm {
	var forms []*htmlForm
	doc.Find("form").Each(func(_ int, sel *goquery.Selection) {
		form := &htmlForm{fields: url.Values{}}
		form.id, _ = sel.Attr("id")
		form.action, _ = sel.Attr("action")
		form.method, _ = sel.Attr("method")

		sel.Find("input").Each(func(_ int, input *goquery.Selection) {
			name, ok := input.Attr("name")
			if !ok || name == "" {
				return
			}
			value, _ := input.Attr("value")
			form.fields.Set(name, value)
		})

		forms = append(forms, form)
	})
	return forms
}

// findLoginForm locates the IdP credential form: form#login, or any form
// carrying a j_username field.
func findLoginForm(forms []*htmlForm) *htmlForm {
	for _, f := range forms {
		if f.id == "login" {
			return f
		}
	}
	for _, f := range forms {
		if f.hasField("j_username") {
			return f
		}
	}
	return nil
}

// findInterstitialForm locates the IdP's client-storage interstitial, an
// auto-post form served before the login page on a fresh session.
func findInterstitialForm(forms []*htmlForm) *htmlForm {
	if len(forms) == 0 {
		return nil
	}
	first := forms[0]
	if first.id == "login" || first.hasField("j_username") {
		return nil
	}
	return first
}

// findAutoPostForm locates the assertion relay form in the IdP's final
// response: the first form with method POST.
func findAutoPostForm(forms []*htmlForm) *htmlForm {
	for _, f := range forms {
		if strings.EqualFold(f.method, "post") {
			return f
		}
	}
	return nil
}

// loginErrorText returns the IdP's rendered login failure message, if any.
func loginErrorText(doc *goquery.Document) string {
	return strings.TrimSpace(doc.Find("p.form-error").First().Text())
}
