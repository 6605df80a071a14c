// Package admin serves the back-office views over the ledger's models: the
// model index, changelists, single-row change views, spreadsheet export and
// manual sale entry.
package admin

import (
	"fmt"
	"html/template"
	"reflect"
	"regexp"
	"strings"

	"github.com/jinzhu/inflection"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Object is anything with an admin change page.
type Object interface {
	AppLabel() string
	ModelName() string
	GetID() uint
}

// Reverser builds a path from a route name and its arguments.
type Reverser interface {
	Reverse(name string, args ...any) (string, error)
}

// classNamer lets values that are not Go structs of their model (such as
// generic rows) report the model class they stand for.
type classNamer interface {
	ClassName() string
}

var (
	acronymBoundary = regexp.MustCompile(`([A-Z]+)([A-Z][a-z])`)
	wordBoundary    = regexp.MustCompile(`([a-z\d])([A-Z])`)
)

// ClassName returns the type name behind v, looking through pointers.
func ClassName(v any) string {
	if n, ok := v.(classNamer); ok {
		return n.ClassName()
	}
	t := reflect.TypeOf(v)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil {
		return ""
	}
	return t.Name()
}

// Underscore converts a CamelCase name to snake_case ("HTTPServer" becomes
// "http_server").
func Underscore(word string) string {
	word = acronymBoundary.ReplaceAllString(word, "${1}_${2}")
	word = wordBoundary.ReplaceAllString(word, "${1}_${2}")
	return strings.ToLower(strings.ReplaceAll(word, "-", "_"))
}

// Titleize turns a class name into a title ("ParkingPermit" becomes
// "Parking Permit"). A trailing "_id" word is dropped.
func Titleize(word string) string {
	human := strings.TrimSuffix(Underscore(word), "_id")
	human = strings.TrimSpace(strings.ReplaceAll(human, "_", " "))
	// Casers keep state between calls and cannot be shared.
	return cases.Title(language.English).String(human)
}

// VerboseName renders the class name of v in title case. It is registered as
// the "verbose_name" template function.
func VerboseName(v any) string {
	return Titleize(ClassName(v))
}

// ModelVerboseName returns the lower case display name of a model class,
// honouring an explicit verbose name.
func ModelVerboseName(className, explicit string) string {
	if explicit != "" {
		return explicit
	}
	return strings.ToLower(Titleize(className))
}

// ModelVerboseNamePlural pluralizes the display name unless an explicit
// plural is set.
func ModelVerboseNamePlural(verboseName, explicit string) string {
	if explicit != "" {
		return explicit
	}
	return inflection.Plural(verboseName)
}

// ChangeRouteName is the route name of obj's change page.
func ChangeRouteName(app, model string) string {
	return fmt.Sprintf("admin:%s_%s_change", app, strings.ToLower(model))
}

// ChangelistRouteName is the route name of a model's list page.
func ChangelistRouteName(app, model string) string {
	return fmt.Sprintf("admin:%s_%s_changelist", app, strings.ToLower(model))
}

// AddRouteName is the route name of a model's add form.
func AddRouteName(app, model string) string {
	return fmt.Sprintf("admin:%s_%s_add", app, strings.ToLower(model))
}

// GetURLStr returns the path of obj's change page. It fails when no such
// route is registered, which means the admin is misconfigured.
func GetURLStr(urls Reverser, obj Object) (string, error) {
	name := ChangeRouteName(obj.AppLabel(), obj.ModelName())
	u, err := urls.Reverse(name, obj.GetID())
	if err != nil {
		return "", fmt.Errorf("change url for %s %d: %w", ClassName(obj), obj.GetID(), err)
	}
	return u, nil
}

// FuncMap returns the template functions the admin templates use.
func FuncMap(urls Reverser) template.FuncMap {
	return template.FuncMap{
		"verbose_name": VerboseName,
		"admin_url": func(obj Object) (string, error) {
			return GetURLStr(urls, obj)
		},
		"capfirst": capFirst,
	}
}

func capFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
