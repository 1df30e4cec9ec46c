// Package embedcode builds the copy-paste snippets that put an agent
// on a host page: a hosted iframe and a script-tag loader. Both carry
// the preset's public identifier and optional branding; neither
// embeds a credential.
package embedcode

import (
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

// Iframe dimensions used when the brand does not set them.
const (
	DefaultWidth  = 400
	DefaultHeight = 600
)

var colorRe = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

// Brand styles the embedded widget. Zero fields are left to the
// widget's own defaults.
type Brand struct {
	PrimaryColor    string
	BackgroundColor string
	FontFamily      string

	// CornerRadius is in pixels. Width and Height size the iframe;
	// zero means the package defaults.
	CornerRadius int
	Width        int
	Height       int
}

func (b Brand) validate() error {
	for _, c := range []string{b.PrimaryColor, b.BackgroundColor} {
		if c != "" && !colorRe.MatchString(c) {
			return fmt.Errorf("embedcode: color %q must be #rrggbb", c)
		}
	}
	if b.CornerRadius < 0 {
		return errors.New("embedcode: corner radius must not be negative")
	}
	if b.Width < 0 || b.Height < 0 {
		return errors.New("embedcode: dimensions must be positive")
	}
	return nil
}

// Options parameterize one embed surface.
type Options struct {
	// PublicID is the preset's public identifier. It is the only
	// required coupling between the host page and the platform.
	PublicID string

	// Host is the embed host base URL.
	Host string

	// Origins optionally restricts which page origins the widget will
	// talk to. Entries are scheme://host[:port] with nothing after.
	Origins []string

	Brand Brand
}

// Validate checks the options without building anything.
func (o Options) Validate() error {
	if o.PublicID == "" {
		return errors.New("embedcode: public id is required")
	}
	if o.Host == "" {
		return errors.New("embedcode: embed host is required")
	}
	if !validBase(o.Host) {
		return fmt.Errorf("embedcode: host %q is not an absolute http(s) URL", o.Host)
	}
	for _, origin := range o.Origins {
		if !validOrigin(origin) {
			return fmt.Errorf("embedcode: origin %q must be an absolute http(s) origin", origin)
		}
	}
	return o.Brand.validate()
}

// IframeURL returns the hosted widget URL with branding and the
// origin allow-list on the query string.
func (o Options) IframeURL() (string, error) {
	if err := o.Validate(); err != nil {
		return "", err
	}
	q := url.Values{}
	if o.Brand.PrimaryColor != "" {
		q.Set("primary", o.Brand.PrimaryColor)
	}
	if o.Brand.BackgroundColor != "" {
		q.Set("background", o.Brand.BackgroundColor)
	}
	if o.Brand.FontFamily != "" {
		q.Set("font", o.Brand.FontFamily)
	}
	if o.Brand.CornerRadius > 0 {
		q.Set("radius", strconv.Itoa(o.Brand.CornerRadius))
	}
	if len(o.Origins) > 0 {
		q.Set("origins", strings.Join(o.Origins, ","))
	}

	u := strings.TrimSuffix(o.Host, "/") + "/embed/" + url.PathEscape(o.PublicID)
	if enc := q.Encode(); enc != "" {
		u += "?" + enc
	}
	return u, nil
}

// IframeHTML returns a ready-to-paste iframe element.
func (o Options) IframeHTML() (string, error) {
	src, err := o.IframeURL()
	if err != nil {
		return "", err
	}
	w, h := o.Brand.Width, o.Brand.Height
	if w == 0 {
		w = DefaultWidth
	}
	if h == 0 {
		h = DefaultHeight
	}
	return fmt.Sprintf(
		`<iframe src="%s" width="%d" height="%d" style="border:0" allow="microphone" title="voxdeck agent"></iframe>`,
		html.EscapeString(src), w, h), nil
}

// Loader-script config, camelCased for the host page.
type loaderConfig struct {
	PublicID string       `json:"publicId"`
	Host     string       `json:"host"`
	Origins  []string     `json:"origins,omitempty"`
	Brand    *loaderBrand `json:"brand,omitempty"`
}

type loaderBrand struct {
	PrimaryColor    string `json:"primaryColor,omitempty"`
	BackgroundColor string `json:"backgroundColor,omitempty"`
	FontFamily      string `json:"fontFamily,omitempty"`
	CornerRadius    int    `json:"cornerRadius,omitempty"`
	Width           int    `json:"width,omitempty"`
	Height          int    `json:"height,omitempty"`
}

// LoaderSnippet returns the script-tag form: a global config object
// followed by the async loader. json.Marshal HTML-escapes the config,
// so brand strings cannot break out of the script element.
func (o Options) LoaderSnippet() (string, error) {
	if err := o.Validate(); err != nil {
		return "", err
	}
	host := strings.TrimSuffix(o.Host, "/")
	cfg := loaderConfig{
		PublicID: o.PublicID,
		Host:     host,
		Origins:  o.Origins,
	}
	if o.Brand != (Brand{}) {
		cfg.Brand = &loaderBrand{
			PrimaryColor:    o.Brand.PrimaryColor,
			BackgroundColor: o.Brand.BackgroundColor,
			FontFamily:      o.Brand.FontFamily,
			CornerRadius:    o.Brand.CornerRadius,
			Width:           o.Brand.Width,
			Height:          o.Brand.Height,
		}
	}
	data, err := json.MarshalIndent(cfg, "  ", "  ")
	if err != nil {
		return "", fmt.Errorf("embedcode: marshal config: %w", err)
	}
	return fmt.Sprintf("<script>\n  window.voxdeck = %s;\n</script>\n<script src=\"%s/widget.js\" async></script>",
		data, html.EscapeString(host)), nil
}

func validBase(s string) bool {
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func validOrigin(s string) bool {
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	return u.Host != "" && u.Path == "" && u.RawQuery == "" && u.Fragment == "" && u.User == nil
}
