package lookup

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/tidwall/gjson"

	"github.com/Proton-105/gatekeeper-bot/pkg/config"
)

const (
	numberProfileAPI  = "number_profile"
	numberLocationAPI = "number_location"
	numberCallerAPI   = "number_caller"
)

// NumberInfo is the merged reply of the three number endpoints. Fields the
// sources did not deliver hold Unavailable.
type NumberInfo struct {
	Number     string
	CallerName string
	Name       string
	Location   string
	Operator   string
	Facebook   string
	Photo      string
}

// NumberLookup runs a reverse phone-number lookup over three independent,
// best-effort endpoints.
type NumberLookup struct {
	client *Client
	urls   config.NumberURLs
	log    *slog.Logger
}

// NewNumberLookup creates a lookup against the three endpoint templates.
func NewNumberLookup(client *Client, urls config.NumberURLs, log *slog.Logger) *NumberLookup {
	if log == nil {
		log = slog.Default()
	}
	return &NumberLookup{client: client, urls: urls, log: log}
}

// NormalizeNumber strips the leading plus sign and inner whitespace.
func NormalizeNumber(raw string) string {
	return strings.Join(strings.Fields(strings.ReplaceAll(raw, "+", "")), "")
}

// Lookup queries all three endpoints concurrently. A failing endpoint only
// blanks out its own fields.
func (n *NumberLookup) Lookup(ctx context.Context, number string) (*Result, error) {
	info := n.Fetch(ctx, NormalizeNumber(number))
	return &Result{Text: renderNumber(info)}, nil
}

// Fetch collects the merged NumberInfo for an already normalized number.
func (n *NumberLookup) Fetch(ctx context.Context, number string) NumberInfo {
	info := NumberInfo{
		Number:     number,
		CallerName: Unavailable,
		Name:       Unavailable,
		Location:   Unavailable,
		Operator:   Unavailable,
		Facebook:   Unavailable,
		Photo:      Unavailable,
	}

	var (
		wg       sync.WaitGroup
		profile  gjson.Result
		location gjson.Result
		caller   gjson.Result
	)

	fetch := func(api, template string, dst *gjson.Result) {
		defer wg.Done()
		doc, err := n.client.GetJSON(ctx, api, Expand(template, number), 1)
		if err != nil {
			n.log.Warn("number lookup source failed", slog.String("api", api), slog.Any("error", err))
			return
		}
		*dst = doc
	}

	wg.Add(3)
	go fetch(numberProfileAPI, n.urls.ProfileURL, &profile)
	go fetch(numberLocationAPI, n.urls.LocationURL, &location)
	go fetch(numberCallerAPI, n.urls.CallerURL, &caller)
	wg.Wait()

	info.Facebook = field(profile, Unavailable, "facebook")
	info.Name = field(profile, Unavailable, "name_info")
	info.Photo = field(profile, Unavailable, "photo_url")
	info.Location = field(location, Unavailable, "location")
	info.Operator = field(location, Unavailable, "operator")
	if caller.IsArray() {
		info.CallerName = field(caller, Unavailable, "0.name")
	}

	return info
}

func renderNumber(info NumberInfo) string {
	var b strings.Builder
	b.WriteString("<b>📞 Number:</b> <code>" + escape(info.Number) + "</code>\n")

	text := []line{
		{"👤 Caller Name", info.CallerName},
		{"📘 Facebook Name", info.Name},
		{"📍 Location", info.Location},
		{"📶 Operator", info.Operator},
	}
	for _, l := range text {
		if l.value == Unavailable {
			continue
		}
		b.WriteString("<b>" + l.label + ":</b> " + escape(l.value) + "\n")
	}

	if info.Facebook != Unavailable {
		b.WriteString(`<b>🔗 Facebook:</b> <a href="` + escape(info.Facebook) + `">Link</a>` + "\n")
	}
	if info.Photo != Unavailable {
		b.WriteString(`<b>🖼️ Photo:</b> <a href="` + escape(info.Photo) + `">Click Here</a>` + "\n")
	}

	return strings.TrimRight(b.String(), "\n")
}
