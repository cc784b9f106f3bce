package query

import (
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"

	"github.com/wildtrack/mediatag-service/internal/model"
)

// Mode selects which search the engine runs. Parameter precedence is fixed:
// id wins over thumbnailURL, which wins over tagN/countN pairs, which win
// over a bare tag list.
type Mode int

const (
	ModeInvalid Mode = iota
	ModeByID
	ModeByThumbnail
	ModeByTagCounts
	ModeByTagNames
)

// Request is a parsed search request.
type Request struct {
	Mode         Mode
	ID           string
	ThumbnailURL string
	TagCounts    model.TagCounts
	TagNames     []string
}

// ErrNoSearchParams is returned when a request carries none of the
// recognized search parameters.
var ErrNoSearchParams = fmt.Errorf("missing valid parameters (id, tag, tag+count, or thumbnailURL)")

// ParseSearchGET interprets query-string search parameters. Numbered
// tagN/countN pairs are only recognized here; query strings carry no type
// information, so the implicit all-numeric form is a POST-only mode.
func ParseSearchGET(values url.Values) (Request, error) {
	if values.Has("id") {
		return Request{Mode: ModeByID, ID: strings.Trim(values.Get("id"), `"`)}, nil
	}
	if values.Has("thumbnailURL") {
		thumb := values.Get("thumbnailURL")
		if thumb == "" {
			return Request{}, fmt.Errorf("invalid or missing thumbnailURL")
		}
		return Request{Mode: ModeByThumbnail, ThumbnailURL: thumb}, nil
	}
	if counts := parseNumberedTagCounts(values); len(counts) > 0 {
		return Request{Mode: ModeByTagCounts, TagCounts: counts}, nil
	}
	if values.Has("tag") {
		names := splitTagList(values.Get("tag"))
		if len(names) == 0 {
			return Request{}, fmt.Errorf("missing or empty tag parameter")
		}
		return Request{Mode: ModeByTagNames, TagNames: names}, nil
	}
	return Request{}, ErrNoSearchParams
}

// ParseSearchPOST interprets a JSON body with the same precedence as GET,
// plus one extra mode: a body whose values are all integers is treated as a
// tag-to-count map keyed by tag name.
func ParseSearchPOST(body map[string]any) (Request, error) {
	if raw, ok := body["id"]; ok {
		id, ok := raw.(string)
		if !ok {
			return Request{}, fmt.Errorf("invalid id parameter")
		}
		return Request{Mode: ModeByID, ID: strings.Trim(id, `"`)}, nil
	}
	if raw, ok := body["thumbnailURL"]; ok {
		thumb, ok := raw.(string)
		if !ok || thumb == "" {
			return Request{}, fmt.Errorf("invalid or missing thumbnailURL")
		}
		return Request{Mode: ModeByThumbnail, ThumbnailURL: thumb}, nil
	}
	if counts := implicitTagCounts(body); len(counts) > 0 {
		return Request{Mode: ModeByTagCounts, TagCounts: counts}, nil
	}
	if raw, ok := body["tag"]; ok {
		names, err := tagNamesFromJSON(raw)
		if err != nil {
			return Request{}, err
		}
		if len(names) == 0 {
			return Request{}, fmt.Errorf("missing or empty tag parameter")
		}
		return Request{Mode: ModeByTagNames, TagNames: names}, nil
	}
	return Request{}, ErrNoSearchParams
}

// parseNumberedTagCounts reads tag1/count1, tag2/count2, ... until the first
// index where either key is absent. Pairs with a blank tag or a non-positive
// or unparseable count are skipped without stopping the walk.
func parseNumberedTagCounts(values url.Values) model.TagCounts {
	counts := model.TagCounts{}
	for i := 1; ; i++ {
		tagKey := fmt.Sprintf("tag%d", i)
		countKey := fmt.Sprintf("count%d", i)
		if !values.Has(tagKey) || !values.Has(countKey) {
			break
		}
		tag := strings.TrimSpace(values.Get(tagKey))
		count, err := strconv.Atoi(values.Get(countKey))
		if err == nil && tag != "" && count > 0 {
			counts[tag] = count
		}
	}
	return counts
}

// implicitTagCounts returns the body as a tag-count map when every value is
// an integral JSON number, and nil otherwise.
func implicitTagCounts(body map[string]any) model.TagCounts {
	if len(body) == 0 {
		return nil
	}
	counts := model.TagCounts{}
	for key, raw := range body {
		num, ok := raw.(float64)
		if !ok || num != math.Trunc(num) {
			return nil
		}
		counts[key] = int(num)
	}
	return counts
}

func tagNamesFromJSON(raw any) ([]string, error) {
	switch v := raw.(type) {
	case string:
		return splitTagList(v), nil
	case []any:
		var names []string
		for _, item := range v {
			name := strings.ToLower(strings.TrimSpace(fmt.Sprint(item)))
			if name != "" {
				names = append(names, name)
			}
		}
		return names, nil
	default:
		return nil, fmt.Errorf("invalid tag parameter")
	}
}

func splitTagList(raw string) []string {
	var names []string
	for _, part := range strings.Split(raw, ",") {
		name := strings.ToLower(strings.TrimSpace(part))
		if name != "" {
			names = append(names, name)
		}
	}
	return names
}
