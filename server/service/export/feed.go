package export

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/gorilla/feeds"

	"github.com/hrygo/slotfinder/store"
)

// ResponsesAtom renders participants' submissions as an Atom feed, newest
// response first.
func ResponsesAtom(event *store.Event, participants []*store.Participant, link string) (string, error) {
	if event == nil {
		return "", fmt.Errorf("export: event is required")
	}

	feed := &feeds.Feed{
		Title:       event.Title,
		Link:        &feeds.Link{Href: link},
		Description: event.Description,
		Author:      &feeds.Author{Name: event.CreatorName},
		Id:          "urn:slotfinder:event:" + event.ID,
		Created:     time.Unix(event.CreatedTs, 0).UTC(),
		Updated:     time.Unix(event.UpdatedTs, 0).UTC(),
	}

	sorted := make([]*store.Participant, len(participants))
	copy(sorted, participants)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].UpdatedTs > sorted[j].UpdatedTs
	})

	for _, p := range sorted {
		updated := time.Unix(p.UpdatedTs, 0).UTC()
		if updated.After(feed.Updated) {
			feed.Updated = updated
		}
		feed.Items = append(feed.Items, &feeds.Item{
			Title:       p.Name + " responded",
			Link:        &feeds.Link{Href: link},
			Author:      &feeds.Author{Name: p.Name},
			Description: describeResponse(p),
			Id:          "urn:slotfinder:participant:" + p.ID,
			Created:     time.Unix(p.CreatedTs, 0).UTC(),
			Updated:     updated,
		})
	}

	return feed.ToAtom()
}

func describeResponse(p *store.Participant) string {
	var b strings.Builder
	b.WriteString(p.RawDateInput)
	parsed := 0
	for _, iv := range p.ParsedDates {
		if !iv.NeedsLLMParsing {
			parsed++
		}
	}
	fmt.Fprintf(&b, " (%d parsed", parsed)
	if p.Timezone != "" {
		fmt.Fprintf(&b, ", %s", p.Timezone)
	}
	b.WriteString(")")
	return b.String()
}
