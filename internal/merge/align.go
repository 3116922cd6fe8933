package merge

import (
	"sort"

	"github.com/chatwise-tools/chatwise-mcp/internal/textnorm"
)

// Ref points at one occurrence of a common message.
type Ref struct {
	Ordinal   int
	Seq       int
	MessageID string
}

// Common is a message that every conversation of a merge contains.
type Common struct {
	Signature textnorm.Signature

	// Role and Content come from the earliest occurrence, unnormalized.
	Role    string
	Content string
	FirstMs int64

	Refs []Ref
}

type occurrence struct {
	ordinal int
	entry   Entry
}

// earlier orders occurrences by timestamp, then message id, then
// conversation ordinal.
func earlier(a, b occurrence) bool {
	if a.entry.AtMs != b.entry.AtMs {
		return a.entry.AtMs < b.entry.AtMs
	}
	if a.entry.Message.ID != b.entry.Message.ID {
		return a.entry.Message.ID < b.entry.Message.ID
	}
	return a.ordinal < b.ordinal
}

// Align groups messages across timelines by signature and returns the
// groups present in every timeline, ordered by their earliest occurrence.
// Coverage counts distinct conversations, not occurrences.
func Align(timelines []Timeline) []Common {
	if len(timelines) == 0 {
		return nil
	}

	groups := make(map[textnorm.Signature][]occurrence)
	var order []textnorm.Signature
	for _, tl := range timelines {
		for _, e := range tl.Entries {
			sig := textnorm.SignatureOf(e.Message.Role, e.Message.Content)
			if _, ok := groups[sig]; !ok {
				order = append(order, sig)
			}
			groups[sig] = append(groups[sig], occurrence{ordinal: tl.Ordinal, entry: e})
		}
	}

	var out []Common
	firstOf := make(map[textnorm.Signature]occurrence)
	for _, sig := range order {
		occs := groups[sig]
		covered := make(map[int]bool)
		for _, o := range occs {
			covered[o.ordinal] = true
		}
		if len(covered) != len(timelines) {
			continue
		}

		rep := occs[0]
		for _, o := range occs[1:] {
			if earlier(o, rep) {
				rep = o
			}
		}
		firstOf[sig] = rep

		sort.SliceStable(occs, func(i, j int) bool {
			if occs[i].ordinal != occs[j].ordinal {
				return occs[i].ordinal < occs[j].ordinal
			}
			return occs[i].entry.Seq < occs[j].entry.Seq
		})
		refs := make([]Ref, len(occs))
		for i, o := range occs {
			refs[i] = Ref{Ordinal: o.ordinal, Seq: o.entry.Seq, MessageID: o.entry.Message.ID}
		}

		out = append(out, Common{
			Signature: sig,
			Role:      rep.entry.Message.Role,
			Content:   rep.entry.Message.Content,
			FirstMs:   rep.entry.AtMs,
			Refs:      refs,
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return earlier(firstOf[out[i].Signature], firstOf[out[j].Signature])
	})
	return out
}
